package process

import (
	"io"
	"os"
)

// Runner starts a child process and exposes its combined output.
type Runner interface {
	Start(command string, args []string, env []string) error
	// Output returns the child's combined stdout and stderr. It reaches EOF
	// once the child has exited and the output is drained.
	Output() io.Reader
	Wait() error
	// ExitCode is valid after Wait returned.
	ExitCode() int
	Signal(sig os.Signal) error
	// Close releases the output stream.
	Close() error
}
