package process

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// PipeRunner runs the child with its stdout and stderr joined on one pipe.
type PipeRunner struct {
	cmd    *exec.Cmd
	reader *os.File
	mu     sync.Mutex
}

// Ensure PipeRunner implements Runner
var _ Runner = (*PipeRunner)(nil)

// NewPipeRunner creates a new pipe runner
func NewPipeRunner() *PipeRunner {
	return &PipeRunner{}
}

// Start implements Runner.
func (p *PipeRunner) Start(command string, args []string, env []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return fmt.Errorf("process already started")
	}

	r, w, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("failed to create pipe: %w", err)
	}

	cmd := exec.Command(command, args...) // #nosec G204 -- running the user's command is the purpose of the tool
	cmd.Env = env
	cmd.Stdin = os.Stdin
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		return fmt.Errorf("failed to start process: %w", err)
	}

	// The child holds its own copy; closing ours lets the reader see EOF.
	_ = w.Close()

	p.cmd = cmd
	p.reader = r
	return nil
}

// Output implements Runner.
func (p *PipeRunner) Output() io.Reader {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reader
}

// Wait implements Runner.
func (p *PipeRunner) Wait() error {
	p.mu.Lock()
	cmd := p.cmd
	p.mu.Unlock()
	if cmd == nil {
		return fmt.Errorf("process not started")
	}
	return cmd.Wait()
}

// ExitCode implements Runner.
func (p *PipeRunner) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.ProcessState == nil {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}

// Signal implements Runner.
func (p *PipeRunner) Signal(sig os.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return os.ErrProcessDone
	}
	return p.cmd.Process.Signal(sig)
}

// Close implements Runner.
func (p *PipeRunner) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reader == nil {
		return nil
	}
	err := p.reader.Close()
	p.reader = nil
	return err
}
