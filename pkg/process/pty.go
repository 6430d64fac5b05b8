package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"github.com/rs/zerolog"
)

// PTYRunner runs the child on a pseudo-terminal so that it keeps terminal
// behavior such as colored output.
type PTYRunner struct {
	log      zerolog.Logger
	cmd      *exec.Cmd
	pty      *os.File
	mu       sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// Ensure PTYRunner implements Runner
var _ Runner = (*PTYRunner)(nil)

// NewPTYRunner creates a new PTY runner
func NewPTYRunner(log zerolog.Logger) *PTYRunner {
	return &PTYRunner{
		log:      log,
		stopChan: make(chan struct{}),
	}
}

// Start starts a process with PTY
func (p *PTYRunner) Start(command string, args []string, env []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return fmt.Errorf("process already started")
	}

	cmd := exec.Command(command, args...) // #nosec G204 -- running the user's command is the purpose of the tool
	cmd.Env = env

	f, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("failed to start PTY: %w", err)
	}
	p.cmd = cmd
	p.pty = f

	// Some environments have no terminal to copy from
	if err := p.copyTerminalSize(); err != nil {
		p.log.Debug().Err(err).Msg("failed to copy terminal size")
	}

	p.wg.Add(1)
	go p.monitorTerminalSize()

	return nil
}

// Output implements Runner. Reads return io.EOF instead of the EIO the
// kernel reports once the child side of the terminal is closed.
func (p *PTYRunner) Output() io.Reader {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ptyReader{f: p.pty}
}

// Wait waits for the process to complete
func (p *PTYRunner) Wait() error {
	p.mu.Lock()
	cmd := p.cmd
	p.mu.Unlock()
	if cmd == nil {
		return fmt.Errorf("process not started")
	}

	err := cmd.Wait()

	close(p.stopChan)
	p.wg.Wait()

	return err
}

// ExitCode implements Runner.
func (p *PTYRunner) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.ProcessState == nil {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}

// Signal implements Runner.
func (p *PTYRunner) Signal(sig os.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return os.ErrProcessDone
	}
	return p.cmd.Process.Signal(sig)
}

// Close closes the PTY
func (p *PTYRunner) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pty == nil {
		return nil
	}
	err := p.pty.Close()
	p.pty = nil
	return err
}

// copyTerminalSize copies the terminal size from stdin to the PTY
func (p *PTYRunner) copyTerminalSize() error {
	size, err := pty.GetsizeFull(os.Stdin)
	if err != nil {
		return err
	}
	return pty.Setsize(p.pty, size)
}

// monitorTerminalSize monitors for terminal size changes
func (p *PTYRunner) monitorTerminalSize() {
	defer p.wg.Done()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGWINCH)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-sigChan:
			p.mu.Lock()
			if p.pty != nil {
				if err := p.copyTerminalSize(); err != nil {
					p.log.Debug().Err(err).Msg("failed to resize PTY")
				}
			}
			p.mu.Unlock()
		case <-p.stopChan:
			return
		}
	}
}

type ptyReader struct {
	f *os.File
}

func (r ptyReader) Read(b []byte) (int, error) {
	if r.f == nil {
		return 0, io.EOF
	}
	n, err := r.f.Read(b)
	if err != nil && (errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed)) {
		err = io.EOF
	}
	return n, err
}
