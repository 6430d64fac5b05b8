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

	"github.com/rs/zerolog"

	"github.com/Veraticus/go-test-notify/pkg/interfaces"
)

// WrappedEnv is set in the child's environment to detect self-wrapping.
const WrappedEnv = "GO_TEST_NOTIFY_WRAPPED"

// ErrAlreadyWrapped is returned when go-test-notify would wrap itself.
var ErrAlreadyWrapped = errors.New("already wrapped by go-test-notify")

// Manager manages the wrapped test command
type Manager struct {
	runner        Runner
	outputHandler interfaces.DataHandler
	stdout        io.Writer
	log           zerolog.Logger

	exitCode int
	mu       sync.Mutex
	started  bool
	sigChan  chan os.Signal
	done     chan struct{}
	copyDone chan struct{}
}

// NewManager creates a new process manager. Output is copied to stdout when
// it is non-nil and handed to outputHandler when that is non-nil.
func NewManager(runner Runner, outputHandler interfaces.DataHandler, stdout io.Writer, log zerolog.Logger) *Manager {
	return &Manager{
		runner:        runner,
		outputHandler: outputHandler,
		stdout:        stdout,
		log:           log,
		done:          make(chan struct{}),
		copyDone:      make(chan struct{}),
	}
}

// Start starts the command
func (m *Manager) Start(command string, args []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if os.Getenv(WrappedEnv) == "1" {
		return ErrAlreadyWrapped
	}
	if m.started {
		return fmt.Errorf("process already started")
	}

	env := append(os.Environ(), WrappedEnv+"=1")
	if err := m.runner.Start(command, args, env); err != nil {
		return fmt.Errorf("failed to start process: %w", err)
	}
	m.started = true

	m.log.Debug().Str("command", command).Strs("args", args).Msg("process started")

	go m.copyOutput(m.runner.Output())

	m.setupSignalForwarding()

	return nil
}

// copyOutput streams the child's output until EOF
func (m *Manager) copyOutput(r io.Reader) {
	defer close(m.copyDone)

	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := buf[:n]
			if m.stdout != nil {
				if _, werr := m.stdout.Write(data); werr != nil {
					m.log.Debug().Err(werr).Msg("failed to write output")
				}
			}
			if m.outputHandler != nil {
				m.outputHandler.HandleData(append([]byte(nil), data...))
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				m.log.Warn().Err(err).Msg("output read error")
			}
			return
		}
	}
}

// Wait waits for the process to exit and its output to be drained. A
// non-zero exit status is not an error; see ExitCode.
func (m *Manager) Wait() error {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if !started {
		return fmt.Errorf("process not started")
	}

	err := m.runner.Wait()
	<-m.copyDone
	_ = m.runner.Close()

	code := m.runner.ExitCode()
	if code < 0 {
		// Killed by a signal.
		code = 1
	}
	m.mu.Lock()
	m.exitCode = code
	m.mu.Unlock()

	close(m.done)
	m.cleanupSignals()

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return fmt.Errorf("failed to wait for process: %w", err)
	}

	m.log.Debug().Int("exit_code", code).Msg("process exited")
	return nil
}

// ExitCode returns the exit code of the process
func (m *Manager) ExitCode() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exitCode
}

// setupSignalForwarding sets up signal forwarding to the child process
func (m *Manager) setupSignalForwarding() {
	m.sigChan = make(chan os.Signal, 1)
	signal.Notify(m.sigChan,
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGHUP,
		syscall.SIGQUIT,
	)

	go m.forwardSignals(m.sigChan)
}

// forwardSignals forwards signals to the child process
func (m *Manager) forwardSignals(sigChan <-chan os.Signal) {
	for {
		select {
		case sig, ok := <-sigChan:
			if !ok {
				return
			}
			if err := m.runner.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
				m.log.Warn().Err(err).Str("signal", sig.String()).Msg("signal forward error")
			}
		case <-m.done:
			return
		}
	}
}

// cleanupSignals stops signal forwarding
func (m *Manager) cleanupSignals() {
	if m.sigChan != nil {
		signal.Stop(m.sigChan)
	}
}
