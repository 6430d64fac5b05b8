package testutil

import (
	"bytes"
	"io"
	"os"
	"sync"
)

// MockRunner is a mock implementation of process.Runner for testing
type MockRunner struct {
	mu       sync.Mutex
	started  bool
	closed   bool
	command  string
	args     []string
	env      []string
	exitCode int
	startErr error
	waitErr  error
	signals  []os.Signal
	output   *bytes.Buffer
}

// NewMockRunner creates a new mock runner producing output
func NewMockRunner(output string) *MockRunner {
	return &MockRunner{
		output: bytes.NewBufferString(output),
	}
}

// Start implements the Runner interface
func (m *MockRunner) Start(command string, args []string, env []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.startErr != nil {
		return m.startErr
	}

	m.started = true
	m.command = command
	m.args = args
	m.env = env
	return nil
}

// Output implements the Runner interface
func (m *MockRunner) Output() io.Reader {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.NewReader(m.output.Bytes())
}

// Wait implements the Runner interface
func (m *MockRunner) Wait() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waitErr
}

// ExitCode implements the Runner interface
func (m *MockRunner) ExitCode() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exitCode
}

// Signal implements the Runner interface
func (m *MockRunner) Signal(sig os.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals = append(m.signals, sig)
	return nil
}

// Close implements the Runner interface
func (m *MockRunner) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SetStartError sets the error to return from Start
func (m *MockRunner) SetStartError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startErr = err
}

// SetWaitError sets the error to return from Wait
func (m *MockRunner) SetWaitError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waitErr = err
}

// SetExitCode sets the exit code
func (m *MockRunner) SetExitCode(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exitCode = code
}

// IsStarted returns whether Start was called
func (m *MockRunner) IsStarted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// IsClosed returns whether Close was called
func (m *MockRunner) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// GetEnv returns the environment passed to Start
func (m *MockRunner) GetEnv() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.env...)
}

// GetSignals returns the forwarded signals
func (m *MockRunner) GetSignals() []os.Signal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]os.Signal(nil), m.signals...)
}

// MockDataHandler is a mock implementation of interfaces.DataHandler for testing
type MockDataHandler struct {
	mu    sync.Mutex
	data  bytes.Buffer
	lines []string
}

// NewMockDataHandler creates a new mock data handler
func NewMockDataHandler() *MockDataHandler {
	return &MockDataHandler{}
}

// HandleData implements the DataHandler interface
func (m *MockDataHandler) HandleData(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.Write(data)
}

// HandleLine implements the OutputHandler interface
func (m *MockDataHandler) HandleLine(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, line)
}

// GetData returns everything passed to HandleData
func (m *MockDataHandler) GetData() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.String()
}

// GetLines returns everything passed to HandleLine
func (m *MockDataHandler) GetLines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lines...)
}
