package testutil

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/Veraticus/go-test-notify/pkg/channel"
	"github.com/Veraticus/go-test-notify/pkg/report"
)

// PostedMessage is one call recorded by MockClient.
type PostedMessage struct {
	Channel string
	Message channel.Message
	ID      string
}

// MockClient is a thread-safe mock implementation of channel.Client for testing.
// Every successful post gets a sequential id starting at "1".
type MockClient struct {
	mu        sync.Mutex
	posts     []PostedMessage
	attempts  []PostedMessage // Track all post attempts
	postErr   error
	failWhen  func(channel.Message) bool
	postDelay time.Duration
	panicMsg  string
	nextID    int
	inFlight  int
	maxFlight int
}

// Ensure MockClient implements channel.Client
var _ channel.Client = (*MockClient)(nil)

// NewMockClient creates a new mock client
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Post implements the channel.Client interface
func (m *MockClient) Post(ctx context.Context, ch string, msg channel.Message) (string, error) {
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > m.maxFlight {
		m.maxFlight = m.inFlight
	}
	delay := m.postDelay
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if delay > 0 {
		time.Sleep(delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Always track the attempt
	m.attempts = append(m.attempts, PostedMessage{Channel: ch, Message: msg})

	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	if m.postErr != nil && (m.failWhen == nil || m.failWhen(msg)) {
		return "", &channel.DeliveryError{Service: "mock", Channel: ch, Err: m.postErr}
	}

	m.nextID++
	id := strconv.Itoa(m.nextID)
	m.posts = append(m.posts, PostedMessage{Channel: ch, Message: msg, ID: id})
	return id, nil
}

// GetPosts returns a copy of successful posts
func (m *MockClient) GetPosts() []PostedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]PostedMessage, len(m.posts))
	copy(result, m.posts)
	return result
}

// GetAttempts returns a copy of all attempted posts (including failures)
func (m *MockClient) GetAttempts() []PostedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]PostedMessage, len(m.attempts))
	copy(result, m.attempts)
	return result
}

// GetMaxInFlight returns the highest number of concurrent Post calls seen
func (m *MockClient) GetMaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxFlight
}

// SetError makes every Post fail with err
func (m *MockClient) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.postErr = err
	m.failWhen = nil
}

// SetErrorWhen makes Post fail with err for messages matching pred
func (m *MockClient) SetErrorWhen(err error, pred func(channel.Message) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.postErr = err
	m.failWhen = pred
}

// SetPanic makes every Post panic with msg
func (m *MockClient) SetPanic(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicMsg = msg
}

// SetDelay sets a delay before each Post call
func (m *MockClient) SetDelay(delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.postDelay = delay
}

// ListenerUpdate is one Update call recorded by MockListener.
type ListenerUpdate struct {
	Name    report.TestName
	Records []report.OutcomeRecord
}

// MockListener is a thread-safe mock implementation of report.Listener for testing
type MockListener struct {
	mu          sync.Mutex
	updates     []ListenerUpdate
	finishCount int
	finishErr   error
	events      *[]string
	label       string
}

// Ensure MockListener implements report.Listener
var _ report.Listener = (*MockListener)(nil)

// NewMockListener creates a new mock listener
func NewMockListener() *MockListener {
	return &MockListener{}
}

// Update implements the report.Listener interface
func (m *MockListener) Update(name report.TestName, records []report.OutcomeRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, ListenerUpdate{Name: name, Records: records})
	m.logEvent("update:" + string(name))
}

// Finish implements the report.Listener interface
func (m *MockListener) Finish(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finishCount++
	m.logEvent("finish")
	return m.finishErr
}

// Record appends every call, prefixed with label, to a shared event log so
// tests can assert ordering across listeners. The log is not synchronised
// between listeners; use it from a single goroutine.
func (m *MockListener) Record(label string, events *[]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.label = label
	m.events = events
}

func (m *MockListener) logEvent(event string) {
	if m.events != nil {
		*m.events = append(*m.events, m.label+":"+event)
	}
}

// GetUpdates returns a copy of received updates
func (m *MockListener) GetUpdates() []ListenerUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]ListenerUpdate, len(m.updates))
	copy(result, m.updates)
	return result
}

// GetFinishCount returns how many times Finish was called
func (m *MockListener) GetFinishCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finishCount
}

// SetFinishError sets the error to return from Finish
func (m *MockListener) SetFinishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finishErr = err
}

// StartedTest is one OnTestStart call recorded by MockObserver.
type StartedTest struct {
	Name      report.TestName
	Listeners []report.Listener
}

// ObservedResult is one OnResult call recorded by MockObserver.
type ObservedResult struct {
	Name   report.TestName
	Record report.OutcomeRecord
}

// MockObserver is a thread-safe mock implementation of report.Observer for testing
type MockObserver struct {
	mu            sync.Mutex
	started       []StartedTest
	results       []ObservedResult
	finishedCount int
}

// Ensure MockObserver implements report.Observer
var _ report.Observer = (*MockObserver)(nil)

// NewMockObserver creates a new mock observer
func NewMockObserver() *MockObserver {
	return &MockObserver{}
}

// OnTestStart implements the report.Observer interface
func (m *MockObserver) OnTestStart(name report.TestName, listeners ...report.Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, StartedTest{Name: name, Listeners: listeners})
}

// OnResult implements the report.Observer interface
func (m *MockObserver) OnResult(name report.TestName, record report.OutcomeRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, ObservedResult{Name: name, Record: record})
}

// OnRunFinish implements the report.Observer interface
func (m *MockObserver) OnRunFinish(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finishedCount++
}

// GetStarted returns a copy of OnTestStart calls
func (m *MockObserver) GetStarted() []StartedTest {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]StartedTest, len(m.started))
	copy(result, m.started)
	return result
}

// GetResults returns a copy of OnResult calls
func (m *MockObserver) GetResults() []ObservedResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]ObservedResult, len(m.results))
	copy(result, m.results)
	return result
}

// GetFinishedCount returns how many times OnRunFinish was called
func (m *MockObserver) GetFinishedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finishedCount
}

// MockRateLimiter is a mock implementation of interfaces.RateLimiter for testing
type MockRateLimiter struct {
	mu        sync.Mutex
	waitErr   error
	waitCount int
}

// NewMockRateLimiter creates a new mock rate limiter
func NewMockRateLimiter() *MockRateLimiter {
	return &MockRateLimiter{}
}

// Wait implements the RateLimiter interface
func (m *MockRateLimiter) Wait(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waitCount++
	return m.waitErr
}

// SetWaitError sets the error Wait returns
func (m *MockRateLimiter) SetWaitError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waitErr = err
}

// GetWaitCount returns how many times Wait was called
func (m *MockRateLimiter) GetWaitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waitCount
}

// MockStatusReporter is a mock implementation of interfaces.StatusReporter for testing
type MockStatusReporter struct {
	mu     sync.Mutex
	events []string
}

// NewMockStatusReporter creates a new mock status reporter
func NewMockStatusReporter() *MockStatusReporter {
	return &MockStatusReporter{}
}

// ReportSending implements the StatusReporter interface
func (m *MockStatusReporter) ReportSending(listener string) {
	m.add("sending:" + listener)
}

// ReportSuccess implements the StatusReporter interface
func (m *MockStatusReporter) ReportSuccess(listener string) {
	m.add("success:" + listener)
}

// ReportFailure implements the StatusReporter interface
func (m *MockStatusReporter) ReportFailure(listener string) {
	m.add("failure:" + listener)
}

func (m *MockStatusReporter) add(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

// GetEvents returns a copy of reported events
func (m *MockStatusReporter) GetEvents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]string, len(m.events))
	copy(result, m.events)
	return result
}
