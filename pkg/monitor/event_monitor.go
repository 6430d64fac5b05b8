package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Veraticus/go-test-notify/pkg/interfaces"
	"github.com/Veraticus/go-test-notify/pkg/notify"
	"github.com/Veraticus/go-test-notify/pkg/report"
)

// EventMonitor reads a `go test -json` stream and drives an Observer.
//
// Tests are marked either by a marker line in their output or by a
// configured mark pattern. Subtests are variants of their top-level test:
// every leaf result is recorded under the top-level name and the result of a
// test that has subtests is ignored. Tests still running when their package
// fails (a -timeout panic) or when the stream ends are recorded as failed.
type EventMonitor struct {
	observer report.Observer
	resolver ListenerResolver
	matcher  PatternMatcher
	printer  *Printer
	log      zerolog.Logger

	mu         sync.Mutex
	lineBuffer bytes.Buffer
	output     map[variantKey][]string
	parents    map[variantKey]bool
	running    map[string][]string
	pkgOutput  map[string][]string
	failed     bool
	closed     bool
}

// Ensure EventMonitor implements DataHandler
var _ interfaces.DataHandler = (*EventMonitor)(nil)

type variantKey struct {
	pkg  string
	test string
}

// NewEventMonitor creates a monitor. matcher and printer may be nil.
func NewEventMonitor(observer report.Observer, resolver ListenerResolver, matcher PatternMatcher, printer *Printer, log zerolog.Logger) *EventMonitor {
	return &EventMonitor{
		observer: observer,
		resolver: resolver,
		matcher:  matcher,
		printer:  printer,
		log:      log,
		output:    make(map[variantKey][]string),
		parents:   make(map[variantKey]bool),
		running:   make(map[string][]string),
		pkgOutput: make(map[string][]string),
	}
}

// HandleData processes raw output data
func (em *EventMonitor) HandleData(data []byte) {
	em.mu.Lock()
	defer em.mu.Unlock()

	em.lineBuffer.Write(data)

	buffer := em.lineBuffer.Bytes()
	start := 0
	for i := 0; i < len(buffer); i++ {
		if buffer[i] == '\n' {
			em.processLine(string(buffer[start:i]))
			start = i + 1
		}
	}

	// Keep any incomplete line in the buffer
	rest := append([]byte(nil), buffer[start:]...)
	em.lineBuffer.Reset()
	em.lineBuffer.Write(rest)
}

// HandleLine implements the OutputHandler interface
func (em *EventMonitor) HandleLine(line string) {
	em.mu.Lock()
	defer em.mu.Unlock()
	em.processLine(line)
}

// Close flushes a trailing partial line and finishes the run. Calling Close
// more than once has no effect.
func (em *EventMonitor) Close(ctx context.Context) {
	em.mu.Lock()
	if em.closed {
		em.mu.Unlock()
		return
	}
	em.closed = true
	if em.lineBuffer.Len() > 0 {
		em.processLine(em.lineBuffer.String())
		em.lineBuffer.Reset()
	}
	for pkg := range em.running {
		em.failUnfinished(pkg, "test did not finish before the test output ended")
	}
	em.mu.Unlock()

	em.observer.OnRunFinish(ctx)
}

// Failed reports whether any failure was seen in the stream.
func (em *EventMonitor) Failed() bool {
	em.mu.Lock()
	defer em.mu.Unlock()
	return em.failed
}

// processLine decodes and dispatches one line. Callers hold em.mu.
func (em *EventMonitor) processLine(line string) {
	// Lines from a pseudo-terminal end in \r\n.
	line = strings.TrimRight(line, "\r")

	var ev Event
	if !strings.HasPrefix(strings.TrimSpace(line), "{") || json.Unmarshal([]byte(line), &ev) != nil || ev.Action == "" {
		if em.printer != nil {
			em.printer.PrintLine(line, nil)
		}
		return
	}

	if em.printer != nil {
		em.printer.PrintLine(line, &ev)
	}
	em.handleEvent(ev)
}

func (em *EventMonitor) handleEvent(ev Event) {
	if ev.Action == ActionFail {
		em.failed = true
	}
	if ev.Test == "" {
		em.handlePackageEvent(ev)
		return
	}

	name := testName(ev.Package, ev.Test)
	key := variantKey{pkg: ev.Package, test: ev.Test}

	switch ev.Action {
	case ActionRun:
		em.running[ev.Package] = append(em.running[ev.Package], ev.Test)
		em.markParents(ev.Package, ev.Test)
		if em.matcher != nil && !strings.Contains(ev.Test, "/") {
			if names, ok := em.matcher.Match(name); ok {
				em.start(name, names)
			}
		}

	case ActionOutput:
		if names, ok := notify.ParseMarker(ev.Output); ok {
			em.start(name, names)
			return
		}
		em.output[key] = append(em.output[key], ev.Output)

	case ActionPass, ActionSkip, ActionFail:
		em.finished(ev.Package, ev.Test)
		output := em.output[key]
		delete(em.output, key)
		if em.parents[key] {
			return
		}
		em.observer.OnResult(name, newRecord(ev, output))
	}
}

func (em *EventMonitor) handlePackageEvent(ev Event) {
	switch ev.Action {
	case ActionOutput:
		em.pkgOutput[ev.Package] = append(em.pkgOutput[ev.Package], ev.Output)
	case ActionFail:
		reason := packageMessage(em.pkgOutput[ev.Package])
		if reason == "" {
			reason = "package failed before the test finished"
		}
		em.failUnfinished(ev.Package, reason)
		delete(em.pkgOutput, ev.Package)
	case ActionPass, ActionSkip:
		delete(em.running, ev.Package)
		delete(em.pkgOutput, ev.Package)
	}
}

// finished removes test from the running tests of pkg.
func (em *EventMonitor) finished(pkg, test string) {
	tests := em.running[pkg]
	for i, t := range tests {
		if t == test {
			em.running[pkg] = append(tests[:i:i], tests[i+1:]...)
			break
		}
	}
	if len(em.running[pkg]) == 0 {
		delete(em.running, pkg)
	}
}

// failUnfinished records a failure for every test of pkg that never
// reported a result. A running test whose subtests are also running is
// covered by them.
func (em *EventMonitor) failUnfinished(pkg, reason string) {
	tests := em.running[pkg]
	delete(em.running, pkg)

	for _, test := range tests {
		key := variantKey{pkg: pkg, test: test}
		output := em.output[key]
		delete(em.output, key)
		if hasRunningSubtest(tests, test) {
			continue
		}

		msg := failureMessage(output)
		switch {
		case msg == "":
			msg = reason
		case !strings.Contains(msg, reason):
			msg += "\n" + reason
		}

		em.log.Debug().Str("package", pkg).Str("test", test).Msg("test did not finish")
		em.observer.OnResult(testName(pkg, test), report.Failed(test, msg))
	}
}

func hasRunningSubtest(tests []string, test string) bool {
	prefix := test + "/"
	for _, t := range tests {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}

func (em *EventMonitor) start(name report.TestName, names []string) {
	listeners := em.resolver.Resolve(names)
	em.log.Debug().Str("test", string(name)).Strs("names", names).Int("listeners", len(listeners)).Msg("test marked")
	em.observer.OnTestStart(name, listeners...)
}

// markParents records every ancestor of test as having subtests.
func (em *EventMonitor) markParents(pkg, test string) {
	for i := strings.LastIndex(test, "/"); i > 0; i = strings.LastIndex(test[:i], "/") {
		em.parents[variantKey{pkg: pkg, test: test[:i]}] = true
	}
}

func newRecord(ev Event, output []string) report.OutcomeRecord {
	var rec report.OutcomeRecord
	switch ev.Action {
	case ActionPass:
		rec = report.Passed(ev.Test)
	case ActionSkip:
		rec = report.Skipped(ev.Test)
	default:
		rec = report.Failed(ev.Test, failureMessage(output))
	}
	rec.Elapsed = time.Duration(ev.Elapsed * float64(time.Second))
	return rec
}

// testName returns the identity shared by a test and all its subtests.
func testName(pkg, test string) report.TestName {
	if i := strings.Index(test, "/"); i >= 0 {
		test = test[:i]
	}
	if pkg == "" {
		return report.TestName(test)
	}
	return report.TestName(pkg + "." + test)
}

var frameworkPrefixes = []string{
	"=== RUN", "=== PAUSE", "=== CONT", "=== NAME",
	"--- FAIL", "--- PASS", "--- SKIP",
}

// failureMessage returns the test's own output without framework lines,
// with the common indentation removed.
func failureMessage(output []string) string {
	var lines []string
	for _, chunk := range output {
		for _, line := range strings.Split(strings.TrimRight(chunk, "\r\n"), "\n") {
			line = strings.TrimRight(line, "\r")
			if isFrameworkLine(line) {
				continue
			}
			lines = append(lines, line)
		}
	}
	return strings.TrimSpace(dedent(lines))
}

// packageMessage returns the package's own output without the summary lines
// go test prints for every package.
func packageMessage(output []string) string {
	var lines []string
	for _, chunk := range output {
		for _, line := range strings.Split(strings.TrimRight(chunk, "\r\n"), "\n") {
			line = strings.TrimRight(line, "\r")
			if isPackageSummaryLine(line) {
				continue
			}
			lines = append(lines, line)
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func isPackageSummaryLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "PASS" || trimmed == "FAIL" ||
		strings.HasPrefix(trimmed, "FAIL\t") || strings.HasPrefix(trimmed, "ok ") ||
		strings.HasPrefix(trimmed, "exit status ")
}

func isFrameworkLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, p := range frameworkPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}

func dedent(lines []string) string {
	indent := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent > 0 {
		for i, l := range lines {
			if len(l) >= indent {
				lines[i] = l[indent:]
			}
		}
	}
	return strings.Join(lines, "\n")
}
