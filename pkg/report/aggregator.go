package report

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Aggregator tracks, per test, the interested listeners and the ordered list
// of outcome records collected during a run.
type Aggregator struct {
	log zerolog.Logger

	mu        sync.Mutex
	entries   map[TestName]*TestEntry
	order     []TestName
	finalized bool
}

// Ensure Aggregator implements Observer
var _ Observer = (*Aggregator)(nil)

// NewAggregator creates an empty aggregator for a single run.
func NewAggregator(log zerolog.Logger) *Aggregator {
	return &Aggregator{
		log:     log,
		entries: make(map[TestName]*TestEntry),
	}
}

// OnTestStart creates the entry for name on first call and attaches the
// listeners. Later calls merge additional listeners into the set.
func (a *Aggregator) OnTestStart(name TestName, listeners ...Listener) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized {
		return
	}

	entry, ok := a.entries[name]
	if !ok {
		entry = &TestEntry{Name: name}
		a.entries[name] = entry
		a.order = append(a.order, name)
		a.log.Debug().Str("test", string(name)).Int("listeners", len(listeners)).Msg("tracking test")
	}

	for _, l := range listeners {
		if l == nil || containsListener(entry.Listeners, l) {
			continue
		}
		entry.Listeners = append(entry.Listeners, l)
	}
}

// Register appends record to the entry for name. Records for tests that were
// never started through OnTestStart are dropped.
func (a *Aggregator) Register(name TestName, record OutcomeRecord) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized {
		return false
	}

	entry, ok := a.entries[name]
	if !ok {
		return false
	}
	entry.Records = append(entry.Records, record)
	return true
}

// OnResult implements Observer.
func (a *Aggregator) OnResult(name TestName, record OutcomeRecord) {
	a.Register(name, record)
}

// OnRunFinish implements Observer.
func (a *Aggregator) OnRunFinish(ctx context.Context) {
	a.Finalize(ctx)
}

// Entries returns a snapshot of the collected entries in registration order.
func (a *Aggregator) Entries() []TestEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]TestEntry, 0, len(a.order))
	for _, name := range a.order {
		e := a.entries[name]
		out = append(out, TestEntry{
			Name:      e.Name,
			Listeners: append([]Listener(nil), e.Listeners...),
			Records:   append([]OutcomeRecord(nil), e.Records...),
		})
	}
	return out
}

// Finalize broadcasts the collected state. Every listener receives one Update
// per test it is attached to, then exactly one Finish for the whole run.
// Finish errors are logged and never returned. Calling Finalize more than once
// has no effect.
func (a *Aggregator) Finalize(ctx context.Context) {
	a.mu.Lock()
	if a.finalized {
		a.mu.Unlock()
		return
	}
	a.finalized = true
	entries := make([]*TestEntry, 0, len(a.order))
	for _, name := range a.order {
		entries = append(entries, a.entries[name])
	}
	a.mu.Unlock()

	var listeners []Listener
	for _, entry := range entries {
		for _, l := range entry.Listeners {
			l.Update(entry.Name, append([]OutcomeRecord(nil), entry.Records...))
			if !containsListener(listeners, l) {
				listeners = append(listeners, l)
			}
		}
	}

	a.log.Debug().Int("tests", len(entries)).Int("listeners", len(listeners)).Msg("finalizing run")

	for _, l := range listeners {
		if err := l.Finish(ctx); err != nil {
			a.log.Warn().Err(err).Msg("listener finish failed")
		}
	}
}

func containsListener(list []Listener, l Listener) bool {
	for _, existing := range list {
		if existing == l {
			return true
		}
	}
	return false
}
