// Package report collects the outcomes of tests marked for notification and
// hands them to listeners when the run finishes.
//
// A run owns exactly one Aggregator. The host integration (see package monitor)
// drives it through the Observer callbacks; at the end of the run every
// interested Listener receives the records of each test it was attached to,
// followed by a single Finish call.
package report

import (
	"context"
	"time"
)

// TestName identifies a test function. All variants of one function
// (subtests, table cases) share the same TestName.
type TestName string

// Outcome is the result kind of a single execution.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// OutcomeRecord is one execution result.
type OutcomeRecord struct {
	Kind Outcome
	// Message is set iff Kind is OutcomeFailed.
	Message string
	// Variant is the full name of the execution (e.g. TestFoo/case_1).
	Variant string
	Elapsed time.Duration
}

// Passed returns a passed record for the given variant.
func Passed(variant string) OutcomeRecord {
	return OutcomeRecord{Kind: OutcomePassed, Variant: variant}
}

// Skipped returns a skipped record for the given variant.
func Skipped(variant string) OutcomeRecord {
	return OutcomeRecord{Kind: OutcomeSkipped, Variant: variant}
}

// Failed returns a failed record. An empty message is replaced with a
// placeholder so that failed records always carry text.
func Failed(variant, message string) OutcomeRecord {
	if message == "" {
		message = variant + " failed"
		if variant == "" {
			message = "test failed"
		}
	}
	return OutcomeRecord{Kind: OutcomeFailed, Variant: variant, Message: message}
}

// Listener receives aggregated per-test data and a run-completion signal.
//
// Listeners are compared with == to merge and deduplicate them, so
// implementations must be comparable (pointer receivers in practice).
type Listener interface {
	// Update is called once per test the listener is attached to.
	Update(name TestName, records []OutcomeRecord)
	// Finish is called once per run after all updates.
	Finish(ctx context.Context) error
}

// Observer is the set of callback points a test runner integration invokes.
type Observer interface {
	OnTestStart(name TestName, listeners ...Listener)
	OnResult(name TestName, record OutcomeRecord)
	OnRunFinish(ctx context.Context)
}

// TestEntry is the aggregator's record of one test function.
type TestEntry struct {
	Name      TestName
	Listeners []Listener
	Records   []OutcomeRecord
}
