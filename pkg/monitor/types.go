package monitor

import (
	"time"

	"github.com/Veraticus/go-test-notify/pkg/report"
)

// Event is one line of `go test -json` output.
type Event struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"`
	Package string    `json:"Package"`
	Test    string    `json:"Test"`
	Output  string    `json:"Output"`
	Elapsed float64   `json:"Elapsed"`
}

// Event actions.
const (
	ActionRun    = "run"
	ActionOutput = "output"
	ActionPass   = "pass"
	ActionFail   = "fail"
	ActionSkip   = "skip"
)

// PatternMatcher decides which listeners a test is attached to by name.
type PatternMatcher interface {
	// Match returns the listener names for test. An empty list with ok set
	// means every listener.
	Match(test report.TestName) (listeners []string, ok bool)
}

// ListenerResolver turns listener names into listeners. An empty list
// resolves to every listener.
type ListenerResolver interface {
	Resolve(names []string) []report.Listener
}
