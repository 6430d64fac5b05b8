package monitor

import (
	"github.com/Veraticus/go-test-notify/pkg/config"
	"github.com/Veraticus/go-test-notify/pkg/report"
)

// MarkMatcher matches test names against the configured marks
type MarkMatcher struct {
	marks []config.Mark
}

// Ensure MarkMatcher implements PatternMatcher
var _ PatternMatcher = (*MarkMatcher)(nil)

// NewMarkMatcher creates a matcher for the marks with a compiled pattern
func NewMarkMatcher(marks []config.Mark) *MarkMatcher {
	compiled := make([]config.Mark, 0, len(marks))
	for _, m := range marks {
		if m.CompiledRegex() != nil {
			compiled = append(compiled, m)
		}
	}
	return &MarkMatcher{marks: compiled}
}

// Match implements PatternMatcher. Names of all matching marks are merged;
// a matching mark without names selects every listener.
func (mm *MarkMatcher) Match(test report.TestName) ([]string, bool) {
	var (
		names   []string
		matched bool
		all     bool
	)

	for _, m := range mm.marks {
		if !m.CompiledRegex().MatchString(string(test)) {
			continue
		}
		matched = true
		if len(m.Listeners) == 0 {
			all = true
			continue
		}
		for _, name := range m.Listeners {
			if !contains(names, name) {
				names = append(names, name)
			}
		}
	}

	if all {
		return nil, matched
	}
	return names, matched
}

// GetMarks returns the active marks
func (mm *MarkMatcher) GetMarks() []config.Mark {
	return mm.marks
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
