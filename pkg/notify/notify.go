// Package notify lets tests opt in to notifications.
//
//	func TestCheckout(t *testing.T) {
//		notify.Mark(t, "slack")
//		...
//	}
//
// The mark is written to the test log, where go-test-notify picks it up from
// the `go test -json` stream.
package notify

import (
	"strings"
	"testing"
)

// Prefix starts every marker line.
const Prefix = "go-test-notify: notify="

// Mark attaches the named listeners to the calling test. Without names the
// test is reported to every configured listener. Marking from a subtest
// marks its top-level test.
func Mark(tb testing.TB, listeners ...string) {
	tb.Helper()
	tb.Log(Marker(listeners...))
}

// Marker returns the marker text for the given listeners.
func Marker(listeners ...string) string {
	return Prefix + strings.Join(listeners, ",")
}

// ParseMarker extracts the listener names from a line containing a marker.
// The names are empty when the marker targets every listener.
func ParseMarker(line string) ([]string, bool) {
	idx := strings.Index(line, Prefix)
	if idx < 0 {
		return nil, false
	}

	rest := line[idx+len(Prefix):]
	if end := strings.IndexAny(rest, " \t\r\n"); end >= 0 {
		rest = rest[:end]
	}

	var names []string
	for _, name := range strings.Split(rest, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names, true
}
