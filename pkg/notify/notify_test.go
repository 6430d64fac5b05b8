package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarker(t *testing.T) {
	assert.Equal(t, "go-test-notify: notify=slack,ntfy", Marker("slack", "ntfy"))
	assert.Equal(t, "go-test-notify: notify=", Marker())
}

func TestParseMarker(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantNames []string
		wantOK    bool
	}{
		{
			name:      "test log line",
			line:      "    checkout_test.go:12: go-test-notify: notify=slack\n",
			wantNames: []string{"slack"},
			wantOK:    true,
		},
		{
			name:      "several listeners",
			line:      "go-test-notify: notify=slack,telegram, ",
			wantNames: []string{"slack", "telegram"},
			wantOK:    true,
		},
		{
			name:   "all listeners",
			line:   "    a_test.go:5: go-test-notify: notify=\r\n",
			wantOK: true,
		},
		{
			name: "no marker",
			line: "    a_test.go:5: expected 1, got 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			names, ok := ParseMarker(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestMark(t *testing.T) {
	rec := &recordingTB{TB: t}
	Mark(rec, "slack", "ntfy")

	assert.True(t, rec.helper)
	assert.Equal(t, []string{"go-test-notify: notify=slack,ntfy"}, rec.logs)
}

type recordingTB struct {
	testing.TB
	helper bool
	logs   []string
}

func (r *recordingTB) Helper() { r.helper = true }

func (r *recordingTB) Log(args ...any) {
	for _, a := range args {
		if s, ok := a.(string); ok {
			r.logs = append(r.logs, s)
		}
	}
}
