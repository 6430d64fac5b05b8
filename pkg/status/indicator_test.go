package status

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndicator_Draw(t *testing.T) {
	tests := []struct {
		name    string
		updates []struct {
			listener string
			status   Status
		}
		want string
	}{
		{
			name: "sending",
			updates: []struct {
				listener string
				status   Status
			}{{"slack", StatusSending}},
			want: "notify: ⟳ slack",
		},
		{
			name: "mixed results keep first-seen order",
			updates: []struct {
				listener string
				status   Status
			}{{"slack", StatusSending}, {"ntfy", StatusFailed}, {"slack", StatusSuccess}},
			want: "notify: ✓ slack ✗ ntfy",
		},
		{
			name: "idle listeners are hidden",
			updates: []struct {
				listener string
				status   Status
			}{{"slack", StatusIdle}},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			indicator := NewIndicator(buf, true)
			for _, u := range tt.updates {
				indicator.SetStatus(u.listener, u.status)
			}

			frames := strings.Split(buf.String(), "\r\033[2K")
			assert.Equal(t, tt.want, frames[len(frames)-1])
		})
	}
}

func TestIndicator_Disabled(t *testing.T) {
	buf := &bytes.Buffer{}
	indicator := NewIndicator(buf, false)

	indicator.SetStatus("slack", StatusSending)
	require.NoError(t, indicator.Done())

	assert.Empty(t, buf.String())
	assert.Equal(t, StatusSending, indicator.GetStatus("slack"))
}

func TestIndicator_Done(t *testing.T) {
	buf := &bytes.Buffer{}
	indicator := NewIndicator(buf, true)

	require.NoError(t, indicator.Done())
	assert.Empty(t, buf.String())

	indicator.SetStatus("slack", StatusSuccess)
	require.NoError(t, indicator.Done())
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))

	// A second Done after the line ended writes nothing.
	n := buf.Len()
	require.NoError(t, indicator.Done())
	assert.Equal(t, n, buf.Len())
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "idle", StatusIdle.String())
	assert.Equal(t, "sending", StatusSending.String())
	assert.Equal(t, "success", StatusSuccess.String())
	assert.Equal(t, "failed", StatusFailed.String())
}
