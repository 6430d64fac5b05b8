package testutil

import (
	"errors"
	"io"
	"os"
	"sync"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/go-test-notify/pkg/channel"
	"github.com/Veraticus/go-test-notify/pkg/report"
)

func TestMockClient(t *testing.T) {
	t.Run("successful posts get sequential ids", func(t *testing.T) {
		mock := NewMockClient()

		id1, err := mock.Post(t.Context(), "#ci", channel.Message{Title: "one"})
		require.NoError(t, err)
		id2, err := mock.Post(t.Context(), "#ci", channel.Message{Title: "two"})
		require.NoError(t, err)

		assert.Equal(t, "1", id1)
		assert.Equal(t, "2", id2)
		assert.Len(t, mock.GetPosts(), 2)
		assert.Len(t, mock.GetAttempts(), 2)
	})

	t.Run("post with error", func(t *testing.T) {
		mock := NewMockClient()
		mockErr := errors.New("test error")
		mock.SetError(mockErr)

		_, err := mock.Post(t.Context(), "#ci", channel.Message{})
		require.ErrorIs(t, err, mockErr)

		var derr *channel.DeliveryError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "#ci", derr.Channel)
		assert.Empty(t, mock.GetPosts())
		assert.Len(t, mock.GetAttempts(), 1)
	})

	t.Run("selective error", func(t *testing.T) {
		mock := NewMockClient()
		mock.SetErrorWhen(errors.New("boom"), func(m channel.Message) bool { return m.ThreadID != "" })

		_, err := mock.Post(t.Context(), "#ci", channel.Message{})
		require.NoError(t, err)
		_, err = mock.Post(t.Context(), "#ci", channel.Message{ThreadID: "1"})
		require.Error(t, err)
	})

	t.Run("panic", func(t *testing.T) {
		mock := NewMockClient()
		mock.SetPanic("kaboom")

		assert.PanicsWithValue(t, "kaboom", func() {
			_, _ = mock.Post(t.Context(), "#ci", channel.Message{})
		})
		assert.Len(t, mock.GetAttempts(), 1)
	})

	t.Run("concurrent posts", func(t *testing.T) {
		mock := NewMockClient()

		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = mock.Post(t.Context(), "#ci", channel.Message{})
			}()
		}
		wg.Wait()

		assert.Len(t, mock.GetPosts(), 20)
		assert.GreaterOrEqual(t, mock.GetMaxInFlight(), 1)
	})
}

func TestMockListener(t *testing.T) {
	var events []string
	mock := NewMockListener()
	mock.Record("a", &events)
	mock.SetFinishError(errors.New("finish failed"))

	mock.Update("pkg.TestA", []report.OutcomeRecord{report.Passed("TestA")})
	err := mock.Finish(t.Context())

	require.Error(t, err)
	assert.Equal(t, 1, mock.GetFinishCount())
	require.Len(t, mock.GetUpdates(), 1)
	assert.Equal(t, report.TestName("pkg.TestA"), mock.GetUpdates()[0].Name)
	assert.Equal(t, []string{"a:update:pkg.TestA", "a:finish"}, events)
}

func TestMockObserver(t *testing.T) {
	mock := NewMockObserver()
	l := NewMockListener()

	mock.OnTestStart("pkg.TestA", l)
	mock.OnResult("pkg.TestA", report.Failed("TestA", "boom"))
	mock.OnRunFinish(t.Context())

	require.Len(t, mock.GetStarted(), 1)
	assert.Equal(t, []report.Listener{l}, mock.GetStarted()[0].Listeners)
	require.Len(t, mock.GetResults(), 1)
	assert.Equal(t, "boom", mock.GetResults()[0].Record.Message)
	assert.Equal(t, 1, mock.GetFinishedCount())
}

func TestMockRateLimiter(t *testing.T) {
	mock := NewMockRateLimiter()
	require.NoError(t, mock.Wait(t.Context()))

	mock.SetWaitError(errors.New("limited"))
	require.Error(t, mock.Wait(t.Context()))
	assert.Equal(t, 2, mock.GetWaitCount())
}

func TestMockStatusReporter(t *testing.T) {
	mock := NewMockStatusReporter()
	mock.ReportSending("slack")
	mock.ReportSuccess("slack")
	mock.ReportFailure("ntfy")

	assert.Equal(t, []string{"sending:slack", "success:slack", "failure:ntfy"}, mock.GetEvents())
}

func TestMockRunner(t *testing.T) {
	mock := NewMockRunner("hello\n")
	mock.SetExitCode(3)

	require.NoError(t, mock.Start("go", []string{"test"}, []string{"A=1"}))
	assert.True(t, mock.IsStarted())
	assert.Equal(t, []string{"A=1"}, mock.GetEnv())

	out, err := io.ReadAll(mock.Output())
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))

	require.NoError(t, mock.Signal(syscall.SIGINT))
	assert.Equal(t, []os.Signal{syscall.SIGINT}, mock.GetSignals())

	require.NoError(t, mock.Wait())
	assert.Equal(t, 3, mock.ExitCode())
	require.NoError(t, mock.Close())
	assert.True(t, mock.IsClosed())

	failing := NewMockRunner("")
	failing.SetStartError(errors.New("no such command"))
	require.Error(t, failing.Start("nope", nil, nil))
	assert.False(t, failing.IsStarted())
}

func TestMockDataHandler(t *testing.T) {
	mock := NewMockDataHandler()
	mock.HandleData([]byte("ab"))
	mock.HandleData([]byte("c"))
	mock.HandleLine("line")

	assert.Equal(t, "abc", mock.GetData())
	assert.Equal(t, []string{"line"}, mock.GetLines())
}
