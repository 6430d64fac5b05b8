package process

import (
	"bytes"
	"io"
	"os"
	"runtime"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipUnlessUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" || os.Getenv("CI") == "true" {
		t.Skip("process tests require Unix environment")
	}
}

func TestRunners_StartAndWait(t *testing.T) {
	skipUnlessUnix(t)

	runners := map[string]func() Runner{
		"pty":  func() Runner { return NewPTYRunner(zerolog.Nop()) },
		"pipe": func() Runner { return NewPipeRunner() },
	}

	for name, newRunner := range runners {
		t.Run(name, func(t *testing.T) {
			r := newRunner()
			require.NoError(t, r.Start("echo", []string{"hello world"}, os.Environ()))

			out, err := io.ReadAll(r.Output())
			require.NoError(t, err)
			require.NoError(t, r.Wait())
			require.NoError(t, r.Close())

			assert.Contains(t, string(out), "hello world")
			assert.Equal(t, 0, r.ExitCode())
		})
	}
}

func TestRunners_ExitCode(t *testing.T) {
	skipUnlessUnix(t)

	runners := map[string]func() Runner{
		"pty":  func() Runner { return NewPTYRunner(zerolog.Nop()) },
		"pipe": func() Runner { return NewPipeRunner() },
	}

	for name, newRunner := range runners {
		t.Run(name, func(t *testing.T) {
			r := newRunner()
			require.NoError(t, r.Start("sh", []string{"-c", "exit 3"}, os.Environ()))

			_, _ = io.Copy(io.Discard, r.Output())
			require.Error(t, r.Wait())
			assert.Equal(t, 3, r.ExitCode())
			require.NoError(t, r.Close())
		})
	}
}

func TestRunners_StartErrors(t *testing.T) {
	tests := []struct {
		name    string
		runner  Runner
		command string
	}{
		{name: "pty nonexistent command", runner: NewPTYRunner(zerolog.Nop()), command: "/nonexistent/command"},
		{name: "pipe nonexistent command", runner: NewPipeRunner(), command: "/nonexistent/command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.runner.Start(tt.command, nil, os.Environ()))
		})
	}
}

func TestRunners_DoubleStart(t *testing.T) {
	skipUnlessUnix(t)

	r := NewPipeRunner()
	require.NoError(t, r.Start("true", nil, os.Environ()))
	err := r.Start("true", nil, os.Environ())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")

	_, _ = io.Copy(io.Discard, r.Output())
	require.NoError(t, r.Wait())
	require.NoError(t, r.Close())
}

func TestRunners_WaitWithoutStart(t *testing.T) {
	require.Error(t, NewPTYRunner(zerolog.Nop()).Wait())
	require.Error(t, NewPipeRunner().Wait())
	assert.Equal(t, -1, NewPipeRunner().ExitCode())
	assert.ErrorIs(t, NewPipeRunner().Signal(os.Interrupt), os.ErrProcessDone)
}

func TestPipeRunner_CombinesStreams(t *testing.T) {
	skipUnlessUnix(t)

	r := NewPipeRunner()
	require.NoError(t, r.Start("sh", []string{"-c", "echo out; echo err 1>&2"}, os.Environ()))

	var buf bytes.Buffer
	_, err := io.Copy(&buf, r.Output())
	require.NoError(t, err)
	require.NoError(t, r.Wait())
	require.NoError(t, r.Close())

	lines := strings.Fields(buf.String())
	assert.ElementsMatch(t, []string{"out", "err"}, lines)
}
