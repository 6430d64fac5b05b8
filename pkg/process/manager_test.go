package process

import (
	"bytes"
	"errors"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/go-test-notify/pkg/testutil"
)

func TestManager_Start(t *testing.T) {
	tests := []struct {
		name      string
		wrapped   string
		startErr  error
		wantErr   error
		wantStart bool
	}{
		{
			name:      "successful start",
			wantStart: true,
		},
		{
			name:    "self-wrap detection",
			wrapped: "1",
			wantErr: ErrAlreadyWrapped,
		},
		{
			name:     "runner start error",
			startErr: errors.New("exec: not found"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(WrappedEnv, tt.wrapped)

			runner := testutil.NewMockRunner("")
			if tt.startErr != nil {
				runner.SetStartError(tt.startErr)
			}
			m := NewManager(runner, nil, nil, zerolog.Nop())

			err := m.Start("go", []string{"test", "./..."})
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.startErr != nil:
				require.ErrorIs(t, err, tt.startErr)
			default:
				require.NoError(t, err)
				require.NoError(t, m.Wait())
			}
			assert.Equal(t, tt.wantStart, runner.IsStarted())
		})
	}
}

func TestManager_SetsWrappedEnv(t *testing.T) {
	t.Setenv(WrappedEnv, "")

	runner := testutil.NewMockRunner("")
	m := NewManager(runner, nil, nil, zerolog.Nop())
	require.NoError(t, m.Start("go", nil))
	require.NoError(t, m.Wait())

	assert.Contains(t, runner.GetEnv(), WrappedEnv+"=1")
}

func TestManager_StreamsOutput(t *testing.T) {
	t.Setenv(WrappedEnv, "")

	output := `{"Action":"run","Test":"TestA"}` + "\n" + `{"Action":"pass","Test":"TestA"}` + "\n"
	runner := testutil.NewMockRunner(output)
	handler := testutil.NewMockDataHandler()
	var stdout bytes.Buffer

	m := NewManager(runner, handler, &stdout, zerolog.Nop())
	require.NoError(t, m.Start("go", []string{"test", "-json"}))
	require.NoError(t, m.Wait())

	assert.Equal(t, output, stdout.String())
	assert.Equal(t, output, handler.GetData())
	assert.True(t, runner.IsClosed())
}

func TestManager_Wait(t *testing.T) {
	tests := []struct {
		name     string
		exitCode int
		waitErr  error
		wantCode int
		wantErr  bool
	}{
		{
			name:     "successful exit",
			exitCode: 0,
			wantCode: 0,
		},
		{
			name:     "failing tests are not an error",
			exitCode: 1,
			waitErr:  &exec.ExitError{},
			wantCode: 1,
		},
		{
			name:     "killed by signal",
			exitCode: -1,
			waitErr:  &exec.ExitError{},
			wantCode: 1,
		},
		{
			name:     "wait failure",
			exitCode: 0,
			waitErr:  errors.New("wait: no child processes"),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(WrappedEnv, "")

			runner := testutil.NewMockRunner("")
			runner.SetExitCode(tt.exitCode)
			runner.SetWaitError(tt.waitErr)

			m := NewManager(runner, nil, nil, zerolog.Nop())
			require.NoError(t, m.Start("go", nil))

			err := m.Wait()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCode, m.ExitCode())
		})
	}
}

func TestManager_WaitWithoutStart(t *testing.T) {
	m := NewManager(testutil.NewMockRunner(""), nil, nil, zerolog.Nop())
	require.Error(t, m.Wait())
}

func TestManager_SignalForwarding(t *testing.T) {
	t.Setenv(WrappedEnv, "")

	runner := testutil.NewMockRunner("")
	m := NewManager(runner, nil, nil, zerolog.Nop())
	require.NoError(t, m.Start("go", nil))

	m.sigChan <- syscall.SIGINT

	require.Eventually(t, func() bool {
		return len(runner.GetSignals()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, syscall.SIGINT, runner.GetSignals()[0])

	require.NoError(t, m.Wait())
}
