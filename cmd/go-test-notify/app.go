package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/Veraticus/go-test-notify/pkg/config"
	"github.com/Veraticus/go-test-notify/pkg/interfaces"
	"github.com/Veraticus/go-test-notify/pkg/monitor"
	"github.com/Veraticus/go-test-notify/pkg/notification"
	"github.com/Veraticus/go-test-notify/pkg/process"
	"github.com/Veraticus/go-test-notify/pkg/report"
	"github.com/Veraticus/go-test-notify/pkg/status"
)

// Options are the command line switches that shape the dependencies
type Options struct {
	UsePTY  bool
	RawJSON bool
}

// Dependencies holds all the dependencies for the application
type Dependencies struct {
	Config          *config.Config
	Log             zerolog.Logger
	RunID           string
	Aggregator      *report.Aggregator
	Registry        *notification.Registry
	Matcher         *monitor.MarkMatcher
	Printer         *monitor.Printer
	Monitor         *monitor.EventMonitor
	Runner          process.Runner
	ProcessManager  *process.Manager
	StatusIndicator *status.Indicator
	StatusReporter  *status.Reporter
}

// NewDependencies creates all dependencies with the given configuration
func NewDependencies(cfg *config.Config, opts Options, stdout, stderr io.Writer, log zerolog.Logger) (*Dependencies, error) {
	runID := uuid.NewString()
	log = log.With().Str("run", runID).Logger()

	deps := &Dependencies{
		Config: cfg,
		Log:    log,
		RunID:  runID,
	}

	// The delivery status line only makes sense on an interactive terminal.
	statusEnabled := isTerminal(stderr) && len(cfg.Listeners) > 0
	deps.StatusIndicator = status.NewIndicator(stderr, statusEnabled)
	deps.StatusReporter = status.NewReporter(deps.StatusIndicator)

	registry, err := notification.NewRegistry(cfg, log, notification.RegistryOptions{
		Reporter: deps.StatusReporter,
		Console:  stdout,
	})
	if err != nil {
		return nil, err
	}
	deps.Registry = registry

	deps.Aggregator = report.NewAggregator(log)
	deps.Matcher = monitor.NewMarkMatcher(cfg.Marks)
	deps.Printer = monitor.NewPrinter(stdout, opts.RawJSON)
	deps.Monitor = monitor.NewEventMonitor(deps.Aggregator, deps.Registry, deps.Matcher, deps.Printer, log)

	if opts.UsePTY {
		deps.Runner = process.NewPTYRunner(log)
	} else {
		deps.Runner = process.NewPipeRunner()
	}
	// The printer renders the stream, so raw output is not copied to stdout.
	deps.ProcessManager = process.NewManager(deps.Runner, deps.Monitor, nil, log)

	return deps, nil
}

// Close cleans up all dependencies
func (d *Dependencies) Close() {
	if d.StatusIndicator != nil {
		_ = d.StatusIndicator.Done() // Best effort
	}
}

// Application represents the main application
type Application struct {
	deps *Dependencies
}

// NewApplication creates a new application with the given dependencies
func NewApplication(deps *Dependencies) *Application {
	return &Application{
		deps: deps,
	}
}

// Run reads the test stream from stdin, or from command when one is given,
// then delivers the reports. The returned exit code never depends on
// delivery.
func (a *Application) Run(command []string, stdin io.Reader) (int, error) {
	if len(command) == 0 {
		return a.runStdin(stdin)
	}
	return a.runCommand(command)
}

func (a *Application) runStdin(stdin io.Reader) (int, error) {
	a.deps.Log.Debug().Msg("reading test events from stdin")

	readErr := feed(stdin, a.deps.Monitor)
	a.finish()

	if readErr != nil {
		return exitFailed, fmt.Errorf("failed to read stdin: %w", readErr)
	}
	if a.deps.Monitor.Failed() {
		return exitFailed, nil
	}
	return 0, nil
}

func (a *Application) runCommand(command []string) (int, error) {
	command = withJSON(command)

	if err := a.deps.ProcessManager.Start(command[0], command[1:]); err != nil {
		if errors.Is(err, process.ErrAlreadyWrapped) {
			return exitUsage, err
		}
		return exitFailed, err
	}

	waitErr := a.deps.ProcessManager.Wait()
	a.finish()

	if waitErr != nil {
		return exitFailed, waitErr
	}
	return a.deps.ProcessManager.ExitCode(), nil
}

// finish ends the run and waits for every listener to deliver.
func (a *Application) finish() {
	timeout := a.deps.Config.DeliveryTimeout
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	a.deps.Monitor.Close(ctx)
}

// feed hands everything read from r to the monitor.
func feed(r io.Reader, h interfaces.DataHandler) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.HandleData(append([]byte(nil), buf[:n]...))
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// withJSON adds -json to a `go test` command that lacks it.
func withJSON(command []string) []string {
	if len(command) < 2 || filepath.Base(command[0]) != "go" || command[1] != "test" {
		return command
	}
	for _, arg := range command[2:] {
		if arg == "--" || arg == "-args" {
			break
		}
		if arg == "-json" || arg == "--json" || arg == "-json=true" {
			return command
		}
	}
	out := make([]string, 0, len(command)+1)
	out = append(out, command[:2]...)
	out = append(out, "-json")
	return append(out, command[2:]...)
}

// passthrough runs without notifications: stdin is copied to stdout, or the
// command runs with its output copied to stdout.
func passthrough(command []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(command) == 0 {
		if _, err := io.Copy(stdout, stdin); err != nil {
			fmt.Fprintf(stderr, "go-test-notify: %v\n", err)
			return exitFailed
		}
		return 0
	}

	m := process.NewManager(process.NewPipeRunner(), nil, stdout, zerolog.Nop())
	if err := m.Start(command[0], command[1:]); err != nil {
		fmt.Fprintf(stderr, "go-test-notify: %v\n", err)
		return exitFailed
	}
	if err := m.Wait(); err != nil {
		fmt.Fprintf(stderr, "go-test-notify: %v\n", err)
		return exitFailed
	}
	return m.ExitCode()
}

// isTerminal reports whether w is a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
