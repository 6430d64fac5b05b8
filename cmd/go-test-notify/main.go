package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/Veraticus/go-test-notify/pkg/config"
	"github.com/Veraticus/go-test-notify/pkg/logging"
)

// Exit codes used by go-test-notify itself. A wrapped command's own exit
// code is passed through unchanged.
const (
	exitUsage  = 2
	exitFailed = 1
)

// options holds the parsed command line
type options struct {
	notify     bool
	configPath string
	usePTY     bool
	rawJSON    bool
	quiet      bool
	logLevel   string
	help       bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes go-test-notify and returns the process exit code
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs, opts := newFlagSet(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return exitUsage
	}
	command := fs.Args()

	if opts.help {
		printUsage(fs, stdout)
		return 0
	}

	if !opts.notify {
		return passthrough(command, stdin, stdout, stderr)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "go-test-notify: error loading config: %v\n", err)
		return exitUsage
	}
	if opts.quiet {
		cfg.Quiet = true
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}

	log, err := logging.New(stderr, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "go-test-notify: %v\n", err)
		return exitUsage
	}

	deps, err := NewDependencies(cfg, Options{UsePTY: opts.usePTY, RawJSON: opts.rawJSON}, stdout, stderr, log)
	if err != nil {
		fmt.Fprintf(stderr, "go-test-notify: error creating dependencies: %v\n", err)
		return exitUsage
	}
	defer deps.Close()

	app := NewApplication(deps)
	code, err := app.Run(command, stdin)
	if err != nil {
		deps.Log.Error().Err(err).Msg("run failed")
		if code == 0 {
			code = exitFailed
		}
	}
	return code
}

func newFlagSet(stderr io.Writer) (*flag.FlagSet, *options) {
	opts := &options{}
	fs := flag.NewFlagSet("go-test-notify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	// Everything from the first non-flag argument on is the test command.
	fs.SetInterspersed(false)

	fs.BoolVar(&opts.notify, "notify", false, "Report marked tests to the configured listeners")
	fs.StringVar(&opts.configPath, "config", "", "Path to config file")
	fs.BoolVar(&opts.usePTY, "pty", false, "Run the test command on a pseudo-terminal")
	fs.BoolVar(&opts.rawJSON, "json", false, "Print the raw test2json stream instead of test output")
	fs.BoolVar(&opts.quiet, "quiet", false, "Do not print the report summary to the terminal")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	fs.BoolVarP(&opts.help, "help", "h", false, "Show help message")

	fs.Usage = func() { printUsage(fs, stderr) }
	return fs, opts
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "go-test-notify - send Go test results to chat channels")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  go test -json ./... | go-test-notify --notify")
	fmt.Fprintln(w, "  go-test-notify --notify [OPTIONS] -- go test ./...")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprint(w, fs.FlagUsages())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Mark a test for notification with notify.Mark(t, \"<listener>\")")
	fmt.Fprintln(w, "or with a `marks` entry in the config file.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment Variables:")
	fmt.Fprintln(w, "  GO_TEST_NOTIFY_CONFIG          Path to config file")
	fmt.Fprintln(w, "  GO_TEST_NOTIFY_CHUNK_SIZE      Failures per threaded reply (default: 10)")
	fmt.Fprintln(w, "  GO_TEST_NOTIFY_ANNOTATION      Text added to failed or skipped tests")
	fmt.Fprintln(w, "  GO_TEST_NOTIFY_SLACK_TOKEN     Slack bot token")
	fmt.Fprintln(w, "  GO_TEST_NOTIFY_SLACK_CHANNEL   Slack channel")
	fmt.Fprintln(w, "  GO_TEST_NOTIFY_TELEGRAM_TOKEN  Telegram bot token")
	fmt.Fprintln(w, "  GO_TEST_NOTIFY_TELEGRAM_CHAT   Telegram chat id")
	fmt.Fprintln(w, "  GO_TEST_NOTIFY_NTFY_TOPIC      ntfy topic")
	fmt.Fprintln(w, "  GO_TEST_NOTIFY_NTFY_SERVER     ntfy server (default: https://ntfy.sh)")
	fmt.Fprintln(w, "  GO_TEST_NOTIFY_DEBUG           Set to 1 for debug logging")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Configuration file (first found): $GO_TEST_NOTIFY_CONFIG, ./.go-test-notify.yaml,")
	fmt.Fprintln(w, "  $XDG_CONFIG_HOME/go-test-notify/config.yaml, ~/.config/go-test-notify/config.yaml")
}
