package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Listener types.
const (
	TypeSlack    = "slack"
	TypeTelegram = "telegram"
	TypeNtfy     = "ntfy"
)

// Delivery modes.
const (
	ModeSingle   = "single"
	ModeThreaded = "threaded"
)

// ConsoleListener is the reserved name of the local summary listener.
const ConsoleListener = "console"

// DefaultNtfyServer is used when an ntfy listener has no server.
const DefaultNtfyServer = "https://ntfy.sh"

// Config holds all configuration for go-test-notify
type Config struct {
	// Report settings
	Title      string `yaml:"title" env:"GO_TEST_NOTIFY_TITLE"`
	Project    string `yaml:"project"`
	Annotation string `yaml:"annotation" env:"GO_TEST_NOTIFY_ANNOTATION"`

	// Delivery settings
	ChunkSize       int             `yaml:"chunk_size" env:"GO_TEST_NOTIFY_CHUNK_SIZE"`
	Workers         int             `yaml:"workers" env:"GO_TEST_NOTIFY_WORKERS"`
	Mode            string          `yaml:"mode" env:"GO_TEST_NOTIFY_MODE"`
	DeliveryTimeout time.Duration   `yaml:"delivery_timeout"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`

	// Behavior flags
	Quiet    bool   `yaml:"quiet" env:"GO_TEST_NOTIFY_QUIET"`
	LogLevel string `yaml:"log_level" env:"GO_TEST_NOTIFY_LOG_LEVEL"`

	Listeners []ListenerConfig `yaml:"listeners"`
	Marks     []Mark           `yaml:"marks"`
}

// ListenerConfig describes one delivery target.
type ListenerConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
	Server  string `yaml:"server"`
	// Mode overrides Config.Mode for this listener.
	Mode string `yaml:"mode"`
	// Annotation overrides Config.Annotation for this listener.
	Annotation string `yaml:"annotation"`
	// APIURL overrides the service endpoint (tests, self-hosted proxies).
	APIURL string `yaml:"api_url"`
}

// Mark attaches listeners to every test whose name matches Pattern.
// An empty Listeners list means all configured listeners.
type Mark struct {
	Pattern   string         `yaml:"pattern"`
	Listeners []string       `yaml:"listeners"`
	compiled  *regexp.Regexp `yaml:"-"`
}

// CompiledRegex returns the compiled regular expression
func (m *Mark) CompiledRegex() *regexp.Regexp {
	return m.compiled
}

// SetCompiledRegex sets the compiled regular expression
func (m *Mark) SetCompiledRegex(re *regexp.Regexp) {
	m.compiled = re
}

// RateLimitConfig holds per-listener rate limiting configuration
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Title:           "Test report result",
		ChunkSize:       10,
		Mode:            ModeThreaded,
		DeliveryTimeout: 2 * time.Minute,
		RateLimit: RateLimitConfig{
			PerSecond: 1,
			Burst:     3,
		},
		LogLevel: "info",
	}
}

// Load loads configuration from file and environment. path overrides the
// config file lookup when non-empty.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	configPath := path
	if configPath == "" {
		configPath = getConfigPath()
	}
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			if path != "" || !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	// Override with environment variables
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	applyDefaults(cfg)

	// Compile mark patterns
	if err := compileMarks(cfg); err != nil {
		return nil, fmt.Errorf("failed to compile marks: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// getConfigPath returns the config file path. Precedence: $GO_TEST_NOTIFY_CONFIG,
// ./.go-test-notify.yaml, $XDG_CONFIG_HOME/go-test-notify/config.yaml,
// ~/.config/go-test-notify/config.yaml.
func getConfigPath() string {
	// Check for explicit config path
	if path := os.Getenv("GO_TEST_NOTIFY_CONFIG"); path != "" {
		return path
	}

	// A project-local file wins over the user config
	if _, err := os.Stat(".go-test-notify.yaml"); err == nil {
		return ".go-test-notify.yaml"
	}

	// Check XDG config directory
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "go-test-notify", "config.yaml")
	}

	// Fall back to home directory
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "go-test-notify", "config.yaml")
	}

	return ""
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, path string) error {
	// #nosec G304 - The config file path comes from trusted sources (flag, env var or standard locations)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(cfg *Config) error {
	if title := os.Getenv("GO_TEST_NOTIFY_TITLE"); title != "" {
		cfg.Title = title
	}

	if annotation := os.Getenv("GO_TEST_NOTIFY_ANNOTATION"); annotation != "" {
		cfg.Annotation = annotation
	}

	if mode := os.Getenv("GO_TEST_NOTIFY_MODE"); mode != "" {
		cfg.Mode = mode
	}

	if size := os.Getenv("GO_TEST_NOTIFY_CHUNK_SIZE"); size != "" {
		n, err := strconv.Atoi(size)
		if err != nil {
			return fmt.Errorf("invalid GO_TEST_NOTIFY_CHUNK_SIZE: %w", err)
		}
		cfg.ChunkSize = n
	}

	if workers := os.Getenv("GO_TEST_NOTIFY_WORKERS"); workers != "" {
		n, err := strconv.Atoi(workers)
		if err != nil {
			return fmt.Errorf("invalid GO_TEST_NOTIFY_WORKERS: %w", err)
		}
		cfg.Workers = n
	}

	if quiet := os.Getenv("GO_TEST_NOTIFY_QUIET"); quiet != "" {
		switch quiet {
		case "true", "1", "yes":
			cfg.Quiet = true
		case "false", "0", "no":
			cfg.Quiet = false
		default:
			return fmt.Errorf("invalid GO_TEST_NOTIFY_QUIET value: %q (use true/false)", quiet)
		}
	}

	if level := os.Getenv("GO_TEST_NOTIFY_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if os.Getenv("GO_TEST_NOTIFY_DEBUG") == "1" {
		cfg.LogLevel = "debug"
	}

	applyListenerEnv(cfg, TypeSlack, os.Getenv("GO_TEST_NOTIFY_SLACK_TOKEN"), os.Getenv("GO_TEST_NOTIFY_SLACK_CHANNEL"), "")
	applyListenerEnv(cfg, TypeTelegram, os.Getenv("GO_TEST_NOTIFY_TELEGRAM_TOKEN"), os.Getenv("GO_TEST_NOTIFY_TELEGRAM_CHAT"), "")
	applyListenerEnv(cfg, TypeNtfy, "", os.Getenv("GO_TEST_NOTIFY_NTFY_TOPIC"), os.Getenv("GO_TEST_NOTIFY_NTFY_SERVER"))

	return nil
}

// applyListenerEnv completes the first listener of the given type with the
// non-empty values, creating it when the file configured none.
func applyListenerEnv(cfg *Config, typ, token, channel, server string) {
	if token == "" && channel == "" && server == "" {
		return
	}

	idx := -1
	for i := range cfg.Listeners {
		if cfg.Listeners[i].Type == typ {
			idx = i
			break
		}
	}
	if idx < 0 {
		cfg.Listeners = append(cfg.Listeners, ListenerConfig{Name: typ, Type: typ})
		idx = len(cfg.Listeners) - 1
	}

	l := &cfg.Listeners[idx]
	if token != "" {
		l.Token = token
	}
	if channel != "" {
		l.Channel = channel
	}
	if server != "" {
		l.Server = server
	}
}

// applyDefaults fills per-listener values inherited from the top level
func applyDefaults(cfg *Config) {
	for i := range cfg.Listeners {
		l := &cfg.Listeners[i]
		if l.Name == "" {
			l.Name = l.Type
		}
		if l.Mode == "" {
			l.Mode = cfg.Mode
		}
		if l.Annotation == "" {
			l.Annotation = cfg.Annotation
		}
		if l.Type == TypeNtfy && l.Server == "" {
			l.Server = DefaultNtfyServer
		}
	}
}

// compileMarks compiles all mark patterns
func compileMarks(cfg *Config) error {
	for i := range cfg.Marks {
		mark := &cfg.Marks[i]
		re, err := regexp.Compile(mark.Pattern)
		if err != nil {
			return fmt.Errorf("%w: failed to compile mark %q: %v", ErrInvalid, mark.Pattern, err)
		}
		mark.SetCompiledRegex(re)
	}
	return nil
}

// Validate validates the configuration
func Validate(cfg *Config) error {
	if cfg.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive", ErrInvalid)
	}

	if cfg.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative", ErrInvalid)
	}

	if cfg.DeliveryTimeout < 0 {
		return fmt.Errorf("%w: delivery_timeout must be non-negative", ErrInvalid)
	}

	if cfg.RateLimit.PerSecond < 0 || cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("%w: rate_limit values must be non-negative", ErrInvalid)
	}

	if err := validateMode(cfg.Mode); err != nil {
		return err
	}

	names := map[string]bool{ConsoleListener: true}
	for _, l := range cfg.Listeners {
		if err := validateListener(l); err != nil {
			return err
		}
		if names[l.Name] {
			return fmt.Errorf("%w: duplicate listener name %q", ErrInvalid, l.Name)
		}
		names[l.Name] = true
	}

	for _, m := range cfg.Marks {
		if m.Pattern == "" {
			return fmt.Errorf("%w: mark pattern is required", ErrInvalid)
		}
		for _, name := range m.Listeners {
			if !names[name] {
				return fmt.Errorf("%w: mark %q references unknown listener %q", ErrInvalid, m.Pattern, name)
			}
		}
	}

	return nil
}

func validateMode(mode string) error {
	switch mode {
	case "", ModeSingle, ModeThreaded:
		return nil
	default:
		return fmt.Errorf("%w: unknown mode %q (use %s or %s)", ErrInvalid, mode, ModeSingle, ModeThreaded)
	}
}

func validateListener(l ListenerConfig) error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("%w: listener name is required", ErrInvalid)
	}

	switch l.Type {
	case TypeSlack, TypeTelegram:
		if l.Token == "" {
			return fmt.Errorf("%w: listener %q: token is required", ErrInvalid, l.Name)
		}
		if l.Channel == "" {
			return fmt.Errorf("%w: listener %q: channel is required", ErrInvalid, l.Name)
		}
	case TypeNtfy:
		if l.Channel == "" {
			return fmt.Errorf("%w: listener %q: channel (topic) is required", ErrInvalid, l.Name)
		}
	default:
		return fmt.Errorf("%w: listener %q: unknown type %q", ErrInvalid, l.Name, l.Type)
	}

	return validateMode(l.Mode)
}
