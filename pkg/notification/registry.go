package notification

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/Veraticus/go-test-notify/pkg/channel"
	"github.com/Veraticus/go-test-notify/pkg/config"
	"github.com/Veraticus/go-test-notify/pkg/interfaces"
	"github.com/Veraticus/go-test-notify/pkg/report"
)

// ClientFactory creates the chat client for a configured listener.
type ClientFactory func(lc config.ListenerConfig) (channel.Client, error)

// DefaultClientFactory builds the Slack, Telegram and ntfy clients.
func DefaultClientFactory(lc config.ListenerConfig) (channel.Client, error) {
	switch lc.Type {
	case config.TypeSlack:
		return channel.NewSlack(lc.Token, lc.APIURL)
	case config.TypeTelegram:
		return channel.NewTelegram(lc.Token, lc.APIURL)
	case config.TypeNtfy:
		server := lc.Server
		if lc.APIURL != "" {
			server = lc.APIURL
		}
		return channel.NewNtfyClient(server), nil
	default:
		return nil, fmt.Errorf("unknown listener type %q", lc.Type)
	}
}

// Registry owns the listeners of a run and resolves marker names to them.
type Registry struct {
	log       zerolog.Logger
	listeners map[string]report.Listener
	order     []string
	console   report.Listener
}

// RegistryOptions are the non-config inputs of a Registry.
type RegistryOptions struct {
	Reporter interfaces.StatusReporter
	// Console receives the local summary; nil disables it.
	Console io.Writer
	Factory ClientFactory
}

// NewRegistry builds one listener per configured listener. Every chat client
// is wrapped in its own RateLimitedClient.
func NewRegistry(cfg *config.Config, log zerolog.Logger, opts RegistryOptions) (*Registry, error) {
	if opts.Factory == nil {
		opts.Factory = DefaultClientFactory
	}

	project := cfg.Project
	if project == "" {
		project = ProjectName()
	}
	title := NewTitleFunc(cfg.Title, project)

	r := &Registry{
		log:       log,
		listeners: make(map[string]report.Listener),
	}

	for _, lc := range cfg.Listeners {
		client, err := opts.Factory(lc)
		if err != nil {
			return nil, fmt.Errorf("failed to create listener %q: %w", lc.Name, err)
		}
		limited := NewRateLimitedClient(client, NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst), lc.Type)

		d := NewDeliverer(lc.Name, limited, lc.Channel, DeliveryOptions{
			Mode:      Mode(lc.Mode),
			ChunkSize: cfg.ChunkSize,
			Workers:   cfg.Workers,
		}, log)
		if opts.Reporter != nil {
			d.SetStatusReporter(opts.Reporter)
		}

		r.listeners[lc.Name] = NewChannelListener(lc.Name, d, Formatter{Annotation: lc.Annotation}, title)
		r.order = append(r.order, lc.Name)
	}

	if opts.Console != nil && !cfg.Quiet {
		r.console = NewConsoleListener(opts.Console, Formatter{Annotation: cfg.Annotation}, title)
	}

	log.Debug().Strs("listeners", r.order).Bool("console", r.console != nil).Msg("listeners configured")
	return r, nil
}

// Lookup resolves listener names. Unknown names are logged and ignored. The
// console listener, when enabled, is always included.
func (r *Registry) Lookup(names ...string) []report.Listener {
	out := make([]report.Listener, 0, len(names)+1)
	for _, name := range names {
		if name == config.ConsoleListener {
			continue
		}
		l, ok := r.listeners[name]
		if !ok {
			r.log.Warn().Str("listener", name).Msg("unknown listener in mark")
			continue
		}
		out = append(out, l)
	}
	if r.console != nil {
		out = append(out, r.console)
	}
	return out
}

// Default returns every configured listener, used for marks naming none.
func (r *Registry) Default() []report.Listener {
	return r.Lookup(r.order...)
}

// Resolve is Lookup, falling back to Default for an empty name list.
func (r *Registry) Resolve(names []string) []report.Listener {
	if len(names) == 0 {
		return r.Default()
	}
	return r.Lookup(names...)
}

// Len returns the number of configured chat listeners.
func (r *Registry) Len() int {
	return len(r.order)
}
