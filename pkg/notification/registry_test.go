package notification

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/go-test-notify/pkg/channel"
	"github.com/Veraticus/go-test-notify/pkg/config"
	"github.com/Veraticus/go-test-notify/pkg/report"
	"github.com/Veraticus/go-test-notify/pkg/testutil"
)

func registryConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Project = "shop"
	cfg.RateLimit = config.RateLimitConfig{}
	cfg.Listeners = []config.ListenerConfig{
		{Name: "team", Type: config.TypeSlack, Token: "x", Channel: "#ci", Mode: config.ModeThreaded},
		{Name: "phone", Type: config.TypeNtfy, Channel: "alerts", Server: "https://ntfy.sh", Mode: config.ModeSingle},
	}
	return cfg
}

func mockFactory(clients map[string]*testutil.MockClient) ClientFactory {
	return func(lc config.ListenerConfig) (channel.Client, error) {
		c := testutil.NewMockClient()
		clients[lc.Name] = c
		return c, nil
	}
}

func TestRegistry_Lookup(t *testing.T) {
	clients := map[string]*testutil.MockClient{}
	r, err := NewRegistry(registryConfig(), zerolog.Nop(), RegistryOptions{Factory: mockFactory(clients)})
	require.NoError(t, err)

	assert.Equal(t, 2, r.Len())
	assert.Len(t, r.Lookup("team"), 1)
	assert.Len(t, r.Lookup("team", "phone"), 2)
	assert.Empty(t, r.Lookup("pager"), "unknown names are ignored")
	assert.Len(t, r.Default(), 2)
	assert.Len(t, r.Resolve(nil), 2)
	assert.Len(t, r.Resolve([]string{"phone"}), 1)
}

func TestRegistry_ConsoleAlwaysIncluded(t *testing.T) {
	var out bytes.Buffer
	r, err := NewRegistry(registryConfig(), zerolog.Nop(), RegistryOptions{
		Factory: mockFactory(map[string]*testutil.MockClient{}),
		Console: &out,
	})
	require.NoError(t, err)

	assert.Len(t, r.Lookup("team"), 2)
	assert.Len(t, r.Lookup(config.ConsoleListener), 1)
	assert.Len(t, r.Default(), 3)

	cfg := registryConfig()
	cfg.Quiet = true
	quiet, err := NewRegistry(cfg, zerolog.Nop(), RegistryOptions{
		Factory: mockFactory(map[string]*testutil.MockClient{}),
		Console: &out,
	})
	require.NoError(t, err)
	assert.Len(t, quiet.Default(), 2)
}

func TestRegistry_DeliversThroughConfiguredModes(t *testing.T) {
	clients := map[string]*testutil.MockClient{}
	reporter := testutil.NewMockStatusReporter()
	r, err := NewRegistry(registryConfig(), zerolog.Nop(), RegistryOptions{
		Factory:  mockFactory(clients),
		Reporter: reporter,
	})
	require.NoError(t, err)

	agg := report.NewAggregator(zerolog.Nop())
	agg.OnTestStart("pkg.TestA", r.Default()...)
	agg.OnResult("pkg.TestA", report.Failed("TestA", "boom"))
	agg.Finalize(t.Context())

	// threaded: heading, header, one chunk
	assert.Len(t, clients["team"].GetPosts(), 3)
	// single: one post
	phone := clients["phone"].GetPosts()
	require.Len(t, phone, 1)
	assert.Equal(t, "alerts", phone[0].Channel)
	assert.Contains(t, phone[0].Message.Title, "shop: Test report result - ")

	assert.ElementsMatch(t, []string{"sending:team", "success:team", "sending:phone", "success:phone"}, reporter.GetEvents())
}

func TestRegistry_FactoryError(t *testing.T) {
	_, err := NewRegistry(registryConfig(), zerolog.Nop(), RegistryOptions{
		Factory: func(config.ListenerConfig) (channel.Client, error) { return nil, errors.New("bad token") },
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "team")
}

func TestDefaultClientFactory(t *testing.T) {
	tests := []struct {
		name    string
		lc      config.ListenerConfig
		wantErr bool
	}{
		{name: "slack", lc: config.ListenerConfig{Type: config.TypeSlack, Token: "xoxb"}},
		{name: "telegram", lc: config.ListenerConfig{Type: config.TypeTelegram, Token: "123:abc"}},
		{name: "ntfy", lc: config.ListenerConfig{Type: config.TypeNtfy, Server: "https://ntfy.sh"}},
		{name: "slack without token", lc: config.ListenerConfig{Type: config.TypeSlack}, wantErr: true},
		{name: "unknown", lc: config.ListenerConfig{Type: "email"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := DefaultClientFactory(tt.lc)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}
