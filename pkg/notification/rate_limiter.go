package notification

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/Veraticus/go-test-notify/pkg/channel"
	"github.com/Veraticus/go-test-notify/pkg/interfaces"
)

// NewRateLimiter returns a token bucket allowing perSecond posts with the
// given burst. A non-positive rate disables limiting.
func NewRateLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// RateLimitedClient waits for the limiter before every post. All workers of
// one channel share the limiter.
type RateLimitedClient struct {
	client  channel.Client
	limiter interfaces.RateLimiter
	service string
}

// Ensure RateLimitedClient implements channel.Client
var _ channel.Client = (*RateLimitedClient)(nil)

// NewRateLimitedClient wraps client. service names the client in errors.
func NewRateLimitedClient(client channel.Client, limiter interfaces.RateLimiter, service string) *RateLimitedClient {
	return &RateLimitedClient{
		client:  client,
		limiter: limiter,
		service: service,
	}
}

// Post implements channel.Client.
func (c *RateLimitedClient) Post(ctx context.Context, ch string, msg channel.Message) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &channel.DeliveryError{Service: c.service, Channel: ch, Err: err}
		}
	}
	return c.client.Post(ctx, ch, msg)
}
