// Package platform is the ad platform client used for geo-target
// reconciliation. Calls go over REST first and fall back to the JSON-RPC
// endpoint when REST is unavailable; callers never see which one answered.
package platform

import (
	"context"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/geotarget/internal/model"
	"github.com/sells-group/geotarget/internal/resilience"
)

// Config holds connection settings for both transports.
type Config struct {
	RESTURL     string
	RPCURL      string
	CustomerID  string
	Token       string
	Timeout     time.Duration
	RatePerSec  float64
	MaxAttempts int
}

type transport interface {
	name() string
	fetch(ctx context.Context, campaignID string) ([]model.ExistingTarget, error)
	add(ctx context.Context, campaignID string, ids []string) ([]string, error)
	remove(ctx context.Context, handles []string) ([]string, error)
}

// Client talks to the ad platform.
type Client struct {
	transports []transport
	limiter    *rate.Limiter
	policy     resilience.Policy
	// restBreaker skips REST while it keeps failing and RPC is configured.
	restBreaker *resilience.Breaker
	log         *zap.Logger
}

// Option configures a Client.
type Option func(*options)

type options struct {
	http   *http.Client
	clock  clockwork.Clock
	policy *resilience.Policy
}

// WithHTTPClient sets the *http.Client used by both transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.http = hc }
}

// WithClock sets the clock behind backoff and the REST breaker.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(o *options) { o.policy = &p }
}

// New creates a Client. At least one of RESTURL and RPCURL is required.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.RESTURL == "" && cfg.RPCURL == "" {
		return nil, eris.New("platform: rest_url or rpc_url is required")
	}
	if cfg.CustomerID == "" {
		return nil, eris.New("platform: customer_id is required")
	}

	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.http == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		o.http = &http.Client{Timeout: timeout}
	}

	policy := resilience.DefaultPolicy()
	if o.policy != nil {
		policy = *o.policy
	}
	if cfg.MaxAttempts > 0 {
		policy.Attempts = cfg.MaxAttempts
	}
	policy.Clock = o.clock

	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}

	c := &Client{
		limiter:     rate.NewLimiter(limit, 1),
		policy:      policy,
		restBreaker: resilience.NewBreaker(3, 30*time.Second, o.clock),
		log:         zap.L().With(zap.String("component", "platform")),
	}
	if cfg.RESTURL != "" {
		c.transports = append(c.transports, &restTransport{
			baseURL: cfg.RESTURL, customerID: cfg.CustomerID, token: cfg.Token, http: o.http,
		})
	}
	if cfg.RPCURL != "" {
		c.transports = append(c.transports, &rpcTransport{
			url: cfg.RPCURL, customerID: cfg.CustomerID, token: cfg.Token, http: o.http,
		})
	}
	return c, nil
}

// FetchExistingTargets lists the location criteria applied to a campaign.
func (c *Client) FetchExistingTargets(ctx context.Context, campaignID string) ([]model.ExistingTarget, error) {
	return call(ctx, c, "fetch", func(ctx context.Context, t transport) ([]model.ExistingTarget, error) {
		return t.fetch(ctx, campaignID)
	})
}

// AddLocationTargets applies geo-target ids to a campaign and returns the
// resource names the platform created.
func (c *Client) AddLocationTargets(ctx context.Context, campaignID string, ids []string) ([]string, error) {
	return call(ctx, c, "add", func(ctx context.Context, t transport) ([]string, error) {
		return t.add(ctx, campaignID, ids)
	})
}

// RemoveTargets removes campaign criteria by resource name and returns the
// names the platform removed.
func (c *Client) RemoveTargets(ctx context.Context, handles []string) ([]string, error) {
	return call(ctx, c, "remove", func(ctx context.Context, t transport) ([]string, error) {
		return t.remove(ctx, handles)
	})
}

func call[T any](ctx context.Context, c *Client, op string, fn func(context.Context, transport) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	for i, t := range c.transports {
		last := i == len(c.transports)-1
		isREST := t.name() == "rest"
		if isREST && !last && !c.restBreaker.Allow() {
			c.log.Debug("platform: rest breaker open, using fallback", zap.String("op", op))
			continue
		}

		p := c.policy
		p.OnRetry = resilience.LogRetries(t.name(), op)
		val, err := resilience.Retry(ctx, p, func(ctx context.Context) (T, error) {
			if err := c.limiter.Wait(ctx); err != nil {
				return zero, eris.Wrap(err, "platform: rate limit wait")
			}
			return fn(ctx, t)
		})
		if isREST {
			c.restBreaker.Record(err != nil && shouldFallback(err))
		}
		if err == nil {
			return val, nil
		}
		lastErr = err
		if last || ctx.Err() != nil || !shouldFallback(err) {
			return zero, err
		}
		c.log.Warn("platform: transport failed, falling back",
			zap.String("transport", t.name()),
			zap.String("op", op),
			zap.Error(err),
		)
	}
	return zero, lastErr
}
