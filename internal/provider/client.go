package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Default configuration values.
const (
	DefaultTimeout          = 10 * time.Second
	DefaultRPS              = 1.0
	DefaultBurst            = 2
	DefaultBreakerFailures  = 3
	DefaultBreakerTimeout   = 60 * time.Second
	DefaultUserAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	maxResponseBytes        = 8 << 20
	defaultBreakerInterval  = 60 * time.Second
	defaultBreakerHalfOpens = 1
)

// ClientOptions configures a Client.
type ClientOptions struct {
	Name            string
	Timeout         time.Duration
	RPS             float64
	Burst           int
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	UserAgent       string
	Headers         map[string]string
	HTTPClient      *http.Client
	Logger          *zerolog.Logger
}

// Client performs provider HTTP calls behind a per-source rate limiter,
// circuit breaker and call timeout. Every error it returns is a *SourceError.
type Client struct {
	name      string
	http      *http.Client
	timeout   time.Duration
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	userAgent string
	headers   map[string]string
}

// NewClient creates a provider client.
func NewClient(opts ClientOptions) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rps := opts.RPS
	if rps <= 0 {
		rps = DefaultRPS
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = DefaultBurst
	}
	failures := opts.BreakerFailures
	if failures == 0 {
		failures = DefaultBreakerFailures
	}
	openTimeout := opts.BreakerTimeout
	if openTimeout <= 0 {
		openTimeout = DefaultBreakerTimeout
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	settings := gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: defaultBreakerHalfOpens,
		Interval:    defaultBreakerInterval,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("source", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("source circuit breaker state change")
		},
	}

	return &Client{
		name:      opts.Name,
		http:      httpClient,
		timeout:   timeout,
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
		breaker:   gobreaker.NewCircuitBreaker(settings),
		userAgent: userAgent,
		headers:   opts.Headers,
	}
}

// Name returns the source name the client reports errors under.
func (c *Client) Name() string {
	return c.name
}

// Timeout returns the per-call timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// UserAgent returns the User-Agent sent with every request.
func (c *Client) UserAgent() string {
	return c.userAgent
}

// BreakerState returns the current circuit breaker state.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// Do runs fn under the call timeout, the rate limiter and the breaker.
func (c *Client) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		kind := KindRateLimited
		if ctx.Err() == context.Canceled {
			kind = KindCanceled
		}
		return &SourceError{Source: c.name, Kind: kind, Err: err}
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if err != nil {
		return AsSourceError(c.name, err)
	}
	return nil
}

// GetJSON fetches url and decodes a JSON body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out interface{}) error {
	return c.Do(ctx, func(ctx context.Context) error {
		body, err := c.get(ctx, url, "application/json")
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, out); err != nil {
			return &SourceError{Source: c.name, Kind: KindDecode, Err: err}
		}
		return nil
	})
}

// get performs one GET and returns the body of a 200 response.
func (c *Client) get(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &SourceError{Source: c.name, Kind: KindNetwork, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, AsSourceError(c.name, fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, AsSourceError(c.name, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &SourceError{Source: c.name, Kind: KindStatus, Status: resp.StatusCode}
	}

	return body, nil
}
