package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned without contacting the upstream while its
// breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// StatusError reports a non-success HTTP status from an upstream.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// ClientConfig holds configuration for a resilient upstream client.
type ClientConfig struct {
	// Name identifies the upstream.
	Name string

	// Timeout per HTTP attempt (default: 10s).
	Timeout time.Duration

	// MaxRetries after the first attempt. Zero disables retries.
	MaxRetries uint64

	// InitialInterval and MaxInterval bound the exponential backoff
	// (defaults: 200ms, 5s).
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// Breaker configures the circuit breaker (default: DefaultBreakerConfig).
	Breaker *BreakerConfig

	// Registry, when set, has the client registered under Name and receives
	// the outcome of every GetJSON call.
	Registry *Registry

	// Logger for retry diagnostics.
	Logger zerolog.Logger
}

// DefaultClientConfig returns the settings used for reference dataset
// upstreams.
func DefaultClientConfig(name string) ClientConfig {
	breaker := DefaultBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Breaker:         &breaker,
	}
}

// Client performs HTTP requests through a circuit breaker with exponential
// backoff retries on network errors and 5xx responses.
type Client struct {
	name     string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	cfg      ClientConfig
	registry *Registry
	logger   zerolog.Logger
}

// NewClient creates a new Client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 200 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}

	breakerCfg := DefaultBreakerConfig(cfg.Name)
	if cfg.Breaker != nil {
		breakerCfg = *cfg.Breaker
		if breakerCfg.Name == "" {
			breakerCfg.Name = cfg.Name
		}
	}

	c := &Client{
		name:     cfg.Name,
		http:     &http.Client{Timeout: cfg.Timeout},
		breaker:  newBreaker[*http.Response](breakerCfg), //nolint:bodyclose // type parameter, not a response
		cfg:      cfg,
		registry: cfg.Registry,
		logger:   cfg.Logger.With().Str("upstream", cfg.Name).Logger(),
	}

	if c.registry != nil {
		c.registry.Register(c)
	}

	return c
}

// Name returns the upstream name.
func (c *Client) Name() string {
	return c.name
}

// State returns the breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the breaker counters.
func (c *Client) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}

// Do executes req, retrying network errors and 5xx responses. When retries
// are exhausted on a 5xx the last response is returned with a nil error so
// the caller can inspect it. The caller closes the returned body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx)

	var last *http.Response

	attempt := func() error {
		if last != nil {
			discard(last)
			last = nil
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // returned to the caller
			r, err := c.http.Do(req.Clone(ctx))
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= http.StatusInternalServerError {
				return r, &StatusError{StatusCode: r.StatusCode}
			}
			return r, nil
		})

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(ErrCircuitOpen)
		}

		last = resp
		return err
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Debug().Err(err).Dur("wait", wait).Msg("retrying upstream request")
	}

	if err := backoff.RetryNotify(attempt, policy, notify); err != nil {
		if last != nil {
			return last, nil
		}
		return nil, err
	}

	return last, nil
}

// GetJSON fetches url and decodes a 200 response body into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	err := c.getJSON(ctx, url, v)
	if c.registry != nil {
		if err != nil {
			c.registry.RecordFailure(c.name, err)
		} else {
			c.registry.RecordSuccess(c.name)
		}
	}
	return err
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: %w", c.name, &StatusError{StatusCode: resp.StatusCode})
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s response: %w", c.name, err)
	}
	return nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
