package resilience

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrCircuitOpen is returned without calling the provider while its breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrCallerGone wraps attempts abandoned because the request context ended.
	// They say nothing about provider health and are excluded from the breaker and registry.
	ErrCallerGone = errors.New("request abandoned by caller")
)

// ServerError marks a 5xx provider response as a breaker failure.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("provider answered %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// ClientConfig configures a provider's HTTP client.
type ClientConfig struct {
	// Name is used for the breaker and the registry entry.
	Name string

	// Timeout bounds one attempt. Default 10s.
	Timeout time.Duration

	// MaxRetries is how many extra attempts follow a 5xx or transport error.
	// Zero means a failure surfaces after the first attempt.
	MaxRetries uint64

	// InitialInterval and MaxInterval shape the exponential backoff between
	// attempts. Defaults 100ms and 5s.
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// CircuitBreaker defaults to DefaultCircuitBreakerConfig(Name).
	CircuitBreaker *CircuitBreakerConfig

	// Registry, when set, has the client registered and every outcome recorded.
	Registry *Registry

	// Logger receives a debug line per retried attempt.
	Logger zerolog.Logger
}

// DefaultClientConfig returns a single-attempt client config for name.
func DefaultClientConfig(name string) ClientConfig {
	cb := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		CircuitBreaker:  &cb,
		Logger:          zerolog.Nop(),
	}
}

// Client sends provider requests through a circuit breaker, optionally retrying
// transient failures. Responses other than 5xx, 4xx included, are successes as
// far as the breaker is concerned; interpreting them is the caller's job.
type Client struct {
	name    string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	cfg     ClientConfig
}

// NewClient builds a Client and registers it with cfg.Registry if set.
func NewClient(cfg ClientConfig) *Client {
	def := DefaultClientConfig(cfg.Name)
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = def.MaxInterval
	}
	if cfg.CircuitBreaker == nil {
		cfg.CircuitBreaker = def.CircuitBreaker
	}

	c := &Client{
		name:    cfg.Name,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: NewCircuitBreaker[*http.Response](*cfg.CircuitBreaker), //nolint:bodyclose // type parameter
		cfg:     cfg,
	}
	if cfg.Registry != nil {
		cfg.Registry.Register(cfg.Name, c)
	}
	return c
}

// Name returns the provider name.
func (c *Client) Name() string { return c.name }

// State returns the breaker state.
func (c *Client) State() gobreaker.State { return c.breaker.State() }

// Counts returns the breaker's counters for the current generation.
func (c *Client) Counts() gobreaker.Counts { return c.breaker.Counts() }

// Do sends req, bounded by its context. When every attempt ended in a 5xx the
// last response is returned with a nil error so the caller can read it.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx)

	var last *http.Response
	keep := func(resp *http.Response) {
		if last != nil {
			_ = last.Body.Close()
		}
		last = resp
	}

	err := backoff.RetryNotify(func() error {
		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // closed by keep or the caller
			return c.attempt(req)
		})
		if resp != nil {
			keep(resp)
		}
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(ErrCircuitOpen)
		case errors.Is(err, ErrCallerGone):
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		c.cfg.Logger.Debug().Err(err).Str("provider", c.name).Dur("wait", wait).Msg("retrying provider request")
	})

	if ctx.Err() == nil || last != nil {
		c.record(last, err)
	}

	if err != nil && last == nil {
		return nil, err
	}
	return last, nil
}

func (c *Client) attempt(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	resp, err := c.http.Do(req.Clone(ctx))
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrCallerGone, err)
		}
		return nil, err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return resp, &ServerError{StatusCode: resp.StatusCode}
	}
	return resp, nil
}

func (c *Client) record(resp *http.Response, err error) {
	if c.cfg.Registry == nil {
		return
	}
	if resp != nil && resp.StatusCode >= http.StatusInternalServerError {
		err = &ServerError{StatusCode: resp.StatusCode}
	} else if resp != nil {
		err = nil
	}
	c.cfg.Registry.Record(c.name, err)
}
