// Package api provides the typed HTTP gateway to the remote storefront API.
// It serializes JSON bodies, surfaces non-2xx responses as *Error and honors
// context cancellation. There is no implicit retry; resilience is limited to
// an optional client-side rate limiter and circuit breaker.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// maxErrorBody bounds how much of an error response body is retained.
const maxErrorBody = 4 << 10

// Client is the remote data gateway. All storefront queries and mutations go
// through it.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*http.Response]
	logger  *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithTransport replaces the underlying round tripper. Mainly for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport = rt
	}
}

// WithRateLimit installs a client-side limiter on outbound requests.
func WithRateLimit(cfg config.RateLimitConfig) Option {
	return func(c *Client) {
		if cfg.Enabled {
			c.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)
		}
	}
}

// WithCircuitBreaker wraps requests in a circuit breaker. Only transport
// errors and 5xx responses count as failures; 4xx responses are ordinary
// outcomes and must not trip the breaker.
func WithCircuitBreaker(cfg config.CircuitBreakerConfig) Option {
	return func(c *Client) {
		if !cfg.Enabled {
			return
		}
		st := gobreaker.Settings{
			Name:        "storefront-api",
			MaxRequests: 3,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > cfg.ConsecutiveFailures ||
					(counts.TotalSuccesses+counts.TotalFailures > cfg.ConsecutiveFailures &&
						float64(counts.TotalFailures)/float64(counts.TotalSuccesses+counts.TotalFailures)*100 > float64(cfg.ErrorRatePercent))
			},
			IsSuccessful: func(err error) bool {
				if err == nil {
					return true
				}
				var apiErr *Error
				if errors.As(err, &apiErr) {
					return apiErr.Status < 500
				}
				return false
			},
		}
		c.breaker = gobreaker.NewCircuitBreaker[*http.Response](st)
	}
}

// NewClient creates a gateway for the given base URL. The transport is
// instrumented with otelhttp so outbound calls show up in traces.
func NewClient(cfg config.APIConfig, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.With("component", "api"),
	}
	WithRateLimit(cfg.Resilience.RateLimit)(c)
	WithCircuitBreaker(cfg.Resilience.CircuitBreaker)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs one request against the remote API. A non-nil body is JSON
// encoded; a non-nil out receives the decoded response. Non-2xx responses
// return *Error carrying the raw status and body.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.roundTrip(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response body: %w", err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// roundTrip executes the request, through the breaker when one is
// configured, and converts non-2xx responses into *Error.
func (c *Client) roundTrip(req *http.Request) (*http.Response, error) {
	exec := func() (*http.Response, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			_ = resp.Body.Close()
			return nil, &Error{Status: resp.StatusCode, Body: raw}
		}
		return resp, nil
	}
	if c.breaker != nil {
		resp, err := c.breaker.Execute(exec)
		if err != nil {
			return nil, err
		}
		return resp, nil
	}
	return exec()
}
