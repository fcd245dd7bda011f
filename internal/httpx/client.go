// Package httpx provides an HTTP client with throttling and retry logic
// for calls to external providers.
package httpx

import (
	"context"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/patricknguyendev/simplygrocery/internal/httpx/ratelimit"
)

const userAgent = "SimplyGrocery/1.0"

// Client wraps http.Client with a token-bucket rate limiter and
// exponential-backoff retries on transient failures.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	config     ratelimit.Config
}

// NewClient creates a client with the given retry configuration.
func NewClient(config ratelimit.Config, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.RequestsPerSecond),
		config:     config,
	}
}

// NewClientDefault creates a client with default retry configuration.
func NewClientDefault() *Client {
	return NewClient(ratelimit.DefaultConfig(), 0)
}

// Get performs a GET request with throttling and retries.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, url, nil)
}

// Do performs an HTTP request, waiting on the rate limiter before each
// attempt and retrying retryable statuses with exponential backoff.
func (c *Client) Do(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	var lastStatus int
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if attempt < c.config.MaxRetries && ctx.Err() == nil {
				sleepCtx(ctx, ratelimit.Backoff(attempt, c.config))
				continue
			}
			return nil, &ratelimit.RetryError{URL: url, Attempts: attempt + 1, LastStatus: lastStatus, LastError: lastErr}
		}

		if ratelimit.IsRetryableStatus(resp.StatusCode) {
			lastStatus = resp.StatusCode
			resp.Body.Close()
			if attempt < c.config.MaxRetries && ctx.Err() == nil {
				sleepCtx(ctx, ratelimit.Backoff(attempt, c.config))
				continue
			}
			return nil, &ratelimit.RetryError{URL: url, Attempts: attempt + 1, LastStatus: lastStatus, LastError: lastErr}
		}

		return resp, nil
	}

	return nil, &ratelimit.RetryError{URL: url, Attempts: c.config.MaxRetries + 1, LastStatus: lastStatus, LastError: lastErr}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
