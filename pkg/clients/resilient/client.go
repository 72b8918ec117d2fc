package resilient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultBaseDelay  = 1 * time.Second
)

// Response is the outcome of a completed HTTP exchange. A 4xx response is
// still a Response, not an error; callers decide whether it is a miss.
type Response struct {
	StatusCode int
	Body       []byte
}

// Client wraps an http.Client with a fixed request timeout, retry with
// exponential backoff for transient failures, and a circuit breaker guarding
// the upstream as a whole.
//
// Retried: transport-level errors (connection reset/refused, DNS failure,
// timeout) and HTTP status >= 500. Not retried: any response below 500, which
// is returned to the caller as-is.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*Response]
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithMaxRetries overrides how many times a failed request is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithBaseDelay overrides the backoff base delay. The wait after the n-th
// failed attempt is baseDelay * 2^n.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) { c.baseDelay = d }
}

// New creates a resilient HTTP client. Defaults: 30s timeout, 3 retries,
// 1s backoff base.
func New(logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        "charter-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return c
}

// Do executes the request through the circuit breaker and retry loop.
// The returned error is either a breaker rejection, a context cancellation,
// or the final failure after retries were exhausted.
func (c *Client) Do(ctx context.Context, method, rawURL string, query url.Values) (*Response, error) {
	return c.breaker.Execute(func() (*Response, error) {
		return c.doWithRetry(ctx, method, rawURL, query)
	})
}

func (c *Client) doWithRetry(ctx context.Context, method, rawURL string, query url.Values) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		resp, err := c.attempt(ctx, method, rawURL, query)
		if err == nil && resp.StatusCode < http.StatusInternalServerError {
			c.logger.Debug("Request completed",
				zap.String("method", method),
				zap.String("url", rawURL),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1))
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("server error: HTTP %d", resp.StatusCode)
		}

		if attempt == c.maxRetries {
			break
		}

		delay := c.baseDelay * time.Duration(1<<uint(attempt))
		c.logger.Warn("Request failed, retrying",
			zap.String("method", method),
			zap.String("url", rawURL),
			zap.Error(lastErr),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c.logger.Error("Request failed, retries exhausted",
		zap.String("method", method),
		zap.String("url", rawURL),
		zap.Int("retries", c.maxRetries),
		zap.Error(lastErr))
	return nil, fmt.Errorf("request failed after %d retries: %w", c.maxRetries, lastErr)
}

// attempt performs a single HTTP exchange and drains the response body.
func (c *Client) attempt(ctx context.Context, method, rawURL string, query url.Values) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
