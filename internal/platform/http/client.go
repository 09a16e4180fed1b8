package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Alias1177/NovaAnalyst/internal/metrics"
)

// maxBodyBytes caps how much of an upstream response is read
const maxBodyBytes = 8 << 20

// Client is a wrapper for HTTP client with rate limiting
type Client struct {
	HTTPClient *http.Client
	Limiter    *rate.Limiter

	name            string
	headers         http.Header
	maxRetryTimeout time.Duration
	metrics         *metrics.Metrics
	logger          zerolog.Logger
}

// ClientOptions holds options for creating a new Client
type ClientOptions struct {
	// Name labels logs and metrics for this upstream
	Name            string
	Timeout         time.Duration
	RequestsPerMin  int
	MaxRetryTimeout time.Duration
	// Headers are added to every request
	Headers http.Header
	Metrics *metrics.Metrics
}

// NewClient creates a new HTTP client with rate limiting
func NewClient(opts ClientOptions) *Client {
	// Set default values if not provided
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerMin == 0 {
		opts.RequestsPerMin = 10
	}
	if opts.MaxRetryTimeout == 0 {
		opts.MaxRetryTimeout = 30 * time.Second
	}
	if opts.Name == "" {
		opts.Name = "http"
	}

	return &Client{
		HTTPClient: &http.Client{
			Timeout: opts.Timeout,
		},
		// RequestsPerMin spread evenly, with a burst of the full minute budget
		Limiter:         rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMin)), opts.RequestsPerMin),
		name:            opts.Name,
		headers:         opts.Headers.Clone(),
		maxRetryTimeout: opts.MaxRetryTimeout,
		metrics:         opts.Metrics,
		logger:          log.With().Str("component", opts.Name+"_http").Logger(),
	}
}

// DoRequest performs an HTTP request with rate limiting and retries.
// 5xx responses, 429 and transport errors are retried; other non-200
// statuses fail immediately with an *HTTPStatusError.
func (c *Client) DoRequest(ctx context.Context, req *http.Request) (*http.Response, error) {
	started := time.Now()

	var resp *http.Response
	operation := func() error {
		// Wait for rate limiter
		if err := c.Limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		attempt := req.Clone(ctx)
		for k, v := range c.headers {
			attempt.Header[k] = v
		}

		var err error
		resp, err = c.HTTPClient.Do(attempt)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			c.logger.Debug().Err(err).Str("url", req.URL.Redacted()).Msg("Request failed, retrying")
			return err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			statusErr := &HTTPStatusError{StatusCode: resp.StatusCode}
			if statusErr.Retryable() {
				c.logger.Debug().Int("status", resp.StatusCode).Str("url", req.URL.Redacted()).Msg("Retryable status")
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}
		return nil
	}

	backoffStrategy := backoff.NewExponentialBackOff()
	backoffStrategy.MaxElapsedTime = c.maxRetryTimeout

	err := backoff.Retry(operation, backoff.WithContext(backoffStrategy, ctx))
	c.metrics.ObserveUpstream(c.name, started, err)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// GetJSON issues a GET to url and decodes a 200 response body into out
func (c *Client) GetJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.DoRequest(ctx, req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error().Err(err).Int("bytes", len(body)).Msg("Error parsing JSON")
		return &DecodeError{Err: err}
	}
	return nil
}

// HTTPStatusError represents an error due to a non-200 HTTP status code
type HTTPStatusError struct {
	StatusCode int
}

// Error implements the error interface
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("non-200 status code: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Retryable reports whether the status is worth another attempt
func (e *HTTPStatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// DecodeError wraps a response body that was not valid JSON for the target type
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "parsing JSON: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
