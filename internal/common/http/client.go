// Package http is the outbound client every provider API call goes through.
// It layers per-provider rate limiting, retry with backoff and a per-provider
// circuit breaker over a tuned *http.Client.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"newsletter-gate/internal/circuitbreaker"
	"newsletter-gate/internal/common/errors"
	"newsletter-gate/internal/common/logging"
	"newsletter-gate/internal/common/ratelimit"
	"newsletter-gate/internal/common/utils"
)

// ClientConfig holds HTTP transport configuration
type ClientConfig struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	Transport           http.RoundTripper
}

// DefaultClientConfig returns default HTTP client configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:             15 * time.Second,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// ClientOption is a function that modifies ClientConfig
type ClientOption func(*ClientConfig)

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// WithTransport sets a custom transport
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *ClientConfig) {
		c.Transport = transport
	}
}

// NewHTTPClient creates a new HTTP client with the given options
func NewHTTPClient(opts ...ClientOption) *http.Client {
	cfg := DefaultClientConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
		}
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}
}

// RetryConfig for outbound retries. Connection errors, 5xx and the listed
// status codes are retried; everything else is returned immediately.
type RetryConfig struct {
	MaxAttempts          int
	InitialDelay         time.Duration
	MaxDelay             time.Duration
	BackoffFactor        float64
	JitterFactor         float64
	RetryableStatusCodes []int
}

// DefaultRetryConfig returns the retry policy used for provider APIs
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:          3,
		InitialDelay:         300 * time.Millisecond,
		MaxDelay:             3 * time.Second,
		BackoffFactor:        2.0,
		JitterFactor:         0.1,
		RetryableStatusCodes: []int{http.StatusTooManyRequests, http.StatusRequestTimeout},
	}
}

// Request describes one outbound call
type Request struct {
	// Service names the provider; it selects the breaker and rate limit bucket
	Service string
	Method  string
	URL     string
	Body    []byte
	Headers map[string]string
}

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// IsSuccess reports a 2xx status
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client wraps http.Client with retry, circuit breaking and rate limiting.
// A non-2xx response that is not retried is returned with a nil error so the
// caller can extract the provider's own error message from the body.
type Client struct {
	client      *http.Client
	retry       RetryConfig
	breakers    *circuitbreaker.Manager
	rateLimiter ratelimit.Limiter
	logger      logging.Logger
}

// NewClient creates a wrapped client
func NewClient(opts ...ClientOption) *Client {
	return &Client{
		client: NewHTTPClient(opts...),
		retry:  DefaultRetryConfig(),
		logger: logging.GetGlobalLogger().WithFields(logging.String("component", "http_client")),
	}
}

// WithRetryConfig sets custom retry configuration
func (c *Client) WithRetryConfig(config RetryConfig) *Client {
	c.retry = config
	return c
}

// WithCircuitBreakers enables one breaker per Request.Service
func (c *Client) WithCircuitBreakers(manager *circuitbreaker.Manager) *Client {
	c.breakers = manager
	return c
}

// WithRateLimiter throttles calls per Request.Service
func (c *Client) WithRateLimiter(limiter ratelimit.Limiter) *Client {
	c.rateLimiter = limiter
	return c
}

// Breakers exposes the breaker manager for health output, nil when disabled
func (c *Client) Breakers() *circuitbreaker.Manager {
	return c.breakers
}

// Do performs the request. The returned error is an *errors.AppError:
// connection for transport failures and exhausted retries, rate_limit when
// the limiter wait is cancelled.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx, req.Service); err != nil {
			return nil, errors.RateLimitError(req.Service)
		}
	}

	var breaker *circuitbreaker.Breaker
	if c.breakers != nil && req.Service != "" {
		breaker = c.breakers.Get(req.Service)
	}

	retryConfig := utils.RetryConfig{
		MaxAttempts:   c.retry.MaxAttempts,
		InitialDelay:  c.retry.InitialDelay,
		MaxDelay:      c.retry.MaxDelay,
		BackoffFactor: c.retry.BackoffFactor,
		JitterFactor:  c.retry.JitterFactor,
		RetryableErrors: func(err error) bool {
			return errors.IsType(err, errors.ErrTypeConnection)
		},
	}

	var response *Response
	err := utils.RetryWithBackoff(ctx, retryConfig, func() error {
		attempt := func() error {
			var attemptErr error
			response, attemptErr = c.execute(ctx, req)
			return attemptErr
		}
		if breaker != nil {
			return breaker.Execute(attempt)
		}
		return attempt()
	})
	if err != nil {
		c.logger.WithContext(ctx).Warn("Outbound request failed",
			logging.String("service", req.Service),
			logging.String("method", req.Method),
			logging.String("url", req.URL),
			logging.Err(err),
		)
		if errors.IsType(err, errors.ErrTypeConnection) {
			return response, err
		}
		return response, errors.ConnectionError(fmt.Sprintf("%s request failed", req.Service), err)
	}

	return response, nil
}

// execute performs a single attempt. Retryable statuses come back as a
// connection error alongside the response.
func (c *Client) execute(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, errors.InternalError("failed to create request", err)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errors.ConnectionError("request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ConnectionError("failed to read response body", err)
	}

	response := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       raw,
		Duration:   time.Since(start),
	}

	if c.isRetryableStatus(resp.StatusCode) {
		return response, errors.ConnectionError(fmt.Sprintf("HTTP %d", resp.StatusCode), nil)
	}
	return response, nil
}

func (c *Client) isRetryableStatus(status int) bool {
	if status >= 500 {
		return true
	}
	for _, code := range c.retry.RetryableStatusCodes {
		if status == code {
			return true
		}
	}
	return false
}
