// Package ratelimit throttles the public gate endpoints per client IP and the
// outbound calls made to each provider. A local token bucket is used by
// default; with Redis configured the limit is shared across instances.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Limiter defines the rate limiting operations used by the service
type Limiter interface {
	// Wait blocks until a request for key may proceed or ctx is done
	Wait(ctx context.Context, key string) error
	// Allow reports whether a request for key may proceed now
	Allow(key string) bool
	// Limit returns the configured requests per window
	Limit() int
}

// RedisInterface defines the minimal Redis interface needed for rate limiting
type RedisInterface interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
}

// Config represents rate limiter configuration
type Config struct {
	// Limit is the number of requests allowed per Window
	Limit  int
	Window time.Duration
	// Burst defaults to Limit
	Burst int

	// KeyPrefix namespaces Redis keys for the distributed backend
	KeyPrefix string

	// MaxKeys and CleanupPeriod bound the memory of the local backend
	MaxKeys       int
	CleanupPeriod time.Duration
}

// Validate fills defaults and rejects impossible values
func (c *Config) Validate() error {
	if c.Limit <= 0 {
		return fmt.Errorf("rate limit must be positive, got %d", c.Limit)
	}
	if c.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive, got %v", c.Window)
	}
	if c.Burst <= 0 {
		c.Burst = c.Limit
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "ratelimit:"
	}
	if c.MaxKeys <= 0 {
		c.MaxKeys = 10000
	}
	if c.CleanupPeriod <= 0 {
		c.CleanupPeriod = 5 * time.Minute
	}
	return nil
}
