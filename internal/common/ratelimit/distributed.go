package ratelimit

import (
	"context"
	"fmt"
	"time"

	"newsletter-gate/internal/common/logging"
)

// distributedLimiter counts requests in a Redis sliding window
type distributedLimiter struct {
	config Config
	redis  RedisInterface
	logger logging.Logger
}

// NewDistributed creates a limiter shared by every instance using the same Redis
func NewDistributed(config Config, redis RedisInterface) (Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if redis == nil {
		return nil, fmt.Errorf("redis client is required for distributed rate limiter")
	}

	return &distributedLimiter{
		config: config,
		redis:  redis,
		logger: logging.GetGlobalLogger().WithFields(logging.String("component", "ratelimit")),
	}, nil
}

// Allow fails open when Redis is unreachable.
func (d *distributedLimiter) Allow(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	allowed, _, err := d.redis.CheckRateLimit(ctx, d.config.KeyPrefix+key, d.config.Limit, d.config.Window)
	if err != nil {
		d.logger.Warn("Rate limit check failed, allowing request",
			logging.String("key", key),
			logging.Err(err),
		)
		return true
	}
	return allowed
}

func (d *distributedLimiter) Wait(ctx context.Context, key string) error {
	wait := d.config.Window / time.Duration(d.config.Limit)
	if wait < 10*time.Millisecond {
		wait = 10 * time.Millisecond
	}

	for {
		if d.Allow(key) {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (d *distributedLimiter) Limit() int {
	return d.config.Limit
}
