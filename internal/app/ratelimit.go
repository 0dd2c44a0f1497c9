package app

import (
	"newsletter-gate/internal/common/logging"
	"newsletter-gate/internal/common/ratelimit"
)

// InitializeRateLimiter creates the limiter for the public gate endpoints.
// It is shared through Redis when available and local otherwise.
func (app *App) InitializeRateLimiter() ratelimit.Limiter {
	if !app.Config.RateLimitEnabled {
		return nil
	}

	limit, window := app.Config.RateLimit()
	rateLimitConfig := ratelimit.Config{
		Limit:     limit,
		Window:    window,
		KeyPrefix: "gate:",
	}

	var backend ratelimit.RedisInterface
	if app.RedisClient != nil {
		backend = app.RedisClient
	}

	limiter, err := ratelimit.New(rateLimitConfig, backend)
	if err != nil {
		app.Logger.Warn("Failed to create rate limiter, public endpoints are unthrottled", logging.Err(err))
		return nil
	}

	app.Logger.Info("Rate limiting enabled",
		logging.Int("limit", limit),
		logging.Duration("window", window),
	)
	return limiter
}
