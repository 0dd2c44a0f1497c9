package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// localLimiter keeps one golang.org/x/time/rate bucket per key
type localLimiter struct {
	mu          sync.Mutex
	config      Config
	every       rate.Limit
	limiters    map[string]*limiterEntry
	lastCleanup time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewLocal creates an in-process limiter
func NewLocal(config Config) (Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &localLimiter{
		config:      config,
		every:       rate.Every(config.Window / time.Duration(config.Limit)),
		limiters:    make(map[string]*limiterEntry),
		lastCleanup: time.Now(),
	}, nil
}

func (l *localLimiter) Allow(key string) bool {
	return l.limiterFor(key).Allow()
}

func (l *localLimiter) Wait(ctx context.Context, key string) error {
	return l.limiterFor(key).Wait(ctx)
}

func (l *localLimiter) Limit() int {
	return l.config.Limit
}

func (l *localLimiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastCleanup) > l.config.CleanupPeriod {
		l.cleanup(now)
	}

	entry, ok := l.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.every, l.config.Burst)}
		l.limiters[key] = entry
		if len(l.limiters) > l.config.MaxKeys {
			l.cleanup(now)
		}
	}
	entry.lastUsed = now
	return entry.limiter
}

// cleanup drops buckets idle for longer than CleanupPeriod
func (l *localLimiter) cleanup(now time.Time) {
	cutoff := now.Add(-l.config.CleanupPeriod)
	for key, entry := range l.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(l.limiters, key)
		}
	}
	l.lastCleanup = now
}
