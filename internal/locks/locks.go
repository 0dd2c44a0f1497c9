// Package locks serializes work that must not run twice at once: scheduler
// jobs across instances and concurrent writes of the same subscriber row.
// With Redis the locks are Redlock mutexes from go-redsync; without it an
// in-process keyed mutex gives the same guarantees for a single instance.
package locks

import (
	"context"
	stderrors "errors"
	"time"
)

// ErrLockHeld is returned by TryAcquire when another holder owns the key
var ErrLockHeld = stderrors.New("lock is held by another owner")

// Lock is an acquired lock
type Lock interface {
	Key() string
	Release(ctx context.Context) error
	IsHeld() bool
}

// Manager hands out locks by key
type Manager interface {
	// Acquire waits until the lock is obtained or ctx is done
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error)
	// TryAcquire returns ErrLockHeld immediately when the key is taken
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (Lock, error)
	Close() error
}

// WithLock runs fn while holding key. The lock is released even when fn fails.
func WithLock(ctx context.Context, m Manager, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	lock, err := m.Acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	defer lock.Release(context.Background())

	return fn(ctx)
}
