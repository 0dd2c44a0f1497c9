package locks

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsletter-gate/internal/redis"
)

func newRedsyncManager(t *testing.T) *RedsyncManager {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := redis.NewClient(&redis.Config{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	manager, err := NewRedsyncManager(client)
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })
	return manager
}

func managers(t *testing.T) map[string]Manager {
	return map[string]Manager{
		"redsync": newRedsyncManager(t),
		"local":   NewLocalManager(),
	}
}

func TestNewRedsyncManagerRequiresClient(t *testing.T) {
	_, err := NewRedsyncManager(nil)
	assert.Error(t, err)
}

func TestAcquireAndRelease(t *testing.T) {
	for name, manager := range managers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			lock, err := manager.Acquire(ctx, "scheduler:purge", 10*time.Second)
			require.NoError(t, err)
			assert.Equal(t, "scheduler:purge", lock.Key())
			assert.True(t, lock.IsHeld())

			_, err = manager.TryAcquire(ctx, "scheduler:purge", 10*time.Second)
			assert.ErrorIs(t, err, ErrLockHeld)

			require.NoError(t, lock.Release(ctx))
			assert.False(t, lock.IsHeld())
			assert.NoError(t, lock.Release(ctx), "release is idempotent")

			again, err := manager.TryAcquire(ctx, "scheduler:purge", 10*time.Second)
			require.NoError(t, err)
			require.NoError(t, again.Release(ctx))
		})
	}
}

func TestAcquireHonoursContext(t *testing.T) {
	for name, manager := range managers(t) {
		t.Run(name, func(t *testing.T) {
			lock, err := manager.Acquire(context.Background(), "subscriber:a@example.com", 10*time.Second)
			require.NoError(t, err)
			defer lock.Release(context.Background())

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			_, err = manager.Acquire(ctx, "subscriber:a@example.com", 10*time.Second)
			assert.Error(t, err)
		})
	}
}

func TestWithLockSerializes(t *testing.T) {
	for name, manager := range managers(t) {
		t.Run(name, func(t *testing.T) {
			var inside, maxInside int32
			var wg sync.WaitGroup

			for i := 0; i < 5; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := WithLock(context.Background(), manager, "subscriber:row", 5*time.Second, func(ctx context.Context) error {
						n := atomic.AddInt32(&inside, 1)
						for {
							m := atomic.LoadInt32(&maxInside)
							if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
								break
							}
						}
						time.Sleep(5 * time.Millisecond)
						atomic.AddInt32(&inside, -1)
						return nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			assert.Equal(t, int32(1), atomic.LoadInt32(&maxInside))
		})
	}
}

func TestWithLockReleasesOnError(t *testing.T) {
	manager := NewLocalManager()

	err := WithLock(context.Background(), manager, "k", time.Second, func(ctx context.Context) error {
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	lock, err := manager.TryAcquire(context.Background(), "k", time.Second)
	require.NoError(t, err)
	_ = lock.Release(context.Background())
}

func TestRedsyncCloseReleasesHeldLocks(t *testing.T) {
	manager := newRedsyncManager(t)
	ctx := context.Background()

	lock, err := manager.Acquire(ctx, "oauth:refresh", 10*time.Second)
	require.NoError(t, err)

	require.NoError(t, manager.Close())
	assert.False(t, lock.IsHeld())

	again, err := manager.TryAcquire(ctx, "oauth:refresh", 10*time.Second)
	require.NoError(t, err)
	_ = again.Release(ctx)
}
