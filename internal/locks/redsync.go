package locks

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"

	"newsletter-gate/internal/common/errors"
	"newsletter-gate/internal/common/logging"
	"newsletter-gate/internal/redis"
)

// RedsyncManager implements Manager with the Redlock algorithm
type RedsyncManager struct {
	redsync *redsync.Redsync
	logger  logging.Logger

	mu    sync.Mutex
	locks map[*redsyncLock]struct{}
}

type redsyncLock struct {
	mutex   *redsync.Mutex
	key     string
	ttl     time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
	manager *RedsyncManager
	once    sync.Once
}

// NewRedsyncManager builds a manager on the client's go-redis pool
func NewRedsyncManager(redisClient *redis.Client) (*RedsyncManager, error) {
	if redisClient == nil {
		return nil, errors.ConfigError("redis client is required")
	}

	pool := goredis.NewPool(redisClient.GetGoRedisClient())
	return &RedsyncManager{
		redsync: redsync.New(pool),
		logger:  logging.GetGlobalLogger().WithFields(logging.String("component", "locks")),
		locks:   make(map[*redsyncLock]struct{}),
	}, nil
}

func (m *RedsyncManager) Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	return m.acquire(ctx, key, ttl, redsync.WithExpiry(ttl), redsync.WithTries(64), redsync.WithRetryDelay(50*time.Millisecond))
}

func (m *RedsyncManager) TryAcquire(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	return m.acquire(ctx, key, ttl, redsync.WithExpiry(ttl), redsync.WithTries(1))
}

func (m *RedsyncManager) acquire(ctx context.Context, key string, ttl time.Duration, opts ...redsync.Option) (Lock, error) {
	mutex := m.redsync.NewMutex("lock:"+key, opts...)

	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if stderrors.As(err, &taken) || stderrors.Is(err, redsync.ErrFailed) {
			return nil, ErrLockHeld
		}
		return nil, errors.InternalError("failed to acquire distributed lock", err)
	}

	lockCtx, cancel := context.WithCancel(context.Background())
	lock := &redsyncLock{
		mutex:   mutex,
		key:     key,
		ttl:     ttl,
		ctx:     lockCtx,
		cancel:  cancel,
		manager: m,
	}

	m.mu.Lock()
	m.locks[lock] = struct{}{}
	m.mu.Unlock()

	go lock.renew()
	return lock, nil
}

// renew extends the lock at a third of its ttl until released or lost
func (l *redsyncLock) renew() {
	interval := l.ttl / 3
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			ok, err := l.mutex.ExtendContext(ctx)
			cancel()

			if err != nil || !ok {
				l.manager.logger.Warn("Lost distributed lock",
					logging.String("key", l.key),
					logging.Err(err),
				)
				_ = l.Release(context.Background())
				return
			}
		}
	}
}

func (l *redsyncLock) Key() string {
	return l.key
}

func (l *redsyncLock) Release(ctx context.Context) error {
	var err error
	l.once.Do(func() {
		l.cancel()

		l.manager.mu.Lock()
		delete(l.manager.locks, l)
		l.manager.mu.Unlock()

		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if _, unlockErr := l.mutex.UnlockContext(ctx); unlockErr != nil {
			err = errors.InternalError("failed to release distributed lock", unlockErr)
		}
	})
	return err
}

func (l *redsyncLock) IsHeld() bool {
	return l.ctx.Err() == nil
}

// Close releases every lock still held through this manager
func (m *RedsyncManager) Close() error {
	m.mu.Lock()
	held := make([]*redsyncLock, 0, len(m.locks))
	for lock := range m.locks {
		held = append(held, lock)
	}
	m.mu.Unlock()

	for _, lock := range held {
		_ = lock.Release(context.Background())
	}
	return nil
}

var _ Manager = (*RedsyncManager)(nil)
