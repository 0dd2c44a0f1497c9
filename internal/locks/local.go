package locks

import (
	"context"
	"sync"
	"time"
)

// LocalManager implements Manager with in-process keyed mutexes. TTLs are
// ignored since the holder cannot disappear without the process going too.
type LocalManager struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocalManager creates an in-process lock manager
func NewLocalManager() *LocalManager {
	return &LocalManager{slots: make(map[string]chan struct{})}
}

func (m *LocalManager) slot(key string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[key]
	if !ok {
		s = make(chan struct{}, 1)
		m.slots[key] = s
	}
	return s
}

func (m *LocalManager) Acquire(ctx context.Context, key string, _ time.Duration) (Lock, error) {
	s := m.slot(key)
	select {
	case s <- struct{}{}:
		return &localLock{key: key, slot: s}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *LocalManager) TryAcquire(_ context.Context, key string, _ time.Duration) (Lock, error) {
	s := m.slot(key)
	select {
	case s <- struct{}{}:
		return &localLock{key: key, slot: s}, nil
	default:
		return nil, ErrLockHeld
	}
}

func (m *LocalManager) Close() error {
	return nil
}

type localLock struct {
	key      string
	slot     chan struct{}
	once     sync.Once
	mu       sync.Mutex
	released bool
}

func (l *localLock) Key() string {
	return l.key
}

func (l *localLock) Release(context.Context) error {
	l.once.Do(func() {
		l.mu.Lock()
		l.released = true
		l.mu.Unlock()
		<-l.slot
	})
	return nil
}

// IsHeld reports true until Release is called
func (l *localLock) IsHeld() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.released
}

var _ Manager = (*LocalManager)(nil)
