package lock

import (
	"context"
	"sync"
	"time"

	appshared "github.com/erp/bomengine/internal/application/shared"
)

// LocalLocker is an in-process keyed mutex. ttl is ignored: locks are held
// until released.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch      chan struct{}
	waiters int
}

// NewLocalLocker creates a LocalLocker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*slot)}
}

// Obtain blocks until key is free or ctx is done
func (l *LocalLocker) Obtain(ctx context.Context, key string, _ time.Duration) (appshared.Lock, error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.waiters++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		return &localLock{locker: l, key: key, slot: s}, nil
	case <-ctx.Done():
		l.leave(key, s)
		return nil, appshared.NewLockNotObtainedError(key)
	}
}

func (l *LocalLocker) leave(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.waiters--
	if s.waiters == 0 {
		delete(l.slots, key)
	}
}

// held returns the number of keys with a holder or waiter
func (l *LocalLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

type localLock struct {
	locker *LocalLocker
	key    string
	slot   *slot
	once   sync.Once
}

// Release frees the key. Extra calls do nothing.
func (l *localLock) Release(context.Context) error {
	l.once.Do(func() {
		<-l.slot.ch
		l.locker.leave(l.key, l.slot)
	})
	return nil
}

var _ appshared.Locker = (*LocalLocker)(nil)
