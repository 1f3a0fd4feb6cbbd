package service

import (
	"context"
	"sync"

	"github.com/osmanaliaydemir/getir-tracking/internal/core/domain"
)

// sessionLocks serializes mutations per tracking session while letting
// unrelated sessions proceed in parallel. Acquire honours the caller's
// context so a slow holder cannot pin an HTTP request past its deadline.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]chan struct{})}
}

func (l *sessionLocks) acquire(ctx context.Context, sessionID string) error {
	l.mu.Lock()
	ch, ok := l.locks[sessionID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[sessionID] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return domain.ErrLockTimeout
	}
}

func (l *sessionLocks) release(sessionID string) {
	l.mu.Lock()
	ch, ok := l.locks[sessionID]
	l.mu.Unlock()
	if ok {
		<-ch
	}
}

// forget drops the lock entry for a finished session. Callers must not hold
// the session lock when calling.
func (l *sessionLocks) forget(sessionID string) {
	l.mu.Lock()
	delete(l.locks, sessionID)
	l.mu.Unlock()
}
