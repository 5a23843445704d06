package lock

import (
	"context"
	"fmt"
	"golang.org/x/sync/semaphore"
	"sync"
)

// LocalLockManager serializes lock holders inside one process. It is used
// when no shared database is configured.
type LocalLockManager struct {
	mu    sync.Mutex
	locks map[int]*semaphore.Weighted
}

func NewLocalLockManager() *LocalLockManager {
	return &LocalLockManager{locks: make(map[int]*semaphore.Weighted)}
}

func (l *LocalLockManager) sem(lockID int) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.locks[lockID]
	if !ok {
		s = semaphore.NewWeighted(1)
		l.locks[lockID] = s
	}
	return s
}

func (l *LocalLockManager) Acquire(ctx context.Context, lockID int) error {
	if err := l.sem(lockID).Acquire(ctx, 1); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	return nil
}

func (l *LocalLockManager) Release(_ context.Context, lockID int) error {
	s := l.sem(lockID)
	if s.TryAcquire(1) {
		// was not held
		s.Release(1)
		return nil
	}
	s.Release(1)
	return nil
}
