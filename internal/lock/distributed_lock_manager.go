package lock

import "context"

// DistributedLockManager guards sections that must run on one instance only,
// such as schema migrations and the turn processor loop.
// Acquire blocks until the lock is held or ctx is done.
type DistributedLockManager interface {
	Acquire(ctx context.Context, lockID int) error
	Release(ctx context.Context, lockID int) error
}
