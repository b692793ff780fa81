package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LockHandle is a held exclusive lock.
type LockHandle interface {
	// Release frees the lock. Safe to call after the TTL elapsed.
	Release(ctx context.Context) error
}

// ExclusiveLocker serializes settlement attempts across instances. Acquire
// returns shared.ErrLockHeld without blocking when another holder owns the key.
type ExclusiveLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (LockHandle, error)
}

// settlementLockKey names the per-credit-line lock: two concurrent attempts to
// settle the same account/UTR pair contend on the same key.
func settlementLockKey(bankAccountID uuid.UUID, utr string) string {
	return fmt.Sprintf("settle:%s:%s", bankAccountID, utr)
}

// noopLockHandle satisfies LockHandle for the NoOpLocker.
type noopLockHandle struct{}

func (noopLockHandle) Release(context.Context) error { return nil }

// NoOpLocker grants every acquisition. Useful for tests and single-instance runs.
type NoOpLocker struct{}

// Acquire always succeeds.
func (NoOpLocker) Acquire(context.Context, string, time.Duration) (LockHandle, error) {
	return noopLockHandle{}, nil
}

var _ ExclusiveLocker = NoOpLocker{}
