package locking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/payin/backend/internal/application/reconciliation"
	"github.com/payin/backend/internal/domain/shared"
)

// RedisLocker implements reconciliation.ExclusiveLocker on top of redislock.
// Acquisition is non-blocking: when another holder owns the key the attempt
// fails immediately with shared.ErrLockHeld.
type RedisLocker struct {
	client *redislock.Client
	logger *zap.Logger
}

// NewRedisLocker creates a locker backed by the given Redis client.
func NewRedisLocker(rdb redis.UniversalClient, logger *zap.Logger) *RedisLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{
		client: redislock.New(rdb),
		logger: logger,
	}
}

// Acquire obtains the named lock for at most ttl.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (reconciliation.LockHandle, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, shared.ErrLockHeld
		}
		return nil, fmt.Errorf("obtaining lock %s: %w", key, err)
	}
	return &redisLockHandle{lock: lock, logger: l.logger, key: key}, nil
}

type redisLockHandle struct {
	lock   *redislock.Lock
	logger *zap.Logger
	key    string
}

// Release frees the lock. A lock that already expired is not an error.
func (h *redisLockHandle) Release(ctx context.Context) error {
	if err := h.lock.Release(ctx); err != nil {
		if errors.Is(err, redislock.ErrLockNotHeld) {
			h.logger.Warn("lock expired before release", zap.String("key", h.key))
			return nil
		}
		return fmt.Errorf("releasing lock %s: %w", h.key, err)
	}
	return nil
}

var _ reconciliation.ExclusiveLocker = (*RedisLocker)(nil)
