// Package lock provides keyed locks: Redis-backed for multi-instance
// deployments and an in-process version otherwise.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	appshared "github.com/erp/bomengine/internal/application/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "bomengine:lock:"

// RedisLocker obtains locks through bsm/redislock
type RedisLocker struct {
	client *redislock.Client
	retry  redislock.RetryStrategy
	logger *zap.Logger
}

// NewRedisLocker creates a locker on client. Obtain retries every 50ms, up
// to 40 times.
func NewRedisLocker(client redis.UniversalClient, log *zap.Logger) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(client),
		retry:  redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 40),
		logger: log,
	}
}

// Obtain acquires key for ttl
func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (appshared.Lock, error) {
	lk, err := l.client.Obtain(ctx, keyPrefix+key, ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		l.logger.Warn("lock contention", zap.String("lock_key", key))
		return nil, appshared.NewLockNotObtainedError(key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}
	return &redisLock{lock: lk}, nil
}

type redisLock struct {
	lock *redislock.Lock
}

// Release frees the lock. A lock that already expired is not an error.
func (l *redisLock) Release(ctx context.Context) error {
	err := l.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}
	return err
}

var _ appshared.Locker = (*RedisLocker)(nil)
