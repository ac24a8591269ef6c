package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient connects to the configured Redis and pings it
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// NewIdempotencyStore returns a Redis store when client is non-nil and the
// in-memory store otherwise
func NewIdempotencyStore(client *redis.Client, log *zap.Logger) shared.IdempotencyStore {
	if client != nil {
		log.Info("using Redis idempotency store")
		return NewRedisIdempotencyStore(client, DefaultKeyPrefix)
	}
	log.Warn("Redis not configured, idempotency keys are kept in process")
	return NewInMemoryIdempotencyStore()
}
