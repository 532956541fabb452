package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/payments/backend/internal/domain/shared"
	"github.com/payments/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const inMemorySweepInterval = 5 * time.Minute

// NewIdempotencyStore returns a Redis-backed store when Redis is configured,
// and an in-memory store otherwise. In production an unreachable Redis is
// an error; elsewhere the in-memory store is used with a warning.
func NewIdempotencyStore(ctx context.Context, cfg config.RedisConfig, production bool, logger *zap.Logger) (shared.IdempotencyStore, error) {
	if cfg.Host == "" {
		logger.Info("Redis not configured, using in-memory webhook idempotency store")
		return NewInMemoryIdempotencyStore(inMemorySweepInterval), nil
	}

	client, err := NewRedisClient(ctx, cfg)
	if err == nil {
		logger.Info("Using Redis webhook idempotency store", zap.String("addr", cfg.Addr()))
		return NewRedisIdempotencyStore(client, DefaultKeyPrefix), nil
	}

	if production {
		return nil, fmt.Errorf("redis required for webhook idempotency: %w", err)
	}

	logger.Warn("Redis unavailable, falling back to in-memory webhook idempotency store",
		zap.Error(err))
	return NewInMemoryIdempotencyStore(inMemorySweepInterval), nil
}
