package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/wms/backend/internal/infrastructure/config"
)

// NewResponseStore returns a Redis store when Redis is enabled and
// reachable, and an in-memory store otherwise.
func NewResponseStore(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) ResponseStore {
	if !cfg.Enabled {
		logger.Info("Redis disabled, using in-memory idempotency store")
		return NewInMemoryResponseStore(0)
	}

	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Warn("Redis unavailable, falling back to in-memory idempotency store. "+
			"Replays are not shared between instances.",
			zap.Error(err),
		)
		return NewInMemoryResponseStore(0)
	}

	logger.Info("Using Redis idempotency store", zap.String("addr", cfg.Addr()))
	return NewRedisResponseStore(client, "")
}
