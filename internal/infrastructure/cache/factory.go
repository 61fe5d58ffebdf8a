package cache

import (
	"fmt"

	"github.com/scafi/backend/internal/domain/shared"
	"github.com/scafi/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewIdempotencyStore creates the idempotency store for the configured
// deployment. Redis is preferred; when it is unavailable and fallback is
// allowed, an in-memory store is used instead so a Redis outage does not
// take the whole adapter down.
func NewIdempotencyStore(cfg config.RedisConfig, allowInMemoryFallback bool, logger *zap.Logger) (shared.IdempotencyStore, error) {
	store, err := NewRedisIdempotencyStore(cfg)
	if err == nil {
		logger.Info("using Redis idempotency store",
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port))
		return store, nil
	}

	if !allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for idempotency but unavailable: %w", err)
	}

	logger.Warn("Redis unavailable, falling back to in-memory idempotency store; "+
		"duplicate requests will not be detected across instances",
		zap.Error(err))
	return NewInMemoryIdempotencyStore(), nil
}
