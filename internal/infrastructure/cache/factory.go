package cache

import (
	"go.uber.org/zap"

	"github.com/netesim/backend/internal/domain/shared"
	"github.com/netesim/backend/internal/infrastructure/config"
)

// NewIdempotencyStore selects the delivery dedup backend from configuration.
// When Redis is enabled but unreachable the in-memory store is used instead,
// with a warning; the order ledger remains the durable idempotency guard, so
// losing dedup state only costs extra handler invocations.
func NewIdempotencyStore(cfg config.RedisConfig, logger *zap.Logger) shared.IdempotencyStore {
	if logger == nil {
		logger = zap.NewNop()
	}

	if !cfg.Enabled {
		logger.Info("using in-memory webhook dedup store")
		return NewInMemoryIdempotencyStore()
	}

	store, err := NewRedisIdempotencyStore(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, falling back to in-memory webhook dedup store",
			zap.String("addr", cfg.Addr()),
			zap.Error(err),
		)
		return NewInMemoryIdempotencyStore()
	}

	logger.Info("using Redis webhook dedup store", zap.String("addr", cfg.Addr()))
	return store
}
