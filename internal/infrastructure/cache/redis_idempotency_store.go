package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/netesim/backend/internal/domain/shared"
	"github.com/netesim/backend/internal/infrastructure/config"
)

const deliveryKeyPrefix = "webhook:delivery:"

// RedisIdempotencyStore tracks processed webhook delivery IDs in Redis.
// Suitable for deployments where multiple instances receive the same
// webhook topic and must share dedup state.
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisIdempotencyStore connects to Redis and verifies the connection
// before returning a store.
func NewRedisIdempotencyStore(cfg config.RedisConfig) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: deliveryKeyPrefix,
	}, nil
}

// NewRedisIdempotencyStoreWithClient wraps an existing Redis client.
// Useful for testing or when sharing a client across components.
func NewRedisIdempotencyStoreWithClient(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = deliveryKeyPrefix
	}
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// MarkProcessed records a delivery ID with a TTL.
// Returns true if the delivery was newly marked, false if it was already seen.
// SETNX makes the check-and-set atomic across instances.
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, deliveryID string, ttl time.Duration) (bool, error) {
	key := s.keyPrefix + deliveryID

	result, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark delivery as processed: %w", err)
	}

	return result, nil
}

// IsProcessed checks whether a delivery ID has already been seen.
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, deliveryID string) (bool, error) {
	key := s.keyPrefix + deliveryID

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check delivery: %w", err)
	}

	return exists > 0, nil
}

// Close closes the Redis client.
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
