package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/scafi/backend/internal/domain/shared"
	"github.com/scafi/backend/internal/infrastructure/config"
)

// defaultKeyPrefix namespaces integration request ids in Redis
const defaultKeyPrefix = "integration:request:"

// RedisIdempotencyStore implements IdempotencyStore on Redis so duplicate
// detection survives restarts and works across multiple instances.
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisIdempotencyStore creates a Redis-backed store and verifies the
// connection before returning.
func NewRedisIdempotencyStore(cfg config.RedisConfig) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisIdempotencyStore{client: client, keyPrefix: defaultKeyPrefix}, nil
}

// NewRedisIdempotencyStoreWithClient creates a store around an existing client.
// Useful for testing or when sharing a client across components.
func NewRedisIdempotencyStoreWithClient(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisIdempotencyStore{client: client, keyPrefix: keyPrefix}
}

// MarkProcessed records a request id with a TTL using SETNX, so concurrent
// submissions of the same id resolve to exactly one winner.
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, requestID string, ttl time.Duration) (bool, error) {
	result, err := s.client.SetNX(ctx, s.keyPrefix+requestID, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark request as processed: %w", err)
	}
	return result, nil
}

// IsProcessed reports whether a request id has already been recorded.
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, requestID string) (bool, error) {
	exists, err := s.client.Exists(ctx, s.keyPrefix+requestID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check request id: %w", err)
	}
	return exists > 0, nil
}

// Close closes the Redis client
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
