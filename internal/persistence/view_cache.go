package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ViewCache is a JSON-backed Redis cache for read projections of type T.
// A zero TTL stores keys without expiry.
type ViewCache[T any] struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewViewCache creates a ViewCache backed by the provided Redis client.
func NewViewCache[T any](client *redis.Client, ttl time.Duration, logger *zap.Logger) *ViewCache[T] {
	return &ViewCache[T]{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached value, or false on a miss or decode failure.
func (c *ViewCache[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("view cache read failed", zap.String("key", key), zap.Error(err))
		}
		return zero, false
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		c.logger.Warn("view cache decode failed", zap.String("key", key), zap.Error(err))
		return zero, false
	}
	return value, true
}

// Set stores value under key. Write failures are logged, never returned.
func (c *ViewCache[T]) Set(ctx context.Context, key string, value T) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("view cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("view cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes key.
func (c *ViewCache[T]) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("view cache delete failed", zap.String("key", key), zap.Error(err))
	}
}
