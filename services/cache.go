package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/punguzo/mlm_backend/logging"
)

// Cache stores JSON-encodable values with a TTL.
type Cache interface {
	// Get decodes the cached value into dest and reports whether it was present.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}

// NopCache never stores anything. Used when Redis is unavailable.
type NopCache struct{}

func (NopCache) Get(context.Context, string, interface{}) (bool, error)          { return false, nil }
func (NopCache) Set(context.Context, string, interface{}, time.Duration) error { return nil }

// NewCache returns a Redis backed cache, or a NopCache when client is nil.
func NewCache(client *redis.Client) Cache {
	if client == nil {
		return NopCache{}
	}
	return NewRedisCache(client)
}

// remember returns the cached value for key or computes and stores it. Cache errors
// degrade to a recompute.
func remember[T any](ctx context.Context, cache Cache, key string, ttl time.Duration, compute func() (T, error)) (T, error) {
	var cached T
	hit, err := cache.Get(ctx, key, &cached)
	if err != nil {
		logging.Logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		return cached, nil
	}

	value, err := compute()
	if err != nil {
		return value, err
	}
	if err := cache.Set(ctx, key, value, ttl); err != nil {
		logging.Logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}
