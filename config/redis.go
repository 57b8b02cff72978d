package config

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/punguzo/mlm_backend/logging"
)

var RedisClient *redis.Client

// ConnectRedis establishes connection to Redis. It returns nil when Redis is unreachable;
// callers then run without the recommendation cache.
func ConnectRedis(cfg *Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logging.Logger.Warn("redis connection failed, recommendation cache disabled", zap.Error(err))
		client.Close()
		return nil
	}

	logging.Logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))
	RedisClient = client
	return client
}

// CloseRedis closes the Redis connection
func CloseRedis() {
	if RedisClient != nil {
		RedisClient.Close()
	}
}
