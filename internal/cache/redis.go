package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache caches responses in Redis with a TTL. All failures degrade to
// cache misses and are logged at debug level.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisCache connects to the Redis instance at addr and verifies the
// connection.
func NewRedisCache(ctx context.Context, addr, password string, db int, logger *slog.Logger) (*RedisCache, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisCache{client: client, logger: logger}, nil
}

// Get returns the cached value for key, or a miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Debug("cache get failed", "key", key, "error", err)
		return nil, false
	}
	return val, true
}

// Set stores value under key for ttl.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Debug("cache set failed", "key", key, "error", err)
	}
}

// Close releases the client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
