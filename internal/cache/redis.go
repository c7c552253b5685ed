package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"example.com/disasterwatch/services/alerts/config"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// ErrCacheMiss is returned when a key is absent or caching is disabled
var ErrCacheMiss = errors.New("cache miss")

// RedisCache provides caching using Redis
type RedisCache struct {
	client  *redis.Client
	enabled bool
}

// NewRedisCache creates a new Redis cache. With caching disabled in
// config, every Get reports a miss and writes are dropped.
func NewRedisCache(cfg config.RedisConfig) (*RedisCache, error) {
	if !cfg.Enabled {
		return &RedisCache{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	return &RedisCache{client: client, enabled: true}, nil
}

// Get retrieves a JSON value from cache into value
func (c *RedisCache) Get(ctx context.Context, key string, value interface{}) error {
	if c == nil || !c.enabled {
		return ErrCacheMiss
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		return errors.Wrap(err, "failed to get value from Redis")
	}

	if err := json.Unmarshal(data, value); err != nil {
		return errors.Wrap(err, "failed to unmarshal cached value")
	}
	return nil
}

// Set stores a JSON-encoded value with a TTL
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c == nil || !c.enabled {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "failed to marshal value for cache")
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to set value in Redis")
	}
	return nil
}

// Delete removes keys from the cache
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || !c.enabled || len(keys) == 0 {
		return nil
	}
	return errors.Wrap(c.client.Del(ctx, keys...).Err(), "failed to delete cache keys")
}
