package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultAssetKeyPrefix = "letter:asset:"

// RedisAssetCache implements AssetCache using Redis.
// It lets several service instances share fetched letterhead and signature images.
type RedisAssetCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisAssetCache connects to Redis and creates an asset cache
func NewRedisAssetCache(cfg RedisConfig, ttl time.Duration) (*RedisAssetCache, error) {
	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewRedisAssetCacheWithClient(client, "", ttl), nil
}

// NewRedisAssetCacheWithClient creates a cache with an existing Redis client
func NewRedisAssetCacheWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisAssetCache {
	if keyPrefix == "" {
		keyPrefix = defaultAssetKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultAssetCacheConfig().TTL
	}
	return &RedisAssetCache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

func (c *RedisAssetCache) key(ref string) string {
	return c.keyPrefix + ref
}

// Get retrieves an inline asset
func (c *RedisAssetCache) Get(ctx context.Context, ref string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.key(ref)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read asset from Redis: %w", err)
	}
	return val, true, nil
}

// Set stores an inline asset with the cache TTL
func (c *RedisAssetCache) Set(ctx context.Context, ref string, inline string) error {
	if err := c.client.Set(ctx, c.key(ref), inline, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write asset to Redis: %w", err)
	}
	return nil
}

// Delete removes an inline asset
func (c *RedisAssetCache) Delete(ctx context.Context, ref string) error {
	if err := c.client.Del(ctx, c.key(ref)).Err(); err != nil {
		return fmt.Errorf("failed to delete asset from Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisAssetCache) Close() error {
	return c.client.Close()
}

var _ AssetCache = (*RedisAssetCache)(nil)
