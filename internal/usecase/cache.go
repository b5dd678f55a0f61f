package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jellydator/ttlcache/v3"
)

// Cache abstracts the Redis operations used by the use cases to make testing easier.
// A miss is reported as redis.Nil by every implementation.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Ping(ctx context.Context) error
}

// RedisCache is a concrete implementation backed by go-redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache constructs a new Redis-backed cache adapter.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Set writes a value to Redis.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a cached value from Redis.
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

// Ping checks the Redis connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// MemoryCache is an in-process Cache used when no Redis address is configured.
type MemoryCache struct {
	items *ttlcache.Cache[string, string]
}

// NewMemoryCache returns an empty in-process cache and starts its expiry
// loop. Call Close to stop it.
func NewMemoryCache() *MemoryCache {
	items := ttlcache.New[string, string](ttlcache.WithDisableTouchOnHit[string, string]())
	go items.Start()
	return &MemoryCache{items: items}
}

// Set stores value under key. A zero expiration keeps the entry forever.
func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		s = fmt.Sprint(v)
	}
	ttl := expiration
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	c.items.Set(key, s, ttl)
	return nil
}

// Get returns the value stored under key or redis.Nil.
func (c *MemoryCache) Get(ctx context.Context, key string) (string, error) {
	item := c.items.Get(key)
	if item == nil {
		return "", redis.Nil
	}
	return item.Value(), nil
}

// Ping always succeeds.
func (c *MemoryCache) Ping(ctx context.Context) error { return nil }

// Close stops the expiry loop.
func (c *MemoryCache) Close() error {
	c.items.Stop()
	return nil
}
