// Package tokencache stores the CRM access token between requests so the
// OAuth refresh flow runs once per token lifetime, not once per call.
// The Redis backend shares the token across lead service replicas; the
// memory backend serves single-instance and test deployments.
package tokencache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKey = "leadsvc:crm:access_token"

// Cache stores one access token with a TTL. Get returns "" without an
// error on a miss.
type Cache interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string, ttl time.Duration) error
	Close() error
}

// RedisCache stores the token in Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Get(ctx context.Context) (string, error) {
	token, err := c.client.Get(ctx, redisKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

func (c *RedisCache) Set(ctx context.Context, token string, ttl time.Duration) error {
	return c.client.Set(ctx, redisKey, token, ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// MemoryCache stores the token in process memory.
type MemoryCache struct {
	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Get(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || time.Now().After(c.expiry) {
		return "", nil
	}
	return c.token, nil
}

func (c *MemoryCache) Set(ctx context.Context, token string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.expiry = time.Now().Add(ttl)
	return nil
}

func (c *MemoryCache) Close() error {
	return nil
}
