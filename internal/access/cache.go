package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultRoleTTL = 15 * time.Minute

// RoleCache shares resolved roles across sessions.
type RoleCache interface {
	Get(ctx context.Context, email string) (role string, ok bool, err error)
	Set(ctx context.Context, email, role string) error
}

type memoryEntry struct {
	role    string
	expires time.Time
}

// MemoryCache is a process-local RoleCache with expiry.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

func NewMemoryCache(ttl time.Duration, now func() time.Time) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultRoleTTL
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{ttl: ttl, now: now, entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(ctx context.Context, email string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey(email)
	entry, ok := c.entries[key]
	if !ok {
		return "", false, nil
	}
	if c.now().After(entry.expires) {
		delete(c.entries, key)
		return "", false, nil
	}
	return entry.role, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, email, role string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(email)] = memoryEntry{role: role, expires: c.now().Add(c.ttl)}
	return nil
}

// RedisCache stores roles in Redis under "role:<email>" with a TTL.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to redisURL and verifies the connection.
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisCacheWithClient(client, ttl), nil
}

func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultRoleTTL
	}
	return &RedisCache{client: client, prefix: "role:", ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, email string) (string, bool, error) {
	role, err := c.client.Get(ctx, c.prefix+cacheKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get cached role: %w", err)
	}
	return role, true, nil
}

func (c *RedisCache) Set(ctx context.Context, email, role string) error {
	if err := c.client.Set(ctx, c.prefix+cacheKey(email), role, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache role: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func cacheKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var (
	_ RoleCache = (*MemoryCache)(nil)
	_ RoleCache = (*RedisCache)(nil)
)
