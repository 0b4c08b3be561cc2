package scanner

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResultCache stores scan results keyed by (hostname, scanKind) with a
// per-kind TTL. The default backend is an in-process map; RedisResultCache
// backs the same interface with a shared store for multi-process
// deployments. Nothing selects RedisResultCache automatically (no
// environment variable or config key); a caller passes it to New.
type ResultCache interface {
	Get(ctx context.Context, hostname, scanKind string) (map[string]any, bool)
	Set(ctx context.Context, hostname, scanKind string, data map[string]any, ttl time.Duration)
}

type cacheEntry struct {
	data      map[string]any
	expiresAt time.Time
}

// MemoryCache is the default in-process ResultCache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]cacheEntry)}
}

func (c *MemoryCache) Get(_ context.Context, hostname, scanKind string) (map[string]any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[cacheKey(hostname, scanKind)]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.data, true
}

func (c *MemoryCache) Set(_ context.Context, hostname, scanKind string, data map[string]any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(hostname, scanKind)] = cacheEntry{data: data, expiresAt: time.Now().Add(ttl)}
}

func cacheKey(hostname, scanKind string) string { return hostname + "|" + scanKind }

// RedisResultCache backs ResultCache with a Redis server, for deployments
// running more than one merlya-agentd process against the same hosts.
type RedisResultCache struct {
	client *redis.Client
	prefix string
}

// NewRedisResultCache wraps an existing redis client.
func NewRedisResultCache(client *redis.Client) *RedisResultCache {
	return &RedisResultCache{client: client, prefix: "merlya:scan:"}
}

func (c *RedisResultCache) Get(ctx context.Context, hostname, scanKind string) (map[string]any, bool) {
	raw, err := c.client.Get(ctx, c.prefix+cacheKey(hostname, scanKind)).Bytes()
	if err != nil {
		return nil, false
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, false
	}
	return data, true
}

func (c *RedisResultCache) Set(ctx context.Context, hostname, scanKind string, data map[string]any, ttl time.Duration) {
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.prefix+cacheKey(hostname, scanKind), raw, ttl)
}
