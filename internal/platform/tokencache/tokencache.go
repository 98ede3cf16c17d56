/*
Package tokencache caches destination lookups that are expensive to repeat.
Its one caller caches a post's destination content token, so a file already
uploaded is not uploaded again; reverse-image-search results are not cached.

Two implementations satisfy [Cache]:

  - an in-memory map, the default, scoped to a single process;
  - an optional Redis-backed cache (see [NewRedisCache]), so multiple
    ingestion workers running against the same destination share content
    tokens instead of each re-uploading a file another worker already
    uploaded.
*/
package tokencache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores short-lived lookup results keyed by an arbitrary string
// (typically an MD5 or a source post id).
type Cache interface {
	// Get returns the cached value for key and true, or false if absent or expired.
	Get(ctx context.Context, key string) (string, bool)
	// Set stores value for key with the given time-to-live.
	Set(ctx context.Context, key string, value string, ttl time.Duration)
}

// MemoryCache is the default, process-local [Cache] implementation.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memEntry
}

type memEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryCache constructs an empty in-memory [Cache].
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memEntry)}
}

// Get implements [Cache].
func (c *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return "", false
	}
	return e.value, true
}

// Set implements [Cache].
func (c *MemoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memEntry{value: value, expiresAt: time.Now().Add(ttl)}
}

// RedisCache is a [Cache] backed by a shared Redis instance, for sync jobs
// that run as multiple concurrent worker processes against one destination.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache wraps client as a [Cache], namespacing every key under prefix.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

// Get implements [Cache].
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, c.namespaced(key)).Result()
	if err != nil {
		return "", false
	}

	var decoded string
	if err := json.Unmarshal([]byte(val), &decoded); err != nil {
		return val, true
	}
	return decoded, true
}

// Set implements [Cache].
func (c *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.namespaced(key), encoded, ttl)
}

func (c *RedisCache) namespaced(key string) string {
	return fmt.Sprintf("%s:%s", c.prefix, key)
}
