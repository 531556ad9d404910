package data

import (
	"context"
	"sync"
	"time"
)

type memCacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemCache is an in-memory CacheRepository used by dev mode and tests when no
// Redis is configured.
type MemCache struct {
	mu           sync.Mutex
	entries      map[string]memCacheEntry
	timeProvider TimeProvider
}

// NewMemCache creates an empty in-memory cache.
func NewMemCache(tp TimeProvider) *MemCache {
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &MemCache{entries: make(map[string]memCacheEntry), timeProvider: tp}
}

// Set stores a value with the given TTL. A non-positive TTL means no expiry.
func (c *MemCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := memCacheEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = c.timeProvider.Now().Add(ttl)
	}
	c.entries[key] = entry
	return nil
}

// Get returns the cached value, or nil when missing or expired.
func (c *MemCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && c.timeProvider.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, nil
	}
	return append([]byte(nil), entry.value...), nil
}

// Delete removes a key.
func (c *MemCache) Delete(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok, nil
}
