package utils

import (
	"sync"
	"time"
)

// Cache is a small in-process TTL cache keyed by string. It backs the price
// and rate caches when no redis endpoint is configured.
type Cache[T any] struct {
	mutex   sync.RWMutex
	entries map[string]cacheEntry[T]
}

type cacheEntry[T any] struct {
	value      T
	expiration time.Time
}

// NewCache initializes an empty cache.
func NewCache[T any]() *Cache[T] {
	return &Cache[T]{
		entries: make(map[string]cacheEntry[T]),
	}
}

// Set stores value under key for the given duration.
func (c *Cache[T]) Set(key string, value T, duration time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = cacheEntry[T]{
		value:      value,
		expiration: time.Now().Add(duration),
	}
}

// Get retrieves the value for key if present and not expired.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiration) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Delete removes key from the cache.
func (c *Cache[T]) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.entries, key)
}
