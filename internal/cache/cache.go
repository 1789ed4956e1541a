// Package cache provides the read-mostly lookup caches used for identity and
// shared-suite resolution. Caches are explicit objects handed to their owner
// at construction, never ambient globals: created at process start, dropped
// at shutdown.
package cache

import "sync"

// Cache is a concurrency-safe string-keyed map with single-writer
// invalidation. Entries are evicted synchronously right after the
// corresponding store write commits, never before, so readers may see a
// stale entry only until that point.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
}

// New returns an empty cache.
func New[V any]() *Cache[V] {
	return &Cache[V]{entries: make(map[string]V)}
}

// Get returns the cached value for key.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put stores a value under key.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// Invalidate evicts key.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear evicts everything.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]V)
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
