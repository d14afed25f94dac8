// Package cache provides a small expiring key/value store used to hold
// short-lived OAuth2 tokens between action executions.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is an in-memory, lazily-expiring map. Grounded on
// core/memory_store.go's MemoryStore (map of entry{value, expiresAt},
// expiry checked on Get), generalized to a type parameter since token
// cache values are structs (oauth2.Token), not strings.
type TTLCache[V any] struct {
	mu    sync.Mutex
	store map[string]entry[V]
}

func New[V any]() *TTLCache[V] {
	return &TTLCache[V]{store: make(map[string]entry[V])}
}

// Get returns the cached value for key if present and not expired.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.store[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(c.store, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the given time-to-live. A zero or
// negative ttl means the entry never expires.
func (c *TTLCache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	c.store[key] = entry[V]{value: value, expiresAt: expiresAt}
}

// Delete removes key, if present.
func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
}
