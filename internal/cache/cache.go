package cache

import (
	"sync"
	"time"
)

// entry is a cached payload with its creation time and validity window.
type entry struct {
	data      any
	timestamp time.Time
	ttl       time.Duration
}

// Cache is a bounded in-memory store with per-entry TTL.
//
// Expired entries are never swept in the background; they are discovered and
// removed lazily on Get. When an insert pushes the cache past its maximum
// size, the oldest-inserted entry is evicted (insertion order, not access
// order), regardless of its remaining TTL.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	order      []string // keys in insertion order; front is oldest
	maxEntries int
	defaultTTL time.Duration

	// now is replaceable in tests
	now func() time.Time
}

// New creates a cache holding at most maxEntries entries, using defaultTTL
// for entries inserted without an explicit TTL.
func New(maxEntries int, defaultTTL time.Duration) *Cache {
	return &Cache{
		entries:    make(map[string]*entry),
		order:      make([]string, 0, maxEntries),
		maxEntries: maxEntries,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get returns the cached payload for key if present and unexpired.
// An expired entry is deleted on discovery, so Get mutates the cache.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if c.now().Sub(e.timestamp) > e.ttl {
		c.remove(key)
		return nil, false
	}

	return e.data, true
}

// Set inserts or overwrites the entry for key with a fresh timestamp.
// If the insert breaches the size bound, exactly one entry - the oldest
// inserted - is evicted.
func (c *Cache) Set(key string, data any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		c.order = append(c.order, key)
	}
	c.entries[key] = &entry{data: data, timestamp: c.now(), ttl: ttl}

	if len(c.entries) > c.maxEntries {
		c.remove(c.order[0])
	}
}

// Clear empties the cache unconditionally.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	c.order = c.order[:0]
}

// Len returns the number of entries currently held, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// remove deletes key from both the map and the insertion-order queue.
// Caller must hold the lock.
func (c *Cache) remove(key string) {
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
