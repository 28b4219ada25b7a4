// Package cache keeps pre-rendered static responses in memory, bounded by
// entry count, total bytes and a per-entry ceiling. Eviction is strictly
// least-recently-used.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Limits bound the cache.
type Limits struct {
	MaxEntries    int
	MaxBytes      int
	MaxEntryBytes int
}

// DefaultLimits suit a device with a few hundred KB of spare memory.
var DefaultLimits = Limits{MaxEntries: 3, MaxBytes: 15000, MaxEntryBytes: 8192}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries   int    `json:"entries"`
	Bytes     int    `json:"bytes"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

type entry struct {
	content    []byte
	lastAccess time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	lru    *simplelru.LRU[string, *entry]
	limits Limits
	bytes  int

	hits, misses, evictions uint64

	now func() time.Time
}

// New returns an empty cache.
func New(limits Limits) (*Cache, error) {
	if limits.MaxEntries <= 0 || limits.MaxBytes <= 0 || limits.MaxEntryBytes <= 0 {
		return nil, fmt.Errorf("cache limits must be positive: %+v", limits)
	}
	if limits.MaxEntryBytes > limits.MaxBytes {
		return nil, fmt.Errorf("per-entry ceiling %d exceeds total %d", limits.MaxEntryBytes, limits.MaxBytes)
	}
	c := &Cache{limits: limits, now: time.Now}
	lru, err := simplelru.NewLRU[string, *entry](limits.MaxEntries, func(_ string, e *entry) {
		c.bytes -= len(e.content)
	})
	if err != nil {
		return nil, err
	}
	c.lru = lru
	return c, nil
}

// Get returns the cached content for key and marks it most recently used.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	e.lastAccess = c.now()
	return e.content, true
}

// Add inserts content under key, evicting least-recently-used entries until
// both bounds hold. Content above the per-entry ceiling is not cached and
// Add returns false.
func (c *Cache) Add(key string, content []byte) bool {
	if len(content) > c.limits.MaxEntryBytes {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Replacing a key does not fire the eviction callback.
	if old, ok := c.lru.Peek(key); ok {
		c.bytes -= len(old.content)
	}
	if evicted := c.lru.Add(key, &entry{content: content, lastAccess: c.now()}); evicted {
		c.evictions++
	}
	c.bytes += len(content)

	for c.bytes > c.limits.MaxBytes {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
		c.evictions++
	}
	return true
}

// Fetch returns the cached content for key, calling load on a miss and
// caching its result when it fits.
func (c *Cache) Fetch(key string, load func() ([]byte, error)) ([]byte, error) {
	if content, ok := c.Get(key); ok {
		return content, nil
	}
	content, err := load()
	if err != nil {
		return nil, err
	}
	c.Add(key, content)
	return content, nil
}

// Contains reports presence without touching recency.
func (c *Cache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Contains(key)
}

// Remove drops key.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

// TrimIdle drops entries not accessed within maxIdle and returns how many
// were dropped.
func (c *Cache) TrimIdle(maxIdle time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-maxIdle)
	dropped := 0
	for _, key := range c.lru.Keys() {
		e, ok := c.lru.Peek(key)
		if ok && e.lastAccess.Before(cutoff) {
			c.lru.Remove(key)
			dropped++
		}
	}
	return dropped
}

// Purge empties the cache.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Stats returns current counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:   c.lru.Len(),
		Bytes:     c.bytes,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
