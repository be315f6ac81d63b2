// Package cache keeps recently fetched author lookups in memory so repeated
// rule applications within a run do not hit the authoring API again.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// entry is a single cached value
type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
	element   *list.Element
}

func (e *entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Cache is an LRU cache with per-entry TTL, safe for concurrent use
type Cache[V any] struct {
	mu         sync.Mutex
	entries    map[string]*entry[V]
	lru        *list.List
	maxSize    int
	defaultTTL time.Duration
	stats      Stats
	now        func() time.Time
}

// Stats tracks cache effectiveness
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Expirations int64
	Size        int
}

// HitRatio returns hits over total lookups, or 0 before any lookup
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Config holds cache configuration options
type Config struct {
	MaxSize    int
	DefaultTTL time.Duration
}

// DefaultConfig returns sensible defaults for cache configuration
func DefaultConfig() Config {
	return Config{
		MaxSize:    5000,
		DefaultTTL: 10 * time.Minute,
	}
}

// New creates a cache with the given configuration
func New[V any](config Config) *Cache[V] {
	if config.MaxSize <= 0 {
		config.MaxSize = DefaultConfig().MaxSize
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = DefaultConfig().DefaultTTL
	}

	return &Cache[V]{
		entries:    make(map[string]*entry[V]),
		lru:        list.New(),
		maxSize:    config.MaxSize,
		defaultTTL: config.DefaultTTL,
		now:        time.Now,
	}
}

// Get retrieves a value and marks it as recently used
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return zero, false
	}
	if e.expired(c.now()) {
		c.removeLocked(e)
		c.stats.Misses++
		c.stats.Expirations++
		return zero, false
	}

	c.lru.MoveToFront(e.element)
	c.stats.Hits++
	return e.value, true
}

// Set stores a value with the default TTL
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores a value with a custom TTL; ttl <= 0 never expires
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.lru.MoveToFront(e.element)
		return
	}

	e := &entry[V]{key: key, value: value, expiresAt: expiresAt}
	e.element = c.lru.PushFront(e)
	c.entries[key] = e

	for len(c.entries) > c.maxSize {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest.Value.(*entry[V]))
		c.stats.Evictions++
	}
}

// GetOrSet returns the cached value for key or stores the provider's result.
// Provider errors are returned and nothing is cached.
func (c *Cache[V]) GetOrSet(key string, provider func() (V, error)) (V, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}

	value, err := provider()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, value)
	return value, nil
}

// Delete removes a key, reporting whether it was present
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeLocked(e)
	return true
}

// Clear removes all entries
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry[V])
	c.lru = list.New()
}

// Len returns the current number of entries
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of cache statistics
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = len(c.entries)
	return stats
}

// ExpireEntries drops every expired entry and returns how many were removed
func (c *Cache[V]) ExpireEntries() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, e := range c.entries {
		if e.expired(now) {
			c.removeLocked(e)
			c.stats.Expirations++
			removed++
		}
	}
	return removed
}

// StartCleanup expires entries every interval until ctx is done
func (c *Cache[V]) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.ExpireEntries()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// removeLocked must be called with c.mu held
func (c *Cache[V]) removeLocked(e *entry[V]) {
	delete(c.entries, e.key)
	c.lru.Remove(e.element)
}
