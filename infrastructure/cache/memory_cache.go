// Package cache provides the in-process caches for computed graph views.
package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MemoryCache is an LRU cache with per-item TTL. Values are stored as given,
// so a hit returns the very object that was cached.
type MemoryCache struct {
	mu       sync.Mutex
	items    map[string]*cacheItem
	lruList  *list.List
	maxItems int
	now      func() time.Time

	hits      int64
	misses    int64
	evictions int64

	logger *zap.Logger
}

type cacheItem struct {
	key        string
	value      interface{}
	expiry     time.Time
	lruElement *list.Element
}

// Stats holds cache counters
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Items     int     `json:"items"`
	HitRate   float64 `json:"hitRate"`
}

// Option configures a MemoryCache
type Option func(*MemoryCache)

// WithClock replaces time.Now, mainly for TTL tests
func WithClock(now func() time.Time) Option {
	return func(c *MemoryCache) { c.now = now }
}

// NewMemoryCache creates a cache holding at most maxItems entries
func NewMemoryCache(maxItems int, logger *zap.Logger, opts ...Option) *MemoryCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxItems <= 0 {
		maxItems = 1000
	}
	c := &MemoryCache{
		items:    make(map[string]*cacheItem),
		lruList:  list.New(),
		maxItems: maxItems,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a live value
func (c *MemoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[key]
	if !exists {
		c.misses++
		return nil, false
	}
	if !c.now().Before(item.expiry) {
		c.removeItem(item)
		c.misses++
		return nil, false
	}

	c.lruList.MoveToFront(item.lruElement)
	c.hits++
	return item.value, true
}

// Set stores a value for ttl, evicting the least recently used entry when full
func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.items[key]; ok {
		c.removeItem(existing)
	}
	for len(c.items) >= c.maxItems && c.lruList.Len() > 0 {
		oldest := c.lruList.Back()
		c.removeItem(oldest.Value.(*cacheItem))
		c.evictions++
	}

	item := &cacheItem{key: key, value: value, expiry: c.now().Add(ttl)}
	item.lruElement = c.lruList.PushFront(item)
	c.items[key] = item
}

// Delete removes a single key
func (c *MemoryCache) Delete(ctx context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, ok := c.items[key]; ok {
		c.removeItem(item)
	}
}

// Clear removes every key matching the pattern and returns how many went.
// Patterns support a single leading or trailing "*".
func (c *MemoryCache) Clear(ctx context.Context, pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, item := range c.items {
		if matchPattern(key, pattern) {
			c.removeItem(item)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug("Cleared cache entries",
			zap.String("pattern", pattern),
			zap.Int("count", removed),
		)
	}
	return removed
}

// GetStats returns cache counters
func (c *MemoryCache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	hitRate := 0.0
	if total := c.hits + c.misses; total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Items:     len(c.items),
		HitRate:   hitRate,
	}
}

// StartCleanup sweeps expired entries every interval until ctx is done
func (c *MemoryCache) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.cleanupExpired()
			}
		}
	}()
}

func (c *MemoryCache) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, item := range c.items {
		if !now.Before(item.expiry) {
			c.removeItem(item)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug("Cleaned up expired cache items", zap.Int("count", removed))
	}
}

// removeItem must be called with the lock held
func (c *MemoryCache) removeItem(item *cacheItem) {
	if item.lruElement != nil {
		c.lruList.Remove(item.lruElement)
	}
	delete(c.items, item.key)
}

func matchPattern(key, pattern string) bool {
	switch {
	case pattern == "*":
		return true
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(key, pattern[1:])
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(key, pattern[:len(pattern)-1])
	default:
		return key == pattern
	}
}
