package router

import (
	"container/list"
	"sync"

	"github.com/wyrexdev/velox/internal/dispatch"
)

// CacheStats reports the state of a match cache.
type CacheStats struct {
	Policy   string `json:"policy"`
	Capacity int    `json:"capacity"`
	Size     int    `json:"size"`
}

// matchCache memoizes successful route resolutions keyed "METHOD:PATH".
// Implementations are safe for concurrent use. The key passed to get
// may be a transient view into a pooled buffer and must not be
// retained; add always receives an owned string.
type matchCache interface {
	get(key string) (*dispatch.Match, bool)
	add(key string, match *dispatch.Match)
	purge()
	stats() CacheStats
}

// newMatchCache builds a cache for the configured policy. A capacity
// of zero or less disables caching.
func newMatchCache(policy string, capacity int) matchCache {
	if capacity <= 0 {
		return noopCache{}
	}

	if policy == CachePolicyNone {
		return newFixedCache(capacity)
	}

	return newLRUCache(capacity)
}

// noopCache is the disabled cache. Every lookup misses.
type noopCache struct{}

func (noopCache) get(string) (*dispatch.Match, bool) { return nil, false }
func (noopCache) add(string, *dispatch.Match)        {}
func (noopCache) purge()                             {}

func (noopCache) stats() CacheStats {
	return CacheStats{Policy: "disabled"}
}

// lruCache is a bounded cache that evicts the least recently used
// entry when full. Lookups promote entries to most recently used, so
// reads take the write lock too.
type lruCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List
	metrics  *matchCacheMetrics
}

// lruEntry is the element payload, carrying the key for reverse
// lookup on eviction.
type lruEntry struct {
	key   string
	match *dispatch.Match
}

func newLRUCache(capacity int) *lruCache {
	return &lruCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
		metrics:  getMatchCacheMetrics(),
	}
}

func (c *lruCache) get(key string) (*dispatch.Match, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.metrics.cacheMisses.Inc()
		return nil, false
	}

	c.order.MoveToFront(elem)
	c.metrics.cacheHits.Inc()
	return elem.Value.(*lruEntry).match, true
}

func (c *lruCache) add(key string, match *dispatch.Match) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*lruEntry).match = match
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*lruEntry).key)
			c.metrics.cacheEvictions.Inc()
		}
	}

	c.entries[key] = c.order.PushFront(&lruEntry{key: key, match: match})
	c.metrics.cacheSize.Set(float64(c.order.Len()))
}

func (c *lruCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element, c.capacity)
	c.order.Init()
	c.metrics.cacheSize.Set(0)
}

func (c *lruCache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Policy:   CachePolicyLRU,
		Capacity: c.capacity,
		Size:     c.order.Len(),
	}
}

// fixedCache is a bounded cache that admits entries until it is full
// and never evicts. Resolutions for paths that arrive after the cache
// fills are recomputed on every request until the cache is reset.
type fixedCache struct {
	mu       sync.RWMutex
	capacity int
	entries  map[string]*dispatch.Match
	metrics  *matchCacheMetrics
}

func newFixedCache(capacity int) *fixedCache {
	return &fixedCache{
		capacity: capacity,
		entries:  make(map[string]*dispatch.Match, capacity),
		metrics:  getMatchCacheMetrics(),
	}
}

func (c *fixedCache) get(key string) (*dispatch.Match, bool) {
	c.mu.RLock()
	match, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.metrics.cacheMisses.Inc()
		return nil, false
	}

	c.metrics.cacheHits.Inc()
	return match, true
}

func (c *fixedCache) add(key string, match *dispatch.Match) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.capacity {
		return
	}

	c.entries[key] = match
	c.metrics.cacheSize.Set(float64(len(c.entries)))
}

func (c *fixedCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*dispatch.Match, c.capacity)
	c.metrics.cacheSize.Set(0)
}

func (c *fixedCache) stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return CacheStats{
		Policy:   CachePolicyNone,
		Capacity: c.capacity,
		Size:     len(c.entries),
	}
}
