package geo

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

type cacheEntry struct {
	ip        string
	loc       Location
	found     bool
	expiresAt time.Time
}

// Cache is a thread-safe LRU of lookup results with TTL expiry. Misses in
// the database are cached too so repeat visitors from unmapped ranges stay
// cheap.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time

	lru   *list.List
	items map[string]*list.Element

	hits   atomic.Uint64
	misses atomic.Uint64
	evicts atomic.Uint64
}

type CacheConfig struct {
	Capacity int           // default 10000
	TTL      time.Duration // default 1h
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{Capacity: 10000, TTL: time.Hour}
}

func NewCache(cfg CacheConfig) *Cache {
	def := DefaultCacheConfig()
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	return &Cache{
		capacity: cfg.Capacity,
		ttl:      cfg.TTL,
		now:      time.Now,
		lru:      list.New(),
		items:    make(map[string]*list.Element, cfg.Capacity),
	}
}

// Get returns the cached result for ip. cached is false on a miss or expiry.
func (c *Cache) Get(ip string) (loc Location, found, cached bool) {
	if ip == "" {
		return Location{}, false, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[ip]
	if !ok {
		c.misses.Add(1)
		return Location{}, false, false
	}
	entry := elem.Value.(*cacheEntry)
	if c.now().After(entry.expiresAt) {
		c.lru.Remove(elem)
		delete(c.items, ip)
		c.misses.Add(1)
		return Location{}, false, false
	}
	c.lru.MoveToFront(elem)
	c.hits.Add(1)
	return entry.loc, entry.found, true
}

// Set stores the outcome of a lookup for ip, evicting the least recently
// used entry at capacity.
func (c *Cache) Set(ip string, loc Location, found bool) {
	if ip == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(c.ttl)
	if elem, ok := c.items[ip]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.loc, entry.found, entry.expiresAt = loc, found, expires
		c.lru.MoveToFront(elem)
		return
	}

	for c.lru.Len() >= c.capacity {
		oldest := c.lru.Back()
		delete(c.items, oldest.Value.(*cacheEntry).ip)
		c.lru.Remove(oldest)
		c.evicts.Add(1)
	}
	c.items[ip] = c.lru.PushFront(&cacheEntry{ip: ip, loc: loc, found: found, expiresAt: expires})
}

type CacheStats struct {
	Size     int
	Capacity int
	Hits     uint64
	Misses   uint64
	Evicts   uint64
	HitRate  float64
}

func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	size := c.lru.Len()
	c.mu.Unlock()

	hits, misses := c.hits.Load(), c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return CacheStats{
		Size:     size,
		Capacity: c.capacity,
		Hits:     hits,
		Misses:   misses,
		Evicts:   c.evicts.Load(),
		HitRate:  rate,
	}
}
