package hazard

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/paulmach/orb"
)

const (
	DefaultCacheCapacity = 256
	DefaultCacheTTL      = 60 * time.Second
)

// Cache keeps recent store results keyed by bounding box. Boxes are rounded
// to 1e-3 degrees so consecutive scans a few meters apart share an entry.
//
// Thread safety: safe for concurrent use.
type Cache struct {
	lru *expirable.LRU[string, []Zone]
}

// NewCache creates a cache holding at most capacity boxes for ttl each.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{lru: expirable.NewLRU[string, []Zone](capacity, nil, ttl)}
}

func cacheKey(b orb.Bound) string {
	return fmt.Sprintf("%.3f,%.3f,%.3f,%.3f", b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat())
}

// Get returns the zones cached for b.
func (c *Cache) Get(b orb.Bound) ([]Zone, bool) {
	return c.lru.Get(cacheKey(b))
}

// Put stores zones for b.
func (c *Cache) Put(b orb.Bound, zones []Zone) {
	c.lru.Add(cacheKey(b), zones)
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// CachedStore serves repeated box queries from a Cache. Errors are never
// cached.
type CachedStore struct {
	store Store
	cache *Cache
}

// NewCachedStore wraps store with cache.
func NewCachedStore(store Store, cache *Cache) *CachedStore {
	return &CachedStore{store: store, cache: cache}
}

func (s *CachedStore) ZonesIn(ctx context.Context, bound orb.Bound) ([]Zone, error) {
	if zones, ok := s.cache.Get(bound); ok {
		return zones, nil
	}
	zones, err := s.store.ZonesIn(ctx, bound)
	if err != nil {
		return nil, err
	}
	s.cache.Put(bound, zones)
	return zones, nil
}

// Purge clears the underlying cache.
func (s *CachedStore) Purge() {
	s.cache.Purge()
}
