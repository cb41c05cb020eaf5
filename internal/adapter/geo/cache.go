// Package geo resolves complaint coordinates to neighborhoods.
package geo

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/complaint-club-etl/internal/observability"
)

// Resolver maps a coordinate to a neighborhood ID. A nil ID means the point
// is outside every neighborhood.
type Resolver interface {
	Resolve(ctx context.Context, lat, lon float64) (*int64, error)
}

// CachedResolver wraps a Resolver with an in-memory LRU cache keyed on the
// coordinate rounded to five decimal places (about one meter). Misses outside
// every neighborhood are cached too; errors are not.
type CachedResolver struct {
	inner   Resolver
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedResolver creates a cache decorator around a resolver.
func NewCachedResolver(inner Resolver, maxEntries int, metrics *observability.Metrics) *CachedResolver {
	return &CachedResolver{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedResolver) Resolve(ctx context.Context, lat, lon float64) (*int64, error) {
	key := fmt.Sprintf("%.5f,%.5f", lat, lon)
	if id, ok := c.cache.get(key); ok {
		c.metrics.ResolverCache.WithLabelValues("hit").Inc()
		return id, nil
	}
	c.metrics.ResolverCache.WithLabelValues("miss").Inc()

	id, err := c.inner.Resolve(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	c.cache.put(key, id)
	return id, nil
}

// lruCache is a thread-safe LRU cache of resolved neighborhood IDs.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	order      *list.List // front is most recently used
	entries    map[string]*list.Element
}

type entry struct {
	key string
	id  *int64
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
}

func (c *lruCache) get(key string) (*int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).id, true
}

func (c *lruCache) put(key string, id *int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).id = id
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&entry{key: key, id: id})
	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).key)
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
