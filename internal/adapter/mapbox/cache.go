package mapbox

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/nyc-collision-etl/internal/domain"
	"github.com/couchcryptid/nyc-collision-etl/internal/observability"
)

// CachedResolver wraps a ZipResolver with an in-memory LRU cache keyed by
// coordinates rounded to five decimal places (about one metre).
type CachedResolver struct {
	inner   domain.ZipResolver
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedResolver creates a cache decorator around a resolver.
func NewCachedResolver(inner domain.ZipResolver, maxEntries int, metrics *observability.Metrics) *CachedResolver {
	return &CachedResolver{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedResolver) ResolveZip(ctx context.Context, lat, lon float64) (string, error) {
	key := cacheKey(lat, lon)
	if zip, ok := c.cache.get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return zip, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	zip, err := c.inner.ResolveZip(ctx, lat, lon)
	if err != nil {
		return "", err
	}
	// Only cache found zips so a transient empty answer can be retried.
	if zip != "" {
		c.cache.put(key, zip)
	}
	return zip, nil
}

// cacheKey rounds a coordinate to five decimal places, so points within about
// a metre of each other share an entry.
func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.5f,%.5f", lat, lon)
}

// lruCache is a thread-safe LRU cache of resolved zip codes.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key  string
	zip  string
	prev *entry
	next *entry
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	c.moveToFront(e)
	return e.zip, true
}

func (c *lruCache) put(key, zip string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.zip = zip
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, zip: zip}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlink(c.tail)
}
