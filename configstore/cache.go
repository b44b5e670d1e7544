package configstore

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/hazyhaar/shopoverlay/overlay"
)

// DefaultCacheTTL bounds how stale a cached descriptor can get when no
// change notification arrives.
const DefaultCacheTTL = 30 * time.Second

type cachedRead struct {
	d  overlay.Descriptor
	ok bool
}

// Cached is a read-through cache in front of a Store. Absent overlays are
// cached too: most storefront products carry none. Writes through Cached
// invalidate the product; Flush drops everything and is wired to a
// watch.Watcher for changes made by other processes.
//
// A read only fills the cache if no invalidation happened while it was
// reading the store, so a read racing a write cannot pin the old value.
type Cached struct {
	store *Store
	cache *gocache.Cache

	mu  sync.Mutex
	gen uint64
}

// NewCached wraps store. ttl <= 0 uses DefaultCacheTTL.
func NewCached(store *Store, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{store: store, cache: gocache.New(ttl, 2*ttl)}
}

func (c *Cached) Read(ctx context.Context, id overlay.ProductID) (overlay.Descriptor, bool, error) {
	if v, found := c.cache.Get(string(id)); found {
		if r, ok := v.(cachedRead); ok {
			return r.d, r.ok, nil
		}
	}
	gen := c.generation()
	d, ok, err := c.store.Read(ctx, id)
	if err != nil {
		return overlay.Descriptor{}, false, err
	}
	c.fill(id, gen, cachedRead{d: d, ok: ok})
	return d, ok, nil
}

func (c *Cached) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// fill caches r unless an invalidation happened since gen was taken.
func (c *Cached) fill(id overlay.ProductID, gen uint64, r cachedRead) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.cache.SetDefault(string(id), r)
	}
}

func (c *Cached) invalidate(id overlay.ProductID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.cache.Delete(string(id))
}

func (c *Cached) Write(ctx context.Context, id overlay.ProductID, d overlay.Descriptor) error {
	defer c.invalidate(id)
	return c.store.Write(ctx, id, d)
}

func (c *Cached) Clear(ctx context.Context, id overlay.ProductID) error {
	defer c.invalidate(id)
	return c.store.Clear(ctx, id)
}

// List bypasses the cache.
func (c *Cached) List(ctx context.Context, limit int) ([]Listing, error) {
	return c.store.List(ctx, limit)
}

// Flush drops every cached read.
func (c *Cached) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.cache.Flush()
}

// Fetch adapts Cached to the decoration engine's overlay source: store
// errors degrade to "no overlay" and are logged.
func (c *Cached) Fetch(ctx context.Context, id overlay.ProductID) (overlay.Descriptor, bool) {
	d, ok, err := c.Read(ctx, id)
	if err != nil {
		c.store.logger.WarnContext(ctx, "configstore: read failed", "product_id", string(id), "error", err)
		return overlay.Descriptor{}, false
	}
	return d, ok
}
