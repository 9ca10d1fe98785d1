// internal/app/system/chartcache/chartcache.go
//
// Package chartcache memoizes built chart definitions per section, chart
// and range key. Entries live for the smaller of the cache TTL and the
// definition's own max-age. Concurrent misses for the same key share one
// build.
package chartcache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dalemusser/stratadash/internal/app/system/timeouts"
	"github.com/dalemusser/stratadash/internal/app/system/viz"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL caps entry lifetime when the cache is built with none.
const DefaultTTL = 15 * time.Minute

type entry struct {
	def     *viz.Definition
	expires time.Time
}

// Stats reports cache activity.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// Cache is safe for concurrent use.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry

	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// New returns a Cache. A non-positive ttl uses DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{ttl: ttl, now: time.Now, entries: map[string]entry{}}
}

// Key builds the cache key for one chart and range.
func Key(sectionID, chartID, rangeKey string) string {
	return viz.Key(sectionID, chartID) + "@" + rangeKey
}

// Get returns the cached definition for key. A cached nil definition
// (chart without data) is reported as found.
func (c *Cache) Get(key string) (*viz.Definition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expires) {
		return nil, false
	}
	return e.def, true
}

// Set stores def under key.
func (c *Cache) Set(key string, def *viz.Definition) {
	ttl := c.ttl
	if def != nil {
		if maxAge := def.Cache.EffectiveMaxAge(); maxAge < ttl {
			ttl = maxAge
		}
	}
	c.mu.Lock()
	c.entries[key] = entry{def: def, expires: c.now().Add(ttl)}
	c.mu.Unlock()
}

// GetOrBuild returns the cached definition for key or builds and stores
// it. Build errors are returned and not cached.
//
// The shared build runs detached from any one caller's cancellation, bounded
// by timeouts.Build. Each caller stops waiting when its own ctx ends, and the
// build carries on for the others.
func (c *Cache) GetOrBuild(ctx context.Context, key string, build func(ctx context.Context) (*viz.Definition, error)) (*viz.Definition, error) {
	if def, ok := c.Get(key); ok {
		c.hits.Add(1)
		return def, nil
	}
	c.misses.Add(1)

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if def, ok := c.Get(key); ok {
			return def, nil
		}
		bctx, cancel := context.WithTimeout(detached, timeouts.Build())
		defer cancel()
		def, err := build(bctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, def)
		return def, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		def, _ := res.Val.(*viz.Definition)
		return def, nil
	}
}

// Invalidate drops every entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = map[string]entry{}
	c.mu.Unlock()
}

// Sweep removes expired entries and returns how many it removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit, miss and entry counts.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: c.Len()}
}
