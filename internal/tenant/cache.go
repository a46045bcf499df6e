// internal/tenant/cache.go
//
// Short-lived binding cache in front of the storage collaborator.
//
// Context
// -------
// Every page view on every host pays for one binding lookup, so answers
// (including "no binding") are kept in a sync.Map for a few seconds.  A
// singleflight barrier collapses concurrent misses for one host into a
// single storage round-trip, and the evictor drops expired entries and
// applies LRU pressure in the background.
//
// Invalidation
// ------------
// Publish, unpublish, and domain detach call Invalidate, InvalidatePage, or
// Purge (usually via internal/invalidate).  A generation counter makes sure
// a lookup that was already in flight when an invalidation landed cannot
// write its now-stale answer back into the map.
//
// Notes
// -----
//   - Errors are never cached.  The next request retries storage.
//   - The shared lookup runs under its own timeout, detached from any one
//     caller, so a client abort does not fail the other waiters.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/pageedge/internal/binding"
	"github.com/yanizio/pageedge/internal/metrics"
)

// Defaults applied by NewCache to zero-valued options.
const (
	DefaultTTL           = 30 * time.Second
	DefaultNegativeTTL   = 10 * time.Second
	DefaultLookupTimeout = 500 * time.Millisecond
	DefaultEvictInterval = time.Minute
	DefaultMaxEntries    = 10000
)

// Lookup is the storage collaborator: zero or one binding per hostname.
// It must return binding.ErrNotFound when no active binding exists.
type Lookup interface {
	ByHost(ctx context.Context, host string) (*binding.Record, error)
}

// CacheOptions tunes a Cache.
type CacheOptions struct {
	TTL           time.Duration // positive answers
	NegativeTTL   time.Duration // "no binding" answers
	LookupTimeout time.Duration // per storage call
	EvictInterval time.Duration
	MaxEntries    int
}

func (o CacheOptions) withDefaults() CacheOptions {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.NegativeTTL < 0 {
		o.NegativeTTL = 0
	} else if o.NegativeTTL == 0 {
		o.NegativeTTL = DefaultNegativeTTL
	}
	if o.LookupTimeout <= 0 {
		o.LookupTimeout = DefaultLookupTimeout
	}
	if o.EvictInterval <= 0 {
		o.EvictInterval = DefaultEvictInterval
	}
	if o.MaxEntries <= 0 {
		o.MaxEntries = DefaultMaxEntries
	}
	return o
}

// Cache is safe for concurrent use.  Construct with NewCache and Close it on
// shutdown.
type Cache struct {
	src  Lookup
	opts CacheOptions
	sfg  singleflight.Group
	m    sync.Map // host → *entry

	mu  sync.Mutex // serialises writes against invalidation
	gen atomic.Uint64

	clock     func() time.Time
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewCache constructs a Cache over src and starts the background evictor.
func NewCache(src Lookup, opts CacheOptions) *Cache {
	c := &Cache{
		src:   src,
		opts:  opts.withDefaults(),
		clock: time.Now,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go c.evictLoop()
	return c
}

// Close stops the evictor.  Get keeps working afterwards.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		close(c.stop)
		<-c.done
	})
}

// Get returns the binding for a canonical host, or binding.ErrNotFound.
// Any other error means storage could not answer in time.
func (c *Cache) Get(ctx context.Context, host string) (*binding.Record, error) {
	now := c.clock().UnixNano()
	if v, ok := c.m.Load(host); ok {
		ent := v.(*entry)
		if ent.fresh(now) {
			ent.touch(now)
			metrics.CacheHits.Inc()
			if ent.rec == nil {
				return nil, binding.ErrNotFound
			}
			return ent.rec, nil
		}
	}
	metrics.CacheMisses.Inc()

	ch := c.sfg.DoChan(host, func() (any, error) {
		return c.load(ctx, host)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*binding.Record), nil
	}
}

// load runs one storage call.  Panics in the collaborator are turned into
// errors: singleflight would otherwise re-panic on a fresh goroutine.
func (c *Cache) load(ctx context.Context, host string) (rec *binding.Record, err error) {
	gen := c.gen.Load()

	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.LookupTimeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			rec, err = nil, fmt.Errorf("binding lookup panic: %v", p)
		}
	}()

	start := time.Now()
	rec, err = c.src.ByHost(lctx, host)
	metrics.LookupDuration.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, binding.ErrNotFound):
		c.store(host, nil, c.opts.NegativeTTL, gen)
		return nil, binding.ErrNotFound
	case err != nil:
		return nil, err
	case rec == nil:
		// A collaborator answering (nil, nil) means "no row".
		c.store(host, nil, c.opts.NegativeTTL, gen)
		return nil, binding.ErrNotFound
	}
	c.store(host, rec, c.opts.TTL, gen)
	return rec, nil
}

func (c *Cache) store(host string, rec *binding.Record, ttl time.Duration, gen uint64) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen.Load() != gen {
		zap.L().Debug("binding cache store skipped after invalidation",
			zap.String("host", host))
		return
	}
	now := c.clock()
	ent := newEntry(rec, now.UnixNano(), now.Add(ttl).UnixNano())
	if _, loaded := c.m.Swap(host, ent); !loaded {
		metrics.CacheEntries.Inc()
	}
}

// Warm seeds the cache, typically from binding.AllActive at boot.
func (c *Cache) Warm(recs []binding.Record) int {
	gen := c.gen.Load()
	for i := range recs {
		rec := recs[i]
		c.store(rec.Hostname, &rec, c.opts.TTL, gen)
	}
	return len(recs)
}

// Invalidate drops host.  Use after a domain is attached or detached.
func (c *Cache) Invalidate(host string) {
	c.mu.Lock()
	c.gen.Add(1)
	c.deleteLocked(host)
	c.mu.Unlock()
	c.sfg.Forget(host)
	metrics.Invalidations.WithLabelValues("host").Inc()
}

// InvalidatePage drops every host bound to pageID.  Use after publish or
// unpublish.
func (c *Cache) InvalidatePage(pageID uint64) {
	c.mu.Lock()
	c.gen.Add(1)
	var hosts []string
	c.m.Range(func(k, v any) bool {
		if rec := v.(*entry).rec; rec != nil && rec.PageID == pageID {
			hosts = append(hosts, k.(string))
		}
		return true
	})
	for _, h := range hosts {
		c.deleteLocked(h)
	}
	c.mu.Unlock()
	for _, h := range hosts {
		c.sfg.Forget(h)
	}
	metrics.Invalidations.WithLabelValues("page").Inc()
}

// Purge empties the cache.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.gen.Add(1)
	c.m.Range(func(k, _ any) bool {
		c.deleteLocked(k.(string))
		return true
	})
	c.mu.Unlock()
	metrics.Invalidations.WithLabelValues("all").Inc()
}

// Len reports the number of entries, fresh or not.
func (c *Cache) Len() int {
	n := 0
	c.m.Range(func(_, _ any) bool { n++; return true })
	return n
}

func (c *Cache) deleteLocked(host string) bool {
	if _, ok := c.m.LoadAndDelete(host); ok {
		metrics.CacheEntries.Dec()
		return true
	}
	return false
}
