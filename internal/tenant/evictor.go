// evictor.go houses the eviction loop for Cache.  Every EvictInterval it
// scans the map and removes:
//
//   - entries past their TTL
//   - least-recently-used entries when the map exceeds MaxEntries
//
// Evictions are counted in Prometheus and summarised at DEBUG.
package tenant

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/pageedge/internal/metrics"
)

func (c *Cache) evictLoop() {
	defer close(c.done)
	t := time.NewTicker(c.opts.EvictInterval)
	defer t.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-t.C:
			c.evict(c.clock().UnixNano())
		}
	}
}

// evict runs one pass and returns the number of removed entries.
func (c *Cache) evict(now int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expired, pressured, count int

	// TTL pass.
	c.m.Range(func(key, value any) bool {
		if !value.(*entry).fresh(now) {
			if c.deleteLocked(key.(string)) {
				expired++
			}
			return true
		}
		count++
		return true
	})

	// LRU pass.
	if count > c.opts.MaxEntries {
		type kv struct {
			key string
			at  int64
		}
		all := make([]kv, 0, count)
		c.m.Range(func(key, value any) bool {
			all = append(all, kv{key: key.(string), at: value.(*entry).lastSeen.Load()})
			return true
		})
		sort.Slice(all, func(i, j int) bool { return all[i].at < all[j].at })
		for i := 0; i < len(all)-c.opts.MaxEntries; i++ {
			if c.deleteLocked(all[i].key) {
				pressured++
			}
		}
	}

	if n := expired + pressured; n > 0 {
		metrics.CacheEvictTotal.Add(float64(n))
		zap.L().Debug("binding cache evicted",
			zap.Int("expired", expired),
			zap.Int("lru", pressured))
	}
	return expired + pressured
}
