package page

import (
	"context"
	"time"

	"github.com/yanizio/pageedge/internal/cache"
)

// SnapshotCache keeps recently rendered snapshots in memory.  Only found
// pages are cached; an unpublish is picked up through InvalidatePage or
// after ttl.
type SnapshotCache struct {
	load Loader
	lru  *cache.LRU[string, *Snapshot]
}

// NewSnapshotCache wraps load with an LRU of size entries.
func NewSnapshotCache(load Loader, size int, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{load: load, lru: cache.New[string, *Snapshot](size, ttl)}
}

// Load satisfies Loader.
func (s *SnapshotCache) Load(ctx context.Context, slug string) (*Snapshot, error) {
	if snap, ok := s.lru.Get(slug); ok {
		return snap, nil
	}
	snap, err := s.load(ctx, slug)
	if err != nil {
		return nil, err
	}
	s.lru.Add(slug, snap)
	return snap, nil
}

// Invalidate is a no-op: host rebinding does not change page content.
func (s *SnapshotCache) Invalidate(string) {}

// InvalidatePage drops the snapshot of pageID.
func (s *SnapshotCache) InvalidatePage(pageID uint64) {
	s.lru.RemoveFunc(func(_ string, snap *Snapshot) bool { return snap.ID == pageID })
}

// Purge drops every snapshot.
func (s *SnapshotCache) Purge() { s.lru.Purge() }
