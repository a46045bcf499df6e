package tenant

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/yanizio/pageedge/internal/binding"
)

// fakeLookup satisfies Lookup with an in-memory table.  block, when set,
// makes ByHost wait for ctx so timeouts can be exercised.
type fakeLookup struct {
	mu    sync.Mutex
	rows  map[string]*binding.Record
	err   error
	block bool
	calls atomic.Int32
}

func newFakeLookup(recs ...binding.Record) *fakeLookup {
	f := &fakeLookup{rows: map[string]*binding.Record{}}
	for i := range recs {
		f.rows[recs[i].Hostname] = &recs[i]
	}
	return f
}

func (f *fakeLookup) ByHost(ctx context.Context, host string) (*binding.Record, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.rows[host]
	if !ok {
		return nil, binding.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeLookup) set(rec binding.Record) {
	f.mu.Lock()
	f.rows[rec.Hostname] = &rec
	f.mu.Unlock()
}

var (
	springSale = binding.Record{Hostname: "mycampaign.com", PageID: 7, Slug: "spring-sale", Published: true}
	draftPage  = binding.Record{Hostname: "draft.example.org", PageID: 9, Slug: "wip", Published: false}
)
