// internal/tenant/entry.go
//
// Binding cache entry.
//
// Each hostname maps to one entry.  `rec == nil` is a negative entry: the
// host had no active binding when it was looked up.  `expires` bounds how
// long either answer may be served, and `lastSeen` feeds LRU eviction.
// Both timestamps are UnixNano.
package tenant

import (
	"sync/atomic"

	"github.com/yanizio/pageedge/internal/binding"
)

type entry struct {
	rec      *binding.Record
	expires  int64
	lastSeen atomic.Int64
}

func newEntry(rec *binding.Record, now, expires int64) *entry {
	e := &entry{rec: rec, expires: expires}
	e.lastSeen.Store(now)
	return e
}

func (e *entry) fresh(now int64) bool { return now < e.expires }

func (e *entry) touch(now int64) { e.lastSeen.Store(now) }
