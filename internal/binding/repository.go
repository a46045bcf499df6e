// internal/binding/repository.go
//
// Read-only queries against domain_binding.
//
// Context
// -------
//   - `ByHost`: the edge lookup, run on cache miss.  Zero or one row.
//   - `AllActive`: boot-time cache warm-up.
//
// Both helpers exclude detached bindings at SQL level.  Neither logs; the
// caller owns observability.
package binding

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when no active binding exists for a host.
var ErrNotFound = errors.New("binding not found")

const selectCols = `
        SELECT b.hostname, b.page_id, p.slug, p.published,
               p.updated_at
        FROM   domain_binding b
        JOIN   landing_page   p ON p.id = b.page_id
        WHERE  b.detached_at IS NULL`

// ByHost fetches the binding for host.  host must already be canonical.
func ByHost(ctx context.Context, db *sqlx.DB, host string) (*Record, error) {
	const q = selectCols + `
          AND  b.hostname = ?
        LIMIT  1`
	var rec Record
	if err := db.GetContext(ctx, &rec, q, host); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("binding by host %q: %w", host, err)
	}
	return &rec, nil
}

// AllActive returns every attached binding whose page is published.
func AllActive(ctx context.Context, db *sqlx.DB) ([]Record, error) {
	const q = selectCols + `
          AND  p.published = 1`
	var rows []Record
	if err := db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("binding all active: %w", err)
	}
	return rows, nil
}

// Store adapts a control-plane pool to the resolver's lookup contract.
type Store struct {
	DB *sqlx.DB
}

// NewStore wraps db.  The pool is owned by the caller.
func NewStore(db *sqlx.DB) *Store { return &Store{DB: db} }

// ByHost implements tenant.Lookup.
func (s *Store) ByHost(ctx context.Context, host string) (*Record, error) {
	return ByHost(ctx, s.DB, host)
}

// AllActive implements the cache warm-up source.
func (s *Store) AllActive(ctx context.Context) ([]Record, error) {
	return AllActive(ctx, s.DB)
}
