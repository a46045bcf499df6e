// internal/binding/model.go
//
// Custom-domain binding row model.
//
// Context
// -------
// A binding ties one fully-qualified hostname to exactly one landing page.
// The edge resolver only needs the bound page's slug and its published flag,
// so `Record` is the projection of `domain_binding` joined to
// `landing_page`, not a mirror of either table.
//
// Schema reference
//
//	CREATE TABLE domain_binding (
//	    hostname    VARCHAR(255)    PRIMARY KEY,
//	    page_id     BIGINT UNSIGNED NOT NULL,
//	    detached_at TIMESTAMP NULL,
//	    created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
//	);
//
// Notes
// -----
//   - Hostnames are stored lower-case; callers normalise before querying.
//   - Detached rows (`detached_at IS NOT NULL`) never resolve.
package binding

import "time"

// Record is one active hostname binding and the state of its target page.
type Record struct {
	Hostname  string    `db:"hostname"`
	PageID    uint64    `db:"page_id"`
	Slug      string    `db:"slug"`
	Published bool      `db:"published"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Servable reports whether traffic for Hostname may be routed to the page.
// Unpublished pages must look exactly like a missing binding.
func (r *Record) Servable() bool {
	return r != nil && r.Published && r.Slug != ""
}
