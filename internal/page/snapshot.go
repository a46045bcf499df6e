// internal/page/snapshot.go
//
// Published landing-page snapshots.
//
// Context
// -------
// Publishing freezes a page's ordered layout elements into
// `landing_page.snapshot` (JSON) and sets `published = 1`.  The render route
// reads that frozen copy only; the editable draft never leaves the
// dashboard.  Unpublishing clears the flag, and from then on the slug
// behaves as if it did not exist.
package page

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound covers unknown slugs and unpublished pages alike.
var ErrNotFound = errors.New("page not found")

// Element is one block of the page layout, e.g. a heading or a form.
type Element struct {
	Type  string         `json:"type"`
	Props map[string]any `json:"props,omitempty"`
}

// Prop returns Props[key] as a string, or "".
func (e Element) Prop(key string) string {
	if v, ok := e.Props[key].(string); ok {
		return v
	}
	return ""
}

// Snapshot is the renderable state of a page at its last publish.
type Snapshot struct {
	ID          uint64
	Slug        string
	Title       string
	Elements    []Element
	PublishedAt time.Time
}

type snapshotRow struct {
	ID          uint64         `db:"id"`
	Slug        string         `db:"slug"`
	Snapshot    []byte         `db:"snapshot"`
	PublishedAt sql.NullTime   `db:"published_at"`
	Title       sql.NullString `db:"title"`
}

// PublishedBySlug loads the published snapshot for slug.
func PublishedBySlug(ctx context.Context, db *sqlx.DB, slug string) (*Snapshot, error) {
	const q = `
        SELECT id, slug, snapshot, published_at,
               JSON_UNQUOTE(JSON_EXTRACT(snapshot, '$.title')) AS title
        FROM   landing_page
        WHERE  slug = ?
          AND  published = 1
          AND  snapshot IS NOT NULL
        LIMIT  1`
	var row snapshotRow
	if err := db.GetContext(ctx, &row, q, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("page by slug %q: %w", slug, err)
	}

	var doc struct {
		Elements []Element `json:"elements"`
	}
	if err := json.Unmarshal(row.Snapshot, &doc); err != nil {
		return nil, fmt.Errorf("page %d snapshot: %w", row.ID, err)
	}
	return &Snapshot{
		ID:          row.ID,
		Slug:        row.Slug,
		Title:       row.Title.String,
		Elements:    doc.Elements,
		PublishedAt: row.PublishedAt.Time,
	}, nil
}
