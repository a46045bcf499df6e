// internal/page/handler.go
//
// Render route: GET {render_prefix}/{slug}.
//
// Reached directly on the platform domain (previews, share links) or via
// the edge rewrite of "/" on a custom domain.  Element rendering is kept
// deliberately plain; the builder's visual components live in the
// dashboard front-end.
package page

import (
	"context"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/pageedge/internal/routing"
)

// Loader fetches a published snapshot.  PublishedBySlug satisfies it once
// bound to a pool via DBLoader.
type Loader func(ctx context.Context, slug string) (*Snapshot, error)

// DBLoader binds PublishedBySlug to db.
func DBLoader(db *sqlx.DB) Loader {
	return func(ctx context.Context, slug string) (*Snapshot, error) {
		return PublishedBySlug(ctx, db, slug)
	}
}

var pageTmpl = template.Must(template.New("page").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{ .Title }}</title>
</head>
<body>
{{- range .Elements }}
{{- if eq .Type "heading" }}
<h1>{{ .Prop "text" }}</h1>
{{- else if eq .Type "text" }}
<p>{{ .Prop "text" }}</p>
{{- else if eq .Type "image" }}
<img src="{{ .Prop "src" }}" alt="{{ .Prop "alt" }}">
{{- else if eq .Type "button" }}
<a class="button" href="{{ .Prop "href" }}">{{ .Prop "label" }}</a>
{{- else if eq .Type "form" }}
<form method="post" action="/api/forms/{{ .Prop "form_id" }}/responses" data-form="{{ .Prop "form_id" }}"></form>
{{- end }}
{{- end }}
</body>
</html>
`))

// Handler serves published snapshots.  Drafts and unknown slugs are 404.
func Handler(load Loader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		if !routing.ValidSlug(slug) {
			http.NotFound(w, r)
			return
		}

		snap, err := load(r.Context(), slug)
		if errors.Is(err, ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			zap.L().Error("page load failed", zap.String("slug", slug), zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if !snap.PublishedAt.IsZero() {
			w.Header().Set("Last-Modified", snap.PublishedAt.UTC().Format(http.TimeFormat))
		}
		w.Header().Set("Cache-Control", "public, max-age=60")
		if err := pageTmpl.Execute(w, snap); err != nil {
			zap.L().Error("page render failed", zap.String("slug", slug), zap.Error(err))
		}
	}
}

// Mount registers the render route under prefix on r.
func Mount(r chi.Router, prefix string, load Loader) {
	r.Get(routing.BuildPath(prefix, "{slug}"), Handler(load))
}

