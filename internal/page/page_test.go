package page

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

func TestPublishedBySlug(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	cols := []string{"id", "slug", "snapshot", "published_at", "title"}
	doc := `{"title":"Spring Sale","elements":[{"type":"heading","props":{"text":"Hello"}},{"type":"form","props":{"form_id":"f1"}}]}`

	mock.ExpectQuery(regexp.QuoteMeta(`AND  published = 1`)).
		WithArgs("spring-sale").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(uint64(7), "spring-sale", []byte(doc), time.Now(), "Spring Sale"))
	mock.ExpectQuery(regexp.QuoteMeta(`AND  published = 1`)).
		WithArgs("wip").
		WillReturnRows(sqlmock.NewRows(cols))

	snap, err := PublishedBySlug(context.Background(), sqlx.NewDb(db, "mysql"), "spring-sale")
	if err != nil {
		t.Fatalf("PublishedBySlug: %v", err)
	}
	if len(snap.Elements) != 2 || snap.Elements[0].Prop("text") != "Hello" || snap.Title != "Spring Sale" {
		t.Fatalf("unexpected snapshot: %#v", snap)
	}

	_, err = PublishedBySlug(context.Background(), sqlx.NewDb(db, "mysql"), "wip")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func serve(load Loader, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	Mount(r, "/p", load)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHandler_RendersElementsInOrder(t *testing.T) {
	load := func(_ context.Context, slug string) (*Snapshot, error) {
		return &Snapshot{Slug: slug, Title: "Spring", Elements: []Element{
			{Type: "heading", Props: map[string]any{"text": "First"}},
			{Type: "text", Props: map[string]any{"text": "<script>x</script>"}},
			{Type: "button", Props: map[string]any{"label": "Buy", "href": "/thank-you"}},
		}}, nil
	}
	rr := serve(load, "/p/spring-sale")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	if strings.Index(body, "First") > strings.Index(body, "Buy") {
		t.Fatalf("elements out of order")
	}
	if strings.Contains(body, "<script>x") {
		t.Fatalf("element text not escaped")
	}
}

func TestHandler_NotFound(t *testing.T) {
	load := func(context.Context, string) (*Snapshot, error) { return nil, ErrNotFound }
	if rr := serve(load, "/p/wip"); rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestHandler_InvalidSlugSkipsLoad(t *testing.T) {
	called := false
	load := func(context.Context, string) (*Snapshot, error) { called = true; return nil, nil }
	if rr := serve(load, "/p/Bad--Slug"); rr.Code != http.StatusNotFound || called {
		t.Fatalf("status %d, loader called %v", rr.Code, called)
	}
}

func TestHandler_StorageError(t *testing.T) {
	load := func(context.Context, string) (*Snapshot, error) { return nil, errors.New("db down") }
	if rr := serve(load, "/p/spring-sale"); rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
}
