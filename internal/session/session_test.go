// internal/session/session_test.go
//
// Unit-tests for Refresher with an in-memory Store, and SQLStore with
// sqlmock.

package session

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
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/pageedge/internal/auth"
)

var hashKey = []byte("0123456789abcdef0123456789abcdef")

type memStore struct {
	recs     map[string]*Record
	err      error
	extended time.Time
}

func (m *memStore) Lookup(_ context.Context, token string) (*Record, error) {
	if m.err != nil {
		return nil, m.err
	}
	rec, ok := m.recs[token]
	if !ok {
		return nil, ErrNoSession
	}
	return rec, nil
}

func (m *memStore) Extend(_ context.Context, token string, until time.Time) error {
	m.extended = until
	m.recs[token].ExpiresAt = until
	return nil
}

func requestWithToken(t *testing.T, s *Refresher, token string) *http.Request {
	t.Helper()
	rr := httptest.NewRecorder()
	if err := s.Issue(rr, httptest.NewRequest(http.MethodGet, "/", nil), token, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestRefresh_Anonymous(t *testing.T) {
	s := NewRefresher(&memStore{}, hashKey, nil, Options{})
	rr := httptest.NewRecorder()
	r := s.Refresh(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, ok := auth.UserID(r.Context()); ok {
		t.Fatalf("anonymous request got a user")
	}
	if rr.Header().Get("Set-Cookie") != "" {
		t.Fatalf("anonymous request received a cookie")
	}
}

func TestRefresh_ValidSession(t *testing.T) {
	now := time.Now()
	store := &memStore{recs: map[string]*Record{
		"tok": {Token: "tok", UserID: 42, ExpiresAt: now.Add(10 * 24 * time.Hour)},
	}}
	s := NewRefresher(store, hashKey, nil, Options{})
	s.now = func() time.Time { return now }

	rr := httptest.NewRecorder()
	r := s.Refresh(rr, requestWithToken(t, s, "tok"))

	if id, ok := auth.UserID(r.Context()); !ok || id != 42 {
		t.Fatalf("user = %d, %v", id, ok)
	}
	if !store.extended.IsZero() {
		t.Fatalf("session far from expiry was extended")
	}
	if rr.Header().Get("Set-Cookie") != "" {
		t.Fatalf("cookie re-issued without extension")
	}
}

func TestRefresh_ExtendsNearExpiry(t *testing.T) {
	now := time.Now()
	store := &memStore{recs: map[string]*Record{
		"tok": {Token: "tok", UserID: 7, ExpiresAt: now.Add(time.Hour)},
	}}
	s := NewRefresher(store, hashKey, nil, Options{MaxAge: 48 * time.Hour, RefreshWindow: 2 * time.Hour})
	s.now = func() time.Time { return now }

	rr := httptest.NewRecorder()
	r := s.Refresh(rr, requestWithToken(t, s, "tok"))

	if want := now.Add(48 * time.Hour); !store.extended.Equal(want) {
		t.Fatalf("extended to %v, want %v", store.extended, want)
	}
	if !strings.HasPrefix(rr.Header().Get("Set-Cookie"), DefaultCookieName+"=") {
		t.Fatalf("cookie not re-issued: %q", rr.Header().Get("Set-Cookie"))
	}
	if id, _ := auth.UserID(r.Context()); id != 7 {
		t.Fatalf("user = %d, want 7", id)
	}
}

func TestRefresh_ExpiredClearsCookie(t *testing.T) {
	now := time.Now()
	store := &memStore{recs: map[string]*Record{
		"tok": {Token: "tok", UserID: 7, ExpiresAt: now.Add(-time.Minute)},
	}}
	s := NewRefresher(store, hashKey, nil, Options{})
	s.now = func() time.Time { return now }

	rr := httptest.NewRecorder()
	r := s.Refresh(rr, requestWithToken(t, s, "tok"))

	if _, ok := auth.UserID(r.Context()); ok {
		t.Fatalf("expired session attached a user")
	}
	if !strings.Contains(rr.Header().Get("Set-Cookie"), "Max-Age=0") {
		t.Fatalf("cookie not cleared: %q", rr.Header().Get("Set-Cookie"))
	}
}

func TestRefresh_TamperedCookie(t *testing.T) {
	s := NewRefresher(&memStore{}, hashKey, nil, Options{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "forged"})

	rr := httptest.NewRecorder()
	r := s.Refresh(rr, req)
	if _, ok := auth.UserID(r.Context()); ok {
		t.Fatalf("forged cookie accepted")
	}
	if rr.Header().Get("Set-Cookie") == "" {
		t.Fatalf("forged cookie not cleared")
	}
}

func TestRefresh_StoreErrorPassesThrough(t *testing.T) {
	store := &memStore{err: errors.New("identity service down")}
	s := NewRefresher(store, hashKey, nil, Options{})

	rr := httptest.NewRecorder()
	req := requestWithToken(t, s, "tok")
	r := s.Refresh(rr, req)
	if r != req {
		t.Fatalf("request replaced on store error")
	}
	if rr.Header().Get("Set-Cookie") != "" {
		t.Fatalf("cookie mutated on store error")
	}
}

func TestSQLStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewSQLStore(sqlx.NewDb(db, "mysql"))
	exp := time.Now().Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM   auth_session`)).
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{"token", "user_id", "expires_at"}).
			AddRow("tok", int64(42), exp))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM   auth_session`)).
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"token", "user_id", "expires_at"}))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE auth_session`)).
		WithArgs(sqlmock.AnyArg(), "tok").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec, err := store.Lookup(context.Background(), "tok")
	if err != nil || rec.UserID != 42 {
		t.Fatalf("Lookup = %#v, %v", rec, err)
	}
	if _, err := store.Lookup(context.Background(), "gone"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("err = %v, want ErrNoSession", err)
	}
	if err := store.Extend(context.Background(), "tok", exp); err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}
