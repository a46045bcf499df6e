// internal/session/session.go
//
// Platform session refresh.
//
// Context
// -------
// Requests that the edge classifies as Platform pass through Refresh before
// normal routing.  The session cookie carries an opaque token signed (and,
// when a block key is configured, encrypted) with gorilla/securecookie.  The
// token is checked against the identity store:
//
//   - valid             → user id attached with auth.WithUser
//   - close to expiry   → expiry extended in the store, cookie re-issued
//   - invalid / expired → cookie cleared, request continues anonymously
//   - store error       → logged, request continues untouched
//
// Refresh never rejects a request.  Authorisation is the platform router's
// job; this layer only keeps the session alive and the cookie current.
package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"github.com/yanizio/pageedge/internal/auth"
	"github.com/yanizio/pageedge/internal/metrics"
)

// ErrNoSession is returned by Store when a token is unknown, revoked, or
// expired.
var ErrNoSession = errors.New("session not found")

// Record is the identity store's view of one session.
type Record struct {
	Token     string    `db:"token"`
	UserID    int64     `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
}

// Store is the identity collaborator.
type Store interface {
	Lookup(ctx context.Context, token string) (*Record, error)
	Extend(ctx context.Context, token string, until time.Time) error
}

// Options tunes a Refresher.
type Options struct {
	CookieName    string
	MaxAge        time.Duration // lifetime granted on each extension
	RefreshWindow time.Duration // extend when less than this remains
	StoreTimeout  time.Duration
}

const (
	DefaultCookieName    = "pe_session"
	DefaultMaxAge        = 14 * 24 * time.Hour
	DefaultRefreshWindow = 24 * time.Hour
	DefaultStoreTimeout  = 300 * time.Millisecond
)

// Refresher implements tenant.SessionRefresher.
type Refresher struct {
	store Store
	codec *securecookie.SecureCookie
	opts  Options
	now   func() time.Time
}

// NewRefresher builds a Refresher.  hashKey is required; blockKey may be
// nil to sign without encrypting.
func NewRefresher(store Store, hashKey, blockKey []byte, opts Options) *Refresher {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.RefreshWindow <= 0 {
		opts.RefreshWindow = DefaultRefreshWindow
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}
	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(int(opts.MaxAge / time.Second))
	return &Refresher{store: store, codec: codec, opts: opts, now: time.Now}
}

// Issue writes a session cookie for token.  Login flows call it after the
// identity service creates a session.
func (s *Refresher) Issue(w http.ResponseWriter, r *http.Request, token string, expires time.Time) error {
	enc, err := s.codec.Encode(s.opts.CookieName, token)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    enc,
		Path:     "/",
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
	return nil
}

// Clear expires the session cookie.
func (s *Refresher) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// Refresh validates and, when due, extends the caller's session.
func (s *Refresher) Refresh(w http.ResponseWriter, r *http.Request) *http.Request {
	c, err := r.Cookie(s.opts.CookieName)
	if err != nil || c.Value == "" {
		metrics.SessionRefresh.WithLabelValues("anonymous").Inc()
		return r
	}

	var token string
	if err := s.codec.Decode(s.opts.CookieName, c.Value, &token); err != nil || token == "" {
		zap.L().Debug("session cookie rejected", zap.Error(err))
		metrics.SessionRefresh.WithLabelValues("invalid").Inc()
		s.Clear(w)
		return r
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.StoreTimeout)
	defer cancel()

	rec, err := s.store.Lookup(ctx, token)
	now := s.now()
	switch {
	case errors.Is(err, ErrNoSession), err == nil && (rec == nil || !now.Before(rec.ExpiresAt)):
		metrics.SessionRefresh.WithLabelValues("expired").Inc()
		s.Clear(w)
		return r
	case err != nil:
		zap.L().Warn("session lookup failed", zap.Error(err))
		metrics.SessionRefresh.WithLabelValues("error").Inc()
		return r
	}

	outcome := "valid"
	if rec.ExpiresAt.Sub(now) < s.opts.RefreshWindow && s.extend(ctx, w, r, token, rec.UserID, now) {
		outcome = "extended"
	}
	metrics.SessionRefresh.WithLabelValues(outcome).Inc()
	return r.WithContext(auth.WithUser(r.Context(), rec.UserID))
}

// extend pushes the expiry forward and re-issues the cookie.  Failures keep
// the current session as is.
func (s *Refresher) extend(ctx context.Context, w http.ResponseWriter, r *http.Request, token string, userID int64, now time.Time) bool {
	until := now.Add(s.opts.MaxAge)
	if err := s.store.Extend(ctx, token, until); err != nil {
		zap.L().Warn("session extend failed", zap.Int64("user_id", userID), zap.Error(err))
		return false
	}
	if err := s.Issue(w, r, token, until); err != nil {
		zap.L().Warn("session cookie encode failed", zap.Error(err))
		return false
	}
	return true
}

func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}
