// internal/session/store.go
//
// SQL-backed identity store.
//
//	CREATE TABLE auth_session (
//	    token      CHAR(64)        PRIMARY KEY,
//	    user_id    BIGINT UNSIGNED NOT NULL,
//	    expires_at TIMESTAMP       NOT NULL,
//	    revoked_at TIMESTAMP       NULL
//	);
package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLStore implements Store over the control-plane pool.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore wraps db.
func NewSQLStore(db *sqlx.DB) *SQLStore { return &SQLStore{db: db} }

// Lookup returns the live session for token or ErrNoSession.
func (s *SQLStore) Lookup(ctx context.Context, token string) (*Record, error) {
	const q = `
        SELECT token, user_id, expires_at
        FROM   auth_session
        WHERE  token = ?
          AND  revoked_at IS NULL
        LIMIT  1`
	var rec Record
	if err := s.db.GetContext(ctx, &rec, q, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	return &rec, nil
}

// Extend moves the expiry of an unrevoked session forward.
func (s *SQLStore) Extend(ctx context.Context, token string, until time.Time) error {
	const q = `
        UPDATE auth_session
        SET    expires_at = ?
        WHERE  token = ?
          AND  revoked_at IS NULL`
	res, err := s.db.ExecContext(ctx, q, until.UTC(), token)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNoSession
	}
	return nil
}
