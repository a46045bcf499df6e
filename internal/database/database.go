// Package database centralises sqlx connection helpers for the control-plane
// store.  The driver is go-sql-driver/mysql, which also works with MariaDB
// and TiDB.
//
// Open pings before returning so cmd/web fails fast at boot.  Ping retries
// are a bootstrap concern only; request-time queries are never retried here.
package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Options tunes one pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	Retries         int           // extra ping attempts at boot
	RetryBackoff    time.Duration // doubled after each failed attempt
}

// DefaultOptions suits the edge: many short reads, few writers.
var DefaultOptions = Options{
	MaxOpenConns:    32,
	MaxIdleConns:    16,
	ConnMaxLifetime: 30 * time.Minute,
	ConnMaxIdleTime: 5 * time.Minute,
	Retries:         3,
	RetryBackoff:    500 * time.Millisecond,
}

// Open connects with DefaultOptions.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(ctx, dsn, DefaultOptions)
}

// OpenWithOptions connects, sizes the pool, and pings until it answers or
// the retries run out.
func OpenWithOptions(ctx context.Context, dsn string, o Options) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	configure(db, o)

	if err := pingWithRetry(ctx, db, o); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func configure(db *sqlx.DB, o Options) {
	db.SetMaxOpenConns(o.MaxOpenConns)
	db.SetMaxIdleConns(o.MaxIdleConns)
	db.SetConnMaxLifetime(o.ConnMaxLifetime)
	db.SetConnMaxIdleTime(o.ConnMaxIdleTime)
}

func pingWithRetry(ctx context.Context, db *sqlx.DB, o Options) error {
	backoff := o.RetryBackoff
	var err error
	for attempt := 0; attempt <= o.Retries; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		if attempt == o.Retries {
			break
		}
		zap.L().Warn("database ping failed, retrying",
			zap.Int("attempt", attempt+1), zap.Duration("backoff", backoff), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("database ping: %w", err)
}
