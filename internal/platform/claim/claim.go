// Package claim implements the single concurrency primitive of the backend:
// an atomic conditional update against the shared store.
//
// Every "claim a pending job", "claim a printer drain", "claim a completed
// allocation for counting" is one call here. No locks are taken; correctness
// rests on the store applying one UPDATE atomically. When the WHERE predicate
// no longer holds at apply time the update touches zero rows and the caller
// lost the race to a concurrent worker.
package claim

import (
	"context"
	"database/sql"
	"errors"
)

// ErrLost is returned when the conditional update matched no row, meaning a
// concurrent caller changed the entity first (or it never existed; callers
// that care re-fetch to distinguish the two).
var ErrLost = errors.New("claim lost")

// Execer is the subset of *sql.DB / *sql.Tx used by this package.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// RowQueryer is the subset of *sql.DB / *sql.Tx that returns a single row.
type RowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Exec runs one conditional UPDATE. It returns ErrLost when the predicate no
// longer matched any row.
func Exec(ctx context.Context, db Execer, query string, args ...interface{}) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLost
	}
	return nil
}

// QueryRow runs one conditional UPDATE ... RETURNING and scans the winning
// row into dest. sql.ErrNoRows from the scan is translated to ErrLost.
func QueryRow(ctx context.Context, db RowQueryer, query string, args []interface{}, dest ...interface{}) error {
	err := db.QueryRowContext(ctx, query, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrLost
	}
	return err
}
