// Package dbx holds the small database plumbing the metadata repositories
// share: DBTX, the query surface satisfied by both *sql.DB and *sql.Tx, and
// WithTx, which backs the atomic metadata half of the container cascade.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql the repositories query through. Because
// both *sql.DB and *sql.Tx satisfy it, the repository manager can bind the
// same repository implementations to a plain connection or to a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx begins a transaction, runs fn with the transactional handle, and
// commits on success or rolls back on error/panic. Panics are rethrown.
//
// The container cascade uses it to delete subtree file records and container
// records as one unit:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    if err := rm.Files(tx).DeleteByContainerIDs(ctx, ids); err != nil {
//	        return err
//	    }
//	    return rm.Containers(tx).DeleteByIDs(ctx, ids)
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}
