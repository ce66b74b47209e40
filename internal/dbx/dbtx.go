// Package dbx provides tiny DB abstractions shared by the store layer:
// a minimal interface (DBTX) implemented by both *sql.DB and *sql.Tx,
// and helpers to run functions inside a transaction or a savepoint.
package dbx

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
)

// DBTX is the subset of database/sql used by the store.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxBeginner is implemented by *sql.DB.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// WithTx begins a transaction, runs fn with a transactional handle, and then
// commits on success or rolls back on error/panic. Panics are rethrown.
//
// Typical use:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    // use tx instead of db
//	    _, err := tx.ExecContext(ctx, "UPDATE ...")
//	    return err
//	})
func WithTx(ctx context.Context, db TxBeginner, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
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

var savepointName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// WithSavepoint runs fn inside a named SAVEPOINT of an open transaction.
// On error or panic everything fn wrote is rolled back to the savepoint and
// the surrounding transaction stays usable.
func WithSavepoint(ctx context.Context, tx DBTX, name string, fn func(ctx context.Context) error) (err error) {
	if !savepointName.MatchString(name) {
		return fmt.Errorf("invalid savepoint name %q", name)
	}

	if _, err = tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("savepoint %s: %w", name, err)
	}

	defer func() {
		if p := recover(); p != nil {
			rollbackTo(ctx, tx, name)
			panic(p)
		}
		if err != nil {
			rollbackTo(ctx, tx, name)
			return
		}
		if _, relErr := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); relErr != nil {
			err = fmt.Errorf("release savepoint %s: %w", name, relErr)
		}
	}()

	err = fn(ctx)
	return err
}

// rollbackTo отменяет изменения после savepoint и снимает его со стека
func rollbackTo(ctx context.Context, tx DBTX, name string) {
	_, _ = tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name)
	_, _ = tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
}
