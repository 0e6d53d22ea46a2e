package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Tx is a database transaction that rewrites queries for the owning driver.
type Tx struct {
	*sql.Tx
	driver string
}

func (tx *Tx) Q(query string) string {
	return rewrite(tx.driver, query)
}

func (tx *Tx) Driver() string { return tx.driver }

// WithTx runs fn inside a transaction. The transaction commits when fn returns
// nil and rolls back otherwise. fn must only use tx; calling back into db while
// the transaction is open deadlocks on SQLite's single connection.
func (db *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	tx := &Tx{Tx: sqlTx, driver: db.driver}
	if err := fn(tx); err != nil {
		sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
