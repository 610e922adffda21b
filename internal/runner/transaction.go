package runner

import (
	"context"
	"database/sql"
	"fmt"
)

// withTx runs fn inside a transaction. On success the transaction is
// committed; on any other exit path it is rolled back.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer tx.Rollback() //nolint:errcheck // rollback after commit returns ErrTxDone

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
