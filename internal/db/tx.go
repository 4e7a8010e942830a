// Package db holds the helpers shared by the SQLite stores.
package db

import (
	"database/sql"
	"fmt"
)

// WithTx runs fn in a transaction, committing when fn succeeds and
// rolling back otherwise.
func WithTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// NullString stores an empty tag value as NULL.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// String reads a nullable tag value, NULL being "".
func String(n sql.NullString) string {
	if !n.Valid {
		return ""
	}
	return n.String
}
