// Package changelog manages the bookkeeping table that records which
// upgrade versions have been applied.
package changelog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/quartzlab/upgrader/internal/dialect"
)

// DefaultTableName is the changelog table used unless the caller
// overrides it.
const DefaultTableName = "schema_changelog"

// VersionUninitialized is the ActiveVersion sentinel for a database where
// the changelog table does not exist yet.
const VersionUninitialized = -1

// Entry is one applied-version row. Applied is pre-formatted for display
// because the supported drivers disagree on timestamp scan types.
type Entry struct {
	Version int    `json:"version"`
	Applied string `json:"applied"`
}

// Execer is the subset of statement execution shared by *sql.DB and
// *sql.Tx. Record takes it so the insert can join the caller's
// transaction.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Log reads and writes one changelog table through a fixed dialect.
type Log struct {
	dialect *dialect.Dialect
	table   string
}

// New returns a Log bound to the given dialect and table name.
func New(d *dialect.Dialect, table string) *Log {
	return &Log{dialect: d, table: table}
}

// Table returns the changelog table name.
func (l *Log) Table() string { return l.table }

// Create creates the changelog table from the dialect's template. It is
// only called when ActiveVersion reported the table as absent.
func (l *Log) Create(ctx context.Context, db Execer) error {
	if _, err := db.ExecContext(ctx, l.dialect.CreateChangelogSQL(l.table)); err != nil {
		return fmt.Errorf("%w %s: %w", ErrTableCreation, l.table, err)
	}

	return nil
}

// ActiveVersion returns the highest applied version, 0 when the table
// exists but holds no rows, or VersionUninitialized when the table does
// not exist. Only the engine's specific undefined-table error maps to the
// sentinel; every other query error is surfaced.
func (l *Log) ActiveVersion(ctx context.Context, db *sql.DB) (int, error) {
	var maxID sql.NullInt64

	err := db.QueryRowContext(ctx, l.dialect.MaxVersionSQL(l.table)).Scan(&maxID)

	switch {
	case err == nil:
	case l.dialect.IsUndefinedTable(err):
		return VersionUninitialized, nil
	default:
		return 0, fmt.Errorf("querying active version: %w", err)
	}

	if !maxID.Valid {
		return 0, nil
	}

	return int(maxID.Int64), nil
}

// Record inserts the row for version. It must run inside the same
// transaction as the version's scripts; exactly one row must be affected
// or the version counts as not persisted.
func (l *Log) Record(ctx context.Context, db Execer, version int) error {
	res, err := db.ExecContext(ctx, l.dialect.InsertRecordSQL(l.table), version)
	if err != nil {
		return fmt.Errorf("recording version %d: %w", version, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("recording version %d: %w", version, err)
	}

	if rows != 1 {
		return fmt.Errorf("version %d affected %d rows: %w", version, rows, ErrRecordNotPersisted)
	}

	return nil
}

// Applied returns every applied version in ascending order.
func (l *Log) Applied(ctx context.Context, db *sql.DB) ([]Entry, error) {
	query := fmt.Sprintf("SELECT id, applied FROM %s ORDER BY id", l.table)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying applied versions: %w", err)
	}
	defer rows.Close()

	var entries []Entry

	for rows.Next() {
		var (
			e   Entry
			raw any
		)

		if err := rows.Scan(&e.Version, &raw); err != nil {
			return nil, fmt.Errorf("scanning applied version: %w", err)
		}

		e.Applied = formatTimestamp(raw)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading applied versions: %w", err)
	}

	return entries, nil
}

func formatTimestamp(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case []byte:
		return string(t)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
