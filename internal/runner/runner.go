// Package runner orchestrates discovery, ordering, execution, and
// bookkeeping of upgrade units against a database handle.
package runner

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/quartzlab/upgrader/internal/changelog"
	"github.com/quartzlab/upgrader/internal/dialect"
	"github.com/quartzlab/upgrader/internal/upgrade"
)

// Progress status constants reported via ProgressEvent.
const (
	StatusRunStarted     = "run_started"
	StatusTableCreated   = "table_created"
	StatusUpToDate       = "up_to_date"
	StatusVersionStarted = "version_started"
	StatusScriptApplied  = "script_applied"
	StatusVersionApplied = "version_applied"
	StatusVersionFailed  = "version_failed"
)

// ProgressEvent is emitted for each step of a run. Events are
// observational only; the data contract lives in the changelog table.
type ProgressEvent struct {
	Status   string
	Active   int    // active version at run start (StatusRunStarted only)
	Version  int    // version being processed (version-level events)
	Script   string // script name (StatusScriptApplied only)
	Duration time.Duration
	Error    error // failure cause (StatusVersionFailed only)
}

// identifierPattern constrains changelog table names to plain SQL
// identifiers, since the name is substituted into DDL templates.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`) //nolint:gochecknoglobals // compiled once, used by ForEngine

// Runner applies pending upgrades in ascending version order, recording
// each one in the changelog table inside the same transaction as its
// scripts. A Runner owns its database handle exclusively for the duration
// of a run; external exclusivity across processes is the caller's job.
type Runner struct {
	db         *sql.DB
	dialect    *dialect.Dialect
	source     upgrade.Source
	tableName  string
	log        *changelog.Log
	logger     zerolog.Logger
	onProgress func(ProgressEvent)
}

// Option configures a Runner.
type Option func(*Runner)

// WithTableName overrides the changelog table name.
func WithTableName(name string) Option {
	return func(r *Runner) { r.tableName = name }
}

// WithSource overrides the script store. The default reads from the
// scripts root on the local filesystem.
func WithSource(src upgrade.Source) Option {
	return func(r *Runner) { r.source = src }
}

// WithProgress sets a function called for each progress event.
func WithProgress(fn func(ProgressEvent)) Option {
	return func(r *Runner) { r.onProgress = fn }
}

// WithLogger sets the diagnostic logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// ForEngine builds a Runner for the given engine kind, database handle,
// and scripts root. The handle's lifecycle stays with the caller. Fails
// with dialect.ErrUnsupportedEngine for unknown engines and
// ErrInvalidTableName when the configured table is not a plain
// identifier.
func ForEngine(engine string, db *sql.DB, scriptsRoot string, opts ...Option) (*Runner, error) {
	d, err := dialect.ForEngine(engine)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		db:        db,
		dialect:   d,
		tableName: changelog.DefaultTableName,
		logger:    zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if !identifierPattern.MatchString(r.tableName) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTableName, r.tableName)
	}

	if r.source == nil {
		r.source = upgrade.NewDirSource(scriptsRoot)
	}

	r.log = changelog.New(d, r.tableName)

	return r, nil
}

// Table returns the changelog table name the runner records into.
func (r *Runner) Table() string { return r.tableName }

// ActiveVersion reports the highest version recorded in the changelog
// table, 0 when the table is empty, or changelog.VersionUninitialized when
// it does not exist yet.
func (r *Runner) ActiveVersion(ctx context.Context) (int, error) {
	return r.log.ActiveVersion(ctx, r.db)
}

func (r *Runner) fireProgress(event ProgressEvent) {
	if r.onProgress != nil {
		r.onProgress(event)
	}
}
