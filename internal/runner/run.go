package runner

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quartzlab/upgrader/internal/changelog"
	"github.com/quartzlab/upgrader/internal/upgrade"
)

// Result summarizes a completed run.
type Result struct {
	StartVersion int
	FinalVersion int
	Applied      []int
}

// Run applies every pending upgrade in ascending version order. Each
// version's scripts plus its changelog record commit in one transaction;
// the first failure rolls that version back and stops the run. Versions
// committed earlier in the run stay applied, and the next Run re-derives
// the active version from the database and retries the failed version
// from scratch.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	logger := r.logger.With().Str("run_id", uuid.NewString()).Logger()

	active, err := r.log.ActiveVersion(ctx, r.db)
	if err != nil {
		return nil, err
	}

	latest, err := upgrade.Latest(ctx, r.source)
	if err != nil {
		return nil, err
	}

	r.fireProgress(ProgressEvent{Status: StatusRunStarted, Active: active})
	logger.Info().Int("active", active).Int("latest", latest).Msg("run started")

	if active == changelog.VersionUninitialized {
		if err := r.log.Create(ctx, r.db); err != nil {
			return nil, err
		}

		active = 0
		r.fireProgress(ProgressEvent{Status: StatusTableCreated})
		logger.Info().Str("table", r.log.Table()).Msg("changelog table created")
	}

	result := &Result{StartVersion: active, FinalVersion: active}

	if active >= latest {
		r.fireProgress(ProgressEvent{Status: StatusUpToDate})
		logger.Info().Int("version", active).Msg("database up to date")

		return result, nil
	}

	for version := active + 1; version <= latest; version++ {
		if err := r.applyVersion(ctx, logger, version); err != nil {
			r.fireProgress(ProgressEvent{Status: StatusVersionFailed, Version: version, Error: err})
			logger.Error().Err(err).Int("version", version).Msg("upgrade failed")

			return nil, fmt.Errorf("upgrading to version %d: %w", version, err)
		}

		result.FinalVersion = version
		result.Applied = append(result.Applied, version)
	}

	return result, nil
}

// applyVersion loads one upgrade unit and applies it atomically: every
// script in unit order plus the changelog record, in a single
// transaction.
func (r *Runner) applyVersion(ctx context.Context, logger zerolog.Logger, version int) error {
	unit, err := upgrade.Load(ctx, r.source, version)
	if err != nil {
		return err
	}

	for _, script := range unit.Scripts {
		if err := r.dialect.CheckScript(script.SQL); err != nil {
			return fmt.Errorf("script %s: %w", script.Name, err)
		}
	}

	r.fireProgress(ProgressEvent{Status: StatusVersionStarted, Version: version})

	start := time.Now()

	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, script := range unit.Scripts {
			if _, err := tx.ExecContext(ctx, script.SQL); err != nil {
				return fmt.Errorf("script %s: %w", script.Name, err)
			}

			r.fireProgress(ProgressEvent{Status: StatusScriptApplied, Version: version, Script: script.Name})
			logger.Debug().Int("version", version).Str("script", script.Name).Msg("script applied")
		}

		return r.log.Record(ctx, tx, version)
	})
	if err != nil {
		return err
	}

	duration := time.Since(start)
	r.fireProgress(ProgressEvent{Status: StatusVersionApplied, Version: version, Duration: duration})
	logger.Info().Int("version", version).Dur("duration", duration).Msg("upgrade applied")

	return nil
}
