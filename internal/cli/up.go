package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/quartzlab/upgrader/internal/config"
	"github.com/quartzlab/upgrader/internal/database"
	"github.com/quartzlab/upgrader/internal/runner"
)

// errDatabaseURLRequired is returned when no database URL is configured.
var errDatabaseURLRequired = errors.New( //nolint:gochecknoglobals // sentinel error
	"database URL is required (set --database-url, UPGRADER_DATABASE_URL, or database_url in config)",
)

var upCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "up",
	Short: "Apply pending schema upgrades",
	Long: `Apply every pending upgrade version in order. Each version's scripts
run together with its changelog record in a single transaction, so a
failing version leaves the database at the previous version.`,
	RunE: runUp,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for command registration
	rootCmd.AddCommand(upCmd)
}

func runUp(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Connecting to %s\n", config.RedactDSN(cfg.DatabaseURL))

	db, err := database.Open(ctx, cfg.Engine, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close() //nolint:errcheck // short-lived command handle

	src, err := buildSource(ctx, cfg.ScriptsDir)
	if err != nil {
		return err
	}

	r, err := runner.ForEngine(cfg.Engine, db, cfg.ScriptsDir,
		runner.WithTableName(cfg.TableName),
		runner.WithSource(src),
		runner.WithLogger(newLogger(cmd, cfg)),
		runner.WithProgress(progressPrinter(out, cfg.TableName)),
	)
	if err != nil {
		return err
	}

	_, err = r.Run(ctx)

	return err
}

// progressPrinter renders runner progress in the classic console format:
// the current version line, table creation, "= upgrading to version N",
// one " > name" line per script, and the completion line per version.
func progressPrinter(out io.Writer, table string) func(runner.ProgressEvent) {
	headerDone := false
	gap := func() {
		if !headerDone {
			fmt.Fprintln(out)

			headerDone = true
		}
	}

	return func(event runner.ProgressEvent) {
		switch event.Status {
		case runner.StatusRunStarted:
			fmt.Fprintf(out, "Database currently at version %d.\n", event.Active)
		case runner.StatusTableCreated:
			fmt.Fprintf(out, "Create version table %s: version => %d\n", table, event.Active)
		case runner.StatusUpToDate:
			gap()
			fmt.Fprintln(out, "No upgrades to be applied.")
		case runner.StatusVersionStarted:
			gap()
			fmt.Fprintf(out, "= upgrading to version %d ...\n", event.Version)
		case runner.StatusScriptApplied:
			fmt.Fprintf(out, " > %s\n", event.Script)
		case runner.StatusVersionApplied:
			fmt.Fprintf(out, "= upgrade complete: version => %d\n\n", event.Version)
		case runner.StatusVersionFailed:
			fmt.Fprintf(out, "error upgrading to version %d\n\n%v\n", event.Version, event.Error)
		}
	}
}
