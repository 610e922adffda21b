package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quartzlab/upgrader/internal/changelog"
	"github.com/quartzlab/upgrader/internal/config"
	"github.com/quartzlab/upgrader/internal/database"
	"github.com/quartzlab/upgrader/internal/dialect"
	"github.com/quartzlab/upgrader/internal/upgrade"
)

// errUnknownFormat is returned for output formats other than text and json.
var errUnknownFormat = errors.New("unknown output format") //nolint:gochecknoglobals // sentinel error

var statusCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "status",
	Short: "Show upgrade status",
	Long: `Display the active database version, the latest available upgrade
version, pending versions, and the applied history.`,
	RunE: runStatus,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	statusCmd.Flags().String("format", "text", "output format (text, json)")
	rootCmd.AddCommand(statusCmd)
}

// statusReport is the status command's view of a database and its
// available upgrades.
type statusReport struct {
	Engine        string            `json:"engine"`
	ActiveVersion int               `json:"active_version"`
	LatestVersion int               `json:"latest_version"`
	Pending       []int             `json:"pending"`
	Applied       []changelog.Entry `json:"applied"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("%w: %q", errUnknownFormat, format)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	report, err := buildStatusReport(ctx, cfg)
	if err != nil {
		return err
	}

	if format == "json" {
		return renderStatusJSON(cmd.OutOrStdout(), report)
	}

	renderStatusText(cmd.OutOrStdout(), report)

	return nil
}

func buildStatusReport(ctx context.Context, cfg *config.Config) (*statusReport, error) {
	d, err := dialect.ForEngine(cfg.Engine)
	if err != nil {
		return nil, err
	}

	src, err := buildSource(ctx, cfg.ScriptsDir)
	if err != nil {
		return nil, err
	}

	versions, err := upgrade.Versions(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("listing upgrade versions: %w", err)
	}

	db, err := database.Open(ctx, cfg.Engine, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close() //nolint:errcheck // short-lived command handle

	log := changelog.New(d, cfg.TableName)

	active, err := log.ActiveVersion(ctx, db)
	if err != nil {
		return nil, err
	}

	report := &statusReport{
		Engine:        cfg.Engine,
		ActiveVersion: active,
		Pending:       []int{},
	}

	if len(versions) > 0 {
		report.LatestVersion = versions[len(versions)-1]
	}

	for _, v := range versions {
		if v > active {
			report.Pending = append(report.Pending, v)
		}
	}

	if active != changelog.VersionUninitialized {
		report.Applied, err = log.Applied(ctx, db)
		if err != nil {
			return nil, err
		}
	}

	return report, nil
}

func renderStatusJSON(out io.Writer, report *statusReport) error {
	encoded, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding status report: %w", err)
	}

	fmt.Fprintln(out, string(encoded))

	return nil
}

func renderStatusText(out io.Writer, report *statusReport) {
	if report.ActiveVersion == changelog.VersionUninitialized {
		fmt.Fprintln(out, "Changelog table not initialized.")
	} else {
		fmt.Fprintf(out, "Active version: %d\n", report.ActiveVersion)
	}

	fmt.Fprintf(out, "Latest available: %d\n", report.LatestVersion)

	if len(report.Pending) == 0 {
		fmt.Fprintln(out, "Pending: none")
	} else {
		fmt.Fprintf(out, "Pending: %s\n", joinVersions(report.Pending))
	}

	if len(report.Applied) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Applied:")

		for _, entry := range report.Applied {
			fmt.Fprintf(out, "  %4d  %s\n", entry.Version, entry.Applied)
		}
	}
}

func joinVersions(versions []int) string {
	parts := make([]string, 0, len(versions))
	for _, v := range versions {
		parts = append(parts, strconv.Itoa(v))
	}

	return strings.Join(parts, ", ")
}
