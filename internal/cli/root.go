package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/quartzlab/upgrader/internal/config"
	"github.com/quartzlab/upgrader/internal/upgrade"
)

const version = "0.1.0"

// AppConfig holds the loaded configuration, set during PersistentPreRunE.
var AppConfig *config.Config //nolint:gochecknoglobals // standard Cobra pattern for shared config

// rootCmd is the base command for the upgrader CLI.
var rootCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:     "upgrader",
	Version: version,
	Short:   "Sequential SQL schema upgrade runner",
	Long: `upgrader applies versioned directories of SQL upgrade scripts to a
database and records each applied version in a changelog table. Scripts
run in manifest or numeric prefix order, one transaction per version,
against MySQL, SQLite, or PostgreSQL.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.PersistentFlags().String("config", "upgrader.yml", "path to configuration file")
	rootCmd.PersistentFlags().String("engine", "", "database engine (mysql, sqlite3, postgres)")
	rootCmd.PersistentFlags().String("database-url", "", "database connection string")
	rootCmd.PersistentFlags().String("scripts-dir", "", "path or s3:// URL of the upgrade scripts")
	rootCmd.PersistentFlags().String("table-name", "", "changelog table name")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads configuration with precedence: flag > env > file.
func loadConfig(cmd *cobra.Command) error {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional

	configPath, _ := cmd.Flags().GetString("config")
	allowMissing := !cmd.Flags().Changed("config")

	cfg, err := config.Load(configPath, allowMissing)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if err := config.MergeEnv(cfg); err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	mergeFlags(cmd, cfg)

	AppConfig = cfg

	return nil
}

// mergeFlags overrides config with explicitly-set CLI flags.
func mergeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("engine") {
		cfg.Engine, _ = cmd.Flags().GetString("engine")
	}

	if cmd.Flags().Changed("database-url") {
		cfg.DatabaseURL, _ = cmd.Flags().GetString("database-url")
	}

	if cmd.Flags().Changed("scripts-dir") {
		cfg.ScriptsDir, _ = cmd.Flags().GetString("scripts-dir")
	}

	if cmd.Flags().Changed("table-name") {
		cfg.TableName, _ = cmd.Flags().GetString("table-name")
	}
}

// newLogger builds the diagnostic logger. Local environments get
// human-readable console output on stderr, everything else raw JSON.
func newLogger(cmd *cobra.Command, cfg *config.Config) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = zerolog.DebugLevel
	}

	if cfg.AppEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			Level(level).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

// buildSource selects the script source for the configured location.
func buildSource(ctx context.Context, scriptsDir string) (upgrade.Source, error) {
	if bucket, prefix, ok := upgrade.ParseS3URL(scriptsDir); ok {
		src, err := upgrade.NewS3Source(ctx, bucket, prefix)
		if err != nil {
			return nil, fmt.Errorf("opening scripts bucket: %w", err)
		}

		return src, nil
	}

	return upgrade.NewDirSource(scriptsDir), nil
}
