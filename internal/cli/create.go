package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/quartzlab/upgrader/internal/upgrade"
)

// scriptNamePattern constrains scaffolded script names to characters
// that survive both filesystems and manifest files.
var scriptNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`) //nolint:gochecknoglobals // compiled once

var (
	errInvalidScriptName = errors.New("script name may contain only letters, digits, hyphens, and underscores")
	errRemoteScriptsDir  = errors.New("create requires a local scripts directory")
)

var createCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "create <name>",
	Short: "Scaffold the next upgrade version",
	Long: `Create the next upgrade version directory under the scripts directory
with a numbered starter script.`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for command registration
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	cfg := AppConfig
	name := args[0]

	if !scriptNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", errInvalidScriptName, name)
	}

	if _, _, ok := upgrade.ParseS3URL(cfg.ScriptsDir); ok {
		return errRemoteScriptsDir
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	next, err := nextVersion(ctx, cfg.ScriptsDir)
	if err != nil {
		return err
	}

	dir := filepath.Join(cfg.ScriptsDir, strconv.Itoa(next))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating version directory: %w", err)
	}

	scriptPath := filepath.Join(dir, "1-"+name+upgrade.ScriptExt)
	contents := fmt.Sprintf("-- upgrade %d: %s\n", next, name)

	if err := os.WriteFile(scriptPath, []byte(contents), 0o644); err != nil {
		return fmt.Errorf("writing starter script: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", scriptPath)

	return nil
}

// nextVersion returns one past the highest version on disk, or 1 when
// the scripts directory is empty or absent.
func nextVersion(ctx context.Context, dir string) (int, error) {
	versions, err := upgrade.Versions(ctx, upgrade.NewDirSource(dir))

	switch {
	case err == nil:
		if len(versions) == 0 {
			return 1, nil
		}

		return versions[len(versions)-1] + 1, nil
	case errors.Is(err, fs.ErrNotExist):
		return 1, nil
	default:
		return 0, fmt.Errorf("listing upgrade versions: %w", err)
	}
}
