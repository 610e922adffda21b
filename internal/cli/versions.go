package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quartzlab/upgrader/internal/upgrade"
)

var versionsCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "versions",
	Short: "List available upgrade versions",
	Long:  `List the upgrade versions found in the scripts directory, in apply order.`,
	RunE:  runVersions,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for command registration
	rootCmd.AddCommand(versionsCmd)
}

func runVersions(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	src, err := buildSource(ctx, AppConfig.ScriptsDir)
	if err != nil {
		return err
	}

	versions, err := upgrade.Versions(ctx, src)
	if err != nil {
		return fmt.Errorf("listing upgrade versions: %w", err)
	}

	out := cmd.OutOrStdout()

	if len(versions) == 0 {
		fmt.Fprintln(out, "No upgrade versions available.")

		return nil
	}

	for _, v := range versions {
		fmt.Fprintln(out, v)
	}

	return nil
}
