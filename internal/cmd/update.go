package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forgehq/forge/internal/update"
)

// DefaultReleasesURL points at the forge release feed. Overridable via
// FORGE_RELEASES_URL for testing and for mirrors.
const DefaultReleasesURL = "https://api.github.com/repos/forgehq/forge/releases/latest"

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Check for or apply a forge self-update",
}

var updateCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether a newer forge release is available",
	RunE:  runUpdateCheck,
}

var updateApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Download and stage the latest forge release, then restart into it",
	RunE:  runUpdateApply,
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.AddCommand(updateCheckCmd, updateApplyCmd)
}

func releasesURL() string {
	if u := os.Getenv("FORGE_RELEASES_URL"); u != "" {
		return u
	}
	return DefaultReleasesURL
}

func runUpdateCheck(cmd *cobra.Command, args []string) error {
	result, err := update.CheckForUpdate(cmd.Context(), releasesURL(), Version, "forge")
	if err != nil {
		return err
	}
	if result.Outcome == update.UpToDate {
		fmt.Fprintf(cmd.OutOrStdout(), "forge %s is up to date\n", Version)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "forge %s available (current %s)\n", result.Latest, result.Current)
	return nil
}

func runUpdateApply(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	result, err := update.CheckForUpdate(ctx, releasesURL(), Version, "forge")
	if err != nil {
		return err
	}
	if result.Outcome == update.UpToDate {
		fmt.Fprintf(cmd.OutOrStdout(), "forge %s is up to date\n", Version)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "downloading forge %s...\n", result.Latest)
	stagingPath, err := update.PerformUpdate(ctx, result.URL, result.Size, func(p update.Progress) {
		fmt.Fprintf(cmd.OutOrStdout(), "\r%.0f%%", p.Percent)
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout())

	installPath, err := os.Executable()
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "restarting into the new binary...")
	return update.RestartWithNewBinary(stagingPath, installPath)
}
