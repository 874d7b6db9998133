package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/forgehq/forge/internal/update"
)

// runStartupProtocol runs the self-update handoff steps that must happen
// before any command dispatch, in order: roll back a previous run that
// crashed mid-startup, complete a staged self-install when re-exec'd with
// the handoff env vars, then arm the startup marker for this run. The
// caller clears the marker once startup has completed cleanly.
func runStartupProtocol(errOut io.Writer) error {
	home, err := forgeHome()
	if err != nil {
		return err
	}

	if exe, err := os.Executable(); err == nil {
		res, err := update.CheckAndRollback(home, exe, Version)
		if err != nil {
			return fmt.Errorf("rollback check: %w", err)
		}
		switch res.Outcome {
		case update.RolledBack:
			fmt.Fprintf(errOut, "forge: previous start of %s did not complete; restored %s from backup\n",
				res.FailedVersion, restoredLabel(res.RestoredVersion))
		case update.RollbackFailed:
			fmt.Fprintf(errOut, "forge: previous start of %s did not complete and no backup exists to restore\n",
				res.FailedVersion)
		}
	}

	installPath, performed, err := update.CheckAndPerformSelfInstall(home, Version)
	if err != nil {
		return fmt.Errorf("self-install: %w", err)
	}
	if performed {
		fmt.Fprintf(errOut, "forge: installed %s to %s\n", Version, installPath)
	}

	return update.WriteStartupMarker(home)
}

func restoredLabel(version string) string {
	if version == "" {
		return "previous version"
	}
	return version
}

// clearStartupMarker marks this run's startup as completed.
func clearStartupMarker() {
	home, err := forgeHome()
	if err != nil {
		return
	}
	_ = update.ClearStartupMarker(home)
}
