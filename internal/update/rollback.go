package update

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/forgehq/forge/internal/ferrors"
)

// startupMarkerName is written during startup, after the rollback check and
// any pending self-install but before command dispatch, and removed on clean
// startup. Its survival across a launch means the
// previous run crashed before finishing startup.
const startupMarkerName = ".startup-in-progress"

// RollbackOutcome is the result of CheckAndRollback.
type RollbackOutcome int

const (
	NotNeeded RollbackOutcome = iota
	RolledBack
	RollbackFailed
)

// RollbackResult carries the outcome plus the versions involved, where
// known.
type RollbackResult struct {
	Outcome         RollbackOutcome
	FailedVersion   string
	RestoredVersion string
}

func markerPath(forgeHome string) string {
	return filepath.Join(forgeHome, startupMarkerName)
}

// WriteStartupMarker records that a startup attempt is in progress.
func WriteStartupMarker(forgeHome string) error {
	if err := os.MkdirAll(forgeHome, 0o755); err != nil {
		return ferrors.Wrap(ferrors.KindIO, forgeHome, "creating forge home", err)
	}
	path := markerPath(forgeHome)
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return ferrors.Wrap(ferrors.KindIO, path, "writing startup marker", err)
	}
	return nil
}

// ClearStartupMarker removes the marker on a clean startup.
func ClearStartupMarker(forgeHome string) error {
	path := markerPath(forgeHome)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return ferrors.Wrap(ferrors.KindIO, path, "clearing startup marker", err)
	}
	return nil
}

// CheckAndRollback is called before anything else at process start, passing
// the running binary's own version (the one that crashed, if a rollback
// turns out to be needed). If the marker from a previous run survived, the
// previous launch crashed before finishing startup: roll the install back
// to the ".old" backup and report both the failed and restored versions.
func CheckAndRollback(forgeHome, installPath, currentVersion string) (*RollbackResult, error) {
	path := markerPath(forgeHome)
	if !fileExists(path) {
		return &RollbackResult{Outcome: NotNeeded}, nil
	}

	restoredVersion := readVersionFile(forgeHome)

	backupPath := installPath + backupSuffix
	if !fileExists(backupPath) {
		_ = os.Remove(path)
		return &RollbackResult{Outcome: RollbackFailed, FailedVersion: currentVersion}, nil
	}

	if err := os.Remove(installPath); err != nil && !os.IsNotExist(err) {
		return nil, ferrors.Wrap(ferrors.KindUpdateInstall, installPath, "removing crashed install", err)
	}
	if err := copyFile(backupPath, installPath); err != nil {
		return &RollbackResult{Outcome: RollbackFailed, FailedVersion: currentVersion}, err
	}
	if err := os.Chmod(installPath, 0o755); err != nil {
		return nil, ferrors.Wrap(ferrors.KindUpdateInstall, installPath, "chmod on restored binary", err)
	}
	_ = os.Remove(path)

	return &RollbackResult{
		Outcome:         RolledBack,
		FailedVersion:   currentVersion,
		RestoredVersion: restoredVersion,
	}, nil
}

// readVersionFile returns the trimmed contents of the forge-home version
// file, or "" if it doesn't exist or can't be read.
func readVersionFile(forgeHome string) string {
	data, err := os.ReadFile(filepath.Join(forgeHome, versionFileName))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return ferrors.Wrap(ferrors.KindUpdateInstall, src, "opening backup", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return ferrors.Wrap(ferrors.KindUpdateInstall, dst, "creating restored binary", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return ferrors.Wrap(ferrors.KindUpdateInstall, dst, "restoring backup", err)
	}
	return nil
}
