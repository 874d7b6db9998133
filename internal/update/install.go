package update

import (
	"os"
	"path/filepath"

	"github.com/forgehq/forge/internal/ferrors"
)

// backupSuffix names the install's previous-version backup.
const backupSuffix = ".old"

// versionFileName is written under the forge home directory after a
// successful self-install.
const versionFileName = "version"

// CheckAndPerformSelfInstall runs on re-exec, when the three handoff env
// vars set by RestartWithNewBinary are present. It backs up the existing
// install, renames the staged binary into place, sets its mode, clears the
// handoff env vars, and records the new version. On a rename failure it
// attempts to restore the backup.
func CheckAndPerformSelfInstall(forgeHome, newVersion string) (installPath string, performed bool, err error) {
	stagingPath := os.Getenv("FORGE_STAGING_PATH")
	installPathEnv := os.Getenv("FORGE_INSTALL_PATH")
	if os.Getenv("FORGE_AUTO_RESTART") == "" || stagingPath == "" || installPathEnv == "" {
		return "", false, nil
	}

	backupPath := installPathEnv + backupSuffix
	hadExisting := fileExists(installPathEnv)

	if hadExisting {
		if err := os.Rename(installPathEnv, backupPath); err != nil {
			return "", false, ferrors.Wrap(ferrors.KindUpdateInstall, installPathEnv, "backing up current install", err)
		}
	}

	if err := os.Rename(stagingPath, installPathEnv); err != nil {
		if hadExisting {
			_ = os.Rename(backupPath, installPathEnv) // best-effort restore
		}
		return "", false, ferrors.Wrap(ferrors.KindUpdateInstall, stagingPath, "installing staged binary", err)
	}

	if err := os.Chmod(installPathEnv, 0o755); err != nil {
		return "", false, ferrors.Wrap(ferrors.KindUpdateInstall, installPathEnv, "chmod on installed binary", err)
	}

	os.Unsetenv("FORGE_INSTALL_PATH")
	os.Unsetenv("FORGE_STAGING_PATH")
	os.Unsetenv("FORGE_AUTO_RESTART")

	if err := writeVersionFile(forgeHome, newVersion); err != nil {
		return installPathEnv, true, err
	}

	return installPathEnv, true, nil
}

func writeVersionFile(forgeHome, version string) error {
	if err := os.MkdirAll(forgeHome, 0o755); err != nil {
		return ferrors.Wrap(ferrors.KindIO, forgeHome, "creating forge home", err)
	}
	path := filepath.Join(forgeHome, versionFileName)
	if err := os.WriteFile(path, []byte(version), 0o644); err != nil {
		return ferrors.Wrap(ferrors.KindIO, path, "writing version file", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
