//go:build windows

package update

import "github.com/forgehq/forge/internal/ferrors"

// RestartWithNewBinary is unsupported on Windows; execv has no direct
// analog there.
func RestartWithNewBinary(stagingPath, installPath string) error {
	return ferrors.New(ferrors.KindUpdateInstall, "self-update restart is not supported on Windows")
}
