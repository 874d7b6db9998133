//go:build !windows

package update

import (
	"fmt"
	"os"
	"syscall"

	"github.com/forgehq/forge/internal/ferrors"
)

// RestartWithNewBinary replaces the current process image with
// stagingPath via execv, passing through the current arguments (skipping
// argv[0]) and the three handoff environment variables the self-install
// step reads on the other side.
func RestartWithNewBinary(stagingPath, installPath string) error {
	env := append(os.Environ(),
		fmt.Sprintf("FORGE_INSTALL_PATH=%s", installPath),
		fmt.Sprintf("FORGE_STAGING_PATH=%s", stagingPath),
		"FORGE_AUTO_RESTART=1",
	)
	args := append([]string{stagingPath}, os.Args[1:]...)
	if err := syscall.Exec(stagingPath, args, env); err != nil {
		return ferrors.Wrap(ferrors.KindUpdateInstall, stagingPath, "exec into staged binary", err)
	}
	return nil // unreachable on success: Exec replaces the process image
}
