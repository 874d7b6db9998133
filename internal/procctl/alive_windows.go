//go:build windows

package procctl

import "os"

// processAlive on Windows opens the process handle; unlike Unix,
// os.FindProcess itself fails once the process has exited.
func processAlive(pid int) bool {
	_, err := os.FindProcess(pid)
	return err == nil
}
