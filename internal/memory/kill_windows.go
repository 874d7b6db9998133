//go:build windows

package memory

import "os"

// KillRunawayWorker uses os.Process.Kill on Windows, where there is no
// POSIX signal to send.
func KillRunawayWorker(pid int) error {
	if pid <= 0 {
		return nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}
