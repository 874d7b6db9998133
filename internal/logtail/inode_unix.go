//go:build !windows

package logtail

import (
	"os"

	"golang.org/x/sys/unix"
)

// fileInode returns the Unix inode number backing f, used to detect log
// rotation (truncate-and-reopen or rename-and-recreate) between reads.
func fileInode(f *os.File) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		return 0, err
	}
	return st.Ino, nil
}
