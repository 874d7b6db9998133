//go:build windows

package logtail

import "os"

// fileInode is a no-op on Windows: rotation detection there would need the
// file index from GetFileInformationByHandle, which os.File does not
// expose. Returning 0 means rotation is not detected on Windows: the
// tailer's stored position is never reset there.
func fileInode(*os.File) (uint64, error) {
	return 0, nil
}
