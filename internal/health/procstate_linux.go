//go:build linux

package health

import (
	"fmt"
	"os"
	"strings"
)

// readProcStateIsZombie reads field 3 of /proc/<pid>/stat (the state
// letter) and reports whether it is "Z". The comm field (field 2) is
// parenthesized and may itself contain spaces, so we split on the closing
// paren rather than by whitespace position.
func readProcStateIsZombie(pid int) bool {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid)) //nolint:gosec // G304: pid-derived path under /proc
	if err != nil {
		return false
	}
	line := string(data)
	idx := strings.LastIndex(line, ")")
	if idx < 0 || idx+2 >= len(line) {
		return false
	}
	fields := strings.Fields(line[idx+2:])
	if len(fields) == 0 {
		return false
	}
	return fields[0] == "Z"
}
