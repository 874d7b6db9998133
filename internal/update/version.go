// Package update implements the self-update machine: checking for a new
// release, downloading and verifying it, staging a restart into the new
// binary, performing the atomic install on re-exec, and rolling back a
// failed install on the next startup. Releases ship a single binary per
// platform, not an archive.
package update

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Version is a parsed major.minor.patch version, comparisons padded with
// zeros and unparseable components dropped.
type Version struct {
	Major int
	Minor int
	Patch int
	Raw   string
}

var semverRegex = regexp.MustCompile(`^v?(\d+)(?:\.(\d+))?(?:\.(\d+))?`)

// ParseVersion parses a version string, stripping a leading "v" and
// zero-padding missing components.
func ParseVersion(s string) (*Version, error) {
	trimmed := strings.TrimSpace(s)
	matches := semverRegex.FindStringSubmatch(trimmed)
	if matches == nil {
		return nil, fmt.Errorf("invalid version format: %q", s)
	}
	return &Version{
		Major: atoiOrZero(matches[1]),
		Minor: atoiOrZero(matches[2]),
		Patch: atoiOrZero(matches[3]),
		Raw:   trimmed,
	}, nil
}

func atoiOrZero(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func (v *Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0, or 1 comparing v to other, component-wise.
func (v *Version) Compare(other *Version) int {
	if v.Major != other.Major {
		return sign(v.Major - other.Major)
	}
	if v.Minor != other.Minor {
		return sign(v.Minor - other.Minor)
	}
	if v.Patch != other.Patch {
		return sign(v.Patch - other.Patch)
	}
	return 0
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// LessThan reports whether v < other.
func (v *Version) LessThan(other *Version) bool { return v.Compare(other) < 0 }
