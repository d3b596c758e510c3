// Package version provides semantic version parsing, bumping, and the
// registry that keeps every declared version location stamped consistently.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a semantic version. Equality is component-wise and the ordering
// is total (major, then minor, then patch).
type Version struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Patch int `json:"patch"`
}

// Parse parses a version string of the form "X.Y.Z" (an optional leading "v"
// is accepted).
func Parse(s string) (Version, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "v")
	parts := strings.Split(trimmed, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("invalid version %q: expected X.Y.Z", s)
	}

	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("invalid version %q: component %q is not a non-negative integer", s, part)
		}
		nums[i] = n
	}

	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// String returns the canonical "X.Y.Z" form
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0, or 1 ordering v against other
func (v Version) Compare(other Version) int {
	pairs := [][2]int{
		{v.Major, other.Major},
		{v.Minor, other.Minor},
		{v.Patch, other.Patch},
	}
	for _, p := range pairs {
		if p[0] < p[1] {
			return -1
		}
		if p[0] > p[1] {
			return 1
		}
	}
	return 0
}

// SameLine returns true if both versions belong to the same (major, minor)
// maintenance line
func (v Version) SameLine(other Version) bool {
	return v.Major == other.Major && v.Minor == other.Minor
}

// Line returns the "X.Y" maintenance line identifier
func (v Version) Line() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// BumpKind selects which component a bump increments
type BumpKind string

const (
	// BumpMajor increments major and zeroes minor and patch
	BumpMajor BumpKind = "major"
	// BumpMinor increments minor and zeroes patch
	BumpMinor BumpKind = "minor"
	// BumpPatch increments patch
	BumpPatch BumpKind = "patch"
)

// ParseBumpKind validates a bump kind string
func ParseBumpKind(s string) (BumpKind, error) {
	switch BumpKind(s) {
	case BumpMajor, BumpMinor, BumpPatch:
		return BumpKind(s), nil
	}
	return "", fmt.Errorf("invalid bump kind %q: expected major, minor, or patch", s)
}

// Bump returns the next version for the given kind. Pure function, the
// receiver is unchanged.
func (v Version) Bump(kind BumpKind) (Version, error) {
	switch kind {
	case BumpMajor:
		return Version{Major: v.Major + 1}, nil
	case BumpMinor:
		return Version{Major: v.Major, Minor: v.Minor + 1}, nil
	case BumpPatch:
		return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}, nil
	}
	return Version{}, fmt.Errorf("invalid bump kind %q", kind)
}

// ReleaseBranch returns the release branch name for a version, e.g. "release-1.4.0"
func (v Version) ReleaseBranch() string {
	return "release-" + v.String()
}

// MaintenanceBranch returns the maintenance branch name for a version's
// (major, minor) line, e.g. "maintenance-1.4"
func (v Version) MaintenanceBranch() string {
	return "maintenance-" + v.Line()
}

// TagName returns the tag name for a version, e.g. "v1.4.0"
func (v Version) TagName() string {
	return "v" + v.String()
}

// DocsDir returns the versioned docs directory name, e.g. "v1.4.0"
func (v Version) DocsDir() string {
	return "v" + v.String()
}
