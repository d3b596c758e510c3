// Package publish drives the external build/upload collaborators for docs
// and package artifacts and verifies their postconditions. Collaborators are
// invoked through a command contract: an argv template with placeholders,
// expanded per invocation, that must exit zero on success and report a
// reason on stderr on failure.
package publish

import "strings"

// TargetKind distinguishes the two publishable artifact kinds
type TargetKind string

const (
	// TargetDocs is the rendered documentation tree
	TargetDocs TargetKind = "docs"
	// TargetPackage is the distributable package
	TargetPackage TargetKind = "package"
)

// Target is the stateless configuration for one publish destination.
// BuildCmd and UploadCmd are argv templates; recognized placeholders are
// {ref} (source revision), {version} (X.Y.Z), {out} (fresh build output
// directory), {artifact} (built artifact path), and {dest} (destination).
type Target struct {
	Kind      TargetKind
	Dest      string
	Alias     string // docs only: movable pointer to the latest release
	BuildCmd  []string
	UploadCmd []string // package only
}

// Artifact is a handle to a built artifact, decoupled from any working-tree
// branch state: a directory for docs, a single file for packages.
type Artifact struct {
	Kind TargetKind
	Path string
}

// expand substitutes placeholders into an argv template
func expand(template []string, vars map[string]string) []string {
	argv := make([]string, len(template))
	for i, arg := range template {
		for key, value := range vars {
			arg = strings.ReplaceAll(arg, "{"+key+"}", value)
		}
		argv[i] = arg
	}
	return argv
}
