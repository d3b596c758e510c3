package publish

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	shipiterrors "shipit.dev/shipit/internal/errors"
	"shipit.dev/shipit/internal/version"
)

// DefaultBuildTimeout bounds a single collaborator invocation
const DefaultBuildTimeout = 15 * time.Minute

// Publisher builds and publishes artifacts for a repository checkout
type Publisher struct {
	workDir string // repository root; collaborators run here
}

// NewPublisher creates a Publisher running collaborators in workDir
func NewPublisher(workDir string) *Publisher {
	return &Publisher{workDir: workDir}
}

// Build runs the target's build command against sourceRef and returns a
// handle to the produced artifact. The build writes into a fresh output
// directory handed to it via the {out} placeholder.
func (p *Publisher) Build(ctx context.Context, target Target, sourceRef string, v version.Version) (*Artifact, error) {
	if len(target.BuildCmd) == 0 {
		return nil, fmt.Errorf("%s target has no build command", target.Kind)
	}

	out, err := os.MkdirTemp("", "shipit-build-")
	if err != nil {
		return nil, fmt.Errorf("failed to create build output directory: %w", err)
	}

	argv := expand(target.BuildCmd, map[string]string{
		"ref":     sourceRef,
		"version": v.String(),
		"out":     out,
	})

	if err := p.runCollaborator(ctx, argv, target.Kind, true); err != nil {
		return nil, err
	}

	switch target.Kind {
	case TargetDocs:
		return &Artifact{Kind: TargetDocs, Path: out}, nil
	case TargetPackage:
		artifact, err := singleEntry(out)
		if err != nil {
			return nil, &shipiterrors.BuildFailedError{Target: string(target.Kind), Reason: err.Error()}
		}
		return &Artifact{Kind: TargetPackage, Path: artifact}, nil
	}
	return nil, fmt.Errorf("unknown target kind %q", target.Kind)
}

// Upload runs the target's upload command for a built package artifact
func (p *Publisher) Upload(ctx context.Context, target Target, artifact *Artifact) error {
	if artifact.Kind != TargetPackage {
		return fmt.Errorf("upload applies to package artifacts, got %s", artifact.Kind)
	}
	if len(target.UploadCmd) == 0 {
		return fmt.Errorf("package target has no upload command")
	}

	argv := expand(target.UploadCmd, map[string]string{
		"artifact": artifact.Path,
		"dest":     target.Dest,
	})
	return p.runCollaborator(ctx, argv, target.Kind, false)
}

// runCollaborator executes one external command, mapping failure to the
// build or upload error kind with the collaborator's reported reason
func (p *Publisher) runCollaborator(ctx context.Context, argv []string, kind TargetKind, building bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultBuildTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = p.workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		reason := lastLine(stderr.String())
		if reason == "" {
			reason = err.Error()
		}
		if building {
			return &shipiterrors.BuildFailedError{Target: string(kind), Reason: reason}
		}
		return &shipiterrors.UploadFailedError{Target: string(kind), Reason: reason}
	}
	return nil
}

// singleEntry returns the one file a package build must produce
func singleEntry(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	if len(entries) != 1 {
		return "", fmt.Errorf("expected exactly one artifact in %s, found %d", dir, len(entries))
	}
	return filepath.Join(dir, entries[0].Name()), nil
}

// lastLine returns the last non-empty line of s
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
