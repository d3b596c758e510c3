package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	shipiterrors "shipit.dev/shipit/internal/errors"
)

// Tag creates an annotated tag on commit. A non-empty signingIdentity makes
// a signed tag (-u); an empty one makes a plain annotated tag. An existing
// tag name is rejected outright, never overwritten.
func (g *Git) Tag(ctx context.Context, name, commit, signingIdentity string) error {
	exists, err := g.TagExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return &shipiterrors.TagExistsError{TagName: name}
	}

	args := []string{"tag"}
	if signingIdentity != "" {
		args = append(args, "-s", "-u", signingIdentity)
	} else {
		args = append(args, "-a")
	}
	args = append(args, "-m", name, name, commit)

	if _, err := g.runner.Run(ctx, args...); err != nil {
		var cmdErr *shipiterrors.CommandError
		if errors.As(err, &cmdErr) && isSigningFailure(cmdErr.Stderr) {
			return &shipiterrors.SigningFailedError{
				TagName:  name,
				Identity: signingIdentity,
				Reason:   strings.TrimSpace(cmdErr.Stderr),
			}
		}
		return fmt.Errorf("failed to tag %s at %s: %w", name, commit, err)
	}
	return nil
}

// isSigningFailure recognizes gpg failures in git's stderr
func isSigningFailure(stderr string) bool {
	lower := strings.ToLower(stderr)
	return strings.Contains(lower, "gpg") || strings.Contains(lower, "signing failed") ||
		strings.Contains(lower, "secret key")
}
