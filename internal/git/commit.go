package git

import (
	"context"
	"fmt"

	shipiterrors "shipit.dev/shipit/internal/errors"
)

// Commit stages all tracked modifications and commits them, returning the
// new commit sha
func (g *Git) Commit(ctx context.Context, message string) (string, error) {
	clean, err := g.IsClean(ctx)
	if err != nil {
		return "", err
	}
	if clean {
		return "", shipiterrors.ErrNothingToCommit
	}

	if _, err := g.runner.Run(ctx, "add", "-A"); err != nil {
		return "", fmt.Errorf("failed to stage changes: %w", err)
	}

	if _, err := g.runner.Run(ctx, "commit", "-m", message); err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}

	return g.RevParse(ctx, "HEAD")
}
