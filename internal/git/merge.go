package git

import (
	"context"
	"fmt"

	shipiterrors "shipit.dev/shipit/internal/errors"
)

// Merge merges source into the target branch. The target branch is checked
// out first, which refuses on a dirty working tree. On conflict the merge is
// aborted so no partial state remains, and the conflicting paths are
// reported; resolution is a human step.
func (g *Git) Merge(ctx context.Context, source, into string, strategy MergeStrategy) error {
	if err := g.Checkout(ctx, into); err != nil {
		return err
	}

	args := []string{"merge"}
	switch strategy {
	case ExplicitMergeCommit:
		args = append(args, "--no-ff", "-m", fmt.Sprintf("Merge branch '%s' into %s", source, into))
	case FastForwardPreferred:
		args = append(args, "--ff")
	default:
		return fmt.Errorf("unknown merge strategy %q", strategy)
	}
	args = append(args, source)

	if _, err := g.runner.Run(ctx, args...); err != nil {
		paths, pathsErr := g.unmergedPaths(ctx)
		if pathsErr == nil && len(paths) > 0 {
			// Abort before reporting so the tree carries no half-merged state
			_, _ = g.runner.Run(ctx, "merge", "--abort")
			return &shipiterrors.ConflictError{
				Operation: "merge",
				Source:    source,
				Target:    into,
				Paths:     paths,
			}
		}
		return fmt.Errorf("failed to merge %s into %s: %w", source, into, err)
	}
	return nil
}

// CherryPick applies a single commit onto the given branch. On conflict the
// cherry-pick is aborted and the conflicting paths are reported.
func (g *Git) CherryPick(ctx context.Context, sha, onto string) error {
	if err := g.Checkout(ctx, onto); err != nil {
		return err
	}

	if _, err := g.runner.Run(ctx, "cherry-pick", sha); err != nil {
		paths, pathsErr := g.unmergedPaths(ctx)
		if pathsErr == nil && len(paths) > 0 {
			_, _ = g.runner.Run(ctx, "cherry-pick", "--abort")
			return &shipiterrors.ConflictError{
				Operation: "cherry-pick",
				Source:    sha,
				Target:    onto,
				Paths:     paths,
			}
		}
		return fmt.Errorf("failed to cherry-pick %s onto %s: %w", sha, onto, err)
	}
	return nil
}

// unmergedPaths lists files left in a conflicted state
func (g *Git) unmergedPaths(ctx context.Context) ([]string, error) {
	return g.runner.RunLines(ctx, "diff", "--name-only", "--diff-filter=U")
}
