package git

import (
	"context"
	"fmt"

	shipiterrors "shipit.dev/shipit/internal/errors"
)

// CreateBranch creates a branch at the tip of from, without checking it out.
// The branch must not exist and the parent must.
func (g *Git) CreateBranch(ctx context.Context, name, from string) error {
	parentExists, err := g.BranchExists(ctx, from)
	if err != nil {
		return err
	}
	if !parentExists {
		return &shipiterrors.ParentNotFoundError{ParentName: from}
	}

	exists, err := g.BranchExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return &shipiterrors.BranchExistsError{BranchName: name}
	}

	if _, err := g.runner.Run(ctx, "branch", name, from); err != nil {
		return fmt.Errorf("failed to create branch %s from %s: %w", name, from, err)
	}
	return nil
}

// DeleteBranch force-deletes a local branch
func (g *Git) DeleteBranch(ctx context.Context, name string) error {
	if _, err := g.runner.Run(ctx, "branch", "-D", name); err != nil {
		return fmt.Errorf("failed to delete branch %s: %w", name, err)
	}
	return nil
}

// DiscardChanges restores tracked files to their committed state, dropping
// uncommitted modifications. Untracked files are left alone. Callers use this
// to abandon changes the workflow itself made, never the operator's.
func (g *Git) DiscardChanges(ctx context.Context) error {
	if _, err := g.runner.Run(ctx, "checkout", "--", "."); err != nil {
		return fmt.Errorf("failed to discard working tree changes: %w", err)
	}
	return nil
}

// Checkout checks out a branch or revision. It refuses to switch away from a
// dirty working tree; stashing is the operator's decision, never implicit.
func (g *Git) Checkout(ctx context.Context, ref string) error {
	clean, err := g.IsClean(ctx)
	if err != nil {
		return err
	}
	if !clean {
		return fmt.Errorf("cannot checkout %s: %w", ref, shipiterrors.ErrDirtyWorkingState)
	}

	if _, err := g.runner.Run(ctx, "checkout", ref); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", ref, err)
	}
	return nil
}
