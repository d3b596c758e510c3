package git

import (
	"context"
	"fmt"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Repository wraps a go-git repository for read-side inspection
type Repository struct {
	*gogit.Repository
	path string
}

// OpenRepository opens a git repository at the given path, walking up to find
// the enclosing work tree
func OpenRepository(path string) (*Repository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	repo, err := gogit.PlainOpenWithOptions(absPath, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve worktree: %w", err)
	}

	return &Repository{
		Repository: repo,
		path:       wt.Filesystem.Root(),
	}, nil
}

// Root returns the repository root directory
func (r *Repository) Root() string {
	return r.path
}

// CurrentBranch returns the short name of the checked-out branch
func (g *Git) CurrentBranch(ctx context.Context) (string, error) {
	head, err := g.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is not on a branch")
	}
	return head.Name().Short(), nil
}

// BranchExists reports whether a local branch exists
func (g *Git) BranchExists(_ context.Context, name string) (bool, error) {
	_, err := g.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	if err == plumbing.ErrReferenceNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up branch %s: %w", name, err)
	}
	return true, nil
}

// TagExists reports whether a tag exists
func (g *Git) TagExists(_ context.Context, name string) (bool, error) {
	_, err := g.repo.Reference(plumbing.NewTagReferenceName(name), true)
	if err == plumbing.ErrReferenceNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up tag %s: %w", name, err)
	}
	return true, nil
}

// RevParse resolves a revision expression to a commit sha
func (g *Git) RevParse(ctx context.Context, ref string) (string, error) {
	return g.runner.Run(ctx, "rev-parse", "--verify", ref+"^{commit}")
}

// IsAncestor reports whether ancestor is reachable from descendant
func (g *Git) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	_, err := g.runner.Run(ctx, "merge-base", "--is-ancestor", ancestor, descendant)
	if err != nil {
		if exitCode(err) == 1 {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GitDir resolves the repository's .git directory (worktree-aware)
func (g *Git) GitDir(ctx context.Context) (string, error) {
	dir, err := g.runner.Run(ctx, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return "", fmt.Errorf("failed to resolve git dir: %w", err)
	}
	return dir, nil
}

// IsClean reports whether the working tree has no uncommitted changes
func (g *Git) IsClean(ctx context.Context) (bool, error) {
	out, err := g.runner.Run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out == "", nil
}
