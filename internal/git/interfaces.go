package git

import "context"

// MergeStrategy selects how a merge commit is produced
type MergeStrategy string

const (
	// FastForwardPreferred fast-forwards when possible, merging otherwise
	FastForwardPreferred MergeStrategy = "fast-forward-preferred"
	// ExplicitMergeCommit always records a merge commit
	ExplicitMergeCommit MergeStrategy = "explicit-merge-commit"
)

// Runner defines the version-control operations used by the release workflow.
// This allows the workflow to be used with both real git and mock implementations.
type Runner interface {
	// Read-side queries
	CurrentBranch(ctx context.Context) (string, error)
	BranchExists(ctx context.Context, name string) (bool, error)
	TagExists(ctx context.Context, name string) (bool, error)
	RevParse(ctx context.Context, ref string) (string, error)
	IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error)
	IsClean(ctx context.Context) (bool, error)

	// Mutations
	CreateBranch(ctx context.Context, name, from string) error
	DeleteBranch(ctx context.Context, name string) error
	Checkout(ctx context.Context, ref string) error
	DiscardChanges(ctx context.Context) error
	Commit(ctx context.Context, message string) (string, error)
	Tag(ctx context.Context, name, commit, signingIdentity string) error
	Push(ctx context.Context, remote string, refspecs ...string) error
	Merge(ctx context.Context, source, into string, strategy MergeStrategy) error
	CherryPick(ctx context.Context, sha, onto string) error
}

// Git implements Runner against a real repository. Mutations shell out to
// the git binary; read-side queries use go-git where it is cheaper.
type Git struct {
	runner *CommandRunner
	repo   *Repository
}

// Open opens the repository at path and returns a Runner over it
func Open(path string) (*Git, error) {
	repo, err := OpenRepository(path)
	if err != nil {
		return nil, err
	}
	return &Git{
		runner: NewCommandRunner(repo.Root()),
		repo:   repo,
	}, nil
}

// Root returns the repository root directory
func (g *Git) Root() string {
	return g.repo.Root()
}
