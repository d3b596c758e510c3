// Package runtime provides the execution context for shipit commands.
//
// It wires the repository, configuration, and workflow collaborators once so
// commands don't repeat the assembly.
package runtime

import (
	"context"
	"fmt"

	"shipit.dev/shipit/internal/config"
	"shipit.dev/shipit/internal/git"
	"shipit.dev/shipit/internal/publish"
	"shipit.dev/shipit/internal/tracker"
	"shipit.dev/shipit/internal/tui"
	"shipit.dev/shipit/internal/version"
	"shipit.dev/shipit/internal/workflow"
)

// Context provides access to the assembled workflow and its collaborators
type Context struct {
	Git      *git.Git
	Config   *config.Config
	Store    *workflow.Store
	Workflow *workflow.Workflow
	Splog    *tui.Splog
	RepoRoot string
}

// NewContext opens the repository at the working directory and wires the
// release workflow from its configuration
func NewContext(ctx context.Context) (*Context, error) {
	g, err := git.Open(".")
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}

	cfg, err := config.Load(g.Root())
	if err != nil {
		return nil, err
	}

	gitDir, err := g.GitDir(ctx)
	if err != nil {
		return nil, err
	}

	splog, err := tui.NewSplogWithLogFile(tui.DefaultLogFilePath())
	if err != nil {
		splog = tui.NewSplog()
	}

	store := workflow.NewStore(gitDir)
	registry := version.NewRegistry(cfg.Locations(g.Root()))

	var issueTracker workflow.IssueTracker
	if cfg.Tracker != nil {
		client, err := tracker.NewGitHubClient(ctx, cfg.Tracker.Owner, cfg.Tracker.Repo)
		if err != nil {
			splog.Warn("Issue tracker disabled: %v", err)
		} else if client != nil {
			issueTracker = client
		}
	}

	wf := workflow.New(workflow.Options{
		Git:             g,
		Registry:        registry,
		Publisher:       publish.NewPublisher(g.Root()),
		Tracker:         issueTracker,
		Store:           store,
		Locks:           workflow.NewLineLocks(gitDir),
		Log:             splog,
		Mainline:        cfg.Mainline,
		Remote:          cfg.Remote,
		SigningIdentity: cfg.SigningKey,
		DocsTarget:      cfg.DocsTarget(),
		PackageTarget:   cfg.PackageTarget(),
	})

	return &Context{
		Git:      g,
		Config:   cfg,
		Store:    store,
		Workflow: wf,
		Splog:    splog,
		RepoRoot: g.Root(),
	}, nil
}
