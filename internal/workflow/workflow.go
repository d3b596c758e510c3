package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	shipiterrors "shipit.dev/shipit/internal/errors"
	"shipit.dev/shipit/internal/git"
	"shipit.dev/shipit/internal/publish"
	"shipit.dev/shipit/internal/tui"
	"shipit.dev/shipit/internal/version"
)

// Publisher is the artifact build/publish surface the workflow drives.
// Implemented by publish.Publisher and by test fakes.
type Publisher interface {
	Build(ctx context.Context, target publish.Target, sourceRef string, v version.Version) (*publish.Artifact, error)
	PublishDocs(target publish.Target, artifact *publish.Artifact, v version.Version) error
	UpdateAlias(target publish.Target, v version.Version) error
	Upload(ctx context.Context, target publish.Target, artifact *publish.Artifact) error
}

// IssueTracker closes a release's issues after the release is done.
// Best-effort: failures are logged, never block closing.
type IssueTracker interface {
	CloseReleaseIssues(ctx context.Context, v version.Version) (int, error)
}

// Options wires a Workflow's collaborators and release policy
type Options struct {
	Git       git.Runner
	Registry  *version.Registry
	Publisher Publisher
	Tracker   IssueTracker // nil disables issue closing
	Store     *Store
	Locks     *LineLocks
	Log       *tui.Splog

	Mainline        string
	Remote          string
	SigningIdentity string
	DocsTarget      *publish.Target
	PackageTarget   *publish.Target
}

// Workflow sequences the release pipeline. It is the sole mutator of the
// release record's stage.
type Workflow struct {
	opts Options
}

// New creates a Workflow
func New(opts Options) *Workflow {
	if opts.Log == nil {
		opts.Log = tui.NewSplog()
	}
	return &Workflow{opts: opts}
}

// Start freezes a new release: reads the current version, bumps it, creates
// the record, takes the line lock, and runs the pipeline to completion.
// A concurrent release on the same (major, minor) line fails with Busy;
// other lines proceed independently.
func (w *Workflow) Start(ctx context.Context, kind version.BumpKind) (*Record, error) {
	current, err := w.opts.Registry.ReadCurrent()
	if err != nil {
		return nil, err
	}

	next, err := current.Bump(kind)
	if err != nil {
		return nil, err
	}

	if existing, err := w.opts.Store.Load(next); err == nil {
		return existing, fmt.Errorf("release %s is already in flight at stage %s; run resume", next, existing.Stage)
	}

	var previous *version.Version
	if latest, err := w.opts.Store.Latest(); err != nil {
		return nil, err
	} else if latest != nil {
		prev := latest.Version
		previous = &prev
	}

	rec := NewRecord(next, previous)
	if err := w.opts.Locks.Acquire(rec.Line(), rec.ID); err != nil {
		return nil, err
	}
	if err := w.opts.Store.Save(rec); err != nil {
		_ = w.opts.Locks.Release(rec.Line(), rec.ID)
		return nil, err
	}

	w.opts.Log.Info("Starting release %s (%s bump from %s)", next, kind, current)
	return rec, w.Run(ctx, rec)
}

// Resume reloads an in-flight release and re-runs it from its last completed
// stage. With a nil version it resumes the single in-flight release and
// fails if there are several.
func (w *Workflow) Resume(ctx context.Context, v *version.Version) (*Record, error) {
	var rec *Record
	if v != nil {
		loaded, err := w.opts.Store.Load(*v)
		if err != nil {
			return nil, err
		}
		rec = loaded
	} else {
		inflight, err := w.opts.Store.InFlight()
		if err != nil {
			return nil, err
		}
		switch len(inflight) {
		case 0:
			return nil, fmt.Errorf("no release in flight")
		case 1:
			rec = inflight[0]
		default:
			return nil, fmt.Errorf("%d releases in flight; pass the version to resume", len(inflight))
		}
	}

	// re-enters our own lock; Busy only if another release holds the line
	if err := w.opts.Locks.Acquire(rec.Line(), rec.ID); err != nil {
		return nil, err
	}

	w.opts.Log.Info("Resuming release %s from stage %s", rec.Version, rec.Stage)
	return rec, w.Run(ctx, rec)
}

// Run advances the record stage-by-stage until Closed. Every transition is
// re-entrant: when its postcondition already holds it records success
// without side effects. A failure leaves the record at its last completed
// stage; rerunning resumes there. There is no automatic retry — conflicts,
// build failures, and signing failures go to the operator.
func (w *Workflow) Run(ctx context.Context, rec *Record) error {
	for rec.Stage != StageClosed {
		next, err := rec.Stage.Next()
		if err != nil {
			return err
		}

		if err := w.perform(ctx, rec, next); err != nil {
			// persist fan-out decision etc. even when the stage failed midway
			if saveErr := w.opts.Store.Save(rec); saveErr != nil {
				w.opts.Log.Warn("Failed to save release record: %v", saveErr)
			}
			return fmt.Errorf("stage %s failed (release %s stays at %s): %w", next, rec.Version, rec.Stage, err)
		}

		rec.Stage = next
		rec.UpdatedAt = time.Now().UTC()

		if next == StageClosed {
			if err := w.opts.Store.Archive(rec); err != nil {
				return err
			}
			if err := w.opts.Locks.Release(rec.Line(), rec.ID); err != nil {
				w.opts.Log.Warn("Failed to release line lock: %v", err)
			}
			w.closeTrackerIssues(ctx, rec)
			w.opts.Log.Info("Release %s closed", rec.Version)
			return nil
		}

		if err := w.opts.Store.Save(rec); err != nil {
			return err
		}
		w.opts.Log.Debug("Release %s reached stage %s", rec.Version, next)
	}
	return nil
}

// Abort cancels a release that has not produced external side effects yet.
// Once the tag is pushed the pipeline is forward-only: there is no rollback
// path, only resume or manual remediation.
func (w *Workflow) Abort(ctx context.Context, rec *Record) error {
	if rec.Stage.Reached(StageTagged) {
		return fmt.Errorf("release %s is at stage %s: the tag is pushed, aborting is no longer possible; resume or remediate manually", rec.Version, rec.Stage)
	}

	exists, err := w.opts.Git.BranchExists(ctx, rec.ReleaseBranch)
	if err != nil {
		return err
	}
	if exists {
		// an abort after a failed bump finds the workflow's own stamp
		// changes uncommitted on the release branch; drop them so the
		// checkout can leave
		branch, err := w.opts.Git.CurrentBranch(ctx)
		if err != nil {
			return err
		}
		if branch == rec.ReleaseBranch {
			clean, err := w.opts.Git.IsClean(ctx)
			if err != nil {
				return err
			}
			if !clean {
				if err := w.opts.Git.DiscardChanges(ctx); err != nil {
					return err
				}
			}
		}
		if err := w.opts.Git.Checkout(ctx, w.opts.Mainline); err != nil {
			return err
		}
		if err := w.opts.Git.DeleteBranch(ctx, rec.ReleaseBranch); err != nil {
			return err
		}
	}

	if err := w.opts.Store.Remove(rec); err != nil {
		return err
	}
	if err := w.opts.Locks.Release(rec.Line(), rec.ID); err != nil {
		return err
	}
	w.opts.Log.Info("Release %s aborted", rec.Version)
	return nil
}

func (w *Workflow) perform(ctx context.Context, rec *Record, stage Stage) error {
	switch stage {
	case StageFrozen:
		return w.ensureFrozen(ctx, rec)
	case StageVersionBumped:
		return w.ensureVersionBumped(ctx, rec)
	case StageTagged:
		return w.ensureTagged(ctx, rec)
	case StageDocsPublished:
		return w.ensureDocsPublished(ctx, rec)
	case StagePackagePublished:
		return w.ensurePackagePublished(ctx, rec)
	case StageBranchesMerged:
		return w.ensureBranchesMerged(ctx, rec)
	case StageClosed:
		return nil
	}
	return fmt.Errorf("unknown stage %q", stage)
}

// ensureFrozen creates the release branch off mainline
func (w *Workflow) ensureFrozen(ctx context.Context, rec *Record) error {
	exists, err := w.opts.Git.BranchExists(ctx, rec.ReleaseBranch)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return w.opts.Git.CreateBranch(ctx, rec.ReleaseBranch, w.opts.Mainline)
}

// ensureVersionBumped stamps every location on the release branch and
// commits. The maintenance fan-out decision is made here, once, from the
// bumped version against the previous release's record.
func (w *Workflow) ensureVersionBumped(ctx context.Context, rec *Record) error {
	// a failed commit or partial stamp leaves the workflow's own changes
	// uncommitted on the release branch; when we are already on it, work
	// over them instead of refusing the checkout
	branch, err := w.opts.Git.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	if branch != rec.ReleaseBranch {
		if err := w.opts.Git.Checkout(ctx, rec.ReleaseBranch); err != nil {
			return err
		}
	}

	if rec.NewMaintenanceLine == nil {
		newLine := rec.PreviousVersion == nil || !rec.Version.SameLine(*rec.PreviousVersion)
		rec.NewMaintenanceLine = &newLine
		rec.MaintenanceBranch = rec.Version.MaintenanceBranch()
	}

	current, err := w.opts.Registry.ReadCurrent()
	if err == nil && current == rec.Version {
		clean, cleanErr := w.opts.Git.IsClean(ctx)
		if cleanErr != nil {
			return cleanErr
		}
		if clean {
			// already stamped and committed; no second commit
			return nil
		}
		// stamped but never committed; fall through to the commit
	}
	// a read error here is expected after a partial stamp; re-stamping
	// rewrites the failed locations and leaves the rest at the same value
	if err != nil && !errors.Is(err, shipiterrors.ErrInconsistentVersion) {
		return err
	}

	if err := w.opts.Registry.Stamp(rec.Version); err != nil {
		return err
	}

	if _, err := w.opts.Git.Commit(ctx, "Release "+rec.Version.String()); err != nil {
		if errors.Is(err, shipiterrors.ErrNothingToCommit) {
			return nil
		}
		return err
	}
	return nil
}

// ensureTagged tags the release branch head and pushes branch and tag
func (w *Workflow) ensureTagged(ctx context.Context, rec *Record) error {
	tag := rec.Version.TagName()
	head, err := w.opts.Git.RevParse(ctx, rec.ReleaseBranch)
	if err != nil {
		return err
	}

	exists, err := w.opts.Git.TagExists(ctx, tag)
	if err != nil {
		return err
	}
	if exists {
		tagged, err := w.opts.Git.RevParse(ctx, tag)
		if err != nil {
			return err
		}
		if tagged != head {
			// the name is taken by some other commit; never re-tag
			return &shipiterrors.TagExistsError{TagName: tag}
		}
	} else {
		if err := w.opts.Git.Tag(ctx, tag, head, w.opts.SigningIdentity); err != nil {
			return err
		}
	}

	return w.opts.Git.Push(ctx, w.opts.Remote, rec.ReleaseBranch, tag)
}

// ensureDocsPublished builds the docs from the tag and publishes them under
// the version path, then repoints the release alias
func (w *Workflow) ensureDocsPublished(ctx context.Context, rec *Record) error {
	if w.opts.DocsTarget == nil {
		w.opts.Log.Debug("No docs target configured, skipping")
		return nil
	}
	target := *w.opts.DocsTarget

	artifact, err := w.opts.Publisher.Build(ctx, target, rec.Version.TagName(), rec.Version)
	if err != nil {
		return err
	}
	if err := w.opts.Publisher.PublishDocs(target, artifact, rec.Version); err != nil {
		return err
	}
	return w.opts.Publisher.UpdateAlias(target, rec.Version)
}

// ensurePackagePublished builds the package from the tag and uploads it
func (w *Workflow) ensurePackagePublished(ctx context.Context, rec *Record) error {
	if w.opts.PackageTarget == nil {
		w.opts.Log.Debug("No package target configured, skipping")
		return nil
	}
	target := *w.opts.PackageTarget

	artifact, err := w.opts.Publisher.Build(ctx, target, rec.Version.TagName(), rec.Version)
	if err != nil {
		return err
	}
	return w.opts.Publisher.Upload(ctx, target, artifact)
}

// ensureBranchesMerged fans the release out: the maintenance branch is
// created (new line) or merged into (patch release), then the release lands
// back on mainline. The create-vs-merge decision was cached at version-bump
// time and is never re-derived from branch state.
func (w *Workflow) ensureBranchesMerged(ctx context.Context, rec *Record) error {
	if rec.NewMaintenanceLine == nil {
		return fmt.Errorf("release record %s is missing its maintenance fan-out decision", rec.Version)
	}
	maint := rec.MaintenanceBranch
	if maint == "" {
		maint = rec.Version.MaintenanceBranch()
	}

	if *rec.NewMaintenanceLine {
		exists, err := w.opts.Git.BranchExists(ctx, maint)
		if err != nil {
			return err
		}
		if !exists {
			if err := w.opts.Git.CreateBranch(ctx, maint, rec.ReleaseBranch); err != nil {
				return err
			}
		}
	} else {
		merged, err := w.opts.Git.IsAncestor(ctx, rec.ReleaseBranch, maint)
		if err != nil {
			return err
		}
		if !merged {
			if err := w.opts.Git.Merge(ctx, rec.ReleaseBranch, maint, git.ExplicitMergeCommit); err != nil {
				return err
			}
		}
	}

	merged, err := w.opts.Git.IsAncestor(ctx, rec.ReleaseBranch, w.opts.Mainline)
	if err != nil {
		return err
	}
	if !merged {
		if err := w.opts.Git.Merge(ctx, rec.ReleaseBranch, w.opts.Mainline, git.ExplicitMergeCommit); err != nil {
			return err
		}
	}

	return w.opts.Git.Push(ctx, w.opts.Remote, maint, w.opts.Mainline)
}

// closeTrackerIssues is the one best-effort step: failures are logged and
// swallowed, never blocking Closed
func (w *Workflow) closeTrackerIssues(ctx context.Context, rec *Record) {
	if w.opts.Tracker == nil {
		return
	}
	count, err := w.opts.Tracker.CloseReleaseIssues(ctx, rec.Version)
	if err != nil {
		w.opts.Log.Warn("Failed to close release issues for %s: %v", rec.Version, err)
		return
	}
	w.opts.Log.Info("Closed %d issue(s) for release %s", count, rec.Version)
}
