package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	shipiterrors "shipit.dev/shipit/internal/errors"
	"shipit.dev/shipit/internal/git"
	"shipit.dev/shipit/internal/publish"
	"shipit.dev/shipit/internal/version"
)

// fakeGit implements git.Runner over an in-memory branch/tag model
type fakeGit struct {
	shaCounter int
	branches   map[string]int
	tags       map[string]string
	merged     map[string]map[string]bool
	current    string
	dirty      bool

	commits []string
	pushes  [][]string

	tagErr    error
	mergeErr  error
	commitErr error
}

func newFakeGit() *fakeGit {
	return &fakeGit{
		branches: map[string]int{"main": 0},
		tags:     map[string]string{},
		merged:   map[string]map[string]bool{},
		current:  "main",
	}
}

func (f *fakeGit) sha(n int) string { return fmt.Sprintf("sha-%d", n) }

func (f *fakeGit) CurrentBranch(context.Context) (string, error) { return f.current, nil }

func (f *fakeGit) BranchExists(_ context.Context, name string) (bool, error) {
	_, ok := f.branches[name]
	return ok, nil
}

func (f *fakeGit) TagExists(_ context.Context, name string) (bool, error) {
	_, ok := f.tags[name]
	return ok, nil
}

func (f *fakeGit) RevParse(_ context.Context, ref string) (string, error) {
	if n, ok := f.branches[ref]; ok {
		return f.sha(n), nil
	}
	if sha, ok := f.tags[ref]; ok {
		return sha, nil
	}
	return "", fmt.Errorf("unknown ref %s", ref)
}

func (f *fakeGit) IsAncestor(_ context.Context, ancestor, descendant string) (bool, error) {
	if f.merged[ancestor][descendant] {
		return true, nil
	}
	a, aok := f.branches[ancestor]
	d, dok := f.branches[descendant]
	return aok && dok && a == d, nil
}

func (f *fakeGit) IsClean(context.Context) (bool, error) { return !f.dirty, nil }

func (f *fakeGit) CreateBranch(_ context.Context, name, from string) error {
	parent, ok := f.branches[from]
	if !ok {
		return &shipiterrors.ParentNotFoundError{ParentName: from}
	}
	if _, exists := f.branches[name]; exists {
		return &shipiterrors.BranchExistsError{BranchName: name}
	}
	f.branches[name] = parent
	return nil
}

func (f *fakeGit) DeleteBranch(_ context.Context, name string) error {
	delete(f.branches, name)
	return nil
}

func (f *fakeGit) Checkout(_ context.Context, ref string) error {
	if f.dirty {
		return shipiterrors.ErrDirtyWorkingState
	}
	if _, ok := f.branches[ref]; !ok {
		return fmt.Errorf("unknown ref %s", ref)
	}
	f.current = ref
	return nil
}

func (f *fakeGit) Commit(_ context.Context, message string) (string, error) {
	if f.commitErr != nil {
		return "", f.commitErr
	}
	f.shaCounter++
	f.branches[f.current] = f.shaCounter
	f.commits = append(f.commits, message)
	f.dirty = false
	return f.sha(f.shaCounter), nil
}

func (f *fakeGit) DiscardChanges(context.Context) error {
	f.dirty = false
	return nil
}

func (f *fakeGit) Tag(_ context.Context, name, commit, _ string) error {
	if f.tagErr != nil {
		return f.tagErr
	}
	if _, exists := f.tags[name]; exists {
		return &shipiterrors.TagExistsError{TagName: name}
	}
	f.tags[name] = commit
	return nil
}

func (f *fakeGit) Push(_ context.Context, remote string, refspecs ...string) error {
	f.pushes = append(f.pushes, append([]string{remote}, refspecs...))
	return nil
}

func (f *fakeGit) Merge(_ context.Context, source, into string, _ git.MergeStrategy) error {
	if f.mergeErr != nil {
		return f.mergeErr
	}
	if _, ok := f.branches[into]; !ok {
		return fmt.Errorf("unknown branch %s", into)
	}
	f.shaCounter++
	f.branches[into] = f.shaCounter
	if f.merged[source] == nil {
		f.merged[source] = map[string]bool{}
	}
	f.merged[source][into] = true
	return nil
}

func (f *fakeGit) CherryPick(_ context.Context, sha, onto string) error {
	return fmt.Errorf("not used by the pipeline")
}

// fakePublisher records publish calls
type fakePublisher struct {
	builds    []string
	published []string
	aliased   []string
	uploaded  []string

	buildErr   error
	publishErr error
}

func (f *fakePublisher) Build(_ context.Context, target publish.Target, sourceRef string, v version.Version) (*publish.Artifact, error) {
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	f.builds = append(f.builds, fmt.Sprintf("%s@%s", target.Kind, sourceRef))
	return &publish.Artifact{Kind: target.Kind, Path: "/tmp/" + v.String()}, nil
}

func (f *fakePublisher) PublishDocs(_ publish.Target, _ *publish.Artifact, v version.Version) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, v.String())
	return nil
}

func (f *fakePublisher) UpdateAlias(_ publish.Target, v version.Version) error {
	f.aliased = append(f.aliased, v.String())
	return nil
}

func (f *fakePublisher) Upload(_ context.Context, _ publish.Target, artifact *publish.Artifact) error {
	f.uploaded = append(f.uploaded, artifact.Path)
	return nil
}

// fakeTracker counts close requests
type fakeTracker struct {
	calls int
	count int
	err   error
}

func (f *fakeTracker) CloseReleaseIssues(context.Context, version.Version) (int, error) {
	f.calls++
	return f.count, f.err
}

// fixture wires a workflow over a temp repo state stamped at 1.3.2
type fixture struct {
	git       *fakeGit
	publisher *fakePublisher
	tracker   *fakeTracker
	store     *Store
	locks     *LineLocks
	registry  *version.Registry
	workflow  *Workflow

	setup string
	pkg   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repoDir := t.TempDir()
	gitDir := t.TempDir()

	setup := filepath.Join(repoDir, "setup.py")
	pkg := filepath.Join(repoDir, "__init__.py")
	require.NoError(t, os.WriteFile(setup, []byte("version='1.3.2'\n"), 0644))
	require.NoError(t, os.WriteFile(pkg, []byte("__version__ = '1.3.2'\n"), 0644))

	registry := version.NewRegistry([]version.Location{
		{Name: "setup", Path: setup, Pattern: `version='(\d+\.\d+\.\d+)'`},
		{Name: "package", Path: pkg, Pattern: `__version__ = '(\d+\.\d+\.\d+)'`},
	})

	f := &fixture{
		git:       newFakeGit(),
		publisher: &fakePublisher{},
		tracker:   &fakeTracker{count: 3},
		store:     NewStore(gitDir),
		locks:     NewLineLocks(gitDir),
		registry:  registry,
		setup:     setup,
		pkg:       pkg,
	}
	f.workflow = New(Options{
		Git:             f.git,
		Registry:        registry,
		Publisher:       f.publisher,
		Tracker:         f.tracker,
		Store:           f.store,
		Locks:           f.locks,
		Mainline:        "main",
		Remote:          "origin",
		SigningIdentity: "release@example.com",
		DocsTarget:      &publish.Target{Kind: publish.TargetDocs, Dest: "/srv/docs", Alias: "release"},
		PackageTarget:   &publish.Target{Kind: publish.TargetPackage, BuildCmd: []string{"true"}, UploadCmd: []string{"true"}},
	})
	return f
}

// archivePrevious seeds the store with a completed release
func (f *fixture) archivePrevious(t *testing.T, v version.Version) {
	t.Helper()
	rec := NewRecord(v, nil)
	rec.Stage = StageBranchesMerged
	require.NoError(t, f.store.Save(rec))
	require.NoError(t, f.store.Archive(rec))
}

func TestRunFullPipeline(t *testing.T) {
	f := newFixture(t)

	rec, err := f.workflow.Start(context.Background(), version.BumpMinor)
	require.NoError(t, err)
	require.Equal(t, "1.4.0", rec.Version.String())
	require.Equal(t, StageClosed, rec.Stage)

	// freeze: release branch off mainline
	require.Contains(t, f.git.branches, "release-1.4.0")

	// version bump: one commit, all locations stamped
	require.Equal(t, []string{"Release 1.4.0"}, f.git.commits)
	current, err := f.registry.ReadCurrent()
	require.NoError(t, err)
	require.Equal(t, rec.Version, current)

	// tagged and pushed
	require.Contains(t, f.git.tags, "v1.4.0")
	require.Contains(t, f.git.pushes, []string{"origin", "release-1.4.0", "v1.4.0"})

	// docs and package published from the tag, not a working tree
	require.Equal(t, []string{"docs@v1.4.0", "package@v1.4.0"}, f.publisher.builds)
	require.Equal(t, []string{"1.4.0"}, f.publisher.published)
	require.Equal(t, []string{"1.4.0"}, f.publisher.aliased)
	require.Len(t, f.publisher.uploaded, 1)

	// no previous release: new maintenance line is branched, not merged
	require.NotNil(t, rec.NewMaintenanceLine)
	require.True(t, *rec.NewMaintenanceLine)
	require.Contains(t, f.git.branches, "maintenance-1.4")
	require.True(t, f.git.merged["release-1.4.0"]["main"])

	// record archived, lock released
	archived, err := f.store.Archived()
	require.NoError(t, err)
	require.Len(t, archived, 1)
	require.True(t, archived[0].Archived())
	require.NoError(t, f.locks.Acquire("1.4", "someone-else"))

	// best-effort issue closing ran once
	require.Equal(t, 1, f.tracker.calls)
}

func TestMaintenanceFanOut(t *testing.T) {
	t.Run("minor bump over 1.3.2 creates the maintenance branch", func(t *testing.T) {
		f := newFixture(t)
		f.archivePrevious(t, version.Version{Major: 1, Minor: 3, Patch: 2})

		rec, err := f.workflow.Start(context.Background(), version.BumpMinor)
		require.NoError(t, err)
		require.True(t, *rec.NewMaintenanceLine)
		require.Contains(t, f.git.branches, "maintenance-1.4")
		require.False(t, f.git.merged["release-1.4.0"]["maintenance-1.4"])
	})

	t.Run("patch bump on the same line merges into maintenance", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.registry.Stamp(version.Version{Major: 1, Minor: 4, Patch: 0}))
		f.archivePrevious(t, version.Version{Major: 1, Minor: 4, Patch: 0})
		require.NoError(t, f.git.CreateBranch(context.Background(), "maintenance-1.4", "main"))

		rec, err := f.workflow.Start(context.Background(), version.BumpPatch)
		require.NoError(t, err)
		require.Equal(t, "1.4.1", rec.Version.String())
		require.False(t, *rec.NewMaintenanceLine)
		require.True(t, f.git.merged["release-1.4.1"]["maintenance-1.4"])
	})
}

func TestResumeAfterFailure(t *testing.T) {
	f := newFixture(t)
	f.git.tagErr = &shipiterrors.SigningFailedError{TagName: "v1.4.0", Identity: "k", Reason: "no secret key"}

	_, err := f.workflow.Start(context.Background(), version.BumpMinor)
	require.ErrorIs(t, err, shipiterrors.ErrSigningFailed)

	// the record stays at the last completed stage
	inflight, err := f.store.InFlight()
	require.NoError(t, err)
	require.Len(t, inflight, 1)
	require.Equal(t, StageVersionBumped, inflight[0].Stage)

	// the operator fixes signing and resumes; the bump is not redone
	f.git.tagErr = nil
	rec, err := f.workflow.Resume(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, StageClosed, rec.Stage)
	require.Equal(t, []string{"Release 1.4.0"}, f.git.commits, "resume must not create a second bump commit")
	require.Len(t, f.git.tags, 1)
}

func TestResumeOverUncommittedStamp(t *testing.T) {
	f := newFixture(t)
	f.git.commitErr = fmt.Errorf("hook rejected commit")

	_, err := f.workflow.Start(context.Background(), version.BumpMinor)
	require.Error(t, err)

	inflight, err := f.store.InFlight()
	require.NoError(t, err)
	require.Equal(t, StageFrozen, inflight[0].Stage)

	// the stamp landed but the commit did not: the release branch carries the
	// workflow's own uncommitted changes. Resume must work over them, not
	// refuse the tree as dirty.
	f.git.dirty = true
	f.git.commitErr = nil

	rec, err := f.workflow.Resume(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, StageClosed, rec.Stage)
	require.Equal(t, []string{"Release 1.4.0"}, f.git.commits)
	require.False(t, f.git.dirty)
}

func TestResumeAfterPartialStamp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// a crash mid-stamp: the release branch exists, one of two locations was
	// rewritten, nothing was committed
	rec := NewRecord(version.Version{Major: 1, Minor: 4, Patch: 0}, nil)
	require.NoError(t, f.git.CreateBranch(ctx, rec.ReleaseBranch, "main"))
	require.NoError(t, f.git.Checkout(ctx, rec.ReleaseBranch))
	require.NoError(t, f.locks.Acquire(rec.Line(), rec.ID))
	rec.Stage = StageFrozen
	require.NoError(t, f.store.Save(rec))

	require.NoError(t, os.WriteFile(f.setup, []byte("version='1.4.0'\n"), 0644))
	f.git.dirty = true

	_, err := f.registry.ReadCurrent()
	require.ErrorIs(t, err, shipiterrors.ErrInconsistentVersion)

	// resume re-stamps only what the read disagrees on and commits once
	resumed, err := f.workflow.Resume(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, StageClosed, resumed.Stage)
	require.Equal(t, []string{"Release 1.4.0"}, f.git.commits)

	current, err := f.registry.ReadCurrent()
	require.NoError(t, err)
	require.Equal(t, "1.4.0", current.String())
}

func TestTagIdempotence(t *testing.T) {
	f := newFixture(t)
	f.publisher.buildErr = &shipiterrors.BuildFailedError{Target: "docs", Reason: "renderer exploded"}

	_, err := f.workflow.Start(context.Background(), version.BumpMinor)
	require.ErrorIs(t, err, shipiterrors.ErrBuildFailed)

	inflight, err := f.store.InFlight()
	require.NoError(t, err)
	require.Equal(t, StageTagged, inflight[0].Stage)

	f.publisher.buildErr = nil
	rec, err := f.workflow.Resume(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, StageClosed, rec.Stage)
	require.Len(t, f.git.tags, 1, "resume must not re-tag")
}

func TestForeignTagIsNeverOverwritten(t *testing.T) {
	f := newFixture(t)
	f.git.tags["v1.4.0"] = "sha-999"

	_, err := f.workflow.Start(context.Background(), version.BumpMinor)
	require.ErrorIs(t, err, shipiterrors.ErrTagExists)
	require.Equal(t, "sha-999", f.git.tags["v1.4.0"])
}

func TestSameLineBusy(t *testing.T) {
	f := newFixture(t)
	f.publisher.buildErr = &shipiterrors.BuildFailedError{Target: "docs", Reason: "boom"}

	_, err := f.workflow.Start(context.Background(), version.BumpMinor)
	require.ErrorIs(t, err, shipiterrors.ErrBuildFailed)

	// a different release attempt on the same line is rejected, not queued
	other := NewRecord(version.Version{Major: 1, Minor: 4, Patch: 0}, nil)
	require.ErrorIs(t, f.locks.Acquire(other.Line(), other.ID), shipiterrors.ErrBusy)

	// another minor line is free
	require.NoError(t, f.locks.Acquire("1.5", "other-record"))
}

func TestDirtyWorkingTreeBlocksBump(t *testing.T) {
	f := newFixture(t)
	f.git.dirty = true

	_, err := f.workflow.Start(context.Background(), version.BumpMinor)
	require.ErrorIs(t, err, shipiterrors.ErrDirtyWorkingState)

	inflight, err := f.store.InFlight()
	require.NoError(t, err)
	require.Equal(t, StageFrozen, inflight[0].Stage)
}

func TestTrackerFailureDoesNotBlockClose(t *testing.T) {
	f := newFixture(t)
	f.tracker.err = fmt.Errorf("tracker unreachable")

	rec, err := f.workflow.Start(context.Background(), version.BumpMinor)
	require.NoError(t, err)
	require.Equal(t, StageClosed, rec.Stage)
	require.True(t, rec.Archived())
}

func TestAbort(t *testing.T) {
	t.Run("pre-tag abort removes branch, record, and lock", func(t *testing.T) {
		f := newFixture(t)
		f.git.commitErr = fmt.Errorf("hook rejected commit")

		_, err := f.workflow.Start(context.Background(), version.BumpMinor)
		require.Error(t, err)

		inflight, err := f.store.InFlight()
		require.NoError(t, err)
		rec := inflight[0]
		require.Equal(t, StageFrozen, rec.Stage)

		require.NoError(t, f.workflow.Abort(context.Background(), rec))
		require.NotContains(t, f.git.branches, "release-1.4.0")

		inflight, err = f.store.InFlight()
		require.NoError(t, err)
		require.Empty(t, inflight)
		require.NoError(t, f.locks.Acquire("1.4", "fresh-record"))
	})

	t.Run("abort drops the uncommitted stamp before leaving the branch", func(t *testing.T) {
		f := newFixture(t)
		f.git.commitErr = fmt.Errorf("hook rejected commit")

		_, err := f.workflow.Start(context.Background(), version.BumpMinor)
		require.Error(t, err)

		// the failed bump left the workflow's stamp changes in the tree
		f.git.dirty = true

		inflight, err := f.store.InFlight()
		require.NoError(t, err)
		require.NoError(t, f.workflow.Abort(context.Background(), inflight[0]))

		require.Equal(t, "main", f.git.current)
		require.False(t, f.git.dirty)
		require.NotContains(t, f.git.branches, "release-1.4.0")
	})

	t.Run("post-tag abort is refused", func(t *testing.T) {
		f := newFixture(t)
		f.publisher.buildErr = &shipiterrors.BuildFailedError{Target: "docs", Reason: "boom"}

		_, err := f.workflow.Start(context.Background(), version.BumpMinor)
		require.Error(t, err)

		inflight, err := f.store.InFlight()
		require.NoError(t, err)
		rec := inflight[0]
		require.Equal(t, StageTagged, rec.Stage)

		err = f.workflow.Abort(context.Background(), rec)
		require.Error(t, err)
		require.Contains(t, err.Error(), "no longer possible")
		require.Contains(t, f.git.tags, "v1.4.0")
	})
}

func TestStartWhileInFlight(t *testing.T) {
	t.Run("same version is reported in flight", func(t *testing.T) {
		f := newFixture(t)
		f.git.commitErr = fmt.Errorf("hook rejected commit")

		_, err := f.workflow.Start(context.Background(), version.BumpMinor)
		require.Error(t, err)

		// starting again computes the same next version and finds it in flight
		f.git.commitErr = nil
		_, err = f.workflow.Start(context.Background(), version.BumpMinor)
		require.Error(t, err)
		require.Contains(t, err.Error(), "already in flight")
	})

	t.Run("new release on a held line is Busy", func(t *testing.T) {
		f := newFixture(t)
		f.publisher.buildErr = &shipiterrors.BuildFailedError{Target: "docs", Reason: "boom"}

		// fails after stamping 1.4.0, holding the 1.4 line lock
		_, err := f.workflow.Start(context.Background(), version.BumpMinor)
		require.Error(t, err)

		// a patch on the same line is a different version but the same line
		f.publisher.buildErr = nil
		_, err = f.workflow.Start(context.Background(), version.BumpPatch)
		require.ErrorIs(t, err, shipiterrors.ErrBusy)
	})
}
