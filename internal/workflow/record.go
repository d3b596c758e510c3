// Package workflow implements the release state machine: freeze, version
// bump, tag, docs publish, package publish, branch fan-out, close. Progress
// is persisted per release so a failed run resumes at the last completed
// stage.
package workflow

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"shipit.dev/shipit/internal/version"
)

// Stage identifies the last completed step of a release
type Stage string

// Stages in pipeline order. StagePending is the freshly created record;
// StageClosed is terminal.
const (
	StagePending          Stage = "pending"
	StageFrozen           Stage = "frozen"
	StageVersionBumped    Stage = "version-bumped"
	StageTagged           Stage = "tagged"
	StageDocsPublished    Stage = "docs-published"
	StagePackagePublished Stage = "package-published"
	StageBranchesMerged   Stage = "branches-merged"
	StageClosed           Stage = "closed"
)

// stageOrder fixes the pipeline sequence
var stageOrder = []Stage{
	StagePending,
	StageFrozen,
	StageVersionBumped,
	StageTagged,
	StageDocsPublished,
	StagePackagePublished,
	StageBranchesMerged,
	StageClosed,
}

// Index returns the position of s in the pipeline, or -1
func (s Stage) Index() int {
	for i, stage := range stageOrder {
		if stage == s {
			return i
		}
	}
	return -1
}

// Next returns the stage after s. Calling Next on StageClosed or an unknown
// stage returns an error.
func (s Stage) Next() (Stage, error) {
	idx := s.Index()
	if idx < 0 {
		return "", fmt.Errorf("unknown stage %q", s)
	}
	if idx == len(stageOrder)-1 {
		return "", fmt.Errorf("stage %s is terminal", s)
	}
	return stageOrder[idx+1], nil
}

// Reached reports whether s is at or past other in the pipeline
func (s Stage) Reached(other Stage) bool {
	return s.Index() >= other.Index()
}

// Record is the persistent state of one in-flight release. The workflow is
// its sole mutator; it is archived, never deleted, once closed.
type Record struct {
	ID              string           `json:"id"`
	Version         version.Version  `json:"version"`
	PreviousVersion *version.Version `json:"previousVersion,omitempty"`
	ReleaseBranch   string           `json:"releaseBranch"`

	// MaintenanceBranch is set once the branch-fanout decision lands
	MaintenanceBranch string `json:"maintenanceBranch,omitempty"`

	// NewMaintenanceLine records, once, whether this release opens a new
	// (major, minor) line. It is decided at version-bump time by comparing
	// against PreviousVersion and never recomputed from branch state.
	NewMaintenanceLine *bool `json:"newMaintenanceLine,omitempty"`

	Stage      Stage      `json:"stage"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	ArchivedAt *time.Time `json:"archivedAt,omitempty"`
}

// NewRecord creates the record for a release at freeze time
func NewRecord(v version.Version, previous *version.Version) *Record {
	now := time.Now().UTC()
	return &Record{
		ID:              uuid.NewString(),
		Version:         v,
		PreviousVersion: previous,
		ReleaseBranch:   v.ReleaseBranch(),
		Stage:           StagePending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Line returns the (major, minor) line this release belongs to
func (r *Record) Line() string {
	return r.Version.Line()
}

// Archived reports whether the record has been archived
func (r *Record) Archived() bool {
	return r.ArchivedAt != nil
}
