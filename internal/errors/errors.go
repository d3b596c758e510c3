// Package errors provides sentinel errors and custom error types for the shipit application.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common conditions
var (
	// ErrInconsistentVersion indicates the declared version locations disagree
	ErrInconsistentVersion = errors.New("inconsistent version")

	// ErrWriteError indicates that stamping a version location failed
	ErrWriteError = errors.New("version write failed")

	// ErrAlreadyExists indicates that a branch already exists
	ErrAlreadyExists = errors.New("branch already exists")

	// ErrParentNotFound indicates that the parent of a new branch does not exist
	ErrParentNotFound = errors.New("parent branch not found")

	// ErrDirtyWorkingState indicates uncommitted local changes
	ErrDirtyWorkingState = errors.New("working tree has uncommitted changes")

	// ErrNothingToCommit indicates the index holds no changes to commit
	ErrNothingToCommit = errors.New("nothing to commit")

	// ErrConflict indicates a merge or cherry-pick conflict
	ErrConflict = errors.New("merge conflict")

	// ErrSigningFailed indicates that tag signing failed
	ErrSigningFailed = errors.New("tag signing failed")

	// ErrTagExists indicates that a tag name is already taken
	ErrTagExists = errors.New("tag already exists")

	// ErrBuildFailed indicates an external build collaborator failed
	ErrBuildFailed = errors.New("build failed")

	// ErrUploadFailed indicates an external upload collaborator failed
	ErrUploadFailed = errors.New("upload failed")

	// ErrDestinationConflict indicates a publish destination holds divergent content
	ErrDestinationConflict = errors.New("destination conflict")

	// ErrTargetMissing indicates an alias target that has not been published
	ErrTargetMissing = errors.New("alias target missing")

	// ErrBusy indicates another release is in flight on the same line
	ErrBusy = errors.New("release line busy")
)

// InconsistentVersionError reports disagreeing version locations.
// Readings maps location name to the raw value found there ("<unreadable>" on read failure).
type InconsistentVersionError struct {
	Readings map[string]string
}

func (e *InconsistentVersionError) Error() string {
	parts := make([]string, 0, len(e.Readings))
	for name, value := range e.Readings {
		parts = append(parts, fmt.Sprintf("%s=%s", name, value))
	}
	return fmt.Sprintf("version locations disagree: %s", strings.Join(parts, ", "))
}

// Is returns true if the target error is ErrInconsistentVersion
func (e *InconsistentVersionError) Is(target error) bool {
	return target == ErrInconsistentVersion
}

// StampError reports the per-location outcome of a stamp operation.
// Written lists locations that were updated before the failure; Failed maps
// location name to the write error. Written locations stay written.
type StampError struct {
	Written []string
	Failed  map[string]error
}

func (e *StampError) Error() string {
	failed := make([]string, 0, len(e.Failed))
	for name, err := range e.Failed {
		failed = append(failed, fmt.Sprintf("%s (%v)", name, err))
	}
	msg := fmt.Sprintf("failed to stamp locations: %s", strings.Join(failed, ", "))
	if len(e.Written) > 0 {
		msg += fmt.Sprintf("; already written: %s", strings.Join(e.Written, ", "))
	}
	return msg
}

// Is returns true if the target error is ErrWriteError
func (e *StampError) Is(target error) bool {
	return target == ErrWriteError
}

// BranchExistsError represents an error when creating a branch that already exists
type BranchExistsError struct {
	BranchName string
}

func (e *BranchExistsError) Error() string {
	return fmt.Sprintf("branch %s already exists", e.BranchName)
}

// Is returns true if the target error is ErrAlreadyExists
func (e *BranchExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ParentNotFoundError represents an error when a branch parent does not exist
type ParentNotFoundError struct {
	ParentName string
}

func (e *ParentNotFoundError) Error() string {
	return fmt.Sprintf("parent branch %s does not exist", e.ParentName)
}

// Is returns true if the target error is ErrParentNotFound
func (e *ParentNotFoundError) Is(target error) bool {
	return target == ErrParentNotFound
}

// ConflictError represents a merge or cherry-pick conflict.
// The operation is aborted before this error is returned, so the working
// tree carries no partial state. Paths lists the conflicting files.
type ConflictError struct {
	Operation string // "merge" or "cherry-pick"
	Source    string
	Target    string
	Paths     []string
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("%s of %s into %s conflicts", e.Operation, e.Source, e.Target)
	if len(e.Paths) > 0 {
		msg += fmt.Sprintf(" in: %s", strings.Join(e.Paths, ", "))
	}
	return msg
}

// Is returns true if the target error is ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// TagExistsError represents an error when a tag name is already taken.
// Tags are immutable once pushed; an existing name is never overwritten.
type TagExistsError struct {
	TagName string
}

func (e *TagExistsError) Error() string {
	return fmt.Sprintf("tag %s already exists and will not be overwritten", e.TagName)
}

// Is returns true if the target error is ErrTagExists
func (e *TagExistsError) Is(target error) bool {
	return target == ErrTagExists
}

// SigningFailedError represents a tag signing failure
type SigningFailedError struct {
	TagName  string
	Identity string
	Reason   string
}

func (e *SigningFailedError) Error() string {
	return fmt.Sprintf("failed to sign tag %s as %s: %s", e.TagName, e.Identity, e.Reason)
}

// Is returns true if the target error is ErrSigningFailed
func (e *SigningFailedError) Is(target error) bool {
	return target == ErrSigningFailed
}

// BuildFailedError represents a failure of an external build collaborator
type BuildFailedError struct {
	Target string
	Reason string
}

func (e *BuildFailedError) Error() string {
	return fmt.Sprintf("build of %s failed: %s", e.Target, e.Reason)
}

// Is returns true if the target error is ErrBuildFailed
func (e *BuildFailedError) Is(target error) bool {
	return target == ErrBuildFailed
}

// UploadFailedError represents a failure of an external upload collaborator
type UploadFailedError struct {
	Target string
	Reason string
}

func (e *UploadFailedError) Error() string {
	return fmt.Sprintf("upload of %s failed: %s", e.Target, e.Reason)
}

// Is returns true if the target error is ErrUploadFailed
func (e *UploadFailedError) Is(target error) bool {
	return target == ErrUploadFailed
}

// DestinationConflictError indicates a publish destination already holds
// different content for the same version
type DestinationConflictError struct {
	Path string
}

func (e *DestinationConflictError) Error() string {
	return fmt.Sprintf("destination %s already exists with different content", e.Path)
}

// Is returns true if the target error is ErrDestinationConflict
func (e *DestinationConflictError) Is(target error) bool {
	return target == ErrDestinationConflict
}

// BusyError indicates a release is already in flight on the (major, minor) line
type BusyError struct {
	Line string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("a release on line %s is already in flight", e.Line)
}

// Is returns true if the target error is ErrBusy
func (e *BusyError) Is(target error) bool {
	return target == ErrBusy
}

// CommandError represents an error from an external command execution
type CommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command failed: %s", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" %v", e.Args)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Stdout != "" {
		msg += fmt.Sprintf("\nstdout: %s", e.Stdout)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new CommandError
func NewCommandError(command string, args []string, stdout, stderr string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}
