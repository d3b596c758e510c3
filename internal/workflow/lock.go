package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	shipiterrors "shipit.dev/shipit/internal/errors"
)

// LineLocks serializes releases per (major, minor) line. A lock is a file
// created with O_EXCL under .git/shipit/locks/ holding the owning record ID,
// so a resumed run of the same release re-enters its own lock while a
// concurrent release on the same line is rejected with Busy. Different lines
// lock independently.
type LineLocks struct {
	dir string
}

// NewLineLocks creates the lock manager rooted at the repository's .git directory
func NewLineLocks(gitDir string) *LineLocks {
	return &LineLocks{dir: filepath.Join(gitDir, "shipit", "locks")}
}

func (l *LineLocks) path(line string) string {
	return filepath.Join(l.dir, line+".lock")
}

// Acquire takes the lock for a line on behalf of a record. It succeeds if
// the line is free or already held by the same record; any other holder
// means Busy.
func (l *LineLocks) Acquire(line, recordID string) error {
	if err := os.MkdirAll(l.dir, 0750); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, err := os.OpenFile(l.path(line), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err == nil {
		_, writeErr := f.WriteString(recordID + "\n")
		if closeErr := f.Close(); writeErr == nil {
			writeErr = closeErr
		}
		if writeErr != nil {
			_ = os.Remove(l.path(line))
			return fmt.Errorf("failed to write lock for line %s: %w", line, writeErr)
		}
		return nil
	}
	if !os.IsExist(err) {
		return fmt.Errorf("failed to lock line %s: %w", line, err)
	}

	holder, readErr := os.ReadFile(l.path(line))
	if readErr == nil && strings.TrimSpace(string(holder)) == recordID {
		// our own lock from an earlier run of this release
		return nil
	}
	return &shipiterrors.BusyError{Line: line}
}

// Release drops the lock for a line if the record holds it
func (l *LineLocks) Release(line, recordID string) error {
	holder, err := os.ReadFile(l.path(line))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read lock for line %s: %w", line, err)
	}
	if strings.TrimSpace(string(holder)) != recordID {
		return fmt.Errorf("lock for line %s is held by another release", line)
	}
	if err := os.Remove(l.path(line)); err != nil {
		return fmt.Errorf("failed to release lock for line %s: %w", line, err)
	}
	return nil
}
