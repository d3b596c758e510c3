package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"shipit.dev/shipit/internal/version"
)

// Store persists release records as JSON files under .git/shipit/releases/.
// In-flight records live at the top level; closed records move to archive/
// and are never deleted.
type Store struct {
	dir string
}

// NewStore creates a store rooted at the repository's .git directory
func NewStore(gitDir string) *Store {
	return &Store{dir: filepath.Join(gitDir, "shipit", "releases")}
}

func (s *Store) recordPath(v version.Version) string {
	return filepath.Join(s.dir, v.String()+".json")
}

func (s *Store) archivePath(v version.Version) string {
	return filepath.Join(s.dir, "archive", v.String()+".json")
}

// Save writes an in-flight record to disk
func (s *Store) Save(rec *Record) error {
	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("failed to create release store: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal release record: %w", err)
	}
	if err := os.WriteFile(s.recordPath(rec.Version), data, 0600); err != nil {
		return fmt.Errorf("failed to write release record: %w", err)
	}
	return nil
}

// Load reads the in-flight record for a version
func (s *Store) Load(v version.Version) (*Record, error) {
	return readRecord(s.recordPath(v))
}

// InFlight returns every non-archived record, ordered by version
func (s *Store) InFlight() ([]*Record, error) {
	return s.readDir(s.dir)
}

// Latest returns the archived record with the highest version, or nil if no
// release has completed yet. This is how the workflow discovers the previous
// release.
func (s *Store) Latest() (*Record, error) {
	records, err := s.readDir(filepath.Join(s.dir, "archive"))
	if err != nil {
		return nil, err
	}
	var latest *Record
	for _, rec := range records {
		if latest == nil || rec.Version.Compare(latest.Version) > 0 {
			latest = rec
		}
	}
	return latest, nil
}

// Archive marks a record archived and moves it out of the in-flight set
func (s *Store) Archive(rec *Record) error {
	now := time.Now().UTC()
	rec.ArchivedAt = &now
	rec.UpdatedAt = now

	archiveDir := filepath.Join(s.dir, "archive")
	if err := os.MkdirAll(archiveDir, 0750); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal release record: %w", err)
	}
	if err := os.WriteFile(s.archivePath(rec.Version), data, 0600); err != nil {
		return fmt.Errorf("failed to write archived record: %w", err)
	}
	if err := os.Remove(s.recordPath(rec.Version)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove in-flight record: %w", err)
	}
	return nil
}

// Archived returns every archived record, ordered by version
func (s *Store) Archived() ([]*Record, error) {
	return s.readDir(filepath.Join(s.dir, "archive"))
}

// Remove deletes an in-flight record (pre-tag abort only; closed records are
// archived, not removed)
func (s *Store) Remove(rec *Record) error {
	if err := os.Remove(s.recordPath(rec.Version)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove release record: %w", err)
	}
	return nil
}

func (s *Store) readDir(dir string) ([]*Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read release store: %w", err)
	}

	var records []*Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		rec, err := readRecord(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	// version order, not directory order
	sort.Slice(records, func(i, j int) bool {
		return records[i].Version.Compare(records[j].Version) < 0
	})
	return records, nil
}

func readRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no release record at %s", path)
		}
		return nil, fmt.Errorf("failed to read release record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse release record %s: %w", path, err)
	}
	return &rec, nil
}
