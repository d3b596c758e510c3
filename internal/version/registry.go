package version

import (
	"fmt"

	shipiterrors "shipit.dev/shipit/internal/errors"
)

// Registry reads and stamps the declared version locations as a unit.
// It holds no state of its own; the files are the source of truth.
type Registry struct {
	locations []Location
}

// NewRegistry creates a Registry over an ordered set of locations
func NewRegistry(locations []Location) *Registry {
	return &Registry{locations: locations}
}

// Locations returns the declared locations in order
func (r *Registry) Locations() []Location {
	return r.locations
}

// ReadCurrent reads every location and returns the single version they all
// agree on. If any two disagree, or any location is unreadable, it returns an
// InconsistentVersionError listing what each location held.
func (r *Registry) ReadCurrent() (Version, error) {
	if len(r.locations) == 0 {
		return Version{}, fmt.Errorf("no version locations declared")
	}

	readings := make(map[string]string, len(r.locations))
	consistent := true
	var first string
	for i, loc := range r.locations {
		raw, err := loc.Extract()
		if err != nil {
			readings[loc.Name] = "<unreadable>"
			consistent = false
			continue
		}
		readings[loc.Name] = raw
		if i == 0 {
			first = raw
		} else if raw != first {
			consistent = false
		}
	}

	if !consistent {
		return Version{}, &shipiterrors.InconsistentVersionError{Readings: readings}
	}

	v, err := Parse(first)
	if err != nil {
		return Version{}, fmt.Errorf("location %s: %w", r.locations[0].Name, err)
	}
	return v, nil
}

// Stamp writes the version into every location. On partial failure it keeps
// the successful writes in place (branch state is not committed until every
// location agrees) and returns a StampError naming exactly which locations
// were written and which failed, so the caller can retry only the failures.
func (r *Registry) Stamp(v Version) error {
	var written []string
	failed := make(map[string]error)

	for _, loc := range r.locations {
		if err := loc.Write(v); err != nil {
			failed[loc.Name] = err
			continue
		}
		written = append(written, loc.Name)
	}

	if len(failed) > 0 {
		return &shipiterrors.StampError{Written: written, Failed: failed}
	}
	return nil
}
