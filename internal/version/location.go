package version

import (
	"fmt"
	"os"
	"regexp"
)

// Location is a declared source-of-truth for the project version. Pattern is
// a regular expression with exactly one capture group matching the stamped
// version string inside the file at Path.
type Location struct {
	Name    string
	Path    string
	Pattern string
}

// compile validates the pattern and its capture-group arity
func (l Location) compile() (*regexp.Regexp, error) {
	re, err := regexp.Compile(l.Pattern)
	if err != nil {
		return nil, fmt.Errorf("location %s: invalid pattern: %w", l.Name, err)
	}
	if re.NumSubexp() != 1 {
		return nil, fmt.Errorf("location %s: pattern must have exactly one capture group, has %d", l.Name, re.NumSubexp())
	}
	return re, nil
}

// Extract reads the file and returns the raw version string captured by the pattern
func (l Location) Extract() (string, error) {
	re, err := l.compile()
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(l.Path)
	if err != nil {
		return "", fmt.Errorf("location %s: %w", l.Name, err)
	}

	match := re.FindSubmatch(data)
	if match == nil {
		return "", fmt.Errorf("location %s: pattern not found in %s", l.Name, l.Path)
	}
	return string(match[1]), nil
}

// Write rewrites the capture group in the file to hold the given version,
// leaving the rest of the match untouched
func (l Location) Write(v Version) error {
	re, err := l.compile()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(l.Path)
	if err != nil {
		return fmt.Errorf("location %s: %w", l.Name, err)
	}

	loc := re.FindSubmatchIndex(data)
	if loc == nil {
		return fmt.Errorf("location %s: pattern not found in %s", l.Name, l.Path)
	}

	// loc[2]:loc[3] is the first capture group
	var out []byte
	out = append(out, data[:loc[2]]...)
	out = append(out, v.String()...)
	out = append(out, data[loc[3]:]...)

	info, err := os.Stat(l.Path)
	if err != nil {
		return fmt.Errorf("location %s: %w", l.Name, err)
	}
	if err := os.WriteFile(l.Path, out, info.Mode().Perm()); err != nil {
		return fmt.Errorf("location %s: %w", l.Name, err)
	}
	return nil
}
