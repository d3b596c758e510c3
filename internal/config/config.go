// Package config reads the repository's release configuration from
// .shipit.yaml at the repo root. The file is committed alongside the code it
// releases; durable workflow state lives under .git/shipit/ instead.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"shipit.dev/shipit/internal/publish"
	"shipit.dev/shipit/internal/version"
)

// FileName is the config file name at the repository root
const FileName = ".shipit.yaml"

// LocationConfig declares one version source-of-truth
type LocationConfig struct {
	Name    string `yaml:"name"`
	Path    string `yaml:"path"`
	Pattern string `yaml:"pattern"`
}

// DocsConfig declares the documentation publish target
type DocsConfig struct {
	Dest  string   `yaml:"dest"`
	Alias string   `yaml:"alias"`
	Build []string `yaml:"build"`
}

// PackageConfig declares the package build/upload target
type PackageConfig struct {
	Dest   string   `yaml:"dest"`
	Build  []string `yaml:"build"`
	Upload []string `yaml:"upload"`
}

// TrackerConfig declares the issue tracker repository
type TrackerConfig struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
}

// Config is the parsed .shipit.yaml
type Config struct {
	Mainline   string           `yaml:"mainline"`
	Remote     string           `yaml:"remote"`
	SigningKey string           `yaml:"signing_key,omitempty"`
	Versions   []LocationConfig `yaml:"versions"`
	Docs       *DocsConfig      `yaml:"docs,omitempty"`
	Package    *PackageConfig   `yaml:"package,omitempty"`
	Tracker    *TrackerConfig   `yaml:"tracker,omitempty"`
}

// Path returns the config file path for a repo root
func Path(repoRoot string) string {
	return filepath.Join(repoRoot, FileName)
}

// Exists reports whether the repo is configured
func Exists(repoRoot string) bool {
	_, err := os.Stat(Path(repoRoot))
	return err == nil
}

// Load reads and validates the config for a repo root
func Load(repoRoot string) (*Config, error) {
	data, err := os.ReadFile(Path(repoRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no %s found; run 'shipit init' first", FileName)
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	if cfg.Mainline == "" {
		cfg.Mainline = "main"
	}
	if cfg.Remote == "" {
		cfg.Remote = "origin"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config invariants
func (c *Config) Validate() error {
	if len(c.Versions) == 0 {
		return fmt.Errorf("%s must declare at least one version location", FileName)
	}
	for i, loc := range c.Versions {
		if loc.Name == "" || loc.Path == "" || loc.Pattern == "" {
			return fmt.Errorf("version location %d needs name, path, and pattern", i)
		}
	}
	if c.Docs != nil && (c.Docs.Dest == "" || len(c.Docs.Build) == 0) {
		return fmt.Errorf("docs target needs dest and build command")
	}
	if c.Package != nil && (len(c.Package.Build) == 0 || len(c.Package.Upload) == 0) {
		return fmt.Errorf("package target needs build and upload commands")
	}
	return nil
}

// Locations converts the declared version locations, resolving relative
// paths against the repo root
func (c *Config) Locations(repoRoot string) []version.Location {
	locations := make([]version.Location, len(c.Versions))
	for i, loc := range c.Versions {
		path := loc.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(repoRoot, path)
		}
		locations[i] = version.Location{Name: loc.Name, Path: path, Pattern: loc.Pattern}
	}
	return locations
}

// DocsTarget returns the docs publish target, or nil when docs publishing is
// not configured
func (c *Config) DocsTarget() *publish.Target {
	if c.Docs == nil {
		return nil
	}
	alias := c.Docs.Alias
	if alias == "" {
		alias = "release"
	}
	return &publish.Target{
		Kind:     publish.TargetDocs,
		Dest:     c.Docs.Dest,
		Alias:    alias,
		BuildCmd: c.Docs.Build,
	}
}

// PackageTarget returns the package publish target, or nil when package
// publishing is not configured
func (c *Config) PackageTarget() *publish.Target {
	if c.Package == nil {
		return nil
	}
	return &publish.Target{
		Kind:      publish.TargetPackage,
		Dest:      c.Package.Dest,
		BuildCmd:  c.Package.Build,
		UploadCmd: c.Package.Upload,
	}
}

// starter is the template written by 'shipit init'
const starter = `# shipit release configuration
mainline: main
remote: origin
# signing_key: YOUR-GPG-KEY-ID

# Every declared location must agree on the version; a release stamps all of
# them. Pattern is a regexp with one capture group around the version.
versions:
  - name: setup
    path: setup.py
    pattern: "version='(\\d+\\.\\d+\\.\\d+)'"

# docs:
#   dest: /srv/docs/project
#   alias: release
#   build: [make, docs, "OUT={out}", "REF={ref}"]

# package:
#   build: [make, dist, "OUT={out}", "REF={ref}"]
#   upload: [make, upload, "DIST={artifact}"]

# tracker:
#   owner: example
#   repo: project
`

// WriteStarter writes a commented starter config; it refuses to overwrite
func WriteStarter(repoRoot string) error {
	path := Path(repoRoot)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", FileName)
	}
	return os.WriteFile(path, []byte(starter), 0644)
}
