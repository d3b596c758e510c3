// Package testhelpers provides a real git repository fixture for tests.
package testhelpers

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitRepo is a throwaway git repository rooted at Dir.
type GitRepo struct {
	Dir string
}

// NewGitRepo initializes a fresh repository with a main branch and a
// deterministic test identity. Global git config is ignored so tests behave
// the same on every machine.
func NewGitRepo(dir string) (*GitRepo, error) {
	repo := &GitRepo{Dir: dir}

	cmd := exec.Command("git", "-c", "init.defaultBranch=main", "-c", "core.autocrlf=false", "init", dir, "-b", "main")
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null")
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("failed to init repo: %w", err)
	}

	if err := repo.Git("config", "user.name", "Test User"); err != nil {
		return nil, err
	}
	if err := repo.Git("config", "user.email", "test@example.com"); err != nil {
		return nil, err
	}
	// Unsigned commits and tags regardless of the host's configuration.
	if err := repo.Git("config", "commit.gpgsign", "false"); err != nil {
		return nil, err
	}
	if err := repo.Git("config", "tag.gpgsign", "false"); err != nil {
		return nil, err
	}

	return repo, nil
}

// Git runs a git command in the repository.
func (r *GitRepo) Git(args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null")
	if os.Getenv("DEBUG") == "" {
		cmd.Stdout = nil
		cmd.Stderr = nil
	}
	return cmd.Run()
}

// GitOutput runs a git command and returns its trimmed stdout.
func (r *GitRepo) GitOutput(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git command failed: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// WriteFile writes a file relative to the repository root, creating parent
// directories as needed.
func (r *GitRepo) WriteFile(name, contents string) error {
	path := filepath.Join(r.Dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(path, []byte(contents), 0600)
}

// Commit writes a file and commits everything with the given message.
func (r *GitRepo) Commit(message, name, contents string) error {
	if err := r.WriteFile(name, contents); err != nil {
		return err
	}
	if err := r.Git("add", "-A"); err != nil {
		return err
	}
	return r.Git("commit", "-m", message)
}

// Checkout checks out a branch.
func (r *GitRepo) Checkout(name string) error {
	return r.Git("checkout", name)
}

// CreateBranch creates a branch without checking it out.
func (r *GitRepo) CreateBranch(name string) error {
	return r.Git("branch", name)
}

// CurrentBranch returns the name of the checked-out branch.
func (r *GitRepo) CurrentBranch() (string, error) {
	return r.GitOutput("branch", "--show-current")
}

// Revision returns the SHA of a branch, tag, or commit reference.
func (r *GitRepo) Revision(rev string) (string, error) {
	return r.GitOutput("rev-parse", rev)
}

// Branches returns all local branch names.
func (r *GitRepo) Branches() ([]string, error) {
	output, err := r.GitOutput("branch", "--format=%(refname:short)")
	if err != nil {
		return nil, err
	}
	if output == "" {
		return []string{}, nil
	}
	return strings.Split(output, "\n"), nil
}

// CreateBareRemote creates a bare sibling repository and adds it as a remote.
// Returns the bare repository path.
func (r *GitRepo) CreateBareRemote(name string) (string, error) {
	bareDir := r.Dir + "-" + name + ".git"

	cmd := exec.Command("git", "init", "--bare", bareDir)
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null")
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to create bare repo: %w", err)
	}

	if err := r.Git("remote", "add", name, bareDir); err != nil {
		return "", fmt.Errorf("failed to add remote: %w", err)
	}
	return bareDir, nil
}
