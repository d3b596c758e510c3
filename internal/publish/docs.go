package publish

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	shipiterrors "shipit.dev/shipit/internal/errors"
	"shipit.dev/shipit/internal/version"
)

// PublishDocs copies a built docs artifact into <dest>/vX.Y.Z/.
//
// Publishing the same content twice is an idempotent no-op; a version
// directory that already exists with different content is a hard
// DestinationConflict, never an overwrite. The copy lands in a temporary
// sibling directory and is renamed into place, so the version path never
// exposes a partially copied tree.
func (p *Publisher) PublishDocs(target Target, artifact *Artifact, v version.Version) error {
	if artifact.Kind != TargetDocs {
		return fmt.Errorf("docs publish applies to docs artifacts, got %s", artifact.Kind)
	}

	versionDir := filepath.Join(target.Dest, v.DocsDir())
	if _, err := os.Stat(versionDir); err == nil {
		same, err := sameTree(artifact.Path, versionDir)
		if err != nil {
			return err
		}
		if same {
			return nil
		}
		return &shipiterrors.DestinationConflictError{Path: versionDir}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", versionDir, err)
	}

	if err := os.MkdirAll(target.Dest, 0755); err != nil {
		return fmt.Errorf("failed to create docs root %s: %w", target.Dest, err)
	}

	staging, err := os.MkdirTemp(target.Dest, "."+v.DocsDir()+".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := copyTree(artifact.Path, staging); err != nil {
		return fmt.Errorf("failed to stage docs for %s: %w", v, err)
	}

	if err := os.Rename(staging, versionDir); err != nil {
		return fmt.Errorf("failed to move docs into place: %w", err)
	}
	return nil
}

// UpdateAlias atomically repoints the target's alias symlink at the
// published version directory. The alias never resolves to a missing or
// partially published target: the link is created aside and renamed over.
func (p *Publisher) UpdateAlias(target Target, v version.Version) error {
	if target.Alias == "" {
		return nil
	}

	versionDir := filepath.Join(target.Dest, v.DocsDir())
	if _, err := os.Stat(versionDir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("cannot alias %s: %w", v.DocsDir(), shipiterrors.ErrTargetMissing)
		}
		return fmt.Errorf("failed to stat %s: %w", versionDir, err)
	}

	aliasPath := filepath.Join(target.Dest, target.Alias)
	tmpLink := aliasPath + ".tmp"
	_ = os.Remove(tmpLink)

	// Relative link so the docs root stays relocatable
	if err := os.Symlink(v.DocsDir(), tmpLink); err != nil {
		return fmt.Errorf("failed to create alias link: %w", err)
	}
	if err := os.Rename(tmpLink, aliasPath); err != nil {
		_ = os.Remove(tmpLink)
		return fmt.Errorf("failed to swap alias %s: %w", target.Alias, err)
	}
	return nil
}

// copyTree copies the contents of src into dst, which must exist
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		targetPath := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(targetPath, 0755)
		}

		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()

		out, err := os.Create(targetPath)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	})
}

// sameTree reports whether two directory trees have identical content
func sameTree(a, b string) (bool, error) {
	hashA, err := treeHash(a)
	if err != nil {
		return false, err
	}
	hashB, err := treeHash(b)
	if err != nil {
		return false, err
	}
	return hashA == hashB, nil
}

// treeHash computes a digest over relative paths and file contents
func treeHash(root string) (string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	sort.Strings(files)

	h := sha256.New()
	for _, path := range files {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%s\x00", rel)
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		if _, err := io.Copy(h, f); err != nil {
			f.Close()
			return "", err
		}
		f.Close()
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
