// Package vault maps a directory of Markdown files onto notebooks and
// topics: top-level folders are notebooks, their sub-folders are topics and
// files directly inside a notebook folder belong to its General topic.
package vault

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/notebase/internal/checksum"
	"github.com/starford/notebase/internal/models"
)

// File describes one Markdown file of the vault.
type File struct {
	Path     string // slash-separated, relative to the vault root
	Notebook string // "" for files at the root
	Topic    string
	Checksum string
	ModTime  time.Time
}

// Dir is a vault rooted at a local directory.
type Dir struct {
	root string // absolute path to vault directory
}

// Open returns the vault rooted at root. The directory must already exist.
func Open(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("vault: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault: root is not a directory: %s", abs)
	}
	return &Dir{root: abs}, nil
}

// Root returns the absolute vault directory.
func (d *Dir) Root() string { return d.root }

// Locate returns the notebook and topic a vault path files into.
func Locate(rel string) (notebook, topic string) {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(rel)), "/")
	switch len(parts) {
	case 1:
		return "", ""
	case 2:
		return parts[0], models.DefaultTopic
	default:
		return parts[0], parts[1]
	}
}

// safePath resolves a relative path against the vault root and rejects
// any result that escapes it.
func (d *Dir) safePath(rel string) (string, error) {
	if rel == "" {
		return d.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("vault: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(d.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("vault: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, d.root+string(os.PathSeparator)) && abs != d.root {
		return "", fmt.Errorf("vault: path escapes vault root: %s", rel)
	}
	return abs, nil
}

// rel converts an absolute path under the root to a vault path.
func (d *Dir) rel(abs string) (string, error) {
	r, err := filepath.Rel(d.root, abs)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(r), nil
}

// hidden reports whether a path element is a dot file or dot directory,
// such as editor state folders.
func hidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// List walks the vault and returns every .md file, skipping hidden entries.
func (d *Dir) List() ([]File, error) {
	var out []File
	err := filepath.WalkDir(d.root, func(p string, e fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p != d.root && hidden(e.Name()) {
			if e.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			return nil
		}
		info, err := e.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := d.rel(p)
		if err != nil {
			return err
		}
		nb, topic := Locate(rel)
		out = append(out, File{
			Path:     rel,
			Notebook: nb,
			Topic:    topic,
			Checksum: checksum.Sum(data),
			ModTime:  info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("vault: list: %w", err)
	}
	return out, nil
}

// Read returns the raw bytes of a vault file.
func (d *Dir) Read(rel string) ([]byte, error) {
	abs, err := d.safePath(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: read %s: %w", rel, err)
	}
	return data, nil
}

// Exists reports whether rel names an existing file.
func (d *Dir) Exists(rel string) bool {
	abs, err := d.safePath(rel)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

// Write atomically writes content: tmp file, fsync, rename.
func (d *Dir) Write(rel string, content []byte) error {
	abs, err := d.safePath(rel)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("vault: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".notebase-tmp-*")
	if err != nil {
		return fmt.Errorf("vault: create temp: %w", err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("vault: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("vault: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("vault: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("vault: rename: %w", err)
	}
	success = true
	return nil
}
