package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/dd0wney/infrasim/pkg/level"
)

// DirSource reads level documents from a directory tree. Names are paths
// relative to Root using forward slashes.
type DirSource struct {
	Root string
}

// NewDirSource returns a source rooted at root, which must be a directory.
func NewDirSource(root string) (*DirSource, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open level directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("level directory %s is not a directory", root)
	}
	return &DirSource{Root: root}, nil
}

func (d *DirSource) Kind() string { return "dir" }

// List walks Root and returns every level document name, sorted. Hidden
// directories are skipped.
func (d *DirSource) List(ctx context.Context) ([]string, error) {
	var names []string
	err := filepath.WalkDir(d.Root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			if path != d.Root && entry.Name()[0] == '.' {
				return filepath.SkipDir
			}
			return nil
		}
		if !level.IsDocumentName(entry.Name()) {
			return nil
		}
		rel, err := filepath.Rel(d.Root, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", d.Root, err)
	}
	sort.Strings(names)
	return names, nil
}

// Read returns the contents of a listed document.
func (d *DirSource) Read(_ context.Context, name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	data, err := os.ReadFile(filepath.Join(d.Root, filepath.FromSlash(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}
