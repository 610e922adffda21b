package upgrade

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Entry is one child of a listed source directory.
type Entry struct {
	Name  string
	IsDir bool
}

// Source abstracts the script store upgrades are read from. Paths are
// slash-separated and relative to the source root. Read must report a
// missing file with an error matching fs.ErrNotExist so callers can
// distinguish absence from unreadability.
type Source interface {
	List(ctx context.Context, dir string) ([]Entry, error)
	Read(ctx context.Context, path string) ([]byte, error)
}

// DirSource reads upgrades from a local directory tree.
type DirSource struct {
	root string
}

// NewDirSource returns a Source rooted at the given directory.
func NewDirSource(root string) *DirSource {
	return &DirSource{root: root}
}

// List returns the immediate children of dir relative to the root.
func (s *DirSource) List(_ context.Context, dir string) ([]Entry, error) {
	full := filepath.Join(s.root, filepath.FromSlash(dir))

	dirEntries, err := os.ReadDir(full)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", full, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, e := range dirEntries {
		entries = append(entries, Entry{Name: e.Name(), IsDir: e.IsDir()})
	}

	return entries, nil
}

// Read returns the full contents of the file at path relative to the root.
func (s *DirSource) Read(_ context.Context, path string) ([]byte, error) {
	full := filepath.Join(s.root, filepath.FromSlash(path))

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", full, err)
	}

	return data, nil
}
