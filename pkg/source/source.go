// Package source abstracts where a collection's file content comes from.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ContentSource provides file content for relative paths within one collection.
type ContentSource interface {
	// Read returns the content of the file at the collection-relative path.
	Read(path string) ([]byte, error)
}

// DirSource reads files from a directory on the local filesystem.
type DirSource struct {
	root string
}

// NewDir creates a source rooted at the given directory.
func NewDir(root string) *DirSource {
	return &DirSource{root: root}
}

// Read implements ContentSource.
func (d *DirSource) Read(path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(d.root, filepath.FromSlash(path)))
}

// MapSource serves file content from memory. Useful for tests and for
// uploaded file sets that never touch disk.
type MapSource map[string][]byte

// Read implements ContentSource.
func (m MapSource) Read(path string) ([]byte, error) {
	content, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", path)
	}
	return content, nil
}

// Paths returns the sorted relative paths held by the source.
func (m MapSource) Paths() []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
