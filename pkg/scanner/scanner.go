// Package scanner enumerates the source files that qualify for comparison.
package scanner

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tmarland/kindred/pkg/config"
)

// Scanner walks a directory tree and collects qualifying source files.
type Scanner struct {
	config     *config.Config
	extensions map[string]struct{}
	excluded   map[string]struct{}
}

// NewScanner creates a scanner from config. A nil config uses defaults.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	exts := make(map[string]struct{}, len(cfg.Collect.Extensions))
	for _, e := range cfg.Collect.Extensions {
		exts[strings.ToLower(e)] = struct{}{}
	}
	dirs := make(map[string]struct{}, len(cfg.Collect.ExcludeDirs))
	for _, d := range cfg.Collect.ExcludeDirs {
		dirs[d] = struct{}{}
	}

	return &Scanner{config: cfg, extensions: exts, excluded: dirs}
}

// ScanDir returns the relative slash-separated paths of all qualifying
// files under root, sorted for deterministic iteration order.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := s.excluded[d.Name()]; skip {
				return filepath.SkipDir
			}
			return nil
		}

		if !s.qualifies(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func (s *Scanner) qualifies(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	_, ok := s.extensions[ext]
	return ok
}
