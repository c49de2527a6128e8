// Package corpus discovers and deduplicates source files in a corpus tree.
//
// Discovery walks a root directory, keeps files whose extension is in the
// allowed set, and returns a sorted path list. Deduplication collapses
// copies of the same logical source before parsing so that downstream
// fact extraction never double-counts.
package corpus

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExtensions are the file types the pipeline knows how to parse.
var DefaultExtensions = []string{".csv", ".json", ".jsonl", ".xlsx", ".txt", ".md", ".pdf", ".html"}

// DefaultSkipDirs are directory names excluded from discovery.
var DefaultSkipDirs = []string{"__pycache__", ".git", ".venv", "venv", "node_modules", ".ipynb_checkpoints"}

// DiscoverConfig controls corpus discovery.
type DiscoverConfig struct {
	// Extensions to include. Entries are matched case-insensitively and may
	// be given with or without the leading dot. Empty means DefaultExtensions.
	Extensions []string `yaml:"extensions" json:"extensions"`

	// SkipDirNames are directory basenames pruned from the walk. Directories
	// starting with "." are always pruned. Empty means DefaultSkipDirs.
	SkipDirNames []string `yaml:"skip_dir_names" json:"skip_dir_names"`
}

// Discover walks root and returns the lexicographically sorted list of
// absolute paths whose extension is in the allowed set. A missing or
// unreadable root is an error: without a corpus no partial output is
// meaningful.
func Discover(root string, cfg DiscoverConfig) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve corpus root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("corpus root %s: %w", absRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus root %s: not a directory", absRoot)
	}

	include := normalizeExtensions(cfg.Extensions)
	skip := make(map[string]bool, len(cfg.SkipDirNames))
	names := cfg.SkipDirNames
	if len(names) == 0 {
		names = DefaultSkipDirs
	}
	for _, name := range names {
		skip[name] = true
	}

	var paths []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			name := d.Name()
			if skip[name] || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if include[ext] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus root: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}

// normalizeExtensions lowercases entries and ensures the leading dot.
func normalizeExtensions(exts []string) map[string]bool {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	out := make(map[string]bool, len(exts))
	for _, ext := range exts {
		e := strings.ToLower(strings.TrimSpace(ext))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out[e] = true
	}
	return out
}
