package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Dedupe identity methods.
const (
	// MethodNameSize keys on (lowercased basename, size). Fast, catches the
	// common "same export dropped in two folders" case.
	MethodNameSize = "name_size"
	// MethodSHA256Size keys on (content hash, size). Strong mode.
	MethodSHA256Size = "sha256_size"
)

// DedupeConfig controls duplicate grouping and winner selection.
type DedupeConfig struct {
	Enabled *bool  `yaml:"enabled" json:"enabled"` // nil means enabled
	Method  string `yaml:"method" json:"method"`   // name_size (default) or sha256_size

	// PreferPathContains and AvoidPathContains bias winner selection inside a
	// duplicate group: each matched prefer token adds 2 to a path's score,
	// each matched avoid token subtracts 2.
	PreferPathContains []string `yaml:"prefer_path_contains" json:"prefer_path_contains"`
	AvoidPathContains  []string `yaml:"avoid_path_contains" json:"avoid_path_contains"`
}

func (c DedupeConfig) enabled() bool { return c.Enabled == nil || *c.Enabled }

// DuplicateGroup records one set of paths judged identical, the winner, and
// the copies dropped from further processing.
type DuplicateGroup struct {
	Selected string   `json:"selected"`
	Dropped  []string `json:"dropped"`
	Count    int      `json:"count"`
}

// DedupeResult is the outcome of Deduplicate.
type DedupeResult struct {
	SelectedPaths []string         `json:"selected_paths"`
	Groups        []DuplicateGroup `json:"groups"`
}

// Deduplicate groups paths by an identity key and selects one canonical path
// per group. Singleton groups pass through. The selected list is sorted; the
// group list is ordered by selected path so output is deterministic
// regardless of map iteration order.
func Deduplicate(paths []string, cfg DedupeConfig) (*DedupeResult, error) {
	if !cfg.enabled() {
		selected := make([]string, len(paths))
		copy(selected, paths)
		return &DedupeResult{SelectedPaths: selected, Groups: []DuplicateGroup{}}, nil
	}

	method := cfg.Method
	if method == "" {
		method = MethodNameSize
	}

	groups := make(map[string][]string)
	for _, path := range paths {
		key, err := identityKey(path, method)
		if err != nil {
			return nil, err
		}
		groups[key] = append(groups[key], path)
	}

	result := &DedupeResult{Groups: []DuplicateGroup{}}
	for _, members := range groups {
		if len(members) == 1 {
			result.SelectedPaths = append(result.SelectedPaths, members[0])
			continue
		}
		ranked := rankPaths(members, cfg.PreferPathContains, cfg.AvoidPathContains)
		result.SelectedPaths = append(result.SelectedPaths, ranked[0])
		result.Groups = append(result.Groups, DuplicateGroup{
			Selected: ranked[0],
			Dropped:  ranked[1:],
			Count:    len(ranked),
		})
	}

	sort.Strings(result.SelectedPaths)
	sort.Slice(result.Groups, func(i, j int) bool {
		return result.Groups[i].Selected < result.Groups[j].Selected
	})
	return result, nil
}

func identityKey(path, method string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if method == MethodSHA256Size {
		sum, err := hashFile(path)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s:%d", sum, info.Size()), nil
	}
	return fmt.Sprintf("%s:%d", strings.ToLower(filepath.Base(path)), info.Size()), nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// pathScore implements the selection policy: +2 per matched prefer token,
// -2 per matched avoid token.
func pathScore(path string, prefer, avoid []string) int {
	lower := strings.ToLower(path)
	score := 0
	for _, token := range prefer {
		if strings.Contains(lower, strings.ToLower(token)) {
			score += 2
		}
	}
	for _, token := range avoid {
		if strings.Contains(lower, strings.ToLower(token)) {
			score -= 2
		}
	}
	return score
}

// rankPaths orders group members best-first: score desc, shorter path first,
// then lexicographic. The final tie-break keeps selection independent of
// input order.
func rankPaths(members []string, prefer, avoid []string) []string {
	ranked := make([]string, len(members))
	copy(ranked, members)
	sort.Slice(ranked, func(i, j int) bool {
		si, sj := pathScore(ranked[i], prefer, avoid), pathScore(ranked[j], prefer, avoid)
		if si != sj {
			return si > sj
		}
		if len(ranked[i]) != len(ranked[j]) {
			return len(ranked[i]) < len(ranked[j])
		}
		return ranked[i] < ranked[j]
	})
	return ranked
}
