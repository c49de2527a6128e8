package corpus

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "supply.csv"), "material,country\n")
	writeFile(t, filepath.Join(root, "b", "notes.MD"), "# notes")
	writeFile(t, filepath.Join(root, "b", "image.png"), "binary")
	writeFile(t, filepath.Join(root, ".git", "config.csv"), "ignored")
	writeFile(t, filepath.Join(root, "venv", "pkg.csv"), "ignored")

	paths, err := Discover(root, DiscoverConfig{Extensions: []string{"csv", ".md"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %d: %v", len(paths), paths)
	}
	if !sort.StringsAreSorted(paths) {
		t.Errorf("paths not sorted: %v", paths)
	}
	if filepath.Base(paths[0]) != "supply.csv" {
		t.Errorf("unexpected first path %q", paths[0])
	}
}

func TestDiscoverMissingRoot(t *testing.T) {
	if _, err := Discover(filepath.Join(t.TempDir(), "nope"), DiscoverConfig{}); err == nil {
		t.Fatal("expected error for missing corpus root")
	}
}

func TestDiscoverEmptyCorpus(t *testing.T) {
	paths, err := Discover(t.TempDir(), DiscoverConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected no paths, got %v", paths)
	}
}

func TestDeduplicateStrongMode(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "preferred", "supply.csv")
	b := filepath.Join(root, "backup_copy", "supply.csv")
	c := filepath.Join(root, "other.csv")
	writeFile(t, a, "material,country\ngraphite,USA\n")
	writeFile(t, b, "material,country\ngraphite,USA\n")
	writeFile(t, c, "material,country\nnickel,Canada\n")

	result, err := Deduplicate([]string{a, b, c}, DedupeConfig{
		Method:             MethodSHA256Size,
		PreferPathContains: []string{"preferred"},
		AvoidPathContains:  []string{"backup"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Groups) != 1 {
		t.Fatalf("expected 1 duplicate group, got %d", len(result.Groups))
	}
	g := result.Groups[0]
	if g.Count != 2 {
		t.Errorf("group count = %d, want 2", g.Count)
	}
	if g.Selected != a {
		t.Errorf("selected = %q, want preferred copy %q", g.Selected, a)
	}
	if len(result.SelectedPaths) != 2 {
		t.Errorf("expected 2 selected paths, got %v", result.SelectedPaths)
	}
}

func TestDeduplicateNameSizeDefault(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "x", "trade.json")
	b := filepath.Join(root, "longer_directory_name", "trade.json")
	writeFile(t, a, `[{"a":1}]`)
	writeFile(t, b, `[{"b":2}]`) // same name, same size, different content

	result, err := Deduplicate([]string{b, a}, DedupeConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Groups) != 1 {
		t.Fatalf("expected 1 group in name_size mode, got %d", len(result.Groups))
	}
	// No prefer/avoid tokens: shorter path wins.
	if result.Groups[0].Selected != a {
		t.Errorf("selected = %q, want shorter path %q", result.Groups[0].Selected, a)
	}
}

func TestDeduplicateDisabled(t *testing.T) {
	disabled := false
	result, err := Deduplicate([]string{"/x/a.csv", "/x/b.csv"}, DedupeConfig{Enabled: &disabled})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.SelectedPaths) != 2 || len(result.Groups) != 0 {
		t.Fatalf("disabled dedupe should pass through: %+v", result)
	}
}

func TestDeduplicateEmpty(t *testing.T) {
	result, err := Deduplicate(nil, DedupeConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.SelectedPaths) != 0 || len(result.Groups) != 0 {
		t.Fatalf("empty corpus should yield empty result: %+v", result)
	}
}

func TestRankPathsDeterministicTieBreak(t *testing.T) {
	members := []string{"/data/bb.csv", "/data/aa.csv"}
	ranked := rankPaths(members, nil, nil)
	if ranked[0] != "/data/aa.csv" {
		t.Errorf("equal score and length should tie-break lexicographically, got %v", ranked)
	}
}
