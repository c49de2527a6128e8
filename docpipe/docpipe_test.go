package docpipe

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		path   string
		format Format
	}{
		{"brief.txt", FormatTXT},
		{"notes.md", FormatMD},
		{"notes.markdown", FormatMD},
		{"report.pdf", FormatPDF},
		{"page.html", FormatHTML},
		{"page.htm", FormatHTML},
	}
	for _, tt := range tests {
		f, err := Detect(tt.path)
		if err != nil {
			t.Errorf("Detect(%q): %v", tt.path, err)
			continue
		}
		if f != tt.format {
			t.Errorf("Detect(%q) = %q, want %q", tt.path, f, tt.format)
		}
	}

	if _, err := Detect("table.xlsx"); err == nil {
		t.Error("expected error for non-document extension")
	}
}

func TestIngestTextAndMarkdown(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "brief.txt")
	md := filepath.Join(dir, "notes.md")
	os.WriteFile(txt, []byte("Critical minerals supply chains face disruption and concentration risk."), 0644)
	os.WriteFile(md, []byte("# Policy note\nDiversification of processing can reduce bottlenecks."), 0644)

	result := Ingest(Config{SourcePaths: []string{txt, md}, ChunkSize: 8, ChunkOverlap: 2})
	if result.Status != "ok" {
		t.Fatalf("status = %q, want ok (failures: %v)", result.Status, result.FailedPaths)
	}
	if result.DocumentCount == 0 {
		t.Fatal("expected documents from txt and md sources")
	}
	for _, doc := range result.Documents {
		if strings.TrimSpace(doc.TextContent) == "" {
			t.Errorf("document %s has blank text", doc.DocID)
		}
		if doc.SourcePath == "" {
			t.Errorf("document %s missing source path", doc.DocID)
		}
	}
	if !strings.HasPrefix(result.Documents[0].DocID, "brief.txt:") {
		t.Errorf("doc id = %q, want basename:index form", result.Documents[0].DocID)
	}
}

func TestIngestMalformedPDFIsIsolated(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "brief.txt")
	bad := filepath.Join(dir, "report.pdf")
	os.WriteFile(good, []byte("usable text content"), 0644)
	os.WriteFile(bad, []byte("not a real pdf"), 0644)

	result := Ingest(Config{SourcePaths: []string{good, bad}})
	if result.Status != "partial" {
		t.Fatalf("status = %q, want partial", result.Status)
	}
	if len(result.FailedPaths) != 1 || result.FailedPaths[0].Path != bad {
		t.Fatalf("failed_paths = %v, want the malformed pdf", result.FailedPaths)
	}
	if result.DocumentCount == 0 {
		t.Fatal("good file should still contribute documents")
	}
}

func TestIngestMissingPath(t *testing.T) {
	result := Ingest(Config{SourcePaths: []string{filepath.Join(t.TempDir(), "gone.txt")}})
	if result.Status != "partial" {
		t.Fatalf("status = %q, want partial", result.Status)
	}
	if len(result.MissingPaths) != 1 {
		t.Fatalf("missing_paths = %v, want one entry", result.MissingPaths)
	}
}

func TestIngestHTML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	content := `<!DOCTYPE html><html><head><title>Doc</title></head><body>
<p>Visible supply chain analysis text.</p>
<div style="display:none">hidden injected text</div>
<script>var x = 1;</script>
</body></html>`
	os.WriteFile(path, []byte(content), 0644)

	result := Ingest(Config{SourcePaths: []string{path}})
	if result.Status != "ok" {
		t.Fatalf("status = %q, want ok (failures: %v)", result.Status, result.FailedPaths)
	}
	all := ""
	for _, doc := range result.Documents {
		all += doc.TextContent + " "
	}
	if !strings.Contains(all, "supply chain analysis") {
		t.Errorf("visible text missing from chunks: %q", all)
	}
	if strings.Contains(all, "hidden injected") {
		t.Errorf("hidden text must be excluded, got %q", all)
	}
	if strings.Contains(all, "var x") {
		t.Errorf("script content must be excluded, got %q", all)
	}
}
