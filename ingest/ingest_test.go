package ingest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPartitionByExtension(t *testing.T) {
	cfg := &Config{SourcePaths: []string{
		"/c/a.csv", "/c/b.jsonl", "/c/c.xlsx",
		"/c/d.txt", "/c/e.pdf", "/c/f.html",
		"/c/g.docx",
	}}
	structured, unstructured, unknown := Partition(cfg)
	if len(structured) != 3 {
		t.Errorf("structured = %v, want 3 tabular paths", structured)
	}
	if len(unstructured) != 3 {
		t.Errorf("unstructured = %v, want 3 document paths", unstructured)
	}
	if len(unknown) != 1 || unknown[0] != "/c/g.docx" {
		t.Errorf("unknown = %v, want the docx", unknown)
	}
}

func TestPartitionOverrides(t *testing.T) {
	cfg := &Config{
		SourcePaths:       []string{"/c/a.csv", "/c/b.txt", "/c/stray.csv"},
		StructuredPaths:   []string{"/c/a.csv"},
		UnstructuredPaths: []string{"/c/b.txt"},
	}
	structured, unstructured, unknown := Partition(cfg)
	if len(structured) != 1 || structured[0] != "/c/a.csv" {
		t.Errorf("structured = %v, want override list", structured)
	}
	if len(unstructured) != 1 || unstructured[0] != "/c/b.txt" {
		t.Errorf("unstructured = %v, want override list", unstructured)
	}
	// A source path covered by neither override is unknown, not guessed.
	if len(unknown) != 1 || unknown[0] != "/c/stray.csv" {
		t.Errorf("unknown = %v, want the stray csv", unknown)
	}
}

func TestRunMixedCorpusScenario(t *testing.T) {
	dir := t.TempDir()
	csv := writeFile(t, dir, "flows.csv", "material,country,stage\ngraphite,USA,processing\n")
	badXLSX := writeFile(t, dir, "broken.xlsx", "not a zip archive")
	badPDF := writeFile(t, dir, "broken.pdf", "not a real pdf")

	m := Run(&Config{SourcePaths: []string{csv, badXLSX, badPDF}, Material: "graphite"})

	if m.Status != "partial" {
		t.Fatalf("status = %q, want partial", m.Status)
	}
	if m.Summary.StructuredRecordCount != 1 {
		t.Errorf("structured_record_count = %d, want 1", m.Summary.StructuredRecordCount)
	}
	if len(m.Structured.FailedPaths) != 1 || m.Structured.FailedPaths[0].Path != badXLSX {
		t.Errorf("structured failed_paths = %v, want the xlsx", m.Structured.FailedPaths)
	}
	if len(m.Unstructured.FailedPaths) != 1 || m.Unstructured.FailedPaths[0].Path != badPDF {
		t.Errorf("unstructured failed_paths = %v, want the pdf", m.Unstructured.FailedPaths)
	}
	if m.Summary.KGFactCount != 1 {
		t.Errorf("kg_fact_count = %d, want 1", m.Summary.KGFactCount)
	}
	fact := m.KG.Facts[0]
	if fact.SubjectID != "graphite" || fact.ObjectID != "USA" || fact.Properties["stage"] != "processing" {
		t.Errorf("fact = %+v, want graphite INVOLVES_COUNTRY USA at processing", fact)
	}
	if m.RunID == "" {
		t.Error("run_id must be set")
	}
}

func TestRunCleanCorpusIsOK(t *testing.T) {
	dir := t.TempDir()
	csv := writeFile(t, dir, "flows.csv", "material,country\nlithium,Chile\n")
	txt := writeFile(t, dir, "brief.txt", "Lithium refining is geographically concentrated.")

	m := Run(&Config{SourcePaths: []string{csv, txt}, Material: "lithium"})
	if m.Status != "ok" {
		t.Fatalf("status = %q, want ok", m.Status)
	}
	if m.Summary.DocumentCount == 0 || m.Summary.VectorRecordCount == 0 {
		t.Errorf("summary = %+v, want documents and vector records", m.Summary)
	}
	if got := m.Vector.Records[0].Metadata["material"]; got != "lithium" {
		t.Errorf("vector material = %v, want lithium", got)
	}
}

func TestRunUnknownPathDegradesStatus(t *testing.T) {
	dir := t.TempDir()
	csv := writeFile(t, dir, "flows.csv", "material,country\ntin,Peru\n")
	odd := writeFile(t, dir, "slide.pptx", "x")

	m := Run(&Config{SourcePaths: []string{csv, odd}})
	if m.Status != "partial" {
		t.Fatalf("status = %q, want partial", m.Status)
	}
	if len(m.Summary.UnknownPaths) != 1 || m.Summary.UnknownPaths[0] != odd {
		t.Errorf("unknown_paths = %v, want the pptx", m.Summary.UnknownPaths)
	}
}

func TestLoadConfigYAMLAndJSON(t *testing.T) {
	dir := t.TempDir()
	yamlPath := writeFile(t, dir, "ingest.yaml", `
source_paths:
  - /corpus/a.csv
material: cobalt
structured:
  required_fields: [material, country]
  include_source_metadata: true
unstructured:
  chunk_size: 120
  chunk_overlap: 20
kg:
  predicate: SOURCED_FROM
`)
	cfg, err := LoadConfig(yamlPath)
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	if cfg.Material != "cobalt" || cfg.Unstructured.ChunkSize != 120 {
		t.Errorf("cfg = %+v, want parsed yaml values", cfg)
	}
	if cfg.KG.Predicate != "SOURCED_FROM" {
		t.Errorf("predicate = %q, want SOURCED_FROM", cfg.KG.Predicate)
	}

	jsonPath := writeFile(t, dir, "ingest.json", `{"source_paths":["/corpus/a.csv"],"material":"tin"}`)
	cfg, err = LoadConfig(jsonPath)
	if err != nil {
		t.Fatalf("load json: %v", err)
	}
	if cfg.Material != "tin" {
		t.Errorf("material = %q, want tin", cfg.Material)
	}
}

func TestLoadConfigRejectsEmptySources(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.yaml", "material: tin\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error for missing source_paths")
	}
}

func TestRunWorkflowPersistsManifest(t *testing.T) {
	dir := t.TempDir()
	csv := writeFile(t, dir, "flows.csv", "material,country\nnickel,Indonesia\n")
	out := filepath.Join(dir, "out", "ingestion_manifest.json")

	m, err := RunWorkflow(&Config{SourcePaths: []string{csv}}, out)
	if err != nil {
		t.Fatalf("RunWorkflow: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
	var onDisk Manifest
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("manifest not valid json: %v", err)
	}
	if onDisk.RunID != m.RunID || onDisk.Status != m.Status {
		t.Errorf("persisted manifest %+v differs from returned %+v", onDisk, m)
	}
	if onDisk.Summary.StructuredRecordCount != 1 {
		t.Errorf("structured_record_count = %d, want 1", onDisk.Summary.StructuredRecordCount)
	}
}
