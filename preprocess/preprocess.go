// Package preprocess audits a corpus tree ahead of ingestion: discover and
// deduplicate sources, parse and normalize the structured files, triage
// PDFs for OCR, and emit an ingestion-ready config plus a review report.
package preprocess

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lodeworks/strata/corpus"
	"github.com/lodeworks/strata/docpipe"
	"github.com/lodeworks/strata/normalize"
	"github.com/lodeworks/strata/tabular"
)

// Report is the preprocess run summary, persisted as preprocess_report.json.
type Report struct {
	Status     string    `json:"status"` // ok or partial
	CorpusRoot string    `json:"corpus_root"`
	Summary    Summary   `json:"summary"`
	Artifacts  Artifacts `json:"artifacts"`
	Preprocess Details   `json:"preprocess"`
}

// Summary aggregates the counts reviewers check first.
type Summary struct {
	DiscoveredPathCount        int `json:"discovered_path_count"`
	SelectedPathCount          int `json:"selected_path_count"`
	StructuredPathCount        int `json:"structured_path_count"`
	UnstructuredPathCount      int `json:"unstructured_path_count"`
	DuplicateGroupCount        int `json:"duplicate_group_count"`
	NormalizedRecordCount      int `json:"normalized_record_count"`
	TextReadyUnstructuredCount int `json:"text_ready_unstructured_count"`
	OCRQueueCount              int `json:"ocr_queue_count"`
}

// Artifacts lists the absolute paths of everything the run wrote. The
// report path is filled on the returned report only, after the file on
// disk is written.
type Artifacts struct {
	NormalizedStructuredPath string `json:"normalized_structured_path"`
	IngestionConfigPath      string `json:"ingestion_config_path"`
	OCRQueuePath             string `json:"ocr_queue_path"`
	DuplicateManifestPath    string `json:"duplicate_manifest_path"`
	PreprocessReportPath     string `json:"preprocess_report_path,omitempty"`
}

// Details carries the per-path outcomes needing operator review.
type Details struct {
	OCRQueue               []docpipe.OCRQueueEntry `json:"ocr_queue"`
	StructuredFailures     []tabular.PathFailure   `json:"structured_failures"`
	UnstructuredFailures   []docpipe.PathFailure   `json:"unstructured_failures"`
	DuplicateGroupsPreview []DuplicatePreview      `json:"duplicate_groups_preview,omitempty"`
}

// DuplicatePreview is a compact view of one duplicate group for quick
// review; paths are relative to the corpus root.
type DuplicatePreview struct {
	Selected     string `json:"selected"`
	DroppedCount int    `json:"dropped_count"`
}

// ruleGroup collects the structured paths handled by one source rule, in
// first-seen order so output stays deterministic.
type ruleGroup struct {
	rule  *SourceRule // nil for the default group
	paths []string
}

// Run executes the preprocess workflow and writes all artifacts under
// outputDir. A missing corpus root is fatal; per-file problems are
// reported, never raised.
func Run(cfg *Config, outputDir string) (*Report, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	log := cfg.Logger

	corpusRoot, err := filepath.Abs(cfg.CorpusRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve corpus root: %w", err)
	}
	if outputDir == "" {
		outputDir = cfg.OutputDir
	}
	if outputDir == "" {
		outputDir = filepath.Join("tmp", "corpus_preprocess")
	}
	outputDir, err = filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	discovered, err := corpus.Discover(corpusRoot, corpus.DiscoverConfig{
		Extensions:   cfg.Extensions,
		SkipDirNames: cfg.SkipDirNames,
	})
	if err != nil {
		return nil, err
	}

	deduped, err := corpus.Deduplicate(discovered, cfg.Deduplication)
	if err != nil {
		return nil, err
	}
	log.Info("corpus discovered",
		"discovered", len(discovered),
		"selected", len(deduped.SelectedPaths),
		"duplicate_groups", len(deduped.Groups))

	structuredPaths, unstructuredPaths := splitByKind(deduped.SelectedPaths)

	records, structuredFailures := ingestStructured(cfg, structuredPaths, log)

	triage := docpipe.Triage(unstructuredPaths, cfg.scannedTextThreshold())

	outputs := cfg.Outputs.withDefaults()
	artifacts := Artifacts{
		NormalizedStructuredPath: filepath.Join(outputDir, outputs.NormalizedStructuredPath),
		IngestionConfigPath:      filepath.Join(outputDir, outputs.IngestionConfigPath),
		OCRQueuePath:             filepath.Join(outputDir, outputs.OCRQueuePath),
		DuplicateManifestPath:    filepath.Join(outputDir, outputs.DuplicateManifestPath),
	}

	if err := writeJSONL(artifacts.NormalizedStructuredPath, records); err != nil {
		return nil, err
	}
	readyCfg := buildIngestionReadyConfig(cfg, artifacts.NormalizedStructuredPath, triage.TextReady)
	if err := writeYAML(artifacts.IngestionConfigPath, readyCfg); err != nil {
		return nil, err
	}
	if err := writeOCRQueue(artifacts.OCRQueuePath, triage.OCRQueue); err != nil {
		return nil, err
	}
	if err := writeJSON(artifacts.DuplicateManifestPath, deduped.Groups); err != nil {
		return nil, err
	}

	status := "ok"
	if len(structuredFailures) > 0 || len(triage.Failures) > 0 {
		status = "partial"
	}

	report := &Report{
		Status:     status,
		CorpusRoot: corpusRoot,
		Summary: Summary{
			DiscoveredPathCount:        len(discovered),
			SelectedPathCount:          len(deduped.SelectedPaths),
			StructuredPathCount:        len(structuredPaths),
			UnstructuredPathCount:      len(unstructuredPaths),
			DuplicateGroupCount:        len(deduped.Groups),
			NormalizedRecordCount:      len(records),
			TextReadyUnstructuredCount: len(triage.TextReady),
			OCRQueueCount:              len(triage.OCRQueue),
		},
		Artifacts: artifacts,
		Preprocess: Details{
			OCRQueue:             triage.OCRQueue,
			StructuredFailures:   structuredFailures,
			UnstructuredFailures: triage.Failures,
		},
	}

	reportPath := filepath.Join(outputDir, outputs.PreprocessReportPath)
	if err := writeJSON(reportPath, report); err != nil {
		return nil, err
	}
	report.Artifacts.PreprocessReportPath = reportPath
	report.Preprocess.DuplicateGroupsPreview = duplicatePreview(deduped.Groups, corpusRoot)

	log.Info("preprocess finished",
		"status", report.Status,
		"records", report.Summary.NormalizedRecordCount,
		"text_ready", report.Summary.TextReadyUnstructuredCount,
		"ocr_queue", report.Summary.OCRQueueCount)
	return report, nil
}

func splitByKind(paths []string) (structured, unstructured []string) {
	structuredExts := map[string]bool{}
	for _, ext := range tabular.SupportedExtensions() {
		structuredExts[ext] = true
	}
	unstructuredExts := map[string]bool{}
	for _, ext := range docpipe.SupportedExtensions() {
		unstructuredExts[ext] = true
	}
	for _, p := range paths {
		ext := strings.ToLower(filepath.Ext(p))
		switch {
		case structuredExts[ext]:
			structured = append(structured, p)
		case unstructuredExts[ext]:
			unstructured = append(unstructured, p)
		}
	}
	return structured, unstructured
}

// matchSourceRule returns the first rule whose path_contains substrings all
// appear in the path. Rules with no substrings never match.
func matchSourceRule(path string, rules []SourceRule) *SourceRule {
	lower := strings.ToLower(path)
	for i := range rules {
		tokens := rules[i].PathContains
		if len(tokens) == 0 {
			continue
		}
		all := true
		for _, token := range tokens {
			if !strings.Contains(lower, strings.ToLower(token)) {
				all = false
				break
			}
		}
		if all {
			return &rules[i]
		}
	}
	return nil
}

// ingestStructured parses the structured paths grouped by source rule and
// normalizes every record with the rule's table layer.
func ingestStructured(cfg *Config, paths []string, log *slog.Logger) ([]map[string]any, []tabular.PathFailure) {
	var groups []*ruleGroup
	index := map[*SourceRule]*ruleGroup{}
	for _, path := range paths {
		rule := matchSourceRule(path, cfg.Preprocess.SourceRules)
		g, ok := index[rule]
		if !ok {
			g = &ruleGroup{rule: rule}
			index[rule] = g
			groups = append(groups, g)
		}
		g.paths = append(g.paths, path)
	}

	records := []map[string]any{}
	failures := []tabular.PathFailure{}
	for _, g := range groups {
		aliases := map[string]string{}
		defaults := map[string]any{}
		for k, v := range cfg.Preprocess.GlobalFieldAliases {
			aliases[k] = v
		}
		for k, v := range cfg.Preprocess.GlobalDefaultValues {
			defaults[k] = v
		}
		var ruleNorm *normalize.Config
		if g.rule != nil {
			for k, v := range g.rule.FieldAliases {
				aliases[k] = v
			}
			for k, v := range g.rule.DefaultValues {
				defaults[k] = v
			}
			ruleNorm = g.rule.Normalization
		}

		ingested := tabular.Ingest(tabular.Config{
			SourcePaths:           g.paths,
			RequiredFields:        cfg.Preprocess.RequiredFields,
			FieldAliases:          aliases,
			DefaultValues:         defaults,
			IncludeSourceMetadata: true,
			XLSXSheetName:         cfg.Preprocess.XLSXSheetName,
			Logger:                log,
		})
		failures = append(failures, ingested.FailedPaths...)

		tables := normalize.ResolveTables(cfg.Normalization, ruleNorm)
		for _, record := range ingested.Records {
			normalize.Record(record, tables)
			records = append(records, record)
		}
	}
	return records, failures
}

// ingestionReadyConfig is the generated ingest config. Field order is the
// on-disk YAML order.
type ingestionReadyConfig struct {
	SourcePaths         []string             `yaml:"source_paths"`
	StructuredPaths     []string             `yaml:"structured_paths"`
	UnstructuredPaths   []string             `yaml:"unstructured_paths"`
	IncludeUnstructured bool                 `yaml:"include_unstructured"`
	Material            string               `yaml:"material"`
	Structured          readyStructured      `yaml:"structured"`
	Unstructured        map[string]int       `yaml:"unstructured"`
	KG                  map[string]string    `yaml:"kg"`
	Vector              map[string]string    `yaml:"vector"`
}

type readyStructured struct {
	RequiredFields        []string          `yaml:"required_fields"`
	IncludeSourceMetadata bool              `yaml:"include_source_metadata"`
	KeepFields            []string          `yaml:"keep_fields,omitempty"`
	FieldAliases          map[string]string `yaml:"field_aliases,omitempty"`
	DefaultValues         map[string]any    `yaml:"default_values,omitempty"`
	XLSXSheetName         string            `yaml:"xlsx_sheet_name,omitempty"`
}

func buildIngestionReadyConfig(cfg *Config, normalizedPath string, textReady []string) ingestionReadyConfig {
	includeUnstructured := cfg.Ingestion.IncludeUnstructured == nil || *cfg.Ingestion.IncludeUnstructured

	overrides := cfg.Ingestion.Structured
	requiredFields := overrides.RequiredFields
	if requiredFields == nil {
		requiredFields = []string{"material", "country"}
	}
	includeSourceMetadata := overrides.IncludeSourceMetadata == nil || *overrides.IncludeSourceMetadata
	keepFields := overrides.KeepFields
	if keepFields == nil {
		keepFields = []string{"material", "country", "stage"}
	}

	material := cfg.Material
	if material == "" {
		material = "unspecified"
	}

	sourcePaths := []string{normalizedPath}
	unstructuredPaths := []string{}
	if includeUnstructured {
		unstructuredPaths = append(unstructuredPaths, textReady...)
		sourcePaths = append(sourcePaths, textReady...)
	}

	chunkSize, chunkOverlap := cfg.Unstructured.ChunkSize, cfg.Unstructured.ChunkOverlap
	if chunkSize == 0 {
		chunkSize = 180
	}
	if chunkOverlap == 0 {
		chunkOverlap = 30
	}

	kg := map[string]string{}
	if cfg.KG.SubjectField != "" {
		kg["subject_field"] = cfg.KG.SubjectField
	}
	if cfg.KG.ObjectField != "" {
		kg["object_field"] = cfg.KG.ObjectField
	}
	if cfg.KG.Predicate != "" {
		kg["predicate"] = cfg.KG.Predicate
	}
	if cfg.KG.DefaultStage != "" {
		kg["default_stage"] = cfg.KG.DefaultStage
	}

	vectorMaterial := cfg.Vector.Material
	if vectorMaterial == "" {
		vectorMaterial = material
	}

	return ingestionReadyConfig{
		SourcePaths:         sourcePaths,
		StructuredPaths:     []string{normalizedPath},
		UnstructuredPaths:   unstructuredPaths,
		IncludeUnstructured: includeUnstructured,
		Material:            material,
		Structured: readyStructured{
			RequiredFields:        requiredFields,
			IncludeSourceMetadata: includeSourceMetadata,
			KeepFields:            keepFields,
			FieldAliases:          overrides.FieldAliases,
			DefaultValues:         overrides.DefaultValues,
			XLSXSheetName:         overrides.XLSXSheetName,
		},
		Unstructured: map[string]int{"chunk_size": chunkSize, "chunk_overlap": chunkOverlap},
		KG:           kg,
		Vector:       map[string]string{"material": vectorMaterial},
	}
}

func duplicatePreview(groups []corpus.DuplicateGroup, root string) []DuplicatePreview {
	limit := len(groups)
	if limit > 25 {
		limit = 25
	}
	preview := make([]DuplicatePreview, 0, limit)
	for _, g := range groups[:limit] {
		preview = append(preview, DuplicatePreview{
			Selected:     safeRelpath(g.Selected, root),
			DroppedCount: len(g.Dropped),
		})
	}
	return preview
}

func safeRelpath(path, root string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

func writeJSONL(path string, records []map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	var b strings.Builder
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeYAML(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeOCRQueue(path string, queue []docpipe.OCRQueueEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	var b strings.Builder
	for _, entry := range queue {
		b.WriteString(entry.Path)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
