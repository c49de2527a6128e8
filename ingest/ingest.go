// Package ingest drives one pipeline run: partition sources, parse both
// branches, build graph facts and vector records, and assemble the
// ingestion manifest that downstream loaders consume.
package ingest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/lodeworks/strata/docpipe"
	"github.com/lodeworks/strata/kgvec"
	"github.com/lodeworks/strata/tabular"
)

// Manifest is the complete record of one ingestion run. It is the durable
// contract with downstream graph/vector loaders.
type Manifest struct {
	RunID        string          `json:"run_id"`
	Status       string          `json:"status"` // ok or partial
	Summary      Summary         `json:"summary"`
	Structured   *tabular.Result `json:"structured"`
	Unstructured *docpipe.Result `json:"unstructured"`
	KG           KGSection       `json:"kg"`
	Vector       VectorSection   `json:"vector"`
}

// Summary aggregates the per-stage counts callers check first.
type Summary struct {
	StructuredRecordCount int      `json:"structured_record_count"`
	DocumentCount         int      `json:"document_count"`
	KGFactCount           int      `json:"kg_fact_count"`
	VectorRecordCount     int      `json:"vector_record_count"`
	UnknownPaths          []string `json:"unknown_paths"`
}

// KGSection carries the built facts plus drop accounting.
type KGSection struct {
	Facts        []kgvec.Fact `json:"facts"`
	FactCount    int          `json:"fact_count"`
	DroppedCount int          `json:"dropped_count"`
}

// VectorSection carries the built vector records plus drop accounting.
type VectorSection struct {
	Records      []kgvec.VectorRecord `json:"records"`
	RecordCount  int                  `json:"record_count"`
	DroppedCount int                  `json:"dropped_count"`
}

// Partition splits the configured sources into structured, unstructured,
// and unknown path lists. Explicit overrides win: when either override
// list is set, source_paths entries appearing in neither are unknown.
func Partition(cfg *Config) (structured, unstructured, unknown []string) {
	if len(cfg.StructuredPaths) > 0 || len(cfg.UnstructuredPaths) > 0 {
		assigned := map[string]bool{}
		for _, p := range cfg.StructuredPaths {
			assigned[p] = true
		}
		for _, p := range cfg.UnstructuredPaths {
			assigned[p] = true
		}
		for _, p := range cfg.SourcePaths {
			if !assigned[p] {
				unknown = append(unknown, p)
			}
		}
		return cfg.StructuredPaths, cfg.UnstructuredPaths, unknown
	}

	structuredExts := map[string]bool{}
	for _, ext := range tabular.SupportedExtensions() {
		structuredExts[ext] = true
	}
	unstructuredExts := map[string]bool{}
	for _, ext := range docpipe.SupportedExtensions() {
		unstructuredExts[ext] = true
	}

	for _, p := range cfg.SourcePaths {
		ext := strings.ToLower(filepath.Ext(p))
		switch {
		case structuredExts[ext]:
			structured = append(structured, p)
		case unstructuredExts[ext]:
			unstructured = append(unstructured, p)
		default:
			unknown = append(unknown, p)
		}
	}
	return structured, unstructured, unknown
}

// Run executes the full ingestion pipeline and returns the manifest. Per-file
// failures surface in the stage results; Run itself only degrades status.
func Run(cfg *Config) *Manifest {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	log := cfg.Logger

	structuredPaths, unstructuredPaths, unknown := Partition(cfg)
	if unknown == nil {
		unknown = []string{}
	}
	log.Info("ingest run starting",
		"structured", len(structuredPaths),
		"unstructured", len(unstructuredPaths),
		"unknown", len(unknown))

	structured := tabular.Ingest(tabular.Config{
		SourcePaths:           structuredPaths,
		RequiredFields:        cfg.Structured.RequiredFields,
		FieldAliases:          cfg.Structured.FieldAliases,
		DefaultValues:         cfg.Structured.DefaultValues,
		KeepFields:            cfg.Structured.KeepFields,
		IncludeSourceMetadata: cfg.Structured.IncludeSourceMetadata,
		XLSXSheetName:         cfg.Structured.XLSXSheetName,
		Workers:               cfg.Structured.Workers,
		Logger:                log,
	})

	unstructured := docpipe.Ingest(docpipe.Config{
		SourcePaths:  unstructuredPaths,
		ChunkSize:    cfg.Unstructured.ChunkSize,
		ChunkOverlap: cfg.Unstructured.ChunkOverlap,
		Logger:       log,
	})

	facts, factsDropped := kgvec.BuildFacts(structured.Records, cfg.KG)
	vectors, vectorsDropped := kgvec.BuildVectorRecords(unstructured.Documents, cfg.vectorMaterial())

	status := "ok"
	if structured.Status != "ok" || unstructured.Status != "ok" || len(unknown) > 0 {
		status = "partial"
	}

	m := &Manifest{
		RunID:  uuid.NewString(),
		Status: status,
		Summary: Summary{
			StructuredRecordCount: structured.RecordCount,
			DocumentCount:         unstructured.DocumentCount,
			KGFactCount:           len(facts),
			VectorRecordCount:     len(vectors),
			UnknownPaths:          unknown,
		},
		Structured:   structured,
		Unstructured: unstructured,
		KG:           KGSection{Facts: facts, FactCount: len(facts), DroppedCount: factsDropped},
		Vector:       VectorSection{Records: vectors, RecordCount: len(vectors), DroppedCount: vectorsDropped},
	}
	log.Info("ingest run finished",
		"run_id", m.RunID,
		"status", m.Status,
		"records", m.Summary.StructuredRecordCount,
		"documents", m.Summary.DocumentCount,
		"facts", m.Summary.KGFactCount)
	return m
}

// RunWorkflow runs the pipeline and persists the manifest as indented JSON
// at outputPath, creating parent directories as needed.
func RunWorkflow(cfg *Config, outputPath string) (*Manifest, error) {
	m := Run(cfg)
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, append(data, '\n'), 0644); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	return m, nil
}
