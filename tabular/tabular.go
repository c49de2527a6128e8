// Package tabular normalizes structured inputs of differing formats
// (csv, json, jsonl, xlsx) into a common row-shaped record.
//
// Field aliasing, default injection, and required-field filtering run after
// the per-format read. Per-file failures are isolated into the result's
// failure lists; only the file in question contributes zero records.
package tabular

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Record is one parsed tabular row. Provenance keys __source_path and
// __source_type are injected when configured.
type Record = map[string]any

// PathFailure records a per-file parse failure.
type PathFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// ErrCodecUnavailable marks read failures caused by a codec missing from
// this build rather than by the file.
var ErrCodecUnavailable = errors.New("codec unavailable")

// readerFunc reads one file into raw rows.
type readerFunc func(path string, cfg Config) ([]Record, error)

// readers is the static format registry. Every supported extension maps to
// a statically known reader; availability of optional codecs is decided at
// build time (see xlsx_stub.go).
var readers = map[string]readerFunc{
	".csv":   readCSV,
	".json":  readJSON,
	".jsonl": readJSONL,
	".xlsx":  readXLSX,
}

// SupportedExtensions lists the extensions Ingest understands.
func SupportedExtensions() []string {
	return []string{".csv", ".json", ".jsonl", ".xlsx"}
}

// Config controls structured ingestion.
type Config struct {
	SourcePaths []string `yaml:"source_paths" json:"source_paths"`

	// RequiredFields drops any record missing one of these (or holding a
	// blank string there). Drops are counted, not errors.
	RequiredFields []string `yaml:"required_fields" json:"required_fields"`

	// FieldAliases copies alias values to their canonical field when the
	// canonical field is absent. Aliases never overwrite.
	FieldAliases map[string]string `yaml:"field_aliases" json:"field_aliases"`

	// DefaultValues fills fields that are absent or blank strings.
	DefaultValues map[string]any `yaml:"default_values" json:"default_values"`

	// KeepFields, when set, restricts output records to these fields
	// (plus provenance).
	KeepFields []string `yaml:"keep_fields" json:"keep_fields"`

	// IncludeSourceMetadata injects __source_path and __source_type.
	IncludeSourceMetadata bool `yaml:"include_source_metadata" json:"include_source_metadata"`

	// XLSXSheetName selects a single sheet; empty reads every sheet.
	XLSXSheetName string `yaml:"xlsx_sheet_name" json:"xlsx_sheet_name"`

	// Workers bounds concurrent per-file parsing. <= 1 is sequential.
	Workers int `yaml:"workers" json:"workers"`

	Logger *slog.Logger `yaml:"-" json:"-"`
}

func (c *Config) defaults() {
	if c.Workers == 0 {
		c.Workers = min(4, runtime.NumCPU())
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Result is the outcome of ingesting a batch of structured sources.
type Result struct {
	Status               string        `json:"status"` // ok or partial
	Records              []Record      `json:"records"`
	RecordCount          int           `json:"record_count"`
	SkippedRequiredCount int           `json:"skipped_required_count"`
	MissingPaths         []string      `json:"missing_paths"`
	UnsupportedPaths     []string      `json:"unsupported_paths"`
	FailedPaths          []PathFailure `json:"failed_paths"`
	DependencyHints      []string      `json:"dependency_hints,omitempty"`
}

// fileOutcome is the per-path partial result merged after parallel parsing.
type fileOutcome struct {
	records     []Record
	skipped     int
	missing     bool
	unsupported bool
	failure     *PathFailure
	hint        string
}

// Ingest reads every source path and applies the record rules. Ordering of
// output records follows the input path order so artifacts stay
// deterministic regardless of worker scheduling.
func Ingest(cfg Config) *Result {
	cfg.defaults()

	outcomes := make([]fileOutcome, len(cfg.SourcePaths))

	process := func(i int) {
		outcomes[i] = ingestFile(cfg.SourcePaths[i], cfg)
	}

	if cfg.Workers > 1 && len(cfg.SourcePaths) > 1 {
		pool, err := ants.NewPool(cfg.Workers)
		if err == nil {
			defer pool.Release()
			var wg sync.WaitGroup
			for i := range cfg.SourcePaths {
				i := i
				wg.Add(1)
				if submitErr := pool.Submit(func() {
					defer wg.Done()
					process(i)
				}); submitErr != nil {
					wg.Done()
					process(i)
				}
			}
			wg.Wait()
		} else {
			for i := range cfg.SourcePaths {
				process(i)
			}
		}
	} else {
		for i := range cfg.SourcePaths {
			process(i)
		}
	}

	result := &Result{
		Status:           "ok",
		Records:          []Record{},
		MissingPaths:     []string{},
		UnsupportedPaths: []string{},
		FailedPaths:      []PathFailure{},
	}
	seenHints := map[string]bool{}

	for i, out := range outcomes {
		switch {
		case out.missing:
			result.MissingPaths = append(result.MissingPaths, cfg.SourcePaths[i])
		case out.unsupported:
			result.UnsupportedPaths = append(result.UnsupportedPaths, cfg.SourcePaths[i])
		case out.failure != nil:
			cfg.Logger.Warn("structured parse failed", "path", out.failure.Path, "error", out.failure.Error)
			result.FailedPaths = append(result.FailedPaths, *out.failure)
			if out.hint != "" && !seenHints[out.hint] {
				seenHints[out.hint] = true
				result.DependencyHints = append(result.DependencyHints, out.hint)
			}
		default:
			result.Records = append(result.Records, out.records...)
			result.SkippedRequiredCount += out.skipped
		}
	}

	result.RecordCount = len(result.Records)
	if len(result.MissingPaths) > 0 || len(result.UnsupportedPaths) > 0 || len(result.FailedPaths) > 0 {
		result.Status = "partial"
	}
	return result
}

func ingestFile(path string, cfg Config) fileOutcome {
	if _, err := os.Stat(path); err != nil {
		return fileOutcome{missing: true}
	}

	ext := strings.ToLower(filepath.Ext(path))
	read, ok := readers[ext]
	if !ok {
		return fileOutcome{unsupported: true}
	}

	rows, err := read(path, cfg)
	if err != nil {
		out := fileOutcome{failure: &PathFailure{Path: path, Error: err.Error()}}
		if errors.Is(err, ErrCodecUnavailable) {
			out.hint = err.Error()
		}
		return out
	}

	var out fileOutcome
	for _, row := range rows {
		record, dropReason := applyRecordRules(row, cfg)
		if dropReason != "" {
			out.skipped++
			continue
		}
		if cfg.IncludeSourceMetadata {
			record["__source_path"] = path
			record["__source_type"] = strings.TrimPrefix(ext, ".")
		}
		out.records = append(out.records, record)
	}
	return out
}

// applyRecordRules runs aliasing, default injection, required filtering, and
// field restriction. A non-empty drop reason means the record is excluded;
// this is a validation drop, not an error.
func applyRecordRules(row Record, cfg Config) (Record, string) {
	record := make(Record, len(row))
	for k, v := range row {
		record[k] = v
	}

	for alias, canonical := range cfg.FieldAliases {
		value, haveAlias := record[alias]
		if !haveAlias {
			continue
		}
		if _, haveCanonical := record[canonical]; !haveCanonical {
			record[canonical] = value
		}
	}

	for field, def := range cfg.DefaultValues {
		if isAbsentOrBlank(record, field) {
			record[field] = def
		}
	}

	for _, field := range cfg.RequiredFields {
		if isAbsentOrBlank(record, field) {
			return nil, fmt.Sprintf("missing required field %q", field)
		}
	}

	if len(cfg.KeepFields) > 0 {
		kept := make(Record, len(cfg.KeepFields))
		for _, field := range cfg.KeepFields {
			if v, ok := record[field]; ok {
				kept[field] = v
			}
		}
		record = kept
	}

	return record, ""
}

func isAbsentOrBlank(record Record, field string) bool {
	v, ok := record[field]
	if !ok || v == nil {
		return true
	}
	if s, isString := v.(string); isString {
		return strings.TrimSpace(s) == ""
	}
	return false
}
