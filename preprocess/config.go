package preprocess

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lodeworks/strata/corpus"
	"github.com/lodeworks/strata/ingest"
	"github.com/lodeworks/strata/kgvec"
	"github.com/lodeworks/strata/normalize"
)

// Config holds the full preprocessing configuration.
type Config struct {
	CorpusRoot   string   `yaml:"corpus_root"`
	OutputDir    string   `yaml:"output_dir"`
	Extensions   []string `yaml:"extensions"`
	SkipDirNames []string `yaml:"skip_dir_names"`

	Deduplication corpus.DedupeConfig `yaml:"deduplication"`
	Preprocess    RulesConfig         `yaml:"preprocess"`
	Normalization normalize.Config    `yaml:"normalization"`
	OCR           OCRConfig           `yaml:"ocr"`
	Outputs       OutputsConfig       `yaml:"outputs"`

	// The remaining sections seed the generated ingestion-ready config.
	Material     string                    `yaml:"material"`
	Ingestion    IngestionDefaults         `yaml:"ingestion"`
	Unstructured ingest.UnstructuredConfig `yaml:"unstructured"`
	KG           kgvec.FactConfig          `yaml:"kg"`
	Vector       ingest.VectorConfig       `yaml:"vector"`

	Logger *slog.Logger `yaml:"-"`
}

// RulesConfig configures structured-source grouping and parsing.
type RulesConfig struct {
	SourceRules         []SourceRule      `yaml:"source_rules"`
	GlobalFieldAliases  map[string]string `yaml:"global_field_aliases"`
	GlobalDefaultValues map[string]any    `yaml:"global_default_values"`
	RequiredFields      []string          `yaml:"required_fields"`
	XLSXSheetName       string            `yaml:"xlsx_sheet_name"`
}

// SourceRule applies extra aliases, defaults, and normalization overrides
// to structured files whose path contains every listed substring
// (case-insensitive). The first matching rule wins.
type SourceRule struct {
	Name          string            `yaml:"name"`
	PathContains  []string          `yaml:"path_contains"`
	FieldAliases  map[string]string `yaml:"field_aliases"`
	DefaultValues map[string]any    `yaml:"default_values"`
	Normalization *normalize.Config `yaml:"normalization"`
}

// OCRConfig tunes the scanned-PDF triage.
type OCRConfig struct {
	ScannedTextThreshold int `yaml:"scanned_text_threshold"`
}

// OutputsConfig overrides artifact paths, relative to the output dir.
type OutputsConfig struct {
	NormalizedStructuredPath string `yaml:"normalized_structured_path"`
	IngestionConfigPath      string `yaml:"ingestion_config_path"`
	PreprocessReportPath     string `yaml:"preprocess_report_path"`
	DuplicateManifestPath    string `yaml:"duplicate_manifest_path"`
	OCRQueuePath             string `yaml:"ocr_queue_path"`
}

// IngestionDefaults shapes the structured section of the generated
// ingestion-ready config.
type IngestionDefaults struct {
	IncludeUnstructured *bool              `yaml:"include_unstructured"`
	Structured          StructuredDefaults `yaml:"structured"`
}

// StructuredDefaults overrides the generated structured stage settings.
// Nil slices and pointers fall back to the built-in defaults.
type StructuredDefaults struct {
	RequiredFields        []string          `yaml:"required_fields"`
	IncludeSourceMetadata *bool             `yaml:"include_source_metadata"`
	KeepFields            []string          `yaml:"keep_fields"`
	FieldAliases          map[string]string `yaml:"field_aliases"`
	DefaultValues         map[string]any    `yaml:"default_values"`
	XLSXSheetName         string            `yaml:"xlsx_sheet_name"`
}

// LoadConfig reads and parses a YAML preprocess config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	if c.CorpusRoot == "" {
		return fmt.Errorf("corpus_root is required")
	}
	switch c.Deduplication.Method {
	case "", corpus.MethodNameSize, corpus.MethodSHA256Size:
	default:
		return fmt.Errorf("deduplication.method %q is not supported (use %s or %s)",
			c.Deduplication.Method, corpus.MethodNameSize, corpus.MethodSHA256Size)
	}
	return nil
}

func (c *Config) scannedTextThreshold() int {
	if c.OCR.ScannedTextThreshold > 0 {
		return c.OCR.ScannedTextThreshold
	}
	return 0 // Triage applies its own default.
}

func (o OutputsConfig) withDefaults() OutputsConfig {
	if o.NormalizedStructuredPath == "" {
		o.NormalizedStructuredPath = "staged/normalized_structured.jsonl"
	}
	if o.IngestionConfigPath == "" {
		o.IngestionConfigPath = "ingestion_ready.yaml"
	}
	if o.PreprocessReportPath == "" {
		o.PreprocessReportPath = "preprocess_report.json"
	}
	if o.DuplicateManifestPath == "" {
		o.DuplicateManifestPath = "duplicates.json"
	}
	if o.OCRQueuePath == "" {
		o.OCRQueuePath = "ocr_queue.txt"
	}
	return o
}
