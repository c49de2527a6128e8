package ingest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lodeworks/strata/kgvec"
)

// Config holds the full ingestion configuration.
type Config struct {
	// SourcePaths are partitioned by extension unless the explicit
	// structured/unstructured overrides are set.
	SourcePaths       []string `yaml:"source_paths" json:"source_paths"`
	StructuredPaths   []string `yaml:"structured_paths" json:"structured_paths"`
	UnstructuredPaths []string `yaml:"unstructured_paths" json:"unstructured_paths"`

	// Material is the corpus-wide commodity label.
	Material string `yaml:"material" json:"material"`

	Structured   StructuredConfig   `yaml:"structured" json:"structured"`
	Unstructured UnstructuredConfig `yaml:"unstructured" json:"unstructured"`
	KG           kgvec.FactConfig   `yaml:"kg" json:"kg"`
	Vector       VectorConfig       `yaml:"vector" json:"vector"`

	Logger *slog.Logger `yaml:"-" json:"-"`
}

// StructuredConfig configures the tabular stage.
type StructuredConfig struct {
	RequiredFields        []string          `yaml:"required_fields" json:"required_fields"`
	FieldAliases          map[string]string `yaml:"field_aliases" json:"field_aliases"`
	DefaultValues         map[string]any    `yaml:"default_values" json:"default_values"`
	IncludeSourceMetadata bool              `yaml:"include_source_metadata" json:"include_source_metadata"`
	KeepFields            []string          `yaml:"keep_fields" json:"keep_fields"`
	XLSXSheetName         string            `yaml:"xlsx_sheet_name" json:"xlsx_sheet_name"`
	Workers               int               `yaml:"workers" json:"workers"`
}

// UnstructuredConfig configures the document stage.
type UnstructuredConfig struct {
	ChunkSize    int `yaml:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`
}

// VectorConfig configures the vector-record stage. Material falls back to
// the top-level label when empty.
type VectorConfig struct {
	Material string `yaml:"material" json:"material"`
}

// LoadConfig reads an ingestion config from a YAML or JSON file, chosen by
// extension.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := &Config{}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return cfg, cfg.Validate()
}

// Validate checks that the config names at least one source.
func (c *Config) Validate() error {
	if len(c.SourcePaths) == 0 && len(c.StructuredPaths) == 0 && len(c.UnstructuredPaths) == 0 {
		return fmt.Errorf("source_paths is required (or structured_paths/unstructured_paths overrides)")
	}
	return nil
}

func (c *Config) vectorMaterial() string {
	if c.Vector.Material != "" {
		return c.Vector.Material
	}
	return c.Material
}
