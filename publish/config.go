package publish

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config gates the optional live sinks. The zero value publishes files only.
type Config struct {
	Neo4j  Neo4jConfig      `yaml:"neo4j" json:"neo4j"`
	Vector VectorSinkConfig `yaml:"vector" json:"vector"`
}

// Neo4jConfig connects the live graph sink. Credentials fall back to the
// NEO4J_URI / NEO4J_USER / NEO4J_PASSWORD / NEO4J_DATABASE environment
// variables; if any of uri/user/password is still missing the sink is
// skipped, not an error.
type Neo4jConfig struct {
	Enabled        bool   `yaml:"enabled" json:"enabled"`
	URI            string `yaml:"uri" json:"uri"`
	User           string `yaml:"user" json:"user"`
	Password       string `yaml:"password" json:"password"`
	Database       string `yaml:"database" json:"database"`
	BatchSize      int    `yaml:"batch_size" json:"batch_size"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
}

func (c Neo4jConfig) withDefaults() Neo4jConfig {
	if c.URI == "" {
		c.URI = os.Getenv("NEO4J_URI")
	}
	if c.User == "" {
		c.User = os.Getenv("NEO4J_USER")
	}
	if c.Password == "" {
		c.Password = os.Getenv("NEO4J_PASSWORD")
	}
	if c.Database == "" {
		c.Database = os.Getenv("NEO4J_DATABASE")
	}
	if c.Database == "" {
		c.Database = "neo4j"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 5000
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 120
	}
	return c
}

func (c Neo4jConfig) hasCredentials() bool {
	return c.URI != "" && c.User != "" && c.Password != ""
}

// VectorSinkConfig connects the live vector sink, an HTTP endpoint that
// accepts batched JSON records. Credentials fall back to VECTOR_SINK_URL /
// VECTOR_SINK_TOKEN; missing credentials skip the sink.
type VectorSinkConfig struct {
	Enabled        bool   `yaml:"enabled" json:"enabled"`
	URL            string `yaml:"url" json:"url"`
	Token          string `yaml:"token" json:"token"`
	Collection     string `yaml:"collection" json:"collection"`
	BatchSize      int    `yaml:"batch_size" json:"batch_size"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
}

func (c VectorSinkConfig) withDefaults() VectorSinkConfig {
	if c.URL == "" {
		c.URL = os.Getenv("VECTOR_SINK_URL")
	}
	if c.Token == "" {
		c.Token = os.Getenv("VECTOR_SINK_TOKEN")
	}
	if c.Collection == "" {
		c.Collection = "critical_materials_docs"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 128
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 120
	}
	return c
}

func (c VectorSinkConfig) hasCredentials() bool {
	return c.URL != "" && c.Token != ""
}

// LoadConfig reads a publish config from a YAML or JSON file, chosen by
// extension.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publish config %s: %w", path, err)
	}
	cfg := &Config{}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse publish config %s: %w", path, err)
		}
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse publish config %s: %w", path, err)
	}
	return cfg, nil
}
