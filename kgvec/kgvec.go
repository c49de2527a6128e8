// Package kgvec projects normalized records and chunked documents into
// graph facts and embedding-ready vector records.
package kgvec

import (
	"strings"

	"github.com/lodeworks/strata/docpipe"
)

// Fact is one graph-loadable subject-predicate-object triple.
type Fact struct {
	SubjectType string         `json:"subject_type"`
	SubjectID   string         `json:"subject_id"`
	Predicate   string         `json:"predicate"`
	ObjectType  string         `json:"object_type"`
	ObjectID    string         `json:"object_id"`
	Properties  map[string]any `json:"properties"`
}

// VectorRecord is one embedding-ready text unit.
type VectorRecord struct {
	ID          string         `json:"id"`
	TextContent string         `json:"text_content"`
	Metadata    map[string]any `json:"metadata"`
}

// FactConfig controls the record-to-fact projection.
type FactConfig struct {
	SubjectField string `yaml:"subject_field" json:"subject_field"`
	ObjectField  string `yaml:"object_field" json:"object_field"`
	Predicate    string `yaml:"predicate" json:"predicate"`
	DefaultStage string `yaml:"default_stage" json:"default_stage"`
}

func (c *FactConfig) defaults() {
	if c.SubjectField == "" {
		c.SubjectField = "material"
	}
	if c.ObjectField == "" {
		c.ObjectField = "country"
	}
	if c.Predicate == "" {
		c.Predicate = "INVOLVES_COUNTRY"
	}
	if c.DefaultStage == "" {
		c.DefaultStage = "supply"
	}
}

// BuildFacts emits one Material-to-Country fact per record carrying both
// the subject and object fields. Records missing either field contribute
// no fact; the second return value counts those drops.
func BuildFacts(records []map[string]any, cfg FactConfig) ([]Fact, int) {
	cfg.defaults()

	facts := make([]Fact, 0, len(records))
	dropped := 0
	for _, rec := range records {
		subject := stringField(rec, cfg.SubjectField)
		object := stringField(rec, cfg.ObjectField)
		if subject == "" || object == "" {
			dropped++
			continue
		}
		stage := stringField(rec, "stage")
		if stage == "" {
			stage = cfg.DefaultStage
		}
		facts = append(facts, Fact{
			SubjectType: "Material",
			SubjectID:   subject,
			Predicate:   cfg.Predicate,
			ObjectType:  "Country",
			ObjectID:    object,
			Properties:  map[string]any{"stage": stage},
		})
	}
	return facts, dropped
}

// BuildVectorRecords wraps chunked documents with source metadata. The
// material label is corpus-wide, supplied by configuration. Blank-text
// chunks are dropped and counted.
func BuildVectorRecords(docs []docpipe.Document, material string) ([]VectorRecord, int) {
	records := make([]VectorRecord, 0, len(docs))
	dropped := 0
	for _, doc := range docs {
		if strings.TrimSpace(doc.TextContent) == "" {
			dropped++
			continue
		}
		records = append(records, VectorRecord{
			ID:          doc.DocID,
			TextContent: doc.TextContent,
			Metadata: map[string]any{
				"source_path": doc.SourcePath,
				"material":    material,
			},
		})
	}
	return records, dropped
}

func stringField(rec map[string]any, field string) string {
	v, ok := rec[field].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}
