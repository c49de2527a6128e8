// Package publish turns an ingestion manifest into backend-ready artifacts:
// JSONL interchange files, neo4j bulk-import CSV tables, and optional
// batched pushes to a live graph database and vector sink.
package publish

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lodeworks/strata/ingest"
	"github.com/lodeworks/strata/kgvec"
)

// Report is the publish run summary, persisted as publish_report.json.
type Report struct {
	Status    string    `json:"status"`
	Summary   Summary   `json:"summary"`
	Artifacts Artifacts `json:"artifacts"`
}

// Summary counts what was exported and whether the live sinks ran.
type Summary struct {
	KGFactCount       int  `json:"kg_fact_count"`
	VectorRecordCount int  `json:"vector_record_count"`
	MaterialNodeCount int  `json:"material_node_count"`
	CountryNodeCount  int  `json:"country_node_count"`
	PublishedNeo4j    bool `json:"published_neo4j"`
	PublishedVector   bool `json:"published_vector"`
}

// Artifacts lists the written file paths. The report path is filled on the
// returned report only, after the file itself is written.
type Artifacts struct {
	KGFactsJSONL       string `json:"kg_facts_jsonl"`
	VectorRecordsJSONL string `json:"vector_records_jsonl"`
	Neo4jMaterialsCSV  string `json:"neo4j_materials_csv"`
	Neo4jCountriesCSV  string `json:"neo4j_countries_csv"`
	Neo4jRelationsCSV  string `json:"neo4j_relations_csv"`
	PublishReport      string `json:"publish_report,omitempty"`
}

// LoadManifest reads an ingestion manifest from disk.
func LoadManifest(path string) (*ingest.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	m := &ingest.Manifest{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return m, nil
}

// Run exports the manifest's facts and records under outputDir and pushes
// them to the enabled live sinks. File artifacts are byte-identical across
// runs for the same manifest.
func Run(ctx context.Context, manifestPath, outputDir string, cfg *Config, log *slog.Logger) (*Report, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if log == nil {
		log = slog.Default()
	}

	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	facts := manifest.KG.Facts
	records := manifest.Vector.Records

	neo4jDir := filepath.Join(outputDir, "neo4j")
	if err := os.MkdirAll(neo4jDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	artifacts := Artifacts{
		KGFactsJSONL:       filepath.Join(outputDir, "kg_facts.jsonl"),
		VectorRecordsJSONL: filepath.Join(outputDir, "vector_records.jsonl"),
		Neo4jMaterialsCSV:  filepath.Join(neo4jDir, "materials.csv"),
		Neo4jCountriesCSV:  filepath.Join(neo4jDir, "countries.csv"),
		Neo4jRelationsCSV:  filepath.Join(neo4jDir, "relations.csv"),
	}

	if err := writeFactsJSONL(artifacts.KGFactsJSONL, facts); err != nil {
		return nil, err
	}
	if err := writeRecordsJSONL(artifacts.VectorRecordsJSONL, records); err != nil {
		return nil, err
	}

	tables := buildNeo4jTables(facts)
	if err := writeCSV(artifacts.Neo4jMaterialsCSV, []string{"material_id:ID(Material)", "name"}, tables.materials); err != nil {
		return nil, err
	}
	if err := writeCSV(artifacts.Neo4jCountriesCSV, []string{"country_id:ID(Country)", "name"}, tables.countries); err != nil {
		return nil, err
	}
	if err := writeCSV(artifacts.Neo4jRelationsCSV, []string{":START_ID(Material)", ":END_ID(Country)", ":TYPE", "stage"}, tables.relations); err != nil {
		return nil, err
	}

	publishedNeo4j := false
	if cfg.Neo4j.Enabled {
		publishedNeo4j, err = publishNeo4j(ctx, facts, cfg.Neo4j.withDefaults(), log)
		if err != nil {
			return nil, err
		}
	}
	publishedVector := false
	if cfg.Vector.Enabled {
		publishedVector, err = publishVector(ctx, records, cfg.Vector.withDefaults(), log)
		if err != nil {
			return nil, err
		}
	}

	report := &Report{
		Status: "ok",
		Summary: Summary{
			KGFactCount:       len(facts),
			VectorRecordCount: len(records),
			MaterialNodeCount: len(tables.materials),
			CountryNodeCount:  len(tables.countries),
			PublishedNeo4j:    publishedNeo4j,
			PublishedVector:   publishedVector,
		},
		Artifacts: artifacts,
	}

	reportPath := filepath.Join(outputDir, "publish_report.json")
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode publish report: %w", err)
	}
	if err := os.WriteFile(reportPath, append(data, '\n'), 0644); err != nil {
		return nil, fmt.Errorf("write publish report: %w", err)
	}
	report.Artifacts.PublishReport = reportPath

	log.Info("publish finished",
		"facts", report.Summary.KGFactCount,
		"vector_records", report.Summary.VectorRecordCount,
		"neo4j", publishedNeo4j,
		"vector_sink", publishedVector)
	return report, nil
}

// neo4jTables holds the bulk-import rows in first-seen fact order.
type neo4jTables struct {
	materials [][]string
	countries [][]string
	relations [][]string
}

func buildNeo4jTables(facts []kgvec.Fact) neo4jTables {
	var t neo4jTables
	seenMaterials := map[string]bool{}
	seenCountries := map[string]bool{}

	for _, fact := range facts {
		subject := strings.TrimSpace(fact.SubjectID)
		object := strings.TrimSpace(fact.ObjectID)
		if subject == "" || object == "" {
			continue
		}

		if strings.EqualFold(strings.TrimSpace(fact.SubjectType), "material") && !seenMaterials[subject] {
			seenMaterials[subject] = true
			t.materials = append(t.materials, []string{subject, subject})
		}
		if strings.EqualFold(strings.TrimSpace(fact.ObjectType), "country") && !seenCountries[object] {
			seenCountries[object] = true
			t.countries = append(t.countries, []string{object, object})
		}

		stage := ""
		if s, ok := fact.Properties["stage"].(string); ok {
			stage = s
		}
		t.relations = append(t.relations, []string{subject, object, SanitizeRelType(fact.Predicate), stage})
	}
	return t
}

// SanitizeRelType coerces a predicate into a neo4j relationship type token:
// uppercase, alphanumerics and underscores only. Empty input and input with
// no usable characters both become RELATED_TO.
func SanitizeRelType(value string) string {
	text := strings.TrimSpace(value)
	if text == "" {
		text = "RELATED_TO"
	}
	text = strings.ToUpper(text)
	text = strings.ReplaceAll(text, "-", "_")
	text = strings.ReplaceAll(text, " ", "_")

	var b strings.Builder
	for _, ch := range text {
		if ch == '_' || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			b.WriteRune(ch)
		}
	}
	if b.Len() == 0 {
		return "RELATED_TO"
	}
	return b.String()
}

func writeFactsJSONL(path string, facts []kgvec.Fact) error {
	var b strings.Builder
	for _, fact := range facts {
		line, err := json.Marshal(fact)
		if err != nil {
			return fmt.Errorf("encode fact: %w", err)
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeRecordsJSONL(path string, records []kgvec.VectorRecord) error {
	var b strings.Builder
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("encode vector record: %w", err)
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write %s header: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s rows: %w", path, err)
	}
	w.Flush()
	return w.Error()
}
