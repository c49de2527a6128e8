package kgvec

import (
	"testing"

	"github.com/lodeworks/strata/docpipe"
)

func TestBuildFacts(t *testing.T) {
	records := []map[string]any{
		{"material": "graphite", "country": "United States", "stage": "processing"},
		{"material": "lithium", "country": "Chile"},
	}
	facts, dropped := BuildFacts(records, FactConfig{})
	if dropped != 0 {
		t.Fatalf("dropped = %d, want 0", dropped)
	}
	if len(facts) != 2 {
		t.Fatalf("facts = %d, want 2", len(facts))
	}

	f := facts[0]
	if f.SubjectType != "Material" || f.SubjectID != "graphite" {
		t.Errorf("subject = %s/%s, want Material/graphite", f.SubjectType, f.SubjectID)
	}
	if f.Predicate != "INVOLVES_COUNTRY" {
		t.Errorf("predicate = %q, want INVOLVES_COUNTRY", f.Predicate)
	}
	if f.ObjectType != "Country" || f.ObjectID != "United States" {
		t.Errorf("object = %s/%s, want Country/United States", f.ObjectType, f.ObjectID)
	}
	if f.Properties["stage"] != "processing" {
		t.Errorf("stage = %v, want processing", f.Properties["stage"])
	}
	// Default stage fills in where the record has none.
	if facts[1].Properties["stage"] != "supply" {
		t.Errorf("stage = %v, want supply default", facts[1].Properties["stage"])
	}
}

func TestBuildFactsDropsMissingFields(t *testing.T) {
	records := []map[string]any{
		{"material": "cobalt"},
		{"country": "Zambia"},
		{"material": "  ", "country": "Chile"},
		{"material": 42, "country": "Chile"},
	}
	facts, dropped := BuildFacts(records, FactConfig{})
	if len(facts) != 0 {
		t.Fatalf("facts = %v, want none", facts)
	}
	if dropped != 4 {
		t.Errorf("dropped = %d, want 4", dropped)
	}
}

func TestBuildFactsConfigurableFields(t *testing.T) {
	records := []map[string]any{{"commodity": "tin", "origin": "Myanmar"}}
	facts, _ := BuildFacts(records, FactConfig{
		SubjectField: "commodity",
		ObjectField:  "origin",
		Predicate:    "SOURCED_FROM",
		DefaultStage: "extraction",
	})
	if len(facts) != 1 {
		t.Fatalf("facts = %d, want 1", len(facts))
	}
	if facts[0].SubjectID != "tin" || facts[0].ObjectID != "Myanmar" {
		t.Errorf("fact = %+v, want tin SOURCED_FROM Myanmar", facts[0])
	}
	if facts[0].Predicate != "SOURCED_FROM" {
		t.Errorf("predicate = %q, want SOURCED_FROM", facts[0].Predicate)
	}
	if facts[0].Properties["stage"] != "extraction" {
		t.Errorf("stage = %v, want extraction", facts[0].Properties["stage"])
	}
}

func TestBuildVectorRecords(t *testing.T) {
	docs := []docpipe.Document{
		{DocID: "brief.txt:0", SourcePath: "/corpus/brief.txt", TextContent: "supply risk analysis"},
		{DocID: "brief.txt:1", SourcePath: "/corpus/brief.txt", TextContent: "   "},
	}
	records, dropped := BuildVectorRecords(docs, "lithium")
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1 (blank chunk)", dropped)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	r := records[0]
	if r.ID != "brief.txt:0" || r.TextContent != "supply risk analysis" {
		t.Errorf("record = %+v, want the non-blank chunk", r)
	}
	if r.Metadata["source_path"] != "/corpus/brief.txt" || r.Metadata["material"] != "lithium" {
		t.Errorf("metadata = %v, want source_path and material", r.Metadata)
	}
}
