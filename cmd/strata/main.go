// Command strata runs the commodity supply-chain corpus pipeline:
// preprocess audits a corpus tree into ingestion-ready artifacts, ingest
// builds the knowledge-graph/vector manifest, and publish exports it to
// backend-ready files and optional live sinks.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/lodeworks/strata/ingest"
	"github.com/lodeworks/strata/ledger"
	"github.com/lodeworks/strata/preprocess"
	"github.com/lodeworks/strata/publish"
)

const usage = `usage: strata <command> [flags]

commands:
  preprocess   audit a corpus tree and emit ingestion-ready artifacts
  ingest       run the ingestion pipeline and write the manifest
  publish      export a manifest to backend-ready artifacts and live sinks
`

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "preprocess":
		err = runPreprocess(os.Args[2:])
	case "ingest":
		err = runIngest(os.Args[2:])
	case "publish":
		err = runPublish(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("run failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func runPreprocess(args []string) error {
	fs := flag.NewFlagSet("preprocess", flag.ExitOnError)
	configPath := fs.String("config", "", "preprocess config file (YAML)")
	outputDir := fs.String("output-dir", "", "directory for generated artifacts")
	ledgerPath := fs.String("ledger", "", "optional run-ledger SQLite database")
	fs.Parse(args)

	if *configPath == "" {
		return fmt.Errorf("--config is required")
	}
	cfg, err := preprocess.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	report, err := preprocess.Run(cfg, *outputDir)
	if err != nil {
		return err
	}

	ledger.Record(*ledgerPath, "", "preprocess", report.Status, map[string]int{
		"discovered":         report.Summary.DiscoveredPathCount,
		"selected":           report.Summary.SelectedPathCount,
		"normalized_records": report.Summary.NormalizedRecordCount,
		"ocr_queue":          report.Summary.OCRQueueCount,
	}, nil)

	return printJSON(report)
}

func runIngest(args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", "", "ingestion config file (YAML or JSON)")
	outputPath := fs.String("output", "ingestion_manifest.json", "manifest output path")
	ledgerPath := fs.String("ledger", "", "optional run-ledger SQLite database")
	fs.Parse(args)

	if *configPath == "" {
		return fmt.Errorf("--config is required")
	}
	cfg, err := ingest.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	manifest, err := ingest.RunWorkflow(cfg, *outputPath)
	if err != nil {
		return err
	}

	ledger.Record(*ledgerPath, manifest.RunID, "ingest", manifest.Status, map[string]int{
		"structured_records": manifest.Summary.StructuredRecordCount,
		"documents":          manifest.Summary.DocumentCount,
		"kg_facts":           manifest.Summary.KGFactCount,
		"vector_records":     manifest.Summary.VectorRecordCount,
	}, nil)

	return printJSON(struct {
		RunID   string         `json:"run_id"`
		Status  string         `json:"status"`
		Summary ingest.Summary `json:"summary"`
		Output  string         `json:"output"`
	}{manifest.RunID, manifest.Status, manifest.Summary, *outputPath})
}

func runPublish(args []string) error {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	manifestPath := fs.String("manifest", "", "ingestion manifest to publish")
	outputDir := fs.String("output-dir", "publish_out", "directory for published artifacts")
	publishConfig := fs.String("publish-config", "", "optional live-sink config (YAML or JSON)")
	ledgerPath := fs.String("ledger", "", "optional run-ledger SQLite database")
	fs.Parse(args)

	if *manifestPath == "" {
		return fmt.Errorf("--manifest is required")
	}
	var cfg *publish.Config
	if *publishConfig != "" {
		loaded, err := publish.LoadConfig(*publishConfig)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	report, err := publish.Run(context.Background(), *manifestPath, *outputDir, cfg, nil)
	if err != nil {
		return err
	}

	ledger.Record(*ledgerPath, "", "publish", report.Status, map[string]int{
		"kg_facts":       report.Summary.KGFactCount,
		"vector_records": report.Summary.VectorRecordCount,
		"materials":      report.Summary.MaterialNodeCount,
		"countries":      report.Summary.CountryNodeCount,
	}, nil)

	return printJSON(report)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
