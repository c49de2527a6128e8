package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lodeworks/strata/kgvec"
)

// vectorBatch is the wire shape POSTed to the vector sink. Embedding is
// computed downstream; this core ships text and metadata only.
type vectorBatch struct {
	Collection string      `json:"collection"`
	Records    []vectorRow `json:"records"`
}

type vectorRow struct {
	ID          string `json:"id"`
	TextContent string `json:"text_content"`
	SourcePath  string `json:"source_path"`
	Material    string `json:"material"`
}

// publishVector POSTs vector records to the configured HTTP sink in
// batches. Missing credentials skip the sink; a rejected batch fails the
// run so the caller can retry the whole publish.
func publishVector(ctx context.Context, records []kgvec.VectorRecord, cfg VectorSinkConfig, log *slog.Logger) (bool, error) {
	if !cfg.hasCredentials() {
		log.Info("vector publish skipped: credentials not configured")
		return false, nil
	}
	if len(records) == 0 {
		return false, nil
	}

	client := &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}

	for start := 0; start < len(records); start += cfg.BatchSize {
		end := min(start+cfg.BatchSize, len(records))
		if err := postBatch(ctx, client, cfg, records[start:end]); err != nil {
			return false, err
		}
	}

	log.Info("vector publish complete", "records", len(records), "collection", cfg.Collection)
	return true, nil
}

func postBatch(ctx context.Context, client *http.Client, cfg VectorSinkConfig, records []kgvec.VectorRecord) error {
	rows := make([]vectorRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, vectorRow{
			ID:          record.ID,
			TextContent: record.TextContent,
			SourcePath:  metaString(record.Metadata, "source_path"),
			Material:    metaString(record.Metadata, "material"),
		})
	}

	body, err := json.Marshal(vectorBatch{Collection: cfg.Collection, Records: rows})
	if err != nil {
		return fmt.Errorf("encode vector batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("vector sink request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.Token)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("vector sink post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("vector sink rejected batch of %d: status %d: %s", len(records), resp.StatusCode, detail)
	}
	return nil
}

func metaString(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
