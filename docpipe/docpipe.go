// Package docpipe turns unstructured sources (txt, md, pdf, html) into
// overlapping word-count chunks ready for embedding.
//
// Per-file failures are isolated: a malformed file or an unavailable codec
// is captured as a (path, error) pair and the batch continues. PDF pages a
// text extractor cannot read meaningfully are routed to an OCR queue by the
// triage step instead of silently emitting empty chunks.
package docpipe

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config controls unstructured ingestion.
type Config struct {
	SourcePaths  []string `yaml:"source_paths" json:"source_paths"`
	ChunkSize    int      `yaml:"chunk_size" json:"chunk_size"`       // words per chunk, default 180
	ChunkOverlap int      `yaml:"chunk_overlap" json:"chunk_overlap"` // overlapping words, default 30

	Logger *slog.Logger `yaml:"-" json:"-"`
}

func (c *Config) defaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 180
	}
	if c.ChunkOverlap < 0 {
		c.ChunkOverlap = 30
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Detect returns the document format for a path based on its extension.
func Detect(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".text":
		return FormatTXT, nil
	case ".md", ".markdown":
		return FormatMD, nil
	case ".pdf":
		return FormatPDF, nil
	case ".html", ".htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported format: %q", filepath.Ext(path))
	}
}

// SupportedExtensions lists the extensions Ingest understands.
func SupportedExtensions() []string {
	return []string{".txt", ".text", ".md", ".markdown", ".pdf", ".html", ".htm"}
}

// Ingest chunks every source path into documents. Missing files and per-file
// parse failures are recorded, never fatal. Status is "ok" only when every
// path was readable and parsed.
func Ingest(cfg Config) *Result {
	cfg.defaults()

	result := &Result{
		Status:       "ok",
		Documents:    []Document{},
		MissingPaths: []string{},
		FailedPaths:  []PathFailure{},
	}
	hints := map[string]bool{}

	for _, path := range cfg.SourcePaths {
		if _, err := os.Stat(path); err != nil {
			result.MissingPaths = append(result.MissingPaths, path)
			continue
		}

		docs, err := extractDocuments(path, cfg)
		if err != nil {
			cfg.Logger.Warn("unstructured parse failed", "path", path, "error", err)
			result.FailedPaths = append(result.FailedPaths, PathFailure{Path: path, Error: err.Error()})
			if hint := codecHint(err); hint != "" && !hints[hint] {
				hints[hint] = true
				result.DependencyHints = append(result.DependencyHints, hint)
			}
			continue
		}
		result.Documents = append(result.Documents, docs...)
	}

	result.DocumentCount = len(result.Documents)
	if len(result.MissingPaths) > 0 || len(result.FailedPaths) > 0 {
		result.Status = "partial"
	}
	return result
}

// extractDocuments reads one file and chunks its text.
func extractDocuments(path string, cfg Config) ([]Document, error) {
	format, err := Detect(path)
	if err != nil {
		return nil, err
	}

	base := filepath.Base(path)
	var docs []Document

	switch format {
	case FormatTXT, FormatMD:
		text, err := readTextFile(path)
		if err != nil {
			return nil, err
		}
		for idx, chunk := range ChunkWords(text, cfg.ChunkSize, cfg.ChunkOverlap) {
			docs = append(docs, Document{
				DocID:       fmt.Sprintf("%s:%d", base, idx),
				SourcePath:  path,
				TextContent: chunk,
			})
		}

	case FormatHTML:
		text, err := extractHTMLText(path)
		if err != nil {
			return nil, err
		}
		for idx, chunk := range ChunkWords(text, cfg.ChunkSize, cfg.ChunkOverlap) {
			docs = append(docs, Document{
				DocID:       fmt.Sprintf("%s:%d", base, idx),
				SourcePath:  path,
				TextContent: chunk,
			})
		}

	case FormatPDF:
		pages, err := extractPDFPages(path)
		if err != nil {
			return nil, err
		}
		for pageNr, pageText := range pages {
			// A page with no extractable text contributes no chunks.
			if strings.TrimSpace(pageText) == "" {
				continue
			}
			for idx, chunk := range ChunkWords(pageText, cfg.ChunkSize, cfg.ChunkOverlap) {
				docs = append(docs, Document{
					DocID:       fmt.Sprintf("%s:page%d:%d", base, pageNr+1, idx),
					SourcePath:  path,
					Page:        pageNr + 1,
					TextContent: chunk,
				})
			}
		}
	}

	return docs, nil
}

func readTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
