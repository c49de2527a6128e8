package docpipe

import (
	"path/filepath"
	"strings"
)

// DefaultScannedTextThreshold is the minimum extractable character count on
// a PDF's first page below which the whole document is queued for OCR.
const DefaultScannedTextThreshold = 80

// OCRQueueEntry is one document routed to OCR instead of direct chunking.
type OCRQueueEntry struct {
	Path               string `json:"path"`
	FirstPageTextChars int    `json:"first_page_text_chars"`
	Reason             string `json:"reason"`
}

// TriageResult partitions unstructured paths into text-ready sources and an
// OCR queue. Extraction failures are also recorded for audit; they never
// abort the batch.
type TriageResult struct {
	TextReady []string        `json:"text_ready"`
	OCRQueue  []OCRQueueEntry `json:"ocr_queue"`
	Failures  []PathFailure   `json:"failures"`
}

// pdfFirstPageLen is a seam for tests; the real implementation parses the
// PDF with the compiled-in codec.
var pdfFirstPageLen = firstPageTextLen

// Triage decides per path whether a document has machine-extractable text.
// Non-PDF formats are always text-ready. A PDF whose first page yields at
// least threshold characters is text-ready; below that it is queued for OCR.
// threshold <= 0 selects DefaultScannedTextThreshold.
func Triage(paths []string, threshold int) *TriageResult {
	if threshold <= 0 {
		threshold = DefaultScannedTextThreshold
	}

	result := &TriageResult{
		TextReady: []string{},
		OCRQueue:  []OCRQueueEntry{},
		Failures:  []PathFailure{},
	}

	for _, path := range paths {
		if strings.ToLower(filepath.Ext(path)) != ".pdf" {
			result.TextReady = append(result.TextReady, path)
			continue
		}

		chars, err := pdfFirstPageLen(path)
		if err != nil {
			result.OCRQueue = append(result.OCRQueue, OCRQueueEntry{
				Path:   path,
				Reason: err.Error(),
			})
			result.Failures = append(result.Failures, PathFailure{Path: path, Error: err.Error()})
			continue
		}
		if chars < threshold {
			result.OCRQueue = append(result.OCRQueue, OCRQueueEntry{
				Path:               path,
				FirstPageTextChars: chars,
				Reason:             "low_extractable_text",
			})
			continue
		}
		result.TextReady = append(result.TextReady, path)
	}

	return result
}
