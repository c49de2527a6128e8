//go:build nopdf

package docpipe

import "fmt"

// Builds tagged nopdf exclude the pdfcpu codec. Every PDF then fails with a
// dependency error so the operator gets one consolidated remediation hint
// instead of a malformed-file report per path.

func extractPDFPages(path string) ([]string, error) {
	return nil, fmt.Errorf("%w: pdf support not compiled in (rebuild without the nopdf tag)", ErrCodecUnavailable)
}

func firstPageTextLen(path string) (int, error) {
	return 0, fmt.Errorf("%w: pdf support not compiled in (rebuild without the nopdf tag)", ErrCodecUnavailable)
}
