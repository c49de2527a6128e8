package docpipe

// Format identifies an unstructured document type.
type Format string

const (
	FormatTXT  Format = "txt"
	FormatMD   Format = "md"
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

// Document is one embedding-ready chunk of an unstructured source.
type Document struct {
	DocID       string `json:"doc_id"`
	SourcePath  string `json:"source_path"`
	Page        int    `json:"page,omitempty"` // 1-based, PDF only
	TextContent string `json:"text_content"`
}

// PathFailure records a per-file parse failure. The file contributes zero
// documents; the run continues.
type PathFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Result is the outcome of ingesting a batch of unstructured sources.
type Result struct {
	Status          string        `json:"status"` // ok or partial
	Documents       []Document    `json:"documents"`
	DocumentCount   int           `json:"document_count"`
	MissingPaths    []string      `json:"missing_paths"`
	FailedPaths     []PathFailure `json:"failed_paths"`
	DependencyHints []string      `json:"dependency_hints,omitempty"` // distinct remediation messages
}
