package domain

// Attachment is the raw input handed to the pipeline by the surrounding
// system. It is immutable and owned by the pipeline only for the duration
// of one processing run.
type Attachment struct {
	ID         string `json:"id"`
	TenantID   string `json:"tenant_id"`
	PropertyID string `json:"property_id,omitempty"`
	Filename   string `json:"filename"`
	MimeType   string `json:"mime_type"`
	Bytes      []byte `json:"-"`
}

// Table is one tabular region extracted from a document.
type Table struct {
	Name    string  `json:"name"`
	Headers []string `json:"headers"`
	Rows    [][]any `json:"rows"`
}

// ExtractionMetadata carries hints discovered during extraction.
type ExtractionMetadata struct {
	Currency string `json:"currency,omitempty"`
	Period   string `json:"period,omitempty"`
}

// RawExtraction is the format-independent output of exactly one format
// extractor: a flat field map plus any tables found. Read-only once built.
type RawExtraction struct {
	Fields   map[string]any     `json:"fields"`
	Tables   []Table            `json:"tables"`
	Metadata ExtractionMetadata `json:"metadata"`
}

func NewRawExtraction() RawExtraction {
	return RawExtraction{Fields: map[string]any{}}
}
