package extractor

import (
	"context"
	"strings"

	"github.com/prismintel/finpipe/internal/core/domain"
)

// TextFieldKey is where the plain-text strategy stores the whole document.
// With no structure to parse mechanically, downstream classification and
// mapping for such documents depend on the oracle.
const TextFieldKey = "text"

// PlaintextExtractor is both the unstructured-text strategy and the
// universal fallback for unknown or unreadable formats.
type PlaintextExtractor struct{}

func NewPlaintextExtractor() *PlaintextExtractor {
	return &PlaintextExtractor{}
}

func (e *PlaintextExtractor) Extract(_ context.Context, att *domain.Attachment) (domain.RawExtraction, error) {
	ex := domain.NewRawExtraction()

	text := strings.TrimSpace(strings.ToValidUTF8(string(att.Bytes), ""))
	if text != "" {
		ex.Fields[TextFieldKey] = text
	}
	sniffCurrency(&ex, [][]string{{text}})
	return ex, nil
}
