package extractor

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/prismintel/finpipe/internal/core/domain"
)

// DelimitedExtractor reads comma- or tab-separated tables.
type DelimitedExtractor struct{}

func NewDelimitedExtractor() *DelimitedExtractor {
	return &DelimitedExtractor{}
}

func (e *DelimitedExtractor) Extract(_ context.Context, att *domain.Attachment) (domain.RawExtraction, error) {
	ex := domain.NewRawExtraction()

	reader := csv.NewReader(bytes.NewReader(att.Bytes))
	reader.Comma = sniffSeparator(att.Filename, att.Bytes)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return ex, fmt.Errorf("read delimited %s: %w", att.Filename, err)
	}

	sniffCurrency(&ex, rows)
	mergeGrid(&ex, tableName(att.Filename), rows)
	return ex, nil
}

func sniffSeparator(filename string, data []byte) rune {
	if strings.HasSuffix(strings.ToLower(filename), ".tsv") {
		return '\t'
	}
	firstLine := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		firstLine = data[:idx]
	}
	if bytes.Count(firstLine, []byte{'\t'}) > bytes.Count(firstLine, []byte{','}) {
		return '\t'
	}
	return ','
}

func tableName(filename string) string {
	name := filename
	if idx := strings.LastIndexByte(name, '.'); idx > 0 {
		name = name[:idx]
	}
	if name == "" {
		return "table"
	}
	return name
}
