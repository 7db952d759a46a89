package extractor

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/prismintel/finpipe/internal/core/domain"
)

// SpreadsheetExtractor reads Excel workbooks. Each sheet is processed
// independently and merged first-write-wins.
type SpreadsheetExtractor struct{}

func NewSpreadsheetExtractor() *SpreadsheetExtractor {
	return &SpreadsheetExtractor{}
}

func (e *SpreadsheetExtractor) Extract(_ context.Context, att *domain.Attachment) (domain.RawExtraction, error) {
	ex := domain.NewRawExtraction()

	f, err := excelize.OpenReader(bytes.NewReader(att.Bytes))
	if err != nil {
		return ex, fmt.Errorf("open workbook %s: %w", att.Filename, err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return ex, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		sniffCurrency(&ex, rows)
		mergeGrid(&ex, sheet, rows)
	}
	return ex, nil
}
