package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/prismintel/finpipe/internal/core/domain"
	"github.com/prismintel/finpipe/internal/core/parse"
)

const headerScanRows = 10

var yearPattern = regexp.MustCompile(`(19|20)\d{2}`)

// mergeGrid folds one tabular region (a spreadsheet sheet or a delimited
// file) into the extraction. Field writes are first-write-wins so later
// sheets never overwrite earlier identical labels.
func mergeGrid(ex *domain.RawExtraction, name string, rows [][]string) {
	if len(rows) == 0 {
		return
	}

	headerIdx, ok := findHeaderRow(rows)
	if !ok {
		// No header in the first rows: treat the grid as key/value pairs.
		for _, row := range rows {
			if len(row) < 2 {
				continue
			}
			label := strings.TrimSpace(row[0])
			if label == "" {
				continue
			}
			setField(ex, label, parse.Value(row[1]))
		}
		return
	}

	headers := trimRow(rows[headerIdx])
	valueCol := valueColumn(headers)

	table := domain.Table{Name: name, Headers: headers}
	for _, row := range rows[headerIdx+1:] {
		if len(row) == 0 {
			continue
		}
		label := strings.TrimSpace(row[0])
		if label == "" {
			continue
		}
		table.Rows = append(table.Rows, parseRow(row))
		if valueCol < len(row) {
			setField(ex, label, parse.Value(row[valueCol]))
		}
	}
	ex.Tables = append(ex.Tables, table)
}

// findHeaderRow scans the first rows for one that reads like a header: at
// least two non-empty cells and either no bare numbers among them, or more
// than three non-empty cells. Year-like cells ("2024") count as labels, not
// numbers, so period columns still qualify.
func findHeaderRow(rows [][]string) (int, bool) {
	limit := len(rows)
	if limit > headerScanRows {
		limit = headerScanRows
	}
	for i := 0; i < limit; i++ {
		nonEmpty := 0
		numeric := 0
		for _, cell := range rows[i] {
			c := strings.TrimSpace(cell)
			if c == "" {
				continue
			}
			nonEmpty++
			if isBareNumber(c) {
				numeric++
			}
		}
		if nonEmpty < 2 {
			continue
		}
		if numeric == 0 || nonEmpty > 3 {
			return i, true
		}
	}
	return 0, false
}

// valueColumn picks the authoritative value column: the last header that
// names a 4-digit year or contains "total" (most-recent-period-wins). When
// no header qualifies, the last column is used.
func valueColumn(headers []string) int {
	col := len(headers) - 1
	for i, h := range headers {
		if yearPattern.MatchString(h) || strings.Contains(strings.ToLower(h), "total") {
			col = i
		}
	}
	return col
}

func isBareNumber(cell string) bool {
	s := strings.ReplaceAll(cell, ",", "")
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return false
	}
	if yearPattern.MatchString(s) && len(s) == 4 {
		return false
	}
	return true
}

func setField(ex *domain.RawExtraction, label string, value any) {
	if value == nil {
		return
	}
	if _, exists := ex.Fields[label]; exists {
		return
	}
	ex.Fields[label] = value
}

func parseRow(row []string) []any {
	out := make([]any, len(row))
	for i, cell := range row {
		out[i] = parse.Value(cell)
	}
	return out
}

func trimRow(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = strings.TrimSpace(cell)
	}
	return out
}

// sniffCurrency records the first currency symbol seen in the grid.
func sniffCurrency(ex *domain.RawExtraction, rows [][]string) {
	if ex.Metadata.Currency != "" {
		return
	}
	for _, row := range rows {
		for _, cell := range row {
			switch {
			case strings.ContainsRune(cell, '$'):
				ex.Metadata.Currency = "USD"
				return
			case strings.ContainsRune(cell, '€'):
				ex.Metadata.Currency = "EUR"
				return
			case strings.ContainsRune(cell, '£'):
				ex.Metadata.Currency = "GBP"
				return
			}
		}
	}
}
