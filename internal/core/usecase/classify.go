package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/prismintel/finpipe/internal/core/domain"
	"github.com/prismintel/finpipe/internal/core/ports"
)

// classificationSnippetLimit caps how much extracted content is sent to the
// oracle for classification.
const classificationSnippetLimit = 2000

// Classifier determines report type, structure type, and time period for a
// raw extraction. The oracle is the primary path; a deterministic keyword
// heuristic (confidence capped at 0.7 plus a structure bonus) covers oracle
// failure and absence.
type Classifier struct {
	oracle ports.Oracle
	logger *slog.Logger
}

func NewClassifier(oracle ports.Oracle, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{oracle: oracle, logger: logger}
}

func (c *Classifier) Classify(ctx context.Context, ex domain.RawExtraction) domain.ClassificationResult {
	if c.oracle != nil {
		result, err := c.classifyWithOracle(ctx, ex)
		if err == nil {
			return result
		}
		c.logger.Warn("classification_fallback", "error", err)
	}
	return classifyHeuristic(ex)
}

type oracleClassification struct {
	ReportType    string   `json:"report_type"`
	StructureType string   `json:"structure_type"`
	Confidence    float64  `json:"confidence"`
	Indicators    []string `json:"indicators"`
	TimePeriod    *struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"time_period"`
}

func (c *Classifier) classifyWithOracle(ctx context.Context, ex domain.RawExtraction) (domain.ClassificationResult, error) {
	raw, err := c.oracle.ClassifyOrMap(ctx, buildClassificationPrompt(ex))
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("oracle classify: %w", err)
	}

	var resp oracleClassification
	if err := decodeOracleJSON(raw, classificationSchema, &resp); err != nil {
		return domain.ClassificationResult{}, err
	}

	reportType, _ := domain.ParseReportType(resp.ReportType)
	structureType, _ := domain.ParseStructureType(resp.StructureType)

	result := domain.ClassificationResult{
		ReportType:    reportType,
		StructureType: structureType,
		Confidence:    clamp01(resp.Confidence / 100),
		Indicators:    resp.Indicators,
	}
	if resp.TimePeriod != nil {
		if period := parsePeriod(resp.TimePeriod.Start, resp.TimePeriod.End); period != nil {
			result.TimePeriod = period
		}
	}
	return result, nil
}

// classifyHeuristic is the deterministic fallback. Keyword groups are
// checked in a fixed order and the first match wins; there is no scoring
// across categories.
func classifyHeuristic(ex domain.RawExtraction) domain.ClassificationResult {
	text := strings.ToLower(serializeExtraction(ex, 0))

	result := domain.ClassificationResult{
		ReportType: domain.ReportCustom,
		Confidence: 0.5,
	}
	checks := []struct {
		reportType domain.ReportType
		keywords   []string
	}{
		{domain.ReportIncomeStatement, []string{"revenue", "income", "expense", "profit"}},
		{domain.ReportBalanceSheet, []string{"assets", "liabilities", "equity"}},
		{domain.ReportCashFlowStatement, []string{"cash flow", "operating activities"}},
	}
	for _, check := range checks {
		if matched := matchAny(text, check.keywords); len(matched) > 0 {
			result.ReportType = check.reportType
			result.Confidence = 0.7
			result.Indicators = matched
			break
		}
	}

	switch {
	case len(ex.Tables) > 0:
		result.StructureType = domain.StructureStructured
		result.Confidence = round2(clamp01(result.Confidence + 0.1))
	case strings.ContainsAny(text, "|\t"):
		result.StructureType = domain.StructureSemiStructured
	default:
		result.StructureType = domain.StructureUnstructured
	}
	return result
}

func matchAny(text string, keywords []string) []string {
	var matched []string
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// serializeExtraction flattens fields and tables into one text block.
// A limit of 0 means no truncation.
func serializeExtraction(ex domain.RawExtraction, limit int) string {
	var b strings.Builder

	keys := make([]string, 0, len(ex.Fields))
	for k := range ex.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, ex.Fields[k])
	}

	for _, table := range ex.Tables {
		fmt.Fprintf(&b, "[table %s] %s\n", table.Name, strings.Join(table.Headers, ", "))
		for _, row := range table.Rows {
			for i, cell := range row {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "%v", cell)
			}
			b.WriteByte('\n')
		}
	}

	out := b.String()
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func parsePeriod(start, end string) *domain.TimePeriod {
	s, errS := time.Parse("2006-01-02", start)
	e, errE := time.Parse("2006-01-02", end)
	if errS != nil || errE != nil {
		return nil
	}
	return &domain.TimePeriod{Start: s, End: e}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func buildClassificationPrompt(ex domain.RawExtraction) string {
	return `You classify property-management financial documents.
Return a strict JSON object with keys:
report_type (one of income_statement, balance_sheet, cash_flow_statement, trial_balance, general_ledger, operational_report, custom_report),
structure_type (one of structured, semi_structured, unstructured),
confidence (number from 0 to 100),
indicators (array of strings),
time_period (object with start and end as YYYY-MM-DD, optional).
No markdown, no extra keys.

Document:
` + serializeExtraction(ex, classificationSnippetLimit)
}
