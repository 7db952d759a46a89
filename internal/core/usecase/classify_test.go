package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/prismintel/finpipe/internal/core/domain"
)

type oracleFake struct {
	response string
	err      error
	prompts  []string
}

func (f *oracleFake) ClassifyOrMap(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func textExtraction(text string) domain.RawExtraction {
	ex := domain.NewRawExtraction()
	ex.Fields["text"] = text
	return ex
}

func TestClassifyUsesOracleResponse(t *testing.T) {
	oracle := &oracleFake{response: `{
		"report_type": "balance_sheet",
		"structure_type": "structured",
		"confidence": 92,
		"indicators": ["total assets"],
		"time_period": {"start": "2024-01-01", "end": "2024-12-31"}
	}`}
	c := NewClassifier(oracle, nil)

	got := c.Classify(context.Background(), textExtraction("Total Assets 100"))
	if got.ReportType != domain.ReportBalanceSheet {
		t.Fatalf("report type = %s", got.ReportType)
	}
	if got.Confidence != 0.92 {
		t.Fatalf("confidence = %v, expected 0.92", got.Confidence)
	}
	if got.TimePeriod == nil || got.TimePeriod.Start.Year() != 2024 {
		t.Fatalf("time period not parsed: %+v", got.TimePeriod)
	}
}

func TestClassifyFallsBackOnOracleError(t *testing.T) {
	c := NewClassifier(&oracleFake{err: errors.New("connection refused")}, nil)

	got := c.Classify(context.Background(), textExtraction("monthly revenue and expense detail"))
	if got.ReportType != domain.ReportIncomeStatement {
		t.Fatalf("report type = %s, expected income_statement", got.ReportType)
	}
	if got.Confidence != 0.7 {
		t.Fatalf("confidence = %v, expected 0.7", got.Confidence)
	}
	if got.StructureType != domain.StructureUnstructured {
		t.Fatalf("structure = %s", got.StructureType)
	}
}

func TestClassifyFallsBackOnMalformedOracleJSON(t *testing.T) {
	c := NewClassifier(&oracleFake{response: "I think it is an income statement"}, nil)

	got := c.Classify(context.Background(), textExtraction("assets and liabilities and equity"))
	if got.ReportType != domain.ReportBalanceSheet {
		t.Fatalf("report type = %s, expected balance_sheet fallback", got.ReportType)
	}
}

func TestClassifyFallsBackOnSchemaViolation(t *testing.T) {
	// Well-formed JSON, but confidence is out of range.
	c := NewClassifier(&oracleFake{response: `{"report_type":"balance_sheet","structure_type":"structured","confidence":500}`}, nil)

	got := c.Classify(context.Background(), textExtraction("cash flow from operating activities"))
	if got.ReportType != domain.ReportCashFlowStatement {
		t.Fatalf("report type = %s, expected cash_flow_statement fallback", got.ReportType)
	}
	if got.Confidence != 0.7 {
		t.Fatalf("confidence = %v", got.Confidence)
	}
}

func TestHeuristicKeywordOrderFirstMatchWins(t *testing.T) {
	// Contains both income-statement and balance-sheet keywords: the
	// income-statement check runs first.
	got := classifyHeuristic(textExtraction("revenue, expenses, assets, liabilities"))
	if got.ReportType != domain.ReportIncomeStatement {
		t.Fatalf("report type = %s", got.ReportType)
	}
}

func TestHeuristicStructureBonusForTables(t *testing.T) {
	ex := domain.NewRawExtraction()
	ex.Tables = append(ex.Tables, domain.Table{
		Name:    "bs",
		Headers: []string{"Account", "Total"},
		Rows:    [][]any{{"Total Assets", 100.0}, {"Total Liabilities", 60.0}},
	})
	got := classifyHeuristic(ex)
	if got.ReportType != domain.ReportBalanceSheet {
		t.Fatalf("report type = %s", got.ReportType)
	}
	if got.StructureType != domain.StructureStructured {
		t.Fatalf("structure = %s", got.StructureType)
	}
	if got.Confidence != 0.8 {
		t.Fatalf("confidence = %v, expected 0.8 (0.7 + structure bonus)", got.Confidence)
	}
}

func TestHeuristicSemiStructuredOnDelimiters(t *testing.T) {
	got := classifyHeuristic(textExtraction("account | amount\nrent | 100"))
	if got.StructureType != domain.StructureSemiStructured {
		t.Fatalf("structure = %s", got.StructureType)
	}
}

func TestHeuristicDefaultsToCustomReport(t *testing.T) {
	got := classifyHeuristic(textExtraction("maintenance request log"))
	if got.ReportType != domain.ReportCustom {
		t.Fatalf("report type = %s", got.ReportType)
	}
	if got.Confidence != 0.5 {
		t.Fatalf("confidence = %v", got.Confidence)
	}
}

func TestClassificationPromptTruncatesSnippet(t *testing.T) {
	long := make([]byte, 3*classificationSnippetLimit)
	for i := range long {
		long[i] = 'x'
	}
	oracle := &oracleFake{err: errors.New("down")}
	NewClassifier(oracle, nil).Classify(context.Background(), textExtraction(string(long)))
	if len(oracle.prompts) != 1 {
		t.Fatalf("expected one oracle call")
	}
	if len(oracle.prompts[0]) > classificationSnippetLimit+500 {
		t.Fatalf("prompt not truncated: %d bytes", len(oracle.prompts[0]))
	}
}
