package usecase

import (
	"testing"

	"github.com/prismintel/finpipe/internal/core/domain"
	"github.com/prismintel/finpipe/internal/core/schema"
)

func TestScoreWeightsComponents(t *testing.T) {
	s := NewScorer(schema.MustLoad())
	// 3 of the 6 cash flow leaves populated.
	outcome := NormalizedOutcome{
		Data: map[string]any{
			"operating":          map[string]any{"net_cash_operating": 100.0},
			"investing":          map[string]any{"net_cash_investing": -40.0},
			"net_change_in_cash": 60.0,
		},
		ValidationsTotal:  4,
		ValidationsPassed: 3,
	}
	mappings := []domain.FieldMapping{
		{SourceField: "a", TargetPath: "operating.net_cash_operating", Confidence: 0.9},
		{SourceField: "b", TargetPath: "investing.net_cash_investing", Confidence: 0.7},
	}

	q := s.Score(domain.ReportCashFlowStatement, outcome, mappings, 0.9)

	if q.Completeness != 0.5 {
		t.Fatalf("completeness = %v, expected 0.5", q.Completeness)
	}
	if q.Consistency != 0.75 {
		t.Fatalf("consistency = %v, expected 0.75", q.Consistency)
	}
	if q.Accuracy != 0.8 {
		t.Fatalf("accuracy = %v, expected 0.8", q.Accuracy)
	}
	// 0.5*0.4 + 0.75*0.4 + 0.9*0.2 = 0.68
	if q.OverallScore != 0.68 {
		t.Fatalf("overall = %v, expected 0.68", q.OverallScore)
	}
	if q.ManualReviewRequired {
		t.Fatal("no issues and score above floor must not require review")
	}
}

func TestScoreNoValidationsCountsAsFullyConsistent(t *testing.T) {
	s := NewScorer(schema.MustLoad())
	q := s.Score(domain.ReportCustom, NormalizedOutcome{
		Data: map[string]any{"figures": map[string]any{"total": 10.0}},
	}, nil, 0.5)

	if q.Consistency != 1.0 {
		t.Fatalf("consistency = %v, expected 1.0 with no checks", q.Consistency)
	}
	if q.Accuracy != 0 {
		t.Fatalf("accuracy = %v, expected 0 with no mappings", q.Accuracy)
	}
	// 1.0*0.4 + 1.0*0.4 + 0.5*0.2 = 0.90
	if q.OverallScore != 0.90 {
		t.Fatalf("overall = %v", q.OverallScore)
	}
}

func TestScoreIssuesForceManualReview(t *testing.T) {
	s := NewScorer(schema.MustLoad())
	outcome := NormalizedOutcome{
		Data: map[string]any{"figures": map[string]any{"total": 10.0}},
		Issues: []string{
			"balance sheet identity mismatch: assets 100.00 vs liabilities+equity 90.00",
		},
	}

	q := s.Score(domain.ReportCustom, outcome, nil, 0.95)
	if !q.ManualReviewRequired {
		t.Fatal("consistency issues must force manual review regardless of score")
	}
	if len(q.Issues) != 1 {
		t.Fatalf("issues must carry through, got %v", q.Issues)
	}
}

func TestScoreLowOverallForcesManualReview(t *testing.T) {
	s := NewScorer(schema.MustLoad())
	// Empty data on a type with many leaves pulls completeness to 0.
	q := s.Score(domain.ReportIncomeStatement, NormalizedOutcome{Data: map[string]any{}}, nil, 0.5)

	if q.OverallScore >= manualReviewScoreFloor {
		t.Fatalf("overall = %v, expected below floor", q.OverallScore)
	}
	if !q.ManualReviewRequired {
		t.Fatal("score below floor must require review")
	}
}
