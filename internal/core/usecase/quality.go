package usecase

import (
	"math"

	"github.com/prismintel/finpipe/internal/core/domain"
	"github.com/prismintel/finpipe/internal/core/schema"
)

// manualReviewScoreFloor is the fixed overall-score threshold below which a
// result is flagged for human review.
const manualReviewScoreFloor = 0.6

// Scorer condenses a normalized result into one 0-1 quality figure:
// completeness 40%, consistency-check pass rate 40%, classification
// confidence 20%.
type Scorer struct {
	registry *schema.Registry
}

func NewScorer(registry *schema.Registry) *Scorer {
	return &Scorer{registry: registry}
}

func (s *Scorer) Score(reportType domain.ReportType, outcome NormalizedOutcome, mappings []domain.FieldMapping, classificationConfidence float64) domain.Quality {
	completeness := s.completeness(reportType, outcome.Data)
	consistency := 1.0
	if outcome.ValidationsTotal > 0 {
		consistency = float64(outcome.ValidationsPassed) / float64(outcome.ValidationsTotal)
	}

	overall := round2(completeness*0.4 + consistency*0.4 + classificationConfidence*0.2)

	return domain.Quality{
		Completeness:         completeness,
		Accuracy:             meanConfidence(mappings),
		Consistency:          consistency,
		Confidence:           classificationConfidence,
		OverallScore:         overall,
		Issues:               outcome.Issues,
		ManualReviewRequired: len(outcome.Issues) > 0 || overall < manualReviewScoreFloor,
	}
}

// completeness is the fraction of canonical schema leaves populated.
func (s *Scorer) completeness(reportType domain.ReportType, data map[string]any) float64 {
	paths := s.registry.Paths(reportType)
	if len(paths) == 0 {
		return 0
	}
	populated := 0
	for _, path := range paths {
		if _, ok := getNumber(data, path); ok {
			populated++
		}
	}
	return float64(populated) / float64(len(paths))
}

// meanConfidence is the average confidence across accepted mappings,
// reported as the accuracy component.
func meanConfidence(mappings []domain.FieldMapping) float64 {
	if len(mappings) == 0 {
		return 0
	}
	var sum float64
	for _, mp := range mappings {
		sum += mp.Confidence
	}
	return sum / float64(len(mappings))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
