package domain

import "time"

// FinancialMetric is one canonical or derived figure. Derived metrics carry
// their formula string so the derivation is auditable.
type FinancialMetric struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	IsDerived  bool    `json:"is_derived"`
	Formula    string  `json:"formula,omitempty"`
}

// Quality is the scorer's verdict on one normalized result.
type Quality struct {
	Completeness         float64  `json:"completeness"`
	Accuracy             float64  `json:"accuracy"`
	Consistency          float64  `json:"consistency"`
	Confidence           float64  `json:"confidence"`
	OverallScore         float64  `json:"overall_score"`
	Issues               []string `json:"issues,omitempty"`
	ManualReviewRequired bool     `json:"manual_review_required"`
}

// NormalizedFinancialData is the pipeline's final product: the canonical
// nested schema instance plus metrics and quality. Immutable once scored;
// corrections require re-running the full pipeline.
type NormalizedFinancialData struct {
	ID           string            `json:"id"`
	AttachmentID string            `json:"attachment_id"`
	TenantID     string            `json:"tenant_id"`
	PropertyID   string            `json:"property_id,omitempty"`
	ReportType   ReportType        `json:"report_type"`
	Period       *TimePeriod       `json:"period,omitempty"`
	Currency     string            `json:"currency"`
	Data         map[string]any    `json:"data"`
	Metrics      []FinancialMetric `json:"metrics"`
	Mappings     []FieldMapping    `json:"mappings"`
	Unmapped     []string          `json:"unmapped,omitempty"`
	Quality      Quality           `json:"quality"`
	CreatedAt    time.Time         `json:"created_at"`
}
