package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/prismintel/finpipe/internal/core/domain"
	"github.com/prismintel/finpipe/internal/core/ports"
)

const defaultCurrency = "USD"

// ProcessUseCase runs the full pipeline on one attachment: extract,
// classify, map, normalize, score, persist the audit record. Stages are
// strictly sequential within an attachment; attachments are independent, so
// any number of Process calls may run concurrently.
//
// Only a missing attachment is a hard failure. Every other degradation
// (unreadable bytes, oracle outage, unmapped fields, inconsistent totals)
// produces a best-effort, confidence-annotated result instead of an error.
type ProcessUseCase struct {
	attachments ports.AttachmentStore
	extractor   ports.ContentExtractor
	classifier  *Classifier
	mapper      *FieldMapper
	normalizer  *Normalizer
	scorer      *Scorer
	results     ports.ResultStore
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
}

func NewProcessUseCase(
	attachments ports.AttachmentStore,
	extractor ports.ContentExtractor,
	classifier *Classifier,
	mapper *FieldMapper,
	normalizer *Normalizer,
	scorer *Scorer,
	results ports.ResultStore,
	logger *slog.Logger,
) *ProcessUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessUseCase{
		attachments: attachments,
		extractor:   extractor,
		classifier:  classifier,
		mapper:      mapper,
		normalizer:  normalizer,
		scorer:      scorer,
		results:     results,
		logger:      logger,
		now:         time.Now,
		newID:       func() string { return uuid.NewString() },
	}
}

func (uc *ProcessUseCase) Process(ctx context.Context, event ports.AttachmentEvent) (*domain.NormalizedFinancialData, error) {
	att, err := uc.attachments.Get(ctx, event.AttachmentID)
	if err != nil {
		return nil, fmt.Errorf("fetch attachment %s: %w", event.AttachmentID, err)
	}

	tenantID := event.TenantID
	if tenantID == "" {
		tenantID = att.TenantID
	}
	propertyID := event.PropertyID
	if propertyID == "" {
		propertyID = att.PropertyID
	}

	extraction, err := uc.extractor.Extract(ctx, att)
	if err != nil {
		// The router already degrades internally; an error here means even
		// the plain-text fallback failed. Continue with an empty extraction.
		uc.logger.Warn("extraction_failed", "attachment_id", att.ID, "error", err)
		extraction = domain.NewRawExtraction()
	}

	classification := uc.classifier.Classify(ctx, extraction)

	mappings, unmapped := uc.mapper.MapFields(ctx, extraction.Fields, classification.ReportType, tenantID)

	currency := extraction.Metadata.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	outcome := uc.normalizer.Normalize(extraction, mappings, classification.ReportType, currency)
	quality := uc.scorer.Score(classification.ReportType, outcome, mappings, classification.Confidence)
	// Mapping rejections are recorded for the audit trail but do not force
	// manual review on their own; only consistency issues and a low score do.
	for _, field := range unmapped {
		quality.Issues = append(quality.Issues, "unmapped source field: "+field)
	}

	result := &domain.NormalizedFinancialData{
		ID:           uc.newID(),
		AttachmentID: att.ID,
		TenantID:     tenantID,
		PropertyID:   propertyID,
		ReportType:   classification.ReportType,
		Period:       classification.TimePeriod,
		Currency:     currency,
		Data:         outcome.Data,
		Metrics:      outcome.Metrics,
		Mappings:     mappings,
		Unmapped:     unmapped,
		Quality:      quality,
		CreatedAt:    uc.now().UTC(),
	}

	if uc.results != nil {
		if err := uc.results.Save(ctx, result); err != nil {
			uc.logger.Error("result_persist_failed", "attachment_id", att.ID, "error", err)
		}
	}

	uc.logger.Info("attachment_processed",
		"attachment_id", att.ID,
		"tenant_id", tenantID,
		"report_type", result.ReportType,
		"overall_score", quality.OverallScore,
		"manual_review", quality.ManualReviewRequired,
		"mapped", len(mappings),
		"unmapped", len(unmapped),
	)
	return result, nil
}
