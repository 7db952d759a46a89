package usecase

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/prismintel/finpipe/internal/core/domain"
	"github.com/prismintel/finpipe/internal/core/ports"
	"github.com/prismintel/finpipe/internal/core/schema"
	"github.com/prismintel/finpipe/internal/infrastructure/extractor"
)

type attachmentStoreFake struct {
	byID map[string]*domain.Attachment
}

func (f *attachmentStoreFake) Get(_ context.Context, id string) (*domain.Attachment, error) {
	att, ok := f.byID[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrAttachmentNotFound, "get attachment", errors.New(id))
	}
	return att, nil
}

func (f *attachmentStoreFake) Save(_ context.Context, att *domain.Attachment) error {
	f.byID[att.ID] = att
	return nil
}

type resultStoreFake struct {
	saved   []*domain.NormalizedFinancialData
	saveErr error
}

func (f *resultStoreFake) Save(_ context.Context, result *domain.NormalizedFinancialData) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, result)
	return nil
}

func (f *resultStoreFake) GetByAttachment(_ context.Context, attachmentID string) (*domain.NormalizedFinancialData, error) {
	for _, r := range f.saved {
		if r.AttachmentID == attachmentID {
			return r, nil
		}
	}
	return nil, errors.New("not found")
}

func newPipeline(t *testing.T, attachments *attachmentStoreFake, results *resultStoreFake, oracle *oracleFake) *ProcessUseCase {
	t.Helper()
	registry := schema.MustLoad()
	return NewProcessUseCase(
		attachments,
		extractor.NewRouter(nil),
		NewClassifier(oracle, nil),
		NewFieldMapper(newTemplateStoreFake(), oracle, registry, nil),
		NewNormalizer(registry),
		NewScorer(registry),
		results,
		nil,
	)
}

func incomeStatementXLSX(t *testing.T) []byte {
	t.Helper()
	wb := excelize.NewFile()
	rows := [][]any{
		{"Account", "2023", "2024"},
		{"Rental Income", "$800,000", "$850,000"},
		{"Operating Costs", "(300,000)", "(320,000)"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := wb.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := wb.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestProcessSpreadsheetIncomeStatementEndToEnd(t *testing.T) {
	attachments := &attachmentStoreFake{byID: map[string]*domain.Attachment{
		"att-1": {
			ID:       "att-1",
			TenantID: "tenant-1",
			Filename: "statement.xlsx",
			MimeType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Bytes:    incomeStatementXLSX(t),
		},
	}}
	results := &resultStoreFake{}
	// Oracle down for the whole run: classification and mapping both fall
	// back to their deterministic paths.
	uc := newPipeline(t, attachments, results, &oracleFake{err: errors.New("connection refused")})

	got, err := uc.Process(context.Background(), ports.AttachmentEvent{AttachmentID: "att-1", TenantID: "tenant-1"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if got.ReportType != domain.ReportIncomeStatement {
		t.Fatalf("report type = %s", got.ReportType)
	}
	if got.Currency != "USD" {
		t.Fatalf("currency = %s, expected sniffed USD", got.Currency)
	}
	if revenue, _ := getNumber(got.Data, "revenue.total_revenue"); revenue != 850000 {
		t.Fatalf("total_revenue = %v", revenue)
	}
	if expenses, _ := getNumber(got.Data, "expenses.total_expenses"); expenses != 320000 {
		t.Fatalf("total_expenses = %v", expenses)
	}
	if len(got.Metrics) != 1 || got.Metrics[0].Name != "net_operating_income" || got.Metrics[0].Value != 530000 {
		t.Fatalf("derived metrics = %+v", got.Metrics)
	}
	if got.ID == "" || got.CreatedAt.IsZero() {
		t.Fatalf("result identity not set: %+v", got)
	}
	if len(results.saved) != 1 {
		t.Fatalf("expected one persisted result, got %d", len(results.saved))
	}
	if got.Quality.ManualReviewRequired {
		t.Fatalf("clean spreadsheet must not need review: %+v", got.Quality)
	}
}

func TestProcessUnstructuredTextClassifiedByKeywords(t *testing.T) {
	attachments := &attachmentStoreFake{byID: map[string]*domain.Attachment{
		"att-2": {
			ID:       "att-2",
			TenantID: "tenant-1",
			Filename: "notes.txt",
			MimeType: "text/plain",
			Bytes:    []byte("Net cash from operating activities was positive this quarter."),
		},
	}}
	results := &resultStoreFake{}
	uc := newPipeline(t, attachments, results, &oracleFake{err: errors.New("oracle offline")})

	got, err := uc.Process(context.Background(), ports.AttachmentEvent{AttachmentID: "att-2", TenantID: "tenant-1"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if got.ReportType != domain.ReportCashFlowStatement {
		t.Fatalf("report type = %s", got.ReportType)
	}
	if got.Quality.Confidence != 0.7 {
		t.Fatalf("classification confidence = %v", got.Quality.Confidence)
	}
	// The raw text field never maps to a canonical path; the rejection is
	// recorded but does not on its own raise a consistency issue.
	if len(got.Unmapped) != 1 || got.Unmapped[0] != "text" {
		t.Fatalf("unmapped = %v", got.Unmapped)
	}
}

func TestProcessMissingAttachmentFails(t *testing.T) {
	uc := newPipeline(t, &attachmentStoreFake{byID: map[string]*domain.Attachment{}}, &resultStoreFake{}, &oracleFake{})

	_, err := uc.Process(context.Background(), ports.AttachmentEvent{AttachmentID: "ghost"})
	if err == nil {
		t.Fatal("expected error for missing attachment")
	}
	if !domain.IsKind(err, domain.ErrAttachmentNotFound) {
		t.Fatalf("error kind = %v", err)
	}
}

func TestProcessPersistFailureIsNotFatal(t *testing.T) {
	attachments := &attachmentStoreFake{byID: map[string]*domain.Attachment{
		"att-3": {
			ID:       "att-3",
			TenantID: "tenant-1",
			Filename: "notes.txt",
			MimeType: "text/plain",
			Bytes:    []byte("total revenue detail"),
		},
	}}
	uc := newPipeline(t, attachments, &resultStoreFake{saveErr: errors.New("db down")}, &oracleFake{err: errors.New("oracle offline")})

	got, err := uc.Process(context.Background(), ports.AttachmentEvent{AttachmentID: "att-3", TenantID: "tenant-1"})
	if err != nil {
		t.Fatalf("persist failure must not fail processing: %v", err)
	}
	if got == nil || got.AttachmentID != "att-3" {
		t.Fatalf("result = %+v", got)
	}
}
