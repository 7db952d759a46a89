package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prismintel/finpipe/internal/core/domain"
	"github.com/prismintel/finpipe/internal/core/schema"
)

// templateStoreFake mimics the atomic increment-or-insert contract of the
// real store.
type templateStoreFake struct {
	mu        sync.Mutex
	templates map[string]*domain.FieldMappingTemplate
	getErr    error
}

func newTemplateStoreFake() *templateStoreFake {
	return &templateStoreFake{templates: map[string]*domain.FieldMappingTemplate{}}
}

func templateKey(tenantID string, rt domain.ReportType, field string) string {
	return tenantID + "|" + string(rt) + "|" + field
}

func (f *templateStoreFake) Get(_ context.Context, tenantID string, rt domain.ReportType, field string) (*domain.FieldMappingTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	tpl, ok := f.templates[templateKey(tenantID, rt, field)]
	if !ok {
		return nil, domain.WrapError(domain.ErrTemplateNotFound, "get template", errors.New(field))
	}
	copied := *tpl
	return &copied, nil
}

func (f *templateStoreFake) Upsert(_ context.Context, tpl *domain.FieldMappingTemplate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := templateKey(tpl.TenantID, tpl.ReportType, tpl.SourceField)
	if existing, ok := f.templates[key]; ok {
		existing.UsageCount++
		existing.LastUsed = tpl.LastUsed
		return nil
	}
	copied := *tpl
	f.templates[key] = &copied
	return nil
}

func newMapper(t *testing.T, store *templateStoreFake, oracle *oracleFake) *FieldMapper {
	t.Helper()
	return NewFieldMapper(store, oracle, schema.MustLoad(), nil)
}

func TestMapFieldsPrefersTemplateAndReinforces(t *testing.T) {
	store := newTemplateStoreFake()
	_ = store.Upsert(context.Background(), &domain.FieldMappingTemplate{
		TenantID:    "t1",
		ReportType:  domain.ReportIncomeStatement,
		SourceField: "Rental Income",
		TargetPath:  "revenue.rental_income",
		Confidence:  0.95,
		UsageCount:  3,
	})
	oracle := &oracleFake{err: errors.New("must not be called")}
	m := newMapper(t, store, oracle)

	mappings, unmapped := m.MapFields(context.Background(),
		map[string]any{"Rental Income": 850000.0},
		domain.ReportIncomeStatement, "t1")

	if len(mappings) != 1 || mappings[0].Source != domain.MappingFromTemplate {
		t.Fatalf("expected one template mapping, got %+v", mappings)
	}
	if len(unmapped) != 0 {
		t.Fatalf("unexpected unmapped fields: %v", unmapped)
	}
	tpl, _ := store.Get(context.Background(), "t1", domain.ReportIncomeStatement, "Rental Income")
	if tpl.UsageCount != 4 {
		t.Fatalf("usage count = %d, expected reinforcement to 4", tpl.UsageCount)
	}
}

func TestMapFieldsOracleAcceptsAbove70AndPersists(t *testing.T) {
	store := newTemplateStoreFake()
	oracle := &oracleFake{response: `{"mappings": [
		{"source_field": "Rental Income", "target_path": "revenue.rental_income", "confidence": 88},
		{"source_field": "Mystery Line", "target_path": "revenue.other_income", "confidence": 55}
	]}`}
	m := newMapper(t, store, oracle)

	mappings, unmapped := m.MapFields(context.Background(),
		map[string]any{"Rental Income": 1.0, "Mystery Line": 2.0},
		domain.ReportIncomeStatement, "t1")

	if len(mappings) != 1 || mappings[0].TargetPath != "revenue.rental_income" {
		t.Fatalf("mappings = %+v", mappings)
	}
	if mappings[0].Confidence != 0.88 {
		t.Fatalf("confidence = %v", mappings[0].Confidence)
	}
	if len(unmapped) != 1 || unmapped[0] != "Mystery Line" {
		t.Fatalf("unmapped = %v", unmapped)
	}
	tpl, err := store.Get(context.Background(), "t1", domain.ReportIncomeStatement, "Rental Income")
	if err != nil || tpl.UsageCount != 1 {
		t.Fatalf("expected persisted template with usage 1, got %+v err=%v", tpl, err)
	}
}

func TestMapFieldsRejectsOraclePathsOutsideSchema(t *testing.T) {
	store := newTemplateStoreFake()
	oracle := &oracleFake{response: `{"mappings": [
		{"source_field": "Rental Income", "target_path": "revenue.invented_leaf", "confidence": 99}
	]}`}
	m := newMapper(t, store, oracle)

	mappings, unmapped := m.MapFields(context.Background(),
		map[string]any{"Rental Income": 1.0},
		domain.ReportIncomeStatement, "t1")

	if len(mappings) != 0 {
		t.Fatalf("invented path must be rejected, got %+v", mappings)
	}
	if len(unmapped) != 1 {
		t.Fatalf("unmapped = %v", unmapped)
	}
}

func TestMapFieldsStaticFallbackWhenOracleUnavailable(t *testing.T) {
	store := newTemplateStoreFake()
	oracle := &oracleFake{err: errors.New("connection refused")}
	m := newMapper(t, store, oracle)

	mappings, unmapped := m.MapFields(context.Background(),
		map[string]any{
			"Rental Income ($)": 850000.0,
			"Operating Costs":   -320000.0,
			"Zebra Consulting":  7.0,
		},
		domain.ReportIncomeStatement, "t1")

	byField := map[string]domain.FieldMapping{}
	for _, mp := range mappings {
		byField[mp.SourceField] = mp
	}
	if got := byField["Rental Income ($)"]; got.TargetPath != "revenue.rental_income" || got.Source != domain.MappingFromStatic {
		t.Fatalf("rental mapping = %+v", got)
	}
	if got := byField["Operating Costs"]; got.TargetPath != "expenses.operating" {
		t.Fatalf("operating mapping = %+v", got)
	}
	if len(unmapped) != 1 || unmapped[0] != "Zebra Consulting" {
		t.Fatalf("unmapped = %v", unmapped)
	}
}

func TestMapFieldsIdempotentTemplateKey(t *testing.T) {
	store := newTemplateStoreFake()
	oracle := &oracleFake{response: `{"mappings": [
		{"source_field": "Rental Income", "target_path": "revenue.rental_income", "confidence": 90}
	]}`}
	m := newMapper(t, store, oracle)

	fields := map[string]any{"Rental Income": 1.0}
	m.MapFields(context.Background(), fields, domain.ReportIncomeStatement, "t1")
	m.MapFields(context.Background(), fields, domain.ReportIncomeStatement, "t1")

	if len(store.templates) != 1 {
		t.Fatalf("expected a single template row, got %d", len(store.templates))
	}
	tpl, _ := store.Get(context.Background(), "t1", domain.ReportIncomeStatement, "Rental Income")
	if tpl.UsageCount != 2 {
		t.Fatalf("usage count = %d, expected strictly increasing to 2", tpl.UsageCount)
	}
}

func TestMapFieldsTenantIsolation(t *testing.T) {
	store := newTemplateStoreFake()
	_ = store.Upsert(context.Background(), &domain.FieldMappingTemplate{
		TenantID:    "t1",
		ReportType:  domain.ReportIncomeStatement,
		SourceField: "NOI",
		TargetPath:  "net_operating_income",
		Confidence:  0.9,
		UsageCount:  1,
	})
	oracle := &oracleFake{response: `{"mappings": []}`}
	m := newMapper(t, store, oracle)

	mappings, _ := m.MapFields(context.Background(),
		map[string]any{"NOI": 5.0}, domain.ReportIncomeStatement, "t2")
	for _, mp := range mappings {
		if mp.Source == domain.MappingFromTemplate {
			t.Fatalf("tenant t2 must not see tenant t1 templates: %+v", mp)
		}
	}
}
