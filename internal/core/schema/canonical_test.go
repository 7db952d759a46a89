package schema

import (
	"testing"

	"github.com/prismintel/finpipe/internal/core/domain"
)

func TestLoadCoversAllReportTypes(t *testing.T) {
	reg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	for _, rt := range domain.KnownReportTypes {
		if len(reg.Fields(rt)) == 0 {
			t.Fatalf("no canonical fields for %s", rt)
		}
	}
}

func TestFieldsPreserveDeclarationOrder(t *testing.T) {
	reg := MustLoad()
	fields := reg.Fields(domain.ReportIncomeStatement)
	if fields[0].Path != "revenue.rental_income" {
		t.Fatalf("expected rental_income first, got %s", fields[0].Path)
	}
	last := fields[len(fields)-1].Path
	if last != "net_operating_income" {
		t.Fatalf("expected net_operating_income last, got %s", last)
	}
}

func TestHasPath(t *testing.T) {
	reg := MustLoad()
	if !reg.HasPath(domain.ReportIncomeStatement, "expenses.total_expenses") {
		t.Fatalf("expected known path")
	}
	if reg.HasPath(domain.ReportIncomeStatement, "expenses.made_up") {
		t.Fatalf("unexpected unknown path accepted")
	}
}

func TestUnknownReportTypeFallsBackToCustom(t *testing.T) {
	reg := MustLoad()
	fields := reg.Fields(domain.ReportType("weird"))
	if len(fields) == 0 || fields[0].Path != "figures.total" {
		t.Fatalf("expected custom_report fallback, got %+v", fields)
	}
}

func TestNormalizeLabel(t *testing.T) {
	if got := NormalizeLabel("Total Revenue ($):"); got != "totalrevenue" {
		t.Fatalf("NormalizeLabel = %q", got)
	}
	if got := NormalizeLabel("R&M"); got != "rm" {
		t.Fatalf("NormalizeLabel = %q", got)
	}
}
