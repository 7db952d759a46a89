package usecase

import (
	"fmt"
	"math"
	"strings"

	"github.com/prismintel/finpipe/internal/core/domain"
	"github.com/prismintel/finpipe/internal/core/parse"
	"github.com/prismintel/finpipe/internal/core/schema"
)

// consistencyTolerance is the maximum absolute difference between a
// reported aggregate and the sum of its components before the two are
// considered in disagreement.
const consistencyTolerance = 0.01

// NormalizedOutcome is the normalizer's result: the nested schema instance,
// derived metrics, consistency issues, and the validation tally consumed by
// the quality scorer.
type NormalizedOutcome struct {
	Data              map[string]any
	Metrics           []domain.FinancialMetric
	Issues            []string
	ValidationsTotal  int
	ValidationsPassed int
}

// Normalizer builds the canonical nested schema from accepted mappings and
// runs report-type-specific consistency passes.
type Normalizer struct {
	registry *schema.Registry
}

func NewNormalizer(registry *schema.Registry) *Normalizer {
	return &Normalizer{registry: registry}
}

func (n *Normalizer) Normalize(ex domain.RawExtraction, mappings []domain.FieldMapping, reportType domain.ReportType, currency string) NormalizedOutcome {
	out := NormalizedOutcome{Data: map[string]any{}}

	for _, mp := range mappings {
		raw, ok := ex.Fields[mp.SourceField]
		if !ok {
			continue
		}
		setPath(out.Data, mp.TargetPath, parseIfString(raw))
	}

	switch reportType {
	case domain.ReportIncomeStatement:
		absSection(out.Data, "expenses")
		n.reconcileAdditiveTotal(&out, "revenue", "total_revenue")
		n.reconcileAdditiveTotal(&out, "expenses", "total_expenses")
		n.deriveNetOperatingIncome(&out, currency)
	case domain.ReportBalanceSheet:
		n.checkBalanceIdentity(&out)
	case domain.ReportCashFlowStatement:
		n.checkCashFlowRollup(&out)
	}

	return out
}

// reconcileAdditiveTotal enforces that a section's total equals the sum of
// its other populated leaves. A missing or disagreeing total is overwritten
// with the computed sum; this is the documented silent override, so no
// issue is raised, but a disagreeing reported total still counts as a
// failed validation.
func (n *Normalizer) reconcileAdditiveTotal(out *NormalizedOutcome, section, totalLeaf string) {
	sum, components := sumSection(out.Data, section, totalLeaf)
	reported, hasReported := getNumber(out.Data, section+"."+totalLeaf)
	if components == 0 && !hasReported {
		return
	}

	out.ValidationsTotal++
	switch {
	case components == 0:
		out.ValidationsPassed++
	case !hasReported:
		setPath(out.Data, section+"."+totalLeaf, sum)
		out.ValidationsPassed++
	case math.Abs(reported-sum) > consistencyTolerance:
		setPath(out.Data, section+"."+totalLeaf, sum)
	default:
		out.ValidationsPassed++
	}
}

// checkBalanceIdentity verifies assets = liabilities + equity. The identity
// is a detection signal: mismatches are flagged, never repaired.
func (n *Normalizer) checkBalanceIdentity(out *NormalizedOutcome) {
	assets, okA := sectionTotal(out.Data, "assets", "total_assets")
	liabilities, okL := sectionTotal(out.Data, "liabilities", "total_liabilities")
	equity, okE := sectionTotal(out.Data, "equity", "total_equity")
	if !okA && !okL && !okE {
		return
	}

	out.ValidationsTotal++
	if diff := math.Abs(assets - (liabilities + equity)); diff > consistencyTolerance {
		out.Issues = append(out.Issues, fmt.Sprintf(
			"balance sheet identity mismatch: assets %.2f vs liabilities+equity %.2f",
			assets, liabilities+equity,
		))
		return
	}
	out.ValidationsPassed++
}

// checkCashFlowRollup flags a reported net change in cash that disagrees
// with the sum of the three activity sections. Flag-only, like the balance
// identity.
func (n *Normalizer) checkCashFlowRollup(out *NormalizedOutcome) {
	operating, okO := getNumber(out.Data, "operating.net_cash_operating")
	investing, okI := getNumber(out.Data, "investing.net_cash_investing")
	financing, okF := getNumber(out.Data, "financing.net_cash_financing")
	reported, okR := getNumber(out.Data, "net_change_in_cash")
	if !okR || (!okO && !okI && !okF) {
		return
	}

	out.ValidationsTotal++
	if math.Abs(reported-(operating+investing+financing)) > consistencyTolerance {
		out.Issues = append(out.Issues, fmt.Sprintf(
			"cash flow rollup mismatch: net change %.2f vs activities %.2f",
			reported, operating+investing+financing,
		))
		return
	}
	out.ValidationsPassed++
}

// deriveNetOperatingIncome computes NOI whenever both totals are present.
// Runs after the consistency passes so it sees reconciled totals.
func (n *Normalizer) deriveNetOperatingIncome(out *NormalizedOutcome, currency string) {
	revenue, okR := getNumber(out.Data, "revenue.total_revenue")
	expenses, okE := getNumber(out.Data, "expenses.total_expenses")
	if !okR || !okE {
		return
	}
	out.Metrics = append(out.Metrics, domain.FinancialMetric{
		Name:       "net_operating_income",
		Value:      revenue - expenses,
		Unit:       currency,
		Category:   "profitability",
		Confidence: 0.90,
		IsDerived:  true,
		Formula:    "revenue.total_revenue - expenses.total_expenses",
	})
}

func parseIfString(v any) any {
	if s, ok := v.(string); ok {
		return parse.Value(s)
	}
	return v
}

// setPath writes a value at a dotted path, creating intermediate maps.
func setPath(data map[string]any, path string, value any) {
	if value == nil {
		return
	}
	parts := strings.Split(path, ".")
	node := data
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[part] = child
		}
		node = child
	}
	node[parts[len(parts)-1]] = value
}

// getNumber reads a float64 leaf at a dotted path.
func getNumber(data map[string]any, path string) (float64, bool) {
	parts := strings.Split(path, ".")
	var node any = data
	for _, part := range parts {
		m, ok := node.(map[string]any)
		if !ok {
			return 0, false
		}
		node, ok = m[part]
		if !ok {
			return 0, false
		}
	}
	f, ok := node.(float64)
	return f, ok
}

// sumSection sums the numeric leaves directly under a section, excluding
// the named total leaf. components reports how many leaves contributed.
func sumSection(data map[string]any, section, excludeLeaf string) (sum float64, components int) {
	node, ok := data[section].(map[string]any)
	if !ok {
		return 0, 0
	}
	for key, value := range node {
		if key == excludeLeaf {
			continue
		}
		if f, ok := value.(float64); ok {
			sum += f
			components++
		}
	}
	return sum, components
}

// absSection rewrites a section's numeric leaves as magnitudes. Expense
// amounts arrive in accounting notation, so "(320,000)" parses to -320000;
// the canonical schema stores expenses as positive amounts and net
// operating income subtracts them from revenue.
func absSection(data map[string]any, section string) {
	node, ok := data[section].(map[string]any)
	if !ok {
		return
	}
	for key, value := range node {
		if f, ok := value.(float64); ok && f < 0 {
			node[key] = -f
		}
	}
}

// sectionTotal prefers an explicitly reported total leaf and otherwise
// falls back to summing the section's other leaves.
func sectionTotal(data map[string]any, section, totalLeaf string) (float64, bool) {
	if total, ok := getNumber(data, section+"."+totalLeaf); ok {
		return total, true
	}
	sum, components := sumSection(data, section, totalLeaf)
	if components == 0 {
		return 0, false
	}
	return sum, true
}
