package domain

import "time"

type ReportType string

const (
	ReportIncomeStatement   ReportType = "income_statement"
	ReportBalanceSheet      ReportType = "balance_sheet"
	ReportCashFlowStatement ReportType = "cash_flow_statement"
	ReportTrialBalance      ReportType = "trial_balance"
	ReportGeneralLedger     ReportType = "general_ledger"
	ReportOperational       ReportType = "operational_report"
	ReportCustom            ReportType = "custom_report"
)

// KnownReportTypes lists the accepted enum values in a fixed order.
var KnownReportTypes = []ReportType{
	ReportIncomeStatement,
	ReportBalanceSheet,
	ReportCashFlowStatement,
	ReportTrialBalance,
	ReportGeneralLedger,
	ReportOperational,
	ReportCustom,
}

func ParseReportType(s string) (ReportType, bool) {
	for _, rt := range KnownReportTypes {
		if string(rt) == s {
			return rt, true
		}
	}
	return ReportCustom, false
}

type StructureType string

const (
	StructureStructured     StructureType = "structured"
	StructureSemiStructured StructureType = "semi_structured"
	StructureUnstructured   StructureType = "unstructured"
)

func ParseStructureType(s string) (StructureType, bool) {
	switch StructureType(s) {
	case StructureStructured, StructureSemiStructured, StructureUnstructured:
		return StructureType(s), true
	}
	return StructureUnstructured, false
}

type TimePeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ClassificationResult is the classifier's verdict on one extraction.
// Confidence is normalized to [0,1] regardless of how it was produced.
type ClassificationResult struct {
	ReportType    ReportType    `json:"report_type"`
	StructureType StructureType `json:"structure_type"`
	Confidence    float64       `json:"confidence"`
	Indicators    []string      `json:"indicators,omitempty"`
	TimePeriod    *TimePeriod   `json:"time_period,omitempty"`
}
