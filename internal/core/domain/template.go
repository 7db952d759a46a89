package domain

import "time"

// FieldMappingTemplate is a persisted, tenant-scoped mapping from an
// observed source label to a canonical schema path. Unique per
// (TenantID, ReportType, SourceField). This is the pipeline's only
// persistent learning state: reinforced on every exact re-match, no expiry.
type FieldMappingTemplate struct {
	TenantID    string     `json:"tenant_id"`
	ReportType  ReportType `json:"report_type"`
	SourceField string     `json:"source_field"`
	TargetPath  string     `json:"target_path"`
	Confidence  float64    `json:"confidence"`
	UsageCount  int64      `json:"usage_count"`
	LastUsed    time.Time  `json:"last_used"`
}

// MappingSource records which resolution tier produced a mapping.
type MappingSource string

const (
	MappingFromTemplate MappingSource = "template"
	MappingFromOracle   MappingSource = "oracle"
	MappingFromStatic   MappingSource = "static"
)

// FieldMapping is one accepted source-field → canonical-path resolution
// for the current attachment.
type FieldMapping struct {
	SourceField string        `json:"source_field"`
	TargetPath  string        `json:"target_path"`
	Confidence  float64       `json:"confidence"`
	Source      MappingSource `json:"source"`
}

// MappingAcceptThreshold is the fixed minimum confidence for a mapping to
// be applied to the normalized schema. Not tenant-configurable.
const MappingAcceptThreshold = 0.70
