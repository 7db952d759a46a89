package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/prismintel/finpipe/internal/core/domain"
	"github.com/prismintel/finpipe/internal/core/ports"
	"github.com/prismintel/finpipe/internal/core/schema"
)

// staticMappingConfidence is assigned to static-table matches: above the
// acceptance threshold, below anything template- or oracle-confirmed.
const staticMappingConfidence = 0.75

// FieldMapper resolves raw source labels onto canonical schema paths.
// Resolution order per field: learned template (trusted unconditionally,
// reinforced), oracle batch (accepted above 70), static variation table
// (only when the oracle is unavailable or unusable).
type FieldMapper struct {
	templates ports.TemplateStore
	oracle    ports.Oracle
	registry  *schema.Registry
	logger    *slog.Logger
	now       func() time.Time
}

func NewFieldMapper(templates ports.TemplateStore, oracle ports.Oracle, registry *schema.Registry, logger *slog.Logger) *FieldMapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &FieldMapper{
		templates: templates,
		oracle:    oracle,
		registry:  registry,
		logger:    logger,
		now:       time.Now,
	}
}

// MapFields maps every source field it can and reports the rest as
// unmapped. Unresolved fields never fail the pipeline.
func (m *FieldMapper) MapFields(ctx context.Context, fields map[string]any, reportType domain.ReportType, tenantID string) ([]domain.FieldMapping, []string) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	mappings := make([]domain.FieldMapping, 0, len(names))
	var pending []string

	for _, name := range names {
		if mapping, ok := m.fromTemplate(ctx, tenantID, reportType, name); ok {
			mappings = append(mappings, mapping)
			continue
		}
		pending = append(pending, name)
	}

	if len(pending) > 0 {
		oracleMappings, err := m.fromOracle(ctx, pending, reportType, tenantID)
		if err == nil {
			mapped := make(map[string]bool, len(oracleMappings))
			for _, mp := range oracleMappings {
				mappings = append(mappings, mp)
				mapped[mp.SourceField] = true
			}
			pending = remaining(pending, mapped)
		} else {
			m.logger.Warn("mapping_fallback", "error", err)
			staticMappings := m.fromStaticTable(pending, reportType)
			mapped := make(map[string]bool, len(staticMappings))
			for _, mp := range staticMappings {
				mappings = append(mappings, mp)
				mapped[mp.SourceField] = true
			}
			pending = remaining(pending, mapped)
		}
	}

	accepted := mappings[:0]
	for _, mp := range mappings {
		// The fixed acceptance threshold; template hits are trusted as-is.
		if mp.Source != domain.MappingFromTemplate && mp.Confidence < domain.MappingAcceptThreshold {
			pending = append(pending, mp.SourceField)
			continue
		}
		accepted = append(accepted, mp)
	}
	sort.Strings(pending)
	return accepted, pending
}

func (m *FieldMapper) fromTemplate(ctx context.Context, tenantID string, reportType domain.ReportType, sourceField string) (domain.FieldMapping, bool) {
	tpl, err := m.templates.Get(ctx, tenantID, reportType, sourceField)
	if err != nil {
		if !domain.IsKind(err, domain.ErrTemplateNotFound) {
			m.logger.Warn("template_lookup_failed", "source_field", sourceField, "error", err)
		}
		return domain.FieldMapping{}, false
	}

	// Reinforce: usage count and recency bump via the store's atomic upsert.
	tpl.LastUsed = m.now().UTC()
	if err := m.templates.Upsert(ctx, tpl); err != nil {
		m.logger.Warn("template_reinforce_failed", "source_field", sourceField, "error", err)
	}

	return domain.FieldMapping{
		SourceField: sourceField,
		TargetPath:  tpl.TargetPath,
		Confidence:  tpl.Confidence,
		Source:      domain.MappingFromTemplate,
	}, true
}

type oracleMappingResponse struct {
	Mappings []struct {
		SourceField string  `json:"source_field"`
		TargetPath  string  `json:"target_path"`
		Confidence  float64 `json:"confidence"`
	} `json:"mappings"`
}

func (m *FieldMapper) fromOracle(ctx context.Context, fields []string, reportType domain.ReportType, tenantID string) ([]domain.FieldMapping, error) {
	if m.oracle == nil {
		return nil, fmt.Errorf("oracle not configured")
	}

	raw, err := m.oracle.ClassifyOrMap(ctx, m.buildMappingPrompt(fields, reportType))
	if err != nil {
		return nil, fmt.Errorf("oracle map: %w", err)
	}
	var resp oracleMappingResponse
	if err := decodeOracleJSON(raw, mappingSchema, &resp); err != nil {
		return nil, err
	}

	requested := make(map[string]bool, len(fields))
	for _, f := range fields {
		requested[f] = true
	}

	var out []domain.FieldMapping
	for _, proposed := range resp.Mappings {
		if !requested[proposed.SourceField] || proposed.Confidence <= 70 {
			continue
		}
		if !m.registry.HasPath(reportType, proposed.TargetPath) {
			m.logger.Warn("oracle_path_rejected", "target_path", proposed.TargetPath, "report_type", reportType)
			continue
		}
		confidence := clamp01(proposed.Confidence / 100)
		out = append(out, domain.FieldMapping{
			SourceField: proposed.SourceField,
			TargetPath:  proposed.TargetPath,
			Confidence:  confidence,
			Source:      domain.MappingFromOracle,
		})
		if err := m.templates.Upsert(ctx, &domain.FieldMappingTemplate{
			TenantID:    tenantID,
			ReportType:  reportType,
			SourceField: proposed.SourceField,
			TargetPath:  proposed.TargetPath,
			Confidence:  confidence,
			UsageCount:  1,
			LastUsed:    m.now().UTC(),
		}); err != nil {
			m.logger.Warn("template_persist_failed", "source_field", proposed.SourceField, "error", err)
		}
	}
	return out, nil
}

// fromStaticTable is the deterministic last resort: normalized substring
// match against the curated variation table, scanned in declaration order,
// first match wins.
func (m *FieldMapper) fromStaticTable(fields []string, reportType domain.ReportType) []domain.FieldMapping {
	var out []domain.FieldMapping
	for _, name := range fields {
		normalized := schema.NormalizeLabel(name)
		if normalized == "" {
			continue
		}
	scan:
		for _, field := range m.registry.Fields(reportType) {
			for _, variation := range field.Variations {
				if strings.Contains(normalized, schema.NormalizeLabel(variation)) {
					out = append(out, domain.FieldMapping{
						SourceField: name,
						TargetPath:  field.Path,
						Confidence:  staticMappingConfidence,
						Source:      domain.MappingFromStatic,
					})
					break scan
				}
			}
		}
	}
	return out
}

func (m *FieldMapper) buildMappingPrompt(fields []string, reportType domain.ReportType) string {
	var b strings.Builder
	b.WriteString("You map raw financial field labels onto a fixed canonical schema for a ")
	b.WriteString(string(reportType))
	b.WriteString(`.
Return a strict JSON object: {"mappings": [{"source_field": string, "target_path": string, "confidence": number 0-100}]}.
Only use target paths from the canonical schema below. Omit fields you cannot map. No markdown, no extra keys.

Canonical schema (path: known synonyms):
`)
	for _, field := range m.registry.Fields(reportType) {
		fmt.Fprintf(&b, "- %s: %s\n", field.Path, strings.Join(field.Variations, ", "))
	}
	b.WriteString("\nSource fields:\n")
	for _, f := range fields {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	return b.String()
}

func remaining(fields []string, mapped map[string]bool) []string {
	var out []string
	for _, f := range fields {
		if !mapped[f] {
			out = append(out, f)
		}
	}
	return out
}
