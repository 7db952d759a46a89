// Package schema holds the canonical financial schema all source documents
// are normalized into, plus the static label-variation table used when the
// mapping oracle is unavailable.
package schema

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/prismintel/finpipe/internal/core/domain"
)

//go:embed canonical.yaml
var canonicalYAML []byte

// Field is one canonical leaf: a dotted target path and the known source
// label variations that map onto it.
type Field struct {
	Path       string   `yaml:"path"`
	Variations []string `yaml:"variations"`
}

type reportSchema struct {
	Name   string  `yaml:"name"`
	Fields []Field `yaml:"fields"`
}

type document struct {
	ReportTypes []reportSchema `yaml:"report_types"`
}

// Registry resolves canonical fields per report type. Declaration order of
// fields is preserved; the static fallback depends on it.
type Registry struct {
	byType map[domain.ReportType][]Field
}

// Load parses the embedded canonical schema. The schema ships with the
// binary, so a parse failure is a build defect, not a runtime condition.
func Load() (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(canonicalYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse canonical schema: %w", err)
	}
	reg := &Registry{byType: make(map[domain.ReportType][]Field, len(doc.ReportTypes))}
	for _, rs := range doc.ReportTypes {
		rt, ok := domain.ParseReportType(rs.Name)
		if !ok {
			return nil, fmt.Errorf("canonical schema: unknown report type %q", rs.Name)
		}
		reg.byType[rt] = rs.Fields
	}
	return reg, nil
}

// MustLoad is Load for wiring paths where the embedded schema is trusted.
func MustLoad() *Registry {
	reg, err := Load()
	if err != nil {
		panic(err)
	}
	return reg
}

// Fields returns the canonical leaves for a report type in declaration
// order. Unknown report types fall back to the custom_report schema.
func (r *Registry) Fields(rt domain.ReportType) []Field {
	if fields, ok := r.byType[rt]; ok {
		return fields
	}
	return r.byType[domain.ReportCustom]
}

// Paths returns just the dotted target paths for a report type.
func (r *Registry) Paths(rt domain.ReportType) []string {
	fields := r.Fields(rt)
	paths := make([]string, 0, len(fields))
	for _, f := range fields {
		paths = append(paths, f.Path)
	}
	return paths
}

// HasPath reports whether a dotted path is a canonical leaf for the report
// type. Used to reject oracle-proposed paths outside the schema.
func (r *Registry) HasPath(rt domain.ReportType, path string) bool {
	for _, f := range r.Fields(rt) {
		if f.Path == path {
			return true
		}
	}
	return false
}

// NormalizeLabel lowercases a label and strips every non-alphanumeric rune,
// the comparison form for the static variation scan.
func NormalizeLabel(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
