package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Oracle responses are free text in theory; in practice we ask for JSON and
// validate it before trusting anything in it. A response that fails schema
// validation counts as an oracle failure and triggers the deterministic
// fallback.

const classificationSchemaJSON = `{
	"type": "object",
	"required": ["report_type", "structure_type", "confidence"],
	"properties": {
		"report_type": {
			"type": "string",
			"enum": ["income_statement", "balance_sheet", "cash_flow_statement", "trial_balance", "general_ledger", "operational_report", "custom_report"]
		},
		"structure_type": {
			"type": "string",
			"enum": ["structured", "semi_structured", "unstructured"]
		},
		"confidence": {"type": "number", "minimum": 0, "maximum": 100},
		"indicators": {"type": "array", "items": {"type": "string"}},
		"time_period": {
			"type": "object",
			"properties": {
				"start": {"type": "string"},
				"end": {"type": "string"}
			}
		}
	}
}`

const mappingSchemaJSON = `{
	"type": "object",
	"required": ["mappings"],
	"properties": {
		"mappings": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["source_field", "target_path", "confidence"],
				"properties": {
					"source_field": {"type": "string"},
					"target_path": {"type": "string"},
					"confidence": {"type": "number", "minimum": 0, "maximum": 100}
				}
			}
		}
	}
}`

var (
	classificationSchema = jsonschema.MustCompileString("classification.json", classificationSchemaJSON)
	mappingSchema        = jsonschema.MustCompileString("mapping.json", mappingSchemaJSON)
)

// decodeOracleJSON locates the JSON object in an oracle response, validates
// it against the given schema, and decodes it into out.
func decodeOracleJSON(raw string, sch *jsonschema.Schema, out any) error {
	payload := extractJSONObject(raw)

	var generic any
	if err := json.Unmarshal([]byte(payload), &generic); err != nil {
		return fmt.Errorf("decode oracle response: %w", err)
	}
	if err := sch.Validate(generic); err != nil {
		return fmt.Errorf("validate oracle response: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("decode oracle response: %w", err)
	}
	return nil
}

// extractJSONObject trims any prose the oracle wrapped around its JSON.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
