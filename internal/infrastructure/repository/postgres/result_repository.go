package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prismintel/finpipe/internal/core/domain"
)

// ResultRepository stores the final normalized output as an audit record.
// The full result travels as one JSONB payload; the indexed columns exist
// for lookup, not for querying inside the financial data.
type ResultRepository struct {
	db *sql.DB
}

func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

func (r *ResultRepository) Save(ctx context.Context, result *domain.NormalizedFinancialData) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO normalized_results (id, attachment_id, tenant_id, property_id, report_type, currency, payload, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`,
		result.ID, result.AttachmentID, result.TenantID, result.PropertyID,
		string(result.ReportType), result.Currency, payload, result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (r *ResultRepository) GetByAttachment(ctx context.Context, attachmentID string) (*domain.NormalizedFinancialData, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT payload
FROM normalized_results
WHERE attachment_id = $1
ORDER BY created_at DESC
LIMIT 1
`, attachmentID)

	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("result for attachment %s not found", attachmentID)
		}
		return nil, fmt.Errorf("query result: %w", err)
	}

	var result domain.NormalizedFinancialData
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &result, nil
}
