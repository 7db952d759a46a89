package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/prismintel/finpipe/internal/core/domain"
)

// TemplateRepository persists learned field-mapping templates. The upsert
// is a single ON CONFLICT statement so concurrent workers reinforcing the
// same template never lose an increment.
type TemplateRepository struct {
	db *sql.DB
}

func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *TemplateRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026090101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS field_mapping_templates (
	tenant_id TEXT NOT NULL,
	report_type TEXT NOT NULL,
	source_field TEXT NOT NULL,
	target_path TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	usage_count BIGINT NOT NULL DEFAULT 1,
	last_used TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (tenant_id, report_type, source_field)
);

CREATE TABLE IF NOT EXISTS normalized_results (
	id TEXT PRIMARY KEY,
	attachment_id TEXT NOT NULL,
	tenant_id TEXT NOT NULL,
	property_id TEXT,
	report_type TEXT NOT NULL,
	currency TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_normalized_results_attachment ON normalized_results(attachment_id);
CREATE INDEX IF NOT EXISTS idx_normalized_results_tenant ON normalized_results(tenant_id, created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *TemplateRepository) Get(ctx context.Context, tenantID string, reportType domain.ReportType, sourceField string) (*domain.FieldMappingTemplate, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT tenant_id, report_type, source_field, target_path, confidence, usage_count, last_used
FROM field_mapping_templates
WHERE tenant_id = $1 AND report_type = $2 AND source_field = $3
`, tenantID, string(reportType), sourceField)

	var tpl domain.FieldMappingTemplate
	var rt string
	err := row.Scan(&tpl.TenantID, &rt, &tpl.SourceField, &tpl.TargetPath, &tpl.Confidence, &tpl.UsageCount, &tpl.LastUsed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrTemplateNotFound, "get template", err)
		}
		return nil, fmt.Errorf("query template: %w", err)
	}
	tpl.ReportType, _ = domain.ParseReportType(rt)
	return &tpl, nil
}

// Upsert inserts a new template or reinforces an existing one: usage count
// goes up by one, last_used advances, and confidence creeps toward 1.0.
func (r *TemplateRepository) Upsert(ctx context.Context, tpl *domain.FieldMappingTemplate) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO field_mapping_templates (tenant_id, report_type, source_field, target_path, confidence, usage_count, last_used)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (tenant_id, report_type, source_field) DO UPDATE SET
	usage_count = field_mapping_templates.usage_count + 1,
	last_used = EXCLUDED.last_used,
	confidence = LEAST(1.0, field_mapping_templates.confidence + 0.01)
`,
		tpl.TenantID, string(tpl.ReportType), tpl.SourceField, tpl.TargetPath,
		tpl.Confidence, tpl.UsageCount, tpl.LastUsed,
	)
	if err != nil {
		return fmt.Errorf("upsert template: %w", err)
	}
	return nil
}
