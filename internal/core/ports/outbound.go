package ports

import (
	"context"

	"github.com/prismintel/finpipe/internal/core/domain"
)

// AttachmentStore reads raw source documents by ID. A missing attachment is
// the only hard precondition failure in the pipeline.
type AttachmentStore interface {
	Get(ctx context.Context, id string) (*domain.Attachment, error)
	Save(ctx context.Context, att *domain.Attachment) error
}

// TemplateStore persists learned field-mapping templates per tenant.
// Upsert must be an atomic increment-or-insert on the template's key so
// concurrent attachments from one tenant never lose reinforcement updates.
type TemplateStore interface {
	Get(ctx context.Context, tenantID string, reportType domain.ReportType, sourceField string) (*domain.FieldMappingTemplate, error)
	Upsert(ctx context.Context, tpl *domain.FieldMappingTemplate) error
}

// ResultStore persists the final normalized result as an audit record.
type ResultStore interface {
	Save(ctx context.Context, result *domain.NormalizedFinancialData) error
	GetByAttachment(ctx context.Context, attachmentID string) (*domain.NormalizedFinancialData, error)
}

// Oracle is the natural-language classification/mapping service, modeled as
// one prompt-in/text-out call. Implementations must honor ctx cancellation;
// callers must tolerate it being absent, slow, or returning garbage.
type Oracle interface {
	ClassifyOrMap(ctx context.Context, prompt string) (string, error)
}

// ContentExtractor turns attachment bytes into a RawExtraction, dispatching
// on MIME type / extension.
type ContentExtractor interface {
	Extract(ctx context.Context, att *domain.Attachment) (domain.RawExtraction, error)
}

// AttachmentEvent is the queue envelope: just enough to locate the
// attachment and scope template learning.
type AttachmentEvent struct {
	AttachmentID string `json:"attachment_id"`
	TenantID     string `json:"tenant_id"`
	PropertyID   string `json:"property_id,omitempty"`
}

// MessageQueue publishes/consumes attachment-received events.
type MessageQueue interface {
	PublishAttachmentReceived(ctx context.Context, event AttachmentEvent) error
	SubscribeAttachmentReceived(ctx context.Context, handler func(context.Context, AttachmentEvent) error) error
}
