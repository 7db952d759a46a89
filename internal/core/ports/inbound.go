package ports

import (
	"context"

	"github.com/prismintel/finpipe/internal/core/domain"
)

// AttachmentProcessor is the inbound contract for running the full pipeline
// on one attachment. Attachments are independent; any number may be
// processed concurrently.
type AttachmentProcessor interface {
	Process(ctx context.Context, event AttachmentEvent) (*domain.NormalizedFinancialData, error)
}
