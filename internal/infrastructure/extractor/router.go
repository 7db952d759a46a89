// Package extractor turns attachment bytes into format-independent raw
// extractions. The router dispatches on MIME type and extension; every
// strategy degrades to plain text rather than failing the pipeline.
package extractor

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/prismintel/finpipe/internal/core/domain"
)

type formatExtractor interface {
	Extract(ctx context.Context, att *domain.Attachment) (domain.RawExtraction, error)
}

// Router implements ports.ContentExtractor.
type Router struct {
	spreadsheet formatExtractor
	delimited   formatExtractor
	plaintext   formatExtractor
	imageStub   formatExtractor
	logger      *slog.Logger
}

func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		spreadsheet: NewSpreadsheetExtractor(),
		delimited:   NewDelimitedExtractor(),
		plaintext:   NewPlaintextExtractor(),
		imageStub:   NewImageStubExtractor(),
		logger:      logger,
	}
}

func (r *Router) Extract(ctx context.Context, att *domain.Attachment) (domain.RawExtraction, error) {
	strategy, name := r.route(att)

	ex, err := strategy.Extract(ctx, att)
	if err != nil {
		// Unreadable bytes for the claimed format are never fatal.
		r.logger.Warn("extraction_fallback",
			"attachment_id", att.ID,
			"filename", att.Filename,
			"strategy", name,
			"error", err,
		)
		return r.plaintext.Extract(ctx, att)
	}
	return ex, nil
}

func (r *Router) route(att *domain.Attachment) (formatExtractor, string) {
	mime := strings.ToLower(att.MimeType)
	ext := strings.ToLower(filepath.Ext(att.Filename))

	switch {
	case strings.Contains(mime, "spreadsheetml"),
		strings.Contains(mime, "ms-excel"),
		ext == ".xlsx", ext == ".xlsm", ext == ".xls":
		return r.spreadsheet, "spreadsheet"
	case strings.Contains(mime, "csv"),
		strings.Contains(mime, "tab-separated"),
		ext == ".csv", ext == ".tsv":
		return r.delimited, "delimited"
	case strings.HasPrefix(mime, "image/"),
		mime == "application/pdf",
		ext == ".pdf", ext == ".png", ext == ".jpg", ext == ".jpeg", ext == ".tiff":
		return r.imageStub, "image_stub"
	default:
		return r.plaintext, "plaintext"
	}
}
