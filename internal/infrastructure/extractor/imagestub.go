package extractor

import (
	"context"

	"github.com/prismintel/finpipe/internal/core/domain"
)

// ImageStubExtractor covers images and PDFs. OCR is out of scope, so it
// yields an empty extraction; the classifier then degrades to its
// low-confidence default rather than failing the pipeline.
type ImageStubExtractor struct{}

func NewImageStubExtractor() *ImageStubExtractor {
	return &ImageStubExtractor{}
}

func (e *ImageStubExtractor) Extract(_ context.Context, _ *domain.Attachment) (domain.RawExtraction, error) {
	return domain.NewRawExtraction(), nil
}
