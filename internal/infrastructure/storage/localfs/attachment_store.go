// Package localfs stores attachments on the local filesystem: one payload
// file plus a JSON sidecar carrying the metadata the pipeline needs to
// route and scope the document.
package localfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/prismintel/finpipe/internal/core/domain"
)

type AttachmentStore struct {
	basePath string
}

func New(basePath string) (*AttachmentStore, error) {
	if basePath == "" {
		basePath = "./data/attachments"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}
	return &AttachmentStore{basePath: basePath}, nil
}

type attachmentMeta struct {
	TenantID   string `json:"tenant_id"`
	PropertyID string `json:"property_id,omitempty"`
	Filename   string `json:"filename"`
	MimeType   string `json:"mime_type"`
}

func (s *AttachmentStore) Save(_ context.Context, att *domain.Attachment) error {
	if att.ID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "save attachment", errors.New("empty id"))
	}

	meta, err := json.Marshal(attachmentMeta{
		TenantID:   att.TenantID,
		PropertyID: att.PropertyID,
		Filename:   att.Filename,
		MimeType:   att.MimeType,
	})
	if err != nil {
		return fmt.Errorf("marshal attachment meta: %w", err)
	}

	if err := os.WriteFile(s.payloadPath(att.ID), att.Bytes, 0o644); err != nil {
		return fmt.Errorf("write attachment payload: %w", err)
	}
	if err := os.WriteFile(s.metaPath(att.ID), meta, 0o644); err != nil {
		return fmt.Errorf("write attachment meta: %w", err)
	}
	return nil
}

func (s *AttachmentStore) Get(_ context.Context, id string) (*domain.Attachment, error) {
	raw, err := os.ReadFile(s.metaPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrAttachmentNotFound, "get attachment", err)
		}
		return nil, fmt.Errorf("read attachment meta: %w", err)
	}

	var meta attachmentMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal attachment meta: %w", err)
	}

	payload, err := os.ReadFile(s.payloadPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrAttachmentNotFound, "get attachment", err)
		}
		return nil, fmt.Errorf("read attachment payload: %w", err)
	}

	return &domain.Attachment{
		ID:         id,
		TenantID:   meta.TenantID,
		PropertyID: meta.PropertyID,
		Filename:   meta.Filename,
		MimeType:   meta.MimeType,
		Bytes:      payload,
	}, nil
}

func (s *AttachmentStore) payloadPath(id string) string {
	return filepath.Join(s.basePath, id+".bin")
}

func (s *AttachmentStore) metaPath(id string) string {
	return filepath.Join(s.basePath, id+".json")
}
