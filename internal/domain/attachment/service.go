package attachment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/galleycloud/ticket-chat-api/internal/pkg/storage"
)

var (
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrNotOwner           = errors.New("not the owner of this attachment")
)

// Service handles attachment business logic
type Service struct {
	repo  Repository
	store storage.ObjectStorage
}

// NewService creates attachment service. store may be nil when object
// storage is not configured, uploads are rejected in that case.
func NewService(repo Repository, store storage.ObjectStorage) *Service {
	return &Service{repo: repo, store: store}
}

// Upload validates and stores a file, returning the attachment whose
// URL can be used as a File message body.
func (s *Service) Upload(ctx context.Context, uploaderID uuid.UUID, fileName string, reader io.Reader) (*Attachment, error) {
	if s.store == nil {
		return nil, errors.New("object storage is not configured")
	}

	buf, mimeType, err := storage.ValidateAttachment(reader)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	key := fmt.Sprintf("chat/%s/%d%s",
		id, time.Now().Unix(), storage.GetExtensionForMime(mimeType))

	size := int64(buf.Len())
	if err := s.store.Put(ctx, key, buf, mimeType); err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}

	a := &Attachment{
		ID:         id,
		UploaderID: uploaderID,
		FileName:   fileName,
		StorageKey: key,
		MimeType:   mimeType,
		SizeBytes:  size,
		URL:        s.store.GetURL(key),
	}

	if err := s.repo.Create(ctx, a); err != nil {
		// Best-effort cleanup of the orphaned object
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			log.Warn().Err(delErr).Str("key", key).Msg("Failed to clean up orphaned attachment object")
		}
		return nil, err
	}

	return a, nil
}

// GetByID returns an attachment or ErrAttachmentNotFound
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Attachment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAttachmentNotFound
	}
	return a, nil
}

// Delete removes an attachment and its stored object. Only the
// uploader may delete.
func (s *Service) Delete(ctx context.Context, id, callerID uuid.UUID) error {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if a == nil {
		return ErrAttachmentNotFound
	}
	if a.UploaderID != callerID {
		return ErrNotOwner
	}

	if s.store != nil {
		if err := s.store.Delete(ctx, a.StorageKey); err != nil {
			log.Warn().Err(err).Str("key", a.StorageKey).Msg("Failed to delete attachment object")
		}
	}
	return s.repo.Delete(ctx, id)
}
