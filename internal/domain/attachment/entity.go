package attachment

import (
	"time"

	"github.com/google/uuid"
)

// Attachment is a stored file referenced by File message bodies. The
// URL is what goes into the body content.
type Attachment struct {
	ID         uuid.UUID `db:"id" json:"id"`
	UploaderID uuid.UUID `db:"uploader_id" json:"uploader_id"`
	FileName   string    `db:"file_name" json:"file_name"`
	StorageKey string    `db:"storage_key" json:"-"`
	MimeType   string    `db:"mime_type" json:"mime_type"`
	SizeBytes  int64     `db:"size_bytes" json:"size_bytes"`
	URL        string    `db:"url" json:"url"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
