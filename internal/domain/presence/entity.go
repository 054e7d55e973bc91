package presence

import (
	"time"

	"github.com/google/uuid"
)

// Status represents connection status
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Entry is one user's presence row. Rows are updated in place and
// never deleted, so UpdatedAt doubles as last-seen.
type Entry struct {
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	ConnectionID string    `db:"connection_id" json:"connection_id"`
	Status       Status    `db:"status" json:"status"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// IsOnline reports whether the entry currently counts as reachable
func (e *Entry) IsOnline() bool {
	return e.Status == StatusOnline
}
