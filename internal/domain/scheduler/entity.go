package scheduler

import (
	"time"

	"github.com/google/uuid"
)

// Obligation is a pending deferred-notification record. One row exists
// per contact address at a time, keyed by the first unread message that
// opened it. Later unread messages for the same address bump
// UnreadCount instead of inserting new rows.
type Obligation struct {
	RecipientUserID uuid.UUID `db:"recipient_user_id" json:"recipient_user_id"`
	MessageID       uuid.UUID `db:"message_id" json:"message_id"`
	ContactAddress  string    `db:"contact_address" json:"contact_address"`
	DisplayName     string    `db:"display_name" json:"display_name"`
	UnreadCount     int       `db:"unread_count" json:"unread_count"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
