package chat

import (
	"time"

	"github.com/google/uuid"
)

// SendMessageRequest for POST /rooms/{id}/messages
type SendMessageRequest struct {
	Type MessageType `json:"type" validate:"omitempty,message_type"`
	Body Body        `json:"body" validate:"required"`
}

// MarkReadRequest for POST /rooms/{id}/read. Each listed message is
// processed independently.
type MarkReadRequest struct {
	MessageIDs []uuid.UUID `json:"message_ids" validate:"required,min=1,max=100"`
}

// MarkReadResult reports per-message outcome of a batch read
type MarkReadResult struct {
	MessageID uuid.UUID `json:"message_id"`
	Status    string    `json:"status"` // viewed, already_viewed, not_found
}

// MessageResponse represents message in API
type MessageResponse struct {
	ID         uuid.UUID      `json:"id"`
	ChatRoomID uuid.UUID      `json:"chat_room_id"`
	Type       MessageType    `json:"type"`
	Body       Body           `json:"body"`
	Sender     Sender         `json:"sender"`
	ReadBy     []*ReadReceipt `json:"read_by"`
	IsMine     bool           `json:"is_mine"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ParticipantStatus is the room census entry: every participant with
// their current reachability.
type ParticipantStatus struct {
	OrganisationID uuid.UUID `json:"organisation_id"`
	Type           string    `json:"type"`
	Active         bool      `json:"active"`
}

// MessageResponseFromEntity converts entity to response
func MessageResponseFromEntity(m *Message, viewerID uuid.UUID) *MessageResponse {
	return &MessageResponse{
		ID:         m.ID,
		ChatRoomID: m.ChatRoomID,
		Type:       m.Type,
		Body:       m.Body,
		Sender:     m.Sender,
		ReadBy:     m.ReadBy,
		IsMine:     m.Sender.ID == viewerID,
		CreatedAt:  m.CreatedAt,
	}
}
