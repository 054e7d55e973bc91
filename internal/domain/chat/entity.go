package chat

import (
	"time"

	"github.com/google/uuid"
)

// MessageType distinguishes user messages from system events
type MessageType string

const (
	TypeMessage MessageType = "Message"
	TypeEvent   MessageType = "Event"
)

// BodyType is the message body variant tag
type BodyType string

const (
	BodyText BodyType = "Text"
	BodyFile BodyType = "File"
)

// ActorType identifies which side of the support conversation a user
// belongs to
type ActorType string

const (
	ActorCustomer      ActorType = "customer"
	ActorMerchant      ActorType = "merchant"
	ActorInternalAdmin ActorType = "internalAdmin"
)

// Body is a tagged union. Content holds text for Text bodies and an
// object storage URL for File bodies.
type Body struct {
	Type    BodyType `json:"type" validate:"required,body_type"`
	Content string   `json:"content" validate:"required,max=10000"`
}

// Sender identifies who sent a message
type Sender struct {
	ID   uuid.UUID `json:"id"`
	Type ActorType `json:"type"`
}

// ReadReceipt records that a user has seen a message. The sender never
// gets a receipt, they are implicitly considered to have read their
// own message.
type ReadReceipt struct {
	MessageID uuid.UUID `db:"message_id" json:"-"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Type      ActorType `db:"type" json:"type"`
	Timestamp time.Time `db:"created_at" json:"timestamp"`
}

// Message is a chat message in a support room
type Message struct {
	ID         uuid.UUID      `db:"id" json:"id"`
	ChatRoomID uuid.UUID      `db:"chat_room_id" json:"chat_room_id"`
	Type       MessageType    `db:"type" json:"type"`
	Body       Body           `db:"-" json:"body"`
	Sender     Sender         `db:"-" json:"sender"`
	ReadBy     []*ReadReceipt `db:"-" json:"read_by"`
	Deleted    bool           `db:"deleted" json:"deleted"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}

// HasRead reports whether a user has seen this message. The sender
// always counts as having read it.
func (m *Message) HasRead(userID uuid.UUID) bool {
	if m.Sender.ID == userID {
		return true
	}
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// messageRow is the flat database shape of Message
type messageRow struct {
	ID          uuid.UUID   `db:"id"`
	ChatRoomID  uuid.UUID   `db:"chat_room_id"`
	Type        MessageType `db:"type"`
	BodyType    BodyType    `db:"body_type"`
	BodyContent string      `db:"body_content"`
	SenderID    uuid.UUID   `db:"sender_id"`
	SenderType  ActorType   `db:"sender_type"`
	Deleted     bool        `db:"deleted"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (r *messageRow) toEntity() *Message {
	return &Message{
		ID:         r.ID,
		ChatRoomID: r.ChatRoomID,
		Type:       r.Type,
		Body:       Body{Type: r.BodyType, Content: r.BodyContent},
		Sender:     Sender{ID: r.SenderID, Type: r.SenderType},
		ReadBy:     []*ReadReceipt{},
		Deleted:    r.Deleted,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}
