package room

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantType is a closed enum of room participant kinds. Internal
// admin staff never appear in the participant list, their involvement
// is implied by the originating ticket.
type ParticipantType string

const (
	ParticipantCustomer ParticipantType = "customer"
	ParticipantMerchant ParticipantType = "merchant"
)

// Room is a chat room bound to a support ticket by reference number.
// At most one room exists per (reference_no, reference_type) pair.
type Room struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	ReferenceNo   string         `db:"reference_no" json:"reference_no"`
	ReferenceType string         `db:"reference_type" json:"reference_type"`
	Participants  []*Participant `db:"-" json:"participants"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// Participant is a party in a chat room. The position column keeps the
// issue reporter first.
type Participant struct {
	RoomID         uuid.UUID       `db:"room_id" json:"-"`
	OrganisationID uuid.UUID       `db:"organisation_id" json:"organisation_id"`
	OutletID       uuid.NullUUID   `db:"outlet_id" json:"outlet_id,omitempty"`
	Type           ParticipantType `db:"type" json:"type"`
	Position       int             `db:"position" json:"-"`
}

// Customers returns the customer participants in room order
func (r *Room) Customers() []*Participant {
	out := []*Participant{}
	for _, p := range r.Participants {
		if p.Type == ParticipantCustomer {
			out = append(out, p)
		}
	}
	return out
}

// Merchants returns the merchant participants in room order
func (r *Room) Merchants() []*Participant {
	out := []*Participant{}
	for _, p := range r.Participants {
		if p.Type == ParticipantMerchant {
			out = append(out, p)
		}
	}
	return out
}
