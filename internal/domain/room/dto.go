package room

// CreateRoomRequest for POST /rooms. The reference must point at an
// existing support ticket.
type CreateRoomRequest struct {
	ReferenceNo   string `json:"reference_no" validate:"required"`
	ReferenceType string `json:"reference_type" validate:"required,oneof=ticket order"`
}
