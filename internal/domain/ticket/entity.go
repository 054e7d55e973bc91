package ticket

import (
	"time"

	"github.com/google/uuid"
)

// Status represents ticket lifecycle status
type Status string

const (
	StatusOpen     Status = "open"
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
	StatusClosed   Status = "closed"
)

// Ticket is a customer support ticket. Chat rooms reference tickets by
// reference number, and message routing reads the assignment fields.
type Ticket struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ReferenceNo string    `db:"reference_no" json:"reference_no"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`

	MerchantID uuid.UUID     `db:"merchant_id" json:"merchant_id"`
	OutletID   uuid.NullUUID `db:"outlet_id" json:"outlet_id,omitempty"`

	IssueReporterID uuid.UUID     `db:"issue_reporter_id" json:"issue_reporter_id"`
	IssueWithID     uuid.NullUUID `db:"issue_with_id" json:"issue_with_id,omitempty"`

	AssignedMerchantStaffID uuid.NullUUID `db:"assigned_merchant_staff_id" json:"assigned_merchant_staff_id,omitempty"`
	AssignedAdminID         uuid.NullUUID `db:"assigned_admin_id" json:"assigned_admin_id,omitempty"`

	Status    Status    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsOrderIssue reports whether the ticket concerns an order. Order
// tickets carry a second participant, the user the issue is with.
func (t *Ticket) IsOrderIssue() bool {
	return t.Title == "order"
}
