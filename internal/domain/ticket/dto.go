package ticket

import (
	"github.com/google/uuid"
)

// CreateTicketRequest for POST /tickets
type CreateTicketRequest struct {
	Title       string     `json:"title" validate:"required,min=2,max=100"`
	Description string     `json:"description" validate:"max=2000"`
	MerchantID  uuid.UUID  `json:"merchant_id" validate:"required"`
	OutletID    *uuid.UUID `json:"outlet_id,omitempty"`
	IssueWithID *uuid.UUID `json:"issue_with_id,omitempty"`
}

// AssignRequest for PATCH /tickets/{id}/assignment
type AssignRequest struct {
	MerchantStaffID *uuid.UUID `json:"merchant_staff_id,omitempty"`
	AdminStaffID    *uuid.UUID `json:"admin_staff_id,omitempty"`
}

// TicketResponse represents ticket in API
type TicketResponse struct {
	ID                      uuid.UUID  `json:"id"`
	ReferenceNo             string     `json:"reference_no"`
	Title                   string     `json:"title"`
	Description             string     `json:"description,omitempty"`
	MerchantID              uuid.UUID  `json:"merchant_id"`
	OutletID                *uuid.UUID `json:"outlet_id,omitempty"`
	IssueReporterID         uuid.UUID  `json:"issue_reporter_id"`
	IssueWithID             *uuid.UUID `json:"issue_with_id,omitempty"`
	AssignedMerchantStaffID *uuid.UUID `json:"assigned_merchant_staff_id,omitempty"`
	AssignedAdminID         *uuid.UUID `json:"assigned_admin_id,omitempty"`
	Status                  string     `json:"status"`
	CreatedAt               string     `json:"created_at"`
}

// ResponseFromEntity converts entity to response
func ResponseFromEntity(t *Ticket) *TicketResponse {
	resp := &TicketResponse{
		ID:              t.ID,
		ReferenceNo:     t.ReferenceNo,
		Title:           t.Title,
		Description:     t.Description,
		MerchantID:      t.MerchantID,
		IssueReporterID: t.IssueReporterID,
		Status:          string(t.Status),
		CreatedAt:       t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if t.OutletID.Valid {
		resp.OutletID = &t.OutletID.UUID
	}
	if t.IssueWithID.Valid {
		resp.IssueWithID = &t.IssueWithID.UUID
	}
	if t.AssignedMerchantStaffID.Valid {
		resp.AssignedMerchantStaffID = &t.AssignedMerchantStaffID.UUID
	}
	if t.AssignedAdminID.Valid {
		resp.AssignedAdminID = &t.AssignedAdminID.UUID
	}
	return resp
}
