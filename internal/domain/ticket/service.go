package ticket

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/galleycloud/ticket-chat-api/internal/domain/directory"
	"github.com/galleycloud/ticket-chat-api/internal/pkg/email"
)

// Service handles ticket business logic
type Service struct {
	repo        Repository
	directory   directory.Repository
	email       *email.Service
	chatBaseURL string
}

// NewService creates ticket service
func NewService(repo Repository, dir directory.Repository, emailSvc *email.Service, chatBaseURL string) *Service {
	return &Service{
		repo:        repo,
		directory:   dir,
		email:       emailSvc,
		chatBaseURL: chatBaseURL,
	}
}

// Create opens a new support ticket for a customer
func (s *Service) Create(ctx context.Context, reporterID uuid.UUID, req *CreateTicketRequest) (*Ticket, error) {
	t := &Ticket{
		ID:              uuid.New(),
		ReferenceNo:     generateReference(),
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		MerchantID:      req.MerchantID,
		IssueReporterID: reporterID,
		Status:          StatusOpen,
	}
	if req.OutletID != nil {
		t.OutletID = uuid.NullUUID{UUID: *req.OutletID, Valid: true}
	}
	if req.IssueWithID != nil {
		t.IssueWithID = uuid.NullUUID{UUID: *req.IssueWithID, Valid: true}
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	log.Info().
		Str("ticket_id", t.ID.String()).
		Str("reference_no", t.ReferenceNo).
		Msg("Ticket created")

	return t, nil
}

// GetByID returns a ticket or ErrTicketNotFound
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTicketNotFound
	}
	return t, nil
}

// GetByReference returns a ticket by its reference number
func (s *Service) GetByReference(ctx context.Context, referenceNo string) (*Ticket, error) {
	t, err := s.repo.GetByReference(ctx, referenceNo)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTicketNotFound
	}
	return t, nil
}

// Assign sets or clears the assigned handlers on a ticket. Passing nil
// for both sides clears the assignment and routing falls back to the
// role-based recipient set.
func (s *Service) Assign(ctx context.Context, ticketID uuid.UUID, req *AssignRequest) (*Ticket, error) {
	t, err := s.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	var merchantStaffID, adminID uuid.NullUUID

	if req.MerchantStaffID != nil {
		staff, err := s.directory.GetMerchantStaff(ctx, *req.MerchantStaffID)
		if err != nil {
			return nil, err
		}
		if staff == nil {
			return nil, ErrStaffNotFound
		}
		merchantStaffID = uuid.NullUUID{UUID: staff.ID, Valid: true}
		s.notifyAssignee(staff.Email, staff.FullName(), t)
	}

	if req.AdminStaffID != nil {
		admin, err := s.directory.GetAdminStaff(ctx, *req.AdminStaffID)
		if err != nil {
			return nil, err
		}
		if admin == nil {
			return nil, ErrStaffNotFound
		}
		adminID = uuid.NullUUID{UUID: admin.ID, Valid: true}
		s.notifyAssignee(admin.Email, admin.FullName(), t)
	}

	if err := s.repo.UpdateAssignment(ctx, ticketID, merchantStaffID, adminID); err != nil {
		return nil, err
	}

	t.AssignedMerchantStaffID = merchantStaffID
	t.AssignedAdminID = adminID
	return t, nil
}

// UpdateStatus changes ticket lifecycle status
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	return s.repo.UpdateStatus(ctx, id, status)
}

// ListByMerchant returns tickets for a merchant, newest first
func (s *Service) ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]*Ticket, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByMerchant(ctx, merchantID, limit, offset)
}

func (s *Service) notifyAssignee(toEmail, toName string, t *Ticket) {
	if s.email == nil || toEmail == "" {
		return
	}
	chatURL := fmt.Sprintf("%s/support/%s", s.chatBaseURL, t.ReferenceNo)
	s.email.SendTicketAssigned(toEmail, toName, t.ReferenceNo, chatURL)
}

func generateReference() string {
	b := make([]byte, 4)
	rand.Read(b)
	return fmt.Sprintf("TKT-%s", strings.ToUpper(hex.EncodeToString(b)))
}
