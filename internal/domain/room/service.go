package room

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/galleycloud/ticket-chat-api/internal/domain/ticket"
)

// TicketReader is the slice of the ticket domain the room service needs
type TicketReader interface {
	GetByReference(ctx context.Context, referenceNo string) (*ticket.Ticket, error)
}

// Service handles room business logic
type Service struct {
	repo    Repository
	tickets TicketReader
}

// NewService creates room service
func NewService(repo Repository, tickets TicketReader) *Service {
	return &Service{repo: repo, tickets: tickets}
}

// Create opens the chat room for a ticket reference. The issue reporter
// is always the first participant, followed by the merchant side and,
// for order issues, the user the issue is with. Creating a second room
// for the same reference fails with ErrRoomExists.
func (s *Service) Create(ctx context.Context, req *CreateRoomRequest) (*Room, error) {
	t, err := s.tickets.GetByReference(ctx, req.ReferenceNo)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ticket.ErrTicketNotFound
	}

	r := &Room{
		ID:            uuid.New(),
		ReferenceNo:   req.ReferenceNo,
		ReferenceType: req.ReferenceType,
		Participants: []*Participant{
			{OrganisationID: t.IssueReporterID, Type: ParticipantCustomer},
			{OrganisationID: t.MerchantID, OutletID: t.OutletID, Type: ParticipantMerchant},
		},
	}
	if t.IsOrderIssue() && t.IssueWithID.Valid {
		r.Participants = append(r.Participants, &Participant{
			OrganisationID: t.IssueWithID.UUID,
			Type:           ParticipantCustomer,
		})
	}

	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}

	log.Info().
		Str("room_id", r.ID.String()).
		Str("reference_no", r.ReferenceNo).
		Int("participants", len(r.Participants)).
		Msg("Chat room created")

	return r, nil
}

// GetByID returns a room or ErrRoomNotFound
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Room, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// GetByReference returns the room for a ticket reference
func (s *Service) GetByReference(ctx context.Context, referenceNo, referenceType string) (*Room, error) {
	r, err := s.repo.GetByReference(ctx, referenceNo, referenceType)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// ListByOrganisation returns rooms a user or organisation participates in
func (s *Service) ListByOrganisation(ctx context.Context, organisationID uuid.UUID, limit, offset int) ([]*Room, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByOrganisation(ctx, organisationID, limit, offset)
}
