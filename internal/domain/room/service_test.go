package room

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/galleycloud/ticket-chat-api/internal/domain/ticket"
)

type fakeRoomRepo struct {
	rooms map[string]*Room
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{rooms: make(map[string]*Room)}
}

func (f *fakeRoomRepo) Create(ctx context.Context, r *Room) error {
	key := r.ReferenceNo + "/" + r.ReferenceType
	if _, ok := f.rooms[key]; ok {
		return ErrRoomExists
	}
	f.rooms[key] = r
	return nil
}

func (f *fakeRoomRepo) GetByID(ctx context.Context, id uuid.UUID) (*Room, error) {
	for _, r := range f.rooms {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeRoomRepo) GetByReference(ctx context.Context, referenceNo, referenceType string) (*Room, error) {
	r, ok := f.rooms[referenceNo+"/"+referenceType]
	if !ok {
		return nil, nil
	}
	return r, nil
}

func (f *fakeRoomRepo) ListByOrganisation(ctx context.Context, organisationID uuid.UUID, limit, offset int) ([]*Room, error) {
	out := []*Room{}
	for _, r := range f.rooms {
		for _, p := range r.Participants {
			if p.OrganisationID == organisationID {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

type fakeTicketReader struct {
	tickets map[string]*ticket.Ticket
}

func (f *fakeTicketReader) GetByReference(ctx context.Context, referenceNo string) (*ticket.Ticket, error) {
	return f.tickets[referenceNo], nil
}

func TestCreateBuildsParticipantsFromTicket(t *testing.T) {
	reporter := uuid.New()
	merchant := uuid.New()
	outlet := uuid.New()

	tickets := &fakeTicketReader{tickets: map[string]*ticket.Ticket{
		"TKT-1001": {
			ID:              uuid.New(),
			ReferenceNo:     "TKT-1001",
			Title:           "refund",
			MerchantID:      merchant,
			OutletID:        uuid.NullUUID{UUID: outlet, Valid: true},
			IssueReporterID: reporter,
		},
	}}
	svc := NewService(newFakeRoomRepo(), tickets)

	room, err := svc.Create(context.Background(), &CreateRoomRequest{
		ReferenceNo:   "TKT-1001",
		ReferenceType: "ticket",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if len(room.Participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(room.Participants))
	}
	if room.Participants[0].OrganisationID != reporter || room.Participants[0].Type != ParticipantCustomer {
		t.Errorf("first participant should be the issue reporter")
	}
	if room.Participants[1].OrganisationID != merchant || room.Participants[1].Type != ParticipantMerchant {
		t.Errorf("second participant should be the merchant")
	}
	if !room.Participants[1].OutletID.Valid || room.Participants[1].OutletID.UUID != outlet {
		t.Errorf("merchant participant should carry the ticket outlet")
	}
}

func TestOrderTicketAddsIssueWithParticipant(t *testing.T) {
	reporter := uuid.New()
	issueWith := uuid.New()

	tickets := &fakeTicketReader{tickets: map[string]*ticket.Ticket{
		"TKT-2002": {
			ID:              uuid.New(),
			ReferenceNo:     "TKT-2002",
			Title:           "order",
			MerchantID:      uuid.New(),
			IssueReporterID: reporter,
			IssueWithID:     uuid.NullUUID{UUID: issueWith, Valid: true},
		},
	}}
	svc := NewService(newFakeRoomRepo(), tickets)

	room, err := svc.Create(context.Background(), &CreateRoomRequest{
		ReferenceNo:   "TKT-2002",
		ReferenceType: "order",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if len(room.Participants) != 3 {
		t.Fatalf("expected 3 participants, got %d", len(room.Participants))
	}
	last := room.Participants[2]
	if last.OrganisationID != issueWith || last.Type != ParticipantCustomer {
		t.Errorf("order ticket should add the issue-with user as a customer participant")
	}
}

func TestDuplicateRoomCreationFails(t *testing.T) {
	tickets := &fakeTicketReader{tickets: map[string]*ticket.Ticket{
		"TKT-3003": {
			ID:              uuid.New(),
			ReferenceNo:     "TKT-3003",
			Title:           "billing",
			MerchantID:      uuid.New(),
			IssueReporterID: uuid.New(),
		},
	}}
	svc := NewService(newFakeRoomRepo(), tickets)

	req := &CreateRoomRequest{ReferenceNo: "TKT-3003", ReferenceType: "ticket"}
	if _, err := svc.Create(context.Background(), req); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	_, err := svc.Create(context.Background(), req)
	if !errors.Is(err, ErrRoomExists) {
		t.Fatalf("expected ErrRoomExists, got %v", err)
	}
}

func TestCreateUnknownReferenceFails(t *testing.T) {
	svc := NewService(newFakeRoomRepo(), &fakeTicketReader{tickets: map[string]*ticket.Ticket{}})

	_, err := svc.Create(context.Background(), &CreateRoomRequest{
		ReferenceNo:   "TKT-9999",
		ReferenceType: "ticket",
	})
	if !errors.Is(err, ticket.ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
}
