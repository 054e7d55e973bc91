package room

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository defines room data access
type Repository interface {
	Create(ctx context.Context, room *Room) error
	GetByID(ctx context.Context, id uuid.UUID) (*Room, error)
	GetByReference(ctx context.Context, referenceNo, referenceType string) (*Room, error)
	ListByOrganisation(ctx context.Context, organisationID uuid.UUID, limit, offset int) ([]*Room, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates room repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, room *Room) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO chat_rooms (id, reference_no, reference_type, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())`

	_, err = tx.ExecContext(ctx, query, room.ID, room.ReferenceNo, room.ReferenceType)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrRoomExists
		}
		return fmt.Errorf("failed to create room: %w", err)
	}

	for i, p := range room.Participants {
		p.RoomID = room.ID
		p.Position = i
		_, err = tx.ExecContext(ctx, `
			INSERT INTO chat_room_participants (room_id, organisation_id, outlet_id, type, position)
			VALUES ($1, $2, $3, $4, $5)`,
			p.RoomID, p.OrganisationID, p.OutletID, p.Type, p.Position)
		if err != nil {
			return fmt.Errorf("failed to add participant: %w", err)
		}
	}

	return tx.Commit()
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Room, error) {
	var room Room
	query := `SELECT id, reference_no, reference_type, created_at, updated_at FROM chat_rooms WHERE id = $1`

	err := r.db.GetContext(ctx, &room, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	if err := r.loadParticipants(ctx, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *repository) GetByReference(ctx context.Context, referenceNo, referenceType string) (*Room, error) {
	var room Room
	query := `
		SELECT id, reference_no, reference_type, created_at, updated_at
		FROM chat_rooms
		WHERE reference_no = $1 AND reference_type = $2`

	err := r.db.GetContext(ctx, &room, query, referenceNo, referenceType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get room by reference: %w", err)
	}

	if err := r.loadParticipants(ctx, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *repository) ListByOrganisation(ctx context.Context, organisationID uuid.UUID, limit, offset int) ([]*Room, error) {
	rooms := []*Room{}
	query := `
		SELECT cr.id, cr.reference_no, cr.reference_type, cr.created_at, cr.updated_at
		FROM chat_rooms cr
		JOIN chat_room_participants crp ON crp.room_id = cr.id
		WHERE crp.organisation_id = $1
		ORDER BY cr.updated_at DESC
		LIMIT $2 OFFSET $3`

	err := r.db.SelectContext(ctx, &rooms, query, organisationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	for _, room := range rooms {
		if err := r.loadParticipants(ctx, room); err != nil {
			return nil, err
		}
	}
	return rooms, nil
}

func (r *repository) loadParticipants(ctx context.Context, room *Room) error {
	participants := []*Participant{}
	query := `
		SELECT room_id, organisation_id, outlet_id, type, position
		FROM chat_room_participants
		WHERE room_id = $1
		ORDER BY position`

	err := r.db.SelectContext(ctx, &participants, query, room.ID)
	if err != nil {
		return fmt.Errorf("failed to load participants: %w", err)
	}
	room.Participants = participants
	return nil
}
