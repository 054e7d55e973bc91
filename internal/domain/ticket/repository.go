package ticket

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines ticket data access
type Repository interface {
	Create(ctx context.Context, t *Ticket) error
	GetByID(ctx context.Context, id uuid.UUID) (*Ticket, error)
	GetByReference(ctx context.Context, referenceNo string) (*Ticket, error)
	UpdateAssignment(ctx context.Context, id uuid.UUID, merchantStaffID, adminID uuid.NullUUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]*Ticket, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates ticket repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, t *Ticket) error {
	query := `
		INSERT INTO support_tickets (
			id, reference_no, title, description, merchant_id, outlet_id,
			issue_reporter_id, issue_with_id, status, created_at, updated_at
		) VALUES (
			:id, :reference_no, :title, :description, :merchant_id, :outlet_id,
			:issue_reporter_id, :issue_with_id, :status, NOW(), NOW()
		)`

	_, err := r.db.NamedExecContext(ctx, query, t)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	var t Ticket
	query := `SELECT * FROM support_tickets WHERE id = $1`

	err := r.db.GetContext(ctx, &t, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return &t, nil
}

func (r *repository) GetByReference(ctx context.Context, referenceNo string) (*Ticket, error) {
	var t Ticket
	query := `SELECT * FROM support_tickets WHERE reference_no = $1`

	err := r.db.GetContext(ctx, &t, query, referenceNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ticket by reference: %w", err)
	}
	return &t, nil
}

func (r *repository) UpdateAssignment(ctx context.Context, id uuid.UUID, merchantStaffID, adminID uuid.NullUUID) error {
	query := `
		UPDATE support_tickets
		SET assigned_merchant_staff_id = $2, assigned_admin_id = $3, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, merchantStaffID, adminID)
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrTicketNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	query := `UPDATE support_tickets SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrTicketNotFound
	}
	return nil
}

func (r *repository) ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]*Ticket, error) {
	tickets := []*Ticket{}
	query := `
		SELECT * FROM support_tickets
		WHERE merchant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	err := r.db.SelectContext(ctx, &tickets, query, merchantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}
