package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines obligation data access. Every mutation is a single
// atomic statement, the state machine relies on that instead of
// in-process locks.
type Repository interface {
	Insert(ctx context.Context, o *Obligation) error

	// IncrementByContact bumps the unread count of the pending
	// obligation for a contact address. Returns false when no such
	// obligation exists.
	IncrementByContact(ctx context.Context, contactAddress string) (bool, error)

	GetByContact(ctx context.Context, contactAddress string) (*Obligation, error)

	// DecrementByRecipient settles one read message against the
	// recipient's batched obligation. Returns false when the row is
	// absent or already down to its last unread message.
	DecrementByRecipient(ctx context.Context, recipientID uuid.UUID) (bool, error)

	DeleteByRecipient(ctx context.Context, recipientID uuid.UUID) (int64, error)

	DeleteByContact(ctx context.Context, contactAddress string) (int64, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates obligation repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, o *Obligation) error {
	query := `
		INSERT INTO unread_obligations (
			recipient_user_id, message_id, contact_address, display_name, unread_count, created_at
		) VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (recipient_user_id, message_id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		o.RecipientUserID, o.MessageID, o.ContactAddress, o.DisplayName, o.UnreadCount)
	if err != nil {
		return fmt.Errorf("failed to insert obligation: %w", err)
	}
	return nil
}

func (r *repository) IncrementByContact(ctx context.Context, contactAddress string) (bool, error) {
	query := `UPDATE unread_obligations SET unread_count = unread_count + 1 WHERE contact_address = $1`

	result, err := r.db.ExecContext(ctx, query, contactAddress)
	if err != nil {
		return false, fmt.Errorf("failed to increment obligation: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (r *repository) GetByContact(ctx context.Context, contactAddress string) (*Obligation, error) {
	var o Obligation
	query := `SELECT * FROM unread_obligations WHERE contact_address = $1 LIMIT 1`

	err := r.db.GetContext(ctx, &o, query, contactAddress)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get obligation: %w", err)
	}
	return &o, nil
}

func (r *repository) DecrementByRecipient(ctx context.Context, recipientID uuid.UUID) (bool, error) {
	query := `
		UPDATE unread_obligations
		SET unread_count = unread_count - 1
		WHERE recipient_user_id = $1 AND unread_count > 1`

	result, err := r.db.ExecContext(ctx, query, recipientID)
	if err != nil {
		return false, fmt.Errorf("failed to decrement obligation: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (r *repository) DeleteByRecipient(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	query := `DELETE FROM unread_obligations WHERE recipient_user_id = $1`

	result, err := r.db.ExecContext(ctx, query, recipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete obligation: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

func (r *repository) DeleteByContact(ctx context.Context, contactAddress string) (int64, error) {
	query := `DELETE FROM unread_obligations WHERE contact_address = $1`

	result, err := r.db.ExecContext(ctx, query, contactAddress)
	if err != nil {
		return 0, fmt.Errorf("failed to delete obligations: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
