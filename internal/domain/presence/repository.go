package presence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines presence data access interface
type Repository interface {
	UpsertOnline(ctx context.Context, userID uuid.UUID, connectionID string) error
	// SetOfflineIfCurrent flips the row to offline only when the stored
	// connection id matches the one that disconnected. Returns true when
	// the row was flipped.
	SetOfflineIfCurrent(ctx context.Context, userID uuid.UUID, connectionID string) (bool, error)
	Get(ctx context.Context, userID uuid.UUID) (*Entry, error)
	ListOnline(ctx context.Context) ([]*Entry, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new presence repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) UpsertOnline(ctx context.Context, userID uuid.UUID, connectionID string) error {
	query := `
		INSERT INTO online_activity (user_id, connection_id, status, updated_at)
		VALUES ($1, $2, 'online', $3)
		ON CONFLICT (user_id)
		DO UPDATE SET connection_id = EXCLUDED.connection_id, status = 'online', updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, userID, connectionID, time.Now())
	return err
}

func (r *repository) SetOfflineIfCurrent(ctx context.Context, userID uuid.UUID, connectionID string) (bool, error) {
	query := `
		UPDATE online_activity
		SET status = 'offline', updated_at = $3
		WHERE user_id = $1 AND connection_id = $2 AND status = 'online'
	`
	result, err := r.db.ExecContext(ctx, query, userID, connectionID, time.Now())
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *repository) Get(ctx context.Context, userID uuid.UUID) (*Entry, error) {
	query := `SELECT user_id, connection_id, status, updated_at FROM online_activity WHERE user_id = $1`
	var entry Entry
	err := r.db.GetContext(ctx, &entry, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListOnline(ctx context.Context) ([]*Entry, error) {
	query := `SELECT user_id, connection_id, status, updated_at FROM online_activity WHERE status = 'online'`
	var entries []*Entry
	err := r.db.SelectContext(ctx, &entries, query)
	return entries, err
}
