package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const maxAttempts = 5

type sqlStore struct {
	db *sqlx.DB
}

// NewStore creates a Postgres-backed job store
func NewStore(db *sqlx.DB) Store {
	return &sqlStore{db: db}
}

func (s *sqlStore) Insert(ctx context.Context, job *Job) error {
	query := `
		INSERT INTO scheduled_jobs (id, name, run_at, payload, attempts, created_at)
		VALUES ($1, $2, $3, $4, 0, $5)
	`
	_, err := s.db.ExecContext(ctx, query, job.ID, job.Name, job.RunAt, job.Payload, job.CreatedAt)
	return err
}

func (s *sqlStore) DeleteByMatch(ctx context.Context, name string, match map[string]interface{}) (int64, error) {
	filter, err := json.Marshal(match)
	if err != nil {
		return 0, err
	}

	query := `DELETE FROM scheduled_jobs WHERE name = $1 AND payload @> $2`
	result, err := s.db.ExecContext(ctx, query, name, filter)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *sqlStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*Job, error) {
	query := `
		UPDATE scheduled_jobs
		SET attempts = attempts + 1
		WHERE id IN (
			SELECT id FROM scheduled_jobs
			WHERE run_at <= $1 AND attempts < $2
			ORDER BY run_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, name, run_at, payload, attempts, created_at
	`
	var due []*Job
	err := s.db.SelectContext(ctx, &due, query, now, maxAttempts, limit)
	return due, err
}

func (s *sqlStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_jobs WHERE id = $1`, id)
	return err
}
