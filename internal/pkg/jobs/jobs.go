package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handler processes a fired job. Jobs fire at-least-once, so handlers
// must be idempotent.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Job is a persisted deferred job
type Job struct {
	ID        uuid.UUID       `db:"id"`
	Name      string          `db:"name"`
	RunAt     time.Time       `db:"run_at"`
	Payload   json.RawMessage `db:"payload"`
	Attempts  int             `db:"attempts"`
	CreatedAt time.Time       `db:"created_at"`
}

// Store persists scheduled jobs
type Store interface {
	Insert(ctx context.Context, job *Job) error
	// DeleteByMatch removes jobs whose payload contains all the given fields.
	// Returns the number of jobs removed.
	DeleteByMatch(ctx context.Context, name string, match map[string]interface{}) (int64, error)
	// ClaimDue returns due jobs and bumps their attempt counter.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*Job, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Runner polls the store and dispatches due jobs to named handlers
type Runner struct {
	store        Store
	pollInterval time.Duration

	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRunner creates a job runner
func NewRunner(store Store, pollInterval time.Duration) *Runner {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Runner{
		store:        store,
		pollInterval: pollInterval,
		handlers:     make(map[string]Handler),
	}
}

// Define registers a handler for a job name. Call once at startup.
func (r *Runner) Define(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Schedule persists a job to fire at runAt
func (r *Runner) Schedule(ctx context.Context, name string, runAt time.Time, payload interface{}) (uuid.UUID, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}

	job := &Job{
		ID:        uuid.New(),
		Name:      name,
		RunAt:     runAt,
		Payload:   data,
		CreatedAt: time.Now(),
	}
	if err := r.store.Insert(ctx, job); err != nil {
		return uuid.Nil, err
	}
	return job.ID, nil
}

// Cancel removes pending jobs whose payload matches the given fields
func (r *Runner) Cancel(ctx context.Context, name string, match map[string]interface{}) (int64, error) {
	return r.store.DeleteByMatch(ctx, name, match)
}

// Start runs the polling loop until the context is cancelled
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Job runner stopped")
			return
		case <-ticker.C:
			r.RunDueOnce(ctx)
		}
	}
}

// RunDueOnce claims and runs all currently due jobs (also used in tests)
func (r *Runner) RunDueOnce(ctx context.Context) {
	due, err := r.store.ClaimDue(ctx, time.Now(), 50)
	if err != nil {
		log.Error().Err(err).Msg("Failed to claim due jobs")
		return
	}

	for _, job := range due {
		r.dispatch(ctx, job)
	}
}

func (r *Runner) dispatch(ctx context.Context, job *Job) {
	r.mu.RLock()
	handler, ok := r.handlers[job.Name]
	r.mu.RUnlock()

	if !ok {
		log.Warn().Str("job", job.Name).Msg("No handler registered for job, dropping")
		_ = r.store.Delete(ctx, job.ID)
		return
	}

	if err := handler(ctx, job.Payload); err != nil {
		// Leave the job in place, it will be retried on the next poll
		// until the store stops handing it out.
		log.Error().Err(err).
			Str("job", job.Name).
			Int("attempts", job.Attempts).
			Msg("Job handler failed")
		return
	}

	if err := r.store.Delete(ctx, job.ID); err != nil {
		log.Error().Err(err).Str("job", job.Name).Msg("Failed to delete completed job")
	}
}
