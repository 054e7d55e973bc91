package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type memStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*Job
}

func newMemStore() *memStore {
	return &memStore{jobs: make(map[uuid.UUID]*Job)}
}

func (s *memStore) Insert(ctx context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *memStore) DeleteByMatch(ctx context.Context, name string, match map[string]interface{}) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, job := range s.jobs {
		if job.Name != name {
			continue
		}
		var payload map[string]interface{}
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			continue
		}
		matched := true
		for k, v := range match {
			if payload[k] != v {
				matched = false
				break
			}
		}
		if matched {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed, nil
}

func (s *memStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*Job
	for _, job := range s.jobs {
		if len(due) >= limit {
			break
		}
		if !job.RunAt.After(now) && job.Attempts < maxAttempts {
			job.Attempts++
			copied := *job
			due = append(due, &copied)
		}
	}
	return due, nil
}

func (s *memStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func TestRunnerFiresDueJob(t *testing.T) {
	store := newMemStore()
	runner := NewRunner(store, time.Second)

	fired := make(chan json.RawMessage, 1)
	runner.Define("send-email", func(ctx context.Context, payload json.RawMessage) error {
		fired <- payload
		return nil
	})

	_, err := runner.Schedule(context.Background(), "send-email", time.Now().Add(-time.Second), map[string]string{"address": "a@example.com"})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	runner.RunDueOnce(context.Background())

	select {
	case payload := <-fired:
		var data map[string]string
		if err := json.Unmarshal(payload, &data); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if data["address"] != "a@example.com" {
			t.Fatalf("unexpected payload: %v", data)
		}
	default:
		t.Fatal("expected handler to fire")
	}

	if store.count() != 0 {
		t.Fatalf("expected completed job to be deleted, %d left", store.count())
	}
}

func TestRunnerSkipsFutureJob(t *testing.T) {
	store := newMemStore()
	runner := NewRunner(store, time.Second)

	runner.Define("send-email", func(ctx context.Context, payload json.RawMessage) error {
		t.Fatal("handler must not fire before run_at")
		return nil
	})

	_, err := runner.Schedule(context.Background(), "send-email", time.Now().Add(time.Hour), map[string]string{"address": "a@example.com"})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	runner.RunDueOnce(context.Background())

	if store.count() != 1 {
		t.Fatalf("expected job to stay scheduled, %d left", store.count())
	}
}

func TestCancelByPayloadMatch(t *testing.T) {
	store := newMemStore()
	runner := NewRunner(store, time.Second)

	userID := uuid.New().String()
	messageID := uuid.New().String()

	_, err := runner.Schedule(context.Background(), "send-email", time.Now().Add(-time.Second), map[string]interface{}{
		"recipient_user_id": userID,
		"message_id":        messageID,
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	_, err = runner.Schedule(context.Background(), "send-email", time.Now().Add(-time.Second), map[string]interface{}{
		"recipient_user_id": uuid.New().String(),
		"message_id":        uuid.New().String(),
	})
	if err != nil {
		t.Fatalf("schedule second: %v", err)
	}

	removed, err := runner.Cancel(context.Background(), "send-email", map[string]interface{}{
		"recipient_user_id": userID,
		"message_id":        messageID,
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 cancelled job, got %d", removed)
	}
	if store.count() != 1 {
		t.Fatalf("expected unrelated job to survive, %d left", store.count())
	}
}

func TestFailingJobIsRetainedForRetry(t *testing.T) {
	store := newMemStore()
	runner := NewRunner(store, time.Second)

	calls := 0
	runner.Define("send-email", func(ctx context.Context, payload json.RawMessage) error {
		calls++
		return context.DeadlineExceeded
	})

	_, err := runner.Schedule(context.Background(), "send-email", time.Now().Add(-time.Second), map[string]string{"address": "a@example.com"})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	runner.RunDueOnce(context.Background())
	runner.RunDueOnce(context.Background())

	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
	if store.count() != 1 {
		t.Fatal("expected failing job to remain for retry")
	}
}
