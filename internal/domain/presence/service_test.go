package presence

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type fakePresenceRepo struct {
	entries map[uuid.UUID]*Entry
	failing bool
}

func newFakePresenceRepo() *fakePresenceRepo {
	return &fakePresenceRepo{entries: make(map[uuid.UUID]*Entry)}
}

func (r *fakePresenceRepo) UpsertOnline(ctx context.Context, userID uuid.UUID, connectionID string) error {
	if r.failing {
		return errors.New("db down")
	}
	r.entries[userID] = &Entry{UserID: userID, ConnectionID: connectionID, Status: StatusOnline}
	return nil
}

func (r *fakePresenceRepo) SetOfflineIfCurrent(ctx context.Context, userID uuid.UUID, connectionID string) (bool, error) {
	if r.failing {
		return false, errors.New("db down")
	}
	entry, ok := r.entries[userID]
	if !ok || entry.Status != StatusOnline || entry.ConnectionID != connectionID {
		return false, nil
	}
	entry.Status = StatusOffline
	return true, nil
}

func (r *fakePresenceRepo) Get(ctx context.Context, userID uuid.UUID) (*Entry, error) {
	if r.failing {
		return nil, errors.New("db down")
	}
	return r.entries[userID], nil
}

func (r *fakePresenceRepo) ListOnline(ctx context.Context) ([]*Entry, error) {
	if r.failing {
		return nil, errors.New("db down")
	}
	var online []*Entry
	for _, e := range r.entries {
		if e.Status == StatusOnline {
			online = append(online, e)
		}
	}
	return online, nil
}

func TestUpsertOnlineLastWriteWins(t *testing.T) {
	repo := newFakePresenceRepo()
	svc := NewService(repo, nil)
	userID := uuid.New()

	if err := svc.UpsertOnline(context.Background(), userID, "conn-1"); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := svc.UpsertOnline(context.Background(), userID, "conn-2"); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	snapshot, err := svc.SnapshotOnline(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot[userID] != "conn-2" {
		t.Fatalf("expected latest connection id, got %q", snapshot[userID])
	}
}

func TestStaleDisconnectDoesNotClearReconnectedUser(t *testing.T) {
	repo := newFakePresenceRepo()
	svc := NewService(repo, nil)
	userID := uuid.New()

	if err := svc.UpsertOnline(context.Background(), userID, "conn-old"); err != nil {
		t.Fatalf("upsert old: %v", err)
	}
	// User reconnects before the old socket's disconnect arrives
	if err := svc.UpsertOnline(context.Background(), userID, "conn-new"); err != nil {
		t.Fatalf("upsert new: %v", err)
	}

	if err := svc.SetOffline(context.Background(), userID, "conn-old"); err != nil {
		t.Fatalf("stale disconnect: %v", err)
	}

	online, err := svc.IsOnline(context.Background(), userID)
	if err != nil {
		t.Fatalf("is online: %v", err)
	}
	if !online {
		t.Fatal("stale disconnect must not mark a reconnected user offline")
	}
}

func TestSetOfflineIsIdempotent(t *testing.T) {
	repo := newFakePresenceRepo()
	svc := NewService(repo, nil)
	userID := uuid.New()

	if err := svc.UpsertOnline(context.Background(), userID, "conn-1"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := svc.SetOffline(context.Background(), userID, "conn-1"); err != nil {
		t.Fatalf("first offline: %v", err)
	}
	if err := svc.SetOffline(context.Background(), userID, "conn-1"); err != nil {
		t.Fatalf("second offline should be a no-op, got %v", err)
	}

	online, _ := svc.IsOnline(context.Background(), userID)
	if online {
		t.Fatal("user should be offline")
	}
}

func TestStorageFailureMapsToUnavailable(t *testing.T) {
	repo := newFakePresenceRepo()
	repo.failing = true
	svc := NewService(repo, nil)

	_, err := svc.SnapshotOnline(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	err = svc.UpsertOnline(context.Background(), uuid.New(), "conn-1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
