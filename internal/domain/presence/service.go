package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// EventsChannel carries "<userID>:<status>" transitions for
// interested subscribers, the chat hub relays them to connected
// clients.
const EventsChannel = "presence:events"

// Redis keys mirroring the authoritative table for fast membership checks
const (
	onlineSetKey = "presence:online"
	onlineSetTTL = 5 * time.Minute
)

// Service is the presence registry. Postgres is authoritative, Redis
// carries a best-effort mirror for cross-instance lookups.
type Service struct {
	repo  Repository
	redis *redis.Client
}

// NewService creates presence service
func NewService(repo Repository, redisClient *redis.Client) *Service {
	return &Service{repo: repo, redis: redisClient}
}

// UpsertOnline registers a user's live connection. Last write wins for
// the connection id; the registry does not deduplicate concurrent sockets.
func (s *Service) UpsertOnline(ctx context.Context, userID uuid.UUID, connectionID string) error {
	if err := s.repo.UpsertOnline(ctx, userID, connectionID); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if s.redis != nil {
		s.redis.SAdd(ctx, onlineSetKey, userID.String())
		s.redis.Expire(ctx, onlineSetKey, onlineSetTTL)
		s.redis.Publish(ctx, EventsChannel, fmt.Sprintf("%s:online", userID))
	}
	return nil
}

// SetOffline marks a user offline. The update only applies when the
// disconnecting connection id is still the registered one, so a late
// disconnect from an old socket cannot mark a reconnected user offline.
// Idempotent: already-offline users are a no-op.
func (s *Service) SetOffline(ctx context.Context, userID uuid.UUID, connectionID string) error {
	cleared, err := s.repo.SetOfflineIfCurrent(ctx, userID, connectionID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !cleared {
		log.Debug().
			Str("user_id", userID.String()).
			Str("connection_id", connectionID).
			Msg("Stale or duplicate disconnect ignored")
		return nil
	}

	if s.redis != nil {
		s.redis.SRem(ctx, onlineSetKey, userID.String())
		s.redis.Publish(ctx, EventsChannel, fmt.Sprintf("%s:offline", userID))
	}
	return nil
}

// SnapshotOnline returns a point-in-time userID -> connectionID mapping of
// reachable users. Callers must tolerate staleness: a user may disconnect
// between snapshot and use.
func (s *Service) SnapshotOnline(ctx context.Context) (map[uuid.UUID]string, error) {
	entries, err := s.repo.ListOnline(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	snapshot := make(map[uuid.UUID]string, len(entries))
	for _, e := range entries {
		snapshot[e.UserID] = e.ConnectionID
	}
	return snapshot, nil
}

// IsOnline checks a single user's reachability
func (s *Service) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	if s.redis != nil {
		online, err := s.redis.SIsMember(ctx, onlineSetKey, userID.String()).Result()
		if err == nil {
			return online, nil
		}
		// Fall through to the authoritative table
	}

	entry, err := s.repo.Get(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return entry != nil && entry.IsOnline(), nil
}
