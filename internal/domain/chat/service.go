package chat

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/galleycloud/ticket-chat-api/internal/domain/room"
)

// ConnectionSender pushes events onto live connections
type ConnectionSender interface {
	SendToConnection(connectionID string, event *WSEvent)
}

// ObligationScheduler records deferred unread-message notifications.
// Both calls are best-effort from the chat path's point of view.
type ObligationScheduler interface {
	ScheduleUnread(ctx context.Context, recipientID, messageID uuid.UUID, contactAddress, displayName string) error
	CancelOnRead(ctx context.Context, recipientID, messageID uuid.UUID)
}

// Service handles chat business logic
type Service struct {
	repo      Repository
	rooms     room.Repository
	resolver  *Resolver
	sender    ConnectionSender
	scheduler ObligationScheduler
	presence  PresenceSnapshotter
}

// NewService creates chat service
func NewService(repo Repository, rooms room.Repository, resolver *Resolver, sender ConnectionSender, scheduler ObligationScheduler, pres PresenceSnapshotter) *Service {
	return &Service{
		repo:      repo,
		rooms:     rooms,
		resolver:  resolver,
		sender:    sender,
		scheduler: scheduler,
		presence:  pres,
	}
}

// SendMessage stores a message and routes it. Persistence is the one
// step that fails loudly, everything downstream is best-effort and must
// not undo or mask a stored message.
func (s *Service) SendMessage(ctx context.Context, senderID uuid.UUID, senderType ActorType, roomID uuid.UUID, req *SendMessageRequest) (*Message, error) {
	rm, err := s.loadRoomForActor(ctx, roomID, senderID, senderType)
	if err != nil {
		return nil, err
	}

	msgType := req.Type
	if msgType == "" {
		msgType = TypeMessage
	}

	msg := &Message{
		ID:         uuid.New(),
		ChatRoomID: rm.ID,
		Type:       msgType,
		Body:       req.Body,
		Sender:     Sender{ID: senderID, Type: senderType},
		ReadBy:     []*ReadReceipt{},
	}

	if err := s.repo.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.route(ctx, msg)

	return msg, nil
}

// route fans the message out to live connections and schedules unread
// obligations. Any failure here is logged and swallowed, the message is
// already stored.
func (s *Service) route(ctx context.Context, msg *Message) {
	res, err := s.resolver.Resolve(ctx, msg.ChatRoomID)
	if err != nil {
		log.Warn().Err(err).
			Str("message_id", msg.ID.String()).
			Msg("Recipient resolution failed, message stored but not routed")
		return
	}

	event := &WSEvent{
		Type:      EventNewMessage,
		RoomID:    msg.ChatRoomID,
		SenderID:  msg.Sender.ID,
		MessageID: msg.ID,
		Message:   msg,
	}
	for _, r := range res.Fanout() {
		s.sender.SendToConnection(r.ConnectionID, event)
	}

	s.scheduleObligations(ctx, msg, res)
}

// scheduleObligations records an unread obligation for every intended
// recipient except the sender. The customer side and the merchant side
// participate, admin staff are reached through assignment emails
// instead. Reachability does not matter here, an online recipient who
// never reads the message still gets the reminder.
func (s *Service) scheduleObligations(ctx context.Context, msg *Message, res *Resolution) {
	targets := []Recipient{}
	targets = append(targets, res.Customers...)
	targets = append(targets, res.Merchant.ObligationTargets()...)

	for _, r := range targets {
		if r.UserID == msg.Sender.ID {
			continue
		}
		if r.Email == "" {
			log.Debug().Str("user_id", r.UserID.String()).Msg("Recipient has no contact address, skipping obligation")
			continue
		}
		if err := s.scheduler.ScheduleUnread(ctx, r.UserID, msg.ID, r.Email, r.DisplayName); err != nil {
			log.Warn().Err(err).
				Str("user_id", r.UserID.String()).
				Str("message_id", msg.ID.String()).
				Msg("Failed to schedule unread notification")
		}
	}
}

// ListMessages returns room messages, newest first. The bool reports
// whether more messages exist beyond this page.
func (s *Service) ListMessages(ctx context.Context, userID uuid.UUID, actorType ActorType, roomID uuid.UUID, limit, offset int) ([]*Message, bool, error) {
	if _, err := s.loadRoomForActor(ctx, roomID, userID, actorType); err != nil {
		return nil, false, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	// One extra row tells us whether a next page exists
	messages, err := s.repo.ListMessages(ctx, roomID, limit+1, offset)
	if err != nil {
		return nil, false, err
	}
	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}
	return messages, hasMore, nil
}

// UnreadCount returns how many of the room's messages the viewer has
// not read yet. The viewer's own messages never count as unread.
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID, actorType ActorType, roomID uuid.UUID) (int, error) {
	if _, err := s.loadRoomForActor(ctx, roomID, userID, actorType); err != nil {
		return 0, err
	}
	return s.repo.CountUnread(ctx, roomID, userID)
}

// MarkRead processes a batch of read acknowledgements. Every message is
// handled independently, one failure never blocks the rest. Repeating a
// read is a no-op reported as already_viewed.
func (s *Service) MarkRead(ctx context.Context, userID uuid.UUID, actorType ActorType, roomID uuid.UUID, req *MarkReadRequest) ([]*MarkReadResult, error) {
	if _, err := s.loadRoomForActor(ctx, roomID, userID, actorType); err != nil {
		return nil, err
	}

	results := make([]*MarkReadResult, 0, len(req.MessageIDs))
	viewed := []uuid.UUID{}

	for _, messageID := range req.MessageIDs {
		result := &MarkReadResult{MessageID: messageID}
		results = append(results, result)

		msg, err := s.repo.GetMessage(ctx, messageID)
		if err != nil {
			log.Warn().Err(err).Str("message_id", messageID.String()).Msg("Failed to load message for read")
			result.Status = "failed"
			continue
		}
		if msg == nil || msg.ChatRoomID != roomID {
			result.Status = "not_found"
			continue
		}

		// The sender never needs a receipt for their own message
		if msg.Sender.ID == userID {
			result.Status = "already_viewed"
			continue
		}

		inserted, err := s.repo.MarkRead(ctx, messageID, userID, actorType)
		if err != nil {
			log.Warn().Err(err).Str("message_id", messageID.String()).Msg("Failed to store read receipt")
			result.Status = "failed"
			continue
		}
		if !inserted {
			result.Status = "already_viewed"
			continue
		}

		result.Status = "viewed"
		viewed = append(viewed, messageID)
		s.scheduler.CancelOnRead(ctx, userID, messageID)
	}

	s.broadcastRead(ctx, roomID, userID, viewed)

	return results, nil
}

func (s *Service) broadcastRead(ctx context.Context, roomID, readerID uuid.UUID, messageIDs []uuid.UUID) {
	if len(messageIDs) == 0 {
		return
	}

	res, err := s.resolver.Resolve(ctx, roomID)
	if err != nil {
		log.Warn().Err(err).Str("room_id", roomID.String()).Msg("Failed to resolve recipients for read event")
		return
	}

	for _, messageID := range messageIDs {
		event := &WSEvent{
			Type:      EventRead,
			RoomID:    roomID,
			SenderID:  readerID,
			MessageID: messageID,
		}
		for _, r := range res.Fanout() {
			s.sender.SendToConnection(r.ConnectionID, event)
		}
	}
}

// NotifyTyping pushes a typing indicator to the room's current
// recipients. Purely ephemeral, nothing is stored or scheduled.
func (s *Service) NotifyTyping(ctx context.Context, userID uuid.UUID, actorType ActorType, roomID uuid.UUID) {
	if _, err := s.loadRoomForActor(ctx, roomID, userID, actorType); err != nil {
		return
	}

	res, err := s.resolver.Resolve(ctx, roomID)
	if err != nil {
		return
	}

	event := &WSEvent{Type: EventTyping, RoomID: roomID, SenderID: userID}
	for _, r := range res.Fanout() {
		s.sender.SendToConnection(r.ConnectionID, event)
	}
}

// Participants returns the room census: every participant with their
// current reachability.
func (s *Service) Participants(ctx context.Context, userID uuid.UUID, actorType ActorType, roomID uuid.UUID) ([]*ParticipantStatus, error) {
	rm, err := s.loadRoomForActor(ctx, roomID, userID, actorType)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.presence.SnapshotOnline(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Presence snapshot failed for participant census")
		snapshot = map[uuid.UUID]string{}
	}

	out := make([]*ParticipantStatus, len(rm.Participants))
	for i, p := range rm.Participants {
		_, online := snapshot[p.OrganisationID]
		out[i] = &ParticipantStatus{
			OrganisationID: p.OrganisationID,
			Type:           string(p.Type),
			Active:         online,
		}
	}
	return out, nil
}

// loadRoomForActor loads a room and enforces access. Customers must be
// listed participants, staff access is granted by their actor type and
// resolved per message by role.
func (s *Service) loadRoomForActor(ctx context.Context, roomID, userID uuid.UUID, actorType ActorType) (*room.Room, error) {
	rm, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if rm == nil {
		return nil, room.ErrRoomNotFound
	}

	if actorType == ActorCustomer {
		member := false
		for _, p := range rm.Participants {
			if p.Type == room.ParticipantCustomer && p.OrganisationID == userID {
				member = true
				break
			}
		}
		if !member {
			return nil, ErrNotParticipant
		}
	}

	return rm, nil
}
