package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/galleycloud/ticket-chat-api/internal/domain/room"
	"github.com/galleycloud/ticket-chat-api/internal/middleware"
	"github.com/galleycloud/ticket-chat-api/internal/pkg/response"
	"github.com/galleycloud/ticket-chat-api/internal/pkg/validator"
)

// WebSocket constants
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 // 512KB
)

// Handler handles chat HTTP requests
type Handler struct {
	service     *Service
	hub         *Hub
	rateLimiter messageLimiter
	upgrader    websocket.Upgrader
}

// messageLimiter guards the send paths
type messageLimiter interface {
	Allow(userID uuid.UUID) bool
}

// RateLimiter for chat messages
type RateLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		limit:  30,          // 30 messages
		window: time.Minute, // per minute
	}
}

// Allow checks if user can send message
func (rl *RateLimiter) Allow(userID uuid.UUID) bool {
	if rl.redis == nil {
		return true // No Redis, allow all
	}

	key := fmt.Sprintf("ratelimit:chat:%s", userID)
	ctx := context.Background()

	count, err := rl.redis.Incr(ctx, key).Result()
	if err != nil {
		return true // Fail open
	}

	if count == 1 {
		rl.redis.Expire(ctx, key, rl.window)
	}

	return count <= int64(rl.limit)
}

// NewHandler creates chat handler
func NewHandler(service *Service, hub *Hub, redisClient *redis.Client, allowedOrigins []string) *Handler {
	return &Handler{
		service:     service,
		hub:         hub,
		rateLimiter: NewRateLimiter(redisClient),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")

				// Allow all in development
				if len(allowedOrigins) == 0 {
					return true
				}

				for _, allowed := range allowedOrigins {
					if origin == allowed {
						return true
					}
				}

				log.Warn().Str("origin", origin).Msg("WebSocket origin rejected")
				return false
			},
		},
	}
}

// SendMessage handles POST /rooms/{id}/messages
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid room ID")
		return
	}

	userID := middleware.GetUserID(r.Context())

	if !h.rateLimiter.Allow(userID) {
		response.TooManyRequests(w)
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	actorType := ActorType(middleware.GetActorType(r.Context()))
	msg, err := h.service.SendMessage(r.Context(), userID, actorType, roomID, &req)
	if err != nil {
		switch err {
		case room.ErrRoomNotFound:
			response.NotFound(w, "Room not found")
		case ErrNotParticipant:
			response.Forbidden(w, "You are not a participant of this room")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, MessageResponseFromEntity(msg, userID))
}

// GetMessages handles GET /rooms/{id}/messages
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid room ID")
		return
	}

	limit := 50
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			offset = v
		}
	}

	userID := middleware.GetUserID(r.Context())
	actorType := ActorType(middleware.GetActorType(r.Context()))
	messages, hasMore, err := h.service.ListMessages(r.Context(), userID, actorType, roomID, limit, offset)
	if err != nil {
		switch err {
		case room.ErrRoomNotFound:
			response.NotFound(w, "Room not found")
		case ErrNotParticipant:
			response.Forbidden(w, "You are not a participant of this room")
		default:
			response.InternalError(w)
		}
		return
	}

	items := make([]*MessageResponse, len(messages))
	for i, m := range messages {
		items[i] = MessageResponseFromEntity(m, userID)
	}

	response.WithMeta(w, items, response.Meta{
		Limit:   limit,
		Offset:  offset,
		Count:   len(items),
		HasNext: hasMore,
	})
}

// GetUnread handles GET /rooms/{id}/unread
func (h *Handler) GetUnread(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid room ID")
		return
	}

	userID := middleware.GetUserID(r.Context())
	actorType := ActorType(middleware.GetActorType(r.Context()))
	count, err := h.service.UnreadCount(r.Context(), userID, actorType, roomID)
	if err != nil {
		switch err {
		case room.ErrRoomNotFound:
			response.NotFound(w, "Room not found")
		case ErrNotParticipant:
			response.Forbidden(w, "You are not a participant of this room")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, map[string]int{"unread_count": count})
}

// MarkRead handles POST /rooms/{id}/read
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid room ID")
		return
	}

	var req MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	userID := middleware.GetUserID(r.Context())
	actorType := ActorType(middleware.GetActorType(r.Context()))
	results, err := h.service.MarkRead(r.Context(), userID, actorType, roomID, &req)
	if err != nil {
		switch err {
		case room.ErrRoomNotFound:
			response.NotFound(w, "Room not found")
		case ErrNotParticipant:
			response.Forbidden(w, "You are not a participant of this room")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, results)
}

// GetParticipants handles GET /rooms/{id}/participants
func (h *Handler) GetParticipants(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid room ID")
		return
	}

	userID := middleware.GetUserID(r.Context())
	actorType := ActorType(middleware.GetActorType(r.Context()))
	census, err := h.service.Participants(r.Context(), userID, actorType, roomID)
	if err != nil {
		switch err {
		case room.ErrRoomNotFound:
			response.NotFound(w, "Room not found")
		case ErrNotParticipant:
			response.Forbidden(w, "You are not a participant of this room")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, census)
}

// WebSocket handles WS /ws
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "Authentication required")
		return
	}
	actorType := ActorType(middleware.GetActorType(r.Context()))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &Connection{
		ID:        uuid.NewString(),
		UserID:    userID,
		ActorType: actorType,
		Conn:      conn,
		Send:      make(chan []byte, 256),
	}

	h.hub.Register(client)

	go h.wsReader(client)
	go h.wsWriter(client)
}

func (h *Handler) wsReader(client *Connection) {
	defer func() {
		h.hub.Unregister(client)
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", client.UserID.String()).Msg("WebSocket read error")
			}
			break
		}

		if !h.rateLimiter.Allow(client.UserID) {
			continue
		}

		var event struct {
			Type       string      `json:"type"`
			RoomID     uuid.UUID   `json:"room_id"`
			MessageIDs []uuid.UUID `json:"message_ids"`
		}
		if err := json.Unmarshal(message, &event); err != nil {
			continue
		}

		switch event.Type {
		case "typing":
			h.service.NotifyTyping(context.Background(), client.UserID, client.ActorType, event.RoomID)
		case "read":
			if len(event.MessageIDs) == 0 {
				continue
			}
			_, _ = h.service.MarkRead(context.Background(), client.UserID, client.ActorType, event.RoomID, &MarkReadRequest{
				MessageIDs: event.MessageIDs,
			})
		}
	}
}

func (h *Handler) wsWriter(client *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			// Send ping for heartbeat
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
