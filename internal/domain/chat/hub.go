package chat

import (
	"context"
	"encoding/json"
	"expvar"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/galleycloud/ticket-chat-api/internal/domain/presence"
)

// EventType for WebSocket messages
type EventType string

const (
	EventNewMessage EventType = "new_message"
	EventTyping     EventType = "typing"
	EventRead       EventType = "read"
	EventPresence   EventType = "presence_update"
)

// Redis channel prefix for cross-instance delivery to a single
// connection
const connChannelPrefix = "chat:conn:"

var (
	wsConnectionsGauge   = expvar.NewInt("websocket_connections")
	wsEventsSentTotal    = expvar.NewInt("websocket_events_sent_total")
	wsEventsDroppedTotal = expvar.NewInt("websocket_events_dropped_total")
)

// WSEvent represents a WebSocket event
type WSEvent struct {
	Type      EventType `json:"type"`
	RoomID    uuid.UUID `json:"room_id,omitempty"`
	SenderID  uuid.UUID `json:"sender_id,omitempty"`
	MessageID uuid.UUID `json:"message_id,omitempty"`
	Message   *Message  `json:"message,omitempty"`
	UserID    uuid.UUID `json:"user_id,omitempty"`
	Status    string    `json:"status,omitempty"`
}

// Connection represents one live WebSocket. The ID is the presence
// registry's connection handle for this socket.
type Connection struct {
	ID        string
	UserID    uuid.UUID
	ActorType ActorType
	Conn      *websocket.Conn
	Send      chan []byte
}

// PresenceRegistrar is the slice of the presence domain the hub drives
// on connect and disconnect.
type PresenceRegistrar interface {
	UpsertOnline(ctx context.Context, userID uuid.UUID, connectionID string) error
	SetOffline(ctx context.Context, userID uuid.UUID, connectionID string) error
}

// Hub owns the live connections of this server instance. Delivery is
// addressed by connection id, connections on other instances are
// reached through Redis Pub/Sub.
type Hub struct {
	connections map[string]*Connection

	presence PresenceRegistrar
	redis    *redis.Client
	pubsub   *redis.PubSub

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a hub. redisClient may be nil for single-instance
// deployments.
func NewHub(redisClient *redis.Client, pres PresenceRegistrar) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		connections: make(map[string]*Connection),
		presence:    pres,
		redis:       redisClient,
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		ctx:         ctx,
		cancel:      cancel,
	}

	if redisClient != nil {
		h.pubsub = redisClient.PSubscribe(ctx, connChannelPrefix+"*", presence.EventsChannel)
	}

	return h
}

// Run starts the hub (call in goroutine)
func (h *Hub) Run() {
	if h.pubsub != nil {
		go h.runRedisSubscriber()
	}

	for {
		select {
		case <-h.ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			h.mu.Unlock()
			wsConnectionsGauge.Add(1)

			// A presence-write failure must not prevent chat over the
			// already-accepted socket
			if err := h.presence.UpsertOnline(h.ctx, conn.UserID, conn.ID); err != nil {
				log.Warn().Err(err).Str("user_id", conn.UserID.String()).Msg("Failed to register presence on connect")
			}
			log.Debug().Str("user_id", conn.UserID.String()).Str("connection_id", conn.ID).Msg("User connected to WebSocket")

		case conn := <-h.unregister:
			h.mu.Lock()
			if existing, ok := h.connections[conn.ID]; ok && existing == conn {
				delete(h.connections, conn.ID)
				close(conn.Send)
				wsConnectionsGauge.Add(-1)
			}
			h.mu.Unlock()

			// The registry ignores this when the user already
			// reconnected on a newer connection id
			if err := h.presence.SetOffline(h.ctx, conn.UserID, conn.ID); err != nil {
				log.Warn().Err(err).Str("user_id", conn.UserID.String()).Msg("Failed to clear presence on disconnect")
			}
			log.Debug().Str("user_id", conn.UserID.String()).Str("connection_id", conn.ID).Msg("User disconnected from WebSocket")
		}
	}
}

// runRedisSubscriber delivers events published for connections hosted
// on this instance
func (h *Hub) runRedisSubscriber() {
	ch := h.pubsub.Channel()

	for {
		select {
		case <-h.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg.Channel == presence.EventsChannel {
				h.handlePresenceEvent(msg.Payload)
				continue
			}
			if len(msg.Channel) <= len(connChannelPrefix) {
				continue
			}
			connID := msg.Channel[len(connChannelPrefix):]
			h.sendLocal(connID, []byte(msg.Payload))
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// SendToConnection pushes an event to one connection id. Unknown
// connection ids are a silent no-op, the target may live on another
// instance or may have disconnected since it was resolved.
func (h *Hub) SendToConnection(connectionID string, event *WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal WebSocket event")
		return
	}

	if h.sendLocal(connectionID, data) {
		return
	}

	if h.redis != nil {
		if err := h.redis.Publish(h.ctx, connChannelPrefix+connectionID, data).Err(); err != nil {
			log.Warn().Err(err).Str("connection_id", connectionID).Msg("Redis publish failed")
		}
	}
}

func (h *Hub) sendLocal(connectionID string, data []byte) bool {
	h.mu.RLock()
	conn, ok := h.connections[connectionID]
	h.mu.RUnlock()

	if !ok {
		return false
	}

	select {
	case conn.Send <- data:
		wsEventsSentTotal.Add(1)
	default:
		// Buffer full, skip this event
		wsEventsDroppedTotal.Add(1)
		log.Warn().Str("connection_id", connectionID).Msg("WebSocket send buffer full")
	}
	return true
}

// handlePresenceEvent relays a "<userID>:<status>" presence transition
// to every connection on this instance
func (h *Hub) handlePresenceEvent(payload string) {
	rawID, status, ok := strings.Cut(payload, ":")
	if !ok {
		return
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return
	}

	data, err := json.Marshal(&WSEvent{
		Type:   EventPresence,
		UserID: userID,
		Status: status,
	})
	if err != nil {
		return
	}

	h.mu.RLock()
	ids := make([]string, 0, len(h.connections))
	for id := range h.connections {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.sendLocal(id, data)
	}
}

// GetConnectionCount returns number of local connections
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Shutdown gracefully shuts down the hub
func (h *Hub) Shutdown() {
	h.cancel()
	if h.pubsub != nil {
		h.pubsub.Close()
	}
}
