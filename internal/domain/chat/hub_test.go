package chat

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeRegistrar struct {
	online  map[uuid.UUID]string
	offline []string
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{online: make(map[uuid.UUID]string)}
}

func (f *fakeRegistrar) UpsertOnline(ctx context.Context, userID uuid.UUID, connectionID string) error {
	f.online[userID] = connectionID
	return nil
}

func (f *fakeRegistrar) SetOffline(ctx context.Context, userID uuid.UUID, connectionID string) error {
	if f.online[userID] == connectionID {
		delete(f.online, userID)
	}
	f.offline = append(f.offline, connectionID)
	return nil
}

// newLocalHub builds a hub without Redis and seeds connections directly
func newLocalHub(conns ...*Connection) *Hub {
	h := NewHub(nil, newFakeRegistrar())
	for _, c := range conns {
		h.connections[c.ID] = c
	}
	return h
}

func waitPayload(t *testing.T, ch chan []byte) []byte {
	t.Helper()
	select {
	case data := <-ch:
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for payload")
		return nil
	}
}

func TestSendToConnectionDeliversLocally(t *testing.T) {
	conn := &Connection{ID: "conn-1", UserID: uuid.New(), Send: make(chan []byte, 1)}
	h := newLocalHub(conn)

	h.SendToConnection("conn-1", &WSEvent{Type: EventNewMessage})

	data := waitPayload(t, conn.Send)
	if len(data) == 0 {
		t.Fatal("expected event payload")
	}
}

func TestSendToStaleConnectionIsSilent(t *testing.T) {
	alive := &Connection{ID: "conn-1", UserID: uuid.New(), Send: make(chan []byte, 1)}
	h := newLocalHub(alive)

	// The stale id resolves to nothing, delivery to the live socket
	// must still work
	h.SendToConnection("conn-gone", &WSEvent{Type: EventNewMessage})
	h.SendToConnection("conn-1", &WSEvent{Type: EventNewMessage})

	waitPayload(t, alive.Send)
}

func TestFullSendBufferDropsEvent(t *testing.T) {
	conn := &Connection{ID: "conn-1", UserID: uuid.New(), Send: make(chan []byte)}
	h := newLocalHub(conn)

	// Unbuffered channel with no reader, the event is dropped instead
	// of blocking the caller
	done := make(chan struct{})
	go func() {
		h.SendToConnection("conn-1", &WSEvent{Type: EventNewMessage})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("send blocked on a full buffer")
	}
}

func TestPresenceEventReachesLocalConnections(t *testing.T) {
	first := &Connection{ID: "conn-1", UserID: uuid.New(), Send: make(chan []byte, 1)}
	second := &Connection{ID: "conn-2", UserID: uuid.New(), Send: make(chan []byte, 1)}
	h := newLocalHub(first, second)

	userID := uuid.New()
	h.handlePresenceEvent(userID.String() + ":online")

	for _, conn := range []*Connection{first, second} {
		data := waitPayload(t, conn.Send)
		var event WSEvent
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if event.Type != EventPresence {
			t.Fatalf("expected %s, got %s", EventPresence, event.Type)
		}
		if event.UserID != userID || event.Status != "online" {
			t.Fatalf("wrong presence payload: %+v", event)
		}
	}
}

func TestMalformedPresenceEventIsIgnored(t *testing.T) {
	conn := &Connection{ID: "conn-1", UserID: uuid.New(), Send: make(chan []byte, 1)}
	h := newLocalHub(conn)

	h.handlePresenceEvent("not-a-uuid:online")
	h.handlePresenceEvent("garbage")

	select {
	case data := <-conn.Send:
		t.Fatalf("no event should be relayed, got %s", data)
	default:
	}
}

func TestRegisterDrivesPresence(t *testing.T) {
	reg := newFakeRegistrar()
	h := NewHub(nil, reg)
	go h.Run()
	defer h.Shutdown()

	userID := uuid.New()
	conn := &Connection{ID: "conn-1", UserID: userID, Send: make(chan []byte, 1)}
	h.Register(conn)

	deadline := time.After(2 * time.Second)
	for reg.online[userID] != "conn-1" {
		select {
		case <-deadline:
			t.Fatal("presence was never registered")
		case <-time.After(10 * time.Millisecond):
		}
	}

	h.Unregister(conn)
	for len(reg.offline) == 0 {
		select {
		case <-deadline:
			t.Fatal("presence was never cleared")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestStaleDisconnectKeepsNewConnection(t *testing.T) {
	reg := newFakeRegistrar()
	h := NewHub(nil, reg)
	go h.Run()
	defer h.Shutdown()

	userID := uuid.New()
	old := &Connection{ID: "conn-old", UserID: userID, Send: make(chan []byte, 1)}
	fresh := &Connection{ID: "conn-new", UserID: userID, Send: make(chan []byte, 1)}

	h.Register(old)
	h.Register(fresh)

	// The old socket's disconnect arrives after the reconnect
	h.Unregister(old)

	deadline := time.After(2 * time.Second)
	for len(reg.offline) == 0 {
		select {
		case <-deadline:
			t.Fatal("disconnect was never processed")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if reg.online[userID] != "conn-new" {
		t.Fatalf("stale disconnect cleared the fresh connection, registry has %q", reg.online[userID])
	}
}
