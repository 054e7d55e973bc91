package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/galleycloud/ticket-chat-api/internal/middleware"
)

func actorAuth(userID uuid.UUID, actorType string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID)
			ctx = context.WithValue(ctx, middleware.ActorTypeKey, actorType)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type denyLimiter struct{}

func (denyLimiter) Allow(uuid.UUID) bool { return false }

func TestSendMessageRateLimited(t *testing.T) {
	f := newFixture()
	svc, _, _, _ := newTestService(f)

	h := NewHandler(svc, newLocalHub(), nil, nil)
	h.rateLimiter = denyLimiter{}
	router := h.Routes(actorAuth(f.customerID, middleware.ActorCustomer))

	body := strings.NewReader(`{"body":{"type":"Text","content":"hello"}}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/"+f.roomID.String()+"/messages", body))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestSendMessageWithinLimit(t *testing.T) {
	f := newFixture()
	svc, repo, _, _ := newTestService(f)

	h := NewHandler(svc, newLocalHub(), nil, nil)
	router := h.Routes(actorAuth(f.customerID, middleware.ActorCustomer))

	body := strings.NewReader(`{"body":{"type":"Text","content":"hello"}}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/"+f.roomID.String()+"/messages", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(repo.messages) != 1 {
		t.Fatalf("expected the message to be persisted, got %d", len(repo.messages))
	}
}
