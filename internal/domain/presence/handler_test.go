package presence

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/galleycloud/ticket-chat-api/internal/middleware"
)

func staffAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), middleware.UserIDKey, uuid.New())
		ctx = context.WithValue(ctx, middleware.ActorTypeKey, middleware.ActorMerchant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func TestGetReportsReachability(t *testing.T) {
	repo := newFakePresenceRepo()
	svc := NewService(repo, nil)
	router := NewHandler(svc).Routes(staffAuth)

	userID := uuid.New()
	if err := svc.UpsertOnline(context.Background(), userID, "conn-1"); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/"+userID.String(), nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Data struct {
			Online bool `json:"online"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Data.Online {
		t.Fatal("connected user should report online")
	}
}

func TestGetUnknownUserIsOffline(t *testing.T) {
	repo := newFakePresenceRepo()
	router := NewHandler(NewService(repo, nil)).Routes(staffAuth)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/"+uuid.NewString(), nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Data struct {
			Online bool `json:"online"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.Online {
		t.Fatal("user with no presence row should report offline")
	}
}
