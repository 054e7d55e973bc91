package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/galleycloud/ticket-chat-api/internal/pkg/jwt"
	"github.com/galleycloud/ticket-chat-api/internal/pkg/response"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	ActorTypeKey contextKey = "actor_type"
)

// Actor types carried in access tokens
const (
	ActorCustomer      = "customer"
	ActorMerchant      = "merchant"
	ActorInternalAdmin = "internalAdmin"
)

// Auth returns middleware that validates JWT
func Auth(jwtService *jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			claims, err := jwtService.ValidateAccessToken(parts[1])
			if err != nil {
				if err == jwt.ErrExpiredToken {
					response.Unauthorized(w, "Token expired")
				} else {
					response.Unauthorized(w, "Invalid token")
				}
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, ActorTypeKey, claims.ActorType)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(UserIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// GetActorType extracts actor type from context
func GetActorType(ctx context.Context) string {
	if actor, ok := ctx.Value(ActorTypeKey).(string); ok {
		return actor
	}
	return ""
}

// RequireActor returns middleware that checks actor type
func RequireActor(actors ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorType := GetActorType(r.Context())

			for _, actor := range actors {
				if actorType == actor {
					next.ServeHTTP(w, r)
					return
				}
			}

			response.Forbidden(w, "Insufficient permissions")
		})
	}
}

// RequireInternalAdmin returns middleware that requires internal admin actor
func RequireInternalAdmin() func(http.Handler) http.Handler {
	return RequireActor(ActorInternalAdmin)
}

// RequireStaff returns middleware that requires merchant or internal admin actor
func RequireStaff() func(http.Handler) http.Handler {
	return RequireActor(ActorMerchant, ActorInternalAdmin)
}
