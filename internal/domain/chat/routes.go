package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns chat router, mounted under /rooms
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(authMiddleware)

	r.Post("/{id}/messages", h.SendMessage)
	r.Get("/{id}/messages", h.GetMessages)
	r.Post("/{id}/read", h.MarkRead)
	r.Get("/{id}/unread", h.GetUnread)
	r.Get("/{id}/participants", h.GetParticipants)

	return r
}
