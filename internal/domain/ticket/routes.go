package ticket

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/galleycloud/ticket-chat-api/internal/middleware"
)

// Routes returns ticket router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(authMiddleware)

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	// Assignment and status changes are a staff operation
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireStaff())
		r.Patch("/{id}/assignment", h.Assign)
		r.Patch("/{id}/status", h.UpdateStatus)
	})

	return r
}
