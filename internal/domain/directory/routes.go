package directory

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns directory router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(authMiddleware)

	r.Get("/preferences", h.GetPreference)
	r.Put("/preferences", h.UpdatePreference)
	r.Post("/devices", h.RegisterDevice)

	return r
}
