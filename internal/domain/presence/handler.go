package presence

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/galleycloud/ticket-chat-api/internal/middleware"
	"github.com/galleycloud/ticket-chat-api/internal/pkg/response"
)

// Handler handles presence HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates presence handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Get handles GET /presence/{user_id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	online, err := h.service.IsOnline(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			response.Error(w, http.StatusServiceUnavailable, "PRESENCE_UNAVAILABLE", "Presence registry is unavailable")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{
		"user_id": userID,
		"online":  online,
	})
}

// Routes returns presence router. Reachability lookups are a staff
// operation.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(authMiddleware)
	r.Use(middleware.RequireStaff())

	r.Get("/{user_id}", h.Get)

	return r
}
