package ticket

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/galleycloud/ticket-chat-api/internal/middleware"
	"github.com/galleycloud/ticket-chat-api/internal/pkg/response"
	"github.com/galleycloud/ticket-chat-api/internal/pkg/validator"
)

// Handler handles ticket HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates ticket handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /tickets
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	reporterID := middleware.GetUserID(r.Context())
	t, err := h.service.Create(r.Context(), reporterID, &req)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.Created(w, ResponseFromEntity(t))
}

// Get handles GET /tickets/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid ticket ID")
		return
	}

	t, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrTicketNotFound) {
			response.NotFound(w, "Ticket not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, ResponseFromEntity(t))
}

// Assign handles PATCH /tickets/{id}/assignment
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid ticket ID")
		return
	}

	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	t, err := h.service.Assign(r.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrTicketNotFound):
			response.NotFound(w, "Ticket not found")
		case errors.Is(err, ErrStaffNotFound):
			response.BadRequest(w, "Staff member not found")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, ResponseFromEntity(t))
}

// UpdateStatus handles PATCH /tickets/{id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid ticket ID")
		return
	}

	var req struct {
		Status string `json:"status" validate:"required,oneof=open pending resolved closed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	if err := h.service.UpdateStatus(r.Context(), id, Status(req.Status)); err != nil {
		if errors.Is(err, ErrTicketNotFound) {
			response.NotFound(w, "Ticket not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]string{"status": req.Status})
}

// List handles GET /tickets?merchant_id=...
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	merchantID, err := uuid.Parse(r.URL.Query().Get("merchant_id"))
	if err != nil {
		response.BadRequest(w, "Invalid merchant_id")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	tickets, err := h.service.ListByMerchant(r.Context(), merchantID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	items := make([]*TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		items = append(items, ResponseFromEntity(t))
	}
	response.OK(w, items)
}
