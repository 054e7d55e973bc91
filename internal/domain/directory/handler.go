package directory

import (
	"encoding/json"
	"net/http"

	"github.com/galleycloud/ticket-chat-api/internal/middleware"
	"github.com/galleycloud/ticket-chat-api/internal/pkg/response"
	"github.com/galleycloud/ticket-chat-api/internal/pkg/validator"
)

// Handler handles directory HTTP requests
type Handler struct {
	repo Repository
}

// NewHandler creates directory handler
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// UpdatePreferenceRequest for PUT /preferences
type UpdatePreferenceRequest struct {
	SupportEmail bool `json:"support_email"`
	SupportPush  bool `json:"support_push"`
}

// RegisterDeviceRequest for POST /devices
type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=ios android web"`
}

// GetPreference handles GET /preferences
func (h *Handler) GetPreference(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	pref, err := h.repo.GetPreference(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}
	if pref == nil {
		// Missing rows default to everything enabled
		pref = &NotificationPreference{UserID: userID, SupportEmail: true, SupportPush: true}
	}

	response.OK(w, pref)
}

// UpdatePreference handles PUT /preferences
func (h *Handler) UpdatePreference(w http.ResponseWriter, r *http.Request) {
	var req UpdatePreferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	userID := middleware.GetUserID(r.Context())
	pref := &NotificationPreference{
		UserID:       userID,
		SupportEmail: req.SupportEmail,
		SupportPush:  req.SupportPush,
	}

	if err := h.repo.UpsertPreference(r.Context(), pref); err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, pref)
}

// RegisterDevice handles POST /devices
func (h *Handler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	userID := middleware.GetUserID(r.Context())
	token := &DeviceToken{
		UserID:   userID,
		Token:    req.Token,
		Platform: req.Platform,
	}

	if err := h.repo.SaveDeviceToken(r.Context(), token); err != nil {
		response.InternalError(w)
		return
	}

	response.Created(w, map[string]string{"status": "registered"})
}
