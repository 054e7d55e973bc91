package attachment

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/galleycloud/ticket-chat-api/internal/middleware"
	"github.com/galleycloud/ticket-chat-api/internal/pkg/response"
	"github.com/galleycloud/ticket-chat-api/internal/pkg/storage"
)

// Handler handles attachment HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates attachment handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Upload handles POST /attachments (multipart/form-data, field "file")
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(storage.MaxAttachmentSize); err != nil {
		response.BadRequest(w, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "Missing file field")
		return
	}
	defer file.Close()

	userID := middleware.GetUserID(r.Context())
	a, err := h.service.Upload(r.Context(), userID, header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrFileTooLarge):
			response.BadRequest(w, "File is too large")
		case errors.Is(err, storage.ErrInvalidMimeType):
			response.BadRequest(w, "Unsupported file type")
		case errors.Is(err, storage.ErrEmptyFile):
			response.BadRequest(w, "File is empty")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, a)
}

// Get handles GET /attachments/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid attachment ID")
		return
	}

	a, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrAttachmentNotFound) {
			response.NotFound(w, "Attachment not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, a)
}

// Delete handles DELETE /attachments/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid attachment ID")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.service.Delete(r.Context(), id, userID); err != nil {
		switch {
		case errors.Is(err, ErrAttachmentNotFound):
			response.NotFound(w, "Attachment not found")
		case errors.Is(err, ErrNotOwner):
			response.Forbidden(w, "You do not own this attachment")
		default:
			response.InternalError(w)
		}
		return
	}

	response.NoContent(w)
}

// Routes returns attachment router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(authMiddleware)

	r.Post("/", h.Upload)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)

	return r
}
