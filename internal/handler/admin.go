package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rothspit/diabro-web/internal/middleware"
	"github.com/rothspit/diabro-web/internal/service"
	"github.com/rothspit/diabro-web/pkg/logger"
)

// AdminHandler serves the staff endpoints.
type AdminHandler struct {
	service *service.AdminService
	logger  *logger.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(svc *service.AdminService, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		service: svc,
		logger:  log,
	}
}

// ListApplicants handles GET /api/v1/admin/applicants
func (h *AdminHandler) ListApplicants(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	resp, err := h.service.ListApplicants(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list applicants",
			zap.String("user_id", middleware.GetUserID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to list applicants")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Transcript handles GET /api/v1/admin/sessions/{id}/transcript
func (h *AdminHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.service.Transcript(r.Context(), sessionID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{
			"session_id": sessionID,
			"entries":    entries,
		})
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	default:
		h.logger.Error("failed to read transcript",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to read transcript")
	}
}
