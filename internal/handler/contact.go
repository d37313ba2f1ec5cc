package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rothspit/diabro-web/internal/model"
	"github.com/rothspit/diabro-web/internal/service"
	"github.com/rothspit/diabro-web/pkg/logger"
)

// ContactSentMessage confirms a stored inquiry.
const ContactSentMessage = "送信完了しました"

// ContactHandler handles the contact form endpoint.
type ContactHandler struct {
	service *service.ContactService
	logger  *logger.Logger
}

// NewContactHandler creates a new contact handler.
func NewContactHandler(svc *service.ContactService, log *logger.Logger) *ContactHandler {
	return &ContactHandler{
		service: svc,
		logger:  log,
	}
}

// Submit handles POST /api/v1/contact
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req model.ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inquiry, err := h.service.Submit(r.Context(), &req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, &model.ContactResponse{
			ID:      inquiry.ID,
			Message: ContactSentMessage,
		})
	case errors.Is(err, service.ErrInvalidContact):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrContactFailed):
		writeError(w, http.StatusBadGateway, "送信に失敗しました。もう一度お試しください。")
	default:
		writeError(w, http.StatusInternalServerError, "failed to submit inquiry")
	}
}
