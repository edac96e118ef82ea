package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Harvlin/SaaS-CRM/internal/domain"
	"github.com/Harvlin/SaaS-CRM/internal/mapper"
	"github.com/Harvlin/SaaS-CRM/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EmailHandler exposes immediate send and scheduled email endpoints
type EmailHandler struct {
	emailService *service.EmailService
	logger       *zap.Logger
}

func NewEmailHandler(emailService *service.EmailService, logger *zap.Logger) *EmailHandler {
	return &EmailHandler{
		emailService: emailService,
		logger:       logger,
	}
}

// Send delivers an email immediately
func (h *EmailHandler) Send(w http.ResponseWriter, r *http.Request) {
	var msg domain.EmailMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.emailService.SendEmail(r.Context(), &msg); err != nil {
		h.logger.Error("failed to send email", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// Schedule queues an email for future delivery
func (h *EmailHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var msg domain.EmailMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email, err := h.emailService.ScheduleEmail(r.Context(), &msg)
	if err != nil {
		h.logger.Error("failed to schedule email", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, mapper.ToScheduledEmailDTO(email))
}

// List returns scheduled emails newest-first, paginated with limit/offset
func (h *EmailHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 50)
	offset := parseIntParam(r, "offset", 0)

	emails, err := h.emailService.ListScheduledEmails(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list scheduled emails", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, mapper.ToScheduledEmailDTOs(emails))
}

// Get returns one scheduled email by id
func (h *EmailHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid email id")
		return
	}

	email, err := h.emailService.GetScheduledEmail(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, mapper.ToScheduledEmailDTO(email))
}

// Cancel cancels a pending scheduled email. Emails already sent, failed, or
// cancelled respond with 409.
func (h *EmailHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid email id")
		return
	}

	email, err := h.emailService.CancelScheduledEmail(r.Context(), id)
	if err != nil {
		h.logger.Warn("failed to cancel scheduled email",
			zap.String("id", id.String()), zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, mapper.ToScheduledEmailDTO(email))
}
