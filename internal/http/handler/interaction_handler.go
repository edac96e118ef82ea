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

// InteractionHandler exposes interaction logging endpoints
type InteractionHandler struct {
	interactionService *service.InteractionService
	logger             *zap.Logger
}

func NewInteractionHandler(interactionService *service.InteractionService, logger *zap.Logger) *InteractionHandler {
	return &InteractionHandler{
		interactionService: interactionService,
		logger:             logger,
	}
}

// Create records a customer interaction
func (h *InteractionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateInteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	interaction, err := h.interactionService.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create interaction", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, mapper.ToInteractionDTO(interaction))
}

// ListByCustomer returns a customer's interactions, newest first
func (h *InteractionHandler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(chi.URLParam(r, "customerID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	limit := parseIntParam(r, "limit", 50)

	interactions, err := h.interactionService.ListByCustomer(r.Context(), customerID, limit)
	if err != nil {
		h.logger.Error("failed to list interactions",
			zap.String("customer_id", customerID.String()), zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, mapper.ToInteractionDTOs(interactions))
}
