package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Harvlin/SaaS-CRM/internal/domain"
	"github.com/Harvlin/SaaS-CRM/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DealHandler exposes deal endpoints needed by the pipeline analytics:
// fetching a deal and moving it between stages
type DealHandler struct {
	dealService *service.DealService
	logger      *zap.Logger
}

func NewDealHandler(dealService *service.DealService, logger *zap.Logger) *DealHandler {
	return &DealHandler{
		dealService: dealService,
		logger:      logger,
	}
}

// Get returns one deal by id
func (h *DealHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid deal id")
		return
	}

	deal, err := h.dealService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, deal)
}

// UpdateStage moves a deal to another pipeline stage
func (h *DealHandler) UpdateStage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid deal id")
		return
	}

	var req domain.UpdateDealStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	deal, err := h.dealService.UpdateStage(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to update deal stage",
			zap.String("deal_id", id.String()), zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, deal)
}
