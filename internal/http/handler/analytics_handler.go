package handler

import (
	"net/http"

	"github.com/Harvlin/SaaS-CRM/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnalyticsHandler exposes the aggregated analytics endpoints.
// All endpoints accept optional start/end query parameters; omitting them
// falls back to the trailing 30-day window.
type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
	logger           *zap.Logger
}

func NewAnalyticsHandler(analyticsService *service.AnalyticsService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		logger:           logger,
	}
}

// GetDashboard returns the full dashboard metrics snapshot
func (h *AnalyticsHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	rng, err := parseDateRange(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid date range: "+err.Error())
		return
	}

	metrics, err := h.analyticsService.GetDashboardMetrics(r.Context(), rng)
	if err != nil {
		h.logger.Error("failed to get dashboard metrics", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, metrics)
}

// GetPipeline returns per-stage deal statistics
func (h *AnalyticsHandler) GetPipeline(w http.ResponseWriter, r *http.Request) {
	rng, err := parseDateRange(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid date range: "+err.Error())
		return
	}

	metrics, err := h.analyticsService.GetPipelineMetrics(r.Context(), rng)
	if err != nil {
		h.logger.Error("failed to get pipeline metrics", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, metrics)
}

// GetSalesPerformance returns per-user sales statistics
func (h *AnalyticsHandler) GetSalesPerformance(w http.ResponseWriter, r *http.Request) {
	rng, err := parseDateRange(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid date range: "+err.Error())
		return
	}

	metrics, err := h.analyticsService.GetSalesPerformance(r.Context(), rng)
	if err != nil {
		h.logger.Error("failed to get sales performance", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, metrics)
}

// GetSalesPerformanceByUser returns one user's sales statistics
func (h *AnalyticsHandler) GetSalesPerformanceByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	rng, err := parseDateRange(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid date range: "+err.Error())
		return
	}

	metric, err := h.analyticsService.GetSalesPerformanceByUser(r.Context(), userID, rng)
	if err != nil {
		h.logger.Error("failed to get user sales performance",
			zap.String("user_id", userID.String()), zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, metric)
}

// GetCustomerGrowth returns a bucketed customer signup series.
// The interval query parameter must be day, week, or month (default day).
func (h *AnalyticsHandler) GetCustomerGrowth(w http.ResponseWriter, r *http.Request) {
	rng, err := parseDateRange(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid date range: "+err.Error())
		return
	}
	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = "day"
	}

	points, err := h.analyticsService.GetCustomerGrowth(r.Context(), rng, interval)
	if err != nil {
		h.logger.Error("failed to get customer growth", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, points)
}

// GetDealValueTrend returns a bucketed created-deal-value series.
// The interval query parameter must be day, week, or month (default day).
func (h *AnalyticsHandler) GetDealValueTrend(w http.ResponseWriter, r *http.Request) {
	rng, err := parseDateRange(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid date range: "+err.Error())
		return
	}
	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = "day"
	}

	points, err := h.analyticsService.GetDealValueTrend(r.Context(), rng, interval)
	if err != nil {
		h.logger.Error("failed to get deal value trend", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, points)
}

// GetInteractionsByType returns interaction counts per type
func (h *AnalyticsHandler) GetInteractionsByType(w http.ResponseWriter, r *http.Request) {
	rng, err := parseDateRange(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid date range: "+err.Error())
		return
	}

	counts, err := h.analyticsService.GetInteractionsByType(r.Context(), rng)
	if err != nil {
		h.logger.Error("failed to get interactions by type", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

// GetForecast returns the monthly sales forecast.
// The months query parameter sets the horizon (default 3).
func (h *AnalyticsHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	months := parseIntParam(r, "months", 3)

	points, err := h.analyticsService.GenerateSalesForecast(r.Context(), months)
	if err != nil {
		h.logger.Error("failed to generate sales forecast", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, points)
}
