package router

import (
	"encoding/json"
	"net/http"

	"github.com/Harvlin/SaaS-CRM/internal/config"
	"github.com/Harvlin/SaaS-CRM/internal/http/handler"
	"github.com/Harvlin/SaaS-CRM/internal/http/middleware"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Router struct {
	cfg                *config.Config
	logger             *zap.Logger
	db                 *gorm.DB
	analyticsHandler   *handler.AnalyticsHandler
	emailHandler       *handler.EmailHandler
	interactionHandler *handler.InteractionHandler
	dealHandler        *handler.DealHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	analyticsHandler *handler.AnalyticsHandler,
	emailHandler *handler.EmailHandler,
	interactionHandler *handler.InteractionHandler,
	dealHandler *handler.DealHandler,
) *Router {
	return &Router{
		cfg:                cfg,
		logger:             logger,
		db:                 db,
		analyticsHandler:   analyticsHandler,
		emailHandler:       emailHandler,
		interactionHandler: interactionHandler,
		dealHandler:        dealHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(middleware.RateLimit(&rt.cfg.RateLimit, rt.logger))

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Database health check (readiness probe)
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		sqlDB, err := rt.db.DB()
		if err == nil {
			err = sqlDB.PingContext(r.Context())
		}
		if err != nil {
			rt.logger.Error("database health check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{
				"status":  "unhealthy",
				"service": "database",
				"error":   err.Error(),
			})
			return
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"service": "database",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/analytics", func(r chi.Router) {
			r.Get("/dashboard", rt.analyticsHandler.GetDashboard)
			r.Get("/pipeline", rt.analyticsHandler.GetPipeline)
			r.Get("/sales-performance", rt.analyticsHandler.GetSalesPerformance)
			r.Get("/sales-performance/{userID}", rt.analyticsHandler.GetSalesPerformanceByUser)
			r.Get("/customer-growth", rt.analyticsHandler.GetCustomerGrowth)
			r.Get("/deal-value-trend", rt.analyticsHandler.GetDealValueTrend)
			r.Get("/interactions-by-type", rt.analyticsHandler.GetInteractionsByType)
			r.Get("/forecast", rt.analyticsHandler.GetForecast)
		})

		r.Route("/emails", func(r chi.Router) {
			r.Post("/", rt.emailHandler.Send)
			r.Post("/schedule", rt.emailHandler.Schedule)
			r.Route("/scheduled", func(r chi.Router) {
				r.Get("/", rt.emailHandler.List)
				r.Get("/{id}", rt.emailHandler.Get)
				r.Post("/{id}/cancel", rt.emailHandler.Cancel)
			})
		})

		r.Post("/interactions", rt.interactionHandler.Create)
		r.Get("/customers/{customerID}/interactions", rt.interactionHandler.ListByCustomer)

		r.Route("/deals", func(r chi.Router) {
			r.Get("/{id}", rt.dealHandler.Get)
			r.Put("/{id}/stage", rt.dealHandler.UpdateStage)
		})
	})

	return r
}
