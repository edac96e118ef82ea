package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harvlin/SaaS-CRM/internal/config"
	"github.com/Harvlin/SaaS-CRM/internal/database"
	"github.com/Harvlin/SaaS-CRM/internal/http/handler"
	"github.com/Harvlin/SaaS-CRM/internal/http/router"
	"github.com/Harvlin/SaaS-CRM/internal/jobs"
	"github.com/Harvlin/SaaS-CRM/internal/logger"
	"github.com/Harvlin/SaaS-CRM/internal/mailer"
	"github.com/Harvlin/SaaS-CRM/internal/repository"
	"github.com/Harvlin/SaaS-CRM/internal/service"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&cfg.Logging, &cfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Environment),
		zap.Int("port", cfg.App.Port),
	)

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Initialize repositories
	customerRepo := repository.NewCustomerRepository(db)
	dealRepo := repository.NewDealRepository(db)
	stageRepo := repository.NewPipelineStageRepository(db)
	stageHistoryRepo := repository.NewDealStageHistoryRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	interactionRepo := repository.NewInteractionRepository(db)
	userRepo := repository.NewUserRepository(db)
	templateRepo := repository.NewEmailTemplateRepository(db)
	scheduledEmailRepo := repository.NewScheduledEmailRepository(db)

	// Initialize mail transport
	sender := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:        cfg.SMTP.Host,
		Port:        cfg.SMTP.Port,
		Username:    cfg.SMTP.Username,
		Password:    cfg.SMTP.Password,
		DefaultFrom: cfg.SMTP.DefaultFrom,
	}, log)

	// Initialize services
	interactionService := service.NewInteractionService(interactionRepo, customerRepo, log)
	analyticsService := service.NewAnalyticsService(
		customerRepo, dealRepo, stageRepo, stageHistoryRepo,
		taskRepo, interactionRepo, userRepo, log)
	emailService := service.NewEmailService(
		scheduledEmailRepo, templateRepo, customerRepo, dealRepo,
		interactionService, sender, log)
	dealService := service.NewDealService(dealRepo, stageRepo, stageHistoryRepo, log)

	// Initialize handlers
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService, log)
	emailHandler := handler.NewEmailHandler(emailService, log)
	interactionHandler := handler.NewInteractionHandler(interactionService, log)
	dealHandler := handler.NewDealHandler(dealService, log)

	rt := router.NewRouter(cfg, log, db, analyticsHandler, emailHandler, interactionHandler, dealHandler)

	// Initialize and start scheduler for background jobs
	scheduler := jobs.NewScheduler(log)
	if err := jobs.RegisterEmailDispatchJob(
		scheduler,
		emailService,
		log,
		cfg.Jobs.EmailDispatchSchedule,
		cfg.Jobs.EmailDispatchTimeoutDuration(),
	); err != nil {
		return fmt.Errorf("failed to register email dispatch job: %w", err)
	}
	scheduler.Start()
	log.Info("Scheduler started with email dispatch job",
		zap.String("cron_expr", cfg.Jobs.EmailDispatchSchedule),
		zap.Duration("timeout", cfg.Jobs.EmailDispatchTimeoutDuration()),
	)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Let any in-flight dispatch sweep finish
		schedCtx := scheduler.Stop()
		<-schedCtx.Done()
		log.Info("Scheduler stopped")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
