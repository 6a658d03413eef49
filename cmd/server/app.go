package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/vhlong/readpulse-api/internal/config"
	"github.com/vhlong/readpulse-api/internal/orchestrator"
	"github.com/vhlong/readpulse-api/internal/platform/gemini"
	"github.com/vhlong/readpulse-api/internal/platform/postgres"
	"github.com/vhlong/readpulse-api/internal/service"
	"github.com/vhlong/readpulse-api/internal/store"
)

// application holds the fully wired dependency graph of the server.
type application struct {
	config *config.Config
	logger *slog.Logger

	db           *sql.DB
	sessionStore store.ReadingSessionStore

	orchestration *orchestrator.Service

	quizService     *service.QuizService
	gradeService    *service.GradeService
	analysisService *service.AnalysisService
}

// newApplication wires every component from configuration: the optional
// database and session store, the credential registry, the request
// scheduler, the Gemini client, the orchestration facade, and the feature
// services on top of it.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	// Persistence is optional: without a database URL the grading path
	// simply skips session storage.
	if cfg.Database.URL != "" {
		db, err := setupAppDatabase(cfg, logger)
		if err != nil {
			return nil, err
		}
		if err := runMigrations(db, logger); err != nil {
			_ = db.Close()
			return nil, err
		}
		app.db = db
		app.sessionStore = postgres.NewPostgresSessionStore(db, logger)
	}

	registryCfg := orchestrator.RegistryConfig{
		DisableThreshold: cfg.LLM.DisableThreshold,
		ReactivateAfter:  cfg.LLM.ReactivateAfter,
		QuotaWindow:      cfg.LLM.QuotaWindow,
		MinSpacing:       cfg.LLM.MinKeySpacing,
		SweepInterval:    orchestrator.DefaultRegistryConfig().SweepInterval,
	}
	registry, err := orchestrator.NewKeyRegistry(cfg.LLM.APIKeyList(), registryCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("configuring LLM credential pool: %w", err)
	}

	schedulerCfg := orchestrator.SchedulerConfig{
		QueueSize:      orchestrator.DefaultSchedulerConfig().QueueSize,
		MaxRetries:     cfg.LLM.MaxRetries,
		BaseDelay:      cfg.LLM.BaseDelay,
		MaxDelay:       cfg.LLM.MaxDelay,
		InterCallDelay: cfg.LLM.InterCallDelay,
	}
	scheduler := orchestrator.NewRequestScheduler(schedulerCfg, logger)

	client := gemini.NewClient(gemini.ClientConfig{
		BaseURL:    cfg.LLM.BaseURL,
		Model:      cfg.LLM.Model,
		Timeout:    cfg.LLM.RequestTimeout,
		MinSpacing: cfg.LLM.MinKeySpacing,
	}, registry, logger)

	app.orchestration = orchestrator.New(registry, scheduler, client,
		orchestrator.ServiceConfig{MaxAttempts: cfg.LLM.MaxAttempts}, logger)

	app.quizService = service.NewQuizService(app.orchestration, logger)
	app.gradeService = service.NewGradeService(app.orchestration, app.sessionStore, logger)
	app.analysisService = service.NewAnalysisService(app.orchestration, logger)

	return app, nil
}

// run starts the orchestration layer and the HTTP server, blocking until
// shutdown completes.
func (app *application) run() error {
	app.orchestration.Start()
	return app.startHTTPServer(context.Background(), app.setupRouter())
}

// startHTTPServer starts the HTTP server with graceful shutdown support.
func (app *application) startHTTPServer(ctx context.Context, router http.Handler) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: router,
	}

	serverCtx, cancelServer := context.WithCancel(ctx)
	defer cancelServer()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		app.logger.Info("Starting server", "port", app.config.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Error("Server failed", "error", err)
			cancelServer()
		}
	}()

	select {
	case <-shutdownCh:
		app.logger.Info("Shutting down server...")
	case <-serverCtx.Done():
		app.logger.Info("Server context canceled, shutting down...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("Server shutdown failed", "error", err)
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	app.logger.Info("Server shutdown completed")
	return nil
}

// cleanup releases the resources the application holds: the orchestration
// layer's goroutines and timers, then the database connection.
func (app *application) cleanup() {
	if app.orchestration != nil {
		app.orchestration.Stop()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Failed to close database connection", "error", err)
		}
	}
}
