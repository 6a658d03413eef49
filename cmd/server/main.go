// Package main implements the entry point for the ReadPulse API server,
// which proxies reading-comprehension features (quiz generation, grading,
// text analysis) through a multi-key LLM orchestration layer.
package main

import (
	"fmt"
	"log"
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/vhlong/readpulse-api/internal/config"
	"github.com/vhlong/readpulse-api/internal/platform/logger"
)

// main is the entry point for the readpulse-api server. It initializes
// configuration, sets up logging, establishes the optional database
// connection, wires the orchestration layer and services, and starts the
// HTTP server.
func main() {
	// Load .env for local development; absence is not an error.
	if err := godotenv.Load(); err == nil {
		fmt.Println("Loaded environment from .env")
	}

	app, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.cleanup()

	if err := app.run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// initializeApp loads configuration and sets up application components.
func initializeApp() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"database_configured", cfg.Database.URL != "",
		"llm_keys", len(cfg.LLM.APIKeyList()))

	return newApplication(cfg, appLogger)
}
