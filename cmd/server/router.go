package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vhlong/readpulse-api/internal/api"
	apiMiddleware "github.com/vhlong/readpulse-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	proxyHandler := api.NewProxyHandler(app.quizService, app.gradeService, app.analysisService)
	sessionHandler := api.NewSessionHandler(app.sessionStore)
	keysHandler := api.NewKeysHandler(app.orchestration)

	r.Route("/api", func(r chi.Router) {
		r.Route("/proxy", func(r chi.Router) {
			r.Post("/generate-quiz", proxyHandler.GenerateQuiz)
			r.Post("/grade-quiz", proxyHandler.GradeQuiz)
			r.Post("/analyze-text", proxyHandler.AnalyzeText)
		})

		r.Get("/sessions", sessionHandler.ListSessions)
		r.Get("/llm/keys", keysHandler.ListKeys)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
