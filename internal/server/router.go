package server

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/cardsmith/internal/api"
	"github.com/cloo-solutions/cardsmith/internal/api/handlers"
	"github.com/cloo-solutions/cardsmith/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	PreprocessHandler *handlers.PreprocessHandler
	// DocumentHandler is optional; without it the /documents routes are not
	// mounted.
	DocumentHandler *handlers.DocumentHandler
	Health          HealthChecker
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)

	r.Get("/health", healthHandler(cfg.Health))

	r.Group(func(r chi.Router) {
		r.Use(middleware.MaxBodyBytes(middleware.DefaultMaxJSONBody))

		r.Post("/preprocess", cfg.PreprocessHandler.Preprocess)
		r.Post("/preprocess/batches", cfg.PreprocessHandler.Batches)
		r.Post("/estimate", cfg.PreprocessHandler.Estimate)
	})

	if cfg.DocumentHandler != nil {
		r.Route("/documents", func(r chi.Router) {
			r.With(middleware.MaxBodyBytes(middleware.DefaultMaxJSONBody)).Post("/", cfg.DocumentHandler.Submit)
			r.With(middleware.MaxBodyBytes(middleware.DefaultMaxUploadBody)).Post("/upload", cfg.DocumentHandler.Upload)
			r.Get("/{id}", cfg.DocumentHandler.Get)
			r.Get("/{id}/result", cfg.DocumentHandler.Result)
		})
	}

	return r
}

func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.Ping(r.Context()); err != nil {
				api.Error(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
