package server

import (
	"context"
	"net/http"
	"time"

	"github.com/cloo-solutions/contestgen/internal/api"
	"github.com/cloo-solutions/contestgen/internal/api/handlers"
	"github.com/cloo-solutions/contestgen/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	JobHandler *handlers.JobHandler
	// TokenValidator guards the trigger and job routes; nil leaves them open.
	TokenValidator middleware.TokenValidator
	Metrics        http.Handler
	Database       Pinger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 << 20

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog("/health", "/metrics"))
	r.Use(middleware.LimitBody(maxBodyBytes))

	r.Get("/", handlers.Status)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Database != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := cfg.Database.Ping(ctx); err != nil {
				api.Error(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		if cfg.TokenValidator != nil {
			r.Use(middleware.BearerAuth(cfg.TokenValidator))
		}

		r.Post("/generate-now", cfg.JobHandler.GenerateNow)
		r.Post("/generate/{subject}", cfg.JobHandler.GenerateSubject)

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", cfg.JobHandler.List)
			r.Get("/{id}", cfg.JobHandler.Get)
		})
	})

	return r
}
