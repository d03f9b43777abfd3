package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/jun/fitadvice/internal/middleware"
)

// NewRouter mounts the app behind request-id, recovery and logging
// middleware. metricsHandler is served at /metrics when non-nil.
func NewRouter(fn LambdaFunc, metricsHandler http.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.NewLoggingMiddleware(logger))

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}
	r.Handle("/*", LambdaAdapter(fn))
	return r
}
