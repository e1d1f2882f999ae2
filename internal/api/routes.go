// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func (s *Server) routes() http.Handler {
	cfg := s.snapshotConfig()

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(securityHeaders)

	if cfg.RateLimitEnabled {
		r.Use(httprate.Limit(
			cfg.RateLimitRequests,
			cfg.RateLimitWindow,
			httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
				return clientIP(r), nil
			}),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "1")
				respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			}),
		))
	}

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	// Presigned downloads carry their own credential in the query string.
	r.Get("/files/{key}", s.handleFileDownload)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/query", s.handleQuery)
		r.Post("/routines/generate", s.handleGenerateRoutines)
		r.Get("/routines", s.handleGetRoutines)
	})

	return otelhttp.NewHandler(r, "assistbridge.http")
}
