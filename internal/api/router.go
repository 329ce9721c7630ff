package api

import (
	"log/slog"

	"github.com/gorilla/mux"

	"github.com/vitaliisemenov/configserver/internal/api/middleware"
	"github.com/vitaliisemenov/configserver/internal/config"
)

// NewRouter builds the HTTP route table over s, applying the ambient
// middleware stack in order: request-id, then logging, then metrics, then
// per-client rate limiting (if enabled), then gzip compression.
//
// Route table:
//
//	GET    /{app}/{profiles}              fetch with default label
//	GET    /{app}/{profiles}/{label}      fetch with explicit label
//	GET    /{app}-{profiles}.{ext}        same, ext overrides Accept
//	GET    /health                        {"status":"UP"|"DOWN"}
//	GET    /admin/status                  refresh worker state, for configctl
//	POST   /admin/refresh                 force an immediate refresh cycle
//	DELETE /cache/{app}/{profile}/{label} invalidate one entry
//	DELETE /cache?pattern=...             invalidate by glob
//	DELETE /cache                         full flush
func NewRouter(s *Server, rl config.RateLimitConfig, logger *slog.Logger) *mux.Router {
	if logger == nil {
		logger = slog.Default()
	}

	router := mux.NewRouter()
	router.UseEncodedPath()

	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.MetricsMiddleware)
	if rl.Enabled {
		router.Use(middleware.RateLimitMiddleware(rl.RequestsPerMinute, rl.Burst))
	}
	router.Use(middleware.CompressionMiddleware)

	router.HandleFunc("/health", s.healthHandler).Methods("GET")

	router.HandleFunc("/admin/status", s.adminStatusHandler).Methods("GET")
	router.HandleFunc("/admin/refresh", s.adminRefreshHandler).Methods("POST")

	router.HandleFunc("/cache", s.deleteCacheHandler).Methods("DELETE")
	router.HandleFunc("/cache/{app}/{profile}/{label:.*}", s.deleteCacheEntryHandler).Methods("DELETE")

	router.HandleFunc("/{app}-{profiles}.{ext}", s.fetchHandler).Methods("GET")
	router.HandleFunc("/{app}/{profiles}/{label:.*}", s.fetchHandler).Methods("GET")
	router.HandleFunc("/{app}/{profiles}", s.fetchHandler).Methods("GET")

	return router
}
