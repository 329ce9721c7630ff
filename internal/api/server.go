// Package api implements the HTTP request pipeline: route dispatch,
// content negotiation, and the cache/single-flight layer sitting in front
// of the backend facade.
package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/vitaliisemenov/configserver/internal/backend"
	"github.com/vitaliisemenov/configserver/internal/cache"
	"github.com/vitaliisemenov/configserver/internal/refresh"
)

// Fetcher is the subset of the backend facade the pipeline depends on.
type Fetcher interface {
	Fetch(ctx context.Context, q backend.Query) (*backend.ResponseDocument, error)
}

// RefreshSnapshot is the subset of the refresh worker the pipeline depends
// on for the /health and /admin/status endpoints.
type RefreshSnapshot interface {
	Snapshot() (refresh.State, refresh.Phase)
}

// Refresher additionally allows the admin surface to force a refresh cycle.
type Refresher interface {
	RefreshSnapshot
	ForceRefresh(ctx context.Context) (string, error)
}

// Server holds the pipeline's dependencies: the backend facade, the
// fingerprint cache, and the refresh worker's published state.
type Server struct {
	backend        Fetcher
	cache          *cache.Cache
	refresh        RefreshSnapshot
	refresher      Refresher
	requestTimeout time.Duration
	logger         *slog.Logger
}

// NewServer constructs a Server. rs satisfying Refresher additionally
// enables the admin force-refresh endpoint; a bare RefreshSnapshot still
// works for /health and /admin/status.
func NewServer(b Fetcher, c *cache.Cache, rs RefreshSnapshot, requestTimeout time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		backend:        b,
		cache:          c,
		refresh:        rs,
		requestTimeout: requestTimeout,
		logger:         logger,
	}
	if full, ok := rs.(Refresher); ok {
		s.refresher = full
	}
	return s
}
