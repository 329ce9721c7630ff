package api

import (
	"encoding/json"
	"net/http"

	apierrors "github.com/vitaliisemenov/configserver/internal/api/errors"
	"github.com/vitaliisemenov/configserver/internal/api/middleware"
)

// adminStatusResponse mirrors the refresh worker's published state for
// operator tooling (configctl status).
type adminStatusResponse struct {
	Phase               string `json:"phase"`
	CurrentCommit       string `json:"currentCommit"`
	CurrentLabel        string `json:"currentLabel"`
	LastRefreshTime     string `json:"lastRefreshTime,omitempty"`
	RefreshCount        uint64 `json:"refreshCount"`
	ConsecutiveFailures uint64 `json:"consecutiveFailures"`
	LastError           string `json:"lastError,omitempty"`
	CacheEntries        int    `json:"cacheEntries"`
}

func (s *Server) adminStatusHandler(w http.ResponseWriter, r *http.Request) {
	state, phase := s.refresh.Snapshot()

	resp := adminStatusResponse{
		Phase:               phase.String(),
		CurrentCommit:       state.CurrentCommit,
		CurrentLabel:        state.CurrentLabel,
		RefreshCount:        state.RefreshCount,
		ConsecutiveFailures: state.ConsecutiveFailures,
		LastError:           state.LastError,
		CacheEntries:        s.cache.Len(),
	}
	if !state.LastRefreshTime.IsZero() {
		resp.LastRefreshTime = state.LastRefreshTime.Format("2006-01-02T15:04:05Z07:00")
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// adminRefreshHandler forces an immediate refresh cycle and waits for its
// result, surfacing the new commit or the underlying error.
func (s *Server) adminRefreshHandler(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	if s.refresher == nil {
		s.writeError(w, apierrors.InternalError("force-refresh is not available on this server"), requestID)
		return
	}

	commit, err := s.refresher.ForceRefresh(r.Context())
	if err != nil {
		s.writeError(w, apierrors.InternalError(err.Error()), requestID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"commit": commit})
}
