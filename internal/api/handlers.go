package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	apierrors "github.com/vitaliisemenov/configserver/internal/api/errors"
	"github.com/vitaliisemenov/configserver/internal/api/middleware"
	"github.com/vitaliisemenov/configserver/internal/backend"
	"github.com/vitaliisemenov/configserver/internal/cache"
	"github.com/vitaliisemenov/configserver/internal/property"
)

// fetchHandler serves the environment/resource endpoints. The response
// shape depends on the negotiated format: JSON renders the full envelope
// (name, profiles, label, version, state, propertySources); YAML and
// properties render the merged, flattened document, matching how a
// Spring-compatible client expects a "resource" request to behave.
func (s *Server) fetchHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	requestID := middleware.GetRequestID(r.Context())

	application := vars["app"]
	profiles := splitProfiles(vars["profiles"])
	label, err := decodeLabel(vars["label"])
	if err != nil {
		s.writeError(w, apierrors.InvalidLabelError(vars["label"]), requestID)
		return
	}

	ext := vars["ext"]
	format := negotiate(r, ext)

	ctx := r.Context()
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	key := cache.Key(application, profiles, s.resolvedLabel(label))
	doc, err := s.cache.GetOrFetch(ctx, key, func(fctx context.Context) (*backend.ResponseDocument, error) {
		return s.backend.Fetch(fctx, backend.Query{Application: application, Profiles: profiles, Label: label})
	})
	if err != nil {
		if ctx.Err() != nil {
			s.writeError(w, apierrors.TimeoutError(), requestID)
			return
		}
		s.writeAPIErr(w, err, requestID)
		return
	}

	s.writeDocument(w, doc, format)
}

func (s *Server) writeDocument(w http.ResponseWriter, doc *backend.ResponseDocument, format Format) {
	w.Header().Set("Content-Type", format.contentType())

	switch format {
	case FormatYAML:
		body, err := property.EncodeYAML(doc.Merged)
		if err != nil {
			s.writeError(w, apierrors.InternalError("failed to encode response"), "")
			return
		}
		w.Write(body)
	case FormatProperties:
		w.Write(property.EncodeProperties(doc.Merged))
	default:
		json.NewEncoder(w).Encode(doc)
	}
}

// healthHandler reports UP once the mirror has synchronized at least once
// (whether the refresh worker is currently Idle or Failing with cached
// data), and DOWN if it has never completed a refresh cycle.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	state, _ := s.refresh.Snapshot()

	status := "UP"
	code := http.StatusOK
	if state.CurrentCommit == "" {
		status = "DOWN"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// deleteCacheEntryHandler invalidates the single entry for (app, profile,
// label).
func (s *Server) deleteCacheEntryHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	label, err := decodeLabel(vars["label"])
	if err != nil {
		s.writeError(w, apierrors.InvalidLabelError(vars["label"]), middleware.GetRequestID(r.Context()))
		return
	}
	key := cache.Key(vars["app"], splitProfiles(vars["profile"]), s.resolvedLabel(label))
	s.cache.InvalidateKey(key)
	w.WriteHeader(http.StatusNoContent)
}

// deleteCacheHandler handles DELETE /cache and DELETE /cache?pattern=...:
// a pattern query invalidates matching entries; its absence flushes
// everything.
func (s *Server) deleteCacheHandler(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern != "" {
		s.cache.InvalidatePattern(pattern)
	} else {
		s.cache.Flush()
	}
	w.WriteHeader(http.StatusNoContent)
}

// resolvedLabel maps an absent query label to the refresh worker's
// currently tracked default label, the same resolution backend.Fetch
// applies internally, so an explicit "/{app}/{profiles}/main" request and a
// bare default-label request render to the same cache key instead of
// occupying separate entries for what is the same underlying commit.
func (s *Server) resolvedLabel(queryLabel string) string {
	if queryLabel != "" {
		return queryLabel
	}
	state, _ := s.refresh.Snapshot()
	return state.CurrentLabel
}

func (s *Server) writeAPIErr(w http.ResponseWriter, err error, requestID string) {
	var apiErr *apierrors.APIError
	if ok := asAPIError(err, &apiErr); ok {
		s.writeError(w, apiErr, requestID)
		return
	}
	s.writeError(w, apierrors.InternalError(err.Error()), requestID)
}

func asAPIError(err error, target **apierrors.APIError) bool {
	if e, ok := err.(*apierrors.APIError); ok {
		*target = e
		return true
	}
	return false
}

func (s *Server) writeError(w http.ResponseWriter, apiErr *apierrors.APIError, requestID string) {
	apierrors.WriteError(w, apiErr.WithRequestID(requestID))
}

// splitProfiles parses a comma-separated profile list, dropping blanks.
func splitProfiles(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// decodeLabel percent-decodes a label path segment, so a client-encoded
// "%2F" renders as a literal "/" in the label (branch names like
// "feature/x" are valid labels).
func decodeLabel(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	return url.PathUnescape(raw)
}
