package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/vitaliisemenov/configserver/internal/api/errors"
	"github.com/vitaliisemenov/configserver/internal/backend"
	"github.com/vitaliisemenov/configserver/internal/cache"
	"github.com/vitaliisemenov/configserver/internal/config"
	"github.com/vitaliisemenov/configserver/internal/property"
	"github.com/vitaliisemenov/configserver/internal/refresh"
)

type fakeFetcher struct {
	calls int
	doc   *backend.ResponseDocument
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, q backend.Query) (*backend.ResponseDocument, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

type fakeRefresh struct {
	state refresh.State
}

func (f *fakeRefresh) Snapshot() (refresh.State, refresh.Phase) {
	return f.state, refresh.PhaseIdle
}

func mergedDoc(t *testing.T) *property.Document {
	t.Helper()
	d := property.New()
	d.Set("server.port", property.Int64(8080))
	d.Set("app.name", property.String("myapp"))
	return d
}

func newTestServer(t *testing.T) (*Server, *fakeFetcher) {
	t.Helper()
	doc := &backend.ResponseDocument{
		Name:    "myapp",
		Label:   "main",
		Version: "abc123",
		PropertySources: []backend.PropertySource{
			{Name: "git:main:myapp-prod.yml", Source: map[string]interface{}{"server": map[string]interface{}{"port": int64(8080)}}},
		},
		Merged: mergedDoc(t),
	}
	fetcher := &fakeFetcher{doc: doc}
	c := cache.New(cache.Config{MaxEntries: 10, TTL: time.Minute})
	rs := &fakeRefresh{state: refresh.State{CurrentCommit: "abc123", CurrentLabel: "main"}}
	return NewServer(fetcher, c, rs, 5*time.Second, nil), fetcher
}

func TestFetchHandler_ReturnsEnvelopeJSON(t *testing.T) {
	s, fetcher := newTestServer(t)
	router := NewRouter(s, config.RateLimitConfig{}, nil)

	req := httptest.NewRequest("GET", "/myapp/prod", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fetcher.calls)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "myapp", body["name"])
	assert.Equal(t, "abc123", body["version"])
}

func TestFetchHandler_CachesSecondRequest(t *testing.T) {
	s, fetcher := newTestServer(t)
	router := NewRouter(s, config.RateLimitConfig{}, nil)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/myapp/prod", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, 1, fetcher.calls, "second request should be served from cache")
}

func TestFetchHandler_ExtensionOverridesAcceptToYAML(t *testing.T) {
	s, _ := newTestServer(t)
	router := NewRouter(s, config.RateLimitConfig{}, nil)

	req := httptest.NewRequest("GET", "/myapp-prod.yml", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "yaml")
	assert.Contains(t, rec.Body.String(), "port: 8080")
}

func TestFetchHandler_PropertiesAccept(t *testing.T) {
	s, _ := newTestServer(t)
	router := NewRouter(s, config.RateLimitConfig{}, nil)

	req := httptest.NewRequest("GET", "/myapp/prod", nil)
	req.Header.Set("Accept", "text/plain")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "server.port=8080")
}

func TestFetchHandler_EncodedSlashInLabelDecodesToLiteralSlash(t *testing.T) {
	s, fetcher := newTestServer(t)
	router := NewRouter(s, config.RateLimitConfig{}, nil)

	req := httptest.NewRequest("GET", "/myapp/prod/feature%2Fx", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fetcher.calls)
}

func TestHealthHandler_UpWhenSynchronized(t *testing.T) {
	s, _ := newTestServer(t)
	router := NewRouter(s, config.RateLimitConfig{}, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "UP", body["status"])
}

func TestHealthHandler_DownWhenNeverSynchronized(t *testing.T) {
	doc := &backend.ResponseDocument{Merged: property.New()}
	fetcher := &fakeFetcher{doc: doc}
	c := cache.New(cache.Config{MaxEntries: 10, TTL: time.Minute})
	rs := &fakeRefresh{state: refresh.State{}}
	s := NewServer(fetcher, c, rs, 0, nil)
	router := NewRouter(s, config.RateLimitConfig{}, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDeleteCache_SingleEntryThenRefetches(t *testing.T) {
	s, fetcher := newTestServer(t)
	router := NewRouter(s, config.RateLimitConfig{}, nil)

	get := httptest.NewRequest("GET", "/myapp/prod", nil)
	router.ServeHTTP(httptest.NewRecorder(), get)
	assert.Equal(t, 1, fetcher.calls)

	del := httptest.NewRequest("DELETE", "/cache/myapp/prod/main", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, del)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/myapp/prod", nil))
	assert.Equal(t, 2, fetcher.calls, "cache entry should have been invalidated")
}

func TestFetchHandler_DefaultAndExplicitDefaultLabelShareOneCacheEntry(t *testing.T) {
	s, fetcher := newTestServer(t)
	router := NewRouter(s, config.RateLimitConfig{}, nil)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/myapp/prod", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/myapp/prod/main", nil))

	assert.Equal(t, 1, fetcher.calls, "explicit /main label for the current default should hit the same cache entry as the bare request")
	assert.Equal(t, 1, s.cache.Len())
}

func TestDeleteCache_PatternInvalidatesMatchingKeysOnly(t *testing.T) {
	s, fetcher := newTestServer(t)
	router := NewRouter(s, config.RateLimitConfig{}, nil)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/myapp/prod", nil))
	assert.Equal(t, 1, fetcher.calls)

	del := httptest.NewRequest("DELETE", "/cache?pattern=myapp:*", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, del)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/myapp/prod", nil))
	assert.Equal(t, 2, fetcher.calls)
}

func TestDeleteCache_FullFlush(t *testing.T) {
	s, fetcher := newTestServer(t)
	router := NewRouter(s, config.RateLimitConfig{}, nil)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/myapp/prod", nil))
	assert.Equal(t, 1, fetcher.calls)

	del := httptest.NewRequest("DELETE", "/cache", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, del)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/myapp/prod", nil))
	assert.Equal(t, 2, fetcher.calls)
}

func TestFetchHandler_NotFoundSurfacesAsAPIError(t *testing.T) {
	s, _ := newTestServer(t)
	s.backend = &fakeFetcher{err: apierrors.NotFoundError("otherapp/prod")}
	router := NewRouter(s, config.RateLimitConfig{}, nil)

	req := httptest.NewRequest("GET", "/otherapp/prod", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
