package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelscout/discovery-cli/internal/analytics"
	"github.com/reelscout/discovery-cli/internal/cache"
	"github.com/reelscout/discovery-cli/internal/fanout"
	"github.com/reelscout/discovery-cli/internal/fusion"
	"github.com/reelscout/discovery-cli/internal/hub"
	"github.com/reelscout/discovery-cli/internal/model"
	"github.com/reelscout/discovery-cli/internal/registry"
	"github.com/reelscout/discovery-cli/internal/source"
)

type fixedAdapter struct {
	id      string
	results []model.RawResult
}

func (a *fixedAdapter) ID() string { return a.id }

func (a *fixedAdapter) Search(context.Context, source.Query) ([]model.RawResult, error) {
	return a.results, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	reg := registry.New(registry.DefaultTuning())
	require.NoError(t, reg.Register(registry.Source{
		ID:           "tmdb",
		Type:         registry.SourceTypeAPI,
		Reliability:  95,
		Priority:     9,
		Capabilities: []string{source.CapabilitySearch},
	}))

	adapters := source.NewSet()
	adapters.Register(&fixedAdapter{id: "tmdb", results: []model.RawResult{
		{CanonicalID: "tt1375666", Title: "Inception", Confidence: 90},
	}})

	recorder := analytics.NewRecorder()
	exec := fanout.New(reg, adapters, recorder, time.Second)
	ranker := fusion.New(fusion.DefaultWeights(), fusion.DefaultLimit)

	h := hub.New(reg, adapters, exec, ranker, recorder, cache.NewMemory(), nil, hub.Options{})
	return newRouter(h)
}

func TestServeSearchEndpoint(t *testing.T) {
	router := newTestRouter(t)

	body := strings.NewReader(`{"query": "inception"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Inception")
	assert.Contains(t, rec.Body.String(), `"sources_used":["tmdb"]`)
}

func TestServeSearchEndpoint_BadRequest(t *testing.T) {
	router := newTestRouter(t)

	for name, body := range map[string]string{
		"invalid json":     `{`,
		"missing query":    `{}`,
		"unknown strategy": `{"query":"x","strategy":"warp"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestServeHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/health", "/api/v1/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
		assert.Contains(t, rec.Body.String(), `"total_sources":1`)
	}
}

func TestServeAnalyticsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	// Generate one request's worth of counters first.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{"query":"inception"}`))
	router.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_requests":1`)
	assert.Contains(t, rec.Body.String(), `"id":"tmdb"`)
}

func TestServeSourcesEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sources", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"tmdb"`)
}

func TestServeHistoryEndpoint_NoStore(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"searches":[]`)
}
