package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelscout/discovery-cli/internal/model"
)

func TestHTTPAdapter_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "inception", r.URL.Query().Get("q"))
		assert.Equal(t, "Bearer k123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"canonical_id":"tt1375666","title":"Inception","confidence":95}]}`))
	}))
	defer srv.Close()

	a := NewHTTPAdapter("tmdb", srv.URL, HTTPOptions{APIKey: "k123"})
	results, err := a.Search(context.Background(), Query{Text: "inception"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "tt1375666", results[0].CanonicalID)
	assert.InDelta(t, 95, results[0].Confidence, 0.001)
}

func TestHTTPAdapter_SearchFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "thriller,sci-fi", q.Get("genres"))
		assert.Equal(t, "movie", q.Get("type"))
		assert.Equal(t, "US", q.Get("region"))
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	a := NewHTTPAdapter("tmdb", srv.URL, HTTPOptions{})
	_, err := a.Search(context.Background(), Query{
		Text: "heist",
		Filters: &model.Filters{
			Genres:      []string{"thriller", "sci-fi"},
			Region:      "US",
			ContentType: model.ContentTypeMovie,
		},
	})
	require.NoError(t, err)
}

func TestHTTPAdapter_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	a := NewHTTPAdapter("tmdb", srv.URL, HTTPOptions{MaxAttempts: 2})
	_, err := a.Search(context.Background(), Query{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPAdapter_NonTransientNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	a := NewHTTPAdapter("tmdb", srv.URL, HTTPOptions{MaxAttempts: 3})
	_, err := a.Search(context.Background(), Query{Text: "x"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var tr *TransportError
	require.ErrorAs(t, err, &tr)
	assert.Equal(t, http.StatusNotFound, tr.StatusCode)
}

func TestHTTPAdapter_Probe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ping", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewHTTPAdapter("tmdb", srv.URL, HTTPOptions{})
	require.NoError(t, a.Probe(context.Background()))
}

func TestHTTPAdapter_ProbeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewHTTPAdapter("tmdb", srv.URL, HTTPOptions{})
	err := a.Probe(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestHTTPAdapter_ContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	a := NewHTTPAdapter("slow", srv.URL, HTTPOptions{MaxAttempts: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := a.Search(ctx, Query{Text: "x"})
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify("tmdb", nil))

	err := Classify("tmdb", context.DeadlineExceeded)
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "tmdb", te.SourceID)

	// Already-classified errors pass through unchanged.
	again := Classify("tmdb", err)
	assert.Same(t, err, again)
}

func TestSet_RegisterAndGet(t *testing.T) {
	s := NewSet()
	assert.Nil(t, s.Get("tmdb"))

	s.Register(NewHTTPAdapter("tmdb", "http://localhost", HTTPOptions{}))
	s.Register(NewHTTPAdapter("trakt", "http://localhost", HTTPOptions{}))

	require.NotNil(t, s.Get("tmdb"))
	assert.Equal(t, []string{"tmdb", "trakt"}, s.IDs())
}
