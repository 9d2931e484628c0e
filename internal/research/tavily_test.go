package research

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingServer struct {
	mu       sync.Mutex
	requests []searchRequest
	failOn   map[string]bool
}

func (s *recordingServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if r.URL.Path != "/search" {
		http.NotFound(w, r)
		return
	}
	if s.failOn[req.Query] {
		http.Error(w, `{"detail":"rate limited"}`, http.StatusTooManyRequests)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"query": req.Query,
		"results": []map[string]any{
			{"title": req.Query + " one", "url": "https://example.com/1", "content": "first summary", "score": 0.9},
			{"title": req.Query + " two", "url": "https://example.com/2", "content": "second summary", "score": 0.5},
		},
	})
}

func TestSearchCapsQueriesAndMapsContent(t *testing.T) {
	rec := &recordingServer{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	c := NewClient("tvly-key", srv.URL, srv.Client(), nil)
	got := c.Search(context.Background(), []string{"a", "b", "c", "d", "e"})

	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].Query, got[1].Query, got[2].Query})
	require.Len(t, rec.requests, 3)
	assert.Equal(t, "first summary", got[0].Results[0].Summary)
	assert.Equal(t, "https://example.com/2", got[0].Results[1].URL)

	sent := rec.requests[0]
	assert.Equal(t, "tvly-key", sent.APIKey)
	assert.Equal(t, "advanced", sent.SearchDepth)
	assert.Equal(t, 5, sent.MaxResults)
	assert.False(t, sent.IncludeAnswer)
	assert.False(t, sent.IncludeRawContent)
}

func TestSearchIsolatesFailingQuery(t *testing.T) {
	rec := &recordingServer{failOn: map[string]bool{"b": true}}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	got := NewClient("k", srv.URL, srv.Client(), nil).Search(context.Background(), []string{"a", "b", "c", "d", "e"})

	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Query)
	assert.Len(t, got[0].Results, 2)
	assert.Equal(t, "b", got[1].Query)
	assert.NotNil(t, got[1].Results)
	assert.Empty(t, got[1].Results)
	assert.Equal(t, "c", got[2].Query)
	assert.Len(t, rec.requests, 3)
}

func TestSearchEmpty(t *testing.T) {
	got := NewClient("k", "http://127.0.0.1:1", nil, nil).Search(context.Background(), nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSearchUnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	got := NewClient("k", url, nil, nil).Search(context.Background(), []string{"x"})
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Results)
}
