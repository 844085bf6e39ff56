package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outstaffer/content-finder/internal/client"
	"github.com/outstaffer/content-finder/internal/models"
	"github.com/outstaffer/content-finder/internal/pipeline"
)

type vocServer struct {
	mu        sync.Mutex
	failFetch int
	bodies    map[string]map[string]json.RawMessage
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *vocServer) handler() http.Handler {
	mux := http.NewServeMux()
	record := func(stage string, r *http.Request) {
		var body map[string]json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		s.bodies[stage] = body
		s.mu.Unlock()
	}

	mux.HandleFunc("/api/intelligence/voc-discovery/fetch-reddit", func(w http.ResponseWriter, r *http.Request) {
		record(StageFetchReddit, r)
		s.mu.Lock()
		fail := s.failFetch > 0
		if fail {
			s.failFetch--
		}
		s.mu.Unlock()
		if fail {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "No configuration found for segment 'SMB Leaders'"})
			return
		}
		writeJSON(w, http.StatusOK, models.FetchRedditResult{
			RawPosts: []models.RedditPost{{ID: "p1", Title: "Hiring is hard"}, {ID: "p2", Title: "Cats"}},
			Count:    2,
			Warnings: []string{"r/startups returned no posts"},
		})
	})
	mux.HandleFunc("/api/intelligence/voc-discovery/pre-score-posts", func(w http.ResponseWriter, r *http.Request) {
		record(StagePreScore, r)
		writeJSON(w, http.StatusOK, models.PrescoreResult{
			PromisingPosts: []models.RedditPost{{ID: "p1", Title: "Hiring is hard"}},
			RejectedPosts:  []models.RedditPost{{ID: "p2", Title: "Cats"}},
			Count:          1,
		})
	})
	mux.HandleFunc("/api/intelligence/voc-discovery/enrich-posts", func(w http.ResponseWriter, r *http.Request) {
		record(StageEnrich, r)
		writeJSON(w, http.StatusOK, models.EnrichResult{
			FilteredPosts: []models.RedditPost{{ID: "p1", Title: "Hiring is hard", AIAnalysis: &models.RedditAnalysis{RelevanceScore: 8}}},
			Count:         1,
		})
	})
	mux.HandleFunc("/api/intelligence/voc-discovery/fetch-trends", func(w http.ResponseWriter, r *http.Request) {
		record(StageFetchTrends, r)
		writeJSON(w, http.StatusOK, models.TrendsResult{Trends: []models.TrendEntry{{Query: "eor"}}, Count: 1})
	})
	mux.HandleFunc("/api/intelligence/voc-discovery/generate-queries", func(w http.ResponseWriter, r *http.Request) {
		record(StageGenerateQueries, r)
		writeJSON(w, http.StatusOK, models.QueriesResult{Queries: []string{"hiring costs 2026"}, Count: 1})
	})
	return mux
}

func (s *vocServer) body(stage, key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bodies[stage][key]
}

func newVOCServer(t *testing.T) (*vocServer, *client.Client) {
	t.Helper()
	s := &vocServer{bodies: make(map[string]map[string]json.RawMessage)}
	srv := httptest.NewServer(s.handler())
	t.Cleanup(srv.Close)
	return s, client.New(srv.URL)
}

func TestVOCDiscovery_RunsStagesWithAccumulatedState(t *testing.T) {
	srv, c := newVOCServer(t)
	d := NewVOCDiscovery(c, "SMB Leaders")
	ctx := context.Background()

	for _, stage := range VOCStages[1:] {
		assert.ErrorIs(t, d.Run(ctx, stage), pipeline.ErrStepLocked)
	}

	require.NoError(t, d.Run(ctx, StageFetchReddit))
	snap := d.Snapshot()
	assert.True(t, snap.NextEnabled(StageFetchReddit))
	assert.False(t, snap.NextEnabled(StagePreScore))
	step, _ := snap.Step(StageFetchReddit)
	assert.Equal(t, []string{"r/startups returned no posts"}, step.Warnings)

	raw := d.State().RawPosts
	require.NoError(t, d.RunAll(ctx))
	assert.True(t, d.Snapshot().Completed())

	state := d.State()
	assert.Equal(t, raw, state.RawPosts, "later stages do not replace earlier outputs")
	assert.Len(t, state.RawPosts, 2)
	assert.Equal(t, "p2", state.PrescoreReject[0].ID)
	assert.Equal(t, "p1", state.FilteredPosts[0].ID)
	assert.Equal(t, []string{"hiring costs 2026"}, state.Queries)

	var sentRaw []models.RedditPost
	require.NoError(t, json.Unmarshal(srv.body(StagePreScore, "raw_posts"), &sentRaw))
	assert.Len(t, sentRaw, 2)

	var sentPromising []models.RedditPost
	require.NoError(t, json.Unmarshal(srv.body(StageEnrich, "promising_posts"), &sentPromising))
	assert.Equal(t, "p1", sentPromising[0].ID)

	var sentTrends []models.TrendEntry
	require.NoError(t, json.Unmarshal(srv.body(StageGenerateQueries, "trends"), &sentTrends))
	assert.Equal(t, "eor", sentTrends[0].Query)
	assert.JSONEq(t, `"SMB Leaders"`, string(srv.body(StageFetchTrends, "segment_name")))
}

func TestVOCDiscovery_FailureSurfacesMessageAndRetry(t *testing.T) {
	srv, c := newVOCServer(t)
	srv.mu.Lock()
	srv.failFetch = 1
	srv.mu.Unlock()
	d := NewVOCDiscovery(c, "SMB Leaders")
	ctx := context.Background()

	err := d.Run(ctx, StageFetchReddit)
	require.Error(t, err)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	step, _ := d.Snapshot().Step(StageFetchReddit)
	assert.Equal(t, pipeline.StatusError, step.Status)
	assert.Equal(t, "No configuration found for segment 'SMB Leaders'", step.Error)
	assert.False(t, d.Snapshot().NextEnabled(StageFetchReddit))
	assert.Empty(t, d.State().RawPosts)

	require.NoError(t, d.Retry(ctx, StageFetchReddit))
	step, _ = d.Snapshot().Step(StageFetchReddit)
	assert.Equal(t, pipeline.StatusCompleted, step.Status)
	assert.Equal(t, 2, step.Attempts)

	require.NoError(t, d.Reset())
	assert.Empty(t, d.State().RawPosts)
	step, _ = d.Snapshot().Step(StageFetchReddit)
	assert.Equal(t, pipeline.StatusPending, step.Status)
	assert.Equal(t, "SMB Leaders", d.Segment())
}
