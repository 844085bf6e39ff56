package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outstaffer/content-finder/internal/intelligence"
	"github.com/outstaffer/content-finder/internal/models"
)

type recorded struct {
	method string
	path   string
	body   map[string]interface{}
}

func newServer(t *testing.T, status int, response string) (*Client, *recorded) {
	t.Helper()
	rec := &recorded{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.RequestURI()
		data, _ := io.ReadAll(r.Body)
		rec.body = nil
		_ = json.Unmarshal(data, &rec.body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	return New(server.URL), rec
}

func TestClient_APIErrorCarriesServerMessage(t *testing.T) {
	c, _ := newServer(t, http.StatusBadRequest, `{"error": "Query is required"}`)

	_, err := c.Search(context.Background(), "", 15)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Query is required", apiErr.Error())
}

func TestClient_APIErrorWithoutBody(t *testing.T) {
	c, _ := newServer(t, http.StatusBadGateway, `upstream`)

	_, err := c.FetchTrends(context.Background(), "SMB Leaders")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "request failed with status 502", apiErr.Message)
}

func TestClient_Search(t *testing.T) {
	c, rec := newServer(t, http.StatusOK, `{"query": "eor", "results": [{"url": "https://a.com", "title": "A"}]}`)

	resp, err := c.Search(context.Background(), "eor", 5)
	require.NoError(t, err)
	assert.Equal(t, "https://a.com", resp.Results[0].URL)
	assert.Equal(t, "/api/search", rec.path)
	assert.Equal(t, float64(5), rec.body["limit"])
}

func TestClient_AnalyzeValidatesShape(t *testing.T) {
	tests := []struct {
		name     string
		response string
		ok       bool
		message  string
	}{
		{name: "valid", response: `{"overview": "o", "key_insights": ["a"], "outstaffer_opportunity": "x"}`, ok: true},
		{name: "missing insights", response: `{"overview": "o", "outstaffer_opportunity": "x"}`, message: "key_insights: missing"},
		{name: "wrong type", response: `{"overview": "o", "key_insights": "a", "outstaffer_opportunity": "x"}`, message: "key_insights: expected array of strings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newServer(t, http.StatusOK, tt.response)

			result, err := c.Analyze(context.Background(), "content")
			require.NoError(t, err)
			assert.Equal(t, tt.ok, result.IsOk())
			if !tt.ok {
				assert.Equal(t, tt.message, result.Err.Error())
			}
		})
	}
}

func TestClient_SynthesizeDefaultsThemes(t *testing.T) {
	c, rec := newServer(t, http.StatusOK, `{"overview": "o", "key_insights": [], "outstaffer_opportunity": "x"}`)

	result, err := c.Synthesize(context.Background(), "topic", []models.SynthesisContent{{URL: "u", Title: "t", Markdown: "m"}})
	require.NoError(t, err)
	require.True(t, result.IsOk())
	assert.Equal(t, []string{}, result.Value.CrossArticleThemes)
	assert.Equal(t, "topic", rec.body["query"])
}

func TestClient_SessionCalls(t *testing.T) {
	c, rec := newServer(t, http.StatusOK, `{"success": true}`)
	ctx := context.Background()

	off := false
	require.NoError(t, c.UpdateQueries(ctx, "abc", []intelligence.QueryUpdate{{ID: "q1", Selected: &off}}))
	assert.Equal(t, http.MethodPut, rec.method)
	assert.Equal(t, "/api/intelligence/sessions/abc/queries", rec.path)
	assert.Len(t, rec.body["queries"], 1)

	require.NoError(t, c.SearchSession(ctx, "abc"))
	assert.Equal(t, "/api/intelligence/sessions/abc/search", rec.path)
}

func TestClient_ListSessionsQuery(t *testing.T) {
	c, rec := newServer(t, http.StatusOK, `{"sessions": [{"sessionId": "s1"}], "count": 1}`)

	sessions, err := c.ListSessions(context.Background(), "SMB Leaders", 5)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].SessionID)
	assert.Equal(t, "/api/intelligence/sessions?limit=5&segment=SMB+Leaders", rec.path)
}

func TestClient_PreScoreSendsEmptyList(t *testing.T) {
	c, rec := newServer(t, http.StatusOK, `{"promising_posts": [], "count": 0}`)

	_, err := c.PreScore(context.Background(), "SMB Leaders", nil)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{}, rec.body["raw_posts"])
	assert.Equal(t, "/api/intelligence/voc-discovery/pre-score-posts", rec.path)
}

func TestClient_SegmentConfigEscapesName(t *testing.T) {
	c, rec := newServer(t, http.StatusOK, `{"segment": "SMB Leaders", "subreddits": ["startups"], "trends_keywords": []}`)

	summary, err := c.SegmentConfig(context.Background(), "SMB Leaders")
	require.NoError(t, err)
	assert.Equal(t, []string{"startups"}, summary.Subreddits)
	assert.Equal(t, "/api/segment-config/SMB%20Leaders", rec.path)
}
