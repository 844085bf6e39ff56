package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outstaffer/content-finder/internal/config"
)

type memoryCache struct {
	values map[string][]byte
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.values[key] = value
	return nil
}

func decodeBody(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestProviders_IsEnabled(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
		expected bool
	}{
		{name: "Firecrawl with key", provider: NewFirecrawl("key"), expected: true},
		{name: "Firecrawl without key", provider: NewFirecrawl(""), expected: false},
		{name: "Tavily without key", provider: NewTavily(""), expected: false},
		{name: "Gemini with key", provider: NewGemini("key", "gemini-2.0-flash"), expected: true},
		{name: "Reddit without key", provider: NewReddit(""), expected: false},
		{name: "Trends with key", provider: NewTrends("key"), expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsEnabled())
			assert.NotEmpty(t, tt.provider.GetName())
		})
	}
}

func TestFirecrawl_Search(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{name: "Flat data list", response: `{"success":true,"data":[{"url":"https://x.com/a","title":"A","description":"first"}]}`},
		{name: "Grouped web results", response: `{"success":true,"data":{"web":[{"url":"https://x.com/a","title":"A","description":"first"}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/search", r.URL.Path)
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
				body := decodeBody(t, r)
				assert.Equal(t, "foo", body["query"])
				assert.Equal(t, float64(15), body["limit"])
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.response))
			}))
			defer server.Close()

			fc := NewFirecrawl("test-key", WithBaseURL(server.URL))
			resp, err := fc.Search(context.Background(), "foo", 15)
			require.NoError(t, err)

			assert.Equal(t, "foo", resp.Query)
			require.Len(t, resp.Results, 1)
			assert.Equal(t, "https://x.com/a", resp.Results[0].URL)
			assert.Equal(t, "A", resp.Results[0].Title)
			assert.NotEmpty(t, resp.Timestamp)
		})
	}
}

func TestFirecrawl_SearchErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"success":false,"error":"Insufficient credits"}`))
	}))
	defer server.Close()

	_, err := NewFirecrawl("test-key", WithBaseURL(server.URL)).Search(context.Background(), "foo", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Insufficient credits")

	_, err = NewFirecrawl("").Search(context.Background(), "foo", 5)
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestFirecrawl_SearchUsesCache(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":[{"url":"https://x.com/a"}]}`))
	}))
	defer server.Close()

	c := &memoryCache{values: map[string][]byte{}}
	fc := NewFirecrawl("test-key", WithBaseURL(server.URL), WithCache(c, time.Hour))

	first, err := fc.Search(context.Background(), "foo", 15)
	require.NoError(t, err)
	second, err := fc.Search(context.Background(), "foo", 15)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, first.Results, second.Results)
}

func TestFirecrawl_Scrape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		w.Header().Set("Content-Type", "application/json")
		if body["url"] == "https://x.com/broken" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"success":false,"error":"Failed to load page"}`))
			return
		}
		assert.Equal(t, []interface{}{"markdown", "html"}, body["formats"])
		_, _ = w.Write([]byte(`{"success":true,"data":{"markdown":"# Title","html":"<h1>Title</h1>","metadata":{"title":"Title","description":"Desc"}}}`))
	}))
	defer server.Close()

	fc := NewFirecrawl("test-key", WithBaseURL(server.URL))
	results := fc.ScrapeURLs(context.Background(), []string{"https://x.com/a", "https://x.com/broken"}, nil)
	require.Len(t, results, 2)

	assert.True(t, results[0].Success)
	assert.Equal(t, "https://x.com/a", results[0].URL)
	assert.Equal(t, "# Title", results[0].Markdown)
	assert.Equal(t, "Title", results[0].Title)
	assert.Equal(t, "Desc", results[0].Description)
	assert.NotEmpty(t, results[0].ScrapedAt)

	assert.False(t, results[1].Success)
	assert.Contains(t, results[1].Error, "Failed to load page")
	assert.Equal(t, "https://x.com/broken", results[1].URL)
}

func TestTavily_SearchResearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		body := decodeBody(t, r)
		assert.Equal(t, "test-key", body["api_key"])
		assert.Equal(t, "advanced", body["search_depth"])
		assert.Equal(t, "year", body["time_range"])
		assert.Equal(t, float64(5), body["max_results"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query":"q","results":[{"title":"T","url":"https://www.example.org/post","content":"body","published_date":"2025-01-02"}]}`))
	}))
	defer server.Close()

	results, err := NewTavily("test-key", WithBaseURL(server.URL)).SearchResearch(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://www.example.org/post", results[0].URL)
	assert.Equal(t, "2025-01-02", results[0].PublishedDate)
}

func TestTavily_PlaceholderWithoutKey(t *testing.T) {
	results, err := NewTavily("").SearchResearch(context.Background(), "hiring", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Mock result for hiring", results[0].Title)
	assert.Equal(t, "https://example.com", results[0].URL)
}

func TestTavily_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":{"error":"Unauthorized: missing or invalid API key."}}`))
	}))
	defer server.Close()

	_, err := NewTavily("bad", WithBaseURL(server.URL)).SearchResearch(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid API key")
}

func TestGemini_GenerateJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-pro-test:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		body := decodeBody(t, r)
		cfg := body["generationConfig"].(map[string]interface{})
		assert.Equal(t, "application/json", cfg["responseMimeType"])
		schema := cfg["responseSchema"].(map[string]interface{})
		assert.Equal(t, TypeObject, schema["type"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"` + "```json\\n{\\\"overview\\\":\\\"ok\\\"}\\n```" + `"}]},"finishReason":"STOP"}]}`))
	}))
	defer server.Close()

	g := NewGemini("test-key", "gemini-default", WithBaseURL(server.URL))
	raw, err := g.GenerateJSON(context.Background(), GenerateRequest{
		Model:  "gemini-pro-test",
		Prompt: "Analyze",
		Schema: &Schema{Type: TypeObject, Properties: map[string]*Schema{"overview": {Type: TypeString}}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"overview":"ok"}`, string(raw))
	assert.Equal(t, "gemini-default", g.DefaultModel())
}

func TestGemini_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		response   string
		wantStatus int
		contains   string
	}{
		{
			name:       "Upstream error",
			status:     http.StatusTooManyRequests,
			response:   `{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`,
			wantStatus: http.StatusTooManyRequests,
			contains:   "Resource has been exhausted",
		},
		{
			name:     "No candidates",
			status:   http.StatusOK,
			response: `{"candidates":[]}`,
			contains: "no content generated",
		},
		{
			name:     "Non JSON output",
			status:   http.StatusOK,
			response: `{"candidates":[{"content":{"parts":[{"text":"not-json"}]}}]}`,
			contains: "non-JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.response))
			}))
			defer server.Close()

			_, err := NewGemini("key", "m", WithBaseURL(server.URL)).GenerateJSON(context.Background(), GenerateRequest{Prompt: "p"})
			require.Error(t, err)

			var llmErr *LLMError
			require.True(t, errors.As(err, &llmErr))
			assert.Equal(t, tt.wantStatus, llmErr.Status)
			assert.Contains(t, llmErr.Error(), tt.contains)
		})
	}
}

func TestGemini_NotConfigured(t *testing.T) {
	_, err := NewGemini("", "m").GenerateText(context.Background(), GenerateRequest{Prompt: "p"})
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Plain JSON", input: ` {"a":1} `, expected: `{"a":1}`},
		{name: "Fenced with language", input: "```json\n[\"a\"]\n```", expected: `["a"]`},
		{name: "Fenced without language", input: "```\n{}\n```", expected: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripCodeFence(tt.input))
		})
	}
}

func TestReddit_FetchSubreddit(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{name: "Data array", response: `{"data":[{"id":"abc","title":"Hiring help","selftext":"body","url":"https://reddit.com/r/smallbusiness/abc","score":42,"num_comments":7,"created_utc":1700000000}]}`},
		{name: "Posts array with post_id", response: `{"posts":[{"post_id":"abc","title":"Hiring help","selftext":"body","url":"https://reddit.com/r/smallbusiness/abc","score":42.0,"num_comments":"7"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/reddit/subreddit", r.URL.Path)
				assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
				assert.Equal(t, "smallbusiness", r.URL.Query().Get("subreddit"))
				assert.Equal(t, "month", r.URL.Query().Get("timeframe"))
				assert.Equal(t, "top", r.URL.Query().Get("sort"))
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.response))
			}))
			defer server.Close()

			posts, err := NewReddit("test-key", WithBaseURL(server.URL)).FetchSubreddit(
				context.Background(), "smallbusiness", config.RedditFilters{TimeRange: "month", Sort: "top"})
			require.NoError(t, err)
			require.Len(t, posts, 1)

			assert.Equal(t, "abc", posts[0].ID)
			assert.Equal(t, 42, posts[0].Score)
			assert.Equal(t, 7, posts[0].NumComments)
			assert.Equal(t, "smallbusiness", posts[0].Subreddit)
			assert.Equal(t, "body", posts[0].ContentSnippet)
		})
	}
}

func TestReddit_FetchComments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/reddit/post/comments", r.URL.Path)
		assert.Equal(t, "https://reddit.com/r/x/abc", r.URL.Query().Get("url"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"comments":[{"body":"first"}]}`))
	}))
	defer server.Close()

	raw, err := NewReddit("test-key", WithBaseURL(server.URL)).FetchComments(context.Background(), "https://reddit.com/r/x/abc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"comments":[{"body":"first"}]}`, string(raw))
}

func TestReddit_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := NewReddit("test-key", WithBaseURL(server.URL)).FetchSubreddit(context.Background(), "x", config.RedditFilters{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestTrends_FetchTrend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "google_trends", q.Get("engine"))
		assert.Equal(t, "today 12-m", q.Get("date"))
		assert.Equal(t, "AU", q.Get("geo"))
		w.Header().Set("Content-Type", "application/json")

		switch q.Get("data_type") {
		case "TIMESERIES":
			assert.Equal(t, "employer of record,recruitment agency", q.Get("q"))
			_, _ = w.Write([]byte(`{"interest_over_time":{"timeline_data":[
				{"date":"Jan 1 - 7, 2025","values":[{"query":"employer of record","extracted_value":40},{"query":"recruitment agency","extracted_value":75}]}
			]}}`))
		case "RELATED_QUERIES":
			assert.Equal(t, "employer of record", q.Get("q"))
			_, _ = w.Write([]byte(`{"related_queries":{"top":[{"query":"eor australia","value":"100"}],"rising":[{"query":"eor cost","value":"+250%"}]}}`))
		case "RELATED_TOPICS":
			_, _ = w.Write([]byte(`{"related_topics":{"top":[{"topic":{"title":"Payroll","type":"Topic"},"value":"100"}],"rising":[]}}`))
		default:
			t.Errorf("unexpected data_type %s", q.Get("data_type"))
		}
	}))
	defer server.Close()

	entry, err := NewTrends("key", WithBaseURL(server.URL)).FetchTrend(
		context.Background(), "employer of record", "recruitment agency", "today 12-m", "AU")
	require.NoError(t, err)

	assert.Equal(t, "employer of record", entry.Query)
	assert.Equal(t, "recruitment agency", entry.ComparisonKeyword)
	require.Len(t, entry.InterestOverTime, 1)
	assert.Equal(t, 40, entry.InterestOverTime[0].PrimaryInterest)
	require.NotNil(t, entry.InterestOverTime[0].ComparisonInterest)
	assert.Equal(t, 75, *entry.InterestOverTime[0].ComparisonInterest)
	require.Len(t, entry.RelatedQueries.Rising, 1)
	assert.Equal(t, "eor cost", entry.RelatedQueries.Rising[0].Query)
	require.Len(t, entry.RelatedTopics.Top, 1)
	assert.Equal(t, "Payroll", entry.RelatedTopics.Top[0].Query)
	assert.Equal(t, "Topic", entry.RelatedTopics.Top[0].Type)
	assert.Empty(t, entry.RelatedTopics.Rising)
}

func TestTrends_SameComparisonIgnored(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("data_type") == "TIMESERIES" {
			assert.Equal(t, "eor", r.URL.Query().Get("q"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	entry, err := NewTrends("key", WithBaseURL(server.URL)).FetchTrend(context.Background(), "eor", "EOR", "", "")
	require.NoError(t, err)
	assert.Empty(t, entry.ComparisonKeyword)
	assert.Empty(t, entry.InterestOverTime)
}
