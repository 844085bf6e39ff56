package providers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/outstaffer/content-finder/internal/cache"
	"github.com/outstaffer/content-finder/internal/metrics"
)

const tavilyBaseURL = "https://api.tavily.com"

// TavilyResult is one research search hit
type TavilyResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	PublishedDate string  `json:"published_date,omitempty"`
	Score         float64 `json:"score,omitempty"`
}

type tavilySearchResponse struct {
	Query   string         `json:"query"`
	Answer  string         `json:"answer"`
	Results []TavilyResult `json:"results"`
}

type tavilyErrorResponse struct {
	Detail struct {
		Error string `json:"error"`
	} `json:"detail"`
}

// Tavily is the research search client
type Tavily struct {
	apiKey string
	opts   options
}

var (
	_ Provider         = (*Tavily)(nil)
	_ ResearchSearcher = (*Tavily)(nil)
)

// NewTavily creates a Tavily client
func NewTavily(apiKey string, opts ...Option) *Tavily {
	return &Tavily{
		apiKey: apiKey,
		opts:   newOptions(tavilyBaseURL, 60*time.Second, opts),
	}
}

func (t *Tavily) GetName() string {
	return "tavily"
}

func (t *Tavily) IsEnabled() bool {
	return t.apiKey != ""
}

// SearchResearch runs an advanced-depth search limited to the last year.
// Without an API key a single placeholder result is returned.
func (t *Tavily) SearchResearch(ctx context.Context, query string, maxResults int) (results []TavilyResult, err error) {
	if !t.IsEnabled() {
		logrus.WithField("operation", "tavily_search").Debug("Tavily disabled - returning placeholder result")
		return []TavilyResult{{
			Title:   fmt.Sprintf("Mock result for %s", query),
			URL:     "https://example.com",
			Content: "This is mock content.",
		}}, nil
	}

	key := cache.Key("tavily", query, strconv.Itoa(maxResults))
	if cache.GetJSON(ctx, t.opts.cache, key, &results) {
		metrics.CacheLookupsTotal.WithLabelValues("tavily", "hit").Inc()
		return results, nil
	}

	start := time.Now()
	defer func() { metrics.ObserveProvider(t.GetName(), "search", start, err) }()

	var body tavilySearchResponse
	var apiErr tavilyErrorResponse
	resp, err := t.opts.client().R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"api_key":        t.apiKey,
			"query":          query,
			"max_results":    maxResults,
			"search_depth":   "advanced",
			"include_answer": true,
			"time_range":     "year",
		}).
		SetResult(&body).
		SetError(&apiErr).
		Post("/search")
	if err != nil {
		return nil, fmt.Errorf("tavily search request failed: %w", err)
	}
	if resp.IsError() {
		if apiErr.Detail.Error != "" {
			return nil, fmt.Errorf("tavily search failed (status %d): %s", resp.StatusCode(), apiErr.Detail.Error)
		}
		return nil, statusError("tavily", resp)
	}

	logrus.WithFields(logrus.Fields{
		"operation":   "tavily_search",
		"query":       query,
		"count":       len(body.Results),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Tavily search succeeded")

	metrics.CacheLookupsTotal.WithLabelValues("tavily", "miss").Inc()
	cache.SetJSON(ctx, t.opts.cache, key, body.Results, t.opts.cacheTTL)
	return body.Results, nil
}
