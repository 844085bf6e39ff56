package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/outstaffer/content-finder/internal/cache"
	"github.com/outstaffer/content-finder/internal/metrics"
	"github.com/outstaffer/content-finder/internal/models"
)

const firecrawlBaseURL = "https://api.firecrawl.dev"

// DefaultScrapeFormats are requested when the caller names none
var DefaultScrapeFormats = []string{"markdown", "html"}

// Firecrawl is the hosted web search and scrape client
type Firecrawl struct {
	apiKey string
	opts   options
}

var (
	_ Provider    = (*Firecrawl)(nil)
	_ WebSearcher = (*Firecrawl)(nil)
	_ Scraper     = (*Firecrawl)(nil)
)

type firecrawlSearchResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type firecrawlScrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Markdown string `json:"markdown"`
		HTML     string `json:"html"`
		Metadata struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"metadata"`
	} `json:"data"`
}

// NewFirecrawl creates a Firecrawl client
func NewFirecrawl(apiKey string, opts ...Option) *Firecrawl {
	return &Firecrawl{
		apiKey: apiKey,
		opts:   newOptions(firecrawlBaseURL, 60*time.Second, opts),
	}
}

func (f *Firecrawl) GetName() string {
	return "firecrawl"
}

func (f *Firecrawl) IsEnabled() bool {
	return f.apiKey != ""
}

// Search returns web results for query
func (f *Firecrawl) Search(ctx context.Context, query string, limit int) (resp *models.SearchResponse, err error) {
	if !f.IsEnabled() {
		return nil, fmt.Errorf("firecrawl: %w", ErrNotConfigured)
	}

	key := cache.Key("search", query, strconv.Itoa(limit))
	var cached models.SearchResponse
	if cache.GetJSON(ctx, f.opts.cache, key, &cached) {
		metrics.CacheLookupsTotal.WithLabelValues("search", "hit").Inc()
		return &cached, nil
	}

	start := time.Now()
	defer func() { metrics.ObserveProvider(f.GetName(), "search", start, err) }()

	var body firecrawlSearchResponse
	r, err := f.opts.client().R().
		SetContext(ctx).
		SetAuthToken(f.apiKey).
		SetBody(map[string]interface{}{"query": query, "limit": limit}).
		SetResult(&body).
		SetError(&body).
		Post("/v1/search")
	if err != nil {
		return nil, fmt.Errorf("firecrawl search request failed: %w", err)
	}
	if r.IsError() {
		if body.Error != "" {
			return nil, fmt.Errorf("firecrawl search failed (status %d): %s", r.StatusCode(), body.Error)
		}
		return nil, statusError("firecrawl", r)
	}

	results, err := decodeSearchData(body.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode firecrawl search results: %w", err)
	}

	resp = &models.SearchResponse{
		Query:     query,
		Results:   results,
		Timestamp: time.Now().Format(models.TimestampLayout),
	}

	logrus.WithFields(logrus.Fields{
		"operation":   "firecrawl_search",
		"query":       query,
		"count":       len(results),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Firecrawl search completed")

	metrics.CacheLookupsTotal.WithLabelValues("search", "miss").Inc()
	cache.SetJSON(ctx, f.opts.cache, key, resp, f.opts.cacheTTL)
	return resp, nil
}

// decodeSearchData accepts both the flat list and the {web: [...]} layout
func decodeSearchData(data json.RawMessage) ([]models.SearchResult, error) {
	results := []models.SearchResult{}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return results, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &results); err != nil {
			return nil, err
		}
		return results, nil
	}

	var grouped struct {
		Web []models.SearchResult `json:"web"`
	}
	if err := json.Unmarshal(data, &grouped); err != nil {
		return nil, err
	}
	if grouped.Web != nil {
		results = grouped.Web
	}
	return results, nil
}

// Scrape fetches one URL. Failures are captured in the returned result.
func (f *Firecrawl) Scrape(ctx context.Context, url string, formats []string) models.ScrapeResult {
	if len(formats) == 0 {
		formats = DefaultScrapeFormats
	}

	result := models.ScrapeResult{URL: url}
	if !f.IsEnabled() {
		result.Error = fmt.Sprintf("firecrawl: %v", ErrNotConfigured)
		result.ScrapedAt = time.Now().Format(models.TimestampLayout)
		return result
	}

	key := cache.Key("scrape", url, strings.Join(formats, ","))
	if cache.GetJSON(ctx, f.opts.cache, key, &result) {
		metrics.CacheLookupsTotal.WithLabelValues("scrape", "hit").Inc()
		return result
	}

	start := time.Now()
	err := f.scrape(ctx, url, formats, &result)
	metrics.ObserveProvider(f.GetName(), "scrape", start, err)
	result.ScrapedAt = time.Now().Format(models.TimestampLayout)

	if err != nil {
		logrus.WithFields(logrus.Fields{"operation": "firecrawl_scrape", "url": url}).Warnf("Scrape failed: %v", err)
		result.Success = false
		result.Error = err.Error()
		return result
	}

	result.Success = true
	metrics.CacheLookupsTotal.WithLabelValues("scrape", "miss").Inc()
	cache.SetJSON(ctx, f.opts.cache, key, result, f.opts.cacheTTL)
	return result
}

func (f *Firecrawl) scrape(ctx context.Context, url string, formats []string, result *models.ScrapeResult) error {
	var body firecrawlScrapeResponse
	r, err := f.opts.client().R().
		SetContext(ctx).
		SetAuthToken(f.apiKey).
		SetBody(map[string]interface{}{"url": url, "formats": formats}).
		SetResult(&body).
		SetError(&body).
		Post("/v1/scrape")
	if err != nil {
		return fmt.Errorf("scrape request failed: %w", err)
	}
	if r.IsError() {
		if body.Error != "" {
			return fmt.Errorf("scrape failed (status %d): %s", r.StatusCode(), body.Error)
		}
		return statusError("firecrawl", r)
	}
	if !body.Success && body.Error != "" {
		return fmt.Errorf("scrape failed: %s", body.Error)
	}

	result.Markdown = body.Data.Markdown
	result.HTML = body.Data.HTML
	result.Title = body.Data.Metadata.Title
	result.Description = body.Data.Metadata.Description
	return nil
}

// ScrapeURLs scrapes each URL in order
func (f *Firecrawl) ScrapeURLs(ctx context.Context, urls []string, formats []string) []models.ScrapeResult {
	results := make([]models.ScrapeResult, 0, len(urls))
	for _, url := range urls {
		results = append(results, f.Scrape(ctx, url, formats))
	}
	return results
}
