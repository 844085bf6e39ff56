package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/outstaffer/content-finder/internal/cache"
	"github.com/outstaffer/content-finder/internal/config"
	"github.com/outstaffer/content-finder/internal/models"
)

// ErrNotConfigured is returned when a provider has no credentials
var ErrNotConfigured = errors.New("provider not configured")

// Provider is implemented by every hosted service client
type Provider interface {
	GetName() string
	IsEnabled() bool
}

// WebSearcher runs keyword web searches
type WebSearcher interface {
	Search(ctx context.Context, query string, limit int) (*models.SearchResponse, error)
}

// Scraper fetches page content. Per-URL failures are reported in the result.
type Scraper interface {
	Scrape(ctx context.Context, url string, formats []string) models.ScrapeResult
	ScrapeURLs(ctx context.Context, urls []string, formats []string) []models.ScrapeResult
}

// ResearchSearcher runs deep research searches
type ResearchSearcher interface {
	SearchResearch(ctx context.Context, query string, maxResults int) ([]TavilyResult, error)
}

// LLM generates text and structured JSON
type LLM interface {
	GenerateJSON(ctx context.Context, req GenerateRequest) (json.RawMessage, error)
	GenerateText(ctx context.Context, req GenerateRequest) (string, error)
	DefaultModel() string
}

// RedditSource reads subreddit listings and comment threads
type RedditSource interface {
	FetchSubreddit(ctx context.Context, subreddit string, filters config.RedditFilters) ([]models.RedditPost, error)
	FetchComments(ctx context.Context, postURL string) (json.RawMessage, error)
}

// TrendsSource reads Google Trends data
type TrendsSource interface {
	FetchTrend(ctx context.Context, keyword, comparison, timeframe, geo string) (*models.TrendEntry, error)
}

// Option customizes a provider client
type Option func(*options)

type options struct {
	baseURL  string
	cache    cache.CacheInterface
	cacheTTL time.Duration
	timeout  time.Duration
}

// WithBaseURL points the client at a different API host
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithCache caches successful responses for ttl
func WithCache(c cache.CacheInterface, ttl time.Duration) Option {
	return func(o *options) {
		o.cache = c
		o.cacheTTL = ttl
	}
}

// WithTimeout overrides the request timeout
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func newOptions(defaultBaseURL string, defaultTimeout time.Duration, opts []Option) options {
	o := options{baseURL: defaultBaseURL, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) client() *resty.Client {
	return resty.New().
		SetBaseURL(o.baseURL).
		SetTimeout(o.timeout).
		SetHeader("User-Agent", "Content-Finder/1.0")
}

func statusError(provider string, resp *resty.Response) error {
	return fmt.Errorf("%s API returned status %d: %s", provider, resp.StatusCode(), truncate(string(resp.Body()), 300))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
