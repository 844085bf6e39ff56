// Package mocks provides testify mocks of the provider and storage interfaces
package mocks

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/outstaffer/content-finder/internal/config"
	"github.com/outstaffer/content-finder/internal/models"
	"github.com/outstaffer/content-finder/internal/providers"
	"github.com/outstaffer/content-finder/internal/storage"
)

var (
	_ providers.WebSearcher      = (*WebSearcher)(nil)
	_ providers.Scraper          = (*Scraper)(nil)
	_ providers.ResearchSearcher = (*ResearchSearcher)(nil)
	_ providers.LLM              = (*LLM)(nil)
	_ providers.RedditSource     = (*RedditSource)(nil)
	_ providers.TrendsSource     = (*TrendsSource)(nil)
	_ storage.StorageInterface   = (*Storage)(nil)
)

// WebSearcher is a mock web search provider
type WebSearcher struct {
	mock.Mock
}

func (m *WebSearcher) Search(ctx context.Context, query string, limit int) (*models.SearchResponse, error) {
	args := m.Called(ctx, query, limit)
	resp, _ := args.Get(0).(*models.SearchResponse)
	return resp, args.Error(1)
}

// Scraper is a mock scraping provider
type Scraper struct {
	mock.Mock
}

func (m *Scraper) Scrape(ctx context.Context, url string, formats []string) models.ScrapeResult {
	args := m.Called(ctx, url, formats)
	return args.Get(0).(models.ScrapeResult)
}

// ScrapeURLs scrapes each URL through Scrape so expectations can be set per URL
func (m *Scraper) ScrapeURLs(ctx context.Context, urls []string, formats []string) []models.ScrapeResult {
	results := make([]models.ScrapeResult, 0, len(urls))
	for _, url := range urls {
		results = append(results, m.Scrape(ctx, url, formats))
	}
	return results
}

// ResearchSearcher is a mock research search provider
type ResearchSearcher struct {
	mock.Mock
}

func (m *ResearchSearcher) SearchResearch(ctx context.Context, query string, maxResults int) ([]providers.TavilyResult, error) {
	args := m.Called(ctx, query, maxResults)
	results, _ := args.Get(0).([]providers.TavilyResult)
	return results, args.Error(1)
}

// LLM is a mock language model
type LLM struct {
	mock.Mock
}

func (m *LLM) GenerateJSON(ctx context.Context, req providers.GenerateRequest) (json.RawMessage, error) {
	args := m.Called(ctx, req)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func (m *LLM) GenerateText(ctx context.Context, req providers.GenerateRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *LLM) DefaultModel() string {
	return "mock-model"
}

// RedditSource is a mock Reddit provider
type RedditSource struct {
	mock.Mock
}

func (m *RedditSource) FetchSubreddit(ctx context.Context, subreddit string, filters config.RedditFilters) ([]models.RedditPost, error) {
	args := m.Called(ctx, subreddit, filters)
	posts, _ := args.Get(0).([]models.RedditPost)
	return posts, args.Error(1)
}

func (m *RedditSource) FetchComments(ctx context.Context, postURL string) (json.RawMessage, error) {
	args := m.Called(ctx, postURL)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

// TrendsSource is a mock Google Trends provider
type TrendsSource struct {
	mock.Mock
}

func (m *TrendsSource) FetchTrend(ctx context.Context, keyword, comparison, timeframe, geo string) (*models.TrendEntry, error) {
	args := m.Called(ctx, keyword, comparison, timeframe, geo)
	entry, _ := args.Get(0).(*models.TrendEntry)
	return entry, args.Error(1)
}

// Storage is a mock storage backend
type Storage struct {
	mock.Mock
}

func (m *Storage) Store(ctx context.Context, key string, data []byte) error {
	args := m.Called(ctx, key, data)
	return args.Error(0)
}

func (m *Storage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *Storage) List(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	keys, _ := args.Get(0).([]string)
	return keys, args.Error(1)
}

func (m *Storage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
