// Package client is a typed HTTP client for the content finder backend
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/outstaffer/content-finder/internal/config"
	"github.com/outstaffer/content-finder/internal/intelligence"
	"github.com/outstaffer/content-finder/internal/models"
	"github.com/outstaffer/content-finder/internal/validate"
)

const defaultTimeout = 5 * time.Minute

// APIError is a non-2xx backend response. Message is the backend's error string.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

type errorBody struct {
	Error string `json:"error"`
}

// Client calls the backend API
type Client struct {
	http *resty.Client
}

// Option customizes a Client
type Option func(*resty.Client)

// WithTimeout sets the request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// New creates a client for the backend at baseURL
func New(baseURL string, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(defaultTimeout).
		SetHeader("Content-Type", "application/json")
	for _, opt := range opts {
		opt(rc)
	}
	return &Client{http: rc}
}

func (c *Client) raw(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, path, err)
	}

	if resp.IsError() {
		var eb errorBody
		message := fmt.Sprintf("request failed with status %d", resp.StatusCode())
		if json.Unmarshal(resp.Body(), &eb) == nil && eb.Error != "" {
			message = eb.Error
		}
		return nil, &APIError{Status: resp.StatusCode(), Message: message}
	}
	return resp.Body(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	data, err := c.raw(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// Search runs a web search
func (c *Client) Search(ctx context.Context, query string, limit int) (*models.SearchResponse, error) {
	var resp models.SearchResponse
	err := c.do(ctx, http.MethodPost, "/api/search", map[string]interface{}{"query": query, "limit": limit}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Scrape scrapes urls as markdown
func (c *Client) Scrape(ctx context.Context, urls []string) (*models.ScrapeResponse, error) {
	var resp models.ScrapeResponse
	if err := c.do(ctx, http.MethodPost, "/api/scrape", map[string]interface{}{"urls": urls}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Analyze requests an article analysis. A response of the wrong shape is returned as an invalid result, not an error.
func (c *Client) Analyze(ctx context.Context, content string) (validate.Result[models.ArticleAnalysis], error) {
	data, err := c.raw(ctx, http.MethodPost, "/api/analyze", map[string]string{"content": content})
	if err != nil {
		return validate.Result[models.ArticleAnalysis]{}, err
	}
	return validate.ArticleAnalysis(data), nil
}

// Synthesize requests a multi-article synthesis for query
func (c *Client) Synthesize(ctx context.Context, query string, contents []models.SynthesisContent) (validate.Result[models.MultiArticleAnalysis], error) {
	data, err := c.raw(ctx, http.MethodPost, "/api/synthesize", map[string]interface{}{"query": query, "contents": contents})
	if err != nil {
		return validate.Result[models.MultiArticleAnalysis]{}, err
	}
	return validate.MultiArticleAnalysis(data), nil
}

// Pipeline runs search, scrape and analyze on the backend
func (c *Client) Pipeline(ctx context.Context, query string, maxURLs int) (*models.PipelineResult, error) {
	var resp models.PipelineResult
	if err := c.do(ctx, http.MethodPost, "/api/pipeline", map[string]interface{}{"query": query, "max_urls": maxURLs}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateSession starts an intelligence session and returns its id
func (c *Client) CreateSession(ctx context.Context, segmentName, mission string) (string, error) {
	var resp struct {
		SessionID string `json:"session_id"`
	}
	err := c.do(ctx, http.MethodPost, "/api/intelligence/sessions", map[string]string{"segment_name": segmentName, "mission": mission}, &resp)
	if err != nil {
		return "", err
	}
	return resp.SessionID, nil
}

// GetSession loads a session
func (c *Client) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := c.do(ctx, http.MethodGet, sessionPath(id, ""), nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions lists recent sessions of a segment
func (c *Client) ListSessions(ctx context.Context, segmentName string, limit int) ([]models.Session, error) {
	q := url.Values{}
	q.Set("segment", segmentName)
	q.Set("limit", strconv.Itoa(limit))

	var resp struct {
		Sessions []models.Session `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/intelligence/sessions?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// UpdateQueries changes query selection or text
func (c *Client) UpdateQueries(ctx context.Context, id string, updates []intelligence.QueryUpdate) error {
	return c.do(ctx, http.MethodPut, sessionPath(id, "queries"), map[string]interface{}{"queries": updates}, nil)
}

// SearchSession runs the selected queries of a session
func (c *Client) SearchSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, sessionPath(id, "search"), nil, nil)
}

// UpdateSources changes source selection
func (c *Client) UpdateSources(ctx context.Context, id string, updates []intelligence.SourceUpdate) error {
	return c.do(ctx, http.MethodPut, sessionPath(id, "sources"), map[string]interface{}{"sources": updates}, nil)
}

// AnalyzeSession synthesizes content themes from the selected sources
func (c *Client) AnalyzeSession(ctx context.Context, id string) ([]models.ContentTheme, error) {
	var resp struct {
		Themes []models.ContentTheme `json:"themes"`
	}
	if err := c.do(ctx, http.MethodPost, sessionPath(id, "analyze"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Themes, nil
}

func sessionPath(id, action string) string {
	path := "/api/intelligence/sessions/" + url.PathEscape(id)
	if action != "" {
		path += "/" + action
	}
	return path
}

// FetchReddit runs the fetch-reddit stage
func (c *Client) FetchReddit(ctx context.Context, segmentName string) (*models.FetchRedditResult, error) {
	var resp models.FetchRedditResult
	if err := c.do(ctx, http.MethodPost, vocPath("fetch-reddit"), map[string]string{"segment_name": segmentName}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PreScore runs the pre-score-posts stage
func (c *Client) PreScore(ctx context.Context, segmentName string, posts []models.RedditPost) (*models.PrescoreResult, error) {
	var resp models.PrescoreResult
	body := map[string]interface{}{"segment_name": segmentName, "raw_posts": nonNilPosts(posts)}
	if err := c.do(ctx, http.MethodPost, vocPath("pre-score-posts"), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Enrich runs the enrich-posts stage
func (c *Client) Enrich(ctx context.Context, segmentName string, posts []models.RedditPost) (*models.EnrichResult, error) {
	var resp models.EnrichResult
	body := map[string]interface{}{"segment_name": segmentName, "promising_posts": nonNilPosts(posts)}
	if err := c.do(ctx, http.MethodPost, vocPath("enrich-posts"), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchTrends runs the fetch-trends stage
func (c *Client) FetchTrends(ctx context.Context, segmentName string) (*models.TrendsResult, error) {
	var resp models.TrendsResult
	if err := c.do(ctx, http.MethodPost, vocPath("fetch-trends"), map[string]string{"segment_name": segmentName}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GenerateQueries runs the generate-queries stage
func (c *Client) GenerateQueries(ctx context.Context, segmentName string, posts []models.RedditPost, trends []models.TrendEntry) (*models.QueriesResult, error) {
	if trends == nil {
		trends = []models.TrendEntry{}
	}
	var resp models.QueriesResult
	body := map[string]interface{}{"segment_name": segmentName, "filtered_posts": nonNilPosts(posts), "trends": trends}
	if err := c.do(ctx, http.MethodPost, vocPath("generate-queries"), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RunDiscovery runs every VOC stage in one request
func (c *Client) RunDiscovery(ctx context.Context, segmentName string) (*models.DiscoveryReport, error) {
	var report models.DiscoveryReport
	if err := c.do(ctx, http.MethodPost, "/api/intelligence/voc-discovery", map[string]string{"segment_name": segmentName}, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func vocPath(stage string) string {
	return "/api/intelligence/voc-discovery/" + stage
}

func nonNilPosts(posts []models.RedditPost) []models.RedditPost {
	if posts == nil {
		return []models.RedditPost{}
	}
	return posts
}

// SegmentSummary is the public view of a segment configuration
type SegmentSummary struct {
	Segment        string   `json:"segment"`
	Subreddits     []string `json:"subreddits"`
	TrendsKeywords []string `json:"trends_keywords"`
}

// IntelligenceConfig loads the intelligence configuration
func (c *Client) IntelligenceConfig(ctx context.Context) (*config.IntelligenceConfig, error) {
	var cfg config.IntelligenceConfig
	if err := c.do(ctx, http.MethodGet, "/api/intelligence/config", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SegmentConfig loads the summary of one segment
func (c *Client) SegmentConfig(ctx context.Context, segmentName string) (*SegmentSummary, error) {
	var summary SegmentSummary
	if err := c.do(ctx, http.MethodGet, "/api/segment-config/"+url.PathEscape(segmentName), nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
