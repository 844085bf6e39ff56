package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/outstaffer/content-finder/internal/config"
	"github.com/outstaffer/content-finder/internal/metrics"
	"github.com/outstaffer/content-finder/internal/models"
)

const scrapeCreatorsBaseURL = "https://api.scrapecreators.com"

// Reddit reads subreddit listings and comments through the ScrapeCreators API
type Reddit struct {
	apiKey string
	opts   options
}

var (
	_ Provider     = (*Reddit)(nil)
	_ RedditSource = (*Reddit)(nil)
)

type redditListing struct {
	Data  []redditPost `json:"data"`
	Posts []redditPost `json:"posts"`
}

type redditPost struct {
	ID          string      `json:"id"`
	PostID      string      `json:"post_id"`
	Title       string      `json:"title"`
	Selftext    string      `json:"selftext"`
	URL         string      `json:"url"`
	Permalink   string      `json:"permalink"`
	Created     float64     `json:"created_utc"`
	Score       json.Number `json:"score"`
	NumComments json.Number `json:"num_comments"`
}

// NewReddit creates a ScrapeCreators Reddit client
func NewReddit(apiKey string, opts ...Option) *Reddit {
	return &Reddit{
		apiKey: apiKey,
		opts:   newOptions(scrapeCreatorsBaseURL, 30*time.Second, opts),
	}
}

func (r *Reddit) GetName() string {
	return "reddit"
}

func (r *Reddit) IsEnabled() bool {
	return r.apiKey != ""
}

// FetchSubreddit returns the posts listed for a subreddit
func (r *Reddit) FetchSubreddit(ctx context.Context, subreddit string, filters config.RedditFilters) (posts []models.RedditPost, err error) {
	if !r.IsEnabled() {
		return nil, fmt.Errorf("scrapecreators: %w", ErrNotConfigured)
	}

	start := time.Now()
	defer func() { metrics.ObserveProvider(r.GetName(), "subreddit", start, err) }()

	resp, err := r.opts.client().R().
		SetContext(ctx).
		SetHeader("x-api-key", r.apiKey).
		SetQueryParams(map[string]string{
			"subreddit": subreddit,
			"timeframe": filters.TimeRange,
			"sort":      filters.Sort,
		}).
		Get("/v1/reddit/subreddit")
	if err != nil {
		return nil, fmt.Errorf("subreddit request failed: %w", err)
	}
	if resp.IsError() {
		return nil, statusError("scrapecreators", resp)
	}

	var listing redditListing
	if len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), &listing); err != nil {
			return nil, fmt.Errorf("failed to decode subreddit listing: %w", err)
		}
	}

	raw := listing.Data
	if raw == nil {
		raw = listing.Posts
	}

	posts = make([]models.RedditPost, 0, len(raw))
	for _, p := range raw {
		id := p.ID
		if id == "" {
			id = p.PostID
		}
		posts = append(posts, models.RedditPost{
			ID:             id,
			Title:          p.Title,
			URL:            p.URL,
			Permalink:      p.Permalink,
			CreatedUTC:     p.Created,
			Score:          numberToInt(p.Score),
			NumComments:    numberToInt(p.NumComments),
			Subreddit:      subreddit,
			ContentSnippet: p.Selftext,
		})
	}

	logrus.WithFields(logrus.Fields{
		"operation":   "reddit_fetch",
		"subreddit":   subreddit,
		"count":       len(posts),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Infof("API returned %d posts from r/%s", len(posts), subreddit)

	return posts, nil
}

// FetchComments returns the raw comment tree of a post
func (r *Reddit) FetchComments(ctx context.Context, postURL string) (payload json.RawMessage, err error) {
	if !r.IsEnabled() {
		return nil, fmt.Errorf("scrapecreators: %w", ErrNotConfigured)
	}

	start := time.Now()
	defer func() { metrics.ObserveProvider(r.GetName(), "comments", start, err) }()

	resp, err := r.opts.client().R().
		SetContext(ctx).
		SetHeader("x-api-key", r.apiKey).
		SetQueryParam("url", postURL).
		Get("/v1/reddit/post/comments")
	if err != nil {
		return nil, fmt.Errorf("comments request failed: %w", err)
	}
	if resp.IsError() {
		return nil, statusError("scrapecreators", resp)
	}

	body := resp.Body()
	if len(body) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("comments response is not valid JSON")
	}
	return json.RawMessage(body), nil
}

func numberToInt(n json.Number) int {
	if n == "" {
		return 0
	}
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	if f, err := strconv.ParseFloat(string(n), 64); err == nil {
		return int(f)
	}
	return 0
}
