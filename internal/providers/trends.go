package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/outstaffer/content-finder/internal/metrics"
	"github.com/outstaffer/content-finder/internal/models"
)

const serpAPIBaseURL = "https://serpapi.com"

// Trends reads Google Trends data through SerpApi
type Trends struct {
	apiKey string
	opts   options
}

var (
	_ Provider     = (*Trends)(nil)
	_ TrendsSource = (*Trends)(nil)
)

type serpTimelineResponse struct {
	Error            string `json:"error"`
	InterestOverTime struct {
		TimelineData []struct {
			Date   string `json:"date"`
			Values []struct {
				Query          string `json:"query"`
				ExtractedValue int    `json:"extracted_value"`
			} `json:"values"`
		} `json:"timeline_data"`
	} `json:"interest_over_time"`
}

type serpRelatedItem struct {
	Query string `json:"query"`
	Topic *struct {
		Title string `json:"title"`
		Type  string `json:"type"`
	} `json:"topic"`
	Value string `json:"value"`
}

type serpRelatedResponse struct {
	Error          string `json:"error"`
	RelatedQueries struct {
		Top    []serpRelatedItem `json:"top"`
		Rising []serpRelatedItem `json:"rising"`
	} `json:"related_queries"`
	RelatedTopics struct {
		Top    []serpRelatedItem `json:"top"`
		Rising []serpRelatedItem `json:"rising"`
	} `json:"related_topics"`
}

// NewTrends creates a SerpApi Google Trends client
func NewTrends(apiKey string, opts ...Option) *Trends {
	return &Trends{
		apiKey: apiKey,
		opts:   newOptions(serpAPIBaseURL, 60*time.Second, opts),
	}
}

func (t *Trends) GetName() string {
	return "google_trends"
}

func (t *Trends) IsEnabled() bool {
	return t.apiKey != ""
}

// FetchTrend returns interest over time for keyword (compared against comparison
// when set) plus the related queries and topics of keyword
func (t *Trends) FetchTrend(ctx context.Context, keyword, comparison, timeframe, geo string) (entry *models.TrendEntry, err error) {
	if !t.IsEnabled() {
		return nil, fmt.Errorf("serpapi: %w", ErrNotConfigured)
	}

	start := time.Now()
	defer func() { metrics.ObserveProvider(t.GetName(), "trend", start, err) }()

	terms := []string{keyword}
	if comparison != "" && !strings.EqualFold(comparison, keyword) {
		terms = append(terms, comparison)
	} else {
		comparison = ""
	}

	var timeline serpTimelineResponse
	if err := t.query(ctx, strings.Join(terms, ","), "TIMESERIES", timeframe, geo, &timeline); err != nil {
		return nil, err
	}
	if timeline.Error != "" {
		return nil, fmt.Errorf("google trends timeseries failed: %s", timeline.Error)
	}

	var queries serpRelatedResponse
	if err := t.query(ctx, keyword, "RELATED_QUERIES", timeframe, geo, &queries); err != nil {
		return nil, err
	}

	var topics serpRelatedResponse
	if err := t.query(ctx, keyword, "RELATED_TOPICS", timeframe, geo, &topics); err != nil {
		return nil, err
	}

	entry = &models.TrendEntry{
		Query:             keyword,
		ComparisonKeyword: comparison,
		InterestOverTime:  []models.InterestPoint{},
		RelatedQueries: models.RelatedSet{
			Top:    convertRelated(queries.RelatedQueries.Top),
			Rising: convertRelated(queries.RelatedQueries.Rising),
		},
		RelatedTopics: models.RelatedSet{
			Top:    convertRelated(topics.RelatedTopics.Top),
			Rising: convertRelated(topics.RelatedTopics.Rising),
		},
	}

	for _, sample := range timeline.InterestOverTime.TimelineData {
		point := models.InterestPoint{Date: sample.Date}
		for _, v := range sample.Values {
			value := v.ExtractedValue
			switch {
			case strings.EqualFold(v.Query, keyword):
				point.PrimaryInterest = value
			case comparison != "" && strings.EqualFold(v.Query, comparison):
				point.ComparisonInterest = &value
			}
		}
		entry.InterestOverTime = append(entry.InterestOverTime, point)
	}

	logrus.WithFields(logrus.Fields{
		"operation":   "trends_fetch",
		"keyword":     keyword,
		"points":      len(entry.InterestOverTime),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Google Trends lookup completed")

	return entry, nil
}

func (t *Trends) query(ctx context.Context, q, dataType, timeframe, geo string, out interface{}) error {
	params := map[string]string{
		"engine":    "google_trends",
		"q":         q,
		"data_type": dataType,
		"api_key":   t.apiKey,
	}
	if timeframe != "" {
		params["date"] = timeframe
	}
	if geo != "" {
		params["geo"] = geo
	}

	resp, err := t.opts.client().R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(out).
		Get("/search.json")
	if err != nil {
		return fmt.Errorf("google trends %s request failed: %w", strings.ToLower(dataType), err)
	}
	if resp.IsError() {
		return statusError("serpapi", resp)
	}
	return nil
}

func convertRelated(items []serpRelatedItem) []models.RelatedEntry {
	out := make([]models.RelatedEntry, 0, len(items))
	for _, item := range items {
		entry := models.RelatedEntry{Query: item.Query, Value: item.Value}
		if item.Topic != nil {
			entry.Query = item.Topic.Title
			entry.Type = item.Topic.Type
		}
		out = append(out, entry)
	}
	return out
}
