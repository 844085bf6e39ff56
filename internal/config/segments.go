package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/outstaffer/content-finder/internal/models"
)

// ErrSegmentNotFound is returned when no configuration file exists for a segment
var ErrSegmentNotFound = errors.New("segment configuration not found")

const (
	defaultPrescoreThreshold    = 6.0
	defaultAIRelevanceThreshold = 6.0
)

// SegmentConfig describes an audience segment and how to research it
type SegmentConfig struct {
	Name                 string        `json:"name,omitempty"`
	Audience             string        `json:"audience,omitempty"`
	Priorities           []string      `json:"priorities,omitempty"`
	FocusAreas           []string      `json:"focus_areas,omitempty"`
	Rules                []string      `json:"rules,omitempty"`
	Subreddits           []string      `json:"subreddits,omitempty"`
	TrendsKeywords       []string      `json:"trends_keywords,omitempty"`
	SearchKeywords       []string      `json:"search_keywords,omitempty"`
	GoogleTrends         GoogleTrends  `json:"google_trends"`
	RedditFilters        RedditFilters `json:"reddit_filters"`
	PrescoreThreshold    *float64      `json:"prescore_threshold,omitempty"`
	AIRelevanceThreshold *float64      `json:"ai_relevance_threshold,omitempty"`
}

// GoogleTrends holds the trends lookup settings of a segment
type GoogleTrends struct {
	PrimaryKeywords   []string `json:"primary_keywords,omitempty"`
	ComparisonKeyword string   `json:"comparison_keyword,omitempty"`
	Timeframe         string   `json:"timeframe,omitempty"`
	Geo               string   `json:"geo,omitempty"`
}

// RedditFilters holds the subreddit fetch filters of a segment
type RedditFilters struct {
	MinScore    int    `json:"min_score,omitempty"`
	MinComments int    `json:"min_comments,omitempty"`
	TimeRange   string `json:"time_range,omitempty"`
	Sort        string `json:"sort,omitempty"`
}

// IntelligenceConfig is the top-level intelligence configuration.
// Fields not modelled here are preserved and returned as read.
type IntelligenceConfig struct {
	MonthlyRun MonthlyRun `json:"monthly_run"`

	raw json.RawMessage
}

// MarshalJSON returns the file content as loaded when available
func (c IntelligenceConfig) MarshalJSON() ([]byte, error) {
	if len(c.raw) > 0 {
		return c.raw, nil
	}
	type plain IntelligenceConfig
	return json.Marshal(plain(c))
}

// Segment returns the monthly run entry for a segment name
func (c *IntelligenceConfig) Segment(name string) (models.SegmentMeta, bool) {
	for _, s := range c.MonthlyRun.Segments {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return models.SegmentMeta{}, false
}

// MonthlyRun lists the segments processed by the scheduled run
type MonthlyRun struct {
	Segments []models.SegmentMeta `json:"segments"`
}

// Slug converts a segment name into its file slug
func Slug(segmentName string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(segmentName)), " ", "_")
}

// TrendsQueryKeywords resolves the keywords used for trend lookups
func (s *SegmentConfig) TrendsQueryKeywords() []string {
	if len(s.TrendsKeywords) > 0 {
		return s.TrendsKeywords
	}
	if len(s.GoogleTrends.PrimaryKeywords) > 0 {
		return s.GoogleTrends.PrimaryKeywords
	}
	return s.SearchKeywords
}

// Prescore returns the pre-score acceptance threshold
func (s *SegmentConfig) Prescore() float64 {
	if s.PrescoreThreshold != nil {
		return *s.PrescoreThreshold
	}
	return defaultPrescoreThreshold
}

// AIRelevance returns the enrichment acceptance threshold
func (s *SegmentConfig) AIRelevance() float64 {
	if s.AIRelevanceThreshold != nil {
		return *s.AIRelevanceThreshold
	}
	return defaultAIRelevanceThreshold
}

// Filters returns the reddit filters with defaults applied
func (s *SegmentConfig) Filters() RedditFilters {
	f := s.RedditFilters
	if f.TimeRange == "" {
		f.TimeRange = "month"
	}
	if f.Sort == "" {
		f.Sort = "top"
	}
	return f
}

// TimeframeOrDefault returns the trends timeframe with its default applied
func (g GoogleTrends) TimeframeOrDefault() string {
	if g.Timeframe == "" {
		return "today 12-m"
	}
	return g.Timeframe
}

// Merge applies request overrides on top of a loaded segment config
func (s SegmentConfig) Merge(overrides SegmentConfig) SegmentConfig {
	if len(overrides.Subreddits) > 0 {
		s.Subreddits = overrides.Subreddits
	}
	if len(overrides.TrendsKeywords) > 0 {
		s.TrendsKeywords = overrides.TrendsKeywords
	}
	if len(overrides.GoogleTrends.PrimaryKeywords) > 0 || overrides.GoogleTrends.ComparisonKeyword != "" {
		s.GoogleTrends = overrides.GoogleTrends
	}
	return s
}

// SegmentLoader reads segment and intelligence configuration from a directory
type SegmentLoader struct {
	dir string
}

// NewSegmentLoader creates a loader rooted at dir
func NewSegmentLoader(dir string) *SegmentLoader {
	return &SegmentLoader{dir: dir}
}

// Load reads the configuration of a single segment
func (l *SegmentLoader) Load(segmentName string) (*SegmentConfig, error) {
	slug := Slug(segmentName)
	if slug == "" || strings.ContainsAny(slug, `/\`) || strings.Contains(slug, "..") {
		return nil, fmt.Errorf("invalid segment name '%s': %w", segmentName, ErrSegmentNotFound)
	}
	path := filepath.Join(l.dir, "segments", fmt.Sprintf("segment_%s.json", slug))

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no configuration found for segment '%s': %w", segmentName, ErrSegmentNotFound)
		}
		return nil, fmt.Errorf("failed to read segment config %s: %w", path, err)
	}

	var cfg SegmentConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse segment config %s: %w", path, err)
	}
	if cfg.Name == "" {
		cfg.Name = segmentName
	}

	return &cfg, nil
}

// LoadIntelligence reads intelligence_config.json
func (l *SegmentLoader) LoadIntelligence() (*IntelligenceConfig, error) {
	path := filepath.Join(l.dir, "intelligence_config.json")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read intelligence config: %w", err)
	}

	var cfg IntelligenceConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse intelligence config: %w", err)
	}
	cfg.raw = json.RawMessage(data)

	return &cfg, nil
}
