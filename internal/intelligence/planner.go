package intelligence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/outstaffer/content-finder/internal/config"
	"github.com/outstaffer/content-finder/internal/prompts"
	"github.com/outstaffer/content-finder/internal/providers"
)

// MaxPlannedQueries caps the number of queries planned for a session
const MaxPlannedQueries = 10

var queryListSchema = &providers.Schema{
	Type:  providers.TypeArray,
	Items: &providers.Schema{Type: providers.TypeString},
}

// Planner turns a research mission into web search queries
type Planner struct {
	llm      providers.LLM
	segments *config.SegmentLoader
	now      func() time.Time
}

// NewPlanner creates a planner that reads segment settings through segments
func NewPlanner(llm providers.LLM, segments *config.SegmentLoader) *Planner {
	return &Planner{llm: llm, segments: segments, now: time.Now}
}

// Prompt builds the planner instructions for a segment
func (p *Planner) Prompt(segmentName string) string {
	year := p.now().Year()

	cfg, err := p.segments.Load(segmentName)
	if err != nil {
		if !errors.Is(err, config.ErrSegmentNotFound) {
			logrus.WithField("segment_name", segmentName).Warnf("Failed to load planner config: %v", err)
			return "You are a research planner. Turn the mission into 8-12 web-ready search queries."
		}
		return fmt.Sprintf("You are a research planner. The current year is %d. Turn the mission into 8-12 web-ready search queries. Focus on recent data. Output a pure JSON array of strings.", year)
	}

	years := strings.NewReplacer(
		"{current_year}", strconv.Itoa(year),
		"{past_year_1}", strconv.Itoa(year-1),
		"{past_year_2}", strconv.Itoa(year-2),
	)
	rules := make([]string, 0, len(cfg.Rules))
	for _, rule := range cfg.Rules {
		rules = append(rules, years.Replace(rule))
	}

	prompt, err := prompts.Render(prompts.Planner, map[string]interface{}{
		"CurrentYear": year,
		"Audience":    cfg.Audience,
		"Priorities":  cfg.Priorities,
		"FocusAreas":  cfg.FocusAreas,
		"Rules":       rules,
	})
	if err != nil {
		logrus.WithField("segment_name", segmentName).Errorf("Failed to render planner prompt: %v", err)
		return fmt.Sprintf("You are a research planner. The current year is %d. Turn the mission into 8-12 web-ready search queries.", year)
	}
	return prompt
}

// Plan returns at most maxQueries queries. If the model fails, the mission itself is the only query.
func (p *Planner) Plan(ctx context.Context, mission, segmentName string, maxQueries int) []string {
	if maxQueries <= 0 {
		maxQueries = MaxPlannedQueries
	}

	prompt := fmt.Sprintf("%s\n\nMission: %s\nReturn at most %d queries.", p.Prompt(segmentName), mission, maxQueries)
	raw, err := p.llm.GenerateJSON(ctx, providers.GenerateRequest{Prompt: prompt, Temperature: 0.4, Schema: queryListSchema})
	if err != nil {
		logrus.WithFields(logrus.Fields{"operation": "plan_queries", "segment_name": segmentName}).
			Warnf("Query planning failed: %v", err)
		return []string{mission}
	}

	var items []interface{}
	if err := json.Unmarshal(raw, &items); err != nil {
		logrus.WithFields(logrus.Fields{"operation": "plan_queries", "segment_name": segmentName}).
			Warn("Planner did not return a list")
		return []string{mission}
	}

	queries := make([]string, 0, len(items))
	for _, item := range items {
		if q, ok := item.(string); ok && strings.TrimSpace(q) != "" {
			queries = append(queries, strings.TrimSpace(q))
		}
		if len(queries) == maxQueries {
			break
		}
	}
	return queries
}
