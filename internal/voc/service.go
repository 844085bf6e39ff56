package voc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/outstaffer/content-finder/internal/config"
	"github.com/outstaffer/content-finder/internal/metrics"
	"github.com/outstaffer/content-finder/internal/models"
	"github.com/outstaffer/content-finder/internal/prompts"
	"github.com/outstaffer/content-finder/internal/providers"
	"github.com/outstaffer/content-finder/internal/validate"
)

const (
	prescoreWorkers = 5
	enrichWorkers   = 3

	titleLength   = 200
	snippetLength = 1000
)

var prescoreSchema = &providers.Schema{
	Type: providers.TypeObject,
	Properties: map[string]*providers.Schema{
		"relevance_score": {Type: providers.TypeNumber, Description: "0-10"},
		"priority":        {Type: providers.TypeBoolean},
		"quick_reason":    {Type: providers.TypeString},
	},
	Required: []string{"relevance_score", "priority", "quick_reason"},
}

var redditAnalysisSchema = &providers.Schema{
	Type: providers.TypeObject,
	Properties: map[string]*providers.Schema{
		"relevance_score":       {Type: providers.TypeNumber, Description: "0-10"},
		"reasoning":             {Type: providers.TypeString},
		"identified_pain_point": {Type: providers.TypeString},
		"outstaffer_solution_angle": {
			Type: providers.TypeString,
			Enum: []string{"Recruitment", "EOR", "AI Screening", "HRIS", "None"},
		},
	},
	Required: []string{"relevance_score", "reasoning", "identified_pain_point", "outstaffer_solution_angle"},
}

// ServiceInterface defines the VOC discovery stages
type ServiceInterface interface {
	FetchReddit(ctx context.Context, segmentName string) (*models.FetchRedditResult, error)
	PreScore(ctx context.Context, segmentName string, posts []models.RedditPost) (*models.PrescoreResult, error)
	Enrich(ctx context.Context, segmentName string, posts []models.RedditPost) (*models.EnrichResult, error)
	FetchTrends(ctx context.Context, segmentName string) (*models.TrendsResult, error)
	GenerateQueries(ctx context.Context, segmentName string, posts []models.RedditPost, trends []models.TrendEntry) (*models.QueriesResult, error)
	RunDiscovery(ctx context.Context, segmentName string, overrides config.SegmentConfig) (*models.DiscoveryReport, error)
}

// Service runs voice-of-customer discovery over Reddit and Google Trends
type Service struct {
	reddit   providers.RedditSource
	trends   providers.TrendsSource
	llm      providers.LLM
	proModel string
	segments *config.SegmentLoader
	history  *History

	now func() time.Time
}

var _ ServiceInterface = (*Service)(nil)

// NewService creates a VOC service. Enrichment uses proModel when set.
func NewService(reddit providers.RedditSource, trends providers.TrendsSource, llm providers.LLM, proModel string, segments *config.SegmentLoader, history *History) *Service {
	return &Service{
		reddit:   reddit,
		trends:   trends,
		llm:      llm,
		proModel: proModel,
		segments: segments,
		history:  history,
		now:      time.Now,
	}
}

// Segment loads the configuration of a segment
func (s *Service) Segment(segmentName string) (*config.SegmentConfig, error) {
	if strings.TrimSpace(segmentName) == "" {
		return nil, models.BadRequest("segment_name is required")
	}
	cfg, err := s.segments.Load(segmentName)
	if err != nil {
		if errors.Is(err, config.ErrSegmentNotFound) {
			return nil, models.NotFound("No configuration found for segment '%s'", segmentName)
		}
		return nil, err
	}
	return cfg, nil
}

// logFunc receives progress messages from a stage
type logFunc func(level, message string)

func discardLog(string, string) {}

// FetchReddit collects new posts from the segment's subreddits
func (s *Service) FetchReddit(ctx context.Context, segmentName string) (*models.FetchRedditResult, error) {
	cfg, err := s.Segment(segmentName)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	result, err := s.fetchReddit(ctx, cfg, discardLog)
	if err != nil {
		return nil, err
	}
	result.DurationMS = elapsedMS(start)
	return result, nil
}

func (s *Service) fetchReddit(ctx context.Context, cfg *config.SegmentConfig, logf logFunc) (*models.FetchRedditResult, error) {
	result := &models.FetchRedditResult{RawPosts: []models.RedditPost{}, UnfilteredPosts: []models.RedditPost{}, Warnings: []string{}}
	log := logrus.WithFields(logrus.Fields{"operation": "reddit_fetch", "segment_name": cfg.Name})

	if len(cfg.Subreddits) == 0 {
		result.Warnings = append(result.Warnings, "Segment configuration does not define any subreddits to monitor.")
		return result, nil
	}

	seen, err := s.history.Seen(ctx, cfg.Name)
	if err != nil {
		return nil, err
	}

	filters := cfg.Filters()
	fetched := make(map[string]bool)
	for _, subreddit := range cfg.Subreddits {
		posts, err := s.reddit.FetchSubreddit(ctx, subreddit, filters)
		if err != nil {
			warning := fmt.Sprintf("Failed to fetch subreddit '%s': %v", subreddit, err)
			log.WithField("subreddit", subreddit).Warn(warning)
			result.Warnings = append(result.Warnings, warning)
			logf("error", fmt.Sprintf("r/%s: API fetch failed - %v", subreddit, err))
			continue
		}
		logf("info", fmt.Sprintf("Fetched %d posts from r/%s", len(posts), subreddit))

		for _, post := range posts {
			if post.ID == "" || fetched[post.ID] {
				continue
			}
			fetched[post.ID] = true
			result.UnfilteredPosts = append(result.UnfilteredPosts, post)

			switch {
			case seen[post.ID]:
				metrics.VOCPostsTotal.WithLabelValues("fetch", "seen").Inc()
			case post.Score < filters.MinScore, post.NumComments < filters.MinComments:
				log.WithField("post_id", post.ID).Debugf("Post filtered: score=%d comments=%d", post.Score, post.NumComments)
				metrics.VOCPostsTotal.WithLabelValues("fetch", "filtered").Inc()
			default:
				result.RawPosts = append(result.RawPosts, post)
				metrics.VOCPostsTotal.WithLabelValues("fetch", "kept").Inc()
			}
		}
	}

	sort.SliceStable(result.RawPosts, func(i, j int) bool { return result.RawPosts[i].Score > result.RawPosts[j].Score })
	result.Count = len(result.RawPosts)
	result.RawCount = len(result.UnfilteredPosts)

	log.WithField("count", result.Count).Infof("Collected %d candidate posts from %d fetched", result.Count, result.RawCount)
	return result, nil
}

// PreScore scores each post from its title and snippet and keeps those at or above the segment threshold
func (s *Service) PreScore(ctx context.Context, segmentName string, posts []models.RedditPost) (*models.PrescoreResult, error) {
	cfg, err := s.Segment(segmentName)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		return nil, models.BadRequest("raw_posts is required (from fetch-reddit stage)")
	}
	start := time.Now()
	result := s.preScore(ctx, cfg, posts)
	result.DurationMS = elapsedMS(start)
	return result, nil
}

func (s *Service) preScore(ctx context.Context, cfg *config.SegmentConfig, posts []models.RedditPost) *models.PrescoreResult {
	threshold := cfg.Prescore()
	scored := make([]models.RedditPost, len(posts))
	failures := make([]error, len(posts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prescoreWorkers)
	for i := range posts {
		i := i
		g.Go(func() error {
			post := posts[i]
			score, err := s.scorePost(gctx, cfg, post)
			if err != nil {
				failures[i] = err
			} else {
				post.Prescore = score
			}
			scored[i] = post
			return nil
		})
	}
	_ = g.Wait()

	result := &models.PrescoreResult{
		PrescoredPosts: []models.RedditPost{},
		PromisingPosts: []models.RedditPost{},
		RejectedPosts:  []models.RedditPost{},
		Warnings:       []string{},
		Threshold:      threshold,
		Stats:          models.PrescoreStats{Input: len(posts)},
	}
	for i, post := range scored {
		if failures[i] != nil {
			warning := fmt.Sprintf("Pre-score failed for post '%s' in segment '%s': %v", post.ID, cfg.Name, failures[i])
			logrus.WithFields(logrus.Fields{"operation": "reddit_prescore", "post_id": post.ID}).Warn(warning)
			result.Warnings = append(result.Warnings, warning)
			metrics.VOCPostsTotal.WithLabelValues("prescore", "failed").Inc()
			continue
		}

		result.PrescoredPosts = append(result.PrescoredPosts, post)
		if post.Prescore.RelevanceScore >= threshold {
			result.PromisingPosts = append(result.PromisingPosts, post)
			metrics.VOCPostsTotal.WithLabelValues("prescore", "promising").Inc()
		} else {
			result.RejectedPosts = append(result.RejectedPosts, post)
			metrics.VOCPostsTotal.WithLabelValues("prescore", "rejected").Inc()
		}
	}

	result.Count = len(result.PromisingPosts)
	result.Stats.Prescored = len(result.PrescoredPosts)
	result.Stats.Promising = len(result.PromisingPosts)
	result.Stats.Rejected = len(result.RejectedPosts)

	logrus.WithFields(logrus.Fields{
		"operation":    "reddit_prescore",
		"segment_name": cfg.Name,
		"count":        result.Count,
		"threshold":    threshold,
	}).Infof("Pre-scored %d posts, %d promising", result.Stats.Prescored, result.Stats.Promising)
	return result
}

func (s *Service) scorePost(ctx context.Context, cfg *config.SegmentConfig, post models.RedditPost) (*models.Prescore, error) {
	prompt, err := prompts.Render(prompts.Prescore, map[string]string{
		"SegmentName": cfg.Name,
		"Audience":    cfg.Audience,
		"Priorities":  priorityLines(cfg.Priorities),
		"Title":       CleanText(post.Title, titleLength),
		"Snippet":     CleanText(post.ContentSnippet, snippetLength),
		"Subreddit":   post.Subreddit,
	})
	if err != nil {
		return nil, err
	}

	raw, err := s.llm.GenerateJSON(ctx, providers.GenerateRequest{
		Prompt:          prompt,
		Temperature:     0.0,
		MaxOutputTokens: 2048,
		Schema:          prescoreSchema,
	})
	if err != nil {
		return nil, err
	}

	score, err := validate.Prescore(raw).Unwrap()
	if err != nil {
		return nil, err
	}
	return &score, nil
}

// Enrich analyzes each promising post together with its top comments and keeps
// those at or above the AI relevance threshold. Every input post is marked as processed.
func (s *Service) Enrich(ctx context.Context, segmentName string, posts []models.RedditPost) (*models.EnrichResult, error) {
	cfg, err := s.Segment(segmentName)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		return nil, models.BadRequest("promising_posts is required (from pre-score stage)")
	}
	start := time.Now()
	result := s.enrich(ctx, cfg, posts)
	result.DurationMS = elapsedMS(start)
	return result, nil
}

func (s *Service) enrich(ctx context.Context, cfg *config.SegmentConfig, posts []models.RedditPost) *models.EnrichResult {
	threshold := cfg.AIRelevance()
	enriched := make([]models.RedditPost, len(posts))
	warnings := make([][]string, len(posts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichWorkers)
	for i := range posts {
		i := i
		g.Go(func() error {
			enriched[i], warnings[i] = s.enrichPost(gctx, cfg, posts[i])
			return nil
		})
	}
	_ = g.Wait()

	result := &models.EnrichResult{
		FilteredPosts: []models.RedditPost{},
		RejectedPosts: []models.RedditPost{},
		Warnings:      []string{},
		Threshold:     threshold,
		Stats:         models.EnrichStats{Input: len(posts)},
	}
	ids := make([]string, 0, len(posts))
	for i, post := range enriched {
		result.Warnings = append(result.Warnings, warnings[i]...)
		ids = append(ids, post.ID)
		if post.AIAnalysis != nil {
			result.Stats.Enriched++
		}
		if post.AIAnalysis != nil && post.AIAnalysis.RelevanceScore >= threshold {
			result.FilteredPosts = append(result.FilteredPosts, post)
			metrics.VOCPostsTotal.WithLabelValues("enrich", "accepted").Inc()
		} else {
			result.RejectedPosts = append(result.RejectedPosts, post)
			metrics.VOCPostsTotal.WithLabelValues("enrich", "rejected").Inc()
		}
	}

	if err := s.history.Mark(ctx, cfg.Name, ids); err != nil {
		logrus.WithField("segment_name", cfg.Name).Errorf("Failed to mark processed posts: %v", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("Failed to record processed posts: %v", err))
	}

	result.Count = len(result.FilteredPosts)
	result.Stats.FinalAccepted = len(result.FilteredPosts)
	result.Stats.FinalRejected = len(result.RejectedPosts)

	logrus.WithFields(logrus.Fields{
		"operation":    "reddit_filter",
		"segment_name": cfg.Name,
		"count":        result.Count,
		"threshold":    threshold,
	}).Infof("%d posts passed AI relevance threshold (%g)", result.Count, threshold)
	return result
}

func (s *Service) enrichPost(ctx context.Context, cfg *config.SegmentConfig, post models.RedditPost) (models.RedditPost, []string) {
	var warnings []string
	log := logrus.WithFields(logrus.Fields{"operation": "reddit_enrich", "post_id": post.ID})

	var comments []string
	if target := postURL(post); target != "" {
		payload, err := s.reddit.FetchComments(ctx, target)
		if err != nil {
			warning := fmt.Sprintf("Failed to fetch comments for post '%s': %v", post.ID, err)
			log.Warn(warning)
			warnings = append(warnings, warning)
		} else {
			comments = ExtractComments(payload, commentLimit)
		}
	}

	prompt, err := prompts.Render(prompts.RedditAnalysis, map[string]string{
		"SegmentName": cfg.Name,
		"Audience":    cfg.Audience,
		"Priorities":  priorityLines(cfg.Priorities),
		"Subreddit":   post.Subreddit,
		"Discussion":  BuildDiscussion(post, comments),
	})
	if err != nil {
		return post, append(warnings, err.Error())
	}

	raw, err := s.llm.GenerateJSON(ctx, providers.GenerateRequest{
		Model:           s.proModel,
		Prompt:          prompt,
		Temperature:     0.2,
		MaxOutputTokens: 1024,
		Schema:          redditAnalysisSchema,
	})
	if err == nil {
		var analysis models.RedditAnalysis
		analysis, err = validate.RedditAnalysis(raw).Unwrap()
		if err == nil {
			post.AIAnalysis = &analysis
			return post, warnings
		}
	}

	warning := fmt.Sprintf("Gemini Reddit analysis failed for post '%s': %v", post.ID, err)
	log.Warn(warning)
	return post, append(warnings, warning)
}

// FetchTrends looks up Google Trends data for the segment keywords
func (s *Service) FetchTrends(ctx context.Context, segmentName string) (*models.TrendsResult, error) {
	cfg, err := s.Segment(segmentName)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	result := s.fetchTrends(ctx, cfg)
	result.DurationMS = elapsedMS(start)
	return result, nil
}

func (s *Service) fetchTrends(ctx context.Context, cfg *config.SegmentConfig) *models.TrendsResult {
	result := &models.TrendsResult{Trends: []models.TrendEntry{}, Warnings: []string{}}

	keywords := cfg.TrendsQueryKeywords()
	if len(keywords) == 0 {
		result.Warnings = append(result.Warnings, "No Google Trends keywords configured for this segment.")
		return result
	}

	gt := cfg.GoogleTrends
	for _, keyword := range keywords {
		entry, err := s.trends.FetchTrend(ctx, keyword, gt.ComparisonKeyword, gt.TimeframeOrDefault(), gt.Geo)
		if err != nil {
			warning := fmt.Sprintf("Google Trends lookup failed for '%s': %v", keyword, err)
			logrus.WithFields(logrus.Fields{"operation": "trends_fetch", "keyword": keyword}).Warn(warning)
			result.Warnings = append(result.Warnings, warning)
			continue
		}
		result.Trends = append(result.Trends, *entry)
	}

	result.Count = len(result.Trends)
	return result
}

// GenerateQueries turns accepted posts and trend signals into research queries
func (s *Service) GenerateQueries(ctx context.Context, segmentName string, posts []models.RedditPost, trends []models.TrendEntry) (*models.QueriesResult, error) {
	cfg, err := s.Segment(segmentName)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	result := s.generateQueries(ctx, cfg, posts, trends)
	result.DurationMS = elapsedMS(start)
	return result, nil
}

func (s *Service) generateQueries(ctx context.Context, cfg *config.SegmentConfig, posts []models.RedditPost, trends []models.TrendEntry) *models.QueriesResult {
	result := &models.QueriesResult{Queries: []string{}, Warnings: []string{}}
	log := logrus.WithFields(logrus.Fields{"operation": "query_generation", "segment_name": cfg.Name})

	painPoints := PainPointLines(posts)
	trendLines := TrendLines(trends)
	if len(painPoints) == 0 && len(trendLines) == 0 {
		log.Info("Skipping curated query generation - no meaningful data available")
		return result
	}

	painSummary := "- No AI-analyzed Reddit posts were available."
	if len(painPoints) > 0 {
		painSummary = strings.Join(painPoints, "\n")
	}
	trendSummary := "- Google Trends data unavailable."
	if len(trendLines) > 0 {
		trendSummary = strings.Join(trendLines, "\n")
	}

	prompt, err := prompts.Render(prompts.CuratedQueries, map[string]string{
		"SegmentName": cfg.Name,
		"Audience":    cfg.Audience,
		"PainPoints":  painSummary,
		"Trends":      trendSummary,
	})
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
		return result
	}

	raw, err := s.llm.GenerateJSON(ctx, providers.GenerateRequest{Prompt: prompt, Temperature: 0.3, MaxOutputTokens: 1024})
	if err != nil {
		warning := fmt.Sprintf("Gemini curated query generation failed: %v", err)
		log.Warn(warning)
		result.Warnings = append(result.Warnings, warning)
		return result
	}

	queries, ok := decodeQueries(raw)
	if !ok {
		warning := "Gemini returned unexpected structure for curated queries generation."
		log.Warn(warning)
		result.Warnings = append(result.Warnings, warning)
		return result
	}

	result.Queries = queries
	result.Count = len(queries)
	log.WithField("count", result.Count).Info("Curated queries generated")
	return result
}

// RunDiscovery runs every stage for a segment in one call. overrides replace the
// subreddits and trends settings of the loaded configuration.
func (s *Service) RunDiscovery(ctx context.Context, segmentName string, overrides config.SegmentConfig) (*models.DiscoveryReport, error) {
	cfg, err := s.Segment(segmentName)
	if err != nil {
		return nil, err
	}
	merged := cfg.Merge(overrides)
	cfg = &merged

	start := time.Now()
	report := &models.DiscoveryReport{
		Segment:        cfg.Name,
		GeneratedAt:    s.now().UTC(),
		RedditPosts:    []models.RedditPost{},
		RejectedPosts:  []models.RedditPost{},
		GoogleTrends:   []models.TrendEntry{},
		CuratedQueries: []string{},
		Warnings:       []string{},
		Logs:           []models.LogEntry{},
	}
	logf := func(level, message string) {
		entry := logrus.WithFields(logrus.Fields{"operation": "voc_discovery", "segment_name": cfg.Name})
		if level == "error" {
			entry.Error(message)
		} else {
			entry.Info(message)
		}
		report.Logs = append(report.Logs, models.LogEntry{Timestamp: s.now().UTC(), Level: level, Message: message})
	}

	logf("info", fmt.Sprintf("Initializing VOC Discovery for segment: %s", cfg.Name))

	fetched, err := s.fetchReddit(ctx, cfg, logf)
	if err != nil {
		return nil, err
	}
	report.Warnings = append(report.Warnings, fetched.Warnings...)
	report.Stats.Fetched = fetched.RawCount
	logf("info", fmt.Sprintf("Collected %d candidate Reddit posts", fetched.Count))

	scored := s.preScore(ctx, cfg, fetched.RawPosts)
	report.Warnings = append(report.Warnings, scored.Warnings...)
	report.Stats.Prescored = scored.Stats.Prescored
	report.Stats.Promising = scored.Stats.Promising
	logf("info", fmt.Sprintf("%d posts passed pre-score threshold (%g)", scored.Stats.Promising, scored.Threshold))

	enriched := s.enrich(ctx, cfg, scored.PromisingPosts)
	report.Warnings = append(report.Warnings, enriched.Warnings...)
	report.RedditPosts = enriched.FilteredPosts
	report.RejectedPosts = append(append(report.RejectedPosts, enriched.RejectedPosts...), scored.RejectedPosts...)
	logf("info", fmt.Sprintf("%d posts passed AI relevance threshold (%g)", enriched.Count, enriched.Threshold))

	trends := s.fetchTrends(ctx, cfg)
	report.Warnings = append(report.Warnings, trends.Warnings...)
	report.GoogleTrends = trends.Trends
	logf("info", fmt.Sprintf("Collected Google Trends data for %d keywords", trends.Count))

	queries := s.generateQueries(ctx, cfg, enriched.FilteredPosts, trends.Trends)
	report.Warnings = append(report.Warnings, queries.Warnings...)
	report.CuratedQueries = queries.Queries
	logf("info", fmt.Sprintf("Generated %d curated queries", queries.Count))

	report.Stats.Accepted = len(report.RedditPosts)
	report.Stats.Rejected = len(report.RejectedPosts)
	report.Stats.Trends = len(report.GoogleTrends)
	report.Stats.Queries = len(report.CuratedQueries)

	if intel, err := s.segments.LoadIntelligence(); err == nil {
		if meta, ok := intel.Segment(cfg.Name); ok {
			report.SegmentMetadata = &meta
		}
	}

	report.DurationMS = elapsedMS(start)
	return report, nil
}

// PainPointLines summarizes the analyzed posts for the query prompt
func PainPointLines(posts []models.RedditPost) []string {
	lines := make([]string, 0, len(posts))
	for _, post := range posts {
		if post.AIAnalysis == nil {
			continue
		}
		pain := post.AIAnalysis.IdentifiedPainPoint
		if pain == "" {
			pain = "(pain point unavailable)"
		}
		lines = append(lines, fmt.Sprintf("- %s (relevance %g) - r/%s | %s", pain, post.AIAnalysis.RelevanceScore, post.Subreddit, post.Title))
	}
	return lines
}

// TrendLines summarizes rising searches per keyword for the query prompt
func TrendLines(trends []models.TrendEntry) []string {
	lines := make([]string, 0, len(trends))
	for _, trend := range trends {
		if trend.Query == "" {
			continue
		}
		var rising []string
		for _, r := range trend.RelatedQueries.Rising {
			if len(rising) == 3 {
				break
			}
			if r.Query != "" {
				rising = append(rising, r.Query)
			}
		}
		if len(rising) > 0 {
			lines = append(lines, fmt.Sprintf("- %s: rising searches include %s", trend.Query, strings.Join(rising, ", ")))
		} else {
			lines = append(lines, fmt.Sprintf("- %s: steady interest over time", trend.Query))
		}
	}
	return lines
}

func decodeQueries(raw json.RawMessage) ([]string, bool) {
	var items []interface{}
	if err := json.Unmarshal(raw, &items); err != nil {
		var wrapped struct {
			Queries []interface{} `json:"queries"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil || wrapped.Queries == nil {
			return nil, false
		}
		items = wrapped.Queries
	}

	queries := make([]string, 0, len(items))
	for _, item := range items {
		q := strings.TrimSpace(fmt.Sprint(item))
		if item != nil && q != "" {
			queries = append(queries, q)
		}
	}
	return queries, true
}

func priorityLines(priorities []string) string {
	if len(priorities) == 0 {
		return "(no explicit priorities provided)"
	}
	lines := make([]string, len(priorities))
	for i, p := range priorities {
		lines[i] = "• " + p
	}
	return strings.Join(lines, "\n")
}

func postURL(post models.RedditPost) string {
	if post.URL != "" {
		return post.URL
	}
	if post.Permalink != "" {
		return "https://www.reddit.com" + post.Permalink
	}
	return ""
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
