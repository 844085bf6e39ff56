package research

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/outstaffer/content-finder/internal/models"
	"github.com/outstaffer/content-finder/internal/prompts"
	"github.com/outstaffer/content-finder/internal/providers"
	"github.com/outstaffer/content-finder/internal/storage"
	"github.com/outstaffer/content-finder/internal/validate"
)

const (
	// DefaultSearchLimit is used when a search names no limit
	DefaultSearchLimit = 15
	// DefaultPipelineURLs is the number of URLs a pipeline run processes
	DefaultPipelineURLs = 3

	synthesisContentLimit = 2000
	maxSanitizedLength    = 80
)

var articleSchema = &providers.Schema{
	Type: providers.TypeObject,
	Properties: map[string]*providers.Schema{
		"overview":               {Type: providers.TypeString, Description: "Executive summary of the content"},
		"key_insights":           {Type: providers.TypeArray, Items: &providers.Schema{Type: providers.TypeString}},
		"outstaffer_opportunity": {Type: providers.TypeString, Description: "How Outstaffer can use this content"},
	},
	Required: []string{"overview", "key_insights", "outstaffer_opportunity"},
}

var synthesisSchema = &providers.Schema{
	Type: providers.TypeObject,
	Properties: map[string]*providers.Schema{
		"overview":               {Type: providers.TypeString},
		"key_insights":           {Type: providers.TypeArray, Items: &providers.Schema{Type: providers.TypeString}},
		"outstaffer_opportunity": {Type: providers.TypeString},
		"cross_article_themes":   {Type: providers.TypeArray, Items: &providers.Schema{Type: providers.TypeString}},
	},
	Required: []string{"overview", "key_insights", "outstaffer_opportunity", "cross_article_themes"},
}

// ServiceInterface defines the research operations
type ServiceInterface interface {
	Search(ctx context.Context, query string, limit int) (*models.SearchResponse, error)
	Scrape(ctx context.Context, urls []string, formats []string) (*models.ScrapeResponse, error)
	Analyze(ctx context.Context, content, customPrompt string) (*models.ArticleAnalysis, error)
	Synthesize(ctx context.Context, query string, contents []models.SynthesisContent) (*models.MultiArticleAnalysis, error)
	RunPipeline(ctx context.Context, query string, maxURLs int) (*models.PipelineResult, error)
}

// Service runs web research: search, scrape and AI analysis
type Service struct {
	searcher providers.WebSearcher
	scraper  providers.Scraper
	llm      providers.LLM
	storage  storage.StorageInterface

	now func() time.Time
}

var _ ServiceInterface = (*Service)(nil)

// NewService creates a research service. store may be nil, in which case pipeline results are not persisted.
func NewService(searcher providers.WebSearcher, scraper providers.Scraper, llm providers.LLM, store storage.StorageInterface) *Service {
	return &Service{
		searcher: searcher,
		scraper:  scraper,
		llm:      llm,
		storage:  store,
		now:      time.Now,
	}
}

// Search runs a web search
func (s *Service) Search(ctx context.Context, query string, limit int) (*models.SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.BadRequest("Query is required")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	logrus.WithFields(logrus.Fields{"operation": "search", "query": query, "limit": limit}).Info("Searching the web")
	resp, err := s.searcher.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return resp, nil
}

// Scrape scrapes each URL and counts the outcomes
func (s *Service) Scrape(ctx context.Context, urls []string, formats []string) (*models.ScrapeResponse, error) {
	if len(urls) == 0 {
		return nil, models.BadRequest("URLs are required")
	}

	results := s.scraper.ScrapeURLs(ctx, urls, formats)
	resp := &models.ScrapeResponse{URLsRequested: len(urls), Results: results}
	for _, r := range results {
		if r.Success {
			resp.Successful++
		} else {
			resp.Failed++
		}
	}

	logrus.WithFields(logrus.Fields{
		"operation":  "scrape",
		"count":      len(urls),
		"successful": resp.Successful,
	}).Infof("Scraped %d/%d URLs", resp.Successful, len(urls))

	return resp, nil
}

// Analyze produces a structured analysis of one article
func (s *Service) Analyze(ctx context.Context, content, customPrompt string) (*models.ArticleAnalysis, error) {
	if strings.TrimSpace(content) == "" {
		return nil, models.BadRequest("Content is required")
	}
	if customPrompt != "" {
		return nil, models.BadRequest("Custom prompts are not supported for structured article analysis")
	}

	prompt, err := prompts.Render(prompts.Analyze, map[string]string{"Content": content})
	if err != nil {
		return nil, err
	}

	raw, err := s.llm.GenerateJSON(ctx, providers.GenerateRequest{Prompt: prompt, Temperature: 0.2, Schema: articleSchema})
	if err != nil {
		return nil, fmt.Errorf("article analysis failed: %w", err)
	}

	analysis, err := validate.ArticleAnalysis(raw).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("article analysis failed validation: %w", err)
	}
	return &analysis, nil
}

// Synthesize combines several articles into one analysis of query
func (s *Service) Synthesize(ctx context.Context, query string, contents []models.SynthesisContent) (*models.MultiArticleAnalysis, error) {
	if len(contents) == 0 {
		return nil, models.BadRequest("A list of content is required")
	}
	if strings.TrimSpace(query) == "" {
		return nil, models.BadRequest("A query or topic is required")
	}

	sources := make([]models.SynthesisContent, len(contents))
	for i, c := range contents {
		sources[i] = models.SynthesisContent{
			URL:      orDefault(c.URL, "N/A"),
			Title:    orDefault(c.Title, "N/A"),
			Markdown: truncateRunes(c.Markdown, synthesisContentLimit),
		}
	}

	prompt, err := prompts.Render(prompts.Synthesize, map[string]interface{}{"Query": query, "Sources": sources})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	raw, err := s.llm.GenerateJSON(ctx, providers.GenerateRequest{Prompt: prompt, Temperature: 0.3, Schema: synthesisSchema})
	if err != nil {
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}

	analysis, err := validate.MultiArticleAnalysis(raw).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("synthesis failed validation: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"operation":   "synthesize",
		"query":       query,
		"count":       len(contents),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Synthesis completed")

	return &analysis, nil
}

// RunPipeline searches, scrapes the top maxURLs results and analyzes each page
func (s *Service) RunPipeline(ctx context.Context, query string, maxURLs int) (*models.PipelineResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.BadRequest("Query is required")
	}
	if maxURLs <= 0 {
		maxURLs = DefaultPipelineURLs
	}

	timestamp := s.now().Format(models.TimestampLayout)
	result := &models.PipelineResult{Query: query, Timestamp: timestamp, MaxURLs: maxURLs, URLs: []string{}}
	log := logrus.WithFields(logrus.Fields{"operation": "pipeline", "query": query})

	search, err := s.searcher.Search(ctx, query, maxURLs*2)
	if err != nil {
		return nil, fmt.Errorf("pipeline search failed: %w", err)
	}
	result.Steps.Search = search

	for _, r := range search.Results {
		if len(result.URLs) == maxURLs {
			break
		}
		if r.URL != "" {
			result.URLs = append(result.URLs, r.URL)
		}
	}
	if len(result.URLs) == 0 {
		result.Error = "No URLs found in search results"
		s.storePipeline(ctx, result)
		return result, nil
	}

	log.Infof("Scraping %d URLs", len(result.URLs))
	result.Steps.Scrape = s.scraper.ScrapeURLs(ctx, result.URLs, nil)

	for _, scraped := range result.Steps.Scrape {
		if !scraped.Success || scraped.Markdown == "" {
			continue
		}
		s.storeMarkdown(ctx, timestamp, scraped)

		entry := models.SourceAnalysis{SourceURL: scraped.URL}
		analysis, err := s.Analyze(ctx, scraped.Markdown, "")
		if err != nil {
			log.WithField("url", scraped.URL).Warnf("Analysis failed: %v", err)
			entry.Error = err.Error()
		} else {
			entry.Analysis = analysis
		}
		result.Steps.Analyze = append(result.Steps.Analyze, entry)
	}

	s.storePipeline(ctx, result)
	log.Infof("Pipeline completed with %d analyses", len(result.Steps.Analyze))
	return result, nil
}

func (s *Service) storePipeline(ctx context.Context, result *models.PipelineResult) {
	if s.storage == nil {
		return
	}
	key := fmt.Sprintf("pipeline/pipeline_results_%s.json", result.Timestamp)
	if err := storage.StoreJSON(ctx, s.storage, key, result); err != nil {
		logrus.WithField("operation", "pipeline").Errorf("Failed to store pipeline results: %v", err)
	}
}

func (s *Service) storeMarkdown(ctx context.Context, timestamp string, scraped models.ScrapeResult) {
	if s.storage == nil {
		return
	}
	key := fmt.Sprintf("pipeline/scraped/%s_%s.md", timestamp, SanitizeURL(scraped.URL))
	if err := s.storage.Store(ctx, key, []byte(scraped.Markdown)); err != nil {
		logrus.WithField("operation", "pipeline").Errorf("Failed to store scraped markdown for %s: %v", scraped.URL, err)
	}
}

var (
	schemePattern     = regexp.MustCompile(`^https?://`)
	separatorPattern  = regexp.MustCompile(`[/?&=#:]`)
	underscoresRepeat = regexp.MustCompile(`_{2,}`)
)

// SanitizeURL turns a URL into a file-name-safe fragment
func SanitizeURL(url string) string {
	name := schemePattern.ReplaceAllString(url, "")
	name = separatorPattern.ReplaceAllString(name, "_")
	name = underscoresRepeat.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	return truncateRunes(name, maxSanitizedLength)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
