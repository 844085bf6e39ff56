// Package workflow holds the client-side state of the research, VOC and session flows
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/outstaffer/content-finder/internal/client"
	"github.com/outstaffer/content-finder/internal/models"
	"github.com/outstaffer/content-finder/internal/pipeline"
	"github.com/outstaffer/content-finder/internal/validate"
)

// Processing status labels of a search result
const (
	LabelProcessed         = "Processed ✓/✓"
	LabelAnalysisFailed    = "Processed ✓/✗"
	LabelFailed            = "Failed"
	LabelProcessing        = "Processing…"
	defaultSearchLimit     = 10
	errNoProcessedArticles = "Select at least one processed article to synthesize"
)

// ResearchBackend is the part of the backend API used by the research view
type ResearchBackend interface {
	Search(ctx context.Context, query string, limit int) (*models.SearchResponse, error)
	Scrape(ctx context.Context, urls []string) (*models.ScrapeResponse, error)
	Analyze(ctx context.Context, content string) (validate.Result[models.ArticleAnalysis], error)
	Synthesize(ctx context.Context, query string, contents []models.SynthesisContent) (validate.Result[models.MultiArticleAnalysis], error)
}

var _ ResearchBackend = (*client.Client)(nil)

// Button is the state of an action control
type Button struct {
	Enabled bool
	Label   string
}

// Synthesis is a multi-article analysis with its social post draft
type Synthesis struct {
	Analysis models.MultiArticleAnalysis
	Draft    SocialPost
}

// ResearchView holds the state of one search, its selection and processed results
type ResearchView struct {
	backend ResearchBackend
	batch   *pipeline.BatchProcessor

	mu              sync.Mutex
	query           string
	results         []models.SearchResult
	selected        map[string]bool
	err             string
	synthesis       *Synthesis
	validationError string
}

// NewResearchView creates an empty view
func NewResearchView(backend ResearchBackend) *ResearchView {
	return &ResearchView{
		backend:  backend,
		batch:    pipeline.NewBatchProcessor(pipeline.DefaultBatchSize),
		selected: make(map[string]bool),
	}
}

// Search replaces the results with a new search. Processed results and selection are cleared.
func (v *ResearchView) Search(ctx context.Context, query string, limit int) error {
	if strings.TrimSpace(query) == "" {
		return errors.New("Query is required")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	v.batch.Reset()
	v.mu.Lock()
	v.query = query
	v.results = nil
	v.selected = make(map[string]bool)
	v.err = ""
	v.synthesis = nil
	v.validationError = ""
	v.mu.Unlock()

	resp, err := v.backend.Search(ctx, query, limit)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.err = err.Error()
		return err
	}
	v.results = append([]models.SearchResult(nil), resp.Results...)
	return nil
}

// Query returns the current search query
func (v *ResearchView) Query() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query
}

// Results returns the current search results
func (v *ResearchView) Results() []models.SearchResult {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.SearchResult(nil), v.results...)
}

// FoundCount is the number of results of the current search
func (v *ResearchView) FoundCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.results)
}

// Err returns the last request error message
func (v *ResearchView) Err() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// SetSelected selects or deselects a result URL
func (v *ResearchView) SetSelected(url string, selected bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if selected {
		v.selected[url] = true
		return
	}
	delete(v.selected, url)
}

// Toggle flips the selection of a result URL
func (v *ResearchView) Toggle(url string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.selected[url] {
		delete(v.selected, url)
		return
	}
	v.selected[url] = true
}

// Selected returns the selected URLs in result order
func (v *ResearchView) Selected() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selectedLocked()
}

func (v *ResearchView) selectedLocked() []string {
	var out []string
	for _, r := range v.results {
		if v.selected[r.URL] {
			out = append(out, r.URL)
		}
	}
	return out
}

// SynthesizeButton is enabled when at least one result is selected
func (v *ResearchView) SynthesizeButton() Button {
	k := len(v.Selected())
	return Button{Enabled: k >= 1, Label: fmt.Sprintf("Synthesize %d Selected", k)}
}

// ProcessButton is enabled when at least one result is selected
func (v *ResearchView) ProcessButton() Button {
	k := len(v.Selected())
	return Button{Enabled: k >= 1, Label: fmt.Sprintf("Process Selected (%d)", k)}
}

// ProcessSelected scrapes and analyzes every selected URL in batches
func (v *ResearchView) ProcessSelected(ctx context.Context) []string {
	return v.Process(ctx, v.Selected())
}

// Process scrapes and analyzes urls in batches
func (v *ResearchView) Process(ctx context.Context, urls []string) []string {
	return v.batch.Process(ctx, urls, v.processURL)
}

func (v *ResearchView) processURL(ctx context.Context, url string) (models.ProcessedResult, error) {
	logger := logrus.WithFields(logrus.Fields{"operation": "process_url", "url": url})

	resp, err := v.backend.Scrape(ctx, []string{url})
	if err != nil {
		logger.WithError(err).Warn("Scrape request failed")
		return models.ProcessedResult{}, err
	}
	if len(resp.Results) == 0 {
		return models.ProcessedResult{}, errors.New("scrape returned no result")
	}
	scrape := resp.Results[0]
	if !scrape.Success {
		msg := scrape.Error
		if msg == "" {
			msg = "scrape failed"
		}
		return models.ProcessedResult{}, errors.New(msg)
	}

	result := models.ProcessedResult{Scrape: &scrape}
	analysis, err := v.backend.Analyze(ctx, scrape.Markdown)
	switch {
	case err != nil:
		result.AnalysisError = err.Error()
	case !analysis.IsOk():
		result.AnalysisError = "validation error: " + analysis.Err.Error()
	default:
		value := analysis.Value
		result.Analysis = &value
	}
	if result.AnalysisError != "" {
		logger.WithField("error", result.AnalysisError).Warn("Analysis failed")
	}
	return result, nil
}

// Processed returns the processed result of a URL
func (v *ResearchView) Processed(url string) (models.ProcessedResult, bool) {
	return v.batch.Result(url)
}

// ProcessedResults returns every processed result keyed by URL
func (v *ResearchView) ProcessedResults() map[string]models.ProcessedResult {
	return v.batch.Results()
}

// StatusLabel describes the processing state of a URL. Unprocessed URLs have no label.
func (v *ResearchView) StatusLabel(url string) string {
	if v.batch.InFlight(url) {
		return LabelProcessing
	}
	result, ok := v.batch.Result(url)
	if !ok {
		return ""
	}
	return statusLabel(result)
}

func statusLabel(r models.ProcessedResult) string {
	switch {
	case r.Error != "" || r.Scrape == nil || !r.Scrape.Success:
		return LabelFailed
	case r.Analysis != nil:
		return LabelProcessed
	default:
		return LabelAnalysisFailed
	}
}

// Synthesize combines the selected processed articles into one analysis and a social post draft.
// A response of the wrong shape is kept as a validation error.
func (v *ResearchView) Synthesize(ctx context.Context) (*Synthesis, error) {
	v.mu.Lock()
	query := v.query
	urls := v.selectedLocked()
	v.mu.Unlock()

	var contents []models.SynthesisContent
	for _, u := range urls {
		r, ok := v.batch.Result(u)
		if !ok || r.Scrape == nil || !r.Scrape.Success {
			continue
		}
		contents = append(contents, models.SynthesisContent{URL: u, Title: r.Scrape.Title, Markdown: r.Scrape.Markdown})
	}
	if len(contents) == 0 {
		return nil, errors.New(errNoProcessedArticles)
	}

	result, err := v.backend.Synthesize(ctx, query, contents)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.synthesis = nil
	v.validationError = ""
	if err != nil {
		v.err = err.Error()
		return nil, err
	}
	analysis, err := result.Unwrap()
	if err != nil {
		v.validationError = err.Error()
		return nil, err
	}

	v.synthesis = &Synthesis{Analysis: analysis, Draft: DraftSocialPost(analysis)}
	return v.synthesis, nil
}

// ValidationError is the message of the last invalid synthesis response
func (v *ResearchView) ValidationError() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.validationError
}
