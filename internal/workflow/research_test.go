package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/outstaffer/content-finder/internal/models"
	"github.com/outstaffer/content-finder/internal/validate"
)

type MockResearchBackend struct {
	mock.Mock
}

func (m *MockResearchBackend) Search(ctx context.Context, query string, limit int) (*models.SearchResponse, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SearchResponse), args.Error(1)
}

func (m *MockResearchBackend) Scrape(ctx context.Context, urls []string) (*models.ScrapeResponse, error) {
	args := m.Called(ctx, urls)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScrapeResponse), args.Error(1)
}

func (m *MockResearchBackend) Analyze(ctx context.Context, content string) (validate.Result[models.ArticleAnalysis], error) {
	args := m.Called(ctx, content)
	return args.Get(0).(validate.Result[models.ArticleAnalysis]), args.Error(1)
}

func (m *MockResearchBackend) Synthesize(ctx context.Context, query string, contents []models.SynthesisContent) (validate.Result[models.MultiArticleAnalysis], error) {
	args := m.Called(ctx, query, contents)
	return args.Get(0).(validate.Result[models.MultiArticleAnalysis]), args.Error(1)
}

func scraped(url, markdown string) *models.ScrapeResponse {
	return &models.ScrapeResponse{
		URLsRequested: 1,
		Results:       []models.ScrapeResult{{URL: url, Title: "T " + url, Markdown: markdown, Success: true}},
		Successful:    1,
	}
}

func TestResearchView_ProcessedScenario(t *testing.T) {
	backend := &MockResearchBackend{}
	view := NewResearchView(backend)
	ctx := context.Background()

	backend.On("Search", mock.Anything, "foo", 10).Return(&models.SearchResponse{
		Query:   "foo",
		Results: []models.SearchResult{{URL: "https://x.com/a"}},
	}, nil)
	backend.On("Scrape", mock.Anything, []string{"https://x.com/a"}).Return(scraped("https://x.com/a", "# A"), nil)
	backend.On("Analyze", mock.Anything, "# A").Return(validate.Ok(models.ArticleAnalysis{
		Overview:              "Hiring abroad is rising.",
		KeyInsights:           []string{"a", "b"},
		OutstafferOpportunity: "EOR",
	}), nil)

	require.NoError(t, view.Search(ctx, "foo", 0))
	assert.Equal(t, 1, view.FoundCount())
	assert.Len(t, view.Results(), 1)
	assert.Equal(t, "", view.StatusLabel("https://x.com/a"))

	view.SetSelected("https://x.com/a", true)
	submitted := view.ProcessSelected(ctx)
	assert.Equal(t, []string{"https://x.com/a"}, submitted)

	assert.Equal(t, LabelProcessed, view.StatusLabel("https://x.com/a"))
	result, ok := view.Processed("https://x.com/a")
	require.True(t, ok)
	assert.Equal(t, "Hiring abroad is rising.", result.Analysis.Overview)
	assert.Len(t, view.ProcessedResults(), 1)
	backend.AssertExpectations(t)
}

func TestResearchView_FoundCountMatchesResults(t *testing.T) {
	for _, n := range []int{0, 1, 4} {
		backend := &MockResearchBackend{}
		results := make([]models.SearchResult, n)
		for i := range results {
			results[i] = models.SearchResult{URL: "https://x.com/" + string(rune('a'+i))}
		}
		backend.On("Search", mock.Anything, "q", 5).Return(&models.SearchResponse{Results: results}, nil)

		view := NewResearchView(backend)
		require.NoError(t, view.Search(context.Background(), "q", 5))
		assert.Equal(t, n, view.FoundCount())
		assert.Len(t, view.Results(), n)
	}
}

func TestResearchView_SearchErrors(t *testing.T) {
	backend := &MockResearchBackend{}
	view := NewResearchView(backend)

	assert.EqualError(t, view.Search(context.Background(), "  ", 5), "Query is required")

	backend.On("Search", mock.Anything, "q", 5).Return(nil, errors.New("Search failed: upstream"))
	require.Error(t, view.Search(context.Background(), "q", 5))
	assert.Equal(t, "Search failed: upstream", view.Err())
	assert.Zero(t, view.FoundCount())
}

func TestResearchView_Buttons(t *testing.T) {
	backend := &MockResearchBackend{}
	backend.On("Search", mock.Anything, "q", 10).Return(&models.SearchResponse{Results: []models.SearchResult{
		{URL: "https://a"}, {URL: "https://b"}, {URL: "https://c"},
	}}, nil)
	view := NewResearchView(backend)
	require.NoError(t, view.Search(context.Background(), "q", 10))

	tests := []struct {
		name    string
		toggle  []string
		enabled bool
		synth   string
		process string
	}{
		{name: "none", enabled: false, synth: "Synthesize 0 Selected", process: "Process Selected (0)"},
		{name: "one", toggle: []string{"https://b"}, enabled: true, synth: "Synthesize 1 Selected", process: "Process Selected (1)"},
		{name: "three", toggle: []string{"https://a", "https://c"}, enabled: true, synth: "Synthesize 3 Selected", process: "Process Selected (3)"},
		{name: "back to two", toggle: []string{"https://a"}, enabled: true, synth: "Synthesize 2 Selected", process: "Process Selected (2)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, u := range tt.toggle {
				view.Toggle(u)
			}
			assert.Equal(t, Button{Enabled: tt.enabled, Label: tt.synth}, view.SynthesizeButton())
			assert.Equal(t, Button{Enabled: tt.enabled, Label: tt.process}, view.ProcessButton())
		})
	}
	assert.Equal(t, []string{"https://b", "https://c"}, view.Selected())
}

func TestResearchView_PartialFailures(t *testing.T) {
	backend := &MockResearchBackend{}
	view := NewResearchView(backend)
	ctx := context.Background()

	backend.On("Search", mock.Anything, "q", 10).Return(&models.SearchResponse{Results: []models.SearchResult{
		{URL: "https://ok"}, {URL: "https://blocked"}, {URL: "https://bad-shape"}, {URL: "https://down"},
	}}, nil)
	backend.On("Scrape", mock.Anything, []string{"https://ok"}).Return(scraped("https://ok", "ok"), nil)
	backend.On("Scrape", mock.Anything, []string{"https://bad-shape"}).Return(scraped("https://bad-shape", "shape"), nil)
	backend.On("Scrape", mock.Anything, []string{"https://blocked"}).Return(&models.ScrapeResponse{
		Results: []models.ScrapeResult{{URL: "https://blocked", Error: "403 Forbidden"}},
		Failed:  1,
	}, nil)
	backend.On("Scrape", mock.Anything, []string{"https://down"}).Return(nil, errors.New("connection refused"))
	backend.On("Analyze", mock.Anything, "ok").Return(validate.Ok(models.ArticleAnalysis{Overview: "o", KeyInsights: []string{}}), nil)
	backend.On("Analyze", mock.Anything, "shape").
		Return(validate.ArticleAnalysis([]byte(`{"overview":"o","outstaffer_opportunity":"x"}`)), nil)

	require.NoError(t, view.Search(ctx, "q", 0))
	view.Process(ctx, []string{"https://ok", "https://blocked", "https://bad-shape", "https://down"})

	assert.Equal(t, LabelProcessed, view.StatusLabel("https://ok"))
	assert.Equal(t, LabelFailed, view.StatusLabel("https://blocked"))
	assert.Equal(t, LabelFailed, view.StatusLabel("https://down"))
	assert.Equal(t, LabelAnalysisFailed, view.StatusLabel("https://bad-shape"))

	blocked, _ := view.Processed("https://blocked")
	assert.Equal(t, "403 Forbidden", blocked.Error)
	assert.False(t, blocked.ProcessedAt.IsZero())

	shape, _ := view.Processed("https://bad-shape")
	assert.Equal(t, "validation error: key_insights: missing", shape.AnalysisError)
}

func TestResearchView_NewSearchClearsProcessed(t *testing.T) {
	backend := &MockResearchBackend{}
	view := NewResearchView(backend)
	ctx := context.Background()

	backend.On("Search", mock.Anything, mock.Anything, 10).Return(&models.SearchResponse{Results: []models.SearchResult{{URL: "https://a"}}}, nil)
	backend.On("Scrape", mock.Anything, []string{"https://a"}).Return(scraped("https://a", "a"), nil)
	backend.On("Analyze", mock.Anything, "a").Return(validate.Ok(models.ArticleAnalysis{Overview: "o"}), nil)

	require.NoError(t, view.Search(ctx, "first", 0))
	view.SetSelected("https://a", true)
	view.ProcessSelected(ctx)
	require.Len(t, view.ProcessedResults(), 1)

	require.NoError(t, view.Search(ctx, "second", 0))
	assert.Empty(t, view.ProcessedResults())
	assert.Empty(t, view.Selected())
	assert.Equal(t, "second", view.Query())
}

func TestResearchView_Synthesize(t *testing.T) {
	backend := &MockResearchBackend{}
	view := NewResearchView(backend)
	ctx := context.Background()

	backend.On("Search", mock.Anything, "eor", 10).Return(&models.SearchResponse{Results: []models.SearchResult{
		{URL: "https://a"}, {URL: "https://b"},
	}}, nil)
	backend.On("Scrape", mock.Anything, []string{"https://a"}).Return(scraped("https://a", "a"), nil)
	backend.On("Analyze", mock.Anything, "a").Return(validate.Ok(models.ArticleAnalysis{Overview: "o"}), nil)

	require.NoError(t, view.Search(ctx, "eor", 0))
	view.SetSelected("https://a", true)

	_, err := view.Synthesize(ctx)
	assert.EqualError(t, err, errNoProcessedArticles)

	view.ProcessSelected(ctx)
	view.SetSelected("https://b", true)

	contents := []models.SynthesisContent{{URL: "https://a", Title: "T https://a", Markdown: "a"}}
	backend.On("Synthesize", mock.Anything, "eor", contents).Return(validate.Ok(models.MultiArticleAnalysis{
		Overview:           "Global hiring is now normal. Costs vary.",
		KeyInsights:        []string{"Remote roles doubled"},
		CrossArticleThemes: []string{"remote work"},
	}), nil).Once()

	synthesis, err := view.Synthesize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Global hiring is now normal.", synthesis.Draft.Angle)
	assert.Equal(t, []string{"#RemoteWork"}, synthesis.Draft.Hashtags)

	backend.On("Synthesize", mock.Anything, "eor", contents).
		Return(validate.MultiArticleAnalysis([]byte(`{"overview":"o","key_insights":"nope","outstaffer_opportunity":"x"}`)), nil).Once()

	_, err = view.Synthesize(ctx)
	require.Error(t, err)
	assert.Equal(t, "key_insights: expected array of strings", view.ValidationError())
}

func TestDraftSocialPost(t *testing.T) {
	tests := []struct {
		name     string
		analysis models.MultiArticleAnalysis
		want     SocialPost
		text     string
	}{
		{
			name: "full",
			analysis: models.MultiArticleAnalysis{
				Overview:           "SMBs struggle to hire. Most lack recruiters.",
				KeyInsights:        []string{"Costs up 20%", "  ", "Time to hire is 40 days"},
				CrossArticleThemes: []string{"talent shortage", "Talent Shortage", "AI-screening"},
			},
			want: SocialPost{
				Angle:    "SMBs struggle to hire.",
				Bullets:  []string{"Costs up 20%", "Time to hire is 40 days"},
				Hashtags: []string{"#TalentShortage", "#AIScreening"},
			},
			text: "SMBs struggle to hire.\n\n• Costs up 20%\n• Time to hire is 40 days\n\n#TalentShortage #AIScreening",
		},
		{
			name:     "single sentence without punctuation",
			analysis: models.MultiArticleAnalysis{Overview: "Version 2.0 ships today"},
			want:     SocialPost{Angle: "Version 2.0 ships today"},
			text:     "Version 2.0 ships today",
		},
		{
			name: "hashtags are capped",
			analysis: models.MultiArticleAnalysis{
				Overview:           "Why?",
				CrossArticleThemes: []string{"a", "b", "c", "d", "e", "f"},
			},
			want: SocialPost{Angle: "Why?", Hashtags: []string{"#A", "#B", "#C", "#D", "#E"}},
			text: "Why?\n\n#A #B #C #D #E",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DraftSocialPost(tt.analysis)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.text, got.Text())
		})
	}
}
