package models

import "time"

// TimestampLayout is the compact timestamp format used in responses and storage keys
const TimestampLayout = "20060102_150405"

// SearchResult represents a single web search hit
type SearchResult struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// SearchResponse is returned by the web search endpoint
type SearchResponse struct {
	Query     string         `json:"query"`
	Results   []SearchResult `json:"results"`
	Timestamp string         `json:"timestamp"`
}

// ScrapeResult is the outcome of scraping one URL
type ScrapeResult struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Markdown    string `json:"markdown,omitempty"`
	HTML        string `json:"html,omitempty"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	ScrapedAt   string `json:"scraped_at"`
}

// ScrapeResponse is returned by the scrape endpoint
type ScrapeResponse struct {
	URLsRequested int            `json:"urls_requested"`
	Results       []ScrapeResult `json:"results"`
	Successful    int            `json:"successful"`
	Failed        int            `json:"failed"`
}

// ArticleAnalysis is the structured analysis of one article
type ArticleAnalysis struct {
	Overview              string   `json:"overview"`
	KeyInsights           []string `json:"key_insights"`
	OutstafferOpportunity string   `json:"outstaffer_opportunity"`
}

// MultiArticleAnalysis is the structured synthesis of several articles
type MultiArticleAnalysis struct {
	Overview              string   `json:"overview"`
	KeyInsights           []string `json:"key_insights"`
	OutstafferOpportunity string   `json:"outstaffer_opportunity"`
	CrossArticleThemes    []string `json:"cross_article_themes"`
}

// SynthesisContent is one document submitted for synthesis
type SynthesisContent struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

// ProcessedResult holds the scrape and analysis outcome of a URL
type ProcessedResult struct {
	Scrape   *ScrapeResult    `json:"scrape,omitempty"`
	Analysis *ArticleAnalysis `json:"analysis,omitempty"`
	// AnalysisError is set when the scrape succeeded but the analysis did not
	AnalysisError string    `json:"analysis_error,omitempty"`
	Error         string    `json:"error,omitempty"`
	ProcessedAt   time.Time `json:"processed_at"`
}

// PipelineResult is the stored output of a search, scrape and analyze run
type PipelineResult struct {
	Query     string        `json:"query"`
	Timestamp string        `json:"timestamp"`
	MaxURLs   int           `json:"max_urls"`
	URLs      []string      `json:"urls"`
	Steps     PipelineSteps `json:"steps"`
	Error     string        `json:"error,omitempty"`
}

// PipelineSteps holds the per-step outputs of a pipeline run
type PipelineSteps struct {
	Search  *SearchResponse  `json:"search,omitempty"`
	Scrape  []ScrapeResult   `json:"scrape,omitempty"`
	Analyze []SourceAnalysis `json:"analyze,omitempty"`
}

// SourceAnalysis pairs an analysis with the URL it was produced from
type SourceAnalysis struct {
	SourceURL string           `json:"source_url"`
	Analysis  *ArticleAnalysis `json:"analysis,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// SolutionAngle is the service line a Reddit pain point maps to
type SolutionAngle string

const (
	AngleRecruitment SolutionAngle = "Recruitment"
	AngleEOR         SolutionAngle = "EOR"
	AngleAIScreening SolutionAngle = "AI Screening"
	AngleHRIS        SolutionAngle = "HRIS"
	AngleNone        SolutionAngle = "None"
)

// SolutionAngles lists every valid solution angle
var SolutionAngles = []SolutionAngle{AngleRecruitment, AngleEOR, AngleAIScreening, AngleHRIS, AngleNone}

// RedditPost represents a Reddit submission flowing through VOC discovery
type RedditPost struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	URL            string          `json:"url,omitempty"`
	Permalink      string          `json:"permalink,omitempty"`
	CreatedUTC     float64         `json:"created_utc,omitempty"`
	Score          int             `json:"score"`
	NumComments    int             `json:"num_comments"`
	Subreddit      string          `json:"subreddit"`
	ContentSnippet string          `json:"content_snippet"`
	Prescore       *Prescore       `json:"prescore,omitempty"`
	AIAnalysis     *RedditAnalysis `json:"ai_analysis,omitempty"`
	Selected       *bool           `json:"selected,omitempty"`
}

// Prescore is the cheap title and snippet relevance score of a post
type Prescore struct {
	RelevanceScore float64 `json:"relevance_score"`
	Priority       bool    `json:"priority"`
	QuickReason    string  `json:"quick_reason"`
}

// RedditAnalysis is the comment-aware analysis of a post
type RedditAnalysis struct {
	RelevanceScore          float64       `json:"relevance_score"`
	Reasoning               string        `json:"reasoning"`
	IdentifiedPainPoint     string        `json:"identified_pain_point"`
	OutstafferSolutionAngle SolutionAngle `json:"outstaffer_solution_angle"`
}

// TrendEntry is the Google Trends data for one keyword
type TrendEntry struct {
	Query             string          `json:"query"`
	ComparisonKeyword string          `json:"comparison_keyword,omitempty"`
	InterestOverTime  []InterestPoint `json:"interest_over_time"`
	RelatedQueries    RelatedSet      `json:"related_queries"`
	RelatedTopics     RelatedSet      `json:"related_topics"`
}

// InterestPoint is one sample of a trends timeline
type InterestPoint struct {
	Date               string `json:"date"`
	PrimaryInterest    int    `json:"primary_interest"`
	ComparisonInterest *int   `json:"comparison_interest,omitempty"`
}

// RelatedSet splits related entries into top and rising
type RelatedSet struct {
	Top    []RelatedEntry `json:"top"`
	Rising []RelatedEntry `json:"rising"`
}

// RelatedEntry is a related query or topic
type RelatedEntry struct {
	Query string `json:"query"`
	Type  string `json:"type,omitempty"` // topic type, empty for queries
	Value string `json:"value,omitempty"`
}

// SessionStatus is the lifecycle state of an intelligence session
type SessionStatus string

const (
	StatusGenerating     SessionStatus = "generating"
	StatusQueriesReady   SessionStatus = "queries_ready"
	StatusSearching      SessionStatus = "searching"
	StatusSearchComplete SessionStatus = "search_complete"
	StatusAnalyzing      SessionStatus = "analyzing"
	StatusComplete       SessionStatus = "complete"
)

// Session is a server-side intelligence research run
type Session struct {
	SessionID     string         `json:"sessionId"`
	SegmentName   string         `json:"segmentName"`
	Mission       string         `json:"mission"`
	Status        SessionStatus  `json:"status"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	Queries       []Query        `json:"queries"`
	SearchResults []QueryResults `json:"searchResults"`
	Themes        []ContentTheme `json:"themes"`
	Stats         SessionStats   `json:"stats"`
}

// Query is a planned research query
type Query struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Selected bool   `json:"selected"`
}

// QueryResults groups the sources found for one query
type QueryResults struct {
	Query   string   `json:"query"`
	Sources []Source `json:"sources"`
}

// Source is a research source found by a session search
type Source struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Domain   string `json:"domain"`
	Snippet  string `json:"snippet"`
	Selected bool   `json:"selected"`
}

// ContentTheme is a synthesized theme for content planning
type ContentTheme struct {
	ThemeTitle    string         `json:"theme_title"`
	Summary       string         `json:"summary"`
	TalkingPoints []TalkingPoint `json:"talking_points"`
	CampaignIdeas []CampaignIdea `json:"campaign_ideas"`
}

// TalkingPoint is an insight derived from the research corpus
type TalkingPoint struct {
	Point          string   `json:"point"`
	SupportingURLs []string `json:"supporting_urls"`
}

// CampaignIdea is a content angle with its recommended channels
type CampaignIdea struct {
	Idea           string   `json:"idea"`
	TargetChannels []string `json:"target_channels"`
}

// SessionStats counts the work done by a session
type SessionStats struct {
	QueriesGenerated int `json:"queries_generated"`
	SourcesFound     int `json:"sources_found"`
	SourcesScraped   int `json:"sources_scraped"`
	ThemesGenerated  int `json:"themes_generated"`
}

// SelectedQueries returns the text of every selected query
func (s *Session) SelectedQueries() []string {
	var out []string
	for _, q := range s.Queries {
		if q.Selected {
			out = append(out, q.Text)
		}
	}
	return out
}

// SelectedSources returns every selected source across all query results
func (s *Session) SelectedSources() []Source {
	var out []Source
	for _, r := range s.SearchResults {
		for _, src := range r.Sources {
			if src.Selected {
				out = append(out, src)
			}
		}
	}
	return out
}

// DiscoveryReport is the result of one full VOC discovery run for a segment
type DiscoveryReport struct {
	Segment         string         `json:"segment"`
	GeneratedAt     time.Time      `json:"generated_at"`
	RedditPosts     []RedditPost   `json:"reddit_posts"`
	RejectedPosts   []RedditPost   `json:"reddit_posts_low_score"`
	GoogleTrends    []TrendEntry   `json:"google_trends"`
	CuratedQueries  []string       `json:"curated_queries"`
	Warnings        []string       `json:"warnings"`
	Logs            []LogEntry     `json:"logs"`
	SegmentMetadata *SegmentMeta   `json:"segment_metadata,omitempty"`
	Stats           DiscoveryStats `json:"stats"`
	DurationMS      float64        `json:"duration_ms"`
}

// SegmentMeta is the monthly run entry of a segment
type SegmentMeta struct {
	Name    string `json:"name"`
	Mission string `json:"mission,omitempty"`
}

// LogEntry is a progress message recorded during a discovery run
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// DiscoveryStats counts posts at each stage of a discovery run
type DiscoveryStats struct {
	Fetched   int `json:"fetched"`
	Prescored int `json:"prescored"`
	Promising int `json:"promising"`
	Accepted  int `json:"accepted"`
	Rejected  int `json:"rejected"`
	Trends    int `json:"trends"`
	Queries   int `json:"queries"`
}
