package intelligence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/outstaffer/content-finder/internal/config"
	"github.com/outstaffer/content-finder/internal/metrics"
	"github.com/outstaffer/content-finder/internal/models"
	"github.com/outstaffer/content-finder/internal/prompts"
	"github.com/outstaffer/content-finder/internal/providers"
	"github.com/outstaffer/content-finder/internal/storage"
)

const (
	resultsPerQuery   = 5
	snippetLength     = 300
	maxSynthesisDocs  = 100
	maxSynthesisChars = 300000
	searchWorkers     = 3
	scrapeWorkers     = 5
)

var (
	// ErrSessionNotFound is returned for unknown session ids
	ErrSessionNotFound = models.NotFound("Session not found")
	// ErrUnavailable is returned when no language model is configured
	ErrUnavailable = models.Unavailable("Intelligence agent is not available due to a configuration error.")
)

var themesSchema = &providers.Schema{
	Type: providers.TypeObject,
	Properties: map[string]*providers.Schema{
		"content_themes": {
			Type: providers.TypeArray,
			Items: &providers.Schema{
				Type: providers.TypeObject,
				Properties: map[string]*providers.Schema{
					"theme_title": {Type: providers.TypeString},
					"summary":     {Type: providers.TypeString},
					"talking_points": {Type: providers.TypeArray, Items: &providers.Schema{
						Type: providers.TypeObject,
						Properties: map[string]*providers.Schema{
							"point":           {Type: providers.TypeString},
							"supporting_urls": {Type: providers.TypeArray, Items: &providers.Schema{Type: providers.TypeString}},
						},
						Required: []string{"point", "supporting_urls"},
					}},
					"campaign_ideas": {Type: providers.TypeArray, Items: &providers.Schema{
						Type: providers.TypeObject,
						Properties: map[string]*providers.Schema{
							"idea":            {Type: providers.TypeString},
							"target_channels": {Type: providers.TypeArray, Items: &providers.Schema{Type: providers.TypeString}},
						},
						Required: []string{"idea", "target_channels"},
					}},
				},
				Required: []string{"theme_title", "summary", "talking_points", "campaign_ideas"},
			},
		},
		"brief_markdown": {Type: providers.TypeString},
	},
	Required: []string{"content_themes"},
}

// QueryUpdate changes the selection or text of a planned query
type QueryUpdate struct {
	ID       string  `json:"id"`
	Selected *bool   `json:"selected,omitempty"`
	Text     *string `json:"text,omitempty"`
}

// SourceUpdate changes the selection of a search source
type SourceUpdate struct {
	ID       string `json:"id"`
	Selected *bool  `json:"selected,omitempty"`
}

// ServiceInterface defines the intelligence session operations
type ServiceInterface interface {
	Create(ctx context.Context, segmentName, mission string) (*models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	List(ctx context.Context, segmentName string, limit int) ([]models.Session, error)
	UpdateQueries(ctx context.Context, id string, updates []QueryUpdate) error
	Search(ctx context.Context, id string) error
	UpdateSources(ctx context.Context, id string, updates []SourceUpdate) error
	Analyze(ctx context.Context, id string) ([]models.ContentTheme, error)
}

// Service manages intelligence research sessions
type Service struct {
	llm      providers.LLM
	planner  *Planner
	searcher providers.ResearchSearcher
	scraper  providers.Scraper
	storage  storage.StorageInterface

	mu       sync.Mutex
	sessions map[string]*models.Session

	now   func() time.Time
	newID func() string
}

var _ ServiceInterface = (*Service)(nil)

// NewService creates a session service. A nil llm makes planning and analysis unavailable;
// a nil store keeps sessions in memory only.
func NewService(llm providers.LLM, segments *config.SegmentLoader, searcher providers.ResearchSearcher, scraper providers.Scraper, store storage.StorageInterface) *Service {
	s := &Service{
		llm:      llm,
		searcher: searcher,
		scraper:  scraper,
		storage:  store,
		sessions: make(map[string]*models.Session),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	if llm != nil {
		s.planner = NewPlanner(llm, segments)
	}
	return s
}

// Create plans queries for a mission and starts a session in queries_ready
func (s *Service) Create(ctx context.Context, segmentName, mission string) (*models.Session, error) {
	if s.llm == nil {
		logrus.WithField("operation", "session_create").Error("Language model unavailable during session creation")
		return nil, ErrUnavailable
	}
	if strings.TrimSpace(segmentName) == "" || strings.TrimSpace(mission) == "" {
		return nil, models.BadRequest("segment_name and mission are required")
	}

	id := s.newID()
	log := logrus.WithFields(logrus.Fields{"operation": "session_create", "segment_name": segmentName, "session_id": id})
	log.Info("Planning queries for new session")

	start := time.Now()
	planned := s.planner.Plan(ctx, mission, segmentName, MaxPlannedQueries)
	if len(planned) == 0 {
		return nil, fmt.Errorf("query generation failed to return any queries")
	}

	now := s.now()
	session := &models.Session{
		SessionID:     id,
		SegmentName:   segmentName,
		Mission:       mission,
		Status:        models.StatusQueriesReady,
		CreatedAt:     now,
		UpdatedAt:     now,
		Queries:       make([]models.Query, 0, len(planned)),
		SearchResults: []models.QueryResults{},
		Themes:        []models.ContentTheme{},
		Stats:         models.SessionStats{QueriesGenerated: len(planned)},
	}
	for _, q := range planned {
		session.Queries = append(session.Queries, models.Query{ID: s.newID(), Text: q, Selected: true})
	}

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()
	s.persist(ctx, session)

	metrics.SessionsCreatedTotal.Inc()
	log.WithFields(logrus.Fields{"count": len(planned), "duration_ms": time.Since(start).Milliseconds()}).Info("Session created")

	return clone(session), nil
}

// Get returns a copy of a session
func (s *Service) Get(ctx context.Context, id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return clone(session), nil
}

// List returns up to limit sessions of a segment, newest first
func (s *Service) List(ctx context.Context, segmentName string, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.storage != nil {
		keys, err := s.storage.List(ctx, "sessions/")
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}
		for _, key := range keys {
			id := strings.TrimSuffix(strings.TrimPrefix(key, "sessions/"), ".json")
			if _, ok := s.sessions[id]; ok {
				continue
			}
			if _, err := s.lookup(ctx, id); err != nil {
				logrus.WithField("session_id", id).Warnf("Skipping unreadable session: %v", err)
			}
		}
	}

	var out []models.Session
	for _, session := range s.sessions {
		if segmentName == "" || session.SegmentName == segmentName {
			out = append(out, *clone(session))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateQueries applies selection and text edits to planned queries
func (s *Service) UpdateQueries(ctx context.Context, id string, updates []QueryUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}

	for _, u := range updates {
		if u.ID == "" {
			continue
		}
		for i := range session.Queries {
			if session.Queries[i].ID != u.ID {
				continue
			}
			if u.Selected != nil {
				session.Queries[i].Selected = *u.Selected
			}
			if u.Text != nil {
				session.Queries[i].Text = *u.Text
			}
		}
	}

	s.touch(ctx, session)
	logrus.WithFields(logrus.Fields{"operation": "session_queries_update", "session_id": id, "count": len(updates)}).
		Info("Session queries updated")
	return nil
}

// Search runs every selected query and stores the sources found. On failure the session returns to queries_ready.
func (s *Service) Search(ctx context.Context, id string) error {
	s.mu.Lock()
	session, err := s.lookup(ctx, id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	queries := session.SelectedQueries()
	if len(queries) == 0 {
		session.Status = models.StatusQueriesReady
		s.touch(ctx, session)
		s.mu.Unlock()
		return models.BadRequest("No queries selected")
	}
	session.Status = models.StatusSearching
	s.touch(ctx, session)
	s.mu.Unlock()

	log := logrus.WithFields(logrus.Fields{"operation": "session_search", "session_id": id})

	results := make([]models.QueryResults, len(queries))
	failures := make([]error, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(searchWorkers)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			log.WithField("query", q).Info("Executing research search")
			found, err := s.searcher.SearchResearch(gctx, q, resultsPerQuery)
			if err != nil {
				log.WithField("query", q).Errorf("Research search failed: %v", err)
				failures[i] = err
			}
			results[i] = models.QueryResults{Query: q, Sources: s.toSources(found)}
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := allFailed(failures); err != nil {
		session.Status = models.StatusQueriesReady
		s.touch(ctx, session)
		return fmt.Errorf("all searches failed: %w", err)
	}

	total := 0
	for _, r := range results {
		total += len(r.Sources)
	}
	session.SearchResults = results
	session.Status = models.StatusSearchComplete
	session.Stats.SourcesFound = total
	s.touch(ctx, session)

	log.WithField("count", total).Info("Session search completed")
	return nil
}

// UpdateSources applies selection changes to search sources
func (s *Service) UpdateSources(ctx context.Context, id string, updates []SourceUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}

	selected := make(map[string]bool, len(updates))
	for _, u := range updates {
		if u.ID != "" && u.Selected != nil {
			selected[u.ID] = *u.Selected
		}
	}
	for i := range session.SearchResults {
		sources := session.SearchResults[i].Sources
		for j := range sources {
			if v, ok := selected[sources[j].ID]; ok {
				sources[j].Selected = v
			}
		}
	}

	s.touch(ctx, session)
	logrus.WithFields(logrus.Fields{"operation": "session_sources_update", "session_id": id, "count": len(updates)}).
		Info("Session sources updated")
	return nil
}

// Analyze scrapes the selected sources and synthesizes content themes.
// On failure the session returns to search_complete.
func (s *Service) Analyze(ctx context.Context, id string) ([]models.ContentTheme, error) {
	s.mu.Lock()
	session, err := s.lookup(ctx, id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.llm == nil {
		s.mu.Unlock()
		return nil, ErrUnavailable
	}
	sources := session.SelectedSources()
	if len(sources) == 0 {
		session.Status = models.StatusSearchComplete
		s.touch(ctx, session)
		s.mu.Unlock()
		return nil, models.BadRequest("No sources selected for analysis")
	}
	session.Status = models.StatusAnalyzing
	mission, segmentName := session.Mission, session.SegmentName
	s.touch(ctx, session)
	s.mu.Unlock()

	log := logrus.WithFields(logrus.Fields{"operation": "session_analyze", "session_id": id})
	log.WithField("count", len(sources)).Infof("Scraping %d sources for analysis", len(sources))

	themes, scraped, err := s.analyzeSources(ctx, mission, segmentName, sources)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		session.Status = models.StatusSearchComplete
		s.touch(ctx, session)
		log.Errorf("Analysis failed: %v", err)
		return nil, err
	}

	session.Themes = themes
	session.Status = models.StatusComplete
	session.Stats.SourcesScraped = scraped
	session.Stats.ThemesGenerated = len(themes)
	s.touch(ctx, session)

	log.WithField("count", len(themes)).Infof("Analysis completed. Generated %d themes", len(themes))
	return themes, nil
}

type synthesisDoc struct {
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Domain   string   `json:"domain"`
	Passages []string `json:"passages"`
}

func (s *Service) analyzeSources(ctx context.Context, mission, segmentName string, sources []models.Source) ([]models.ContentTheme, int, error) {
	scraped := make([]*synthesisDoc, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scrapeWorkers)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			result := s.scraper.Scrape(gctx, src.URL, []string{"markdown"})
			if result.Success && result.Markdown != "" {
				scraped[i] = &synthesisDoc{Title: src.Title, URL: src.URL, Domain: src.Domain, Passages: []string{result.Markdown}}
			}
			return nil
		})
	}
	_ = g.Wait()

	docs := make([]synthesisDoc, 0, len(sources))
	for _, d := range scraped {
		if d != nil {
			docs = append(docs, *d)
		}
	}
	if len(docs) == 0 {
		return nil, 0, errors.New("Failed to scrape content from any of the selected sources.")
	}
	if len(docs) > maxSynthesisDocs {
		docs = docs[:maxSynthesisDocs]
	}

	payload, err := encodeSynthesisDocs(mission, docs, maxSynthesisChars)
	if err != nil {
		return nil, 0, err
	}

	prompt, err := prompts.Render(prompts.Themes, map[string]string{
		"Mission": mission,
		"Segment": segmentName,
		"Docs":    payload,
	})
	if err != nil {
		return nil, 0, err
	}

	raw, err := s.llm.GenerateJSON(ctx, providers.GenerateRequest{Prompt: prompt, Temperature: 0.4, Schema: themesSchema})
	if err != nil {
		return nil, 0, fmt.Errorf("theme synthesis failed: %w", err)
	}

	var out struct {
		ContentThemes []models.ContentTheme `json:"content_themes"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, 0, fmt.Errorf("theme synthesis returned an unexpected structure: %w", err)
	}
	if out.ContentThemes == nil {
		out.ContentThemes = []models.ContentTheme{}
	}
	return out.ContentThemes, len(docs), nil
}

func (s *Service) toSources(results []providers.TavilyResult) []models.Source {
	sources := make([]models.Source, 0, len(results))
	for _, r := range results {
		title := r.Title
		if title == "" {
			title = "No title"
		}
		sources = append(sources, models.Source{
			ID:       s.newID(),
			Title:    title,
			URL:      r.URL,
			Domain:   domainOf(r.URL),
			Snippet:  truncate(r.Content, snippetLength),
			Selected: true,
		})
	}
	return sources
}

// lookup returns the live session, loading it from storage on a miss. Callers hold s.mu.
func (s *Service) lookup(ctx context.Context, id string) (*models.Session, error) {
	if session, ok := s.sessions[id]; ok {
		return session, nil
	}
	if s.storage == nil || id == "" {
		return nil, ErrSessionNotFound
	}

	var session models.Session
	if err := storage.RetrieveJSON(ctx, s.storage, sessionKey(id), &session); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	s.sessions[id] = &session
	return &session, nil
}

func (s *Service) touch(ctx context.Context, session *models.Session) {
	session.UpdatedAt = s.now()
	s.persist(ctx, session)
}

func (s *Service) persist(ctx context.Context, session *models.Session) {
	if s.storage == nil {
		return
	}
	if err := storage.StoreJSON(ctx, s.storage, sessionKey(session.SessionID), session); err != nil {
		logrus.WithField("session_id", session.SessionID).Errorf("Failed to persist session: %v", err)
	}
}

func sessionKey(id string) string {
	return fmt.Sprintf("sessions/%s.json", id)
}

func clone(session *models.Session) *models.Session {
	data, err := json.Marshal(session)
	if err != nil {
		c := *session
		return &c
	}
	var c models.Session
	if err := json.Unmarshal(data, &c); err != nil {
		c = *session
	}
	return &c
}

func allFailed(failures []error) error {
	var last error
	for _, err := range failures {
		if err == nil {
			return nil
		}
		last = err
	}
	return last
}

func domainOf(url string) string {
	parts := strings.Split(url, "/")
	if len(parts) > 2 && parts[2] != "" {
		return parts[2]
	}
	return "unknown"
}

// encodeSynthesisDocs renders the documents as JSON capped at limit characters
func encodeSynthesisDocs(mission string, docs []synthesisDoc, limit int) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{"mission": mission, "docs": docs})
	if err != nil {
		return "", fmt.Errorf("failed to encode synthesis documents: %w", err)
	}
	return truncate(string(payload), limit), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
