package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/outstaffer/content-finder/internal/client"
	"github.com/outstaffer/content-finder/internal/intelligence"
	"github.com/outstaffer/content-finder/internal/models"
	"github.com/outstaffer/content-finder/internal/pipeline"
)

// Session workflow phase ids
const (
	PhaseQueryGeneration = "query-generation"
	PhaseSearchResults   = "search-results"
	PhaseContentAnalysis = "content-analysis"
)

// SessionBackend is the part of the backend API used by the session workflow
type SessionBackend interface {
	CreateSession(ctx context.Context, segmentName, mission string) (string, error)
	GetSession(ctx context.Context, id string) (*models.Session, error)
	UpdateQueries(ctx context.Context, id string, updates []intelligence.QueryUpdate) error
	SearchSession(ctx context.Context, id string) error
	UpdateSources(ctx context.Context, id string, updates []intelligence.SourceUpdate) error
	AnalyzeSession(ctx context.Context, id string) ([]models.ContentTheme, error)
}

var _ SessionBackend = (*client.Client)(nil)

// ErrNoSession is returned when a session operation runs before query generation
var ErrNoSession = errors.New("session has not been created")

// SessionWorkflow drives one intelligence session through its three phases.
// Every phase reloads the whole session afterwards.
type SessionWorkflow struct {
	backend SessionBackend
	segment string
	mission string
	exec    *pipeline.Executor

	mu      sync.Mutex
	session *models.Session
}

// NewSessionWorkflow creates a workflow for a segment and mission
func NewSessionWorkflow(backend SessionBackend, segmentName, mission string) *SessionWorkflow {
	w := &SessionWorkflow{backend: backend, segment: segmentName, mission: mission}
	w.exec = pipeline.NewExecutor("intelligence_session", pipeline.ManualRetry,
		pipeline.Stage{ID: PhaseQueryGeneration, Run: w.generateQueries},
		pipeline.Stage{ID: PhaseSearchResults, Run: w.search},
		pipeline.Stage{ID: PhaseContentAnalysis, Run: w.analyze},
	)
	return w
}

// Run starts a phase
func (w *SessionWorkflow) Run(ctx context.Context, phase string) error {
	return w.exec.Run(ctx, phase)
}

// Retry re-runs a failed phase
func (w *SessionWorkflow) Retry(ctx context.Context, phase string) error {
	return w.exec.Retry(ctx, phase)
}

// RunAll runs every remaining phase with the default selection
func (w *SessionWorkflow) RunAll(ctx context.Context) error {
	return w.exec.RunAll(ctx)
}

// Snapshot returns the phase states
func (w *SessionWorkflow) Snapshot() pipeline.Snapshot {
	return w.exec.Snapshot()
}

// Session returns the last loaded session
func (w *SessionWorkflow) Session() *models.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session
}

// SetQuerySelection selects or deselects queries and reloads the session
func (w *SessionWorkflow) SetQuerySelection(ctx context.Context, selection map[string]bool) error {
	id, err := w.sessionID()
	if err != nil {
		return err
	}
	updates := make([]intelligence.QueryUpdate, 0, len(selection))
	for qid, selected := range selection {
		selected := selected
		updates = append(updates, intelligence.QueryUpdate{ID: qid, Selected: &selected})
	}
	if err := w.backend.UpdateQueries(ctx, id, updates); err != nil {
		return err
	}
	return w.reload(ctx, id)
}

// EditQuery changes the text of a query and reloads the session
func (w *SessionWorkflow) EditQuery(ctx context.Context, queryID, text string) error {
	id, err := w.sessionID()
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if err := w.backend.UpdateQueries(ctx, id, []intelligence.QueryUpdate{{ID: queryID, Text: &text}}); err != nil {
		return err
	}
	return w.reload(ctx, id)
}

// SetSourceSelection selects or deselects sources and reloads the session
func (w *SessionWorkflow) SetSourceSelection(ctx context.Context, selection map[string]bool) error {
	id, err := w.sessionID()
	if err != nil {
		return err
	}
	updates := make([]intelligence.SourceUpdate, 0, len(selection))
	for sid, selected := range selection {
		selected := selected
		updates = append(updates, intelligence.SourceUpdate{ID: sid, Selected: &selected})
	}
	if err := w.backend.UpdateSources(ctx, id, updates); err != nil {
		return err
	}
	return w.reload(ctx, id)
}

func (w *SessionWorkflow) sessionID() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session == nil {
		return "", ErrNoSession
	}
	return w.session.SessionID, nil
}

func (w *SessionWorkflow) reload(ctx context.Context, id string) error {
	session, err := w.backend.GetSession(ctx, id)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.session = session
	w.mu.Unlock()
	return nil
}

func (w *SessionWorkflow) generateQueries(ctx context.Context) ([]string, error) {
	id, err := w.backend.CreateSession(ctx, w.segment, w.mission)
	if err != nil {
		return nil, err
	}
	return nil, w.reload(ctx, id)
}

func (w *SessionWorkflow) search(ctx context.Context) ([]string, error) {
	id, err := w.sessionID()
	if err != nil {
		return nil, err
	}
	if err := w.backend.SearchSession(ctx, id); err != nil {
		return nil, err
	}
	return nil, w.reload(ctx, id)
}

func (w *SessionWorkflow) analyze(ctx context.Context) ([]string, error) {
	id, err := w.sessionID()
	if err != nil {
		return nil, err
	}
	if _, err := w.backend.AnalyzeSession(ctx, id); err != nil {
		return nil, err
	}
	if err := w.reload(ctx, id); err != nil {
		return nil, err
	}

	var warnings []string
	if s := w.Session(); s != nil && len(s.Themes) == 0 {
		warnings = append(warnings, "Analysis produced no content themes")
	}
	return warnings, nil
}
