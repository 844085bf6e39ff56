package workflow

import (
	"context"
	"sync"

	"github.com/outstaffer/content-finder/internal/client"
	"github.com/outstaffer/content-finder/internal/models"
	"github.com/outstaffer/content-finder/internal/pipeline"
)

// VOC discovery stage ids
const (
	StageFetchReddit     = "fetch-reddit"
	StagePreScore        = "pre-score-posts"
	StageEnrich          = "enrich-posts"
	StageFetchTrends     = "fetch-trends"
	StageGenerateQueries = "generate-queries"
)

// VOCStages lists the discovery stages in run order
var VOCStages = []string{StageFetchReddit, StagePreScore, StageEnrich, StageFetchTrends, StageGenerateQueries}

// VOCBackend is the part of the backend API used by VOC discovery
type VOCBackend interface {
	FetchReddit(ctx context.Context, segmentName string) (*models.FetchRedditResult, error)
	PreScore(ctx context.Context, segmentName string, posts []models.RedditPost) (*models.PrescoreResult, error)
	Enrich(ctx context.Context, segmentName string, posts []models.RedditPost) (*models.EnrichResult, error)
	FetchTrends(ctx context.Context, segmentName string) (*models.TrendsResult, error)
	GenerateQueries(ctx context.Context, segmentName string, posts []models.RedditPost, trends []models.TrendEntry) (*models.QueriesResult, error)
}

var _ VOCBackend = (*client.Client)(nil)

// VOCState is the accumulated output of the discovery stages
type VOCState struct {
	RawPosts       []models.RedditPost
	PromisingPosts []models.RedditPost
	PrescoreReject []models.RedditPost
	FilteredPosts  []models.RedditPost
	EnrichReject   []models.RedditPost
	Trends         []models.TrendEntry
	Queries        []string
}

// VOCDiscovery runs the five discovery stages for one segment
type VOCDiscovery struct {
	backend VOCBackend
	segment string
	exec    *pipeline.Executor

	mu    sync.Mutex
	state VOCState
}

// NewVOCDiscovery creates a discovery run for a segment
func NewVOCDiscovery(backend VOCBackend, segmentName string) *VOCDiscovery {
	d := &VOCDiscovery{backend: backend, segment: segmentName}
	d.exec = pipeline.NewExecutor("voc_discovery", pipeline.ManualRetry,
		pipeline.Stage{ID: StageFetchReddit, Run: d.fetchReddit},
		pipeline.Stage{ID: StagePreScore, Run: d.preScore},
		pipeline.Stage{ID: StageEnrich, Run: d.enrich},
		pipeline.Stage{ID: StageFetchTrends, Run: d.fetchTrends},
		pipeline.Stage{ID: StageGenerateQueries, Run: d.generateQueries},
	)
	return d
}

// Segment returns the segment name
func (d *VOCDiscovery) Segment() string {
	return d.segment
}

// Run starts a stage
func (d *VOCDiscovery) Run(ctx context.Context, stage string) error {
	return d.exec.Run(ctx, stage)
}

// Retry re-runs a failed stage
func (d *VOCDiscovery) Retry(ctx context.Context, stage string) error {
	return d.exec.Retry(ctx, stage)
}

// RunAll runs every remaining stage and stops at the first failure
func (d *VOCDiscovery) RunAll(ctx context.Context) error {
	return d.exec.RunAll(ctx)
}

// Snapshot returns the stage states
func (d *VOCDiscovery) Snapshot() pipeline.Snapshot {
	return d.exec.Snapshot()
}

// State returns the accumulated stage outputs
func (d *VOCDiscovery) State() VOCState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Reset discards all stage outputs
func (d *VOCDiscovery) Reset() error {
	if err := d.exec.Reset(); err != nil {
		return err
	}
	d.mu.Lock()
	d.state = VOCState{}
	d.mu.Unlock()
	return nil
}

func (d *VOCDiscovery) update(fn func(*VOCState)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(&d.state)
}

func (d *VOCDiscovery) fetchReddit(ctx context.Context) ([]string, error) {
	resp, err := d.backend.FetchReddit(ctx, d.segment)
	if err != nil {
		return nil, err
	}
	d.update(func(s *VOCState) { s.RawPosts = resp.RawPosts })
	return resp.Warnings, nil
}

func (d *VOCDiscovery) preScore(ctx context.Context) ([]string, error) {
	resp, err := d.backend.PreScore(ctx, d.segment, d.State().RawPosts)
	if err != nil {
		return nil, err
	}
	d.update(func(s *VOCState) {
		s.PromisingPosts = resp.PromisingPosts
		s.PrescoreReject = resp.RejectedPosts
	})
	return resp.Warnings, nil
}

func (d *VOCDiscovery) enrich(ctx context.Context) ([]string, error) {
	resp, err := d.backend.Enrich(ctx, d.segment, d.State().PromisingPosts)
	if err != nil {
		return nil, err
	}
	d.update(func(s *VOCState) {
		s.FilteredPosts = resp.FilteredPosts
		s.EnrichReject = resp.RejectedPosts
	})
	return resp.Warnings, nil
}

func (d *VOCDiscovery) fetchTrends(ctx context.Context) ([]string, error) {
	resp, err := d.backend.FetchTrends(ctx, d.segment)
	if err != nil {
		return nil, err
	}
	d.update(func(s *VOCState) { s.Trends = resp.Trends })
	return resp.Warnings, nil
}

func (d *VOCDiscovery) generateQueries(ctx context.Context) ([]string, error) {
	state := d.State()
	resp, err := d.backend.GenerateQueries(ctx, d.segment, state.FilteredPosts, state.Trends)
	if err != nil {
		return nil, err
	}
	d.update(func(s *VOCState) { s.Queries = resp.Queries })
	return resp.Warnings, nil
}
