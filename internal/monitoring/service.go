package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/outstaffer/content-finder/internal/config"
	"github.com/outstaffer/content-finder/internal/metrics"
	"github.com/outstaffer/content-finder/internal/models"
	"github.com/outstaffer/content-finder/internal/notifications"
	"github.com/outstaffer/content-finder/internal/storage"
)

// ErrRunInProgress is returned when a monthly run is started while another is active
var ErrRunInProgress = errors.New("monthly run already in progress")

// Discoverer runs a full VOC discovery for one segment
type Discoverer interface {
	RunDiscovery(ctx context.Context, segmentName string, overrides config.SegmentConfig) (*models.DiscoveryReport, error)
}

// Service runs the scheduled monthly VOC discovery across all configured segments
type Service struct {
	segments            *config.SegmentLoader
	discovery           Discoverer
	storage             storage.StorageInterface
	notificationService notifications.NotificationInterface
	metrics             *Metrics
	running             bool
	mu                  sync.RWMutex

	now func() time.Time
}

// Metrics holds monthly run metrics
type Metrics struct {
	LastRun          time.Time      `json:"last_run"`
	LastRunDuration  string         `json:"last_run_duration"`
	SegmentsRun      int            `json:"segments_run"`
	PostsAccepted    int            `json:"posts_accepted"`
	QueriesGenerated int            `json:"queries_generated"`
	SegmentMetrics   map[string]int `json:"segment_metrics"`
	ErrorCount       int            `json:"error_count"`
	Running          bool           `json:"running"`
}

// NewService creates a monthly run service. notificationService may be nil.
func NewService(segments *config.SegmentLoader, discovery Discoverer, store storage.StorageInterface, notificationService notifications.NotificationInterface) *Service {
	return &Service{
		segments:            segments,
		discovery:           discovery,
		storage:             store,
		notificationService: notificationService,
		metrics:             &Metrics{SegmentMetrics: make(map[string]int)},
		now:                 time.Now,
	}
}

type segmentOutcome struct {
	segment string
	report  *models.DiscoveryReport
	err     error
}

// RunMonthly performs discovery for every segment listed in monthly_run.segments,
// stores each report and sends one digest. A failing segment does not stop the others.
func (s *Service) RunMonthly(ctx context.Context) error {
	if !s.begin() {
		return ErrRunInProgress
	}
	defer s.end()

	start := time.Now()
	logrus.Info("Starting monthly VOC run")

	intel, err := s.segments.LoadIntelligence()
	if err != nil {
		metrics.MonthlyRunsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to load monthly run configuration: %w", err)
	}

	segments := intel.MonthlyRun.Segments
	if len(segments) == 0 {
		logrus.Warn("No segments configured for the monthly run")
		return nil
	}

	var wg sync.WaitGroup
	outcomes := make([]segmentOutcome, len(segments))
	for i, segment := range segments {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()

			logrus.Infof("Running VOC discovery for %s", name)
			report, err := s.discovery.RunDiscovery(ctx, name, config.SegmentConfig{})
			if err == nil {
				err = s.storeReport(ctx, report)
			}
			outcomes[i] = segmentOutcome{segment: name, report: report, err: err}
		}(i, segment.Name)
	}
	wg.Wait()

	digest := &models.Digest{
		GeneratedAt: s.now().UTC(),
		Reports:     []models.DiscoveryReport{},
		Failures:    make(map[string]string),
	}
	for _, outcome := range outcomes {
		if outcome.err != nil {
			logrus.WithField("segment_name", outcome.segment).Errorf("Monthly discovery failed: %v", outcome.err)
			digest.Failures[outcome.segment] = outcome.err.Error()
			continue
		}
		logrus.Infof("Found %d posts for %s", len(outcome.report.RedditPosts), outcome.segment)
		digest.Reports = append(digest.Reports, *outcome.report)
	}

	duration := time.Since(start)
	digest.Duration = duration.Round(time.Second).String()
	s.updateMetrics(digest, duration)

	status := "success"
	switch {
	case len(digest.Reports) == 0:
		status = "failed"
	case len(digest.Failures) > 0:
		status = "partial"
	}
	metrics.MonthlyRunsTotal.WithLabelValues(status).Inc()

	if s.notificationService != nil {
		if err := s.notificationService.SendDigest(digest); err != nil {
			logrus.Errorf("Failed to send digest: %v", err)
			return err
		}
	}

	if status == "failed" {
		return fmt.Errorf("monthly run failed for all %d segments", len(segments))
	}

	logrus.Infof("Monthly VOC run completed in %v", duration)
	return nil
}

func (s *Service) storeReport(ctx context.Context, report *models.DiscoveryReport) error {
	if s.storage == nil {
		return nil
	}
	key := fmt.Sprintf("reports/%s-%s.json", config.Slug(report.Segment), report.GeneratedAt.Format(models.TimestampLayout))
	if err := storage.StoreJSON(ctx, s.storage, key, report); err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}
	return nil
}

func (s *Service) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Service) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

func (s *Service) updateMetrics(digest *models.Digest, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.LastRun = s.now().UTC()
	s.metrics.LastRunDuration = duration.String()
	s.metrics.SegmentsRun = len(digest.Reports)
	s.metrics.ErrorCount = len(digest.Failures)
	s.metrics.PostsAccepted = digest.AcceptedPosts()
	s.metrics.QueriesGenerated = 0

	// Reset counters
	s.metrics.SegmentMetrics = make(map[string]int)
	for _, report := range digest.Reports {
		s.metrics.SegmentMetrics[report.Segment] = len(report.RedditPosts)
		s.metrics.QueriesGenerated += len(report.CuratedQueries)
	}
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := *s.metrics
	snapshot.Running = s.running
	data, _ := json.MarshalIndent(snapshot, "", "  ")
	return string(data)
}
