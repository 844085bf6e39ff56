package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/outstaffer/content-finder/internal/config"
)

const runTimeout = 2 * time.Hour

// MonthlyRunner runs the scheduled VOC discovery
type MonthlyRunner interface {
	RunMonthly(ctx context.Context) error
}

// Service handles scheduling of the monthly run
type Service struct {
	config *config.Config
	runner MonthlyRunner
	cron   *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, runner MonthlyRunner) *Service {
	return &Service{
		config: cfg,
		runner: runner,
		cron:   cron.New(cron.WithSeconds()),
	}
}

// Start registers the monthly run and starts the cron loop. It does nothing when the run is disabled.
func (s *Service) Start() error {
	if !s.config.MonthlyRunEnabled {
		logrus.Info("Monthly run disabled, scheduler not started")
		return nil
	}

	_, err := s.cron.AddFunc(s.config.MonthlyRunSchedule, s.run)
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with schedule %q", s.config.MonthlyRunSchedule)
	return nil
}

func (s *Service) run() {
	logrus.Info("Starting scheduled monthly run")

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if err := s.runner.RunMonthly(ctx); err != nil {
		logrus.Errorf("Scheduled monthly run failed: %v", err)
	}
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}
