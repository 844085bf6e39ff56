package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrBusy is returned when a stage is started while another one is running
var ErrBusy = errors.New("a stage is already running")

// ErrRetryLimit is returned when a step has used all of its attempts
var ErrRetryLimit = errors.New("retry limit reached")

// RetryPolicy controls how failed steps may be re-run
type RetryPolicy struct {
	// Manual means retries only happen on an explicit Retry call
	Manual bool
	// MaxAttempts caps attempts per step. Zero is unlimited.
	MaxAttempts int
	// Backoff is waited before a retry
	Backoff time.Duration
}

// ManualRetry is unlimited, user-triggered retry without backoff
var ManualRetry = RetryPolicy{Manual: true}

// StageFunc performs one stage and returns its warnings
type StageFunc func(ctx context.Context) ([]string, error)

// Stage is one step of a pipeline
type Stage struct {
	ID  string
	Run StageFunc
}

// Executor runs the stages of a linear pipeline one at a time
type Executor struct {
	name   string
	stages []Stage
	policy RetryPolicy
	now    func() time.Time
	sleep  func(context.Context, time.Duration) error

	mu       sync.Mutex
	snapshot Snapshot
	running  bool
}

// NewExecutor creates an executor for the stages in order
func NewExecutor(name string, policy RetryPolicy, stages ...Stage) *Executor {
	ids := make([]string, len(stages))
	for i, s := range stages {
		ids[i] = s.ID
	}
	return &Executor{
		name:     name,
		stages:   stages,
		policy:   policy,
		now:      time.Now,
		sleep:    sleepContext,
		snapshot: NewSnapshot(ids...),
	}
}

// Snapshot returns the current state
func (e *Executor) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot
}

// Run starts a pending stage
func (e *Executor) Run(ctx context.Context, id string) error {
	return e.run(ctx, id, false)
}

// Retry re-runs a failed stage
func (e *Executor) Retry(ctx context.Context, id string) error {
	return e.run(ctx, id, true)
}

// RunAll runs the remaining stages in order and stops at the first failure
func (e *Executor) RunAll(ctx context.Context) error {
	for _, stage := range e.stages {
		step, _ := e.Snapshot().Step(stage.ID)
		switch step.Status {
		case StatusCompleted:
			continue
		case StatusError:
			if err := e.Retry(ctx, stage.ID); err != nil {
				return err
			}
		default:
			if err := e.Run(ctx, stage.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// Reset returns every stage to pending
func (e *Executor) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrBusy
	}
	e.snapshot = Reset(e.snapshot)
	return nil
}

func (e *Executor) stage(id string) (Stage, bool) {
	for _, s := range e.stages {
		if s.ID == id {
			return s, true
		}
	}
	return Stage{}, false
}

func (e *Executor) run(ctx context.Context, id string, retry bool) error {
	stage, ok := e.stage(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStep, id)
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrBusy
	}
	step, _ := e.snapshot.Step(id)
	if retry && step.Status != StatusError {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s is %s, only failed steps can be retried", ErrInvalidTransition, id, step.Status)
	}
	if !retry && step.Status == StatusError {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s failed, use retry", ErrInvalidTransition, id)
	}
	if e.policy.MaxAttempts > 0 && step.Attempts >= e.policy.MaxAttempts {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s after %d attempts", ErrRetryLimit, id, step.Attempts)
	}
	next, err := Begin(e.snapshot, id)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.snapshot = next
	e.running = true
	attempt := step.Attempts + 1
	e.mu.Unlock()

	logger := logrus.WithFields(logrus.Fields{
		"operation": e.name,
		"stage":     id,
		"attempt":   attempt,
	})

	if retry && e.policy.Backoff > 0 {
		if err := e.sleep(ctx, e.policy.Backoff); err != nil {
			e.finish(id, 0, nil, err)
			return err
		}
	}

	logger.Debug("Stage started")
	start := e.now()
	warnings, runErr := runStage(ctx, stage)
	duration := e.now().Sub(start)

	e.finish(id, duration, warnings, runErr)
	if runErr != nil {
		logger.WithError(runErr).Warn("Stage failed")
		return runErr
	}
	logger.WithFields(logrus.Fields{
		"duration_ms": duration.Milliseconds(),
		"warnings":    len(warnings),
	}).Info("Stage completed")
	return nil
}

func (e *Executor) finish(id string, duration time.Duration, warnings []string, runErr error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false

	var next Snapshot
	var err error
	if runErr != nil {
		next, err = Fail(e.snapshot, id, duration, runErr)
	} else {
		next, err = Succeed(e.snapshot, id, duration, warnings)
	}
	if err == nil {
		e.snapshot = next
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// runStage converts a panicking stage into a failure so the executor never stays busy
func runStage(ctx context.Context, stage Stage) (warnings []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			warnings = nil
			err = fmt.Errorf("stage %s panicked: %v", stage.ID, r)
		}
	}()
	return stage.Run(ctx)
}
