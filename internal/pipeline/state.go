// Package pipeline drives linear multi-stage workflows on the client side.
//
// A Snapshot holds the status of every step and is never mutated in place.
// The reducers Begin, Succeed, Fail and Reset each return a new Snapshot.
package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of a step
type Status string

const (
	StatusPending   Status = "pending"
	StatusLoading   Status = "loading"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

var (
	// ErrUnknownStep is returned for a step id the pipeline does not define
	ErrUnknownStep = errors.New("unknown step")
	// ErrStepLocked is returned when the previous step has not completed
	ErrStepLocked = errors.New("previous step has not completed")
	// ErrInvalidTransition is returned when a step cannot move to the requested status
	ErrInvalidTransition = errors.New("invalid step transition")
)

// StepState is the state of one step
type StepState struct {
	ID       string        `json:"id"`
	Status   Status        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
	Warnings []string      `json:"warnings,omitempty"`
}

// Snapshot is an immutable view of an ordered set of steps
type Snapshot struct {
	steps []StepState
}

// NewSnapshot creates a snapshot with every step pending
func NewSnapshot(ids ...string) Snapshot {
	steps := make([]StepState, len(ids))
	for i, id := range ids {
		steps[i] = StepState{ID: id, Status: StatusPending}
	}
	return Snapshot{steps: steps}
}

// Steps returns a copy of the steps in order
func (s Snapshot) Steps() []StepState {
	out := make([]StepState, len(s.steps))
	for i, step := range s.steps {
		out[i] = step
		out[i].Warnings = append([]string(nil), step.Warnings...)
	}
	return out
}

// Step returns the state of one step
func (s Snapshot) Step(id string) (StepState, bool) {
	i := s.index(id)
	if i < 0 {
		return StepState{}, false
	}
	step := s.steps[i]
	step.Warnings = append([]string(nil), step.Warnings...)
	return step, true
}

// NextEnabled reports whether the step after id may be started
func (s Snapshot) NextEnabled(id string) bool {
	i := s.index(id)
	return i >= 0 && s.steps[i].Status == StatusCompleted
}

// Completed reports whether every step has completed
func (s Snapshot) Completed() bool {
	for _, step := range s.steps {
		if step.Status != StatusCompleted {
			return false
		}
	}
	return len(s.steps) > 0
}

// CanBegin returns nil when the step may enter loading
func (s Snapshot) CanBegin(id string) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownStep, id)
	}
	if i > 0 && s.steps[i-1].Status != StatusCompleted {
		return fmt.Errorf("%w: %s requires %s", ErrStepLocked, id, s.steps[i-1].ID)
	}
	switch s.steps[i].Status {
	case StatusPending, StatusError:
		return nil
	default:
		return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, id, s.steps[i].Status)
	}
}

func (s Snapshot) index(id string) int {
	for i, step := range s.steps {
		if step.ID == id {
			return i
		}
	}
	return -1
}

func (s Snapshot) with(i int, step StepState) Snapshot {
	steps := make([]StepState, len(s.steps))
	copy(steps, s.steps)
	steps[i] = step
	return Snapshot{steps: steps}
}

// Begin moves a pending or failed step to loading
func Begin(s Snapshot, id string) (Snapshot, error) {
	if err := s.CanBegin(id); err != nil {
		return s, err
	}
	i := s.index(id)
	step := s.steps[i]
	step.Status = StatusLoading
	step.Error = ""
	step.Warnings = nil
	step.Duration = 0
	step.Attempts++
	return s.with(i, step), nil
}

// Succeed completes a loading step
func Succeed(s Snapshot, id string, duration time.Duration, warnings []string) (Snapshot, error) {
	i, err := s.loading(id)
	if err != nil {
		return s, err
	}
	step := s.steps[i]
	step.Status = StatusCompleted
	step.Duration = duration
	step.Warnings = append([]string(nil), warnings...)
	return s.with(i, step), nil
}

// Fail marks a loading step as failed with the error message
func Fail(s Snapshot, id string, duration time.Duration, cause error) (Snapshot, error) {
	i, err := s.loading(id)
	if err != nil {
		return s, err
	}
	step := s.steps[i]
	step.Status = StatusError
	step.Duration = duration
	if cause != nil {
		step.Error = cause.Error()
	}
	return s.with(i, step), nil
}

// Reset returns every step to pending
func Reset(s Snapshot) Snapshot {
	ids := make([]string, len(s.steps))
	for i, step := range s.steps {
		ids[i] = step.ID
	}
	return NewSnapshot(ids...)
}

func (s Snapshot) loading(id string) (int, error) {
	i := s.index(id)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", ErrUnknownStep, id)
	}
	if s.steps[i].Status != StatusLoading {
		return -1, fmt.Errorf("%w: %s is %s", ErrInvalidTransition, id, s.steps[i].Status)
	}
	return i, nil
}
