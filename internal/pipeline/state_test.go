package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_NextEnabledOnlyWhenCompleted(t *testing.T) {
	s := NewSnapshot("fetch", "score")
	assert.False(t, s.NextEnabled("fetch"))

	s, err := Begin(s, "fetch")
	require.NoError(t, err)
	assert.False(t, s.NextEnabled("fetch"))

	failed, err := Fail(s, "fetch", time.Second, errors.New("boom"))
	require.NoError(t, err)
	assert.False(t, failed.NextEnabled("fetch"))

	done, err := Succeed(s, "fetch", time.Second, nil)
	require.NoError(t, err)
	assert.True(t, done.NextEnabled("fetch"))
	assert.False(t, done.NextEnabled("missing"))
}

func TestBegin_Gating(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(Snapshot) Snapshot
		step    string
		wantErr error
	}{
		{
			name:    "first step pending",
			prepare: func(s Snapshot) Snapshot { return s },
			step:    "a",
		},
		{
			name:    "second step locked",
			prepare: func(s Snapshot) Snapshot { return s },
			step:    "b",
			wantErr: ErrStepLocked,
		},
		{
			name: "second step after first completed",
			prepare: func(s Snapshot) Snapshot {
				s, _ = Begin(s, "a")
				s, _ = Succeed(s, "a", 0, nil)
				return s
			},
			step: "b",
		},
		{
			name: "loading step cannot begin again",
			prepare: func(s Snapshot) Snapshot {
				s, _ = Begin(s, "a")
				return s
			},
			step:    "a",
			wantErr: ErrInvalidTransition,
		},
		{
			name: "completed step cannot begin again",
			prepare: func(s Snapshot) Snapshot {
				s, _ = Begin(s, "a")
				s, _ = Succeed(s, "a", 0, nil)
				return s
			},
			step:    "a",
			wantErr: ErrInvalidTransition,
		},
		{
			name: "failed step can begin again",
			prepare: func(s Snapshot) Snapshot {
				s, _ = Begin(s, "a")
				s, _ = Fail(s, "a", 0, errors.New("x"))
				return s
			},
			step: "a",
		},
		{
			name:    "unknown step",
			prepare: func(s Snapshot) Snapshot { return s },
			step:    "zzz",
			wantErr: ErrUnknownStep,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.prepare(NewSnapshot("a", "b"))
			next, err := Begin(s, tt.step)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, s.Steps(), next.Steps())
				return
			}
			require.NoError(t, err)
			step, _ := next.Step(tt.step)
			assert.Equal(t, StatusLoading, step.Status)
		})
	}
}

func TestReducers_DoNotMutateInput(t *testing.T) {
	s0 := NewSnapshot("a")
	s1, err := Begin(s0, "a")
	require.NoError(t, err)
	s2, err := Succeed(s1, "a", 2*time.Second, []string{"partial"})
	require.NoError(t, err)

	step0, _ := s0.Step("a")
	step1, _ := s1.Step("a")
	step2, _ := s2.Step("a")
	assert.Equal(t, StatusPending, step0.Status)
	assert.Equal(t, StatusLoading, step1.Status)
	assert.Equal(t, StatusCompleted, step2.Status)
	assert.Equal(t, 2*time.Second, step2.Duration)
	assert.Equal(t, []string{"partial"}, step2.Warnings)
	assert.Equal(t, 1, step2.Attempts)

	step2.Warnings[0] = "changed"
	again, _ := s2.Step("a")
	assert.Equal(t, "partial", again.Warnings[0])
}

func TestFail_RecordsErrorAndRetryClearsIt(t *testing.T) {
	s, _ := Begin(NewSnapshot("a"), "a")
	s, err := Fail(s, "a", time.Millisecond, errors.New("Segment not found"))
	require.NoError(t, err)

	step, _ := s.Step("a")
	assert.Equal(t, StatusError, step.Status)
	assert.Equal(t, "Segment not found", step.Error)

	s, err = Begin(s, "a")
	require.NoError(t, err)
	step, _ = s.Step("a")
	assert.Equal(t, StatusLoading, step.Status)
	assert.Empty(t, step.Error)
	assert.Equal(t, 2, step.Attempts)
}

func TestSucceedRequiresLoading(t *testing.T) {
	_, err := Succeed(NewSnapshot("a"), "a", 0, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Fail(NewSnapshot("a"), "b", 0, nil)
	assert.ErrorIs(t, err, ErrUnknownStep)
}

func TestReset(t *testing.T) {
	s, _ := Begin(NewSnapshot("a", "b"), "a")
	s, _ = Succeed(s, "a", time.Second, []string{"w"})
	assert.False(t, s.Completed())

	s = Reset(s)
	for _, step := range s.Steps() {
		assert.Equal(t, StatusPending, step.Status)
		assert.Zero(t, step.Attempts)
	}
	assert.False(t, NewSnapshot().Completed())
}
