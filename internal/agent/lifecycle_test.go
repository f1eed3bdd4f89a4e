package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncport-ai/npsd/internal/retry"
	"github.com/syncport-ai/npsd/internal/state"
)

// stubAgent is a configurable Agent for lifecycle tests.
type stubAgent struct {
	kind        Kind
	validateErr error
	processErr  error
	failFirst   int
	panicFirst  bool
	attempts    int
	result      *Result
}

func (s *stubAgent) Kind() Kind { return s.kind }

func (s *stubAgent) Validate(snap *state.Snapshot) error { return s.validateErr }

func (s *stubAgent) Process(ctx context.Context, snap *state.Snapshot) (*Result, error) {
	s.attempts++
	if s.panicFirst && s.attempts == 1 {
		panic("unexpected state shape")
	}
	if s.attempts <= s.failFirst {
		return nil, s.processErr
	}
	if s.processErr != nil && s.failFirst == 0 {
		return nil, s.processErr
	}
	if s.result != nil {
		return s.result, nil
	}
	return &Result{Status: StatusCompleted, Data: map[string]any{"out": 1}, Confidence: 0.9}, nil
}

func fastRetry(attempts int) retry.Policy {
	return retry.Policy{MaxAttempts: attempts, BaseDelay: time.Millisecond, Factor: 1.5}
}

func emptySnapshot() *state.Snapshot {
	return state.New("wf-test", "en", nil).Snapshot()
}

func TestRunner_Completes(t *testing.T) {
	a := &stubAgent{kind: KindQuantitative}
	runner := NewRunner(a, Descriptor{Kind: KindQuantitative}, fastRetry(3), nil)

	result := runner.Execute(context.Background(), emptySnapshot())
	require.NotNil(t, result)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, KindQuantitative, result.Kind)
	assert.Greater(t, result.Duration, time.Duration(0))
	assert.Equal(t, 1, a.attempts)
}

func TestRunner_ValidationFailureIsNotRetried(t *testing.T) {
	a := &stubAgent{
		kind:        KindTechnical,
		validateErr: &ValidationError{MissingKeys: []string{state.KeyNPSMetrics}},
	}
	runner := NewRunner(a, Descriptor{Kind: KindTechnical}, fastRetry(5), nil)

	result := runner.Execute(context.Background(), emptySnapshot())
	assert.Equal(t, StatusFailed, result.Status)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], state.KeyNPSMetrics)
	assert.Zero(t, a.attempts, "process must not run after validation failure")
	assert.Greater(t, result.Duration, time.Duration(0))
}

func TestRunner_RetriesProcessErrors(t *testing.T) {
	a := &stubAgent{kind: KindThemes, failFirst: 2, processErr: errors.New("backend hiccup")}
	runner := NewRunner(a, Descriptor{Kind: KindThemes}, fastRetry(4), nil)

	result := runner.Execute(context.Background(), emptySnapshot())
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 3, a.attempts)
}

func TestRunner_FailsAfterExhaustingRetries(t *testing.T) {
	a := &stubAgent{kind: KindThemes, failFirst: 100, processErr: errors.New("backend down")}
	runner := NewRunner(a, Descriptor{Kind: KindThemes}, fastRetry(3), nil)

	result := runner.Execute(context.Background(), emptySnapshot())
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, 3, a.attempts)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "backend down")
}

func TestRunner_DescriptorMaxRetriesWins(t *testing.T) {
	a := &stubAgent{kind: KindThemes, failFirst: 100, processErr: errors.New("down")}
	runner := NewRunner(a, Descriptor{Kind: KindThemes, MaxRetries: 2}, fastRetry(9), nil)

	runner.Execute(context.Background(), emptySnapshot())
	assert.Equal(t, 2, a.attempts)
}

func TestRunner_RecoversFromPanic(t *testing.T) {
	a := &stubAgent{kind: KindDrivers, panicFirst: true}
	runner := NewRunner(a, Descriptor{Kind: KindDrivers}, fastRetry(3), nil)

	result := runner.Execute(context.Background(), emptySnapshot())
	assert.Equal(t, StatusCompleted, result.Status, "panic should be retried like any execution error")
	assert.Equal(t, 2, a.attempts)
}

func TestRunner_NeverReturnsNil(t *testing.T) {
	a := &stubAgent{kind: KindDrivers, result: &Result{}}
	runner := NewRunner(a, Descriptor{Kind: KindDrivers}, fastRetry(1), nil)

	result := runner.Execute(context.Background(), emptySnapshot())
	require.NotNil(t, result)
	assert.Equal(t, StatusCompleted, result.Status, "empty status defaults to completed")
}

func TestValidationHelpers(t *testing.T) {
	empty := state.New("wf", "en", nil)
	assert.Error(t, RequireSurveyInput(empty.Snapshot()))
	assert.Error(t, RequireFoundationOutput(empty.Snapshot()))
	assert.Error(t, RequireAnalysisOutput(empty.Snapshot()))

	seeded := state.New("wf", "en", []state.SurveyResponse{{ID: "r1", Score: 9}})
	assert.NoError(t, RequireSurveyInput(seeded.Snapshot()))

	seeded.Merge("A1", map[string]any{state.KeyNPSMetrics: state.NPSMetrics{}})
	assert.NoError(t, RequireFoundationOutput(seeded.Snapshot()))
	assert.Error(t, RequireAnalysisOutput(seeded.Snapshot()))

	seeded.Merge("B9", map[string]any{state.KeyAnalysisSynthesis: "summary"})
	assert.NoError(t, RequireAnalysisOutput(seeded.Snapshot()))
}
