package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncport-ai/npsd/internal/agent"
	"github.com/syncport-ai/npsd/internal/retry"
	"github.com/syncport-ai/npsd/internal/state"
)

// kindedStub is a configurable agent for executor tests. Its output key
// is derived from its kind so sibling outputs stay disjoint.
type kindedStub struct {
	kind        agent.Kind
	validateErr error
	processErr  error
	confidence  float64
	degraded    map[string]any
}

func (s *kindedStub) Kind() agent.Kind { return s.kind }

func (s *kindedStub) Validate(snap *state.Snapshot) error { return s.validateErr }

func (s *kindedStub) Process(ctx context.Context, snap *state.Snapshot) (*agent.Result, error) {
	if s.processErr != nil {
		return nil, s.processErr
	}
	confidence := s.confidence
	if confidence == 0 {
		confidence = 0.9
	}
	return &agent.Result{
		Status:     agent.StatusCompleted,
		Data:       map[string]any{stubKey(s.kind): "done"},
		Confidence: confidence,
	}, nil
}

func (s *kindedStub) Degraded(full *agent.Result) map[string]any {
	return s.degraded
}

func stubKey(kind agent.Kind) string {
	return fmt.Sprintf("out_%s", kind)
}

var fastPolicy = retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, Factor: 1.5}

func stubStep(s *kindedStub, gated bool) step {
	return step{
		kind:   s.kind,
		agent:  s,
		runner: agent.NewRunner(s, agent.Descriptor{Kind: s.kind}, fastPolicy, nil),
		gated:  gated,
	}
}

func TestRunSequential_FailureDoesNotStopChain(t *testing.T) {
	st := state.New("wf", "en", []state.SurveyResponse{{ID: "r1", Score: 9}})
	exec := newPassExecutor(4, nil)

	steps := []step{
		stubStep(&kindedStub{kind: agent.KindIngestion}, false),
		stubStep(&kindedStub{
			kind:        agent.KindQuantitative,
			validateErr: &agent.ValidationError{MissingKeys: []string{state.KeyCleanedResponses}},
		}, false),
		stubStep(&kindedStub{kind: agent.KindTextTagging}, false),
		stubStep(&kindedStub{kind: agent.KindClustering}, false),
	}
	exec.runSequential(context.Background(), st, steps, nil)

	assert.Equal(t, []string{"A1"}, st.FailedAgents())
	assert.ElementsMatch(t, []string{"A0", "A2", "A3"}, st.CompletedAgents())

	snap := st.Snapshot()
	for _, kind := range []agent.Kind{agent.KindIngestion, agent.KindTextTagging, agent.KindClustering} {
		assert.True(t, snap.Has(stubKey(kind)))
	}
	assert.False(t, snap.Has(stubKey(agent.KindQuantitative)))
}

func TestRunSequential_LaterStepsSeeEarlierOutput(t *testing.T) {
	st := state.New("wf", "en", nil)
	exec := newPassExecutor(1, nil)

	first := &kindedStub{kind: agent.KindIngestion}
	var sawFirst bool
	checker := &checkerStub{kind: agent.KindQuantitative, check: func(snap *state.Snapshot) {
		sawFirst = snap.Has(stubKey(agent.KindIngestion))
	}}

	exec.runSequential(context.Background(), st, []step{
		stubStep(first, false),
		{kind: checker.kind, agent: checker, runner: agent.NewRunner(checker, agent.Descriptor{Kind: checker.kind}, fastPolicy, nil)},
	}, nil)

	assert.True(t, sawFirst)
}

// checkerStub records what its snapshot contained.
type checkerStub struct {
	kind  agent.Kind
	check func(*state.Snapshot)
}

func (s *checkerStub) Kind() agent.Kind                          { return s.kind }
func (s *checkerStub) Validate(snap *state.Snapshot) error       { return nil }
func (s *checkerStub) Process(ctx context.Context, snap *state.Snapshot) (*agent.Result, error) {
	s.check(snap)
	return &agent.Result{Status: agent.StatusCompleted}, nil
}

func TestRunGroup_SiblingFailureIsolated(t *testing.T) {
	st := state.New("wf", "en", nil)
	exec := newPassExecutor(4, nil)

	steps := []step{
		stubStep(&kindedStub{kind: agent.KindTechnical}, false),
		stubStep(&kindedStub{kind: agent.KindPassiveSegment, processErr: errors.New("model exploded")}, false),
		stubStep(&kindedStub{kind: agent.KindDetractorSegment}, false),
	}
	exec.runGroup(context.Background(), st, steps, nil)

	snap := st.Snapshot()
	assert.True(t, snap.Has(stubKey(agent.KindTechnical)))
	assert.True(t, snap.Has(stubKey(agent.KindDetractorSegment)))
	assert.False(t, snap.Has(stubKey(agent.KindPassiveSegment)))

	assert.Equal(t, []string{"B2"}, st.FailedAgents())
	require.Len(t, st.Errors(), 1)
	assert.Contains(t, st.Errors()[0], "B2")
	assert.Contains(t, st.Errors()[0], "model exploded")
}

func TestRunGroup_SiblingsShareOneSnapshot(t *testing.T) {
	st := state.New("wf", "en", nil)
	exec := newPassExecutor(4, nil)

	writer := &kindedStub{kind: agent.KindThemes}
	var sawSibling bool
	checker := &checkerStub{kind: agent.KindDrivers, check: func(snap *state.Snapshot) {
		sawSibling = snap.Has(stubKey(agent.KindThemes))
	}}

	exec.runGroup(context.Background(), st, []step{
		stubStep(writer, false),
		{kind: checker.kind, agent: checker, runner: agent.NewRunner(checker, agent.Descriptor{Kind: checker.kind}, fastPolicy, nil)},
	}, nil)

	assert.False(t, sawSibling, "group members must not observe sibling writes")
	assert.True(t, st.Snapshot().Has(stubKey(agent.KindThemes)), "writes land after the group settles")
}

func TestRunGroup_CanceledContext(t *testing.T) {
	st := state.New("wf", "en", nil)
	exec := newPassExecutor(1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec.runGroup(ctx, st, []step{
		stubStep(&kindedStub{kind: agent.KindTechnical}, false),
	}, nil)

	assert.NotEmpty(t, st.FailedAgents())
}
