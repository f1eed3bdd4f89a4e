package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncport-ai/npsd/internal/agent"
	"github.com/syncport-ai/npsd/internal/agents"
	"github.com/syncport-ai/npsd/internal/checkpoint"
	"github.com/syncport-ai/npsd/internal/llm"
	"github.com/syncport-ai/npsd/internal/state"
)

// fakeProvider is a deterministic llm.Provider for end-to-end runs.
type fakeProvider struct {
	content string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (*llm.Response, error) {
	return &llm.Response{
		Content: f.content,
		Model:   "fake",
		Usage:   llm.Usage{PromptTokens: 8, CompletionTokens: 4, TotalTokens: 12},
	}, nil
}

func (f *fakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0, 0}, nil
}

// advisorContent parses as recommendations for the consulting agents and
// is harmlessly unparseable everywhere else.
const advisorContent = "high|Improve reliability|Crash complaints dominate detractor feedback\n" +
	"medium|Revisit pricing|Passives cite cost"

func surveyRecords() []state.SurveyResponse {
	return []state.SurveyResponse{
		{ID: "r1", Score: 10, Comment: "battery life is fantastic", Product: "widget", Region: "emea", Channel: "email"},
		{ID: "r2", Score: 9, Comment: "really solid device", Product: "widget", Region: "emea", Channel: "email"},
		{ID: "r3", Score: 9, Comment: "great battery", Product: "widget", Region: "apac", Channel: "web"},
		{ID: "r4", Score: 8, Comment: "good but could be cheaper", Product: "widget", Region: "apac", Channel: "web"},
		{ID: "r5", Score: 7, Comment: "decent overall", Product: "gadget", Region: "apac", Channel: "web"},
		{ID: "r6", Score: 7, Comment: "average experience", Product: "gadget", Region: "emea", Channel: "app"},
		{ID: "r7", Score: 5, Comment: "app crashes daily", Product: "gadget", Region: "amer", Channel: "app"},
		{ID: "r8", Score: 3, Comment: "constant crash and lag", Product: "gadget", Region: "amer", Channel: "app"},
		{ID: "r9", Score: 2, Comment: "support never answers", Product: "gadget", Region: "amer", Channel: "app"},
		{ID: "r10", Score: 6, Comment: "too slow to load", Product: "widget", Region: "amer", Channel: "web"},
		{ID: "r11", Score: 8, Comment: "pretty happy with it", Product: "widget", Region: "emea", Channel: "email"},
		{ID: "r12", Score: 10, Comment: "best purchase this year", Product: "widget", Region: "apac", Channel: "email"},
	}
}

func defaultRegistry() *agent.Registry {
	r := agent.NewRegistry(nil)
	agents.RegisterDefaults(r)
	return r
}

func fastOptions() Options {
	opts := DefaultOptions()
	opts.Retry = fastPolicy
	return opts
}

func newTestOrchestrator(t *testing.T, client llm.Client, opts Options) *Orchestrator {
	t.Helper()
	o, err := New(opts, defaultRegistry(), client, nil, nil)
	require.NoError(t, err)
	return o
}

func TestNew_Validation(t *testing.T) {
	client := &llm.MockClient{}

	_, err := New(fastOptions(), nil, client, nil, nil)
	assert.ErrorIs(t, err, ErrNoRegistry)

	_, err = New(fastOptions(), defaultRegistry(), nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoClient)

	bad := fastOptions()
	bad.ConfidenceThreshold = 1.5
	_, err = New(bad, defaultRegistry(), client, nil, nil)
	assert.Error(t, err)

	checkpointing := fastOptions()
	checkpointing.EnableCheckpointing = true
	_, err = New(checkpointing, defaultRegistry(), client, nil, nil)
	assert.Error(t, err, "checkpointing without a store must fail")
}

func TestExecute_FullWorkflow(t *testing.T) {
	client := &llm.MockClient{DefaultContent: advisorContent, Embedding: []float32{1, 0, 0}}
	o := newTestOrchestrator(t, client, fastOptions())

	result, err := o.Execute(context.Background(), surveyRecords())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Len(t, result.CompletedAgents, 18, "all built-in agents complete")
	assert.Empty(t, result.FailedAgents)
	assert.NotEmpty(t, result.WorkflowID)
	assert.Greater(t, result.RemoteCalls, int64(0))
	assert.Greater(t, result.Duration, time.Duration(0))

	snap := result.State.Snapshot()
	for _, key := range []string{
		state.KeyNPSMetrics, state.KeyAnalysisSynthesis, state.KeyConfidenceAssessment,
		state.KeyStrategicRecommendations, state.KeyExecutiveSummary,
	} {
		assert.True(t, snap.Has(key), key)
	}

	encoded, err := result.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(encoded), result.WorkflowID)
	assert.Contains(t, string(encoded), `"duration_ms"`)
}

func TestExecute_NoInput(t *testing.T) {
	o := newTestOrchestrator(t, &llm.MockClient{DefaultContent: "x"}, fastOptions())

	_, err := o.Execute(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestExecute_FoundationHardFailure(t *testing.T) {
	registry := defaultRegistry()
	registry.Register(func(desc agent.Descriptor, deps agent.Deps) agent.Agent {
		return &kindedStub{kind: agent.KindQuantitative, processErr: errors.New("scoring broken")}
	}, agent.Descriptor{Kind: agent.KindQuantitative, Name: "Quantitative", Layer: agent.LayerFoundation, MaxRetries: 1})

	o, err := New(fastOptions(), registry, &llm.MockClient{DefaultContent: "x"}, nil, nil)
	require.NoError(t, err)

	result, err := o.Execute(context.Background(), surveyRecords())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFoundationFailed)
	require.NotNil(t, result)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.FailedAgents, "A1")
}

func TestExecute_PartialOnAnalysisFailure(t *testing.T) {
	registry := defaultRegistry()
	registry.Register(func(desc agent.Descriptor, deps agent.Deps) agent.Agent {
		return &kindedStub{kind: agent.KindThemes, processErr: errors.New("themes broken")}
	}, agent.Descriptor{Kind: agent.KindThemes, Name: "Themes", Layer: agent.LayerAnalysis, MaxRetries: 1})

	client := &llm.MockClient{DefaultContent: advisorContent, Embedding: []float32{1, 0, 0}}
	o, err := New(fastOptions(), registry, client, nil, nil)
	require.NoError(t, err)

	result, err := o.Execute(context.Background(), surveyRecords())
	require.NoError(t, err, "analysis failures do not fail the workflow")
	assert.Equal(t, StatusPartial, result.Status)
	assert.Contains(t, result.FailedAgents, "B4")

	snap := result.State.Snapshot()
	assert.False(t, snap.Has(state.KeyThemes))
	assert.True(t, snap.Has(state.KeyExecutiveSummary), "consulting still runs")
}

func TestExecute_CachingReducesRemoteCalls(t *testing.T) {
	cfg := llm.DefaultServiceConfig()
	cfg.Retry = fastPolicy
	svc, err := llm.NewService(cfg, &fakeProvider{content: advisorContent}, nil)
	require.NoError(t, err)

	o := newTestOrchestrator(t, svc, fastOptions())
	records := surveyRecords()

	first, err := o.Execute(context.Background(), records)
	require.NoError(t, err)
	second, err := o.Execute(context.Background(), records)
	require.NoError(t, err)

	assert.Less(t, second.RemoteCalls, first.RemoteCalls,
		"identical prompts are served from cache on the second run")
	assert.Greater(t, second.CacheHits, int64(0))
}

func TestExecute_CheckpointsAfterPasses(t *testing.T) {
	store, err := checkpoint.NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	opts := fastOptions()
	opts.EnableCheckpointing = true

	client := &llm.MockClient{DefaultContent: advisorContent, Embedding: []float32{1, 0, 0}}
	o, err := New(opts, defaultRegistry(), client, store, nil)
	require.NoError(t, err)

	result, err := o.Execute(context.Background(), surveyRecords())
	require.NoError(t, err)

	raw, err := store.Load(context.Background(), result.WorkflowID)
	require.NoError(t, err)
	assert.Contains(t, string(raw), state.KeyExecutiveSummary)
}

func TestExecute_CanceledContext(t *testing.T) {
	o := newTestOrchestrator(t, &llm.MockClient{DefaultContent: "x"}, fastOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Execute(ctx, surveyRecords())
	assert.Error(t, err)
}
