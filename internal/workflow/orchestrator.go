// Package workflow orchestrates the three-pass survey analysis: a
// sequential foundation chain, dependency-ordered parallel analysis
// groups, and a confidence-gated consulting pass.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/syncport-ai/npsd/internal/agent"
	"github.com/syncport-ai/npsd/internal/checkpoint"
	"github.com/syncport-ai/npsd/internal/llm"
	"github.com/syncport-ai/npsd/internal/logging"
	"github.com/syncport-ai/npsd/internal/retry"
	"github.com/syncport-ai/npsd/internal/state"
)

const instrumentationName = "github.com/syncport-ai/npsd/internal/workflow"

var (
	// ErrNoRegistry is returned when the orchestrator is built without an
	// agent registry.
	ErrNoRegistry = errors.New("agent registry is required")

	// ErrNoClient is returned when the orchestrator is built without a
	// model client.
	ErrNoClient = errors.New("model client is required")

	// ErrNoInput is returned when Execute receives no survey records.
	ErrNoInput = errors.New("no survey records provided")

	// ErrFoundationFailed is returned when the foundation pass leaves no
	// metrics for the downstream passes to work from.
	ErrFoundationFailed = errors.New("foundation pass produced no usable metrics")
)

// Pass composition. Groups within a pass are strictly ordered; kinds
// within a group run concurrently.
var (
	foundationChain = []agent.Kind{
		agent.KindIngestion, agent.KindQuantitative, agent.KindTextTagging, agent.KindClustering,
	}
	analysisGroups = [][]agent.Kind{
		{agent.KindTechnical, agent.KindPassiveSegment, agent.KindDetractorSegment},
		{agent.KindThemes, agent.KindDrivers},
		{agent.KindProductDimension, agent.KindGeographicDimension, agent.KindChannelDimension},
		{agent.KindCoordinator},
	}
	consultingGroups = [][]agent.Kind{
		{agent.KindStrategic},
		{agent.KindProductAdvisor, agent.KindMarketingAdvisor, agent.KindRiskManager},
		{agent.KindExecutiveSynthesizer},
	}
	gatedKinds = map[agent.Kind]bool{
		agent.KindProductAdvisor:   true,
		agent.KindMarketingAdvisor: true,
		agent.KindRiskManager:      true,
	}
)

// Options configure the orchestrator.
type Options struct {
	// MaxConcurrent bounds concurrent workflow executions.
	MaxConcurrent int64 `koanf:"max_concurrent"`

	// MaxParallelAgents bounds concurrent agents within one group.
	MaxParallelAgents int `koanf:"max_parallel_agents"`

	// ConfidenceThreshold is the gate threshold for the advisory agents.
	ConfidenceThreshold float64 `koanf:"confidence_threshold"`

	// EnableCheckpointing persists state after each pass.
	EnableCheckpointing bool `koanf:"enable_checkpointing"`

	// Language is the locale the report is written in.
	Language string `koanf:"language"`

	// Retry is the shared agent retry policy.
	Retry retry.Policy `koanf:"retry"`
}

// DefaultOptions returns production defaults.
func DefaultOptions() Options {
	return Options{
		MaxConcurrent:       2,
		MaxParallelAgents:   4,
		ConfidenceThreshold: 0.6,
		Language:            "en",
		Retry:               retry.DefaultPolicy(),
	}
}

// Validate checks option ranges.
func (o *Options) Validate() error {
	if o.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be positive, got %d", o.MaxConcurrent)
	}
	if o.MaxParallelAgents < 1 {
		return fmt.Errorf("max_parallel_agents must be positive, got %d", o.MaxParallelAgents)
	}
	if o.ConfidenceThreshold < 0 || o.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0, 1], got %g", o.ConfidenceThreshold)
	}
	return o.Retry.Validate()
}

// Orchestrator executes analysis workflows end to end.
type Orchestrator struct {
	opts        Options
	registry    *agent.Registry
	client      llm.Client
	checkpoints checkpoint.Store
	logger      *zap.Logger
	sem         *semaphore.Weighted

	workflowCounter metric.Int64Counter
	failureCounter  metric.Int64Counter
	durationHist    metric.Float64Histogram
}

// New creates an orchestrator. The checkpoint store may be nil when
// checkpointing is disabled.
func New(opts Options, registry *agent.Registry, client llm.Client, checkpoints checkpoint.Store, logger *zap.Logger) (*Orchestrator, error) {
	if registry == nil {
		return nil, ErrNoRegistry
	}
	if client == nil {
		return nil, ErrNoClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid orchestrator options: %w", err)
	}
	if opts.EnableCheckpointing && checkpoints == nil {
		return nil, fmt.Errorf("checkpointing enabled without a store")
	}

	o := &Orchestrator{
		opts:        opts,
		registry:    registry,
		client:      client,
		checkpoints: checkpoints,
		logger:      logger,
		sem:         semaphore.NewWeighted(opts.MaxConcurrent),
	}
	o.initMetrics()
	return o, nil
}

func (o *Orchestrator) initMetrics() {
	meter := otel.Meter(instrumentationName)
	var err error

	o.workflowCounter, err = meter.Int64Counter("npsd.workflows",
		metric.WithDescription("Workflow executions by final status"))
	if err != nil {
		o.logger.Warn("failed to create workflow counter", zap.Error(err))
	}

	o.failureCounter, err = meter.Int64Counter("npsd.agent.failures",
		metric.WithDescription("Agent failures by kind"))
	if err != nil {
		o.logger.Warn("failed to create failure counter", zap.Error(err))
	}

	o.durationHist, err = meter.Float64Histogram("npsd.workflow.duration",
		metric.WithDescription("Workflow wall-clock duration"),
		metric.WithUnit("s"))
	if err != nil {
		o.logger.Warn("failed to create duration histogram", zap.Error(err))
	}
}

// Execute runs the full three-pass workflow over the records. The
// returned result is non-nil whenever execution started; the error is
// non-nil only for workflow-level failures.
func (o *Orchestrator) Execute(ctx context.Context, records []state.SurveyResponse) (*Result, error) {
	if len(records) == 0 {
		return nil, ErrNoInput
	}
	if err := o.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquiring workflow slot: %w", err)
	}
	defer o.sem.Release(1)

	workflowID := uuid.NewString()
	ctx = logging.WithWorkflowID(ctx, workflowID)
	logger := o.logger.With(zap.String("workflow_id", workflowID))

	start := time.Now()
	statsBefore := o.client.Stats()
	st := state.New(workflowID, o.opts.Language, records)
	deps := agent.Deps{LLM: o.client, Logger: logger}
	exec := newPassExecutor(o.opts.MaxParallelAgents, logger)
	gate := NewGate(o.opts.ConfidenceThreshold, logger)

	logger.Info("workflow started", zap.Int("records", len(records)))

	execErr := o.runPasses(ctx, st, deps, exec, gate, logger)

	result := o.assemble(workflowID, st, statsBefore, time.Since(start), execErr)
	o.record(ctx, result)

	logger.Info("workflow finished",
		zap.String("status", string(result.Status)),
		zap.Duration("duration", result.Duration),
		zap.Int64("remote_calls", result.RemoteCalls),
		zap.Int("failed_agents", len(result.FailedAgents)),
	)

	if execErr != nil {
		return result, fmt.Errorf("workflow %s: %w", workflowID, execErr)
	}
	return result, nil
}

// runPasses drives the three passes in order. Agent failures are recorded
// in state and tolerated; the returned error marks workflow-level failure
// only.
func (o *Orchestrator) runPasses(ctx context.Context, st *state.State, deps agent.Deps, exec *passExecutor, gate *Gate, logger *zap.Logger) error {
	steps, err := o.buildSteps(foundationChain, deps, logger)
	if err != nil {
		return err
	}
	exec.runSequential(ctx, st, steps, nil)
	if err := ctx.Err(); err != nil {
		return err
	}
	if st.Snapshot().Missing(state.KeyNPSMetrics) != nil {
		return ErrFoundationFailed
	}
	o.checkpointAfter(ctx, st, "foundation", logger)

	for _, group := range analysisGroups {
		steps, err := o.buildSteps(group, deps, logger)
		if err != nil {
			return err
		}
		exec.runGroup(ctx, st, steps, nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	o.checkpointAfter(ctx, st, "analysis", logger)

	for _, group := range consultingGroups {
		steps, err := o.buildSteps(group, deps, logger)
		if err != nil {
			return err
		}
		exec.runGroup(ctx, st, steps, gate)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	o.checkpointAfter(ctx, st, "consulting", logger)
	return nil
}

// buildSteps instantiates the agents for a group.
func (o *Orchestrator) buildSteps(kinds []agent.Kind, deps agent.Deps, logger *zap.Logger) ([]step, error) {
	steps := make([]step, 0, len(kinds))
	for _, kind := range kinds {
		a, desc, err := o.registry.Create(kind, deps, nil)
		if err != nil {
			return nil, fmt.Errorf("building pass: %w", err)
		}
		steps = append(steps, step{
			kind:   kind,
			agent:  a,
			runner: agent.NewRunner(a, desc, o.opts.Retry, logger),
			gated:  gatedKinds[kind],
		})
	}
	return steps, nil
}

// checkpointAfter persists state after a pass. Checkpoint failures are
// logged, never fatal.
func (o *Orchestrator) checkpointAfter(ctx context.Context, st *state.State, pass string, logger *zap.Logger) {
	if !o.opts.EnableCheckpointing || o.checkpoints == nil {
		return
	}
	if err := o.checkpoints.Save(ctx, st.WorkflowID(), st); err != nil {
		logger.Warn("checkpoint failed",
			zap.String("pass", pass),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) assemble(workflowID string, st *state.State, before llm.Stats, elapsed time.Duration, execErr error) *Result {
	after := o.client.Stats()

	result := &Result{
		WorkflowID:      workflowID,
		State:           st,
		CompletedAgents: st.CompletedAgents(),
		FailedAgents:    st.FailedAgents(),
		Errors:          st.Errors(),
		Warnings:        st.Warnings(),
		RemoteCalls:     after.Calls - before.Calls,
		CacheHits:       after.CacheHits - before.CacheHits,
		TokensUsed:      after.TotalTokens - before.TotalTokens,
		Duration:        elapsed,
	}

	switch {
	case execErr != nil:
		result.Status = StatusFailed
		result.Errors = append(result.Errors, execErr.Error())
	case len(result.FailedAgents) > 0:
		result.Status = StatusPartial
	default:
		result.Status = StatusCompleted
	}
	return result
}

func (o *Orchestrator) record(ctx context.Context, result *Result) {
	attrs := metric.WithAttributes(attribute.String("status", string(result.Status)))
	if o.workflowCounter != nil {
		o.workflowCounter.Add(ctx, 1, attrs)
	}
	if o.durationHist != nil {
		o.durationHist.Record(ctx, result.Duration.Seconds(), attrs)
	}
	if o.failureCounter != nil && len(result.FailedAgents) > 0 {
		for _, id := range result.FailedAgents {
			o.failureCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", id)))
		}
	}
}
