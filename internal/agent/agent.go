// Package agent defines the agent lifecycle contract: every analysis unit
// validates its required inputs, processes a read-only state snapshot, and
// returns a result that the pass executor merges centrally.
package agent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/syncport-ai/npsd/internal/llm"
	"github.com/syncport-ai/npsd/internal/state"
)

// Status is the execution status of an agent invocation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Result is the outcome of one agent invocation. It is consumed by the
// pass executor and discarded once merged into workflow state.
type Result struct {
	Kind       Kind
	Status     Status
	Data       map[string]any
	Insights   []state.Insight
	Errors     []string
	Warnings   []string
	Confidence float64
	Duration   time.Duration
}

// Completed reports whether the invocation succeeded.
func (r *Result) Completed() bool {
	return r.Status == StatusCompleted
}

// Agent is the contract every analysis unit implements.
type Agent interface {
	// Kind identifies the agent.
	Kind() Kind

	// Validate checks that the snapshot carries the agent's required
	// inputs. A *ValidationError fails the agent immediately without
	// retry.
	Validate(snap *state.Snapshot) error

	// Process runs the analysis against a read-only snapshot and returns
	// a result carrying the agent's namespaced output patch.
	Process(ctx context.Context, snap *state.Snapshot) (*Result, error)
}

// Degradable is implemented by agents that can produce a reduced-fidelity
// payload when upstream confidence is too low for their full output.
type Degradable interface {
	// Degraded returns the lower-fidelity substitute for full.Data.
	Degraded(full *Result) map[string]any
}

// Descriptor carries an agent's identity and default configuration.
// Built once at registry construction and immutable thereafter.
type Descriptor struct {
	Kind       Kind
	Name       string
	Layer      Layer
	MaxRetries int
	Timeout    time.Duration
	Options    map[string]any
}

// Deps are the collaborators injected into agent constructors. There are
// no package-level singletons; everything an agent needs arrives here.
type Deps struct {
	LLM    llm.Client
	Logger *zap.Logger
}

// Constructor builds an agent instance from its descriptor and deps.
type Constructor func(desc Descriptor, deps Deps) Agent

// Layer-specific validation helpers.

// RequireSurveyInput validates foundation-layer input: the raw survey
// record collection must be present and non-empty.
func RequireSurveyInput(snap *state.Snapshot) error {
	if len(snap.Responses()) == 0 {
		return &ValidationError{MissingKeys: []string{state.KeySurveyResponses}}
	}
	return nil
}

// RequireFoundationOutput validates analysis-layer input: the computed
// NPS aggregate from the foundation pass must be present.
func RequireFoundationOutput(snap *state.Snapshot) error {
	if missing := snap.Missing(state.KeyNPSMetrics); len(missing) > 0 {
		return &ValidationError{MissingKeys: missing}
	}
	return nil
}

// RequireAnalysisOutput validates consulting-layer input: both foundation
// and analysis outputs must be present.
func RequireAnalysisOutput(snap *state.Snapshot) error {
	if missing := snap.Missing(state.KeyNPSMetrics, state.KeyAnalysisSynthesis); len(missing) > 0 {
		return &ValidationError{MissingKeys: missing}
	}
	return nil
}
