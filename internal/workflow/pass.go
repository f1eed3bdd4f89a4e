package workflow

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/syncport-ai/npsd/internal/agent"
	"github.com/syncport-ai/npsd/internal/state"
)

// step is one agent scheduled within a pass.
type step struct {
	kind   agent.Kind
	agent  agent.Agent
	runner *agent.Runner
	gated  bool
}

// passExecutor runs agents against workflow state. It is the only writer:
// agents see read-only snapshots and their patches are merged centrally.
type passExecutor struct {
	logger      *zap.Logger
	maxParallel int
}

func newPassExecutor(maxParallel int, logger *zap.Logger) *passExecutor {
	if maxParallel < 1 {
		maxParallel = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &passExecutor{logger: logger, maxParallel: maxParallel}
}

// runSequential executes steps one at a time, merging each successful
// patch before the next step starts so later agents see earlier outputs.
// A failure is recorded and the chain continues.
func (e *passExecutor) runSequential(ctx context.Context, st *state.State, steps []step, gate *Gate) {
	for _, s := range steps {
		if ctx.Err() != nil {
			return
		}
		snap := st.Snapshot()
		result := s.runner.Execute(ctx, snap)
		if s.gated && gate != nil {
			result = gate.Apply(snap, s.agent, result)
		}
		e.apply(st, result)
	}
}

// runGroup executes steps concurrently against a single snapshot taken at
// group start. Siblings never see each other's output; successful patches
// are merged in one pass after all steps settle.
func (e *passExecutor) runGroup(ctx context.Context, st *state.State, steps []step, gate *Gate) {
	if len(steps) == 0 {
		return
	}
	snap := st.Snapshot()

	results := make(chan *agent.Result, len(steps))
	sem := make(chan struct{}, e.maxParallel)
	var wg sync.WaitGroup

	for _, s := range steps {
		wg.Add(1)
		go func(s step) {
			defer wg.Done()

			if err := ctx.Err(); err != nil {
				results <- &agent.Result{
					Kind:   s.kind,
					Status: agent.StatusFailed,
					Errors: []string{err.Error()},
				}
				return
			}

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results <- &agent.Result{
					Kind:   s.kind,
					Status: agent.StatusFailed,
					Errors: []string{ctx.Err().Error()},
				}
				return
			}

			result := s.runner.Execute(ctx, snap)
			if s.gated && gate != nil {
				result = gate.Apply(snap, s.agent, result)
			}
			results <- result
		}(s)
	}

	wg.Wait()
	close(results)

	collected := make([]*agent.Result, 0, len(steps))
	for result := range results {
		collected = append(collected, result)
	}
	// Deterministic merge order regardless of completion order.
	sort.Slice(collected, func(i, j int) bool { return collected[i].Kind < collected[j].Kind })
	for _, result := range collected {
		e.apply(st, result)
	}
}

// apply merges one result into workflow state.
func (e *passExecutor) apply(st *state.State, result *agent.Result) {
	id := result.Kind.String()
	if result.Completed() {
		st.Merge(id, result.Data)
		st.RecordCompleted(id)
		e.logger.Debug("agent completed",
			zap.Stringer("kind", result.Kind),
			zap.Duration("duration", result.Duration),
			zap.Float64("confidence", result.Confidence),
		)
	} else {
		st.RecordFailed(id, result.Errors...)
		e.logger.Warn("agent failed",
			zap.Stringer("kind", result.Kind),
			zap.Strings("errors", result.Errors),
		)
	}
	st.AddWarnings(id, result.Warnings...)
}
