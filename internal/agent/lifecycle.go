package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/syncport-ai/npsd/internal/retry"
	"github.com/syncport-ai/npsd/internal/state"
)

// Runner drives one agent through its lifecycle:
//
//	Pending -> Validating -> Running -> Completed | Failed
//
// Validation failures are terminal and non-retryable. Process failures are
// retried under the retry policy. Execute never lets an error escape: every
// outcome is a Result, with the execution duration recorded regardless.
type Runner struct {
	agent  Agent
	desc   Descriptor
	policy retry.Policy
	logger *zap.Logger
}

// NewRunner wraps an agent with its lifecycle.
func NewRunner(a Agent, desc Descriptor, policy retry.Policy, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if desc.MaxRetries > 0 {
		policy.MaxAttempts = desc.MaxRetries
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Runner{
		agent:  a,
		desc:   desc,
		policy: policy,
		logger: logger.With(zap.Stringer("agent", desc.Kind)),
	}
}

// Kind returns the wrapped agent's kind.
func (r *Runner) Kind() Kind { return r.agent.Kind() }

// Descriptor returns the runner's descriptor.
func (r *Runner) Descriptor() Descriptor { return r.desc }

// Agent returns the wrapped agent.
func (r *Runner) Agent() Agent { return r.agent }

// Execute runs the full lifecycle against snap.
func (r *Runner) Execute(ctx context.Context, snap *state.Snapshot) *Result {
	start := time.Now()

	fail := func(errs ...string) *Result {
		return &Result{
			Kind:     r.agent.Kind(),
			Status:   StatusFailed,
			Errors:   errs,
			Duration: time.Since(start),
		}
	}

	if err := r.agent.Validate(snap); err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			r.logger.Warn("validation failed", zap.Strings("missing_keys", vErr.MissingKeys))
		} else {
			r.logger.Warn("validation failed", zap.Error(err))
		}
		return fail(fmt.Sprintf("validation failed: %v", err))
	}

	result, err := retry.Do(ctx, r.policy, func() (*Result, error) {
		return r.process(ctx, snap)
	})
	if err != nil {
		r.logger.Error("agent failed",
			zap.Int("attempts", r.policy.MaxAttempts),
			zap.Error(err),
		)
		return fail(err.Error())
	}

	result.Kind = r.agent.Kind()
	result.Duration = time.Since(start)
	if result.Status == "" {
		result.Status = StatusCompleted
	}

	r.logger.Debug("agent completed",
		zap.Duration("duration", result.Duration),
		zap.Float64("confidence", result.Confidence),
	)
	return result
}

// process runs one Process attempt under the descriptor timeout, turning
// panics and unexpected errors into retryable ExecutionErrors.
func (r *Runner) process(ctx context.Context, snap *state.Snapshot) (result *Result, err error) {
	if r.desc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.desc.Timeout)
		defer cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = &ExecutionError{Kind: r.agent.Kind(), Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	result, err = r.agent.Process(ctx, snap)
	if err != nil {
		var execErr *ExecutionError
		if errors.As(err, &execErr) {
			return nil, err
		}
		return nil, &ExecutionError{Kind: r.agent.Kind(), Err: err}
	}
	if result == nil {
		return nil, &ExecutionError{Kind: r.agent.Kind(), Err: errors.New("nil result")}
	}
	return result, nil
}
