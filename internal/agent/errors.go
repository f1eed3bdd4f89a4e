package agent

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind is returned when creating an agent that was never
// registered.
var ErrUnknownKind = errors.New("unknown agent kind")

// ValidationError reports missing required state keys. It is
// non-retryable: the agent fails immediately and the failure is recorded,
// not raised.
type ValidationError struct {
	MissingKeys []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required state keys: %s", strings.Join(e.MissingKeys, ", "))
}

// ExecutionError wraps an unexpected failure inside Process. It is
// retried under the agent's retry policy, like a provider error.
type ExecutionError struct {
	Kind Kind
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("agent %s execution failed: %v", e.Kind, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
