package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrNoProvider is returned when neither primary nor backup can serve.
	ErrNoProvider = errors.New("no available provider")

	// ErrEmptyPrompt is returned for generation calls with an empty prompt.
	ErrEmptyPrompt = errors.New("prompt is required")
)

// ProviderError reports a remote-call failure after all retry attempts.
type ProviderError struct {
	Provider string
	Attempts int
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s failed after %d attempts: %v", e.Provider, e.Attempts, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
