// Package llm provides the resilient language-model client used by every
// analysis agent: response caching, retry with exponential backoff, and
// primary/backup failover.
package llm

import (
	"context"
	"time"
)

// GenerateOptions control a single generation call.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// Usage holds token accounting for a single call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the result of a generation call.
type Response struct {
	Content   string `json:"content"`
	Model     string `json:"model"`
	Usage     Usage  `json:"usage"`
	Cached    bool   `json:"cached"`
	LatencyMS int64  `json:"latency_ms"`
}

// clone returns a copy safe to hand to callers. Cache hits return clones
// so callers can't mutate the stored response.
func (r *Response) clone() *Response {
	cp := *r
	return &cp
}

// Stats holds cumulative counters for the lifetime of a client.
type Stats struct {
	Calls       int64
	CacheHits   int64
	TotalTokens int64
}

// Client is the interface agents use to invoke a language-model backend.
type Client interface {
	// Generate produces a completion for prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Response, error)

	// Embed produces an embedding vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Stats returns cumulative call counters.
	Stats() Stats
}

// Provider is a raw backend without caching or retry. Resilience is layered
// on by Service; failover composes two Services.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Response, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// DefaultGenerateOptions returns the options used when an agent does not
// override them.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Temperature: 0.1,
		MaxTokens:   4000,
	}
}

const (
	defaultCacheTTL     = time.Hour
	defaultCacheEntries = 1024
)
