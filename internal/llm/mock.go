package llm

import (
	"context"
	"sync"
)

// MockClient is a scripted Client for tests. Generate returns canned
// content keyed by prompt substring, falling back to DefaultContent, and
// fails while FailCalls > 0.
type MockClient struct {
	mu sync.Mutex

	// DefaultContent is returned when no scripted match is found.
	DefaultContent string

	// Scripted maps a prompt substring to canned content.
	Scripted map[string]string

	// Embedding is returned by Embed for every input.
	Embedding []float32

	// FailCalls makes the next N calls fail with Err.
	FailCalls int

	// Err is the error returned while FailCalls > 0.
	Err error

	calls       int64
	totalTokens int64
	prompts     []string
}

var _ Client = (*MockClient)(nil)

// Generate returns scripted content and records the prompt.
func (m *MockClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.prompts = append(m.prompts, prompt)

	if m.FailCalls > 0 {
		m.FailCalls--
		return nil, m.Err
	}

	content := m.DefaultContent
	for substr, scripted := range m.Scripted {
		if substr != "" && containsSubstring(prompt, substr) {
			content = scripted
			break
		}
	}

	usage := Usage{PromptTokens: len(prompt) / 4, CompletionTokens: len(content) / 4}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	m.totalTokens += int64(usage.TotalTokens)

	return &Response{
		Content: content,
		Model:   "mock",
		Usage:   usage,
	}, nil
}

// Embed returns the configured embedding.
func (m *MockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.FailCalls > 0 {
		m.FailCalls--
		return nil, m.Err
	}
	if m.Embedding != nil {
		return m.Embedding, nil
	}
	// Deterministic toy embedding derived from the text.
	vector := make([]float32, 8)
	for i, r := range text {
		vector[i%8] += float32(r%31) / 31.0
	}
	return vector, nil
}

// Stats returns cumulative counters.
func (m *MockClient) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Calls: m.calls, TotalTokens: m.totalTokens}
}

// Prompts returns a copy of all prompts seen so far.
func (m *MockClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

func containsSubstring(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
