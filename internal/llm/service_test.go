package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncport-ai/npsd/internal/retry"
)

// fakeProvider counts calls and fails the first failUntil of them.
type fakeProvider struct {
	mu        sync.Mutex
	calls     int
	failUntil int
	err       error
	content   string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failUntil {
		return nil, f.err
	}
	return &Response{Content: f.content, Model: "fake", Usage: Usage{TotalTokens: 10}}, nil
}

func (f *fakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failUntil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testServiceConfig() ServiceConfig {
	cfg := DefaultServiceConfig()
	cfg.Retry = retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Factor: 1.5}
	return cfg
}

func TestService_RequiresProvider(t *testing.T) {
	_, err := NewService(testServiceConfig(), nil, nil)
	require.Error(t, err)
}

func TestService_Generate(t *testing.T) {
	provider := &fakeProvider{content: "hello"}
	svc, err := NewService(testServiceConfig(), provider, nil)
	require.NoError(t, err)

	resp, err := svc.Generate(context.Background(), "prompt", DefaultGenerateOptions())
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.False(t, resp.Cached)
	assert.Equal(t, int64(1), svc.Stats().Calls)
	assert.Equal(t, int64(10), svc.Stats().TotalTokens)
}

func TestService_EmptyPrompt(t *testing.T) {
	svc, err := NewService(testServiceConfig(), &fakeProvider{}, nil)
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "", DefaultGenerateOptions())
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestService_CacheHitSkipsUnderlyingCall(t *testing.T) {
	provider := &fakeProvider{content: "hello"}
	svc, err := NewService(testServiceConfig(), provider, nil)
	require.NoError(t, err)

	opts := DefaultGenerateOptions()
	first, err := svc.Generate(context.Background(), "prompt", opts)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Generate(context.Background(), "prompt", opts)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Content, second.Content)

	// Exactly one underlying call for two identical requests.
	assert.Equal(t, 1, provider.callCount())
	assert.Equal(t, int64(1), svc.Stats().Calls)
	assert.Equal(t, int64(1), svc.Stats().CacheHits)
}

func TestService_DifferentOptionsMissCache(t *testing.T) {
	provider := &fakeProvider{content: "hello"}
	svc, err := NewService(testServiceConfig(), provider, nil)
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "prompt", GenerateOptions{Temperature: 0.1, MaxTokens: 100})
	require.NoError(t, err)
	_, err = svc.Generate(context.Background(), "prompt", GenerateOptions{Temperature: 0.9, MaxTokens: 100})
	require.NoError(t, err)

	assert.Equal(t, 2, provider.callCount())
}

func TestService_CacheDisabled(t *testing.T) {
	cfg := testServiceConfig()
	cfg.CacheEnabled = false
	provider := &fakeProvider{content: "hello"}
	svc, err := NewService(cfg, provider, nil)
	require.NoError(t, err)

	opts := DefaultGenerateOptions()
	_, err = svc.Generate(context.Background(), "prompt", opts)
	require.NoError(t, err)
	_, err = svc.Generate(context.Background(), "prompt", opts)
	require.NoError(t, err)

	assert.Equal(t, 2, provider.callCount())
}

func TestService_RetriesThenSucceeds(t *testing.T) {
	provider := &fakeProvider{content: "hello", failUntil: 2, err: errors.New("transient")}
	svc, err := NewService(testServiceConfig(), provider, nil)
	require.NoError(t, err)

	resp, err := svc.Generate(context.Background(), "prompt", DefaultGenerateOptions())
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, 3, provider.callCount())
}

func TestService_ExhaustsRetriesWithProviderError(t *testing.T) {
	provider := &fakeProvider{failUntil: 100, err: errors.New("down")}
	svc, err := NewService(testServiceConfig(), provider, nil)
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "prompt", DefaultGenerateOptions())
	require.Error(t, err)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "fake", provErr.Provider)
	assert.Equal(t, 3, provErr.Attempts)

	// Exactly MaxAttempts underlying attempts, no more.
	assert.Equal(t, 3, provider.callCount())
}

func TestService_FailuresAreNotCached(t *testing.T) {
	provider := &fakeProvider{content: "hello", failUntil: 3, err: errors.New("down")}
	svc, err := NewService(testServiceConfig(), provider, nil)
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "prompt", DefaultGenerateOptions())
	require.Error(t, err)

	resp, err := svc.Generate(context.Background(), "prompt", DefaultGenerateOptions())
	require.NoError(t, err)
	assert.False(t, resp.Cached)
}

func TestService_Embed(t *testing.T) {
	provider := &fakeProvider{}
	svc, err := NewService(testServiceConfig(), provider, nil)
	require.NoError(t, err)

	vector, err := svc.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vector)
}
