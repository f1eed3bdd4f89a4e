package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/syncport-ai/npsd/internal/retry"
)

const instrumentationName = "github.com/syncport-ai/npsd/internal/llm"

// ServiceConfig configures the resilient client.
type ServiceConfig struct {
	// Retry is the backoff policy for failed calls.
	Retry retry.Policy `koanf:"retry"`

	// CacheEnabled turns the response cache on.
	CacheEnabled bool `koanf:"cache_enabled"`

	// CacheTTL is the time-to-live for cached responses.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// CacheMaxEntries bounds the cache (LRU eviction beyond this).
	CacheMaxEntries int `koanf:"cache_max_entries"`

	// RequestsPerSecond rate-limits underlying calls. Zero disables.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Retry:           retry.DefaultPolicy(),
		CacheEnabled:    true,
		CacheTTL:        defaultCacheTTL,
		CacheMaxEntries: defaultCacheEntries,
	}
}

// Service implements Client over a single Provider, adding response
// caching, retry with backoff, rate limiting, and cumulative stats.
type Service struct {
	config   ServiceConfig
	provider Provider
	cache    *responseCache
	limiter  *rate.Limiter
	logger   *zap.Logger

	calls       atomic.Int64
	cacheHits   atomic.Int64
	totalTokens atomic.Int64

	meter        metric.Meter
	callCounter  metric.Int64Counter
	hitCounter   metric.Int64Counter
	tokenCounter metric.Int64Counter
}

// NewService creates a resilient client over provider.
func NewService(cfg ServiceConfig, provider Provider, logger *zap.Logger) (*Service, error) {
	if provider == nil {
		return nil, errors.New("provider is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Retry.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		config:   cfg,
		provider: provider,
		logger:   logger,
		meter:    otel.Meter(instrumentationName),
	}
	if cfg.CacheEnabled {
		s.cache = newResponseCache(cfg.CacheTTL, cfg.CacheMaxEntries)
	}
	if cfg.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	s.initMetrics()
	return s, nil
}

func (s *Service) initMetrics() {
	var err error

	s.callCounter, err = s.meter.Int64Counter(
		"npsd.llm.calls_total",
		metric.WithDescription("Total remote generation calls issued, excluding cache hits"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		s.logger.Warn("failed to create call counter", zap.Error(err))
	}

	s.hitCounter, err = s.meter.Int64Counter(
		"npsd.llm.cache_hits_total",
		metric.WithDescription("Total generation requests served from cache"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		s.logger.Warn("failed to create cache hit counter", zap.Error(err))
	}

	s.tokenCounter, err = s.meter.Int64Counter(
		"npsd.llm.tokens_total",
		metric.WithDescription("Total tokens consumed across all calls"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		s.logger.Warn("failed to create token counter", zap.Error(err))
	}
}

// Generate produces a completion. A non-expired cached response for the
// same (prompt, options) is returned immediately with Cached=true and no
// underlying call. On cache miss the call is retried with exponential
// backoff; after the last attempt fails a *ProviderError is returned.
func (s *Service) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Response, error) {
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	var key string
	if s.cache != nil {
		key = cacheKey(prompt, opts)
		if resp := s.cache.get(key); resp != nil {
			s.cacheHits.Add(1)
			if s.hitCounter != nil {
				s.hitCounter.Add(ctx, 1)
			}
			return resp, nil
		}
	}

	start := time.Now()
	resp, err := retry.Do(ctx, s.config.Retry, func() (*Response, error) {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, retry.Permanent(err)
			}
		}
		s.calls.Add(1)
		if s.callCounter != nil {
			s.callCounter.Add(ctx, 1, metric.WithAttributes(
				attribute.String("provider", s.provider.Name()),
			))
		}
		return s.provider.Generate(ctx, prompt, opts)
	})
	if err != nil {
		s.logger.Warn("generation failed",
			zap.String("provider", s.provider.Name()),
			zap.Int("attempts", s.config.Retry.MaxAttempts),
			zap.Error(err),
		)
		return nil, &ProviderError{
			Provider: s.provider.Name(),
			Attempts: s.config.Retry.MaxAttempts,
			Err:      err,
		}
	}

	resp.LatencyMS = time.Since(start).Milliseconds()
	s.totalTokens.Add(int64(resp.Usage.TotalTokens))
	if s.tokenCounter != nil {
		s.tokenCounter.Add(ctx, int64(resp.Usage.TotalTokens))
	}

	if s.cache != nil {
		s.cache.set(key, resp)
	}
	return resp, nil
}

// Embed produces an embedding vector, retried under the same policy.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	vector, err := retry.Do(ctx, s.config.Retry, func() ([]float32, error) {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, retry.Permanent(err)
			}
		}
		s.calls.Add(1)
		return s.provider.Embed(ctx, text)
	})
	if err != nil {
		return nil, &ProviderError{
			Provider: s.provider.Name(),
			Attempts: s.config.Retry.MaxAttempts,
			Err:      err,
		}
	}
	return vector, nil
}

// Stats returns cumulative counters for the lifetime of this client.
func (s *Service) Stats() Stats {
	return Stats{
		Calls:       s.calls.Load(),
		CacheHits:   s.cacheHits.Load(),
		TotalTokens: s.totalTokens.Load(),
	}
}
