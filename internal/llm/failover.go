package llm

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FailoverConfig configures the failover wrapper.
type FailoverConfig struct {
	// Cooldown is how long after a failover the restore probe fires.
	Cooldown time.Duration `koanf:"cooldown"`

	// ProbeTimeout bounds a single restore probe call.
	ProbeTimeout time.Duration `koanf:"probe_timeout"`
}

// DefaultFailoverConfig returns sensible defaults.
func DefaultFailoverConfig() FailoverConfig {
	return FailoverConfig{
		Cooldown:     time.Minute,
		ProbeTimeout: 10 * time.Second,
	}
}

// Failover composes a primary and a backup client. When the primary fails,
// the failing call and all subsequent calls are served by the backup, and a
// restore probe is scheduled after the cooldown.
//
// The restore transition is explicit: the probe's success is published under
// the mutex, so only calls issued after the probe completes observe the
// primary again. Calls already in flight against the backup finish there.
// A failed probe leaves the backup active; the next backup-served call
// re-arms the probe.
type Failover struct {
	config  FailoverConfig
	primary Client
	backup  Client
	logger  *zap.Logger

	mu         sync.Mutex
	usePrimary bool
	probing    bool
}

// NewFailover creates a failover client over primary and backup.
func NewFailover(cfg FailoverConfig, primary, backup Client, logger *zap.Logger) (*Failover, error) {
	if primary == nil {
		return nil, ErrNoProvider
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Minute
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}

	return &Failover{
		config:     cfg,
		primary:    primary,
		backup:     backup,
		logger:     logger,
		usePrimary: true,
	}, nil
}

// Generate produces a completion with automatic failover.
func (f *Failover) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Response, error) {
	if f.primaryActive() {
		resp, err := f.primary.Generate(ctx, prompt, opts)
		if err == nil {
			return resp, nil
		}
		if f.backup == nil {
			return nil, err
		}
		f.failToBackup(err)
	}

	resp, err := f.backup.Generate(ctx, prompt, opts)
	if err != nil {
		f.logger.Error("backup client failed", zap.Error(err))
		return nil, err
	}
	f.armProbe()
	return resp, nil
}

// Embed produces an embedding vector with automatic failover.
func (f *Failover) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.primaryActive() {
		vector, err := f.primary.Embed(ctx, text)
		if err == nil {
			return vector, nil
		}
		if f.backup == nil {
			return nil, err
		}
		f.failToBackup(err)
	}

	vector, err := f.backup.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	f.armProbe()
	return vector, nil
}

// Stats returns counters aggregated across primary and backup.
func (f *Failover) Stats() Stats {
	stats := f.primary.Stats()
	if f.backup != nil {
		b := f.backup.Stats()
		stats.Calls += b.Calls
		stats.CacheHits += b.CacheHits
		stats.TotalTokens += b.TotalTokens
	}
	return stats
}

// UsingPrimary reports whether the next call will be issued to the primary.
func (f *Failover) UsingPrimary() bool {
	return f.primaryActive()
}

func (f *Failover) primaryActive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usePrimary
}

func (f *Failover) failToBackup(cause error) {
	f.mu.Lock()
	f.usePrimary = false
	f.mu.Unlock()

	f.logger.Warn("primary client failed, switching to backup", zap.Error(cause))
	f.armProbe()
}

// armProbe schedules a restore probe unless one is already pending or the
// primary is active again.
func (f *Failover) armProbe() {
	f.mu.Lock()
	if f.usePrimary || f.probing {
		f.mu.Unlock()
		return
	}
	f.probing = true
	f.mu.Unlock()

	time.AfterFunc(f.config.Cooldown, f.probeRestore)
}

// probeRestore issues a unique probe prompt against the primary. Unique so a
// cached response can't fake a healthy provider.
func (f *Failover) probeRestore() {
	ctx, cancel := context.WithTimeout(context.Background(), f.config.ProbeTimeout)
	defer cancel()

	probe := "health probe " + uuid.NewString()
	_, err := f.primary.Generate(ctx, probe, GenerateOptions{Temperature: 0, MaxTokens: 8})

	f.mu.Lock()
	f.probing = false
	if err == nil {
		f.usePrimary = true
	}
	f.mu.Unlock()

	if err != nil {
		f.logger.Debug("restore probe failed, staying on backup", zap.Error(err))
		return
	}
	f.logger.Info("primary client restored")
}
