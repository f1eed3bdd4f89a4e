// Package config loads npsd configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"time"

	"github.com/syncport-ai/npsd/internal/llm"
	"github.com/syncport-ai/npsd/internal/logging"
	"github.com/syncport-ai/npsd/internal/workflow"
)

// Config is the complete npsd configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    logging.Config   `koanf:"logging"`
	LLM        LLMConfig        `koanf:"llm"`
	Workflow   workflow.Options `koanf:"workflow"`
	Checkpoint CheckpointConfig `koanf:"checkpoint"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LLMConfig wires the model providers and the resilient client.
type LLMConfig struct {
	// Primary is the main OpenAI-compatible endpoint.
	Primary llm.HTTPProviderConfig `koanf:"primary"`

	// Backup is the fallback endpoint. Leave base_url empty to disable
	// failover.
	Backup llm.HTTPProviderConfig `koanf:"backup"`

	Service  llm.ServiceConfig  `koanf:"service"`
	Failover llm.FailoverConfig `koanf:"failover"`
}

// CheckpointConfig holds the checkpoint store settings.
type CheckpointConfig struct {
	Dir string `koanf:"dir"`
}

// applyDefaults fills zero-valued fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8573
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Logging.Level == "" || cfg.Logging.Format == "" {
		defaults := logging.NewDefaultConfig()
		if cfg.Logging.Level == "" {
			cfg.Logging.Level = defaults.Level
		}
		if cfg.Logging.Format == "" {
			cfg.Logging.Format = defaults.Format
		}
	}

	svcDefaults := llm.DefaultServiceConfig()
	if cfg.LLM.Service.Retry.MaxAttempts == 0 {
		cfg.LLM.Service.Retry = svcDefaults.Retry
	}
	if cfg.LLM.Service.CacheTTL == 0 {
		cfg.LLM.Service.CacheTTL = svcDefaults.CacheTTL
	}
	if cfg.LLM.Service.CacheMaxEntries == 0 {
		cfg.LLM.Service.CacheMaxEntries = svcDefaults.CacheMaxEntries
	}

	foDefaults := llm.DefaultFailoverConfig()
	if cfg.LLM.Failover.Cooldown == 0 {
		cfg.LLM.Failover.Cooldown = foDefaults.Cooldown
	}
	if cfg.LLM.Failover.ProbeTimeout == 0 {
		cfg.LLM.Failover.ProbeTimeout = foDefaults.ProbeTimeout
	}

	wfDefaults := workflow.DefaultOptions()
	if cfg.Workflow.MaxConcurrent == 0 {
		cfg.Workflow.MaxConcurrent = wfDefaults.MaxConcurrent
	}
	if cfg.Workflow.MaxParallelAgents == 0 {
		cfg.Workflow.MaxParallelAgents = wfDefaults.MaxParallelAgents
	}
	if cfg.Workflow.ConfidenceThreshold == 0 {
		cfg.Workflow.ConfidenceThreshold = wfDefaults.ConfidenceThreshold
	}
	if cfg.Workflow.Language == "" {
		cfg.Workflow.Language = wfDefaults.Language
	}
	if cfg.Workflow.Retry.MaxAttempts == 0 {
		cfg.Workflow.Retry = wfDefaults.Retry
	}

	if cfg.Checkpoint.Dir == "" {
		cfg.Checkpoint.Dir = "/var/lib/npsd/checkpoints"
	}
}

// Validate checks the assembled configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.http_port must be in [1, 65535], got %d", c.Server.Port)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.LLM.Primary.BaseURL == "" {
		return fmt.Errorf("llm.primary.base_url is required")
	}
	if c.LLM.Primary.Model == "" {
		return fmt.Errorf("llm.primary.model is required")
	}
	if c.LLM.Backup.BaseURL != "" && c.LLM.Backup.Model == "" {
		return fmt.Errorf("llm.backup.model is required when backup is configured")
	}
	if err := c.LLM.Service.Retry.Validate(); err != nil {
		return fmt.Errorf("llm.service.retry: %w", err)
	}
	if err := c.Workflow.Validate(); err != nil {
		return fmt.Errorf("workflow: %w", err)
	}
	return nil
}

// FailoverEnabled reports whether a backup provider is configured.
func (c *Config) FailoverEnabled() bool {
	return c.LLM.Backup.BaseURL != ""
}
