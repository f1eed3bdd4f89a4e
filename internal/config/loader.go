package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/syncport-ai/npsd/internal/llm"
)

const (
	// envPrefix scopes the environment overrides to this service.
	envPrefix = "NPSD_"

	maxConfigFileSize = 1 << 20
)

// Load reads configuration with the following precedence, highest first:
//
//  1. Environment variables (NPSD_SERVER_HTTP_PORT, NPSD_LLM_PRIMARY_API_KEY, ...)
//  2. YAML config file, when path is non-empty
//  3. Defaults
//
// Environment variables map to config keys by stripping the prefix,
// lowercasing, and splitting on the first underscore into section.field:
//
//	NPSD_SERVER_HTTP_PORT    -> server.http_port
//	NPSD_WORKFLOW_LANGUAGE   -> workflow.language
//	NPSD_CHECKPOINT_DIR      -> checkpoint.dir
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		section, rest := parts[0], parts[1]
		// The llm section nests one level deeper (llm.primary.base_url).
		if section == "llm" {
			if sub := strings.SplitN(rest, "_", 2); len(sub) == 2 {
				return section + "." + sub[0] + "." + sub[1]
			}
		}
		return section + "." + rest
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment overrides: %w", err)
	}

	// Boolean defaults cannot be recovered after unmarshal, so seed them
	// up front; absent keys keep these values, present keys override them.
	cfg := Config{LLM: LLMConfig{Service: llm.DefaultServiceConfig()}}
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stating config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return content, nil
}
