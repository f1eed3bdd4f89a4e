// Npsd is the survey analysis daemon.
//
// It runs a fixed three-pass agent workflow over raw survey responses and
// produces an executive report. The serve command exposes the workflow over
// HTTP; the analyze command runs it once against a local file.
//
// Usage:
//
//	# Start the daemon with a config file
//	npsd serve --config /etc/npsd/config.yaml
//
//	# One-shot analysis of a responses file
//	npsd analyze --config config.yaml --input responses.json --format html
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/syncport-ai/npsd/internal/checkpoint"
	"github.com/syncport-ai/npsd/internal/config"
	"github.com/syncport-ai/npsd/internal/llm"
	"github.com/syncport-ai/npsd/internal/logging"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// configPath is the shared --config flag.
var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "npsd",
	Short: "Survey analysis workflow daemon",
	Long: `npsd runs a three-pass agent workflow over customer survey responses:
a foundation pass computes metrics and clusters comments, an analysis pass
examines segments and drivers in parallel, and a consulting pass produces
recommendations and an executive summary.`,
	Version: fmt.Sprintf("%s (commit %s, built %s)", version, gitCommit, buildDate),
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
}

// loadConfig loads configuration and builds the logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := logging.New(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, logger, nil
}

// buildClient assembles the model client: HTTP provider wrapped in a caching
// service, with failover to a backup endpoint when one is configured.
func buildClient(cfg *config.Config, logger *zap.Logger) (llm.Client, error) {
	primary, err := llm.NewHTTPProvider(cfg.LLM.Primary)
	if err != nil {
		return nil, fmt.Errorf("primary provider: %w", err)
	}
	primarySvc, err := llm.NewService(cfg.LLM.Service, primary, logger)
	if err != nil {
		return nil, fmt.Errorf("primary service: %w", err)
	}
	if !cfg.FailoverEnabled() {
		return primarySvc, nil
	}

	backup, err := llm.NewHTTPProvider(cfg.LLM.Backup)
	if err != nil {
		return nil, fmt.Errorf("backup provider: %w", err)
	}
	backupSvc, err := llm.NewService(cfg.LLM.Service, backup, logger)
	if err != nil {
		return nil, fmt.Errorf("backup service: %w", err)
	}
	return llm.NewFailover(cfg.LLM.Failover, primarySvc, backupSvc, logger)
}

// buildCheckpoints returns the checkpoint store, or nil when checkpointing
// is disabled.
func buildCheckpoints(cfg *config.Config, logger *zap.Logger) (checkpoint.Store, error) {
	if !cfg.Workflow.EnableCheckpointing {
		return nil, nil
	}
	return checkpoint.NewFileStore(cfg.Checkpoint.Dir, logger)
}
