package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"

	"github.com/syncport-ai/npsd/internal/agent"
	"github.com/syncport-ai/npsd/internal/agents"
	"github.com/syncport-ai/npsd/internal/config"
	httpapi "github.com/syncport-ai/npsd/internal/http"
	"github.com/syncport-ai/npsd/internal/workflow"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analysis HTTP server",
	Long: `Start the npsd HTTP server.

The server accepts survey responses on POST /api/v1/analyze, exposes
Prometheus metrics on /metrics, and reports liveness on /healthz.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received signal %v, shutting down\n", sig)
		cancel()
	}()

	return runServer(ctx)
}

// runServer initializes all dependencies and blocks until ctx is cancelled.
//
// Returns nil on graceful shutdown.
func runServer(ctx context.Context) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info("starting npsd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	// Export workflow metrics through the default Prometheus registry so the
	// /metrics endpoint serves them.
	exporter, err := otelprom.New()
	if err != nil {
		return fmt.Errorf("creating metrics exporter: %w", err)
	}
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(meterProvider)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		_ = meterProvider.Shutdown(shutdownCtx)
	}()

	orchestrator, err := buildOrchestrator(cfg, logger)
	if err != nil {
		return err
	}

	srv, err := httpapi.NewServer(orchestrator, logger, &httpapi.Config{Port: cfg.Server.Port})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// buildOrchestrator wires the model client, agent registry, and checkpoint
// store into a workflow orchestrator.
func buildOrchestrator(cfg *config.Config, logger *zap.Logger) (*workflow.Orchestrator, error) {
	client, err := buildClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	checkpoints, err := buildCheckpoints(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("checkpoint store: %w", err)
	}

	registry := agent.NewRegistry(logger)
	agents.RegisterDefaults(registry)

	orchestrator, err := workflow.New(cfg.Workflow, registry, client, checkpoints, logger)
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}
	return orchestrator, nil
}
