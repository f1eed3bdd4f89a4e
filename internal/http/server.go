// Package http provides the HTTP API for npsd.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/syncport-ai/npsd/internal/report"
	"github.com/syncport-ai/npsd/internal/state"
	"github.com/syncport-ai/npsd/internal/workflow"
)

// maxRecordsPerRequest bounds one analysis request.
const maxRecordsPerRequest = 10000

// Analyzer executes a survey analysis workflow.
type Analyzer interface {
	Execute(ctx context.Context, records []state.SurveyResponse) (*workflow.Result, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server exposes the analysis workflow over HTTP.
type Server struct {
	echo     *echo.Echo
	analyzer Analyzer
	logger   *zap.Logger
	config   *Config
}

// NewServer creates the HTTP server.
func NewServer(analyzer Analyzer, logger *zap.Logger, cfg *Config) (*Server, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8573}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:     e,
		analyzer: analyzer,
		logger:   logger,
		config:   cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/analyze", s.handleAnalyze)
}

// AnalyzeRequest is the request body for POST /api/v1/analyze.
type AnalyzeRequest struct {
	Responses []state.SurveyResponse `json:"responses"`

	// Format selects the report renderer: "json" (default) or "html".
	Format report.Format `json:"format,omitempty"`
}

// HealthResponse is the response body for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleAnalyze runs the full workflow synchronously and returns the
// rendered report.
func (s *Server) handleAnalyze(c echo.Context) error {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid analyze request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Responses) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "responses field is required")
	}
	if len(req.Responses) > maxRecordsPerRequest {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("at most %d responses per request", maxRecordsPerRequest))
	}

	renderer, err := report.New(req.Format)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := s.analyzer.Execute(c.Request().Context(), req.Responses)
	if err != nil {
		s.logger.Error("workflow execution failed", zap.Error(err))
		if result == nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "analysis unavailable")
		}
	}

	// A failed workflow still renders; the document's status field and the
	// HTTP status both carry the outcome.
	statusCode := http.StatusOK
	if result.Status == workflow.StatusFailed {
		statusCode = http.StatusUnprocessableEntity
	}

	document, err := renderer.Render(result)
	if err != nil {
		s.logger.Error("report rendering failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "report rendering failed")
	}
	return c.Blob(statusCode, renderer.ContentType(), document)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
