// Package server provides the HTTP API for labcheck.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/labcheck/pkg/analysis"
	"github.com/fyrsmithlabs/labcheck/pkg/analyzer"
	"github.com/fyrsmithlabs/labcheck/pkg/sanitize"
	"github.com/fyrsmithlabs/labcheck/pkg/script"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server exposes analysis over HTTP.
type Server struct {
	echo     *echo.Echo
	analyzer *analyzer.Analyzer
	scanner  *sanitize.Scanner
	base     analyzer.Config
	logger   *zap.Logger
	metrics  *Metrics
	config   *Config
}

// NewServer creates a new HTTP server. base is the analysis configuration
// applied to every request; per-request fields can adjust it.
func NewServer(a *analyzer.Analyzer, scanner *sanitize.Scanner, base analyzer.Config, logger *zap.Logger, cfg *Config) (*Server, error) {
	if a == nil {
		return nil, fmt.Errorf("analyzer cannot be nil")
	}
	if scanner == nil {
		return nil, fmt.Errorf("scanner cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9290,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	metrics := NewMetrics(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(metrics.Middleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		analyzer: a,
		scanner:  scanner,
		base:     base,
		logger:   logger,
		metrics:  metrics,
		config:   cfg,
	}

	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/analyze", s.handleAnalyze)
	v1.POST("/scrub", s.handleScrub)
}

// AnalyzeRequest is the request body for POST /api/v1/analyze.
type AnalyzeRequest struct {
	Name   string `json:"name"`
	Source string `json:"source"`

	// Remote overrides the configured remote toggle for this request.
	Remote *bool `json:"remote,omitempty"`
}

// AnalyzeResponse is the response body for POST /api/v1/analyze.
type AnalyzeResponse struct {
	ID     string          `json:"id"`
	Result analysis.Result `json:"result"`
}

// ScrubRequest is the request body for POST /api/v1/scrub.
type ScrubRequest struct {
	Content string `json:"content"`
}

// ScrubResponse is the response body for POST /api/v1/scrub.
type ScrubResponse struct {
	Content string          `json:"content"`
	Report  sanitize.Report `json:"report"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleAnalyze runs a full analysis over the submitted script.
func (s *Server) handleAnalyze(c echo.Context) error {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid analyze request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Source == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "source field is required")
	}

	cfg := s.base
	if req.Remote != nil {
		cfg.Remote.Enabled = *req.Remote
	}

	doc := script.Document{Name: req.Name, Text: req.Source}
	result, err := s.analyzer.Analyze(c.Request().Context(), doc, cfg)
	if err != nil {
		if errors.Is(err, analyzer.ErrInvalidConfig) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		s.logger.Error("analysis failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "analysis failed")
	}

	s.metrics.RecordAnalysis(c.Request().Context(), result)

	return c.JSON(http.StatusOK, AnalyzeResponse{
		ID:     c.Response().Header().Get(echo.HeaderXRequestID),
		Result: *result,
	})
}

// handleScrub redacts sensitive content without running analysis.
func (s *Server) handleScrub(c echo.Context) error {
	var req ScrubRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid scrub request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content field is required")
	}

	result := s.scanner.Scan(req.Content)

	s.logger.Debug("scrubbed content",
		zap.Int("findings", result.Report.Total),
		zap.Duration("duration", result.Duration),
	)

	return c.JSON(http.StatusOK, ScrubResponse{
		Content: result.Redacted,
		Report:  result.Report,
	})
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
