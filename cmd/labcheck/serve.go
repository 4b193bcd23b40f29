package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/labcheck/internal/server"
	"github.com/fyrsmithlabs/labcheck/pkg/analyzer"
	"github.com/fyrsmithlabs/labcheck/pkg/sanitize"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the labcheck HTTP server",
	Long: `Run the labcheck HTTP server, exposing analysis and redaction over a
JSON API.

Endpoints:
  GET  /health
  POST /api/v1/analyze
  POST /api/v1/scrub

Examples:
  # Start with config defaults (localhost:9290)
  labcheck serve

  # Bind elsewhere via environment
  LABCHECK_SERVER_PORT=8080 labcheck serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	acfg, err := cfg.ToAnalyzer()
	if err != nil {
		return err
	}

	scanner, err := sanitize.New(cfg.Sanitize)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(analyzer.New(logger), scanner, acfg, logger, &server.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case <-cmd.Context().Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
