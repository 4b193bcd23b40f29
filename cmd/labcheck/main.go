// Package main implements the labcheck CLI for analyzing PsychoPy
// experiment scripts.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/labcheck/internal/config"
	"github.com/fyrsmithlabs/labcheck/internal/logging"

	"go.uber.org/zap"
)

var (
	// configPath is the explicit config file location, empty for default
	configPath string
	// version information (set via ldflags during build)
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "labcheck",
	Short: "Static and AI-assisted analysis for PsychoPy experiment scripts",
	Long: `labcheck reviews PsychoPy experiment scripts for performance problems,
resource leaks, and deviations from PsychoPy best practice. Analysis runs
locally by default; with --remote, the sanitized script is also sent to a
configured LLM provider for deeper review.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/labcheck/config.yaml)")
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(scrubCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig reads the config file and environment, then builds the logger
// it describes.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}

	return cfg, logger, nil
}
