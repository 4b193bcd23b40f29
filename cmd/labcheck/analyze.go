package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/labcheck/internal/config"
	"github.com/fyrsmithlabs/labcheck/pkg/analyzer"
	"github.com/fyrsmithlabs/labcheck/pkg/script"
)

var analyzeFlags struct {
	jsonOut       bool
	remote        bool
	provider      string
	model         string
	timeout       time.Duration
	allowTransmit bool
	categories    []string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze a PsychoPy script",
	Long: `Analyze a PsychoPy script for performance problems, resource leaks, and
best-practice violations.

Examples:
  # Local analysis
  labcheck analyze experiment.py

  # Read from stdin
  cat experiment.py | labcheck analyze -

  # Include remote LLM review
  labcheck analyze --remote --provider anthropic experiment.py

  # Only performance findings, as JSON
  labcheck analyze --category PERFORMANCE --json experiment.py`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.BoolVar(&analyzeFlags.jsonOut, "json", false, "emit the result as JSON")
	f.BoolVar(&analyzeFlags.remote, "remote", false, "also submit the sanitized script to the configured LLM provider")
	f.StringVar(&analyzeFlags.provider, "provider", "", "LLM provider (openai, anthropic, googleai)")
	f.StringVar(&analyzeFlags.model, "model", "", "override the provider's default model")
	f.DurationVar(&analyzeFlags.timeout, "timeout", 0, "remote call timeout (default from config)")
	f.BoolVar(&analyzeFlags.allowTransmit, "allow-transmit", false, "transmit the sanitized script even when sensitive content was detected")
	f.StringSliceVar(&analyzeFlags.categories, "category", nil, "restrict findings to these categories (repeatable)")
}

// readSource reads the script from the named file, or stdin for "-" or no
// argument.
func readSource(args []string) (script.Document, error) {
	if len(args) == 0 || args[0] == "-" {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return script.Document{}, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return script.Document{Name: "<stdin>", Text: string(content)}, nil
	}

	content, err := os.ReadFile(args[0])
	if err != nil {
		return script.Document{}, fmt.Errorf("failed to read file %s: %w", args[0], err)
	}
	return script.Document{Name: filepath.Base(args[0]), Text: string(content)}, nil
}

// applyAnalyzeFlags merges command-line flag overrides into the loaded
// configuration, then converts it for the analyzer.
func applyAnalyzeFlags(cfg *config.Config) (analyzer.Config, error) {
	if len(analyzeFlags.categories) > 0 {
		cfg.Categories = analyzeFlags.categories
	}
	if analyzeFlags.remote {
		cfg.Remote.Enabled = true
	}
	if analyzeFlags.provider != "" {
		cfg.Remote.Provider = analyzeFlags.provider
	}
	if analyzeFlags.model != "" {
		cfg.Remote.Model = analyzeFlags.model
	}
	if analyzeFlags.timeout > 0 {
		cfg.Remote.Timeout = analyzeFlags.timeout
	}
	if analyzeFlags.allowTransmit {
		cfg.Remote.TransmitOverride = true
	}

	return cfg.ToAnalyzer()
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	doc, err := readSource(args)
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	acfg, err := applyAnalyzeFlags(cfg)
	if err != nil {
		return err
	}

	a := analyzer.New(logger)
	result, err := a.Analyze(cmd.Context(), doc, acfg)
	if err != nil {
		return err
	}

	if analyzeFlags.jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprint(cmd.OutOrStdout(), renderResult(result))
	return nil
}
