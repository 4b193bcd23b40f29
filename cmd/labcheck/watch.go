package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/labcheck/pkg/analysis"
	"github.com/fyrsmithlabs/labcheck/pkg/analyzer"
	"github.com/fyrsmithlabs/labcheck/pkg/script"
)

var watchFlags struct {
	debounce time.Duration
}

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Re-analyze a script whenever it changes",
	Long: `Watch a PsychoPy script and re-run local analysis on every save.
Results from superseded edits are discarded, so the output always reflects
the latest version of the file.

Examples:
  # Watch a script while editing it
  labcheck watch experiment.py

  # Longer debounce for editors that save in bursts
  labcheck watch --debounce 1s experiment.py`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchFlags.debounce, "debounce", 300*time.Millisecond, "settle time after a change before re-analyzing")
}

// resetTimer restarts t, draining a fired-but-unread tick first so the
// restarted timer cannot deliver a stale fire.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

func runWatch(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("cannot watch %s: %w", path, err)
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	acfg, err := cfg.ToAnalyzer()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Editors replace files on save, so watch the directory and filter by
	// name instead of watching the file inode.
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	a := analyzer.New(logger)
	results := make(chan *analysis.Result)
	out := cmd.OutOrStdout()

	runOnce := func(ctx context.Context) {
		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("skipping analysis, file unreadable", zap.String("path", path), zap.Error(err))
			return
		}
		doc := script.Document{Name: base, Text: string(content)}
		result, err := a.Analyze(ctx, doc, acfg)
		if err != nil {
			logger.Error("analysis failed", zap.Error(err))
			return
		}
		select {
		case results <- result:
		case <-ctx.Done():
		}
	}

	ctx := cmd.Context()
	go runOnce(ctx)

	var (
		debounce *time.Timer
		fire     <-chan time.Time
		lastSeq  uint64
	)

	fmt.Fprintf(out, "watching %s\n", path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(watchFlags.debounce)
			} else {
				resetTimer(debounce, watchFlags.debounce)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			go runOnce(ctx)

		case result := <-results:
			// A newer edit may already be analyzing; show only the
			// freshest result.
			if result.Seq < lastSeq {
				continue
			}
			lastSeq = result.Seq
			fmt.Fprintf(out, "\n%s %s\n", strings.Repeat("-", 8), time.Now().Format(time.TimeOnly))
			fmt.Fprint(out, renderResult(result))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))
		}
	}
}
