package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/labcheck/pkg/sanitize"
)

var scrubFlags struct {
	report bool
}

var scrubCmd = &cobra.Command{
	Use:   "scrub [file]",
	Short: "Redact sensitive content from a script",
	Long: `Redact API keys, credentials, emails, and personal file paths from a
script without running analysis. The redacted text goes to stdout.

Examples:
  # Redact a script
  labcheck scrub experiment.py

  # Redact from stdin
  cat experiment.py | labcheck scrub -

  # Print the redaction report to stderr as well
  labcheck scrub --report experiment.py`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScrub,
}

func init() {
	scrubCmd.Flags().BoolVar(&scrubFlags.report, "report", false, "print a redaction report to stderr")
}

func runScrub(cmd *cobra.Command, args []string) error {
	doc, err := readSource(args)
	if err != nil {
		return err
	}
	if doc.Text == "" {
		return fmt.Errorf("no content to scrub")
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	scanner, err := sanitize.New(cfg.Sanitize)
	if err != nil {
		return err
	}

	result := scanner.Scan(doc.Text)
	fmt.Fprint(cmd.OutOrStdout(), result.Redacted)

	if result.Report.Total > 0 {
		fmt.Fprintf(os.Stderr, "\n[labcheck] Redacted %d sensitive span(s), risk %s\n", result.Report.Total, result.Report.Risk)
	}
	if scrubFlags.report {
		for cat, n := range result.Report.Counts {
			fmt.Fprintf(os.Stderr, "[labcheck]   %s: %d\n", cat, n)
		}
		for _, rec := range sanitize.Recommendations(result.Report) {
			fmt.Fprintf(os.Stderr, "[labcheck]   %s\n", rec)
		}
	}

	return nil
}
