package analyzer

import (
	"fmt"

	"github.com/fyrsmithlabs/labcheck/pkg/analysis"
	"github.com/fyrsmithlabs/labcheck/pkg/provider"
	"github.com/fyrsmithlabs/labcheck/pkg/sanitize"
)

// remoteOutcome captures what happened to the provider escalation.
type remoteOutcome struct {
	requested bool
	blocked   bool // risk policy stopped the call before it was attempted
	findings  []analysis.Finding
	err       error
}

// aggregate merges local findings with the remote outcome into one result
// body. Local findings come first, then remote, each stream keeping its
// internal order; severity is never used as an ordering key.
//
// Two findings are duplicates when they share a category and their line
// ranges overlap, regardless of source. The first seen wins, so local
// findings shadow remote ones.
func aggregate(local []analysis.Finding, remote remoteOutcome) ([]analysis.Finding, analysis.Status) {
	merged := make([]analysis.Finding, 0, len(local)+len(remote.findings)+1)
	merged = append(merged, local...)
	merged = append(merged, remote.findings...)

	if remote.requested {
		if remote.blocked {
			merged = append(merged, blockedFinding())
		} else if remote.err != nil {
			merged = append(merged, failureFinding(remote.err))
		}
	}

	deduped := dedupe(merged)

	status := analysis.StatusComplete
	if remote.requested && (remote.blocked || remote.err != nil) {
		status = analysis.StatusPartialLocalOnly
	}
	return deduped, status
}

func dedupe(findings []analysis.Finding) []analysis.Finding {
	kept := make([]analysis.Finding, 0, len(findings))
	for _, f := range findings {
		dup := false
		for _, k := range kept {
			if k.Category == f.Category && k.Overlaps(f) {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, f)
		}
	}
	return kept
}

// blockedFinding reports that the risk policy stopped transmission.
func blockedFinding() analysis.Finding {
	return analysis.Finding{
		Category:    analysis.Privacy,
		Severity:    analysis.Warn,
		Title:       "Remote analysis blocked: sensitive content detected",
		Explanation: "The script contains sensitive content and transmission was not overridden, so it was never sent to the provider. Remove the sensitive values or acknowledge the risk to enable remote analysis.",
		Source:      analysis.SourceLocal,
	}
}

// failureFinding converts a provider failure into a status note so the
// result degrades instead of aborting.
func failureFinding(err error) analysis.Finding {
	return analysis.Finding{
		Category:    analysis.Privacy,
		Severity:    analysis.Info,
		Title:       fmt.Sprintf("Remote analysis unavailable (%s)", provider.Kind(err)),
		Explanation: "Local findings are unaffected. The provider call failed once and was not retried.",
		Source:      analysis.SourceLocal,
	}
}

// parseFinding describes a parse failure as a finding, so degraded analyses
// explain themselves.
func parseFinding(err error) analysis.Finding {
	f := analysis.Finding{
		Category:    analysis.BestPractice,
		Severity:    analysis.Warn,
		Title:       "Script could not be fully parsed",
		Explanation: fmt.Sprintf("Structural checks were skipped: %v. Line-based checks still ran.", err),
		Source:      analysis.SourceLocal,
	}
	return f
}

// privacyFindings surfaces the sanitizer's recommendations as findings when
// the scan found anything.
func privacyFindings(report sanitize.Report) []analysis.Finding {
	if report.Total == 0 {
		return nil
	}
	sev := analysis.Warn
	if report.Risk == sanitize.RiskHigh {
		sev = analysis.Critical
	}
	return []analysis.Finding{{
		Category:    analysis.Privacy,
		Severity:    sev,
		Title:       fmt.Sprintf("Sensitive content detected (%d spans, risk %s)", report.Total, report.Risk),
		Explanation: "Sensitive values were found in the script. They are redacted before any transmission, but consider removing them from the source entirely.",
		Source:      analysis.SourceLocal,
	}}
}
