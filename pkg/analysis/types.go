// Package analysis defines the shared result model: findings, categories,
// severities and the aggregate analysis result.
package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/labcheck/pkg/sanitize"
)

// Category classifies what a finding is about.
type Category string

const (
	Performance    Category = "PERFORMANCE"
	BestPractice   Category = "BEST_PRACTICE"
	BuilderMapping Category = "BUILDER_MAPPING"
	Privacy        Category = "PRIVACY"
)

// Categories lists all categories in presentation order.
func Categories() []Category {
	return []Category{Performance, BestPractice, BuilderMapping, Privacy}
}

// ParseCategory validates a category name (case-insensitive).
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case Performance, BestPractice, BuilderMapping, Privacy:
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Severity indicates how important a finding is. It is informational only
// and never used as an ordering key.
type Severity string

const (
	Info     Severity = "INFO"
	Warn     Severity = "WARN"
	Critical Severity = "CRITICAL"
)

// ParseSeverity validates a severity name (case-insensitive).
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToUpper(strings.TrimSpace(s)))
	switch sev {
	case Info, Warn, Critical:
		return sev, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Source attributes a finding to the local detector or a remote provider.
type Source string

// SourceLocal marks findings produced by the local pattern detector.
const SourceLocal Source = "LOCAL"

// RemoteSource returns the source tag for a provider, e.g. "REMOTE_openai".
func RemoteSource(provider string) Source {
	return Source("REMOTE_" + provider)
}

// IsRemote reports whether the finding came from a provider.
func (s Source) IsRemote() bool {
	return strings.HasPrefix(string(s), "REMOTE_")
}

// Finding is a single actionable suggestion. Immutable once created.
type Finding struct {
	Category    Category `json:"category"`
	Severity    Severity `json:"severity"`
	Title       string   `json:"title"`
	Explanation string   `json:"explanation,omitempty"`
	Excerpt     string   `json:"excerpt,omitempty"`
	Suggestion  string   `json:"suggestion,omitempty"`
	StartLine   int      `json:"start_line,omitempty"`
	EndLine     int      `json:"end_line,omitempty"`
	Source      Source   `json:"source"`
}

// Overlaps reports whether two findings cover intersecting line ranges.
// Findings without line information never collide.
func (f Finding) Overlaps(other Finding) bool {
	if f.StartLine == 0 || other.StartLine == 0 {
		return false
	}
	fEnd, oEnd := f.EndLine, other.EndLine
	if fEnd == 0 {
		fEnd = f.StartLine
	}
	if oEnd == 0 {
		oEnd = other.StartLine
	}
	return f.StartLine <= oEnd && other.StartLine <= fEnd
}

// Status describes how complete an analysis result is.
type Status string

const (
	// StatusComplete: local detection ran and remote analysis either
	// succeeded or was not requested.
	StatusComplete Status = "COMPLETE"

	// StatusPartialLocalOnly: local findings are present but remote
	// analysis failed, was blocked by risk policy, or the script could only
	// be partially analyzed.
	StatusPartialLocalOnly Status = "PARTIAL_LOCAL_ONLY"

	// StatusFailed: local detection could not run at all.
	StatusFailed Status = "FAILED"
)

// Result is the aggregate outcome of one analysis request. It is built once
// by the aggregator and never mutated by presenters.
type Result struct {
	Seq      uint64          `json:"seq"`
	Status   Status          `json:"status"`
	Findings []Finding       `json:"findings"`
	Report   sanitize.Report `json:"risk_report"`
	Duration time.Duration   `json:"duration"`
}

// ByCategory groups findings by category, preserving each group's internal
// order.
func (r *Result) ByCategory() map[Category][]Finding {
	grouped := make(map[Category][]Finding)
	for _, f := range r.Findings {
		grouped[f.Category] = append(grouped[f.Category], f)
	}
	return grouped
}
