package sanitize

import "time"

// Span is a located sensitive match. The matched text itself is never
// retained, only offsets, line and category, so spans are safe to log.
type Span struct {
	Category    Category `json:"category"`
	Start       int      `json:"start"`
	End         int      `json:"end"`
	Line        int      `json:"line"`
	Placeholder string   `json:"placeholder"`
}

// Report aggregates the spans found in one scan.
type Report struct {
	Counts         map[Category]int `json:"counts,omitempty"`
	Total          int              `json:"total"`
	Risk           Risk             `json:"risk"`
	SafeToTransmit bool             `json:"safe_to_transmit"`

	// Overridden is set when the caller acknowledged the risk and forced
	// SafeToTransmit despite findings.
	Overridden bool `json:"overridden,omitempty"`
}

// Result is the outcome of a single scan.
type Result struct {
	Redacted string        `json:"redacted"`
	Spans    []Span        `json:"spans,omitempty"`
	Report   Report        `json:"report"`
	Duration time.Duration `json:"duration"`
}

// HasFindings returns true if any sensitive spans were detected.
func (r *Result) HasFindings() bool {
	return r.Report.Total > 0
}

func buildReport(spans []Span, override bool) Report {
	rep := Report{
		Counts:         make(map[Category]int),
		Total:          len(spans),
		Risk:           RiskNone,
		SafeToTransmit: true,
	}
	for _, s := range spans {
		rep.Counts[s.Category]++
		if s.Category.highRisk() {
			rep.Risk = RiskHigh
		} else if rep.Risk == RiskNone {
			rep.Risk = RiskLow
		}
	}
	if rep.Total > 0 {
		rep.SafeToTransmit = override
		rep.Overridden = override
	}
	if rep.Total == 0 {
		rep.Counts = nil
	}
	return rep
}

// Recommendations returns human-readable guidance for the detected categories.
func Recommendations(rep Report) []string {
	var recs []string
	if rep.Risk == RiskHigh {
		recs = append(recs, "High exposure risk detected. Remove credentials before sharing this script.")
	}
	if rep.Counts[APIKey] > 0 {
		recs = append(recs, "API keys or tokens detected. These are replaced with <API_KEY> placeholders.")
	}
	if rep.Counts[DBURL] > 0 {
		recs = append(recs, "Database URLs detected. Consider loading connection strings from the environment.")
	}
	if rep.Counts[GenericSecret] > 0 {
		recs = append(recs, "Passwords or secrets detected. These are replaced with <GENERIC_SECRET> placeholders.")
	}
	if rep.Counts[Email] > 0 {
		recs = append(recs, "Email addresses detected. These are anonymized before transmission.")
	}
	if rep.Counts[FilePath] > 0 {
		recs = append(recs, "User-specific file paths detected. Prefer relative paths in experiment scripts.")
	}
	if len(recs) == 0 {
		recs = append(recs, "No sensitive content detected.")
	}
	return recs
}
