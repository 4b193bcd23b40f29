package analysis

import (
	"fmt"
	"strings"
)

// RenderText renders a result as plain grouped text. The JSON form (via the
// struct tags on Result) carries identical finding content; only the
// presentation differs.
func RenderText(r *Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analysis %s (%d findings)\n", r.Status, len(r.Findings))

	grouped := r.ByCategory()
	for _, cat := range Categories() {
		findings := grouped[cat]
		if len(findings) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s\n", cat)
		for _, f := range findings {
			loc := ""
			switch {
			case f.StartLine > 0 && f.EndLine > f.StartLine:
				loc = fmt.Sprintf(" (lines %d-%d)", f.StartLine, f.EndLine)
			case f.StartLine > 0:
				loc = fmt.Sprintf(" (line %d)", f.StartLine)
			}
			fmt.Fprintf(&b, "  [%s] %s%s\n", f.Severity, f.Title, loc)
			if f.Explanation != "" {
				fmt.Fprintf(&b, "      %s\n", f.Explanation)
			}
			if f.Excerpt != "" {
				fmt.Fprintf(&b, "      > %s\n", f.Excerpt)
			}
			if f.Suggestion != "" {
				fmt.Fprintf(&b, "      suggestion: %s\n", f.Suggestion)
			}
		}
	}

	fmt.Fprintf(&b, "\nrisk: %s", r.Report.Risk)
	if r.Report.Total > 0 {
		fmt.Fprintf(&b, " (%d sensitive spans", r.Report.Total)
		if r.Report.SafeToTransmit {
			b.WriteString(", transmission overridden)")
		} else {
			b.WriteString(", transmission blocked)")
		}
	}
	b.WriteString("\n")

	return b.String()
}
