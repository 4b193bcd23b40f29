package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/labcheck/pkg/analysis"
	"github.com/fyrsmithlabs/labcheck/pkg/sanitize"
)

// Color palette.
var (
	colorRed    = lipgloss.Color("#ff5555")
	colorGreen  = lipgloss.Color("#50fa7b")
	colorYellow = lipgloss.Color("#f1fa8c")
	colorBlue   = lipgloss.Color("#8be9fd")
	colorDim    = lipgloss.Color("#6272a4")
)

// Style definitions.
var (
	headerStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true)

	categoryStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true)

	criticalStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	infoStyle = lipgloss.NewStyle().
			Foreground(colorBlue)

	locStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	excerptStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	okStyle = lipgloss.NewStyle().
		Foreground(colorGreen)
)

func severityStyle(sev analysis.Severity) lipgloss.Style {
	switch sev {
	case analysis.Critical:
		return criticalStyle
	case analysis.Warn:
		return warnStyle
	default:
		return infoStyle
	}
}

// renderResult renders an analysis result for the terminal. Structure
// matches analysis.RenderText; only styling is added.
func renderResult(r *analysis.Result) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("Analysis %s", r.Status)))
	fmt.Fprintf(&b, " (%d findings)\n", len(r.Findings))

	grouped := r.ByCategory()
	for _, cat := range analysis.Categories() {
		findings := grouped[cat]
		if len(findings) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s\n", categoryStyle.Render(string(cat)))
		for _, f := range findings {
			loc := ""
			switch {
			case f.StartLine > 0 && f.EndLine > f.StartLine:
				loc = fmt.Sprintf("lines %d-%d", f.StartLine, f.EndLine)
			case f.StartLine > 0:
				loc = fmt.Sprintf("line %d", f.StartLine)
			}
			fmt.Fprintf(&b, "  %s %s", severityStyle(f.Severity).Render("["+string(f.Severity)+"]"), f.Title)
			if loc != "" {
				fmt.Fprintf(&b, " %s", locStyle.Render("("+loc+")"))
			}
			b.WriteString("\n")
			if f.Explanation != "" {
				fmt.Fprintf(&b, "      %s\n", f.Explanation)
			}
			if f.Excerpt != "" {
				fmt.Fprintf(&b, "      %s\n", excerptStyle.Render("> "+f.Excerpt))
			}
			if f.Suggestion != "" {
				fmt.Fprintf(&b, "      suggestion: %s\n", f.Suggestion)
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(renderRisk(r.Report))
	return b.String()
}

// renderRisk renders the sanitization footer.
func renderRisk(rep sanitize.Report) string {
	label := fmt.Sprintf("risk: %s", rep.Risk)
	switch rep.Risk {
	case sanitize.RiskHigh:
		label = criticalStyle.Render(label)
	case sanitize.RiskLow:
		label = warnStyle.Render(label)
	default:
		label = okStyle.Render(label)
	}

	if rep.Total == 0 {
		return label + "\n"
	}

	note := fmt.Sprintf(" (%d sensitive spans", rep.Total)
	if rep.SafeToTransmit {
		note += ", transmission overridden)"
	} else {
		note += ", transmission blocked)"
	}
	return label + note + "\n"
}
