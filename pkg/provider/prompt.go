package provider

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/labcheck/pkg/analysis"
)

// Prompt configures what the provider is asked to look for.
type Prompt struct {
	// Categories limits the suggestion categories the provider may use.
	// Empty means all categories.
	Categories []analysis.Category

	// MaxFindings caps the number of suggestions requested.
	MaxFindings int
}

// Build renders the instruction text. The response contract is a strict JSON
// array so the adapter can normalize every provider into the same Finding
// shape.
func (p Prompt) Build() string {
	cats := p.Categories
	if len(cats) == 0 {
		cats = analysis.Categories()
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}

	max := p.MaxFindings
	if max <= 0 {
		max = 10
	}

	var b strings.Builder
	b.WriteString("You review PsychoPy experiment scripts. ")
	b.WriteString("Suggest improvements for the script below. ")
	fmt.Fprintf(&b, "Use only these categories: %s. ", strings.Join(names, ", "))
	fmt.Fprintf(&b, "Return at most %d suggestions.\n\n", max)
	b.WriteString("Respond with ONLY a JSON array, no prose, where each element is:\n")
	b.WriteString(`{"category": "...", "severity": "INFO|WARN|CRITICAL", "title": "...", ` +
		`"explanation": "...", "excerpt": "...", "suggestion": "...", ` +
		`"start_line": 0, "end_line": 0}`)
	b.WriteString("\n\nLine numbers are 1-based and refer to the script as given. " +
		"Sensitive values in the script have been replaced with <...> placeholders; ignore them.")
	return b.String()
}
