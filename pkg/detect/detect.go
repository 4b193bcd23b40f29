// Package detect implements the local pattern detector: an ordered set of
// independent rules evaluated against an immutable structural view of an
// experiment script.
//
// Rules never depend on each other. Findings are emitted in rule declaration
// order, then by ascending line number within a rule, so repeated runs over
// the same input produce identical output.
package detect

import (
	"sort"

	"github.com/fyrsmithlabs/labcheck/pkg/analysis"
	"github.com/fyrsmithlabs/labcheck/pkg/script"
)

// Rule is one independent detection predicate.
type Rule interface {
	// ID is a stable identifier for the rule.
	ID() string

	// NeedsTree reports whether the rule requires a parsed tree. Rules that
	// only need line records still run when parsing failed.
	NeedsTree() bool

	// Apply evaluates the rule. tree is nil when parsing failed.
	Apply(tree *script.Tree, lines []script.Line) []analysis.Finding
}

// Detector runs a fixed, ordered rule set.
type Detector struct {
	rules []Rule
}

// New creates a Detector with the default rules.
func New() *Detector {
	return &Detector{rules: DefaultRules()}
}

// NewWithRules creates a Detector with a custom rule set, evaluated in the
// given order.
func NewWithRules(rules []Rule) *Detector {
	return &Detector{rules: rules}
}

// Rules returns the configured rules in evaluation order.
func (d *Detector) Rules() []Rule {
	return d.rules
}

// Detect runs every applicable rule. With a nil tree only the line-based
// rules run, which is the degraded mode for unparseable scripts.
func (d *Detector) Detect(tree *script.Tree, lines []script.Line) []analysis.Finding {
	var findings []analysis.Finding
	for _, rule := range d.rules {
		if rule.NeedsTree() && tree == nil {
			continue
		}
		hits := rule.Apply(tree, lines)
		sort.SliceStable(hits, func(i, j int) bool {
			return hits[i].StartLine < hits[j].StartLine
		})
		findings = append(findings, hits...)
	}
	return findings
}
