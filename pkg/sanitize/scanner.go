// Package sanitize detects and masks sensitive substrings in experiment
// scripts before they leave the machine.
//
// Scanning is a pure function of the input text: no I/O, deterministic
// output, and the matched text itself is never retained in spans or reports.
// Matchers run in a fixed priority order (API_KEY > DB_URL > GENERIC_SECRET >
// EMAIL > FILE_PATH) and matches are non-overlapping, first match at a
// position wins.
package sanitize

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// Scanner detects and redacts sensitive content.
type Scanner struct {
	config    Config
	matchers  []matcher
	allowList []*regexp.Regexp
	extended  *extendedDetector
}

// New creates a Scanner from the configuration.
func New(cfg Config) (*Scanner, error) {
	allow, err := cfg.compileAllowList()
	if err != nil {
		return nil, err
	}

	s := &Scanner{
		config:    cfg,
		matchers:  builtinMatchers(),
		allowList: allow,
	}

	if cfg.Extended {
		ext, err := newExtendedDetector()
		if err != nil {
			return nil, err
		}
		s.extended = ext
	}

	return s, nil
}

// MustNew creates a Scanner, panicking on error. Intended for use with a
// static configuration.
func MustNew(cfg Config) *Scanner {
	s, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

// candidate is a potential redaction before overlap resolution.
type candidate struct {
	start, end int
	category   Category
}

// Scan redacts sensitive substrings from text and reports what was found.
func (s *Scanner) Scan(text string) *Result {
	start := time.Now()

	candidates := s.collect(text)

	// Resolve overlaps: earliest start wins; at equal start the
	// higher-priority category wins, then the longer match.
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.start != b.start {
			return a.start < b.start
		}
		if pa, pb := a.category.priority(), b.category.priority(); pa != pb {
			return pa < pb
		}
		return a.end > b.end
	})

	spans := make([]Span, 0, len(candidates))
	lastEnd := 0
	for _, c := range candidates {
		if c.start < lastEnd {
			continue
		}
		spans = append(spans, Span{
			Category:    c.category,
			Start:       c.start,
			End:         c.end,
			Line:        strings.Count(text[:c.start], "\n") + 1,
			Placeholder: c.category.Placeholder(),
		})
		lastEnd = c.end
	}

	// Apply replacements back to front so earlier offsets stay valid.
	redacted := text
	for i := len(spans) - 1; i >= 0; i-- {
		sp := spans[i]
		redacted = redacted[:sp.Start] + sp.Placeholder + redacted[sp.End:]
	}

	return &Result{
		Redacted: redacted,
		Spans:    spans,
		Report:   buildReport(spans, s.config.Override),
		Duration: time.Since(start),
	}
}

// Check detects sensitive content without producing a redacted copy.
func (s *Scanner) Check(text string) Report {
	return s.Scan(text).Report
}

// collect gathers candidate matches from the built-in matchers and, when
// enabled, the extended rule set.
func (s *Scanner) collect(text string) []candidate {
	var candidates []candidate

	for _, m := range s.matchers {
		for _, loc := range m.pattern.FindAllStringIndex(text, -1) {
			if s.isAllowed(text[loc[0]:loc[1]]) {
				continue
			}
			candidates = append(candidates, candidate{
				start:    loc[0],
				end:      loc[1],
				category: m.category,
			})
		}
	}

	if s.extended != nil {
		for _, c := range s.extended.collect(text) {
			if s.isAllowed(text[c.start:c.end]) {
				continue
			}
			candidates = append(candidates, c)
		}
	}

	return candidates
}

// isAllowed checks the match against the allowlist. The match text stays
// local to this call and is never stored.
func (s *Scanner) isAllowed(match string) bool {
	for _, re := range s.allowList {
		if re.MatchString(match) {
			return true
		}
	}
	return false
}
