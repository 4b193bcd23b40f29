// Package script provides a lightweight structural view of Python experiment
// scripts: lines, loop blocks, call sites, assignments and literals.
//
// It is not a full Python parser. It recovers just enough structure for the
// detection rules, and degrades to plain line records when the structure is
// too broken to trust. All views are immutable once built.
package script

import (
	"regexp"
	"strings"
)

// Document is an immutable analysis input: raw text plus a source identifier
// (filename or buffer id).
type Document struct {
	Name string
	Text string
}

// Line is one physical source line.
type Line struct {
	Number  int    // 1-based
	Raw     string // original text
	Text    string // stripped of leading/trailing space and trailing comment
	Indent  int    // leading whitespace width, tabs expanded to 4
	Blank   bool   // empty or whitespace-only
	Comment bool   // the line is only a comment
}

// Lines splits a document into line records. It never fails, which makes it
// the fallback view when Parse does.
func Lines(doc Document) []Line {
	raw := strings.Split(doc.Text, "\n")
	lines := make([]Line, len(raw))
	for i, r := range raw {
		lines[i] = newLine(i+1, r)
	}
	return lines
}

func newLine(number int, raw string) Line {
	l := Line{Number: number, Raw: raw}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		l.Blank = true
		return l
	}
	if strings.HasPrefix(trimmed, "#") {
		l.Comment = true
		return l
	}

	l.Indent = indentWidth(raw)
	l.Text = strings.TrimSpace(stripComment(trimmed))
	if l.Text == "" {
		l.Blank = true
	}
	return l
}

func indentWidth(raw string) int {
	width := 0
	for _, r := range raw {
		switch r {
		case ' ':
			width++
		case '\t':
			width += 4
		default:
			return width
		}
	}
	return width
}

// stripComment removes a trailing # comment, honoring quoted strings.
func stripComment(s string) string {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '#':
			return s[:i]
		}
	}
	return s
}

var (
	callRe   = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*)\s*\(`)
	assignRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*=[^=]`)
	stringRe = regexp.MustCompile(`'[^']*'|"[^"]*"`)
	numberRe = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
)

// callsOn extracts qualified call names from a stripped line.
func callsOn(l Line) []Call {
	var calls []Call
	for _, m := range callRe.FindAllStringSubmatch(l.Text, -1) {
		calls = append(calls, Call{Name: m[1], Line: l.Number})
	}
	return calls
}
