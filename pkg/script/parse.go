package script

import (
	"regexp"
	"strconv"
	"strings"
)

// Call is a call site, identified by its dotted name.
type Call struct {
	Name string
	Line int
}

// Assign is a simple name assignment.
type Assign struct {
	Target string
	Line   int
}

// Literal is a string or numeric literal as written in the source.
type Literal struct {
	Value string
	Line  int
}

// Loop is a for or while block.
type Loop struct {
	Kind       string // "for" or "while"
	Target     string // loop variable for "for" loops
	FixedCount int    // N for `for x in range(N)`, otherwise 0
	HeaderLine int
	BodyStart  int // first body line number
	BodyEnd    int // last body line number
}

// Tree is the structural view of a parsed document.
type Tree struct {
	Doc      Document
	Lines    []Line
	Loops    []Loop
	Calls    []Call
	Assigns  []Assign
	Literals []Literal
}

// CallsIn returns the calls whose line falls inside the loop body.
func (t *Tree) CallsIn(lp Loop) []Call {
	var calls []Call
	for _, c := range t.Calls {
		if c.Line >= lp.BodyStart && c.Line <= lp.BodyEnd {
			calls = append(calls, c)
		}
	}
	return calls
}

var (
	forRangeRe  = regexp.MustCompile(`^for\s+([A-Za-z_][A-Za-z0-9_]*)\s+in\s+range\s*\(\s*(\d+)\s*\)\s*:$`)
	forRe       = regexp.MustCompile(`^for\s+([A-Za-z_][A-Za-z0-9_]*)`)
	tripleQuote = regexp.MustCompile(`'''|"""`)
)

var blockKeywords = []string{"for", "while", "if", "elif", "else", "def", "class", "try", "except", "finally", "with"}

// Parse builds the structural view of a document.
//
// Parse fails with *ParseError on structure it cannot trust: unbalanced
// brackets, an unterminated triple-quoted string, or a block header with no
// body. It fails with ErrEmptySource when the document holds no statements.
// Callers recover by switching to the Lines view.
func Parse(doc Document) (*Tree, error) {
	lines := Lines(doc)

	tree := &Tree{Doc: doc, Lines: lines}

	depth := 0        // bracket nesting across lines
	inDocstring := false
	statements := 0
	var lastHeader *Line

	for i := range lines {
		l := lines[i]

		if inDocstring {
			if tripleQuote.MatchString(l.Raw) {
				inDocstring = false
			}
			continue
		}
		if l.Blank || l.Comment {
			continue
		}

		// Toggle docstring state when a line opens a triple-quoted string
		// without closing it.
		if n := len(tripleQuote.FindAllString(l.Text, -1)); n%2 == 1 {
			inDocstring = true
		}

		continuation := depth > 0
		var err error
		depth, err = bracketDepth(l, depth)
		if err != nil {
			return nil, err
		}
		if continuation {
			// Inside an open bracket: contributes calls and literals but
			// not block structure.
			tree.Calls = append(tree.Calls, callsOn(l)...)
			tree.Literals = append(tree.Literals, literalsOn(l)...)
			continue
		}

		statements++

		if lastHeader != nil {
			if l.Indent <= lastHeader.Indent {
				return nil, &ParseError{Line: lastHeader.Number, Msg: "block header has an empty body"}
			}
			lastHeader = nil
		}

		if isBlockHeader(l) {
			h := l
			lastHeader = &h
		}

		if lp, ok := parseLoopHeader(l); ok {
			lp.BodyStart, lp.BodyEnd = blockBody(lines, i)
			tree.Loops = append(tree.Loops, lp)
		}

		tree.Calls = append(tree.Calls, callsOn(l)...)
		tree.Literals = append(tree.Literals, literalsOn(l)...)
		if m := assignRe.FindStringSubmatch(l.Text); m != nil {
			tree.Assigns = append(tree.Assigns, Assign{Target: m[1], Line: l.Number})
		}
	}

	if inDocstring {
		return nil, &ParseError{Msg: "unterminated triple-quoted string"}
	}
	if depth != 0 {
		return nil, &ParseError{Msg: "unclosed bracket at end of source"}
	}
	if lastHeader != nil {
		return nil, &ParseError{Line: lastHeader.Number, Msg: "block header has an empty body"}
	}
	if statements == 0 {
		return nil, ErrEmptySource
	}

	return tree, nil
}

// bracketDepth updates the bracket nesting after a line, ignoring brackets
// inside quoted strings.
func bracketDepth(l Line, depth int) (int, error) {
	var quote byte
	for i := 0; i < len(l.Text); i++ {
		c := l.Text[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
			if depth < 0 {
				return 0, &ParseError{Line: l.Number, Msg: "unmatched closing bracket"}
			}
		}
	}
	return depth, nil
}

func isBlockHeader(l Line) bool {
	if !strings.HasSuffix(l.Text, ":") {
		return false
	}
	for _, kw := range blockKeywords {
		if l.Text == kw+":" || strings.HasPrefix(l.Text, kw+" ") || strings.HasPrefix(l.Text, kw+"(") {
			return true
		}
	}
	return false
}

func parseLoopHeader(l Line) (Loop, bool) {
	switch {
	case strings.HasPrefix(l.Text, "for ") && strings.HasSuffix(l.Text, ":"):
		lp := Loop{Kind: "for", HeaderLine: l.Number}
		if m := forRangeRe.FindStringSubmatch(l.Text); m != nil {
			lp.Target = m[1]
			lp.FixedCount, _ = strconv.Atoi(m[2])
		} else if m := forRe.FindStringSubmatch(l.Text); m != nil {
			lp.Target = m[1]
		}
		return lp, true
	case strings.HasPrefix(l.Text, "while ") && strings.HasSuffix(l.Text, ":"):
		return Loop{Kind: "while", HeaderLine: l.Number}, true
	}
	return Loop{}, false
}

// blockBody finds the line range of the block opened at lines[header].
func blockBody(lines []Line, header int) (start, end int) {
	indent := lines[header].Indent
	start = lines[header].Number + 1
	end = lines[header].Number

	for i := header + 1; i < len(lines); i++ {
		l := lines[i]
		if l.Blank || l.Comment {
			continue
		}
		if l.Indent <= indent {
			break
		}
		end = l.Number
	}
	return start, end
}

// Literals extracts string and numeric literals from line records, for use
// when no tree is available.
func Literals(lines []Line) []Literal {
	var lits []Literal
	for _, l := range lines {
		if l.Blank || l.Comment {
			continue
		}
		lits = append(lits, literalsOn(l)...)
	}
	return lits
}

// literalsOn extracts string and numeric literals from a stripped line.
func literalsOn(l Line) []Literal {
	var lits []Literal
	masked := l.Text
	for _, m := range stringRe.FindAllString(l.Text, -1) {
		lits = append(lits, Literal{Value: m, Line: l.Number})
	}
	masked = stringRe.ReplaceAllString(masked, "")
	for _, m := range numberRe.FindAllString(masked, -1) {
		lits = append(lits, Literal{Value: m, Line: l.Number})
	}
	return lits
}
