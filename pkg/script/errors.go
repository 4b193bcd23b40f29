package script

import (
	"errors"
	"fmt"
)

// ErrEmptySource indicates the document contains no statements at all.
var ErrEmptySource = errors.New("empty source")

// ParseError describes why a document could not be parsed into a tree.
// Line-based inspection of the document is still possible after a ParseError.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Msg)
	}
	return "parse error: " + e.Msg
}
