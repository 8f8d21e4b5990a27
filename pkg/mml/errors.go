package mml

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSyntax classifies a SyntaxError.
	ErrSyntax = errors.New("mml syntax error")

	// ErrBadResolution is returned for a non-positive ticks-per-beat option.
	ErrBadResolution = errors.New("ticks per beat must be positive")
)

// BadChar records a character the parser skipped.
type BadChar struct {
	Offset int  // byte offset into the source
	Line   int  // 1-indexed
	Column int  // 1-indexed
	Char   byte // the offending byte
}

// SyntaxError reports the first skipped character of a lenient parse together
// with the surrounding source lines.
type SyntaxError struct {
	BadChar
	Count   int // total number of skipped characters
	Context string
}

func (e *SyntaxError) Error() string {
	msg := fmt.Sprintf("mml: unexpected %q at line %d, column %d", e.Char, e.Line, e.Column)
	if e.Count > 1 {
		msg += fmt.Sprintf(" (and %d more)", e.Count-1)
	}
	if e.Context != "" {
		msg += "\n" + e.Context
	}
	return msg
}

func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

// errorContext renders the line holding the error, one line either side, and
// a caret under the error column.
func errorContext(source string, line, column int) string {
	lines := strings.Split(source, "\n")
	if line <= 0 || line > len(lines) {
		return ""
	}
	start := max(line-2, 0)
	end := min(line+1, len(lines))
	width := len(fmt.Sprintf("%d", end))

	var buf strings.Builder
	for i := start; i < end; i++ {
		content := strings.TrimRight(lines[i], "\r")
		if i+1 == line {
			fmt.Fprintf(&buf, "> %*d | %s\n", width, i+1, content)
			fmt.Fprintf(&buf, "%s^\n", strings.Repeat(" ", 2+width+3+max(column-1, 0)))
		} else {
			fmt.Fprintf(&buf, "  %*d | %s\n", width, i+1, content)
		}
	}
	return buf.String()
}
