package asm

import (
	"fmt"
	"strings"
)

// Error is an assembly error with its source location.
type Error struct {
	// Message is the human-readable error description.
	Message string
	// Line and Column are 1-indexed.
	Line   int
	Column int
	// Context holds the surrounding source lines with a ^ pointer.
	Context string
}

func (e *Error) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("asm error at line %d, column %d: %s\n%s", e.Line, e.Column, e.Message, e.Context)
	}
	return fmt.Sprintf("asm error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// ErrorContext renders the two lines before and after line, marking the
// error line with > and the column with ^.
//
//	  2 |     push 1
//	  3 |     push 2
//	> 4 |     jmp nowhere
//	              ^
//	  5 |     return
func ErrorContext(source string, line, column int) string {
	if source == "" || line <= 0 {
		return ""
	}
	lines := strings.Split(source, "\n")
	if line > len(lines) {
		return ""
	}

	start := max(line-3, 0)
	end := min(line+2, len(lines))
	width := len(fmt.Sprint(end))

	var buf strings.Builder
	for i := start; i < end; i++ {
		n := i + 1
		if n != line {
			fmt.Fprintf(&buf, "  %*d | %s\n", width, n, lines[i])
			continue
		}
		fmt.Fprintf(&buf, "> %*d | %s\n", width, n, lines[i])
		indent := 2 + width + 3 + max(column-1, 0)
		buf.WriteString(strings.Repeat(" ", indent) + "^\n")
	}
	return buf.String()
}
