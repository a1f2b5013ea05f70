// Package msg reads Fallout message lists.
//
// A message list holds entries of three brace-delimited fields:
//
//	{100}{}{You see a door.}
//	{101}{elev1}{The elevator hums
//	to life.}
//
// The fields are the message number, an optional speech file and the text.
// Anything outside braces is a comment. A line break inside a field reads
// as a single space.
package msg

import (
	"fmt"
	"strconv"
	"strings"
)

// Entry is one message.
type Entry struct {
	Num   int32
	Sound string
	Text  string
}

// List is a parsed message list.
type List struct {
	entries map[int32]Entry
	order   []int32
}

// SyntaxError reports a malformed message list.
type SyntaxError struct {
	Line    int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("message list line %d: %s", e.Line, e.Message)
}

// Parse reads a message list from decoded text. A repeated number keeps
// the last entry.
func Parse(text string) (*List, error) {
	l := &List{entries: make(map[int32]Entry)}
	p := parser{text: text, line: 1}

	for {
		start, ok := p.skipToField()
		if !ok {
			return l, nil
		}
		var fields [3]string
		for i := range fields {
			if i > 0 {
				if err := p.expectField(); err != nil {
					return nil, err
				}
			}
			f, err := p.field()
			if err != nil {
				return nil, err
			}
			fields[i] = f
		}

		n, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 32)
		if err != nil {
			return nil, &SyntaxError{Line: start, Message: fmt.Sprintf("invalid message number %q", fields[0])}
		}
		num := int32(n)
		if _, dup := l.entries[num]; !dup {
			l.order = append(l.order, num)
		}
		l.entries[num] = Entry{Num: num, Sound: fields[1], Text: fields[2]}
	}
}

// Get returns message num.
func (l *List) Get(num int32) (Entry, bool) {
	e, ok := l.entries[num]
	return e, ok
}

// Text returns the text of message num.
func (l *List) Text(num int32) (string, bool) {
	e, ok := l.entries[num]
	return e.Text, ok
}

// Len returns the number of messages.
func (l *List) Len() int {
	return len(l.entries)
}

// Entries returns the messages in file order.
func (l *List) Entries() []Entry {
	out := make([]Entry, 0, len(l.order))
	for _, n := range l.order {
		out = append(out, l.entries[n])
	}
	return out
}

type parser struct {
	text string
	pos  int
	line int
}

// skipToField advances past comment text to the next '{'.
func (p *parser) skipToField() (int, bool) {
	for p.pos < len(p.text) {
		switch p.text[p.pos] {
		case '{':
			return p.line, true
		case '\n':
			p.line++
		}
		p.pos++
	}
	return p.line, false
}

// expectField skips blanks between the fields of one entry.
func (p *parser) expectField() error {
	for p.pos < len(p.text) {
		switch c := p.text[p.pos]; c {
		case '{':
			return nil
		case ' ', '\t', '\r':
		case '\n':
			p.line++
		default:
			return &SyntaxError{Line: p.line, Message: fmt.Sprintf("unexpected %q between fields", c)}
		}
		p.pos++
	}
	return &SyntaxError{Line: p.line, Message: "entry ends early"}
}

// field reads a {...} field.
func (p *parser) field() (string, error) {
	start := p.line
	p.pos++ // '{'
	var b strings.Builder
	for p.pos < len(p.text) {
		c := p.text[p.pos]
		p.pos++
		switch c {
		case '}':
			return b.String(), nil
		case '\n':
			p.line++
			if s := b.String(); s != "" && !strings.HasSuffix(s, " ") {
				b.WriteByte(' ')
			}
		case '\r':
		case '{':
			return "", &SyntaxError{Line: p.line, Message: "'{' inside field"}
		default:
			b.WriteByte(c)
		}
	}
	return "", &SyntaxError{Line: start, Message: "unterminated field"}
}
