package asm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type token struct {
	text   string
	col    int
	quoted bool
}

const separators = " \t\r,;\""

// tokenize splits a source line into words and string literals. Commas
// separate like blanks; ; starts a comment. On error the column is returned.
func tokenize(line string) ([]token, int, error) {
	var toks []token
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == ',':
			i++
		case c == ';':
			return toks, 0, nil
		case c == '"':
			j := i + 1
			for j < len(line) && line[j] != '"' {
				if line[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(line) {
				return nil, i + 1, errors.New("unterminated string")
			}
			s, err := strconv.Unquote(line[i : j+1])
			if err != nil {
				return nil, i + 1, fmt.Errorf("invalid string literal: %w", err)
			}
			toks = append(toks, token{text: s, col: i + 1, quoted: true})
			i = j + 1
		default:
			j := i
			for j < len(line) && !strings.ContainsRune(separators, rune(line[j])) {
				j++
			}
			toks = append(toks, token{text: line[i:j], col: i + 1})
			i = j
		}
	}
	return toks, 0, nil
}
