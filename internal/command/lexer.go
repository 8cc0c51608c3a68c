package command

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokQuoted
	tokHash
	tokComma
	tokStar
)

type token struct {
	kind tokenKind
	text string
}

// lex splits an order into tokens. Words fold to lower case; quoted
// strings keep their case and may escape the quote with a backslash.
func lex(s string) ([]token, error) {
	var toks []token
	runes := []rune(s)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '#':
			toks = append(toks, token{tokHash, "#"})
			i++
		case r == ',':
			toks = append(toks, token{tokComma, ","})
			i++
		case r == '*':
			toks = append(toks, token{tokStar, "*"})
			i++
		case r == '"':
			var b strings.Builder
			i++
			closed := false
			for i < len(runes) {
				if runes[i] == '\\' && i+1 < len(runes) {
					b.WriteRune(runes[i+1])
					i += 2
					continue
				}
				if runes[i] == '"' {
					closed = true
					i++
					break
				}
				b.WriteRune(runes[i])
				i++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated quote")
			}
			toks = append(toks, token{tokQuoted, b.String()})
		default:
			start := i
			for i < len(runes) && !unicode.IsSpace(runes[i]) &&
				runes[i] != '#' && runes[i] != ',' && runes[i] != '"' {
				i++
			}
			toks = append(toks, token{tokWord, strings.ToLower(string(runes[start:i]))})
		}
	}
	return toks, nil
}
