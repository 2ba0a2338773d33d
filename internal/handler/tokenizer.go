package handler

import (
	"strings"
	"unicode"
)

// Tokenize splits raw message text into an ordered list of argument tokens.
// Tokens are separated by unescaped whitespace. Single and double quotes
// group whitespace into one token, and a backslash escapes the next rune.
// An unterminated quote is kept as a literal character instead of failing.
// Empty or whitespace-only input yields an empty slice.
func Tokenize(text string) []string {
	tokens := make([]string, 0)
	runes := []rune(text)

	var current strings.Builder
	started := false

	flush := func() {
		if started {
			tokens = append(tokens, current.String())
			current.Reset()
			started = false
		}
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\\' && i+1 < len(runes):
			current.WriteRune(runes[i+1])
			started = true
			i++
		case r == '\'' || r == '"':
			end := indexRune(runes[i+1:], r)
			if end < 0 {
				// No closing quote; treat the quote as ordinary text.
				current.WriteRune(r)
				started = true
				continue
			}
			for _, q := range runes[i+1 : i+1+end] {
				current.WriteRune(q)
			}
			started = true
			i += end + 1
		case unicode.IsSpace(r):
			flush()
		default:
			current.WriteRune(r)
			started = true
		}
	}
	flush()

	return tokens
}

func indexRune(runes []rune, want rune) int {
	for i, r := range runes {
		if r == want {
			return i
		}
	}
	return -1
}
