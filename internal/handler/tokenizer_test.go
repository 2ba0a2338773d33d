package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty input",
			text: "",
			want: []string{},
		},
		{
			name: "whitespace only",
			text: "   \t  \n ",
			want: []string{},
		},
		{
			name: "single token",
			text: "!ping",
			want: []string{"!ping"},
		},
		{
			name: "plain words",
			text: "!echo hello world",
			want: []string{"!echo", "hello", "world"},
		},
		{
			name: "repeated whitespace collapses",
			text: "!echo   a \t b",
			want: []string{"!echo", "a", "b"},
		},
		{
			name: "double quotes group whitespace",
			text: `!echo "hello world" tail`,
			want: []string{"!echo", "hello world", "tail"},
		},
		{
			name: "single quotes group whitespace",
			text: "!echo 'hello world'",
			want: []string{"!echo", "hello world"},
		},
		{
			name: "quotes inside a token",
			text: `before"mid dle"after`,
			want: []string{"beforemid dleafter"},
		},
		{
			name: "empty quoted token",
			text: `a "" b`,
			want: []string{"a", "", "b"},
		},
		{
			name: "unterminated quote is literal",
			text: `!echo "unfinished business`,
			want: []string{"!echo", `"unfinished`, "business"},
		},
		{
			name: "backslash escapes whitespace",
			text: `one\ token two`,
			want: []string{"one token", "two"},
		},
		{
			name: "backslash escapes a quote",
			text: `say \"hi\"`,
			want: []string{"say", `"hi"`},
		},
		{
			name: "trailing backslash stays literal",
			text: `word\`,
			want: []string{`word\`},
		},
		{
			name: "mixed quote styles",
			text: `'single part' "double part"`,
			want: []string{"single part", "double part"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.text))
		})
	}
}
