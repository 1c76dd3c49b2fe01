// Package cfgcompile implements the configuration compiler: a
// free-format, case-insensitive token stream with nested parenthesis
// comments, compiled into the binary header consumed by
// internal/predict and internal/zpaql.
package cfgcompile

import (
	"fmt"
	"strconv"
	"strings"
)

// token is one whitespace-delimited word, already folded to lower case,
// plus the byte offset in the source immediately following it (used to
// capture the PCOMP command line verbatim).
type token struct {
	text   string
	endPos int
}

// lexer splits a configuration source into tokens, discarding
// whitespace and (possibly nested) parenthesized comments.
type lexer struct {
	toks []token
	pos  int
}

func newLexer(src string) *lexer {
	return &lexer{toks: tokenize(src)}
}

func tokenize(src string) []token {
	var toks []token
	i, n := 0, len(src)
	for i < n {
		c := src[i]
		switch {
		case c == '(':
			depth := 1
			i++
			for i < n && depth > 0 {
				switch src[i] {
				case '(':
					depth++
				case ')':
					depth--
				}
				i++
			}
		case c <= ' ':
			i++
		default:
			start := i
			for i < n && src[i] > ' ' && src[i] != '(' {
				i++
			}
			toks = append(toks, token{text: strings.ToLower(src[start:i]), endPos: i})
			// The remainder of a PCOMP line is the preprocessor command,
			// captured verbatim by restOfLine: no tokens come out of it,
			// and a "(" there is a literal command character, never the
			// start of a comment. Skipping to end of line here keeps the
			// comment scan above from crossing into (or past) it.
			if toks[len(toks)-1].text == "pcomp" {
				for i < n && src[i] != '\n' {
					i++
				}
			}
		}
	}
	return toks
}

func (l *lexer) next() (token, bool) {
	if l.pos >= len(l.toks) {
		return token{}, false
	}
	t := l.toks[l.pos]
	l.pos++
	return t, true
}

// expectWord consumes the next token and requires it equal want.
func (l *lexer) expectWord(want string) error {
	t, ok := l.next()
	if !ok {
		return fmt.Errorf("cfgcompile: expected %q, found end of input", want)
	}
	if t.text != want {
		return fmt.Errorf("cfgcompile: expected %q, found %q", want, t.text)
	}
	return nil
}

// expectInt consumes the next token and requires it parse as a decimal
// integer in [low, high].
func (l *lexer) expectInt(low, high int) (int, error) {
	t, ok := l.next()
	if !ok {
		return 0, fmt.Errorf("cfgcompile: expected a number, found end of input")
	}
	n, err := strconv.Atoi(t.text)
	if err != nil {
		return 0, fmt.Errorf("cfgcompile: expected a number, found %q", t.text)
	}
	if n < low || n > high {
		return 0, fmt.Errorf("cfgcompile: value %d out of range %d..%d", n, low, high)
	}
	return n, nil
}

// restOfLine returns the raw (not lower-cased, not comment-stripped)
// source text immediately following the last token returned by next(),
// up to the next newline, with surrounding whitespace trimmed. Used
// for the PCOMP command, which is captured verbatim to end of line;
// tokenize emits no tokens for that span, so the next call to next()
// already resumes on the following line.
func (l *lexer) restOfLine(src string) string {
	pos := 0
	if l.pos > 0 {
		pos = l.toks[l.pos-1].endPos
	}
	lineEnd := len(src)
	if nl := strings.IndexByte(src[pos:], '\n'); nl >= 0 {
		lineEnd = pos + nl
	}
	return strings.TrimSpace(src[pos:lineEnd])
}
