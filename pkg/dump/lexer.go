package dump

import (
	"fmt"
	"strings"

	"github.com/xwb1989/sqlparser"
)

// SyntaxError reports a structural problem in a statement body.
type SyntaxError struct {
	Statement int // 1-based statement index, 0 when unknown
	Offset    int // byte offset in the document or body
	Msg       string
}

func (e *SyntaxError) Error() string {
	if e.Statement > 0 {
		return fmt.Sprintf("statement %d: %s at offset %d", e.Statement, e.Msg, e.Offset)
	}
	return fmt.Sprintf("%s at offset %d", e.Msg, e.Offset)
}

// tokEOF is the token type the tokenizer reports at the end of input.
const tokEOF = 0

// token is one lexeme together with its span in the source text. Spans let
// literals be re-emitted byte for byte, whatever escapes they carry.
type token struct {
	typ        int
	start, end int
}

// lexer walks a MySQL text with the sqlparser tokenizer and recovers the raw
// span of every token it returns. Comments are skipped.
type lexer struct {
	src  string
	tkn  *sqlparser.Tokenizer
	prev int
}

func newLexer(src string) *lexer {
	// Streaming from a reader keeps the tokenizer from copying the whole
	// remainder of a large document for every statement.
	return &lexer{src: src, tkn: sqlparser.NewTokenizer(strings.NewReader(src))}
}

// next returns the next token. A literal still open at the end of the input
// is a SyntaxError; any other byte the tokenizer rejects is returned as an
// opaque LEX_ERROR token.
func (l *lexer) next() (token, error) {
	for {
		typ, _ := l.tkn.Scan()

		// Position counts the lookahead byte, so the token ends one before it.
		end := min(l.tkn.Position-1, len(l.src))
		start := l.prev
		for start < end && isSpace(l.src[start]) {
			start++
		}
		l.prev = max(end, l.prev)

		if typ == tokEOF {
			return token{typ: tokEOF, start: len(l.src), end: len(l.src)}, nil
		}
		// The body of a /*! ... */ version comment is replayed token by token
		// without moving the position; it is a comment here like any other.
		if start >= end || strings.HasPrefix(l.src[start:], "/*!") {
			continue
		}

		switch typ {
		case sqlparser.COMMENT:
			continue
		case sqlparser.LEX_ERROR:
			if end >= len(l.src) && start < len(l.src) && isQuote(l.src[start]) {
				return token{}, &SyntaxError{Offset: start, Msg: "unterminated quoted literal"}
			}
		}
		return token{typ: typ, start: start, end: end}, nil
	}
}

func (l *lexer) text(tok token) string {
	return l.src[tok.start:tok.end]
}

func isQuote(c byte) bool {
	return c == '\'' || c == '"' || c == '`'
}

// findStatementEnd returns the index of the first ';' at or after from that
// is not inside a quoted literal.
func findStatementEnd(s string, from int) (int, bool) {
	l := newLexer(s[from:])
	for {
		tok, err := l.next()
		if err != nil {
			return -1, false
		}
		switch tok.typ {
		case tokEOF:
			return -1, false
		case ';':
			return from + tok.start, true
		}
	}
}

// splitTuples splits a VALUES body into the texts between each tuple's outer
// parentheses. Parentheses and commas inside literals or nested expressions
// stay part of the tuple.
func splitTuples(body string) ([]string, error) {
	l := newLexer(body)

	var tuples []string
	depth := 0
	start := 0

	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok.typ == tokEOF {
			break
		}

		if depth == 0 {
			switch tok.typ {
			case '(':
				depth = 1
				start = tok.end
			case ',':
			default:
				return nil, &SyntaxError{Offset: tok.start, Msg: fmt.Sprintf("unexpected %q between rows", l.text(tok))}
			}
			continue
		}

		switch tok.typ {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				tuples = append(tuples, body[start:tok.start])
			}
		}
	}

	if depth != 0 {
		return nil, &SyntaxError{Offset: start - 1, Msg: "unbalanced parentheses"}
	}
	return tuples, nil
}

// splitFields splits a tuple on top-level commas and trims each field.
func splitFields(tuple string) []string {
	if strings.TrimSpace(tuple) == "" {
		return nil
	}

	l := newLexer(tuple)
	var fields []string
	depth := 0
	start := 0

	for {
		tok, err := l.next()
		if err != nil || tok.typ == tokEOF {
			break
		}
		switch tok.typ {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				fields = append(fields, strings.TrimSpace(tuple[start:tok.start]))
				start = tok.end
			}
		}
	}
	return append(fields, strings.TrimSpace(tuple[start:]))
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r'
}
