// Package lexer turns PEPL source text into a token stream.
//
// The scanner is a single left-to-right pass over the source runes,
// following the cursor-based style used throughout this codebase's
// other hand-written scanners: track byte position plus line/column,
// classify the current rune, and dispatch to a lex* helper.
package lexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pepl-lang/pepl/core/diagnostic"
	"github.com/pepl-lang/pepl/core/span"
	"github.com/pepl-lang/pepl/core/token"
)

// Lexer scans one source file into tokens.
type Lexer struct {
	file   *span.SourceFile
	src    string
	pos    int // byte offset
	line   uint32
	col    uint32
	errors []diagnostic.PeplError

	lastWasNewline bool
}

// New creates a lexer over file.
func New(file *span.SourceFile) *Lexer {
	return &Lexer{file: file, src: file.Source, line: 1, col: 1}
}

// Lex scans the entire source and returns its tokens (always
// terminated by a single Eof) plus any lexical errors encountered.
func Lex(file *span.SourceFile) ([]token.Token, []diagnostic.PeplError) {
	l := New(file)
	var tokens []token.Token
	for {
		tok := l.next()
		tokens = append(tokens, tok)
		if tok.Kind == token.Eof {
			break
		}
	}
	return tokens, l.errors
}

func (l *Lexer) atEnd() bool { return l.pos >= len(l.src) }

func (l *Lexer) peek() rune {
	if l.atEnd() {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return r
}

func (l *Lexer) peekAt(offset int) rune {
	p := l.pos
	for i := 0; i < offset && p < len(l.src); i++ {
		_, size := utf8.DecodeRuneInString(l.src[p:])
		p += size
	}
	if p >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[p:])
	return r
}

func (l *Lexer) advance() rune {
	if l.atEnd() {
		return 0
	}
	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) here() span.Span { return span.Point(l.line, l.col) }

func (l *Lexer) sourceLine(lineNo uint32) string {
	line, ok := l.file.Line(lineNo)
	if !ok {
		return ""
	}
	return line
}

func (l *Lexer) errorAt(code diagnostic.Code, sp span.Span, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	l.errors = append(l.errors, diagnostic.New(l.file.Name, code, msg, sp, l.sourceLine(sp.StartLine)))
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// next scans and returns the next token.
func (l *Lexer) next() token.Token {
	l.skipInsignificantWhitespace()

	if l.atEnd() {
		return token.Token{Kind: token.Eof, Span: l.here()}
	}

	if l.peek() == '\n' {
		start := l.here()
		l.advance()
		if l.lastWasNewline {
			return l.next()
		}
		l.lastWasNewline = true
		return token.Token{Kind: token.Newline, Text: "\n", Span: start}
	}
	if l.peek() == '#' {
		l.skipLineComment()
		return l.next()
	}
	if l.peek() == '/' && l.peekAt(1) == '/' {
		l.skipLineComment()
		return l.next()
	}
	if l.peek() == '/' && l.peekAt(1) == '*' {
		l.rejectBlockComment()
		return l.next()
	}
	l.lastWasNewline = false

	r := l.peek()
	start := l.here()

	switch {
	case isIdentStart(r):
		return l.lexIdentifier(start)
	case isDigit(r):
		return l.lexNumber(start)
	case r == '"':
		return l.lexString(start)
	}

	return l.lexPunct(start, r)
}

// skipInsignificantWhitespace consumes spaces and tabs, but not
// newlines — those become Newline tokens, significant to the parser's
// statement-termination rules.
func (l *Lexer) skipInsignificantWhitespace() {
	for !l.atEnd() {
		r := l.peek()
		if r == ' ' || r == '\t' || r == '\r' {
			l.advance()
			continue
		}
		break
	}
}

func (l *Lexer) skipLineComment() {
	for !l.atEnd() && l.peek() != '\n' {
		l.advance()
	}
}

// rejectBlockComment consumes a /* ... */ run (or to EOF) and records
// E603: block comments are not permitted in PEPL source.
func (l *Lexer) rejectBlockComment() {
	start := l.here()
	l.advance() // '/'
	l.advance() // '*'
	for !l.atEnd() {
		if l.peek() == '*' && l.peekAt(1) == '/' {
			l.advance()
			l.advance()
			break
		}
		l.advance()
	}
	end := l.here()
	l.errorAt(diagnostic.BlockCommentUsed, start.Merge(end), "block comments are not allowed; use # or // line comments")
}

func (l *Lexer) lexIdentifier(start span.Span) token.Token {
	begin := l.pos
	for !l.atEnd() && isIdentPart(l.peek()) {
		l.advance()
	}
	text := l.src[begin:l.pos]
	sp := start.Merge(l.here())
	if text == "_" {
		return token.Token{Kind: token.Underscore, Text: text, Span: sp}
	}
	if kind, ok := token.Keywords[text]; ok {
		return token.Token{Kind: kind, Text: text, Span: sp}
	}
	return token.Token{Kind: token.Identifier, Text: text, Span: sp}
}

func (l *Lexer) lexNumber(start span.Span) token.Token {
	begin := l.pos
	for !l.atEnd() && isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		l.advance()
		for !l.atEnd() && isDigit(l.peek()) {
			l.advance()
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		save := l.pos
		saveLine, saveCol := l.line, l.col
		l.advance()
		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}
		if isDigit(l.peek()) {
			for !l.atEnd() && isDigit(l.peek()) {
				l.advance()
			}
		} else {
			l.pos, l.line, l.col = save, saveLine, saveCol
		}
	}
	text := l.src[begin:l.pos]
	sp := start.Merge(l.here())
	value := parseFloat(text)
	return token.Token{Kind: token.Number, Text: text, Value: value, Span: sp}
}

// lexString scans a double-quoted string literal, splitting out
// ${...} interpolation segments as StringParts. Unterminated strings
// are reported as E101 (reusing the "unclosed" syntax bucket) and the
// scan stops at end of line or end of file.
func (l *Lexer) lexString(start span.Span) token.Token {
	l.advance() // opening quote

	var parts []token.StringPart
	var lit strings.Builder
	terminated := false

	for !l.atEnd() {
		r := l.peek()
		if r == '"' {
			l.advance()
			terminated = true
			break
		}
		if r == '\n' {
			break
		}
		if r == '\\' {
			l.advance()
			if l.atEnd() {
				break
			}
			lit.WriteRune(decodeEscape(l.advance()))
			continue
		}
		if r == '$' && l.peekAt(1) == '{' {
			if lit.Len() > 0 {
				parts = append(parts, token.StringPart{Literal: lit.String()})
				lit.Reset()
			}
			l.advance() // $
			l.advance() // {
			exprStart := l.here()
			exprBegin := l.pos
			depth := 1
			for !l.atEnd() && depth > 0 {
				if l.peek() == '{' {
					depth++
				} else if l.peek() == '}' {
					depth--
					if depth == 0 {
						break
					}
				}
				l.advance()
			}
			exprSrc := l.src[exprBegin:l.pos]
			exprSpan := exprStart.Merge(l.here())
			if !l.atEnd() {
				l.advance() // closing }
			}
			parts = append(parts, token.StringPart{IsExpr: true, ExprSource: exprSrc, ExprSpan: exprSpan})
			continue
		}
		lit.WriteRune(l.advance())
	}
	if lit.Len() > 0 || len(parts) == 0 {
		parts = append(parts, token.StringPart{Literal: lit.String()})
	}

	sp := start.Merge(l.here())
	if !terminated {
		l.errorAt(diagnostic.UnclosedBrace, sp, "unterminated string literal")
	}

	if len(parts) == 1 && !parts[0].IsExpr {
		return token.Token{Kind: token.String, Text: parts[0].Literal, Span: sp}
	}
	return token.Token{Kind: token.InterpString, Parts: parts, Span: sp}
}

func decodeEscape(r rune) rune {
	switch r {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '"':
		return '"'
	case '\\':
		return '\\'
	case '$':
		return '$'
	default:
		return r
	}
}

func (l *Lexer) lexPunct(start span.Span, r rune) token.Token {
	two := func(next rune, kind token.Kind, single token.Kind) token.Token {
		l.advance()
		if l.peek() == next {
			l.advance()
			return token.Token{Kind: kind, Span: start.Merge(l.here())}
		}
		return token.Token{Kind: single, Span: start.Merge(l.here())}
	}

	switch r {
	case '{':
		l.advance()
		return token.Token{Kind: token.LBrace, Span: start}
	case '}':
		l.advance()
		return token.Token{Kind: token.RBrace, Span: start}
	case '(':
		l.advance()
		return token.Token{Kind: token.LParen, Span: start}
	case ')':
		l.advance()
		return token.Token{Kind: token.RParen, Span: start}
	case '[':
		l.advance()
		return token.Token{Kind: token.LBracket, Span: start}
	case ']':
		l.advance()
		return token.Token{Kind: token.RBracket, Span: start}
	case ',':
		l.advance()
		return token.Token{Kind: token.Comma, Span: start}
	case ':':
		l.advance()
		return token.Token{Kind: token.Colon, Span: start}
	case '=':
		return two('=', token.EqEq, token.Eq)
	case '!':
		l.advance()
		if l.peek() == '=' {
			l.advance()
			return token.Token{Kind: token.NotEq, Span: start.Merge(l.here())}
		}
		return token.Token{Kind: token.Illegal, Text: "!", Span: start}
	case '<':
		return two('=', token.LessEq, token.Less)
	case '>':
		return two('=', token.GreaterEq, token.Greater)
	case '+':
		l.advance()
		return token.Token{Kind: token.Plus, Span: start}
	case '-':
		l.advance()
		if l.peek() == '>' {
			l.advance()
			return token.Token{Kind: token.Arrow, Span: start.Merge(l.here())}
		}
		return token.Token{Kind: token.Minus, Span: start}
	case '*':
		l.advance()
		return token.Token{Kind: token.Star, Span: start}
	case '/':
		l.advance()
		return token.Token{Kind: token.Slash, Span: start}
	case '%':
		l.advance()
		return token.Token{Kind: token.Percent, Span: start}
	case '?':
		l.advance()
		if l.peek() == '?' {
			l.advance()
			return token.Token{Kind: token.QuestionQuestion, Span: start.Merge(l.here())}
		}
		return token.Token{Kind: token.Question, Span: start}
	case '.':
		l.advance()
		if l.peek() == '.' && l.peekAt(1) == '.' {
			l.advance()
			l.advance()
			return token.Token{Kind: token.Ellipsis, Span: start.Merge(l.here())}
		}
		return token.Token{Kind: token.Dot, Span: start}
	default:
		l.advance()
		sp := start.Merge(l.here())
		l.errorAt(diagnostic.UnexpectedToken, sp, "unexpected character %q", r)
		return token.Token{Kind: token.Illegal, Text: string(r), Span: sp}
	}
}

func parseFloat(text string) float64 {
	var v float64
	var frac float64 = 1
	inFrac := false
	i := 0
	neg := false
	if i < len(text) && text[i] == '-' {
		neg = true
		i++
	}
	expPart := ""
	for ; i < len(text); i++ {
		c := text[i]
		if c == 'e' || c == 'E' {
			expPart = text[i+1:]
			break
		}
		if c == '.' {
			inFrac = true
			continue
		}
		d := float64(c - '0')
		if inFrac {
			frac *= 10
			v += d / frac
		} else {
			v = v*10 + d
		}
	}
	if neg {
		v = -v
	}
	if expPart != "" {
		v *= pow10(expPart)
	}
	return v
}

func pow10(expPart string) float64 {
	neg := false
	i := 0
	if i < len(expPart) && (expPart[i] == '+' || expPart[i] == '-') {
		neg = expPart[i] == '-'
		i++
	}
	n := 0
	for ; i < len(expPart); i++ {
		n = n*10 + int(expPart[i]-'0')
	}
	result := 1.0
	for k := 0; k < n; k++ {
		result *= 10
	}
	if neg {
		return 1 / result
	}
	return result
}
