// Package lex scans hexvm assembly source into classified lexemes.
//
// Every byte of the source belongs to exactly one lexeme, so the spans of
// all lexemes up to EOF reconstruct the input.
package lex

import (
	"unicode/utf8"
)

const eofChar = rune(0)

// Lexer is a lexeme stream with a single slot of lookahead.
type Lexer interface {
	// Advance consumes and returns the next lexeme.
	Advance() Lexeme
	// Peek returns the next lexeme without consuming it.
	Peek() Lexeme
	// PopPeek discards a cached Peek, which consumes the peeked lexeme.
	PopPeek() (lx Lexeme, ok bool)
	// Source is the text being scanned.
	Source() string
}

// BaseLexer scans lexemes directly from a source string.
type BaseLexer struct {
	src       string
	pos       int
	line      int
	lineStart int

	peeked  Lexeme
	hasPeek bool
}

var _ Lexer = (*BaseLexer)(nil)

// NewLexer creates a lexer over src.
func NewLexer(src string) (lx *BaseLexer) {
	lx = &BaseLexer{
		src:  src,
		line: 1,
	}
	return
}

// Source is the text being scanned.
func (lx *BaseLexer) Source() string {
	return lx.src
}

// PopPeek discards any cached lexeme.
func (lx *BaseLexer) PopPeek() (prev Lexeme, ok bool) {
	prev, ok = lx.peeked, lx.hasPeek
	lx.hasPeek = false
	return
}

// Peek returns the next lexeme, caching it for the next Advance or Peek.
func (lx *BaseLexer) Peek() Lexeme {
	if !lx.hasPeek {
		lx.peeked = lx.scan()
		lx.hasPeek = true
	}
	return lx.peeked
}

// Advance consumes the next lexeme.
func (lx *BaseLexer) Advance() Lexeme {
	if prev, ok := lx.PopPeek(); ok {
		return prev
	}
	return lx.scan()
}

func (lx *BaseLexer) scan() (out Lexeme) {
	out = Lexeme{
		Line:   lx.line,
		Offset: lx.lineStart,
	}
	start := lx.pos

	first, ok := lx.bump()
	if !ok {
		out.Kind = EOF
		out.Span = Span{From: start, To: start}
		return
	}

	switch {
	case first == ';':
		lx.eatWhile(func(ch rune) bool { return ch != '\n' })
		lx.bump()
		out.Kind = EOL_COMMENT
	case isWhitespace(first):
		lx.eatWhile(isWhitespace)
		out.Kind = WHITESPACE
	case isIdentStart(first):
		lx.eatWhile(isIdentContinue)
		out.Kind = IDENT
	case first >= '0' && first <= '9':
		out.Kind = DIGIT
		out.Base = lx.number(first)
	case first == '\n':
		out.Kind = EOL
	case first == ',':
		out.Kind = COMMA
	case first == '[':
		out.Kind = OPEN_BRACKET
	case first == ']':
		out.Kind = CLOSE_BRACKET
	case first == ':':
		out.Kind = COLON
	case first == '"':
		lx.str()
		out.Kind = STR
	case first == '$' && lx.first() == '(':
		lx.expr()
		out.Kind = EXPR
	default:
		lx.eatWhile(isOther)
		out.Kind = OTHER
	}

	if out.Kind.IsEol() {
		lx.line++
		lx.lineStart = lx.pos
	}

	out.Span = Span{From: start, To: lx.pos}
	return
}

// str consumes a string literal body through the closing quote.
func (lx *BaseLexer) str() {
	for {
		ch, ok := lx.bump()
		if !ok {
			return
		}
		switch ch {
		case '"':
			return
		case '\\':
			if next := lx.first(); next == '\\' || next == '"' {
				lx.bump()
			}
		}
	}
}

// expr consumes a $( ... ) expression through the balancing parenthesis,
// stopping early at a line break.
func (lx *BaseLexer) expr() {
	lx.bump()
	depth := 1
	for depth > 0 {
		ch := lx.first()
		if ch == '\n' || lx.eof() {
			return
		}
		lx.bump()
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
		}
	}
}

func (lx *BaseLexer) number(first rune) (base Base) {
	base = BASE_DECIMAL
	if first != '0' {
		lx.eatDigits(isDecimal)
		return
	}

	var digits func(rune) bool
	switch lx.first() {
	case 'b':
		base, digits = BASE_BINARY, isDecimal
	case 'o':
		base, digits = BASE_OCTAL, isDecimal
	case 'x':
		base, digits = BASE_HEX, isHexadecimal
	case '_':
		lx.eatDigits(isDecimal)
		return
	default:
		if isDecimal(lx.first()) {
			lx.eatDigits(isDecimal)
		}
		return
	}

	mark := lx.pos
	lx.bump()
	if !lx.eatDigits(digits) {
		// Lone zero; the prefix letter belongs to the next lexeme.
		lx.pos = mark
		base = BASE_DECIMAL
	}
	return
}

// eatDigits consumes digits and '_' separators, reporting whether any
// digit was seen.
func (lx *BaseLexer) eatDigits(digit func(rune) bool) (seen bool) {
	for {
		ch := lx.first()
		switch {
		case ch == '_':
		case digit(ch):
			seen = true
		default:
			return
		}
		lx.bump()
	}
}

func (lx *BaseLexer) first() rune {
	if lx.eof() {
		return eofChar
	}
	ch, _ := utf8.DecodeRuneInString(lx.src[lx.pos:])
	return ch
}

func (lx *BaseLexer) bump() (ch rune, ok bool) {
	if lx.eof() {
		return
	}
	ch, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
	lx.pos += size
	ok = true
	return
}

func (lx *BaseLexer) eof() bool {
	return lx.pos >= len(lx.src)
}

func (lx *BaseLexer) eatWhile(predicate func(rune) bool) {
	for !lx.eof() && predicate(lx.first()) {
		lx.bump()
	}
}

func isIdentStart(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentContinue(ch rune) bool {
	return isIdentStart(ch) || isDecimal(ch)
}

func isDecimal(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isHexadecimal(ch rune) bool {
	return isDecimal(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// isWhitespace matches all whitespace except the line feed.
func isWhitespace(ch rune) bool {
	switch ch {
	case '\t', '\v', '\f', '\r', ' ',
		'\u0085',           // next line
		'\u200e', '\u200f', // bidi marks
		'\u2028', '\u2029': // line and paragraph separators
		return true
	}
	return false
}

// isOther must stay in sync with the cases of scan.
func isOther(ch rune) bool {
	if isWhitespace(ch) || isIdentStart(ch) || isDecimal(ch) {
		return false
	}
	switch ch {
	case '\n', ',', '[', ']', ':', '"', ';', '$':
		return false
	}
	return true
}
