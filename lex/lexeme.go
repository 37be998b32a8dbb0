package lex

import (
	"fmt"
)

// Kind classifies a lexeme.
type Kind int

const (
	WHITESPACE    = Kind(0)  // whitespace
	IDENT         = Kind(1)  // ident
	STR           = Kind(2)  // str
	COMMA         = Kind(3)  // comma
	COLON         = Kind(4)  // colon
	OPEN_BRACKET  = Kind(5)  // [
	CLOSE_BRACKET = Kind(6)  // ]
	DIGIT         = Kind(7)  // digit
	EOL           = Kind(8)  // eol
	EOL_COMMENT   = Kind(9)  // eol;
	EOF           = Kind(10) // eof
	OTHER         = Kind(11) // other
	EXPR          = Kind(12) // expr
)

var kindName = [...]string{
	WHITESPACE:    "whitespace",
	IDENT:         "ident",
	STR:           "str",
	COMMA:         "comma",
	COLON:         "colon",
	OPEN_BRACKET:  "[",
	CLOSE_BRACKET: "]",
	DIGIT:         "digit",
	EOL:           "eol",
	EOL_COMMENT:   "eol;",
	EOF:           "eof",
	OTHER:         "other",
	EXPR:          "expr",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindName) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindName[k]
}

// IsEol is true for both bare and comment terminated line ends.
func (k Kind) IsEol() bool {
	return k == EOL || k == EOL_COMMENT
}

// IsEnd is true for anything that ends a line, including end of file.
func (k Kind) IsEnd() bool {
	return k.IsEol() || k == EOF
}

// Base is the radix of a DIGIT lexeme.
type Base int

const (
	BASE_BINARY  = Base(2)
	BASE_OCTAL   = Base(8)
	BASE_DECIMAL = Base(10)
	BASE_HEX     = Base(16)
)

// Lexeme is one classified run of source text.
type Lexeme struct {
	Kind   Kind
	Base   Base // Radix, only for DIGIT.
	Line   int  // 1-based line number.
	Offset int  // Byte offset of the start of the line.
	Span   Span
}

// Text returns the source text of the lexeme.
func (lx Lexeme) Text(src string) string {
	return lx.Span.Slice(src)
}

// Column is the 1-based column of the lexeme start.
func (lx Lexeme) Column() int {
	return lx.Span.From - lx.Offset + 1
}

func (lx Lexeme) String() string {
	if lx.Kind == DIGIT {
		return fmt.Sprintf("%v/%d %d:%d %v", lx.Kind, lx.Base, lx.Line, lx.Column(), lx.Span)
	}
	return fmt.Sprintf("%v %d:%d %v", lx.Kind, lx.Line, lx.Column(), lx.Span)
}
