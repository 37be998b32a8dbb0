package lex

import (
	"fmt"
)

// Span is a half-open byte range [From, To) into the source text.
type Span struct {
	From int
	To   int
}

// Slice returns the text covered by the span.
func (sp Span) Slice(src string) string {
	return src[sp.From:sp.To]
}

// Join extends the span to the end of other.
func (sp Span) Join(other Span) Span {
	sp.To = other.To
	return sp
}

// Len is the byte length of the span.
func (sp Span) Len() int {
	return sp.To - sp.From
}

func (sp Span) String() string {
	return fmt.Sprintf("(%d, %d)", sp.From, sp.To)
}
