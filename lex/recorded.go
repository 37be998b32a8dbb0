package lex

// RecordedLexer logs every lexeme scanned by its base lexer. Lexemes
// replayed from the peek cache are not logged twice.
type RecordedLexer struct {
	Base  *BaseLexer
	store []Lexeme
}

var _ Lexer = (*RecordedLexer)(nil)

// NewRecordedLexer creates a recording lexer over src.
func NewRecordedLexer(src string) (rl *RecordedLexer) {
	rl = &RecordedLexer{
		Base: NewLexer(src),
	}
	return
}

// Store returns the lexemes scanned so far, in scan order.
func (rl *RecordedLexer) Store() []Lexeme {
	return rl.store
}

// Source is the text being scanned.
func (rl *RecordedLexer) Source() string {
	return rl.Base.Source()
}

// PopPeek discards any cached lexeme of the base lexer.
func (rl *RecordedLexer) PopPeek() (Lexeme, bool) {
	return rl.Base.PopPeek()
}

// Peek returns the next lexeme without consuming it.
func (rl *RecordedLexer) Peek() (lx Lexeme) {
	replay := rl.Base.hasPeek
	lx = rl.Base.Peek()
	if !replay {
		rl.store = append(rl.store, lx)
	}
	return
}

// Advance consumes the next lexeme.
func (rl *RecordedLexer) Advance() (lx Lexeme) {
	replay := rl.Base.hasPeek
	lx = rl.Base.Advance()
	if !replay {
		rl.store = append(rl.store, lx)
	}
	return
}
