package cpu

import (
	"errors"

	"github.com/ezrec/hexvm/lex"
	"github.com/ezrec/hexvm/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrIpEmpty      = errors.New(f("ip empty"))
	ErrStackEmpty   = errors.New(f("stack empty"))
	ErrStackFull    = errors.New(f("stack full"))
	ErrDivideByZero = errors.New(f("divide by zero"))
	ErrMemoryBounds = errors.New(f("memory index out of bounds"))
	ErrPrintInvalid = errors.New(f("print of invalid utf-8 text"))
	ErrOpcodeOp     = errors.New(f("op"))

	// Assembler errors
	ErrLabelDuplicate      = errors.New(f("label duplicated"))
	ErrLexemeUnexpected    = errors.New(f("unexpected lexeme"))
	ErrOpcodeExtraArgs     = errors.New(f("excessive arguments"))
	ErrOpcodeValueMissing  = errors.New(f("value missing"))
	ErrCommaMissing        = errors.New(f("comma missing"))
	ErrBracketMissing      = errors.New(f("closing bracket missing"))
	ErrImmediateExpected   = errors.New(f("immediate expected"))
	ErrRegisterInvalid     = errors.New(f("register invalid"))
	ErrTargetInvalid       = errors.New(f("target invalid"))
	ErrInstructionInvalid  = errors.New(f("instruction invalid"))
	ErrStringUnterminated  = errors.New(f("string unterminated"))
	ErrExpressionUnclosed  = errors.New(f("expression unclosed"))
	ErrExpressionNotNumber = errors.New(f("expression is not an integer"))
)

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

// ErrFault locates a run time fault. Faults carry it as *ErrFault.
type ErrFault struct {
	Ip       Word
	Sequence Sequence
}

func (err *ErrFault) Error() string {
	return f("fault at %d '%v'", err.Ip, err.Sequence)
}

// ErrSyntax locates an assembly error in the source. Parse and link
// errors carry it as *ErrSyntax.
type ErrSyntax struct {
	LineNo int
	Column int
	Span   lex.Span
	Text   string
	Err    error
}

func (err *ErrSyntax) Error() string {
	return f("line %d:%d '%v' %v", err.LineNo, err.Column, err.Text, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}
