// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/hexvm/lex"
)

// Predefined system equates
var sysEquate = map[string]string{
	"MEM_SIZE":   fmt.Sprintf("%#x", MEM_SIZE),
	"WORD_BYTES": fmt.Sprintf("%d", WORD_BYTES),
}

// mnemonicMap is the fixed instruction table.
var mnemonicMap = func() (mnemonic map[string]CodeOp) {
	mnemonic = make(map[string]CodeOp, OP_COUNT)
	for op, name := range opName {
		mnemonic[name] = CodeOp(op)
	}
	return
}()

// Assembler is a single pass, line oriented assembler for the hexvm
// instruction set.
type Assembler struct {
	Verbose bool // If set, verbosely logs the assembler actions.
	Strict  bool // If set, undefined labels are reported at assembly time.

	predefine map[string]string // Predefines
}

// Predefine defines a new constant for $(...) expressions, or redefines
// an existing one.
func (asm *Assembler) Predefine(name string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{name: value}
	} else {
		asm.predefine[name] = value
	}
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	data, err := io.ReadAll(input)
	if err != nil {
		return
	}

	return asm.ParseString(string(data))
}

// ParseString parses assembly source text into a Program.
func (asm *Assembler) ParseString(src string) (prog *Program, err error) {
	return asm.ParseLexer(lex.NewLexer(src))
}

// ParseLexer parses the lexemes of lexer into a Program.
func (asm *Assembler) ParseLexer(lexer lex.Lexer) (prog *Program, err error) {
	ps := &parser{
		asm:   asm,
		lexer: lexer,
		prog:  NewProgram(),
	}

	err = ps.parse()
	if err != nil {
		return
	}

	if asm.Strict {
		err = ps.prog.Link()
		if err != nil {
			return
		}
	}

	prog = ps.prog
	return
}

// parser holds the state of one Parse.
type parser struct {
	asm   *Assembler
	lexer lex.Lexer
	prog  *Program

	at lex.Lexeme // Most recently consumed lexeme.
}

// syntaxError locates err at the most recently consumed lexeme.
func (ps *parser) syntaxError(err error) error {
	return &ErrSyntax{
		LineNo: ps.at.Line,
		Column: ps.at.Column(),
		Span:   ps.at.Span,
		Text:   ps.text(ps.at),
		Err:    err,
	}
}

func (ps *parser) text(lx lex.Lexeme) string {
	return lx.Text(ps.lexer.Source())
}

// skip discards whitespace.
func (ps *parser) skip() {
	for ps.lexer.Peek().Kind == lex.WHITESPACE {
		ps.lexer.Advance()
	}
}

// next consumes the next lexeme that is not whitespace.
func (ps *parser) next() lex.Lexeme {
	ps.skip()
	ps.at = ps.lexer.Advance()
	return ps.at
}

// peek returns the next lexeme that is not whitespace.
func (ps *parser) peek() lex.Lexeme {
	ps.skip()
	return ps.lexer.Peek()
}

func (ps *parser) parse() (err error) {
	defer func() {
		if err != nil {
			err = ps.syntaxError(err)
		}
	}()

	for {
		lx := ps.next()
		switch lx.Kind {
		case lex.EOF:
			return
		case lex.EOL, lex.EOL_COMMENT:
			continue
		case lex.IDENT:
			name := ps.text(lx)
			if ps.peek().Kind == lex.COLON {
				ps.at = ps.lexer.Advance()
				err = ps.label(name)
			} else {
				err = ps.instruction(lx, name)
			}
		default:
			err = ErrLexemeUnexpected
		}
		if err != nil {
			return
		}

		err = ps.endLine()
		if err != nil {
			return
		}
	}
}

// endLine requires the rest of the line to be empty.
func (ps *parser) endLine() (err error) {
	lx := ps.next()
	switch lx.Kind {
	case lex.EOL, lex.EOL_COMMENT, lex.EOF:
	default:
		err = ErrOpcodeExtraArgs
	}
	return
}

// label binds name to the index of the next instruction.
func (ps *parser) label(name string) (err error) {
	sym := ps.prog.Symbols.Intern(name)
	if _, ok := ps.prog.Label[sym]; ok {
		err = ErrLabelDuplicate
		return
	}

	index := Word(len(ps.prog.Sequence))
	ps.prog.Label[sym] = index

	if ps.asm.Verbose {
		log.Printf("%d: %v: %d", ps.at.Line, name, index)
	}

	return
}

// instruction parses the operands of a mnemonic.
func (ps *parser) instruction(lx lex.Lexeme, name string) (err error) {
	op, ok := mnemonicMap[name]
	if !ok {
		err = ErrInstructionInvalid
		return
	}

	var seq Sequence

	switch op {
	case OP_MOV, OP_ADD, OP_SUB:
		var target Address
		var value Value
		target, err = ps.address()
		if err != nil {
			return
		}
		err = ps.comma()
		if err != nil {
			return
		}
		value, err = ps.value(false)
		if err != nil {
			return
		}
		if op == OP_MOV {
			seq = MakeMov(target, value)
		} else {
			seq = MakeAlu(op, target, value)
		}
	case OP_CMP:
		var a, b Value
		a, err = ps.value(false)
		if err != nil {
			return
		}
		err = ps.comma()
		if err != nil {
			return
		}
		b, err = ps.value(false)
		if err != nil {
			return
		}
		seq = MakeCmp(a, b)
	case OP_JMP, OP_JE, OP_JNE, OP_JL, OP_JLE, OP_JG, OP_JGE:
		var target Value
		target, err = ps.value(true)
		if err != nil {
			return
		}
		seq = MakeJump(op, target)
	case OP_CALL:
		arg := ps.next()
		switch {
		case arg.Kind.IsEnd():
			err = ErrOpcodeValueMissing
		case arg.Kind != lex.IDENT:
			err = ErrLexemeUnexpected
		default:
			text := ps.text(arg)
			if _, is_reg := RegisterOf(text); is_reg {
				err = ErrTargetInvalid
				return
			}
			seq = MakeCall(ps.prog.Symbols.Intern(text))
		}
		if err != nil {
			return
		}
	case OP_RET:
		seq = MakeRet()
	case OP_PUSH, OP_MUL, OP_DIV, OP_MOD:
		var value Value
		value, err = ps.value(false)
		if err != nil {
			return
		}
		if op == OP_PUSH {
			seq = MakePush(value)
		} else {
			seq = MakeAccumulate(op, value)
		}
	case OP_POP, OP_INC, OP_DEC:
		var target Address
		target, err = ps.address()
		if err != nil {
			return
		}
		if op == OP_POP {
			seq = MakePop(target)
		} else {
			seq = MakeStep(op, target)
		}
	case OP_STR:
		arg := ps.next()
		switch {
		case arg.Kind.IsEnd():
			err = ErrOpcodeValueMissing
			return
		case arg.Kind != lex.STR:
			err = ErrLexemeUnexpected
			return
		}
		var text string
		text, err = unquote(ps.text(arg))
		if err != nil {
			return
		}
		seq = MakeStr(ps.prog.Symbols.Intern(text))
	case OP_PRINT:
		var target Address
		var length Word
		target, err = ps.address()
		if err != nil {
			return
		}
		err = ps.comma()
		if err != nil {
			return
		}
		arg := ps.next()
		switch arg.Kind {
		case lex.DIGIT, lex.EXPR:
			length, err = ps.number(arg)
		case lex.EOL, lex.EOL_COMMENT, lex.EOF:
			err = ErrOpcodeValueMissing
		default:
			err = ErrImmediateExpected
		}
		if err != nil {
			return
		}
		seq = MakePrint(target, length)
	}

	if ps.asm.Verbose {
		log.Printf("%d: %04x: %v", lx.Line, len(ps.prog.Sequence), seq.Format(ps.prog.Symbols))
	}

	ps.prog.Sequence = append(ps.prog.Sequence, seq)
	ps.prog.LineNo = append(ps.prog.LineNo, lx.Line)
	ps.prog.Span = append(ps.prog.Span, lx.Span.Join(ps.at.Span))

	return
}

func (ps *parser) comma() (err error) {
	lx := ps.next()
	switch lx.Kind {
	case lex.COMMA:
	case lex.EOL, lex.EOL_COMMENT, lex.EOF:
		err = ErrOpcodeValueMissing
	default:
		err = ErrCommaMissing
	}
	return
}

// address parses a writable operand: reg, [reg], [index] or a label.
func (ps *parser) address() (addr Address, err error) {
	lx := ps.next()
	switch lx.Kind {
	case lex.IDENT:
		text := ps.text(lx)
		if reg, ok := RegisterOf(text); ok {
			addr = Reg(reg)
		} else {
			addr = Label(ps.prog.Symbols.Intern(text))
		}
	case lex.OPEN_BRACKET:
		inner := ps.next()
		switch inner.Kind {
		case lex.IDENT:
			reg, ok := RegisterOf(ps.text(inner))
			if !ok {
				err = ErrRegisterInvalid
				return
			}
			addr = Indirect(reg)
		case lex.DIGIT, lex.EXPR:
			var index Word
			index, err = ps.number(inner)
			if err != nil {
				return
			}
			addr = Mem(index)
		default:
			err = ErrRegisterInvalid
			return
		}
		if ps.next().Kind != lex.CLOSE_BRACKET {
			err = ErrBracketMissing
			return
		}
	case lex.DIGIT, lex.EXPR:
		err = ErrTargetInvalid
	case lex.EOL, lex.EOL_COMMENT, lex.EOF:
		err = ErrOpcodeValueMissing
	default:
		err = ErrLexemeUnexpected
	}
	return
}

// value parses a readable operand. Jump operands may also be a signed
// displacement written +N or -N.
func (ps *parser) value(jump bool) (value Value, err error) {
	lx := ps.peek()
	switch lx.Kind {
	case lex.DIGIT, lex.EXPR:
		ps.at = ps.lexer.Advance()
		var imm Word
		imm, err = ps.number(ps.at)
		if err != nil {
			return
		}
		value = Imm(imm)
		return
	case lex.OTHER:
		sign := ps.text(lx)
		if !jump || (sign != "+" && sign != "-") {
			break
		}
		ps.at = ps.lexer.Advance()
		digits := ps.lexer.Peek()
		if digits.Kind != lex.DIGIT && digits.Kind != lex.EXPR {
			err = ErrImmediateExpected
			return
		}
		ps.at = ps.lexer.Advance()
		var imm Word
		imm, err = ps.number(ps.at)
		if err != nil {
			return
		}
		signed := int64(imm)
		if sign == "-" {
			signed = -signed
		}
		value = Rel(signed)
		return
	}

	addr, err := ps.address()
	if err != nil {
		return
	}
	value = addr.Value()

	return
}

// number evaluates a DIGIT or EXPR lexeme.
func (ps *parser) number(lx lex.Lexeme) (value Word, err error) {
	text := ps.text(lx)
	if lx.Kind == lex.EXPR {
		return ps.parenEval(lx, text)
	}

	digits := strings.ReplaceAll(text, "_", "")
	if lx.Base != lex.BASE_DECIMAL {
		digits = digits[2:]
	}

	value, err = strconv.ParseUint(digits, int(lx.Base), 64)
	if err != nil {
		err = ErrParseNumber(text)
		return
	}

	return
}

// parenEval does compile-time $(...) evaluations
func (ps *parser) parenEval(lx lex.Lexeme, text string) (value Word, err error) {
	depth := 0
	for _, ch := range text {
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
		}
	}
	if depth != 0 || !strings.HasSuffix(text, ")") {
		err = ErrExpressionUnclosed
		return
	}
	expr := text[2 : len(text)-1]

	pred := starlark.StringDict{}
	for _, defs := range []map[string]string{sysEquate, ps.asm.predefine} {
		for key, str := range defs {
			v64, err := strconv.ParseInt(str, 0, 64)
			if err != nil {
				// Ignore non-integer defines.
				continue
			}
			pred[key] = starlark.MakeInt64(v64)
		}
	}
	for name, index := range ps.prog.Labels() {
		pred[name] = starlark.MakeUint64(index)
	}
	pred["LINENO"] = starlark.MakeInt(lx.Line)

	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = errors.Join(ErrParseExpression(expr), err)
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrExpressionNotNumber
		return
	}
	if u64, ok := st_int.Uint64(); ok {
		value = u64
		return
	}
	i64, ok := st_int.Int64()
	if !ok {
		err = ErrExpressionNotNumber
		return
	}
	// Negative results wrap.
	value = Word(i64)
	return
}

// quote renders text as a string literal that unquote reads back.
func quote(text string) string {
	var out strings.Builder

	out.WriteByte('"')
	for n := range len(text) {
		switch ch := text[n]; ch {
		case '\\':
			out.WriteString(`\\`)
		case '"':
			out.WriteString(`\"`)
		case '\n':
			out.WriteString(`\n`)
		case '\t':
			out.WriteString(`\t`)
		case '\r':
			out.WriteString(`\r`)
		case 0:
			out.WriteString(`\0`)
		default:
			out.WriteByte(ch)
		}
	}
	out.WriteByte('"')

	return out.String()
}

// unquote strips the quotes of a string literal and expands its escapes.
// Unknown escapes are kept as written.
func unquote(text string) (str string, err error) {
	var out strings.Builder

	body := text[1:]
	escaped := false
	for n, ch := range body {
		if escaped {
			escaped = false
			switch ch {
			case '\\':
				out.WriteRune('\\')
			case '"':
				out.WriteRune('"')
			case 'n':
				out.WriteRune('\n')
			case 't':
				out.WriteRune('\t')
			case 'r':
				out.WriteRune('\r')
			case '0':
				out.WriteRune(0)
			default:
				out.WriteRune('\\')
				out.WriteRune(ch)
			}
			continue
		}
		switch ch {
		case '\\':
			escaped = true
		case '"':
			if n != len(body)-1 {
				err = ErrStringUnterminated
				return
			}
			str = out.String()
			return
		default:
			out.WriteRune(ch)
		}
	}

	err = ErrStringUnterminated
	return
}
