package cpu

import (
	"cmp"
	"fmt"
	"io"
	"iter"
	"slices"

	"github.com/ezrec/hexvm/lex"
	"github.com/ezrec/hexvm/symbol"
)

// Program is an assembled instruction sequence with its label and symbol
// tables. It is read only once assembled.
type Program struct {
	Sequence []Sequence
	Label    map[symbol.Symbol]Word // Label symbol to instruction index.
	Symbols  *symbol.Table
	LineNo   []int      // Source line of each instruction.
	Span     []lex.Span // Source text of each instruction, mnemonic through last operand.
}

// NewProgram creates an empty program.
func NewProgram() (prog *Program) {
	prog = &Program{
		Label:   make(map[symbol.Symbol]Word),
		Symbols: symbol.NewTable(),
	}
	return
}

// Debug locates an instruction index in the source.
type Debug struct {
	*Sequence
	LineNo int      // Source line, 0 if unknown.
	Span   lex.Span // Source text of the instruction.
	Label  string   // Nearest label at or before the instruction.
	Offset Word     // Instructions past Label.
}

func (dbg Debug) String() string {
	if dbg.Sequence == nil {
		return "?"
	}
	if len(dbg.Label) == 0 {
		return fmt.Sprintf("line %d", dbg.LineNo)
	}
	if dbg.Offset == 0 {
		return fmt.Sprintf("line %d <%v>", dbg.LineNo, dbg.Label)
	}
	return fmt.Sprintf("line %d <%v+%d>", dbg.LineNo, dbg.Label, dbg.Offset)
}

// Debug returns the source location of the instruction at ip.
func (prog *Program) Debug(ip Word) (dbg Debug) {
	if ip >= Word(len(prog.Sequence)) {
		return
	}

	dbg.Sequence = &prog.Sequence[ip]
	if int(ip) < len(prog.LineNo) {
		dbg.LineNo = prog.LineNo[ip]
	}
	if int(ip) < len(prog.Span) {
		dbg.Span = prog.Span[ip]
	}

	for name, index := range prog.Labels() {
		if index > ip {
			break
		}
		dbg.Label = name
		dbg.Offset = ip - index
	}

	return
}

// Codes iterates over the instructions by index.
func (prog *Program) Codes() iter.Seq2[Word, Sequence] {
	return func(yield func(ip Word, seq Sequence) bool) {
		for n, seq := range prog.Sequence {
			if !yield(Word(n), seq) {
				return
			}
		}
	}
}

// Labels iterates over label names and indexes, ordered by index then name.
func (prog *Program) Labels() iter.Seq2[string, Word] {
	type entry struct {
		name  string
		index Word
	}

	var entries []entry
	for sym, index := range prog.Label {
		name, _ := prog.Symbols.Resolve(sym)
		entries = append(entries, entry{name: name, index: index})
	}
	slices.SortFunc(entries, func(a, b entry) int {
		if c := cmp.Compare(a.index, b.index); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})

	return func(yield func(name string, index Word) bool) {
		for _, e := range entries {
			if !yield(e.name, e.index) {
				return
			}
		}
	}
}

// LabelOf returns the instruction index of a named label.
func (prog *Program) LabelOf(name string) (index Word, ok bool) {
	sym, ok := prog.Symbols.Lookup(name)
	if !ok {
		return
	}
	index, ok = prog.Label[sym]
	return
}

// Link checks that every label an instruction refers to is defined.
func (prog *Program) Link() (err error) {
	for ip, seq := range prog.Codes() {
		for _, sym := range seq.Labels() {
			if _, ok := prog.Label[sym]; ok {
				continue
			}
			name, _ := prog.Symbols.Resolve(sym)
			dbg := prog.Debug(ip)
			err = &ErrSyntax{
				LineNo: dbg.LineNo,
				Span:   dbg.Span,
				Text:   seq.Format(prog.Symbols),
				Err:    ErrLabelMissing(name),
			}
			return
		}
	}
	return
}

// Listing writes the labels and instructions as assembly text, with the
// instruction index of each line as a comment.
func (prog *Program) Listing(w io.Writer) (err error) {
	labels := map[Word][]string{}
	for name, index := range prog.Labels() {
		labels[index] = append(labels[index], name)
	}

	for ip := range Word(len(prog.Sequence) + 1) {
		for _, name := range labels[ip] {
			_, err = fmt.Fprintf(w, "%v:\n", name)
			if err != nil {
				return
			}
		}
		if ip == Word(len(prog.Sequence)) {
			break
		}
		_, err = fmt.Fprintf(w, "    %-24v ; %d\n", prog.Sequence[ip].Format(prog.Symbols), ip)
		if err != nil {
			return
		}
	}
	return
}
