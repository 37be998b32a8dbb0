// Package symbol interns identifiers and string literals to small ids.
package symbol

import (
	"iter"
)

// Symbol is the interned id of a string. The zero Symbol is never issued.
type Symbol uint32

// Table is a string interning table. Ids are dense and start at 1.
type Table struct {
	strings []string
	symbols map[string]Symbol
}

// NewTable creates an empty table.
func NewTable() (tbl *Table) {
	tbl = &Table{}
	return
}

// Intern returns the id of s, assigning the next free id when s is new.
func (tbl *Table) Intern(s string) (id Symbol) {
	id, defined := tbl.symbols[s]
	if !defined {
		if tbl.symbols == nil {
			tbl.symbols = make(map[string]Symbol)
		}
		id = Symbol(len(tbl.strings)) + 1
		tbl.strings = append(tbl.strings, s)
		tbl.symbols[s] = id
	}
	return
}

// Lookup finds the id of s without interning it.
func (tbl *Table) Lookup(s string) (id Symbol, ok bool) {
	id, ok = tbl.symbols[s]
	return
}

// Resolve returns the string behind an id.
func (tbl *Table) Resolve(id Symbol) (s string, ok bool) {
	if i := int(id) - 1; i >= 0 && i < len(tbl.strings) {
		s = tbl.strings[i]
		ok = true
	}
	return
}

// Len is the number of interned strings.
func (tbl *Table) Len() int {
	return len(tbl.strings)
}

// All iterates over every interned string in id order.
func (tbl *Table) All() iter.Seq2[Symbol, string] {
	return func(yield func(Symbol, string) bool) {
		for n, s := range tbl.strings {
			if !yield(Symbol(n+1), s) {
				return
			}
		}
	}
}
