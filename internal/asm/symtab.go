// Package asm drives the encoding pipeline: it turns the parsed symbol
// table into machine code, resolves intra-symbol jumps and finalizes the
// relocation records handed to the ELF writer.
package asm

import "github.com/lcox74/attasm/pkg/amd64"

// Bind is the symbol binding recorded in the object file.
type Bind int

const (
	BindLocal Bind = iota
	BindGlobal
)

// SymType is the symbol type recorded in the object file.
type SymType int

const (
	TypeNone SymType = iota
	TypeFunc
)

// Group is a labelled contiguous instruction range inside one symbol.
// The first group of a symbol named X carries the synthetic label
// ".LX_entry"; all other labels come from ".L..." lines in the source.
type Group struct {
	Label string
	Insts []amd64.Inst
}

// Symbol is one named unit of code. Codes is filled by the encoder and is
// 4-byte aligned once the symbol is sealed.
type Symbol struct {
	Name   string
	Bind   Bind
	Type   SymType
	Groups []*Group
	Codes  []byte
}

// EntryLabel returns the synthetic entry label for a symbol name.
func EntryLabel(symName string) string {
	return ".L" + symName + "_entry"
}

// SymbolTable maps names to symbols while preserving insertion order.
// Source order determines .text layout and symbol table indexing, so every
// walk over the table uses this order.
type SymbolTable struct {
	names []string
	syms  map[string]*Symbol
}

// NewSymbolTable creates an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{syms: make(map[string]*Symbol)}
}

// Get looks a symbol up by name.
func (t *SymbolTable) Get(name string) (*Symbol, bool) {
	s, ok := t.syms[name]
	return s, ok
}

// GetOrCreate returns the named symbol, creating it on first mention.
func (t *SymbolTable) GetOrCreate(name string) *Symbol {
	if s, ok := t.syms[name]; ok {
		return s
	}
	s := &Symbol{Name: name}
	t.syms[name] = s
	t.names = append(t.names, name)
	return s
}

// IndexOf returns the source position of a symbol, 0-based.
func (t *SymbolTable) IndexOf(name string) (int, bool) {
	for i, n := range t.names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// Names returns the symbol names in insertion order. The slice is shared;
// callers must not mutate it.
func (t *SymbolTable) Names() []string {
	return t.names
}

// Len returns the number of symbols.
func (t *SymbolTable) Len() int {
	return len(t.names)
}
