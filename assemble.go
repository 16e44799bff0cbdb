// Package attasm assembles AT&T-syntax x86-64 source into relocatable
// ELF64 object files.
//
// The pipeline is strictly sequential: parse the source into an
// insertion-ordered symbol table, encode each symbol's instructions while
// resolving intra-symbol jumps, rebase the collected relocations to
// .text-global offsets, and hand everything to the ELF builder.
package attasm

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/lcox74/attasm/internal/asm"
	"github.com/lcox74/attasm/internal/parser"
	"github.com/lcox74/attasm/pkg/elf"
)

// Syntax selects the input dialect.
type Syntax int

const (
	SyntaxATT Syntax = iota
	SyntaxIntel
)

// AssembleFile assembles the named source file and returns the ELF builder
// holding the finished object image.
func AssembleFile(path string, syntax Syntax) (*elf.Builder, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return AssembleCode(string(src), syntax)
}

// AssembleCode assembles source text. Only AT&T syntax is implemented;
// SyntaxIntel is rejected.
func AssembleCode(src string, syntax Syntax) (*elf.Builder, error) {
	if syntax == SyntaxIntel {
		return nil, parser.ErrIntelSyntax
	}

	tab, err := parser.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	log.WithField("symbols", tab.Len()).Debug("parsed source")

	relocs, err := asm.EncodeSymbols(tab)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	asm.FinalizeRelocations(tab, relocs)

	builder := elf.NewBuilder()
	for _, name := range tab.Names() {
		sym, _ := tab.Get(name)
		builder.AddSymbol(name, sym.Codes, sym.Bind == asm.BindGlobal, sym.Type == asm.TypeFunc)
	}
	for _, name := range tab.Names() {
		for _, r := range relocs[name] {
			builder.AddRela(r.Rela)
		}
	}
	return builder, nil
}

// Parse exposes the parsed symbol table without encoding, for tooling that
// inspects the source structure.
func Parse(src string, syntax Syntax) (*asm.SymbolTable, error) {
	if syntax == SyntaxIntel {
		return nil, parser.ErrIntelSyntax
	}
	return parser.Parse(src)
}
