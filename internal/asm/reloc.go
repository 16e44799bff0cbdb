package asm

import "github.com/lcox74/attasm/pkg/elf"

// symbolIndexBias accounts for the null symbol at symtab index 0 and the
// .text section symbol at index 1.
const symbolIndexBias = 2

// FinalizeRelocations rebases every relocation from symbol-local to
// .text-global and fills in its r_info field. Targets defined in this
// translation unit get their symbol table index; external targets get
// index 0 and are resolved by the linker against the string table.
func FinalizeRelocations(tab *SymbolTable, relocs Relocations) {
	var cumulative uint64
	for _, name := range tab.Names() {
		sym, _ := tab.Get(name)
		for _, r := range relocs[name] {
			r.Rela.Offset += cumulative

			var index uint64
			if i, ok := tab.IndexOf(r.Name); ok {
				index = uint64(i) + symbolIndexBias
			}
			r.Rela.Info = index<<32 | elf.R_X86_64_PLT32
		}
		cumulative += uint64(len(sym.Codes))
	}
}
