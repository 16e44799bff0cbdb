package asm

import (
	"encoding/binary"
	"math"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/lcox74/attasm/pkg/amd64"
	"github.com/lcox74/attasm/pkg/elf"
)

// Reloc is a relocation produced while encoding one symbol. The offset is
// symbol-local until FinalizeRelocations rebases it to .text-global.
type Reloc struct {
	Name string // target symbol name
	Rela elf.Rela64
}

// fixup tracks one intra-symbol label: where it was defined (if yet) and
// the displacement-field offsets of forward jumps still waiting for it.
type fixup struct {
	defined   bool
	definedAt int
	sites     []int
}

// Relocations maps symbol names to their relocation records. Iteration
// must follow the symbol table's order, so lookups go through the map while
// walks go through SymbolTable.Names.
type Relocations map[string][]*Reloc

// EncodeSymbols encodes every symbol in source order, filling each
// symbol's Codes buffer and collecting its relocation records.
func EncodeSymbols(tab *SymbolTable) (Relocations, error) {
	relocs := make(Relocations)
	for _, name := range tab.Names() {
		sym, _ := tab.Get(name)
		rs, err := encodeSymbol(sym)
		if err != nil {
			return nil, err
		}
		if len(rs) > 0 {
			relocs[name] = rs
		}
		log.WithFields(log.Fields{
			"symbol": name,
			"bytes":  len(sym.Codes),
			"relocs": len(rs),
		}).Debug("encoded symbol")
	}
	return relocs, nil
}

// encodeSymbol walks one symbol's groups, appending instruction bytes,
// patching intra-symbol jump displacements and recording call relocations.
// The returned relocations carry symbol-local offsets.
func encodeSymbol(sym *Symbol) ([]*Reloc, error) {
	fixups := make(map[string]*fixup)
	var code []byte
	var relocs []*Reloc

	for _, group := range sym.Groups {
		// The synthetic entry label is not a branch target. Any other
		// label defines a target: patch the forward jumps already waiting
		// on it and remember its offset for backward jumps.
		if !strings.HasSuffix(group.Label, "_entry") {
			f := labelFixup(fixups, group.Label)
			for _, site := range f.sites {
				if err := patchDisp(code, site, len(code), sym.Name, group.Label); err != nil {
					return nil, err
				}
			}
			f.sites = nil
			f.defined = true
			f.definedAt = len(code)
		}

		for _, inst := range group.Insts {
			switch inst.Kind {
			case amd64.CallFunc:
				// The displacement stays zero; the linker patches it via
				// the relocation, which points just past the opcode byte.
				site := len(code) + 1
				code = append(code, inst.Encode()...)
				relocs = append(relocs, &Reloc{
					Name: inst.Label,
					Rela: elf.Rela64{Offset: uint64(site), Addend: -4},
				})

			case amd64.JmpLabel, amd64.JeLabel, amd64.JleLabel:
				site := len(code) + len(inst.OpcodeBytes())
				code = append(code, inst.Encode()...)
				f := labelFixup(fixups, inst.Label)
				if f.defined {
					if err := patchDisp(code, site, f.definedAt, sym.Name, inst.Label); err != nil {
						return nil, err
					}
				} else {
					f.sites = append(f.sites, site)
				}

			default:
				code = append(code, inst.Encode()...)
			}
		}
	}

	// Sealing: every label referenced by a jump must be defined by now.
	for label, f := range fixups {
		if !f.defined && len(f.sites) > 0 {
			return nil, &UndefinedLabelError{Symbol: sym.Name, Label: label}
		}
	}

	// Trailing padding brings the code length to a multiple of 4. An
	// already-aligned stream still gains four zero bytes.
	pad := 4 - len(code)%4
	sym.Codes = append(code, make([]byte, pad)...)

	return relocs, nil
}

// labelFixup returns the fixup entry for a label, creating it on first use.
func labelFixup(fixups map[string]*fixup, label string) *fixup {
	f, ok := fixups[label]
	if !ok {
		f = &fixup{}
		fixups[label] = f
	}
	return f
}

// patchDisp writes the 32-bit displacement target-(site+4) into the four
// bytes at site. Displacements are relative to the instruction end, which
// is always the byte after the displacement field.
func patchDisp(code []byte, site, target int, symName, label string) error {
	disp := int64(target) - int64(site) - 4
	if disp < math.MinInt32 || disp > math.MaxInt32 {
		return &OversizeDisplacementError{Symbol: symName, Label: label, Disp: disp}
	}
	binary.LittleEndian.PutUint32(code[site:], uint32(int32(disp)))
	return nil
}
