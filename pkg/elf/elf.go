// Package elf provides ELF64 relocatable object building utilities.
// This package has no dependencies on the assembler internals and can be
// used standalone for generating .o files.
package elf

import (
	"encoding/binary"
	"os"
)

// ELF64 constants
const (
	// ELF identification
	ELFMAG0       = 0x7f
	ELFMAG1       = 'E'
	ELFMAG2       = 'L'
	ELFMAG3       = 'F'
	ELFCLASS64    = 2
	ELFDATA2LSB   = 1 // Little endian
	EV_CURRENT    = 1
	ELFOSABI_NONE = 0

	// ELF types
	ET_REL = 1 // Relocatable file

	// Machine types
	EM_X86_64 = 62

	// Section header types
	SHT_NULL     = 0
	SHT_PROGBITS = 1
	SHT_SYMTAB   = 2
	SHT_STRTAB   = 3
	SHT_RELA     = 4

	// Section header flags
	SHF_ALLOC     = 0x2
	SHF_EXECINSTR = 0x4
	SHF_INFO_LINK = 0x40

	// Symbol bindings
	STB_LOCAL  = 0
	STB_GLOBAL = 1

	// Symbol types
	STT_NOTYPE  = 0
	STT_FUNC    = 2
	STT_SECTION = 3

	// Relocation types
	R_X86_64_PLT32 = 4

	// Sizes
	ELF64HeaderSize = 64
	ELF64ShdrSize   = 64
	ELF64SymSize    = 24
	ELF64RelaSize   = 24
)

// Section header table indices. The relocation info computed during
// encoding assumes exactly this layout.
const (
	SecNull = iota
	SecText
	SecSymtab
	SecStrtab
	SecRelaText
	SecNoData
	SecShstrtab

	numSections
)

// Header64 represents the ELF64 file header.
type Header64 struct {
	Ident     [16]byte // ELF identification
	Type      uint16   // Object file type
	Machine   uint16   // Machine type
	Version   uint32   // Object file version
	Entry     uint64   // Entry point address
	PhOff     uint64   // Program header offset
	ShOff     uint64   // Section header offset
	Flags     uint32   // Processor-specific flags
	EhSize    uint16   // ELF header size
	PhEntSize uint16   // Program header entry size
	PhNum     uint16   // Number of program headers
	ShEntSize uint16   // Section header entry size
	ShNum     uint16   // Number of section headers
	ShStrNdx  uint16   // Section name string table index
}

// Shdr64 represents an ELF64 section header.
type Shdr64 struct {
	Name      uint32 // Offset into .shstrtab
	Type      uint32 // Section type
	Flags     uint64 // Section flags
	Addr      uint64 // Virtual address (0 in relocatable files)
	Off       uint64 // File offset of section data
	Size      uint64 // Section size in bytes
	Link      uint32 // Linked section index
	Info      uint32 // Extra information
	AddrAlign uint64 // Address alignment
	EntSize   uint64 // Entry size for table sections
}

// Sym64 represents an ELF64 symbol table entry.
type Sym64 struct {
	Name  uint32 // Offset into .strtab
	Info  uint8  // Binding and type
	Other uint8  // Visibility
	Shndx uint16 // Defining section index
	Value uint64 // Symbol value (offset into .text)
	Size  uint64 // Symbol size in bytes
}

// Rela64 represents an ELF64 RELA relocation entry.
type Rela64 struct {
	Offset uint64 // Location to patch, relative to .text
	Info   uint64 // Symbol table index and relocation type
	Addend int64  // Constant addend
}

// Bytes returns the 24-byte little-endian entry.
func (r Rela64) Bytes() []byte {
	buf := make([]byte, 0, ELF64RelaSize)
	buf = appendLE64(buf, r.Offset)
	buf = appendLE64(buf, r.Info)
	buf = appendLE64(buf, uint64(r.Addend))
	return buf
}

// symbolEntry is one user symbol queued for the object file.
type symbolEntry struct {
	name     string
	code     []byte
	global   bool
	function bool
}

// Builder constructs an ELF64 relocatable object.
type Builder struct {
	syms  []symbolEntry
	relas []Rela64
}

// NewBuilder creates a new relocatable object builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddSymbol queues a code symbol. Symbols must be added in source order:
// the order determines .text layout and symbol table indices.
func (b *Builder) AddSymbol(name string, code []byte, global, function bool) {
	b.syms = append(b.syms, symbolEntry{
		name:     name,
		code:     code,
		global:   global,
		function: function,
	})
}

// AddRela queues a finalized .rela.text entry. Offsets and info must
// already be .text-global.
func (b *Builder) AddRela(r Rela64) {
	b.relas = append(b.relas, r)
}

// shstrtab section names, in section order. The leading NUL is the name of
// the null section.
var sectionNames = [numSections]string{
	SecNull:     "",
	SecText:     ".text",
	SecSymtab:   ".symtab",
	SecStrtab:   ".strtab",
	SecRelaText: ".rela.text",
	SecNoData:   ".nodata",
	SecShstrtab: ".shstrtab",
}

// Bytes produces the complete object file image.
func (b *Builder) Bytes() []byte {
	text := b.textSection()
	symtab, strtab := b.symtabSections()
	relaData := b.relaSection()
	shstrtab, nameOffs := buildStrtab(sectionNames[:])

	// Section data layout, directly after the ELF header. Table sections
	// are 8-aligned.
	textOff := uint64(ELF64HeaderSize)
	symtabOff := alignUp(textOff+uint64(len(text)), 8)
	strtabOff := symtabOff + uint64(len(symtab))
	relaOff := alignUp(strtabOff+uint64(len(strtab)), 8)
	shstrtabOff := relaOff + uint64(len(relaData))
	shOff := alignUp(shstrtabOff+uint64(len(shstrtab)), 8)

	shdrs := [numSections]Shdr64{
		SecText: {
			Type:      SHT_PROGBITS,
			Flags:     SHF_ALLOC | SHF_EXECINSTR,
			Off:       textOff,
			Size:      uint64(len(text)),
			AddrAlign: 1,
		},
		SecSymtab: {
			Type:      SHT_SYMTAB,
			Off:       symtabOff,
			Size:      uint64(len(symtab)),
			Link:      SecStrtab,
			Info:      b.firstGlobalIndex(),
			AddrAlign: 8,
			EntSize:   ELF64SymSize,
		},
		SecStrtab: {
			Type:      SHT_STRTAB,
			Off:       strtabOff,
			Size:      uint64(len(strtab)),
			AddrAlign: 1,
		},
		SecRelaText: {
			Type:      SHT_RELA,
			Flags:     SHF_INFO_LINK,
			Off:       relaOff,
			Size:      uint64(len(relaData)),
			Link:      SecSymtab,
			Info:      SecText,
			AddrAlign: 8,
			EntSize:   ELF64RelaSize,
		},
		SecNoData: {
			Type: SHT_NULL,
		},
		SecShstrtab: {
			Type:      SHT_STRTAB,
			Off:       shstrtabOff,
			Size:      uint64(len(shstrtab)),
			AddrAlign: 1,
		},
	}
	for i := range shdrs {
		shdrs[i].Name = nameOffs[i]
	}

	out := make([]byte, 0, shOff+numSections*ELF64ShdrSize)
	out = b.writeHeader(out, shOff)
	out = append(out, text...)
	out = padTo(out, symtabOff)
	out = append(out, symtab...)
	out = append(out, strtab...)
	out = padTo(out, relaOff)
	out = append(out, relaData...)
	out = append(out, shstrtab...)
	out = padTo(out, shOff)
	for i := range shdrs {
		out = writeShdr(out, &shdrs[i])
	}
	return out
}

// WriteFile writes the object file image to path with mode 0644.
func (b *Builder) WriteFile(path string) error {
	return os.WriteFile(path, b.Bytes(), 0644)
}

// textSection concatenates all symbol code buffers in source order.
func (b *Builder) textSection() []byte {
	var text []byte
	for _, s := range b.syms {
		text = append(text, s.code...)
	}
	return text
}

// symtabSections builds .symtab and .strtab together: a null symbol, the
// .text section symbol, then one entry per user symbol in source order.
func (b *Builder) symtabSections() (symtab, strtab []byte) {
	strtab = []byte{0}

	entries := make([]Sym64, 0, len(b.syms)+2)
	entries = append(entries, Sym64{}) // null symbol
	entries = append(entries, Sym64{
		Info:  STB_LOCAL<<4 | STT_SECTION,
		Shndx: SecText,
	})

	var value uint64
	for _, s := range b.syms {
		nameOff := uint32(len(strtab))
		strtab = append(strtab, s.name...)
		strtab = append(strtab, 0)

		bind := uint8(STB_LOCAL)
		if s.global {
			bind = STB_GLOBAL
		}
		typ := uint8(STT_NOTYPE)
		if s.function {
			typ = STT_FUNC
		}
		entries = append(entries, Sym64{
			Name:  nameOff,
			Info:  bind<<4 | typ,
			Shndx: SecText,
			Value: value,
			Size:  uint64(len(s.code)),
		})
		value += uint64(len(s.code))
	}

	symtab = make([]byte, 0, len(entries)*ELF64SymSize)
	for _, e := range entries {
		symtab = appendLE32(symtab, e.Name)
		symtab = append(symtab, e.Info, e.Other)
		symtab = appendLE16(symtab, e.Shndx)
		symtab = appendLE64(symtab, e.Value)
		symtab = appendLE64(symtab, e.Size)
	}
	return symtab, strtab
}

// firstGlobalIndex returns the symtab index one past the last local symbol,
// as required by sh_info of SHT_SYMTAB sections.
func (b *Builder) firstGlobalIndex() uint32 {
	info := uint32(2) // null symbol and section symbol are local
	for i, s := range b.syms {
		if !s.global {
			info = uint32(i) + 3
		}
	}
	return info
}

// relaSection serializes the queued relocation entries.
func (b *Builder) relaSection() []byte {
	out := make([]byte, 0, len(b.relas)*ELF64RelaSize)
	for _, r := range b.relas {
		out = append(out, r.Bytes()...)
	}
	return out
}

// buildStrtab lays names out NUL-separated and returns each name's offset.
func buildStrtab(names []string) ([]byte, []uint32) {
	tab := []byte{0}
	offs := make([]uint32, len(names))
	for i, n := range names {
		if n == "" {
			offs[i] = 0
			continue
		}
		offs[i] = uint32(len(tab))
		tab = append(tab, n...)
		tab = append(tab, 0)
	}
	return tab, offs
}

// writeHeader writes the ELF64 header for a relocatable file.
func (b *Builder) writeHeader(out []byte, shOff uint64) []byte {
	hdr := Header64{
		Type:      ET_REL,
		Machine:   EM_X86_64,
		Version:   EV_CURRENT,
		Entry:     0,
		PhOff:     0,
		ShOff:     shOff,
		EhSize:    ELF64HeaderSize,
		PhEntSize: 0,
		PhNum:     0,
		ShEntSize: ELF64ShdrSize,
		ShNum:     numSections,
		ShStrNdx:  SecShstrtab,
	}

	// ELF identification
	hdr.Ident[0] = ELFMAG0
	hdr.Ident[1] = ELFMAG1
	hdr.Ident[2] = ELFMAG2
	hdr.Ident[3] = ELFMAG3
	hdr.Ident[4] = ELFCLASS64
	hdr.Ident[5] = ELFDATA2LSB
	hdr.Ident[6] = EV_CURRENT
	hdr.Ident[7] = ELFOSABI_NONE
	// Ident[8..15] are padding (already zero)

	out = append(out, hdr.Ident[:]...)
	out = appendLE16(out, hdr.Type)
	out = appendLE16(out, hdr.Machine)
	out = appendLE32(out, hdr.Version)
	out = appendLE64(out, hdr.Entry)
	out = appendLE64(out, hdr.PhOff)
	out = appendLE64(out, hdr.ShOff)
	out = appendLE32(out, hdr.Flags)
	out = appendLE16(out, hdr.EhSize)
	out = appendLE16(out, hdr.PhEntSize)
	out = appendLE16(out, hdr.PhNum)
	out = appendLE16(out, hdr.ShEntSize)
	out = appendLE16(out, hdr.ShNum)
	out = appendLE16(out, hdr.ShStrNdx)

	return out
}

// writeShdr writes a section header.
func writeShdr(out []byte, shdr *Shdr64) []byte {
	out = appendLE32(out, shdr.Name)
	out = appendLE32(out, shdr.Type)
	out = appendLE64(out, shdr.Flags)
	out = appendLE64(out, shdr.Addr)
	out = appendLE64(out, shdr.Off)
	out = appendLE64(out, shdr.Size)
	out = appendLE32(out, shdr.Link)
	out = appendLE32(out, shdr.Info)
	out = appendLE64(out, shdr.AddrAlign)
	out = appendLE64(out, shdr.EntSize)
	return out
}

// padTo appends zero bytes until the buffer reaches off.
func padTo(out []byte, off uint64) []byte {
	for uint64(len(out)) < off {
		out = append(out, 0)
	}
	return out
}

// Little-endian append helpers
func appendLE16(out []byte, v uint16) []byte {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	return append(out, buf[:]...)
}

func appendLE32(out []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(out, buf[:]...)
}

func appendLE64(out []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(out, buf[:]...)
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}
