package elf

import (
	"bytes"
	stdelf "debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSample assembles a two-symbol object: foo (local code) and main
// (global function) with one relocation against foo.
func buildSample() *Builder {
	b := NewBuilder()
	b.AddSymbol("foo", []byte{0x48, 0xC7, 0xC0, 0x2A, 0x00, 0x00, 0x00, 0xC3}, false, false)
	b.AddSymbol("main", []byte{0xE8, 0x00, 0x00, 0x00, 0x00, 0xC3, 0x00, 0x00}, true, true)
	b.AddRela(Rela64{Offset: 9, Info: 2<<32 | R_X86_64_PLT32, Addend: -4})
	return b
}

func TestObjectHeader(t *testing.T) {
	data := buildSample().Bytes()

	f, err := stdelf.NewFile(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, stdelf.ET_REL, f.Type)
	assert.Equal(t, stdelf.EM_X86_64, f.Machine)
	assert.Equal(t, stdelf.ELFCLASS64, f.Class)
	assert.Equal(t, stdelf.ELFDATA2LSB, f.Data)
}

func TestSectionLayout(t *testing.T) {
	data := buildSample().Bytes()

	f, err := stdelf.NewFile(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	// Fixed section order: the encoder's relocation info depends on it.
	names := make([]string, len(f.Sections))
	for i, s := range f.Sections {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"", ".text", ".symtab", ".strtab", ".rela.text", ".nodata", ".shstrtab"}, names)

	text := f.Section(".text")
	require.NotNil(t, text)
	assert.Equal(t, stdelf.SHT_PROGBITS, text.Type)
	assert.Equal(t, stdelf.SHF_ALLOC|stdelf.SHF_EXECINSTR, text.Flags)

	payload, err := text.Data()
	require.NoError(t, err)
	// .text is the concatenation of both symbols' code.
	assert.Len(t, payload, 16)
	assert.Equal(t, byte(0xE8), payload[8])
}

func TestSymbolTable(t *testing.T) {
	data := buildSample().Bytes()

	f, err := stdelf.NewFile(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	// debug/elf hides the null symbol; the section symbol comes first.
	syms, err := f.Symbols()
	require.NoError(t, err)
	require.Len(t, syms, 3)

	assert.Equal(t, stdelf.STT_SECTION, stdelf.ST_TYPE(syms[0].Info))

	foo := syms[1]
	assert.Equal(t, "foo", foo.Name)
	assert.Equal(t, stdelf.STB_LOCAL, stdelf.ST_BIND(foo.Info))
	assert.Equal(t, uint64(0), foo.Value)
	assert.Equal(t, uint64(8), foo.Size)

	main := syms[2]
	assert.Equal(t, "main", main.Name)
	assert.Equal(t, stdelf.STB_GLOBAL, stdelf.ST_BIND(main.Info))
	assert.Equal(t, stdelf.STT_FUNC, stdelf.ST_TYPE(main.Info))
	assert.Equal(t, uint64(8), main.Value)
}

func TestRelaSection(t *testing.T) {
	data := buildSample().Bytes()

	f, err := stdelf.NewFile(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rela := f.Section(".rela.text")
	require.NotNil(t, rela)
	assert.Equal(t, stdelf.SHT_RELA, rela.Type)
	assert.Equal(t, uint64(ELF64RelaSize), rela.Entsize)
	assert.Equal(t, uint32(SecSymtab), rela.Link)
	assert.Equal(t, uint32(SecText), rela.Info)

	raw, err := rela.Data()
	require.NoError(t, err)
	require.Len(t, raw, ELF64RelaSize)
	assert.Equal(t, Rela64{Offset: 9, Info: 2<<32 | R_X86_64_PLT32, Addend: -4}.Bytes(), raw)
}

func TestRelaBytes(t *testing.T) {
	r := Rela64{Offset: 0x11, Info: 2<<32 | R_X86_64_PLT32, Addend: -4}
	expected := []byte{
		0x11, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x04, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00,
		0xFC, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	}
	assert.Equal(t, expected, r.Bytes())
}

func TestEmptyObject(t *testing.T) {
	data := NewBuilder().Bytes()

	f, err := stdelf.NewFile(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Len(t, f.Sections, int(numSections))
	text := f.Section(".text")
	require.NotNil(t, text)
	assert.Zero(t, text.Size)
}
