package amd64

import (
	"encoding/binary"
	"fmt"
)

// ImmWidth tags the stored width of an immediate value.
type ImmWidth int

const (
	ImmNone ImmWidth = iota
	Imm8
	Imm16
	Imm32
	Imm64
)

// Immediate is a width-tagged immediate value. The width is chosen when the
// operand is parsed and is never changed implicitly; widening is an explicit
// conversion.
type Immediate struct {
	width ImmWidth
	value int64
}

func NewImm8(v int8) Immediate   { return Immediate{width: Imm8, value: int64(v)} }
func NewImm16(v int16) Immediate { return Immediate{width: Imm16, value: int64(v)} }
func NewImm32(v int32) Immediate { return Immediate{width: Imm32, value: int64(v)} }
func NewImm64(v int64) Immediate { return Immediate{width: Imm64, value: v} }

// Width returns the tagged width.
func (i Immediate) Width() ImmWidth { return i.width }

// Value returns the signed value.
func (i Immediate) Value() int64 { return i.value }

// As32Bit widens the immediate to 32 bits. Values already wider are
// returned unchanged.
func (i Immediate) As32Bit() Immediate {
	switch i.width {
	case Imm8, Imm16:
		return Immediate{width: Imm32, value: i.value}
	default:
		return i
	}
}

// Bytes returns the little-endian encoding at the tagged width.
func (i Immediate) Bytes() []byte {
	switch i.width {
	case Imm8:
		return []byte{byte(i.value)}
	case Imm16:
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], uint16(i.value))
		return buf[:]
	case Imm32:
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(i.value))
		return buf[:]
	case Imm64:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(i.value))
		return buf[:]
	}
	return nil
}

// String returns the AT&T spelling ("$42").
func (i Immediate) String() string {
	return fmt.Sprintf("$%d", i.value)
}
