package amd64

import (
	"encoding/binary"
	"fmt"
)

// DispWidth tags the stored width of a memory displacement.
type DispWidth int

const (
	DispNone DispWidth = iota
	Disp8
	Disp32
)

// Displacement is a signed offset added to a base register when computing
// an effective address. The width is fixed at parse time from the literal
// magnitude; the encoder never re-sizes it.
type Displacement struct {
	width DispWidth
	value int32
}

func NewDisp8(v int8) Displacement   { return Displacement{width: Disp8, value: int32(v)} }
func NewDisp32(v int32) Displacement { return Displacement{width: Disp32, value: v} }

// FitDisp builds the narrowest displacement that holds v.
func FitDisp(v int32) Displacement {
	if v >= -128 && v <= 127 {
		return NewDisp8(int8(v))
	}
	return NewDisp32(v)
}

// Width returns the tagged width; DispNone for the zero value.
func (d Displacement) Width() DispWidth { return d.width }

// Value returns the signed offset.
func (d Displacement) Value() int32 { return d.value }

// Bytes returns the little-endian encoding at the tagged width.
func (d Displacement) Bytes() []byte {
	switch d.width {
	case Disp8:
		return []byte{byte(d.value)}
	case Disp32:
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(d.value))
		return buf[:]
	}
	return nil
}

func (d Displacement) String() string {
	return fmt.Sprintf("%d", d.value)
}
