package amd64

import (
	"fmt"
	"strings"
)

// OperandSize selects the operand width of an instruction form.
type OperandSize int

const (
	Byte OperandSize = iota
	Word
	Dword
	Qword
)

func (s OperandSize) String() string {
	switch s {
	case Byte:
		return "byte"
	case Word:
		return "word"
	case Dword:
		return "dword"
	}
	return "qword"
}

// Memory is an effective-address operand: base register, optional index
// register, optional scale (1/2/4/8) and optional displacement.
type Memory struct {
	Base  Register
	Index Register // NoReg when absent
	Scale uint8    // 0 when absent
	Disp  Displacement
}

// OperandKind discriminates the Operand union.
type OperandKind int

const (
	OperandRegister OperandKind = iota
	OperandMemory
	OperandImmediate
	OperandLabel
)

// Operand is one instruction operand: a general-purpose register, a memory
// reference, an immediate, or a label.
type Operand struct {
	kind  OperandKind
	reg   Register
	mem   Memory
	imm   Immediate
	label string
}

func RegOperand(r Register) Operand    { return Operand{kind: OperandRegister, reg: r} }
func MemOperand(m Memory) Operand      { return Operand{kind: OperandMemory, mem: m} }
func ImmOperand(i Immediate) Operand   { return Operand{kind: OperandImmediate, imm: i} }
func LabelOperand(name string) Operand { return Operand{kind: OperandLabel, label: name} }

func (o Operand) Kind() OperandKind { return o.kind }
func (o Operand) Reg() Register     { return o.reg }
func (o Operand) Mem() Memory       { return o.mem }
func (o Operand) Imm() Immediate    { return o.imm }
func (o Operand) Label() string     { return o.label }

func (o Operand) IsRegister() bool  { return o.kind == OperandRegister }
func (o Operand) IsMemory() bool    { return o.kind == OperandMemory }
func (o Operand) IsImmediate() bool { return o.kind == OperandImmediate }
func (o Operand) IsLabel() bool     { return o.kind == OperandLabel }

// IsExpanded reports whether the register in the ModR/M r/m role (the
// register itself, or the memory base) is R8-R15. Feeds REX.B.
func (o Operand) IsExpanded() bool {
	switch o.kind {
	case OperandRegister:
		return o.reg.IsExpanded()
	case OperandMemory:
		return o.mem.Base.IsExpanded()
	}
	return false
}

// IndexIsExpanded reports whether the SIB index register is R8-R15.
// Feeds REX.X.
func (o Operand) IndexIsExpanded() bool {
	return o.kind == OperandMemory && o.mem.Index.IsExpanded()
}

// NeedsSIB reports whether encoding the operand requires a SIB byte,
// which is the case exactly when a memory operand carries an index register.
func (o Operand) NeedsSIB() bool {
	return o.kind == OperandMemory && o.mem.Index != NoReg
}

// SIB returns the SIB byte for an indexed memory operand.
func (o Operand) SIB() (SIBByte, bool) {
	if !o.NeedsSIB() {
		return SIBByte{}, false
	}
	return SIBByte{
		Base:  o.mem.Base.Code(),
		Index: o.mem.Index.Code(),
		Scale: o.mem.Scale,
	}, true
}

// Disp returns the displacement of a memory operand, if it has one.
func (o Operand) Disp() (Displacement, bool) {
	if o.kind != OperandMemory || o.mem.Disp.Width() == DispNone {
		return Displacement{}, false
	}
	return o.mem.Disp, true
}

// RMCode returns the low three register bits for the ModR/M r/m field:
// the register code for a direct register, or the base register code for a
// memory operand. The SIB escape is applied by the ModR/M constructors.
func (o Operand) RMCode() byte {
	switch o.kind {
	case OperandRegister:
		return o.reg.Code()
	case OperandMemory:
		return o.mem.Base.Code()
	}
	return 0
}

// Mode returns the ModR/M addressing mode the operand encodes with.
func (o Operand) Mode() AddressingMode {
	switch o.kind {
	case OperandRegister:
		return ModeDirect
	case OperandMemory:
		switch o.mem.Disp.Width() {
		case Disp8:
			return ModeDisp8
		case Disp32:
			return ModeDisp32
		}
		return ModeIndirect
	}
	return ModeDirect
}

// Size returns the operand width: the register width for registers and
// memory bases, or the immediate's tagged width.
func (o Operand) Size() OperandSize {
	switch o.kind {
	case OperandRegister:
		return o.reg.Size()
	case OperandMemory:
		return o.mem.Base.Size()
	case OperandImmediate:
		switch o.imm.Width() {
		case Imm8:
			return Byte
		case Imm16:
			return Word
		case Imm32:
			return Dword
		}
		return Qword
	}
	return Qword
}

// String renders the operand in AT&T syntax.
func (o Operand) String() string {
	switch o.kind {
	case OperandRegister:
		return o.reg.String()
	case OperandImmediate:
		return o.imm.String()
	case OperandLabel:
		return o.label
	case OperandMemory:
		var sb strings.Builder
		if o.mem.Disp.Width() != DispNone {
			sb.WriteString(o.mem.Disp.String())
		}
		sb.WriteByte('(')
		sb.WriteString(o.mem.Base.String())
		if o.mem.Index != NoReg {
			sb.WriteString("," + o.mem.Index.String())
			if o.mem.Scale != 0 {
				fmt.Fprintf(&sb, ",%d", o.mem.Scale)
			}
		}
		sb.WriteByte(')')
		return sb.String()
	}
	return "?"
}

// IntelString renders the operand in Intel syntax.
func (o Operand) IntelString() string {
	switch o.kind {
	case OperandRegister:
		return o.reg.Name()
	case OperandImmediate:
		return fmt.Sprintf("%d", o.imm.Value())
	case OperandLabel:
		return o.label
	case OperandMemory:
		var sb strings.Builder
		sb.WriteByte('[')
		sb.WriteString(o.mem.Base.To64Bit().Name())
		if o.mem.Index != NoReg {
			sb.WriteString(" + " + o.mem.Index.Name())
			if o.mem.Scale > 1 {
				fmt.Fprintf(&sb, "*%d", o.mem.Scale)
			}
		}
		if o.mem.Disp.Width() != DispNone {
			fmt.Fprintf(&sb, " %+d", o.mem.Disp.Value())
		}
		sb.WriteByte(']')
		return sb.String()
	}
	return "?"
}
