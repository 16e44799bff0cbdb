package amd64

import (
	"errors"
	"fmt"
)

// ErrUnsupportedCombo reports a mnemonic/operand-kind/width tuple with no
// entry in the encoding table.
var ErrUnsupportedCombo = errors.New("unsupported operand combination")

// ErrWidthMismatch reports a source operand wider than its destination.
var ErrWidthMismatch = errors.New("operand width mismatch")

func comboErr(name string, ops ...Operand) error {
	switch len(ops) {
	case 1:
		return fmt.Errorf("%w: %s %s", ErrUnsupportedCombo, name, ops[0])
	case 2:
		return fmt.Errorf("%w: %s %s, %s", ErrUnsupportedCombo, name, ops[0], ops[1])
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedCombo, name)
}

func widthErr(name string, src, dst Operand) error {
	return fmt.Errorf("%w: %s %s, %s", ErrWidthMismatch, name, src, dst)
}

// movKinds maps operand size to the three mov forms of that width:
// register source (MR), register/memory destination of a register load (RM),
// and immediate source (MI).
var movKinds = map[OperandSize][3]Kind{
	Byte:  {MovRM8R8, MovR8RM8, MovRM8Imm8},
	Word:  {MovRM16R16, MovR16RM16, MovRM16Imm16},
	Dword: {MovRM32R32, MovR32RM32, MovRM32Imm32},
	Qword: {MovRM64R64, MovR64RM64, MovRM64Imm32},
}

// movImm converts the parsed immediate to the width the MI form stores.
// The byte form takes only an imm8; the word form stores an imm16, widening
// an imm8; dword and qword forms store an imm32 (sign-extended by the qword
// form).
func movImm(size OperandSize, imm Immediate) (Immediate, error) {
	switch size {
	case Byte:
		if imm.Width() != Imm8 {
			return Immediate{}, ErrWidthMismatch
		}
		return imm, nil
	case Word:
		switch imm.Width() {
		case Imm8:
			return NewImm16(int16(imm.Value())), nil
		case Imm16:
			return imm, nil
		}
		return Immediate{}, ErrWidthMismatch
	default:
		if imm.Width() == Imm64 {
			return Immediate{}, ErrWidthMismatch
		}
		return imm.As32Bit(), nil
	}
}

// NewMov selects the mov form for the given operand size and (src, dst)
// kinds. Register-to-register uses the MR form; a memory operand always
// takes the r/m role; an immediate source uses the sign-extending
// r/m+imm form, never the 10-byte imm64 one.
func NewMov(size OperandSize, src, dst Operand) (Inst, error) {
	kinds := movKinds[size]
	switch {
	case src.IsRegister() && (dst.IsRegister() || dst.IsMemory()):
		return Inst{Kind: kinds[0], Reg: src.Reg(), RM: dst}, nil
	case src.IsMemory() && dst.IsRegister():
		return Inst{Kind: kinds[1], Reg: dst.Reg(), RM: src}, nil
	case src.IsImmediate() && (dst.IsRegister() || dst.IsMemory()):
		imm, err := movImm(size, src.Imm())
		if err != nil {
			return Inst{}, widthErr("mov", src, dst)
		}
		return Inst{Kind: kinds[2], Reg: NoReg, RM: dst, Imm: imm}, nil
	}
	return Inst{}, comboErr("mov", src, dst)
}

// arithKinds holds the add/sub form set for one operand width:
// MR, RM, imm8 and imm32 variants.
type arithKinds struct {
	mr, rm, imm8, imm32 Kind
}

var addKinds = map[OperandSize]arithKinds{
	Dword: {AddRM32R32, AddR32RM32, AddRM32Imm8, AddRM32Imm32},
	Qword: {AddRM64R64, AddR64RM64, AddRM64Imm8, AddRM64Imm32},
}

var subKinds = map[OperandSize]arithKinds{
	Dword: {SubRM32R32, SubR32RM32, SubRM32Imm8, SubRM32Imm32},
	Qword: {SubRM64R64, SubR64RM64, SubRM64Imm8, SubRM64Imm32},
}

func newArith(name string, kinds map[OperandSize]arithKinds, size OperandSize, src, dst Operand) (Inst, error) {
	ks, ok := kinds[size]
	if !ok {
		return Inst{}, comboErr(name, src, dst)
	}
	switch {
	case src.IsRegister() && (dst.IsRegister() || dst.IsMemory()):
		return Inst{Kind: ks.mr, Reg: src.Reg(), RM: dst}, nil
	case src.IsMemory() && dst.IsRegister():
		return Inst{Kind: ks.rm, Reg: dst.Reg(), RM: src}, nil
	case src.IsImmediate() && (dst.IsRegister() || dst.IsMemory()):
		imm := src.Imm()
		switch imm.Width() {
		case Imm8:
			return Inst{Kind: ks.imm8, RM: dst, Imm: imm}, nil
		case Imm16, Imm32:
			return Inst{Kind: ks.imm32, RM: dst, Imm: imm.As32Bit()}, nil
		}
		return Inst{}, widthErr(name, src, dst)
	}
	return Inst{}, comboErr(name, src, dst)
}

// NewAdd selects the add form for the given size and operand kinds.
// Small immediates use the 83 /0 ib short form.
func NewAdd(size OperandSize, src, dst Operand) (Inst, error) {
	return newArith("add", addKinds, size, src, dst)
}

// NewSub selects the sub form for the given size and operand kinds.
// Small immediates use the 83 /5 ib short form.
func NewSub(size OperandSize, src, dst Operand) (Inst, error) {
	return newArith("sub", subKinds, size, src, dst)
}

// NewCmp compares an imm32 against r/m64, with the dedicated short form
// when the destination is RAX.
func NewCmp(size OperandSize, src, dst Operand) (Inst, error) {
	if size != Qword || !src.IsImmediate() {
		return Inst{}, comboErr("cmp", src, dst)
	}
	imm := src.Imm()
	if imm.Width() == Imm64 {
		return Inst{}, widthErr("cmp", src, dst)
	}
	imm = imm.As32Bit()
	if dst.IsRegister() && dst.Reg() == RAX {
		return Inst{Kind: CmpRAXImm32, Imm: imm}, nil
	}
	if dst.IsRegister() || dst.IsMemory() {
		return Inst{Kind: CmpRM64Imm32, RM: dst, Imm: imm}, nil
	}
	return Inst{}, comboErr("cmp", src, dst)
}

// NewIMul builds the two-operand form: r64 := r64 * r/m64.
func NewIMul(size OperandSize, src, dst Operand) (Inst, error) {
	if size != Qword || !dst.IsRegister() || !(src.IsRegister() || src.IsMemory()) {
		return Inst{}, comboErr("imul", src, dst)
	}
	return Inst{Kind: IMulR64RM64, Reg: dst.Reg(), RM: src}, nil
}

// NewIDiv builds the signed-divide form over r/m64.
func NewIDiv(size OperandSize, op Operand) (Inst, error) {
	if size != Qword || !(op.IsRegister() || op.IsMemory()) {
		return Inst{}, comboErr("idiv", op)
	}
	return Inst{Kind: IDivRM64, RM: op}, nil
}

// NewInc builds the increment form over r/m64.
func NewInc(size OperandSize, op Operand) (Inst, error) {
	if size != Qword || !(op.IsRegister() || op.IsMemory()) {
		return Inst{}, comboErr("inc", op)
	}
	return Inst{Kind: IncRM64, RM: op}, nil
}

// NewNeg builds the two's-complement negate form over r/m64.
func NewNeg(size OperandSize, op Operand) (Inst, error) {
	if size != Qword || !(op.IsRegister() || op.IsMemory()) {
		return Inst{}, comboErr("neg", op)
	}
	return Inst{Kind: NegRM64, RM: op}, nil
}

// NewLea loads the effective address of a memory operand into r64.
func NewLea(size OperandSize, src, dst Operand) (Inst, error) {
	if size != Qword || !src.IsMemory() || !dst.IsRegister() {
		return Inst{}, comboErr("lea", src, dst)
	}
	return Inst{Kind: LeaR64Mem, Reg: dst.Reg(), RM: src}, nil
}

// NewPush selects the push form: opcode-embedded register, r/m64, or the
// short immediate forms (6A ib / 68 iw / 68 id) at the parsed width.
func NewPush(size OperandSize, op Operand) (Inst, error) {
	if size != Qword {
		return Inst{}, comboErr("push", op)
	}
	switch {
	case op.IsRegister():
		return Inst{Kind: PushR64, Reg: op.Reg()}, nil
	case op.IsMemory():
		return Inst{Kind: PushRM64, RM: op}, nil
	case op.IsImmediate():
		switch op.Imm().Width() {
		case Imm8:
			return Inst{Kind: PushImm8, Imm: op.Imm()}, nil
		case Imm16:
			return Inst{Kind: PushImm16, Imm: op.Imm()}, nil
		case Imm32:
			return Inst{Kind: PushImm32, Imm: op.Imm()}, nil
		}
		return Inst{}, widthErr("push", op, op)
	}
	return Inst{}, comboErr("push", op)
}

// NewPop builds the pop form over r64.
func NewPop(size OperandSize, op Operand) (Inst, error) {
	if size != Qword || !op.IsRegister() {
		return Inst{}, comboErr("pop", op)
	}
	return Inst{Kind: PopR64, Reg: op.Reg()}, nil
}

// NewCall builds a near relative call to a named symbol. The displacement
// field is emitted as zero and resolved through a relocation.
func NewCall(target string) Inst {
	return Inst{Kind: CallFunc, Label: target}
}

// NewJmp builds an unconditional jump to an intra-symbol label.
func NewJmp(label string) Inst { return Inst{Kind: JmpLabel, Label: label} }

// NewJe builds a jump-if-equal to an intra-symbol label.
func NewJe(label string) Inst { return Inst{Kind: JeLabel, Label: label} }

// NewJle builds a jump-if-less-or-equal to an intra-symbol label.
func NewJle(label string) Inst { return Inst{Kind: JleLabel, Label: label} }

func NewRet() Inst     { return Inst{Kind: Ret} }
func NewSyscall() Inst { return Inst{Kind: Syscall} }
func NewEndbr64() Inst { return Inst{Kind: Endbr64} }
func NewCwd() Inst     { return Inst{Kind: Cwd} }
func NewCdq() Inst     { return Inst{Kind: Cdq} }
func NewCqo() Inst     { return Inst{Kind: Cqo} }
