package amd64

// Kind discriminates the supported instruction forms. Each value fixes the
// mnemonic, the operand kinds and the operand width, so the encoding of an
// Inst is fully determined by its Kind plus its operand fields.
type Kind int

const (
	// Add
	AddRM32R32 Kind = iota
	AddR32RM32
	AddRM64R64
	AddR64RM64
	AddRM32Imm8
	AddRM32Imm32
	AddRM64Imm8
	AddRM64Imm32

	// Call (near, relative; the displacement is always a relocation)
	CallFunc

	// Sign-extension of the accumulator
	Cwd
	Cdq
	Cqo

	// Cmp
	CmpRAXImm32
	CmpRM64Imm32

	Endbr64

	// Signed divide RDX:RAX by r/m64
	IDivRM64

	// Two-operand signed multiply
	IMulR64RM64

	IncRM64
	NegRM64

	// Jumps by label; the 32-bit displacement is patched by the resolver
	JmpLabel
	JeLabel
	JleLabel

	LeaR64Mem

	// Mov
	MovRM8R8
	MovR8RM8
	MovRM8Imm8
	MovRM16R16
	MovR16RM16
	MovRM16Imm16
	MovRM32R32
	MovR32RM32
	MovRM32Imm32
	MovRM64R64
	MovR64RM64
	MovRM64Imm32

	PopR64

	// Push
	PushR64
	PushRM64
	PushImm8
	PushImm16
	PushImm32

	Ret

	// Sub
	SubRM32R32
	SubR32RM32
	SubRM64R64
	SubR64RM64
	SubRM32Imm8
	SubRM32Imm32
	SubRM64Imm8
	SubRM64Imm32

	Syscall
)

// Encoding names the operand-to-field assignment of an instruction form,
// following the Intel SDM operand-encoding column.
type Encoding int

const (
	// EncZO has no operands.
	EncZO Encoding = iota
	// EncI takes a single immediate.
	EncI
	// EncO embeds a register in the opcode byte.
	EncO
	// EncD takes a relative displacement.
	EncD
	// EncM uses only the ModR/M r/m field; reg holds an extension digit.
	EncM
	// EncMR puts operand 1 in r/m and operand 2 in reg.
	EncMR
	// EncRM puts operand 1 in reg and operand 2 in r/m.
	EncRM
	// EncMI pairs an r/m operand with an immediate.
	EncMI
	// EncOI pairs an opcode-embedded register with an immediate.
	EncOI
)

// Inst is one decoded instruction. Kind selects the form; the remaining
// fields carry exactly the operands that form reads.
type Inst struct {
	Kind  Kind
	Reg   Register // ModR/M reg-field register, or the opcode-embedded register
	RM    Operand  // r/m operand (direct register or memory)
	Imm   Immediate
	Label string // call target or jump label
}

// Encoding returns the operand-encoding class of the instruction form.
func (i Inst) Encoding() Encoding {
	switch i.Kind {
	case Cwd, Cdq, Cqo, Endbr64, Ret, Syscall:
		return EncZO
	case CmpRAXImm32, PushImm8, PushImm16, PushImm32:
		return EncI
	case PopR64, PushR64:
		return EncO
	case CallFunc, JmpLabel, JeLabel, JleLabel:
		return EncD
	case IDivRM64, IncRM64, NegRM64, PushRM64:
		return EncM
	case AddRM32R32, AddRM64R64, MovRM8R8, MovRM16R16, MovRM32R32, MovRM64R64,
		SubRM32R32, SubRM64R64:
		return EncMR
	case AddR32RM32, AddR64RM64, IMulR64RM64, LeaR64Mem,
		MovR8RM8, MovR16RM16, MovR32RM32, MovR64RM64, SubR32RM32, SubR64RM64:
		return EncRM
	default:
		return EncMI
	}
}

// OpcodeBytes returns the opcode byte sequence, with any opcode-embedded
// register already folded in.
func (i Inst) OpcodeBytes() []byte {
	switch i.Kind {
	case AddRM32R32, AddRM64R64:
		return []byte{0x01}
	case AddR32RM32, AddR64RM64:
		return []byte{0x03}
	case AddRM32Imm8, AddRM64Imm8:
		return []byte{0x83}
	case AddRM32Imm32, AddRM64Imm32:
		return []byte{0x81}

	case CallFunc:
		return []byte{0xe8}

	case Cwd:
		return []byte{0x66, 0x99}
	case Cdq, Cqo:
		return []byte{0x99}

	case CmpRAXImm32:
		return []byte{0x3d}
	case CmpRM64Imm32:
		return []byte{0x81}

	case Endbr64:
		return []byte{0xf3, 0x0f, 0x1e, 0xfa}

	case IDivRM64, NegRM64:
		return []byte{0xf7}
	case IMulR64RM64:
		return []byte{0x0f, 0xaf}
	case IncRM64:
		return []byte{0xff}

	case JmpLabel:
		return []byte{0xe9}
	case JeLabel:
		return []byte{0x0f, 0x84}
	case JleLabel:
		return []byte{0x0f, 0x8e}

	case LeaR64Mem:
		return []byte{0x8d}

	case MovRM8R8:
		return []byte{0x88}
	case MovR8RM8:
		return []byte{0x8a}
	case MovRM8Imm8:
		return []byte{0xc6}
	case MovRM16R16, MovRM32R32, MovRM64R64:
		return []byte{0x89}
	case MovR16RM16, MovR32RM32, MovR64RM64:
		return []byte{0x8b}
	case MovRM16Imm16, MovRM32Imm32, MovRM64Imm32:
		return []byte{0xc7}

	case PopR64:
		return []byte{0x58 + i.Reg.Code()}
	case PushR64:
		return []byte{0x50 + i.Reg.Code()}
	case PushRM64:
		return []byte{0xff}
	case PushImm8:
		return []byte{0x6a}
	case PushImm16, PushImm32:
		return []byte{0x68}

	case Ret:
		return []byte{0xc3}

	case SubRM32R32, SubRM64R64:
		return []byte{0x29}
	case SubR32RM32, SubR64RM64:
		return []byte{0x2b}
	case SubRM32Imm8, SubRM64Imm8:
		return []byte{0x83}
	case SubRM32Imm32, SubRM64Imm32:
		return []byte{0x81}

	case Syscall:
		return []byte{0x0f, 0x05}
	}
	return nil
}

// needsPrefix66 reports whether the form carries the operand-size override
// prefix, emitted before any REX prefix.
func (i Inst) needsPrefix66() bool {
	switch i.Kind {
	case MovRM16R16, MovR16RM16, MovRM16Imm16:
		return true
	}
	return false
}

// REXPrefix computes the REX prefix of the instruction, if one is required.
// The prefix is present iff the form selects 64-bit operand size or any
// register routed through the reg, r/m, SIB or opcode fields is R8-R15.
func (i Inst) REXPrefix() (REXPrefix, bool) {
	var rex REXPrefix
	switch i.Kind {
	case AddRM64R64, AddR64RM64, SubRM64R64, SubR64RM64,
		MovRM64R64, MovR64RM64, IMulR64RM64, LeaR64Mem:
		rex = rexFromRegRM(true, i.Reg, i.RM)
	case AddRM64Imm8, AddRM64Imm32, SubRM64Imm8, SubRM64Imm32,
		MovRM64Imm32, CmpRM64Imm32, IDivRM64, IncRM64, NegRM64:
		rex = rexFromRM(true, i.RM)
	case CmpRAXImm32, Cqo:
		rex = NewREX(true, false, false, false)
	case PushR64, PopR64:
		rex = NewREX(false, false, false, i.Reg.IsExpanded())
	case PushRM64:
		rex = rexFromRM(false, i.RM)
	case AddRM32R32, AddR32RM32, SubRM32R32, SubR32RM32,
		MovRM8R8, MovR8RM8, MovRM16R16, MovR16RM16, MovRM32R32, MovR32RM32:
		rex = rexFromRegRM(false, i.Reg, i.RM)
	case MovRM8Imm8, MovRM16Imm16, MovRM32Imm32, AddRM32Imm8, AddRM32Imm32,
		SubRM32Imm8, SubRM32Imm32:
		rex = rexFromRM(false, i.RM)
	default:
		return REXPrefix{}, false
	}
	if !rex.W && !rex.R && !rex.X && !rex.B {
		return REXPrefix{}, false
	}
	return rex, true
}

// modrmDigits maps M/MI forms to their opcode-extension digit.
var modrmDigits = map[Kind]byte{
	AddRM32Imm8:  0,
	AddRM32Imm32: 0,
	AddRM64Imm8:  0,
	AddRM64Imm32: 0,
	CmpRM64Imm32: 7,
	IDivRM64:     7,
	IncRM64:      0,
	NegRM64:      3,
	MovRM8Imm8:   0,
	MovRM16Imm16: 0,
	MovRM32Imm32: 0,
	MovRM64Imm32: 0,
	PushRM64:     6,
	SubRM32Imm8:  5,
	SubRM32Imm32: 5,
	SubRM64Imm8:  5,
	SubRM64Imm32: 5,
}

// ModRM returns the ModR/M byte of the instruction, if the form has one.
func (i Inst) ModRM() (ModRM, bool) {
	switch i.Encoding() {
	case EncMR, EncRM:
		return NewModRMReg(i.RM, i.Reg), true
	case EncM, EncMI:
		return NewModRMDigit(i.RM, modrmDigits[i.Kind]), true
	}
	return ModRM{}, false
}

// SIBByte returns the SIB byte, present only for indexed memory operands.
func (i Inst) SIBByte() (SIBByte, bool) {
	switch i.Encoding() {
	case EncM, EncMI, EncMR, EncRM:
		return i.RM.SIB()
	}
	return SIBByte{}, false
}

// Displacement returns the memory-operand displacement, if any.
func (i Inst) Displacement() (Displacement, bool) {
	switch i.Encoding() {
	case EncM, EncMI, EncMR, EncRM:
		return i.RM.Disp()
	}
	return Displacement{}, false
}

// Immediate returns the immediate field, if the form has one. Call and
// label-jump forms reserve a zero 32-bit field: the jump resolver fills it
// for jumps, a relocation covers it for calls.
func (i Inst) Immediate() (Immediate, bool) {
	switch i.Encoding() {
	case EncI, EncMI, EncOI:
		return i.Imm, true
	case EncD:
		return NewImm32(0), true
	}
	return Immediate{}, false
}

// Encode assembles the instruction bytes in the fixed field order:
// legacy prefix, REX prefix, opcode, ModR/M, SIB, displacement, immediate.
func (i Inst) Encode() []byte {
	code := make([]byte, 0, 16)
	if i.needsPrefix66() {
		code = append(code, 0x66)
	}
	if rex, ok := i.REXPrefix(); ok {
		code = append(code, rex.Byte())
	}
	code = append(code, i.OpcodeBytes()...)
	if m, ok := i.ModRM(); ok {
		code = append(code, m.Byte())
	}
	if s, ok := i.SIBByte(); ok {
		code = append(code, s.Byte())
	}
	if d, ok := i.Displacement(); ok {
		code = append(code, d.Bytes()...)
	}
	if imm, ok := i.Immediate(); ok {
		code = append(code, imm.Bytes()...)
	}
	return code
}

// Name returns the bare mnemonic, without an operand-size suffix.
func (i Inst) Name() string {
	switch i.Kind {
	case AddRM32R32, AddR32RM32, AddRM64R64, AddR64RM64,
		AddRM32Imm8, AddRM32Imm32, AddRM64Imm8, AddRM64Imm32:
		return "add"
	case CallFunc:
		return "call"
	case Cwd:
		return "cwd"
	case Cdq:
		return "cdq"
	case Cqo:
		return "cqo"
	case CmpRAXImm32, CmpRM64Imm32:
		return "cmp"
	case Endbr64:
		return "endbr64"
	case IDivRM64:
		return "idiv"
	case IMulR64RM64:
		return "imul"
	case IncRM64:
		return "inc"
	case JmpLabel:
		return "jmp"
	case JeLabel:
		return "je"
	case JleLabel:
		return "jle"
	case LeaR64Mem:
		return "lea"
	case MovRM8R8, MovR8RM8, MovRM8Imm8, MovRM16R16, MovR16RM16, MovRM16Imm16,
		MovRM32R32, MovR32RM32, MovRM32Imm32, MovRM64R64, MovR64RM64, MovRM64Imm32:
		return "mov"
	case NegRM64:
		return "neg"
	case PopR64:
		return "pop"
	case PushR64, PushRM64, PushImm8, PushImm16, PushImm32:
		return "push"
	case Ret:
		return "ret"
	case SubRM32R32, SubR32RM32, SubRM64R64, SubR64RM64,
		SubRM32Imm8, SubRM32Imm32, SubRM64Imm8, SubRM64Imm32:
		return "sub"
	case Syscall:
		return "syscall"
	}
	return "?"
}
