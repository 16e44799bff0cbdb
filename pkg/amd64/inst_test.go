package amd64

import (
	"bytes"
	"testing"
)

// mem is a test helper for memory operands.
func mem(base Register) Operand {
	return MemOperand(Memory{Base: base})
}

func memDisp8(base Register, disp int8) Operand {
	return MemOperand(Memory{Base: base, Disp: NewDisp8(disp)})
}

func memIndex(base, index Register, scale uint8, disp Displacement) Operand {
	return MemOperand(Memory{Base: base, Index: index, Scale: scale, Disp: disp})
}

func checkEncode(t *testing.T, tests []struct {
	name     string
	inst     Inst
	expected []byte
}) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.inst.Encode()
			if !bytes.Equal(got, tt.expected) {
				t.Errorf("expected % X, got % X", tt.expected, got)
			}
		})
	}
}

func TestMovEncoding(t *testing.T) {
	checkEncode(t, []struct {
		name     string
		inst     Inst
		expected []byte
	}{
		{"movq %rsp, %rbp", Inst{Kind: MovRM64R64, Reg: RSP, RM: RegOperand(RBP)}, []byte{0x48, 0x89, 0xE5}},
		{"movq %rax, %rbx", Inst{Kind: MovRM64R64, Reg: RAX, RM: RegOperand(RBX)}, []byte{0x48, 0x89, 0xC3}},
		{"movq $42, %rax", Inst{Kind: MovRM64Imm32, RM: RegOperand(RAX), Imm: NewImm32(42)}, []byte{0x48, 0xC7, 0xC0, 0x2A, 0x00, 0x00, 0x00}},
		{"movq $-8, %rax", Inst{Kind: MovRM64Imm32, RM: RegOperand(RAX), Imm: NewImm32(-8)}, []byte{0x48, 0xC7, 0xC0, 0xF8, 0xFF, 0xFF, 0xFF}},
		{"movq -8(%rbp), %rax", Inst{Kind: MovR64RM64, Reg: RAX, RM: memDisp8(RBP, -8)}, []byte{0x48, 0x8B, 0x45, 0xF8}},
		{"movq %rax, -8(%rbp)", Inst{Kind: MovRM64R64, Reg: RAX, RM: memDisp8(RBP, -8)}, []byte{0x48, 0x89, 0x45, 0xF8}},
		{"movq 16(%rbp), %r9", Inst{Kind: MovR64RM64, Reg: R9, RM: memDisp8(RBP, 16)}, []byte{0x4C, 0x8B, 0x4D, 0x10}},
		{"movq %rax, (%r8)", Inst{Kind: MovRM64R64, Reg: RAX, RM: mem(R8)}, []byte{0x49, 0x89, 0x00}},
		{"movq %rax, (%rbx,%rcx)", Inst{Kind: MovRM64R64, Reg: RAX, RM: memIndex(RBX, RCX, 0, Displacement{})}, []byte{0x48, 0x89, 0x04, 0x0B}},
		{"movq 8(%rbx,%rcx,4), %rdx", Inst{Kind: MovR64RM64, Reg: RDX, RM: memIndex(RBX, RCX, 4, NewDisp8(8))}, []byte{0x48, 0x8B, 0x54, 0x8B, 0x08}},
		{"movl %ebx, %eax", Inst{Kind: MovRM32R32, Reg: EBX, RM: RegOperand(EAX)}, []byte{0x89, 0xD8}},
		{"movl $7, %ecx", Inst{Kind: MovRM32Imm32, RM: RegOperand(ECX), Imm: NewImm32(7)}, []byte{0xC7, 0xC1, 0x07, 0x00, 0x00, 0x00}},
		{"movw %ax, %bx", Inst{Kind: MovRM16R16, Reg: AX, RM: RegOperand(BX)}, []byte{0x66, 0x89, 0xC3}},
		{"movb %al, (%rax)", Inst{Kind: MovRM8R8, Reg: AL, RM: mem(RAX)}, []byte{0x88, 0x00}},
		{"movb $0, (%rbx,%r12)", Inst{Kind: MovRM8Imm8, RM: memIndex(RBX, R12, 0, Displacement{}), Imm: NewImm8(0)}, []byte{0x42, 0xC6, 0x04, 0x23, 0x00}},
	})
}

func TestAddSubEncoding(t *testing.T) {
	checkEncode(t, []struct {
		name     string
		inst     Inst
		expected []byte
	}{
		{"addq %rbx, %rax", Inst{Kind: AddRM64R64, Reg: RBX, RM: RegOperand(RAX)}, []byte{0x48, 0x01, 0xD8}},
		{"addq %r8, %rax", Inst{Kind: AddRM64R64, Reg: R8, RM: RegOperand(RAX)}, []byte{0x4C, 0x01, 0xC0}},
		{"addq $8, %rsp", Inst{Kind: AddRM64Imm8, RM: RegOperand(RSP), Imm: NewImm8(8)}, []byte{0x48, 0x83, 0xC4, 0x08}},
		{"addq $1000, %rsp", Inst{Kind: AddRM64Imm32, RM: RegOperand(RSP), Imm: NewImm32(1000)}, []byte{0x48, 0x81, 0xC4, 0xE8, 0x03, 0x00, 0x00}},
		{"addq -8(%rbp), %rax", Inst{Kind: AddR64RM64, Reg: RAX, RM: memDisp8(RBP, -8)}, []byte{0x48, 0x03, 0x45, 0xF8}},
		{"addl %esi, %edi", Inst{Kind: AddRM32R32, Reg: ESI, RM: RegOperand(EDI)}, []byte{0x01, 0xF7}},
		{"subq %rbx, %rax", Inst{Kind: SubRM64R64, Reg: RBX, RM: RegOperand(RAX)}, []byte{0x48, 0x29, 0xD8}},
		{"subq $8, %rsp", Inst{Kind: SubRM64Imm8, RM: RegOperand(RSP), Imm: NewImm8(8)}, []byte{0x48, 0x83, 0xEC, 0x08}},
		{"subq $1000, %rsp", Inst{Kind: SubRM64Imm32, RM: RegOperand(RSP), Imm: NewImm32(1000)}, []byte{0x48, 0x81, 0xEC, 0xE8, 0x03, 0x00, 0x00}},
	})
}

func TestCmpMulDivEncoding(t *testing.T) {
	checkEncode(t, []struct {
		name     string
		inst     Inst
		expected []byte
	}{
		{"cmpq $5, %rax", Inst{Kind: CmpRAXImm32, Imm: NewImm32(5)}, []byte{0x48, 0x3D, 0x05, 0x00, 0x00, 0x00}},
		{"cmpq $5, %rbx", Inst{Kind: CmpRM64Imm32, RM: RegOperand(RBX), Imm: NewImm32(5)}, []byte{0x48, 0x81, 0xFB, 0x05, 0x00, 0x00, 0x00}},
		{"cmpq $0, -4(%rbp)", Inst{Kind: CmpRM64Imm32, RM: memDisp8(RBP, -4), Imm: NewImm32(0)}, []byte{0x48, 0x81, 0x7D, 0xFC, 0x00, 0x00, 0x00, 0x00}},
		{"imulq %rbx, %rax", Inst{Kind: IMulR64RM64, Reg: RAX, RM: RegOperand(RBX)}, []byte{0x48, 0x0F, 0xAF, 0xC3}},
		{"imulq -8(%rbp), %rcx", Inst{Kind: IMulR64RM64, Reg: RCX, RM: memDisp8(RBP, -8)}, []byte{0x48, 0x0F, 0xAF, 0x4D, 0xF8}},
		{"idivq %rbx", Inst{Kind: IDivRM64, RM: RegOperand(RBX)}, []byte{0x48, 0xF7, 0xFB}},
		{"idivq %rdi", Inst{Kind: IDivRM64, RM: RegOperand(RDI)}, []byte{0x48, 0xF7, 0xFF}},
		{"incq %rax", Inst{Kind: IncRM64, RM: RegOperand(RAX)}, []byte{0x48, 0xFF, 0xC0}},
		{"incq -4(%rbp)", Inst{Kind: IncRM64, RM: memDisp8(RBP, -4)}, []byte{0x48, 0xFF, 0x45, 0xFC}},
		{"negq %rax", Inst{Kind: NegRM64, RM: RegOperand(RAX)}, []byte{0x48, 0xF7, 0xD8}},
		{"negq %r10", Inst{Kind: NegRM64, RM: RegOperand(R10)}, []byte{0x49, 0xF7, 0xDA}},
	})
}

func TestLeaEncoding(t *testing.T) {
	checkEncode(t, []struct {
		name     string
		inst     Inst
		expected []byte
	}{
		{"leaq -8(%rbp), %rax", Inst{Kind: LeaR64Mem, Reg: RAX, RM: memDisp8(RBP, -8)}, []byte{0x48, 0x8D, 0x45, 0xF8}},
		{"leaq (%rbx,%rcx), %rax", Inst{Kind: LeaR64Mem, Reg: RAX, RM: memIndex(RBX, RCX, 0, Displacement{})}, []byte{0x48, 0x8D, 0x04, 0x0B}},
	})
}

func TestPushPopEncoding(t *testing.T) {
	checkEncode(t, []struct {
		name     string
		inst     Inst
		expected []byte
	}{
		{"pushq %rbp", Inst{Kind: PushR64, Reg: RBP}, []byte{0x55}},
		{"pushq %rax", Inst{Kind: PushR64, Reg: RAX}, []byte{0x50}},
		{"pushq %r15", Inst{Kind: PushR64, Reg: R15}, []byte{0x41, 0x57}},
		{"pushq $30", Inst{Kind: PushImm8, Imm: NewImm8(30)}, []byte{0x6A, 0x1E}},
		{"pushq $3000", Inst{Kind: PushImm16, Imm: NewImm16(3000)}, []byte{0x68, 0xB8, 0x0B}},
		{"pushq $70000", Inst{Kind: PushImm32, Imm: NewImm32(70000)}, []byte{0x68, 0x70, 0x11, 0x01, 0x00}},
		{"pushq -8(%rbp)", Inst{Kind: PushRM64, RM: memDisp8(RBP, -8)}, []byte{0xFF, 0x75, 0xF8}},
		{"pushq (%r8)", Inst{Kind: PushRM64, RM: mem(R8)}, []byte{0x41, 0xFF, 0x30}},
		{"popq %rbp", Inst{Kind: PopR64, Reg: RBP}, []byte{0x5D}},
		{"popq %rax", Inst{Kind: PopR64, Reg: RAX}, []byte{0x58}},
		{"popq %r9", Inst{Kind: PopR64, Reg: R9}, []byte{0x41, 0x59}},
	})
}

func TestBranchEncoding(t *testing.T) {
	// Branch displacements encode as zero; the resolver patches jumps and a
	// relocation covers calls.
	checkEncode(t, []struct {
		name     string
		inst     Inst
		expected []byte
	}{
		{"call foo", NewCall("foo"), []byte{0xE8, 0x00, 0x00, 0x00, 0x00}},
		{"jmp .L1", NewJmp(".L1"), []byte{0xE9, 0x00, 0x00, 0x00, 0x00}},
		{"je .L1", NewJe(".L1"), []byte{0x0F, 0x84, 0x00, 0x00, 0x00, 0x00}},
		{"jle .L1", NewJle(".L1"), []byte{0x0F, 0x8E, 0x00, 0x00, 0x00, 0x00}},
	})
}

func TestNoOperandEncoding(t *testing.T) {
	checkEncode(t, []struct {
		name     string
		inst     Inst
		expected []byte
	}{
		{"ret", NewRet(), []byte{0xC3}},
		{"syscall", NewSyscall(), []byte{0x0F, 0x05}},
		{"endbr64", NewEndbr64(), []byte{0xF3, 0x0F, 0x1E, 0xFA}},
		{"cwtd", NewCwd(), []byte{0x66, 0x99}},
		{"cltd", NewCdq(), []byte{0x99}},
		{"cqto", NewCqo(), []byte{0x48, 0x99}},
	})
}

// Field order: REX, opcode, ModR/M, SIB, displacement, immediate.
func TestFieldOrder(t *testing.T) {
	inst := Inst{
		Kind: MovRM64Imm32,
		RM:   MemOperand(Memory{Base: RBX, Index: RCX, Scale: 2, Disp: NewDisp8(16)}),
		Imm:  NewImm32(7),
	}
	// movq $7, 16(%rbx,%rcx,2)
	expected := []byte{
		0x48,       // REX.W
		0xC7,       // opcode
		0x44,       // ModR/M: mod=01 reg=/0 rm=SIB escape
		0x4B,       // SIB: scale=2 index=rcx base=rbx
		0x10,       // disp8
		0x07, 0x00, 0x00, 0x00, // imm32
	}
	if got := inst.Encode(); !bytes.Equal(got, expected) {
		t.Errorf("expected % X, got % X", expected, got)
	}
}
