package amd64

import "fmt"

// attMnemonic returns the suffixed AT&T mnemonic for the form.
func (i Inst) attMnemonic() string {
	switch i.Kind {
	case AddRM32R32, AddR32RM32, AddRM32Imm8, AddRM32Imm32:
		return "addl"
	case AddRM64R64, AddR64RM64, AddRM64Imm8, AddRM64Imm32:
		return "addq"
	case CallFunc:
		return "call"
	case Cwd:
		return "cwtd"
	case Cdq:
		return "cltd"
	case Cqo:
		return "cqto"
	case CmpRAXImm32, CmpRM64Imm32:
		return "cmpq"
	case Endbr64:
		return "endbr64"
	case IDivRM64:
		return "idivq"
	case IMulR64RM64:
		return "imulq"
	case IncRM64:
		return "incq"
	case JmpLabel:
		return "jmp"
	case JeLabel:
		return "je"
	case JleLabel:
		return "jle"
	case LeaR64Mem:
		return "leaq"
	case MovRM8R8, MovR8RM8, MovRM8Imm8:
		return "movb"
	case MovRM16R16, MovR16RM16, MovRM16Imm16:
		return "movw"
	case MovRM32R32, MovR32RM32, MovRM32Imm32:
		return "movl"
	case MovRM64R64, MovR64RM64, MovRM64Imm32:
		return "movq"
	case NegRM64:
		return "negq"
	case PopR64:
		return "popq"
	case PushR64, PushRM64, PushImm8, PushImm16, PushImm32:
		return "pushq"
	case Ret:
		return "ret"
	case SubRM32R32, SubR32RM32, SubRM32Imm8, SubRM32Imm32:
		return "subl"
	case SubRM64R64, SubR64RM64, SubRM64Imm8, SubRM64Imm32:
		return "subq"
	case Syscall:
		return "syscall"
	}
	return "?"
}

// ATTString renders the instruction in AT&T syntax, source operand first.
func (i Inst) ATTString() string {
	mn := i.attMnemonic()
	switch i.Encoding() {
	case EncZO:
		return mn
	case EncD:
		return fmt.Sprintf("%s %s", mn, i.Label)
	case EncI:
		if i.Kind == CmpRAXImm32 {
			return fmt.Sprintf("%s %s, %%rax", mn, i.Imm)
		}
		return fmt.Sprintf("%s %s", mn, i.Imm)
	case EncO:
		return fmt.Sprintf("%s %s", mn, i.Reg)
	case EncM:
		return fmt.Sprintf("%s %s", mn, i.RM)
	case EncMR:
		return fmt.Sprintf("%s %s, %s", mn, i.Reg, i.RM)
	case EncRM:
		return fmt.Sprintf("%s %s, %s", mn, i.RM, i.Reg)
	case EncMI:
		return fmt.Sprintf("%s %s, %s", mn, i.Imm, i.RM)
	}
	return mn
}

// IntelString renders the instruction in Intel syntax, destination first.
func (i Inst) IntelString() string {
	mn := i.Name()
	switch i.Encoding() {
	case EncZO:
		return mn
	case EncD:
		return fmt.Sprintf("%s %s", mn, i.Label)
	case EncI:
		if i.Kind == CmpRAXImm32 {
			return fmt.Sprintf("%s rax, %d", mn, i.Imm.Value())
		}
		return fmt.Sprintf("%s %d", mn, i.Imm.Value())
	case EncO:
		return fmt.Sprintf("%s %s", mn, i.Reg.Name())
	case EncM:
		return fmt.Sprintf("%s %s", mn, i.RM.IntelString())
	case EncMR:
		return fmt.Sprintf("%s %s, %s", mn, i.RM.IntelString(), i.Reg.Name())
	case EncRM:
		return fmt.Sprintf("%s %s, %s", mn, i.Reg.Name(), i.RM.IntelString())
	case EncMI:
		return fmt.Sprintf("%s %s, %d", mn, i.RM.IntelString(), i.Imm.Value())
	}
	return mn
}
