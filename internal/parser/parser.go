// Package parser turns AT&T-syntax assembly source into the symbol table
// consumed by the encoder.
//
// The parser is a line-based state machine: at top level it handles
// directives and symbol labels; inside a symbol it collects ".L" labels
// into groups and instructions into the current group. The first
// instruction of a symbol named X opens the synthetic ".LX_entry" group.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lcox74/attasm/internal/asm"
	"github.com/lcox74/attasm/pkg/amd64"
)

// ErrIntelSyntax is returned when the source opts into Intel syntax,
// which this assembler does not implement.
var ErrIntelSyntax = errors.New("intel syntax is not supported")

// ParseError describes a malformed line.
type ParseError struct {
	Line int // 1-based line number
	Text string
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %s: %q", e.Line, e.Msg, e.Text)
}

// ignoredDirectives are accepted and discarded; they carry metadata the
// encoder does not use.
var ignoredDirectives = map[string]bool{
	".size":    true,
	".ident":   true,
	".align":   true,
	".long":    true,
	".string":  true,
	".text":    true,
	".section": true,
	".file":    true,
}

// parser holds the state machine.
type parser struct {
	tab     *asm.SymbolTable
	current string // enclosing symbol name; "" at top level
	line    int
}

// Parse builds the symbol table from assembly source.
func Parse(src string) (*asm.SymbolTable, error) {
	p := &parser{tab: asm.NewSymbolTable()}

	for _, raw := range strings.Split(src, "\n") {
		p.line++
		line := stripComment(raw)
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := p.parseLine(line); err != nil {
			return nil, err
		}
	}
	return p.tab, nil
}

// stripComment removes a trailing "#" comment.
func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

func (p *parser) errorf(text, format string, args ...any) error {
	return &ParseError{Line: p.line, Text: strings.TrimSpace(text), Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseLine(line string) error {
	trimmed := strings.TrimSpace(line)

	// Labels end with ':'. A ".L" label opens a group in the current
	// symbol; anything else names a symbol and switches into it.
	if strings.HasSuffix(trimmed, ":") {
		label := strings.TrimSuffix(trimmed, ":")
		if strings.HasPrefix(label, ".L") {
			if p.current == "" {
				return p.errorf(line, "label %q outside of a symbol", label)
			}
			sym, _ := p.tab.Get(p.current)
			sym.Groups = append(sym.Groups, &asm.Group{Label: label})
			return nil
		}
		p.tab.GetOrCreate(label)
		p.current = label
		return nil
	}

	if strings.HasPrefix(trimmed, ".") {
		return p.parseDirective(line, trimmed)
	}

	if p.current == "" {
		return p.errorf(line, "instruction outside of a symbol")
	}
	return p.parseInst(line, trimmed)
}

func (p *parser) parseDirective(line, trimmed string) error {
	fields := strings.Fields(trimmed)
	directive := fields[0]

	switch directive {
	case ".globl", ".global":
		if len(fields) != 2 {
			return p.errorf(line, "%s expects a symbol name", directive)
		}
		p.tab.GetOrCreate(fields[1]).Bind = asm.BindGlobal
		return nil

	case ".type":
		if len(fields) != 3 || fields[2] != "@function" {
			return p.errorf(line, ".type expects \"name, @function\"")
		}
		name := strings.TrimSuffix(fields[1], ",")
		p.tab.GetOrCreate(name).Type = asm.TypeFunc
		return nil

	case ".intel_syntax":
		return ErrIntelSyntax
	}

	if ignoredDirectives[directive] {
		return nil
	}
	return p.errorf(line, "unknown directive %s", directive)
}

// parseInst dispatches a mnemonic line into an instruction appended to the
// current symbol's last group.
func (p *parser) parseInst(line, trimmed string) error {
	mnemonic, rest := trimmed, ""
	if i := strings.IndexAny(trimmed, " \t"); i >= 0 {
		mnemonic, rest = trimmed[:i], trimmed[i+1:]
	}
	ops, err := p.parseOperands(line, rest)
	if err != nil {
		return err
	}

	inst, err := p.buildInst(line, mnemonic, ops)
	if err != nil {
		return err
	}

	sym, _ := p.tab.Get(p.current)
	if len(sym.Groups) == 0 {
		sym.Groups = append(sym.Groups, &asm.Group{Label: asm.EntryLabel(sym.Name)})
	}
	group := sym.Groups[len(sym.Groups)-1]
	group.Insts = append(group.Insts, inst)
	return nil
}

// widthSizes maps AT&T suffixes to operand sizes.
var widthSizes = map[byte]amd64.OperandSize{
	'b': amd64.Byte,
	'w': amd64.Word,
	'l': amd64.Dword,
	'q': amd64.Qword,
}

func (p *parser) buildInst(line, mnemonic string, ops []amd64.Operand) (amd64.Inst, error) {
	var zero amd64.Inst

	binop := func(build func(amd64.OperandSize, amd64.Operand, amd64.Operand) (amd64.Inst, error)) (amd64.Inst, error) {
		if len(ops) != 2 {
			return zero, p.errorf(line, "%s expects two operands", mnemonic)
		}
		inst, err := build(widthSizes[mnemonic[len(mnemonic)-1]], ops[0], ops[1])
		if err != nil {
			return zero, fmt.Errorf("line %d: %w", p.line, err)
		}
		return inst, nil
	}
	unop := func(build func(amd64.OperandSize, amd64.Operand) (amd64.Inst, error)) (amd64.Inst, error) {
		if len(ops) != 1 {
			return zero, p.errorf(line, "%s expects one operand", mnemonic)
		}
		inst, err := build(widthSizes[mnemonic[len(mnemonic)-1]], ops[0])
		if err != nil {
			return zero, fmt.Errorf("line %d: %w", p.line, err)
		}
		return inst, nil
	}
	labelArg := func(build func(string) amd64.Inst) (amd64.Inst, error) {
		if len(ops) != 1 || !ops[0].IsLabel() {
			return zero, p.errorf(line, "%s expects a label", mnemonic)
		}
		return build(ops[0].Label()), nil
	}
	nullary := func(inst amd64.Inst) (amd64.Inst, error) {
		if len(ops) != 0 {
			return zero, p.errorf(line, "%s takes no operands", mnemonic)
		}
		return inst, nil
	}

	switch mnemonic {
	case "movb", "movw", "movl", "movq":
		return binop(amd64.NewMov)
	case "addl", "addq":
		return binop(amd64.NewAdd)
	case "subl", "subq":
		return binop(amd64.NewSub)
	case "cmpq":
		return binop(amd64.NewCmp)
	case "imulq":
		return binop(amd64.NewIMul)
	case "leaq":
		return binop(amd64.NewLea)
	case "idivq":
		return unop(amd64.NewIDiv)
	case "incq":
		return unop(amd64.NewInc)
	case "negq":
		return unop(amd64.NewNeg)
	case "pushq":
		return unop(amd64.NewPush)
	case "popq":
		return unop(amd64.NewPop)
	case "call":
		return labelArg(amd64.NewCall)
	case "jmp":
		return labelArg(amd64.NewJmp)
	case "je":
		return labelArg(amd64.NewJe)
	case "jle":
		return labelArg(amd64.NewJle)
	case "ret", "retq":
		return nullary(amd64.NewRet())
	case "syscall":
		return nullary(amd64.NewSyscall())
	case "endbr64":
		return nullary(amd64.NewEndbr64())
	case "cwtd":
		return nullary(amd64.NewCwd())
	case "cltd":
		return nullary(amd64.NewCdq())
	case "cqto":
		return nullary(amd64.NewCqo())
	}
	return zero, p.errorf(line, "unsupported instruction %q", mnemonic)
}

// parseOperands splits the operand list on top-level commas; commas inside
// a memory operand's parentheses do not separate operands.
func (p *parser) parseOperands(line, rest string) ([]amd64.Operand, error) {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return nil, nil
	}

	var ops []amd64.Operand
	depth, start := 0, 0
	emit := func(tok string) error {
		op, err := p.parseOperand(line, strings.TrimSpace(tok))
		if err != nil {
			return err
		}
		ops = append(ops, op)
		return nil
	}
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				if err := emit(rest[start:i]); err != nil {
					return nil, err
				}
				start = i + 1
			}
		}
	}
	if err := emit(rest[start:]); err != nil {
		return nil, err
	}
	return ops, nil
}

// parseOperand classifies one operand token: register, immediate, memory
// reference or label.
func (p *parser) parseOperand(line, tok string) (amd64.Operand, error) {
	var zero amd64.Operand
	switch {
	case tok == "":
		return zero, p.errorf(line, "empty operand")

	case tok[0] == '%':
		reg, ok := amd64.RegisterFromATT(tok)
		if !ok {
			return zero, p.errorf(line, "%s is not a register", tok)
		}
		return amd64.RegOperand(reg), nil

	case tok[0] == '$':
		imm, err := parseImmediate(tok[1:])
		if err != nil {
			return zero, p.errorf(line, "bad immediate %s", tok)
		}
		return amd64.ImmOperand(imm), nil

	case strings.ContainsRune(tok, '('):
		mem, err := p.parseMemory(line, tok)
		if err != nil {
			return zero, err
		}
		return amd64.MemOperand(mem), nil
	}
	return amd64.LabelOperand(tok), nil
}

// parseImmediate parses a signed literal at the narrowest fitting width.
func parseImmediate(s string) (amd64.Immediate, error) {
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return amd64.Immediate{}, err
	}
	switch {
	case v >= -128 && v <= 127:
		return amd64.NewImm8(int8(v)), nil
	case v >= -32768 && v <= 32767:
		return amd64.NewImm16(int16(v)), nil
	case v >= -2147483648 && v <= 2147483647:
		return amd64.NewImm32(int32(v)), nil
	}
	return amd64.Immediate{}, fmt.Errorf("immediate %d out of range", v)
}

// parseMemory parses "disp(%base)", "(%base,%index)" and
// "disp(%base,%index,scale)" forms.
func (p *parser) parseMemory(line, tok string) (amd64.Memory, error) {
	var zero amd64.Memory
	open := strings.IndexByte(tok, '(')
	end := strings.IndexByte(tok, ')')
	if end != len(tok)-1 {
		return zero, p.errorf(line, "malformed memory operand %q", tok)
	}

	var mem amd64.Memory
	if dispStr := tok[:open]; dispStr != "" {
		v, err := strconv.ParseInt(dispStr, 0, 32)
		if err != nil {
			return zero, p.errorf(line, "bad displacement in %q", tok)
		}
		mem.Disp = amd64.FitDisp(int32(v))
	}

	parts := strings.Split(tok[open+1:end], ",")
	if len(parts) == 0 || len(parts) > 3 {
		return zero, p.errorf(line, "malformed memory operand %q", tok)
	}

	base, ok := amd64.RegisterFromATT(strings.TrimSpace(parts[0]))
	if !ok {
		return zero, p.errorf(line, "bad base register in %q", tok)
	}
	mem.Base = base

	if len(parts) >= 2 {
		index, ok := amd64.RegisterFromATT(strings.TrimSpace(parts[1]))
		if !ok {
			return zero, p.errorf(line, "bad index register in %q", tok)
		}
		mem.Index = index
	}
	if len(parts) == 3 {
		scale, err := strconv.ParseUint(strings.TrimSpace(parts[2]), 10, 8)
		if err != nil || (scale != 1 && scale != 2 && scale != 4 && scale != 8) {
			return zero, p.errorf(line, "bad scale in %q", tok)
		}
		mem.Scale = uint8(scale)
	}
	return mem, nil
}
