package amd64

// REX prefix bit positions. The prefix byte is 0x40 with the low four bits
// extending operand size and the ModR/M, SIB and opcode register fields.
const (
	rexBase = 0x40
	rexW    = 0x08
	rexR    = 0x04
	rexX    = 0x02
	rexB    = 0x01
)

// REXPrefix is the 64-bit-mode prefix as a bit set.
//
//	W: 64-bit operand size
//	R: extends the ModR/M reg field
//	X: extends the SIB index field
//	B: extends the ModR/M r/m field, SIB base, or opcode register
type REXPrefix struct {
	W bool
	R bool
	X bool
	B bool
}

func NewREX(w, r, x, b bool) REXPrefix {
	return REXPrefix{W: w, R: r, X: x, B: b}
}

// rexFromRM derives the prefix from the r/m operand alone, for forms whose
// reg field carries an opcode-extension digit.
func rexFromRM(w bool, rm Operand) REXPrefix {
	return NewREX(w, false, rm.NeedsSIB() && rm.IndexIsExpanded(), rm.IsExpanded())
}

// rexFromRegRM derives the prefix from a reg-field register and an r/m
// operand, the common case for MR and RM encodings.
func rexFromRegRM(w bool, reg Register, rm Operand) REXPrefix {
	return NewREX(w, reg.IsExpanded(), rm.NeedsSIB() && rm.IndexIsExpanded(), rm.IsExpanded())
}

// Byte assembles the prefix byte.
func (p REXPrefix) Byte() byte {
	b := byte(rexBase)
	if p.W {
		b |= rexW
	}
	if p.R {
		b |= rexR
	}
	if p.X {
		b |= rexX
	}
	if p.B {
		b |= rexB
	}
	return b
}
