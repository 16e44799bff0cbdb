package asm

import "fmt"

// UndefinedLabelError reports a jump site whose label was never defined
// when the enclosing symbol was sealed.
type UndefinedLabelError struct {
	Symbol string
	Label  string
}

func (e *UndefinedLabelError) Error() string {
	return fmt.Sprintf("undefined label %q in symbol %q", e.Label, e.Symbol)
}

// OversizeDisplacementError reports a jump displacement that does not fit
// in a signed 32-bit field.
type OversizeDisplacementError struct {
	Symbol string
	Label  string
	Disp   int64
}

func (e *OversizeDisplacementError) Error() string {
	return fmt.Sprintf("jump displacement %d to label %q in symbol %q exceeds 32 bits",
		e.Disp, e.Label, e.Symbol)
}
