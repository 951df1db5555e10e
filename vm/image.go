package vm

import (
	"github.com/pkg/errors"
)

// Image is a linked program: one code buffer with every operand resolved,
// the class table and the global variable layout. An Image is what the
// interpreter executes and what `feeny link` writes to disk.
type Image struct {
	Code      []Instr        `cbor:"1,keyasint"`
	Classes   []*Class       `cbor:"2,keyasint"`
	Globals   []string       `cbor:"3,keyasint"`
	Functions map[string]int `cbor:"4,keyasint"`
	Entry     int            `cbor:"5,keyasint"`
}

// Validate checks that every address and index in the image is in range.
// It does not check stack discipline.
func (img *Image) Validate() error {
	n := len(img.Code)
	if img.Entry < 0 || img.Entry >= n {
		return errors.Wrapf(ErrCorruptImage, "entry @%d outside code of length %d", img.Entry, n)
	}
	if _, err := NewClassTableFrom(img.Classes); err != nil {
		return errors.Wrap(ErrCorruptImage, err.Error())
	}
	for name, addr := range img.Functions {
		if addr < 0 || addr >= n {
			return errors.Wrapf(ErrCorruptImage, "function %s at @%d outside code", name, addr)
		}
	}
	for ip, in := range img.Code {
		switch in.Op {
		case OpBranch, OpGoto:
			if in.A < 0 || in.A >= n {
				return errors.Wrapf(ErrCorruptImage, "@%d: %s target @%d outside code", ip, in.Op, in.A)
			}
		case OpCall:
			if in.B < 0 || in.B >= n {
				return errors.Wrapf(ErrCorruptImage, "@%d: call target @%d outside code", ip, in.B)
			}
		case OpGetGlobal, OpSetGlobal:
			if in.A < 0 || in.A >= len(img.Globals) {
				return errors.Wrapf(ErrCorruptImage, "@%d: global %d out of range", ip, in.A)
			}
		case OpObject:
			if in.B < FirstClassTag || in.B >= len(img.Classes) {
				return errors.Wrapf(ErrCorruptImage, "@%d: class tag %d out of range", ip, in.B)
			}
		default:
			if in.Op > OpFrame {
				return errors.Wrapf(ErrCorruptImage, "@%d: unknown op %d", ip, uint8(in.Op))
			}
		}
	}
	for tag, c := range img.Classes {
		for _, s := range c.Slots {
			if s.Kind == CodeSlot && (s.Address < 0 || s.Address >= n) {
				return errors.Wrapf(ErrCorruptImage, "class %d: method %s at @%d outside code", tag, s.Name, s.Address)
			}
			if s.Kind == VarSlot && (s.Index < 0 || s.Index >= c.VarCount) {
				return errors.Wrapf(ErrCorruptImage, "class %d: var %s index %d out of range", tag, s.Name, s.Index)
			}
		}
	}
	return nil
}
