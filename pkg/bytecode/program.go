package bytecode

import "github.com/pkg/errors"

// Value is an entry in a program's constant pool.
// Values are immutable once a program has been decoded.
type Value interface {
	Tag() ValueTag
}

// IntValue is a 32-bit integer literal.
type IntValue struct {
	Value int32
}

// NullValue is the null literal.
type NullValue struct{}

// StringValue holds a name or a printf format string.
type StringValue struct {
	Value string
}

// MethodValue is a method body. Name refers to a StringValue.
type MethodValue struct {
	Name    int
	NArgs   int
	NLocals int
	Code    []Instruction
}

// SlotValue declares a variable slot (in a class) or a global variable.
type SlotValue struct {
	Name int
}

// ClassValue lists the constant-pool indices of its members, in order.
// Members are SlotValues or MethodValues.
type ClassValue struct {
	Members []int
}

func (IntValue) Tag() ValueTag    { return TagInt }
func (NullValue) Tag() ValueTag   { return TagNull }
func (StringValue) Tag() ValueTag { return TagString }
func (MethodValue) Tag() ValueTag { return TagMethod }
func (SlotValue) Tag() ValueTag   { return TagSlot }
func (ClassValue) Tag() ValueTag  { return TagClass }

// Instruction is a symbolic instruction. Index holds the single u16 operand
// (a constant-pool index, or a local slot for get/set local) and Arity holds
// the u8 operand of printf, call-slot and call.
type Instruction struct {
	Op    Opcode
	Index int
	Arity int
}

// Program is a decoded compiled program: constant pool, global declarations
// (constant-pool indices of Slot or Method values) and the entry method.
type Program struct {
	Values  []Value
	Globals []int
	Entry   int
}

// StringAt returns the text of the String constant at idx.
func (p *Program) StringAt(idx int) (string, error) {
	if idx < 0 || idx >= len(p.Values) {
		return "", errors.Wrapf(ErrBadIndex, "constant #%d out of range (%d values)", idx, len(p.Values))
	}
	s, ok := p.Values[idx].(StringValue)
	if !ok {
		return "", errors.Wrapf(ErrBadIndex, "constant #%d is %s, not String", idx, p.Values[idx].Tag())
	}
	return s.Value, nil
}

// Method returns the Method constant at idx.
func (p *Program) Method(idx int) (MethodValue, bool) {
	if idx < 0 || idx >= len(p.Values) {
		return MethodValue{}, false
	}
	m, ok := p.Values[idx].(MethodValue)
	return m, ok
}
