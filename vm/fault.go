package vm

import "fmt"

// FaultKind classifies runtime errors.
type FaultKind uint8

const (
	TypeFault       FaultKind = iota + 1 // wrong operand type, arity, parent or slot kind
	BoundsFault                          // array index or length out of range
	MemoryFault                          // allocation failed after collection
	ArithmeticFault                      // division by zero
	StackFault                           // underflow, bad local, bad address
)

func (k FaultKind) String() string {
	switch k {
	case TypeFault:
		return "type error"
	case BoundsFault:
		return "bounds error"
	case MemoryFault:
		return "out of memory"
	case ArithmeticFault:
		return "arithmetic error"
	case StackFault:
		return "stack error"
	default:
		return fmt.Sprintf("FaultKind(%d)", uint8(k))
	}
}

// Fault is a fatal runtime error. Faults are raised with panic inside the
// interpreter and recovered by Run, which returns them.
type Fault struct {
	Kind    FaultKind
	Message string
	IP      int // address of the faulting instruction, -1 if outside the loop
}

func (f *Fault) Error() string {
	if f.IP >= 0 {
		return fmt.Sprintf("%s at @%d: %s", f.Kind, f.IP, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func fault(kind FaultKind, format string, args ...any) {
	panic(&Fault{Kind: kind, Message: fmt.Sprintf(format, args...), IP: -1})
}
