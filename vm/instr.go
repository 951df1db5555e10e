package vm

import "fmt"

// Op is a linked (executable) instruction.
type Op uint8

const (
	OpInt       Op = iota // push new Int(A)
	OpNull                // push Null
	OpPrintf              // print Name with A args, push Null
	OpArray               // pop length and init, push Array
	OpObject              // pop A slots then parent, push Object of class B
	OpSlot                // pop object, push variable slot Name
	OpSetSlot             // pop value and object, store slot Name, push value
	OpCallSlot            // send Name with A args (receiver included)
	OpCall                // call function at address B with A args
	OpSetLocal            // local A = top
	OpGetLocal            // push local A
	OpSetGlobal           // global A = top
	OpGetGlobal           // push global A
	OpBranch              // pop, jump to A unless Null
	OpGoto                // jump to A
	OpReturn              // pop frame
	OpDrop                // pop
	OpFrame               // check arity A, reserve B locals, bind args
)

var opNames = [...]string{
	OpInt:       "int",
	OpNull:      "null",
	OpPrintf:    "printf",
	OpArray:     "array",
	OpObject:    "object",
	OpSlot:      "slot",
	OpSetSlot:   "set-slot",
	OpCallSlot:  "call-slot",
	OpCall:      "call",
	OpSetLocal:  "set-local",
	OpGetLocal:  "get-local",
	OpSetGlobal: "set-global",
	OpGetGlobal: "get-global",
	OpBranch:    "branch",
	OpGoto:      "goto",
	OpReturn:    "return",
	OpDrop:      "drop",
	OpFrame:     "frame",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// Instr is one resolved instruction in the code buffer. Addresses are
// indices into the buffer; every operand is concrete after linking.
//
//	int         A = value
//	printf      A = arity, Name = format
//	object      A = var-slot count, B = class tag
//	slot        Name
//	set-slot    Name
//	call-slot   A = arity, Name
//	call        A = arity, B = address, Name = function (informational)
//	get/set-local   A = local index
//	get/set-global  A = global index
//	branch/goto A = target
//	frame       A = nargs, B = nlocals
type Instr struct {
	Op   Op     `cbor:"1,keyasint"`
	A    int    `cbor:"2,keyasint,omitempty"`
	B    int    `cbor:"3,keyasint,omitempty"`
	Name string `cbor:"4,keyasint,omitempty"`
}

func (in Instr) String() string {
	switch in.Op {
	case OpInt, OpSetLocal, OpGetLocal:
		return fmt.Sprintf("%s %d", in.Op, in.A)
	case OpSetGlobal, OpGetGlobal:
		if in.Name != "" {
			return fmt.Sprintf("%s %d (%s)", in.Op, in.A, in.Name)
		}
		return fmt.Sprintf("%s %d", in.Op, in.A)
	case OpBranch, OpGoto:
		return fmt.Sprintf("%s @%d", in.Op, in.A)
	case OpPrintf:
		return fmt.Sprintf("%s %q %d", in.Op, in.Name, in.A)
	case OpObject:
		return fmt.Sprintf("%s class=%d nvars=%d", in.Op, in.B, in.A)
	case OpSlot, OpSetSlot:
		return fmt.Sprintf("%s %s", in.Op, in.Name)
	case OpCallSlot:
		return fmt.Sprintf("%s %s %d", in.Op, in.Name, in.A)
	case OpCall:
		if in.Name != "" {
			return fmt.Sprintf("%s %s @%d %d", in.Op, in.Name, in.B, in.A)
		}
		return fmt.Sprintf("%s @%d %d", in.Op, in.B, in.A)
	case OpFrame:
		return fmt.Sprintf("%s nargs=%d nlocals=%d", in.Op, in.A, in.B)
	default:
		return in.Op.String()
	}
}
