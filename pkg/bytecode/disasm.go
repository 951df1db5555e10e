package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a textual listing of the constant pool, the global
// declarations and the entry method.
func (p *Program) Disassemble() string {
	var sb strings.Builder

	sb.WriteString("Constants :")
	for i, v := range p.Values {
		fmt.Fprintf(&sb, "\n   #%d: %s", i, FormatValue(v))
	}
	sb.WriteString("\nGlobals :")
	for _, g := range p.Globals {
		fmt.Fprintf(&sb, "\n   #%d", g)
	}
	fmt.Fprintf(&sb, "\nEntry : #%d\n", p.Entry)

	return sb.String()
}

// FormatValue renders a single constant.
func FormatValue(v Value) string {
	switch v := v.(type) {
	case IntValue:
		return fmt.Sprintf("Int(%d)", v.Value)
	case NullValue:
		return "Null"
	case StringValue:
		return fmt.Sprintf("String(%q)", v.Value)
	case MethodValue:
		var sb strings.Builder
		fmt.Fprintf(&sb, "Method(#%d, nargs:%d, nlocals:%d) :", v.Name, v.NArgs, v.NLocals)
		for _, ins := range v.Code {
			sb.WriteString("\n      ")
			sb.WriteString(ins.String())
		}
		return sb.String()
	case SlotValue:
		return fmt.Sprintf("Slot(#%d)", v.Name)
	case ClassValue:
		parts := make([]string, len(v.Members))
		for i, m := range v.Members {
			parts[i] = fmt.Sprintf("#%d", m)
		}
		return "Class(" + strings.Join(parts, ", ") + ")"
	default:
		return fmt.Sprintf("<%T>", v)
	}
}

// String renders the instruction in listing form. Labels are flush left,
// everything else is indented.
func (ins Instruction) String() string {
	switch ins.Op {
	case OpLabel:
		return fmt.Sprintf("label #%d", ins.Index)
	case OpGetLocal, OpSetLocal:
		return fmt.Sprintf("   %s %d", ins.Op, ins.Index)
	}
	info, ok := GetOpcodeInfo(ins.Op)
	if !ok {
		return "   " + ins.Op.String()
	}
	switch info.Operand {
	case OperandIndex:
		return fmt.Sprintf("   %s #%d", info.Name, ins.Index)
	case OperandIndexArgc:
		return fmt.Sprintf("   %s #%d %d", info.Name, ins.Index, ins.Arity)
	default:
		return "   " + info.Name
	}
}
