package bytecode

import (
	"fmt"
	"strings"
	"testing"
)

func TestDisassembleProgram(t *testing.T) {
	b := NewBuilder()
	main := b.Method("main", 0, 2,
		b.Label("top"),
		b.LitInt(3),
		SetLocal(1),
		b.CallSlot("add", 2),
		Return(),
	)
	prog := b.Global(b.Slot("g")).Entry(main).Program()

	out := prog.Disassemble()

	// operands are interned before the method name
	name := prog.Values[main].(MethodValue).Name
	for _, want := range []string{
		"Constants :",
		fmt.Sprintf("#%d: String(\"main\")", name),
		fmt.Sprintf("#%d: Method(#%d, nargs:0, nlocals:2) :", main, name),
		"\n      label #",
		"\n         lit #",
		"\n         set local 1",
		"\n         call-slot #",
		"\n         return",
		"Globals :",
		"Entry : #",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{IntValue{Value: 42}, "Int(42)"},
		{NullValue{}, "Null"},
		{StringValue{Value: "hi"}, `String("hi")`},
		{SlotValue{Name: 3}, "Slot(#3)"},
		{ClassValue{Members: []int{1, 2}}, "Class(#1, #2)"},
		{ClassValue{}, "Class()"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.v); got != tt.want {
			t.Errorf("FormatValue(%#v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestOpcodeNames(t *testing.T) {
	if OpCallSlot.String() != "call-slot" {
		t.Errorf("OpCallSlot.String() = %q", OpCallSlot.String())
	}
	if Opcode(0x99).Valid() {
		t.Error("0x99 should not be a valid opcode")
	}
	if !OpPrintf.HasArity() || OpLit.HasArity() {
		t.Error("HasArity mismatch")
	}
	for op := OpLabel; op <= OpDrop; op++ {
		if !op.Valid() {
			t.Errorf("opcode 0x%02X should be valid", byte(op))
		}
	}
}
