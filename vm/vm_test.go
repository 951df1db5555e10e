package vm_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/chazu/feeny/linker"
	"github.com/chazu/feeny/pkg/bytecode"
	"github.com/chazu/feeny/vm"
)

// link encodes prog, decodes it again and links the result.
func link(tb testing.TB, prog *bytecode.Program) *vm.Image {
	tb.Helper()
	data, err := bytecode.Marshal(prog)
	if err != nil {
		tb.Fatalf("Marshal failed: %v", err)
	}
	decoded, err := bytecode.Decode(bytes.NewReader(data))
	if err != nil {
		tb.Fatalf("Decode failed: %v", err)
	}
	img, err := linker.Link(decoded)
	if err != nil {
		tb.Fatalf("Link failed: %v", err)
	}
	return img
}

// run links and executes prog, returning its output, the VM and the run error.
func run(t *testing.T, prog *bytecode.Program, opts vm.Options) (string, *vm.VM, error) {
	t.Helper()
	var out bytes.Buffer
	opts.Output = &out
	v, err := vm.New(link(t, prog), opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	err = v.Run()
	return out.String(), v, err
}

func expectOutput(t *testing.T, prog *bytecode.Program, want string) {
	t.Helper()
	got, _, err := run(t, prog, vm.Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func expectFault(t *testing.T, prog *bytecode.Program, kind vm.FaultKind) *vm.Fault {
	t.Helper()
	_, _, err := run(t, prog, vm.Options{})
	var f *vm.Fault
	if !errors.As(err, &f) {
		t.Fatalf("Run error = %v, want a %s fault", err, kind)
	}
	if f.Kind != kind {
		t.Errorf("fault = %v, want kind %s", f, kind)
	}
	return f
}

func factProgram() *bytecode.Program {
	b := bytecode.NewBuilder()
	fact := b.Method("fact", 1, 0,
		bytecode.GetLocal(0),
		b.LitInt(1),
		b.CallSlot("le", 2),
		b.Branch("base"),
		bytecode.GetLocal(0),
		bytecode.GetLocal(0),
		b.LitInt(1),
		b.CallSlot("sub", 2),
		b.Call("fact", 1),
		b.CallSlot("mul", 2),
		bytecode.Return(),
		b.Label("base"),
		b.LitInt(1),
		bytecode.Return(),
	)
	main := b.Method("main", 0, 0,
		b.LitInt(5),
		b.Call("fact", 1),
		b.Printf("~\n", 1),
		bytecode.Return(),
	)
	return b.Global(fact).Entry(main).Program()
}

func TestArithmetic(t *testing.T) {
	b := bytecode.NewBuilder()
	main := b.Method("main", 0, 0,
		b.LitInt(2),
		b.LitInt(3),
		b.CallSlot("add", 2),
		b.Printf("~", 1),
		bytecode.Return(),
	)
	expectOutput(t, b.Entry(main).Program(), "5")
}

func TestIntPrimitives(t *testing.T) {
	tests := []struct {
		op   string
		x, y int32
		want string
	}{
		{"add", 7, -3, "4"},
		{"sub", 7, 10, "-3"},
		{"mul", -6, 7, "-42"},
		{"div", -7, 2, "-3"},
		{"mod", -7, 2, "-1"},
		{"mod", 7, -2, "1"},
		{"add", 2147483647, 1, "-2147483648"},
		{"eq", 4, 4, "0"},
		{"eq", 4, 5, "null"},
		{"lt", 1, 2, "0"},
		{"le", 3, 2, "null"},
		{"gt", 3, 2, "0"},
		{"ge", 2, 2, "0"},
	}
	for _, tt := range tests {
		b := bytecode.NewBuilder()
		main := b.Method("main", 0, 0,
			b.LitInt(tt.x),
			b.LitInt(tt.y),
			b.CallSlot(tt.op, 2),
			b.Printf("~", 1),
			bytecode.Return(),
		)
		got, _, err := run(t, b.Entry(main).Program(), vm.Options{})
		if err != nil {
			t.Errorf("%d.%s(%d): %v", tt.x, tt.op, tt.y, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%d.%s(%d) = %s, want %s", tt.x, tt.op, tt.y, got, tt.want)
		}
	}
}

func TestDivideByZero(t *testing.T) {
	b := bytecode.NewBuilder()
	main := b.Method("main", 0, 0,
		b.LitInt(1),
		b.LitInt(0),
		b.CallSlot("div", 2),
		bytecode.Return(),
	)
	expectFault(t, b.Entry(main).Program(), vm.ArithmeticFault)
}

func TestFactorial(t *testing.T) {
	expectOutput(t, factProgram(), "120\n")
}

func TestDeterminism(t *testing.T) {
	img := link(t, factProgram())
	var outputs []string
	for i := 0; i < 2; i++ {
		var out bytes.Buffer
		v, err := vm.New(img, vm.Options{Output: &out, SemispaceBytes: 512})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		// Run twice on the same VM as well.
		for j := 0; j < 2; j++ {
			if err := v.Run(); err != nil {
				t.Fatalf("Run failed: %v", err)
			}
		}
		outputs = append(outputs, out.String())
	}
	if outputs[0] != "120\n120\n" || outputs[0] != outputs[1] {
		t.Errorf("outputs differ or are wrong: %q", outputs)
	}
}

func inheritanceProgram() *bytecode.Program {
	b := bytecode.NewBuilder()
	getX := b.Method("get-x", 1, 0, bytecode.GetLocal(0), b.GetSlot("x"), bytecode.Return())
	base := b.Class(b.Slot("x"), getX)
	child := b.Class(b.Slot("y"))
	shadow := b.Class(b.Slot("x"))
	main := b.Method("main", 0, 2,
		// local 0 = base object with x = 10
		b.LitNull(), b.LitInt(10), b.Object(base), bytecode.SetLocal(0), bytecode.Drop(),
		// inherited variable
		bytecode.GetLocal(0), b.LitInt(20), b.Object(child), bytecode.SetLocal(1), bytecode.Drop(),
		bytecode.GetLocal(1), b.GetSlot("x"), b.Printf("~ ", 1), bytecode.Drop(),
		// inherited method, receiver is the child
		bytecode.GetLocal(1), b.CallSlot("get-x", 1), b.Printf("~ ", 1), bytecode.Drop(),
		// shadowing
		bytecode.GetLocal(0), b.LitInt(30), b.Object(shadow), b.GetSlot("x"), b.Printf("~ ", 1), bytecode.Drop(),
		// writing through the child updates the parent that owns the slot
		bytecode.GetLocal(1), b.LitInt(99), b.SetSlot("x"), b.Printf("~ ", 1), bytecode.Drop(),
		bytecode.GetLocal(0), b.GetSlot("x"), b.Printf("~", 1), bytecode.Drop(),
		b.LitNull(),
		bytecode.Return(),
	)
	return b.Entry(main).Program()
}

func TestInheritance(t *testing.T) {
	expectOutput(t, inheritanceProgram(), "10 10 30 99 99")
}

func TestTruthiness(t *testing.T) {
	tests := []struct {
		name string
		pred func(b *bytecode.Builder) []bytecode.Instruction
		want string
	}{
		{"zero", func(b *bytecode.Builder) []bytecode.Instruction {
			return []bytecode.Instruction{b.LitInt(0)}
		}, "yes"},
		{"null", func(b *bytecode.Builder) []bytecode.Instruction {
			return []bytecode.Instruction{b.LitNull()}
		}, "no"},
		{"comparison true", func(b *bytecode.Builder) []bytecode.Instruction {
			return []bytecode.Instruction{b.LitInt(1), b.LitInt(2), b.CallSlot("lt", 2)}
		}, "yes"},
		{"comparison false", func(b *bytecode.Builder) []bytecode.Instruction {
			return []bytecode.Instruction{b.LitInt(2), b.LitInt(1), b.CallSlot("lt", 2)}
		}, "no"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bytecode.NewBuilder()
			code := append(tt.pred(b),
				b.Branch("yes"),
				b.Printf("no", 0), bytecode.Drop(), b.Goto("end"),
				b.Label("yes"),
				b.Printf("yes", 0), bytecode.Drop(),
				b.Label("end"),
				b.LitNull(),
				bytecode.Return(),
			)
			expectOutput(t, b.Entry(b.Method("main", 0, 0, code...)).Program(), tt.want)
		})
	}
}

func TestArityFaults(t *testing.T) {
	t.Run("function", func(t *testing.T) {
		b := bytecode.NewBuilder()
		f := b.Method("f", 1, 0, bytecode.GetLocal(0), bytecode.Return())
		main := b.Method("main", 0, 0, b.LitInt(1), b.LitInt(2), b.Call("f", 2), bytecode.Return())
		expectFault(t, b.Global(f).Entry(main).Program(), vm.TypeFault)
	})
	t.Run("method", func(t *testing.T) {
		b := bytecode.NewBuilder()
		m := b.Method("m", 1, 0, bytecode.GetLocal(0), bytecode.Return())
		cls := b.Class(m)
		main := b.Method("main", 0, 0,
			b.LitNull(), b.Object(cls), b.LitInt(5), b.CallSlot("m", 2), bytecode.Return())
		expectFault(t, b.Entry(main).Program(), vm.TypeFault)
	})
	t.Run("int primitive", func(t *testing.T) {
		b := bytecode.NewBuilder()
		main := b.Method("main", 0, 0, b.LitInt(1), b.CallSlot("add", 1), bytecode.Return())
		expectFault(t, b.Entry(main).Program(), vm.TypeFault)
	})
	t.Run("array primitive", func(t *testing.T) {
		b := bytecode.NewBuilder()
		main := b.Method("main", 0, 0,
			b.LitInt(2), b.LitNull(), bytecode.Array(), b.LitInt(0), b.CallSlot("length", 2), bytecode.Return())
		expectFault(t, b.Entry(main).Program(), vm.TypeFault)
	})
}

func TestTypeFaults(t *testing.T) {
	tests := []struct {
		name string
		code func(b *bytecode.Builder, cls int) []bytecode.Instruction
	}{
		{"slot on null", func(b *bytecode.Builder, _ int) []bytecode.Instruction {
			return []bytecode.Instruction{b.LitNull(), b.GetSlot("x")}
		}},
		{"call on null", func(b *bytecode.Builder, _ int) []bytecode.Instruction {
			return []bytecode.Instruction{b.LitNull(), b.CallSlot("x", 1)}
		}},
		{"slot on int", func(b *bytecode.Builder, _ int) []bytecode.Instruction {
			return []bytecode.Instruction{b.LitInt(1), b.GetSlot("x")}
		}},
		{"unknown int slot", func(b *bytecode.Builder, _ int) []bytecode.Instruction {
			return []bytecode.Instruction{b.LitInt(1), b.LitInt(1), b.CallSlot("pow", 2)}
		}},
		{"int argument", func(b *bytecode.Builder, _ int) []bytecode.Instruction {
			return []bytecode.Instruction{b.LitInt(1), b.LitNull(), b.CallSlot("add", 2)}
		}},
		{"int parent", func(b *bytecode.Builder, cls int) []bytecode.Instruction {
			return []bytecode.Instruction{b.LitInt(1), b.LitInt(2), b.Object(cls)}
		}},
		{"array parent", func(b *bytecode.Builder, cls int) []bytecode.Instruction {
			return []bytecode.Instruction{b.LitInt(1), b.LitNull(), bytecode.Array(), b.LitInt(2), b.Object(cls)}
		}},
		{"missing slot", func(b *bytecode.Builder, cls int) []bytecode.Instruction {
			return []bytecode.Instruction{b.LitNull(), b.LitInt(2), b.Object(cls), b.GetSlot("nope")}
		}},
		{"call a variable", func(b *bytecode.Builder, cls int) []bytecode.Instruction {
			return []bytecode.Instruction{b.LitNull(), b.LitInt(2), b.Object(cls), b.CallSlot("v", 1)}
		}},
		{"read a method", func(b *bytecode.Builder, cls int) []bytecode.Instruction {
			return []bytecode.Instruction{b.LitNull(), b.LitInt(2), b.Object(cls), b.GetSlot("m")}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bytecode.NewBuilder()
			m := b.Method("m", 1, 0, bytecode.GetLocal(0), bytecode.Return())
			cls := b.Class(b.Slot("v"), m)
			code := append(tt.code(b, cls), bytecode.Return())
			expectFault(t, b.Entry(b.Method("main", 0, 0, code...)).Program(), vm.TypeFault)
		})
	}
}

func TestArrays(t *testing.T) {
	b := bytecode.NewBuilder()
	main := b.Method("main", 0, 1,
		b.LitInt(5), b.LitNull(), bytecode.Array(), bytecode.SetLocal(0), bytecode.Drop(),
		bytecode.GetLocal(0), b.LitInt(2), b.LitInt(7), b.CallSlot("set", 3), b.Printf("~ ", 1), bytecode.Drop(),
		bytecode.GetLocal(0), b.LitInt(2), b.CallSlot("get", 2), b.Printf("~ ", 1), bytecode.Drop(),
		bytecode.GetLocal(0), b.CallSlot("length", 1), b.Printf("~ ", 1), bytecode.Drop(),
		bytecode.GetLocal(0), b.Printf("~", 1), bytecode.Drop(),
		bytecode.GetLocal(0), b.LitInt(5), b.CallSlot("get", 2),
		bytecode.Return(),
	)
	out, _, err := run(t, b.Entry(main).Program(), vm.Options{})
	var f *vm.Fault
	if !errors.As(err, &f) || f.Kind != vm.BoundsFault {
		t.Fatalf("Run error = %v, want bounds fault", err)
	}
	if want := "null 7 5 [null null 7 null null]"; out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestPrintfRendering(t *testing.T) {
	b := bytecode.NewBuilder()
	cls := b.Class()
	main := b.Method("main", 0, 0,
		b.LitInt(-4),
		b.LitNull(),
		b.LitInt(2), b.LitInt(1), bytecode.Array(),
		b.LitNull(), b.Object(cls),
		b.Printf("a=~ b=~ c=~ d=~ ~~ done\n", 4),
		bytecode.Return(),
	)
	// A fifth placeholder has nothing to render.
	expectFault(t, b.Entry(main).Program(), vm.TypeFault)

	b = bytecode.NewBuilder()
	cls = b.Class()
	main = b.Method("main", 0, 0,
		b.LitInt(-4),
		b.LitNull(),
		b.LitInt(2), b.LitInt(1), bytecode.Array(),
		b.LitNull(), b.Object(cls),
		b.Printf("a=~ b=~ c=~ d=~\n", 4),
		bytecode.Return(),
	)
	expectOutput(t, b.Entry(main).Program(), "a=-4 b=null c=[1 1] d=[Object 3]\n")
}

func TestStackFaults(t *testing.T) {
	b := bytecode.NewBuilder()
	main := b.Method("main", 0, 0, bytecode.Drop(), bytecode.Return())
	expectFault(t, b.Entry(main).Program(), vm.StackFault)

	b = bytecode.NewBuilder()
	main = b.Method("main", 0, 1, bytecode.GetLocal(3), bytecode.Return())
	expectFault(t, b.Entry(main).Program(), vm.StackFault)
}

func TestFaultCarriesAddress(t *testing.T) {
	b := bytecode.NewBuilder()
	main := b.Method("main", 0, 0, b.LitNull(), b.GetSlot("x"), bytecode.Return())
	f := expectFault(t, b.Entry(main).Program(), vm.TypeFault)
	if f.IP != 2 {
		t.Errorf("fault IP = %d, want 2", f.IP)
	}
}
