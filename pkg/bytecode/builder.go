package bytecode

// Builder assembles a Program in memory. Strings and integer literals are
// interned: adding the same constant twice returns the existing index.
//
//	b := NewBuilder()
//	main := b.Method("main", 0, 0,
//		b.LitInt(2), b.LitInt(3), b.CallSlot("add", 2),
//		b.Printf("~\n", 1), Return())
//	prog := b.Entry(main).Program()
type Builder struct {
	prog    Program
	strings map[string]int
	ints    map[int32]int
	null    int
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		strings: make(map[string]int),
		ints:    make(map[int32]int),
		null:    -1,
	}
}

func (b *Builder) add(v Value) int {
	b.prog.Values = append(b.prog.Values, v)
	return len(b.prog.Values) - 1
}

// ---------------------------------------------------------------------------
// Constants
// ---------------------------------------------------------------------------

// String adds a String constant and returns its index.
func (b *Builder) String(s string) int {
	if idx, ok := b.strings[s]; ok {
		return idx
	}
	idx := b.add(StringValue{Value: s})
	b.strings[s] = idx
	return idx
}

// Int adds an Int constant and returns its index.
func (b *Builder) Int(v int32) int {
	if idx, ok := b.ints[v]; ok {
		return idx
	}
	idx := b.add(IntValue{Value: v})
	b.ints[v] = idx
	return idx
}

// Null adds the Null constant and returns its index.
func (b *Builder) Null() int {
	if b.null < 0 {
		b.null = b.add(NullValue{})
	}
	return b.null
}

// Slot adds a Slot declaration and returns its index.
func (b *Builder) Slot(name string) int {
	return b.add(SlotValue{Name: b.String(name)})
}

// Method adds a Method and returns its index.
func (b *Builder) Method(name string, nargs, nlocals int, code ...Instruction) int {
	return b.add(MethodValue{
		Name:    b.String(name),
		NArgs:   nargs,
		NLocals: nlocals,
		Code:    code,
	})
}

// Class adds a Class whose members are the given Slot/Method indices.
func (b *Builder) Class(members ...int) int {
	return b.add(ClassValue{Members: members})
}

// Global declares the Slot or Method at idx as a global.
func (b *Builder) Global(idx int) *Builder {
	b.prog.Globals = append(b.prog.Globals, idx)
	return b
}

// Entry sets the entry method.
func (b *Builder) Entry(idx int) *Builder {
	b.prog.Entry = idx
	return b
}

// Program returns the assembled program. The Builder must not be used
// afterwards.
func (b *Builder) Program() *Program {
	return &b.prog
}

// ---------------------------------------------------------------------------
// Instructions
// ---------------------------------------------------------------------------

func (b *Builder) Label(name string) Instruction {
	return Instruction{Op: OpLabel, Index: b.String(name)}
}

func (b *Builder) LitInt(v int32) Instruction {
	return Instruction{Op: OpLit, Index: b.Int(v)}
}

func (b *Builder) LitNull() Instruction {
	return Instruction{Op: OpLit, Index: b.Null()}
}

func (b *Builder) Printf(format string, arity int) Instruction {
	return Instruction{Op: OpPrintf, Index: b.String(format), Arity: arity}
}

func (b *Builder) Object(class int) Instruction {
	return Instruction{Op: OpObject, Index: class}
}

func (b *Builder) GetSlot(name string) Instruction {
	return Instruction{Op: OpSlot, Index: b.String(name)}
}

func (b *Builder) SetSlot(name string) Instruction {
	return Instruction{Op: OpSetSlot, Index: b.String(name)}
}

func (b *Builder) CallSlot(name string, arity int) Instruction {
	return Instruction{Op: OpCallSlot, Index: b.String(name), Arity: arity}
}

func (b *Builder) Call(name string, arity int) Instruction {
	return Instruction{Op: OpCall, Index: b.String(name), Arity: arity}
}

func (b *Builder) GetGlobal(name string) Instruction {
	return Instruction{Op: OpGetGlobal, Index: b.String(name)}
}

func (b *Builder) SetGlobal(name string) Instruction {
	return Instruction{Op: OpSetGlobal, Index: b.String(name)}
}

func (b *Builder) Branch(label string) Instruction {
	return Instruction{Op: OpBranch, Index: b.String(label)}
}

func (b *Builder) Goto(label string) Instruction {
	return Instruction{Op: OpGoto, Index: b.String(label)}
}

func Array() Instruction         { return Instruction{Op: OpArray} }
func Return() Instruction        { return Instruction{Op: OpReturn} }
func Drop() Instruction          { return Instruction{Op: OpDrop} }
func GetLocal(i int) Instruction { return Instruction{Op: OpGetLocal, Index: i} }
func SetLocal(i int) Instruction { return Instruction{Op: OpSetLocal, Index: i} }
