package vm

// ---------------------------------------------------------------------------
// Int primitives
// ---------------------------------------------------------------------------

type intOp func(x, y int32) (int32, bool)

var intCompare = map[string]func(x, y int32) bool{
	"eq": func(x, y int32) bool { return x == y },
	"lt": func(x, y int32) bool { return x < y },
	"le": func(x, y int32) bool { return x <= y },
	"gt": func(x, y int32) bool { return x > y },
	"ge": func(x, y int32) bool { return x >= y },
}

var intArith = map[string]intOp{
	"add": func(x, y int32) (int32, bool) { return x + y, true },
	"sub": func(x, y int32) (int32, bool) { return x - y, true },
	"mul": func(x, y int32) (int32, bool) { return x * y, true },
	"div": func(x, y int32) (int32, bool) {
		if y == 0 {
			return 0, false
		}
		return x / y, true
	},
	"mod": func(x, y int32) (int32, bool) {
		if y == 0 {
			return 0, false
		}
		return x % y, true
	},
}

// callIntSlot runs name on the Int receiver k-1 deep on the stack.
// Comparisons push the zero Int for true and Null for false.
func (v *VM) callIntSlot(name string, k int) {
	cmp, isCmp := intCompare[name]
	arith, isArith := intArith[name]
	if !isCmp && !isArith {
		fault(TypeFault, "Int has no slot named %s", name)
	}
	if k != 2 {
		fault(TypeFault, "Int.%s expects 1 argument, got %d", name, k-1)
	}
	y := v.pop()
	x := v.pop()
	if v.heap.Tag(y) != IntTag {
		fault(TypeFault, "Int.%s argument must be an Int, got %s", name, v.heap.Describe(y))
	}
	a, b := v.heap.IntValue(x), v.heap.IntValue(y)
	if isCmp {
		v.pushBool(cmp(a, b))
		return
	}
	r, ok := arith(a, b)
	if !ok {
		fault(ArithmeticFault, "Int.%s by zero", name)
	}
	v.push(v.heap.AllocInt(r))
}

// ---------------------------------------------------------------------------
// Array primitives
// ---------------------------------------------------------------------------

// callArraySlot runs name on the Array receiver k-1 deep on the stack.
func (v *VM) callArraySlot(name string, k int) {
	switch name {
	case "length":
		v.ensureArity("Array.length", k, 1)
		a := v.pop()
		v.push(v.heap.AllocInt(int32(v.heap.ArrayLen(a))))
	case "get":
		v.ensureArity("Array.get", k, 2)
		i := v.pop()
		a := v.pop()
		v.push(v.heap.ArrayGet(a, v.arrayIndex(a, i)))
	case "set":
		v.ensureArity("Array.set", k, 3)
		x := v.pop()
		i := v.pop()
		a := v.pop()
		v.heap.ArraySet(a, v.arrayIndex(a, i), x)
		v.push(v.null)
	default:
		fault(TypeFault, "Array has no slot named %s", name)
	}
}

func (v *VM) arrayIndex(a, i Ref) int {
	if v.heap.Tag(i) != IntTag {
		fault(TypeFault, "array index must be an Int, got %s", v.heap.Describe(i))
	}
	idx := int(v.heap.IntValue(i))
	if n := v.heap.ArrayLen(a); idx < 0 || idx >= n {
		fault(BoundsFault, "index %d out of bounds for array of length %d", idx, n)
	}
	return idx
}

func (v *VM) ensureArity(what string, got, want int) {
	if got != want {
		fault(TypeFault, "%s expects %d arguments including the receiver, got %d", what, want, got)
	}
}
