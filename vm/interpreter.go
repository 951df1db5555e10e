package vm

import (
	"strings"
)

// execute runs instructions until the bottom frame returns to haltIP.
func (v *VM) execute() {
	code := v.img.Code
	h := v.heap
	for v.ip != haltIP {
		if v.ip < 0 || v.ip >= len(code) {
			fault(StackFault, "instruction pointer @%d outside code", v.ip)
		}
		v.cur = v.ip
		in := code[v.ip]
		v.ip++
		if v.opts.Trace {
			v.log.Debugf("[%s] @%d %s (stack %d, fp %d)", v.runID, v.cur, in, len(v.stack), v.fp)
		}

		switch in.Op {
		case OpInt:
			v.push(h.AllocInt(int32(in.A)))

		case OpNull:
			v.push(v.null)

		case OpPrintf:
			v.printf(in.Name, in.A)

		case OpArray:
			length := v.peek(1)
			if h.Tag(length) != IntTag {
				fault(TypeFault, "array length must be an Int, got %s", h.Describe(length))
			}
			a := h.AllocArray(int(h.IntValue(length)))
			init := v.pop()
			v.pop()
			for i, n := 0, h.ArrayLen(a); i < n; i++ {
				h.ArraySet(a, i, init)
			}
			v.push(a)

		case OpObject:
			v.need(in.A + 1)
			o := h.AllocObject(in.B)
			if c := v.classes.Get(in.B); c.VarCount != in.A {
				fault(TypeFault, "class %d declares %d variables, object initialises %d", in.B, c.VarCount, in.A)
			}
			for i := in.A - 1; i >= 0; i-- {
				h.SetVar(o, i, v.pop())
			}
			parent := v.pop()
			if t := h.Tag(parent); t == IntTag || t == ArrayTag {
				fault(TypeFault, "%s is not a legal parent", h.Describe(parent))
			}
			h.setParent(o, parent)
			v.push(o)

		case OpSlot:
			obj := v.pop()
			owner, s := v.lookup(obj, in.Name, VarSlot)
			v.push(h.Var(owner, s.Index))

		case OpSetSlot:
			val := v.pop()
			obj := v.pop()
			owner, s := v.lookup(obj, in.Name, VarSlot)
			h.SetVar(owner, s.Index, val)
			v.push(val)

		case OpCallSlot:
			if in.A < 1 {
				fault(TypeFault, "call-slot %s with arity %d has no receiver", in.Name, in.A)
			}
			recv := v.peek(in.A - 1)
			switch h.Tag(recv) {
			case IntTag:
				v.callIntSlot(in.Name, in.A)
			case ArrayTag:
				v.callArraySlot(in.Name, in.A)
			case NullTag:
				fault(TypeFault, "slot %s called on null", in.Name)
			default:
				_, s := v.lookup(recv, in.Name, CodeSlot)
				v.call(s.Address, in.A)
			}

		case OpCall:
			v.call(in.B, in.A)

		case OpSetLocal:
			v.frames[v.local(in.A)] = int(v.peek(0))

		case OpGetLocal:
			v.push(Ref(v.frames[v.local(in.A)]))

		case OpSetGlobal:
			v.globals[v.global(in.A)] = v.peek(0)

		case OpGetGlobal:
			v.push(v.globals[v.global(in.A)])

		case OpBranch:
			if h.Tag(v.pop()) != NullTag {
				v.ip = in.A
			}

		case OpGoto:
			v.ip = in.A

		case OpReturn:
			saved := v.frames[v.fp+1]
			v.ip = v.frames[v.fp]
			v.frames = v.frames[:v.fp]
			v.fp = saved

		case OpDrop:
			v.pop()

		case OpFrame:
			if v.argc != in.A {
				fault(TypeFault, "incorrect arity: expected %d but received %d", in.A, v.argc)
			}
			v.need(in.A)
			size := v.fp + 2 + in.A + in.B
			for len(v.frames) < size {
				v.frames = append(v.frames, int(v.null))
			}
			for i := in.A - 1; i >= 0; i-- {
				v.frames[v.fp+2+i] = int(v.pop())
			}

		default:
			fault(StackFault, "unknown instruction %s", in.Op)
		}
	}
}

// call pushes an activation returning to the current ip and jumps to addr.
// The callee's frame instruction checks k and binds the arguments.
func (v *VM) call(addr, k int) {
	v.need(k)
	v.argc = k
	base := len(v.frames)
	v.frames = append(v.frames, v.ip, v.fp)
	v.fp = base
	v.ip = addr
}

func (v *VM) printf(format string, k int) {
	v.need(k)
	next := len(v.stack) - k
	for {
		i := strings.IndexByte(format, '~')
		if i < 0 {
			v.out.WriteString(format)
			break
		}
		v.out.WriteString(format[:i])
		if next >= len(v.stack) {
			fault(TypeFault, "printf format has more than %d placeholders", k)
		}
		v.heap.Render(v.out, v.stack[next])
		next++
		format = format[i+1:]
	}
	v.stack = v.stack[:len(v.stack)-k]
	v.push(v.null)
}

// ---------------------------------------------------------------------------
// Stack helpers
// ---------------------------------------------------------------------------

func (v *VM) push(r Ref) {
	v.stack = append(v.stack, r)
}

func (v *VM) pop() Ref {
	n := len(v.stack)
	if n == 0 {
		fault(StackFault, "operand stack underflow")
	}
	r := v.stack[n-1]
	v.stack = v.stack[:n-1]
	return r
}

// peek returns the value depth entries below the top.
func (v *VM) peek(depth int) Ref {
	v.need(depth + 1)
	return v.stack[len(v.stack)-1-depth]
}

func (v *VM) need(n int) {
	if len(v.stack) < n {
		fault(StackFault, "operand stack holds %d values, need %d", len(v.stack), n)
	}
}

func (v *VM) pushBool(b bool) {
	if b {
		v.push(v.zero)
	} else {
		v.push(v.null)
	}
}

// local returns the frame-stack position of local i.
func (v *VM) local(i int) int {
	pos := v.fp + 2 + i
	if i < 0 || pos >= len(v.frames) {
		fault(StackFault, "local %d outside the current frame", i)
	}
	return pos
}

func (v *VM) global(i int) int {
	if i < 0 || i >= len(v.globals) {
		fault(StackFault, "global %d out of range", i)
	}
	return i
}
