// Package linker resolves a decoded bytecode program into an executable
// vm.Image.
//
// Linking runs in three passes over the constant pool (methods, then
// classes, then globals) followed by a patch pass. Any reference to a label,
// function, class or global that is not yet known when an instruction is
// translated is emitted with a placeholder operand and recorded as a Patch;
// once every table is complete each patch is resolved exactly once.
package linker

import (
	"fmt"

	"github.com/chazu/feeny/pkg/bytecode"
	"github.com/chazu/feeny/vm"
	"github.com/pkg/errors"
	"github.com/tliron/commonlog"
)

var (
	ErrUnresolvedSymbol = errors.New("unresolved symbol")
	ErrBadGlobal        = errors.New("global must be a slot or a method")
	ErrBadLiteral       = errors.New("literal must be an int or null")
	ErrBadClassMember   = errors.New("class member must be a slot or a method")
	ErrBadEntry         = errors.New("entry must be a method")
)

var log = commonlog.GetLogger("feeny.linker")

// PatchKind identifies which operand a Patch fills in.
type PatchKind uint8

const (
	PatchLabel       PatchKind = iota // branch/goto target, Instr.A
	PatchFunction                     // call address, Instr.B
	PatchClassTag                     // object class tag, Instr.B
	PatchClassArity                   // object variable count, Instr.A
	PatchGlobalIndex                  // get/set-global index, Instr.A
)

func (k PatchKind) String() string {
	switch k {
	case PatchLabel:
		return "label"
	case PatchFunction:
		return "function"
	case PatchClassTag:
		return "class-tag"
	case PatchClassArity:
		return "class-arity"
	case PatchGlobalIndex:
		return "global-index"
	default:
		return fmt.Sprintf("PatchKind(%d)", uint8(k))
	}
}

// Patch is a deferred operand: the instruction at Pos waits for Name (a
// label, function or global) or for Class (a constant-pool index).
type Patch struct {
	Kind  PatchKind
	Pos   int
	Name  string
	Class int
}

// Linker holds the symbol tables of one link. Use Link for the common case.
type Linker struct {
	prog *bytecode.Program

	code    []vm.Instr
	patches []Patch

	labels      map[string]int // label name -> address
	methods     map[int]int    // constant index -> address
	functions   map[string]int // function name -> address
	classTags   map[int]int    // constant index -> class tag
	globalIndex map[string]int // global name -> slot index

	classes *vm.ClassTable
	globals []string
}

// New creates a Linker for prog.
func New(prog *bytecode.Program) *Linker {
	return &Linker{
		prog:        prog,
		labels:      make(map[string]int),
		methods:     make(map[int]int),
		functions:   make(map[string]int),
		classTags:   make(map[int]int),
		globalIndex: make(map[string]int),
		classes:     vm.NewClassTable(),
	}
}

// Link links prog into an executable image.
func Link(prog *bytecode.Program) (*vm.Image, error) {
	return New(prog).Link()
}

// Link runs every pass and returns the image. The Linker must not be reused.
func (l *Linker) Link() (*vm.Image, error) {
	if err := l.linkMethods(); err != nil {
		return nil, err
	}
	if err := l.linkClasses(); err != nil {
		return nil, err
	}
	if err := l.linkGlobals(); err != nil {
		return nil, err
	}
	entry, ok := l.methods[l.prog.Entry]
	if !ok {
		return nil, errors.Wrapf(ErrBadEntry, "entry #%d", l.prog.Entry)
	}
	resolved := len(l.patches)
	if err := l.resolvePatches(); err != nil {
		return nil, err
	}

	log.Infof("linked %d instructions, %d classes, %d globals, %d functions; %d patches resolved",
		len(l.code), l.classes.Len()-vm.FirstClassTag, len(l.globals), len(l.functions), resolved)

	return &vm.Image{
		Code:      l.code,
		Classes:   l.classes.All(),
		Globals:   l.globals,
		Functions: l.functions,
		Entry:     entry,
	}, nil
}

// ---------------------------------------------------------------------------
// Pass 1: methods
// ---------------------------------------------------------------------------

func (l *Linker) linkMethods() error {
	for idx, v := range l.prog.Values {
		m, ok := v.(bytecode.MethodValue)
		if !ok {
			continue
		}
		l.methods[idx] = len(l.code)
		l.emit(vm.Instr{Op: vm.OpFrame, A: m.NArgs, B: m.NLocals})
		for _, ins := range m.Code {
			if err := l.translate(ins); err != nil {
				name, _ := l.prog.StringAt(m.Name)
				return errors.WithMessagef(err, "method %s (#%d)", name, idx)
			}
		}
	}
	return nil
}

func (l *Linker) emit(in vm.Instr) int {
	l.code = append(l.code, in)
	return len(l.code) - 1
}

func (l *Linker) patch(kind PatchKind, pos int, name string) {
	l.patches = append(l.patches, Patch{Kind: kind, Pos: pos, Name: name})
}

func (l *Linker) translate(ins bytecode.Instruction) error {
	switch ins.Op {
	case bytecode.OpLabel:
		name, err := l.prog.StringAt(ins.Index)
		if err != nil {
			return err
		}
		if prev, dup := l.labels[name]; dup {
			log.Warningf("label %s redefined at @%d, keeping @%d", name, len(l.code), prev)
			return nil
		}
		l.labels[name] = len(l.code)

	case bytecode.OpLit:
		if ins.Index < 0 || ins.Index >= len(l.prog.Values) {
			return errors.Wrapf(ErrBadLiteral, "constant #%d out of range", ins.Index)
		}
		switch v := l.prog.Values[ins.Index].(type) {
		case bytecode.IntValue:
			l.emit(vm.Instr{Op: vm.OpInt, A: int(v.Value)})
		case bytecode.NullValue:
			l.emit(vm.Instr{Op: vm.OpNull})
		default:
			return errors.Wrapf(ErrBadLiteral, "constant #%d is %s", ins.Index, v.Tag())
		}

	case bytecode.OpPrintf:
		format, err := l.prog.StringAt(ins.Index)
		if err != nil {
			return err
		}
		l.emit(vm.Instr{Op: vm.OpPrintf, A: ins.Arity, Name: format})

	case bytecode.OpArray:
		l.emit(vm.Instr{Op: vm.OpArray})

	case bytecode.OpObject:
		pos := l.emit(vm.Instr{Op: vm.OpObject})
		l.patches = append(l.patches,
			Patch{Kind: PatchClassTag, Pos: pos, Class: ins.Index},
			Patch{Kind: PatchClassArity, Pos: pos, Class: ins.Index})

	case bytecode.OpSlot, bytecode.OpSetSlot:
		name, err := l.prog.StringAt(ins.Index)
		if err != nil {
			return err
		}
		op := vm.OpSlot
		if ins.Op == bytecode.OpSetSlot {
			op = vm.OpSetSlot
		}
		l.emit(vm.Instr{Op: op, Name: name})

	case bytecode.OpCallSlot:
		name, err := l.prog.StringAt(ins.Index)
		if err != nil {
			return err
		}
		l.emit(vm.Instr{Op: vm.OpCallSlot, A: ins.Arity, Name: name})

	case bytecode.OpCall:
		name, err := l.prog.StringAt(ins.Index)
		if err != nil {
			return err
		}
		l.patch(PatchFunction, l.emit(vm.Instr{Op: vm.OpCall, A: ins.Arity, Name: name}), name)

	case bytecode.OpSetLocal:
		l.emit(vm.Instr{Op: vm.OpSetLocal, A: ins.Index})

	case bytecode.OpGetLocal:
		l.emit(vm.Instr{Op: vm.OpGetLocal, A: ins.Index})

	case bytecode.OpSetGlobal, bytecode.OpGetGlobal:
		name, err := l.prog.StringAt(ins.Index)
		if err != nil {
			return err
		}
		op := vm.OpGetGlobal
		if ins.Op == bytecode.OpSetGlobal {
			op = vm.OpSetGlobal
		}
		l.patch(PatchGlobalIndex, l.emit(vm.Instr{Op: op, Name: name}), name)

	case bytecode.OpBranch, bytecode.OpGoto:
		name, err := l.prog.StringAt(ins.Index)
		if err != nil {
			return err
		}
		op := vm.OpGoto
		if ins.Op == bytecode.OpBranch {
			op = vm.OpBranch
		}
		l.patch(PatchLabel, l.emit(vm.Instr{Op: op, Name: name}), name)

	case bytecode.OpReturn:
		l.emit(vm.Instr{Op: vm.OpReturn})

	case bytecode.OpDrop:
		l.emit(vm.Instr{Op: vm.OpDrop})

	default:
		return errors.Wrapf(bytecode.ErrUnknownOpcode, "%s", ins.Op)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Pass 2: classes
// ---------------------------------------------------------------------------

func (l *Linker) linkClasses() error {
	for idx, v := range l.prog.Values {
		cv, ok := v.(bytecode.ClassValue)
		if !ok {
			continue
		}
		c := &vm.Class{Name: fmt.Sprintf("Class#%d", idx)}
		for _, m := range cv.Members {
			if m < 0 || m >= len(l.prog.Values) {
				return errors.Wrapf(ErrBadClassMember, "class #%d: member #%d out of range", idx, m)
			}
			switch mv := l.prog.Values[m].(type) {
			case bytecode.SlotValue:
				name, err := l.prog.StringAt(mv.Name)
				if err != nil {
					return errors.WithMessagef(err, "class #%d", idx)
				}
				c.Slots = append(c.Slots, vm.Slot{Name: name, Kind: vm.VarSlot, Index: c.VarCount})
				c.VarCount++
			case bytecode.MethodValue:
				name, err := l.prog.StringAt(mv.Name)
				if err != nil {
					return errors.WithMessagef(err, "class #%d", idx)
				}
				c.Slots = append(c.Slots, vm.Slot{Name: name, Kind: vm.CodeSlot, Address: l.methods[m]})
			default:
				return errors.Wrapf(ErrBadClassMember, "class #%d: member #%d is %s", idx, m, mv.Tag())
			}
		}
		l.classTags[idx] = l.classes.Add(c)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Pass 3: globals
// ---------------------------------------------------------------------------

func (l *Linker) linkGlobals() error {
	for _, idx := range l.prog.Globals {
		if idx < 0 || idx >= len(l.prog.Values) {
			return errors.Wrapf(ErrBadGlobal, "constant #%d out of range", idx)
		}
		switch gv := l.prog.Values[idx].(type) {
		case bytecode.SlotValue:
			name, err := l.prog.StringAt(gv.Name)
			if err != nil {
				return errors.WithMessagef(err, "global #%d", idx)
			}
			if prev, dup := l.globalIndex[name]; dup {
				log.Warningf("global %s redeclared by constant #%d, keeping index %d", name, idx, prev)
			} else {
				l.globalIndex[name] = len(l.globals)
			}
			l.globals = append(l.globals, name)
		case bytecode.MethodValue:
			name, err := l.prog.StringAt(gv.Name)
			if err != nil {
				return errors.WithMessagef(err, "global #%d", idx)
			}
			if prev, dup := l.functions[name]; dup {
				log.Warningf("function %s redeclared by constant #%d, keeping @%d", name, idx, prev)
				continue
			}
			l.functions[name] = l.methods[idx]
		default:
			return errors.Wrapf(ErrBadGlobal, "constant #%d is %s", idx, gv.Tag())
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Patch pass
// ---------------------------------------------------------------------------

func (l *Linker) resolvePatches() error {
	for _, p := range l.patches {
		in := &l.code[p.Pos]
		switch p.Kind {
		case PatchLabel:
			addr, ok := l.labels[p.Name]
			if !ok {
				return errors.Wrapf(ErrUnresolvedSymbol, "label %s", p.Name)
			}
			in.A = addr
			in.Name = ""
		case PatchFunction:
			addr, ok := l.functions[p.Name]
			if !ok {
				return errors.Wrapf(ErrUnresolvedSymbol, "function %s", p.Name)
			}
			in.B = addr
		case PatchGlobalIndex:
			gi, ok := l.globalIndex[p.Name]
			if !ok {
				return errors.Wrapf(ErrUnresolvedSymbol, "global %s", p.Name)
			}
			in.A = gi
		case PatchClassTag, PatchClassArity:
			tag, ok := l.classTags[p.Class]
			if !ok {
				return errors.Wrapf(ErrUnresolvedSymbol, "class #%d", p.Class)
			}
			if p.Kind == PatchClassTag {
				in.B = tag
			} else {
				in.A = l.classes.Get(tag).VarCount
			}
		}
	}
	l.patches = nil
	return nil
}

// Patches returns the patches still pending. It is empty after a
// successful Link.
func (l *Linker) Patches() []Patch {
	return l.patches
}
