package vm

import (
	"bufio"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// VM: The Feeny interpreter
// ---------------------------------------------------------------------------

// DefaultSemispaceBytes is the size of each semispace when Options leaves
// it unset.
const DefaultSemispaceBytes = 16 * 1024

// haltIP is the return address of the bottom frame.
const haltIP = -1

// Options configures a VM.
type Options struct {
	SemispaceBytes int       // size of each semispace; 0 means DefaultSemispaceBytes
	SlotCacheSize  int       // slot cache entries; 0 means default, negative disables
	Trace          bool      // log every instruction to feeny.vm at debug level
	Output         io.Writer // printf destination; nil means os.Stdout
}

// VM executes one linked Image. A VM is single-threaded; Run may be called
// again to execute the image from a fresh state.
type VM struct {
	img     *Image
	classes *ClassTable
	heap    *Heap
	cache   *SlotCache
	opts    Options

	// Interpreter registers
	ip      int
	cur     int // address of the executing instruction
	fp      int
	argc    int
	stack   []Ref
	frames  []int
	globals []Ref

	// Permanent singletons
	null Ref
	zero Ref

	out   *bufio.Writer
	runID string
	log   commonlog.Logger
}

// New prepares a VM for img.
func New(img *Image, opts Options) (*VM, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	classes, err := NewClassTableFrom(img.Classes)
	if err != nil {
		return nil, err
	}
	if opts.SemispaceBytes == 0 {
		opts.SemispaceBytes = DefaultSemispaceBytes
	}
	cache, err := NewSlotCache(opts.SlotCacheSize, classes)
	if err != nil {
		return nil, err
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	return &VM{
		img:     img,
		classes: classes,
		cache:   cache,
		opts:    opts,
		out:     bufio.NewWriter(out),
		log:     commonlog.GetLogger("feeny.vm"),
	}, nil
}

// reset discards all runtime state and allocates the singletons.
func (v *VM) reset() {
	v.runID = uuid.NewString()
	v.heap = NewHeap(v.opts.SemispaceBytes, v.classes, v)
	v.heap.runID = v.runID
	v.stack = v.stack[:0]
	v.frames = append(v.frames[:0], haltIP, 0)
	v.fp = 0
	v.argc = 0
	v.ip = v.img.Entry
	v.cur = haltIP
	v.globals = make([]Ref, len(v.img.Globals))
	v.cache.Hits, v.cache.Misses = 0, 0

	v.null = v.heap.AllocNull()
	v.zero = v.heap.AllocInt(0)
	for i := range v.globals {
		v.globals[i] = v.null
	}
}

// Run executes the image from its entry point until the bottom frame
// returns. Runtime faults are returned as *Fault. Program output is
// flushed before Run returns, including on a fault.
func (v *VM) Run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(*Fault)
			if !ok {
				panic(r)
			}
			if f.IP < 0 {
				f.IP = v.cur
			}
			v.log.Errorf("[%s] %s", v.runID, f)
			err = f
		}
		if ferr := v.out.Flush(); ferr != nil && err == nil {
			err = ferr
		}
	}()

	v.reset()
	v.log.Infof("[%s] run: entry @%d, %d instructions, %d classes, %d globals, %d-byte semispaces",
		v.runID, v.img.Entry, len(v.img.Code), v.classes.Len()-FirstClassTag, len(v.globals), v.heap.Stats().SemispaceBytes)
	v.execute()
	s := v.Stats()
	v.log.Infof("[%s] finished: %d collections, %d allocations, %d bytes in use",
		v.runID, s.Collections, s.Allocations, s.BytesInUse)
	return nil
}

// Collect forces a garbage collection over the current state.
func (v *VM) Collect() {
	if v.heap != nil {
		v.heap.Collect()
	}
}

// Stats returns heap and slot-cache counters for the current or last run.
func (v *VM) Stats() Stats {
	var s Stats
	if v.heap != nil {
		s = v.heap.Stats()
	}
	s.SlotCacheHits = v.cache.Hits
	s.SlotCacheMisses = v.cache.Misses
	return s
}

// Heap returns the heap of the current or last run, or nil before Run.
func (v *VM) Heap() *Heap {
	return v.heap
}

// RunID returns the identifier logged with the current or last run.
func (v *VM) RunID() string {
	return v.runID
}

// Global returns the value of the global variable called name.
func (v *VM) Global(name string) (Ref, bool) {
	for i, g := range v.img.Globals {
		if g == name && i < len(v.globals) {
			return v.globals[i], true
		}
	}
	return 0, false
}

// ScanRoots implements RootScanner: globals, every frame's locals, the
// operand stack and the two singletons.
func (v *VM) ScanRoots(visit func(Ref) Ref) {
	for i := range v.globals {
		v.globals[i] = visit(v.globals[i])
	}
	top, base := len(v.frames), v.fp
	for top > 0 {
		for i := base + 2; i < top; i++ {
			v.frames[i] = int(visit(Ref(v.frames[i])))
		}
		top = base
		base = v.frames[base+1]
	}
	for i := range v.stack {
		v.stack[i] = visit(v.stack[i])
	}
	v.null = visit(v.null)
	v.zero = visit(v.zero)
}
