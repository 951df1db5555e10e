package vm

import (
	"github.com/tliron/commonlog"
)

// Ref is the word offset of an object in the active semispace.
type Ref int

const (
	wordBytes  = 8
	headerSize = 2
	forwardTag = -1
)

// RootScanner enumerates every heap reference held outside the heap. The
// collector calls ScanRoots once per collection; visit returns the
// relocated reference, which the scanner must store back in place.
type RootScanner interface {
	ScanRoots(visit func(Ref) Ref)
}

// Stats reports heap and dispatch counters for one VM.
type Stats struct {
	Collections     int
	Allocations     int
	BytesAllocated  int
	BytesInUse      int
	LastCopiedBytes int
	SemispaceBytes  int
	SlotCacheHits   int
	SlotCacheMisses int
}

// Heap is a pair of equally sized semispaces. Objects are bump-allocated
// in the active space; when it fills, live objects are copied to the other
// space and the roles swap.
type Heap struct {
	active   []int64
	inactive []int64
	top      int
	classes  *ClassTable
	roots    RootScanner

	stats Stats
	log   commonlog.Logger
	runID string
}

// NewHeap creates a heap with two semispaces of semispaceBytes each.
// semispaceBytes is rounded down to a whole number of words.
func NewHeap(semispaceBytes int, classes *ClassTable, roots RootScanner) *Heap {
	words := semispaceBytes / wordBytes
	return &Heap{
		active:   make([]int64, words),
		inactive: make([]int64, words),
		classes:  classes,
		roots:    roots,
		stats:    Stats{SemispaceBytes: words * wordBytes},
		log:      commonlog.GetLogger("feeny.gc"),
	}
}

// Stats returns a snapshot of the heap counters.
func (h *Heap) Stats() Stats {
	s := h.stats
	s.BytesInUse = h.top * wordBytes
	return s
}

// Used returns the number of bytes currently allocated in the active space.
func (h *Heap) Used() int {
	return h.top * wordBytes
}

// alloc reserves words in the active space, collecting first if they do not
// fit. The caller must have every live reference reachable from the roots.
func (h *Heap) alloc(words int) Ref {
	if h.top+words > len(h.active) {
		h.Collect()
		if h.top+words > len(h.active) {
			fault(MemoryFault, "cannot allocate %d bytes: %d of %d bytes live after collection",
				words*wordBytes, h.top*wordBytes, len(h.active)*wordBytes)
		}
	}
	r := Ref(h.top)
	h.top += words
	h.stats.Allocations++
	h.stats.BytesAllocated += words * wordBytes
	return r
}

// AllocNull allocates a Null object.
func (h *Heap) AllocNull() Ref {
	r := h.alloc(headerSize)
	h.active[r] = NullTag
	h.active[r+1] = 0
	return r
}

// AllocInt allocates an Int holding v.
func (h *Heap) AllocInt(v int32) Ref {
	r := h.alloc(headerSize)
	h.active[r] = IntTag
	h.active[r+1] = int64(v)
	return r
}

// AllocArray allocates an Array of n items. Items must be filled by the
// caller before the next allocation.
func (h *Heap) AllocArray(n int) Ref {
	if n < 0 {
		fault(BoundsFault, "negative array length %d", n)
	}
	if n > len(h.active) {
		fault(MemoryFault, "array of length %d exceeds the semispace", n)
	}
	r := h.alloc(headerSize + n)
	h.active[r] = ArrayTag
	h.active[r+1] = int64(n)
	return r
}

// AllocObject allocates an instance of class tag. The parent and variable
// slots must be filled by the caller before the next allocation.
func (h *Heap) AllocObject(tag int) Ref {
	c := h.classes.Get(tag)
	if c == nil || tag < FirstClassTag {
		fault(TypeFault, "object of unknown class tag %d", tag)
	}
	r := h.alloc(headerSize + c.VarCount)
	h.active[r] = int64(tag)
	return r
}

// sizeOf returns the size in words of the object at r in space.
func (h *Heap) sizeOf(space []int64, r Ref) int {
	switch tag := int(space[r]); tag {
	case NullTag, IntTag:
		return headerSize
	case ArrayTag:
		return headerSize + int(space[r+1])
	default:
		return headerSize + h.classes.Get(tag).VarCount
	}
}

// ---------------------------------------------------------------------------
// Field access
// ---------------------------------------------------------------------------

// Tag returns the class tag of r.
func (h *Heap) Tag(r Ref) int {
	return int(h.active[r])
}

// IntValue returns the value of an Int.
func (h *Heap) IntValue(r Ref) int32 {
	return int32(h.active[r+1])
}

// ArrayLen returns the length of an Array.
func (h *Heap) ArrayLen(r Ref) int {
	return int(h.active[r+1])
}

// ArrayGet returns item i of an Array. i must be in range.
func (h *Heap) ArrayGet(r Ref, i int) Ref {
	return Ref(h.active[int(r)+headerSize+i])
}

// ArraySet stores v as item i of an Array. i must be in range.
func (h *Heap) ArraySet(r Ref, i int, v Ref) {
	h.active[int(r)+headerSize+i] = int64(v)
}

// Parent returns the parent of an Object.
func (h *Heap) Parent(r Ref) Ref {
	return Ref(h.active[r+1])
}

func (h *Heap) setParent(r, parent Ref) {
	h.active[r+1] = int64(parent)
}

// Var returns variable slot i of an Object.
func (h *Heap) Var(r Ref, i int) Ref {
	return Ref(h.active[int(r)+headerSize+i])
}

// SetVar stores v into variable slot i of an Object.
func (h *Heap) SetVar(r Ref, i int, v Ref) {
	h.active[int(r)+headerSize+i] = int64(v)
}
