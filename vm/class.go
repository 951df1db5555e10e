package vm

import "fmt"

// Reserved class tags. Tags from FirstClassTag upward index declared classes.
const (
	NullTag       = 0
	IntTag        = 1
	ArrayTag      = 2
	FirstClassTag = 3
)

// ---------------------------------------------------------------------------
// Class descriptors
// ---------------------------------------------------------------------------

// SlotKind distinguishes variable slots from method slots.
type SlotKind uint8

const (
	VarSlot SlotKind = iota
	CodeSlot
)

func (k SlotKind) String() string {
	if k == CodeSlot {
		return "method"
	}
	return "var"
}

// Slot is a named class member. Var slots carry their index into the
// object's variable array; code slots carry the method's entry address.
type Slot struct {
	Name    string   `cbor:"1,keyasint"`
	Kind    SlotKind `cbor:"2,keyasint"`
	Index   int      `cbor:"3,keyasint,omitempty"`
	Address int      `cbor:"4,keyasint,omitempty"`
}

// Class describes the layout and members of objects with its tag.
// A Class is immutable once linked.
type Class struct {
	Name     string `cbor:"1,keyasint"`
	VarCount int    `cbor:"2,keyasint"`
	Slots    []Slot `cbor:"3,keyasint"`
}

// Find returns the index in c.Slots of the member called name, or -1.
// Only this class's own members are searched.
func (c *Class) Find(name string) int {
	for i := range c.Slots {
		if c.Slots[i].Name == name {
			return i
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// ClassTable
// ---------------------------------------------------------------------------

// ClassTable maps class tags to descriptors. The first three entries are
// the synthetic Null, Int and Array classes.
type ClassTable struct {
	classes []*Class
}

// NewClassTable creates a table holding only the reserved entries.
func NewClassTable() *ClassTable {
	return &ClassTable{classes: []*Class{
		NullTag:  {Name: "Null"},
		IntTag:   {Name: "Int"},
		ArrayTag: {Name: "Array"},
	}}
}

// NewClassTableFrom wraps a full list of descriptors, as stored in an Image.
func NewClassTableFrom(classes []*Class) (*ClassTable, error) {
	if len(classes) < FirstClassTag {
		return nil, fmt.Errorf("class table has %d entries, need at least %d reserved", len(classes), FirstClassTag)
	}
	for tag, c := range classes {
		if c == nil {
			return nil, fmt.Errorf("class table entry %d is empty", tag)
		}
	}
	return &ClassTable{classes: classes}, nil
}

// Add registers c and returns its tag.
func (t *ClassTable) Add(c *Class) int {
	t.classes = append(t.classes, c)
	return len(t.classes) - 1
}

// Get returns the descriptor for tag, or nil if the tag is unknown.
func (t *ClassTable) Get(tag int) *Class {
	if tag < 0 || tag >= len(t.classes) {
		return nil
	}
	return t.classes[tag]
}

// Len returns the number of entries, reserved ones included.
func (t *ClassTable) Len() int {
	return len(t.classes)
}

// All returns the descriptors indexed by tag.
func (t *ClassTable) All() []*Class {
	return t.classes
}
