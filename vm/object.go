package vm

import (
	"io"
	"strconv"
)

// Render writes the printf rendering of r: "null", a decimal Int, an Array
// as its space-separated items in brackets, and any other object as
// "[Object <tag>]". An Array reached again while it is being rendered is
// written as "[...]".
func (h *Heap) Render(w io.Writer, r Ref) {
	h.render(w, r, nil)
}

func (h *Heap) render(w io.Writer, r Ref, open []Ref) {
	switch tag := h.Tag(r); tag {
	case NullTag:
		io.WriteString(w, "null")
	case IntTag:
		io.WriteString(w, strconv.Itoa(int(h.IntValue(r))))
	case ArrayTag:
		for _, o := range open {
			if o == r {
				io.WriteString(w, "[...]")
				return
			}
		}
		open = append(open, r)
		io.WriteString(w, "[")
		for i, n := 0, h.ArrayLen(r); i < n; i++ {
			if i > 0 {
				io.WriteString(w, " ")
			}
			h.render(w, h.ArrayGet(r, i), open)
		}
		io.WriteString(w, "]")
	default:
		io.WriteString(w, "[Object "+strconv.Itoa(tag)+"]")
	}
}

// Describe returns a short human-readable name for the kind of r, used in
// fault messages.
func (h *Heap) Describe(r Ref) string {
	switch tag := h.Tag(r); tag {
	case NullTag:
		return "null"
	case IntTag:
		return "Int(" + strconv.Itoa(int(h.IntValue(r))) + ")"
	case ArrayTag:
		return "Array(length " + strconv.Itoa(h.ArrayLen(r)) + ")"
	default:
		if c := h.classes.Get(tag); c != nil && c.Name != "" {
			return c.Name
		}
		return "Object " + strconv.Itoa(tag)
	}
}
