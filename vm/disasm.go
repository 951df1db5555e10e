package vm

import (
	"fmt"
	"sort"
	"strings"
)

// Listing renders the linked image: classes with their resolved members,
// globals, functions and the code buffer with addresses.
func (img *Image) Listing() string {
	var sb strings.Builder

	sb.WriteString("Classes :\n")
	for tag := FirstClassTag; tag < len(img.Classes); tag++ {
		c := img.Classes[tag]
		fmt.Fprintf(&sb, "   %d: %s vars=%d\n", tag, c.Name, c.VarCount)
		for _, s := range c.Slots {
			if s.Kind == CodeSlot {
				fmt.Fprintf(&sb, "      method %s @%d\n", s.Name, s.Address)
			} else {
				fmt.Fprintf(&sb, "      var %s [%d]\n", s.Name, s.Index)
			}
		}
	}

	sb.WriteString("Globals :\n")
	for i, g := range img.Globals {
		fmt.Fprintf(&sb, "   %d: %s\n", i, g)
	}

	sb.WriteString("Functions :\n")
	names := make([]string, 0, len(img.Functions))
	for name := range img.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&sb, "   %s @%d\n", name, img.Functions[name])
	}

	sb.WriteString("Code :\n")
	for ip, in := range img.Code {
		marker := "  "
		if ip == img.Entry {
			marker = "=>"
		}
		fmt.Fprintf(&sb, "%s %4d  %s\n", marker, ip, in)
	}
	return sb.String()
}
