// Package vm implements the Feeny runtime.
//
// This package contains:
//   - Linked instruction records and the linked Image
//   - Class descriptors and the class table
//   - A two-semispace heap with a Cheney-style copying collector
//   - Slot resolution through live parent references, with a per-class cache
//   - The stack-machine interpreter and the Int/Array primitives
//
// # Heap layout
//
// The heap is an array of 64-bit words. A Ref is the word offset of an
// object inside the active semispace. Every object starts with a two-word
// header:
//
//	Null:   [tag=0, unused]
//	Int:    [tag=1, value]
//	Array:  [tag=2, length, item0 ... itemN-1]
//	Object: [tag>=3, parent, slot0 ... slotK-1]   (K = class var count)
//
// so the size of any object follows from its tag, its stored length, or its
// class. During a collection a moved object's old header is overwritten with
// [forwardTag, new address].
//
// # Frames
//
// The frame stack is one growable slice of words. An activation is
// [return-ip, saved-frame-base, local0 ... localK-1] and the frame base
// indexes its first word. Methods invoked through call-slot receive the
// receiver as local 0; the callee's nargs counts it.
package vm
