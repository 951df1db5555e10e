package vm

// lookup resolves name on obj by searching the object's own class, then
// its parent object, and so on. It returns the object that owns the member
// together with the member. A Null receiver or an exhausted chain is a
// TypeFault, as is a member of the wrong kind.
func (v *VM) lookup(obj Ref, name string, want SlotKind) (Ref, Slot) {
	h := v.heap
	for cur := obj; ; cur = h.Parent(cur) {
		tag := h.Tag(cur)
		switch tag {
		case NullTag:
			if cur == obj {
				fault(TypeFault, "slot %s requested on null", name)
			}
			fault(TypeFault, "no slot named %s", name)
		case IntTag, ArrayTag:
			fault(TypeFault, "slot %s requested on primitive %s", name, v.classes.Get(tag).Name)
		}
		if idx := v.cache.Find(tag, name); idx >= 0 {
			s := v.classes.Get(tag).Slots[idx]
			if s.Kind != want {
				fault(TypeFault, "slot %s is a %s, expected a %s", name, s.Kind, want)
			}
			return cur, s
		}
	}
}
