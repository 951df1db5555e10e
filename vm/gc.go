package vm

// Collect copies every object reachable from the roots into the inactive
// semispace and makes it the active one. Objects are copied at most once:
// the first copy leaves [forwardTag, new address] in the old header and
// later references follow it, so shared and cyclic structure is preserved.
func (h *Heap) Collect() {
	before := h.top
	from := h.active
	h.active, h.inactive = h.inactive, h.active
	h.top = 0

	forward := func(r Ref) Ref {
		if from[r] == forwardTag {
			return Ref(from[r+1])
		}
		n := h.sizeOf(from, r)
		dst := Ref(h.top)
		copy(h.active[h.top:h.top+n], from[r:int(r)+n])
		h.top += n
		from[r] = forwardTag
		from[r+1] = int64(dst)
		return dst
	}

	h.roots.ScanRoots(forward)

	// Cheney scan: everything between scan and top is copied but its
	// references still point into from-space.
	for scan := 0; scan < h.top; {
		r := Ref(scan)
		n := h.sizeOf(h.active, r)
		switch tag := h.Tag(r); tag {
		case NullTag, IntTag:
		case ArrayTag:
			for i := headerSize; i < n; i++ {
				h.active[scan+i] = int64(forward(Ref(h.active[scan+i])))
			}
		default:
			for i := 1; i < n; i++ {
				h.active[scan+i] = int64(forward(Ref(h.active[scan+i])))
			}
		}
		scan += n
	}

	h.stats.Collections++
	h.stats.LastCopiedBytes = h.top * wordBytes
	h.log.Debugf("[%s] collection %d: %d bytes live, %d bytes reclaimed",
		h.runID, h.stats.Collections, h.top*wordBytes, (before-h.top)*wordBytes)
}
