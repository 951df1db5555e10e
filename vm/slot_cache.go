package vm

import (
	lru "github.com/hashicorp/golang-lru"
)

// Slot Resolution Cache
//
// Lookup walks an object's live parent chain, so the chain itself can never
// be cached. What is fixed after linking is each class's own member list:
// the cache maps (class tag, slot name) to the index of that member in the
// class's Slots, or -1 when the class does not declare it. A miss costs one
// linear scan of a single class.

// DefaultSlotCacheSize is used when Options.SlotCacheSize is zero.
const DefaultSlotCacheSize = 1024

type slotKey struct {
	tag  int
	name string
}

// SlotCache is a bounded cache of own-member positions per class.
type SlotCache struct {
	entries *lru.Cache
	classes *ClassTable

	Hits   int
	Misses int
}

// NewSlotCache creates a cache holding at most size entries. A negative
// size disables caching.
func NewSlotCache(size int, classes *ClassTable) (*SlotCache, error) {
	sc := &SlotCache{classes: classes}
	if size < 0 {
		return sc, nil
	}
	if size == 0 {
		size = DefaultSlotCacheSize
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	sc.entries = c
	return sc, nil
}

// Find returns the index of name in the Slots of class tag, or -1.
func (sc *SlotCache) Find(tag int, name string) int {
	if sc.entries == nil {
		return sc.classes.Get(tag).Find(name)
	}
	key := slotKey{tag: tag, name: name}
	if v, ok := sc.entries.Get(key); ok {
		sc.Hits++
		return v.(int)
	}
	sc.Misses++
	idx := sc.classes.Get(tag).Find(name)
	sc.entries.Add(key, idx)
	return idx
}

// Len returns the number of cached entries.
func (sc *SlotCache) Len() int {
	if sc.entries == nil {
		return 0
	}
	return sc.entries.Len()
}

// Purge drops every entry and resets the counters.
func (sc *SlotCache) Purge() {
	if sc.entries != nil {
		sc.entries.Purge()
	}
	sc.Hits, sc.Misses = 0, 0
}
