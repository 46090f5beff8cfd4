package shadowcache

// EntryKind discriminates the cache-entry tagged union. Each kind has its
// own load_attr/load_method/store_attr behavior in handlers.go; Invalidate
// below is uniform across kinds.
type EntryKind uint8

const (
	KindDictNoDescr EntryKind = iota
	KindDictDescr
	KindSplitDict
	KindSplitDictDescr
	KindSlot
	KindNoDictDescr
	KindDictMethod
	KindNoDictMethod
	KindSplitDictMethod
	KindTypeAttr // owner is itself a type, name resolves on it directly
)

func (k EntryKind) String() string {
	switch k {
	case KindDictNoDescr:
		return "dict_no_descr"
	case KindDictDescr:
		return "dict_descr"
	case KindSplitDict:
		return "split_dict"
	case KindSplitDictDescr:
		return "split_dict_descr"
	case KindSlot:
		return "slot"
	case KindNoDictDescr:
		return "nodict_descr"
	case KindDictMethod:
		return "dict_method"
	case KindNoDictMethod:
		return "nodict_method"
	case KindSplitDictMethod:
		return "split_dict_method"
	case KindTypeAttr:
		return "type"
	default:
		return "unknown"
	}
}

// dictOffsetComputed marks an InstanceAttrEntry whose dict offset must be
// recomputed from the owning object's actual layout rather than read
// directly. Maggie's own host adapter never needs this (its dict offset
// is always statically known per class) but the field is carried for
// hosts whose instances are variably sized.
const dictOffsetComputed = -1

// poisonedBit marks a cached keys identity as "observed, but the dict no
// longer has a value at this entry's split offset" without retaining a
// live reference to the keys object. See GLOSSARY: Poisoned keys.
const poisonedBit uintptr = 1

func poisonKeys(id uintptr) uintptr {
	return id | poisonedBit
}

func isPoisoned(id uintptr) bool {
	return id&poisonedBit != 0
}

// InstanceAttrEntry is the cache-entry kind for attribute access on
// ordinary instances: slots, (split) dicts, and type/instance descriptors,
// and their LOAD_METHOD counterparts.
type InstanceAttrEntry struct {
	Kind EntryKind
	Name string

	// Type is the type this entry is specialized for. A non-nil Type with
	// a live cache means "hit candidate"; Invalidate sets it to nil.
	Type Type

	// Descr is the resolved descriptor object for Kind in
	// {DictDescr, NoDictDescr, SplitDictDescr, *Method}; nil for Slot,
	// DictNoDescr, SplitDict.
	Descr Object

	// Offset is the fixed slot index for Kind == KindSlot. Unused
	// otherwise.
	Offset int

	// DictOffset is the instance's dict-slot offset, or dictOffsetComputed
	// if it must be derived at access time.
	DictOffset int

	// SplitOffset is this entry's index into a split dict's values array,
	// or -1 if unknown/not split.
	SplitOffset int

	// Keys is the dict-keys identity observed at cache-build time, used
	// to detect "same shape" on subsequent accesses; may carry the
	// poisoned bit (see poisonKeys).
	Keys uintptr

	// NEntries is the keys table's entry count observed at the same time
	// as Keys, used by the negative-hit test.
	NEntries int
}

// Invalidate clears the entry so the next access takes the miss path and
// respecializes. Clearing Type is the poison; the opcode rewrite itself is
// done separately by the arena (see arena.go Patch).
func (e *InstanceAttrEntry) Invalidate() {
	e.Type = nil
	e.Descr = nil
}

// Live reports whether this entry currently has a target type (i.e.
// hasn't been invalidated).
func (e *InstanceAttrEntry) Live() bool {
	return e.Type != nil
}

// GlobalCacheEntry caches a LOAD_GLOBAL resolution against the combined
// (globals, builtins) version counter.
type GlobalCacheEntry struct {
	Name    string
	Version uint64
	Value   TaggedValue
	valid   bool
}

func (e *GlobalCacheEntry) Invalidate() {
	e.valid = false
}

func (e *GlobalCacheEntry) Live() bool {
	return e.valid
}

// FieldCacheEntry caches a primitive-typed field access used by
// BINARY_SUBSCR-style container specializations.
type FieldCacheEntry struct {
	Offset    int
	FieldType uint8
}

// PolymorphicCap is the fixed capacity of a PolymorphicEntry array: no
// polymorphic site grows past 4 specializations.
const PolymorphicCap = 4

// PolymorphicEntry holds up to PolymorphicCap InstanceAttrEntry pointers
// for a single call site that has observed more than one type. A fifth
// distinct type evicts the oldest (FIFO).
type PolymorphicEntry struct {
	Entries [PolymorphicCap]*InstanceAttrEntry
	Count   int
	next    int // ring cursor for FIFO eviction once full
}

// Find returns the entry specialized for t, or nil.
func (p *PolymorphicEntry) Find(t Type) *InstanceAttrEntry {
	for i := 0; i < p.Count; i++ {
		if e := p.Entries[i]; e != nil && e.Live() && e.Type.SamePointer(t) {
			return e
		}
	}
	return nil
}

// Insert adds e to the array, evicting the oldest entry in FIFO order once
// full.
func (p *PolymorphicEntry) Insert(e *InstanceAttrEntry) {
	if p.Count < PolymorphicCap {
		p.Entries[p.Count] = e
		p.Count++
		return
	}
	p.Entries[p.next] = e
	p.next = (p.next + 1) % PolymorphicCap
}

// InvalidateAll invalidates every live entry in the array, used when the
// type directory walks affected polymorphic caches on type mutation.
func (p *PolymorphicEntry) InvalidateAll() {
	for i := 0; i < p.Count; i++ {
		if p.Entries[i] != nil {
			p.Entries[i].Invalidate()
		}
	}
}
