package shadowcache

// Arena is the per-code-object side table holding every cache entry plus
// the rewritten bytecode copy the dispatcher specializes in place.
//
// Grounded on vm/vtable.go's dense, bounds-checked, index-into-a-slice
// dispatch idiom (VTable.Lookup walks a parent chain indexing `methods`
// directly by selector), generalized to four parallel tables instead of
// one, each allocated lazily and grown to fit the code object it serves.
type Arena struct {
	// Code is the rewritten bytecode copy the dispatcher patches in
	// place. Patch is the only way this package ever mutates it, and it
	// also restores a site back to its generic opcode on invalidation.
	Code Bytecode

	// Owner is an opaque, diagnostics-only back-link to the host's code
	// object. Never dereferenced by this package.
	Owner interface{}

	globals     []GlobalCacheEntry
	l1          []l1Slot
	polymorphic []*PolymorphicEntry
	fieldCaches []FieldCacheEntry

	// UpdateCount is the total number of Patch calls applied to this
	// arena's bytecode, used to bound respecialization thrash.
	UpdateCount int64
}

// l1Slot is the l1_cache[] entry: an InstanceAttrEntry, covering every
// shape load_attr/load_method/store_attr can specialize, including an
// owner that is itself a type (KindTypeAttr).
type l1Slot struct {
	instance *InstanceAttrEntry
}

// NewArena allocates an arena over code. Tables start empty and grow
// lazily as the dispatcher specializes sites.
func NewArena(code Bytecode, owner interface{}) *Arena {
	return &Arena{Code: code, Owner: owner}
}

// Patch atomically rewrites the two-byte instruction at ip. Safe without
// locking because only one thread of a given interpreter ever executes
// (and therefore ever patches) a given code object at a time.
func (a *Arena) Patch(ip int, opcode byte, arg byte) {
	a.Code.Patch(ip, opcode, arg)
	a.UpdateCount++
}

// Clear releases every entry table, dropping this arena's half of every
// type-registry dependency link. Callers must separately walk recorded
// dependencies to drop the registry's half (Invalidation.ClearArena does
// both).
func (a *Arena) Clear() {
	a.globals = nil
	a.l1 = nil
	a.polymorphic = nil
	a.fieldCaches = nil
	a.UpdateCount = 0
}

// ---------------------------------------------------------------------------
// globals[]
// ---------------------------------------------------------------------------

// AddGlobal appends a GlobalCacheEntry, returning its dense index.
func (a *Arena) AddGlobal(e GlobalCacheEntry) int {
	a.globals = append(a.globals, e)
	return len(a.globals) - 1
}

// Global returns a pointer to the entry at offset, panicking if offset is
// out of range — every rewritten opcode's operand is guaranteed
// dense/bounds-valid by construction, so an out-of-range offset here means
// the bytecode was corrupted.
func (a *Arena) Global(offset int) *GlobalCacheEntry {
	if offset < 0 || offset >= len(a.globals) {
		panic("shadowcache: globals[] index out of range")
	}
	return &a.globals[offset]
}

// EnsureGlobal grows globals[] so offset is valid, leaving any existing
// entries untouched. Unlike every other table here, a LOAD_GLOBAL site has
// no spare payload byte to stash a separately allocated dense slot in, so
// the host reuses the code object's own literal index as the slot number
// directly — this grows the table to fit an arbitrary index instead of
// only ever appending one past the end.
func (a *Arena) EnsureGlobal(offset int) {
	if offset < len(a.globals) {
		return
	}
	grown := make([]GlobalCacheEntry, offset+1)
	copy(grown, a.globals)
	a.globals = grown
}

// ---------------------------------------------------------------------------
// l1_cache[]
// ---------------------------------------------------------------------------

// AddInstanceAttr appends an InstanceAttrEntry to l1_cache, returning its
// dense index.
func (a *Arena) AddInstanceAttr(e *InstanceAttrEntry) int {
	a.l1 = append(a.l1, l1Slot{instance: e})
	return len(a.l1) - 1
}

// InstanceAttr returns the InstanceAttrEntry at offset, panicking if out
// of range.
func (a *Arena) InstanceAttr(offset int) *InstanceAttrEntry {
	return a.l1Slot(offset).instance
}

func (a *Arena) l1Slot(offset int) l1Slot {
	if offset < 0 || offset >= len(a.l1) {
		panic("shadowcache: l1_cache[] index out of range")
	}
	return a.l1[offset]
}

// ---------------------------------------------------------------------------
// polymorphic_caches[]
// ---------------------------------------------------------------------------

// AddPolymorphic appends a polymorphic array, returning its dense index.
func (a *Arena) AddPolymorphic(p *PolymorphicEntry) int {
	a.polymorphic = append(a.polymorphic, p)
	return len(a.polymorphic) - 1
}

// Polymorphic returns the polymorphic array at offset.
func (a *Arena) Polymorphic(offset int) *PolymorphicEntry {
	if offset < 0 || offset >= len(a.polymorphic) {
		panic("shadowcache: polymorphic_caches[] index out of range")
	}
	return a.polymorphic[offset]
}

// ---------------------------------------------------------------------------
// field_caches[]
// ---------------------------------------------------------------------------

// AddFieldCache appends a FieldCacheEntry, returning its dense index.
func (a *Arena) AddFieldCache(e FieldCacheEntry) int {
	a.fieldCaches = append(a.fieldCaches, e)
	return len(a.fieldCaches) - 1
}

// FieldCache returns a pointer to the entry at offset.
func (a *Arena) FieldCache(offset int) *FieldCacheEntry {
	if offset < 0 || offset >= len(a.fieldCaches) {
		panic("shadowcache: field_caches[] index out of range")
	}
	return &a.fieldCaches[offset]
}
