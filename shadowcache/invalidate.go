package shadowcache

// This file covers the four events that can make a live cache entry
// wrong, and what each does to the registry/arena state. The arena-cleared
// case (event 4, ClearArena below) is exposed for a host to call when it
// knows a code object's arena is going away — e.g. hot-reloading a method
// body — but Cache itself never calls it on a bare GC collection of the
// owning method; Go's collector already reclaims an arena nobody still
// points to once the registry drops its bindings.

// Invalidation bundles a Registry with the bookkeeping its four event
// handlers share.
type Invalidation struct {
	Registry *Registry
	Stats    *Stats
}

// NewInvalidation creates the protocol handler over reg, recording counts
// into stats (stats may be nil to disable counting).
func NewInvalidation(reg *Registry, stats *Stats) *Invalidation {
	return &Invalidation{Registry: reg, Stats: stats}
}

// OnTypeModified is event 1: a type's own attributes (slots, descriptors,
// method table) changed. Every site caching an attribute of t, and every
// site caching an attribute of any of t's known subclasses that recorded
// a dependency through t's directory, is poisoned and reverted to its
// generic opcode.
func (inv *Invalidation) OnTypeModified(t Type) {
	dir := inv.Registry.Find(t)
	if dir == nil {
		return
	}
	inv.Registry.Invalidate(dir)
	if inv.Stats != nil {
		inv.Stats.recordInvalidate()
	}
}

// OnModuleVersionBumped is event 2: a module's dict was rewritten
// wholesale (rather than via a single name's assignment, which the
// version-counter comparison in LoadGlobal already catches lazily without
// needing this call at all). Exposed for hosts whose
// module-dict replacement doesn't bump the counter incrementally.
func (inv *Invalidation) OnModuleVersionBumped(mod Module) {
	// Lazy by design: entries carry the version they were built against
	// and compare it on next access, so there is nothing to do eagerly
	// here. This method exists so hosts have an explicit hook to call if
	// they choose to log the event.
	if inv.Stats != nil {
		inv.Stats.recordSlightMiss(opLoadGlobal)
	}
}

// OnInstanceDictKeysReplaced is event 3: a single instance's dict
// materialized out of its shared split-keys template (vm/instance_dict.go
// Set's "else materialize" path) or was otherwise given a brand new keys
// object. Per-instance entries don't need poisoning — the next access's
// KeysIdentity comparison already catches this — but sibling instances
// still sharing the old template must not be affected, which is exactly
// why split-dict entries key off KeysIdentity rather than the type alone.
// This method exists for symmetry and statistics only.
func (inv *Invalidation) OnInstanceDictKeysReplaced(t Type) {
	if inv.Stats != nil {
		inv.Stats.recordSlightMiss(opLoadAttr)
	}
}

// ClearArena is event 4: the owning code object is being finalized. Every
// dependency this arena recorded in the registry is dropped, and the
// arena's own tables are released.
func (inv *Invalidation) ClearArena(arena *Arena, owners []Type) {
	for _, t := range owners {
		dir := inv.Registry.Find(t)
		if dir == nil {
			continue
		}
		kept := dir.bindings[:0]
		for _, b := range dir.bindings {
			if b.arena != arena {
				kept = append(kept, b)
			}
		}
		dir.bindings = kept
	}
	arena.Clear()
}
