package shadowcache

// ---------------------------------------------------------------------------
// Type cache registry
// ---------------------------------------------------------------------------
//
// Grounded on vm/weak_reference.go's WeakReference/WeakRegistry pattern:
// rather than threading the directory directly onto the owner's weak-ref
// list, the registry keeps the same *lifecycle* — lazily created on first
// specialization, torn down when the owner is finalized — using a plain
// map keyed by the owner, with Forget standing in for "the weak reference
// went to nil." A host is expected to call Forget from its own class
// finalization path once it exists; vm/shadow_host.go does not wire this
// up yet (see the shadow cache's design notes).

// siteBinding records one (arena, instruction pointer) site that depends
// on a directory entry, so Invalidate can both poison the entry and
// rewrite the site's bytecode back to a generic, cache-aware opcode.
type siteBinding struct {
	arena         *Arena
	ip            int
	genericOpcode byte
	name          string
	entry         *InstanceAttrEntry
}

// Directory is the per-type (or per-module) cache directory.
type Directory struct {
	owner Type

	// invalidateCount only ever moves forward.
	invalidateCount int64

	// metatype is the back-link used when owner is itself a subclass of
	// a type.
	metatype Type

	// bindings is type_insts: every site across every arena that
	// currently depends on this directory.
	bindings []siteBinding

	// l2Cache is l2_cache: a secondary name -> entry map usable to
	// short-circuit re-specialization of a *different* site for an
	// attribute this directory has already resolved once.
	l2Cache map[string]*InstanceAttrEntry
}

// InvalidateCount returns the directory's mutation counter.
func (d *Directory) InvalidateCount() int64 {
	return d.invalidateCount
}

// SetMetatype records owner's metatype back-link.
func (d *Directory) SetMetatype(mt Type) {
	d.metatype = mt
}

// Metatype returns the recorded back-link, if any.
func (d *Directory) Metatype() Type {
	return d.metatype
}

// L2Lookup consults the secondary cache for name, returning the
// already-resolved entry if present.
func (d *Directory) L2Lookup(name string) *InstanceAttrEntry {
	return d.l2Cache[name]
}

// Registry is the set of all live type/module cache directories, keyed by
// owner identity.
type Registry struct {
	dirs map[Type]*Directory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{dirs: make(map[Type]*Directory)}
}

// Find returns owner's directory without allocating one, or nil.
func (r *Registry) Find(owner Type) *Directory {
	return r.dirs[owner]
}

// GetOrCreate returns owner's directory, lazily creating it on first use.
func (r *Registry) GetOrCreate(owner Type) *Directory {
	if d, ok := r.dirs[owner]; ok {
		return d
	}
	d := &Directory{owner: owner, l2Cache: make(map[string]*InstanceAttrEntry)}
	r.dirs[owner] = d
	return d
}

// Forget drops owner's directory entirely. Intended to be called by the
// host's finalization hook when owner itself is about to be collected —
// the directory must never outlive its owner.
func (r *Registry) Forget(owner Type) {
	delete(r.dirs, owner)
}

// RecordDependency links entry into directory's dependency map so a
// future Invalidate can find and poison it. arena/ip/genericOpcode are
// what Invalidate uses to also revert the site's bytecode.
func (r *Registry) RecordDependency(dir *Directory, arena *Arena, ip int, genericOpcode byte, name string, entry *InstanceAttrEntry) {
	dir.bindings = append(dir.bindings, siteBinding{
		arena: arena, ip: ip, genericOpcode: genericOpcode, name: name, entry: entry,
	})
	dir.l2Cache[name] = entry
}

// Invalidate poisons every entry depending on dir, reverts each
// dependent site's bytecode to its generic opcode, and bumps
// invalidate_count by exactly one.
func (r *Registry) Invalidate(dir *Directory) {
	for _, b := range dir.bindings {
		b.entry.Invalidate()
		if b.arena != nil {
			b.arena.Patch(b.ip, b.genericOpcode, 0)
		}
	}
	dir.bindings = dir.bindings[:0]
	dir.l2Cache = make(map[string]*InstanceAttrEntry)
	dir.invalidateCount++
}
