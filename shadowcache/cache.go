package shadowcache

// Cache bundles everything one interpreter needs to run the shadow-code
// layer: the type directory registry, the invalidation protocol handler,
// and the statistics sink. A host typically owns exactly one Cache per
// running interpreter: bytecode execution is single-threaded per
// interpreter, so the Cache needs no internal locking beyond what Stats
// already does for cross-goroutine diagnostics reads.
type Cache struct {
	Registry *Registry
	Stats    *Stats
	Config   Config

	inv *Invalidation
}

// New creates a Cache ready to specialize code objects.
func New(cfg Config, stats *Stats) *Cache {
	reg := NewRegistry()
	if stats != nil {
		stats.warnThreshold = cfg.UncacheableWarnThreshold
	}
	return &Cache{
		Registry: reg,
		Stats:    stats,
		Config:   cfg,
		inv:      NewInvalidation(reg, stats),
	}
}

// InitShadow allocates a fresh Arena over code.
func (c *Cache) InitShadow(code Bytecode, owner interface{}) *Arena {
	return NewArena(code, owner)
}

// ClearShadow releases arena and drops its dependencies from every type
// in owners.
func (c *Cache) ClearShadow(arena *Arena, owners []Type) {
	c.inv.ClearArena(arena, owners)
}

// OnTypeModified notifies the cache that t's own attributes changed.
func (c *Cache) OnTypeModified(t Type) {
	c.inv.OnTypeModified(t)
}

// LoadAttr runs the LOAD_ATTR fast path at slot, recording stats.
func (c *Cache) LoadAttr(arena *Arena, slot, ip int, genericOpcode byte, owner Object, name string) (TaggedValue, error) {
	v, hit, err := LoadAttr(c.Registry, arena, slot, ip, genericOpcode, owner, name)
	c.recordOutcome(opLoadAttr, hit, err)
	return v, err
}

// LoadAttrPolymorphic runs the LOAD_ATTR fast path for a polymorphic
// site, recording stats.
func (c *Cache) LoadAttrPolymorphic(arena *Arena, polySlot, ip int, genericOpcode byte, owner Object, name string) (TaggedValue, error) {
	v, hit, err := LoadAttrPolymorphic(c.Registry, arena, polySlot, ip, genericOpcode, owner, name)
	c.recordOutcome(opLoadAttr, hit, err)
	return v, err
}

// LoadMethod runs the LOAD_METHOD fast path at slot, recording stats.
func (c *Cache) LoadMethod(arena *Arena, slot, ip int, genericOpcode byte, owner Object, name string) (TaggedValue, bool, error) {
	v, fallthroughAttr, hit, err := LoadMethod(c.Registry, arena, slot, ip, genericOpcode, owner, name)
	c.recordOutcome(opLoadMethod, hit, err)
	return v, fallthroughAttr, err
}

// StoreAttr runs the STORE_ATTR fast path at slot, recording stats.
func (c *Cache) StoreAttr(arena *Arena, slot, ip int, genericOpcode byte, owner Object, name string, value TaggedValue) error {
	hit, err := StoreAttr(c.Registry, arena, slot, ip, genericOpcode, owner, name, value)
	c.recordOutcome(opStoreAttr, hit, err)
	return err
}

// LoadGlobal runs the LOAD_GLOBAL fast path at slot, recording stats.
func (c *Cache) LoadGlobal(arena *Arena, slot int, mod Module, name string, resolve func() (TaggedValue, error)) (TaggedValue, error) {
	before := arena.Global(slot).Live()
	v, err := LoadGlobal(arena, slot, mod, name, resolve)
	c.recordOutcome(opLoadGlobal, before, err)
	return v, err
}

// BinarySubscr runs the BINARY_SUBSCR fast path at slot, recording stats.
func (c *Cache) BinarySubscr(arena *Arena, slot int, owner Object, index int, fallback func() (TaggedValue, error)) (TaggedValue, error) {
	v, err := BinarySubscr(arena, slot, owner, index, fallback)
	if err != nil {
		c.Stats.recordUncacheable(opBinarySubscr, err.Error())
	}
	return v, err
}

// StoreSubscr runs the at:put: fast path at slot, recording stats.
func (c *Cache) StoreSubscr(arena *Arena, slot int, owner Object, index int, value TaggedValue, fallback func() error) error {
	err := StoreSubscr(arena, slot, owner, index, value, fallback)
	if err != nil {
		c.Stats.recordUncacheable(opStoreSubscr, err.Error())
	}
	return err
}

// StatsSnapshot returns a point-in-time copy of this cache's counters.
func (c *Cache) StatsSnapshot() Snapshot {
	return c.Stats.Snapshot()
}

// recordOutcome consumes the hit/miss ground truth the handler itself
// computed (see LoadAttr/LoadAttrPolymorphic/LoadMethod/StoreAttr in
// handlers.go), never the entry's pre-call Live() state: a type-guard
// mismatch at a monomorphic site and a never-before-seen type at a
// polymorphic site must both record as misses even though an entry was
// already live for some other type.
func (c *Cache) recordOutcome(op Op, hit bool, err error) {
	if err != nil {
		if IsUncacheable(err) {
			c.Stats.recordUncacheable(op, err.Error())
		}
		return
	}
	if hit {
		c.Stats.recordHit(op)
	} else {
		c.Stats.recordMiss(op)
		c.Stats.recordEntry(op)
	}
}
