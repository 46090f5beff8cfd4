package shadowcache

// Each exported entry point in this file is what a host's bytecode loop
// calls for one specialized instruction: it tries the guarded hit path
// first, touching only the entry already sitting in the arena, and only
// falls through to the dispatcher (Classify) — the slow path — on a guard
// failure.
//
// The split-dict negative-hit test in hitInstanceAttr (KindSplitDict/
// KindSplitDictDescr) trusts a poisoned keys pointer plus a matching entry
// count as proof the dict's shape hasn't changed even though this
// particular key is still absent from it.

// hitInstanceAttr attempts the cache-hit path for entry against owner.
// The bool return is whether the guard matched at all (a true hit, which
// may still carry a non-nil err for a cached negative result); false
// means "guard failed, fall through to the miss path" and the caller
// must ignore both other return values.
func hitInstanceAttr(entry *InstanceAttrEntry, owner Object) (TaggedValue, bool, error) {
	if !entry.Live() || !entry.Type.SamePointer(owner.TypeOf()) {
		return Null, false, nil
	}

	switch entry.Kind {
	case KindSlot:
		sh, ok := owner.(SlotHolder)
		if !ok {
			return Null, false, nil
		}
		return sh.Slot(entry.Offset), true, nil

	case KindDictNoDescr, KindDictDescr, KindDictMethod:
		dict, ok := lookupDict(owner)
		if !ok || dict.IsSplit() {
			return Null, false, nil
		}
		if v, found := dict.Get(entry.Name); found {
			return v, true, nil
		}
		if entry.Kind == KindDictDescr || entry.Kind == KindDictMethod {
			v, err := entry.Type.DescriptorGet(entry.Descr, owner)
			return v, true, err
		}
		return Null, false, nil

	case KindSplitDict, KindSplitDictDescr, KindSplitDictMethod:
		dict, ok := lookupDict(owner)
		if !ok || !dict.IsSplit() {
			return Null, false, nil
		}
		keys := dict.KeysIdentity()
		if keys != entry.Keys {
			return Null, false, nil
		}
		if entry.SplitOffset >= 0 {
			return dict.ValueAtOffset(entry.SplitOffset), true, nil
		}
		// Negative hit: this shape was observed to lack the key. It is
		// still valid, unchanged-shape evidence only while both the keys
		// identity and the entry count it was poisoned with still match
		// (see poisonKeys/isPoisoned in entries.go).
		if isPoisoned(keys) && dict.NEntries() == entry.NEntries {
			if entry.Kind == KindSplitDict {
				return Null, true, &AttributeError{Name: entry.Name, Type: entry.Type}
			}
			v, err := entry.Type.DescriptorGet(entry.Descr, owner)
			return v, true, err
		}
		return Null, false, nil

	case KindNoDictDescr, KindNoDictMethod:
		if _, hasDict := lookupDict(owner); hasDict {
			return Null, false, nil
		}
		v, err := entry.Type.DescriptorGet(entry.Descr, owner)
		return v, true, err

	case KindTypeAttr:
		ca, ok := entry.Type.(ClassAttrs)
		if !ok {
			return Null, false, nil
		}
		v, found := ca.ClassAttr(entry.Name)
		if !found {
			return Null, false, nil
		}
		return v, true, nil
	}

	return Null, false, nil
}

// installLoad resolves the miss path for a load-family access, updating
// reg/arena bookkeeping for the new entry. genericOpcode is the opcode the
// site reverts to if this entry is later invalidated. A non-nil result
// with a non-nil err is a cacheable negative hit (e.g. a confirmed-absent
// split-dict attribute): the entry is still installed before the error is
// propagated, so the next access on an unchanged shape hits instead of
// repeating the full lookup.
func installLoad(reg *Registry, arena *Arena, ip int, genericOpcode byte, owner Object, name string, forMethod bool) (*ClassifyResult, error) {
	result, err := Classify(owner, name, forMethod)
	if result == nil {
		return nil, err
	}
	dir := reg.GetOrCreate(owner.TypeOf())
	reg.RecordDependency(dir, arena, ip, genericOpcode, name, result.Entry)
	return result, err
}

// LoadAttr is the LOAD_ATTR fast path. slot indexes arena's l1_cache
// table. On first use slot must already hold an empty *InstanceAttrEntry
// (allocated by the dispatcher's specialization pass when the generic
// opcode was first rewritten); LoadAttr overwrites it in place on a miss.
// The bool return is whether the guarded hit path matched, for the
// caller's own stats bookkeeping — it is ground truth from hitInstanceAttr,
// never inferred from the entry's state before the call.
func LoadAttr(reg *Registry, arena *Arena, slot, ip int, genericOpcode byte, owner Object, name string) (TaggedValue, bool, error) {
	entry := arena.InstanceAttr(slot)
	if v, ok, err := hitInstanceAttr(entry, owner); ok {
		return v, true, err
	}
	result, err := installLoad(reg, arena, ip, genericOpcode, owner, name, false)
	if result == nil {
		return Null, false, err
	}
	*entry = *result.Entry
	return result.Value, false, err
}

// LoadAttrPolymorphic is LOAD_ATTR once a site has been promoted to
// polymorphic. polySlot indexes arena's polymorphic_caches table.
func LoadAttrPolymorphic(reg *Registry, arena *Arena, polySlot, ip int, genericOpcode byte, owner Object, name string) (TaggedValue, bool, error) {
	poly := arena.Polymorphic(polySlot)
	if entry := poly.Find(owner.TypeOf()); entry != nil {
		if v, ok, err := hitInstanceAttr(entry, owner); ok {
			return v, true, err
		}
	}
	result, err := installLoad(reg, arena, ip, genericOpcode, owner, name, false)
	if result == nil {
		return Null, false, err
	}
	poly.Insert(result.Entry)
	return result.Value, false, err
}

// LoadMethod is the LOAD_METHOD fast path. It behaves like LoadAttr but
// additionally reports MethodFallthrough so the call site can choose the
// plain-attribute calling convention instead of the unbound-method one
// when the name resolved through an instance dict. The second bool return
// is the same hit/miss ground truth LoadAttr reports.
func LoadMethod(reg *Registry, arena *Arena, slot, ip int, genericOpcode byte, owner Object, name string) (TaggedValue, bool, bool, error) {
	entry := arena.InstanceAttr(slot)
	if v, ok, err := hitInstanceAttr(entry, owner); ok {
		fallthroughAttr := entry.Kind == KindSlot || entry.Kind == KindDictNoDescr || entry.Kind == KindDictDescr ||
			entry.Kind == KindSplitDict || entry.Kind == KindSplitDictDescr || entry.Kind == KindNoDictDescr ||
			entry.Kind == KindTypeAttr
		return v, fallthroughAttr, true, err
	}
	result, err := installLoad(reg, arena, ip, genericOpcode, owner, name, true)
	if result == nil {
		return Null, false, false, err
	}
	*entry = *result.Entry
	return result.Value, result.MethodFallthrough, false, err
}

// StoreAttr is the STORE_ATTR fast path. The bool return is whether the
// guarded store-side hit path (setInstanceAttr) matched; every other
// return path below is a miss by construction, whether or not it ends up
// installing a fresh entry for next time.
func StoreAttr(reg *Registry, arena *Arena, slot, ip int, genericOpcode byte, owner Object, name string, value TaggedValue) (bool, error) {
	entry := arena.InstanceAttr(slot)
	if setInstanceAttr(entry, owner, value) {
		return true, nil
	}

	t := owner.TypeOf()

	if ownerType, ok := owner.(Type); ok {
		if ca, ok := ownerType.(ClassAttrs); ok {
			if _, found := ca.ClassAttr(name); found {
				if err := ca.SetClassAttr(name, value); err != nil {
					return false, err
				}
				dir := reg.GetOrCreate(t)
				fresh := &InstanceAttrEntry{Kind: KindTypeAttr, Name: name, Type: t, DictOffset: dictOffsetComputed, SplitOffset: -1}
				reg.RecordDependency(dir, arena, ip, genericOpcode, name, fresh)
				*entry = *fresh
				return false, nil
			}
		}
	}

	rd := t.LookupDescriptor(name)
	if rd.Kind == DescrDataDescriptor {
		if err := t.DescriptorSet(rd.Value, owner, value); err != nil {
			return false, err
		}
		dir := reg.GetOrCreate(t)
		fresh := &InstanceAttrEntry{Kind: KindNoDictDescr, Name: name, Type: t, Descr: rd.Value, DictOffset: dictOffsetComputed, SplitOffset: -1}
		reg.RecordDependency(dir, arena, ip, genericOpcode, name, fresh)
		*entry = *fresh
		return false, nil
	}
	if rd.Kind == DescrMethod {
		// A real bound method owns this name; a dict write here would
		// silently shadow it instead of ever being called.
		return false, newUncacheable("store on name bound to a method: " + name)
	}
	if rd.Kind == DescrSlot {
		sh, ok := owner.(SlotHolder)
		if !ok {
			return false, newUncacheable("store on slot descriptor without a SlotHolder: " + name)
		}
		if err := sh.SetSlot(rd.Offset, value); err != nil {
			return false, err
		}
		dir := reg.GetOrCreate(t)
		fresh := &InstanceAttrEntry{Kind: KindSlot, Name: name, Type: t, Offset: rd.Offset, DictOffset: dictOffsetComputed, SplitOffset: -1}
		reg.RecordDependency(dir, arena, ip, genericOpcode, name, fresh)
		*entry = *fresh
		return false, nil
	}

	dict, hasDict := lookupDict(owner)
	if !hasDict {
		return false, newUncacheable("store on instance with no dict and no data descriptor for " + name)
	}
	if err := dict.Set(name, value); err != nil {
		return false, err
	}

	fresh := &InstanceAttrEntry{Name: name, Type: t, DictOffset: dictOffsetComputed, SplitOffset: -1}
	switch {
	case dict.IsSplit():
		fresh.Kind = KindSplitDict
		fresh.Keys = dict.KeysIdentity()
		fresh.NEntries = dict.NEntries()
		fresh.SplitOffset = dict.SplitOffset(name)
	default:
		fresh.Kind = KindDictNoDescr
		fresh.Keys = dict.KeysIdentity()
		fresh.NEntries = dict.NEntries()
	}

	dir := reg.GetOrCreate(t)
	reg.RecordDependency(dir, arena, ip, genericOpcode, name, fresh)
	*entry = *fresh
	return false, nil
}

// setInstanceAttr attempts the store-side hit path, mirroring
// hitInstanceAttr's guards. Returns false on any guard failure.
func setInstanceAttr(entry *InstanceAttrEntry, owner Object, value TaggedValue) bool {
	if !entry.Live() || !entry.Type.SamePointer(owner.TypeOf()) {
		return false
	}
	switch entry.Kind {
	case KindSlot:
		sh, ok := owner.(SlotHolder)
		if !ok {
			return false
		}
		return sh.SetSlot(entry.Offset, value) == nil
	case KindDictNoDescr:
		dict, ok := lookupDict(owner)
		if !ok || dict.IsSplit() {
			return false
		}
		return dict.Set(entry.Name, value) == nil
	case KindSplitDict:
		dict, ok := lookupDict(owner)
		if !ok || !dict.IsSplit() || dict.KeysIdentity() != entry.Keys || entry.SplitOffset < 0 {
			return false
		}
		return dict.Set(entry.Name, value) == nil
	case KindDictDescr, KindNoDictDescr:
		return entry.Type.DescriptorSet(entry.Descr, owner, value) == nil
	case KindTypeAttr:
		ca, ok := entry.Type.(ClassAttrs)
		if !ok {
			return false
		}
		return ca.SetClassAttr(entry.Name, value) == nil
	}
	return false
}

// LoadGlobal is the LOAD_GLOBAL fast path: a hit needs only a
// version-counter comparison against the owning module, no dict walk.
func LoadGlobal(arena *Arena, slot int, mod Module, name string, resolve func() (TaggedValue, error)) (TaggedValue, error) {
	entry := arena.Global(slot)
	if entry.Live() && entry.Version == mod.Version() {
		return entry.Value, nil
	}
	v, err := resolve()
	if err != nil {
		return Null, err
	}
	entry.Name = name
	entry.Version = mod.Version()
	entry.Value = v
	entry.valid = true
	return v, nil
}

// BinarySubscr is the BINARY_SUBSCR fast path for a fixed-layout
// container field access: the cache only records the field's storage
// offset and primitive type tag, reusing whatever scalar encoding
// TaggedValue already supports.
func BinarySubscr(arena *Arena, slot int, owner Object, index int, fallback func() (TaggedValue, error)) (TaggedValue, error) {
	entry := arena.FieldCache(slot)
	sh, ok := owner.(SlotHolder)
	if !ok || entry.Offset < 0 {
		return fallback()
	}
	return sh.Slot(entry.Offset + index), nil
}

// StoreSubscr is BinarySubscr's write-side counterpart, at:put:'s fast
// path. It shares the same field_caches[] entry as the matching
// BinarySubscr site: a container that supports indexed read always
// supports indexed write at the same offset.
func StoreSubscr(arena *Arena, slot int, owner Object, index int, value TaggedValue, fallback func() error) error {
	entry := arena.FieldCache(slot)
	sh, ok := owner.(SlotHolder)
	if !ok || entry.Offset < 0 {
		return fallback()
	}
	return sh.SetSlot(entry.Offset+index, value)
}
