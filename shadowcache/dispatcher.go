package shadowcache

// Classify resolves an (owner, attribute name) pair into the most specific
// InstanceAttrEntry variant it can support, and performs the one full,
// uncached lookup needed to do so. Handlers call Classify only on a cache
// miss; every subsequent access at the same site re-checks the resulting
// entry's guard fields directly (handlers.go), never re-entering this file.
//
// Tie-break order when more than one shape applies: Slot > SplitDict >
// Dict > Descr > Method — a slot always wins because it needs no dict or
// descriptor lookup at all; a split dict is preferred over a combined one
// because its negative-hit case is cacheable; a plain dict entry is
// preferred over one carrying a descriptor because it skips the
// descriptor-get call; Method is the least specific, used only when the
// call site explicitly asked for one (forMethod) and the resolved
// descriptor is itself a method.
//
// Grounded on the monomorphic-then-polymorphic promotion shape already used
// for send-site specialization: first miss populates a single slot, a
// second distinct receiver type promotes to an array.

// ClassifyResult is what a miss-path lookup produces: the entry to install
// (or extend a polymorphic array with) plus the value the access itself
// resolved to, so handlers never need to look the attribute up twice.
type ClassifyResult struct {
	Entry *InstanceAttrEntry
	Value TaggedValue

	// MethodFallthrough is true when the call site asked to specialize a
	// LOAD_METHOD but the name resolved to a plain value rather than a
	// type-level method descriptor; the site must fall back to a plain
	// attribute load of the result instead of the unbound-method calling
	// convention.
	MethodFallthrough bool
}

// Classify performs the full uncached resolution of name on owner and
// builds the cache entry that best fits what it found. forMethod
// distinguishes a LOAD_METHOD site from a LOAD_ATTR/STORE_ATTR site: only
// a LOAD_METHOD site may produce a *Method-kind entry.
func Classify(owner Object, name string, forMethod bool) (*ClassifyResult, error) {
	if result := classifyTypeOwner(owner, name); result != nil {
		return result, nil
	}

	t := owner.TypeOf()
	rd := t.LookupDescriptor(name)

	dict, hasDict := lookupDict(owner)

	if hasDict {
		if _, found := dict.Get(name); found {
			// An instance dict entry shadows everything except a data
			// descriptor, which always wins.
			if rd.Kind != DescrDataDescriptor {
				return classifyDictHit(t, dict, name, rd)
			}
		} else if dict.IsSplit() && rd.Kind != DescrSlot && rd.Kind != DescrDataDescriptor {
			// name is absent from this split-keys shape. Still worth
			// caching: a poisoned keys identity plus the entry count it
			// was observed with lets a future access on an
			// unchanged-shape instance confirm "still absent" without
			// re-walking the dict (see poisonKeys/isPoisoned and
			// hitInstanceAttr's negative-hit branch).
			return classifyDictNegative(owner, t, dict, name, rd, forMethod)
		}
	}

	switch rd.Kind {
	case DescrSlot:
		v, err := t.DescriptorGet(rd.Value, owner)
		if err != nil {
			return nil, err
		}
		return &ClassifyResult{
			Entry: &InstanceAttrEntry{
				Kind: KindSlot, Name: name, Type: t, Offset: rd.Offset,
				DictOffset: dictOffsetComputed, SplitOffset: -1,
			},
			Value: v,
			// A slot is always a plain value, never a bound-method result.
			MethodFallthrough: true,
		}, nil

	case DescrMethod:
		v, err := t.DescriptorGet(rd.Value, owner)
		if err != nil {
			return nil, err
		}
		// A combined (non-split) dict missing this name is still a
		// Dict* shape, not NoDict*: classifyDictHit/classifyDictNegative
		// already siphon off the split and dict-hit cases above, so
		// reaching here with hasDict true means a combined dict that
		// simply doesn't have this key.
		var kind EntryKind
		switch {
		case hasDict && forMethod:
			kind = KindDictMethod
		case hasDict:
			kind = KindDictDescr
		case forMethod:
			kind = KindNoDictMethod
		default:
			kind = KindNoDictDescr
		}
		entry := &InstanceAttrEntry{
			Kind: kind, Name: name, Type: t, Descr: rd.Value,
			DictOffset: dictOffsetComputed, SplitOffset: -1,
		}
		if hasDict {
			entry.Keys = dict.KeysIdentity()
			entry.NEntries = dict.NEntries()
		}
		return &ClassifyResult{Entry: entry, Value: v}, nil

	case DescrDataDescriptor, DescrNonDataDescriptor:
		v, err := t.DescriptorGet(rd.Value, owner)
		if err != nil {
			return nil, err
		}
		return &ClassifyResult{
			Entry: &InstanceAttrEntry{
				Kind: KindNoDictDescr, Name: name, Type: t, Descr: rd.Value,
				DictOffset: dictOffsetComputed, SplitOffset: -1,
			},
			Value: v,
			// Neither descriptor kind is callable as an unbound method,
			// so a LOAD_METHOD site must fall through to a plain load of
			// the resolved value just like it does for DescrSlot above.
			MethodFallthrough: true,
		}, nil
	}

	return nil, &AttributeError{Name: name, Type: t}
}

// classifyTypeOwner is step 1 of resolution order: owner may itself be a
// type, in which case name can resolve directly on it (a class variable,
// say) rather than through any instance-side slot, dict, or descriptor
// lookup at all. Returns nil when owner isn't a type, or is a type but
// doesn't carry a ClassAttrs namespace, or name simply isn't bound there —
// any of which means the caller should fall through to the ordinary
// instance-style resolution below.
func classifyTypeOwner(owner Object, name string) *ClassifyResult {
	t, ok := owner.(Type)
	if !ok {
		return nil
	}
	ca, ok := t.(ClassAttrs)
	if !ok {
		return nil
	}
	v, found := ca.ClassAttr(name)
	if !found {
		return nil
	}
	return &ClassifyResult{
		Entry: &InstanceAttrEntry{
			Kind: KindTypeAttr, Name: name, Type: t,
			DictOffset: dictOffsetComputed, SplitOffset: -1,
		},
		Value: v,
		// A class variable is always a plain value, never a bound-method
		// result.
		MethodFallthrough: true,
	}
}

// classifyDictHit builds the entry for a name that resolved through the
// instance's own dict (possibly shadowing a non-data descriptor).
func classifyDictHit(t Type, dict Dict, name string, rd ResolvedDescriptor) (*ClassifyResult, error) {
	v, _ := dict.Get(name)

	entry := &InstanceAttrEntry{
		Name: name, Type: t, DictOffset: dictOffsetComputed,
		Keys: dict.KeysIdentity(), NEntries: dict.NEntries(),
		SplitOffset: -1,
	}

	switch {
	case dict.IsSplit():
		entry.SplitOffset = dict.SplitOffset(name)
		if rd.Kind == DescrNone {
			entry.Kind = KindSplitDict
		} else {
			entry.Kind = KindSplitDictDescr
			entry.Descr = rd.Value
		}
	default:
		if rd.Kind == DescrNone {
			entry.Kind = KindDictNoDescr
		} else {
			entry.Kind = KindDictDescr
			entry.Descr = rd.Value
		}
	}

	return &ClassifyResult{Entry: entry, Value: v, MethodFallthrough: true}, nil
}

// classifyDictNegative builds a negative-hit entry: name is confirmed
// absent from the instance's current split shape. If rd resolved a
// non-data descriptor or method on the type, that still supplies the
// value (SplitDictDescr, or SplitDictMethod when the call site is itself
// a LOAD_METHOD resolving a real method); otherwise the access is a
// genuine AttributeError, cached so the next access on an unchanged shape
// doesn't repeat the dict walk.
func classifyDictNegative(owner Object, t Type, dict Dict, name string, rd ResolvedDescriptor, forMethod bool) (*ClassifyResult, error) {
	entry := &InstanceAttrEntry{
		Name: name, Type: t, DictOffset: dictOffsetComputed, SplitOffset: -1,
		Keys: poisonKeys(dict.KeysIdentity()), NEntries: dict.NEntries(),
	}

	if rd.Kind == DescrNone {
		entry.Kind = KindSplitDict
		return &ClassifyResult{Entry: entry}, &AttributeError{Name: name, Type: t}
	}

	v, err := t.DescriptorGet(rd.Value, owner)
	if err != nil {
		return nil, err
	}
	entry.Descr = rd.Value
	if rd.Kind == DescrMethod && forMethod {
		entry.Kind = KindSplitDictMethod
		return &ClassifyResult{Entry: entry, Value: v}, nil
	}
	entry.Kind = KindSplitDictDescr
	return &ClassifyResult{Entry: entry, Value: v, MethodFallthrough: true}, nil
}

func lookupDict(owner Object) (Dict, bool) {
	dh, ok := owner.(DictHolder)
	if !ok {
		return nil, false
	}
	return dh.InstanceDict()
}

// Promote folds a fresh entry for a site that already holds a live,
// differently-typed InstanceAttrEntry into a PolymorphicEntry, creating
// the array on first promotion: a second distinct receiver type always
// promotes a monomorphic site to polymorphic.
func Promote(existing *InstanceAttrEntry, fresh *InstanceAttrEntry) *PolymorphicEntry {
	p := &PolymorphicEntry{}
	p.Insert(existing)
	p.Insert(fresh)
	return p
}
