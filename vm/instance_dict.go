package vm

import "sync"

// ---------------------------------------------------------------------------
// InstanceDict: dynamic, optionally key-shared instance dictionaries
// ---------------------------------------------------------------------------
//
// Maggie's Object is normally fixed-slot (see object.go): every
// instance variable lives at a statically known offset. Classes created via
// NewClassWithDict additionally give their instances a dynamic dictionary,
// stored in the slot at Class.DictOffset, for attributes that aren't known
// at class-definition time.
//
// DictKeys models CPython's split-dict keys table: an ordered, shared
// name -> index mapping that several instances of the same class may point
// at simultaneously, paired with a private values array per instance. This
// lets the shadow cache's SplitDict variants compare "same keys object" by
// pointer rather than walking the dict.

// DictKeys is a shared name -> slot-index table used by the split-dict
// optimization. Every instance that shares a *DictKeys has its own values
// array but the same name ordering, so a cached split-dict offset is valid
// for any instance that shares the keys pointer.
type DictKeys struct {
	id    uint32
	names []string
	index map[string]int
}

// NewDictKeys creates an empty, freshly allocated keys table.
func NewDictKeys(registry *ObjectRegistry) *DictKeys {
	var id uint32
	if registry != nil {
		id = registry.NextWeakRefID()
	}
	return &DictKeys{id: id, index: make(map[string]int)}
}

// NEntries returns the number of names currently tracked, CPython's
// dk_nentries. Used by the shadow cache's negative-hit check.
func (k *DictKeys) NEntries() int {
	return len(k.names)
}

// IndexOf returns the split offset of name, or -1 if not present.
func (k *DictKeys) IndexOf(name string) int {
	if idx, ok := k.index[name]; ok {
		return idx
	}
	return -1
}

// fork returns a new, independent DictKeys carrying the same names as k.
// Used when an instance diverges from a shared template it can no longer
// extend in place.
func (k *DictKeys) fork(registry *ObjectRegistry) *DictKeys {
	nk := NewDictKeys(registry)
	nk.names = append(nk.names, k.names...)
	for n, i := range k.index {
		nk.index[n] = i
	}
	return nk
}

// append grows the keys table in place, returning the new entry's index.
// Only safe to call on a keys table this instance is allowed to extend
// (see InstanceDict.Set).
func (k *DictKeys) append(name string) int {
	idx := len(k.names)
	k.names = append(k.names, name)
	k.index[name] = idx
	return idx
}

// InstanceDict is the dynamic dictionary attached to an instance whose
// class carries a DictOffset. It starts out split (sharing a *DictKeys
// template with sibling instances) and materializes into a private combined
// map the first time it diverges from that template or a key is deleted.
type InstanceDict struct {
	keys     *DictKeys // nil once materialized into combined
	values   []Value   // parallel to keys.names while split
	combined map[string]Value

	// version is bumped on every structural change (set of a new key,
	// delete, or combined materialization). Mirrors CPython's
	// ma_version_tag and is what GlobalCacheEntry compares against to
	// detect "slight miss" staleness.
	version uint64
}

// NewInstanceDict creates an instance dict that starts out sharing sharedKeys
// (which may be nil, meaning "start combined").
func NewInstanceDict(sharedKeys *DictKeys) *InstanceDict {
	if sharedKeys == nil {
		return &InstanceDict{combined: make(map[string]Value)}
	}
	return &InstanceDict{keys: sharedKeys, values: make([]Value, sharedKeys.NEntries())}
}

// IsSplit reports whether this dict still shares a DictKeys template.
func (d *InstanceDict) IsSplit() bool {
	return d.keys != nil
}

// Keys returns the shared keys table, or nil if this dict has materialized
// into a combined map.
func (d *InstanceDict) Keys() *DictKeys {
	return d.keys
}

// Version returns the dict's mutation version counter.
func (d *InstanceDict) Version() uint64 {
	return d.version
}

// SplitOffset returns the split-array index for name if this dict is split
// and name is present in its keys table, or -1 otherwise. Does not allocate
// and does not mutate; safe to call from a cache fast path guard.
func (d *InstanceDict) SplitOffset(name string) int {
	if d.keys == nil {
		return -1
	}
	return d.keys.IndexOf(name)
}

// ValueAt returns the value at a previously-resolved split offset.
func (d *InstanceDict) ValueAt(offset int) Value {
	return d.values[offset]
}

// Get resolves name, returning (value, true) on presence.
func (d *InstanceDict) Get(name string) (Value, bool) {
	if d.keys != nil {
		idx := d.keys.IndexOf(name)
		if idx < 0 {
			return Nil, false
		}
		return d.values[idx], true
	}
	v, ok := d.combined[name]
	return v, ok
}

// Set stores name -> value. If the dict is still split and name already
// exists in the shared keys, the value is written in place (cheap, no
// reshaping). If name is new and this dict has not fallen behind the shared
// template (its own value count equals the template's name count), the
// shared keys table is grown in place and every sibling dict sharing it
// observes the new slot too. Otherwise the dict materializes into a private
// combined map, detaching from the shared template permanently.
func (d *InstanceDict) Set(registry *ObjectRegistry, name string, value Value) {
	if d.keys != nil {
		if idx := d.keys.IndexOf(name); idx >= 0 {
			d.values[idx] = value
			d.version++
			return
		}
		if len(d.values) == d.keys.NEntries() {
			idx := d.keys.append(name)
			d.values = append(d.values, value)
			_ = idx
			d.version++
			return
		}
		d.materialize()
	}
	if d.combined == nil {
		d.combined = make(map[string]Value)
	}
	d.combined[name] = value
	d.version++
	_ = registry
}

// Delete removes name, materializing the dict if it was still split.
func (d *InstanceDict) Delete(name string) bool {
	if d.keys != nil {
		d.materialize()
	}
	if _, ok := d.combined[name]; !ok {
		return false
	}
	delete(d.combined, name)
	d.version++
	return true
}

// materialize copies a split dict's current contents into a private
// combined map and detaches it from the shared keys template. Once called,
// IsSplit() is false forever for this instance.
func (d *InstanceDict) materialize() {
	if d.keys == nil {
		return
	}
	m := make(map[string]Value, len(d.keys.names))
	for name, idx := range d.keys.index {
		if idx < len(d.values) {
			m[name] = d.values[idx]
		}
	}
	d.keys = nil
	d.values = nil
	d.combined = m
}

// ---------------------------------------------------------------------------
// Value encoding for InstanceDict
// ---------------------------------------------------------------------------
//
// Instance dicts are heap-allocated Go structs referenced from an Object's
// dict slot via a registry-indexed symbol Value, following the same
// marker-byte convention as weak references (see weak_reference.go,
// markers.go).

var (
	instanceDictsMu sync.RWMutex
	instanceDicts   = make(map[uint32]*InstanceDict)
	nextDictID      uint32
)

// FromInstanceDict wraps d in a Value suitable for storing in an Object's
// dict slot.
func FromInstanceDict(d *InstanceDict) Value {
	if d == nil {
		return Nil
	}
	instanceDictsMu.Lock()
	nextDictID++
	id := nextDictID
	instanceDicts[id] = d
	instanceDictsMu.Unlock()
	return FromSymbolID(instanceDictMarker | id)
}

// IsInstanceDict reports whether v wraps an InstanceDict.
func (v Value) IsInstanceDict() bool {
	if !v.IsSymbol() {
		return false
	}
	return v.SymbolID()&markerMask == instanceDictMarker
}

// AsInstanceDict unwraps v, returning nil if v does not wrap an
// InstanceDict.
func (v Value) AsInstanceDict() *InstanceDict {
	if !v.IsInstanceDict() {
		return nil
	}
	id := v.SymbolID() &^ markerMask
	instanceDictsMu.RLock()
	defer instanceDictsMu.RUnlock()
	return instanceDicts[id]
}

// ---------------------------------------------------------------------------
// Object integration
// ---------------------------------------------------------------------------

// Dict returns the object's instance dict, or nil if its class has no dict
// slot or the slot has not been lazily initialized yet.
func (obj *Object) Dict(class *Class) *InstanceDict {
	if class == nil || !class.HasDict() {
		return nil
	}
	return obj.GetSlot(class.DictOffset).AsInstanceDict()
}

// EnsureDict returns the object's instance dict, lazily creating one that
// shares class.SharedKeys if the slot is currently empty.
func (obj *Object) EnsureDict(class *Class) *InstanceDict {
	if class == nil || !class.HasDict() {
		return nil
	}
	if d := obj.GetSlot(class.DictOffset).AsInstanceDict(); d != nil {
		return d
	}
	d := NewInstanceDict(class.SharedKeys)
	obj.SetSlot(class.DictOffset, FromInstanceDict(d))
	return d
}
