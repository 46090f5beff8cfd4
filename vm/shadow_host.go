package vm

import (
	"unsafe"

	"github.com/maggievm/shadowcache/shadowcache"
)

// shadow_host.go wires Maggie's object model onto the shadowcache host
// interfaces (Object, Type, Dict, Module, Bytecode). The cache package
// never imports vm; everything below is the translation layer described
// in shadowcache/interfaces.go.

// ---------------------------------------------------------------------------
// Value <-> TaggedValue
// ---------------------------------------------------------------------------
//
// Maggie's Value is NaN-boxed; shadowcache.TaggedValue uses a low-tag-bits
// encoding instead. They are different bit layouts over the same
// 62-bit-of-information budget, so crossing the boundary always goes
// through an explicit conversion rather than a bit-cast. Non-object,
// non-smallint values (floats, symbols, nil/true/false, blocks, cells)
// are boxed into a tiny heap cell so they still fit TaggedValue's
// object-or-int union; boxedScalar.v is unboxed again on the way back.

// boxMarker is a sentinel only a boxedScalar's first word ever holds.
// Maggie's Object starts with a *VTable, so the two pointer kinds land in
// the same TaggedValue object-tag bucket; the marker is what lets
// unboxScalar tell a box from a real heap Object sitting at the same kind
// of address without a second bit of tagging in TaggedValue itself.
const boxMarker = uint64(0x6d61676769655f62) // "maggie_b"

type boxedScalar struct {
	marker uint64
	v      Value
}

func toTagged(v Value) shadowcache.TaggedValue {
	if v.IsSmallInt() {
		if tv, ok := shadowcache.FromInt(v.SmallInt()); ok {
			return tv
		}
		// Out of the tagged-int range maggie itself never produces
		// (SmallInt is 48-bit, the tagged range is 60-bit), but box
		// rather than silently truncate.
	}
	if v.IsObject() {
		return shadowcache.FromObject(v.ObjectPtr())
	}
	if v.IsNil() {
		return shadowcache.Null
	}
	return shadowcache.FromObject(unsafe.Pointer(&boxedScalar{marker: boxMarker, v: v}))
}

func fromTagged(tv shadowcache.TaggedValue) Value {
	if tv.IsNull() {
		return Nil
	}
	if tv.IsInt() {
		return FromSmallInt(tv.AsInt())
	}
	p := tv.AsObject()
	if box, ok := unboxScalar(p); ok {
		return box.v
	}
	return FromObjectPtr(p)
}

// unboxScalar recovers a boxedScalar stored at p, distinguishing it from a
// real Maggie Object pointer by checking the marker word each box starts
// with. A genuine *Object's first word is a *VTable, whose bit pattern
// matching boxMarker exactly is not a case this VM will ever hit.
func unboxScalar(p unsafe.Pointer) (*boxedScalar, bool) {
	if p == nil {
		return nil, false
	}
	box := (*boxedScalar)(p)
	if box.marker != boxMarker {
		return nil, false
	}
	return box, true
}

// ---------------------------------------------------------------------------
// Object
// ---------------------------------------------------------------------------

type hostObject struct {
	obj    *Object
	interp *Interpreter
}

func wrapObject(i *Interpreter, obj *Object) hostObject {
	return hostObject{obj: obj, interp: i}
}

func classOf(obj *Object) *Class {
	vt := obj.VTablePtr()
	if vt == nil {
		return nil
	}
	return vt.Class()
}

func (h hostObject) TypeOf() shadowcache.Type {
	return wrapClass(h.interp, classOf(h.obj))
}

func (h hostObject) SamePointer(other shadowcache.Object) bool {
	o, ok := other.(hostObject)
	return ok && o.obj == h.obj
}

func (h hostObject) InstanceDict() (shadowcache.Dict, bool) {
	class := classOf(h.obj)
	if class == nil || !class.HasDict() {
		return nil, false
	}
	return hostDict{dict: h.obj.EnsureDict(class)}, true
}

func (h hostObject) Slot(offset int) shadowcache.TaggedValue {
	return toTagged(h.obj.GetSlot(offset))
}

func (h hostObject) SetSlot(offset int, v shadowcache.TaggedValue) error {
	h.obj.SetSlot(offset, fromTagged(v))
	return nil
}

// ---------------------------------------------------------------------------
// Type
// ---------------------------------------------------------------------------

type hostType struct {
	class  *Class
	interp *Interpreter
}

// wrapClass builds the hostType for c, installing an invalidate hook on c
// the first time it's wrapped (a class that already has one — checked
// directly since this file is itself part of package vm — has either
// already been wired or the cache was never enabled when it was first
// seen, in which case there is nothing to forward to anyway). The hook
// closes over i rather than a shared global, so a class always reports its
// own interpreter's cache regardless of what other interpreters are doing
// (see vm/multi_vm_test.go).
func wrapClass(i *Interpreter, c *Class) hostType {
	if c != nil && c.invalidateHook == nil && i != nil && i.ShadowCache != nil {
		c.SetInvalidateHook(func() {
			i.ShadowCache.OnTypeModified(hostType{class: c, interp: i})
		})
	}
	return hostType{class: c, interp: i}
}

func (h hostType) TypeOf() shadowcache.Type {
	// Maggie has no distinct metaclass object per class (ClassVTable
	// shares the same *Class); a class's type is itself.
	return h
}

func (h hostType) SamePointer(other shadowcache.Object) bool {
	o, ok := other.(hostType)
	return ok && o.class == h.class
}

func (h hostType) LookupDescriptor(name string) shadowcache.ResolvedDescriptor {
	selectors := h.selectors()
	if classHasSelector(h.class, selectors, name) || classHasSelector(h.class, selectors, name+":") {
		if d, owner := h.class.FindDescriptor(name); d != nil {
			return shadowcache.ResolvedDescriptor{
				Kind:  hostDescriptorKind(d.Kind),
				Value: hostDescriptor{descr: d, owner: owner, interp: h.interp},
			}
		}
		// A real method exists but was never registered as a descriptor;
		// mark it Method so the caller always falls back to a full send
		// rather than caching a value this lookup can't itself produce.
		return shadowcache.ResolvedDescriptor{
			Kind:  shadowcache.DescrMethod,
			Value: hostDescriptor{descr: NewMethodDescriptor(Nil), owner: h.class, interp: h.interp},
		}
	}
	if idx := h.class.InstVarIndex(name); idx >= 0 {
		return shadowcache.ResolvedDescriptor{Kind: shadowcache.DescrSlot, Offset: idx}
	}
	return shadowcache.ResolvedDescriptor{Kind: shadowcache.DescrNone}
}

// selectors returns the owning interpreter's own selector table, or nil
// when h carries no interpreter (e.g. the global namespace's placeholder
// type, which never has a class to look a selector up against anyway).
func (h hostType) selectors() *SelectorTable {
	if h.interp == nil {
		return nil
	}
	return h.interp.Selectors
}

// classHasSelector reports whether class or any ancestor binds selector (as
// either an instance- or class-side method), looked up against selectors —
// always the caller's own interpreter's table, never a table shared across
// interpreters.
func classHasSelector(class *Class, selectors *SelectorTable, selector string) bool {
	if class == nil || selectors == nil {
		return false
	}
	id := selectors.Lookup(selector)
	if id < 0 {
		return false
	}
	for c := class; c != nil; c = c.Superclass {
		if c.VTable != nil && c.VTable.HasMethod(id) {
			return true
		}
		if c.ClassVTable != nil && c.ClassVTable.HasMethod(id) {
			return true
		}
	}
	return false
}

func (h hostType) DescriptorGet(descr shadowcache.Object, instance shadowcache.Object) (shadowcache.TaggedValue, error) {
	hd, ok := descr.(hostDescriptor)
	if !ok {
		return shadowcache.Null, &shadowcache.AttributeError{Type: h}
	}

	var instVal Value = Nil
	var ownerObj *Object
	if instance != nil {
		if ho, ok := instance.(hostObject); ok {
			ownerObj = ho.obj
			instVal = ho.obj.ToValue()
		}
	}

	switch hd.descr.Kind {
	case DescrSlot:
		if ownerObj == nil {
			return shadowcache.Null, &shadowcache.AttributeError{Name: "", Type: h}
		}
		return toTagged(ownerObj.GetSlot(hd.descr.Offset)), nil
	case DescrMethod:
		return toTagged(hd.descr.Value), nil
	default:
		if hd.descr.Get == nil {
			return shadowcache.Null, &shadowcache.AttributeError{Type: h}
		}
		return toTagged(hd.descr.Get(instVal, hd.owner)), nil
	}
}

func (h hostType) DescriptorSet(descr shadowcache.Object, instance shadowcache.Object, value shadowcache.TaggedValue) error {
	hd, ok := descr.(hostDescriptor)
	if !ok {
		return &shadowcache.AttributeError{Type: h}
	}

	ho, ok := instance.(hostObject)
	if !ok {
		return &shadowcache.AttributeError{Type: h}
	}

	if hd.descr.Kind == DescrSlot {
		ho.obj.SetSlot(hd.descr.Offset, fromTagged(value))
		return nil
	}
	if hd.descr.Set == nil {
		return &shadowcache.AttributeError{Type: h}
	}
	return hd.descr.Set(ho.obj.ToValue(), fromTagged(value))
}

func (h hostType) SupportsWeakRefs() bool {
	// Maggie's WeakReference/WeakRegistry targets instances, not classes;
	// a class's cache directory lives for the process lifetime instead of
	// being torn down by GC. True per-class weak tracking would need a
	// class finalization pass this VM doesn't have yet.
	return false
}

func (h hostType) InvalidateCount() int64 {
	return h.class.InvalidateCount()
}

// ClassAttr/SetClassAttr let the cache resolve a name directly on a class
// itself (e.g. `Counter total`) when the class is the load_attr/store_attr
// owner — Maggie's class variables, not reachable through LookupDescriptor
// since those only resolve instance-side slots, descriptors, and methods.
func (h hostType) ClassAttr(name string) (shadowcache.TaggedValue, bool) {
	if h.class == nil || !h.class.HasClassVar(name) {
		return shadowcache.Null, false
	}
	return toTagged(h.class.GetClassVar(name)), true
}

func (h hostType) SetClassAttr(name string, value shadowcache.TaggedValue) error {
	if h.class == nil {
		return &shadowcache.AttributeError{Name: name, Type: h}
	}
	h.class.SetClassVar(name, fromTagged(value))
	return nil
}

// ---------------------------------------------------------------------------
// Descriptor
// ---------------------------------------------------------------------------

type hostDescriptor struct {
	descr  *Descriptor
	owner  *Class
	interp *Interpreter
}

func (d hostDescriptor) TypeOf() shadowcache.Type {
	return wrapClass(d.interp, d.owner)
}

func (d hostDescriptor) SamePointer(other shadowcache.Object) bool {
	o, ok := other.(hostDescriptor)
	return ok && o.descr == d.descr
}

func hostDescriptorKind(k DescriptorKind) shadowcache.DescriptorKind {
	switch k {
	case DescrSlot:
		return shadowcache.DescrSlot
	case DescrData:
		return shadowcache.DescrDataDescriptor
	case DescrNonData:
		return shadowcache.DescrNonDataDescriptor
	case DescrMethod:
		return shadowcache.DescrMethod
	default:
		return shadowcache.DescrNone
	}
}

// ---------------------------------------------------------------------------
// Dict
// ---------------------------------------------------------------------------

type hostDict struct {
	dict *InstanceDict
}

func (d hostDict) Get(name string) (shadowcache.TaggedValue, bool) {
	v, ok := d.dict.Get(name)
	if !ok {
		return shadowcache.Null, false
	}
	return toTagged(v), true
}

func (d hostDict) Set(name string, value shadowcache.TaggedValue) error {
	d.dict.Set(nil, name, fromTagged(value))
	return nil
}

func (d hostDict) IsSplit() bool {
	return d.dict.IsSplit()
}

func (d hostDict) KeysIdentity() uintptr {
	return uintptr(unsafe.Pointer(d.dict.Keys()))
}

func (d hostDict) NEntries() int {
	if k := d.dict.Keys(); k != nil {
		return k.NEntries()
	}
	return 0
}

func (d hostDict) SplitOffset(name string) int {
	return d.dict.SplitOffset(name)
}

func (d hostDict) ValueAtOffset(offset int) shadowcache.TaggedValue {
	return toTagged(d.dict.ValueAt(offset))
}

// ---------------------------------------------------------------------------
// Module (Maggie's global namespace, used for LOAD_GLOBAL)
// ---------------------------------------------------------------------------

type hostGlobals struct {
	interp *Interpreter
}

func (g hostGlobals) TypeOf() shadowcache.Type {
	// The global namespace has no class of its own; its type carries no
	// selectors to look up against, so building it fresh per-interpreter
	// costs nothing and keeps it off any process-wide var.
	return hostType{class: nil, interp: g.interp}
}

func (g hostGlobals) SamePointer(other shadowcache.Object) bool {
	o, ok := other.(hostGlobals)
	return ok && o.interp == g.interp
}

func (g hostGlobals) Dict() shadowcache.Dict {
	return hostGlobalsDict{interp: g.interp}
}

func (g hostGlobals) Version() uint64 {
	return g.interp.globalsVersion
}

type hostGlobalsDict struct {
	interp *Interpreter
}

func (d hostGlobalsDict) Get(name string) (shadowcache.TaggedValue, bool) {
	v, ok := d.interp.Globals[name]
	if !ok {
		return shadowcache.Null, false
	}
	return toTagged(v), true
}

func (d hostGlobalsDict) Set(name string, value shadowcache.TaggedValue) error {
	d.interp.Globals[name] = fromTagged(value)
	d.interp.globalsVersion++
	return nil
}

func (d hostGlobalsDict) IsSplit() bool { return false }

func (d hostGlobalsDict) KeysIdentity() uintptr { return 0 }

func (d hostGlobalsDict) NEntries() int { return len(d.interp.Globals) }

func (d hostGlobalsDict) SplitOffset(name string) int { return -1 }

func (d hostGlobalsDict) ValueAtOffset(offset int) shadowcache.TaggedValue {
	panic("shadow_host: global namespace is never split")
}

// ---------------------------------------------------------------------------
// Bytecode
// ---------------------------------------------------------------------------

// hostBytecode adapts a CompiledMethod's or BlockMethod's raw byte slice.
// Maggie's instruction stream is variable-length (1-byte opcode plus 0-8
// operand bytes), unlike shadowcache.Bytecode's 2-byte-unit model; the
// cache's operand byte is always this VM's first operand byte, which is
// enough room for a 256-entry-per-arena cache slot index (see
// shadow_opcodes.go for the opcodes that use it).
type hostBytecode struct {
	code *[]byte
}

func (b hostBytecode) Len() int {
	return len(*b.code)
}

func (b hostBytecode) At(ip int) (byte, byte) {
	bc := *b.code
	op := bc[ip]
	if ip+1 < len(bc) {
		return op, bc[ip+1]
	}
	return op, 0
}

func (b hostBytecode) Patch(ip int, opcode byte, arg byte) {
	bc := *b.code
	bc[ip] = opcode
	if ip+1 < len(bc) {
		bc[ip+1] = arg
	}
}
