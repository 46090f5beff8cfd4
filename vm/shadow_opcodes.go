package vm

import (
	"github.com/tliron/commonlog"

	"github.com/maggievm/shadowcache/shadowcache"
)

// shadow_opcodes.go implements the LOAD_ATTR_*/STORE_ATTR_* family declared
// in bytecode.go. The compiler (compiler/codegen.go) emits the Generic form
// for every unary send and every plain one-argument setter send; everything
// else about specialization happens here and in shadow_host.go, the same
// way inline_cache.go specializes OpSend by receiver class without any
// compiler involvement at all.

// EnableShadowCache builds a Cache from cfg (or shadowcache.DefaultConfig()
// if cfg is nil) and attaches it to the interpreter. Until this is called,
// LOAD_ATTR_GENERIC/STORE_ATTR_GENERIC sites always fall back to a plain
// send.
func (i *Interpreter) EnableShadowCache(cfg *shadowcache.Config, log commonlog.Logger) *shadowcache.Cache {
	c := shadowcache.DefaultConfig()
	if cfg != nil {
		c = *cfg
	}
	if log == nil {
		log = commonlog.NewNullLogger()
	}
	i.ShadowCache = shadowcache.New(c, shadowcache.NewStats(log))
	return i.ShadowCache
}

// shadowArena returns frame's arena, lazily creating it from ShadowCache the
// first time a cache-eligible site in this frame's method or block runs.
// Returns nil when no ShadowCache is attached.
func (i *Interpreter) shadowArena(frame *CallFrame) *shadowcache.Arena {
	if i.ShadowCache == nil {
		return nil
	}
	slot := frame.shadowArenaSlot()
	if *slot == nil {
		var owner interface{} = frame.Method
		if frame.Block != nil {
			owner = frame.Block
		}
		*slot = i.ShadowCache.InitShadow(hostBytecode{code: frame.BytecodePtr()}, owner)
	}
	return *slot
}

// attrName strips a setter selector's trailing colon ("foo:" -> "foo");
// unary selectors (no colon) are returned unchanged.
func attrName(selector string) string {
	if n := len(selector); n > 0 && selector[n-1] == ':' {
		return selector[:n-1]
	}
	return selector
}

// isPlainAttrKind reports whether kind names an attribute resolution that
// LoadMethod would report as MethodFallthrough (see handlers.go) — the only
// kinds a polymorphic slot is allowed to hold, since LoadAttrPolymorphic
// itself has no method-aware calling convention to fall back to.
func isPlainAttrKind(kind shadowcache.EntryKind) bool {
	switch kind {
	case shadowcache.KindSlot, shadowcache.KindDictNoDescr, shadowcache.KindDictDescr,
		shadowcache.KindSplitDict, shadowcache.KindSplitDictDescr:
		return true
	default:
		return false
	}
}

// loadGlobal runs the LOAD_GLOBAL fast path for the literal at litIdx,
// falling back to a plain map lookup when no cache is attached. Unlike
// the attribute family, LOAD_GLOBAL has no payload byte to allocate a
// separate dense slot in, so the literal index doubles as the cache's own
// slot number (see Arena.EnsureGlobal).
func (i *Interpreter) loadGlobal(frame *CallFrame, litIdx int, name string) Value {
	arena := i.shadowArena(frame)
	if arena == nil {
		return i.rawGlobal(name)
	}
	arena.EnsureGlobal(litIdx)
	mod := hostGlobals{interp: i}
	tv, err := i.ShadowCache.LoadGlobal(arena, litIdx, mod, name, func() (shadowcache.TaggedValue, error) {
		v, _ := mod.Dict().Get(name)
		return v, nil
	})
	if err != nil {
		return i.rawGlobal(name)
	}
	return fromTagged(tv)
}

// rawGlobal is the uncached LOAD_GLOBAL semantics: absent names push nil
// rather than raising doesNotUnderstand:.
func (i *Interpreter) rawGlobal(name string) Value {
	if val, ok := i.Globals[name]; ok {
		return val
	}
	return Nil
}

// shadowOwnerFromValue resolves v into the shadowcache.Object an attribute
// access should use as its owner: the wrapped heap Object for an ordinary
// instance, or the wrapped class itself when v is a first-class class
// value (e.g. `Counter total`, a class-variable access with the class as
// receiver) — step 1 of Classify's resolution order needs an owner that is
// itself a Type to ever apply.
func shadowOwnerFromValue(i *Interpreter, v Value) (shadowcache.Object, bool) {
	if IsClassValue(v) {
		return wrapClass(i, GetClassFromValue(v)), true
	}
	if obj := ObjectFromValue(v); obj != nil {
		return wrapObject(i, obj), true
	}
	return nil, false
}

// execLoadAttr runs a LOAD_ATTR_GENERIC/CACHED/POLY site. The receiver is
// still on top of the stack on entry; exactly one value replaces it.
func (i *Interpreter) execLoadAttr(frame *CallFrame, op Opcode, ip int, sel int, payload byte) {
	recv := i.top()
	arena := i.shadowArena(frame)
	owner, ok := shadowOwnerFromValue(i, recv)
	if arena == nil || !ok {
		i.pop()
		i.push(i.send(sel, 0))
		return
	}

	name := attrName(i.Selectors.Name(sel))

	var (
		tv              shadowcache.TaggedValue
		fallthroughAttr bool
		err             error
	)
	switch op {
	case OpLoadAttrCached:
		slot := int(payload)
		existing := arena.InstanceAttr(slot)
		old := *existing
		wasLiveForOtherType := old.Live() && !old.Type.SamePointer(owner.TypeOf())

		tv, fallthroughAttr, err = i.ShadowCache.LoadMethod(arena, slot, ip, byte(OpLoadAttrGeneric), owner, name)

		if wasLiveForOtherType && err == nil && fallthroughAttr && isPlainAttrKind(old.Kind) {
			fresh := *existing
			polySlot := arena.AddPolymorphic(shadowcache.Promote(&old, &fresh))
			arena.Patch(ip, byte(OpLoadAttrPoly), byte(polySlot))
		}
	case OpLoadAttrPoly:
		// A polymorphic site only ever carries plain-attribute entries
		// (see the promotion guard above); a method-shaped resolution at
		// a polymorphic site falls back the same as a monomorphic one.
		v, lErr := i.ShadowCache.LoadAttrPolymorphic(arena, int(payload), ip, byte(OpLoadAttrGeneric), owner, name)
		tv, fallthroughAttr, err = v, true, lErr
	default: // OpLoadAttrGeneric: first execution at this site
		slot := arena.AddInstanceAttr(&shadowcache.InstanceAttrEntry{})
		arena.Patch(ip, byte(OpLoadAttrCached), byte(slot))
		tv, fallthroughAttr, err = i.ShadowCache.LoadMethod(arena, slot, ip, byte(OpLoadAttrGeneric), owner, name)
	}

	if err != nil || !fallthroughAttr {
		// Either a genuine failure (fall back to a real send so
		// doesNotUnderstand: behaves normally) or a method-shaped
		// resolution this opcode never invokes itself.
		i.pop()
		i.push(i.send(sel, 0))
		return
	}

	i.pop()
	i.push(fromTagged(tv))
}

// execStoreAttr runs a STORE_ATTR_GENERIC/CACHED site. Receiver and value
// are on the stack (value on top) on entry; by Maggie's setter convention
// the receiver itself is pushed back as the send's result on both the
// fast and fallback paths.
func (i *Interpreter) execStoreAttr(frame *CallFrame, op Opcode, ip int, sel int, payload byte) {
	value := i.top()
	recv := i.stack[i.sp-2]
	arena := i.shadowArena(frame)
	owner, ok := shadowOwnerFromValue(i, recv)
	if arena == nil || !ok {
		i.push(i.send(sel, 1))
		return
	}

	name := attrName(i.Selectors.Name(sel))
	tv := toTagged(value)

	var slot int
	switch op {
	case OpStoreAttrCached:
		slot = int(payload)
	default: // OpStoreAttrGeneric
		slot = arena.AddInstanceAttr(&shadowcache.InstanceAttrEntry{})
		arena.Patch(ip, byte(OpStoreAttrCached), byte(slot))
	}

	err := i.ShadowCache.StoreAttr(arena, slot, ip, byte(OpStoreAttrGeneric), owner, name, tv)
	if err != nil {
		i.push(i.send(sel, 1))
		return
	}
	i.popN(2)
	i.push(recv)
}

// execSubscr runs a SEND_AT/SEND_AT_CACHED site (at:). Receiver and index
// are on the stack (index on top) on entry; exactly one value replaces
// them. Bounds checking happens here rather than inside the cache, since
// Object.GetSlot panics on an out-of-range index instead of returning one
// of its own.
//
// Only a class marked Indexable (Array's own slot-based "at:") takes the
// fixed-offset fast path; any other receiver — Dictionary's hash-keyed
// "at:", a user class's own override, a non-Object value like a string —
// falls back to a real send, exactly as a plain OpSend would have
// dispatched it.
func (i *Interpreter) execSubscr(frame *CallFrame, op Opcode, ip int, payload byte) {
	idxVal := i.top()
	rcvr := i.stack[i.sp-2]
	arena := i.shadowArena(frame)
	obj := ObjectFromValue(rcvr)
	if obj == nil || classOf(obj) == nil || !classOf(obj).IsIndexable() {
		// i.send pops its own receiver and args; the stack is already in
		// exactly the shape it expects (receiver, then the argument).
		i.push(i.send(i.selectorAt, 1))
		return
	}
	if arena == nil || !idxVal.IsSmallInt() {
		i.popN(2)
		i.push(i.primitiveAt(rcvr, idxVal))
		return
	}
	index := int(idxVal.SmallInt())
	if index < 0 || index >= obj.NumSlots() {
		i.popN(2)
		i.push(Nil)
		return
	}
	owner := wrapObject(i, obj)

	var slot int
	switch op {
	case OpSendAtCached:
		slot = int(payload)
	default: // OpSendAt: first execution at this site
		slot = arena.AddFieldCache(shadowcache.FieldCacheEntry{Offset: 0})
		arena.Patch(ip, byte(OpSendAtCached), byte(slot))
	}

	tv, err := i.ShadowCache.BinarySubscr(arena, slot, owner, index, func() (shadowcache.TaggedValue, error) {
		return toTagged(i.primitiveAt(rcvr, idxVal)), nil
	})
	i.popN(2)
	if err != nil {
		i.push(i.primitiveAt(rcvr, idxVal))
		return
	}
	i.push(fromTagged(tv))
}

// execSubscrPut runs a SEND_AT_PUT/SEND_AT_PUT_CACHED site (at:put:).
// Receiver, index and value are on the stack (value on top) on entry; by
// Maggie's at:put: convention the stored value itself is pushed back as
// the send's result on both the fast and fallback paths.
func (i *Interpreter) execSubscrPut(frame *CallFrame, op Opcode, ip int, payload byte) {
	value := i.top()
	idxVal := i.stack[i.sp-2]
	rcvr := i.stack[i.sp-3]
	arena := i.shadowArena(frame)
	obj := ObjectFromValue(rcvr)
	if obj == nil || classOf(obj) == nil || !classOf(obj).IsIndexable() {
		// i.send pops its own receiver and args; the stack is already in
		// exactly the shape it expects (receiver, then both arguments).
		i.push(i.send(i.selectorAtPut, 2))
		return
	}
	if arena == nil || !idxVal.IsSmallInt() {
		i.popN(3)
		i.push(i.primitiveAtPut(rcvr, idxVal, value))
		return
	}
	index := int(idxVal.SmallInt())
	if index < 0 || index >= obj.NumSlots() {
		i.popN(3)
		i.push(value)
		return
	}
	owner := wrapObject(i, obj)
	tv := toTagged(value)

	var slot int
	switch op {
	case OpSendAtPutCached:
		slot = int(payload)
	default: // OpSendAtPut: first execution at this site
		slot = arena.AddFieldCache(shadowcache.FieldCacheEntry{Offset: 0})
		arena.Patch(ip, byte(OpSendAtPutCached), byte(slot))
	}

	err := i.ShadowCache.StoreSubscr(arena, slot, owner, index, tv, func() error {
		i.primitiveAtPut(rcvr, idxVal, value)
		return nil
	})
	i.popN(3)
	if err != nil {
		i.push(i.primitiveAtPut(rcvr, idxVal, value))
		return
	}
	i.push(value)
}
