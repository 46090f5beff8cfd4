package vm

import (
	"testing"

	"github.com/maggievm/shadowcache/shadowcache"
)

func TestToTaggedFromTaggedSmallInt(t *testing.T) {
	v := FromSmallInt(42)
	tv := toTagged(v)
	if !tv.IsInt() {
		t.Fatal("expected a tagged int")
	}
	if tv.AsInt() != 42 {
		t.Errorf("got %d, want 42", tv.AsInt())
	}
	back := fromTagged(tv)
	if !back.IsSmallInt() || back.SmallInt() != 42 {
		t.Errorf("roundtrip failed: got %v", back)
	}
}

func TestToTaggedFromTaggedNil(t *testing.T) {
	tv := toTagged(Nil)
	if !tv.IsNull() {
		t.Error("expected Nil to encode as the null tagged value")
	}
	back := fromTagged(tv)
	if !back.IsNil() {
		t.Error("expected roundtrip of Nil to stay Nil")
	}
}

func TestToTaggedFromTaggedBoxedScalar(t *testing.T) {
	// True is neither a small int nor an object; it must be boxed rather
	// than silently dropped.
	tv := toTagged(True)
	if !tv.IsObject() {
		t.Fatal("expected a boxed scalar to encode as object-tagged")
	}
	back := fromTagged(tv)
	if back != True {
		t.Errorf("got %v, want True", back)
	}
}

func TestToTaggedFromTaggedObject(t *testing.T) {
	class := NewClass("Point", nil)
	vt := NewVTable(class, nil)
	obj := NewObject(vt, 0)
	v := obj.ToValue()

	tv := toTagged(v)
	if !tv.IsObject() {
		t.Fatal("expected a real object to encode as object-tagged")
	}
	back := fromTagged(tv)
	if back != v {
		t.Errorf("roundtrip of an object Value did not return the same Value")
	}
}

func TestHostObjectSlotRoundtrip(t *testing.T) {
	interp := NewInterpreter()
	class := NewClassWithInstVars("Point", nil, []string{"x", "y"})
	vt := NewVTable(class, nil)
	obj := NewObject(vt, class.NumSlots)
	h := wrapObject(interp, obj)

	idx := class.InstVarIndex("x")
	h.SetSlot(idx, toTagged(FromSmallInt(7)))
	got := h.Slot(idx)
	if !got.IsInt() || got.AsInt() != 7 {
		t.Errorf("got %v, want tagged int 7", got)
	}
}

func TestHostObjectSamePointer(t *testing.T) {
	interp := NewInterpreter()
	class := NewClass("Point", nil)
	vt := NewVTable(class, nil)
	obj1 := NewObject(vt, 0)
	obj2 := NewObject(vt, 0)

	h1 := wrapObject(interp, obj1)
	h1again := wrapObject(interp, obj1)
	h2 := wrapObject(interp, obj2)

	if !h1.SamePointer(h1again) {
		t.Error("expected two wrappers of the same Object to compare equal")
	}
	if h1.SamePointer(h2) {
		t.Error("expected wrappers of distinct Objects to compare unequal")
	}
	if h1.SamePointer(hostType{class: class, interp: interp}) {
		t.Error("expected SamePointer to reject a different concrete type")
	}
}

func TestHostObjectTypeOf(t *testing.T) {
	interp := NewInterpreter()
	class := NewClass("Point", nil)
	vt := NewVTable(class, nil)
	obj := NewObject(vt, 0)
	h := wrapObject(interp, obj)

	ty, ok := h.TypeOf().(hostType)
	if !ok {
		t.Fatal("expected TypeOf to return a hostType")
	}
	if ty.class != class {
		t.Error("expected TypeOf to resolve the object's actual class")
	}
}

func TestClassHasSelectorAcrossSuperclasses(t *testing.T) {
	selectors := NewSelectorTable()

	base := NewClass("Base", nil)
	base.AddMethod0(selectors, "greet", func(vm interface{}, receiver Value) Value {
		return Nil
	})
	derived := NewClass("Derived", base)

	if !classHasSelector(derived, selectors, "greet") {
		t.Error("expected a selector defined on a superclass to be visible through the subclass")
	}
	if classHasSelector(derived, selectors, "missing") {
		t.Error("expected an unregistered selector to report absent")
	}
	if classHasSelector(nil, selectors, "greet") {
		t.Error("expected a nil class to never report a selector present")
	}
}

func TestClassHasSelectorWithoutTable(t *testing.T) {
	class := NewClass("Base", nil)
	if classHasSelector(class, nil, "anything") {
		t.Error("expected classHasSelector to report false when the selector table is nil")
	}
}

// TestLookupDescriptorMethodWinsOverInstVar covers the case where a class
// defines both an instance variable and a method under the same name: the
// method must win, the same way an ordinary unary send would resolve it,
// rather than the cache treating the name as a plain slot.
func TestLookupDescriptorMethodWinsOverInstVar(t *testing.T) {
	interp := NewInterpreter()

	class := NewClassWithInstVars("Account", nil, []string{"balance"})
	class.AddMethod0(interp.Selectors, "balance", func(vm interface{}, receiver Value) Value {
		return FromSmallInt(100)
	})

	ht := hostType{class: class, interp: interp}
	rd := ht.LookupDescriptor("balance")
	if rd.Kind != shadowcache.DescrMethod {
		t.Errorf("got descriptor kind %v, want DescrMethod", rd.Kind)
	}
}

func TestLookupDescriptorPlainInstVar(t *testing.T) {
	interp := NewInterpreter()

	class := NewClassWithInstVars("Point", nil, []string{"x", "y"})
	ht := hostType{class: class, interp: interp}

	rd := ht.LookupDescriptor("x")
	if rd.Kind != shadowcache.DescrSlot {
		t.Errorf("got descriptor kind %v, want DescrSlot", rd.Kind)
	}
	if rd.Offset != class.InstVarIndex("x") {
		t.Errorf("got offset %d, want %d", rd.Offset, class.InstVarIndex("x"))
	}
}

func TestLookupDescriptorUnknownName(t *testing.T) {
	interp := NewInterpreter()

	class := NewClass("Point", nil)
	ht := hostType{class: class, interp: interp}

	rd := ht.LookupDescriptor("nonexistent")
	if rd.Kind != shadowcache.DescrNone {
		t.Errorf("got descriptor kind %v, want DescrNone", rd.Kind)
	}
}

func TestLookupDescriptorSetterSelector(t *testing.T) {
	interp := NewInterpreter()

	class := NewClass("Point", nil)
	class.AddMethod1(interp.Selectors, "x:", func(vm interface{}, receiver Value, arg Value) Value {
		return receiver
	})

	ht := hostType{class: class, interp: interp}
	rd := ht.LookupDescriptor("x")
	if rd.Kind != shadowcache.DescrMethod {
		t.Errorf("got descriptor kind %v, want DescrMethod for a name backed only by a setter selector", rd.Kind)
	}
}

func TestWrapClassInstallsInvalidateHookOnce(t *testing.T) {
	interp := NewInterpreter()
	interp.EnableShadowCache(nil, nil)

	class := NewClass("Point", nil)
	if class.invalidateHook != nil {
		t.Fatal("expected a freshly created class to start without a hook")
	}

	wrapClass(interp, class)
	if class.invalidateHook == nil {
		t.Fatal("expected wrapClass to install a hook when a cache is attached")
	}

	// A hook the caller installed by hand must survive a second wrapClass:
	// the nil check in wrapClass means it only ever installs once.
	fired := false
	class.invalidateHook = func() { fired = true }
	wrapClass(interp, class)
	class.BumpInvalidateCount()
	if !fired {
		t.Error("expected a pre-existing hook to remain installed across a second wrapClass call")
	}
}

func TestWrapClassNoCacheAttached(t *testing.T) {
	interp := NewInterpreter()
	class := NewClass("Point", nil)
	wrapClass(interp, class)
	if class.invalidateHook != nil {
		t.Error("expected wrapClass to install nothing when no cache is attached")
	}
}

func TestHostTypeInvalidateCount(t *testing.T) {
	class := NewClass("Point", nil)
	ht := hostType{class: class}
	if ht.InvalidateCount() != 0 {
		t.Errorf("got %d, want 0 for a freshly created class", ht.InvalidateCount())
	}
	class.BumpInvalidateCount()
	if ht.InvalidateCount() != 1 {
		t.Errorf("got %d, want 1 after one mutation", ht.InvalidateCount())
	}
}

func TestHostTypeSupportsWeakRefsIsFalse(t *testing.T) {
	ht := hostType{class: NewClass("Point", nil)}
	if ht.SupportsWeakRefs() {
		t.Error("expected classes to report false for SupportsWeakRefs")
	}
}

func TestDescriptorGetSlot(t *testing.T) {
	interp := NewInterpreter()
	class := NewClassWithInstVars("Point", nil, []string{"x"})
	vt := NewVTable(class, nil)
	obj := NewObject(vt, class.NumSlots)
	idx := class.InstVarIndex("x")
	obj.SetSlot(idx, FromSmallInt(9))

	descr := &Descriptor{Kind: DescrSlot, Offset: idx}
	hd := hostDescriptor{descr: descr, owner: class, interp: interp}
	ht := hostType{class: class, interp: interp}

	got, err := ht.DescriptorGet(hd, wrapObject(interp, obj))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsInt() || got.AsInt() != 9 {
		t.Errorf("got %v, want tagged int 9", got)
	}
}

func TestDescriptorSetSlot(t *testing.T) {
	interp := NewInterpreter()
	class := NewClassWithInstVars("Point", nil, []string{"x"})
	vt := NewVTable(class, nil)
	obj := NewObject(vt, class.NumSlots)
	idx := class.InstVarIndex("x")

	descr := &Descriptor{Kind: DescrSlot, Offset: idx}
	hd := hostDescriptor{descr: descr, owner: class, interp: interp}
	ht := hostType{class: class, interp: interp}

	if err := ht.DescriptorSet(hd, wrapObject(interp, obj), toTagged(FromSmallInt(5))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := obj.GetSlot(idx); !got.IsSmallInt() || got.SmallInt() != 5 {
		t.Errorf("got %v, want small int 5", got)
	}
}

func TestDescriptorGetMethodReturnsBoundValue(t *testing.T) {
	interp := NewInterpreter()
	class := NewClass("Point", nil)
	fnValue := FromSmallInt(1) // stand-in callable value for the test
	descr := &Descriptor{Kind: DescrMethod, Value: fnValue}
	hd := hostDescriptor{descr: descr, owner: class, interp: interp}
	ht := hostType{class: class, interp: interp}

	got, err := ht.DescriptorGet(hd, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsInt() || got.AsInt() != 1 {
		t.Errorf("got %v, want the method descriptor's carried value", got)
	}
}

func TestHostDictSplitThenMaterialized(t *testing.T) {
	keys := NewDictKeys(nil)
	dict := NewInstanceDict(keys)
	hd := hostDict{dict: dict}

	if !hd.IsSplit() {
		t.Fatal("expected a freshly created dict sharing a keys template to be split")
	}
	if hd.NEntries() != 0 {
		t.Errorf("got %d entries, want 0", hd.NEntries())
	}

	if err := hd.Set("name", toTagged(FromSmallInt(3))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hd.NEntries() != 1 {
		t.Errorf("got %d entries, want 1 after one Set", hd.NEntries())
	}

	off := hd.SplitOffset("name")
	if off < 0 {
		t.Fatal("expected SplitOffset to resolve a key just set")
	}
	got := hd.ValueAtOffset(off)
	if !got.IsInt() || got.AsInt() != 3 {
		t.Errorf("got %v, want tagged int 3", got)
	}

	v, ok := hd.Get("name")
	if !ok || !v.IsInt() || v.AsInt() != 3 {
		t.Errorf("Get returned (%v, %v), want (3, true)", v, ok)
	}

	if _, ok := hd.Get("missing"); ok {
		t.Error("expected Get of an absent key to report false")
	}
}

func TestHostDictKeysIdentitySharedAcrossInstances(t *testing.T) {
	keys := NewDictKeys(nil)
	d1 := hostDict{dict: NewInstanceDict(keys)}
	d2 := hostDict{dict: NewInstanceDict(keys)}

	if d1.KeysIdentity() != d2.KeysIdentity() {
		t.Error("expected two dicts sharing the same DictKeys template to report the same identity")
	}

	d1.Set("a", toTagged(FromSmallInt(1)))
	if d1.KeysIdentity() != d2.KeysIdentity() {
		t.Error("growing a shared split dict in place must not change its keys identity")
	}
}

func TestHostObjectInstanceDictLazyCreate(t *testing.T) {
	interp := NewInterpreter()
	class := NewClassWithDict("Widget", nil, nil, nil)
	vt := NewVTable(class, nil)
	obj := NewObject(vt, class.NumSlots)
	h := wrapObject(interp, obj)

	d, ok := h.InstanceDict()
	if !ok {
		t.Fatal("expected a class with a dict offset to report a usable instance dict")
	}
	if err := d.Set("label", toTagged(FromSmallInt(4))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d2, ok := h.InstanceDict()
	if !ok {
		t.Fatal("expected a second InstanceDict call to keep reporting true")
	}
	v, ok := d2.Get("label")
	if !ok || !v.IsInt() || v.AsInt() != 4 {
		t.Errorf("got (%v, %v), want (4, true) after the dict was created lazily once", v, ok)
	}
}

func TestHostObjectInstanceDictAbsentWithoutDictClass(t *testing.T) {
	interp := NewInterpreter()
	class := NewClass("Point", nil)
	vt := NewVTable(class, nil)
	obj := NewObject(vt, 0)
	h := wrapObject(interp, obj)

	if _, ok := h.InstanceDict(); ok {
		t.Error("expected a class with no dict offset to report no instance dict")
	}
}

func TestHostBytecodePatchAndRead(t *testing.T) {
	code := []byte{0x01, 0x02, 0x03, 0x04}
	hb := hostBytecode{code: &code}

	if hb.Len() != 4 {
		t.Errorf("got length %d, want 4", hb.Len())
	}
	op, arg := hb.At(0)
	if op != 0x01 || arg != 0x02 {
		t.Errorf("got (%#x, %#x), want (0x01, 0x02)", op, arg)
	}

	hb.Patch(0, 0xAA, 0xBB)
	op, arg = hb.At(0)
	if op != 0xAA || arg != 0xBB {
		t.Errorf("got (%#x, %#x) after Patch, want (0xAA, 0xBB)", op, arg)
	}

	// The trailing byte has no paired operand; At must not panic.
	op, arg = hb.At(3)
	if op != 0x04 || arg != 0 {
		t.Errorf("got (%#x, %#x) for the final byte, want (0x04, 0x00)", op, arg)
	}
}
