package shadowcache

import "testing"

func TestClassifySlotAlwaysWinsOverDict(t *testing.T) {
	typ := newFakeType("Point")
	typ.addSlot("x", 2)
	obj := newFakeObject(typ)
	obj.slot[2] = mustInt(t, 7)

	result, err := Classify(obj, "x", false)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if result.Entry.Kind != KindSlot {
		t.Fatalf("Kind = %v, want KindSlot", result.Entry.Kind)
	}
	if result.Entry.Offset != 2 {
		t.Fatalf("Offset = %d, want 2", result.Entry.Offset)
	}
	if result.Value != obj.slot[2] {
		t.Fatalf("Value = %v, want %v", result.Value, obj.slot[2])
	}
	if !result.MethodFallthrough {
		t.Fatal("a slot resolution should always report MethodFallthrough")
	}
}

func TestClassifyPlainDictAttribute(t *testing.T) {
	typ := newFakeType("Point")
	obj := newFakeObject(typ)
	obj.dict = newFakeDict(1)
	obj.dict.Set("label", mustInt(t, 9))

	result, err := Classify(obj, "label", false)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if result.Entry.Kind != KindDictNoDescr {
		t.Fatalf("Kind = %v, want KindDictNoDescr", result.Entry.Kind)
	}
	if !result.MethodFallthrough {
		t.Fatal("a dict-hit resolution should report MethodFallthrough")
	}
}

func TestClassifySplitDictNegativeHit(t *testing.T) {
	typ := newFakeType("Point")
	obj := newFakeObject(typ)
	obj.dict = newFakeDict(1)
	obj.dict.split = true

	_, err := Classify(obj, "missing", false)
	var attrErr *AttributeError
	if err == nil {
		t.Fatal("Classify on a genuinely absent split-dict name should return an AttributeError")
	}
	if ae, ok := err.(*AttributeError); !ok {
		t.Fatalf("error = %T, want *AttributeError", err)
	} else {
		attrErr = ae
	}
	if attrErr.Name != "missing" {
		t.Fatalf("AttributeError.Name = %q, want %q", attrErr.Name, "missing")
	}
}

func TestClassifyMethodDescriptorForMethodSite(t *testing.T) {
	typ := newFakeType("Point")
	typ.addMethod("distance", func(instance Object) (TaggedValue, error) {
		return mustInt(t, 42), nil
	})
	obj := newFakeObject(typ)

	result, err := Classify(obj, "distance", true)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if result.Entry.Kind != KindNoDictMethod {
		t.Fatalf("Kind = %v, want KindNoDictMethod", result.Entry.Kind)
	}
	if result.MethodFallthrough {
		t.Fatal("a method-shaped resolution should not report MethodFallthrough")
	}
}

func TestClassifyMethodDescriptorForAttrSite(t *testing.T) {
	typ := newFakeType("Point")
	typ.addMethod("distance", func(instance Object) (TaggedValue, error) {
		return mustInt(t, 42), nil
	})
	obj := newFakeObject(typ)

	result, err := Classify(obj, "distance", false)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if result.Entry.Kind != KindNoDictDescr {
		t.Fatalf("Kind = %v, want KindNoDictDescr when forMethod is false", result.Entry.Kind)
	}
}

func TestClassifyInheritedMethodOnDictBearingInstance(t *testing.T) {
	typ := newFakeType("Point")
	typ.addMethod("distance", func(instance Object) (TaggedValue, error) {
		return mustInt(t, 42), nil
	})
	obj := newFakeObject(typ)
	obj.dict = newFakeDict(1) // instance has a combined dict, but not this key

	result, err := Classify(obj, "distance", true)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if result.Entry.Kind != KindDictMethod {
		t.Fatalf("Kind = %v, want KindDictMethod (instance has a dict, method is inherited)", result.Entry.Kind)
	}
	if result.MethodFallthrough {
		t.Fatal("a method-shaped resolution should not report MethodFallthrough")
	}

	// The same lookup via a plain LOAD_ATTR site must report the Descr
	// sibling instead, not the Method kind.
	result, err = Classify(obj, "distance", false)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if result.Entry.Kind != KindDictDescr {
		t.Fatalf("Kind = %v, want KindDictDescr when forMethod is false", result.Entry.Kind)
	}
}

func TestClassifySplitDictNegativeHitForInheritedMethod(t *testing.T) {
	typ := newFakeType("Point")
	typ.addMethod("distance", func(instance Object) (TaggedValue, error) {
		return mustInt(t, 42), nil
	})
	obj := newFakeObject(typ)
	obj.dict = newFakeDict(1)
	obj.dict.split = true

	result, err := Classify(obj, "distance", true)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if result.Entry.Kind != KindSplitDictMethod {
		t.Fatalf("Kind = %v, want KindSplitDictMethod", result.Entry.Kind)
	}
	if result.MethodFallthrough {
		t.Fatal("a method-shaped resolution should not report MethodFallthrough")
	}

	result, err = Classify(obj, "distance", false)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if result.Entry.Kind != KindSplitDictDescr {
		t.Fatalf("Kind = %v, want KindSplitDictDescr when forMethod is false", result.Entry.Kind)
	}
	if !result.MethodFallthrough {
		t.Fatal("a split-dict descriptor resolution should report MethodFallthrough")
	}
}

func TestClassifyUnresolvedNameIsAttributeError(t *testing.T) {
	typ := newFakeType("Point")
	obj := newFakeObject(typ)

	_, err := Classify(obj, "ghost", false)
	if _, ok := err.(*AttributeError); !ok {
		t.Fatalf("error = %T, want *AttributeError", err)
	}
}

func TestClassifyDataDescriptorShadowsDict(t *testing.T) {
	typ := newFakeType("Point")
	typ.addDataDescriptor("x",
		func(instance Object) (TaggedValue, error) { return mustInt(t, 99), nil },
		func(instance Object, v TaggedValue) error { return nil })
	obj := newFakeObject(typ)
	obj.dict = newFakeDict(1)
	obj.dict.Set("x", mustInt(t, 1)) // dict has a stale value; descriptor must still win

	result, err := Classify(obj, "x", false)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if result.Entry.Kind != KindNoDictDescr {
		t.Fatalf("Kind = %v, want KindNoDictDescr (data descriptor wins over dict)", result.Entry.Kind)
	}
	if result.Value.AsInt() != 99 {
		t.Fatalf("Value = %d, want 99 (from the descriptor, not the dict)", result.Value.AsInt())
	}
}

func TestClassifyTypeOwnerClassVariable(t *testing.T) {
	typ := newFakeType("Counter")
	typ.addClassVar("total", mustInt(t, 7))

	result, err := Classify(typ, "total", false)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if result.Entry.Kind != KindTypeAttr {
		t.Fatalf("Kind = %v, want KindTypeAttr", result.Entry.Kind)
	}
	if !result.Entry.Type.SamePointer(typ) {
		t.Fatal("entry.Type should be the class itself, not its own TypeOf()")
	}
	if result.Value.AsInt() != 7 {
		t.Fatalf("Value = %d, want 7", result.Value.AsInt())
	}
	if !result.MethodFallthrough {
		t.Fatal("a class-variable resolution should always report MethodFallthrough")
	}
}

func TestClassifyTypeOwnerFallsThroughToClassSideMethod(t *testing.T) {
	typ := newFakeType("Counter")
	typ.addMethod("reset", func(instance Object) (TaggedValue, error) {
		return mustInt(t, 0), nil
	})

	// "reset" isn't a class variable, so step 1 must decline and fall
	// through to the ordinary type/instance resolution below it, which
	// still finds the class-side method.
	result, err := Classify(typ, "reset", true)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if result.Entry.Kind != KindNoDictMethod {
		t.Fatalf("Kind = %v, want KindNoDictMethod", result.Entry.Kind)
	}
}

func mustInt(t *testing.T, n int64) TaggedValue {
	t.Helper()
	tv, ok := FromInt(n)
	if !ok {
		t.Fatalf("FromInt(%d) out of range", n)
	}
	return tv
}
