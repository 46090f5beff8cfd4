package shadowcache

import (
	"testing"
	"unsafe"
)

func TestTaggedValueNull(t *testing.T) {
	if !Null.IsNull() {
		t.Fatal("Null.IsNull() = false")
	}
	if Null.IsInt() {
		t.Fatal("Null.IsInt() = true")
	}
	if !Null.IsObject() {
		t.Fatal("Null should decode as a nil object pointer, not an int")
	}
}

func TestFromIntRoundTrip(t *testing.T) {
	tests := []int64{0, 1, -1, 42, MaxTaggedInt, MinTaggedInt}
	for _, n := range tests {
		tv, ok := FromInt(n)
		if !ok {
			t.Fatalf("FromInt(%d) reported out of range", n)
		}
		if !tv.IsInt() {
			t.Fatalf("FromInt(%d).IsInt() = false", n)
		}
		if tv.IsObject() {
			t.Fatalf("FromInt(%d).IsObject() = true", n)
		}
		if got := tv.AsInt(); got != n {
			t.Fatalf("FromInt(%d).AsInt() = %d", n, got)
		}
	}
}

func TestFromIntOutOfRange(t *testing.T) {
	tests := []int64{MaxTaggedInt + 1, MinTaggedInt - 1}
	for _, n := range tests {
		if _, ok := FromInt(n); ok {
			t.Fatalf("FromInt(%d) should have reported out of range", n)
		}
	}
}

func TestFromObjectRoundTrip(t *testing.T) {
	cell := &boxedValue{}
	tv := FromObject(unsafe.Pointer(cell))
	if !tv.IsObject() {
		t.Fatal("FromObject result should be object-tagged")
	}
	if tv.IsInt() {
		t.Fatal("FromObject result should not be int-tagged")
	}
	if got := tv.AsObject(); got != unsafe.Pointer(cell) {
		t.Fatalf("AsObject() = %p, want %p", got, cell)
	}
}

type boxedValue struct{ _ int }

func TestAsIntPanicsOnObject(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("AsInt on an object-tagged value should panic")
		}
	}()
	cell := &boxedValue{}
	FromObject(unsafe.Pointer(cell)).AsInt()
}

func TestAsObjectPanicsOnInt(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("AsObject on an int-tagged value should panic")
		}
	}()
	tv, _ := FromInt(5)
	tv.AsObject()
}
