package shadowcache

import "testing"

func TestRegistryGetOrCreateIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	typ := newFakeType("Point")

	d1 := reg.GetOrCreate(typ)
	d2 := reg.GetOrCreate(typ)
	if d1 != d2 {
		t.Fatal("GetOrCreate should return the same Directory for the same owner")
	}
	if reg.Find(typ) != d1 {
		t.Fatal("Find should return the directory created by GetOrCreate")
	}
}

func TestRegistryFindBeforeCreateReturnsNil(t *testing.T) {
	reg := NewRegistry()
	typ := newFakeType("Point")
	if reg.Find(typ) != nil {
		t.Fatal("Find on an unknown owner should return nil without allocating")
	}
}

func TestRegistryForgetDropsDirectory(t *testing.T) {
	reg := NewRegistry()
	typ := newFakeType("Point")
	reg.GetOrCreate(typ)
	reg.Forget(typ)
	if reg.Find(typ) != nil {
		t.Fatal("Forget should remove the directory entirely")
	}
}

func TestRegistryInvalidatePoisonsBindingsAndRevertsSites(t *testing.T) {
	reg := NewRegistry()
	typ := newFakeType("Point")
	dir := reg.GetOrCreate(typ)

	code := newFakeBytecode(2)
	arena := NewArena(code, "m")
	entry := &InstanceAttrEntry{Kind: KindSlot, Type: typ, Offset: 0}
	arena.AddInstanceAttr(entry)
	arena.Patch(0, 0xA1, 0) // simulate the site already having been specialized

	reg.RecordDependency(dir, arena, 0, 0xA0, "x", entry)
	if dir.L2Lookup("x") != entry {
		t.Fatal("RecordDependency should populate the l2 cache")
	}

	reg.Invalidate(dir)

	if entry.Live() {
		t.Fatal("Invalidate should poison every bound entry")
	}
	op, _ := code.At(0)
	if op != 0xA0 {
		t.Fatalf("Invalidate should revert the site's opcode to the recorded generic opcode, got %#x", op)
	}
	if dir.L2Lookup("x") != nil {
		t.Fatal("Invalidate should clear the l2 cache")
	}
	if dir.InvalidateCount() != 1 {
		t.Fatalf("InvalidateCount() = %d, want 1", dir.InvalidateCount())
	}
}

func TestRegistryInvalidateBumpsCountByExactlyOnePerCall(t *testing.T) {
	reg := NewRegistry()
	typ := newFakeType("Point")
	dir := reg.GetOrCreate(typ)

	reg.Invalidate(dir)
	reg.Invalidate(dir)
	reg.Invalidate(dir)

	if dir.InvalidateCount() != 3 {
		t.Fatalf("InvalidateCount() = %d, want 3", dir.InvalidateCount())
	}
}
