package vm

import (
	"testing"

	"github.com/maggievm/shadowcache/shadowcache"
)

// ---------------------------------------------------------------------------
// Multi-VM Integration Tests
//
// These tests prove that two VMs can run independently in a single Go
// process without interference. Each scenario exercises a different
// registry or subsystem to verify full isolation.
// ---------------------------------------------------------------------------

// TestMultiVM_IndependentChannels verifies that channels created in
// separate VMs are fully isolated: same IDs do not alias, and sending
// on one VM's channel does not affect the other.
func TestMultiVM_IndependentChannels(t *testing.T) {
	vm1 := NewVM()
	defer vm1.Shutdown()
	vm2 := NewVM()
	defer vm2.Shutdown()

	// Create a buffered channel in each VM
	ch1 := vm1.Send(vm1.classValue(vm1.ChannelClass), "new:", []Value{FromSmallInt(1)})
	ch2 := vm2.Send(vm2.classValue(vm2.ChannelClass), "new:", []Value{FromSmallInt(1)})

	if ch1 == Nil || ch2 == Nil {
		t.Fatal("Failed to create channels")
	}

	// Send different values into each VM's channel
	vm1.Send(ch1, "send:", []Value{FromSmallInt(100)})
	vm2.Send(ch2, "send:", []Value{FromSmallInt(200)})

	// Receive from each — must get the value sent to THAT VM's channel
	val1 := vm1.Send(ch1, "receive", nil)
	val2 := vm2.Send(ch2, "receive", nil)

	if !val1.IsSmallInt() || val1.SmallInt() != 100 {
		t.Errorf("VM1 channel: got %v, want 100", val1)
	}
	if !val2.IsSmallInt() || val2.SmallInt() != 200 {
		t.Errorf("VM2 channel: got %v, want 200", val2)
	}

	// Close VM1's channel — VM2's channel must remain open
	vm1.Send(ch1, "close", nil)

	isClosed1 := vm1.Send(ch1, "isClosed", nil)
	isClosed2 := vm2.Send(ch2, "isClosed", nil)

	if isClosed1 != True {
		t.Error("VM1 channel should be closed")
	}
	if isClosed2 != False {
		t.Error("VM2 channel should still be open")
	}

	// Registry counts are independent
	count1 := vm1.Concurrency().ChannelCount()
	count2 := vm2.Concurrency().ChannelCount()

	// VM1 closed its channel but it's still in registry until GC sweep
	// VM2 has exactly one open channel
	if count2 < 1 {
		t.Errorf("VM2 should have at least 1 channel, got %d", count2)
	}
	t.Logf("VM1 channels: %d, VM2 channels: %d", count1, count2)
}

// TestMultiVM_IndependentProcesses verifies that processes created in
// separate VMs are isolated: process IDs may overlap but refer to
// different processes, and one VM's process registry is invisible to
// the other.
func TestMultiVM_IndependentProcesses(t *testing.T) {
	vm1 := NewVM()
	defer vm1.Shutdown()
	vm2 := NewVM()
	defer vm2.Shutdown()

	// Create processes directly in each VM
	proc1 := vm1.createProcess()
	vm1.registerProcess(proc1)

	proc2 := vm2.createProcess()
	vm2.registerProcess(proc2)

	// Each VM should see exactly 1 process
	if vm1.Concurrency().ProcessCount() < 1 {
		t.Error("VM1 should have at least 1 process")
	}
	if vm2.Concurrency().ProcessCount() < 1 {
		t.Error("VM2 should have at least 1 process")
	}

	// Completing a process in VM1 should not affect VM2's process count
	countBefore := vm2.Concurrency().ProcessCount()
	proc1.markDone(FromSmallInt(1), nil)
	countAfter := vm2.Concurrency().ProcessCount()

	if countAfter != countBefore {
		t.Errorf("VM2 process count changed when VM1 process completed: before=%d, after=%d",
			countBefore, countAfter)
	}

	// Clean up
	proc2.markDone(FromSmallInt(2), nil)
}

// TestMultiVM_IndependentClassVariables verifies that class variables
// in one VM are invisible to the other, even when both VMs have
// classes with the same name.
func TestMultiVM_IndependentClassVariables(t *testing.T) {
	vm1 := NewVM()
	defer vm1.Shutdown()
	vm2 := NewVM()
	defer vm2.Shutdown()

	// Both VMs have an ObjectClass. Set a class variable on each.
	vm1.Registry().SetClassVar(vm1.ObjectClass, "count", FromSmallInt(42))
	vm2.Registry().SetClassVar(vm2.ObjectClass, "count", FromSmallInt(99))

	// Read back — each VM should see only its own value
	val1 := vm1.Registry().GetClassVar(vm1.ObjectClass, "count")
	val2 := vm2.Registry().GetClassVar(vm2.ObjectClass, "count")

	if !val1.IsSmallInt() || val1.SmallInt() != 42 {
		t.Errorf("VM1 classVar 'count': got %v, want 42", val1)
	}
	if !val2.IsSmallInt() || val2.SmallInt() != 99 {
		t.Errorf("VM2 classVar 'count': got %v, want 99", val2)
	}

	// Updating VM1's variable must not affect VM2
	vm1.Registry().SetClassVar(vm1.ObjectClass, "count", FromSmallInt(0))

	val2After := vm2.Registry().GetClassVar(vm2.ObjectClass, "count")
	if !val2After.IsSmallInt() || val2After.SmallInt() != 99 {
		t.Errorf("VM2 classVar 'count' changed after VM1 update: got %v, want 99", val2After)
	}
}

// TestMultiVM_IndependentStrings verifies that string registries are
// per-VM: creating a string in one VM does not make it visible in
// the other.
func TestMultiVM_IndependentStrings(t *testing.T) {
	vm1 := NewVM()
	defer vm1.Shutdown()
	vm2 := NewVM()
	defer vm2.Shutdown()

	// Snapshot initial string counts (bootstrap creates some strings)
	baseline1 := vm1.Registry().StringCount()
	baseline2 := vm2.Registry().StringCount()

	// Create strings in VM1 only
	s1 := vm1.Registry().NewStringValue("hello")
	_ = vm1.Registry().NewStringValue("world")

	// VM1 should have 2 more strings; VM2 should be unchanged
	if vm1.Registry().StringCount() != baseline1+2 {
		t.Errorf("VM1 string count: got %d, want %d", vm1.Registry().StringCount(), baseline1+2)
	}
	if vm2.Registry().StringCount() != baseline2 {
		t.Errorf("VM2 string count changed: got %d, want %d", vm2.Registry().StringCount(), baseline2)
	}

	// Verify content is retrievable only through VM1's registry
	content := vm1.Registry().GetStringContent(s1)
	if content != "hello" {
		t.Errorf("VM1 string content: got %q, want %q", content, "hello")
	}

	// Same value looked up through VM2's registry should yield empty string
	// (the ID maps to nothing in VM2)
	content2 := vm2.Registry().GetStringContent(s1)
	if content2 == "hello" {
		t.Error("VM2 should not be able to read VM1's string by ID")
	}
}

// TestMultiVM_IndependentExceptions verifies that exceptions registered
// in one VM are invisible to the other.
func TestMultiVM_IndependentExceptions(t *testing.T) {
	vm1 := NewVM()
	defer vm1.Shutdown()
	vm2 := NewVM()
	defer vm2.Shutdown()

	baseline1 := vm1.Registry().ExceptionCount()
	baseline2 := vm2.Registry().ExceptionCount()

	// Register exceptions in VM1 only
	ex1 := &ExceptionObject{Handled: false}
	ex2 := &ExceptionObject{Handled: true}
	vm1.Registry().RegisterException(ex1)
	vm1.Registry().RegisterException(ex2)

	// VM1 should have 2 more exceptions; VM2 unchanged
	if vm1.Registry().ExceptionCount() != baseline1+2 {
		t.Errorf("VM1 exception count: got %d, want %d", vm1.Registry().ExceptionCount(), baseline1+2)
	}
	if vm2.Registry().ExceptionCount() != baseline2 {
		t.Errorf("VM2 exception count changed: got %d, want %d", vm2.Registry().ExceptionCount(), baseline2)
	}

	// Sweeping VM1's exceptions should not affect VM2
	vm1.Registry().SweepExceptions()

	if vm2.Registry().ExceptionCount() != baseline2 {
		t.Errorf("VM2 exception count changed after VM1 sweep: got %d, want %d",
			vm2.Registry().ExceptionCount(), baseline2)
	}
}

// TestMultiVM_IndependentBlocks verifies that blocks registered in one
// VM's concurrency registry are invisible to the other.
func TestMultiVM_IndependentBlocks(t *testing.T) {
	vm1 := NewVM()
	defer vm1.Shutdown()
	vm2 := NewVM()
	defer vm2.Shutdown()

	baseline1 := vm1.Concurrency().BlockCount()
	baseline2 := vm2.Concurrency().BlockCount()

	// Register a block in VM1
	bv := &BlockValue{
		Block:    &BlockMethod{Arity: 0},
		Captures: nil,
	}
	id := vm1.Concurrency().RegisterBlock(bv)

	// VM1 should see it; VM2 should not
	if vm1.Concurrency().BlockCount() != baseline1+1 {
		t.Errorf("VM1 block count: got %d, want %d", vm1.Concurrency().BlockCount(), baseline1+1)
	}
	if vm2.Concurrency().BlockCount() != baseline2 {
		t.Errorf("VM2 block count changed: got %d, want %d", vm2.Concurrency().BlockCount(), baseline2)
	}

	// GetBlock with the same ID in VM2 should return nil
	if vm2.Concurrency().GetBlock(id) != nil {
		t.Error("VM2 should not find VM1's block by ID")
	}
	if vm1.Concurrency().GetBlock(id) != bv {
		t.Error("VM1 should find its own block by ID")
	}
}

// TestMultiVM_IndependentGC verifies that running RegistryGC on one VM
// sweeps only that VM's stale objects, leaving the other VM untouched.
func TestMultiVM_IndependentGC(t *testing.T) {
	vm1 := NewVM()
	defer vm1.Shutdown()
	vm2 := NewVM()
	defer vm2.Shutdown()

	// Create channels in both VMs
	ch1 := vm1.Send(vm1.classValue(vm1.ChannelClass), "new:", []Value{FromSmallInt(1)})
	ch2 := vm2.Send(vm2.classValue(vm2.ChannelClass), "new:", []Value{FromSmallInt(1)})

	vm2Count := vm2.Concurrency().ChannelCount()

	// Close VM1's channel
	vm1.Send(ch1, "close", nil)

	// Sweep VM1 — should clean up VM1's closed channel
	stats := vm1.registryGC.SweepNow()
	if stats.Channels < 1 {
		t.Errorf("VM1 sweep should have cleaned at least 1 channel, got %d", stats.Channels)
	}

	// VM2's channel count must be unchanged
	if vm2.Concurrency().ChannelCount() != vm2Count {
		t.Errorf("VM2 channel count changed after VM1 GC: got %d, want %d",
			vm2.Concurrency().ChannelCount(), vm2Count)
	}

	// VM2's channel should still work
	vm2.Send(ch2, "send:", []Value{FromSmallInt(42)})
	val := vm2.Send(ch2, "receive", nil)
	if !val.IsSmallInt() || val.SmallInt() != 42 {
		t.Errorf("VM2 channel after VM1 GC: got %v, want 42", val)
	}
}

// TestMultiVM_IndependentGlobals verifies that global variables set in
// one VM do not leak into another.
func TestMultiVM_IndependentGlobals(t *testing.T) {
	vm1 := NewVM()
	defer vm1.Shutdown()
	vm2 := NewVM()
	defer vm2.Shutdown()

	// Set a global in VM1
	vm1.Globals["myVar"] = FromSmallInt(123)

	// VM2 should not see it
	if val, ok := vm2.Globals["myVar"]; ok {
		t.Errorf("VM2 should not have 'myVar', got %v", val)
	}

	// Set a different value for the same name in VM2
	vm2.Globals["myVar"] = FromSmallInt(456)

	// VM1's value must be unchanged
	if vm1.Globals["myVar"].SmallInt() != 123 {
		t.Errorf("VM1 global 'myVar': got %d, want 123", vm1.Globals["myVar"].SmallInt())
	}
	if vm2.Globals["myVar"].SmallInt() != 456 {
		t.Errorf("VM2 global 'myVar': got %d, want 456", vm2.Globals["myVar"].SmallInt())
	}
}

// TestMultiVM_ShadowCacheTypeModificationIsolated verifies that enabling
// the shadow cache on two VMs gives each its own cache-invalidation
// wiring: a mutation to a class owned by one VM must poison only that
// VM's own cached attribute sites, and the other VM's cache must keep
// serving its own (unrelated) class correctly throughout.
func TestMultiVM_ShadowCacheTypeModificationIsolated(t *testing.T) {
	vm1 := NewVM()
	defer vm1.Shutdown()
	vm2 := NewVM()
	defer vm2.Shutdown()

	vm1.EnableShadowCache(nil, nil)
	vm2.EnableShadowCache(nil, nil)

	// Both VMs get a same-named class with a same-named instance
	// variable, so nothing but the owning interpreter distinguishes them.
	class1 := vm1.createClassWithIvars("Widget", vm1.ObjectClass, []string{"x"})
	class2 := vm2.createClassWithIvars("Widget", vm2.ObjectClass, []string{"x"})

	obj1 := class1.NewInstance()
	obj1.SetSlot(class1.InstVarIndex("x"), FromSmallInt(1))
	obj2 := class2.NewInstance()
	obj2.SetSlot(class2.InstVarIndex("x"), FromSmallInt(2))

	i1 := vm1.interpreter
	i2 := vm2.interpreter

	code1 := make([]byte, 4)
	code2 := make([]byte, 4)
	arena1 := i1.ShadowCache.InitShadow(hostBytecode{code: &code1}, "owner1")
	arena2 := i2.ShadowCache.InitShadow(hostBytecode{code: &code2}, "owner2")

	slot1 := arena1.AddInstanceAttr(&shadowcache.InstanceAttrEntry{})
	slot2 := arena2.AddInstanceAttr(&shadowcache.InstanceAttrEntry{})

	owner1 := wrapObject(i1, obj1)
	owner2 := wrapObject(i2, obj2)

	// Warm both sites against "x" as a plain instance variable.
	if _, _, err := i1.ShadowCache.LoadMethod(arena1, slot1, 0, byte(OpLoadAttrGeneric), owner1, "x"); err != nil {
		t.Fatalf("vm1 warmup: %v", err)
	}
	if _, _, err := i2.ShadowCache.LoadMethod(arena2, slot2, 0, byte(OpLoadAttrGeneric), owner2, "x"); err != nil {
		t.Fatalf("vm2 warmup: %v", err)
	}
	if !arena1.InstanceAttr(slot1).Live() {
		t.Fatal("expected vm1's site to be live after warmup")
	}
	if !arena2.InstanceAttr(slot2).Live() {
		t.Fatal("expected vm2's site to be live after warmup")
	}

	// Give class1 a real "x" method. A real method always wins over a
	// same-named instance variable, so this must poison vm1's own cached
	// site — and only vm1's.
	class1.AddMethod0(vm1.Selectors, "x", func(_ interface{}, recv Value) Value {
		return FromSmallInt(99)
	})

	if arena1.InstanceAttr(slot1).Live() {
		t.Error("expected class1's mutation to invalidate vm1's own cached site")
	}
	if !arena2.InstanceAttr(slot2).Live() {
		t.Error("vm2's cached site must survive a mutation made to vm1's unrelated class")
	}

	// vm2 must still resolve its own instance variable correctly — if
	// wrapClass/classHasSelector had consulted a cache or selector table
	// shared with vm1, this would either see class1's new "x" method or
	// miss the poisoning that just happened on vm1 and read stale data.
	tv, fellThrough, err := i2.ShadowCache.LoadMethod(arena2, slot2, 0, byte(OpLoadAttrGeneric), owner2, "x")
	if err != nil || !fellThrough {
		t.Fatalf("vm2 lookup after vm1's mutation: tv=%v fellThrough=%v err=%v", tv, fellThrough, err)
	}
	if !tv.IsInt() || tv.AsInt() != 2 {
		t.Errorf("vm2 read %v after vm1's class mutation, want its own tagged int 2", tv)
	}
}
