package shadowcache

import (
	"testing"

	"github.com/tliron/commonlog"
)

// countingLogger embeds the Logger interface so it satisfies every method
// commonlog.Logger declares, overriding only the one this test cares
// about; every other promoted method stays a nil embedded value, which is
// only safe because recordUncacheable never calls anything but Warningf.
type countingLogger struct {
	commonlog.Logger
	warnings int
}

func (l *countingLogger) Warningf(format string, values ...interface{}) {
	l.warnings++
}

func TestStatsSnapshotCountsHitsAndMisses(t *testing.T) {
	cache := New(DefaultConfig(), NewStats(nil))
	typ := newFakeType("Point")
	typ.addSlot("x", 0)
	obj := newFakeObject(typ)
	obj.slot[0] = mustInt(t, 1)

	code := newFakeBytecode(1)
	arena := cache.InitShadow(code, "m")
	slot := arena.AddInstanceAttr(&InstanceAttrEntry{})

	if _, err := cache.LoadAttr(arena, slot, 0, 0xA0, obj, "x"); err != nil {
		t.Fatalf("LoadAttr (miss) returned error: %v", err)
	}
	if _, err := cache.LoadAttr(arena, slot, 0, 0xA0, obj, "x"); err != nil {
		t.Fatalf("LoadAttr (hit) returned error: %v", err)
	}

	snap := cache.StatsSnapshot()
	counters := snap.PerOp["load_attr"]
	if counters.Misses != 1 {
		t.Fatalf("Misses = %d, want 1", counters.Misses)
	}
	if counters.Hits != 1 {
		t.Fatalf("Hits = %d, want 1", counters.Hits)
	}
	if counters.Entries != 1 {
		t.Fatalf("Entries = %d, want 1", counters.Entries)
	}
}

func TestStatsSnapshotCountsTypeGuardMissNotHit(t *testing.T) {
	cache := New(DefaultConfig(), NewStats(nil))
	typA := newFakeType("A")
	typA.addSlot("x", 0)
	typB := newFakeType("B")
	typB.addSlot("x", 1)
	objA := newFakeObject(typA)
	objA.slot[0] = mustInt(t, 1)
	objB := newFakeObject(typB)
	objB.slot[1] = mustInt(t, 2)

	code := newFakeBytecode(1)
	arena := cache.InitShadow(code, "m")
	slot := arena.AddInstanceAttr(&InstanceAttrEntry{})

	if _, err := cache.LoadAttr(arena, slot, 0, 0xA0, objA, "x"); err != nil {
		t.Fatalf("LoadAttr(objA) returned error: %v", err)
	}
	// The entry is live (for typA) going into this call, but objB's type
	// guard fails, so this must count as a miss, not a hit.
	if _, err := cache.LoadAttr(arena, slot, 0, 0xA0, objB, "x"); err != nil {
		t.Fatalf("LoadAttr(objB) returned error: %v", err)
	}

	counters := cache.StatsSnapshot().PerOp["load_attr"]
	if counters.Misses != 2 {
		t.Fatalf("Misses = %d, want 2 (both accesses respecialized)", counters.Misses)
	}
	if counters.Hits != 0 {
		t.Fatalf("Hits = %d, want 0", counters.Hits)
	}
}

func TestStatsSnapshotCountsPolymorphicHit(t *testing.T) {
	cache := New(DefaultConfig(), NewStats(nil))
	typA := newFakeType("A")
	typA.addSlot("x", 0)
	typB := newFakeType("B")
	typB.addSlot("x", 1)
	objA := newFakeObject(typA)
	objA.slot[0] = mustInt(t, 1)
	objB := newFakeObject(typB)
	objB.slot[1] = mustInt(t, 2)

	code := newFakeBytecode(1)
	arena := cache.InitShadow(code, "m")
	polySlot := arena.AddPolymorphic(&PolymorphicEntry{})

	if _, err := cache.LoadAttrPolymorphic(arena, polySlot, 0, 0xA0, objA, "x"); err != nil {
		t.Fatalf("LoadAttrPolymorphic(objA) returned error: %v", err)
	}
	if _, err := cache.LoadAttrPolymorphic(arena, polySlot, 0, 0xA0, objB, "x"); err != nil {
		t.Fatalf("LoadAttrPolymorphic(objB) returned error: %v", err)
	}
	// objA is already specialized in the polymorphic array: this access
	// must record a hit.
	if _, err := cache.LoadAttrPolymorphic(arena, polySlot, 0, 0xA0, objA, "x"); err != nil {
		t.Fatalf("LoadAttrPolymorphic(objA) revisit returned error: %v", err)
	}

	counters := cache.StatsSnapshot().PerOp["load_attr"]
	if counters.Hits != 1 {
		t.Fatalf("Hits = %d, want 1", counters.Hits)
	}
	if counters.Misses != 2 {
		t.Fatalf("Misses = %d, want 2", counters.Misses)
	}
}

func TestStatsSnapshotCountsUncacheable(t *testing.T) {
	cache := New(DefaultConfig(), NewStats(nil))
	typ := newFakeType("Point")
	typ.addMethod("x", func(instance Object) (TaggedValue, error) { return Null, nil })
	obj := newFakeObject(typ)
	obj.dict = newFakeDict(1)

	code := newFakeBytecode(1)
	arena := cache.InitShadow(code, "m")
	slot := arena.AddInstanceAttr(&InstanceAttrEntry{})

	if err := cache.StoreAttr(arena, slot, 0, 0xA3, obj, "x", mustInt(t, 1)); err == nil {
		t.Fatal("StoreAttr on a method-bound name should fail")
	}

	snap := cache.StatsSnapshot()
	if snap.PerOp["store_attr"].Uncacheable != 1 {
		t.Fatalf("Uncacheable = %d, want 1", snap.PerOp["store_attr"].Uncacheable)
	}
}

func TestOnTypeModifiedInvalidatesAndCountsInStats(t *testing.T) {
	cache := New(DefaultConfig(), NewStats(nil))
	typ := newFakeType("Point")
	typ.addSlot("x", 0)
	obj := newFakeObject(typ)
	obj.slot[0] = mustInt(t, 1)

	code := newFakeBytecode(1)
	arena := cache.InitShadow(code, "m")
	slot := arena.AddInstanceAttr(&InstanceAttrEntry{})
	if _, err := cache.LoadAttr(arena, slot, 0, 0xA0, obj, "x"); err != nil {
		t.Fatalf("LoadAttr returned error: %v", err)
	}

	cache.OnTypeModified(typ)

	if arena.InstanceAttr(slot).Live() {
		t.Fatal("OnTypeModified should have poisoned the entry for typ")
	}
	op, _ := code.At(0)
	if op != 0xA0 {
		t.Fatalf("OnTypeModified should revert the site to its generic opcode, got %#x", op)
	}
}

func TestBumpDetailedAndSnapshot(t *testing.T) {
	stats := NewStats(nil)
	stats.BumpDetailed("Point")
	stats.BumpDetailed("Point")
	stats.BumpDetailed("Vector")

	snap := stats.Snapshot()
	if snap.Detailed["Point"] != 2 {
		t.Fatalf("Detailed[Point] = %d, want 2", snap.Detailed["Point"])
	}
	if snap.Detailed["Vector"] != 1 {
		t.Fatalf("Detailed[Vector] = %d, want 1", snap.Detailed["Vector"])
	}
}

func TestNewWiresUncacheableWarnThresholdIntoStats(t *testing.T) {
	stats := NewStats(nil)
	if stats.warnThreshold != 0 {
		t.Fatalf("warnThreshold before New = %d, want 0", stats.warnThreshold)
	}

	cfg := DefaultConfig()
	cfg.UncacheableWarnThreshold = 3
	New(cfg, stats)

	if stats.warnThreshold != 3 {
		t.Fatalf("warnThreshold after New = %d, want 3", stats.warnThreshold)
	}
}

func TestRecordUncacheableStaysQuietBelowThreshold(t *testing.T) {
	log := &countingLogger{}
	stats := NewStats(log)
	stats.warnThreshold = 3

	stats.recordUncacheable(opLoadAttr, "x")
	stats.recordUncacheable(opLoadAttr, "x")
	if log.warnings != 0 {
		t.Fatalf("warnings = %d, want 0 before crossing the threshold", log.warnings)
	}

	stats.recordUncacheable(opLoadAttr, "x")
	if log.warnings != 1 {
		t.Fatalf("warnings = %d, want 1 on the threshold-th occurrence", log.warnings)
	}

	stats.recordUncacheable(opLoadAttr, "x")
	stats.recordUncacheable(opLoadAttr, "x")
	if log.warnings != 1 {
		t.Fatalf("warnings = %d, want still 1 before the next multiple of the threshold", log.warnings)
	}

	stats.recordUncacheable(opLoadAttr, "x")
	if log.warnings != 2 {
		t.Fatalf("warnings = %d, want 2 on the second threshold-th occurrence", log.warnings)
	}
}

func TestRecordUncacheableNeverWarnsWhenThresholdIsZero(t *testing.T) {
	log := &countingLogger{}
	stats := NewStats(log)

	for n := 0; n < 10; n++ {
		stats.recordUncacheable(opLoadAttr, "x")
	}
	if log.warnings != 0 {
		t.Fatalf("warnings = %d, want 0 with a zero (disabled) threshold", log.warnings)
	}
}

func TestNewStatsNilLoggerIsSafe(t *testing.T) {
	stats := NewStats(nil)
	stats.recordMiss(opLoadAttr)
	stats.recordUncacheable(opLoadAttr, "test")
	stats.recordInvalidate()
	// No panic means the nil-logger fallback is wired correctly.
}
