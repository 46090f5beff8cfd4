package shadowcache

// testhost_test.go implements the Object/Type/Dict/Module/Bytecode
// interfaces over a tiny in-memory fixture, so the rest of the package's
// tests can exercise the dispatcher and handlers without pulling in
// vm/shadow_host.go's NaN-boxed Value translation.

type fakeDescr struct {
	kind  DescriptorKind
	value Object
}

type fakeType struct {
	name        string
	descriptors map[string]fakeDescr
	slots       map[string]int
	classVars   map[string]TaggedValue
	weakRefs    bool
	invalidates int64
}

func newFakeType(name string) *fakeType {
	return &fakeType{
		name:        name,
		descriptors: make(map[string]fakeDescr),
		slots:       make(map[string]int),
		weakRefs:    true,
	}
}

// addClassVar registers name as a class-level attribute resolved directly
// on the type itself, rather than through any instance's slot/dict/
// descriptor — the fixture's stand-in for Maggie's class variables.
func (t *fakeType) addClassVar(name string, v TaggedValue) {
	if t.classVars == nil {
		t.classVars = make(map[string]TaggedValue)
	}
	t.classVars[name] = v
}

func (t *fakeType) ClassAttr(name string) (TaggedValue, bool) {
	v, ok := t.classVars[name]
	return v, ok
}

func (t *fakeType) SetClassAttr(name string, v TaggedValue) error {
	if t.classVars == nil {
		t.classVars = make(map[string]TaggedValue)
	}
	t.classVars[name] = v
	return nil
}

func (t *fakeType) TypeOf() Type               { return t }
func (t *fakeType) SamePointer(o Object) bool  { other, ok := o.(*fakeType); return ok && other == t }
func (t *fakeType) SupportsWeakRefs() bool     { return t.weakRefs }
func (t *fakeType) InvalidateCount() int64     { return t.invalidates }

func (t *fakeType) addSlot(name string, offset int) {
	t.slots[name] = offset
}

func (t *fakeType) addMethod(name string, fn func(instance Object) (TaggedValue, error)) {
	t.descriptors[name] = fakeDescr{kind: DescrMethod, value: &fakeDescriptor{get: fn}}
}

func (t *fakeType) addDataDescriptor(name string, get func(instance Object) (TaggedValue, error), set func(instance Object, v TaggedValue) error) {
	t.descriptors[name] = fakeDescr{kind: DescrDataDescriptor, value: &fakeDescriptor{get: get, set: set}}
}

func (t *fakeType) addNonDataDescriptor(name string, get func(instance Object) (TaggedValue, error)) {
	t.descriptors[name] = fakeDescr{kind: DescrNonDataDescriptor, value: &fakeDescriptor{get: get}}
}

func (t *fakeType) LookupDescriptor(name string) ResolvedDescriptor {
	if offset, ok := t.slots[name]; ok {
		return ResolvedDescriptor{Kind: DescrSlot, Offset: offset}
	}
	if d, ok := t.descriptors[name]; ok {
		return ResolvedDescriptor{Kind: d.kind, Value: d.value}
	}
	return ResolvedDescriptor{Kind: DescrNone}
}

func (t *fakeType) DescriptorGet(descr Object, instance Object) (TaggedValue, error) {
	fd := descr.(*fakeDescriptor)
	return fd.get(instance)
}

func (t *fakeType) DescriptorSet(descr Object, instance Object, value TaggedValue) error {
	fd := descr.(*fakeDescriptor)
	if fd.set == nil {
		return newUncacheable("descriptor has no setter")
	}
	return fd.set(instance, value)
}

// fakeDescriptor is the Object value a ResolvedDescriptor carries back to
// DescriptorGet/DescriptorSet.
type fakeDescriptor struct {
	get func(instance Object) (TaggedValue, error)
	set func(instance Object, v TaggedValue) error
}

func (d *fakeDescriptor) TypeOf() Type { return nil }
func (d *fakeDescriptor) SamePointer(o Object) bool {
	other, ok := o.(*fakeDescriptor)
	return ok && other == d
}

// fakeDict is a simple combined (non-split) dict unless split is set.
type fakeDict struct {
	data  map[string]TaggedValue
	keys  uintptr
	split bool
	order []string
}

func newFakeDict(keysIdentity uintptr) *fakeDict {
	return &fakeDict{data: make(map[string]TaggedValue), keys: keysIdentity}
}

func (d *fakeDict) Get(name string) (TaggedValue, bool) {
	v, ok := d.data[name]
	return v, ok
}

func (d *fakeDict) Set(name string, value TaggedValue) error {
	if _, exists := d.data[name]; !exists {
		d.order = append(d.order, name)
	}
	d.data[name] = value
	return nil
}

func (d *fakeDict) IsSplit() bool          { return d.split }
func (d *fakeDict) KeysIdentity() uintptr  { return d.keys }
func (d *fakeDict) NEntries() int          { return len(d.data) }

func (d *fakeDict) SplitOffset(name string) int {
	for i, n := range d.order {
		if n == name {
			return i
		}
	}
	return -1
}

func (d *fakeDict) ValueAtOffset(offset int) TaggedValue {
	if offset < 0 || offset >= len(d.order) {
		return Null
	}
	return d.data[d.order[offset]]
}

// fakeObject is a plain instance: a type, an optional dict, and a fixed
// slot array.
type fakeObject struct {
	typ  *fakeType
	dict *fakeDict
	slot []TaggedValue
}

func newFakeObject(typ *fakeType) *fakeObject {
	return &fakeObject{typ: typ, slot: make([]TaggedValue, 8)}
}

func (o *fakeObject) TypeOf() Type { return o.typ }
func (o *fakeObject) SamePointer(other Object) bool {
	oo, ok := other.(*fakeObject)
	return ok && oo == o
}

func (o *fakeObject) InstanceDict() (Dict, bool) {
	if o.dict == nil {
		return nil, false
	}
	return o.dict, true
}

func (o *fakeObject) Slot(offset int) TaggedValue { return o.slot[offset] }
func (o *fakeObject) SetSlot(offset int, v TaggedValue) error {
	o.slot[offset] = v
	return nil
}

// fakeModule is a namespace object backed by a combined fakeDict plus a
// version counter the test bumps explicitly to simulate a global store.
type fakeModule struct {
	dict    *fakeDict
	version uint64
}

func newFakeModule() *fakeModule {
	return &fakeModule{dict: newFakeDict(1)}
}

func (m *fakeModule) TypeOf() Type { return nil }
func (m *fakeModule) SamePointer(other Object) bool {
	om, ok := other.(*fakeModule)
	return ok && om == m
}
func (m *fakeModule) Dict() Dict       { return m.dict }
func (m *fakeModule) Version() uint64  { return m.version }

// fakeBytecode is a slice of (opcode, arg) pairs, directly addressable by
// instruction pointer (unit index, not byte offset — the real vm package
// uses byte offsets into a 3-byte operand layout, but Bytecode itself only
// ever needs opcode/arg-at-ip, which this models exactly).
type fakeBytecode struct {
	ops []byte
	args []byte
}

func newFakeBytecode(n int) *fakeBytecode {
	return &fakeBytecode{ops: make([]byte, n), args: make([]byte, n)}
}

func (b *fakeBytecode) Len() int { return len(b.ops) }

func (b *fakeBytecode) At(ip int) (byte, byte) { return b.ops[ip], b.args[ip] }

func (b *fakeBytecode) Patch(ip int, opcode byte, arg byte) {
	b.ops[ip] = opcode
	b.args[ip] = arg
}
