package shadowcache

// This file names the host interfaces the cache consumes. A host VM
// implements these over its own object model; vm/shadow_host.go is the
// Maggie implementation. Keeping them as interfaces (rather than importing
// vm directly) keeps the cache package ownership-clean: it has no
// knowledge of Maggie's NaN-boxed Value, slot layout, or weak-reference
// plumbing beyond what these methods expose.

// Object is any cacheable attribute owner: an instance, a type, or a
// module all satisfy it (types and modules are also Objects so that
// `load_attr` can treat "owner is itself a type/module" as a case of the
// same dispatch).
type Object interface {
	// TypeOf returns the runtime type of this object.
	TypeOf() Type
	// SamePointer reports whether other is the identical object (pointer
	// equality, the guard fast-path handlers compare against).
	SamePointer(other Object) bool
}

// DescriptorKind classifies how a name resolves on a Type, independent of
// any instance.
type DescriptorKind uint8

const (
	DescrNone DescriptorKind = iota
	DescrSlot
	DescrDataDescriptor
	DescrNonDataDescriptor
	DescrMethod
)

// ResolvedDescriptor is what Type.LookupDescriptor returns.
type ResolvedDescriptor struct {
	Kind DescriptorKind

	// Offset is valid when Kind == DescrSlot.
	Offset int

	// Value is valid when Kind is DescrMethod, DescrDataDescriptor, or
	// DescrNonDataDescriptor: the descriptor or unbound method object
	// itself, passed back to Get/Set below.
	Value Object
}

// Type is the host's notion of a type or module-as-namespace. Type itself
// satisfies Object so `owner is a type` is just an Object whose TypeOf()
// happens to be a metatype.
type Type interface {
	Object

	// LookupDescriptor resolves name via this type's MRO, returning the
	// descriptor kind the dispatcher needs to classify the site.
	LookupDescriptor(name string) ResolvedDescriptor

	// DescriptorGet/DescriptorSet invoke a previously resolved
	// descriptor's get/set behavior. instance may be nil when resolving
	// on the type itself (e.g. LOAD_METHOD via an unbound function).
	DescriptorGet(descr Object, instance Object) (TaggedValue, error)
	DescriptorSet(descr Object, instance Object, value TaggedValue) error

	// SupportsWeakRefs reports whether the host can attach a weak
	// reference (and therefore a cache directory) to this type.
	SupportsWeakRefs() bool

	// InvalidateCount returns the type's cache-mutation counter. The
	// registry and tests use it to observe that invalidate_count only
	// ever moves forward.
	InvalidateCount() int64
}

// Dict is the host's instance dictionary abstraction, combined or split.
type Dict interface {
	// Get returns the value for name and whether it was present.
	Get(name string) (TaggedValue, bool)
	// Set stores name -> value, returning an error only on allocation
	// failure.
	Set(name string, value TaggedValue) error
	// IsSplit reports whether this dict still shares a keys template
	// with sibling instances of the same type.
	IsSplit() bool
	// KeysIdentity returns an opaque, comparable identity for the dict's
	// current keys object. Two dicts sharing a split-keys template return
	// equal identities; a combined (non-split) dict returns an identity
	// that changes whenever its own structure changes.
	KeysIdentity() uintptr
	// NEntries returns the current key count of KeysIdentity's keys
	// object, used for the negative-hit check.
	NEntries() int
	// SplitOffset returns name's index in the split keys table, or -1 if
	// the dict isn't split or name isn't present in the template.
	SplitOffset(name string) int
	// ValueAtOffset returns the value at a previously resolved split
	// offset.
	ValueAtOffset(offset int) TaggedValue
}

// ClassAttrs is implemented by a Type whose own attribute namespace (e.g.
// class variables) can be read and written directly when the type itself
// is the load_attr/store_attr owner, distinct from any instance-side slot
// or descriptor LookupDescriptor already covers. A Type that has no such
// namespace simply doesn't implement this interface; Classify treats that
// as "name doesn't resolve directly on the type" and falls through to its
// ordinary instance-style resolution.
type ClassAttrs interface {
	ClassAttr(name string) (TaggedValue, bool)
	SetClassAttr(name string, value TaggedValue) error
}

// Module is the host's module abstraction: a namespace object backed by a
// Dict with a version counter the cache can compare cheaply.
type Module interface {
	Object
	Dict() Dict
	// Version returns the module dict's version tag. Comparing it to a
	// cached value is how load_attr/load_method/load_global detect a
	// "slight miss" without re-walking the dict.
	Version() uint64
}

// DictHolder is implemented by instances whose type may give them an
// instance dict (shared/split or combined). An Object that never
// implements DictHolder is treated as dict-less — typically a
// fixed-slot-only instance.
type DictHolder interface {
	InstanceDict() (Dict, bool)
}

// SlotHolder is implemented by instances that expose fixed-offset slot
// storage, letting the slot fast path read or write a value directly
// without going through Type.DescriptorGet/Set.
type SlotHolder interface {
	Slot(offset int) TaggedValue
	SetSlot(offset int, v TaggedValue) error
}

// Bytecode is the two-byte-unit instruction stream the shadow arena
// rewrites in place.
type Bytecode interface {
	// Len returns the number of two-byte units.
	Len() int
	// At returns the (opcode, arg) pair at ip.
	At(ip int) (opcode byte, arg byte)
	// Patch atomically rewrites the instruction at ip. Safe without
	// additional locking because bytecode execution is single-threaded
	// per interpreter.
	Patch(ip int, opcode byte, arg byte)
}
