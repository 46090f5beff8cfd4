package vm

// ---------------------------------------------------------------------------
// Descriptor: attribute-resolution metadata probed by the shadow cache
// ---------------------------------------------------------------------------
//
// Maggie's VTable/Class dispatch method lookups through a single
// selector-indexed path (see vtable.go); attribute lookups have no
// equivalent because fixed-slot objects resolve instance variables
// structurally, not by descriptor. Descriptor gives the specialization
// dispatcher something to probe when an attribute name doesn't name an
// instance variable: it is the Maggie analogue of a Python class's
// __dict__ entry for a name that implements __get__/__set__.

// DescriptorKind classifies how an attribute name resolves on a type,
// independent of any particular instance.
type DescriptorKind uint8

const (
	// DescrNone means the name is not known on the type at all; resolution
	// falls through to the instance's own dict, if any.
	DescrNone DescriptorKind = iota
	// DescrSlot means the attribute lives at a fixed offset in every
	// instance (an instance variable or a C-level slot equivalent).
	DescrSlot
	// DescrData means the descriptor defines both Get and Set and
	// therefore shadows anything in the instance dict (a data descriptor).
	DescrData
	// DescrNonData means the descriptor defines only Get (typically a
	// method); the instance dict, if present, takes priority over it.
	DescrNonData
	// DescrMethod is DescrNonData's callable case specifically reached via
	// LOAD_METHOD — a plain unbound function found on the type.
	DescrMethod
)

// Descriptor is the resolved shape of a name on a type, as returned by
// Class.FindDescriptor.
type Descriptor struct {
	Kind DescriptorKind

	// Offset is the slot index for DescrSlot.
	Offset int

	// Get/Set implement descriptor protocol for DescrData/DescrNonData.
	// A nil Set means the descriptor is non-data even if Kind is reported
	// as DescrData by a stale caller (callers should trust Kind).
	Get func(instance Value, owner *Class) Value
	Set func(instance Value, value Value) error

	// Value is the raw callable/value for DescrMethod and for simple
	// function-valued class attributes.
	Value Value
}

// NewMethodDescriptor returns a descriptor for an unbound method value,
// usable via LOAD_METHOD.
func NewMethodDescriptor(fn Value) *Descriptor {
	return &Descriptor{Kind: DescrMethod, Value: fn}
}

// NewNonDataDescriptor returns a descriptor with get-only behavior that
// does not shadow an instance dict entry of the same name.
func NewNonDataDescriptor(get func(Value, *Class) Value) *Descriptor {
	return &Descriptor{Kind: DescrNonData, Get: get}
}

// IsData reports whether the descriptor shadows instance dict entries.
func (d *Descriptor) IsData() bool {
	return d != nil && d.Kind == DescrData
}
