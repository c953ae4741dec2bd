package descriptors

import (
	"github.com/chazu/descriptors/heap"
	"github.com/chazu/descriptors/property"
)

// FieldType constrains what an in-object field may hold. It is Any, None, or
// a class naming the shape every stored value must have.
type FieldType heap.Value

var (
	// FieldTypeAny is the unconstrained type and the placeholder value of
	// every unused record.
	FieldTypeAny = FieldType(heap.FromSmallInt(1))

	// FieldTypeNone admits no value; a field that was never written.
	FieldTypeNone = FieldType(heap.FromSmallInt(2))
)

// FieldTypeClass returns the type admitting only values of the given shape.
func FieldTypeClass(shape heap.Value) FieldType {
	if !shape.IsReference() {
		panic("FieldTypeClass: not a shape reference")
	}
	return FieldType(shape.Strong())
}

func (t FieldType) IsAny() bool  { return t == FieldTypeAny }
func (t FieldType) IsNone() bool { return t == FieldTypeNone }

// IsClass reports whether t names a shape.
func (t FieldType) IsClass() bool { return heap.Value(t).IsRef() }

// Class returns the shape t names. Only valid if IsClass.
func (t FieldType) Class() heap.Value { return heap.Value(t) }

func (t FieldType) String() string {
	switch {
	case t.IsAny():
		return "Any"
	case t.IsNone():
		return "None"
	default:
		return "Class(" + heap.Value(t).String() + ")"
	}
}

// WrapFieldType converts t to the form stored in a value slot. A class is
// held weakly so the constraint never keeps its shape alive.
func WrapFieldType(t FieldType) heap.Value {
	if t.IsClass() {
		return heap.Value(t).Weak()
	}
	return heap.Value(t)
}

// UnwrapFieldType decodes a value slot. A slot the collector cleared reads
// as Any.
func UnwrapFieldType(v heap.Value) FieldType {
	switch {
	case v.IsCleared():
		return FieldTypeAny
	case v.IsWeak():
		return FieldType(v.Strong())
	}
	return FieldType(v)
}

// Descriptor is one record to be placed in a table.
type Descriptor struct {
	Key     heap.Value
	Value   heap.Value
	Details property.Details
}

// DataField describes an in-object field. The value slot holds its type.
func DataField(key heap.Value, fieldIndex int, attrs property.Attributes,
	constness property.Constness, r property.Representation, t FieldType) Descriptor {
	return Descriptor{
		Key:     key,
		Value:   WrapFieldType(t),
		Details: property.NewDataField(attrs, constness, r, fieldIndex),
	}
}

// DataConstant describes a data property whose value lives in the record.
func DataConstant(key, value heap.Value, attrs property.Attributes) Descriptor {
	return Descriptor{
		Key:     key,
		Value:   value,
		Details: property.NewDataConstant(attrs),
	}
}

// AccessorConstant describes an accessor property. accessor is usually an
// AccessorPair reference.
func AccessorConstant(key, accessor heap.Value, attrs property.Attributes) Descriptor {
	return Descriptor{
		Key:     key,
		Value:   accessor,
		Details: property.NewAccessorConstant(attrs),
	}
}

// AccessorPair holds a getter and a setter. Either may be Undefined.
type AccessorPair struct {
	Getter heap.Value
	Setter heap.Value
}

const accessorPairSize = 2 * TaggedSize

func (p *AccessorPair) Kind() string { return "AccessorPair" }

func (p *AccessorPair) Trace(m *heap.Marker) {
	m.MarkValue(p.Getter)
	m.MarkValue(p.Setter)
}

// NewAccessorPair allocates a pair. Its fields are fixed once allocated.
func (rt *Runtime) NewAccessorPair(getter, setter heap.Value) heap.Value {
	return rt.heap.Allocate(&AccessorPair{Getter: getter, Setter: setter}, accessorPairSize)
}

// isAccessorPair reports whether v is a strong reference to an AccessorPair.
func (rt *Runtime) isAccessorPair(v heap.Value) bool {
	if !v.IsRef() {
		return false
	}
	_, ok := rt.heap.Resolve(v).(*AccessorPair)
	return ok
}
