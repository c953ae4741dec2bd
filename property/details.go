// Package property encodes the per-record details word of a descriptor
// table: what kind of property a record describes, where its value lives,
// its attributes and representation, and its position in both orderings.
package property

import (
	"fmt"
	"strings"
)

// Kind distinguishes data properties from accessor properties.
type Kind uint8

const (
	KindData Kind = iota
	KindAccessor
)

// Location says where a property's value lives.
type Location uint8

const (
	// LocationField values live in an object field; the record's value slot
	// holds a field type.
	LocationField Location = iota
	// LocationDescriptor values live in the record's value slot itself.
	LocationDescriptor
)

// Constness tracks whether a field has only ever been written once.
type Constness uint8

const (
	Mutable Constness = iota
	Const
)

// Attributes are the property attribute bits.
type Attributes uint8

const (
	None       Attributes = 0
	ReadOnly   Attributes = 1 << 0
	DontEnum   Attributes = 1 << 1
	DontDelete Attributes = 1 << 2

	Sealed       = DontDelete
	Frozen       = Sealed | ReadOnly
	AllAttrsMask = ReadOnly | DontEnum | DontDelete
)

// String renders attributes as a W/E/C triple, an underscore for each
// missing capability.
func (a Attributes) String() string {
	var b strings.Builder
	b.WriteByte(pick(a&ReadOnly == 0, 'W'))
	b.WriteByte(pick(a&DontEnum == 0, 'E'))
	b.WriteByte(pick(a&DontDelete == 0, 'C'))
	return b.String()
}

func pick(ok bool, c byte) byte {
	if ok {
		return c
	}
	return '_'
}

// MaxNumberOfDescriptors is the most records one table can hold. Both the
// sorted-key pointer and the enumeration index must fit in 10 bits.
const MaxNumberOfDescriptors = (1 << 10) - 4

// Bit layout of Details, least significant first.
//
//	[0]      kind
//	[1]      location
//	[2]      constness
//	[3:6]    attributes
//	[6:9]    representation
//	[9:19]   sorted-key pointer
//	[19:29]  field index
//	[29:39]  enumeration index
const (
	kindShift           = 0
	locationShift       = 1
	constnessShift      = 2
	attributesShift     = 3
	representationShift = 6
	pointerShift        = 9
	fieldIndexShift     = 19
	enumIndexShift      = 29

	oneBit    = 0x1
	threeBits = 0x7
	tenBits   = 0x3FF
)

// Details is the packed details word. It is stored in a table as a small
// integer, so all 39 bits must stay within the small-integer payload.
type Details uint64

// Empty is the details word of a placeholder record.
const Empty Details = 0

func (d Details) get(shift uint, mask uint64) uint64 {
	return (uint64(d) >> shift) & mask
}

func (d Details) with(shift uint, mask uint64, v uint64) Details {
	if v > mask {
		panic(fmt.Sprintf("Details: value %d does not fit field at bit %d", v, shift))
	}
	return Details((uint64(d) &^ (mask << shift)) | (v << shift))
}

// NewDataField describes a data property stored in object field fieldIndex.
func NewDataField(attrs Attributes, c Constness, r Representation, fieldIndex int) Details {
	return Empty.
		with(kindShift, oneBit, uint64(KindData)).
		with(locationShift, oneBit, uint64(LocationField)).
		with(constnessShift, oneBit, uint64(c)).
		with(attributesShift, threeBits, uint64(attrs)).
		with(representationShift, threeBits, uint64(r)).
		with(fieldIndexShift, tenBits, uint64(fieldIndex))
}

// NewDataConstant describes a data property whose value is stored in the
// record.
func NewDataConstant(attrs Attributes) Details {
	return Empty.
		with(kindShift, oneBit, uint64(KindData)).
		with(locationShift, oneBit, uint64(LocationDescriptor)).
		with(constnessShift, oneBit, uint64(Const)).
		with(attributesShift, threeBits, uint64(attrs)).
		with(representationShift, threeBits, uint64(RepresentationTagged))
}

// NewAccessorConstant describes an accessor property whose getter/setter
// pair is stored in the record.
func NewAccessorConstant(attrs Attributes) Details {
	return Empty.
		with(kindShift, oneBit, uint64(KindAccessor)).
		with(locationShift, oneBit, uint64(LocationDescriptor)).
		with(constnessShift, oneBit, uint64(Const)).
		with(attributesShift, threeBits, uint64(attrs)).
		with(representationShift, threeBits, uint64(RepresentationTagged))
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (d Details) Kind() Kind { return Kind(d.get(kindShift, oneBit)) }

func (d Details) Location() Location { return Location(d.get(locationShift, oneBit)) }

func (d Details) Constness() Constness { return Constness(d.get(constnessShift, oneBit)) }

func (d Details) Attributes() Attributes {
	return Attributes(d.get(attributesShift, threeBits))
}

func (d Details) Representation() Representation {
	return Representation(d.get(representationShift, threeBits))
}

// Pointer is the physical index of the key that sits at this record's
// position in hash order. It describes the permutation, not this record.
func (d Details) Pointer() int { return int(d.get(pointerShift, tenBits)) }

func (d Details) FieldIndex() int { return int(d.get(fieldIndexShift, tenBits)) }

func (d Details) EnumerationIndex() int { return int(d.get(enumIndexShift, tenBits)) }

func (d Details) IsReadOnly() bool { return d.Attributes()&ReadOnly != 0 }

func (d Details) IsEnumerable() bool { return d.Attributes()&DontEnum == 0 }

func (d Details) IsConfigurable() bool { return d.Attributes()&DontDelete == 0 }

// IsField reports whether this is a data property stored in an object field.
func (d Details) IsField() bool { return d.Location() == LocationField }
