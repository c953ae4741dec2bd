package property

import "fmt"

// WithPointer returns d with the sorted-key pointer replaced.
func (d Details) WithPointer(i int) Details {
	return d.with(pointerShift, tenBits, uint64(i))
}

// WithEnumerationIndex returns d with the enumeration index replaced.
func (d Details) WithEnumerationIndex(i int) Details {
	return d.with(enumIndexShift, tenBits, uint64(i))
}

// WithAttributes returns d with the attribute bits replaced.
func (d Details) WithAttributes(a Attributes) Details {
	return d.with(attributesShift, threeBits, uint64(a))
}

// CopyAddAttributes returns d with extra attribute bits set. Existing bits
// are never cleared.
func (d Details) CopyAddAttributes(a Attributes) Details {
	return d.WithAttributes(d.Attributes() | (a & AllAttrsMask))
}

// CopyWithRepresentation returns d with the representation replaced.
func (d Details) CopyWithRepresentation(r Representation) Details {
	return d.with(representationShift, threeBits, uint64(r))
}

// CopyWithConstness returns d with the constness replaced.
func (d Details) CopyWithConstness(c Constness) Details {
	return d.with(constnessShift, oneBit, uint64(c))
}

// EqualIgnoringPointer compares two details words without the sorted-key
// pointer, which only reflects the permutation of the table holding them.
func (d Details) EqualIgnoringPointer(other Details) bool {
	mask := ^(uint64(tenBits) << pointerShift)
	return uint64(d)&mask == uint64(other)&mask
}

// String prints d the way table dumps show it, e.g.
// "data field 3:t, p: 1, attrs: [W_C]".
func (d Details) String() string {
	kind := "data"
	if d.Kind() == KindAccessor {
		kind = "accessor"
	}
	if d.Location() == LocationField {
		c := ""
		if d.Constness() == Const {
			c = "const "
		}
		return fmt.Sprintf("%s %sfield %d:%s, p: %d, attrs: [%s]",
			kind, c, d.FieldIndex(), d.Representation().Mnemonic(), d.Pointer(), d.Attributes())
	}
	return fmt.Sprintf("%s descriptor, p: %d, attrs: [%s]", kind, d.Pointer(), d.Attributes())
}

// ToSmallInt returns d as stored in a record's details slot. The packed word
// always fits a small integer.
func (d Details) ToSmallInt() int64 { return int64(d) }

// FromSmallInt decodes a details slot.
func FromSmallInt(n int64) Details { return Details(n) }
