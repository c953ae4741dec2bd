package descriptors

import (
	"github.com/chazu/descriptors/property"
)

// CopyUpTo returns a new table holding records [0, n) of src verbatim, with
// room for slack more. The copy starts with the empty enumeration cache.
// Like Allocate, the result is unrooted; see Runtime.OpenScope.
func (rt *Runtime) CopyUpTo(src *DescriptorArray, n, slack int) *DescriptorArray {
	return rt.CopyUpToAddAttributes(src, n, property.None, slack)
}

// CopyUpToAddAttributes is CopyUpTo that also adds attrs to every copied
// record. Records keyed by private symbols are copied unchanged, and
// read-only is never added to an accessor record holding an AccessorPair.
func (rt *Runtime) CopyUpToAddAttributes(src *DescriptorArray, n int, attrs property.Attributes, slack int) *DescriptorArray {
	dcheck(n >= 0 && n <= src.NumberOfDescriptors(),
		"DescriptorArray.CopyUpTo: %d records requested from a table of %d", n, src.NumberOfDescriptors())
	if n+slack == 0 {
		return rt.emptyArray
	}

	s := rt.heap.OpenScope()
	defer s.Close()
	dst := rt.Allocate(n, slack)
	if attrs == property.None {
		for i := 0; i < n; i++ {
			dst.copyFrom(i, src)
		}
	} else {
		for i := 0; i < n; i++ {
			key := src.GetKey(i)
			value := src.GetValue(i)
			details := src.GetDetails(i)
			if name := rt.heap.NameOf(key); name == nil || !name.IsPrivate() {
				mask := property.DontDelete | property.DontEnum
				if details.Kind() != property.KindAccessor || !rt.isAccessorPair(value) {
					mask |= property.ReadOnly
				}
				details = details.CopyAddAttributes(attrs & mask)
			}
			dst.Set(i, key, value, details)
		}
	}
	// Pointers copied from a truncated source may name records that were
	// left behind.
	if src.NumberOfDescriptors() != n {
		dst.Sort()
	}
	return dst
}

// CopyForFastObjectClone returns a copy of records [0, n) of src for a
// clone fast path. src must hold only enumerable data records with
// non-private keys. Attributes are reset, and field records become
// unconstrained and tagged so the clone does not inherit field type
// assumptions made after the copy.
func (rt *Runtime) CopyForFastObjectClone(src *DescriptorArray, n, slack int) *DescriptorArray {
	dcheck(n >= 0 && n <= src.NumberOfDescriptors(),
		"DescriptorArray.CopyForFastObjectClone: %d records requested from a table of %d", n, src.NumberOfDescriptors())
	if n+slack == 0 {
		return rt.emptyArray
	}

	s := rt.heap.OpenScope()
	defer s.Close()
	dst := rt.Allocate(n, slack)
	for i := 0; i < n; i++ {
		key := src.GetKey(i)
		details := src.GetDetails(i)
		if debugAssertions {
			name := rt.heap.NameOf(key)
			dcheck(name != nil && !name.IsPrivate(), "DescriptorArray.CopyForFastObjectClone: private key at %d", i)
			dcheck(details.IsEnumerable(), "DescriptorArray.CopyForFastObjectClone: non-enumerable record %d", i)
			dcheck(details.Kind() == property.KindData, "DescriptorArray.CopyForFastObjectClone: accessor record %d", i)
		}

		value := src.GetValue(i)
		r := details.Representation()
		if details.IsField() {
			value = WrapFieldType(FieldTypeAny)
			r = property.RepresentationTagged
		}
		var d property.Details
		if details.IsField() {
			d = property.NewDataField(property.None, details.Constness(), r, details.FieldIndex())
		} else {
			d = property.NewDataConstant(property.None).CopyWithRepresentation(r)
		}
		dst.Set(i, key, value, d.WithEnumerationIndex(details.EnumerationIndex()))
	}
	dst.Sort()
	return dst
}

// IsEqualUpTo reports whether the first n records of a and other hold the
// same keys, values and details. Hash-order pointers are ignored.
func (a *DescriptorArray) IsEqualUpTo(other *DescriptorArray, n int) bool {
	if n > a.NumberOfAllDescriptors() || n > other.NumberOfAllDescriptors() {
		return false
	}
	for i := 0; i < n; i++ {
		if a.GetKey(i) != other.GetKey(i) || a.GetValue(i) != other.GetValue(i) {
			return false
		}
		if !a.GetDetails(i).EqualIgnoringPointer(other.GetDetails(i)) {
			return false
		}
	}
	return true
}
