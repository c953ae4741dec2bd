package property

// Representation is the storage hint for a field's value. Representations
// form a chain None < Smi < Double < Tagged and None < HeapObject < Tagged;
// generalizing only ever moves up.
type Representation uint8

const (
	RepresentationNone Representation = iota
	RepresentationSmi
	RepresentationDouble
	RepresentationHeapObject
	RepresentationTagged
)

// Mnemonic is the one-letter form used in table dumps.
func (r Representation) Mnemonic() string {
	switch r {
	case RepresentationNone:
		return "v"
	case RepresentationSmi:
		return "s"
	case RepresentationDouble:
		return "d"
	case RepresentationHeapObject:
		return "h"
	case RepresentationTagged:
		return "t"
	}
	return "?"
}
