package descriptors

// Byte layout of a descriptor array. The collector and generated fast paths
// read these offsets directly, so they are part of the contract.
//
//	Header:
//	  [0:2]   number of all descriptors (capacity, including slack)
//	  [2:4]   number of descriptors (active count)
//	  [4:6]   number of marked descriptors (owned by the collector)
//	  [6:8]   alignment filler
//	  [8:16]  enum cache reference
//	Elements:
//	  [HeaderSize + i*EntrySize*TaggedSize + 0]:  key of descriptor i
//	  [HeaderSize + i*EntrySize*TaggedSize + 8]:  details of descriptor i
//	  [HeaderSize + i*EntrySize*TaggedSize + 16]: value or field type of descriptor i
//	Slack:
//	  [HeaderSize + number of descriptors*EntrySize*TaggedSize]: start of slack
//
// The 16-bit fields share the first tagged word, little-endian.
const (
	TaggedSize = 8

	NumberOfAllDescriptorsOffset    = 0
	NumberOfDescriptorsOffset       = 2
	NumberOfMarkedDescriptorsOffset = 4
	Filler16BitsOffset              = 6
	PointersStartOffset             = 8
	EnumCacheOffset                 = PointersStartOffset
	HeaderSize                      = EnumCacheOffset + TaggedSize

	EntryKeyIndex     = 0
	EntryDetailsIndex = 1
	EntryValueIndex   = 2
	EntrySize         = 3

	// NotFound is returned by searches when the name is absent.
	NotFound = -1
)

const (
	headerWord    = 0
	enumCacheWord = EnumCacheOffset / TaggedSize
	headerWords   = HeaderSize / TaggedSize
)

// SizeFor returns the byte size of an array with capacity n.
func SizeFor(n int) int {
	return offset(n * EntrySize)
}

// OffsetOfDescriptorAt returns the byte offset of descriptor i's key.
func OffsetOfDescriptorAt(i int) int {
	return offset(i * EntrySize)
}

// ToKeyIndex converts a descriptor number to its key element index.
func ToKeyIndex(i int) int { return i*EntrySize + EntryKeyIndex }

// ToDetailsIndex converts a descriptor number to its details element index.
func ToDetailsIndex(i int) int { return i*EntrySize + EntryDetailsIndex }

// ToValueIndex converts a descriptor number to its value element index.
func ToValueIndex(i int) int { return i*EntrySize + EntryValueIndex }

func offset(element int) int {
	return HeaderSize + element*TaggedSize
}

// wordOf converts an element index to an index into the backing words.
func wordOf(element int) int {
	return headerWords + element
}
