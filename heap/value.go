package heap

import (
	"fmt"
	"math"
)

// Value is one tagged slot of the managed heap, NaN-boxed into 64 bits.
//
// All values are represented as 64-bit IEEE 754 doubles. Non-float values
// are encoded in the NaN space using the quiet NaN prefix and tag bits.
//
// Encoding scheme:
//   - Float: native IEEE 754 double (if not one of our NaNs, it's a float)
//   - SmallInt: quiet NaN + tagInt + 48-bit signed payload
//   - Ref: quiet NaN + tagRef + 16-bit generation + 32-bit handle
//   - Weak: quiet NaN + tagWeak + 16-bit generation + 32-bit handle
//   - Special: quiet NaN + tagSpecial + special value ID
//
// A zero word decodes as the float 0.0, never as a reference, so memory that
// was never written cannot be mistaken for a live key.
type Value uint64

// NaN-boxing constants
const (
	// Quiet NaN prefix: exponent all 1s, quiet bit set, sign bit 0
	nanBits uint64 = 0x7FF8000000000000

	// Tag mask: 3 bits within the NaN mantissa space
	tagMask uint64 = 0x0007000000000000

	// Payload mask: 48 bits for handle/int/id
	payloadMask uint64 = 0x0000FFFFFFFFFFFF

	tagRef     uint64 = 0x0001000000000000 // strong heap reference
	tagInt     uint64 = 0x0002000000000000 // 48-bit signed integer
	tagSpecial uint64 = 0x0003000000000000 // undefined, null, true, false, cleared
	tagWeak    uint64 = 0x0004000000000000 // weak heap reference

	intSignBit    uint64 = 0x0000800000000000
	intSignExtend uint64 = 0xFFFF000000000000

	handleMask     uint64 = 0x00000000FFFFFFFF
	generationMask uint64 = 0x0000FFFF00000000
	generationShift       = 32
)

// Special value payloads
const (
	specialUndefined uint64 = 0
	specialNull      uint64 = 1
	specialTrue      uint64 = 2
	specialFalse     uint64 = 3
	specialCleared   uint64 = 4
)

// Pre-defined special values
const (
	Undefined Value = Value(nanBits | tagSpecial | specialUndefined)
	Null      Value = Value(nanBits | tagSpecial | specialNull)
	True      Value = Value(nanBits | tagSpecial | specialTrue)
	False     Value = Value(nanBits | tagSpecial | specialFalse)

	// Cleared is what the collector leaves in a weak slot whose target died.
	Cleared Value = Value(nanBits | tagSpecial | specialCleared)
)

// SmallInt range (48-bit signed)
const (
	MaxSmallInt int64 = (1 << 47) - 1
	MinSmallInt int64 = -(1 << 47)
)

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// IsFloat returns true if v represents a float64 value.
// Infinities and untagged NaNs are floats too.
func (v Value) IsFloat() bool {
	bits := uint64(v)
	if (bits & 0x7FF0000000000000) != 0x7FF0000000000000 {
		return true
	}
	if bits&0x000FFFFFFFFFFFFF == 0 {
		return true // +Inf / -Inf
	}
	if (bits & nanBits) != nanBits {
		return true // signaling NaN
	}
	return bits&tagMask == 0
}

// IsSmallInt returns true if v represents a small integer.
func (v Value) IsSmallInt() bool {
	return (uint64(v) & (nanBits | tagMask)) == (nanBits | tagInt)
}

// IsRef returns true if v is a strong heap reference.
func (v Value) IsRef() bool {
	return (uint64(v) & (nanBits | tagMask)) == (nanBits | tagRef)
}

// IsWeak returns true if v is a weak heap reference.
func (v Value) IsWeak() bool {
	return (uint64(v) & (nanBits | tagMask)) == (nanBits | tagWeak)
}

// IsReference returns true for both strong and weak references.
func (v Value) IsReference() bool {
	return v.IsRef() || v.IsWeak()
}

// IsSpecial returns true if v is one of the special constants.
func (v Value) IsSpecial() bool {
	return (uint64(v) & (nanBits | tagMask)) == (nanBits | tagSpecial)
}

// IsCleared returns true if v is a weak slot the collector has cleared.
func (v Value) IsCleared() bool {
	return v == Cleared
}

// IsWellFormed reports whether v decodes as one of the known encodings.
// Scanners use it to prove they never see a torn or unwritten slot.
func (v Value) IsWellFormed() bool {
	switch {
	case v.IsFloat(), v.IsSmallInt():
		return true
	case v.IsRef(), v.IsWeak():
		return true
	case v.IsSpecial():
		return uint64(v)&payloadMask <= specialCleared
	}
	return false
}

// ---------------------------------------------------------------------------
// Floats and small integers
// ---------------------------------------------------------------------------

// Float64 returns v as a float64.
// Panics if v is not a float.
func (v Value) Float64() float64 {
	if !v.IsFloat() {
		panic("Value.Float64: not a float")
	}
	return math.Float64frombits(uint64(v))
}

// FromFloat64 creates a Value from a float64.
func FromFloat64(f float64) Value {
	return Value(math.Float64bits(f))
}

// SmallInt returns v as an int64.
// Panics if v is not a small integer.
func (v Value) SmallInt() int64 {
	if !v.IsSmallInt() {
		panic("Value.SmallInt: not a small integer")
	}
	payload := uint64(v) & payloadMask
	if (payload & intSignBit) != 0 {
		payload |= intSignExtend
	}
	return int64(payload)
}

// FromSmallInt creates a Value from an int64.
// Panics if n is outside the SmallInt range.
func FromSmallInt(n int64) Value {
	if n > MaxSmallInt || n < MinSmallInt {
		panic("FromSmallInt: value out of range")
	}
	return Value(nanBits | tagInt | (uint64(n) & payloadMask))
}

// ---------------------------------------------------------------------------
// References
// ---------------------------------------------------------------------------

func makeRef(tag uint64, handle uint32, gen uint16) Value {
	return Value(nanBits | tag | uint64(gen)<<generationShift | uint64(handle))
}

// Handle returns the object table index of a strong or weak reference.
func (v Value) Handle() uint32 {
	if !v.IsReference() {
		panic("Value.Handle: not a reference")
	}
	return uint32(uint64(v) & handleMask)
}

func (v Value) generation() uint16 {
	return uint16((uint64(v) & generationMask) >> generationShift)
}

// Weak returns the weak form of a strong reference. Weak references are
// returned unchanged.
func (v Value) Weak() Value {
	switch {
	case v.IsWeak():
		return v
	case v.IsRef():
		return Value((uint64(v) &^ tagMask) | tagWeak)
	}
	panic("Value.Weak: not a reference")
}

// Strong returns the strong form of a weak reference. The caller must know
// the target is still alive (see Heap.Resolve).
func (v Value) Strong() Value {
	switch {
	case v.IsRef():
		return v
	case v.IsWeak():
		return Value((uint64(v) &^ tagMask) | tagRef)
	}
	panic("Value.Strong: not a reference")
}

// SameTarget reports whether two references point at the same object,
// ignoring strength.
func (v Value) SameTarget(other Value) bool {
	if !v.IsReference() || !other.IsReference() {
		return false
	}
	return (uint64(v) &^ tagMask) == (uint64(other) &^ tagMask)
}

// FromBool returns True or False.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// String renders v without consulting a heap.
func (v Value) String() string {
	switch {
	case v.IsSmallInt():
		return fmt.Sprintf("%d", v.SmallInt())
	case v.IsRef():
		return fmt.Sprintf("#<ref %d.%d>", v.Handle(), v.generation())
	case v.IsWeak():
		return fmt.Sprintf("#<weak %d.%d>", v.Handle(), v.generation())
	case v == Undefined:
		return "undefined"
	case v == Null:
		return "null"
	case v == True:
		return "true"
	case v == False:
		return "false"
	case v == Cleared:
		return "#<cleared>"
	case v.IsFloat():
		return fmt.Sprintf("%g", v.Float64())
	}
	return fmt.Sprintf("#<bad %#x>", uint64(v))
}
