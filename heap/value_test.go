package heap

import (
	"math"
	"testing"
)

// ---------------------------------------------------------------------------
// Floats and small integers
// ---------------------------------------------------------------------------

func TestFloatRoundTrip(t *testing.T) {
	tests := []float64{0, -0.5, 1.25, math.MaxFloat64, math.Inf(1), math.Inf(-1)}
	for _, f := range tests {
		v := FromFloat64(f)
		if !v.IsFloat() {
			t.Errorf("FromFloat64(%g).IsFloat() = false", f)
			continue
		}
		if got := v.Float64(); got != f {
			t.Errorf("Float64() = %g, want %g", got, f)
		}
	}
}

func TestRealNaNIsFloat(t *testing.T) {
	v := FromFloat64(math.NaN())
	if !v.IsFloat() {
		t.Error("a real NaN should decode as a float")
	}
	if v.IsSmallInt() || v.IsReference() || v.IsSpecial() {
		t.Error("a real NaN should not decode as a tagged value")
	}
}

func TestSmallIntRoundTrip(t *testing.T) {
	tests := []int64{0, 1, -1, 42, MaxSmallInt, MinSmallInt}
	for _, n := range tests {
		v := FromSmallInt(n)
		if !v.IsSmallInt() {
			t.Errorf("FromSmallInt(%d).IsSmallInt() = false", n)
			continue
		}
		if got := v.SmallInt(); got != n {
			t.Errorf("SmallInt() = %d, want %d", got, n)
		}
		if v.IsFloat() {
			t.Errorf("FromSmallInt(%d) also decodes as float", n)
		}
	}
}

func TestFromSmallIntOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for out of range SmallInt")
		}
	}()
	FromSmallInt(MaxSmallInt + 1)
}

// ---------------------------------------------------------------------------
// References
// ---------------------------------------------------------------------------

func TestReferenceStrength(t *testing.T) {
	strong := makeRef(tagRef, 7, 3)
	weak := strong.Weak()

	if !strong.IsRef() || strong.IsWeak() {
		t.Error("strong reference misclassified")
	}
	if !weak.IsWeak() || weak.IsRef() {
		t.Error("weak reference misclassified")
	}
	if weak.Handle() != 7 || weak.generation() != 3 {
		t.Errorf("weak handle = %d.%d, want 7.3", weak.Handle(), weak.generation())
	}
	if weak.Strong() != strong {
		t.Error("Strong(Weak(v)) should round-trip")
	}
	if !strong.SameTarget(weak) {
		t.Error("strong and weak forms should share a target")
	}
	if strong.SameTarget(makeRef(tagRef, 7, 4)) {
		t.Error("different generations are different targets")
	}
}

func TestWellFormed(t *testing.T) {
	good := []Value{Undefined, Null, True, False, Cleared, FromSmallInt(9), FromFloat64(2.5), makeRef(tagRef, 1, 0), makeRef(tagWeak, 1, 0)}
	for _, v := range good {
		if !v.IsWellFormed() {
			t.Errorf("%v should be well-formed", v)
		}
	}

	bad := Value(nanBits | tagSpecial | 99)
	if bad.IsWellFormed() {
		t.Error("unknown special payload should not be well-formed")
	}
	unknownTag := Value(nanBits | 0x0007000000000000)
	if unknownTag.IsWellFormed() {
		t.Error("unknown tag should not be well-formed")
	}
}

func TestZeroWordIsNotAReference(t *testing.T) {
	var v Value
	if v.IsReference() || v.IsSmallInt() {
		t.Error("an unwritten word must not decode as a reference or small integer")
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Undefined, "undefined"},
		{Cleared, "#<cleared>"},
		{FromSmallInt(-3), "-3"},
		{makeRef(tagWeak, 5, 1), "#<weak 5.1>"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
