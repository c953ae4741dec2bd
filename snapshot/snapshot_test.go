package snapshot

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chazu/descriptors/descriptors"
	"github.com/chazu/descriptors/heap"
	"github.com/chazu/descriptors/property"
)

func buildTable(t *testing.T, padding ...string) (*descriptors.Runtime, *descriptors.DescriptorArray) {
	t.Helper()
	rt, err := descriptors.NewRuntime(nil)
	require.NoError(t, err)
	for _, p := range padding {
		rt.Intern(p)
	}

	a := rt.Allocate(0, 4)
	rt.Heap().AddRoot(a.Ref())
	a.Append(descriptors.DataField(rt.Intern("x"), 0, property.None, property.Mutable,
		property.RepresentationSmi, descriptors.FieldTypeAny))
	a.Append(descriptors.DataConstant(rt.Intern("y"), rt.Intern("hello"), property.ReadOnly))
	a.Append(descriptors.AccessorConstant(rt.Heap().NewSymbol("tag"),
		rt.NewAccessorPair(heap.Undefined, heap.Undefined), property.DontEnum))
	a.Sort()
	rt.BuildEnumCache(a, a.NumberOfDescriptors())
	return rt, a
}

func TestFromArray(t *testing.T) {
	rt, a := buildTable(t)
	s := FromArray(rt, a)

	require.Equal(t, 4, s.Capacity)
	require.Equal(t, 3, s.Count)
	require.Len(t, s.Records, 3)
	require.Len(t, s.SortOrder, 3)
	require.Equal(t, []string{"x", "y"}, s.EnumKeys)

	x, ok := s.Lookup("x")
	require.True(t, ok)
	require.Equal(t, KindFieldType, x.ValueKind)
	require.Equal(t, "Any", x.Value)

	y, ok := s.Lookup("y")
	require.True(t, ok)
	require.Equal(t, KindName, y.ValueKind)
	require.Equal(t, `"hello"`, y.Value)
	require.Contains(t, y.DetailsText, "attrs: [_EC]")

	require.True(t, s.Records[2].Symbol)
	require.Equal(t, KindObject, s.Records[2].ValueKind)
	require.Equal(t, "AccessorPair", s.Records[2].Value)

	_, ok = s.Lookup("tag")
	require.False(t, ok, "symbols are not found by string name")
}

func TestMarshalRoundTrip(t *testing.T) {
	rt, a := buildTable(t)
	s := FromArray(rt, a)

	data, err := Marshal(s)
	require.NoError(t, err)
	got, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, s, got)

	again, err := Marshal(got)
	require.NoError(t, err)
	require.Equal(t, data, again, "canonical encoding is deterministic")
}

func TestUnmarshalRejects(t *testing.T) {
	_, err := Unmarshal([]byte{0xff, 0x00})
	require.Error(t, err)

	data, err := Marshal(&Table{Version: Version + 1})
	require.NoError(t, err)
	_, err = Unmarshal(data)
	require.Error(t, err)
}

func TestDigestIgnoresHandles(t *testing.T) {
	rt1, a1 := buildTable(t)
	rt2, a2 := buildTable(t, "shift", "every", "handle")
	require.NotEqual(t, a1.RawBytes(), a2.RawBytes())

	s1 := FromArray(rt1, a1)
	s2 := FromArray(rt2, a2)
	require.Equal(t, s1.Digest, s2.Digest)

	rt2.Heap().Collect()
	require.Equal(t, s1.Digest, FromArray(rt2, a2).Digest, "the marked count is not part of the digest")

	a2.SetValue(1, heap.True)
	require.NotEqual(t, s1.Digest, FromArray(rt2, a2).Digest)
}

func TestUnmarshalRejectsDigestMismatch(t *testing.T) {
	rt, a := buildTable(t)
	s := FromArray(rt, a)
	s.Records[0].Value = "tampered"

	data, err := Marshal(s)
	require.NoError(t, err)
	_, err = Unmarshal(data)
	require.ErrorContains(t, err, "digest mismatch")
}
