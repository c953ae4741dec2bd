package descriptors

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chazu/descriptors/heap"
	"github.com/chazu/descriptors/property"
)

func TestCopyUpToEveryPrefix(t *testing.T) {
	rt := newRuntime(t)
	src := buildTable(t, rt, 0, names(12)...)

	for n := 0; n <= src.NumberOfDescriptors(); n++ {
		for _, slack := range []int{0, 2} {
			dst := rt.CopyUpTo(src, n, slack)
			require.Equal(t, n, dst.NumberOfDescriptors())
			require.Equal(t, n+slack, dst.NumberOfAllDescriptors())
			require.True(t, dst.IsEqualUpTo(src, n), "n=%d slack=%d", n, slack)
			require.NoError(t, dst.Verify(), "n=%d slack=%d", n, slack)
			if n+slack == 0 {
				require.Same(t, rt.EmptyDescriptorArray(), dst)
			} else {
				require.NotSame(t, src, dst)
			}
		}
	}
}

func TestCopyUpToTruncatedIsSearchable(t *testing.T) {
	rt := newRuntime(t)
	src := buildTable(t, rt, 0, names(20)...)
	dst := rt.CopyUpTo(src, 10, 0)

	require.Equal(t, 9, dst.Search(rt.Intern("p9"), 10))
	require.Equal(t, NotFound, dst.Search(rt.Intern("p15"), 10))
	require.True(t, dst.IsSortedNoDuplicates())
}

func TestCopyUpToAddAttributesReadOnly(t *testing.T) {
	rt := newRuntime(t)
	src := buildTable(t, rt, 0, "x", "y")
	dst := rt.CopyUpToAddAttributes(src, 2, property.ReadOnly, 0)

	for i := 0; i < 2; i++ {
		require.True(t, dst.GetDetails(i).IsReadOnly(), "copy record %d", i)
		require.False(t, src.GetDetails(i).IsReadOnly(), "source record %d", i)
		require.Equal(t, src.GetKey(i), dst.GetKey(i))
		require.Equal(t, src.GetValue(i), dst.GetValue(i))
	}
	require.NoError(t, dst.Verify())
}

func TestCopyUpToAddAttributesExceptions(t *testing.T) {
	rt := newRuntime(t)
	pair := rt.NewAccessorPair(heap.Undefined, heap.Undefined)
	private := rt.Heap().NewPrivateSymbol("secret")

	src := rt.Allocate(0, 4)
	rt.Heap().AddRoot(src.Ref())
	src.Append(AccessorConstant(rt.Intern("acc"), pair, property.None))
	src.Append(DataConstant(private, heap.Null, property.DontEnum))
	src.Append(DataConstant(rt.Intern("data"), heap.Null, property.None))
	src.Append(AccessorConstant(rt.Intern("native"), heap.Null, property.None))
	src.Sort()

	dst := rt.CopyUpToAddAttributes(src, 4, property.Frozen, 0)

	acc := dst.GetDetails(0)
	require.False(t, acc.IsReadOnly(), "read-only never applies to an accessor pair")
	require.False(t, acc.IsConfigurable())

	require.Equal(t, src.GetDetails(1), dst.GetDetails(1), "private keys are untouched")

	require.True(t, dst.GetDetails(2).IsReadOnly())
	require.False(t, dst.GetDetails(2).IsConfigurable())

	// An accessor record without an AccessorPair is treated like data.
	require.True(t, dst.GetDetails(3).IsReadOnly())
}

func TestCopyForFastObjectClone(t *testing.T) {
	rt := newRuntime(t)
	shape := rt.NewShape(rt.EmptyDescriptorArray(), 0)
	rt.Heap().AddRoot(shape.Ref())

	src := rt.Allocate(0, 3)
	rt.Heap().AddRoot(src.Ref())
	src.Append(DataField(rt.Intern("a"), 0, property.DontDelete, property.Const, property.RepresentationSmi, FieldTypeClass(shape.Ref())))
	src.Append(DataConstant(rt.Intern("b"), heap.FromSmallInt(9), property.ReadOnly))
	src.Append(DataField(rt.Intern("c"), 1, property.None, property.Mutable, property.RepresentationDouble, FieldTypeNone))
	src.Sort()

	dst := rt.CopyForFastObjectClone(src, 3, 1)
	require.Equal(t, 3, dst.NumberOfDescriptors())
	require.Equal(t, 1, dst.NumberOfSlackDescriptors())
	for i := 0; i < 3; i++ {
		require.Equal(t, src.GetKey(i), dst.GetKey(i))
		require.Equal(t, property.None, dst.GetDetails(i).Attributes())
		require.Equal(t, property.KindData, dst.GetDetails(i).Kind())
	}
	require.True(t, dst.GetFieldType(0).IsAny())
	require.Equal(t, property.RepresentationTagged, dst.GetDetails(0).Representation())
	require.Equal(t, 0, dst.GetFieldIndex(0))
	require.Equal(t, property.Const, dst.GetDetails(0).Constness())
	require.Equal(t, heap.FromSmallInt(9), dst.GetValue(1))
	require.True(t, dst.GetFieldType(2).IsAny())
	require.Equal(t, 1, dst.GetFieldIndex(2))
	require.NoError(t, dst.Verify())

	// The source keeps its constraints.
	require.True(t, src.GetFieldType(0).IsClass())
}

func TestIsEqualUpTo(t *testing.T) {
	rt := newRuntime(t)
	a := buildTable(t, rt, 0, "x", "y", "z")
	b := buildTable(t, rt, 0, "x", "y", "w")
	require.True(t, a.IsEqualUpTo(b, 2))
	require.False(t, a.IsEqualUpTo(b, 3))
	require.True(t, a.IsEqualUpTo(b, 0))

	c := rt.CopyUpTo(a, 3, 0)
	c.SetValue(1, heap.True)
	require.False(t, a.IsEqualUpTo(c, 3))
}
