package descriptors

import (
	"github.com/chazu/descriptors/heap"
)

// Shape is a minimal shape descriptor: it owns a view of the first
// NumberOfOwnDescriptors records of a table that may be shared with other
// shapes seeing a different prefix.
type Shape struct {
	self        heap.Value
	descriptors *DescriptorArray
	own         int
}

const shapeSize = 2 * TaggedSize

// NewShape allocates a shape viewing the first own records of table.
func (rt *Runtime) NewShape(table *DescriptorArray, own int) *Shape {
	dcheck(own >= 0 && own <= table.NumberOfDescriptors(),
		"Shape: %d own descriptors in a table of %d", own, table.NumberOfDescriptors())
	s := &Shape{descriptors: table, own: own}
	s.self = rt.heap.Allocate(s, shapeSize)
	return s
}

func (s *Shape) Kind() string { return "Shape" }

func (s *Shape) Trace(m *heap.Marker) {
	m.MarkValue(s.descriptors.self)
}

// Ref returns the heap reference to s.
func (s *Shape) Ref() heap.Value { return s.self }

// Descriptors returns the table s views.
func (s *Shape) Descriptors() *DescriptorArray { return s.descriptors }

// NumberOfOwnDescriptors is the length of the prefix s owns.
func (s *Shape) NumberOfOwnDescriptors() int { return s.own }

// SetNumberOfOwnDescriptors grows or shrinks the owned prefix.
func (s *Shape) SetNumberOfOwnDescriptors(n int) {
	dcheck(n >= 0 && n <= s.descriptors.NumberOfDescriptors(),
		"Shape.SetNumberOfOwnDescriptors: %d outside [0, %d]", n, s.descriptors.NumberOfDescriptors())
	s.own = n
}

// SearchInShape finds name among the records shape owns.
func (a *DescriptorArray) SearchInShape(name heap.Value, shape *Shape) int {
	dcheck(shape.descriptors == a, "DescriptorArray.SearchInShape: shape views another table")
	return a.Search(name, shape.own)
}
