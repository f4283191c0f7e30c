package memory

import (
	"github.com/stretchr/testify/assert"
	"math/rand"
	"testing"
)

// TestIntervals checks interval construction, merging and intersection.
func TestIntervals(t *testing.T) {
	assert.True(t, Range(5, 3).IsEmpty())
	assert.False(t, Point(3).IsEmpty())

	s := Range(1, 3).Union(Range(4, 6)).Union(Point(10))
	assert.Equal(t, "{1..6, 10}", s.String())
	assert.True(t, s.Intersects(Point(5)))
	assert.True(t, s.Intersects(Range(8, 12)))
	assert.False(t, s.Intersects(Range(7, 9)))
	assert.False(t, s.Intersects(Empty))
	assert.True(t, s.Intersects(Top))
	assert.True(t, s.(Intervals).Contains(10))
	assert.False(t, s.(Intervals).Contains(11))

	maxed := Range(^uint64(0)-1, ^uint64(0)).Union(Point(3))
	assert.True(t, maxed.Intersects(Point(^uint64(0))))
}

// TestIntervalsAgainstPoints checks interval unions against explicit point sets.
func TestIntervalsAgainstPoints(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	for round := 0; round < 100; round++ {
		var shape Shape = Empty
		points := make(map[uint64]bool)
		for n := rng.Intn(10); n > 0; n-- {
			lo := uint64(rng.Intn(100))
			hi := lo + uint64(rng.Intn(5))
			shape = shape.Union(Range(lo, hi))
			for v := lo; v <= hi; v++ {
				points[v] = true
			}
		}
		for v := uint64(0); v < 110; v++ {
			assert.EqualValues(t, points[v], shape.Intersects(Point(v)), "value %d in %v", v, shape)
		}
	}
}

// TestLatticeBounds checks the behaviour of the empty and top shapes.
func TestLatticeBounds(t *testing.T) {
	assert.False(t, Empty.Intersects(Top))
	assert.False(t, Top.Intersects(Empty))
	assert.True(t, Top.Intersects(Top))
	assert.Equal(t, Top, Top.Union(Point(1)))
	assert.Equal(t, Point(1), Empty.Union(Point(1)))

	// Shapes of different key spaces are never assumed disjoint.
	assert.True(t, Point(1).Intersects(ConcreteRefShape(2)))
	assert.Equal(t, Top, Point(1).Union(ConcreteRefShape(2)))
}

// TestRefShapes checks that symbolic and concrete references are kept apart.
func TestRefShapes(t *testing.T) {
	one, two := ConcreteRefShape(1), ConcreteRefShape(2)
	assert.False(t, one.Intersects(two))
	assert.True(t, one.Intersects(one.Union(two)))
	assert.False(t, SymbolicRefShape.Intersects(one))
	assert.True(t, SymbolicRefShape.Intersects(SymbolicRefShape))
	assert.True(t, one.Union(SymbolicRefShape).Intersects(SymbolicRefShape))
}

// TestPairShapes checks input key shapes and their conversion to allocated key shapes.
func TestPairShapes(t *testing.T) {
	a := Pair(ConcreteRefShape(1), Range(0, 4))
	b := Pair(ConcreteRefShape(1), Range(5, 9))
	c := Pair(SymbolicRefShape, Range(0, 4))
	assert.False(t, a.Intersects(b))
	assert.False(t, a.Intersects(c))
	assert.True(t, a.Intersects(a.Union(b)))
	assert.Equal(t, Empty, Pair(ConcreteRefShape(1), Empty))

	assert.Equal(t, Range(0, 4), StripRef(a))
	assert.Equal(t, Empty, StripRef(Empty))
	assert.Equal(t, Top, StripRef(Top))
}
