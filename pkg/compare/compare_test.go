package compare

import (
	"testing"

	"github.com/deadsy/sdfx/sdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/toponame/pkg/kernel"
)

func face(i int) kernel.Subshape   { return kernel.Subshape{Kind: kernel.KindFace, Index: i} }
func edge(i int) kernel.Subshape   { return kernel.Subshape{Kind: kernel.KindEdge, Index: i} }
func vertex(i int) kernel.Subshape { return kernel.Subshape{Kind: kernel.KindVertex, Index: i} }

func TestEqualSameIdentity(t *testing.T) {
	box, err := kernel.NewBox(1, 1, 1)
	require.NoError(t, err)
	sub := box.Extract(face(0))

	c := New()
	assert.True(t, c.Equal(box, face(0), sub, face(0)))
	assert.False(t, c.Equal(box, face(1), sub, face(0)))
}

func TestEqualKindMismatch(t *testing.T) {
	box, err := kernel.NewBox(1, 1, 1)
	require.NoError(t, err)
	assert.False(t, New().Equal(box, vertex(0), box, edge(0)))
}

func TestEqualOutOfRange(t *testing.T) {
	box, err := kernel.NewBox(1, 1, 1)
	require.NoError(t, err)
	assert.False(t, New().Equal(box, face(0), box, face(42)))
}

func TestEqualRebuiltGeometry(t *testing.T) {
	a, err := kernel.NewBox(2, 3, 4)
	require.NoError(t, err)
	b, err := kernel.NewBox(2, 3, 4)
	require.NoError(t, err)

	c := New()
	for _, sub := range a.Subshapes() {
		assert.True(t, c.Equal(a, sub, b, sub), "%v should match its rebuilt twin", sub)
	}
	// Opposite faces of a box are parallel but distinct.
	assert.False(t, c.Equal(a, face(0), b, face(1)))
	assert.False(t, c.Equal(a, vertex(0), b, vertex(7)))
}

func TestEqualAfterTransform(t *testing.T) {
	a, err := kernel.NewBox(1, 1, 1)
	require.NoError(t, err)
	moved, _ := a.Transform(sdf.Translate3d(kernel.Vec{X: 1e-3}))
	back, _ := moved.Transform(sdf.Translate3d(kernel.Vec{X: -1e-3}))

	c := New()
	assert.False(t, c.Equal(a, face(0), moved, face(0)))
	assert.True(t, c.Equal(a, face(0), back, face(0)))
}

func TestToleranceIsTunable(t *testing.T) {
	a, err := kernel.NewBox(1, 1, 1)
	require.NoError(t, err)
	moved, _ := a.Transform(sdf.Translate3d(kernel.Vec{X: 1e-3}))

	c := New()
	c.Tolerance = 1e-2
	assert.True(t, c.Equal(a, vertex(0), moved, vertex(0)))
	assert.True(t, c.Equal(a, face(0), moved, face(0)))
}

func TestEqualEdgesClosedness(t *testing.T) {
	circle := kernel.Circle{XAxis: kernel.Vec{X: 1}, YAxis: kernel.Vec{Y: 1}, Radius: 1}
	closed := kernel.Edge{Curve: circle, Last: 3.14159, Vertices: [2]int{0, 0}}
	open := kernel.Edge{Curve: circle, Last: 3.14159, Vertices: [2]int{0, 1}}
	c := New()
	assert.True(t, c.EqualEdges(closed, closed))
	assert.False(t, c.EqualEdges(closed, open))
}

func TestEqualEdgesCurveKind(t *testing.T) {
	line, length := kernel.NewSegment(kernel.Vec{}, kernel.Vec{X: 1})
	bez := kernel.Bezier{Poles: []kernel.Vec{{}, {X: 1}}}
	a := kernel.Edge{Curve: line, Last: length, Vertices: [2]int{0, 1}}
	b := kernel.Edge{Curve: bez, Last: 1, Vertices: [2]int{0, 1}}
	assert.False(t, New().EqualEdges(a, b))
}

func TestEqualEdgesBezierDense(t *testing.T) {
	// Cubic Bezier curves differing in one interior pole.
	a := kernel.Edge{Curve: kernel.Bezier{Poles: []kernel.Vec{{}, {X: 1}, {X: 2}, {X: 3}}}, Last: 1, Vertices: [2]int{0, 1}}
	b := kernel.Edge{Curve: kernel.Bezier{Poles: []kernel.Vec{{}, {X: 1, Y: 1e-3}, {X: 2}, {X: 3}}}, Last: 1, Vertices: [2]int{0, 1}}
	assert.False(t, New().EqualEdges(a, b))
	assert.True(t, New().EqualEdges(a, a))
}

func TestEqualEdgesBSpline(t *testing.T) {
	mk := func(y float64) kernel.Edge {
		return kernel.Edge{
			Curve: kernel.BSpline{
				Degree: 2,
				Knots:  []float64{0, 0, 0, 1, 1, 1},
				Poles:  []kernel.Vec{{}, {X: 1, Y: y}, {X: 2}},
			},
			Last:     1,
			Vertices: [2]int{0, 1},
		}
	}
	c := New()
	assert.True(t, c.EqualEdges(mk(1), mk(1)))
	assert.False(t, c.EqualEdges(mk(1), mk(1+1e-4)))
}

func TestEqualFacesSurfaceClosedness(t *testing.T) {
	cyl, err := kernel.NewCylinder(2, 1)
	require.NoError(t, err)
	sph, err := kernel.NewSphere(1)
	require.NoError(t, err)
	c := New()
	// Lateral cylinder face vs planar cap.
	assert.False(t, c.Equal(cyl, face(0), cyl, face(1)))
	assert.False(t, c.Equal(cyl, face(0), sph, face(0)))
}

func TestSamplesFloor(t *testing.T) {
	c := Comparator{Tolerance: 1e-7, Samples: 0, DenseSamples: 1}
	assert.Equal(t, 2, c.samples(false))
	assert.Equal(t, 2, c.samples(true))
}

func TestEqualEdgesReversed(t *testing.T) {
	p, q := kernel.Vec{X: 1, Y: 2}, kernel.Vec{X: 4, Y: 6}
	fwd, n := kernel.NewSegment(p, q)
	rev, _ := kernel.NewSegment(q, p)
	a := kernel.Edge{Curve: fwd, Last: n, Vertices: [2]int{0, 1}}
	b := kernel.Edge{Curve: rev, Last: n, Vertices: [2]int{1, 0}}
	c := New()
	assert.True(t, c.EqualEdges(a, b))
	assert.True(t, c.EqualEdges(b, a))

	bezA := kernel.Edge{Curve: kernel.Bezier{Poles: []kernel.Vec{{}, {X: 1, Y: 1}, {X: 3}}}, Last: 1, Vertices: [2]int{0, 1}}
	bezB := kernel.Edge{Curve: kernel.Bezier{Poles: []kernel.Vec{{X: 3}, {X: 1, Y: 1}, {}}}, Last: 1, Vertices: [2]int{1, 0}}
	assert.True(t, c.EqualEdges(bezA, bezB))

	short, m := kernel.NewSegment(q, kernel.Vec{X: 2, Y: 3})
	partial := kernel.Edge{Curve: short, Last: m, Vertices: [2]int{1, 2}}
	assert.False(t, c.EqualEdges(a, partial))
}

func TestEqualReversedEdgeInShape(t *testing.T) {
	box, err := kernel.NewBox(1, 1, 1)
	require.NoError(t, err)
	e := box.Edges[0]
	p0, p1 := box.Vertices[e.Vertices[0]].Point, box.Vertices[e.Vertices[1]].Point
	line, n := kernel.NewSegment(p1, p0)

	other := &kernel.Shape{
		Vertices: []kernel.Vertex{{ID: kernel.NewTShapeID(), Point: p1}, {ID: kernel.NewTShapeID(), Point: p0}},
		Edges:    []kernel.Edge{{ID: kernel.NewTShapeID(), Curve: line, Last: n, Vertices: [2]int{0, 1}}},
	}
	assert.True(t, New().Equal(box, edge(0), other, edge(0)))
}
