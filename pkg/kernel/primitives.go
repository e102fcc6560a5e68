package kernel

import (
	"fmt"
	"math"
)

var (
	axisX = Vec{X: 1}
	axisY = Vec{Y: 1}
	axisZ = Vec{Z: 1}
)

// NewBox builds an axis-aligned box with its minimum corner at the origin:
// 8 vertices, 12 line edges and 6 planar faces.
func NewBox(x, y, z float64) (*Shape, error) {
	if x <= 0 || y <= 0 || z <= 0 {
		return nil, fmt.Errorf("box: dimensions must be positive, got %gx%gx%g", x, y, z)
	}
	dims := [3]float64{x, y, z}
	axes := [3]Vec{axisX, axisY, axisZ}
	bit := func(corner, axis int) int { return corner >> axis & 1 }

	s := &Shape{}
	for i := 0; i < 8; i++ {
		p := Vec{
			X: x * float64(bit(i, 0)),
			Y: y * float64(bit(i, 1)),
			Z: z * float64(bit(i, 2)),
		}
		s.Vertices = append(s.Vertices, Vertex{ID: NewTShapeID(), Point: p})
	}

	for i := 0; i < 8; i++ {
		for a := 0; a < 3; a++ {
			if bit(i, a) == 1 {
				continue
			}
			j := i | 1<<a
			line, length := NewSegment(s.Vertices[i].Point, s.Vertices[j].Point)
			s.Edges = append(s.Edges, Edge{
				ID:       NewTShapeID(),
				Curve:    line,
				First:    0,
				Last:     length,
				Vertices: [2]int{i, j},
			})
		}
	}

	for a := 0; a < 3; a++ {
		ua, va := (a+1)%3, (a+2)%3
		for side := 0; side < 2; side++ {
			f := Face{
				ID: NewTShapeID(),
				Surface: Plane{
					Origin: axes[a].MulScalar(dims[a] * float64(side)),
					U:      axes[ua],
					V:      axes[va],
				},
				UMax: dims[ua],
				VMax: dims[va],
			}
			for ei, e := range s.Edges {
				if bit(e.Vertices[0], a) == side && bit(e.Vertices[1], a) == side {
					f.Edges = append(f.Edges, ei)
				}
			}
			s.Faces = append(s.Faces, f)
		}
	}
	return s, nil
}

// NewCylinder builds a cylinder along Z centered at the origin: 2 seam
// vertices, 3 edges (two circles and the seam) and 3 faces.
func NewCylinder(height, radius float64) (*Shape, error) {
	if height <= 0 || radius <= 0 {
		return nil, fmt.Errorf("cylinder: height and radius must be positive, got h=%g r=%g", height, radius)
	}
	bottom := Vec{Z: -height / 2}
	top := Vec{Z: height / 2}

	s := &Shape{
		Vertices: []Vertex{
			{ID: NewTShapeID(), Point: bottom.Add(axisX.MulScalar(radius))},
			{ID: NewTShapeID(), Point: top.Add(axisX.MulScalar(radius))},
		},
	}
	seam, length := NewSegment(s.Vertices[0].Point, s.Vertices[1].Point)
	s.Edges = []Edge{
		{ID: NewTShapeID(), Curve: Circle{Center: bottom, XAxis: axisX, YAxis: axisY, Radius: radius}, Last: 2 * math.Pi, Vertices: [2]int{0, 0}},
		{ID: NewTShapeID(), Curve: Circle{Center: top, XAxis: axisX, YAxis: axisY, Radius: radius}, Last: 2 * math.Pi, Vertices: [2]int{1, 1}},
		{ID: NewTShapeID(), Curve: seam, Last: length, Vertices: [2]int{0, 1}},
	}
	s.Faces = []Face{
		{
			ID:      NewTShapeID(),
			Surface: Cylinder{Origin: bottom, Axis: axisZ, XAxis: axisX, YAxis: axisY, Radius: radius},
			UMax:    2 * math.Pi,
			VMax:    height,
			Edges:   []int{0, 1, 2},
		},
		{
			ID:      NewTShapeID(),
			Surface: Plane{Origin: bottom, U: axisX, V: axisY},
			UMin:    -radius, UMax: radius,
			VMin: -radius, VMax: radius,
			Edges: []int{0},
		},
		{
			ID:      NewTShapeID(),
			Surface: Plane{Origin: top, U: axisX, V: axisY},
			UMin:    -radius, UMax: radius,
			VMin: -radius, VMax: radius,
			Edges: []int{1},
		},
	}
	return s, nil
}

// NewSphere builds a sphere centered at the origin: the two poles, one seam
// meridian and one spherical face.
func NewSphere(radius float64) (*Shape, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("sphere: radius must be positive, got %g", radius)
	}
	s := &Shape{
		Vertices: []Vertex{
			{ID: NewTShapeID(), Point: Vec{Z: -radius}},
			{ID: NewTShapeID(), Point: Vec{Z: radius}},
		},
		Edges: []Edge{{
			ID:       NewTShapeID(),
			Curve:    Circle{XAxis: axisX, YAxis: axisZ, Radius: radius},
			First:    -math.Pi / 2,
			Last:     math.Pi / 2,
			Vertices: [2]int{0, 1},
		}},
	}
	s.Faces = []Face{{
		ID:      NewTShapeID(),
		Surface: Sphere{XAxis: axisX, YAxis: axisY, ZAxis: axisZ, Radius: radius},
		UMax:    2 * math.Pi,
		VMin:    -math.Pi / 2,
		VMax:    math.Pi / 2,
		Edges:   []int{0},
	}}
	return s, nil
}

// Compound sews shapes into one. Vertices closer than tol are merged, and
// edges joining the same merged vertices with coincident midpoints are
// merged. A merged entity gets a fresh identity; every other entity keeps
// the identity it had in its input. Faces are never merged. No history is
// recorded.
func Compound(tol float64, shapes ...*Shape) *Shape {
	out := &Shape{}
	fresh := make(map[Subshape]bool)

	for _, s := range shapes {
		if s == nil {
			continue
		}
		vmap := make([]int, len(s.Vertices))
		for i, v := range s.Vertices {
			j := -1
			for k, ov := range out.Vertices {
				if Near(ov.Point, v.Point, tol) {
					j = k
					break
				}
			}
			if j < 0 {
				vmap[i] = len(out.Vertices)
				out.Vertices = append(out.Vertices, v)
				continue
			}
			vmap[i] = j
			sub := Subshape{Kind: KindVertex, Index: j}
			if out.Vertices[j].ID != v.ID && !fresh[sub] {
				out.Vertices[j].ID = NewTShapeID()
				fresh[sub] = true
			}
		}

		emap := make([]int, len(s.Edges))
		for i, e := range s.Edges {
			ne := e
			ne.Vertices = [2]int{vmap[e.Vertices[0]], vmap[e.Vertices[1]]}
			j := -1
			for k, oe := range out.Edges {
				if sameEdge(oe, ne, tol) {
					j = k
					break
				}
			}
			if j < 0 {
				emap[i] = len(out.Edges)
				out.Edges = append(out.Edges, ne)
				continue
			}
			emap[i] = j
			sub := Subshape{Kind: KindEdge, Index: j}
			if out.Edges[j].ID != ne.ID && !fresh[sub] {
				out.Edges[j].ID = NewTShapeID()
				fresh[sub] = true
			}
		}

		for _, f := range s.Faces {
			nf := f
			nf.Edges = make([]int, len(f.Edges))
			for i, ei := range f.Edges {
				nf.Edges[i] = emap[ei]
			}
			out.Faces = append(out.Faces, nf)
		}
	}
	return out
}

// sameEdge reports whether a and b join the same vertices (in either
// direction) along coincident curves of the same family.
func sameEdge(a, b Edge, tol float64) bool {
	if a.Curve.Kind() != b.Curve.Kind() {
		return false
	}
	va, vb := a.Vertices, b.Vertices
	if !(va == vb || (va[0] == vb[1] && va[1] == vb[0])) {
		return false
	}
	return Near(a.PointAt(0.5), b.PointAt(0.5), tol)
}

// PointAt evaluates the edge at a fraction of its parameter range.
func (e Edge) PointAt(frac float64) Vec {
	p, _, _ := e.Curve.D2(e.First + (e.Last-e.First)*frac)
	return p
}

// Closed reports whether the edge starts and ends on the same vertex.
func (e Edge) Closed() bool {
	return e.Vertices[0] == e.Vertices[1]
}

// PointAt evaluates the face at fractions of its parameter ranges.
func (f Face) PointAt(fu, fv float64) Vec {
	p, _, _ := f.Surface.D1(f.UMin+(f.UMax-f.UMin)*fu, f.VMin+(f.VMax-f.VMin)*fv)
	return p
}
