package kernel

import (
	"math"
	"testing"

	"github.com/deadsy/sdfx/sdf"
)

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	t.Run("empty mesh", func(t *testing.T) {
		m := &Mesh{}
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for empty mesh, want true")
		}
	})
	t.Run("non-empty mesh", func(t *testing.T) {
		m := &Mesh{Vertices: []float32{1, 2, 3}}
		if m.IsEmpty() {
			t.Error("IsEmpty() = true for non-empty mesh, want false")
		}
	})
}

// --- Compile-time interface check with a stub kernel ---

// stubKernel is a minimal Kernel implementation that proves the interface
// is satisfiable. It builds B-Rep arenas without solids.
type stubKernel struct{}

func (k *stubKernel) Box(x, y, z float64) (*Shape, error) { return NewBox(x, y, z) }
func (k *stubKernel) Cylinder(h, r float64) (*Shape, error) {
	return NewCylinder(h, r)
}
func (k *stubKernel) Sphere(r float64) (*Shape, error) { return NewSphere(r) }

func (k *stubKernel) Translate(s *Shape, x, y, z float64) (*Shape, *History) {
	return s.Transform(sdf.Translate3d(Vec{X: x, Y: y, Z: z}))
}

func (k *stubKernel) Rotate(s *Shape, _, _, _ float64) (*Shape, *History) {
	return s.Transform(sdf.Identity3d())
}

func (k *stubKernel) Compound(shapes ...*Shape) *Shape { return Compound(1e-7, shapes...) }

func (k *stubKernel) ToMesh(_ *Shape) (*Mesh, error) {
	return &Mesh{}, nil
}

var _ Kernel = (*stubKernel)(nil)

func TestStubKernelToMesh(t *testing.T) {
	var k Kernel = &stubKernel{}
	s, err := k.Box(1, 1, 1)
	if err != nil {
		t.Fatalf("Box() error = %v", err)
	}
	m, err := k.ToMesh(s)
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	if !m.IsEmpty() {
		t.Error("stub ToMesh() should return empty mesh")
	}
}

// --- Primitive topology ---

func TestPrimitiveCounts(t *testing.T) {
	box, _ := NewBox(1, 2, 3)
	cyl, _ := NewCylinder(2, 1)
	sph, _ := NewSphere(1)
	tests := []struct {
		name                string
		shape               *Shape
		verts, edges, faces int
	}{
		{"box", box, 8, 12, 6},
		{"cylinder", cyl, 2, 3, 3},
		{"sphere", sph, 2, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.shape.Count(KindVertex); got != tt.verts {
				t.Errorf("vertices = %d, want %d", got, tt.verts)
			}
			if got := tt.shape.Count(KindEdge); got != tt.edges {
				t.Errorf("edges = %d, want %d", got, tt.edges)
			}
			if got := tt.shape.Count(KindFace); got != tt.faces {
				t.Errorf("faces = %d, want %d", got, tt.faces)
			}
			if got := len(tt.shape.Subshapes()); got != tt.verts+tt.edges+tt.faces {
				t.Errorf("Subshapes() = %d entries", got)
			}
		})
	}
}

func TestPrimitiveInvalid(t *testing.T) {
	if _, err := NewBox(-1, 1, 1); err == nil {
		t.Error("NewBox with negative size should fail")
	}
	if _, err := NewCylinder(1, 0); err == nil {
		t.Error("NewCylinder with zero radius should fail")
	}
	if _, err := NewSphere(0); err == nil {
		t.Error("NewSphere with zero radius should fail")
	}
}

func TestBoxFacesBoundedByFourEdges(t *testing.T) {
	box, _ := NewBox(1, 2, 3)
	for i, f := range box.Faces {
		if len(f.Edges) != 4 {
			t.Errorf("face %d has %d edges, want 4", i, len(f.Edges))
		}
		// Every edge endpoint lies on the face plane.
		pl := f.Surface.(Plane)
		n := pl.U.Cross(pl.V)
		for _, ei := range f.Edges {
			for _, vi := range box.Edges[ei].Vertices {
				d := box.Vertices[vi].Point.Sub(pl.Origin).Dot(n)
				if math.Abs(d) > 1e-12 {
					t.Errorf("face %d: vertex %d off plane by %g", i, vi, d)
				}
			}
		}
	}
}

func TestEdgeEndpointsMatchVertices(t *testing.T) {
	box, _ := NewBox(1, 2, 3)
	cyl, _ := NewCylinder(2, 1)
	sph, _ := NewSphere(1)
	for _, s := range []*Shape{box, cyl, sph} {
		for i, e := range s.Edges {
			if p := e.PointAt(0); !Near(p, s.Vertices[e.Vertices[0]].Point, 1e-9) {
				t.Errorf("edge %d start %v != vertex %v", i, p, s.Vertices[e.Vertices[0]].Point)
			}
			if p := e.PointAt(1); !Near(p, s.Vertices[e.Vertices[1]].Point, 1e-9) {
				t.Errorf("edge %d end %v != vertex %v", i, p, s.Vertices[e.Vertices[1]].Point)
			}
		}
	}
}

func TestUniqueIdentities(t *testing.T) {
	box, _ := NewBox(1, 1, 1)
	seen := make(map[TShapeID]bool)
	for _, sub := range box.Subshapes() {
		id := box.ID(sub)
		if id == 0 {
			t.Fatalf("%v has zero id", sub)
		}
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
		got, ok := box.Lookup(id)
		if !ok || got != sub {
			t.Errorf("Lookup(%d) = %v, %v; want %v", id, got, ok, sub)
		}
	}
}

func TestIDOutOfRange(t *testing.T) {
	box, _ := NewBox(1, 1, 1)
	if id := box.ID(Subshape{Kind: KindFace, Index: 6}); id != 0 {
		t.Errorf("ID(out of range) = %d, want 0", id)
	}
	var null *Shape
	if !null.IsNull() {
		t.Error("nil shape should be null")
	}
	if !(&Shape{}).IsNull() {
		t.Error("empty shape should be null")
	}
}

// --- Extract / Transform / Compound ---

func TestExtractKeepsIdentity(t *testing.T) {
	box, _ := NewBox(1, 1, 1)
	face := Subshape{Kind: KindFace, Index: 2}
	sub := box.Extract(face)

	if sub.Count(KindFace) != 1 || sub.Count(KindEdge) != 4 || sub.Count(KindVertex) != 4 {
		t.Fatalf("extracted face has %d/%d/%d entities, want 4/4/1",
			sub.Count(KindVertex), sub.Count(KindEdge), sub.Count(KindFace))
	}
	if sub.Faces[0].ID != box.ID(face) {
		t.Error("extracted face lost its identity")
	}
	for _, ei := range sub.Faces[0].Edges {
		if _, ok := box.Index(KindEdge, sub.Edges[ei].ID); !ok {
			t.Errorf("extracted edge %d not found in source", ei)
		}
	}
	if got := box.Extract(Subshape{Kind: KindEdge, Index: 99}); !got.IsNull() {
		t.Error("Extract(out of range) should be null")
	}
}

func TestTransformHistory(t *testing.T) {
	box, _ := NewBox(1, 1, 1)
	moved, h := box.Transform(sdf.Translate3d(Vec{X: 5}))
	for _, sub := range box.Subshapes() {
		if moved.ID(sub) == box.ID(sub) {
			t.Errorf("%v kept its identity across a transform", sub)
		}
		if got := h.Modified(box.ID(sub)); len(got) != 1 || got[0] != moved.ID(sub) {
			t.Errorf("%v: Modified() = %v", sub, got)
		}
		if got := h.Generated(box.ID(sub)); len(got) != 0 {
			t.Errorf("%v: Generated() = %v, want none", sub, got)
		}
	}
	if p := moved.Vertices[0].Point; !Near(p, Vec{X: 5}, 1e-12) {
		t.Errorf("moved origin corner = %v", p)
	}
}

func TestNilHistory(t *testing.T) {
	var h *History
	if h.Generated(1) != nil || h.Modified(1) != nil || h.Len() != 0 {
		t.Error("nil history should report nothing")
	}
}

func TestCompoundDisjointKeepsIdentity(t *testing.T) {
	a, _ := NewBox(1, 1, 1)
	b, _ := NewBox(1, 1, 1)
	b, _ = b.Transform(sdf.Translate3d(Vec{X: 5}))
	c := Compound(1e-7, a, b)
	if got := c.Count(KindVertex); got != 16 {
		t.Fatalf("vertices = %d, want 16", got)
	}
	for _, sub := range a.Subshapes() {
		if _, ok := c.Index(sub.Kind, a.ID(sub)); !ok {
			t.Errorf("%v of first box lost its identity", sub)
		}
	}
}

func TestCompoundSewnEntitiesGetFreshIdentity(t *testing.T) {
	a, _ := NewBox(1, 1, 1)
	b, _ := NewBox(1, 1, 1)
	b, _ = b.Transform(sdf.Translate3d(Vec{X: 1}))
	c := Compound(1e-7, a, b)

	if got := c.Count(KindEdge); got != 20 {
		t.Fatalf("edges = %d, want 20", got)
	}
	// Vertex 1 of the first box sits at x=1 and is shared with the second.
	if _, ok := c.Index(KindVertex, a.Vertices[1].ID); ok {
		t.Error("sewn vertex kept its first identity")
	}
	if _, ok := c.Index(KindVertex, a.Vertices[0].ID); !ok {
		t.Error("unshared vertex lost its identity")
	}
	// Faces are never merged and always keep their identity.
	for i := range b.Faces {
		if _, ok := c.Index(KindFace, b.Faces[i].ID); !ok {
			t.Errorf("face %d of second box lost its identity", i)
		}
	}
}

// --- Geometry evaluation ---

func TestCircleDerivatives(t *testing.T) {
	c := Circle{XAxis: Vec{X: 1}, YAxis: Vec{Y: 1}, Radius: 2}
	p, d1, d2 := c.D2(math.Pi / 2)
	if !Near(p, Vec{Y: 2}, 1e-12) {
		t.Errorf("p = %v", p)
	}
	if !Near(d1, Vec{X: -2}, 1e-12) {
		t.Errorf("d1 = %v", d1)
	}
	if !Near(d2, Vec{Y: -2}, 1e-12) {
		t.Errorf("d2 = %v", d2)
	}
}

func TestBezierMatchesLine(t *testing.T) {
	b := Bezier{Poles: []Vec{{}, {X: 1}, {X: 2}}}
	p, d1, d2 := b.D2(0.25)
	if !Near(p, Vec{X: 0.5}, 1e-12) || !Near(d1, Vec{X: 2}, 1e-12) || !Near(d2, Vec{}, 1e-12) {
		t.Errorf("D2(0.25) = %v %v %v", p, d1, d2)
	}
}

func TestBSplineEval(t *testing.T) {
	// A clamped quadratic B-spline with a single span is its Bezier curve.
	poles := []Vec{{}, {X: 1, Y: 2}, {X: 2}}
	bs := BSpline{Degree: 2, Knots: []float64{0, 0, 0, 1, 1, 1}, Poles: poles}
	bz := Bezier{Poles: poles}
	for _, u := range []float64{0, 0.3, 0.5, 0.9, 1} {
		p1, d11, d21 := bs.D2(u)
		p2, d12, d22 := bz.D2(u)
		if !Near(p1, p2, 1e-9) || !Near(d11, d12, 1e-9) || !Near(d21, d22, 1e-9) {
			t.Errorf("u=%g: bspline (%v %v %v) != bezier (%v %v %v)", u, p1, d11, d21, p2, d12, d22)
		}
	}
	first, last := bs.Domain()
	if first != 0 || last != 1 {
		t.Errorf("Domain() = %g, %g", first, last)
	}
}

func TestBSplineEqualSpline(t *testing.T) {
	a := BSpline{Degree: 1, Knots: []float64{0, 0, 1, 1}, Poles: []Vec{{}, {X: 1}}}
	b := BSpline{Degree: 1, Knots: []float64{0, 0, 1, 1}, Poles: []Vec{{}, {X: 1 + 1e-9}}}
	c := BSpline{Degree: 1, Knots: []float64{0, 0, 1, 1}, Poles: []Vec{{}, {X: 2}}}
	if !a.EqualSpline(b, 1e-7) {
		t.Error("near-identical splines should be equal")
	}
	if a.EqualSpline(c, 1e-7) {
		t.Error("different splines should not be equal")
	}
	if a.EqualSpline(Line{Dir: Vec{X: 1}}, 1e-7) {
		t.Error("spline should not equal a line")
	}
}

func TestSurfaceEvaluation(t *testing.T) {
	cyl := Cylinder{Axis: Vec{Z: 1}, XAxis: Vec{X: 1}, YAxis: Vec{Y: 1}, Radius: 3}
	p, du, dv := cyl.D1(0, 2)
	if !Near(p, Vec{X: 3, Z: 2}, 1e-12) || !Near(du, Vec{Y: 3}, 1e-12) || !Near(dv, Vec{Z: 1}, 1e-12) {
		t.Errorf("cylinder D1 = %v %v %v", p, du, dv)
	}

	sph := Sphere{XAxis: Vec{X: 1}, YAxis: Vec{Y: 1}, ZAxis: Vec{Z: 1}, Radius: 1}
	if p, _, _ := sph.D1(0, math.Pi/2); !Near(p, Vec{Z: 1}, 1e-12) {
		t.Errorf("sphere north pole = %v", p)
	}

	patch := BezierSurface{Poles: [][]Vec{{{}, {Y: 1}}, {{X: 1}, {X: 1, Y: 1}}}}
	p, du, dv = patch.D1(0.5, 0.25)
	if !Near(p, Vec{X: 0.5, Y: 0.25}, 1e-12) || !Near(du, Vec{X: 1}, 1e-12) || !Near(dv, Vec{Y: 1}, 1e-12) {
		t.Errorf("bezier patch D1 = %v %v %v", p, du, dv)
	}
}

func TestCurveTransform(t *testing.T) {
	m := sdf.Translate3d(Vec{X: 1, Y: 2, Z: 3})
	l := Line{Origin: Vec{}, Dir: Vec{X: 1}}.Transform(m)
	p, d1, _ := l.D2(1)
	if !Near(p, Vec{X: 2, Y: 2, Z: 3}, 1e-12) || !Near(d1, Vec{X: 1}, 1e-12) {
		t.Errorf("translated line D2(1) = %v %v", p, d1)
	}
}
