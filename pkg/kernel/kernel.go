// Package kernel defines the boundary-representation shape kernel used by
// the naming subsystem. A Shape is an arena of vertices, edges and faces
// addressed by small integer indices; every topological entity also carries
// a TShapeID that plays the role of kernel identity. Implementations of the
// Kernel interface (sdfx) build shapes behind this interface.
package kernel

import (
	"sync/atomic"

	"github.com/deadsy/sdfx/sdf"
)

// Solid is an opaque handle to a volumetric representation of a shape.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface. Every operation returns
// a fresh shape; operations that keep a relationship between input and
// output entities also return the History describing it.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) (*Shape, error)
	Cylinder(height, radius float64) (*Shape, error)
	Sphere(radius float64) (*Shape, error)

	// Transforms
	Translate(s *Shape, x, y, z float64) (*Shape, *History)
	Rotate(s *Shape, x, y, z float64) (*Shape, *History) // Euler angles in degrees

	// Sewing of several shapes into one, without history.
	Compound(shapes ...*Shape) *Shape

	// Mesh output
	ToMesh(s *Shape) (*Mesh, error)
}

// Operation is the introspection surface of a shape-modifying operation:
// for an entity of one of its inputs it reports which entities of its
// result were generated from it and which are modifications of it.
type Operation interface {
	Generated(id TShapeID) []TShapeID
	Modified(id TShapeID) []TShapeID
}

// Kind enumerates the topological entity kinds tracked by the kernel.
type Kind int

const (
	KindVertex Kind = iota
	KindEdge
	KindFace
)

// Kinds lists every kind in exploration order.
var Kinds = [...]Kind{KindVertex, KindEdge, KindFace}

func (k Kind) String() string {
	switch k {
	case KindVertex:
		return "vertex"
	case KindEdge:
		return "edge"
	case KindFace:
		return "face"
	default:
		return "unknown"
	}
}

// TShapeID identifies a topological entity independently of the shape that
// contains it. Two shapes holding an entity with the same TShapeID share
// that entity.
type TShapeID uint64

var tshapeSeq atomic.Uint64

// NewTShapeID allocates a fresh kernel identity.
func NewTShapeID() TShapeID {
	return TShapeID(tshapeSeq.Add(1))
}

// Subshape addresses one entity inside a Shape by kind and arena index.
type Subshape struct {
	Kind  Kind
	Index int
}

// Vertex is a topological vertex.
type Vertex struct {
	ID    TShapeID
	Point Vec
}

// Edge is a bounded piece of a curve between two vertices.
// A closed edge references the same vertex twice.
type Edge struct {
	ID          TShapeID
	Curve       Curve
	First, Last float64 // parameter range on Curve
	Vertices    [2]int  // indices into Shape.Vertices
}

// Face is a parametric patch of a surface bounded by edges.
type Face struct {
	ID         TShapeID
	Surface    Surface
	UMin, UMax float64
	VMin, VMax float64
	Edges      []int // indices into Shape.Edges
}

// Shape is an arena of topological entities. Indices are stable for the
// lifetime of the shape; shapes are never mutated after construction by the
// kernel.
type Shape struct {
	Vertices []Vertex
	Edges    []Edge
	Faces    []Face
	Solid    Solid
}

// IsNull reports whether the shape has no entities at all.
func (s *Shape) IsNull() bool {
	return s == nil || (len(s.Vertices) == 0 && len(s.Edges) == 0 && len(s.Faces) == 0)
}

// Count returns the number of entities of the given kind.
func (s *Shape) Count(k Kind) int {
	if s == nil {
		return 0
	}
	switch k {
	case KindVertex:
		return len(s.Vertices)
	case KindEdge:
		return len(s.Edges)
	case KindFace:
		return len(s.Faces)
	}
	return 0
}

// Subshapes returns every entity of the shape, vertices first, then edges,
// then faces.
func (s *Shape) Subshapes() []Subshape {
	var out []Subshape
	for _, k := range Kinds {
		out = append(out, s.OfKind(k)...)
	}
	return out
}

// OfKind returns the entities of a single kind in arena order.
func (s *Shape) OfKind(k Kind) []Subshape {
	n := s.Count(k)
	out := make([]Subshape, n)
	for i := range n {
		out[i] = Subshape{Kind: k, Index: i}
	}
	return out
}

// Contains reports whether sub addresses an entity of s.
func (s *Shape) Contains(sub Subshape) bool {
	return sub.Index >= 0 && sub.Index < s.Count(sub.Kind)
}

// ID returns the kernel identity of sub, or 0 if sub is out of range.
func (s *Shape) ID(sub Subshape) TShapeID {
	if !s.Contains(sub) {
		return 0
	}
	switch sub.Kind {
	case KindVertex:
		return s.Vertices[sub.Index].ID
	case KindEdge:
		return s.Edges[sub.Index].ID
	default:
		return s.Faces[sub.Index].ID
	}
}

// Index finds the entity of kind k carrying the identity id.
func (s *Shape) Index(k Kind, id TShapeID) (Subshape, bool) {
	for _, sub := range s.OfKind(k) {
		if s.ID(sub) == id {
			return sub, true
		}
	}
	return Subshape{}, false
}

// Lookup finds the entity of any kind carrying the identity id.
func (s *Shape) Lookup(id TShapeID) (Subshape, bool) {
	for _, k := range Kinds {
		if sub, ok := s.Index(k, id); ok {
			return sub, true
		}
	}
	return Subshape{}, false
}

// Extract returns a standalone shape made of sub and the entities bounding
// it. The extracted entities keep their identities, so the result shares
// them with s.
func (s *Shape) Extract(sub Subshape) *Shape {
	out := &Shape{}
	if !s.Contains(sub) {
		return out
	}
	vmap := make(map[int]int)
	addVertex := func(i int) int {
		if j, ok := vmap[i]; ok {
			return j
		}
		vmap[i] = len(out.Vertices)
		out.Vertices = append(out.Vertices, s.Vertices[i])
		return vmap[i]
	}
	emap := make(map[int]int)
	addEdge := func(i int) int {
		if j, ok := emap[i]; ok {
			return j
		}
		e := s.Edges[i]
		e.Vertices = [2]int{addVertex(e.Vertices[0]), addVertex(e.Vertices[1])}
		emap[i] = len(out.Edges)
		out.Edges = append(out.Edges, e)
		return emap[i]
	}

	switch sub.Kind {
	case KindVertex:
		addVertex(sub.Index)
	case KindEdge:
		addEdge(sub.Index)
	case KindFace:
		f := s.Faces[sub.Index]
		edges := make([]int, len(f.Edges))
		for i, ei := range f.Edges {
			edges[i] = addEdge(ei)
		}
		f.Edges = edges
		out.Faces = append(out.Faces, f)
	}
	return out
}

// Transform returns a copy of s with every geometry transformed by m and
// every entity given a fresh identity. The History maps each entity of s
// to its image as a modification.
func (s *Shape) Transform(m sdf.M44) (*Shape, *History) {
	h := NewHistory()
	out := &Shape{
		Vertices: make([]Vertex, len(s.Vertices)),
		Edges:    make([]Edge, len(s.Edges)),
		Faces:    make([]Face, len(s.Faces)),
	}
	for i, v := range s.Vertices {
		out.Vertices[i] = Vertex{ID: NewTShapeID(), Point: m.MulPosition(v.Point)}
		h.AddModified(v.ID, out.Vertices[i].ID)
	}
	for i, e := range s.Edges {
		ne := e
		ne.ID = NewTShapeID()
		ne.Curve = e.Curve.Transform(m)
		out.Edges[i] = ne
		h.AddModified(e.ID, ne.ID)
	}
	for i, f := range s.Faces {
		nf := f
		nf.ID = NewTShapeID()
		nf.Surface = f.Surface.Transform(m)
		nf.Edges = append([]int(nil), f.Edges...)
		out.Faces[i] = nf
		h.AddModified(f.ID, nf.ID)
	}
	return out, h
}
