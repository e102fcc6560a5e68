// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library. Every shape carries its
// B-Rep arena, used for naming, next to an SDF solid used for meshing.
package sdfx

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/toponame/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

const (
	// defaultMeshCells controls marching cubes tessellation resolution.
	defaultMeshCells = 200
	// defaultTolerance is the sewing tolerance used by Compound.
	defaultTolerance = 1e-7
)

// ErrNoSolid is returned by ToMesh for shapes without a volumetric solid.
var ErrNoSolid = errors.New("sdfx: shape has no solid")

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	// Tolerance is the distance under which Compound merges vertices and edges.
	Tolerance float64
	// MeshCells is the marching cubes resolution along the longest axis.
	MeshCells int
}

// New returns a new SdfxKernel with default settings.
func New() *SdfxKernel {
	return &SdfxKernel{Tolerance: defaultTolerance, MeshCells: defaultMeshCells}
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) (sdf.SDF3, bool) {
	w, ok := s.(*sdfxSolid)
	if !ok || w == nil {
		return nil, false
	}
	return w.s, true
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Box creates a box with the given dimensions. The resulting shape has its
// minimum corner at the origin (0,0,0).
// sdf.Box3D centers the box at the origin, so we translate by half-dimensions.
func (k *SdfxKernel) Box(x, y, z float64) (*kernel.Shape, error) {
	shape, err := kernel.NewBox(x, y, z)
	if err != nil {
		return nil, err
	}
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Box3D: %w", err)
	}
	// Shift from center-origin to min-corner-origin.
	m := sdf.Translate3d(v3.Vec{X: x / 2, Y: y / 2, Z: z / 2})
	shape.Solid = wrap(sdf.Transform3D(s, m))
	return shape, nil
}

// Cylinder creates a cylinder along Z centered at the origin.
func (k *SdfxKernel) Cylinder(height, radius float64) (*kernel.Shape, error) {
	shape, err := kernel.NewCylinder(height, radius)
	if err != nil {
		return nil, err
	}
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Cylinder3D: %w", err)
	}
	shape.Solid = wrap(s)
	return shape, nil
}

// Sphere creates a sphere centered at the origin.
func (k *SdfxKernel) Sphere(radius float64) (*kernel.Shape, error) {
	shape, err := kernel.NewSphere(radius)
	if err != nil {
		return nil, err
	}
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Sphere3D: %w", err)
	}
	shape.Solid = wrap(s)
	return shape, nil
}

// Translate moves a shape by (x, y, z).
func (k *SdfxKernel) Translate(s *kernel.Shape, x, y, z float64) (*kernel.Shape, *kernel.History) {
	return k.transform(s, sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z}))
}

// Rotate rotates a shape by Euler angles (degrees) around X, Y, Z axes.
func (k *SdfxKernel) Rotate(s *kernel.Shape, x, y, z float64) (*kernel.Shape, *kernel.History) {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return k.transform(s, m)
}

func (k *SdfxKernel) transform(s *kernel.Shape, m sdf.M44) (*kernel.Shape, *kernel.History) {
	out, h := s.Transform(m)
	if solid, ok := unwrap(s.Solid); ok {
		out.Solid = wrap(sdf.Transform3D(solid, m))
	}
	return out, h
}

// Compound sews shapes into one and unions their solids.
func (k *SdfxKernel) Compound(shapes ...*kernel.Shape) *kernel.Shape {
	out := kernel.Compound(k.Tolerance, shapes...)
	var solids []sdf.SDF3
	for _, s := range shapes {
		if s == nil {
			continue
		}
		if solid, ok := unwrap(s.Solid); ok {
			solids = append(solids, solid)
		}
	}
	switch len(solids) {
	case 0:
	case 1:
		out.Solid = wrap(solids[0])
	default:
		out.Solid = wrap(sdf.Union3D(solids...))
	}
	return out
}

// ToMesh converts a shape's solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s *kernel.Shape) (*kernel.Mesh, error) {
	if s == nil {
		return nil, ErrNoSolid
	}
	sdf3, ok := unwrap(s.Solid)
	if !ok {
		return nil, ErrNoSolid
	}

	cells := k.MeshCells
	if cells <= 0 {
		cells = defaultMeshCells
	}
	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(sdf3, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}

// SaveSTL writes meshes to path as one binary STL file.
func SaveSTL(path string, meshes ...*kernel.Mesh) error {
	var triangles []*sdf.Triangle3
	for _, m := range meshes {
		if m == nil {
			continue
		}
		for i := 0; i+2 < len(m.Indices); i += 3 {
			var tri sdf.Triangle3
			for j := range 3 {
				v := int(m.Indices[i+j]) * 3
				tri[j] = v3.Vec{X: float64(m.Vertices[v]), Y: float64(m.Vertices[v+1]), Z: float64(m.Vertices[v+2])}
			}
			triangles = append(triangles, &tri)
		}
	}
	if len(triangles) == 0 {
		return errors.New("sdfx: no triangles to save")
	}
	if err := render.SaveSTL(path, triangles); err != nil {
		return fmt.Errorf("sdfx: save %s: %w", path, err)
	}
	return nil
}
