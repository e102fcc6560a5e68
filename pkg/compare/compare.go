// Package compare decides whether two sub-shapes are geometrically the
// same entity. It is used to recover identity where the kernel keeps no
// history, for example after sewing or when rebuilding a shape.
package compare

import (
	"github.com/chazu/toponame/pkg/kernel"
)

// Defaults used by New.
const (
	DefaultTolerance    = 1e-7
	DefaultSamples      = 4
	DefaultDenseSamples = 10
)

// Comparator compares sub-shapes within a distance tolerance by sampling
// their underlying geometry.
type Comparator struct {
	// Tolerance is the maximum distance between two sampled points or
	// derivative vectors that are still considered equal.
	Tolerance float64
	// Samples is the number of samples per parameter direction.
	Samples int
	// DenseSamples replaces Samples for Bezier curves and surfaces.
	DenseSamples int
}

// New returns a Comparator with the default settings.
func New() Comparator {
	return Comparator{
		Tolerance:    DefaultTolerance,
		Samples:      DefaultSamples,
		DenseSamples: DefaultDenseSamples,
	}
}

// Equal reports whether sub-shape a of sa and sub-shape b of sb are the same
// entity. Entities sharing a kernel identity are always equal; otherwise
// the geometry decides.
func (c Comparator) Equal(sa *kernel.Shape, a kernel.Subshape, sb *kernel.Shape, b kernel.Subshape) bool {
	if a.Kind != b.Kind || !sa.Contains(a) || !sb.Contains(b) {
		return false
	}
	if sa.ID(a) == sb.ID(b) {
		return true
	}
	switch a.Kind {
	case kernel.KindVertex:
		return kernel.Near(sa.Vertices[a.Index].Point, sb.Vertices[b.Index].Point, c.Tolerance)
	case kernel.KindEdge:
		return c.EqualEdges(sa.Edges[a.Index], sb.Edges[b.Index])
	case kernel.KindFace:
		return c.EqualFaces(sa.Faces[a.Index], sb.Faces[b.Index])
	}
	return false
}

// EqualEdges compares two edges by curve family, closedness and sampled
// points with first and second derivatives, in either direction. B-spline
// curves are compared on their control structure.
func (c Comparator) EqualEdges(a, b kernel.Edge) bool {
	if a.Curve == nil || b.Curve == nil {
		return false
	}
	kind := a.Curve.Kind()
	if kind != b.Curve.Kind() || a.Closed() != b.Closed() {
		return false
	}
	if sa, ok := a.Curve.(kernel.SplineCurve); ok {
		return sa.EqualSpline(b.Curve, c.Tolerance) &&
			c.near(param(a.First, a.Last, 0), param(b.First, b.Last, 0)) &&
			c.near(param(a.First, a.Last, 1), param(b.First, b.Last, 1))
	}

	n := c.samples(kind == kernel.CurveBezier)
	return c.sampledEqual(a, b, n, false) || c.sampledEqual(a, b, n, true)
}

// sampledEqual compares n samples of a and b. When reversed, b is walked
// from its end and its first derivative is negated, so an edge matches the
// same curve traversed the other way.
func (c Comparator) sampledEqual(a, b kernel.Edge, n int, reversed bool) bool {
	for i := 0; i < n; i++ {
		f, fb := fraction(i, n), fraction(i, n)
		if reversed {
			fb = 1 - f
		}
		pa, d1a, d2a := a.Curve.D2(param(a.First, a.Last, f))
		pb, d1b, d2b := b.Curve.D2(param(b.First, b.Last, fb))
		if reversed {
			d1b = d1b.Neg()
		}
		if !kernel.Near(pa, pb, c.Tolerance) ||
			!kernel.Near(d1a, d1b, c.Tolerance) ||
			!kernel.Near(d2a, d2b, c.Tolerance) {
			return false
		}
	}
	return true
}

// EqualFaces compares two faces by surface family, closedness in both
// directions and an n x n grid of sampled points and partial derivatives.
func (c Comparator) EqualFaces(a, b kernel.Face) bool {
	if a.Surface == nil || b.Surface == nil {
		return false
	}
	kind := a.Surface.Kind()
	if kind != b.Surface.Kind() ||
		a.Surface.UClosed() != b.Surface.UClosed() ||
		a.Surface.VClosed() != b.Surface.VClosed() {
		return false
	}

	n := c.samples(kind == kernel.SurfaceBezier)
	for i := 0; i < n; i++ {
		fu := fraction(i, n)
		for j := 0; j < n; j++ {
			fv := fraction(j, n)
			pa, dua, dva := a.Surface.D1(param(a.UMin, a.UMax, fu), param(a.VMin, a.VMax, fv))
			pb, dub, dvb := b.Surface.D1(param(b.UMin, b.UMax, fu), param(b.VMin, b.VMax, fv))
			if !kernel.Near(pa, pb, c.Tolerance) ||
				!kernel.Near(dua, dub, c.Tolerance) ||
				!kernel.Near(dva, dvb, c.Tolerance) {
				return false
			}
		}
	}
	return true
}

func (c Comparator) samples(dense bool) int {
	n := c.Samples
	if dense {
		n = c.DenseSamples
	}
	if n < 2 {
		n = 2
	}
	return n
}

func (c Comparator) near(a, b float64) bool {
	d := a - b
	return d <= c.Tolerance && -d <= c.Tolerance
}

// fraction spreads n samples evenly over [0, 1], endpoints included.
func fraction(i, n int) float64 {
	return float64(i) / float64(n-1)
}

func param(first, last, f float64) float64 {
	return first + (last-first)*f
}
