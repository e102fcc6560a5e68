package kernel

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Vec is the kernel's 3D vector type.
type Vec = v3.Vec

// ---------------------------------------------------------------------------
// Curves
// ---------------------------------------------------------------------------

// CurveKind distinguishes curve families.
type CurveKind int

const (
	CurveLine CurveKind = iota
	CurveCircle
	CurveBezier
	CurveBSpline
)

func (k CurveKind) String() string {
	switch k {
	case CurveLine:
		return "line"
	case CurveCircle:
		return "circle"
	case CurveBezier:
		return "bezier"
	case CurveBSpline:
		return "bspline"
	default:
		return "unknown"
	}
}

// Curve is a parametric 3D curve.
type Curve interface {
	Kind() CurveKind
	// D2 returns the point and the first and second derivatives at t.
	D2(t float64) (p, d1, d2 Vec)
	Transform(m sdf.M44) Curve
}

// SplineCurve is a curve with an exact equality predicate on its control
// structure. Sampling cannot reliably separate nearby high-order splines.
type SplineCurve interface {
	Curve
	EqualSpline(other Curve, tol float64) bool
}

// Line is the infinite line Origin + t*Dir.
type Line struct {
	Origin, Dir Vec
}

func (Line) Kind() CurveKind { return CurveLine }

func (l Line) D2(t float64) (p, d1, d2 Vec) {
	return l.Origin.Add(l.Dir.MulScalar(t)), l.Dir, Vec{}
}

func (l Line) Transform(m sdf.M44) Curve {
	return Line{Origin: m.MulPosition(l.Origin), Dir: transformDir(m, l.Dir)}
}

// NewSegment returns the line through a and b parameterised by arc length,
// together with the parameter of b.
func NewSegment(a, b Vec) (Line, float64) {
	d := b.Sub(a)
	n := d.Length()
	if n == 0 {
		return Line{Origin: a}, 0
	}
	return Line{Origin: a, Dir: d.MulScalar(1 / n)}, n
}

// Circle lies in the plane spanned by the orthonormal XAxis and YAxis.
// Parameter t is the angle in radians.
type Circle struct {
	Center       Vec
	XAxis, YAxis Vec
	Radius       float64
}

func (Circle) Kind() CurveKind { return CurveCircle }

func (c Circle) D2(t float64) (p, d1, d2 Vec) {
	s, co := math.Sincos(t)
	x := c.XAxis.MulScalar(c.Radius)
	y := c.YAxis.MulScalar(c.Radius)
	p = c.Center.Add(x.MulScalar(co)).Add(y.MulScalar(s))
	d1 = y.MulScalar(co).Sub(x.MulScalar(s))
	d2 = x.MulScalar(-co).Sub(y.MulScalar(s))
	return p, d1, d2
}

func (c Circle) Transform(m sdf.M44) Curve {
	return Circle{
		Center: m.MulPosition(c.Center),
		XAxis:  transformDir(m, c.XAxis),
		YAxis:  transformDir(m, c.YAxis),
		Radius: c.Radius,
	}
}

// Bezier is a polynomial Bezier curve on [0, 1].
type Bezier struct {
	Poles []Vec
}

func (Bezier) Kind() CurveKind { return CurveBezier }

func (b Bezier) D2(t float64) (p, d1, d2 Vec) {
	p = deCasteljau(b.Poles, t)
	h1 := hodograph(b.Poles)
	d1 = deCasteljau(h1, t)
	d2 = deCasteljau(hodograph(h1), t)
	return p, d1, d2
}

func (b Bezier) Transform(m sdf.M44) Curve {
	return Bezier{Poles: transformPoints(m, b.Poles)}
}

// BSpline is a non-rational B-spline with a full (clamped) knot vector:
// len(Knots) == len(Poles) + Degree + 1.
type BSpline struct {
	Degree int
	Knots  []float64
	Poles  []Vec
}

var _ SplineCurve = BSpline{}

func (BSpline) Kind() CurveKind { return CurveBSpline }

// Domain returns the valid parameter range.
func (b BSpline) Domain() (first, last float64) {
	return b.Knots[b.Degree], b.Knots[len(b.Poles)]
}

func (b BSpline) D2(t float64) (p, d1, d2 Vec) {
	p = b.eval(t)
	if b.Degree < 1 {
		return p, Vec{}, Vec{}
	}
	db := b.derivative()
	d1 = db.eval(t)
	if db.Degree < 1 {
		return p, d1, Vec{}
	}
	d2 = db.derivative().eval(t)
	return p, d1, d2
}

func (b BSpline) Transform(m sdf.M44) Curve {
	return BSpline{
		Degree: b.Degree,
		Knots:  append([]float64(nil), b.Knots...),
		Poles:  transformPoints(m, b.Poles),
	}
}

// EqualSpline compares degree, knots and poles within tol.
func (b BSpline) EqualSpline(other Curve, tol float64) bool {
	o, ok := other.(BSpline)
	if !ok {
		return false
	}
	if b.Degree != o.Degree || len(b.Knots) != len(o.Knots) || len(b.Poles) != len(o.Poles) {
		return false
	}
	for i := range b.Knots {
		if math.Abs(b.Knots[i]-o.Knots[i]) > tol {
			return false
		}
	}
	for i := range b.Poles {
		if !Near(b.Poles[i], o.Poles[i], tol) {
			return false
		}
	}
	return true
}

// span returns the knot span index containing t.
func (b BSpline) span(t float64) int {
	n := len(b.Poles)
	if t >= b.Knots[n] {
		return n - 1
	}
	k := b.Degree
	for k < n-1 && t >= b.Knots[k+1] {
		k++
	}
	return k
}

// eval runs de Boor's algorithm.
func (b BSpline) eval(t float64) Vec {
	if len(b.Poles) == 0 {
		return Vec{}
	}
	p := b.Degree
	k := b.span(t)
	d := make([]Vec, p+1)
	for j := 0; j <= p; j++ {
		d[j] = b.Poles[j+k-p]
	}
	for r := 1; r <= p; r++ {
		for j := p; j >= r; j-- {
			lo := b.Knots[j+k-p]
			den := b.Knots[j+1+k-r] - lo
			alpha := 0.0
			if den != 0 {
				alpha = (t - lo) / den
			}
			d[j] = d[j-1].MulScalar(1 - alpha).Add(d[j].MulScalar(alpha))
		}
	}
	return d[p]
}

// derivative returns the B-spline of degree-1 describing the first
// derivative.
func (b BSpline) derivative() BSpline {
	p := b.Degree
	n := len(b.Poles)
	q := make([]Vec, 0, n-1)
	for i := 0; i < n-1; i++ {
		den := b.Knots[i+p+1] - b.Knots[i+1]
		if den == 0 {
			q = append(q, Vec{})
			continue
		}
		q = append(q, b.Poles[i+1].Sub(b.Poles[i]).MulScalar(float64(p)/den))
	}
	return BSpline{
		Degree: p - 1,
		Knots:  b.Knots[1 : len(b.Knots)-1],
		Poles:  q,
	}
}

// ---------------------------------------------------------------------------
// Surfaces
// ---------------------------------------------------------------------------

// SurfaceKind distinguishes surface families.
type SurfaceKind int

const (
	SurfacePlane SurfaceKind = iota
	SurfaceCylinder
	SurfaceSphere
	SurfaceBezier
)

func (k SurfaceKind) String() string {
	switch k {
	case SurfacePlane:
		return "plane"
	case SurfaceCylinder:
		return "cylinder"
	case SurfaceSphere:
		return "sphere"
	case SurfaceBezier:
		return "bezier"
	default:
		return "unknown"
	}
}

// Surface is a parametric 3D surface.
type Surface interface {
	Kind() SurfaceKind
	UClosed() bool
	VClosed() bool
	// D1 returns the point and the partial derivatives at (u, v).
	D1(u, v float64) (p, du, dv Vec)
	Transform(m sdf.M44) Surface
}

// Plane is Origin + u*U + v*V.
type Plane struct {
	Origin, U, V Vec
}

func (Plane) Kind() SurfaceKind { return SurfacePlane }
func (Plane) UClosed() bool     { return false }
func (Plane) VClosed() bool     { return false }

func (pl Plane) D1(u, v float64) (p, du, dv Vec) {
	return pl.Origin.Add(pl.U.MulScalar(u)).Add(pl.V.MulScalar(v)), pl.U, pl.V
}

func (pl Plane) Transform(m sdf.M44) Surface {
	return Plane{Origin: m.MulPosition(pl.Origin), U: transformDir(m, pl.U), V: transformDir(m, pl.V)}
}

// Cylinder is periodic in u (angle) and linear in v along Axis.
type Cylinder struct {
	Origin       Vec
	Axis         Vec
	XAxis, YAxis Vec
	Radius       float64
}

func (Cylinder) Kind() SurfaceKind { return SurfaceCylinder }
func (Cylinder) UClosed() bool     { return true }
func (Cylinder) VClosed() bool     { return false }

func (c Cylinder) D1(u, v float64) (p, du, dv Vec) {
	s, co := math.Sincos(u)
	x := c.XAxis.MulScalar(c.Radius)
	y := c.YAxis.MulScalar(c.Radius)
	p = c.Origin.Add(x.MulScalar(co)).Add(y.MulScalar(s)).Add(c.Axis.MulScalar(v))
	du = y.MulScalar(co).Sub(x.MulScalar(s))
	return p, du, c.Axis
}

func (c Cylinder) Transform(m sdf.M44) Surface {
	return Cylinder{
		Origin: m.MulPosition(c.Origin),
		Axis:   transformDir(m, c.Axis),
		XAxis:  transformDir(m, c.XAxis),
		YAxis:  transformDir(m, c.YAxis),
		Radius: c.Radius,
	}
}

// Sphere uses u as longitude in [0, 2pi] and v as latitude in
// [-pi/2, pi/2].
type Sphere struct {
	Center              Vec
	XAxis, YAxis, ZAxis Vec
	Radius              float64
}

func (Sphere) Kind() SurfaceKind { return SurfaceSphere }
func (Sphere) UClosed() bool     { return true }
func (Sphere) VClosed() bool     { return false }

func (s Sphere) D1(u, v float64) (p, du, dv Vec) {
	su, cu := math.Sincos(u)
	sv, cv := math.Sincos(v)
	x := s.XAxis.MulScalar(s.Radius)
	y := s.YAxis.MulScalar(s.Radius)
	z := s.ZAxis.MulScalar(s.Radius)
	p = s.Center.Add(x.MulScalar(cv * cu)).Add(y.MulScalar(cv * su)).Add(z.MulScalar(sv))
	du = y.MulScalar(cv * cu).Sub(x.MulScalar(cv * su))
	dv = z.MulScalar(cv).Sub(x.MulScalar(sv * cu)).Sub(y.MulScalar(sv * su))
	return p, du, dv
}

func (s Sphere) Transform(m sdf.M44) Surface {
	return Sphere{
		Center: m.MulPosition(s.Center),
		XAxis:  transformDir(m, s.XAxis),
		YAxis:  transformDir(m, s.YAxis),
		ZAxis:  transformDir(m, s.ZAxis),
		Radius: s.Radius,
	}
}

// BezierSurface is a tensor-product Bezier patch on [0,1]x[0,1].
// Poles[i][j] is the control point of u-index i and v-index j.
type BezierSurface struct {
	Poles [][]Vec
}

func (BezierSurface) Kind() SurfaceKind { return SurfaceBezier }
func (BezierSurface) UClosed() bool     { return false }
func (BezierSurface) VClosed() bool     { return false }

func (b BezierSurface) D1(u, v float64) (p, du, dv Vec) {
	q := make([]Vec, len(b.Poles))
	dq := make([]Vec, len(b.Poles))
	for i, row := range b.Poles {
		q[i] = deCasteljau(row, v)
		dq[i] = deCasteljau(hodograph(row), v)
	}
	return deCasteljau(q, u), deCasteljau(hodograph(q), u), deCasteljau(dq, u)
}

func (b BezierSurface) Transform(m sdf.M44) Surface {
	poles := make([][]Vec, len(b.Poles))
	for i, row := range b.Poles {
		poles[i] = transformPoints(m, row)
	}
	return BezierSurface{Poles: poles}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// Near reports whether a and b are within tol of each other.
func Near(a, b Vec, tol float64) bool {
	return a.Sub(b).Length() <= tol
}

func transformDir(m sdf.M44, d Vec) Vec {
	return m.MulPosition(d).Sub(m.MulPosition(Vec{}))
}

func transformPoints(m sdf.M44, pts []Vec) []Vec {
	out := make([]Vec, len(pts))
	for i, p := range pts {
		out[i] = m.MulPosition(p)
	}
	return out
}

func deCasteljau(poles []Vec, t float64) Vec {
	if len(poles) == 0 {
		return Vec{}
	}
	work := append([]Vec(nil), poles...)
	for n := len(work) - 1; n > 0; n-- {
		for i := 0; i < n; i++ {
			work[i] = work[i].MulScalar(1 - t).Add(work[i+1].MulScalar(t))
		}
	}
	return work[0]
}

// hodograph returns the control points of the derivative Bezier.
func hodograph(poles []Vec) []Vec {
	n := len(poles) - 1
	if n < 1 {
		return nil
	}
	out := make([]Vec, n)
	for i := 0; i < n; i++ {
		out[i] = poles[i+1].Sub(poles[i]).MulScalar(float64(n))
	}
	return out
}
