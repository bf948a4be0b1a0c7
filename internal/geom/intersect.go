package geom

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/san-kum/vvase/internal/analysis"
)

// clampTolerance allows a slightly negative discriminant from rounding when the
// solution lies on the plane of the centers.
const clampTolerance = 1e-10

// IntersectThreeSpheres finds the point at distances r1, r2, r3 from c1, c2, c3.
// Of the two mirror solutions the one closer to guess is returned; exact ties go
// to the +z side of the local frame.
func IntersectThreeSpheres(c1, c2, c3 r3.Vector, r1, r2, r3v float64, guess r3.Vector) (r3.Vector, error) {
	d := c2.Sub(c1).Norm()
	if d < Epsilon {
		return r3.Vector{}, fmt.Errorf("coincident sphere centers: %w", analysis.ErrDegenerateLinkage)
	}
	ex := c2.Sub(c1).Mul(1 / d)
	c13 := c3.Sub(c1)
	i := ex.Dot(c13)
	eyRaw := c13.Sub(ex.Mul(i))
	j := eyRaw.Norm()
	scale := math.Max(d, c13.Norm())
	if j < 1e-9*scale {
		return r3.Vector{}, fmt.Errorf("colinear sphere centers: %w", analysis.ErrDegenerateLinkage)
	}
	ey := eyRaw.Mul(1 / j)
	ez := ex.Cross(ey)

	x := (r1*r1 - r2*r2 + d*d) / (2 * d)
	y := (r1*r1-r3v*r3v+i*i+j*j)/(2*j) - i*x/j
	z2 := r1*r1 - x*x - y*y
	if z2 < 0 {
		if z2 < -clampTolerance*math.Max(r1*r1, 1) {
			return r3.Vector{}, fmt.Errorf("sphere discriminant %.3e: %w", z2, analysis.ErrBadGeometry)
		}
		z2 = 0
	}
	z := math.Sqrt(z2)

	base := c1.Add(ex.Mul(x)).Add(ey.Mul(y))
	plus := base.Add(ez.Mul(z))
	minus := base.Sub(ez.Mul(z))
	return closer(plus, minus, guess), nil
}

func closer(plus, minus, guess r3.Vector) r3.Vector {
	dp := plus.Sub(guess).Norm2()
	dm := minus.Sub(guess).Norm2()
	if dm < dp && dp-dm > Epsilon*Epsilon {
		return minus
	}
	return plus
}

// IntersectTwoCircles intersects two coplanar circles and returns both points,
// the first on the left of the c1->c2 direction.
func IntersectTwoCircles(c1 r2.Point, r1 float64, c2 r2.Point, rad2 float64) (r2.Point, r2.Point, error) {
	delta := c2.Sub(c1)
	d := delta.Norm()
	if d < Epsilon {
		return r2.Point{}, r2.Point{}, fmt.Errorf("concentric circles: %w", analysis.ErrDegenerateLinkage)
	}
	a := (r1*r1 - rad2*rad2 + d*d) / (2 * d)
	h2 := r1*r1 - a*a
	if h2 < 0 {
		if h2 < -clampTolerance*math.Max(r1*r1, 1) {
			return r2.Point{}, r2.Point{}, fmt.Errorf("circle discriminant %.3e: %w", h2, analysis.ErrBadGeometry)
		}
		h2 = 0
	}
	h := math.Sqrt(h2)
	u := delta.Mul(1 / d)
	base := c1.Add(u.Mul(a))
	return base.Add(u.Ortho().Mul(h)), base.Sub(u.Ortho().Mul(h)), nil
}

// RotateToDistance rotates p about the axis through axisPoint along axisDir until
// it sits at distance dist from target. It returns the new point and the rotation
// angle, taking the branch closer to guess.
func RotateToDistance(p, axisPoint, axisDir, target r3.Vector, dist float64, guess r3.Vector) (r3.Vector, float64, error) {
	u := axisDir.Normalize()
	if u.Norm2() == 0 {
		return r3.Vector{}, 0, fmt.Errorf("zero-length rotation axis: %w", analysis.ErrDegenerateLinkage)
	}
	center := ClosestPointOnLine(p, axisPoint, u)
	radial := p.Sub(center)
	radius := radial.Norm()
	if radius < Epsilon {
		return r3.Vector{}, 0, fmt.Errorf("point lies on its rotation axis: %w", analysis.ErrDegenerateLinkage)
	}
	e1 := radial.Mul(1 / radius)
	e2 := u.Cross(e1)

	h := target.Sub(center).Dot(u)
	inPlane2 := dist*dist - h*h
	if inPlane2 < 0 {
		if inPlane2 < -clampTolerance*math.Max(dist*dist, 1) {
			return r3.Vector{}, 0, fmt.Errorf("link cannot reach rotation plane: %w", analysis.ErrBadGeometry)
		}
		inPlane2 = 0
	}
	rel := target.Sub(center)
	t2 := r2.Point{X: rel.Dot(e1), Y: rel.Dot(e2)}

	a, b, err := IntersectTwoCircles(r2.Point{}, radius, t2, math.Sqrt(inPlane2))
	if err != nil {
		return r3.Vector{}, 0, err
	}
	pa := center.Add(e1.Mul(a.X)).Add(e2.Mul(a.Y))
	pb := center.Add(e1.Mul(b.X)).Add(e2.Mul(b.Y))
	if pb.Sub(guess).Norm2() < pa.Sub(guess).Norm2() {
		return pb, math.Atan2(b.Y, b.X), nil
	}
	return pa, math.Atan2(a.Y, a.X), nil
}

// IntersectTwoPlanes returns a point on and the unit direction of the line shared
// by two planes. ok is false for parallel planes.
func IntersectTwoPlanes(p1, n1, p2, n2 r3.Vector) (point, dir r3.Vector, ok bool) {
	dir = n1.Cross(n2)
	det := dir.Norm2()
	if det < Epsilon*Epsilon {
		return r3.Vector{}, r3.Vector{}, false
	}
	d1 := n1.Dot(p1)
	d2 := n2.Dot(p2)
	// point = ((d1 n2 - d2 n1) x dir) / |dir|^2 lies on both planes
	point = n2.Mul(d1).Sub(n1.Mul(d2)).Cross(dir).Mul(1 / det)
	return point, dir.Normalize(), true
}

// IntersectLinePlane returns where the line meets the plane. ok is false when the
// line is parallel to the plane.
func IntersectLinePlane(linePoint, lineDir, planePoint, planeNormal r3.Vector) (r3.Vector, bool) {
	denom := lineDir.Dot(planeNormal)
	if math.Abs(denom) < Epsilon {
		return r3.Vector{}, false
	}
	t := planePoint.Sub(linePoint).Dot(planeNormal) / denom
	return linePoint.Add(lineDir.Mul(t)), true
}
