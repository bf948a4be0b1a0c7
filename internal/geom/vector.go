package geom

import (
	"math"

	"github.com/golang/geo/r3"
)

// Epsilon is the length below which a direction is treated as zero.
const Epsilon = 1e-12

var (
	XAxis = r3.Vector{X: 1}
	YAxis = r3.Vector{Y: 1}
	ZAxis = r3.Vector{Z: 1}
)

// RotateVector rotates v about axis by angle using Rodrigues' formula.
// axis does not need to be normalized.
func RotateVector(v, axis r3.Vector, angle float64) r3.Vector {
	k := axis.Normalize()
	if k.Norm2() == 0 || angle == 0 {
		return v
	}
	sin, cos := math.Sincos(angle)
	return v.Mul(cos).Add(k.Cross(v).Mul(sin)).Add(k.Mul(k.Dot(v) * (1 - cos)))
}

// Rotate rotates p about the line through center with direction axis.
func Rotate(p, center, axis r3.Vector, angle float64) r3.Vector {
	return RotateVector(p.Sub(center), axis, angle).Add(center)
}

// ProjectOntoPlane removes the component of v along normal.
func ProjectOntoPlane(v, normal r3.Vector) r3.Vector {
	n := normal.Normalize()
	return v.Sub(n.Mul(v.Dot(n)))
}

// PlaneNormal returns the unit normal of the plane through a, b and c.
func PlaneNormal(a, b, c r3.Vector) r3.Vector {
	return b.Sub(a).Cross(c.Sub(a)).Normalize()
}

// ClosestPointOnLine returns the foot of the perpendicular from p to the line.
func ClosestPointOnLine(p, linePoint, lineDir r3.Vector) r3.Vector {
	d := lineDir.Normalize()
	return linePoint.Add(d.Mul(p.Sub(linePoint).Dot(d)))
}

// DistanceToLine returns the perpendicular distance from p to the line.
func DistanceToLine(p, linePoint, lineDir r3.Vector) float64 {
	return p.Sub(ClosestPointOnLine(p, linePoint, lineDir)).Norm()
}

// SignedAngle returns the angle from a to b, positive when a x b points along normal.
func SignedAngle(a, b, normal r3.Vector) float64 {
	cross := a.Cross(b)
	angle := math.Atan2(cross.Norm(), a.Dot(b))
	if cross.Dot(normal) < 0 {
		return -angle
	}
	return angle
}

// Mirror reflects p across the X-Z plane.
func Mirror(p r3.Vector) r3.Vector {
	return r3.Vector{X: p.X, Y: -p.Y, Z: p.Z}
}

// Component returns the x, y or z component of v for axis 0, 1 or 2.
func Component(v r3.Vector, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// WithComponent returns v with the given axis component replaced.
func WithComponent(v r3.Vector, axis int, value float64) r3.Vector {
	switch axis {
	case 0:
		v.X = value
	case 1:
		v.Y = value
	default:
		v.Z = value
	}
	return v
}

// NaNVector is returned where a geometric result does not exist.
func NaNVector() r3.Vector {
	nan := math.NaN()
	return r3.Vector{X: nan, Y: nan, Z: nan}
}

// IsFiniteVector reports whether no component is NaN or Inf.
func IsFiniteVector(v r3.Vector) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
