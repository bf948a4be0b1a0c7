package geom

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/vvase/internal/analysis"
)

// Frame is an orthonormal frame attached to three points of a rigid body.
type Frame struct {
	Origin  r3.Vector
	X, Y, Z r3.Vector
}

// NewFrame builds a frame with its origin at a, X toward b and Z normal to abc.
func NewFrame(a, b, c r3.Vector) (Frame, error) {
	x := b.Sub(a).Normalize()
	z := x.Cross(c.Sub(a))
	if x.Norm2() == 0 || z.Norm2() < Epsilon*Epsilon {
		return Frame{}, fmt.Errorf("frame points are colinear: %w", analysis.ErrDegenerateLinkage)
	}
	z = z.Normalize()
	return Frame{Origin: a, X: x, Y: z.Cross(x), Z: z}, nil
}

// ToLocal expresses a global point in frame coordinates.
func (f Frame) ToLocal(p r3.Vector) r3.Vector {
	d := p.Sub(f.Origin)
	return r3.Vector{X: d.Dot(f.X), Y: d.Dot(f.Y), Z: d.Dot(f.Z)}
}

// ToGlobal maps frame coordinates back to a global point.
func (f Frame) ToGlobal(q r3.Vector) r3.Vector {
	return f.Origin.Add(f.X.Mul(q.X)).Add(f.Y.Mul(q.Y)).Add(f.Z.Mul(q.Z))
}

// RigidTransform carries points from one pose of a rigid body to another.
type RigidTransform struct {
	from, to Frame
}

// NewRigidTransform builds the transform taking the original three reference
// points onto their displaced positions.
func NewRigidTransform(orig, moved [3]r3.Vector) (RigidTransform, error) {
	from, err := NewFrame(orig[0], orig[1], orig[2])
	if err != nil {
		return RigidTransform{}, err
	}
	to, err := NewFrame(moved[0], moved[1], moved[2])
	if err != nil {
		return RigidTransform{}, err
	}
	return RigidTransform{from: from, to: to}, nil
}

// Apply moves a point attached to the body.
func (t RigidTransform) Apply(p r3.Vector) r3.Vector {
	return t.to.ToGlobal(t.from.ToLocal(p))
}

// ApplyVector rotates a direction attached to the body.
func (t RigidTransform) ApplyVector(v r3.Vector) r3.Vector {
	return t.Apply(t.from.Origin.Add(v)).Sub(t.to.Origin)
}

// RotationMatrix returns the 3x3 matrix of a rotation about axis by angle.
func RotationMatrix(axis r3.Vector, angle float64) *mat.Dense {
	m := mat.NewDense(3, 3, nil)
	for col, e := range [3]r3.Vector{XAxis, YAxis, ZAxis} {
		r := RotateVector(e, axis, angle)
		m.Set(0, col, r.X)
		m.Set(1, col, r.Y)
		m.Set(2, col, r.Z)
	}
	return m
}

// MulVec multiplies a 3x3 matrix by a vector.
func MulVec(m mat.Matrix, v r3.Vector) r3.Vector {
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(3, []float64{v.X, v.Y, v.Z}))
	return r3.Vector{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// OuterProduct returns a b^T.
func OuterProduct(a, b r3.Vector) *mat.Dense {
	av := [3]float64{a.X, a.Y, a.Z}
	bv := [3]float64{b.X, b.Y, b.Z}
	m := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, av[i]*bv[j])
		}
	}
	return m
}

// Transform rotates about Center and then translates.
type Transform struct {
	R           *mat.Dense
	Center      r3.Vector
	Translation r3.Vector
}

// Identity returns the transform that leaves points unchanged.
func Identity() Transform {
	r := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	return Transform{R: r}
}

// ThenRotate appends a rotation about a global axis through Center.
func (t Transform) ThenRotate(axis r3.Vector, angle float64) Transform {
	var r mat.Dense
	r.Mul(RotationMatrix(axis, angle), t.R)
	return Transform{R: &r, Center: t.Center, Translation: t.Translation}
}

// Apply maps a chassis-fixed point.
func (t Transform) Apply(p r3.Vector) r3.Vector {
	return MulVec(t.R, p.Sub(t.Center)).Add(t.Center).Add(t.Translation)
}

// ApplyVector rotates a chassis-fixed direction.
func (t Transform) ApplyVector(v r3.Vector) r3.Vector {
	return MulVec(t.R, v)
}
