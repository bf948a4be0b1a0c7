package geom

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/san-kum/vvase/internal/analysis"
)

func near(a, b r3.Vector, tol float64) bool {
	return a.Sub(b).Norm() <= tol
}

func TestRotateVector(t *testing.T) {
	tests := []struct {
		name  string
		v     r3.Vector
		axis  r3.Vector
		angle float64
		want  r3.Vector
	}{
		{"x about z", r3.Vector{X: 1}, ZAxis, math.Pi / 2, r3.Vector{Y: 1}},
		{"y about x", r3.Vector{Y: 1}, XAxis, math.Pi / 2, r3.Vector{Z: 1}},
		{"unnormalized axis", r3.Vector{X: 1}, r3.Vector{Z: 5}, math.Pi, r3.Vector{X: -1}},
		{"along axis", r3.Vector{Z: 2}, ZAxis, 1.3, r3.Vector{Z: 2}},
		{"zero angle", r3.Vector{X: 1, Y: 2, Z: 3}, YAxis, 0, r3.Vector{X: 1, Y: 2, Z: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RotateVector(tt.v, tt.axis, tt.angle)
			if !near(got, tt.want, 1e-12) {
				t.Errorf("RotateVector = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRotateAboutCenter(t *testing.T) {
	p := Rotate(r3.Vector{X: 2, Y: 1}, r3.Vector{X: 1, Y: 1}, ZAxis, math.Pi)
	if !near(p, r3.Vector{X: 0, Y: 1}, 1e-12) {
		t.Errorf("got %v", p)
	}
}

func TestIntersectThreeSpheres(t *testing.T) {
	c1 := r3.Vector{X: 0, Y: 0, Z: 0}
	c2 := r3.Vector{X: 10, Y: 0, Z: 0}
	c3 := r3.Vector{X: 3, Y: 8, Z: 1}
	target := r3.Vector{X: 4, Y: 3, Z: 6}

	r1 := target.Sub(c1).Norm()
	r2v := target.Sub(c2).Norm()
	r3v := target.Sub(c3).Norm()

	got, err := IntersectThreeSpheres(c1, c2, c3, r1, r2v, r3v, r3.Vector{X: 4, Y: 3, Z: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !near(got, target, 1e-9) {
		t.Errorf("got %v, want %v", got, target)
	}

	// the guess on the other side selects the mirror solution
	mirror, err := IntersectThreeSpheres(c1, c2, c3, r1, r2v, r3v, r3.Vector{X: 4, Y: 3, Z: -5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if near(mirror, target, 1e-6) {
		t.Error("expected the mirror branch")
	}
	for i, c := range []r3.Vector{c1, c2, c3} {
		want := []float64{r1, r2v, r3v}[i]
		if d := mirror.Sub(c).Norm(); math.Abs(d-want) > 1e-9 {
			t.Errorf("mirror distance to c%d = %f, want %f", i+1, d, want)
		}
	}
}

func TestIntersectThreeSpheresFailures(t *testing.T) {
	c1 := r3.Vector{}
	c2 := r3.Vector{X: 10}
	c3 := r3.Vector{Y: 10}

	_, err := IntersectThreeSpheres(c1, c2, c3, 1, 1, 1, r3.Vector{})
	if !errors.Is(err, analysis.ErrBadGeometry) {
		t.Errorf("expected ErrBadGeometry, got %v", err)
	}

	_, err = IntersectThreeSpheres(c1, c2, r3.Vector{X: 20}, 5, 5, 15, r3.Vector{})
	if !errors.Is(err, analysis.ErrDegenerateLinkage) {
		t.Errorf("expected ErrDegenerateLinkage for colinear centers, got %v", err)
	}

	_, err = IntersectThreeSpheres(c1, c1, c3, 5, 5, 5, r3.Vector{})
	if !errors.Is(err, analysis.ErrDegenerateLinkage) {
		t.Errorf("expected ErrDegenerateLinkage for coincident centers, got %v", err)
	}
}

func TestIntersectThreeSpheresTieBreak(t *testing.T) {
	c1 := r3.Vector{}
	c2 := r3.Vector{X: 2}
	c3 := r3.Vector{X: 1, Y: 2}
	// guess on the plane of the centers is equidistant from both branches
	got, err := IntersectThreeSpheres(c1, c2, c3, 2, 2, 2, r3.Vector{X: 1, Y: 0.75})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Z <= 0 {
		t.Errorf("expected +z branch on a tie, got %v", got)
	}
}

func TestIntersectTwoCircles(t *testing.T) {
	a, b, err := IntersectTwoCircles(r2.Point{}, 5, r2.Point{X: 8}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(a.X-4) > 1e-12 || math.Abs(a.Y-3) > 1e-12 {
		t.Errorf("first point = %v, want (4,3)", a)
	}
	if math.Abs(b.X-4) > 1e-12 || math.Abs(b.Y+3) > 1e-12 {
		t.Errorf("second point = %v, want (4,-3)", b)
	}

	if _, _, err := IntersectTwoCircles(r2.Point{}, 1, r2.Point{X: 8}, 1); !errors.Is(err, analysis.ErrBadGeometry) {
		t.Errorf("expected ErrBadGeometry, got %v", err)
	}
	if _, _, err := IntersectTwoCircles(r2.Point{}, 1, r2.Point{}, 2); !errors.Is(err, analysis.ErrDegenerateLinkage) {
		t.Errorf("expected ErrDegenerateLinkage, got %v", err)
	}
}

func TestRotateToDistance(t *testing.T) {
	p := r3.Vector{X: 0, Y: 3, Z: 0}
	target := r3.Vector{X: 0, Y: 3, Z: 4}

	got, angle, err := RotateToDistance(p, r3.Vector{}, XAxis, target, 3, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got.Norm()-3) > 1e-12 {
		t.Errorf("radius not preserved: %f", got.Norm())
	}
	if d := got.Sub(target).Norm(); math.Abs(d-3) > 1e-12 {
		t.Errorf("distance to target = %f, want 3", d)
	}
	back := Rotate(p, r3.Vector{}, XAxis, angle)
	if !near(back, got, 1e-12) {
		t.Errorf("returned angle does not reproduce point: %v vs %v", back, got)
	}
	if got.Z <= 0 {
		t.Errorf("expected positive rotation toward target, got %v", got)
	}
}

func TestIntersectTwoPlanes(t *testing.T) {
	point, dir, ok := IntersectTwoPlanes(r3.Vector{Z: 2}, ZAxis, r3.Vector{Y: 3}, YAxis)
	if !ok {
		t.Fatal("expected intersection")
	}
	if math.Abs(point.Z-2) > 1e-12 || math.Abs(point.Y-3) > 1e-12 {
		t.Errorf("point %v not on both planes", point)
	}
	if math.Abs(math.Abs(dir.X)-1) > 1e-12 {
		t.Errorf("direction %v should be along x", dir)
	}

	if _, _, ok := IntersectTwoPlanes(r3.Vector{}, ZAxis, r3.Vector{Z: 1}, ZAxis); ok {
		t.Error("parallel planes should not intersect")
	}
}

func TestIntersectLinePlane(t *testing.T) {
	p, ok := IntersectLinePlane(r3.Vector{X: 1, Y: 1, Z: 5}, r3.Vector{Z: -1}, r3.Vector{}, ZAxis)
	if !ok || !near(p, r3.Vector{X: 1, Y: 1}, 1e-12) {
		t.Errorf("got %v, %v", p, ok)
	}
	if _, ok := IntersectLinePlane(r3.Vector{}, XAxis, r3.Vector{Z: 1}, ZAxis); ok {
		t.Error("parallel line should not intersect")
	}
}

func TestRigidTransform(t *testing.T) {
	orig := [3]r3.Vector{{X: 0}, {X: 1}, {Y: 1}}
	tf := Identity().ThenRotate(ZAxis, 0.3)
	tf.Translation = r3.Vector{X: 2, Y: -1, Z: 0.5}
	var moved [3]r3.Vector
	for i, p := range orig {
		moved[i] = tf.Apply(p)
	}

	rt, err := NewRigidTransform(orig, moved)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := r3.Vector{X: 0.3, Y: -2, Z: 4}
	if got, want := rt.Apply(p), tf.Apply(p); !near(got, want, 1e-12) {
		t.Errorf("Apply = %v, want %v", got, want)
	}
	if got, want := rt.ApplyVector(ZAxis), tf.ApplyVector(ZAxis); !near(got, want, 1e-12) {
		t.Errorf("ApplyVector = %v, want %v", got, want)
	}

	if _, err := NewFrame(r3.Vector{}, r3.Vector{X: 1}, r3.Vector{X: 2}); !errors.Is(err, analysis.ErrDegenerateLinkage) {
		t.Errorf("expected ErrDegenerateLinkage, got %v", err)
	}
}

func TestTransformComposition(t *testing.T) {
	tf := Identity().ThenRotate(YAxis, 0.1).ThenRotate(XAxis, 0.2)
	tf.Center = r3.Vector{X: 30, Z: 10}

	p := r3.Vector{X: 5, Y: 20, Z: 3}
	want := Rotate(Rotate(p, tf.Center, YAxis, 0.1), tf.Center, XAxis, 0.2)
	if got := tf.Apply(p); !near(got, want, 1e-12) {
		t.Errorf("Apply = %v, want %v", got, want)
	}
}

func TestSignedAngle(t *testing.T) {
	if a := SignedAngle(XAxis, YAxis, ZAxis); math.Abs(a-math.Pi/2) > 1e-12 {
		t.Errorf("got %f", a)
	}
	if a := SignedAngle(YAxis, XAxis, ZAxis); math.Abs(a+math.Pi/2) > 1e-12 {
		t.Errorf("got %f", a)
	}
}

func TestOuterProduct(t *testing.T) {
	m := OuterProduct(r3.Vector{X: 1, Y: 2, Z: 3}, r3.Vector{X: 4, Y: 5, Z: 6})
	if m.At(1, 2) != 12 || m.At(2, 0) != 12 || m.At(0, 0) != 4 {
		t.Errorf("unexpected outer product %v", m)
	}
	v := MulVec(m, r3.Vector{X: 1})
	if !near(v, r3.Vector{X: 4, Y: 8, Z: 12}, 1e-12) {
		t.Errorf("MulVec = %v", v)
	}
}
