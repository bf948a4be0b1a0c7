package kinematics

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"github.com/san-kum/vvase/internal/analysis"
	"github.com/san-kum/vvase/internal/geom"
	"github.com/san-kum/vvase/internal/vehicle"
)

// state is a solved car plus the intermediate results the outputs need.
type state struct {
	groundZ [vehicle.NumLocations]float64
	setups  [vehicle.NumLocations]cornerSetup
	corners [vehicle.NumLocations]cornerState
	axles   [2]axleState // front, rear
}

type axleState struct {
	twist       float64
	thirdSpring float64
	thirdDamper float64
}

func axleIndex(front bool) int {
	if front {
		return 0
	}
	return 1
}

// Solve returns a copy of original with its suspension displaced to the
// chassis attitude and steering in in.
func Solve(original *vehicle.Car, in Inputs) (*vehicle.Car, error) {
	working := &vehicle.Car{}
	if err := SolveInto(original, working, in, Ground{}); err != nil {
		return nil, err
	}
	return working, nil
}

// SolveInto overwrites working with original displaced by in, with the ground
// under each tire raised by ground. working must not be shared.
func SolveInto(original, working *vehicle.Car, in Inputs, ground Ground) error {
	if err := in.Validate(); err != nil {
		return analysis.Wrap("kinematics", "", err)
	}
	working.CopyFrom(original)

	original.RLock()
	defer original.RUnlock()
	_, err := solve(original, working, in, ground)
	return err
}

// checkCar rejects car parameters no attitude can be solved with.
func checkCar(c *vehicle.Car) error {
	for loc := vehicle.Location(0); loc < vehicle.NumLocations; loc++ {
		if d := c.Tires.Tires[loc].Diameter; !(d > 0) || math.IsInf(d, 1) {
			return analysis.Wrap("kinematics", loc.String(), fmt.Errorf("tire diameter %g: %w", d, analysis.ErrInvalidInputs))
		}
		for h, p := range c.Suspension.Corners[loc].Hardpoints {
			if !analysis.IsFinite(p.X, p.Y, p.Z) {
				return analysis.Wrap("kinematics", loc.String(), fmt.Errorf("%s is not finite: %w", vehicle.Hardpoint(h), analysis.ErrInvalidInputs))
			}
		}
	}
	return nil
}

// solve expects working to hold a copy of original and original to be read
// locked for as long as the returned state is used.
func solve(original, working *vehicle.Car, in Inputs, ground Ground) (*state, error) {
	if err := checkCar(original); err != nil {
		return nil, err
	}
	st := &state{}
	t := in.Transform()
	rack := in.RackTravel(original.Suspension.RackRatio)

	for _, front := range []bool{true, false} {
		right, left := vehicle.Axle(front)
		axle := original.Suspension.Axle(front)
		drivenAxle := original.Drivetrain.HasHalfShafts(front)

		for _, loc := range []vehicle.Location{right, left} {
			corner := original.Corner(loc)
			s := &st.setups[loc]
			s.orig = corner
			s.t = t
			s.tireRadius = original.Tires.Tires[loc].Diameter / 2
			s.halfShaft = drivenAxle
			if front {
				s.rack = rack
			}

			s.normal = corner.WheelNormal
			if s.normal.Norm2() == 0 {
				// wheel centers were never derived; use the static alignment
				c := *corner
				c.ComputeWheelCenter(original.Tires.Tires[loc].Diameter)
				s.orig = &c
				s.normal = c.WheelNormal
			}

			bar, err := barAxis(original, front, loc, t)
			if err != nil {
				return nil, analysis.Wrap("kinematics", loc.String(), err)
			}
			bar.attachment = axle.BarAttachment
			s.bar = bar

			st.groundZ[loc] = corner.Point(vehicle.ContactPatch).Z + ground[loc]
			cs, err := solveCorner(s, st.groundZ[loc])
			if err != nil {
				return nil, analysis.Wrap("kinematics", loc.String(), err)
			}
			st.corners[loc] = cs
		}

		st.axles[axleIndex(front)] = st.solveAxle(original, working, front, t)
	}

	for loc := vehicle.Location(0); loc < vehicle.NumLocations; loc++ {
		c := working.Corner(loc)
		c.Hardpoints = st.corners[loc].points
		c.WheelNormal = st.corners[loc].normal
	}
	return st, nil
}

// barAxis returns the torsion axis the inboard bar link of loc rotates about.
// U-bars twist about the line through both arm pivots, T-bars about the stem
// from the pivots' midpoint to the bar midpoint, and geared bars about a
// separate shaft per side.
func barAxis(car *vehicle.Car, front bool, loc vehicle.Location, t geom.Transform) (barSpec, error) {
	axle := car.Suspension.Axle(front)
	b := barSpec{style: axle.BarStyle}
	right, left := vehicle.Axle(front)
	pr := car.Corner(right).Point(vehicle.BarArmAtPivot)
	pl := car.Corner(left).Point(vehicle.BarArmAtPivot)

	switch axle.BarStyle {
	case vehicle.BarNone:
		return b, nil
	case vehicle.BarU:
		b.axisPoint, b.axisDir = pl, pr.Sub(pl)
	case vehicle.BarT:
		mid := pr.Add(pl).Mul(0.5)
		b.axisPoint, b.axisDir = mid, axle.Hardpoints[vehicle.BarMidPoint].Sub(mid)
	case vehicle.BarGeared:
		p := car.Corner(loc).Point(vehicle.BarArmAtPivot)
		b.axisPoint, b.axisDir = p, car.Corner(loc).Point(vehicle.GearEndBarShaft).Sub(p)
	default:
		return b, fmt.Errorf("bar style %d: %w", axle.BarStyle, analysis.ErrInvalidInputs)
	}
	if b.axisDir.Norm() < geom.Epsilon {
		return b, fmt.Errorf("%s bar axis has zero length: %w", axle.BarStyle, analysis.ErrDegenerateLinkage)
	}
	b.axisPoint = t.Apply(b.axisPoint)
	b.axisDir = t.ApplyVector(b.axisDir)
	return b, nil
}

// barTwist combines the right and left arm rotations into the bar twist.
func barTwist(style vehicle.BarStyle, right, left float64) float64 {
	switch style {
	case vehicle.BarU:
		return right - left
	case vehicle.BarT:
		return (right + left) / 2
	case vehicle.BarGeared:
		return right + left
	}
	return 0
}

// solveAxle moves the axle-level points and measures the bar twist and the
// third spring and damper.
func (st *state) solveAxle(original, working *vehicle.Car, front bool, t geom.Transform) axleState {
	var ax axleState
	right, left := vehicle.Axle(front)
	orig := original.Suspension.Axle(front)
	work := working.Suspension.Axle(front)

	ax.twist = barTwist(orig.BarStyle, st.corners[right].barAngle, st.corners[left].barAngle)

	for h := range orig.Hardpoints {
		work.Hardpoints[h] = t.Apply(orig.Hardpoints[h])
	}
	if !orig.HasThirdSpring {
		return ax
	}

	// inboard ends ride on the left member, outboard ends on the right
	rc, lc := &st.corners[right], &st.corners[left]
	move := func(cs *cornerState, p r3.Vector) r3.Vector {
		return cs.onBellcrank(t, p)
	}
	if original.Corner(right).ActuationType == vehicle.OutboardActuation {
		move = func(cs *cornerState, p r3.Vector) r3.Vector {
			return cs.lower.Apply(p)
		}
	}
	h := &work.Hardpoints
	o := &orig.Hardpoints
	h[vehicle.ThirdSpringInboard] = move(lc, o[vehicle.ThirdSpringInboard])
	h[vehicle.ThirdDamperInboard] = move(lc, o[vehicle.ThirdDamperInboard])
	h[vehicle.ThirdSpringOutboard] = move(rc, o[vehicle.ThirdSpringOutboard])
	h[vehicle.ThirdDamperOutboard] = move(rc, o[vehicle.ThirdDamperOutboard])

	ax.thirdSpring = h[vehicle.ThirdSpringOutboard].Sub(h[vehicle.ThirdSpringInboard]).Norm() -
		o[vehicle.ThirdSpringOutboard].Sub(o[vehicle.ThirdSpringInboard]).Norm()
	ax.thirdDamper = h[vehicle.ThirdDamperOutboard].Sub(h[vehicle.ThirdDamperInboard]).Norm() -
		o[vehicle.ThirdDamperOutboard].Sub(o[vehicle.ThirdDamperInboard]).Norm()
	return ax
}

// Deflections are the elastic member displacements of a solved car: spring
// length changes per corner, bar twist and third spring travel per axle
// (index 0 front, 1 rear). The displaced contact patches and wheel centers
// are included for virtual work terms.
type Deflections struct {
	Spring       [vehicle.NumLocations]float64
	BarTwist     [2]float64
	ThirdSpring  [2]float64
	ContactPatch [vehicle.NumLocations]r3.Vector
	WheelCenter  [vehicle.NumLocations]r3.Vector
}

// SolveDeflections is SolveInto returning only the elastic deflections. It
// skips the output computation.
func SolveDeflections(original, working *vehicle.Car, in Inputs, ground Ground) (Deflections, error) {
	var d Deflections
	if err := in.Validate(); err != nil {
		return d, analysis.Wrap("kinematics", "", err)
	}
	working.CopyFrom(original)

	original.RLock()
	defer original.RUnlock()
	st, err := solve(original, working, in, ground)
	if err != nil {
		return d, err
	}
	for loc := vehicle.Location(0); loc < vehicle.NumLocations; loc++ {
		o, w := original.Corner(loc), working.Corner(loc)
		d.Spring[loc] = w.Point(vehicle.OutboardSpring).Sub(w.Point(vehicle.InboardSpring)).Norm() -
			o.Point(vehicle.OutboardSpring).Sub(o.Point(vehicle.InboardSpring)).Norm()
		d.ContactPatch[loc] = w.Point(vehicle.ContactPatch)
		d.WheelCenter[loc] = w.Point(vehicle.WheelCenter)
	}
	for i, ax := range st.axles {
		d.BarTwist[i] = ax.twist
		d.ThirdSpring[i] = ax.thirdSpring
	}
	return d, nil
}
