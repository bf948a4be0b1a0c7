package quasistatic

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"github.com/san-kum/vvase/internal/analysis"
	"github.com/san-kum/vvase/internal/kinematics"
	"github.com/san-kum/vvase/internal/vehicle"
)

const numLoc = vehicle.NumLocations

// evaluator computes tire loads and balance residuals at a chassis attitude.
// It owns a private copy of the car so the caller's car may be edited while
// a solve runs.
type evaluator struct {
	car     *vehicle.Car
	working *vehicle.Car
	in      Inputs
	opts    Options

	static  [numLoc]float64
	weight  float64
	groundZ float64

	downforce  float64
	drag       float64
	aeroPitch  float64
	sprungMass float64
	sprungCG   r3.Vector
}

// sample is one evaluated attitude.
type sample struct {
	attitude [3]float64 // pitch, roll, heave
	ground   kinematics.Ground
	loads    [numLoc]float64
	liftOff  [numLoc]bool
	patches  [numLoc]r3.Vector
	cg       r3.Vector
	residual [3]float64
}

func newEvaluator(car *vehicle.Car, in Inputs, opts Options) (*evaluator, error) {
	for loc := vehicle.Location(0); loc < numLoc; loc++ {
		tire := car.Tires.Tires[loc]
		if !(tire.Stiffness > 0) {
			return nil, fmt.Errorf("%s tire stiffness must be positive, got %g: %w", loc, tire.Stiffness, analysis.ErrInvalidInputs)
		}
		if !(tire.Diameter > 0) || math.IsInf(tire.Diameter, 1) {
			return nil, fmt.Errorf("%s tire diameter must be positive, got %g: %w", loc, tire.Diameter, analysis.ErrInvalidInputs)
		}
	}
	m := car.MassProperties
	if !(m.Mass > 0) {
		return nil, fmt.Errorf("mass must be positive, got %g: %w", m.Mass, analysis.ErrInvalidInputs)
	}
	e := &evaluator{
		car:        car,
		working:    &vehicle.Car{},
		in:         in,
		opts:       opts,
		static:     m.StaticLoads(car.ContactPatches()),
		weight:     m.Weight(),
		groundZ:    car.GroundHeight(),
		downforce:  car.Aerodynamics.Downforce(in.Speed),
		drag:       car.Aerodynamics.Drag(in.Speed),
		aeroPitch:  car.Aerodynamics.PitchMoment(in.Speed),
		sprungMass: m.SprungMass(),
		sprungCG:   m.SprungCG(),
	}
	return e, nil
}

func (e *evaluator) inputs(x [3]float64) kinematics.Inputs {
	k := e.in.Kinematics
	k.Pitch, k.Roll, k.Heave = x[0], x[1], x[2]
	return k
}

// energy is the elastic energy stored in the springs, bars and third springs.
func (e *evaluator) energy(d kinematics.Deflections) float64 {
	var u float64
	for loc := vehicle.Location(0); loc < numLoc; loc++ {
		u += 0.5 * e.car.Corner(loc).SpringRate * d.Spring[loc] * d.Spring[loc]
	}
	for i, front := range []bool{true, false} {
		axle := e.car.Suspension.Axle(front)
		if axle.BarStyle != vehicle.BarNone {
			u += 0.5 * axle.BarRate * d.BarTwist[i] * d.BarTwist[i]
		}
		if axle.HasThirdSpring {
			u += 0.5 * axle.ThirdSpringRate * d.ThirdSpring[i] * d.ThirdSpring[i]
		}
	}
	return u
}

// tractive returns the longitudinal tire force at each corner and whether it
// is reacted at the wheel center rather than the contact patch. Drive forces
// follow the drivetrain split, brake forces the brake balance.
func (e *evaluator) tractive(loads [numLoc]float64) (fx [numLoc]float64, atHub [numLoc]bool) {
	total := -(e.weight*e.in.Gx + e.drag)
	driving := total < 0
	for loc := vehicle.Location(0); loc < numLoc; loc++ {
		if loads[loc] <= 0 {
			continue
		}
		front := loc.IsFront()
		if driving {
			fx[loc] = total * e.car.Drivetrain.Fraction(front) / 2
			atHub[loc] = true
		} else {
			fx[loc] = total * e.car.Brakes.Fraction(front) / 2
			atHub[loc] = e.car.Brakes.Inboard(front)
		}
	}
	return fx, atHub
}

// lateral shares the cornering force in proportion to normal load.
func (e *evaluator) lateral(loads [numLoc]float64) [numLoc]float64 {
	var fy [numLoc]float64
	var sum float64
	for _, w := range loads {
		sum += w
	}
	if sum <= 0 {
		return fy
	}
	total := -e.weight * e.in.Gy
	for loc, w := range loads {
		fy[loc] = total * w / sum
	}
	return fy
}

// evaluate solves the tire deflections at attitude x, starting from ground,
// and returns the loads and balance residuals there.
//
// The normal load at each corner is the static load plus the virtual work
// of the suspension per unit ground rise, less the jacking of the tire's
// horizontal forces along the path its reference point travels. Each tire
// carries that load with a linear deflection, which moves the ground under
// the corner; the two are solved together per corner by Newton steps using
// the energy curvature as the wheel rate.
func (e *evaluator) evaluate(x [3]float64, ground kinematics.Ground) (*sample, error) {
	kin := e.inputs(x)
	eps := e.opts.TireStep
	loads := e.static

	for iter := 0; iter < e.opts.MaxTireIterations; iter++ {
		base, err := kinematics.SolveDeflections(e.car, e.working, kin, ground)
		if err != nil {
			return nil, err
		}
		u0 := e.energy(base)
		fx, atHub := e.tractive(loads)
		fy := e.lateral(loads)

		next := ground
		var s sample
		var largest float64
		for loc := vehicle.Location(0); loc < numLoc; loc++ {
			up, down := ground, ground
			up[loc] += eps
			down[loc] -= eps
			dp, err := kinematics.SolveDeflections(e.car, e.working, kin, up)
			if err != nil {
				return nil, err
			}
			dm, err := kinematics.SolveDeflections(e.car, e.working, kin, down)
			if err != nil {
				return nil, err
			}
			uu, ud := e.energy(dp), e.energy(dm)

			ref, refDown := dp.ContactPatch[loc], dm.ContactPatch[loc]
			if atHub[loc] {
				ref, refDown = dp.WheelCenter[loc], dm.WheelCenter[loc]
			}
			dx := (ref.X - refDown.X) / (2 * eps)
			dy := (dp.ContactPatch[loc].Y - dm.ContactPatch[loc].Y) / (2 * eps)

			w := e.static[loc] + (uu-ud)/(2*eps) - fx[loc]*dx - fy[loc]*dy
			kt := e.car.Tires.Tires[loc].Stiffness
			rate := kt + math.Max(0, (uu-2*u0+ud)/(eps*eps))
			if w < 0 {
				w = 0
				rate = kt
				s.liftOff[loc] = true
			}
			s.loads[loc] = w

			step := (w - e.static[loc] + kt*ground[loc]) / rate
			next[loc] = ground[loc] - step
			largest = math.Max(largest, math.Abs(step))
		}
		loads = s.loads

		if largest < e.opts.TireTolerance {
			s.attitude = x
			s.ground = ground
			s.patches = base.ContactPatch
			s.cg = e.centerOfGravity(kin, base)
			s.residual = e.residual(&s)
			return &s, nil
		}
		ground = next
	}
	return nil, fmt.Errorf("tire deflection did not settle in %d iterations: %w", e.opts.MaxTireIterations, analysis.ErrDidNotConverge)
}

// centerOfGravity moves the sprung mass with the chassis and each unsprung
// mass with its wheel center.
func (e *evaluator) centerOfGravity(kin kinematics.Inputs, d kinematics.Deflections) r3.Vector {
	m := e.car.MassProperties
	moment := kin.Transform().Apply(e.sprungCG).Mul(e.sprungMass)
	for loc := vehicle.Location(0); loc < numLoc; loc++ {
		shift := d.WheelCenter[loc].Sub(e.car.Corner(loc).Point(vehicle.WheelCenter))
		moment = moment.Add(m.UnsprungCG[loc].Add(shift).Mul(m.UnsprungMass[loc]))
	}
	return moment.Mul(1 / m.Mass)
}

// residual returns the vertical force, pitch moment and roll moment left
// unbalanced. Moments are taken about the current center of gravity.
func (e *evaluator) residual(s *sample) [3]float64 {
	cp := e.inputs(s.attitude).Transform().Apply(e.car.Aerodynamics.CenterOfPressure)
	h := s.cg.Z - e.groundZ

	var fz, my, mx float64
	for loc := vehicle.Location(0); loc < numLoc; loc++ {
		w := s.loads[loc]
		fz += w
		my += w * (s.patches[loc].X - s.cg.X)
		mx += w * (s.patches[loc].Y - s.cg.Y)
	}
	return [3]float64{
		fz - e.weight - e.downforce,
		my - (e.weight*e.in.Gx*h + e.drag*(cp.Z-e.groundZ) + e.downforce*(cp.X-s.cg.X) + e.aeroPitch),
		mx - (e.weight*e.in.Gy*h + e.downforce*(cp.Y-s.cg.Y)),
	}
}

// scaled is the largest residual relative to its tolerance; the attitude is
// balanced when it is below one.
func (e *evaluator) scaled(r [3]float64) float64 {
	return math.Max(math.Abs(r[0])/e.opts.ForceTolerance,
		math.Max(math.Abs(r[1]), math.Abs(r[2]))/e.opts.MomentTolerance)
}
