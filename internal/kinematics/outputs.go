package kinematics

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/san-kum/vvase/internal/analysis"
	"github.com/san-kum/vvase/internal/geom"
	"github.com/san-kum/vvase/internal/vehicle"
)

// installationStep is the ground offset used for installation ratios.
const installationStep = 0.01 // in

type CornerOutputs struct {
	Doubles [NumCornerDoubles]float64
	Vectors [NumCornerVectors]r3.Vector
}

// Outputs holds every kinematic output of one solved attitude. Values that do
// not exist for the geometry, such as the instant center of parallel arms,
// are NaN or +Inf.
type Outputs struct {
	Corners [vehicle.NumLocations]CornerOutputs
	Doubles [NumCarDoubles]float64
	Vectors [NumCarVectors]r3.Vector
}

// Value returns the scalar output id, or NaN for an invalid id.
func (o *Outputs) Value(id OutputID) float64 {
	k, ok := id.Key()
	if !ok {
		return math.NaN()
	}
	switch k.Class {
	case ClassCornerDouble:
		return o.Corners[k.Location].Doubles[k.Item]
	case ClassCornerVector:
		return geom.Component(o.Corners[k.Location].Vectors[k.Item], k.Axis)
	case ClassCarDouble:
		return o.Doubles[k.Item]
	default:
		return geom.Component(o.Vectors[k.Item], k.Axis)
	}
}

// Corner returns one corner double.
func (o *Outputs) Corner(loc vehicle.Location, d CornerDouble) float64 {
	return o.Corners[loc].Doubles[d]
}

// Analyze solves original at in and computes every output.
func Analyze(original *vehicle.Car, in Inputs) (*vehicle.Car, *Outputs, error) {
	working := &vehicle.Car{}
	out, err := AnalyzeInto(original, working, in, Ground{})
	if err != nil {
		return nil, nil, err
	}
	return working, out, nil
}

// AnalyzeInto is SolveInto followed by the output computation.
func AnalyzeInto(original, working *vehicle.Car, in Inputs, ground Ground) (*Outputs, error) {
	if err := in.Validate(); err != nil {
		return nil, analysis.Wrap("kinematics", "", err)
	}
	working.CopyFrom(original)

	original.RLock()
	defer original.RUnlock()
	st, err := solve(original, working, in, ground)
	if err != nil {
		return nil, err
	}
	return st.outputs(original, working), nil
}

func (st *state) outputs(original, working *vehicle.Car) *Outputs {
	out := &Outputs{}
	for loc := vehicle.Location(0); loc < vehicle.NumLocations; loc++ {
		st.cornerOutputs(original, working, loc, &out.Corners[loc])
	}
	st.carOutputs(working, out)
	return out
}

func (st *state) cornerOutputs(original, working *vehicle.Car, loc vehicle.Location, out *CornerOutputs) {
	s := loc.Side()
	front := loc.IsFront()
	orig := original.Corner(loc)
	c := working.Corner(loc)
	p := func(h vehicle.Hardpoint) r3.Vector { return c.Point(h) }
	d := &out.Doubles

	n := c.WheelNormal
	d[Camber] = math.Atan2(-n.Z, s*n.Y)
	d[Steer] = math.Atan2(-s*n.X, s*n.Y) - s*orig.StaticToe

	lbj, ubj, cp, wc := p(vehicle.LowerBallJoint), p(vehicle.UpperBallJoint), p(vehicle.ContactPatch), p(vehicle.WheelCenter)
	axis := ubj.Sub(lbj)
	d[Caster] = math.Atan2(axis.X, axis.Z)
	d[KPI] = math.Atan2(-s*axis.Y, axis.Z)

	if ground, ok := geom.IntersectLinePlane(lbj, axis, cp, geom.ZAxis); ok {
		d[CasterTrail] = cp.X - ground.X
		d[ScrubRadius] = s * (cp.Y - ground.Y)
	} else {
		d[CasterTrail], d[ScrubRadius] = math.NaN(), math.NaN()
	}
	d[Scrub] = s * (cp.Y - orig.Point(vehicle.ContactPatch).Y)

	foot := geom.ClosestPointOnLine(wc, lbj, axis)
	d[SpindleLength] = wc.Sub(foot).Norm()
	if s*(wc.Y-foot.Y) < 0 {
		d[SpindleLength] = -d[SpindleLength]
	}

	length := func(pts *[vehicle.NumHardpoints]r3.Vector, a, b vehicle.Hardpoint) float64 {
		return pts[a].Sub(pts[b]).Norm()
	}
	d[Spring] = length(&c.Hardpoints, vehicle.OutboardSpring, vehicle.InboardSpring) -
		length(&orig.Hardpoints, vehicle.OutboardSpring, vehicle.InboardSpring)
	d[Damper] = length(&c.Hardpoints, vehicle.OutboardDamper, vehicle.InboardDamper) -
		length(&orig.Hardpoints, vehicle.OutboardDamper, vehicle.InboardDamper)
	d[AxlePlunge] = st.corners[loc].plunge

	d[SpringInstallationRatio], d[DamperInstallationRatio], d[ARBInstallationRatio] = st.installationRatios(loc)

	// instant axis from the two A-arm planes
	upperN := geom.PlaneNormal(p(vehicle.UpperFrontTubMount), p(vehicle.UpperRearTubMount), ubj)
	lowerN := geom.PlaneNormal(p(vehicle.LowerFrontTubMount), p(vehicle.LowerRearTubMount), lbj)
	point, dir, ok := geom.IntersectTwoPlanes(ubj, upperN, lbj, lowerN)
	if !ok {
		out.Vectors[InstantCenter] = geom.NaNVector()
		out.Vectors[InstantAxisDirection] = geom.NaNVector()
		d[FrontViewSwingArmLength] = math.Inf(1)
		d[SideViewSwingArmLength] = math.Inf(1)
		d[AntiBrakePitch], d[AntiDrivePitch] = 0, 0
		return
	}
	if dir.X < 0 {
		dir = dir.Mul(-1)
	}
	out.Vectors[InstantAxisDirection] = dir

	if ic, ok := geom.IntersectLinePlane(point, dir, cp, geom.XAxis); ok {
		out.Vectors[InstantCenter] = ic
		d[FrontViewSwingArmLength] = math.Hypot(ic.Y-cp.Y, ic.Z-cp.Z)
	} else {
		out.Vectors[InstantCenter] = geom.NaNVector()
		d[FrontViewSwingArmLength] = math.Inf(1)
	}

	svic, finite := geom.IntersectLinePlane(point, dir, cp, geom.YAxis)
	if finite {
		d[SideViewSwingArmLength] = math.Hypot(svic.X-cp.X, svic.Z-cp.Z)
	} else {
		d[SideViewSwingArmLength] = math.Inf(1)
	}

	f := 1.0
	if !front {
		f = -1
	}
	antiTangent := func(ref r3.Vector) float64 {
		if !finite {
			return dir.Z / (f * dir.X)
		}
		return (svic.Z - ref.Z) / (f * (svic.X - ref.X))
	}
	ratio := original.CGHeight() / original.Wheelbase()

	brakeRef := cp
	if original.Brakes.Inboard(front) {
		brakeRef = wc
	}
	d[AntiBrakePitch] = antiTangent(brakeRef) / ratio * original.Brakes.Fraction(front) * 100
	d[AntiDrivePitch] = antiTangent(wc) / ratio * original.Drivetrain.Fraction(front) * 100
}

// installationRatios re-solves one corner with the ground raised and lowered
// by installationStep. The bar ratio holds the opposite corner still.
func (st *state) installationRatios(loc vehicle.Location) (spring, damper, bar float64) {
	s := &st.setups[loc]
	up, errUp := solveCorner(s, st.groundZ[loc]+installationStep)
	down, errDown := solveCorner(s, st.groundZ[loc]-installationStep)
	if errUp != nil || errDown != nil {
		nan := math.NaN()
		return nan, nan, nan
	}

	length := func(cs *cornerState, a, b vehicle.Hardpoint) float64 {
		return cs.points[a].Sub(cs.points[b]).Norm()
	}
	ratio := func(a, b vehicle.Hardpoint) float64 {
		return -(length(&up, a, b) - length(&down, a, b)) / (2 * installationStep)
	}
	spring = ratio(vehicle.OutboardSpring, vehicle.InboardSpring)
	damper = ratio(vehicle.OutboardDamper, vehicle.InboardDamper)

	other := st.corners[loc.Opposite()].barAngle
	twist := func(angle float64) float64 {
		if loc.IsLeft() {
			return barTwist(s.bar.style, other, angle)
		}
		return barTwist(s.bar.style, angle, other)
	}
	bar = loc.Side() * (twist(up.barAngle) - twist(down.barAngle)) / (2 * installationStep)
	return spring, damper, bar
}

func (st *state) carOutputs(working *vehicle.Car, out *Outputs) {
	d := &out.Doubles
	cps := working.ContactPatches()
	wc := func(loc vehicle.Location) r3.Vector {
		return working.Corner(loc).Point(vehicle.WheelCenter)
	}

	d[FrontARBTwist] = st.axles[0].twist
	d[RearARBTwist] = st.axles[1].twist
	d[FrontThirdSpring] = st.axles[0].thirdSpring
	d[FrontThirdDamper] = st.axles[0].thirdDamper
	d[RearThirdSpring] = st.axles[1].thirdSpring
	d[RearThirdDamper] = st.axles[1].thirdDamper

	co := &out.Corners
	d[FrontNetSteer] = co[vehicle.RightFront].Doubles[Steer] + co[vehicle.LeftFront].Doubles[Steer]
	d[RearNetSteer] = co[vehicle.RightRear].Doubles[Steer] + co[vehicle.LeftRear].Doubles[Steer]
	d[FrontNetScrub] = co[vehicle.RightFront].Doubles[Scrub] + co[vehicle.LeftFront].Doubles[Scrub]
	d[RearNetScrub] = co[vehicle.RightRear].Doubles[Scrub] + co[vehicle.LeftRear].Doubles[Scrub]

	d[FrontTrackGround] = cps[vehicle.RightFront].Y - cps[vehicle.LeftFront].Y
	d[RearTrackGround] = cps[vehicle.RightRear].Y - cps[vehicle.LeftRear].Y
	d[RightWheelbaseGround] = cps[vehicle.RightRear].X - cps[vehicle.RightFront].X
	d[LeftWheelbaseGround] = cps[vehicle.LeftRear].X - cps[vehicle.LeftFront].X
	d[FrontTrackHub] = wc(vehicle.RightFront).Y - wc(vehicle.LeftFront).Y
	d[RearTrackHub] = wc(vehicle.RightRear).Y - wc(vehicle.LeftRear).Y
	d[RightWheelbaseHub] = wc(vehicle.RightRear).X - wc(vehicle.RightFront).X
	d[LeftWheelbaseHub] = wc(vehicle.LeftRear).X - wc(vehicle.LeftFront).X

	// each corner contributes the plane through its contact patch that
	// contains its instant axis
	type plane struct {
		point, normal r3.Vector
		ok            bool
	}
	var planes [vehicle.NumLocations]plane
	for loc := range planes {
		ic := co[loc].Vectors[InstantCenter]
		dir := co[loc].Vectors[InstantAxisDirection]
		if !geom.IsFiniteVector(ic) || !geom.IsFiniteVector(dir) {
			continue
		}
		n := dir.Cross(cps[loc].Sub(ic))
		if n.Norm() < geom.Epsilon {
			continue
		}
		planes[loc] = plane{point: cps[loc], normal: n.Normalize(), ok: true}
	}

	center := func(a, b vehicle.Location, cut r3.Vector, orient r3.Vector) (r3.Vector, r3.Vector) {
		pa, pb := planes[a], planes[b]
		if !pa.ok || !pb.ok {
			return geom.NaNVector(), geom.NaNVector()
		}
		point, dir, ok := geom.IntersectTwoPlanes(pa.point, pa.normal, pb.point, pb.normal)
		if !ok {
			return geom.NaNVector(), geom.NaNVector()
		}
		if dir.Dot(orient) < 0 {
			dir = dir.Mul(-1)
		}
		mid := cps[a].Add(cps[b]).Mul(0.5)
		c, ok := geom.IntersectLinePlane(point, dir, mid, cut)
		if !ok {
			return geom.NaNVector(), dir
		}
		return c, dir
	}

	v := &out.Vectors
	v[FrontKinematicRC], v[FrontRollAxisDirection] = center(vehicle.RightFront, vehicle.LeftFront, geom.XAxis, geom.XAxis)
	v[RearKinematicRC], v[RearRollAxisDirection] = center(vehicle.RightRear, vehicle.LeftRear, geom.XAxis, geom.XAxis)
	v[RightKinematicPC], v[RightPitchAxisDirection] = center(vehicle.RightFront, vehicle.RightRear, geom.YAxis, geom.YAxis)
	v[LeftKinematicPC], v[LeftPitchAxisDirection] = center(vehicle.LeftFront, vehicle.LeftRear, geom.YAxis, geom.YAxis)
}
