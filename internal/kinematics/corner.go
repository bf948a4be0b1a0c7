package kinematics

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"github.com/san-kum/vvase/internal/analysis"
	"github.com/san-kum/vvase/internal/geom"
	"github.com/san-kum/vvase/internal/vehicle"
)

const (
	contactTolerance     = 1e-11 // in
	maxContactIterations = 50
	maxStepHalvings      = 20
)

// barSpec is the axle-level anti-roll bar data a corner needs. The axis is
// already moved with the chassis.
type barSpec struct {
	style      vehicle.BarStyle
	attachment vehicle.Attachment
	axisPoint  r3.Vector
	axisDir    r3.Vector
}

// cornerSetup is everything one corner solve reads. It is built once per
// car solve and reused for the installation ratio perturbations.
type cornerSetup struct {
	orig       *vehicle.Corner
	normal     r3.Vector
	tireRadius float64
	t          geom.Transform
	rack       float64
	bar        barSpec
	halfShaft  bool
}

type cornerState struct {
	points [vehicle.NumHardpoints]r3.Vector
	normal r3.Vector

	lower, upper, upright geom.RigidTransform

	bellcrankAngle float64
	barAngle       float64
	plunge         float64
}

// moved returns a chassis-fixed hardpoint after the chassis transform.
func (s *cornerSetup) moved(h vehicle.Hardpoint) r3.Vector {
	return s.t.Apply(s.orig.Point(h))
}

func (s *cornerSetup) length(a, b vehicle.Hardpoint) float64 {
	return s.orig.Point(a).Sub(s.orig.Point(b)).Norm()
}

// uprightPose is the wheel position for one lower arm angle.
type uprightPose struct {
	lbj, ubj, otr r3.Vector
	wc, cp, n     r3.Vector
	upright       geom.RigidTransform
}

func (s *cornerSetup) pose(theta float64, lfp, axis r3.Vector) (uprightPose, error) {
	var p uprightPose
	p.lbj = geom.Rotate(s.moved(vehicle.LowerBallJoint), lfp, axis, theta)

	var err error
	p.ubj, err = geom.IntersectThreeSpheres(
		s.moved(vehicle.UpperFrontTubMount), s.moved(vehicle.UpperRearTubMount), p.lbj,
		s.length(vehicle.UpperBallJoint, vehicle.UpperFrontTubMount),
		s.length(vehicle.UpperBallJoint, vehicle.UpperRearTubMount),
		s.length(vehicle.UpperBallJoint, vehicle.LowerBallJoint),
		s.moved(vehicle.UpperBallJoint))
	if err != nil {
		return p, fmt.Errorf("upper ball joint: %w", err)
	}

	itr := s.t.Apply(s.orig.Point(vehicle.InboardTieRod).Add(r3.Vector{Y: s.rack}))
	p.otr, err = geom.IntersectThreeSpheres(
		itr, p.lbj, p.ubj,
		s.length(vehicle.OutboardTieRod, vehicle.InboardTieRod),
		s.length(vehicle.OutboardTieRod, vehicle.LowerBallJoint),
		s.length(vehicle.OutboardTieRod, vehicle.UpperBallJoint),
		s.moved(vehicle.OutboardTieRod))
	if err != nil {
		return p, fmt.Errorf("outboard tie rod: %w", err)
	}

	o := s.orig
	p.upright, err = geom.NewRigidTransform(
		[3]r3.Vector{o.Point(vehicle.LowerBallJoint), o.Point(vehicle.UpperBallJoint), o.Point(vehicle.OutboardTieRod)},
		[3]r3.Vector{p.lbj, p.ubj, p.otr})
	if err != nil {
		return p, fmt.Errorf("upright: %w", err)
	}
	p.wc = p.upright.Apply(o.Point(vehicle.WheelCenter))
	p.n = p.upright.ApplyVector(s.normal).Normalize()
	p.cp = p.wc.Sub(vehicle.WheelUp(p.n).Mul(s.tireRadius))
	return p, nil
}

// solveCorner finds the lower arm angle that puts the contact patch on the
// ground at groundZ, then places every other body of the corner.
func solveCorner(s *cornerSetup, groundZ float64) (cornerState, error) {
	var st cornerState

	lfp := s.moved(vehicle.LowerFrontTubMount)
	axis := s.moved(vehicle.LowerRearTubMount).Sub(lfp).Normalize()
	if axis.Norm2() == 0 {
		return st, fmt.Errorf("lower A-arm pivot axis: %w", analysis.ErrDegenerateLinkage)
	}

	eval := func(theta float64) (uprightPose, float64, error) {
		p, err := s.pose(theta, lfp, axis)
		return p, p.cp.Z - groundZ, err
	}

	theta0 := 0.0
	p, f0, err := eval(theta0)
	if err != nil {
		return st, err
	}
	if math.Abs(f0) > contactTolerance {
		slope := axis.Cross(s.moved(vehicle.LowerBallJoint).Sub(lfp)).Z
		if math.Abs(slope) < geom.Epsilon {
			return st, fmt.Errorf("lower A-arm cannot move the wheel vertically: %w", analysis.ErrDegenerateLinkage)
		}
		theta1 := -f0 / slope

		var f1 float64
		converged := false
		for i := 0; i < maxContactIterations; i++ {
			var next uprightPose
			step := theta1 - theta0
			for h := 0; ; h++ {
				next, f1, err = eval(theta0 + step)
				if err == nil {
					break
				}
				if h == maxStepHalvings {
					return st, err
				}
				step /= 2
			}
			theta1 = theta0 + step
			p = next
			if math.Abs(f1) <= contactTolerance {
				converged = true
				break
			}
			if f1 == f0 {
				break
			}
			theta0, theta1, f0 = theta1, theta1-f1*(theta1-theta0)/(f1-f0), f1
		}
		if !converged {
			return st, fmt.Errorf("contact patch %.3g in from the ground: %w", f1, analysis.ErrBadGeometry)
		}
	}

	o := s.orig
	pts := &st.points
	for h := vehicle.Hardpoint(0); h < vehicle.NumHardpoints; h++ {
		pts[h] = s.moved(h)
	}
	pts[vehicle.InboardTieRod] = s.t.Apply(o.Point(vehicle.InboardTieRod).Add(r3.Vector{Y: s.rack}))
	pts[vehicle.LowerBallJoint] = p.lbj
	pts[vehicle.UpperBallJoint] = p.ubj
	pts[vehicle.OutboardTieRod] = p.otr
	pts[vehicle.WheelCenter] = p.wc
	pts[vehicle.ContactPatch] = p.cp
	st.normal = p.n
	st.upright = p.upright

	st.lower, err = geom.NewRigidTransform(
		[3]r3.Vector{o.Point(vehicle.LowerFrontTubMount), o.Point(vehicle.LowerRearTubMount), o.Point(vehicle.LowerBallJoint)},
		[3]r3.Vector{pts[vehicle.LowerFrontTubMount], pts[vehicle.LowerRearTubMount], p.lbj})
	if err != nil {
		return st, fmt.Errorf("lower A-arm: %w", err)
	}
	st.upper, err = geom.NewRigidTransform(
		[3]r3.Vector{o.Point(vehicle.UpperFrontTubMount), o.Point(vehicle.UpperRearTubMount), o.Point(vehicle.UpperBallJoint)},
		[3]r3.Vector{pts[vehicle.UpperFrontTubMount], pts[vehicle.UpperRearTubMount], p.ubj})
	if err != nil {
		return st, fmt.Errorf("upper A-arm: %w", err)
	}

	if err := st.actuate(s); err != nil {
		return st, err
	}
	if err := st.moveBar(s); err != nil {
		return st, err
	}

	pts[vehicle.OutboardHalfShaft] = st.upright.Apply(o.Point(vehicle.OutboardHalfShaft))
	if s.halfShaft {
		st.plunge = pts[vehicle.OutboardHalfShaft].Sub(pts[vehicle.InboardHalfShaft]).Norm() -
			s.length(vehicle.OutboardHalfShaft, vehicle.InboardHalfShaft)
	}
	return st, nil
}

// body returns the motion of the suspension member a point is attached to.
func (st *cornerState) body(a vehicle.Attachment) (func(r3.Vector) r3.Vector, error) {
	switch a {
	case vehicle.AttachLowerAArm:
		return st.lower.Apply, nil
	case vehicle.AttachUpperAArm:
		return st.upper.Apply, nil
	case vehicle.AttachUpright:
		return st.upright.Apply, nil
	}
	return nil, fmt.Errorf("no suspension member for attachment %s: %w", a, analysis.ErrInvalidInputs)
}

func (st *cornerState) bellcrankAxis() (r3.Vector, r3.Vector) {
	p1 := st.points[vehicle.BellCrankPivot1]
	return p1, st.points[vehicle.BellCrankPivot2].Sub(p1)
}

// onBellcrank moves a point riding on the bellcrank, given in the original
// chassis position.
func (st *cornerState) onBellcrank(t geom.Transform, p r3.Vector) r3.Vector {
	center, axis := st.bellcrankAxis()
	return geom.Rotate(t.Apply(p), center, axis, st.bellcrankAngle)
}

// actuate places the pushrod, bellcrank, spring and damper.
func (st *cornerState) actuate(s *cornerSetup) error {
	o := s.orig
	pts := &st.points
	body, err := st.body(o.ActuationAttachment)
	if err != nil {
		return err
	}

	if o.ActuationType == vehicle.OutboardActuation {
		pts[vehicle.OutboardSpring] = body(o.Point(vehicle.OutboardSpring))
		pts[vehicle.OutboardDamper] = body(o.Point(vehicle.OutboardDamper))
		return nil
	}

	pts[vehicle.OutboardPushrod] = body(o.Point(vehicle.OutboardPushrod))
	center, axis := st.bellcrankAxis()
	pts[vehicle.InboardPushrod], st.bellcrankAngle, err = geom.RotateToDistance(
		pts[vehicle.InboardPushrod], center, axis,
		pts[vehicle.OutboardPushrod], s.length(vehicle.InboardPushrod, vehicle.OutboardPushrod),
		pts[vehicle.InboardPushrod])
	if err != nil {
		return fmt.Errorf("bellcrank: %w", err)
	}
	pts[vehicle.OutboardSpring] = st.onBellcrank(s.t, o.Point(vehicle.OutboardSpring))
	pts[vehicle.OutboardDamper] = st.onBellcrank(s.t, o.Point(vehicle.OutboardDamper))
	return nil
}

// moveBar places the bar link and rotates the bar arm to meet it.
func (st *cornerState) moveBar(s *cornerSetup) error {
	if s.bar.style == vehicle.BarNone {
		return nil
	}
	o := s.orig
	pts := &st.points

	if s.bar.attachment == vehicle.AttachBellcrank {
		if o.ActuationType != vehicle.PushPullrod {
			return fmt.Errorf("bar link on a bellcrank without a pushrod: %w", analysis.ErrInvalidInputs)
		}
		pts[vehicle.OutboardBarLink] = st.onBellcrank(s.t, o.Point(vehicle.OutboardBarLink))
	} else {
		body, err := st.body(s.bar.attachment)
		if err != nil {
			return err
		}
		pts[vehicle.OutboardBarLink] = body(o.Point(vehicle.OutboardBarLink))
	}

	var err error
	pts[vehicle.InboardBarLink], st.barAngle, err = geom.RotateToDistance(
		pts[vehicle.InboardBarLink], s.bar.axisPoint, s.bar.axisDir,
		pts[vehicle.OutboardBarLink], s.length(vehicle.InboardBarLink, vehicle.OutboardBarLink),
		pts[vehicle.InboardBarLink])
	if err != nil {
		return fmt.Errorf("anti-roll bar: %w", err)
	}
	return nil
}
