package vehicle

import (
	"github.com/golang/geo/r3"

	"github.com/san-kum/vvase/internal/units"
)

func v(x, y, z float64) r3.Vector { return r3.Vector{X: x, Y: y, Z: z} }

// Layout holds the handful of dimensions the built-in double wishbone cars
// are generated from.
type Layout struct {
	FrontAxleX     float64 // in
	Wheelbase      float64 // in
	FrontHalfTrack float64 // in
	RearHalfTrack  float64 // in
	MassLbm        float64
	CGHeight       float64 // in
	FrontWeight    float64 // fraction of weight on the front axle
}

// FormulaLayout matches a small open-wheel car.
var FormulaLayout = Layout{
	FrontAxleX:     60,
	Wheelbase:      66,
	FrontHalfTrack: 27,
	RearHalfTrack:  26,
	MassLbm:        600,
	CGHeight:       12,
	FrontWeight:    0.45,
}

// pushrodCorner builds a right-side pushrod double wishbone corner at axle
// position x. Outboard points follow the half track; inboard points stay put.
func pushrodCorner(loc Location, x, halfTrack float64, rear bool) Corner {
	dy := halfTrack - 27
	c := Corner{
		Location:            loc,
		ActuationAttachment: AttachLowerAArm,
		ActuationType:       PushPullrod,
		SpringRate:          250,
		DamperRate:          1.5,
	}
	// the upper arm pivot axis is inclined for anti-dive at the front and
	// anti-squat at the rear
	upperFrontZ, upperRearZ := 13.8, 13.2
	steerArm := 3.5
	if rear {
		upperFrontZ, upperRearZ = 13.2, 13.8
	}

	p := &c.Hardpoints
	p[ContactPatch] = v(x, 27+dy, 0)
	p[LowerBallJoint] = v(x, 25+dy, 5)
	p[UpperBallJoint] = v(x+0.8, 23.6+dy, 15)
	p[LowerFrontTubMount] = v(x-8, 9, 4.5)
	p[LowerRearTubMount] = v(x+8, 9, 4.5)
	p[UpperFrontTubMount] = v(x-7, 11, upperFrontZ)
	p[UpperRearTubMount] = v(x+7, 11, upperRearZ)
	p[OutboardTieRod] = v(x+steerArm, 24+dy, 7)
	p[InboardTieRod] = v(x+steerArm, 8, 7)
	p[OutboardPushrod] = v(x, 22.5+dy, 5.5)
	p[InboardPushrod] = v(x, 10, 17)
	p[BellCrankPivot1] = v(x-1.5, 8, 16)
	p[BellCrankPivot2] = v(x+1.5, 8, 16)
	p[OutboardSpring] = v(x, 7, 18.5)
	p[InboardSpring] = v(x, 1, 17.5)
	p[OutboardDamper] = v(x, 7, 18.5)
	p[InboardDamper] = v(x, 1, 17.5)
	p[OutboardBarLink] = v(x, 10.5, 15)
	p[InboardBarLink] = v(x, 10.5, 10)
	armDir := -1.0
	if rear {
		armDir = 1
	}
	p[BarArmAtPivot] = v(x+6*armDir, 10.5, 10)
	p[GearEndBarShaft] = v(x+6*armDir, 2, 10)
	p[OutboardHalfShaft] = v(x, 24.5+dy, 10.25)
	p[InboardHalfShaft] = v(x, 6, 10)
	return c
}

// NewDoubleWishbone builds a symmetric pushrod car from a layout.
func NewDoubleWishbone(name string, l Layout) *Car {
	rearX := l.FrontAxleX + l.Wheelbase
	mass := l.MassLbm / units.GravityFtPerS2
	unsprung := 0.8

	c := &Car{Name: name}
	s := &c.Suspension
	s.IsSymmetric = true
	s.RackRatio = 1.2
	s.Corners[RightFront] = pushrodCorner(RightFront, l.FrontAxleX, l.FrontHalfTrack, false)
	s.Corners[RightRear] = pushrodCorner(RightRear, rearX, l.RearHalfTrack, true)
	s.MirrorRightToLeft()

	s.Front = AxleSuspension{BarStyle: BarU, BarAttachment: AttachBellcrank, BarRate: 1500}
	s.Front.Hardpoints[BarMidPoint] = v(l.FrontAxleX-6, 0, 10)
	s.Front.Hardpoints[ThirdSpringInboard] = v(l.FrontAxleX, -5, 19)
	s.Front.Hardpoints[ThirdSpringOutboard] = v(l.FrontAxleX, 5, 19)
	s.Front.Hardpoints[ThirdDamperInboard] = v(l.FrontAxleX, -5, 19)
	s.Front.Hardpoints[ThirdDamperOutboard] = v(l.FrontAxleX, 5, 19)
	s.Front.ThirdSpringRate = 150
	s.Front.ThirdDamperRate = 1

	s.Rear = AxleSuspension{BarStyle: BarU, BarAttachment: AttachBellcrank, BarRate: 1000}
	s.Rear.Hardpoints[BarMidPoint] = v(rearX+6, 0, 10)
	s.Rear.Hardpoints[ThirdSpringInboard] = v(rearX, -5, 19)
	s.Rear.Hardpoints[ThirdSpringOutboard] = v(rearX, 5, 19)
	s.Rear.Hardpoints[ThirdDamperInboard] = v(rearX, -5, 19)
	s.Rear.Hardpoints[ThirdDamperOutboard] = v(rearX, 5, 19)
	s.Rear.ThirdSpringRate = 150
	s.Rear.ThirdDamperRate = 1

	for loc := range c.Tires.Tires {
		c.Tires.Tires[loc] = Tire{Diameter: 20.5, Width: 7, Stiffness: 800}
	}

	m := &c.MassProperties
	m.Mass = mass
	m.CenterOfGravity = v(rearX-l.FrontWeight*l.Wheelbase, 0, l.CGHeight)
	m.Ixx, m.Iyy, m.Izz = 3600, 7900, 8600
	m.Ixz = 300

	c.Brakes = Brakes{PercentFrontBraking: 0.65}
	c.Drivetrain = Drivetrain{
		DriveType:        RearWheelDrive,
		GearRatios:       []float64{2.8, 2.0, 1.6, 1.35, 1.2},
		FinalDrive:       3.5,
		RearDifferential: Differential{Type: LimitedSlipDifferential, BiasRatio: 2.5},
	}
	c.Engine = Engine{
		PeakTorque:      480,
		PeakTorqueSpeed: 950,
		PeakPower:       480000,
		PeakPowerSpeed:  1150,
		RedlineSpeed:    1300,
	}
	c.Aerodynamics = Aerodynamics{
		CenterOfPressure: v(l.FrontAxleX+0.5*l.Wheelbase, 0, 15),
		ReferenceArea:    1500,
		ReferenceLength:  l.Wheelbase,
		AirDensity:       DefaultAirDensity,
		DragCoefficient:  1.2,
		LiftCoefficient:  2.5,
	}

	c.ComputeWheelCenters()
	for loc := Location(0); loc < NumLocations; loc++ {
		m.UnsprungMass[loc] = unsprung
		m.UnsprungCG[loc] = c.Suspension.Corners[loc].Hardpoints[WheelCenter]
	}
	return c
}

// NewFormulaCar returns the default open-wheel car.
func NewFormulaCar() *Car {
	return NewDoubleWishbone("formula", FormulaLayout)
}

// NewSedanCar returns a front-drive car with outboard coil-overs on the lower
// arms and U-bars linked to the lower arms.
func NewSedanCar() *Car {
	c := &Car{Name: "sedan"}
	s := &c.Suspension
	s.IsSymmetric = true
	s.RackRatio = 2.5

	corner := func(loc Location, x float64, rear bool) Corner {
		k := Corner{
			Location:            loc,
			ActuationAttachment: AttachLowerAArm,
			ActuationType:       OutboardActuation,
			SpringRate:          180,
			DamperRate:          8,
			StaticCamber:        -0.01,
		}
		steerArm := 4.0
		if rear {
			steerArm = 5
			k.StaticToe = 0.002
		}
		p := &k.Hardpoints
		p[ContactPatch] = v(x, 30, 0)
		p[LowerBallJoint] = v(x, 27, 6)
		p[UpperBallJoint] = v(x+1.2, 25, 19)
		p[LowerFrontTubMount] = v(x-10, 12, 7)
		p[LowerRearTubMount] = v(x+10, 12, 7)
		p[UpperFrontTubMount] = v(x-7, 15, 20)
		p[UpperRearTubMount] = v(x+8, 15, 19.5)
		p[OutboardTieRod] = v(x+steerArm, 26, 9)
		p[InboardTieRod] = v(x+steerArm, 10, 9)
		p[OutboardSpring] = v(x, 22, 7)
		p[InboardSpring] = v(x, 20, 24)
		p[OutboardDamper] = v(x, 22, 7.5)
		p[InboardDamper] = v(x, 20.5, 24)
		p[OutboardBarLink] = v(x-2, 20, 7)
		p[InboardBarLink] = v(x-2, 20, 12)
		p[BarArmAtPivot] = v(x-10, 20, 12)
		p[GearEndBarShaft] = v(x-10, 4, 12)
		p[OutboardHalfShaft] = v(x, 28, 12.5)
		p[InboardHalfShaft] = v(x, 8, 12)
		// unused with outboard actuation
		p[OutboardPushrod] = v(x, 24, 7)
		p[InboardPushrod] = v(x, 14, 20)
		p[BellCrankPivot1] = v(x-1.5, 12, 19)
		p[BellCrankPivot2] = v(x+1.5, 12, 19)
		return k
	}

	const frontX, wheelbase = 40.0, 106.0
	s.Corners[RightFront] = corner(RightFront, frontX, false)
	s.Corners[RightRear] = corner(RightRear, frontX+wheelbase, true)
	s.MirrorRightToLeft()

	s.Front = AxleSuspension{BarStyle: BarU, BarAttachment: AttachLowerAArm, BarRate: 4000}
	s.Front.Hardpoints[BarMidPoint] = v(frontX-10, 0, 12)
	s.Rear = AxleSuspension{BarStyle: BarU, BarAttachment: AttachLowerAArm, BarRate: 2000}
	s.Rear.Hardpoints[BarMidPoint] = v(frontX+wheelbase-10, 0, 12)

	for loc := range c.Tires.Tires {
		c.Tires.Tires[loc] = Tire{Diameter: 25, Width: 8.5, Stiffness: 1400}
	}

	m := &c.MassProperties
	m.Mass = 3000 / units.GravityFtPerS2
	m.CenterOfGravity = v(frontX+0.4*wheelbase, 0, 20)
	m.Ixx, m.Iyy, m.Izz = 60000, 250000, 280000

	c.Brakes = Brakes{PercentFrontBraking: 0.7}
	c.Drivetrain = Drivetrain{
		DriveType:         FrontWheelDrive,
		GearRatios:        []float64{3.5, 2.1, 1.4, 1.0, 0.8, 0.65},
		FinalDrive:        4.1,
		FrontDifferential: Differential{Type: OpenDifferential},
	}
	c.Engine = Engine{PeakTorque: 2400, PeakTorqueSpeed: 450, PeakPower: 1.3e6, PeakPowerSpeed: 630, RedlineSpeed: 700}
	c.Aerodynamics = Aerodynamics{
		CenterOfPressure: v(frontX+0.5*wheelbase, 0, 22),
		ReferenceArea:    3300,
		ReferenceLength:  wheelbase,
		AirDensity:       DefaultAirDensity,
		DragCoefficient:  0.32,
		LiftCoefficient:  -0.1,
	}

	c.ComputeWheelCenters()
	for loc := Location(0); loc < NumLocations; loc++ {
		m.UnsprungMass[loc] = 1.5
		m.UnsprungCG[loc] = c.Suspension.Corners[loc].Hardpoints[WheelCenter]
	}
	return c
}
