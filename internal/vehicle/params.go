package vehicle

import (
	"fmt"
	"strings"

	"github.com/golang/geo/r3"
)

type Tire struct {
	Diameter  float64 // in
	Width     float64 // in
	Stiffness float64 // lbf/in, vertical
}

type TireSet struct {
	Tires [NumLocations]Tire
}

func (t *TireSet) Tire(loc Location) Tire {
	return t.Tires[loc]
}

// Aerodynamics uses constant coefficients. Density is slug/in^3 and the
// reference area in^2, so forces come out in slug-in/s^2 before conversion.
type Aerodynamics struct {
	CenterOfPressure       r3.Vector
	ReferenceArea          float64
	ReferenceLength        float64
	AirDensity             float64
	DragCoefficient        float64
	LiftCoefficient        float64 // positive produces downforce
	PitchMomentCoefficient float64
}

// DefaultAirDensity is sea-level air in slug/in^3.
const DefaultAirDensity = 0.0023769 / 1728

func (a Aerodynamics) dynamicPressure(speed float64) float64 {
	return 0.5 * a.AirDensity * speed * speed
}

// Downforce returns the lift toward the ground in lbf at speed in/s.
func (a Aerodynamics) Downforce(speed float64) float64 {
	return a.dynamicPressure(speed) * a.ReferenceArea * a.LiftCoefficient / 12
}

// Drag returns the rearward drag in lbf at speed in/s.
func (a Aerodynamics) Drag(speed float64) float64 {
	return a.dynamicPressure(speed) * a.ReferenceArea * a.DragCoefficient / 12
}

// PitchMoment returns the aero pitching moment in in-lbf at speed in/s.
func (a Aerodynamics) PitchMoment(speed float64) float64 {
	return a.dynamicPressure(speed) * a.ReferenceArea * a.ReferenceLength * a.PitchMomentCoefficient / 12
}

type Brakes struct {
	FrontBrakesInboard  bool
	RearBrakesInboard   bool
	PercentFrontBraking float64 // fraction of brake torque at the front, 0..1
}

// Fraction returns the share of braking carried by the given axle.
func (b Brakes) Fraction(front bool) float64 {
	if front {
		return b.PercentFrontBraking
	}
	return 1 - b.PercentFrontBraking
}

func (b Brakes) Inboard(front bool) bool {
	if front {
		return b.FrontBrakesInboard
	}
	return b.RearBrakesInboard
}

type DriveType int

const (
	RearWheelDrive DriveType = iota
	FrontWheelDrive
	AllWheelDrive
	numDriveTypes
)

func (d DriveType) String() string {
	switch d {
	case RearWheelDrive:
		return "RWD"
	case FrontWheelDrive:
		return "FWD"
	case AllWheelDrive:
		return "AWD"
	}
	return fmt.Sprintf("DriveType(%d)", int(d))
}

func ParseDriveType(name string) (DriveType, error) {
	switch strings.ToUpper(name) {
	case "RWD", "REAR":
		return RearWheelDrive, nil
	case "FWD", "FRONT":
		return FrontWheelDrive, nil
	case "AWD", "4WD", "ALL":
		return AllWheelDrive, nil
	}
	return 0, fmt.Errorf("unknown drive type %q", name)
}

type DifferentialType int

const (
	OpenDifferential DifferentialType = iota
	LockedDifferential
	LimitedSlipDifferential
	numDifferentialTypes
)

var differentialNames = [numDifferentialTypes]string{"Open", "Locked", "LimitedSlip"}

func (d DifferentialType) String() string {
	if d < 0 || d >= numDifferentialTypes {
		return fmt.Sprintf("DifferentialType(%d)", int(d))
	}
	return differentialNames[d]
}

func ParseDifferentialType(name string) (DifferentialType, error) {
	n := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(name))
	switch n {
	case "", "open":
		return OpenDifferential, nil
	case "locked", "spool":
		return LockedDifferential, nil
	case "limitedslip", "lsd":
		return LimitedSlipDifferential, nil
	}
	return 0, fmt.Errorf("unknown differential %q", name)
}

type Differential struct {
	Type      DifferentialType
	BiasRatio float64
}

type Drivetrain struct {
	DriveType          DriveType
	GearRatios         []float64
	FinalDrive         float64
	FrontTorqueSplit   float64 // AWD share of torque at the front axle, 0..1
	FrontDifferential  Differential
	RearDifferential   Differential
	CenterDifferential Differential
}

// Fraction returns the share of drive torque delivered to the given axle.
func (d Drivetrain) Fraction(front bool) float64 {
	var f float64
	switch d.DriveType {
	case FrontWheelDrive:
		f = 1
	case AllWheelDrive:
		f = d.FrontTorqueSplit
	}
	if front {
		return f
	}
	return 1 - f
}

// HasHalfShafts reports whether the axle is driven through half-shafts.
func (d Drivetrain) HasHalfShafts(front bool) bool {
	return d.Fraction(front) > 0
}

func (d Drivetrain) clone() Drivetrain {
	c := d
	c.GearRatios = append([]float64(nil), d.GearRatios...)
	return c
}

type Engine struct {
	PeakTorque      float64 // in-lbf
	PeakTorqueSpeed float64 // rad/s
	PeakPower       float64 // in-lbf/s
	PeakPowerSpeed  float64 // rad/s
	RedlineSpeed    float64 // rad/s
}
