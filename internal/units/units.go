// Package units tags analysis outputs with the kind of quantity they carry.
//
// Solvers work in inches, radians, pounds-force, slugs and seconds. Display
// layers convert through a Formatter.
package units

import (
	"fmt"
	"math"
	"strings"
)

type UnitType int

const (
	Unitless UnitType = iota
	Angle
	Distance
	Area
	Force
	Moment
	Percent
	AnglePerDistance
	Mass
	Inertia
	Stiffness
	Damping
	TorsionalStiffness
	Velocity
	Acceleration
)

var unitNames = [...]string{
	Unitless:           "unitless",
	Angle:              "angle",
	Distance:           "distance",
	Area:               "area",
	Force:              "force",
	Moment:             "moment",
	Percent:            "percent",
	AnglePerDistance:   "angle/distance",
	Mass:               "mass",
	Inertia:            "inertia",
	Stiffness:          "stiffness",
	Damping:            "damping",
	TorsionalStiffness: "torsional stiffness",
	Velocity:           "velocity",
	Acceleration:       "acceleration",
}

func (u UnitType) String() string {
	if u < 0 || int(u) >= len(unitNames) {
		return fmt.Sprintf("UnitType(%d)", int(u))
	}
	return unitNames[u]
}

// ParseUnitType reverses String. Unknown names give Unitless and false.
func ParseUnitType(name string) (UnitType, bool) {
	for i, n := range unitNames {
		if n == name {
			return UnitType(i), true
		}
	}
	return Unitless, false
}

// Gravity in in/s^2. Weight in lbf is mass in slug times GravityFtPerS2.
const (
	GravityInPerS2 = 386.088
	GravityFtPerS2 = 32.174
)

// Formatter renders a value of the given unit type for display.
type Formatter interface {
	Format(value float64, unit UnitType) string
	Label(unit UnitType) string
}

// Display converts angles to degrees and leaves everything else in the
// internal units.
type Display struct {
	Precision int
}

func NewDisplay() Display {
	return Display{Precision: 4}
}

func (d Display) Convert(value float64, unit UnitType) float64 {
	switch unit {
	case Angle:
		return value * 180 / math.Pi
	case AnglePerDistance:
		return value * 180 / math.Pi
	}
	return value
}

func (d Display) Format(value float64, unit UnitType) string {
	if math.IsNaN(value) {
		return "NaN"
	}
	s := fmt.Sprintf("%.*f", d.Precision, d.Convert(value, unit))
	if label := d.Label(unit); label != "" {
		return s + " " + label
	}
	return s
}

func (d Display) Label(unit UnitType) string {
	switch unit {
	case Angle:
		return "deg"
	case Distance:
		return "in"
	case Area:
		return "in^2"
	case Force:
		return "lbf"
	case Moment:
		return "in-lbf"
	case Percent:
		return "%"
	case AnglePerDistance:
		return "deg/in"
	case Mass:
		return "slug"
	case Inertia:
		return "slug-in^2"
	case Stiffness:
		return "lbf/in"
	case Damping:
		return "lbf-s/in"
	case TorsionalStiffness:
		return "in-lbf/rad"
	case Velocity:
		return "in/s"
	case Acceleration:
		return "g"
	}
	return ""
}

// Heading returns "name [label]" for column headers.
func Heading(f Formatter, name string, unit UnitType) string {
	label := strings.TrimSpace(f.Label(unit))
	if label == "" {
		return name
	}
	return fmt.Sprintf("%s [%s]", name, label)
}
