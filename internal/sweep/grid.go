// Package sweep evaluates the kinematics of one or more cars over a grid of
// chassis attitudes and collects every output into a cube.
package sweep

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/san-kum/vvase/internal/analysis"
	"github.com/san-kum/vvase/internal/kinematics"
	"github.com/san-kum/vvase/internal/units"
)

// Variable is an independent sweep variable.
type Variable int

const (
	Pitch Variable = iota
	Roll
	Heave
	Rack
	NumVariables
)

var variableNames = [NumVariables]string{"Pitch", "Roll", "Heave", "Rack"}

func (v Variable) String() string {
	if v < 0 || v >= NumVariables {
		return fmt.Sprintf("Variable(%d)", int(v))
	}
	return variableNames[v]
}

func (v Variable) Unit() units.UnitType {
	if v == Pitch || v == Roll {
		return units.Angle
	}
	return units.Distance
}

func ParseVariable(name string) (Variable, error) {
	for i, n := range variableNames {
		if strings.EqualFold(n, name) {
			return Variable(i), nil
		}
	}
	return 0, fmt.Errorf("unknown sweep variable %q", name)
}

// set writes value into the input field the variable controls.
func (v Variable) set(in *kinematics.Inputs, value float64) {
	switch v {
	case Pitch:
		in.Pitch = value
	case Roll:
		in.Roll = value
	case Heave:
		in.Heave = value
	case Rack:
		in.Rack = value
	}
}

func (v Variable) get(in kinematics.Inputs) float64 {
	switch v {
	case Pitch:
		return in.Pitch
	case Roll:
		return in.Roll
	case Heave:
		return in.Heave
	case Rack:
		return in.Rack
	}
	return 0
}

// Axis spans one variable from Start to End inclusive.
type Axis struct {
	Variable Variable
	Start    float64
	End      float64
	Points   int
}

// Value returns the i-th grid value.
func (a Axis) Value(i int) float64 {
	if a.Points <= 1 {
		return a.Start
	}
	return a.Start + (a.End-a.Start)*float64(i)/float64(a.Points-1)
}

func (a Axis) validate(name string) error {
	var errs error
	if a.Variable < 0 || a.Variable >= NumVariables {
		errs = multierr.Append(errs, fmt.Errorf("%s axis: unknown variable %d: %w", name, a.Variable, analysis.ErrInvalidInputs))
	}
	if a.Points < 1 {
		errs = multierr.Append(errs, fmt.Errorf("%s axis: need at least one point, got %d: %w", name, a.Points, analysis.ErrInvalidInputs))
	}
	if !analysis.IsFinite(a.Start, a.End) {
		errs = multierr.Append(errs, fmt.Errorf("%s axis: range is not finite: %w", name, analysis.ErrInvalidInputs))
	}
	return errs
}

// Definition describes a sweep. Variables not swept keep their values from
// Base, as do the steering mode, rotation order and center of rotation.
type Definition struct {
	Name      string
	Primary   Axis
	Secondary *Axis
	Base      kinematics.Inputs

	// CarPaths names the car files the sweep was run against when it is
	// saved. Run takes the cars themselves.
	CarPaths []string
}

func (d *Definition) Validate() error {
	errs := d.Primary.validate("primary")
	if d.Secondary != nil {
		errs = multierr.Append(errs, d.Secondary.validate("secondary"))
		if d.Secondary.Variable == d.Primary.Variable {
			errs = multierr.Append(errs, fmt.Errorf("both axes sweep %s: %w", d.Primary.Variable, analysis.ErrInvalidInputs))
		}
	}
	return multierr.Append(errs, d.Base.Validate())
}

// NumPoints is the number of grid points.
func (d *Definition) NumPoints() int {
	n := d.Primary.Points
	if d.Secondary != nil {
		n *= d.Secondary.Points
	}
	return n
}

// Inputs expands the grid in row-major order: the secondary variable
// changes fastest.
func (d *Definition) Inputs() []kinematics.Inputs {
	inner := 1
	if d.Secondary != nil {
		inner = d.Secondary.Points
	}
	out := make([]kinematics.Inputs, 0, d.NumPoints())
	for i := 0; i < d.Primary.Points; i++ {
		for j := 0; j < inner; j++ {
			in := d.Base
			d.Primary.Variable.set(&in, d.Primary.Value(i))
			if d.Secondary != nil {
				d.Secondary.Variable.set(&in, d.Secondary.Value(j))
			}
			out = append(out, in)
		}
	}
	return out
}
