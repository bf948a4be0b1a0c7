package kinematics

import (
	"fmt"
	"strings"

	"github.com/golang/geo/r3"

	"github.com/san-kum/vvase/internal/analysis"
	"github.com/san-kum/vvase/internal/geom"
	"github.com/san-kum/vvase/internal/vehicle"
)

// RotationOrder is the sequence in which the chassis Euler rotations are
// applied. X is roll, Y is pitch and Z is yaw, which is always zero here, so
// only the relative order of X and Y changes the result.
type RotationOrder int

const (
	OrderXYZ RotationOrder = iota
	OrderXZY
	OrderYXZ
	OrderYZX
	OrderZXY
	OrderZYX
	NumRotationOrders
)

var rotationOrderNames = [NumRotationOrders]string{"XYZ", "XZY", "YXZ", "YZX", "ZXY", "ZYX"}

func (o RotationOrder) String() string {
	if o < 0 || o >= NumRotationOrders {
		return fmt.Sprintf("RotationOrder(%d)", int(o))
	}
	return rotationOrderNames[o]
}

func ParseRotationOrder(name string) (RotationOrder, error) {
	for i, n := range rotationOrderNames {
		if strings.EqualFold(n, name) {
			return RotationOrder(i), nil
		}
	}
	return 0, fmt.Errorf("unknown rotation order %q", name)
}

// Reverse returns the order that undoes o when applied with negated angles.
func (o RotationOrder) Reverse() RotationOrder {
	name := o.String()
	b := []byte{name[2], name[1], name[0]}
	r, _ := ParseRotationOrder(string(b))
	return r
}

// SteeringInput selects how Inputs.Rack is interpreted.
type SteeringInput int

const (
	// RackTravel is linear rack displacement in inches, positive to the right.
	RackTravel SteeringInput = iota
	// SteeringWheelAngle is in radians and is scaled by the rack ratio.
	SteeringWheelAngle
	NumSteeringInputs
)

func (s SteeringInput) String() string {
	if s == SteeringWheelAngle {
		return "wheel"
	}
	return "rack"
}

func ParseSteeringInput(name string) (SteeringInput, error) {
	switch strings.ToLower(name) {
	case "rack", "":
		return RackTravel, nil
	case "wheel", "steering-wheel", "steeringwheel":
		return SteeringWheelAngle, nil
	}
	return 0, fmt.Errorf("unknown steering input %q", name)
}

// Inputs is the chassis attitude and steering for one kinematic solve.
type Inputs struct {
	Pitch float64 // rad, positive lowers the rear
	Roll  float64 // rad, positive raises the right side
	Heave float64 // in, positive up
	Rack  float64 // in or rad, see Steering

	Steering         SteeringInput
	Order            RotationOrder
	CenterOfRotation r3.Vector
}

// Validate reports NaN/Inf values or an unknown rotation order.
func (in Inputs) Validate() error {
	if !analysis.IsFinite(in.Pitch, in.Roll, in.Heave, in.Rack) || !geom.IsFiniteVector(in.CenterOfRotation) {
		return fmt.Errorf("non-finite kinematic inputs %+v: %w", in, analysis.ErrInvalidInputs)
	}
	if in.Order < 0 || in.Order >= NumRotationOrders {
		return fmt.Errorf("rotation order %d: %w", in.Order, analysis.ErrInvalidInputs)
	}
	return nil
}

// Negate returns inputs that undo in when applied to the car in produced.
// Heave combined with rotation does not round trip exactly because the
// rotation center is fixed to the ground.
func (in Inputs) Negate() Inputs {
	out := in
	out.Pitch, out.Roll, out.Heave, out.Rack = -in.Pitch, -in.Roll, -in.Heave, -in.Rack
	out.Order = in.Order.Reverse()
	return out
}

// RackTravel converts the steering input to linear rack travel.
func (in Inputs) RackTravel(rackRatio float64) float64 {
	if in.Steering == SteeringWheelAngle {
		return in.Rack * rackRatio
	}
	return in.Rack
}

// Transform returns the chassis motion described by the inputs.
func (in Inputs) Transform() geom.Transform {
	t := geom.Identity()
	t.Center = in.CenterOfRotation
	for _, axis := range in.Order.String() {
		switch axis {
		case 'X':
			t = t.ThenRotate(geom.XAxis, in.Roll)
		case 'Y':
			t = t.ThenRotate(geom.YAxis, in.Pitch)
		}
	}
	t.Translation = r3.Vector{Z: in.Heave}
	return t
}

// Ground holds per-corner vertical offsets of the ground under each contact
// patch, positive up. The zero value is flat ground at the static patches.
type Ground [vehicle.NumLocations]float64
