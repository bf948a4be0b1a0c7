package quasistatic

import (
	"fmt"

	"github.com/san-kum/vvase/internal/analysis"
	"github.com/san-kum/vvase/internal/kinematics"
)

// Inputs are the steady accelerations applied to the car. Pitch, roll and
// heave in Kinematics are solved for and only seed the iteration; the rest
// of Kinematics (steering, rotation order and center) is used as given.
type Inputs struct {
	Kinematics kinematics.Inputs
	Gx         float64 // g, positive accelerating forward
	Gy         float64 // g, positive loads the right side
	Speed      float64 // in/s, for aerodynamic loads
}

func (in Inputs) Validate() error {
	if err := in.Kinematics.Validate(); err != nil {
		return err
	}
	if !analysis.IsFinite(in.Gx, in.Gy, in.Speed) {
		return fmt.Errorf("accelerations and speed must be finite: %w", analysis.ErrInvalidInputs)
	}
	return nil
}

// Options tune the Newton iteration.
type Options struct {
	MaxIterations   int
	ForceTolerance  float64 // lbf
	MomentTolerance float64 // in-lbf

	// Jacobian steps
	AngleStep float64 // rad
	HeaveStep float64 // in

	// TireStep is the ground offset used to differentiate the suspension
	// energy. TireTolerance and MaxTireIterations bound the tire deflection
	// solve run at every attitude.
	TireStep          float64 // in
	TireTolerance     float64 // in
	MaxTireIterations int
}

func DefaultOptions() Options {
	return Options{
		MaxIterations:     20,
		ForceTolerance:    1e-4,
		MomentTolerance:   1e-4,
		AngleStep:         1e-5,
		HeaveStep:         1e-4,
		TireStep:          1e-3,
		TireTolerance:     1e-11,
		MaxTireIterations: 100,
	}
}

func (o Options) Validate() error {
	switch {
	case o.MaxIterations < 1:
		return fmt.Errorf("max iterations must be at least 1, got %d: %w", o.MaxIterations, analysis.ErrInvalidInputs)
	case o.ForceTolerance <= 0 || o.MomentTolerance <= 0 || o.TireTolerance <= 0:
		return fmt.Errorf("tolerances must be positive: %w", analysis.ErrInvalidInputs)
	case o.AngleStep <= 0 || o.HeaveStep <= 0 || o.TireStep <= 0:
		return fmt.Errorf("step sizes must be positive: %w", analysis.ErrInvalidInputs)
	case o.MaxTireIterations < 1:
		return fmt.Errorf("max tire iterations must be at least 1: %w", analysis.ErrInvalidInputs)
	}
	return nil
}
