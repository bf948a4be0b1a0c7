package genetic

import (
	"fmt"
	"math"

	"go.uber.org/multierr"

	"github.com/san-kum/vvase/internal/analysis"
	"github.com/san-kum/vvase/internal/kinematics"
)

// Goal is one term of the fitness. The output is read at Before, or when
// Delta is set, as its change from Before to After.
type Goal struct {
	Output            kinematics.OutputID
	Desired           float64
	ExpectedDeviation float64
	Importance        float64

	Before kinematics.Inputs
	After  kinematics.Inputs
	Delta  bool
}

func (g Goal) String() string {
	if g.Delta {
		return fmt.Sprintf("change in %s = %g", g.Output.Name(), g.Desired)
	}
	return fmt.Sprintf("%s = %g", g.Output.Name(), g.Desired)
}

func (g Goal) Validate() error {
	var errs error
	if !g.Output.Valid() {
		errs = multierr.Append(errs, fmt.Errorf("goal: unknown output %d: %w", g.Output, analysis.ErrInvalidInputs))
	}
	if !(g.ExpectedDeviation > 0) || math.IsInf(g.ExpectedDeviation, 0) {
		errs = multierr.Append(errs, fmt.Errorf("goal %s: expected deviation must be positive: %w", g.Output.Name(), analysis.ErrInvalidInputs))
	}
	if !analysis.IsFinite(g.Desired, g.Importance) || g.Importance < 0 {
		errs = multierr.Append(errs, fmt.Errorf("goal %s: desired value and importance must be finite, importance non-negative: %w", g.Output.Name(), analysis.ErrInvalidInputs))
	}
	errs = multierr.Append(errs, g.Before.Validate())
	if g.Delta {
		errs = multierr.Append(errs, g.After.Validate())
	}
	return errs
}

// inputs lists the attitudes the goal needs evaluated.
func (g Goal) inputs() []kinematics.Inputs {
	if g.Delta {
		return []kinematics.Inputs{g.Before, g.After}
	}
	return []kinematics.Inputs{g.Before}
}

// value extracts the evaluated quantity from outputs keyed by inputs.
func (g Goal) value(outs map[kinematics.Inputs]*kinematics.Outputs) float64 {
	v := outs[g.Before].Value(g.Output)
	if g.Delta {
		v = outs[g.After].Value(g.Output) - v
	}
	return v
}

// Cost is importance / deviation^2 * (value - desired)^2.
func (g Goal) Cost(value float64) float64 {
	d := (value - g.Desired) / g.ExpectedDeviation
	return g.Importance * d * d
}
