// Package quasistatic finds the chassis attitude at which a car carries a
// steady longitudinal and lateral acceleration.
package quasistatic

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang/geo/r3"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/vvase/internal/analysis"
	"github.com/san-kum/vvase/internal/kinematics"
	"github.com/san-kum/vvase/internal/vehicle"
)

const maxLineSearchHalvings = 8

// CornerLoad is the equilibrium state of one tire.
type CornerLoad struct {
	Load       float64 // lbf, normal to the ground
	Deflection float64 // in, tire compression beyond static
	LiftOff    bool
}

// Outputs is the equilibrium found by Solve. Angles follow the kinematic
// sign convention, so a positive Gy loads the right side and gives Roll < 0.
type Outputs struct {
	Pitch, Roll, Heave float64

	Corners         [vehicle.NumLocations]CornerLoad
	CenterOfGravity r3.Vector

	// Residual holds the unbalanced vertical force, pitch moment and roll
	// moment at the returned attitude.
	Residual   [3]float64
	Iterations int

	Kinematics *kinematics.Outputs
	Car        *vehicle.Car
}

// TotalLoad is the sum of the four normal loads.
func (o *Outputs) TotalLoad() float64 {
	var sum float64
	for _, c := range o.Corners {
		sum += c.Load
	}
	return sum
}

// LiftOff returns an error wrapping analysis.ErrTireLiftOff naming every
// corner whose load was clamped to zero, or nil.
func (o *Outputs) LiftOff() error {
	var lifted []string
	for loc, c := range o.Corners {
		if c.LiftOff {
			lifted = append(lifted, vehicle.Location(loc).String())
		}
	}
	if len(lifted) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %w", strings.Join(lifted, ", "), analysis.ErrTireLiftOff)
}

type Solver struct {
	opts   Options
	logger *zap.SugaredLogger
}

// NewSolver returns a solver. A nil logger discards output.
func NewSolver(opts Options, logger *zap.SugaredLogger) *Solver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Solver{opts: opts, logger: logger}
}

// Solve iterates on pitch, roll and heave with Newton steps until the tire
// loads balance the weight, the downforce and the moments of the applied
// accelerations. The Jacobian is built by forward differences.
//
// When the iteration limit is reached the last state is returned together
// with an error wrapping analysis.ErrDidNotConverge. Lifted tires are
// reported through Outputs.LiftOff and do not fail the solve.
func (s *Solver) Solve(ctx context.Context, car *vehicle.Car, in Inputs) (*Outputs, error) {
	if err := s.opts.Validate(); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, analysis.Wrap("quasistatic", "", err)
	}

	own := car.Clone()
	for loc := vehicle.Location(0); loc < vehicle.NumLocations; loc++ {
		if c := own.Corner(loc); c.WheelNormal.Norm2() == 0 {
			c.ComputeWheelCenter(own.Tires.Tires[loc].Diameter)
		}
	}
	e, err := newEvaluator(own, in, s.opts)
	if err != nil {
		return nil, analysis.Wrap("quasistatic", "", err)
	}

	x := [3]float64{in.Kinematics.Pitch, in.Kinematics.Roll, in.Kinematics.Heave}
	cur, err := e.evaluate(x, kinematics.Ground{})
	if err != nil {
		return nil, analysis.Wrap("quasistatic", "", err)
	}

	steps := [3]float64{s.opts.AngleStep, s.opts.AngleStep, s.opts.HeaveStep}
	iter := 0
	for ; iter < s.opts.MaxIterations; iter++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		norm := e.scaled(cur.residual)
		s.logger.Debugw("quasi-static iteration",
			"iteration", iter,
			"pitch", cur.attitude[0],
			"roll", cur.attitude[1],
			"heave", cur.attitude[2],
			"force", cur.residual[0],
			"pitch_moment", cur.residual[1],
			"roll_moment", cur.residual[2],
		)
		if norm < 1 {
			break
		}

		jac := mat.NewDense(3, 3, nil)
		for j := 0; j < 3; j++ {
			xp := cur.attitude
			xp[j] += steps[j]
			sp, err := e.evaluate(xp, cur.ground)
			if err != nil {
				return nil, analysis.Wrap("quasistatic", "", err)
			}
			for i := 0; i < 3; i++ {
				jac.Set(i, j, (sp.residual[i]-cur.residual[i])/steps[j])
			}
		}

		rhs := mat.NewVecDense(3, []float64{-cur.residual[0], -cur.residual[1], -cur.residual[2]})
		var dx mat.VecDense
		if err := dx.SolveVec(jac, rhs); err != nil {
			return s.result(cur, iter), fmt.Errorf("singular attitude jacobian: %v: %w", err, analysis.ErrDidNotConverge)
		}

		next, err := s.lineSearch(e, cur, &dx, norm)
		if err != nil {
			return nil, analysis.Wrap("quasistatic", "", err)
		}
		cur = next
	}

	out := s.result(cur, iter)
	kinErr := s.attachKinematics(e, cur, out)
	if e.scaled(cur.residual) >= 1 {
		return out, fmt.Errorf("no equilibrium after %d iterations, residual %v: %w",
			s.opts.MaxIterations, cur.residual, analysis.ErrDidNotConverge)
	}
	if kinErr != nil {
		return nil, analysis.Wrap("quasistatic", "", kinErr)
	}
	s.logger.Debugw("quasi-static equilibrium", "iterations", iter, "total_load", out.TotalLoad())
	return out, nil
}

// lineSearch halves the Newton step until the residual shrinks. Attitudes the
// linkage cannot reach are treated as overshoot.
func (s *Solver) lineSearch(e *evaluator, cur *sample, dx *mat.VecDense, norm float64) (*sample, error) {
	var lastErr error
	var fallback *sample
	lambda := 1.0
	for i := 0; i <= maxLineSearchHalvings; i++ {
		x := cur.attitude
		for j := range x {
			x[j] += lambda * dx.AtVec(j)
		}
		next, err := e.evaluate(x, cur.ground)
		switch {
		case err != nil:
			lastErr = err
		case e.scaled(next.residual) < norm:
			return next, nil
		case fallback == nil:
			fallback = next
		}
		lambda /= 2
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, lastErr
}

func (s *Solver) result(cur *sample, iter int) *Outputs {
	out := &Outputs{
		Pitch:           cur.attitude[0],
		Roll:            cur.attitude[1],
		Heave:           cur.attitude[2],
		CenterOfGravity: cur.cg,
		Residual:        cur.residual,
		Iterations:      iter,
	}
	for loc := range out.Corners {
		out.Corners[loc] = CornerLoad{
			Load:       cur.loads[loc],
			Deflection: -cur.ground[loc],
			LiftOff:    cur.liftOff[loc],
		}
	}
	return out
}

func (s *Solver) attachKinematics(e *evaluator, cur *sample, out *Outputs) error {
	working := &vehicle.Car{}
	kout, err := kinematics.AnalyzeInto(e.car, working, e.inputs(cur.attitude), cur.ground)
	if err != nil {
		return err
	}
	out.Kinematics = kout
	out.Car = working
	return nil
}

// Solve runs a solver with default options and no logging.
func Solve(ctx context.Context, car *vehicle.Car, in Inputs) (*Outputs, error) {
	return NewSolver(DefaultOptions(), nil).Solve(ctx, car, in)
}
