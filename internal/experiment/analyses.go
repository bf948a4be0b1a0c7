package experiment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/san-kum/vvase/internal/analysis"
	"github.com/san-kum/vvase/internal/genetic"
	"github.com/san-kum/vvase/internal/kinematics"
	"github.com/san-kum/vvase/internal/quasistatic"
	"github.com/san-kum/vvase/internal/storage"
	"github.com/san-kum/vvase/internal/sweep"
)

const (
	KindKinematics  = "kinematics"
	KindQuasistatic = "quasistatic"
	KindSweep       = "sweep"
	KindOptimize    = "optimize"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func inputParams(in kinematics.Inputs) map[string]string {
	return map[string]string{
		"pitch":    formatFloat(in.Pitch),
		"roll":     formatFloat(in.Roll),
		"heave":    formatFloat(in.Heave),
		"rack":     formatFloat(in.Rack),
		"steering": in.Steering.String(),
		"order":    in.Order.String(),
	}
}

// KinematicsAnalysis solves one attitude of one car.
type KinematicsAnalysis struct {
	Label  string
	Car    string
	Inputs kinematics.Inputs
}

func (a *KinematicsAnalysis) Kind() string { return KindKinematics }
func (a *KinematicsAnalysis) Name() string { return a.Label }

func (a *KinematicsAnalysis) Run(ctx context.Context, s *Session) (*Result, error) {
	car, err := s.Car(a.Car)
	if err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	start := time.Now()
	working := s.pool.Get()
	defer s.pool.Put(working)
	out, err := kinematics.AnalyzeInto(car, working, a.Inputs, kinematics.Ground{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", car.Name, err)
	}
	return &Result{
		Kind:       KindKinematics,
		Name:       a.Label,
		Cars:       []string{car.Name},
		Elapsed:    time.Since(start),
		Params:     inputParams(a.Inputs),
		Table:      storage.OutputsTable(out),
		Kinematics: out,
	}, nil
}

// QuasistaticAnalysis finds the equilibrium of one car under steady
// accelerations.
type QuasistaticAnalysis struct {
	Label  string
	Car    string
	Inputs quasistatic.Inputs
}

func (a *QuasistaticAnalysis) Kind() string { return KindQuasistatic }
func (a *QuasistaticAnalysis) Name() string { return a.Label }

// Run returns the result together with analysis.ErrDidNotConverge when the
// iteration limit was reached, so the last state can still be inspected.
func (a *QuasistaticAnalysis) Run(ctx context.Context, s *Session) (*Result, error) {
	car, err := s.Car(a.Car)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	solver := quasistatic.NewSolver(s.Config.QuasistaticOptions(), s.Logger.Named("quasistatic"))
	out, err := solver.Solve(ctx, car, a.Inputs)
	if out == nil {
		return nil, fmt.Errorf("%s: %w", car.Name, err)
	}

	params := inputParams(a.Inputs.Kinematics)
	params["gx"] = formatFloat(a.Inputs.Gx)
	params["gy"] = formatFloat(a.Inputs.Gy)
	params["speed"] = formatFloat(a.Inputs.Speed)

	lifted := 0
	for _, c := range out.Corners {
		if c.LiftOff {
			lifted++
		}
	}
	res := &Result{
		Kind:    KindQuasistatic,
		Name:    a.Label,
		Cars:    []string{car.Name},
		Elapsed: time.Since(start),
		Params:  params,
		Summary: map[string]float64{
			"pitch":      out.Pitch,
			"roll":       out.Roll,
			"heave":      out.Heave,
			"iterations": float64(out.Iterations),
			"total_load": out.TotalLoad(),
			"lift_off":   float64(lifted),
		},
		Table:       storage.QuasistaticTable(out),
		Quasistatic: out,
	}
	if err != nil {
		if errors.Is(err, analysis.ErrDidNotConverge) {
			s.Logger.Warnw("quasi-static solve did not converge", "car", car.Name, "residual", out.Residual)
		}
		return res, fmt.Errorf("%s: %w", car.Name, err)
	}
	return res, nil
}

// SweepAnalysis evaluates a grid of attitudes for several cars.
type SweepAnalysis struct {
	Definition sweep.Definition
	Cars       []string

	// Metrics limits the stored table; all metrics when empty.
	Metrics []sweep.Metric
}

func (a *SweepAnalysis) Kind() string { return KindSweep }
func (a *SweepAnalysis) Name() string { return a.Definition.Name }

func (a *SweepAnalysis) Run(ctx context.Context, s *Session) (*Result, error) {
	cars, err := s.Cars(a.Cars...)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	d := sweep.NewDriver(s.queue, s.pool, s.Logger.Named("sweep"))
	d.Progress = func(done, total int) { s.progress(a.Definition.Name, done, total) }
	cube, err := d.Run(ctx, a.Definition, cars)
	if err != nil {
		return nil, err
	}

	def := a.Definition
	params := inputParams(def.Base)
	params["primary"] = fmt.Sprintf("%s %g..%g x%d", def.Primary.Variable, def.Primary.Start, def.Primary.End, def.Primary.Points)
	if def.Secondary != nil {
		params["secondary"] = fmt.Sprintf("%s %g..%g x%d", def.Secondary.Variable, def.Secondary.Start, def.Secondary.End, def.Secondary.Points)
	}
	summary := map[string]float64{"points": float64(cube.NumPoints())}
	for i, name := range cube.Cars {
		summary["failed."+name] = float64(cube.Failed[i])
	}
	return &Result{
		Kind:    KindSweep,
		Name:    def.Name,
		Cars:    cube.Cars,
		Elapsed: time.Since(start),
		Params:  params,
		Summary: summary,
		Table:   storage.CubeTable(cube, a.Metrics),
		Sweep:   &def,
		Cube:    cube,
	}, nil
}

// OptimizeAnalysis runs the genetic search, or the exhaustive search when
// Exhaustive is set. Problem.Car is filled from the session when nil.
type OptimizeAnalysis struct {
	Problem    genetic.Problem
	Car        string
	Exhaustive bool
	Limit      int
}

func (a *OptimizeAnalysis) Kind() string { return KindOptimize }
func (a *OptimizeAnalysis) Name() string { return a.Problem.Name }

func (a *OptimizeAnalysis) Run(ctx context.Context, s *Session) (*Result, error) {
	p := a.Problem
	if p.Car == nil {
		car, err := s.Car(a.Car)
		if err != nil {
			return nil, err
		}
		p.Car = car
	}

	start := time.Now()
	o := genetic.NewOptimizer(s.queue, s.pool, s.Logger.Named("genetic"))
	o.Progress = func(g genetic.Generation) {
		s.progress(p.Name, g.Index+1, p.Settings.Generations)
		if s.OnGeneration != nil {
			s.OnGeneration(p.Name, g)
		}
	}

	var res *genetic.Result
	var err error
	method := "genetic"
	if a.Exhaustive {
		method = "exhaustive"
		limit := a.Limit
		if limit <= 0 {
			limit = s.Config.Optimization.SearchLimit
		}
		res, err = o.Exhaustive(ctx, &p, limit)
	} else {
		res, err = o.Run(ctx, &p)
	}
	if err != nil {
		return nil, err
	}

	params := map[string]string{
		"method":      method,
		"population":  strconv.Itoa(p.Settings.PopulationSize),
		"generations": strconv.Itoa(p.Settings.Generations),
		"sort":        p.Settings.Sort.String(),
		"seed":        strconv.FormatInt(p.Settings.Seed, 10),
	}
	for i, g := range p.Goals {
		params[fmt.Sprintf("goal%d", i)] = g.String()
	}
	summary := map[string]float64{
		"fitness":     res.Best.Fitness,
		"evaluations": float64(res.Evaluations),
	}
	for i, g := range p.Genes {
		summary[g.String()] = res.Values[i]
	}
	return &Result{
		Kind:         KindOptimize,
		Name:         p.Name,
		Cars:         []string{p.Car.Name},
		Elapsed:      time.Since(start),
		Params:       params,
		Summary:      summary,
		Table:        storage.GenerationsTable(res),
		Optimization: res,
	}, nil
}
