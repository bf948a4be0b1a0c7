package experiment

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"

	"github.com/san-kum/vvase/internal/analysis"
	"github.com/san-kum/vvase/internal/genetic"
	"github.com/san-kum/vvase/internal/kinematics"
	"github.com/san-kum/vvase/internal/quasistatic"
	"github.com/san-kum/vvase/internal/sweep"
	"github.com/san-kum/vvase/internal/vehicle"
)

// AttitudeSpec is a chassis attitude in radians and inches.
type AttitudeSpec struct {
	Pitch float64 `yaml:"pitch"`
	Roll  float64 `yaml:"roll"`
	Heave float64 `yaml:"heave"`
	Rack  float64 `yaml:"rack"`
}

func (a AttitudeSpec) apply(base kinematics.Inputs) kinematics.Inputs {
	base.Pitch, base.Roll, base.Heave, base.Rack = a.Pitch, a.Roll, a.Heave, a.Rack
	return base
}

type AxisSpec struct {
	Variable string  `yaml:"variable"`
	Start    float64 `yaml:"start"`
	End      float64 `yaml:"end"`
	Points   int     `yaml:"points"`
}

func (a AxisSpec) axis(defaultPoints int) (sweep.Axis, error) {
	v, err := sweep.ParseVariable(a.Variable)
	if err != nil {
		return sweep.Axis{}, err
	}
	points := a.Points
	if points == 0 {
		points = defaultPoints
	}
	return sweep.Axis{Variable: v, Start: a.Start, End: a.End, Points: points}, nil
}

type GeneSpec struct {
	Location  string  `yaml:"location"`
	Hardpoint string  `yaml:"hardpoint"`
	TiedTo    string  `yaml:"tied_to,omitempty"`
	Axis      string  `yaml:"axis"`
	Min       float64 `yaml:"min"`
	Max       float64 `yaml:"max"`
	Values    int     `yaml:"values"`
}

func (gs GeneSpec) gene() (genetic.Gene, error) {
	g := genetic.Gene{TiedTo: genetic.NoTie, Min: gs.Min, Max: gs.Max, NumValues: gs.Values}
	var errs error
	var err error
	if g.Location, err = vehicle.ParseLocation(gs.Location); err != nil {
		errs = multierr.Append(errs, err)
	}
	if g.Hardpoint, err = vehicle.ParseHardpoint(gs.Hardpoint); err != nil {
		errs = multierr.Append(errs, err)
	}
	if gs.TiedTo != "" {
		if g.TiedTo, err = vehicle.ParseHardpoint(gs.TiedTo); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	switch gs.Axis {
	case "x", "X":
		g.Axis = 0
	case "y", "Y":
		g.Axis = 1
	case "z", "Z":
		g.Axis = 2
	default:
		errs = multierr.Append(errs, fmt.Errorf("unknown axis %q", gs.Axis))
	}
	return g, errs
}

type GoalSpec struct {
	Output     string        `yaml:"output"`
	Desired    float64       `yaml:"desired"`
	Deviation  float64       `yaml:"deviation"`
	Importance *float64      `yaml:"importance,omitempty"`
	Before     AttitudeSpec  `yaml:"before"`
	After      *AttitudeSpec `yaml:"after,omitempty"`
}

func (gs GoalSpec) goal(base kinematics.Inputs) (genetic.Goal, error) {
	id, err := kinematics.ParseOutputID(gs.Output)
	if err != nil {
		return genetic.Goal{}, err
	}
	g := genetic.Goal{
		Output:            id,
		Desired:           gs.Desired,
		ExpectedDeviation: gs.Deviation,
		Importance:        1,
		Before:            gs.Before.apply(base),
	}
	if gs.Importance != nil {
		g.Importance = *gs.Importance
	}
	if gs.After != nil {
		g.Delta = true
		g.After = gs.After.apply(base)
	}
	return g, nil
}

// Spec describes one analysis in a scenario file or on the command line.
// Angles are radians and lengths inches.
type Spec struct {
	Name string   `yaml:"name"`
	Car  string   `yaml:"car,omitempty"`
	Cars []string `yaml:"cars,omitempty"`

	AttitudeSpec `yaml:",inline"`

	Gx    float64 `yaml:"gx,omitempty"`
	Gy    float64 `yaml:"gy,omitempty"`
	Speed float64 `yaml:"speed,omitempty"`

	Primary   *AxisSpec `yaml:"primary,omitempty"`
	Secondary *AxisSpec `yaml:"secondary,omitempty"`
	Metrics   []string  `yaml:"metrics,omitempty"`

	Genes       []GeneSpec `yaml:"genes,omitempty"`
	Goals       []GoalSpec `yaml:"goals,omitempty"`
	Population  int        `yaml:"population,omitempty"`
	Generations int        `yaml:"generations,omitempty"`
	Seed        int64      `yaml:"seed,omitempty"`
	Exhaustive  bool       `yaml:"exhaustive,omitempty"`
	Limit       int        `yaml:"limit,omitempty"`
}

// Builder turns a spec into an analysis. env.Base carries the configured
// rotation order, center and steering input.
type Builder func(spec Spec, env Env) (Analysis, error)

// Env is the configuration a builder may consult.
type Env struct {
	Base        kinematics.Inputs
	SweepPoints int
	Genetic     genetic.Settings
}

type Registry struct {
	builders map[string]Builder
}

func NewRegistry() *Registry {
	r := &Registry{builders: make(map[string]Builder)}
	r.Register(KindKinematics, buildKinematics)
	r.Register(KindQuasistatic, buildQuasistatic)
	r.Register(KindSweep, buildSweep)
	r.Register(KindOptimize, buildOptimize)
	return r
}

func (r *Registry) Register(kind string, b Builder) {
	r.builders[kind] = b
}

func (r *Registry) Build(kind string, spec Spec, env Env) (Analysis, error) {
	b, ok := r.builders[kind]
	if !ok {
		return nil, fmt.Errorf("unknown analysis: %s", kind)
	}
	a, err := b(spec, env)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %v: %w", kind, spec.Name, err, analysis.ErrInvalidInputs)
	}
	return a, nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func buildKinematics(spec Spec, env Env) (Analysis, error) {
	in := spec.AttitudeSpec.apply(env.Base)
	return &KinematicsAnalysis{Label: spec.Name, Car: spec.Car, Inputs: in}, in.Validate()
}

func buildQuasistatic(spec Spec, env Env) (Analysis, error) {
	in := quasistatic.Inputs{
		Kinematics: spec.AttitudeSpec.apply(env.Base),
		Gx:         spec.Gx,
		Gy:         spec.Gy,
		Speed:      spec.Speed,
	}
	return &QuasistaticAnalysis{Label: spec.Name, Car: spec.Car, Inputs: in}, in.Validate()
}

func buildSweep(spec Spec, env Env) (Analysis, error) {
	if spec.Primary == nil {
		return nil, fmt.Errorf("sweep needs a primary axis")
	}
	def := sweep.Definition{Name: spec.Name, Base: spec.AttitudeSpec.apply(env.Base)}
	var errs error
	var err error
	if def.Primary, err = spec.Primary.axis(env.SweepPoints); err != nil {
		errs = multierr.Append(errs, err)
	}
	if spec.Secondary != nil {
		a, err := spec.Secondary.axis(env.SweepPoints)
		errs = multierr.Append(errs, err)
		def.Secondary = &a
	}
	var metrics []sweep.Metric
	for _, name := range spec.Metrics {
		m, err := sweep.ParseMetric(name)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		metrics = append(metrics, m)
	}
	if errs != nil {
		return nil, errs
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	cars := spec.Cars
	if len(cars) == 0 && spec.Car != "" {
		cars = []string{spec.Car}
	}
	return &SweepAnalysis{Definition: def, Cars: cars, Metrics: metrics}, nil
}

func buildOptimize(spec Spec, env Env) (Analysis, error) {
	settings := env.Genetic
	if spec.Population > 0 {
		settings.PopulationSize = spec.Population
	}
	if spec.Generations > 0 {
		settings.Generations = spec.Generations
	}
	if spec.Seed != 0 {
		settings.Seed = spec.Seed
	}
	p := genetic.Problem{Name: spec.Name, Settings: settings}

	var errs error
	for _, gs := range spec.Genes {
		g, err := gs.gene()
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		p.Genes = append(p.Genes, g)
	}
	for _, gs := range spec.Goals {
		g, err := gs.goal(env.Base)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		p.Goals = append(p.Goals, g)
	}
	if errs != nil {
		return nil, errs
	}
	if len(p.Genes) == 0 || len(p.Goals) == 0 {
		return nil, fmt.Errorf("optimization needs at least one gene and one goal")
	}
	return &OptimizeAnalysis{Problem: p, Car: spec.Car, Exhaustive: spec.Exhaustive, Limit: spec.Limit}, nil
}

// Env collects builder settings from a session's configuration.
func (s *Session) Env() (Env, error) {
	base, err := s.Config.KinematicsInputs()
	if err != nil {
		return Env{}, err
	}
	settings, err := s.Config.GeneticSettings()
	if err != nil {
		return Env{}, err
	}
	return Env{Base: base, SweepPoints: s.Config.Sweep.Points, Genetic: settings}, nil
}
