// Package automation runs scripted batches of analyses from YAML scenario
// files.
package automation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/vvase/internal/analysis"
	"github.com/san-kum/vvase/internal/config"
	"github.com/san-kum/vvase/internal/experiment"
	"github.com/san-kum/vvase/internal/export"
	"github.com/san-kum/vvase/internal/storage"
	"github.com/san-kum/vvase/internal/sweep"
	"github.com/san-kum/vvase/internal/units"
)

// Scenario is a list of cars and the analyses to run on them.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Cars        []CarSource    `yaml:"cars"`
	Steps       []ScenarioStep `yaml:"steps"`

	// dir resolves relative car and plot paths.
	dir string
}

// CarSource names a built-in car or a car file. Paths are relative to the
// scenario file.
type CarSource struct {
	Preset string `yaml:"preset,omitempty"`
	Path   string `yaml:"path,omitempty"`
}

// ScenarioStep is one analysis. The remaining keys are the analysis spec.
type ScenarioStep struct {
	Kind string `yaml:"kind"`
	Save bool   `yaml:"save"`
	Plot *Plot  `yaml:"plot,omitempty"`

	experiment.Spec `yaml:",inline"`
}

// Plot renders a sweep metric after the step runs.
type Plot struct {
	Metric string `yaml:"metric"`
	Path   string `yaml:"path"`
}

// StepResult pairs a step with its outcome.
type StepResult struct {
	Step   int
	Result *experiment.Result
	RunID  string
	Plot   string
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read scenario")
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	sc.dir = filepath.Dir(path)
	return sc, nil
}

func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%v: %w", err, analysis.ErrFileFormat)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks the shape of the scenario. Analysis parameters are checked
// when each step is built.
func (sc *Scenario) Validate() error {
	var errs error
	if len(sc.Steps) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("scenario %q has no steps", sc.Name))
	}
	for i, c := range sc.Cars {
		if (c.Preset == "") == (c.Path == "") {
			errs = multierr.Append(errs, fmt.Errorf("car %d: set exactly one of preset and path", i+1))
		}
	}
	for i, st := range sc.Steps {
		if st.Kind == "" {
			errs = multierr.Append(errs, fmt.Errorf("step %d: missing kind", i+1))
		}
		if st.Plot != nil && st.Kind != experiment.KindSweep && st.Kind != experiment.KindOptimize {
			errs = multierr.Append(errs, fmt.Errorf("step %d: only sweep and optimize steps can be plotted", i+1))
		}
	}
	if errs != nil {
		return fmt.Errorf("%v: %w", errs, analysis.ErrInvalidInputs)
	}
	return nil
}

func (sc *Scenario) path(p string) string {
	if filepath.IsAbs(p) || sc.dir == "" {
		return p
	}
	return filepath.Join(sc.dir, p)
}

// Runner executes scenarios in a session. Store may be nil, in which case
// steps marked for saving are only run.
type Runner struct {
	Session  *experiment.Session
	Registry *experiment.Registry
	Store    *storage.Store
	Logger   *zap.SugaredLogger

	// OnStep, when set, is called before each step starts.
	OnStep func(step, total int, st ScenarioStep)
}

func NewRunner(s *experiment.Session, store *storage.Store) *Runner {
	return &Runner{
		Session:  s,
		Registry: experiment.NewRegistry(),
		Store:    store,
		Logger:   s.Logger.Named("automation"),
	}
}

// Run loads the scenario's cars and executes every step in order. It stops
// at the first failing step and returns the results gathered so far.
func (r *Runner) Run(ctx context.Context, sc *Scenario) ([]StepResult, error) {
	for i, c := range sc.Cars {
		if c.Preset != "" {
			car := config.GetCar(c.Preset)
			if car == nil {
				return nil, fmt.Errorf("car %d: unknown preset %q", i+1, c.Preset)
			}
			if err := r.Session.AddCar(car); err != nil {
				return nil, err
			}
			continue
		}
		if _, err := r.Session.LoadCar(sc.path(c.Path)); err != nil {
			return nil, fmt.Errorf("car %d: %w", i+1, err)
		}
	}

	env, err := r.Session.Env()
	if err != nil {
		return nil, err
	}
	results := make([]StepResult, 0, len(sc.Steps))
	for i, st := range sc.Steps {
		if r.OnStep != nil {
			r.OnStep(i+1, len(sc.Steps), st)
		}
		r.Logger.Infow("running step", "scenario", sc.Name, "step", i+1, "of", len(sc.Steps), "kind", st.Kind, "name", st.Name)

		a, err := r.Registry.Build(st.Kind, st.Spec, env)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		res, err := a.Run(ctx, r.Session)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		sr := StepResult{Step: i + 1, Result: res}

		if st.Save && r.Store != nil {
			if sr.RunID, err = r.Store.Save(res.Run()); err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		if st.Plot != nil {
			sr.Plot = sc.path(st.Plot.Path)
			if err := plotStep(res, st.Plot.Metric, sr.Plot); err != nil {
				return results, fmt.Errorf("step %d plot: %w", i+1, err)
			}
		}
		results = append(results, sr)
	}
	return results, nil
}

func plotStep(res *experiment.Result, metric, path string) error {
	var fig export.Figure
	switch {
	case res.Cube != nil:
		m, err := sweep.ParseMetric(metric)
		if err != nil {
			return err
		}
		fig = export.SweepFigure(res.Sweep, res.Cube, m, units.NewDisplay())
	case res.Optimization != nil:
		fig = export.ConvergenceFigure(res.Name, res.Optimization)
	default:
		return fmt.Errorf("%s results cannot be plotted", res.Kind)
	}
	return fig.Save(path, export.DefaultWidth, export.DefaultHeight)
}
