package config

import (
	"fmt"
	"os"
	"runtime"

	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/vvase/internal/analysis"
	"github.com/san-kum/vvase/internal/genetic"
	"github.com/san-kum/vvase/internal/kinematics"
	"github.com/san-kum/vvase/internal/quasistatic"
)

const (
	DefaultRotationOrder = "XYZ"
	DefaultSteeringInput = "rack"
	DefaultSweepPoints   = 21
	DefaultOutputDir     = "runs"
)

type Config struct {
	// Workers is the job queue size; 0 uses one worker per CPU.
	Workers      int                `yaml:"workers"`
	OutputDir    string             `yaml:"output_dir"`
	Kinematics   KinematicsConfig   `yaml:"kinematics"`
	Quasistatic  QuasistaticConfig  `yaml:"quasistatic"`
	Sweep        SweepConfig        `yaml:"sweep"`
	Optimization OptimizationConfig `yaml:"optimization"`
}

type KinematicsConfig struct {
	RotationOrder    string     `yaml:"rotation_order"`
	CenterOfRotation [3]float64 `yaml:"center_of_rotation,flow"`
	SteeringInput    string     `yaml:"steering_input"`
}

type QuasistaticConfig struct {
	MaxIterations   int     `yaml:"max_iterations"`
	ForceTolerance  float64 `yaml:"force_tolerance"`
	MomentTolerance float64 `yaml:"moment_tolerance"`
	AngleStep       float64 `yaml:"angle_step"`
	HeaveStep       float64 `yaml:"heave_step"`
	TireStep        float64 `yaml:"tire_step"`
}

type SweepConfig struct {
	Points int `yaml:"points"`
}

type OptimizationConfig struct {
	PopulationSize      int     `yaml:"population_size"`
	Generations         int     `yaml:"generations"`
	ElitePercentage     float64 `yaml:"elite_percentage"`
	MutationProbability float64 `yaml:"mutation_probability"`
	CrossoverPoint      int     `yaml:"crossover_point"`
	Sort                string  `yaml:"sort"`
	Seed                int64   `yaml:"seed"`
	SearchLimit         int     `yaml:"search_limit"`
}

func DefaultConfig() *Config {
	qs := quasistatic.DefaultOptions()
	ga := genetic.DefaultSettings()
	return &Config{
		OutputDir: DefaultOutputDir,
		Kinematics: KinematicsConfig{
			RotationOrder: DefaultRotationOrder,
			SteeringInput: DefaultSteeringInput,
		},
		Quasistatic: QuasistaticConfig{
			MaxIterations:   qs.MaxIterations,
			ForceTolerance:  qs.ForceTolerance,
			MomentTolerance: qs.MomentTolerance,
			AngleStep:       qs.AngleStep,
			HeaveStep:       qs.HeaveStep,
			TireStep:        qs.TireStep,
		},
		Sweep: SweepConfig{Points: DefaultSweepPoints},
		Optimization: OptimizationConfig{
			PopulationSize:      ga.PopulationSize,
			Generations:         ga.Generations,
			ElitePercentage:     ga.ElitePercentage,
			MutationProbability: ga.MutationProbability,
			Sort:                ga.Sort.String(),
			Seed:                ga.Seed,
			SearchLimit:         genetic.DefaultSearchLimit,
		},
	}
}

// Load overlays the file on the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	var errs error
	if c.Workers < 0 {
		errs = multierr.Append(errs, fmt.Errorf("workers must not be negative: %w", analysis.ErrInvalidInputs))
	}
	if c.Sweep.Points < 1 {
		errs = multierr.Append(errs, fmt.Errorf("sweep points must be at least 1: %w", analysis.ErrInvalidInputs))
	}
	if _, err := c.KinematicsInputs(); err != nil {
		errs = multierr.Append(errs, err)
	}
	errs = multierr.Append(errs, c.QuasistaticOptions().Validate())
	settings, err := c.GeneticSettings()
	if err != nil {
		return multierr.Append(errs, err)
	}
	if settings.PopulationSize < 2 || settings.Generations < 1 {
		errs = multierr.Append(errs, fmt.Errorf("optimization needs a population of 2 and one generation: %w", analysis.ErrInvalidInputs))
	}
	return errs
}

// NumWorkers resolves the worker count.
func (c *Config) NumWorkers() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}

// KinematicsInputs returns zero-attitude inputs carrying the configured
// rotation order, center and steering input.
func (c *Config) KinematicsInputs() (kinematics.Inputs, error) {
	order, err := kinematics.ParseRotationOrder(c.Kinematics.RotationOrder)
	if err != nil {
		return kinematics.Inputs{}, fmt.Errorf("kinematics: %v: %w", err, analysis.ErrInvalidInputs)
	}
	steering, err := kinematics.ParseSteeringInput(c.Kinematics.SteeringInput)
	if err != nil {
		return kinematics.Inputs{}, fmt.Errorf("kinematics: %v: %w", err, analysis.ErrInvalidInputs)
	}
	p := c.Kinematics.CenterOfRotation
	return kinematics.Inputs{
		Order:            order,
		Steering:         steering,
		CenterOfRotation: r3.Vector{X: p[0], Y: p[1], Z: p[2]},
	}, nil
}

func (c *Config) QuasistaticOptions() quasistatic.Options {
	opts := quasistatic.DefaultOptions()
	q := c.Quasistatic
	opts.MaxIterations = q.MaxIterations
	opts.ForceTolerance = q.ForceTolerance
	opts.MomentTolerance = q.MomentTolerance
	opts.AngleStep = q.AngleStep
	opts.HeaveStep = q.HeaveStep
	opts.TireStep = q.TireStep
	return opts
}

func (c *Config) GeneticSettings() (genetic.Settings, error) {
	o := c.Optimization
	alg, err := genetic.ParseSortAlgorithm(o.Sort)
	if err != nil {
		return genetic.Settings{}, fmt.Errorf("optimization: %v: %w", err, analysis.ErrInvalidInputs)
	}
	return genetic.Settings{
		PopulationSize:      o.PopulationSize,
		Generations:         o.Generations,
		ElitePercentage:     o.ElitePercentage,
		MutationProbability: o.MutationProbability,
		CrossoverPoint:      o.CrossoverPoint,
		Sort:                alg,
		Seed:                o.Seed,
	}, nil
}
