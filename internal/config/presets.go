package config

import (
	"sort"

	"github.com/san-kum/vvase/internal/vehicle"
)

// CarPresets are the built-in cars, by name.
var CarPresets = map[string]func() *vehicle.Car{
	"formula": vehicle.NewFormulaCar,
	"sedan":   vehicle.NewSedanCar,
	// a square car with an even weight split, convenient for hand checks
	"scenario": func() *vehicle.Car {
		return vehicle.NewDoubleWishbone("scenario", vehicle.Layout{
			FrontAxleX:     60,
			Wheelbase:      66,
			FrontHalfTrack: 30,
			RearHalfTrack:  30,
			MassLbm:        1500,
			CGHeight:       12,
			FrontWeight:    0.5,
		})
	},
}

// Presets adjust the solver settings for common trade-offs.
var Presets = map[string]func(*Config){
	"fast": func(c *Config) {
		c.Quasistatic.MaxIterations = 10
		c.Quasistatic.ForceTolerance = 1e-2
		c.Quasistatic.MomentTolerance = 1e-2
		c.Sweep.Points = 11
		c.Optimization.PopulationSize = 10
		c.Optimization.Generations = 5
	},
	"precise": func(c *Config) {
		c.Quasistatic.MaxIterations = 50
		c.Quasistatic.ForceTolerance = 1e-6
		c.Quasistatic.MomentTolerance = 1e-6
		c.Sweep.Points = 101
	},
	"search": func(c *Config) {
		c.Optimization.PopulationSize = 60
		c.Optimization.Generations = 40
		c.Optimization.MutationProbability = 0.05
		c.Optimization.ElitePercentage = 0.05
	},
}

// GetCar returns a new copy of a preset car, or nil.
func GetCar(name string) *vehicle.Car {
	build, ok := CarPresets[name]
	if !ok {
		return nil
	}
	return build()
}

// GetPreset returns the defaults with a preset applied, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListCars() []string {
	return sortedKeys(CarPresets)
}

func ListPresets() []string {
	return sortedKeys(Presets)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
