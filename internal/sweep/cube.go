package sweep

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/vvase/internal/kinematics"
)

// Cube holds every metric at every grid point for every car. Points that
// failed to solve hold NaN for all kinematic outputs.
type Cube struct {
	Cars   []string
	Inputs []kinematics.Inputs

	// Failed counts failed points per car.
	Failed []int

	values []float64
}

func NewCube(cars []string, inputs []kinematics.Inputs) *Cube {
	c := &Cube{
		Cars:   cars,
		Inputs: inputs,
		Failed: make([]int, len(cars)),
		values: make([]float64, len(cars)*len(inputs)*int(NumMetrics)),
	}
	for car := range cars {
		for p, in := range inputs {
			row := c.row(car, p)
			for v := Variable(0); v < NumVariables; v++ {
				row[VariableMetric(v)] = v.get(in)
			}
		}
	}
	return c
}

func (c *Cube) NumPoints() int { return len(c.Inputs) }

func (c *Cube) row(car, point int) []float64 {
	start := (car*len(c.Inputs) + point) * int(NumMetrics)
	return c.values[start : start+int(NumMetrics)]
}

func (c *Cube) At(car, point int, m Metric) float64 {
	return c.row(car, point)[m]
}

// Set stores the outputs of one point, or NaN when out is nil. Distinct
// (car, point) pairs may be set concurrently.
func (c *Cube) Set(car, point int, out *kinematics.Outputs) {
	row := c.row(car, point)
	for id := kinematics.OutputID(0); id < kinematics.NumOutputs; id++ {
		if out == nil {
			row[id] = math.NaN()
			continue
		}
		row[id] = out.Value(id)
	}
}

// Series returns one metric over every point of a car.
func (c *Cube) Series(car int, m Metric) []float64 {
	s := make([]float64, len(c.Inputs))
	for p := range s {
		s[p] = c.At(car, p, m)
	}
	return s
}

// Summary describes one metric over the points that solved.
type Summary struct {
	Min, Max, Mean, StdDev float64
	Valid                  int
}

func (c *Cube) Summarize(car int, m Metric) Summary {
	var vals []float64
	for _, v := range c.Series(car, m) {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	s := Summary{Valid: len(vals)}
	if len(vals) == 0 {
		s.Min, s.Max, s.Mean, s.StdDev = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		return s
	}
	s.Min, s.Max = floats.Min(vals), floats.Max(vals)
	s.Mean, s.StdDev = stat.MeanStdDev(vals, nil)
	if len(vals) == 1 {
		s.StdDev = 0
	}
	return s
}
