package sweep

import (
	"fmt"
	"strings"

	"github.com/san-kum/vvase/internal/kinematics"
	"github.com/san-kum/vvase/internal/units"
)

// Metric indexes the third dimension of a cube. The kinematic outputs come
// first, followed by the four independent variables so either can serve as
// a plot axis.
type Metric int

const (
	MetricPitch Metric = Metric(kinematics.NumOutputs) + iota
	MetricRoll
	MetricHeave
	MetricRack
	NumMetrics
)

// VariableMetric returns the metric holding an independent variable.
func VariableMetric(v Variable) Metric {
	return MetricPitch + Metric(v)
}

// OutputMetric returns the metric holding a kinematic output.
func OutputMetric(id kinematics.OutputID) Metric {
	return Metric(id)
}

func (m Metric) Valid() bool {
	return m >= 0 && m < NumMetrics
}

// Variable reports whether m is an independent variable and which.
func (m Metric) Variable() (Variable, bool) {
	if m >= MetricPitch && m < NumMetrics {
		return Variable(m - MetricPitch), true
	}
	return 0, false
}

func (m Metric) String() string {
	if v, ok := m.Variable(); ok {
		return v.String()
	}
	if m >= 0 && m < MetricPitch {
		return kinematics.OutputID(m).Name()
	}
	return fmt.Sprintf("Metric(%d)", int(m))
}

func (m Metric) Unit() units.UnitType {
	if v, ok := m.Variable(); ok {
		return v.Unit()
	}
	return kinematics.OutputID(m).Unit()
}

// ParseMetric accepts a variable name or a kinematic output name.
func ParseMetric(name string) (Metric, error) {
	if v, err := ParseVariable(strings.TrimSpace(name)); err == nil {
		return VariableMetric(v), nil
	}
	id, err := kinematics.ParseOutputID(name)
	if err != nil {
		return -1, fmt.Errorf("unknown metric %q", name)
	}
	return OutputMetric(id), nil
}
