package storage

import (
	"fmt"

	"github.com/san-kum/vvase/internal/genetic"
	"github.com/san-kum/vvase/internal/kinematics"
	"github.com/san-kum/vvase/internal/quasistatic"
	"github.com/san-kum/vvase/internal/sweep"
	"github.com/san-kum/vvase/internal/units"
	"github.com/san-kum/vvase/internal/vehicle"
)

// Table is the tabular part of a run. Values are in internal units; Units
// holds the unit type name of each column.
type Table struct {
	Columns []string    `json:"columns"`
	Units   []string    `json:"units"`
	Rows    [][]float64 `json:"rows"`
}

func (t *Table) addColumn(name string, unit units.UnitType) {
	t.Columns = append(t.Columns, name)
	t.Units = append(t.Units, unit.String())
}

// Column returns the values of the named column.
func (t *Table) Column(name string) ([]float64, error) {
	for i, c := range t.Columns {
		if c != name {
			continue
		}
		out := make([]float64, len(t.Rows))
		for r, row := range t.Rows {
			out[r] = row[i]
		}
		return out, nil
	}
	return nil, fmt.Errorf("no column %q", name)
}

// CubeTable lays out a sweep cube with one row per (car, point). The first
// column is the car index. With no metrics every metric is written.
func CubeTable(cube *sweep.Cube, metrics []sweep.Metric) *Table {
	if len(metrics) == 0 {
		for m := sweep.Metric(0); m < sweep.NumMetrics; m++ {
			metrics = append(metrics, m)
		}
	}
	t := &Table{}
	t.addColumn("Car", units.Unitless)
	for _, m := range metrics {
		t.addColumn(m.String(), m.Unit())
	}
	for car := range cube.Cars {
		for p := 0; p < cube.NumPoints(); p++ {
			row := make([]float64, 0, len(metrics)+1)
			row = append(row, float64(car))
			for _, m := range metrics {
				row = append(row, cube.At(car, p, m))
			}
			t.Rows = append(t.Rows, row)
		}
	}
	return t
}

// OutputsTable is a single row with every kinematic output.
func OutputsTable(out *kinematics.Outputs) *Table {
	t := &Table{}
	row := make([]float64, 0, kinematics.NumOutputs)
	for id := kinematics.OutputID(0); id < kinematics.NumOutputs; id++ {
		t.addColumn(id.Name(), id.Unit())
		row = append(row, out.Value(id))
	}
	t.Rows = [][]float64{row}
	return t
}

// QuasistaticTable has one row per corner: load, tire deflection and a
// lift-off flag.
func QuasistaticTable(out *quasistatic.Outputs) *Table {
	t := &Table{}
	t.addColumn("Corner", units.Unitless)
	t.addColumn("Load", units.Force)
	t.addColumn("TireDeflection", units.Distance)
	t.addColumn("LiftOff", units.Unitless)
	for loc, c := range out.Corners {
		lift := 0.0
		if c.LiftOff {
			lift = 1
		}
		t.Rows = append(t.Rows, []float64{float64(vehicle.Location(loc)), c.Load, c.Deflection, lift})
	}
	return t
}

// GenerationsTable has one row per generation of an optimization.
func GenerationsTable(res *genetic.Result) *Table {
	t := &Table{}
	t.addColumn("Generation", units.Unitless)
	t.addColumn("Best", units.Unitless)
	t.addColumn("Mean", units.Unitless)
	t.addColumn("StdDev", units.Unitless)
	t.addColumn("Worst", units.Unitless)
	t.addColumn("Failed", units.Unitless)
	for _, g := range res.Generations {
		t.Rows = append(t.Rows, []float64{
			float64(g.Index), g.Best.Fitness, g.Mean, g.StdDev, g.Worst, float64(g.Failed),
		})
	}
	return t
}
