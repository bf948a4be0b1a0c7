package genetic

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/san-kum/vvase/internal/analysis"
	"github.com/san-kum/vvase/internal/geom"
	"github.com/san-kum/vvase/internal/vehicle"
)

// NoTie marks a gene that moves a single hardpoint.
const NoTie = vehicle.NoHardpoint

var axisNames = [3]string{"X", "Y", "Z"}

// Gene varies one coordinate of one hardpoint over NumValues evenly spaced
// values from Min to Max. When TiedTo is set, the same coordinate of that
// hardpoint is given the same value.
type Gene struct {
	Hardpoint vehicle.Hardpoint
	TiedTo    vehicle.Hardpoint
	Location  vehicle.Location
	Axis      int
	Min       float64
	Max       float64
	NumValues int
}

func (g Gene) String() string {
	s := fmt.Sprintf("%s %s %s [%g, %g] x%d", g.Location, g.Hardpoint, axisNames[g.Axis%3], g.Min, g.Max, g.NumValues)
	if g.TiedTo != NoTie {
		s += " tied to " + g.TiedTo.String()
	}
	return s
}

// Value returns the coordinate for a gene index.
func (g Gene) Value(index int) float64 {
	if g.NumValues <= 1 {
		return g.Min
	}
	return g.Min + (g.Max-g.Min)*float64(index)/float64(g.NumValues-1)
}

func (g Gene) Validate() error {
	var errs error
	add := func(format string, args ...interface{}) {
		errs = multierr.Append(errs, fmt.Errorf("gene: "+format+": %w", append(args, analysis.ErrInvalidInputs)...))
	}
	if g.Hardpoint < 0 || g.Hardpoint >= vehicle.NumHardpoints {
		add("unknown hardpoint %d", g.Hardpoint)
	}
	if g.Hardpoint == vehicle.WheelCenter || g.TiedTo == vehicle.WheelCenter {
		add("the wheel center is derived and cannot be varied")
	}
	if g.TiedTo != NoTie && (g.TiedTo < 0 || g.TiedTo >= vehicle.NumHardpoints) {
		add("unknown tied hardpoint %d", g.TiedTo)
	}
	if g.Location < 0 || g.Location >= vehicle.NumLocations {
		add("unknown location %d", g.Location)
	}
	if g.Axis < 0 || g.Axis > 2 {
		add("axis %d out of range", g.Axis)
	}
	if g.NumValues < 1 {
		add("need at least one value, got %d", g.NumValues)
	}
	if !analysis.IsFinite(g.Min, g.Max) {
		add("range is not finite")
	}
	return errs
}

// apply writes the gene value into car. On a symmetric suspension the
// mirrored corner follows.
func (g Gene) apply(car *vehicle.Car, index int) {
	v := g.Value(index)
	locs := []vehicle.Location{g.Location}
	if car.Suspension.IsSymmetric {
		locs = append(locs, g.Location.Opposite())
	}
	for i, loc := range locs {
		value := v
		if i > 0 && g.Axis == 1 {
			value = -v
		}
		c := car.Corner(loc)
		set := func(h vehicle.Hardpoint) {
			c.Hardpoints[h] = geom.WithComponent(c.Hardpoints[h], g.Axis, value)
		}
		set(g.Hardpoint)
		if g.TiedTo != NoTie {
			set(g.TiedTo)
		}
		if g.Hardpoint == vehicle.ContactPatch || g.TiedTo == vehicle.ContactPatch {
			c.ComputeWheelCenter(car.Tires.Tires[loc].Diameter)
		}
	}
}

// Genome is one gene index per gene.
type Genome []int

func (g Genome) key() string {
	return fmt.Sprint([]int(g))
}

func (g Genome) clone() Genome {
	return append(Genome(nil), g...)
}

// SpaceSize is the number of distinct genomes, saturating at limit+1.
func SpaceSize(genes []Gene, limit int) int {
	n := 1
	for _, g := range genes {
		n *= g.NumValues
		if n > limit {
			return limit + 1
		}
	}
	return n
}
