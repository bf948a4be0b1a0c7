package vehicle

import (
	"fmt"
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/vvase/internal/analysis"
	"github.com/san-kum/vvase/internal/units"
)

// MassProperties describes the whole car. Inertia terms are tensor entries
// about the total center of gravity in slug-in^2.
type MassProperties struct {
	Mass            float64 // slug
	Ixx, Iyy, Izz   float64
	Ixy, Ixz, Iyz   float64
	CenterOfGravity r3.Vector

	UnsprungMass [NumLocations]float64
	UnsprungCG   [NumLocations]r3.Vector
}

// Weight returns the total weight in lbf.
func (m MassProperties) Weight() float64 {
	return m.Mass * units.GravityFtPerS2
}

func (m MassProperties) SprungMass() float64 {
	total := m.Mass
	for _, mu := range m.UnsprungMass {
		total -= mu
	}
	return total
}

// SprungCG returns the center of gravity of the sprung mass alone.
func (m MassProperties) SprungCG() r3.Vector {
	ms := m.SprungMass()
	if ms <= 0 {
		return m.CenterOfGravity
	}
	moment := m.CenterOfGravity.Mul(m.Mass)
	for i, mu := range m.UnsprungMass {
		moment = moment.Sub(m.UnsprungCG[i].Mul(mu))
	}
	return moment.Mul(1 / ms)
}

func (m MassProperties) InertiaTensor() *mat.SymDense {
	return mat.NewSymDense(3, []float64{
		m.Ixx, m.Ixy, m.Ixz,
		m.Ixy, m.Iyy, m.Iyz,
		m.Ixz, m.Iyz, m.Izz,
	})
}

// PrincipalInertias returns the principal moments in ascending order with
// their unit axes.
func (m MassProperties) PrincipalInertias() ([3]float64, [3]r3.Vector, error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(m.InertiaTensor(), true); !ok {
		return [3]float64{}, [3]r3.Vector{}, fmt.Errorf("inertia eigen decomposition failed: %w", analysis.ErrInvalidInputs)
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	order := []int{0, 1, 2}
	sort.Slice(order, func(a, b int) bool { return values[order[a]] < values[order[b]] })

	var moments [3]float64
	var axes [3]r3.Vector
	for i, k := range order {
		moments[i] = values[k]
		axes[i] = r3.Vector{X: vectors.At(0, k), Y: vectors.At(1, k), Z: vectors.At(2, k)}
	}
	return moments, axes, nil
}

// StaticLoads distributes the weight over the four contact patches so that
// force and moment balance hold with the car at rest.
func (m MassProperties) StaticLoads(patches [NumLocations]r3.Vector) [NumLocations]float64 {
	return DistributeLoad(m.Weight(), m.CenterOfGravity, patches)
}

// DistributeLoad splits weight front/rear by the lever rule between the
// axles and then left/right within each axle.
func DistributeLoad(weight float64, cg r3.Vector, patches [NumLocations]r3.Vector) [NumLocations]float64 {
	xf := (patches[RightFront].X + patches[LeftFront].X) / 2
	xr := (patches[RightRear].X + patches[LeftRear].X) / 2
	front := weight / 2
	if xr != xf {
		front = weight * (xr - cg.X) / (xr - xf)
	}
	rear := weight - front

	split := func(axleLoad float64, right, left r3.Vector) (float64, float64) {
		if right.Y == left.Y {
			return axleLoad / 2, axleLoad / 2
		}
		r := axleLoad * (cg.Y - left.Y) / (right.Y - left.Y)
		return r, axleLoad - r
	}

	var loads [NumLocations]float64
	loads[RightFront], loads[LeftFront] = split(front, patches[RightFront], patches[LeftFront])
	loads[RightRear], loads[LeftRear] = split(rear, patches[RightRear], patches[LeftRear])
	return loads
}
