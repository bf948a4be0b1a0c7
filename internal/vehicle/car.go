package vehicle

import (
	"fmt"
	"sync"

	"github.com/golang/geo/r3"
	"go.uber.org/multierr"

	"github.com/san-kum/vvase/internal/analysis"
)

// Car is the full parameter bundle for one vehicle.
//
// Analyses never mutate the car they are given: they clone it and work on the
// clone. The lock guards long-lived cars that are edited while analyses read
// them.
type Car struct {
	mu sync.RWMutex

	Name           string
	Aerodynamics   Aerodynamics
	Brakes         Brakes
	Drivetrain     Drivetrain
	Engine         Engine
	MassProperties MassProperties
	Suspension     Suspension
	Tires          TireSet
}

func (c *Car) Lock()    { c.mu.Lock() }
func (c *Car) Unlock()  { c.mu.Unlock() }
func (c *Car) RLock()   { c.mu.RLock() }
func (c *Car) RUnlock() { c.mu.RUnlock() }

// Clone returns a deep copy of the car.
func (c *Car) Clone() *Car {
	dst := &Car{}
	dst.CopyFrom(c)
	return dst
}

// CopyFrom overwrites c with a deep copy of src. c must not be shared.
func (c *Car) CopyFrom(src *Car) {
	src.RLock()
	defer src.RUnlock()
	c.Name = src.Name
	c.Aerodynamics = src.Aerodynamics
	c.Brakes = src.Brakes
	c.Drivetrain = src.Drivetrain.clone()
	c.Engine = src.Engine
	c.MassProperties = src.MassProperties
	c.Suspension = src.Suspension
	c.Tires = src.Tires
}

// Corner returns the corner at loc.
func (c *Car) Corner(loc Location) *Corner {
	return &c.Suspension.Corners[loc]
}

// ComputeWheelCenters derives every wheel center and wheel normal from the
// contact patch, tire diameter and static alignment.
func (c *Car) ComputeWheelCenters() {
	for loc := Location(0); loc < NumLocations; loc++ {
		c.Suspension.Corners[loc].ComputeWheelCenter(c.Tires.Tires[loc].Diameter)
	}
}

// Prepare mirrors a symmetric suspension and derives wheel centers. It is run
// after loading or editing a car.
func (c *Car) Prepare() {
	c.Lock()
	defer c.Unlock()
	for loc := Location(0); loc < NumLocations; loc++ {
		c.Suspension.Corners[loc].Location = loc
	}
	if c.Suspension.IsSymmetric {
		c.Suspension.MirrorRightToLeft()
	}
	c.ComputeWheelCenters()
}

// ContactPatches returns the four contact patch locations.
func (c *Car) ContactPatches() [NumLocations]r3.Vector {
	var out [NumLocations]r3.Vector
	for i := range out {
		out[i] = c.Suspension.Corners[i].Hardpoints[ContactPatch]
	}
	return out
}

// Wheelbase is the mean longitudinal distance between front and rear patches.
func (c *Car) Wheelbase() float64 {
	cp := c.ContactPatches()
	return ((cp[RightRear].X - cp[RightFront].X) + (cp[LeftRear].X - cp[LeftFront].X)) / 2
}

func (c *Car) Track(front bool) float64 {
	right, left := Axle(front)
	cp := c.ContactPatches()
	return cp[right].Y - cp[left].Y
}

// GroundHeight is the mean contact patch height.
func (c *Car) GroundHeight() float64 {
	var z float64
	for _, p := range c.ContactPatches() {
		z += p.Z
	}
	return z / float64(NumLocations)
}

// CGHeight is the height of the center of gravity above the ground.
func (c *Car) CGHeight() float64 {
	return c.MassProperties.CenterOfGravity.Z - c.GroundHeight()
}

// Validate checks the parameters an analysis depends on and reports every
// problem found.
func (c *Car) Validate() error {
	c.RLock()
	defer c.RUnlock()

	var errs error
	add := func(format string, args ...interface{}) {
		errs = multierr.Append(errs, fmt.Errorf(format+": %w", append(args, analysis.ErrInvalidInputs)...))
	}

	for loc := Location(0); loc < NumLocations; loc++ {
		corner := &c.Suspension.Corners[loc]
		for h, p := range corner.Hardpoints {
			if !analysis.IsFinite(p.X, p.Y, p.Z) {
				add("%s %s is not finite", loc, Hardpoint(h))
			}
		}
		if !analysis.IsFinite(corner.StaticCamber, corner.StaticToe, corner.SpringRate, corner.DamperRate) {
			add("%s alignment or rates are not finite", loc)
		}
		if corner.SpringRate < 0 || corner.DamperRate < 0 {
			add("%s has a negative spring or damper rate", loc)
		}
		if corner.ActuationAttachment == AttachBellcrank {
			add("%s actuation cannot attach to the bellcrank", loc)
		}
		if corner.ActuationType < 0 || corner.ActuationType >= numActuationTypes {
			add("%s has unknown actuation type %d", loc, corner.ActuationType)
		}

		tire := c.Tires.Tires[loc]
		if !(tire.Diameter > 0) {
			add("%s tire diameter must be positive", loc)
		}
		if tire.Stiffness < 0 || tire.Width < 0 {
			add("%s tire width and stiffness must not be negative", loc)
		}

		p := corner.Hardpoints
		if p[LowerFrontTubMount].Sub(p[LowerRearTubMount]).Norm() == 0 {
			add("%s lower A-arm tub mounts coincide: %w", loc, analysis.ErrDegenerateLinkage)
		}
		if p[UpperFrontTubMount].Sub(p[UpperRearTubMount]).Norm() == 0 {
			add("%s upper A-arm tub mounts coincide: %w", loc, analysis.ErrDegenerateLinkage)
		}
		if corner.ActuationType == PushPullrod && p[BellCrankPivot1].Sub(p[BellCrankPivot2]).Norm() == 0 {
			add("%s bellcrank pivots coincide: %w", loc, analysis.ErrDegenerateLinkage)
		}
	}

	for _, front := range []bool{true, false} {
		axle := c.Suspension.Axle(front)
		name := "rear"
		if front {
			name = "front"
		}
		if axle.BarStyle < 0 || axle.BarStyle >= numBarStyles {
			add("%s bar style %d unknown", name, axle.BarStyle)
		}
		if axle.BarStyle != BarNone && axle.BarAttachment == AttachBellcrank {
			right, _ := Axle(front)
			if c.Suspension.Corners[right].ActuationType == OutboardActuation {
				add("%s bar attaches to a bellcrank but the axle has outboard actuation", name)
			}
		}
		if axle.BarRate < 0 || axle.ThirdSpringRate < 0 || axle.ThirdDamperRate < 0 {
			add("%s bar or third spring rate is negative", name)
		}
	}

	m := c.MassProperties
	if !(m.Mass > 0) {
		add("total mass must be positive")
	}
	if m.SprungMass() <= 0 {
		add("unsprung mass exceeds total mass")
	}
	if !analysis.IsFinite(m.CenterOfGravity.X, m.CenterOfGravity.Y, m.CenterOfGravity.Z) {
		add("center of gravity is not finite")
	}
	if b := c.Brakes.PercentFrontBraking; b < 0 || b > 1 {
		add("front brake fraction %.3f outside [0,1]", b)
	}
	if s := c.Drivetrain.FrontTorqueSplit; s < 0 || s > 1 {
		add("front torque split %.3f outside [0,1]", s)
	}
	return errs
}
