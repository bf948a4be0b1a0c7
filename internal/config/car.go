package config

import (
	"fmt"
	"math"
	"os"

	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/vvase/internal/analysis"
	"github.com/san-kum/vvase/internal/vehicle"
)

// Point is a hardpoint in inches, written as a flow sequence [x, y, z].
type Point [3]float64

func pointOf(v r3.Vector) Point {
	return Point{v.X, v.Y, v.Z}
}

func (p Point) vector() r3.Vector {
	return r3.Vector{X: p[0], Y: p[1], Z: p[2]}
}

// CarDocument is the human-editable form of a car. Angles are in degrees;
// everything else uses the car's internal units. Hardpoints are keyed by
// name and the derived wheel center is omitted. A symmetric car lists only
// its right corners.
type CarDocument struct {
	Name       string                    `yaml:"name"`
	Symmetric  bool                      `yaml:"symmetric"`
	RackRatio  float64                   `yaml:"rack_ratio"`
	Corners    map[string]CornerDocument `yaml:"corners"`
	Front      AxleDocument              `yaml:"front"`
	Rear       AxleDocument              `yaml:"rear"`
	Tires      map[string]vehicle.Tire   `yaml:"tires"`
	Mass       MassDocument              `yaml:"mass"`
	Aero       AeroDocument              `yaml:"aerodynamics"`
	Brakes     vehicle.Brakes            `yaml:"brakes"`
	Drivetrain DrivetrainDocument        `yaml:"drivetrain"`
	Engine     vehicle.Engine            `yaml:"engine"`
}

type CornerDocument struct {
	Hardpoints   map[string]Point `yaml:"hardpoints"`
	StaticCamber float64          `yaml:"static_camber"`
	StaticToe    float64          `yaml:"static_toe"`
	Actuation    string           `yaml:"actuation"`
	AttachedTo   string           `yaml:"attached_to"`
	SpringRate   float64          `yaml:"spring_rate"`
	DamperRate   float64          `yaml:"damper_rate"`
}

type AxleDocument struct {
	BarStyle        string           `yaml:"bar_style"`
	BarAttachment   string           `yaml:"bar_attachment"`
	BarRate         float64          `yaml:"bar_rate"`
	HasThirdSpring  bool             `yaml:"third_spring"`
	ThirdSpringRate float64          `yaml:"third_spring_rate"`
	ThirdDamperRate float64          `yaml:"third_damper_rate"`
	Hardpoints      map[string]Point `yaml:"hardpoints,omitempty"`
}

type MassDocument struct {
	Mass            float64            `yaml:"mass"`
	Inertia         [6]float64         `yaml:"inertia,flow"` // Ixx Iyy Izz Ixy Ixz Iyz
	CenterOfGravity Point              `yaml:"center_of_gravity,flow"`
	UnsprungMass    map[string]float64 `yaml:"unsprung_mass"`
	UnsprungCG      map[string]Point   `yaml:"unsprung_cg"`
}

type AeroDocument struct {
	CenterOfPressure       Point   `yaml:"center_of_pressure,flow"`
	ReferenceArea          float64 `yaml:"reference_area"`
	ReferenceLength        float64 `yaml:"reference_length"`
	AirDensity             float64 `yaml:"air_density"`
	DragCoefficient        float64 `yaml:"drag_coefficient"`
	LiftCoefficient        float64 `yaml:"lift_coefficient"`
	PitchMomentCoefficient float64 `yaml:"pitch_moment_coefficient"`
}

type DifferentialDocument struct {
	Type      string  `yaml:"type"`
	BiasRatio float64 `yaml:"bias_ratio"`
}

type DrivetrainDocument struct {
	DriveType          string               `yaml:"drive_type"`
	GearRatios         []float64            `yaml:"gear_ratios,flow"`
	FinalDrive         float64              `yaml:"final_drive"`
	FrontTorqueSplit   float64              `yaml:"front_torque_split"`
	FrontDifferential  DifferentialDocument `yaml:"front_differential"`
	RearDifferential   DifferentialDocument `yaml:"rear_differential"`
	CenterDifferential DifferentialDocument `yaml:"center_differential"`
}

func deg(rad float64) float64 { return rad * 180 / math.Pi }
func rad(deg float64) float64 { return deg * math.Pi / 180 }

// NewCarDocument converts a car to its document form.
func NewCarDocument(c *vehicle.Car) *CarDocument {
	c.RLock()
	defer c.RUnlock()

	s := &c.Suspension
	d := &CarDocument{
		Name:      c.Name,
		Symmetric: s.IsSymmetric,
		RackRatio: s.RackRatio,
		Corners:   map[string]CornerDocument{},
		Front:     axleDocument(s.Front),
		Rear:      axleDocument(s.Rear),
		Tires:     map[string]vehicle.Tire{},
		Brakes:    c.Brakes,
		Engine:    c.Engine,
	}
	for loc := vehicle.Location(0); loc < vehicle.NumLocations; loc++ {
		d.Tires[loc.String()] = c.Tires.Tires[loc]
		if s.IsSymmetric && loc.IsLeft() {
			continue
		}
		corner := s.Corners[loc]
		cd := CornerDocument{
			Hardpoints:   map[string]Point{},
			StaticCamber: deg(corner.StaticCamber),
			StaticToe:    deg(corner.StaticToe),
			Actuation:    corner.ActuationType.String(),
			AttachedTo:   corner.ActuationAttachment.String(),
			SpringRate:   corner.SpringRate,
			DamperRate:   corner.DamperRate,
		}
		for h := vehicle.Hardpoint(0); h < vehicle.NumHardpoints; h++ {
			if h != vehicle.WheelCenter {
				cd.Hardpoints[h.String()] = pointOf(corner.Hardpoints[h])
			}
		}
		d.Corners[loc.String()] = cd
	}

	m := c.MassProperties
	d.Mass = MassDocument{
		Mass:            m.Mass,
		Inertia:         [6]float64{m.Ixx, m.Iyy, m.Izz, m.Ixy, m.Ixz, m.Iyz},
		CenterOfGravity: pointOf(m.CenterOfGravity),
		UnsprungMass:    map[string]float64{},
		UnsprungCG:      map[string]Point{},
	}
	for loc := vehicle.Location(0); loc < vehicle.NumLocations; loc++ {
		d.Mass.UnsprungMass[loc.String()] = m.UnsprungMass[loc]
		d.Mass.UnsprungCG[loc.String()] = pointOf(m.UnsprungCG[loc])
	}

	a := c.Aerodynamics
	d.Aero = AeroDocument{
		CenterOfPressure:       pointOf(a.CenterOfPressure),
		ReferenceArea:          a.ReferenceArea,
		ReferenceLength:        a.ReferenceLength,
		AirDensity:             a.AirDensity,
		DragCoefficient:        a.DragCoefficient,
		LiftCoefficient:        a.LiftCoefficient,
		PitchMomentCoefficient: a.PitchMomentCoefficient,
	}

	dt := c.Drivetrain
	d.Drivetrain = DrivetrainDocument{
		DriveType:          dt.DriveType.String(),
		GearRatios:         append([]float64(nil), dt.GearRatios...),
		FinalDrive:         dt.FinalDrive,
		FrontTorqueSplit:   dt.FrontTorqueSplit,
		FrontDifferential:  DifferentialDocument{dt.FrontDifferential.Type.String(), dt.FrontDifferential.BiasRatio},
		RearDifferential:   DifferentialDocument{dt.RearDifferential.Type.String(), dt.RearDifferential.BiasRatio},
		CenterDifferential: DifferentialDocument{dt.CenterDifferential.Type.String(), dt.CenterDifferential.BiasRatio},
	}
	return d
}

func axleDocument(a vehicle.AxleSuspension) AxleDocument {
	d := AxleDocument{
		BarStyle:        a.BarStyle.String(),
		BarAttachment:   a.BarAttachment.String(),
		BarRate:         a.BarRate,
		HasThirdSpring:  a.HasThirdSpring,
		ThirdSpringRate: a.ThirdSpringRate,
		ThirdDamperRate: a.ThirdDamperRate,
		Hardpoints:      map[string]Point{},
	}
	for h := vehicle.AxleHardpoint(0); h < vehicle.NumAxleHardpoints; h++ {
		d.Hardpoints[h.String()] = pointOf(a.Hardpoints[h])
	}
	return d
}

// Car builds a car from the document, reporting every unknown name.
func (d *CarDocument) Car() (*vehicle.Car, error) {
	c := &vehicle.Car{Name: d.Name}
	s := &c.Suspension
	s.IsSymmetric = d.Symmetric
	s.RackRatio = d.RackRatio

	var errs error
	fail := func(err error) { errs = multierr.Append(errs, err) }

	for name, cd := range d.Corners {
		loc, err := vehicle.ParseLocation(name)
		if err != nil {
			fail(err)
			continue
		}
		if d.Symmetric && loc.IsLeft() {
			fail(fmt.Errorf("symmetric car lists left corner %s", loc))
			continue
		}
		corner, err := cd.corner(loc)
		if err != nil {
			fail(fmt.Errorf("%s: %w", loc, err))
		}
		s.Corners[loc] = corner
	}
	want := []vehicle.Location{vehicle.RightFront, vehicle.RightRear}
	if !d.Symmetric {
		want = append(want, vehicle.LeftFront, vehicle.LeftRear)
	}
	for _, loc := range want {
		if _, ok := d.Corners[loc.String()]; !ok {
			fail(fmt.Errorf("missing corner %s", loc))
		}
	}
	if d.Symmetric {
		s.MirrorRightToLeft()
	}

	var err error
	if s.Front, err = d.Front.axle(); err != nil {
		fail(fmt.Errorf("front: %w", err))
	}
	if s.Rear, err = d.Rear.axle(); err != nil {
		fail(fmt.Errorf("rear: %w", err))
	}

	for name, tire := range d.Tires {
		loc, err := vehicle.ParseLocation(name)
		if err != nil {
			fail(err)
			continue
		}
		c.Tires.Tires[loc] = tire
	}

	m := &c.MassProperties
	m.Mass = d.Mass.Mass
	m.Ixx, m.Iyy, m.Izz = d.Mass.Inertia[0], d.Mass.Inertia[1], d.Mass.Inertia[2]
	m.Ixy, m.Ixz, m.Iyz = d.Mass.Inertia[3], d.Mass.Inertia[4], d.Mass.Inertia[5]
	m.CenterOfGravity = d.Mass.CenterOfGravity.vector()
	for name, mu := range d.Mass.UnsprungMass {
		loc, err := vehicle.ParseLocation(name)
		if err != nil {
			fail(err)
			continue
		}
		m.UnsprungMass[loc] = mu
	}
	for name, p := range d.Mass.UnsprungCG {
		loc, err := vehicle.ParseLocation(name)
		if err != nil {
			fail(err)
			continue
		}
		m.UnsprungCG[loc] = p.vector()
	}

	c.Aerodynamics = vehicle.Aerodynamics{
		CenterOfPressure:       d.Aero.CenterOfPressure.vector(),
		ReferenceArea:          d.Aero.ReferenceArea,
		ReferenceLength:        d.Aero.ReferenceLength,
		AirDensity:             d.Aero.AirDensity,
		DragCoefficient:        d.Aero.DragCoefficient,
		LiftCoefficient:        d.Aero.LiftCoefficient,
		PitchMomentCoefficient: d.Aero.PitchMomentCoefficient,
	}
	c.Brakes = d.Brakes
	c.Engine = d.Engine
	if c.Drivetrain, err = d.Drivetrain.drivetrain(); err != nil {
		fail(fmt.Errorf("drivetrain: %w", err))
	}

	if errs != nil {
		return nil, fmt.Errorf("car %q: %v: %w", d.Name, errs, analysis.ErrInvalidInputs)
	}
	c.ComputeWheelCenters()
	return c, nil
}

func (cd CornerDocument) corner(loc vehicle.Location) (vehicle.Corner, error) {
	c := vehicle.Corner{
		Location:     loc,
		StaticCamber: rad(cd.StaticCamber),
		StaticToe:    rad(cd.StaticToe),
		SpringRate:   cd.SpringRate,
		DamperRate:   cd.DamperRate,
	}
	var errs error
	var err error
	if c.ActuationType, err = vehicle.ParseActuationType(cd.Actuation); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.ActuationAttachment, err = vehicle.ParseAttachment(cd.AttachedTo); err != nil {
		errs = multierr.Append(errs, err)
	}
	for name, p := range cd.Hardpoints {
		h, err := vehicle.ParseHardpoint(name)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		c.Hardpoints[h] = p.vector()
	}
	return c, errs
}

func (d AxleDocument) axle() (vehicle.AxleSuspension, error) {
	a := vehicle.AxleSuspension{
		BarRate:         d.BarRate,
		HasThirdSpring:  d.HasThirdSpring,
		ThirdSpringRate: d.ThirdSpringRate,
		ThirdDamperRate: d.ThirdDamperRate,
	}
	var errs error
	var err error
	if a.BarStyle, err = vehicle.ParseBarStyle(d.BarStyle); err != nil {
		errs = multierr.Append(errs, err)
	}
	if d.BarAttachment != "" {
		if a.BarAttachment, err = vehicle.ParseAttachment(d.BarAttachment); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	for name, p := range d.Hardpoints {
		h, err := vehicle.ParseAxleHardpoint(name)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		a.Hardpoints[h] = p.vector()
	}
	return a, errs
}

func (d DrivetrainDocument) drivetrain() (vehicle.Drivetrain, error) {
	dt := vehicle.Drivetrain{
		GearRatios:       append([]float64(nil), d.GearRatios...),
		FinalDrive:       d.FinalDrive,
		FrontTorqueSplit: d.FrontTorqueSplit,
	}
	var errs error
	var err error
	if dt.DriveType, err = vehicle.ParseDriveType(d.DriveType); err != nil {
		errs = multierr.Append(errs, err)
	}
	diff := func(dd DifferentialDocument) vehicle.Differential {
		t, err := vehicle.ParseDifferentialType(dd.Type)
		errs = multierr.Append(errs, err)
		return vehicle.Differential{Type: t, BiasRatio: dd.BiasRatio}
	}
	dt.FrontDifferential = diff(d.FrontDifferential)
	dt.RearDifferential = diff(d.RearDifferential)
	dt.CenterDifferential = diff(d.CenterDifferential)
	return dt, errs
}

// LoadCar reads a YAML car document.
func LoadCar(path string) (*vehicle.Car, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCar(data)
}

func ParseCar(data []byte) (*vehicle.Car, error) {
	var d CarDocument
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse car: %v: %w", err, analysis.ErrFileFormat)
	}
	return d.Car()
}

func MarshalCar(c *vehicle.Car) ([]byte, error) {
	return yaml.Marshal(NewCarDocument(c))
}

func SaveCar(path string, c *vehicle.Car) error {
	data, err := MarshalCar(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
