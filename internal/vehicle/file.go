package vehicle

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/san-kum/vvase/internal/binio"
)

// CarFileMagic opens every car file.
var CarFileMagic = [4]byte{'V', 'C', 'A', 'R'}

// Car file versions. Readers accept every version up to CarFileVersion.
const (
	// carFileV0 has corners, bars, tires, mass, brakes and the drive type.
	carFileV0 int32 = iota
	// carFileV1 adds third springs and axle hardpoints.
	carFileV1
	// carFileV2 adds differentials, the AWD torque split and aero pitch moment.
	carFileV2

	CarFileVersion = carFileV2
)

// Defaults applied to fields missing from older files.
const (
	defaultTorqueSplit = 0.5
	defaultBiasRatio   = 1.0
)

// WriteTo encodes the car in the current file version.
func (c *Car) WriteTo(dst io.Writer) (int64, error) {
	c.RLock()
	defer c.RUnlock()

	w := binio.NewWriter(dst)
	w.Header(CarFileMagic, CarFileVersion)
	c.writeAerodynamics(w)
	c.writeBrakes(w)
	c.writeDrivetrain(w)
	c.writeEngine(w)
	c.writeMass(w)
	c.writeSuspension(w)
	c.writeTires(w)
	err := w.Flush()
	return w.Written(), errors.Wrap(err, "write car")
}

// ReadCar decodes a car file of any known version.
func ReadCar(src io.Reader) (*Car, error) {
	r := binio.NewReader(src)
	version := r.Header(CarFileMagic, CarFileVersion)
	if err := r.Err(); err != nil {
		return nil, errors.Wrap(err, "read car header")
	}

	c := &Car{}
	c.readAerodynamics(r, version)
	c.readBrakes(r)
	c.readDrivetrain(r, version)
	c.readEngine(r)
	c.readMass(r)
	c.readSuspension(r, version)
	c.readTires(r)
	if err := r.Err(); err != nil {
		return nil, errors.Wrapf(err, "read car (version %d)", version)
	}
	c.ComputeWheelCenters()
	return c, nil
}

func SaveCarFile(path string, c *Car) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create car file")
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close car file")
}

func LoadCarFile(path string) (*Car, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open car file")
	}
	defer f.Close()
	c, err := ReadCar(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return c, nil
}

func (c *Car) writeAerodynamics(w *binio.Writer) {
	a := c.Aerodynamics
	w.Vector(a.CenterOfPressure)
	w.Float64(a.ReferenceArea)
	w.Float64(a.AirDensity)
	w.Float64(a.DragCoefficient)
	w.Float64(a.LiftCoefficient)
	w.Float64(a.ReferenceLength)
	w.Float64(a.PitchMomentCoefficient)
}

func (c *Car) readAerodynamics(r *binio.Reader, version int32) {
	a := &c.Aerodynamics
	a.CenterOfPressure = r.Vector()
	a.ReferenceArea = r.Float64()
	a.AirDensity = r.Float64()
	a.DragCoefficient = r.Float64()
	a.LiftCoefficient = r.Float64()
	if version >= carFileV2 {
		a.ReferenceLength = r.Float64()
		a.PitchMomentCoefficient = r.Float64()
	}
}

func (c *Car) writeBrakes(w *binio.Writer) {
	w.Bool(c.Brakes.FrontBrakesInboard)
	w.Bool(c.Brakes.RearBrakesInboard)
	w.Float64(c.Brakes.PercentFrontBraking)
}

func (c *Car) readBrakes(r *binio.Reader) {
	c.Brakes.FrontBrakesInboard = r.Bool()
	c.Brakes.RearBrakesInboard = r.Bool()
	c.Brakes.PercentFrontBraking = r.Float64()
}

func writeDifferential(w *binio.Writer, d Differential) {
	w.Int32(int32(d.Type))
	w.Float64(d.BiasRatio)
}

func readDifferential(r *binio.Reader) Differential {
	return Differential{Type: DifferentialType(r.Enum(int(numDifferentialTypes))), BiasRatio: r.Float64()}
}

func (c *Car) writeDrivetrain(w *binio.Writer) {
	d := c.Drivetrain
	w.Int32(int32(d.DriveType))
	w.Int32(int32(len(d.GearRatios)))
	for _, g := range d.GearRatios {
		w.Float64(g)
	}
	w.Float64(d.FinalDrive)
	w.Float64(d.FrontTorqueSplit)
	writeDifferential(w, d.FrontDifferential)
	writeDifferential(w, d.RearDifferential)
	writeDifferential(w, d.CenterDifferential)
}

func (c *Car) readDrivetrain(r *binio.Reader, version int32) {
	d := &c.Drivetrain
	d.DriveType = DriveType(r.Enum(int(numDriveTypes)))
	n := r.Count(64)
	d.GearRatios = make([]float64, n)
	for i := range d.GearRatios {
		d.GearRatios[i] = r.Float64()
	}
	d.FinalDrive = r.Float64()
	if version < carFileV2 {
		d.FrontTorqueSplit = defaultTorqueSplit
		open := Differential{Type: OpenDifferential, BiasRatio: defaultBiasRatio}
		d.FrontDifferential, d.RearDifferential, d.CenterDifferential = open, open, open
		return
	}
	d.FrontTorqueSplit = r.Float64()
	d.FrontDifferential = readDifferential(r)
	d.RearDifferential = readDifferential(r)
	d.CenterDifferential = readDifferential(r)
}

func (c *Car) writeEngine(w *binio.Writer) {
	e := c.Engine
	for _, f := range []float64{e.PeakTorque, e.PeakTorqueSpeed, e.PeakPower, e.PeakPowerSpeed, e.RedlineSpeed} {
		w.Float64(f)
	}
}

func (c *Car) readEngine(r *binio.Reader) {
	e := &c.Engine
	for _, f := range []*float64{&e.PeakTorque, &e.PeakTorqueSpeed, &e.PeakPower, &e.PeakPowerSpeed, &e.RedlineSpeed} {
		*f = r.Float64()
	}
}

func (c *Car) writeMass(w *binio.Writer) {
	m := c.MassProperties
	for _, f := range []float64{m.Mass, m.Ixx, m.Iyy, m.Izz, m.Ixy, m.Ixz, m.Iyz} {
		w.Float64(f)
	}
	w.Vector(m.CenterOfGravity)
	for i := range m.UnsprungMass {
		w.Float64(m.UnsprungMass[i])
		w.Vector(m.UnsprungCG[i])
	}
}

func (c *Car) readMass(r *binio.Reader) {
	m := &c.MassProperties
	for _, f := range []*float64{&m.Mass, &m.Ixx, &m.Iyy, &m.Izz, &m.Ixy, &m.Ixz, &m.Iyz} {
		*f = r.Float64()
	}
	m.CenterOfGravity = r.Vector()
	for i := range m.UnsprungMass {
		m.UnsprungMass[i] = r.Float64()
		m.UnsprungCG[i] = r.Vector()
	}
}

func (c *Car) writeSuspension(w *binio.Writer) {
	s := &c.Suspension
	for i := range s.Corners {
		corner := &s.Corners[i]
		for _, p := range corner.Hardpoints {
			w.Vector(p)
		}
		w.Float64(corner.StaticCamber)
		w.Float64(corner.StaticToe)
		w.Int32(int32(corner.ActuationAttachment))
		w.Int32(int32(corner.ActuationType))
		w.Float64(corner.SpringRate)
		w.Float64(corner.DamperRate)
	}
	for _, axle := range []*AxleSuspension{&s.Front, &s.Rear} {
		w.Int32(int32(axle.BarStyle))
		w.Int32(int32(axle.BarAttachment))
		w.Float64(axle.BarRate)
		w.Bool(axle.HasThirdSpring)
		w.Float64(axle.ThirdSpringRate)
		w.Float64(axle.ThirdDamperRate)
		for _, p := range axle.Hardpoints {
			w.Vector(p)
		}
	}
	w.Float64(s.RackRatio)
	w.Bool(s.IsSymmetric)
}

func (c *Car) readSuspension(r *binio.Reader, version int32) {
	s := &c.Suspension
	for i := range s.Corners {
		corner := &s.Corners[i]
		corner.Location = Location(i)
		for h := range corner.Hardpoints {
			corner.Hardpoints[h] = r.Vector()
		}
		corner.StaticCamber = r.Float64()
		corner.StaticToe = r.Float64()
		corner.ActuationAttachment = Attachment(r.Enum(int(numAttachments)))
		corner.ActuationType = ActuationType(r.Enum(int(numActuationTypes)))
		corner.SpringRate = r.Float64()
		corner.DamperRate = r.Float64()
	}
	for _, axle := range []*AxleSuspension{&s.Front, &s.Rear} {
		axle.BarStyle = BarStyle(r.Enum(int(numBarStyles)))
		axle.BarAttachment = Attachment(r.Enum(int(numAttachments)))
		axle.BarRate = r.Float64()
		if version < carFileV1 {
			// v0 stored only the bar midpoint
			axle.Hardpoints[BarMidPoint] = r.Vector()
			continue
		}
		axle.HasThirdSpring = r.Bool()
		axle.ThirdSpringRate = r.Float64()
		axle.ThirdDamperRate = r.Float64()
		for h := range axle.Hardpoints {
			axle.Hardpoints[h] = r.Vector()
		}
	}
	s.RackRatio = r.Float64()
	s.IsSymmetric = r.Bool()
}

func (c *Car) writeTires(w *binio.Writer) {
	for _, t := range c.Tires.Tires {
		w.Float64(t.Diameter)
		w.Float64(t.Width)
		w.Float64(t.Stiffness)
	}
}

func (c *Car) readTires(r *binio.Reader) {
	for i := range c.Tires.Tires {
		t := &c.Tires.Tires[i]
		t.Diameter = r.Float64()
		t.Width = r.Float64()
		t.Stiffness = r.Float64()
	}
}
