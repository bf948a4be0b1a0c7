package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/vvase/internal/analysis"
	"github.com/san-kum/vvase/internal/kinematics"
	"github.com/san-kum/vvase/internal/quasistatic"
	"github.com/san-kum/vvase/internal/vehicle"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	if cfg.QuasistaticOptions() != quasistatic.DefaultOptions() {
		t.Errorf("quasi-static defaults differ: %+v", cfg.QuasistaticOptions())
	}
	if cfg.NumWorkers() <= 0 {
		t.Error("worker count should be positive")
	}
	in, err := cfg.KinematicsInputs()
	if err != nil {
		t.Fatal(err)
	}
	if in.Order != kinematics.OrderXYZ || in.Steering != kinematics.RackTravel {
		t.Errorf("unexpected inputs %+v", in)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "vvase.yaml")
	data := `
workers: 3
kinematics:
  rotation_order: yxz
  center_of_rotation: [60, 0, 10]
quasistatic:
  max_iterations: 40
optimization:
  sort: quick
`
	g.Expect(os.WriteFile(path, []byte(data), 0644)).To(Succeed())

	cfg, err := Load(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cfg.NumWorkers()).To(Equal(3))
	g.Expect(cfg.Quasistatic.MaxIterations).To(Equal(40))
	g.Expect(cfg.Quasistatic.ForceTolerance).To(Equal(quasistatic.DefaultOptions().ForceTolerance))
	g.Expect(cfg.Sweep.Points).To(Equal(DefaultSweepPoints))

	in, err := cfg.KinematicsInputs()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(in.Order).To(Equal(kinematics.OrderYXZ))
	g.Expect(in.CenterOfRotation.X).To(Equal(60.0))

	settings, err := cfg.GeneticSettings()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(settings.Sort.String()).To(Equal("quick"))
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(dir, "nope.yaml")},
		{"bad yaml", write("bad.yaml", "workers: [")},
		{"bad order", write("order.yaml", "kinematics:\n  rotation_order: XXY\n")},
		{"bad sort", write("sort.yaml", "optimization:\n  sort: bubble\n")},
		{"zero tolerance", write("tol.yaml", "quasistatic:\n  force_tolerance: 0\n")},
		{"negative workers", write("workers.yaml", "workers: -2\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	cfg := GetPreset("precise")
	g.Expect(Save(path, cfg)).To(Succeed())
	got, err := Load(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(got).To(Equal(cfg))
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("fast")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Sweep.Points != 11 {
		t.Errorf("expected 11 sweep points, got %d", cfg.Sweep.Points)
	}
	if err := cfg.Validate(); err != nil {
		t.Error(err)
	}
	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	g := NewWithT(t)
	g.Expect(ListPresets()).To(Equal([]string{"fast", "precise", "search"}))
	g.Expect(ListCars()).To(Equal([]string{"formula", "scenario", "sedan"}))
	g.Expect(GetCar("missing")).To(BeNil())

	for _, name := range ListCars() {
		car := GetCar(name)
		g.Expect(car.Validate()).To(Succeed(), name)
	}
	g.Expect(GetCar("scenario").MassProperties.Weight()).To(BeNumerically("~", 1500, 1e-9))
}

func TestCarDocumentRoundTrip(t *testing.T) {
	for _, name := range ListCars() {
		t.Run(name, func(t *testing.T) {
			g := NewWithT(t)
			car := GetCar(name)
			car.Suspension.Corners[vehicle.RightFront].StaticCamber = -0.02
			car.Suspension.MirrorRightToLeft()
			car.ComputeWheelCenters()

			data, err := MarshalCar(car)
			g.Expect(err).NotTo(HaveOccurred())
			got, err := ParseCar(data)
			g.Expect(err).NotTo(HaveOccurred())

			g.Expect(got.Name).To(Equal(car.Name))
			g.Expect(got.Suspension.IsSymmetric).To(Equal(car.Suspension.IsSymmetric))
			g.Expect(got.Suspension.Front).To(Equal(car.Suspension.Front))
			g.Expect(got.Suspension.Rear).To(Equal(car.Suspension.Rear))
			g.Expect(got.Tires).To(Equal(car.Tires))
			g.Expect(got.MassProperties).To(Equal(car.MassProperties))
			g.Expect(got.Drivetrain).To(Equal(car.Drivetrain))
			g.Expect(got.Brakes).To(Equal(car.Brakes))
			g.Expect(got.Engine).To(Equal(car.Engine))
			g.Expect(got.Aerodynamics).To(Equal(car.Aerodynamics))

			for loc := vehicle.Location(0); loc < vehicle.NumLocations; loc++ {
				want := car.Corner(loc)
				c := got.Corner(loc)
				for h := vehicle.Hardpoint(0); h < vehicle.NumHardpoints; h++ {
					g.Expect(c.Hardpoints[h].Sub(want.Hardpoints[h]).Norm()).To(BeNumerically("<", 1e-9), "%s %s", loc, h)
				}
				g.Expect(c.StaticCamber).To(BeNumerically("~", want.StaticCamber, 1e-12))
				g.Expect(c.ActuationType).To(Equal(want.ActuationType))
				g.Expect(c.SpringRate).To(Equal(want.SpringRate))
			}
		})
	}
}

func TestCarFileOnDisk(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "formula.yaml")
	car := vehicle.NewFormulaCar()
	g.Expect(SaveCar(path, car)).To(Succeed())
	got, err := LoadCar(path)
	g.Expect(err).NotTo(HaveOccurred())

	_, want, err := kinematics.Analyze(car, kinematics.Inputs{Roll: 0.02})
	g.Expect(err).NotTo(HaveOccurred())
	_, out, err := kinematics.Analyze(got, kinematics.Inputs{Roll: 0.02})
	g.Expect(err).NotTo(HaveOccurred())
	camber := kinematics.CornerDoubleID(vehicle.RightFront, kinematics.Camber)
	g.Expect(out.Value(camber)).To(BeNumerically("~", want.Value(camber), 1e-12))
}

func TestParseCarErrors(t *testing.T) {
	good, err := MarshalCar(vehicle.NewFormulaCar())
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		data string
		kind error
	}{
		{"not yaml", "name: [", analysis.ErrFileFormat},
		{"no corners", "name: empty\nsymmetric: true\n", analysis.ErrInvalidInputs},
		{"bad hardpoint", `name: odd
symmetric: true
corners:
  RightFront:
    hardpoints:
      Nowhere: [0, 0, 0]
    actuation: pushrod
    attached_to: LowerAArm
  RightRear: {actuation: pushrod, attached_to: LowerAArm}
drivetrain: {drive_type: RWD}
`, analysis.ErrInvalidInputs},
		{"duplicate key", string(good) + "\nname: again\n", analysis.ErrFileFormat},
		{"left corner on symmetric car", `name: odd
symmetric: true
corners:
  RightFront: {actuation: pushrod, attached_to: Bellcrank}
  RightRear: {actuation: pushrod, attached_to: Bellcrank}
  LeftRear: {actuation: pushrod, attached_to: Bellcrank}
drivetrain: {drive_type: RWD}
`, analysis.ErrInvalidInputs},
		{"bad drive type", `name: odd
symmetric: true
corners:
  RightFront: {actuation: pushrod, attached_to: Bellcrank}
  RightRear: {actuation: pushrod, attached_to: Bellcrank}
drivetrain: {drive_type: hovercraft}
`, analysis.ErrInvalidInputs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCar([]byte(tt.data))
			if !errors.Is(err, tt.kind) {
				t.Errorf("got %v, want %v", err, tt.kind)
			}
		})
	}
}

func TestDegrees(t *testing.T) {
	if got := deg(math.Pi); math.Abs(got-180) > 1e-12 {
		t.Errorf("deg(pi) = %v", got)
	}
	if got := rad(90); math.Abs(got-math.Pi/2) > 1e-15 {
		t.Errorf("rad(90) = %v", got)
	}
}
