package experiment

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"
	"go.uber.org/atomic"
	"go.uber.org/zap/zaptest"

	"github.com/san-kum/vvase/internal/analysis"
	"github.com/san-kum/vvase/internal/config"
	"github.com/san-kum/vvase/internal/kinematics"
	"github.com/san-kum/vvase/internal/storage"
	"github.com/san-kum/vvase/internal/vehicle"
)

func newSession(t *testing.T) *Session {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Workers = 2
	s := NewSession(context.Background(), cfg, zaptest.NewLogger(t).Sugar())
	t.Cleanup(func() { s.Close() })
	if err := s.AddCar(vehicle.NewFormulaCar()); err != nil {
		t.Fatal(err)
	}
	return s
}

func build(t *testing.T, s *Session, kind string, spec Spec) Analysis {
	t.Helper()
	env, err := s.Env()
	if err != nil {
		t.Fatal(err)
	}
	a, err := NewRegistry().Build(kind, spec, env)
	if err != nil {
		t.Fatalf("build %s: %v", kind, err)
	}
	return a
}

func TestSessionCars(t *testing.T) {
	g := NewWithT(t)
	s := newSession(t)

	first, err := s.Car("")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(first.Name).To(Equal(vehicle.NewFormulaCar().Name))

	_, err = s.Car("missing")
	g.Expect(err).To(HaveOccurred())
	g.Expect(s.AddCar(&vehicle.Car{})).NotTo(Succeed())

	dir := t.TempDir()
	sedan := vehicle.NewSedanCar()
	yamlPath := filepath.Join(dir, "sedan.yaml")
	g.Expect(config.SaveCar(yamlPath, sedan)).To(Succeed())
	loaded, err := s.LoadCar(yamlPath)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(loaded.Name).To(Equal(sedan.Name))

	binPath := filepath.Join(dir, "square.car")
	g.Expect(vehicle.SaveCarFile(binPath, config.GetCar("scenario"))).To(Succeed())
	square, err := s.LoadCar(binPath)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(square.Name).To(Equal("square"))

	g.Expect(s.CarNames()).To(HaveLen(3))
	cars, err := s.Cars()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cars).To(HaveLen(3))
	_, err = s.Cars("square", "nope")
	g.Expect(err).To(HaveOccurred())
}

func TestKinematicsAnalysis(t *testing.T) {
	g := NewWithT(t)
	s := newSession(t)
	a := build(t, s, KindKinematics, Spec{Name: "bump", AttitudeSpec: AttitudeSpec{Heave: -0.5}})
	g.Expect(a.Kind()).To(Equal(KindKinematics))

	res, err := a.Run(context.Background(), s)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(res.Kinematics).NotTo(BeNil())
	g.Expect(res.Params["heave"]).To(Equal("-0.5"))
	g.Expect(res.Table.Rows).To(HaveLen(1))

	car, _ := s.Car("")
	_, want, err := kinematics.Analyze(car, a.(*KinematicsAnalysis).Inputs)
	g.Expect(err).NotTo(HaveOccurred())
	camber := kinematics.CornerDoubleID(vehicle.RightFront, kinematics.Camber)
	g.Expect(res.Kinematics.Value(camber)).To(BeNumerically("~", want.Value(camber), 1e-12))
}

func TestQuasistaticAnalysis(t *testing.T) {
	g := NewWithT(t)
	s := newSession(t)
	car, _ := s.Car("")
	s.Config.Kinematics.CenterOfRotation = [3]float64{
		car.MassProperties.CenterOfGravity.X,
		car.MassProperties.CenterOfGravity.Y,
		car.MassProperties.CenterOfGravity.Z,
	}

	res, err := build(t, s, KindQuasistatic, Spec{Name: "corner", Gy: 0.8}).Run(context.Background(), s)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(res.Summary["total_load"]).To(BeNumerically("~", car.MassProperties.Weight(), 1e-3))
	g.Expect(res.Summary["roll"]).To(BeNumerically("<", 0))
	g.Expect(res.Table.Rows).To(HaveLen(int(vehicle.NumLocations)))
}

func TestSweepAnalysis(t *testing.T) {
	g := NewWithT(t)
	s := newSession(t)
	g.Expect(s.AddCar(vehicle.NewSedanCar())).To(Succeed())

	var calls, wrongTotal atomic.Int64
	s.Progress = func(name string, done, total int) {
		calls.Inc()
		if total != 2*5*3 {
			wrongTotal.Inc()
		}
	}
	spec := Spec{
		Name:      "roll-heave",
		Primary:   &AxisSpec{Variable: "roll", Start: -0.03, End: 0.03, Points: 5},
		Secondary: &AxisSpec{Variable: "heave", Start: -1, End: 1, Points: 3},
		Metrics:   []string{"Roll", "Heave", "RightFront Camber"},
	}
	res, err := build(t, s, KindSweep, spec).Run(context.Background(), s)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(res.Cube.Cars).To(HaveLen(2))
	g.Expect(res.Cube.NumPoints()).To(Equal(15))
	g.Expect(res.Table.Columns).To(Equal([]string{"Car", "Roll", "Heave", "RightFront Camber"}))
	g.Expect(res.Table.Rows).To(HaveLen(30))
	g.Expect(res.Summary["points"]).To(Equal(15.0))
	g.Expect(calls.Load()).To(Equal(int64(30)))
	g.Expect(wrongTotal.Load()).To(BeZero())

	st := storage.New(t.TempDir())
	id, err := st.Save(res.Run())
	g.Expect(err).NotTo(HaveOccurred())
	meta, err := st.Load(id)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(meta.Cars).To(Equal(res.Cube.Cars))
	g.Expect(meta.Params).To(HaveKey("secondary"))
}

func optimizeSpec() Spec {
	return Spec{
		Name: "camber",
		Genes: []GeneSpec{{
			Location: "RF", Hardpoint: "LowerBallJoint", Axis: "z",
			Min: 4.5, Max: 5.5, Values: 11,
		}},
		Goals: []GoalSpec{{
			Output: "RightFront Camber", Desired: -0.03, Deviation: 0.01,
			Before: AttitudeSpec{Roll: 0.05},
		}},
		Population:  12,
		Generations: 4,
		Seed:        3,
	}
}

func TestOptimizeAnalysis(t *testing.T) {
	g := NewWithT(t)
	s := newSession(t)

	res, err := build(t, s, KindOptimize, optimizeSpec()).Run(context.Background(), s)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(res.Optimization.Generations).To(HaveLen(4))
	g.Expect(res.Table.Rows).To(HaveLen(4))
	g.Expect(res.Params["method"]).To(Equal("genetic"))
	g.Expect(res.Summary["evaluations"]).To(BeNumerically("<=", 11))

	spec := optimizeSpec()
	spec.Exhaustive = true
	exact, err := build(t, s, KindOptimize, spec).Run(context.Background(), s)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(exact.Params["method"]).To(Equal("exhaustive"))
	g.Expect(exact.Summary["evaluations"]).To(Equal(11.0))
	g.Expect(res.Summary["fitness"]).To(BeNumerically(">=", exact.Summary["fitness"]))
	g.Expect(math.IsInf(exact.Summary["fitness"], 0)).To(BeFalse())
}

func TestRegistryBuildErrors(t *testing.T) {
	s := newSession(t)
	env, err := s.Env()
	if err != nil {
		t.Fatal(err)
	}
	badGoal := optimizeSpec()
	badGoal.Goals[0].Output = "RightFront Wobble"
	badGene := optimizeSpec()
	badGene.Genes[0].Axis = "w"
	noGoals := optimizeSpec()
	noGoals.Goals = nil

	tests := []struct {
		name string
		kind string
		spec Spec
	}{
		{"unknown kind", "dynamics", Spec{}},
		{"non-finite attitude", KindKinematics, Spec{AttitudeSpec: AttitudeSpec{Roll: math.NaN()}}},
		{"sweep without axis", KindSweep, Spec{}},
		{"unknown variable", KindSweep, Spec{Primary: &AxisSpec{Variable: "yaw", End: 1}}},
		{"unknown metric", KindSweep, Spec{Primary: &AxisSpec{Variable: "roll", End: 0.1}, Metrics: []string{"Wobble"}}},
		{"unknown output", KindOptimize, badGoal},
		{"unknown axis", KindOptimize, badGene},
		{"no goals", KindOptimize, noGoals},
	}
	r := NewRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Build(tt.kind, tt.spec, env)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.kind != "dynamics" && !errors.Is(err, analysis.ErrInvalidInputs) {
				t.Errorf("error %v does not wrap ErrInvalidInputs", err)
			}
		})
	}
	if got := r.List(); len(got) != 4 || got[0] != KindKinematics {
		t.Errorf("List() = %v", got)
	}
}

func TestRunCancelled(t *testing.T) {
	s := newSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := build(t, s, KindKinematics, Spec{}).Run(ctx, s)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
