package genetic

import (
	"bytes"
	"context"
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"sort"
	"testing"

	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/san-kum/vvase/internal/analysis"
	"github.com/san-kum/vvase/internal/jobqueue"
	"github.com/san-kum/vvase/internal/kinematics"
	"github.com/san-kum/vvase/internal/vehicle"
)

func startQueue(t *testing.T) *jobqueue.Queue {
	t.Helper()
	q := jobqueue.New(zaptest.NewLogger(t).Sugar(), nil)
	q.Start(context.Background(), 4)
	t.Cleanup(func() { q.Stop() })
	return q
}

// camberProblem moves the right front lower ball joint height to hit a camber
// target in roll.
func camberProblem() *Problem {
	car := vehicle.NewFormulaCar()
	return &Problem{
		Name: "camber",
		Car:  car,
		Genes: []Gene{{
			Hardpoint: vehicle.LowerBallJoint,
			TiedTo:    NoTie,
			Location:  vehicle.RightFront,
			Axis:      2,
			Min:       4.5,
			Max:       5.5,
			NumValues: 11,
		}},
		Goals: []Goal{{
			Output:            kinematics.CornerDoubleID(vehicle.RightFront, kinematics.Camber),
			Desired:           -0.03,
			ExpectedDeviation: 0.01,
			Importance:        1,
			Before:            kinematics.Inputs{Roll: 0.05},
		}},
		Settings: Settings{
			PopulationSize:      20,
			Generations:         10,
			ElitePercentage:     0.1,
			MutationProbability: 0.2,
			Sort:                MergeSort,
			Seed:                7,
		},
	}
}

func TestSortAlgorithmsAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, n := range []int{0, 1, 2, 7, 64, 301} {
		items := make([]Ranked, n)
		for i := range items {
			// few distinct values so ties are common
			items[i] = Ranked{Index: i, Fitness: float64(rng.Intn(10))}
		}
		items = append(items, Ranked{Index: n, Fitness: FailedFitness})

		want := append([]Ranked(nil), items...)
		sort.SliceStable(want, func(i, j int) bool { return want[i].Fitness < want[j].Fitness })

		for alg := SortAlgorithm(0); alg < numSortAlgorithms; alg++ {
			t.Run(alg.String(), func(t *testing.T) {
				got := append([]Ranked(nil), items...)
				rng.Shuffle(len(got), func(i, j int) { got[i], got[j] = got[j], got[i] })
				Sort(alg, got)
				for i := range want {
					if got[i] != want[i] {
						t.Fatalf("n=%d: position %d is %+v, want %+v", n, i, got[i], want[i])
					}
				}
			})
		}
	}
}

func TestParseSortAlgorithm(t *testing.T) {
	g := NewWithT(t)
	for alg := SortAlgorithm(0); alg < numSortAlgorithms; alg++ {
		got, err := ParseSortAlgorithm(alg.String())
		g.Expect(err).NotTo(HaveOccurred())
		g.Expect(got).To(Equal(alg))
	}
	got, err := ParseSortAlgorithm("QuickSort")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(got).To(Equal(QuickSort))
	_, err = ParseSortAlgorithm("bogo")
	g.Expect(err).To(HaveOccurred())
}

func TestGeneValues(t *testing.T) {
	g := NewWithT(t)
	gene := Gene{Min: 4.5, Max: 5.5, NumValues: 11}
	g.Expect(gene.Value(0)).To(Equal(4.5))
	g.Expect(gene.Value(10)).To(BeNumerically("~", 5.5, 1e-12))
	g.Expect(gene.Value(5)).To(BeNumerically("~", 5.0, 1e-12))

	single := Gene{Min: 2, Max: 9, NumValues: 1}
	g.Expect(single.Value(0)).To(Equal(2.0))

	g.Expect(SpaceSize([]Gene{{NumValues: 11}, {NumValues: 3}}, 1000)).To(Equal(33))
	g.Expect(SpaceSize([]Gene{{NumValues: 100}, {NumValues: 100}}, 1000)).To(Equal(1001))
}

func TestGeneApplyMirrors(t *testing.T) {
	g := NewWithT(t)
	car := vehicle.NewFormulaCar()
	gene := Gene{
		Hardpoint: vehicle.UpperBallJoint,
		TiedTo:    vehicle.OutboardTieRod,
		Location:  vehicle.RightFront,
		Axis:      1,
		Min:       22,
		Max:       24,
		NumValues: 3,
	}
	gene.apply(car, 2)

	right := car.Corner(vehicle.RightFront)
	left := car.Corner(vehicle.LeftFront)
	g.Expect(right.Point(vehicle.UpperBallJoint).Y).To(Equal(24.0))
	g.Expect(right.Point(vehicle.OutboardTieRod).Y).To(Equal(24.0))
	g.Expect(left.Point(vehicle.UpperBallJoint).Y).To(Equal(-24.0))
	g.Expect(left.Point(vehicle.OutboardTieRod).Y).To(Equal(-24.0))
	g.Expect(car.Corner(vehicle.RightRear).Point(vehicle.UpperBallJoint).Y).NotTo(Equal(24.0))
}

func TestGeneApplyMovesWheelCenter(t *testing.T) {
	g := NewWithT(t)
	car := vehicle.NewFormulaCar()
	before := car.Corner(vehicle.RightRear).Point(vehicle.WheelCenter)
	gene := Gene{Hardpoint: vehicle.ContactPatch, TiedTo: NoTie, Location: vehicle.RightRear, Axis: 0, Min: before.X + 1, Max: before.X + 1, NumValues: 1}
	gene.apply(car, 0)
	g.Expect(car.Corner(vehicle.RightRear).Point(vehicle.WheelCenter).X).To(BeNumerically("~", before.X+1, 1e-9))
}

func TestValidate(t *testing.T) {
	good := camberProblem()
	if err := good.Validate(); err != nil {
		t.Fatalf("valid problem: %v", err)
	}

	tests := []struct {
		name   string
		modify func(p *Problem)
	}{
		{"no car", func(p *Problem) { p.Car = nil }},
		{"no genes", func(p *Problem) { p.Genes = nil }},
		{"no goals", func(p *Problem) { p.Goals = nil }},
		{"wheel center gene", func(p *Problem) { p.Genes[0].Hardpoint = vehicle.WheelCenter }},
		{"bad axis", func(p *Problem) { p.Genes[0].Axis = 3 }},
		{"no values", func(p *Problem) { p.Genes[0].NumValues = 0 }},
		{"nan range", func(p *Problem) { p.Genes[0].Max = math.NaN() }},
		{"bad tie", func(p *Problem) { p.Genes[0].TiedTo = vehicle.NumHardpoints }},
		{"zero deviation", func(p *Problem) { p.Goals[0].ExpectedDeviation = 0 }},
		{"negative importance", func(p *Problem) { p.Goals[0].Importance = -1 }},
		{"unknown output", func(p *Problem) { p.Goals[0].Output = kinematics.NumOutputs }},
		{"tiny population", func(p *Problem) { p.Settings.PopulationSize = 1 }},
		{"no generations", func(p *Problem) { p.Settings.Generations = 0 }},
		{"elite above one", func(p *Problem) { p.Settings.ElitePercentage = 1.5 }},
		{"crossover past genome", func(p *Problem) { p.Settings.CrossoverPoint = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := camberProblem()
			tt.modify(p)
			if err := p.Validate(); !errors.Is(err, analysis.ErrInvalidInputs) {
				t.Errorf("got %v, want %v", err, analysis.ErrInvalidInputs)
			}
		})
	}
}

func TestGoalCost(t *testing.T) {
	g := NewWithT(t)
	goal := Goal{Desired: -0.03, ExpectedDeviation: 0.01, Importance: 2}
	g.Expect(goal.Cost(-0.03)).To(BeZero())
	g.Expect(goal.Cost(-0.01)).To(BeNumerically("~", 8, 1e-9))
	g.Expect(goal.Cost(-0.05)).To(BeNumerically("~", goal.Cost(-0.01), 1e-9))
}

func TestDeltaGoal(t *testing.T) {
	g := NewWithT(t)
	car := vehicle.NewFormulaCar()
	goal := Goal{
		Output:            kinematics.CornerDoubleID(vehicle.RightFront, kinematics.Camber),
		ExpectedDeviation: 0.01,
		Importance:        1,
		Before:            kinematics.Inputs{},
		After:             kinematics.Inputs{Heave: -1},
		Delta:             true,
	}
	g.Expect(goal.inputs()).To(HaveLen(2))

	outs := map[kinematics.Inputs]*kinematics.Outputs{}
	for _, in := range goal.inputs() {
		_, out, err := kinematics.Analyze(car, in)
		g.Expect(err).NotTo(HaveOccurred())
		outs[in] = out
	}
	want := outs[goal.After].Value(goal.Output) - outs[goal.Before].Value(goal.Output)
	g.Expect(goal.value(outs)).To(Equal(want))
}

func TestGeneticMatchesExhaustive(t *testing.T) {
	g := NewWithT(t)
	o := NewOptimizer(startQueue(t), nil, zaptest.NewLogger(t).Sugar())

	var generations []Generation
	o.Progress = func(gen Generation) { generations = append(generations, gen) }

	p := camberProblem()
	best, err := o.Exhaustive(context.Background(), p, 0)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(best.Evaluations).To(Equal(11))

	res, err := o.Run(context.Background(), p)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(res.Generations).To(HaveLen(p.Settings.Generations))
	g.Expect(generations).To(HaveLen(p.Settings.Generations))
	g.Expect(res.Best.Genome).To(HaveLen(1))

	diff := res.Best.Genome[0] - best.Best.Genome[0]
	g.Expect(diff).To(BeNumerically(">=", -1))
	g.Expect(diff).To(BeNumerically("<=", 1))
	g.Expect(res.Values[0]).To(Equal(p.Genes[0].Value(res.Best.Genome[0])))

	// the cache means no genome is scored twice
	g.Expect(res.Evaluations).To(BeNumerically("<=", 11))

	// the best car carries the chosen geometry on both sides
	g.Expect(res.Car.Corner(vehicle.RightFront).Point(vehicle.LowerBallJoint).Z).To(Equal(res.Values[0]))
	g.Expect(res.Car.Corner(vehicle.LeftFront).Point(vehicle.LowerBallJoint).Z).To(Equal(res.Values[0]))

	for i := 1; i < len(res.Generations); i++ {
		// elitism keeps the best citizen
		g.Expect(res.Generations[i].Best.Fitness).To(BeNumerically("<=", res.Generations[i-1].Best.Fitness))
	}
	g.Expect(p.Car.Corner(vehicle.RightFront).Point(vehicle.LowerBallJoint).Z).To(Equal(5.0))
}

func TestSameSeedSameResult(t *testing.T) {
	g := NewWithT(t)
	q := startQueue(t)
	a, err := NewOptimizer(q, nil, nil).Run(context.Background(), camberProblem())
	g.Expect(err).NotTo(HaveOccurred())
	b, err := NewOptimizer(q, nil, nil).Run(context.Background(), camberProblem())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(b.Best).To(Equal(a.Best))
}

func TestFailedCitizens(t *testing.T) {
	g := NewWithT(t)
	p := camberProblem()
	// no geometry reaches this much heave
	p.Genes[0].NumValues = 3
	p.Goals[0].Before = kinematics.Inputs{Heave: 30}

	res, err := NewOptimizer(startQueue(t), nil, nil).Exhaustive(context.Background(), p, 0)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(res.Best.Fitness).To(Equal(FailedFitness))
	g.Expect(res.Generations[0].Failed).To(Equal(3))
	g.Expect(math.IsNaN(res.Generations[0].Mean)).To(BeTrue())
}

func TestExhaustiveLimit(t *testing.T) {
	p := camberProblem()
	p.Genes = append(p.Genes, Gene{Hardpoint: vehicle.UpperBallJoint, TiedTo: NoTie, Axis: 2, Min: 14, Max: 16, NumValues: 100})
	_, err := NewOptimizer(startQueue(t), nil, nil).Exhaustive(context.Background(), p, 500)
	if !errors.Is(err, analysis.ErrInvalidInputs) {
		t.Fatalf("got %v, want %v", err, analysis.ErrInvalidInputs)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// no workers, so nothing finishes before the context is seen
	q := jobqueue.New(nil, nil)
	_, err := NewOptimizer(q, nil, nil).Run(ctx, camberProblem())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if q.Pending() != 0 {
		t.Fatalf("%d citizens left queued", q.Pending())
	}
}

func TestProblemFileRoundTrip(t *testing.T) {
	g := NewWithT(t)
	p := camberProblem()
	p.CarPath = "formula.car"
	p.Settings.Sort = QuickSort
	p.Settings.CrossoverPoint = 1
	p.Genes = append(p.Genes, Gene{Hardpoint: vehicle.InboardTieRod, TiedTo: vehicle.OutboardTieRod, Location: vehicle.LeftRear, Axis: 0, Min: -1, Max: 1, NumValues: 5})
	p.Goals = append(p.Goals, Goal{
		Output:            kinematics.CarDoubleID(kinematics.FrontNetSteer),
		Desired:           100,
		ExpectedDeviation: 5,
		Importance:        0.5,
		Before:            kinematics.Inputs{Pitch: 0.01, Order: kinematics.OrderYXZ},
		After:             kinematics.Inputs{Roll: 0.02, Steering: kinematics.SteeringWheelAngle},
		Delta:             true,
	})

	var buf bytes.Buffer
	n, err := p.WriteTo(&buf)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(n).To(Equal(int64(buf.Len())))

	got, err := ReadProblem(&buf)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(got.Name).To(Equal(p.Name))
	g.Expect(got.CarPath).To(Equal(p.CarPath))
	g.Expect(got.Settings).To(Equal(p.Settings))
	g.Expect(got.Genes).To(Equal(p.Genes))
	g.Expect(got.Goals).To(Equal(p.Goals))
	g.Expect(got.Car).To(BeNil())
}

func TestProblemFileOnDisk(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	p := camberProblem()
	g.Expect(vehicle.SaveCarFile(filepath.Join(dir, "formula.car"), p.Car)).To(Succeed())
	p.CarPath = "formula.car"

	path := filepath.Join(dir, "camber.opt")
	g.Expect(SaveFile(path, p)).To(Succeed())
	got, err := LoadFile(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(got.Car).NotTo(BeNil())
	g.Expect(got.Car.Corner(vehicle.RightFront).Hardpoints).To(Equal(p.Car.Corner(vehicle.RightFront).Hardpoints))

	_, err = LoadFile(filepath.Join(dir, "missing.opt"))
	g.Expect(err).To(HaveOccurred())
}

func TestReadProblemErrors(t *testing.T) {
	var buf bytes.Buffer
	if _, err := camberProblem().WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	full := buf.Bytes()

	badMagic := append([]byte("VCAR"), full[4:]...)
	future := append([]byte(nil), full...)
	future[4] = byte(FileVersion + 1)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", badMagic},
		{"future version", future},
		{"truncated", full[:len(full)-5]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadProblem(bytes.NewReader(tt.data))
			if !errors.Is(err, analysis.ErrFileFormat) {
				t.Errorf("got %v, want %v", err, analysis.ErrFileFormat)
			}
		})
	}
}

func BenchmarkFitness(b *testing.B) {
	p := camberProblem()
	e := newEvaluator(p, vehicle.NewCarPool(), zap.NewNop().Sugar())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.cache = map[string]float64{}
		e.fitness(Genome{i % 11})
	}
}
