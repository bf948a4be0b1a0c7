package export

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/vvase/internal/genetic"
	"github.com/san-kum/vvase/internal/jobqueue"
	"github.com/san-kum/vvase/internal/kinematics"
	"github.com/san-kum/vvase/internal/storage"
	"github.com/san-kum/vvase/internal/sweep"
	"github.com/san-kum/vvase/internal/units"
	"github.com/san-kum/vvase/internal/vehicle"
)

func TestSegments(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name string
		y    []float64
		want []int
	}{
		{"all finite", []float64{1, 2, 3, 4}, []int{4}},
		{"gap", []float64{1, nan, 3, 4}, []int{1, 2}},
		{"leading and trailing", []float64{nan, 2, 3, nan}, []int{2}},
		{"all nan", []float64{nan, nan, nan, nan}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs := segments(Curve{X: []float64{0, 1, 2, 3}, Y: tt.y})
			if len(segs) != len(tt.want) {
				t.Fatalf("got %d segments, want %d", len(segs), len(tt.want))
			}
			for i, s := range segs {
				if len(s) != tt.want[i] {
					t.Errorf("segment %d has %d points, want %d", i, len(s), tt.want[i])
				}
			}
		})
	}
}

func runSweep(t *testing.T, def *sweep.Definition) *sweep.Cube {
	t.Helper()
	q := jobqueue.New(nil, nil)
	q.Start(context.Background(), 2)
	t.Cleanup(func() { q.Stop() })
	cube, err := sweep.NewDriver(q, nil, nil).Run(context.Background(), *def, []*vehicle.Car{vehicle.NewFormulaCar()})
	if err != nil {
		t.Fatal(err)
	}
	return cube
}

func TestSweepFigure(t *testing.T) {
	g := NewWithT(t)
	def := &sweep.Definition{
		Name:      "roll",
		Primary:   sweep.Axis{Variable: sweep.Roll, Start: -0.02, End: 0.02, Points: 5},
		Secondary: &sweep.Axis{Variable: sweep.Heave, Start: -0.5, End: 0.5, Points: 2},
	}
	cube := runSweep(t, def)
	camber := sweep.OutputMetric(kinematics.CornerDoubleID(vehicle.RightFront, kinematics.Camber))

	fig := SweepFigure(def, cube, camber, units.NewDisplay())
	g.Expect(fig.Curves).To(HaveLen(2))
	g.Expect(fig.XLabel).To(Equal("Roll [deg]"))
	for _, c := range fig.Curves {
		g.Expect(c.X).To(HaveLen(5))
		g.Expect(c.X[0]).To(BeNumerically("~", -0.02*180/math.Pi, 1e-9))
	}
	// curve 1 holds the second heave value
	g.Expect(fig.Curves[1].Y[2]).To(BeNumerically("~", cube.At(0, 5, camber)*180/math.Pi, 1e-9))

	dir := t.TempDir()
	for _, name := range []string{"camber.png", "camber.svg"} {
		path := filepath.Join(dir, name)
		g.Expect(fig.Save(path, DefaultWidth, DefaultHeight)).To(Succeed())
		info, err := os.Stat(path)
		g.Expect(err).NotTo(HaveOccurred())
		g.Expect(info.Size()).To(BeNumerically(">", 0))
	}

	var buf bytes.Buffer
	g.Expect(fig.WriteTo(&buf, "svg", DefaultWidth, DefaultHeight)).To(Succeed())
	g.Expect(buf.String()).To(ContainSubstring("<svg"))
}

func TestFigureErrors(t *testing.T) {
	g := NewWithT(t)
	empty := Figure{Title: "empty", Curves: []Curve{{Name: "nan", X: []float64{0}, Y: []float64{math.NaN()}}}}
	g.Expect(empty.WriteTo(&bytes.Buffer{}, "png", DefaultWidth, DefaultHeight)).NotTo(Succeed())

	ragged := Figure{Curves: []Curve{{X: []float64{0, 1}, Y: []float64{0}}}}
	g.Expect(ragged.WriteTo(&bytes.Buffer{}, "png", DefaultWidth, DefaultHeight)).NotTo(Succeed())

	ok := Figure{Curves: []Curve{{X: []float64{0, 1}, Y: []float64{0, 1}}}}
	g.Expect(ok.WriteTo(&bytes.Buffer{}, "bmp-ish", DefaultWidth, DefaultHeight)).NotTo(Succeed())
}

func TestConvergenceFigure(t *testing.T) {
	g := NewWithT(t)
	res := &genetic.Result{Generations: []genetic.Generation{
		{Index: 0, Best: genetic.Citizen{Fitness: genetic.FailedFitness}, Mean: math.NaN()},
		{Index: 1, Best: genetic.Citizen{Fitness: 4}, Mean: 9},
		{Index: 2, Best: genetic.Citizen{Fitness: 1}, Mean: 3},
	}}
	fig := ConvergenceFigure("camber", res)
	g.Expect(fig.Curves).To(HaveLen(2))
	g.Expect(math.IsNaN(fig.Curves[0].Y[0])).To(BeTrue())
	g.Expect(fig.Curves[0].Y[2]).To(Equal(1.0))
	g.Expect(fig.WriteTo(&bytes.Buffer{}, "png", DefaultWidth, DefaultHeight)).To(Succeed())
}

func TestFormat(t *testing.T) {
	if got := Format("out/Camber.SVG"); got != "svg" {
		t.Errorf("Format = %q", got)
	}
}

func TestTableFigure(t *testing.T) {
	g := NewWithT(t)
	def := &sweep.Definition{
		Name:      "roll",
		Primary:   sweep.Axis{Variable: sweep.Roll, Start: -0.02, End: 0.02, Points: 4},
		Secondary: &sweep.Axis{Variable: sweep.Heave, Start: -0.5, End: 0.5, Points: 3},
	}
	cube := runSweep(t, def)
	camber := sweep.OutputMetric(kinematics.CornerDoubleID(vehicle.RightFront, kinematics.Camber))
	table := storage.CubeTable(cube, []sweep.Metric{sweep.MetricRoll, sweep.VariableMetric(sweep.Heave), camber})

	fig, err := TableFigure("roll", table, cube.Cars, "Roll", camber.String(), "Heave", units.NewDisplay())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(fig.Curves).To(HaveLen(3))
	g.Expect(fig.Curves[0].Name).To(HavePrefix("formula Heave="))
	g.Expect(fig.Curves[0].X).To(HaveLen(4))

	// the stored table matches the cube figure curve for curve
	want := SweepFigure(def, cube, camber, units.NewDisplay())
	for i := range want.Curves {
		g.Expect(fig.Curves[i].Y).To(Equal(want.Curves[i].Y))
	}

	flat, err := TableFigure("roll", table, nil, "Roll", camber.String(), "", units.NewDisplay())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(flat.Curves).To(HaveLen(1))
	g.Expect(flat.Curves[0].Name).To(Equal("car 0"))

	_, err = TableFigure("roll", table, nil, "Roll", "Wobble", "", units.NewDisplay())
	g.Expect(err).To(HaveOccurred())
}
