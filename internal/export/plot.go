// Package export renders sweep and optimization results as PNG or SVG
// charts.
package export

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/vvase/internal/genetic"
	"github.com/san-kum/vvase/internal/sweep"
	"github.com/san-kum/vvase/internal/units"
)

const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 5 * vg.Inch
)

// Curve is one named line. NaN values break the line.
type Curve struct {
	Name string
	X, Y []float64
}

type Figure struct {
	Title  string
	XLabel string
	YLabel string
	Curves []Curve
}

// segments splits a curve at NaN points.
func segments(c Curve) []plotter.XYs {
	var out []plotter.XYs
	var cur plotter.XYs
	for i := range c.X {
		x, y := c.X[i], c.Y[i]
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: x, Y: y})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func (f Figure) plot() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = f.Title
	p.X.Label.Text = f.XLabel
	p.Y.Label.Text = f.YLabel
	p.Add(plotter.NewGrid())

	drawn := 0
	for i, c := range f.Curves {
		if len(c.X) != len(c.Y) {
			return nil, fmt.Errorf("curve %q has %d x and %d y values", c.Name, len(c.X), len(c.Y))
		}
		color := plotutil.Color(i)
		for k, seg := range segments(c) {
			var thumb plot.Thumbnailer
			if len(seg) == 1 {
				s, err := plotter.NewScatter(seg)
				if err != nil {
					return nil, errors.Wrapf(err, "curve %q", c.Name)
				}
				s.Color = color
				p.Add(s)
				thumb = s
			} else {
				l, err := plotter.NewLine(seg)
				if err != nil {
					return nil, errors.Wrapf(err, "curve %q", c.Name)
				}
				l.Color = color
				l.Width = vg.Points(1.5)
				p.Add(l)
				thumb = l
			}
			if k == 0 && c.Name != "" {
				p.Legend.Add(c.Name, thumb)
			}
			drawn++
		}
	}
	if drawn == 0 {
		return nil, fmt.Errorf("figure %q has no finite points", f.Title)
	}
	p.Legend.Top = true
	return p, nil
}

// Save writes the figure; the format follows the file extension (png, svg,
// pdf, eps, jpg, tif).
func (f Figure) Save(path string, width, height vg.Length) error {
	p, err := f.plot()
	if err != nil {
		return err
	}
	return errors.Wrapf(p.Save(width, height, path), "save %s", path)
}

// WriteTo renders the figure in the given format to w.
func (f Figure) WriteTo(w io.Writer, format string, width, height vg.Length) error {
	p, err := f.plot()
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(width, height, strings.ToLower(format))
	if err != nil {
		return errors.Wrapf(err, "render %s", format)
	}
	_, err = wt.WriteTo(w)
	return errors.Wrap(err, "write figure")
}

// Format returns the image format implied by a file name.
func Format(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// SweepFigure plots y against the primary sweep variable. Two-axis sweeps
// get one curve per car and secondary value. Values go through the
// formatter's unit conversion.
func SweepFigure(def *sweep.Definition, cube *sweep.Cube, y sweep.Metric, f units.Display) Figure {
	x := sweep.VariableMetric(def.Primary.Variable)
	fig := Figure{
		Title:  def.Name,
		XLabel: units.Heading(f, x.String(), x.Unit()),
		YLabel: units.Heading(f, y.String(), y.Unit()),
	}

	inner := 1
	if def.Secondary != nil {
		inner = def.Secondary.Points
	}
	for car, name := range cube.Cars {
		for j := 0; j < inner; j++ {
			c := Curve{Name: name}
			if def.Secondary != nil {
				v := def.Secondary.Variable
				c.Name = fmt.Sprintf("%s %s=%s", name, v, f.Format(def.Secondary.Value(j), v.Unit()))
			}
			for i := 0; i < def.Primary.Points; i++ {
				p := i*inner + j
				c.X = append(c.X, f.Convert(cube.At(car, p, x), x.Unit()))
				c.Y = append(c.Y, f.Convert(cube.At(car, p, y), y.Unit()))
			}
			fig.Curves = append(fig.Curves, c)
		}
	}
	return fig
}

// ConvergenceFigure plots best and mean fitness per generation.
func ConvergenceFigure(name string, res *genetic.Result) Figure {
	best := Curve{Name: "best"}
	mean := Curve{Name: "mean"}
	for _, g := range res.Generations {
		best.X = append(best.X, float64(g.Index))
		mean.X = append(mean.X, float64(g.Index))
		b := g.Best.Fitness
		if b == genetic.FailedFitness {
			b = math.NaN()
		}
		best.Y = append(best.Y, b)
		mean.Y = append(mean.Y, g.Mean)
	}
	return Figure{
		Title:  name,
		XLabel: "Generation",
		YLabel: "Fitness",
		Curves: []Curve{best, mean},
	}
}
