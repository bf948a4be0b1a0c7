package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/vvase/internal/storage"
	"github.com/san-kum/vvase/internal/units"
)

// TableFigure plots column y against column x of a stored run table. Rows
// are split into one curve per value of the Car column, if present, and per
// value of the by column, if given. cars names the car indices.
func TableFigure(title string, t *storage.Table, cars []string, x, y, by string, f units.Display) (Figure, error) {
	index := func(name string) (int, units.UnitType, error) {
		for i, c := range t.Columns {
			if c == name {
				u, _ := units.ParseUnitType(t.Units[i])
				return i, u, nil
			}
		}
		return -1, units.Unitless, fmt.Errorf("run has no column %q", name)
	}
	ix, ux, err := index(x)
	if err != nil {
		return Figure{}, err
	}
	iy, uy, err := index(y)
	if err != nil {
		return Figure{}, err
	}
	ic, _, _ := index("Car")
	ib, ub := -1, units.Unitless
	if by != "" {
		if ib, ub, err = index(by); err != nil {
			return Figure{}, err
		}
	}

	fig := Figure{
		Title:  title,
		XLabel: units.Heading(f, x, ux),
		YLabel: units.Heading(f, y, uy),
	}
	type key struct {
		car   int
		group float64
	}
	curves := map[key]int{}
	for _, row := range t.Rows {
		var k key
		if ic >= 0 {
			k.car = int(row[ic])
		}
		if ib >= 0 {
			k.group = row[ib]
		}
		n, ok := curves[k]
		if !ok {
			name := ""
			if ic >= 0 {
				name = fmt.Sprintf("car %d", k.car)
				if k.car >= 0 && k.car < len(cars) {
					name = cars[k.car]
				}
			}
			if ib >= 0 {
				name += fmt.Sprintf(" %s=%s", by, f.Format(k.group, ub))
			}
			n = len(fig.Curves)
			curves[k] = n
			fig.Curves = append(fig.Curves, Curve{Name: strings.TrimSpace(name)})
		}
		c := &fig.Curves[n]
		c.X = append(c.X, f.Convert(row[ix], ux))
		c.Y = append(c.Y, f.Convert(row[iy], uy))
	}
	if len(fig.Curves) == 0 {
		return Figure{}, fmt.Errorf("run has no rows")
	}
	return fig, nil
}
