package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/san-kum/vvase/internal/config"
	"github.com/san-kum/vvase/internal/units"
	"github.com/san-kum/vvase/internal/vehicle"
)

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// readCar resolves a preset name or reads a YAML or binary car file.
func readCar(name string) (*vehicle.Car, error) {
	if car := config.GetCar(name); car != nil {
		return car, nil
	}
	var (
		car *vehicle.Car
		err error
	)
	if isYAML(name) {
		car, err = config.LoadCar(name)
	} else {
		car, err = vehicle.LoadCarFile(name)
	}
	if err != nil {
		return nil, err
	}
	if car.Name == "" {
		car.Name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}
	return car, nil
}

func writeCar(path string, car *vehicle.Car) error {
	if isYAML(path) {
		return config.SaveCar(path, car)
	}
	return vehicle.SaveCarFile(path, car)
}

func carArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	if len(carArgs) > 0 {
		return carArgs[0]
	}
	return "formula"
}

func newCar(cmd *cobra.Command, args []string) error {
	car := config.GetCar(fromCar)
	if car == nil {
		return fmt.Errorf("unknown car preset %q (have %s)", fromCar, strings.Join(config.ListCars(), ", "))
	}
	car.Name = args[0]
	path := carOut
	if path == "" {
		path = args[0] + ".yaml"
	}
	if err := writeCar(path, car); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func convertCar(cmd *cobra.Command, args []string) error {
	car, err := readCar(args[0])
	if err != nil {
		return err
	}
	if err := writeCar(args[1], car); err != nil {
		return err
	}
	fmt.Printf("%s -> %s\n", args[0], args[1])
	return nil
}

func showCar(cmd *cobra.Command, args []string) error {
	car, err := readCar(carArg(args))
	if err != nil {
		return err
	}
	car.ComputeWheelCenters()
	fmt.Printf("%s  wheelbase %s  weight %s  cg height %s\n\n", car.Name,
		display.Format(car.Wheelbase(), units.Distance),
		display.Format(car.MassProperties.Weight(), units.Force),
		display.Format(car.CGHeight(), units.Distance))

	t := table.NewWriter()
	t.SetTitle("Hardpoints [in]")
	header := table.Row{"Hardpoint"}
	for loc := vehicle.Location(0); loc < vehicle.NumLocations; loc++ {
		header = append(header, loc.String())
	}
	t.AppendHeader(header)
	for h := vehicle.Hardpoint(0); h < vehicle.NumHardpoints; h++ {
		row := table.Row{h.String()}
		for loc := vehicle.Location(0); loc < vehicle.NumLocations; loc++ {
			v := car.Suspension.Corners[loc].Point(h)
			row = append(row, fmt.Sprintf("%8.3f %8.3f %8.3f", v.X, v.Y, v.Z))
		}
		t.AppendRow(row)
	}
	fmt.Println(t.Render())

	c := table.NewWriter()
	c.AppendHeader(table.Row{"Corner", "Camber [deg]", "Toe [deg]", "Spring [lbf/in]", "Damper [lbf-s/in]", "Tire rate [lbf/in]", "Tire dia [in]", "Unsprung [slug]"})
	for loc := vehicle.Location(0); loc < vehicle.NumLocations; loc++ {
		corner := car.Suspension.Corners[loc]
		tire := car.Tires.Tire(loc)
		c.AppendRow(table.Row{loc.String(),
			formatValue(corner.StaticCamber, units.Angle), formatValue(corner.StaticToe, units.Angle),
			corner.SpringRate, corner.DamperRate, tire.Stiffness, tire.Diameter,
			car.MassProperties.UnsprungMass[loc]})
	}
	fmt.Println(c.Render())

	a := table.NewWriter()
	a.AppendHeader(table.Row{"Axle", "Bar", "Bar rate [in-lbf/rad]", "Third spring [lbf/in]"})
	for _, front := range []bool{true, false} {
		axle, name := car.Suspension.Axle(front), "Rear"
		if front {
			name = "Front"
		}
		third := "-"
		if axle.HasThirdSpring {
			third = fmt.Sprintf("%g", axle.ThirdSpringRate)
		}
		a.AppendRow(table.Row{name, axle.BarStyle, axle.BarRate, third})
	}
	fmt.Println(a.Render())
	return nil
}

func principalInertias(cmd *cobra.Command, args []string) error {
	car, err := readCar(carArg(args))
	if err != nil {
		return err
	}
	moments, axes, err := car.MassProperties.PrincipalInertias()
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.SetTitle(car.Name + " principal inertias")
	t.AppendHeader(table.Row{"Moment [slug-in^2]", "X", "Y", "Z"})
	for i := range moments {
		t.AppendRow(table.Row{fmt.Sprintf("%.4f", moments[i]),
			fmt.Sprintf("%.4f", axes[i].X), fmt.Sprintf("%.4f", axes[i].Y), fmt.Sprintf("%.4f", axes[i].Z)})
	}
	fmt.Println(t.Render())
	return nil
}
