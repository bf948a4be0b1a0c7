package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/vvase/internal/analysis"
	"github.com/san-kum/vvase/internal/automation"
	"github.com/san-kum/vvase/internal/config"
	"github.com/san-kum/vvase/internal/experiment"
	"github.com/san-kum/vvase/internal/genetic"
	"github.com/san-kum/vvase/internal/kinematics"
	"github.com/san-kum/vvase/internal/quasistatic"
	"github.com/san-kum/vvase/internal/sweep"
	"github.com/san-kum/vvase/internal/tui"
	"github.com/san-kum/vvase/internal/units"
	"github.com/san-kum/vvase/internal/vehicle"
)

var display = units.NewDisplay()

func runKinematics(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()
	a, err := setup(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.close()
	env, err := a.env()
	if err != nil {
		return err
	}

	registry := experiment.NewRegistry()
	for _, name := range a.session.CarNames() {
		an, err := registry.Build(experiment.KindKinematics, experiment.Spec{Name: "kinematics", Car: name, AttitudeSpec: attitude()}, env)
		if err != nil {
			return err
		}
		res, err := an.Run(ctx, a.session)
		if err != nil {
			return err
		}
		fmt.Printf("%s  pitch=%s roll=%s heave=%s\n\n", name,
			display.Format(pitch, units.Angle), display.Format(roll, units.Angle), display.Format(heave, units.Distance))
		printOutputs(res.Kinematics, showAll)
	}
	return nil
}

func runQuasistatic(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()
	a, err := setup(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.close()
	env, err := a.env()
	if err != nil {
		return err
	}

	spec := experiment.Spec{Name: "quasistatic", AttitudeSpec: attitude(), Gx: gx, Gy: gy, Speed: speed}
	registry := experiment.NewRegistry()
	for _, name := range a.session.CarNames() {
		spec.Car = name
		an, err := registry.Build(experiment.KindQuasistatic, spec, env)
		if err != nil {
			return err
		}
		res, err := an.Run(ctx, a.session)
		if res == nil {
			return err
		}
		printQuasistatic(name, res.Quasistatic)
		if err != nil {
			if errors.Is(err, analysis.ErrDidNotConverge) {
				fmt.Println("warning: no equilibrium within the iteration limit, last state shown")
				continue
			}
			return err
		}
		if err := res.Quasistatic.LiftOff(); err != nil {
			fmt.Printf("warning: %v\n", err)
		}
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()
	a, err := setup(ctx, cmd, sweepFile == "" || len(carArgs) > 0)
	if err != nil {
		return err
	}
	defer a.close()
	env, err := a.env()
	if err != nil {
		return err
	}

	var an experiment.Analysis
	if sweepFile != "" {
		def, err := sweep.LoadFile(sweepFile)
		if err != nil {
			return err
		}
		if len(carArgs) == 0 {
			if len(def.CarPaths) == 0 {
				return fmt.Errorf("%s names no cars, pass --car", sweepFile)
			}
			for _, path := range def.CarPaths {
				if !filepath.IsAbs(path) {
					path = filepath.Join(filepath.Dir(sweepFile), path)
				}
				if _, err := a.session.LoadCar(path); err != nil {
					return err
				}
			}
		}
		an = &experiment.SweepAnalysis{Definition: *def}
	} else {
		spec := experiment.Spec{Name: "sweep", AttitudeSpec: attitude(), Metrics: metricNames}
		if spec.Primary, err = parseAxis(primaryAxis); err != nil {
			return err
		}
		if spec.Secondary, err = parseAxis(secondaryAxis); err != nil {
			return err
		}
		if an, err = experiment.NewRegistry().Build(experiment.KindSweep, spec, env); err != nil {
			return err
		}
	}
	def := an.(*experiment.SweepAnalysis).Definition
	if saveDef != "" {
		for _, name := range carArgs {
			if config.GetCar(name) != nil {
				continue
			}
			path, err := filepath.Abs(name)
			if err != nil {
				return err
			}
			def.CarPaths = append(def.CarPaths, path)
		}
		if err := sweep.SaveFile(saveDef, &def); err != nil {
			return err
		}
	}
	metric, err := sweep.ParseMetric(plotMetric)
	if err != nil {
		return err
	}

	var res *experiment.Result
	err = a.track(ctx, "sweep "+def.Name, func(ctx context.Context, r tui.Reporter) error {
		var err error
		res, err = an.Run(ctx, a.session)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Printf("%d points x %d cars in %v\n\n", res.Cube.NumPoints(), len(res.Cube.Cars), res.Elapsed)
	printSweep(res, metric)
	return a.save(res)
}

// loadProblem reads an optimization file or a YAML analysis spec.
func loadProblem(cmd *cobra.Command, a *app, args []string) (*experiment.OptimizeAnalysis, error) {
	if problemFile != "" {
		p, err := genetic.LoadFile(problemFile)
		if err != nil {
			return nil, err
		}
		f := cmd.Flags()
		if f.Changed("population") {
			p.Settings.PopulationSize = population
		}
		if f.Changed("generations") {
			p.Settings.Generations = generations
		}
		if f.Changed("seed") {
			p.Settings.Seed = seed
		}
		if p.Name == "" {
			p.Name = strings.TrimSuffix(filepath.Base(problemFile), filepath.Ext(problemFile))
		}
		return &experiment.OptimizeAnalysis{Problem: *p, Exhaustive: exhaustive, Limit: a.cfg.Optimization.SearchLimit}, nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("need a problem file argument or --file")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, err
	}
	var spec experiment.Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", args[0], err, analysis.ErrFileFormat)
	}
	if spec.Name == "" {
		spec.Name = "optimize"
	}
	if exhaustive {
		spec.Exhaustive = true
	}
	env, err := a.env()
	if err != nil {
		return nil, err
	}
	an, err := experiment.NewRegistry().Build(experiment.KindOptimize, spec, env)
	if err != nil {
		return nil, err
	}
	oa := an.(*experiment.OptimizeAnalysis)
	if oa.Limit == 0 {
		oa.Limit = a.cfg.Optimization.SearchLimit
	}
	return oa, nil
}

func runOptimize(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()
	a, err := setup(ctx, cmd, problemFile == "")
	if err != nil {
		return err
	}
	defer a.close()

	oa, err := loadProblem(cmd, a, args)
	if err != nil {
		return err
	}
	var res *experiment.Result
	err = a.track(ctx, "optimize "+oa.Name(), func(ctx context.Context, r tui.Reporter) error {
		var err error
		res, err = oa.Run(ctx, a.session)
		return err
	})
	if err != nil {
		return err
	}
	printOptimization(oa, res)
	return a.save(res)
}

func runScenario(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	a, err := setup(ctx, cmd, len(carArgs) > 0)
	if err != nil {
		return err
	}
	defer a.close()

	runner := automation.NewRunner(a.session, a.store)
	if noSave {
		runner.Store = nil
	} else if err := a.store.Init(); err != nil {
		return err
	}
	var results []automation.StepResult
	err = a.track(ctx, "scenario "+sc.Name, func(ctx context.Context, r tui.Reporter) error {
		runner.OnStep = func(step, total int, st automation.ScenarioStep) {
			r.Step(step, total, st.Kind+" "+st.Name)
		}
		var err error
		results, err = runner.Run(ctx, sc)
		return err
	})

	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Kind", "Name", "Cars", "Elapsed", "Run", "Plot"})
	for _, sr := range results {
		t.AppendRow(table.Row{sr.Step, sr.Result.Kind, sr.Result.Name, len(sr.Result.Cars), sr.Result.Elapsed, sr.RunID, sr.Plot})
	}
	fmt.Println(t.Render())
	return err
}

func printOutputs(out *kinematics.Outputs, all bool) {
	t := table.NewWriter()
	header := table.Row{"Output"}
	for loc := vehicle.Location(0); loc < vehicle.NumLocations; loc++ {
		header = append(header, loc.String())
	}
	t.AppendHeader(header)
	for d := kinematics.CornerDouble(0); d < kinematics.NumCornerDoubles; d++ {
		id := kinematics.CornerDoubleID(vehicle.RightFront, d)
		row := table.Row{units.Heading(display, d.String(), id.Unit())}
		for loc := vehicle.Location(0); loc < vehicle.NumLocations; loc++ {
			row = append(row, formatValue(out.Corner(loc, d), id.Unit()))
		}
		t.AppendRow(row)
	}
	fmt.Println(t.Render())

	car := table.NewWriter()
	car.AppendHeader(table.Row{"Output", "Value"})
	for d := kinematics.CarDouble(0); d < kinematics.NumCarDoubles; d++ {
		id := kinematics.CarDoubleID(d)
		car.AppendRow(table.Row{units.Heading(display, d.String(), id.Unit()), formatValue(out.Value(id), id.Unit())})
	}
	if all {
		for id := kinematics.OutputID(0); id < kinematics.NumOutputs; id++ {
			if k, ok := id.Key(); ok && (k.Class == kinematics.ClassCornerVector || k.Class == kinematics.ClassCarVector) {
				car.AppendRow(table.Row{units.Heading(display, id.Name(), id.Unit()), formatValue(out.Value(id), id.Unit())})
			}
		}
	}
	fmt.Println(car.Render())
}

func formatValue(v float64, u units.UnitType) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.*f", display.Precision, display.Convert(v, u))
}

func printQuasistatic(name string, out *quasistatic.Outputs) {
	fmt.Printf("%s  pitch=%s roll=%s heave=%s  (%d iterations)\n", name,
		display.Format(out.Pitch, units.Angle), display.Format(out.Roll, units.Angle),
		display.Format(out.Heave, units.Distance), out.Iterations)
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Corner", "Load [lbf]", "Tire deflection [in]", "Lift-off"})
	for loc, c := range out.Corners {
		lift := ""
		if c.LiftOff {
			lift = "yes"
		}
		t.AppendRow(table.Row{vehicle.Location(loc).String(), formatValue(c.Load, units.Force), formatValue(c.Deflection, units.Distance), lift})
	}
	t.AppendFooter(table.Row{"Total", formatValue(out.TotalLoad(), units.Force), "", ""})
	fmt.Println(t.Render())
}

func printSweep(res *experiment.Result, m sweep.Metric) {
	cube := res.Cube
	t := table.NewWriter()
	t.SetTitle(units.Heading(display, m.String(), m.Unit()))
	t.AppendHeader(table.Row{"Car", "Min", "Max", "Mean", "StdDev", "Solved", "Failed"})
	for i, name := range cube.Cars {
		s := cube.Summarize(i, m)
		t.AppendRow(table.Row{name,
			formatValue(s.Min, m.Unit()), formatValue(s.Max, m.Unit()),
			formatValue(s.Mean, m.Unit()), formatValue(s.StdDev, m.Unit()),
			s.Valid, cube.Failed[i]})
	}
	fmt.Println(t.Render())

	def := res.Sweep
	inner := 1
	if def.Secondary != nil {
		inner = def.Secondary.Points
	}
	var series [][]float64
	for car := range cube.Cars {
		s := make([]float64, def.Primary.Points)
		for i := range s {
			s[i] = display.Convert(cube.At(car, i*inner, m), m.Unit())
		}
		series = append(series, s)
	}
	caption := fmt.Sprintf("%s vs %s", m, def.Primary.Variable)
	if def.Secondary != nil {
		caption += fmt.Sprintf(" at %s=%s", def.Secondary.Variable, display.Format(def.Secondary.Start, def.Secondary.Variable.Unit()))
	}
	printChart(series, caption, 80)
}

func printChart(series [][]float64, caption string, width int) {
	for _, s := range series {
		finite := 0
		for _, v := range s {
			if !math.IsNaN(v) {
				finite++
			}
		}
		if finite == 0 {
			fmt.Println("(no solved points to chart)")
			return
		}
	}
	colors := []asciigraph.AnsiColor{asciigraph.Default, asciigraph.Red, asciigraph.Green, asciigraph.Blue, asciigraph.Yellow}
	opts := []asciigraph.Option{asciigraph.Height(12), asciigraph.Width(width), asciigraph.Caption(caption)}
	if len(series) > 1 {
		sc := make([]asciigraph.AnsiColor, len(series))
		for i := range sc {
			sc[i] = colors[i%len(colors)]
		}
		opts = append(opts, asciigraph.SeriesColors(sc...))
	}
	fmt.Println(asciigraph.PlotMany(series, opts...))
	fmt.Println()
}

func printOptimization(oa *experiment.OptimizeAnalysis, res *experiment.Result) {
	opt := res.Optimization
	fmt.Printf("best fitness %.6g after %d evaluations in %v\n\n", opt.Best.Fitness, opt.Evaluations, res.Elapsed)

	genes := table.NewWriter()
	genes.AppendHeader(table.Row{"Corner", "Hardpoint", "Axis", "Min", "Max", "Best [in]"})
	for i, g := range oa.Problem.Genes {
		genes.AppendRow(table.Row{g.Location, g.Hardpoint, "XYZ"[g.Axis : g.Axis+1], g.Min, g.Max, fmt.Sprintf("%.4f", opt.Values[i])})
	}
	fmt.Println(genes.Render())

	goals := table.NewWriter()
	goals.AppendHeader(table.Row{"Goal", "Desired", "Achieved"})
	for _, g := range oa.Problem.Goals {
		_, out, err := kinematics.Analyze(opt.Car, g.Before)
		if err != nil {
			goals.AppendRow(table.Row{g.String(), formatValue(g.Desired, g.Output.Unit()), err.Error()})
			continue
		}
		v := out.Value(g.Output)
		if g.Delta {
			_, after, err := kinematics.Analyze(opt.Car, g.After)
			if err != nil {
				goals.AppendRow(table.Row{g.String(), formatValue(g.Desired, g.Output.Unit()), err.Error()})
				continue
			}
			v = after.Value(g.Output) - v
		}
		goals.AppendRow(table.Row{g.String(), formatValue(g.Desired, g.Output.Unit()), formatValue(v, g.Output.Unit())})
	}
	fmt.Println(goals.Render())

	if len(opt.Generations) > 1 {
		best := make([]float64, len(opt.Generations))
		for i, g := range opt.Generations {
			best[i] = g.Best.Fitness
			if best[i] == genetic.FailedFitness {
				best[i] = math.NaN()
			}
		}
		printChart([][]float64{best}, "best fitness per generation", 60)
	}
}
