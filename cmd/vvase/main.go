package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/san-kum/vvase/internal/config"
	"github.com/san-kum/vvase/internal/experiment"
	"github.com/san-kum/vvase/internal/storage"
	"github.com/san-kum/vvase/internal/tui"
)

var (
	dataDir    string
	configFile string
	preset     string
	workers    int
	verbose    bool
	noTUI      bool
	noSave     bool
	carArgs    []string

	// attitude, radians and inches
	pitch float64
	roll  float64
	heave float64
	rack  float64

	gx    float64
	gy    float64
	speed float64

	primaryAxis   string
	secondaryAxis string
	metricNames   []string
	plotMetric    string
	sweepFile     string
	saveDef       string

	problemFile string
	exhaustive  bool
	searchLimit int
	population  int
	generations int
	seed        int64

	showAll   bool
	carOut    string
	plotOut   string
	exportOut string
	xColumn   string
	yColumn   string
	byColumn  string
	fromCar   string
	plotWidth int

	logLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "vvase",
		Short:         "suspension kinematics and quasi-static analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", config.DefaultOutputDir, "run store directory")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "solver preset ("+strings.Join(config.ListPresets(), ", ")+")")
	pf.IntVar(&workers, "workers", 0, "worker goroutines (0 = one per CPU)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&noTUI, "no-tui", false, "print progress lines instead of the live view")
	pf.StringSliceVarP(&carArgs, "car", "c", nil, "car preset or car file (.yaml or binary), repeatable")

	kinematicsCmd := &cobra.Command{
		Use:   "kinematics",
		Short: "solve one chassis attitude",
		Args:  cobra.NoArgs,
		RunE:  runKinematics,
	}
	attitudeFlags(kinematicsCmd)
	kinematicsCmd.Flags().BoolVar(&showAll, "all", false, "print vector outputs too")

	quasistaticCmd := &cobra.Command{
		Use:   "quasistatic",
		Short: "find the equilibrium attitude under steady accelerations",
		Args:  cobra.NoArgs,
		RunE:  runQuasistatic,
	}
	attitudeFlags(quasistaticCmd)
	quasistaticCmd.Flags().Float64Var(&gx, "gx", 0, "longitudinal acceleration (g, positive forward)")
	quasistaticCmd.Flags().Float64Var(&gy, "gy", 0, "lateral acceleration (g, positive loads the right side)")
	quasistaticCmd.Flags().Float64Var(&speed, "speed", 0, "speed for aerodynamic loads (in/s)")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "evaluate every output over a grid of attitudes",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	attitudeFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&primaryAxis, "primary", "roll:-0.05:0.05", "primary axis variable:start:end[:points]")
	sweepCmd.Flags().StringVar(&secondaryAxis, "secondary", "", "secondary axis variable:start:end[:points]")
	sweepCmd.Flags().StringSliceVar(&metricNames, "metric", nil, "metrics to store (default all)")
	sweepCmd.Flags().StringVar(&plotMetric, "plot", "RightFront Camber", "metric to chart in the terminal")
	sweepCmd.Flags().StringVar(&sweepFile, "file", "", "load the sweep definition from a file")
	sweepCmd.Flags().StringVar(&saveDef, "save-def", "", "write the sweep definition to a file")
	sweepCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	optimizeCmd := &cobra.Command{
		Use:   "optimize [problem.yaml]",
		Short: "search hardpoint positions that meet kinematic goals",
		Long: "Runs the genetic optimizer. The problem is either a YAML analysis spec " +
			"with genes and goals or, with --file, an optimization file.",
		Args: cobra.MaximumNArgs(1),
		RunE: runOptimize,
	}
	optimizeCmd.Flags().StringVar(&problemFile, "file", "", "optimization file")
	optimizeCmd.Flags().BoolVar(&exhaustive, "exhaustive", false, "evaluate every genome instead")
	optimizeCmd.Flags().IntVar(&searchLimit, "limit", 0, "largest space --exhaustive will search")
	optimizeCmd.Flags().IntVar(&population, "population", 0, "population size")
	optimizeCmd.Flags().IntVar(&generations, "generations", 0, "number of generations")
	optimizeCmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	optimizeCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted batch of analyses",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&noSave, "no-save", false, "ignore save on every step")

	carCmd := &cobra.Command{
		Use:   "car",
		Short: "create, inspect and convert car files",
	}
	carNewCmd := &cobra.Command{
		Use:   "new [name]",
		Short: "write a car document from a preset",
		Args:  cobra.ExactArgs(1),
		RunE:  newCar,
	}
	carNewCmd.Flags().StringVar(&fromCar, "from", "formula", "preset to start from")
	carNewCmd.Flags().StringVarP(&carOut, "out", "o", "", "output file (default <name>.yaml)")
	carShowCmd := &cobra.Command{
		Use:   "show [car]",
		Short: "print hardpoints and parameters",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showCar,
	}
	carConvertCmd := &cobra.Command{
		Use:   "convert [in] [out]",
		Short: "convert between YAML and binary car files",
		Args:  cobra.ExactArgs(2),
		RunE:  convertCar,
	}
	carPrincipalCmd := &cobra.Command{
		Use:   "principal [car]",
		Short: "print principal moments of inertia",
		Args:  cobra.MaximumNArgs(1),
		RunE:  principalInertias,
	}
	carCmd.AddCommand(carNewCmd, carShowCmd, carConvertCmd, carPrincipalCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in cars and solver presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("cars:")
			for _, name := range config.ListCars() {
				fmt.Printf("  %s\n", name)
			}
			fmt.Println("solver presets:")
			for _, name := range config.ListPresets() {
				fmt.Printf("  %s\n", name)
			}
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "chart a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVarP(&xColumn, "x", "x", "", "x column (default the primary variable)")
	plotCmd.Flags().StringVarP(&yColumn, "y", "y", "", "y column")
	plotCmd.Flags().StringVar(&byColumn, "by", "", "split curves by this column")
	plotCmd.Flags().StringVarP(&plotOut, "out", "o", "", "write a PNG/SVG/PDF instead of a terminal chart")
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "terminal chart width")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&exportOut, "out", "o", "-", "output file, - for stdout")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&exportOut, "out", "o", "-", "output file, - for stdout")

	outputsCmd := &cobra.Command{
		Use:   "outputs [filter]",
		Short: "list kinematic output names",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listOutputs,
	}

	rootCmd.AddCommand(kinematicsCmd, quasistaticCmd, sweepCmd, optimizeCmd, scenarioCmd, carCmd,
		presetsCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, outputsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func attitudeFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&pitch, "pitch", 0, "pitch (rad, positive lowers the rear)")
	cmd.Flags().Float64Var(&roll, "roll", 0, "roll (rad, positive raises the right side)")
	cmd.Flags().Float64Var(&heave, "heave", 0, "heave (in, positive up)")
	cmd.Flags().Float64Var(&rack, "rack", 0, "rack travel (in) or steering wheel angle (rad)")
}

func attitude() experiment.AttitudeSpec {
	return experiment.AttitudeSpec{Pitch: pitch, Roll: roll, Heave: heave, Rack: rack}
}

func newLogger() (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
		logLevel.SetLevel(zap.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.Sampling = nil
	}
	cfg.Level = logLevel
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// loadConfig applies the preset, then the config file, then any flag the
// user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = workers
	}
	if cmd.Flags().Changed("data") {
		cfg.OutputDir = dataDir
	}
	if f := cmd.Flags().Lookup("population"); f != nil && f.Changed {
		cfg.Optimization.PopulationSize = population
	}
	if f := cmd.Flags().Lookup("generations"); f != nil && f.Changed {
		cfg.Optimization.Generations = generations
	}
	if f := cmd.Flags().Lookup("seed"); f != nil && f.Changed {
		cfg.Optimization.Seed = seed
	}
	if f := cmd.Flags().Lookup("limit"); f != nil && f.Changed {
		cfg.Optimization.SearchLimit = searchLimit
	}
	return cfg, cfg.Validate()
}

// app bundles what every analysis command needs.
type app struct {
	cfg     *config.Config
	logger  *zap.SugaredLogger
	session *experiment.Session
	store   *storage.Store
}

func setup(ctx context.Context, cmd *cobra.Command, loadCars bool) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:     cfg,
		logger:  logger,
		session: experiment.NewSession(ctx, cfg, logger),
		store:   storage.New(cfg.OutputDir),
	}
	if !loadCars {
		return a, nil
	}
	names := carArgs
	if len(names) == 0 {
		names = []string{"formula"}
	}
	for _, name := range names {
		if car := config.GetCar(name); car != nil {
			if err := a.session.AddCar(car); err != nil {
				a.close()
				return nil, err
			}
			continue
		}
		if _, err := a.session.LoadCar(name); err != nil {
			a.close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) close() {
	if err := a.session.Close(); err != nil {
		a.logger.Warnw("worker shutdown", "error", err)
	}
	_ = a.logger.Sync()
}

func (a *app) env() (experiment.Env, error) {
	return a.session.Env()
}

// interactive reports whether the live view should be used.
func interactive() bool {
	return !noTUI && isatty.IsTerminal(os.Stdout.Fd())
}

// track runs work with progress reporting: the live view on a terminal,
// plain lines on stderr otherwise. Info logs are held back while the live
// view owns the screen.
func (a *app) track(ctx context.Context, title string, work func(context.Context, tui.Reporter) error) error {
	if !interactive() {
		r := tui.NewLineReporter(os.Stderr, 4)
		tui.Attach(a.session, r)
		return work(ctx, r)
	}
	if !verbose {
		logLevel.SetLevel(zap.WarnLevel)
		defer logLevel.SetLevel(zap.InfoLevel)
	}
	return tui.Run(ctx, title, func(ctx context.Context, r tui.Reporter) error {
		tui.Attach(a.session, r)
		return work(ctx, r)
	})
}

func (a *app) save(res *experiment.Result) error {
	if noSave {
		return nil
	}
	if err := a.store.Init(); err != nil {
		return err
	}
	runID, err := a.store.Save(res.Run())
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// parseAxis reads variable:start:end[:points].
func parseAxis(s string) (*experiment.AxisSpec, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 && len(parts) != 4 {
		return nil, fmt.Errorf("axis %q: want variable:start:end[:points]", s)
	}
	a := &experiment.AxisSpec{Variable: parts[0]}
	var err error
	if a.Start, err = strconv.ParseFloat(parts[1], 64); err != nil {
		return nil, fmt.Errorf("axis %q start: %w", s, err)
	}
	if a.End, err = strconv.ParseFloat(parts[2], 64); err != nil {
		return nil, fmt.Errorf("axis %q end: %w", s, err)
	}
	if len(parts) == 4 {
		if a.Points, err = strconv.Atoi(parts[3]); err != nil {
			return nil, fmt.Errorf("axis %q points: %w", s, err)
		}
	}
	return a, nil
}
