package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/san-kum/vvase/internal/experiment"
	"github.com/san-kum/vvase/internal/export"
	"github.com/san-kum/vvase/internal/kinematics"
	"github.com/san-kum/vvase/internal/storage"
)

func runStore(cmd *cobra.Command) (*storage.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return storage.New(cfg.OutputDir), nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	store, err := runStore(cmd)
	if err != nil {
		return err
	}
	runs, err := store.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs")
		return nil
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"ID", "Kind", "Name", "Cars", "Time", "Elapsed", "Rows"})
	for _, r := range runs {
		t.AppendRow(table.Row{r.ID, r.Kind, r.Name, strings.Join(r.Cars, ","),
			r.Timestamp.Format("2006-01-02 15:04:05"), r.Elapsed, r.Rows})
	}
	fmt.Println(t.Render())
	return nil
}

// defaultColumns picks the axes a run is usually charted on.
func defaultColumns(meta *storage.RunMetadata) (x, y string) {
	switch meta.Kind {
	case experiment.KindOptimize:
		return "Generation", "Best"
	case experiment.KindSweep:
		if f := strings.Fields(meta.Params["primary"]); len(f) > 0 {
			x = f[0]
		}
	}
	for _, c := range meta.Columns {
		if c != "Car" && c != x {
			return x, c
		}
	}
	return x, ""
}

func plotRun(cmd *cobra.Command, args []string) error {
	store, err := runStore(cmd)
	if err != nil {
		return err
	}
	meta, err := store.Load(args[0])
	if err != nil {
		return err
	}
	tbl, err := store.LoadTable(args[0])
	if err != nil {
		return err
	}

	x, y := defaultColumns(meta)
	if xColumn != "" {
		x = xColumn
	}
	if yColumn != "" {
		y = yColumn
	}
	if x == "" || y == "" {
		return fmt.Errorf("run %s: choose columns with -x and -y (have %s)", meta.ID, strings.Join(meta.Columns, ", "))
	}
	fig, err := export.TableFigure(meta.Name, tbl, meta.Cars, x, y, byColumn, display)
	if err != nil {
		return err
	}

	if plotOut != "" {
		if err := fig.Save(plotOut, export.DefaultWidth, export.DefaultHeight); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", plotOut)
		return nil
	}
	series := make([][]float64, len(fig.Curves))
	for i, c := range fig.Curves {
		series[i] = c.Y
	}
	fmt.Printf("%s (%s)\n", meta.Name, meta.ID)
	for i, c := range fig.Curves {
		if c.Name != "" {
			fmt.Printf("  %d: %s\n", i+1, c.Name)
		}
	}
	printChart(series, fmt.Sprintf("%s vs %s", fig.YLabel, fig.XLabel), plotWidth)
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	store, err := runStore(cmd)
	if err != nil {
		return err
	}
	tbl, err := store.LoadTable(args[0])
	if err != nil {
		return err
	}
	return storage.ExportCSVFile(exportOut, tbl)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	store, err := runStore(cmd)
	if err != nil {
		return err
	}
	meta, err := store.Load(args[0])
	if err != nil {
		return err
	}
	tbl, err := store.LoadTable(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSONFile(exportOut, meta, tbl)
}

func listOutputs(cmd *cobra.Command, args []string) error {
	filter := ""
	if len(args) > 0 {
		filter = strings.ToLower(args[0])
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Output", "Unit"})
	n := 0
	for id := kinematics.OutputID(0); id < kinematics.NumOutputs; id++ {
		name := id.Name()
		if filter != "" && !strings.Contains(strings.ToLower(name), filter) {
			continue
		}
		t.AppendRow(table.Row{int(id), name, display.Label(id.Unit())})
		n++
	}
	if n == 0 {
		return fmt.Errorf("no output matches %q", filter)
	}
	fmt.Println(t.Render())
	return nil
}
