package automation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"
	"go.uber.org/zap/zaptest"

	"github.com/san-kum/vvase/internal/analysis"
	"github.com/san-kum/vvase/internal/config"
	"github.com/san-kum/vvase/internal/experiment"
	"github.com/san-kum/vvase/internal/storage"
)

const scenarioYAML = `
name: front-geometry
description: roll sweep and camber search on the formula car
cars:
  - preset: formula
  - path: sedan.yaml
steps:
  - kind: kinematics
    name: static
  - kind: sweep
    name: roll
    save: true
    cars: [formula, sedan]
    primary: {variable: roll, start: -0.03, end: 0.03, points: 7}
    metrics: [Roll, RightFront Camber]
    plot: {metric: RightFront Camber, path: plots/roll.png}
  - kind: optimize
    name: camber
    car: formula
    save: true
    population: 8
    generations: 3
    genes:
      - {location: RF, hardpoint: LowerBallJoint, axis: z, min: 4.5, max: 5.5, values: 5}
    goals:
      - {output: RightFront Camber, desired: -0.03, deviation: 0.01, before: {roll: 0.05}}
`

func newRunner(t *testing.T, store *storage.Store) *Runner {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Workers = 2
	s := experiment.NewSession(context.Background(), cfg, zaptest.NewLogger(t).Sugar())
	t.Cleanup(func() { s.Close() })
	return NewRunner(s, store)
}

func writeScenario(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := config.SaveCar(filepath.Join(dir, "sedan.yaml"), config.GetCar("sedan")); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "plots"), 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, []byte(scenarioYAML), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunScenario(t *testing.T) {
	g := NewWithT(t)
	path := writeScenario(t)
	sc, err := LoadScenario(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(sc.Steps).To(HaveLen(3))
	g.Expect(sc.Steps[1].Primary.Points).To(Equal(7))
	g.Expect(sc.Steps[2].Goals[0].Before.Roll).To(Equal(0.05))

	store := storage.New(filepath.Join(t.TempDir(), "runs"))
	r := newRunner(t, store)
	var started []string
	r.OnStep = func(step, total int, st ScenarioStep) { started = append(started, st.Kind) }

	results, err := r.Run(context.Background(), sc)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(results).To(HaveLen(3))
	g.Expect(started).To(Equal([]string{"kinematics", "sweep", "optimize"}))

	g.Expect(results[0].RunID).To(BeEmpty())
	g.Expect(results[1].Result.Cube.Cars).To(Equal([]string{"formula", "sedan"}))
	g.Expect(results[1].RunID).To(HavePrefix("sweep_"))
	g.Expect(results[2].RunID).To(HavePrefix("optimize_"))

	info, err := os.Stat(results[1].Plot)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(info.Size()).To(BeNumerically(">", 0))

	runs, err := store.List()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(runs).To(HaveLen(2))
}

func TestScenarioStopsAtFailure(t *testing.T) {
	g := NewWithT(t)
	sc, err := ParseScenario([]byte(`
name: broken
cars: [{preset: formula}]
steps:
  - {kind: kinematics, name: ok}
  - {kind: kinematics, name: missing, car: nope}
  - {kind: kinematics, name: never}
`))
	g.Expect(err).NotTo(HaveOccurred())
	results, err := newRunner(t, nil).Run(context.Background(), sc)
	g.Expect(err).To(MatchError(ContainSubstring("step 2")))
	g.Expect(results).To(HaveLen(1))
}

func TestParseScenarioErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"not yaml", "steps: [", analysis.ErrFileFormat},
		{"no steps", "name: empty", analysis.ErrInvalidInputs},
		{"missing kind", "steps: [{name: x}]", analysis.ErrInvalidInputs},
		{"ambiguous car", "cars: [{preset: formula, path: a.yaml}]\nsteps: [{kind: kinematics}]", analysis.ErrInvalidInputs},
		{"plot of kinematics", "steps: [{kind: kinematics, plot: {metric: Roll, path: a.png}}]", analysis.ErrInvalidInputs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUnknownPreset(t *testing.T) {
	sc := &Scenario{Cars: []CarSource{{Preset: "kart"}}, Steps: []ScenarioStep{{Kind: experiment.KindKinematics}}}
	if _, err := newRunner(t, nil).Run(context.Background(), sc); err == nil {
		t.Error("expected an error for an unknown preset")
	}
}
