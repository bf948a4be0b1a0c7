package tui

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/gomega"

	"github.com/san-kum/vvase/internal/genetic"
)

func update(m model, msgs ...tea.Msg) model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(model)
	}
	return m
}

func TestModelTracksTasks(t *testing.T) {
	g := NewWithT(t)
	m := update(newModel("roll sweep", nil),
		stepMsg{step: 1, total: 2, label: "sweep roll"},
		progressMsg{name: "roll", done: 5, total: 10},
		progressMsg{name: "roll", done: 3, total: 10},
		progressMsg{name: "camber", done: 1, total: 4},
	)
	g.Expect(m.tasks).To(HaveLen(2))
	g.Expect(m.byKey["roll"].done).To(Equal(5))
	g.Expect(m.byKey["roll"].fraction()).To(Equal(0.5))

	view := m.View()
	g.Expect(view).To(ContainSubstring("roll sweep"))
	g.Expect(view).To(ContainSubstring("step 1/2"))
	g.Expect(view).To(ContainSubstring("5/10"))
	g.Expect(view).To(ContainSubstring("q cancel"))

	m = update(m, doneMsg{err: errors.New("boom")})
	g.Expect(m.finished).To(BeTrue())
	g.Expect(m.View()).To(ContainSubstring("boom"))
}

func TestModelGenerations(t *testing.T) {
	g := NewWithT(t)
	m := newModel("camber", nil)
	for i, f := range []float64{genetic.FailedFitness, 9, 4, 1} {
		m = update(m, generationMsg{name: "camber", gen: genetic.Generation{Index: i, Best: genetic.Citizen{Fitness: f}, Mean: 2 * f}})
	}
	g.Expect(m.best).To(Equal([]float64{9, 4, 1}))
	g.Expect(m.View()).To(ContainSubstring("fitness"))

	m = update(m, generationMsg{name: "other", gen: genetic.Generation{Best: genetic.Citizen{Fitness: 3}}})
	g.Expect(m.best).To(Equal([]float64{3}))
}

func TestQuitCancels(t *testing.T) {
	cancelled := false
	m := newModel("x", func() { cancelled = true })
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !cancelled || cmd == nil {
		t.Error("q should cancel the work and quit")
	}
}

func TestThrottle(t *testing.T) {
	var th throttle
	passed := 0
	for i := 1; i <= 10000; i++ {
		if th.pass("sweep", i, 10000) {
			passed++
		}
	}
	if passed > buckets+1 {
		t.Errorf("%d updates passed, want at most %d", passed, buckets+1)
	}
	if !th.pass("sweep", 10000, 10000) {
		t.Error("a finished task always passes")
	}
	if th.pass("empty", 0, 0) {
		t.Error("a task without a total never passes")
	}
}

func TestSparkline(t *testing.T) {
	tests := []struct {
		name string
		data []float64
		want string
	}{
		{"empty", nil, ""},
		{"rising", []float64{0, 1}, "▁█"},
		{"flat", []float64{2, 2, 2}, "▁▁▁"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sparkline(tt.data, 10); got != tt.want {
				t.Errorf("sparkline = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLineReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewLineReporter(&buf, 1)
	r.Step(1, 1, "sweep roll")
	r.Progress("roll", 1, 4)
	r.Progress("roll", 2, 4)
	r.Progress("roll", 4, 4)
	r.Generation("camber", genetic.Generation{Index: 2, Best: genetic.Citizen{Fitness: genetic.FailedFitness}})

	out := buf.String()
	if !strings.Contains(out, "Running step 1/1: sweep roll") {
		t.Errorf("missing step line in %q", out)
	}
	if strings.Count(out, "roll [") != 2 {
		t.Errorf("expected the first and final progress lines in %q", out)
	}
	if !strings.Contains(out, "best=failed") {
		t.Errorf("missing generation line in %q", out)
	}
}

func TestRunReturnsWorkError(t *testing.T) {
	want := errors.New("solve failed")
	err := Run(context.Background(), "test", func(ctx context.Context, r Reporter) error {
		r.Step(1, 1, "kinematics")
		r.Progress("static", 1, 1)
		return want
	}, tea.WithInput(nil), tea.WithOutput(io.Discard), tea.WithoutRenderer())
	if !errors.Is(err, want) {
		t.Errorf("Run = %v, want %v", err, want)
	}
}
