// Package tui shows live progress of long analyses.
package tui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/vvase/internal/genetic"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

const (
	barWidth   = 36
	sparkWidth = 30
	maxHistory = 200
)

type progressMsg struct {
	name        string
	done, total int
}

type generationMsg struct {
	name string
	gen  genetic.Generation
}

type stepMsg struct {
	step, total int
	label       string
}

type doneMsg struct{ err error }

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type task struct {
	name        string
	done, total int
	started     time.Time
	finished    time.Duration
}

func (t *task) fraction() float64 {
	if t.total <= 0 {
		return 0
	}
	return math.Min(1, float64(t.done)/float64(t.total))
}

type model struct {
	title  string
	start  time.Time
	now    time.Time
	cancel context.CancelFunc

	step, steps int
	stepLabel   string

	tasks []*task
	byKey map[string]*task

	best    []float64
	lastGen *genetic.Generation
	genName string

	finished bool
	err      error
	width    int
}

func newModel(title string, cancel context.CancelFunc) model {
	now := time.Now()
	return model{
		title:  title,
		start:  now,
		now:    now,
		cancel: cancel,
		byKey:  map[string]*task{},
		width:  80,
	}
}

func (m model) Init() tea.Cmd { return tick() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tickMsg:
		m.now = time.Time(msg)
		if m.finished {
			return m, nil
		}
		return m, tick()
	case stepMsg:
		m.step, m.steps, m.stepLabel = msg.step, msg.total, msg.label
	case progressMsg:
		t, ok := m.byKey[msg.name]
		if !ok {
			t = &task{name: msg.name, started: time.Now()}
			m.byKey[msg.name] = t
			m.tasks = append(m.tasks, t)
		}
		if msg.done >= t.done {
			t.done = msg.done
		}
		t.total = msg.total
		if t.done >= t.total && t.finished == 0 {
			t.finished = time.Since(t.started)
		}
	case generationMsg:
		g := msg.gen
		m.lastGen = &g
		if msg.name != m.genName {
			m.genName = msg.name
			m.best = m.best[:0]
		}
		if g.Best.Fitness != genetic.FailedFitness {
			m.best = append(m.best, g.Best.Fitness)
			if len(m.best) > maxHistory {
				m.best = m.best[1:]
			}
		}
	case doneMsg:
		m.finished = true
		m.err = msg.err
		m.now = time.Now()
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("            " + cyan.Render("v v a s e") + "\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n\n")

	status := green.Render("● running")
	switch {
	case m.finished && m.err != nil:
		status = red.Render("✕ failed")
	case m.finished:
		status = cyan.Render("✓ done")
	}
	elapsed := m.now.Sub(m.start).Round(100 * time.Millisecond)
	b.WriteString(fmt.Sprintf("   %s  %s  %s\n", white.Render(m.title), status, dim.Render(elapsed.String())))
	if m.steps > 0 {
		b.WriteString(fmt.Sprintf("   %s %s\n", dim.Render(fmt.Sprintf("step %d/%d", m.step, m.steps)), yellow.Render(m.stepLabel)))
	}
	b.WriteString("\n")

	for _, t := range m.tasks {
		b.WriteString(fmt.Sprintf("   %-18s %s %s\n", truncate(t.name, 18), bar(t.fraction()), dim.Render(fmt.Sprintf("%d/%d", t.done, t.total))))
	}

	if g := m.lastGen; g != nil {
		b.WriteString("\n")
		best := "failed"
		if g.Best.Fitness != genetic.FailedFitness {
			best = fmt.Sprintf("%.4g", g.Best.Fitness)
		}
		b.WriteString(fmt.Sprintf("   %s %s  %s %s  %s %d\n",
			dim.Render("best"), magenta.Render(best),
			dim.Render("mean"), white.Render(fmt.Sprintf("%.4g", g.Mean)),
			dim.Render("failed"), g.Failed))
		if len(m.best) > 1 {
			b.WriteString(fmt.Sprintf("   %s %s\n", dim.Render("fitness"), cyan.Render(sparkline(m.best, sparkWidth))))
		}
	}

	if m.err != nil {
		b.WriteString("\n   " + red.Render(m.err.Error()) + "\n")
	}
	if !m.finished {
		b.WriteString("\n" + dim.Render("   q cancel") + "\n")
	}
	return b.String()
}

func bar(fraction float64) string {
	filled := int(fraction * barWidth)
	return cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// sparkline samples data down to width columns.
func sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	rang := maxVal - minVal
	if rang == 0 {
		rang = 1
	}
	step := len(data) / width
	if step < 1 {
		step = 1
	}
	var sb strings.Builder
	for i := 0; i < width && i*step < len(data); i++ {
		idx := int((data[i*step] - minVal) / rang * 7)
		if idx > 7 {
			idx = 7
		}
		if idx < 0 {
			idx = 0
		}
		sb.WriteRune(chars[idx])
	}
	return sb.String()
}
