package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/vvase/internal/experiment"
	"github.com/san-kum/vvase/internal/genetic"
)

// buckets bounds how many progress updates one task sends per run.
const buckets = 200

// Reporter receives progress from a running session. Progress may be
// called from several goroutines.
type Reporter interface {
	Progress(name string, done, total int)
	Generation(name string, g genetic.Generation)
	Step(step, total int, label string)
}

// Attach routes a session's progress callbacks to r.
func Attach(s *experiment.Session, r Reporter) {
	s.Progress = r.Progress
	s.OnGeneration = r.Generation
}

// throttle passes an update through when it moves a task into a new
// bucket or finishes it.
type throttle struct {
	mu   sync.Mutex
	last map[string]int
}

func (t *throttle) pass(name string, done, total int) bool {
	if total <= 0 {
		return false
	}
	bucket := done * buckets / total
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		t.last = map[string]int{}
	}
	prev, seen := t.last[name]
	if seen && bucket <= prev && done < total {
		return false
	}
	t.last[name] = bucket
	return true
}

type programReporter struct {
	send func(tea.Msg)
	throttle
}

func (r *programReporter) Progress(name string, done, total int) {
	if r.pass(name, done, total) {
		r.send(progressMsg{name: name, done: done, total: total})
	}
}

func (r *programReporter) Generation(name string, g genetic.Generation) {
	r.send(generationMsg{name: name, gen: g})
}

func (r *programReporter) Step(step, total int, label string) {
	r.send(stepMsg{step: step, total: total, label: label})
}

// Run shows the progress view while work runs and returns work's error.
// Quitting the view cancels the context passed to work.
func Run(ctx context.Context, title string, work func(context.Context, Reporter) error, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newModel(title, cancel), opts...)
	r := &programReporter{send: p.Send}
	errc := make(chan error, 1)
	go func() {
		err := work(ctx, r)
		errc <- err
		p.Send(doneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-errc
		return err
	}
	return <-errc
}
