package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/san-kum/vvase/internal/genetic"
)

const lineWidth = 30

// LineReporter writes progress as plain lines, for output that is not a
// terminal. Updates faster than frameRate per second are dropped except
// when a task finishes.
type LineReporter struct {
	w         io.Writer
	frameRate int

	mu        sync.Mutex
	lastFrame time.Time
}

func NewLineReporter(w io.Writer, frameRate int) *LineReporter {
	if frameRate <= 0 {
		frameRate = 4
	}
	return &LineReporter{w: w, frameRate: frameRate}
}

func (r *LineReporter) due(final bool) bool {
	if final {
		r.lastFrame = time.Now()
		return true
	}
	if time.Since(r.lastFrame) < time.Second/time.Duration(r.frameRate) {
		return false
	}
	r.lastFrame = time.Now()
	return true
}

func (r *LineReporter) Progress(name string, done, total int) {
	if total <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.due(done >= total) {
		return
	}
	filled := done * lineWidth / total
	if filled > lineWidth {
		filled = lineWidth
	}
	fmt.Fprintf(r.w, "  %s [%s%s] %d/%d\n", name,
		strings.Repeat("=", filled), strings.Repeat(" ", lineWidth-filled), done, total)
}

func (r *LineReporter) Generation(name string, g genetic.Generation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	best := "failed"
	if g.Best.Fitness != genetic.FailedFitness {
		best = fmt.Sprintf("%.4g", g.Best.Fitness)
	}
	fmt.Fprintf(r.w, "  %s generation %d best=%s mean=%.4g failed=%d\n", name, g.Index, best, g.Mean, g.Failed)
}

func (r *LineReporter) Step(step, total int, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "Running step %d/%d: %s\n", step, total, label)
}
