package jobqueue

import (
	"fmt"
	"strings"
)

// Priority orders jobs; lower values run first.
type Priority int

const (
	VeryHigh Priority = iota
	High
	Normal
	Low
	VeryLow
	Idle
	NumPriorities

	// exit is queued by Stop and served ahead of every user priority, so a
	// worker leaves as soon as its current job is done.
	exit = NumPriorities
)

var priorityNames = [NumPriorities]string{"VeryHigh", "High", "Normal", "Low", "VeryLow", "Idle"}

func (p Priority) String() string {
	if p == exit {
		return "Exit"
	}
	if p < 0 || p >= NumPriorities {
		return fmt.Sprintf("Priority(%d)", int(p))
	}
	return priorityNames[p]
}

func ParsePriority(name string) (Priority, error) {
	for p, n := range priorityNames {
		if strings.EqualFold(n, name) {
			return Priority(p), nil
		}
	}
	return 0, fmt.Errorf("unknown priority %q", name)
}
