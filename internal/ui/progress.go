package ui

import (
	"fmt"
	"io"
	"time"
)

// StepLine renders one pipeline progress line. phase is "started", "done"
// or "failed".
func StepLine(n, total int, step, phase string, elapsed time.Duration, err error) string {
	counter := StyleMeta.Render(fmt.Sprintf("[%d/%d]", n, total))
	switch phase {
	case "done":
		return fmt.Sprintf("%s %s %s", counter, Success(step), Meta(elapsed.Round(time.Millisecond).String()))
	case "failed":
		if err != nil {
			return fmt.Sprintf("%s %s %s", counter, Err(step), err.Error())
		}
		return fmt.Sprintf("%s %s", counter, Err(step))
	default:
		return fmt.Sprintf("%s %s", counter, StyleWarning.Render("… "+step))
	}
}

// Progress prints step lines to w, numbering steps in the order they start.
type Progress struct {
	w     io.Writer
	total int
	seen  map[string]int
}

// NewProgress creates a Progress for a pipeline of total steps.
func NewProgress(w io.Writer, total int) *Progress {
	return &Progress{w: w, total: total, seen: make(map[string]int)}
}

// Step prints the line for one step event. Started events are not printed;
// the step is numbered when it first appears.
func (p *Progress) Step(step, phase string, elapsed time.Duration, err error) {
	n, ok := p.seen[step]
	if !ok {
		n = len(p.seen) + 1
		p.seen[step] = n
	}
	if phase == "started" {
		return
	}
	fmt.Fprintln(p.w, StepLine(n, p.total, step, phase, elapsed, err))
}
