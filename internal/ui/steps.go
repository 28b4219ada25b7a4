package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// StepStatus represents the current state of a step
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepComplete
	StepFailed
	StepSkipped
)

// Step is one stage of a multi-step operation.
type Step struct {
	Name    string
	Status  StepStatus
	Message string
}

// StepCallback reports progress on step n (1-based).
type StepCallback func(n int, status StepStatus, message string)

// Steps prints a numbered step list as an operation advances.
type Steps struct {
	out   io.Writer
	steps []Step
	bar   progress.Model
	start time.Time
}

// NewSteps creates a tracker for the named steps writing to out.
func NewSteps(out io.Writer, names ...string) *Steps {
	steps := make([]Step, len(names))
	for i, n := range names {
		steps[i] = Step{Name: n}
	}
	return &Steps{
		out:   out,
		steps: steps,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
	}
}

// Run executes op and prints each completed step as it is reported.
func (s *Steps) Run(op func(onStep StepCallback) error) (time.Duration, error) {
	s.start = time.Now()
	err := op(s.update)
	return time.Since(s.start), err
}

func (s *Steps) update(n int, status StepStatus, message string) {
	if n < 1 || n > len(s.steps) {
		return
	}
	step := &s.steps[n-1]
	step.Status = status
	step.Message = message

	line := s.renderLine(n, *step)
	if status == StepRunning {
		_, _ = fmt.Fprint(s.out, line+"\r")
		return
	}
	_, _ = fmt.Fprintln(s.out, line)
}

// Percent is the share of steps that are complete or skipped.
func (s *Steps) Percent() float64 {
	if len(s.steps) == 0 {
		return 0
	}
	done := 0
	for _, st := range s.steps {
		if st.Status == StepComplete || st.Status == StepSkipped {
			done++
		}
	}
	return float64(done) / float64(len(s.steps))
}

// Bar renders the overall progress bar.
func (s *Steps) Bar() string {
	return "  " + s.bar.ViewAs(s.Percent()) + fmt.Sprintf("  %3.0f%%", s.Percent()*100)
}

func (s *Steps) renderLine(n int, step Step) string {
	var marker string
	var style lipgloss.Style
	switch step.Status {
	case StepComplete:
		marker, style = MarkerComplete, StepCompleteStyle
	case StepRunning:
		marker, style = MarkerRunning, StepRunningStyle
	case StepFailed:
		marker, style = MarkerFailed, ErrorTitleStyle
	case StepSkipped:
		marker, style = "-", StepPendingStyle
	default:
		marker, style = MarkerPending, StepPendingStyle
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("  [%d/%d] ", n, len(s.steps)))
	b.WriteString(style.Render(step.Name))
	if pad := 40 - lipgloss.Width(step.Name); pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	} else {
		b.WriteString(" ")
	}
	b.WriteString(style.Render(marker))
	if step.Message != "" {
		b.WriteString("  " + StepNoteStyle.Render("("+step.Message+")"))
	}
	return b.String()
}
