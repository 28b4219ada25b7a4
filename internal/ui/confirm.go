package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Confirm shows a warning box and asks a yes/no question on in. Anything
// but "y" or "yes" declines.
func Confirm(out io.Writer, in io.Reader, title string, warnings []string) bool {
	lines := []string{"", lipgloss.NewStyle().Foreground(WarningColor).Bold(true).Render("   ⚠  " + title), ""}
	for _, w := range warnings {
		lines = append(lines, ValueStyle.Render("   • "+w))
	}
	lines = append(lines, "")

	box := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(WarningColor).
		Width(GetTerminalWidth()-2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))
	_, _ = fmt.Fprintln(out, box)
	_, _ = fmt.Fprint(out, StepRunningStyle.Bold(true).Render("Proceed? [y/N]: "))

	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && input == "" {
		_, _ = fmt.Fprintln(out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true
	}
	_, _ = fmt.Fprintln(out, StepPendingStyle.Render("  Cancelled."))
	return false
}
