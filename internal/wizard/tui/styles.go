package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/monitorminer/internal/client"
	"github.com/muurk/monitorminer/internal/version"
)

// AppName is shown in the container header.
const AppName = "MONITOR MINER"

// Layout constants for responsive terminal width
const (
	MinTerminalWidth = 72
	MaxContentWidth  = 120
)

var (
	PrimaryColor   = lipgloss.Color("#F7931A") // Amber
	SecondaryColor = lipgloss.Color("#43BF6D") // Green
	WarningColor   = lipgloss.Color("#FFA500") // Orange
	ErrorColor     = lipgloss.Color("#FF5555") // Red
	TextColor      = lipgloss.Color("#FFFFFF")
	SubtleColor    = lipgloss.Color("#626262")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Italic(true)

	MenuItemStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			PaddingLeft(2)

	SelectedMenuItemStyle = lipgloss.NewStyle().
				Foreground(PrimaryColor).
				Bold(true).
				PaddingLeft(2)

	SpinnerStyle = lipgloss.NewStyle().Foreground(PrimaryColor)

	SectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(SubtleColor).
			Padding(0, 1)

	ErrorBoxStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ErrorColor).
			Padding(0, 1)

	SuccessBoxStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(SecondaryColor).
			Padding(0, 1)

	WarningStyle = lipgloss.NewStyle().Foreground(WarningColor).Bold(true)

	OnStyle  = lipgloss.NewStyle().Foreground(SecondaryColor).Bold(true)
	OffStyle = lipgloss.NewStyle().Foreground(SubtleColor)
)

// RenderTitle renders a screen title.
func RenderTitle(text string) string {
	return TitleStyle.Render(text)
}

// RenderError renders an error with its troubleshooting hint below.
func RenderError(err error) string {
	body := client.GetShortErrorMessage(err)
	if hint := client.GetTroubleshootingHint(err); hint != "" {
		body += "\n\n" + SubtitleStyle.Render(hint)
	}
	return ErrorBoxStyle.Render(body)
}

// RenderRelay renders one relay line.
func RenderRelay(r client.RelayStatus) string {
	state := OffStyle.Render("OFF")
	if r.State {
		state = OnStyle.Render("ON ")
	}
	return fmt.Sprintf("[%d] Relay %d  %s", r.RelayID, r.RelayID, state)
}

// SignalIndicator renders RSSI as four bars.
func SignalIndicator(rssi int) string {
	n := client.SignalBars(rssi)
	return OnStyle.Render(strings.Repeat("▮", n)) + OffStyle.Render(strings.Repeat("▯", 4-n))
}

// RenderApplicationContainer wraps every screen: header with name and
// version, the screen content, and a footer with help text.
func RenderApplicationContainer(content, footerText string, terminalWidth, terminalHeight int) string {
	if terminalWidth < MinTerminalWidth {
		terminalWidth = MinTerminalWidth
	}
	if terminalWidth > MaxContentWidth {
		terminalWidth = MaxContentWidth
	}

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Foreground(TextColor).Bold(true).Render(AppName+" v"+version.Version),
		" ",
		lipgloss.NewStyle().Foreground(SubtleColor).Render("controller setup"))

	section := func(border lipgloss.Border) lipgloss.Style {
		return lipgloss.NewStyle().
			BorderStyle(border).
			BorderForeground(PrimaryColor).
			Width(terminalWidth-4).
			Padding(0, 1)
	}

	inner := lipgloss.JoinVertical(lipgloss.Left,
		section(lipgloss.Border{Bottom: "─"}).Render(header),
		lipgloss.NewStyle().Width(terminalWidth-4).Padding(1, 1).Render(content),
		section(lipgloss.Border{Top: "─"}).Foreground(SubtleColor).Render(footerText),
	)

	outer := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(PrimaryColor).
		Width(terminalWidth - 2)
	if terminalHeight > 2 {
		outer = outer.Height(terminalHeight - 2)
	}

	return outer.Render(inner)
}
