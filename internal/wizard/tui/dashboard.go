package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/monitorminer/internal/client"
)

// RefreshInterval is how often the dashboard polls the controller.
const RefreshInterval = 5 * time.Second

type refreshMsg struct {
	status  *client.Status
	sensors *client.Snapshot
	relays  []client.RelayStatus
	err     error
}

type relayResultMsg struct {
	result *client.RelayAction
	err    error
}

type refreshTickMsg struct{}

type dashboardKeyMap struct {
	Toggle  key.Binding
	Refresh key.Binding
	WiFi    key.Binding
	Back    key.Binding
	Quit    key.Binding
}

func (k dashboardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Refresh, k.WiFi, k.Back, k.Quit}
}

func (k dashboardKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

// DashboardModel shows one controller: status, sensors and relays.
// Relays are toggled with the digit keys. In provisioning mode only
// status and Wi-Fi setup are available.
type DashboardModel struct {
	Target  Target
	Status  *client.Status
	Sensors *client.Snapshot
	Relays  []client.RelayStatus
	Err     error
	Loading bool
	Notice  string
	Spinner spinner.Model
	Keys    dashboardKeyMap

	ctrl Controller
}

// NewDashboardModel creates a dashboard for target.
func NewDashboardModel(target Target, ctrl Controller) DashboardModel {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = SpinnerStyle

	return DashboardModel{
		Target:  target,
		Spinner: s,
		ctrl:    ctrl,
		Loading: true,
		Keys: dashboardKeyMap{
			Toggle:  key.NewBinding(key.WithKeys("0", "1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("0-9", "toggle relay")),
			Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
			WiFi:    key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "wi-fi setup")),
			Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
			Quit:    key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		},
	}
}

// Init fetches the first snapshot.
func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, m.refresh())
}

// Provisioning reports whether the controller is serving its setup network.
func (m DashboardModel) Provisioning() bool {
	return m.Status != nil && m.Status.Network.Mode == "provisioning"
}

func (m DashboardModel) refresh() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()

		status, err := ctrl.Status(ctx)
		if err != nil {
			return refreshMsg{err: err}
		}
		msg := refreshMsg{status: status}
		if status.Network.Mode == "provisioning" {
			return msg
		}

		if msg.sensors, err = ctrl.Sensors(ctx); err != nil {
			msg.err = err
			return msg
		}
		if msg.relays, err = ctrl.Relays(ctx); err != nil {
			msg.err = err
		}
		return msg
	}
}

func scheduleRefresh() tea.Cmd {
	return tea.Tick(RefreshInterval, func(time.Time) tea.Msg { return refreshTickMsg{} })
}

func (m DashboardModel) toggle(id int) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		res, err := ctrl.SetRelay(ctx, id, "toggle")
		return relayResultMsg{result: res, err: err}
	}
}

// Update handles dashboard messages.
func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		m.Loading = false
		m.Err = msg.err
		if msg.status != nil {
			m.Status = msg.status
		}
		if msg.err == nil {
			m.Sensors = msg.sensors
			m.Relays = msg.relays
		}
		return m, scheduleRefresh()

	case refreshTickMsg:
		return m, m.refresh()

	case relayResultMsg:
		if msg.err != nil {
			m.Err = msg.err
			return m, nil
		}
		for i := range m.Relays {
			if m.Relays[i].RelayID == msg.result.RelayID {
				m.Relays[i].State = msg.result.State
			}
		}
		m.Notice = fmt.Sprintf("Relay %d switched %s", msg.result.RelayID, onOff(msg.result.State))
		return m, nil

	case spinner.TickMsg:
		if !m.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		s := msg.String()
		switch {
		case s == "q":
			return m, tea.Quit
		case s == "esc":
			return m, transition(ScreenDiscovery, nil)
		case s == "r":
			m.Loading = true
			return m, tea.Batch(m.Spinner.Tick, m.refresh())
		case s == "w":
			t := m.Target
			return m, transition(ScreenWiFi, &t)
		case len(s) == 1 && s[0] >= '0' && s[0] <= '9':
			id := int(s[0] - '0')
			if m.Provisioning() || id >= len(m.Relays) {
				return m, nil
			}
			m.Notice = ""
			return m, m.toggle(id)
		}
	}
	return m, nil
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

// View renders the dashboard.
func (m DashboardModel) View() string {
	var b strings.Builder

	title := m.Target.Label + "  " + SubtitleStyle.Render(m.Target.Address())
	if m.Loading {
		title = m.Spinner.View() + " " + title
	}
	b.WriteString(RenderTitle(title))
	b.WriteString("\n")

	if m.Status != nil {
		st := m.Status
		status := fmt.Sprintf("Mode:     %s\nIP:       %s\nFirmware: %s\nUptime:   %s\nDevice:   %s",
			st.Network.Mode, st.Network.IP, st.Version, time.Duration(st.Uptime)*time.Second, st.DeviceID)
		b.WriteString(SectionStyle.Render(status))
		b.WriteString("\n")
	}

	if m.Provisioning() {
		b.WriteString("\n")
		b.WriteString(WarningStyle.Render("  This controller has no Wi-Fi credentials yet. Press w to set them up."))
		b.WriteString("\n")
	} else if m.Sensors != nil {
		sensors := strings.TrimRight(client.FormatSnapshot(m.Sensors), "\n")
		var relays []string
		for _, r := range m.Relays {
			relays = append(relays, RenderRelay(r))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			SectionStyle.Render(sensors),
			" ",
			SectionStyle.Render(strings.Join(relays, "\n"))))
		b.WriteString("\n")
	}

	if m.Notice != "" {
		b.WriteString("\n" + SuccessBoxStyle.Render(m.Notice) + "\n")
	}
	if m.Err != nil {
		b.WriteString("\n" + RenderError(m.Err) + "\n")
	}
	return b.String()
}
