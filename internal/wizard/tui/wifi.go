package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/monitorminer/internal/client"
)

// WiFiStep is the stage of the provisioning flow.
type WiFiStep int

const (
	StepScanning WiFiStep = iota
	StepChoose
	StepPassword
	StepProvisioning
	StepDone
	StepFailed
)

type networksMsg struct {
	networks []client.Network
	err      error
}

type provisionedMsg struct {
	message string
	err     error
}

type chooseKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Rescan key.Binding
	Back   key.Binding
}

func (k chooseKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Rescan, k.Back}
}

func (k chooseKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

// WiFiModel scans for networks through the controller, lets the user pick
// one, asks for its password and provisions the controller.
type WiFiModel struct {
	Target   Target
	Step     WiFiStep
	Networks []client.Network
	Cursor   int
	SSID     string
	Password textinput.Model
	Spinner  spinner.Model
	Message  string
	Err      error

	ctrl       Controller
	chooseKeys chooseKeyMap
	backKeys   backKeyMap
}

// NewWiFiModel creates the provisioning screen for target.
func NewWiFiModel(target Target, ctrl Controller) WiFiModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	pw := textinput.New()
	pw.Placeholder = "password"
	pw.EchoMode = textinput.EchoPassword
	pw.EchoCharacter = '•'
	pw.CharLimit = 64
	pw.Width = 40

	return WiFiModel{
		Target:   target,
		Step:     StepScanning,
		Password: pw,
		Spinner:  s,
		ctrl:     ctrl,
		chooseKeys: chooseKeyMap{
			Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
			Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
			Select: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
			Rescan: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
			Back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		},
		backKeys: newBackKeys(),
	}
}

// Init starts the first scan.
func (m WiFiModel) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, m.scan())
}

// Keys returns the bindings for the current step.
func (m WiFiModel) Keys() help.KeyMap {
	if m.Step == StepChoose {
		return m.chooseKeys
	}
	return m.backKeys
}

func (m WiFiModel) scan() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		networks, err := ctrl.Scan(ctx)
		return networksMsg{networks: networks, err: err}
	}
}

func (m WiFiModel) provision(ssid, password string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		message, err := ctrl.ProvisionWiFi(ctx, ssid, password)
		return provisionedMsg{message: message, err: err}
	}
}

// Update handles provisioning messages.
func (m WiFiModel) Update(msg tea.Msg) (WiFiModel, tea.Cmd) {
	switch msg := msg.(type) {
	case networksMsg:
		m.Err = msg.err
		m.Networks = msg.networks
		m.Cursor = 0
		m.Step = StepChoose
		return m, nil

	case provisionedMsg:
		if msg.err != nil {
			m.Err = msg.err
			m.Step = StepFailed
			return m, nil
		}
		m.Message = msg.message
		m.Step = StepDone
		return m, nil

	case spinner.TickMsg:
		if m.Step != StepScanning && m.Step != StepProvisioning {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m WiFiModel) updateKeys(msg tea.KeyMsg) (WiFiModel, tea.Cmd) {
	switch m.Step {
	case StepChoose:
		switch msg.String() {
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.Networks)-1 {
				m.Cursor++
			}
		case "r":
			m.Step = StepScanning
			m.Err = nil
			return m, tea.Batch(m.Spinner.Tick, m.scan())
		case "enter":
			if len(m.Networks) == 0 {
				return m, nil
			}
			n := m.Networks[m.Cursor]
			m.SSID = n.SSID
			if n.Security == "Open" {
				return m.submit("")
			}
			m.Step = StepPassword
			m.Password.SetValue("")
			return m, m.Password.Focus()
		case "esc":
			t := m.Target
			return m, transition(ScreenDashboard, &t)
		}
		return m, nil

	case StepPassword:
		switch msg.String() {
		case "esc":
			m.Password.Blur()
			m.Step = StepChoose
			return m, nil
		case "enter":
			return m.submit(m.Password.Value())
		}
		var cmd tea.Cmd
		m.Password, cmd = m.Password.Update(msg)
		return m, cmd

	case StepFailed:
		if msg.String() == "esc" {
			m.Step = StepChoose
			m.Err = nil
		}
		return m, nil

	case StepDone:
		if msg.String() == "esc" || msg.String() == "enter" {
			return m, transition(ScreenDiscovery, nil)
		}
	}
	return m, nil
}

func (m WiFiModel) submit(password string) (WiFiModel, tea.Cmd) {
	m.Password.Blur()
	m.Step = StepProvisioning
	m.Err = nil
	return m, tea.Batch(m.Spinner.Tick, m.provision(m.SSID, password))
}

// View renders the provisioning screen.
func (m WiFiModel) View() string {
	var b strings.Builder
	b.WriteString(RenderTitle("Wi-Fi setup  " + SubtitleStyle.Render(m.Target.Address())))
	b.WriteString("\n")

	switch m.Step {
	case StepScanning:
		b.WriteString(m.Spinner.View() + " Scanning for networks...\n")

	case StepChoose:
		if len(m.Networks) == 0 && m.Err == nil {
			b.WriteString(WarningStyle.Render("  No networks found. Press r to rescan."))
			b.WriteString("\n")
		}
		for i, n := range m.Networks {
			line := fmt.Sprintf("%-32s %s  ch %-2d %s", n.SSID, SignalIndicator(n.RSSI), n.Channel, n.Security)
			if i == m.Cursor {
				b.WriteString(SelectedMenuItemStyle.Render("→ " + line))
			} else {
				b.WriteString(MenuItemStyle.Render("  " + line))
			}
			b.WriteString("\n")
		}

	case StepPassword:
		b.WriteString(fmt.Sprintf("  Network:  %s\n", m.SSID))
		b.WriteString("  Password: " + m.Password.View() + "\n")

	case StepProvisioning:
		b.WriteString(m.Spinner.View() + fmt.Sprintf(" Sending credentials for %s...\n", m.SSID))

	case StepDone:
		b.WriteString(SuccessBoxStyle.Render(fmt.Sprintf("✓ %s\n\nThe controller is restarting onto %s.\n"+
			"Reconnect this computer to %s, then press enter to find it.", m.Message, m.SSID, m.SSID)))
		b.WriteString("\n")
	}

	if m.Err != nil {
		b.WriteString("\n" + RenderError(m.Err) + "\n")
	}
	return b.String()
}
