package tui

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/monitorminer/internal/client"
	"github.com/muurk/monitorminer/internal/discovery"
)

type scanCompleteMsg struct {
	devices []*discovery.Device
	err     error
}

type discoveryKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Rescan key.Binding
	Manual key.Binding
	Quit   key.Binding
}

func (k discoveryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Rescan, k.Manual, k.Quit}
}

func (k discoveryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Enter}, {k.Rescan, k.Manual, k.Quit}}
}

type manualModeKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

func (k manualModeKeyMap) ShortHelp() []key.Binding  { return []key.Binding{k.Confirm, k.Cancel} }
func (k manualModeKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

// targetItem adapts a Target for bubbles/list.
type targetItem struct {
	target  Target
	version string
}

func (t targetItem) FilterValue() string { return t.target.Label + " " + t.target.Host }
func (t targetItem) Title() string       { return t.target.Label }

func (t targetItem) Description() string {
	desc := t.target.Address()
	if t.version != "" {
		desc += " • Firmware: " + t.version
	}
	return desc
}

// DiscoveryModel lists controllers found over mDNS. The setup network
// address is always offered first so an unprovisioned controller can be
// reached without discovery.
type DiscoveryModel struct {
	Scanning   bool
	Devices    list.Model
	Err        error
	ManualMode bool
	IPInput    textinput.Model
	Spinner    spinner.Model

	discover   func(ctx context.Context) ([]*discovery.Device, error)
	startedAt  time.Time
	keys       discoveryKeyMap
	manualKeys manualModeKeyMap
}

// NewDiscoveryModel creates the discovery screen.
func NewDiscoveryModel(discover func(ctx context.Context) ([]*discovery.Device, error)) DiscoveryModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	ipInput := textinput.New()
	ipInput.Placeholder = client.SetupAddress
	ipInput.CharLimit = 15
	ipInput.Width = 30

	devices := list.New(nil, list.NewDefaultDelegate(), MinTerminalWidth-8, 14)
	devices.Title = "Controllers"
	devices.SetShowStatusBar(false)
	devices.SetFilteringEnabled(false)
	devices.SetShowHelp(false)
	devices.Styles.Title = TitleStyle

	m := DiscoveryModel{
		Devices:  devices,
		IPInput:  ipInput,
		Spinner:  s,
		discover: discover,
		keys: discoveryKeyMap{
			Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
			Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
			Enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
			Rescan: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
			Manual: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "manual IP")),
			Quit:   key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),
		},
		manualKeys: manualModeKeyMap{
			Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
			Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		},
	}
	m.setItems(nil)
	return m
}

// Init starts the first scan.
func (m DiscoveryModel) Init() tea.Cmd {
	return m.startScan()
}

// Keys returns the bindings for the current mode.
func (m DiscoveryModel) Keys() help.KeyMap {
	if m.ManualMode {
		return m.manualKeys
	}
	return m.keys
}

// SetSize resizes the device list.
func (m *DiscoveryModel) SetSize(width, height int) {
	if width > 8 {
		m.Devices.SetWidth(width - 8)
	}
	if height > 12 {
		m.Devices.SetHeight(height - 12)
	}
}

func (m *DiscoveryModel) startScan() tea.Cmd {
	m.Scanning = true
	m.Err = nil
	m.startedAt = time.Now()
	discover := m.discover
	return tea.Batch(m.Spinner.Tick, func() tea.Msg {
		if discover == nil {
			return scanCompleteMsg{}
		}
		devices, err := discover(context.Background())
		return scanCompleteMsg{devices: devices, err: err}
	})
}

func (m *DiscoveryModel) setItems(devices []*discovery.Device) {
	items := []list.Item{targetItem{target: SetupTarget()}}
	for _, d := range devices {
		items = append(items, targetItem{target: TargetFromDevice(d), version: d.Version})
	}
	m.Devices.SetItems(items)
}

// Update handles discovery messages.
func (m DiscoveryModel) Update(msg tea.Msg) (DiscoveryModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case scanCompleteMsg:
		m.Scanning = false
		m.Err = msg.err
		m.setItems(msg.devices)
		return m, nil

	case spinner.TickMsg:
		if !m.Scanning {
			return m, nil
		}
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.ManualMode {
			return m.updateManualMode(msg)
		}
		switch msg.String() {
		case "q", "esc":
			return m, tea.Quit
		case "enter":
			if item, ok := m.Devices.SelectedItem().(targetItem); ok {
				t := item.target
				return m, transition(ScreenDashboard, &t)
			}
			return m, nil
		case "r":
			if !m.Scanning {
				return m, m.startScan()
			}
			return m, nil
		case "m":
			m.ManualMode = true
			m.IPInput.SetValue("")
			return m, m.IPInput.Focus()
		}
	}

	m.Devices, cmd = m.Devices.Update(msg)
	return m, cmd
}

func (m DiscoveryModel) updateManualMode(msg tea.KeyMsg) (DiscoveryModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.ManualMode = false
		m.IPInput.Blur()
		return m, nil

	case "enter":
		value := strings.TrimSpace(m.IPInput.Value())
		if net.ParseIP(value) == nil {
			m.Err = client.NewValidationError(fmt.Sprintf("%q is not an IP address", value))
			return m, nil
		}
		m.ManualMode = false
		m.IPInput.Blur()
		m.Err = nil
		t := Target{Label: "Manual: " + value, Host: value, Port: client.DefaultPort}
		return m, transition(ScreenDashboard, &t)
	}

	var cmd tea.Cmd
	m.IPInput, cmd = m.IPInput.Update(msg)
	return m, cmd
}

// View renders the discovery screen.
func (m DiscoveryModel) View() string {
	var b strings.Builder

	switch {
	case m.ManualMode:
		b.WriteString(RenderTitle("Enter controller IP address"))
		b.WriteString("\n  IP Address: ")
		b.WriteString(m.IPInput.View())
		b.WriteString("\n")
	case m.Scanning:
		b.WriteString(RenderTitle(m.Spinner.View() + " Searching for controllers"))
		b.WriteString(SubtitleStyle.Render(fmt.Sprintf("  Browsing mDNS for %s... %ds",
			discovery.ServiceType, int(time.Since(m.startedAt).Seconds()))))
		b.WriteString("\n")
	default:
		b.WriteString(m.Devices.View())
		if len(m.Devices.Items()) == 1 {
			b.WriteString("\n")
			b.WriteString(WarningStyle.Render("  No controllers found on this network."))
			b.WriteString("\n")
			b.WriteString(SubtitleStyle.Render("  A new controller serves the " +
				"MonitorMiner_Setup network; join it and open \"Setup network\"."))
		}
	}

	if m.Err != nil {
		b.WriteString("\n\n")
		b.WriteString(RenderError(m.Err))
	}
	return b.String()
}
