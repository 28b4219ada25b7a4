package tui

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/monitorminer/internal/client"
	"github.com/muurk/monitorminer/internal/discovery"
)

// Screen represents the current active screen in the application
type Screen string

const (
	ScreenDiscovery Screen = "discovery"
	ScreenDashboard Screen = "dashboard"
	ScreenWiFi      Screen = "wifi"
)

// RequestTimeout bounds every call the wizard makes to a controller.
const RequestTimeout = 10 * time.Second

// Controller is the subset of the controller API the wizard drives.
// *client.Client implements it.
type Controller interface {
	Status(ctx context.Context) (*client.Status, error)
	Sensors(ctx context.Context) (*client.Snapshot, error)
	Relays(ctx context.Context) ([]client.RelayStatus, error)
	SetRelay(ctx context.Context, id int, action string) (*client.RelayAction, error)
	Scan(ctx context.Context) ([]client.Network, error)
	ProvisionWiFi(ctx context.Context, ssid, password string) (string, error)
}

// Options wires the wizard to the outside world.
type Options struct {
	// Discover finds controllers on the local network.
	Discover func(ctx context.Context) ([]*discovery.Device, error)
	// Connect returns a Controller for host:port.
	Connect func(host string, port int) Controller
	// Target skips discovery and opens the dashboard for this controller.
	Target *Target
}

// Target is the controller the wizard is talking to.
type Target struct {
	Label string
	Host  string
	Port  int
}

// Address returns host:port.
func (t Target) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// SetupTarget is the controller as seen from its own setup network.
func SetupTarget() Target {
	return Target{Label: "Setup network", Host: client.SetupAddress, Port: client.DefaultPort}
}

// TargetFromDevice converts a discovered controller.
func TargetFromDevice(d *discovery.Device) Target {
	return Target{Label: d.Instance, Host: d.IP, Port: d.Port}
}

type screenTransitionMsg struct {
	screen Screen
	target *Target
}

func transition(screen Screen, target *Target) tea.Cmd {
	return func() tea.Msg { return screenTransitionMsg{screen: screen, target: target} }
}

// backKeyMap is shared by screens whose only global keys are back and quit.
type backKeyMap struct {
	Back key.Binding
	Quit key.Binding
}

func newBackKeys() backKeyMap {
	return backKeyMap{
		Back: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Quit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k backKeyMap) ShortHelp() []key.Binding  { return []key.Binding{k.Back, k.Quit} }
func (k backKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

// AppModel is the top-level coordinator model that manages screen transitions
type AppModel struct {
	CurrentScreen Screen
	Target        *Target

	Discovery DiscoveryModel
	Dashboard DashboardModel
	WiFi      WiFiModel

	opts   Options
	Width  int
	Height int
	Help   help.Model
}

// NewAppModel creates the wizard. It starts on the dashboard when
// opts.Target is set, otherwise on discovery.
func NewAppModel(opts Options) AppModel {
	m := AppModel{opts: opts, Help: help.New(), Width: MinTerminalWidth}
	if opts.Target != nil {
		m.CurrentScreen = ScreenDashboard
		m.Target = opts.Target
		m.Dashboard = NewDashboardModel(*opts.Target, opts.Connect(opts.Target.Host, opts.Target.Port))
	} else {
		m.CurrentScreen = ScreenDiscovery
		m.Discovery = NewDiscoveryModel(opts.Discover)
	}
	return m
}

// Init initializes the application
func (m AppModel) Init() tea.Cmd {
	switch m.CurrentScreen {
	case ScreenDashboard:
		return m.Dashboard.Init()
	default:
		return m.Discovery.Init()
	}
}

// Update handles all messages and routes them to the appropriate screen
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		if m.CurrentScreen == ScreenDiscovery {
			m.Discovery.SetSize(msg.Width, msg.Height)
		}

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case screenTransitionMsg:
		return m.transitionTo(msg.screen, msg.target)
	}

	return m.updateCurrentScreen(msg)
}

func (m AppModel) updateCurrentScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.CurrentScreen {
	case ScreenDiscovery:
		m.Discovery, cmd = m.Discovery.Update(msg)
	case ScreenDashboard:
		m.Dashboard, cmd = m.Dashboard.Update(msg)
	case ScreenWiFi:
		m.WiFi, cmd = m.WiFi.Update(msg)
	}
	return m, cmd
}

func (m AppModel) transitionTo(screen Screen, target *Target) (tea.Model, tea.Cmd) {
	if target != nil {
		m.Target = target
	}

	switch screen {
	case ScreenDiscovery:
		if m.opts.Discover == nil {
			return m, tea.Quit
		}
		m.CurrentScreen = screen
		m.Discovery = NewDiscoveryModel(m.opts.Discover)
		m.Discovery.SetSize(m.Width, m.Height)
		return m, m.Discovery.Init()

	case ScreenDashboard:
		if m.Target == nil {
			return m, nil
		}
		m.CurrentScreen = screen
		m.Dashboard = NewDashboardModel(*m.Target, m.opts.Connect(m.Target.Host, m.Target.Port))
		return m, m.Dashboard.Init()

	case ScreenWiFi:
		if m.Target == nil {
			return m, nil
		}
		m.CurrentScreen = screen
		m.WiFi = NewWiFiModel(*m.Target, m.opts.Connect(m.Target.Host, m.Target.Port))
		return m, m.WiFi.Init()
	}
	return m, nil
}

// View renders the current screen
func (m AppModel) View() string {
	var content, helpText string
	switch m.CurrentScreen {
	case ScreenDiscovery:
		content, helpText = m.Discovery.View(), m.Help.View(m.Discovery.Keys())
	case ScreenDashboard:
		content, helpText = m.Dashboard.View(), m.Help.View(m.Dashboard.Keys)
	case ScreenWiFi:
		content, helpText = m.WiFi.View(), m.Help.View(m.WiFi.Keys())
	default:
		content = fmt.Sprintf("Unknown screen %q", m.CurrentScreen)
	}
	return RenderApplicationContainer(content, helpText, m.Width, m.Height)
}

// Run starts the wizard full-screen and blocks until it exits.
func Run(opts Options) error {
	_, err := tea.NewProgram(NewAppModel(opts), tea.WithAltScreen()).Run()
	return err
}

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), RequestTimeout)
}
