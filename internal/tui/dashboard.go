package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/evigo/internal/protocol"
)

// Messages delivered from the session goroutine via Program.Send

// StatusMsg updates the handshake progress line.
type StatusMsg string

// ConnectedMsg marks the handshake complete.
type ConnectedMsg struct {
	Email  string
	Device string
}

// UpdateMsg carries one decoded telemetry sample.
type UpdateMsg struct {
	Update *protocol.WidgetUpdate
}

// DoneMsg ends the dashboard. Err is nil for a clean shutdown.
type DoneMsg struct {
	Err error
}

// keyMap holds the dashboard key bindings.
type keyMap struct {
	Quit key.Binding
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Quit}}
}

var dashboardKeys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// widgetRow is the latest value seen for one widget.
type widgetRow struct {
	name    string
	value   string
	updated time.Time
}

// DashboardModel renders live telemetry for one charger.
type DashboardModel struct {
	Spinner spinner.Model
	Help    help.Model

	keys keyMap

	status    string
	connected bool
	email     string
	device    string

	rows map[string]*widgetRow

	updates int
	err     error
	done    bool

	width int
}

// NewDashboard creates the dashboard in its connecting state.
func NewDashboard() DashboardModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	return DashboardModel{
		Spinner: sp,
		Help:    help.New(),
		keys:    dashboardKeys,
		status:  "connecting",
		rows:    make(map[string]*widgetRow),
	}
}

// Init implements tea.Model
func (m DashboardModel) Init() tea.Cmd {
	return m.Spinner.Tick
}

// Update implements tea.Model
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.Help.Width = msg.Width

	case StatusMsg:
		m.status = string(msg)

	case ConnectedMsg:
		m.connected = true
		m.email = msg.Email
		m.device = msg.Device
		m.status = "streaming"

	case UpdateMsg:
		upd := msg.Update
		m.updates++
		key := upd.WidgetName
		if key == protocol.UnknownWidget {
			key = fmt.Sprintf("%s #%s", protocol.UnknownWidget, upd.WidgetID)
		}
		m.rows[key] = &widgetRow{name: key, value: upd.Value, updated: time.Now()}

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model
func (m DashboardModel) View() string {
	var b strings.Builder

	title := "EVIGO LIVE STATUS"
	if m.device != "" {
		title = fmt.Sprintf("EVIGO LIVE STATUS - %s", m.device)
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n")

	if !m.connected {
		b.WriteString(fmt.Sprintf("%s %s\n", m.Spinner.View(), StatusStyle.Render(m.status)))
		return BoxStyle.Render(b.String())
	}

	b.WriteString(StatusStyle.Render(fmt.Sprintf("%s · %d updates", m.email, m.updates)))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(fmt.Sprintf("%s %s\n", m.Spinner.View(),
			StatusStyle.Render("waiting for telemetry")))
	} else {
		names := make([]string, 0, len(m.rows))
		for name := range m.rows {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			row := m.rows[name]
			b.WriteString(fmt.Sprintf("%s%s  %s\n",
				WidgetNameStyle.Render(row.name),
				WidgetValueStyle.Render(row.value),
				TimestampStyle.Render(row.updated.Format("15:04:05")),
			))
		}
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("session ended: %v", m.err)))
	}

	b.WriteString("\n")
	b.WriteString(m.Help.View(m.keys))

	return BoxStyle.Render(b.String())
}

// Err returns the session error that ended the dashboard, if any.
func (m DashboardModel) Err() error {
	return m.err
}
