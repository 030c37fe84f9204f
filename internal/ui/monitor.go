package ui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/InnovationGarageLM/sphero-sprk/internal/robot"
	"github.com/InnovationGarageLM/sphero-sprk/internal/session"
)

const (
	// DefaultStaleAfter is how long a group may go without a sample before
	// it is greyed out
	DefaultStaleAfter = 2 * time.Second

	maxOrbBasicLines = 5
	refreshInterval  = 500 * time.Millisecond
)

// Messages delivered to the monitor
type (
	sampleMsg   robot.Sample
	orbBasicMsg session.OrbBasicMessage
	refreshMsg  time.Time
	streamEnded struct{}
)

// MonitorConfig describes what the live monitor shows
type MonitorConfig struct {
	Robot      string                         // Robot name for the header
	Rate       int                            // Streaming rate in Hz
	Samples    <-chan robot.Sample            // Decoded samples; closing it ends the stream
	OrbBasic   <-chan session.OrbBasicMessage // Optional orbBasic output
	StaleAfter time.Duration
}

// monitorKeyMap defines key bindings for the monitor screen
type monitorKeyMap struct {
	Pause key.Binding
	Clear key.Binding
	Quit  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k monitorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Clear, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k monitorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Pause, k.Clear, k.Quit}}
}

// MonitorModel shows the latest sample of every streamed group
type MonitorModel struct {
	config MonitorConfig

	latest   map[string]robot.Sample
	groups   []string // Sorted group names
	orbLines []session.OrbBasicMessage
	count    uint64
	paused   bool
	ended    bool

	Width  int
	Height int

	spinner spinner.Model
	help    help.Model
	keys    monitorKeyMap
	now     func() time.Time
}

// NewMonitorModel creates a monitor for the given stream
func NewMonitorModel(config MonitorConfig) MonitorModel {
	if config.StaleAfter <= 0 {
		config.StaleAfter = DefaultStaleAfter
	}
	width, height := GetTerminalSize()

	return MonitorModel{
		config: config,
		latest: make(map[string]robot.Sample),
		Width:  width,
		Height: height,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(SpinnerStyle),
		),
		help: help.New(),
		keys: monitorKeyMap{
			Pause: key.NewBinding(
				key.WithKeys("p", " "),
				key.WithHelp("p", "pause"),
			),
			Clear: key.NewBinding(
				key.WithKeys("c"),
				key.WithHelp("c", "clear"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q", "esc", "ctrl+c"),
				key.WithHelp("q", "quit"),
			),
		},
		now: time.Now,
	}
}

// Init implements tea.Model
func (m MonitorModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, waitForSample(m.config.Samples), refresh()}
	if m.config.OrbBasic != nil {
		cmds = append(cmds, waitForOrbBasic(m.config.OrbBasic))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Clear):
			m.latest = make(map[string]robot.Sample)
			m.groups = nil
			m.orbLines = nil
			m.count = 0
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.Width = clampWidth(msg.Width)
		m.Height = msg.Height
		return m, nil

	case sampleMsg:
		m.record(robot.Sample(msg))
		return m, waitForSample(m.config.Samples)

	case orbBasicMsg:
		if !m.paused {
			m.orbLines = append(m.orbLines, session.OrbBasicMessage(msg))
			if len(m.orbLines) > maxOrbBasicLines {
				m.orbLines = m.orbLines[len(m.orbLines)-maxOrbBasicLines:]
			}
		}
		return m, waitForOrbBasic(m.config.OrbBasic)

	case streamEnded:
		m.ended = true
		return m, nil

	case refreshMsg:
		return m, refresh()

	case spinner.TickMsg:
		if m.ended || m.paused {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *MonitorModel) record(s robot.Sample) {
	m.count++
	if m.paused {
		return
	}
	if _, seen := m.latest[s.Group]; !seen {
		m.groups = append(m.groups, s.Group)
		sort.Strings(m.groups)
	}
	m.latest[s.Group] = s
}

// Count returns the number of samples received
func (m MonitorModel) Count() uint64 {
	return m.count
}

// View implements tea.Model
func (m MonitorModel) View() string {
	var b strings.Builder

	status := m.spinner.View() + " streaming"
	switch {
	case m.ended:
		status = FailureMarker + " stream ended"
	case m.paused:
		status = "‖ paused"
	}
	title := HeaderTitleStyle.Render(strings.ToUpper(m.config.Robot))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", status))
	b.WriteString("\n")
	b.WriteString(StatusBarStyle.Render(fmt.Sprintf("%d Hz · %d samples", m.config.Rate, m.count)))
	b.WriteString("\n\n")

	if len(m.groups) == 0 {
		b.WriteString(StatusBarStyle.Render("Waiting for sensor data..."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.renderTable())
		b.WriteString("\n")
	}

	if len(m.orbLines) > 0 {
		b.WriteString("\n")
		b.WriteString(TroubleshootingTitleStyle.Render("  orbBasic"))
		b.WriteString("\n")
		for _, line := range m.orbLines {
			if line.Error {
				b.WriteString(OrbBasicErrorStyle.Render(line.Text))
			} else {
				b.WriteString(OrbBasicLineStyle.Render(line.Text))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// renderTable draws one row per group with its fields and sample age
func (m MonitorModel) renderTable() string {
	now := m.now()
	rows := make([][]string, 0, len(m.groups))
	stale := make([]bool, 0, len(m.groups))

	for _, name := range m.groups {
		s := m.latest[name]
		age := now.Sub(s.Time)
		rows = append(rows, []string{name, formatValues(s), formatAge(age)})
		stale = append(stale, age > m.config.StaleAfter)
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(MutedColor)).
		Width(m.Width).
		Headers("Group", "Values", "Age").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row >= 0 && row < len(stale) && stale[row]:
				return StaleCellStyle
			default:
				return TableCellStyle
			}
		}).
		Render()
}

func formatValues(s robot.Sample) string {
	parts := make([]string, len(s.Values))
	for i, v := range s.Values {
		name := fmt.Sprintf("v%d", i)
		if i < len(s.Fields) {
			name = s.Fields[i]
		}
		parts[i] = fmt.Sprintf("%s=%d", name, v)
	}
	return strings.Join(parts, "  ")
}

func formatAge(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(100 * time.Millisecond).String()
}

func waitForSample(ch <-chan robot.Sample) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return streamEnded{}
		}
		return sampleMsg(s)
	}
}

func waitForOrbBasic(ch <-chan session.OrbBasicMessage) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return orbBasicMsg(msg)
	}
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// RunMonitor shows the live monitor until the user quits or ctx is done
func RunMonitor(ctx context.Context, config MonitorConfig) error {
	p := tea.NewProgram(NewMonitorModel(config),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}
