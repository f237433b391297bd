package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/infrasim/pkg/simulation"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			MarginLeft(2).
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#04B575")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#04B575")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#F25D94")).
			Padding(0, 2).
			MarginRight(2)

	breachStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA00"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#F25D94"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

// speeds are the tick intervals the +/- keys step through.
var speeds = []time.Duration{
	time.Second,
	500 * time.Millisecond,
	250 * time.Millisecond,
	100 * time.Millisecond,
	50 * time.Millisecond,
}

type view int

const (
	nodesView view = iota
	incidentsView
	alertsView
)

var viewNames = []string{"Nodes", "Incidents", "Alerts"}

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Pause    key.Binding
	Step     key.Binding
	Faster   key.Binding
	Slower   key.Binding
	Up       key.Binding
	Down     key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next view"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev view"),
	),
	Pause: key.NewBinding(
		key.WithKeys(" ", "p"),
		key.WithHelp("space", "pause/resume"),
	),
	Step: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "step one tick"),
	),
	Faster: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "faster"),
	),
	Slower: key.NewBinding(
		key.WithKeys("-"),
		key.WithHelp("-", "slower"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Faster, k.Slower, k.Tab, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab},
		{k.Pause, k.Step, k.Faster, k.Slower},
		{k.Up, k.Down, k.Quit},
	}
}

type model struct {
	engine      *simulation.Engine
	seed        int64
	frame       simulation.Frame
	summary     simulation.Summary
	history     []simulation.Frame
	currentView view
	speed       int
	nodeTable   table.Model
	help        help.Model
	keys        keyMap
	width       int
	height      int
	// gen invalidates tick messages scheduled before a pause or speed change
	gen int
}

// tickMsg carries the generation that scheduled it; stale ones are dropped.
type tickMsg int

func (m model) tickCmd() tea.Cmd {
	gen := m.gen
	return tea.Tick(speeds[m.speed], func(time.Time) tea.Msg {
		return tickMsg(gen)
	})
}

func initialModel(engine *simulation.Engine, seed int64, speed int) model {
	columns := []table.Column{
		{Title: "Node", Width: 18},
		{Title: "Kind", Width: 10},
		{Title: "Load", Width: 9},
		{Title: "Util", Width: 7},
		{Title: "Latency", Width: 10},
		{Title: "Storage", Width: 9},
		{Title: "Status", Width: 9},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(len(engine.Level().Nodes)+1),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#04B575")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#7D56F4")).
		Bold(false)
	t.SetStyles(s)

	m := model{
		engine:    engine,
		seed:      seed,
		frame:     engine.Snapshot(),
		speed:     clampSpeed(speed),
		nodeTable: t,
		help:      help.New(),
		keys:      keys,
	}
	m.nodeTable.SetRows(nodeRows(m.frame))
	return m
}

func clampSpeed(s int) int {
	return max(0, min(s, len(speeds)-1))
}

func (m model) Init() tea.Cmd {
	return m.tickCmd()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		if int(msg) != m.gen || m.engine.Paused() {
			return m, nil
		}
		m.advance()
		return m, m.tickCmd()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.currentView = (m.currentView + 1) % view(len(viewNames))

		case key.Matches(msg, m.keys.ShiftTab):
			m.currentView = (m.currentView + view(len(viewNames)) - 1) % view(len(viewNames))

		case key.Matches(msg, m.keys.Pause):
			m.gen++
			if m.engine.Paused() {
				m.engine.Resume()
				return m, m.tickCmd()
			}
			m.engine.Pause()
			return m, nil

		case key.Matches(msg, m.keys.Step):
			if m.engine.Paused() {
				m.advance()
			}
			return m, nil

		case key.Matches(msg, m.keys.Faster), key.Matches(msg, m.keys.Slower):
			next := m.speed + 1
			if key.Matches(msg, m.keys.Slower) {
				next = m.speed - 1
			}
			m.speed = clampSpeed(next)
			m.gen++
			if m.engine.Paused() {
				return m, nil
			}
			return m, m.tickCmd()
		}
	}

	if m.currentView == nodesView {
		m.nodeTable, cmd = m.nodeTable.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// advance runs one tick and folds it into the model. Only the summary is
// kept for the whole run; the frame history is bounded.
func (m *model) advance() {
	m.frame = m.engine.Tick()
	m.history = append(m.history, m.frame)
	if len(m.history) > historyLen {
		m.history = m.history[len(m.history)-historyLen:]
	}
	m.summary = mergeSummary(m.summary, m.frame)
	m.nodeTable.SetRows(nodeRows(m.frame))
}

const historyLen = 60

func mergeSummary(acc simulation.Summary, f simulation.Frame) simulation.Summary {
	one := simulation.Summarize([]simulation.Frame{f})
	if acc.Alerts == nil {
		acc.Alerts = make(map[string]int)
		acc.PeakUtilization = make(map[string]float64)
	}
	acc.Ticks += one.Ticks
	acc.JobFirings += one.JobFirings
	acc.IncidentStarts += one.IncidentStarts
	for k, v := range one.Alerts {
		acc.Alerts[k] += v
	}
	for id, u := range one.PeakUtilization {
		acc.PeakUtilization[id] = max(acc.PeakUtilization[id], u)
	}
	if acc.FirstFailureTick == 0 && one.FirstFailureTick != 0 {
		acc.FirstFailureTick = one.FirstFailureTick
	}
	return acc
}

func nodeRows(f simulation.Frame) []table.Row {
	rows := make([]table.Row, 0, len(f.Nodes))
	for _, n := range f.Nodes {
		storage := "-"
		if n.StorageUsage > 0 {
			storage = fmt.Sprintf("%.1f", n.StorageUsage)
		}
		rows = append(rows, table.Row{
			n.ID,
			n.Kind.String(),
			fmt.Sprintf("%.1f", n.Load),
			fmt.Sprintf("%.0f%%", 100*n.Utilization),
			fmt.Sprintf("%.1fms", n.LatencyMs),
			storage,
			n.Status.String(),
		})
	}
	return rows
}

func (m model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("infrasim - " + levelTitle(m.engine)))
	s.WriteString("\n\n")
	s.WriteString(m.renderStatus())
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch m.currentView {
	case nodesView:
		s.WriteString(contentStyle.Render(m.nodeTable.View()))
	case incidentsView:
		s.WriteString(m.renderIncidents())
	case alertsView:
		s.WriteString(m.renderAlerts())
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))

	return s.String()
}

func levelTitle(e *simulation.Engine) string {
	if name := e.Level().Name; name != "" {
		return name
	}
	return e.Level().ID
}

func (m model) renderStatus() string {
	state := okStyle.Render("running")
	if m.engine.Paused() {
		state = warningStyle.Render("paused")
	}

	failure := okStyle.Render("none")
	if m.summary.FirstFailureTick > 0 {
		failure = breachStyle.Render(fmt.Sprintf("tick %d", m.summary.FirstFailureTick))
	}

	left := fmt.Sprintf("Tick:      %d\nState:     %s\nSpeed:     %s/tick\nSeed:      %d",
		m.frame.Tick, state, speeds[m.speed], m.seed)
	right := fmt.Sprintf("Jobs fired:      %d\nIncidents:       %d\nFirst failure:   %s\nDegraded now:    %d",
		m.summary.JobFirings, m.summary.IncidentStarts, failure, len(m.frame.Degraded))

	return contentStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top,
		statsBoxStyle.Render(left), statsBoxStyle.Render(right)))
}

func (m model) renderTabs() string {
	var rendered []string
	for i, name := range viewNames {
		if view(i) == m.currentView {
			rendered = append(rendered, activeTabStyle.Render(name))
		} else {
			rendered = append(rendered, inactiveTabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m model) renderIncidents() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("Incidents"))
	s.WriteString("\n\n")

	if len(m.frame.Incidents) == 0 {
		s.WriteString("This level defines no incidents.")
		return contentStyle.Render(s.String())
	}

	for _, inc := range m.frame.Incidents {
		line := fmt.Sprintf("%-24s %-12s %-9s seen %d", inc.ID, inc.Type, inc.Phase, inc.Occurrences)
		switch inc.Phase {
		case simulation.Active:
			line = breachStyle.Render(line + fmt.Sprintf("  active since %d", inc.ActiveSince))
		case simulation.Warning:
			line = warningStyle.Render(line + fmt.Sprintf("  warned at %d", inc.TriggeredAt))
		}
		s.WriteString(line + "\n")
	}
	return contentStyle.Render(s.String())
}

func (m model) renderAlerts() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render(fmt.Sprintf("Alerts (last %d ticks)", historyLen)))
	s.WriteString("\n\n")

	quiet := true
	for i := len(m.history) - 1; i >= 0; i-- {
		f := m.history[i]
		for _, a := range f.Alerts {
			line := fmt.Sprintf("tick %-6d %-18s %-10s %.2f", f.Tick, a.NodeID, a.Kind, a.Value)
			if a.Severity == simulation.SeverityBreach {
				line = breachStyle.Render(line)
			} else {
				line = warningStyle.Render(line)
			}
			s.WriteString(line + "\n")
			quiet = false
		}
	}
	if quiet {
		s.WriteString(okStyle.Render("All quiet."))
	}
	return contentStyle.Render(s.String())
}
