// Package tui provides the Bubble Tea interface for the Pomodoro timer.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/tomato/internal/settings"
	"github.com/fakeyudi/tomato/internal/timer"
)

// ── Styles ────────────

var (
	// Title bar at the very top
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	tabSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Background(lipgloss.Color("235"))

	clockStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(1, 4)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("237"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)
)

// Phase colours: rose for work, emerald for short breaks, blue for long breaks.
var phaseColors = map[timer.Phase]lipgloss.Color{
	timer.PhaseWork:       lipgloss.Color("#E11D48"),
	timer.PhaseShortBreak: lipgloss.Color("#059669"),
	timer.PhaseLongBreak:  lipgloss.Color("#2563EB"),
}

func badge(text string, bg lipgloss.Color) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15")).
		Background(bg).
		Padding(0, 1).
		Render(text)
}

// ── Keys ─────────────────

type keyMap struct {
	Toggle, Reset, Settings, Quit key.Binding
	Work, Short, Long           key.Binding
	NextTab, PrevTab            key.Binding
	Up, Down, Inc, Dec, Close   key.Binding
}

var keys = keyMap{
	Toggle:   key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "start/pause")),
	Reset:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
	Settings: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "settings")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Work:     key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "work")),
	Short:    key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "short break")),
	Long:     key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "long break")),
	NextTab:  key.NewBinding(key.WithKeys("tab", "l", "right"), key.WithHelp("←/→", "mode")),
	PrevTab:  key.NewBinding(key.WithKeys("shift+tab", "h", "left")),
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/↓", "select")),
	Down:     key.NewBinding(key.WithKeys("down", "j")),
	Inc:      key.NewBinding(key.WithKeys("right", "l", "+"), key.WithHelp("←/→", "adjust")),
	Dec:      key.NewBinding(key.WithKeys("left", "h", "-")),
	Close:    key.NewBinding(key.WithKeys("esc", "s"), key.WithHelp("esc", "close")),
}

func helpLine(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return "  " + strings.Join(parts, "  ")
}

// ── Messages ─────────────────

// tickMsg carries the generation of the tick chain that produced it. Ticks
// from an older generation are dropped, so at most one chain is ever live.
type tickMsg struct {
	gen int
}

// SettingsMsg delivers reloaded settings (for example from a config file
// watcher) to a running program.
type SettingsMsg timer.Config

// ── Model ────────────────────

// Model is the root Bubble Tea model for the timer.
type Model struct {
	machine      *timer.Machine
	interval     time.Duration
	gen          int
	progress     progress.Model
	width        int
	height       int
	settingsOpen bool
	cursor       int
	err          error
}

// New creates a TUI model driving machine. The model owns the machine from now on.
func New(machine *timer.Machine) Model {
	return Model{
		machine:  machine,
		interval: time.Second,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd {
	if m.machine.State().Running {
		return m.tick()
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.settingsOpen {
			return m.updateSettings(msg)
		}
		return m.updateTimer(msg)

	case tickMsg:
		if msg.gen != m.gen || !m.machine.State().Running {
			return m, nil
		}
		m.machine.Tick()
		return m, m.tick()

	case SettingsMsg:
		m.err = settings.ApplyConfig(m.machine, timer.Config(msg))
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = max(10, min(msg.Width-8, 60))
		return m, nil
	}
	return m, nil
}

func (m Model) updateTimer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Toggle):
		m.machine.Toggle()
		m.gen++
		if m.machine.State().Running {
			return m, m.tick()
		}
	case key.Matches(msg, keys.Reset):
		m.machine.Reset()
		m.gen++
	case key.Matches(msg, keys.Work):
		m.switchMode(timer.PhaseWork)
	case key.Matches(msg, keys.Short):
		m.switchMode(timer.PhaseShortBreak)
	case key.Matches(msg, keys.Long):
		m.switchMode(timer.PhaseLongBreak)
	case key.Matches(msg, keys.NextTab):
		m.switchMode(m.adjacentPhase(1))
	case key.Matches(msg, keys.PrevTab):
		m.switchMode(m.adjacentPhase(-1))
	case key.Matches(msg, keys.Settings):
		m.settingsOpen = true
		m.err = nil
	}
	return m, nil
}

func (m Model) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Close):
		m.settingsOpen = false
	case key.Matches(msg, keys.Up):
		m.cursor = (m.cursor - 1 + len(settings.Fields)) % len(settings.Fields)
	case key.Matches(msg, keys.Down):
		m.cursor = (m.cursor + 1) % len(settings.Fields)
	case key.Matches(msg, keys.Inc):
		m.adjust(1)
	case key.Matches(msg, keys.Dec):
		m.adjust(-1)
	}
	return m, nil
}

// switchMode jumps to p; the machine pauses, so the live tick chain is retired.
func (m *Model) switchMode(p timer.Phase) {
	if err := m.machine.SwitchMode(p); err != nil {
		m.err = err
		return
	}
	m.gen++
}

func (m *Model) adjacentPhase(delta int) timer.Phase {
	cur := m.machine.State().Phase
	for i, p := range timer.Phases {
		if p == cur {
			n := len(timer.Phases)
			return timer.Phases[(i+delta+n)%n]
		}
	}
	return timer.PhaseWork
}

func (m *Model) adjust(delta int) {
	f := settings.Fields[m.cursor]
	next := settings.Step(f, settings.Value(m.machine.Config(), f), delta)
	m.err = settings.Apply(m.machine, f, next)
}

func (m Model) tick() tea.Cmd {
	gen := m.gen
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

// ── View ─────────────────────

func (m Model) View() string {
	st := m.machine.State()
	color := phaseColors[st.Phase]
	width := m.width
	if width <= 0 {
		width = 60
	}

	title := titleStyle.Width(width).Render("  tomato  pomodoro timer")

	// Tab bar
	var tabParts []string
	for i, p := range timer.Phases {
		label := fmt.Sprintf(" %d %s ", i+1, p.Label())
		if p == st.Phase {
			tabParts = append(tabParts, badge(label, phaseColors[p]))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
		if i < len(timer.Phases)-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	clock := clockStyle.Foreground(color).Render(timer.FormatClock(st.SecondsRemaining))
	status := dimStyle.Render(sessionLabel(st))

	runBadge := badge("PAUSED", lipgloss.Color("240"))
	if st.Running {
		runBadge = badge("RUNNING", color)
	}

	body := []string{
		clock,
		status,
		"",
		m.progress.ViewAs(m.machine.ProgressFraction()),
		"",
		runBadge,
	}
	if m.settingsOpen {
		body = append(body, "", m.viewSettings())
	}
	if m.err != nil {
		body = append(body, "", errorStyle.Render(m.err.Error()))
	}
	content := lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Render(lipgloss.JoinVertical(lipgloss.Center, body...))

	var hint string
	if m.settingsOpen {
		hint = helpLine(keys.Up, keys.Inc, keys.Close)
	} else {
		hint = helpLine(keys.Toggle, keys.Reset, keys.NextTab, keys.Settings, keys.Quit)
	}
	statusBar := statusBarStyle.Width(width).Render(hint)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, content, statusBar)
}

func (m Model) viewSettings() string {
	cfg := m.machine.Config()
	var sb strings.Builder
	sb.WriteString(labelStyle.Render("Timer Settings") + "\n\n")
	for i, f := range settings.Fields {
		b, _ := settings.BoundsFor(f)
		v := settings.Value(cfg, f)
		row := fmt.Sprintf("%-28s ‹ %3d %-8s › %s", f.Label(), v, b.Unit, slider(v, b))
		if i == m.cursor {
			row = selectedRowStyle.Render(row)
		}
		sb.WriteString(row + "\n")
	}
	return sb.String()
}

// slider draws a text slider for v within b.
func slider(v int, b settings.Bounds) string {
	notches := (b.Max-b.Min)/b.Step + 1
	pos := (v - b.Min) / b.Step
	var sb strings.Builder
	for i := 0; i < notches; i++ {
		if i == pos {
			sb.WriteString("●")
		} else {
			sb.WriteString("─")
		}
	}
	return dimStyle.Render(sb.String())
}

// sessionLabel returns "Session N - Focus" or "Session N - Break".
func sessionLabel(st timer.State) string {
	kind := "Focus"
	if st.Phase.IsBreak() {
		kind = "Break"
	}
	return fmt.Sprintf("Session %d - %s", st.CompletedSessions+1, kind)
}

// Run starts the TUI for machine. Settings received on reloads are applied
// while the program runs. Run returns when the user quits or ctx is cancelled.
func Run(ctx context.Context, machine *timer.Machine, reloads <-chan timer.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(machine), tea.WithAltScreen(), tea.WithContext(ctx))
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case cfg, ok := <-reloads:
				if !ok {
					return
				}
				p.Send(SettingsMsg(cfg))
			}
		}
	}()
	_, err := p.Run()
	return err
}
