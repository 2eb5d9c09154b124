package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/pomotrack/internal/goal"
	"github.com/sadopc/pomotrack/internal/timer"
)

// timerModel is the main countdown view. The machine and tracker are shared
// with App; this model only renders them and maps keys to operations.
type timerModel struct {
	machine *timer.Machine
	goal    *goal.Tracker
	width   int
	height  int

	ring     progress.Model
	goalBar  progress.Model
	progress goal.Progress
	hasGoal  bool
}

func newTimerModel(m *timer.Machine, g *goal.Tracker) timerModel {
	return timerModel{
		machine: m,
		goal:    g,
		ring:    progress.New(progress.WithSolidFill(string(colorPrimary)), progress.WithoutPercentage()),
		goalBar: progress.New(progress.WithGradient(string(colorSecondary), string(colorSuccess))),
	}
}

func (m *timerModel) setSize(w, h int) {
	m.width = w
	m.height = h
	barWidth := w - 12
	if barWidth > 60 {
		barWidth = 60
	}
	if barWidth < 10 {
		barWidth = 10
	}
	m.ring.Width = barWidth
	m.goalBar.Width = barWidth
}

// setProgress stores the latest goal derivation for rendering.
func (m *timerModel) setProgress(p goal.Progress) {
	m.progress = p
	m.hasGoal = true
}

func (m timerModel) update(msg tea.Msg, sessions []timer.Session) (timerModel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, keys.Start):
		m.machine.Start()
	case key.Matches(keyMsg, keys.Pause):
		if m.machine.Snapshot().State == timer.Running {
			m.machine.Pause()
		} else {
			m.machine.Start()
		}
	case key.Matches(keyMsg, keys.Reset):
		m.machine.Reset()
		return m, statusCmd("Timer reset")
	case key.Matches(keyMsg, keys.Focus):
		m.machine.SelectMode(timer.ModeFocus)
	case key.Matches(keyMsg, keys.Break):
		m.machine.SelectMode(timer.ModeBreak)
	case key.Matches(keyMsg, keys.AutoStart):
		snap := m.machine.Snapshot()
		m.machine.SetAutoStart(!snap.Config.AutoStartNext)
		if snap.Config.AutoStartNext {
			return m, statusCmd("Auto-start off")
		}
		return m, statusCmd("Auto-start on")
	case key.Matches(keyMsg, keys.GoalReset):
		m.setProgress(m.goal.ResetProgress(sessions, m.machine.Snapshot()))
		return m, statusCmd("Daily goal progress reset")
	}
	return m, nil
}

func (m timerModel) view() string {
	snap := m.machine.Snapshot()

	var sections []string

	modeTabs := []string{
		m.renderModeTab("Focus", snap.Mode == timer.ModeFocus),
		m.renderModeTab("Break", snap.Mode == timer.ModeBreak),
	}
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, modeTabs...))
	sections = append(sections, "")

	clock := formatClock(snap.TimeLeft())
	style := timerStyle
	switch snap.State {
	case timer.Running:
		style = timerRunningStyle
	case timer.Paused:
		style = timerPausedStyle
	}
	if snap.Mode == timer.ModeBreak && snap.State == timer.Running {
		style = style.Foreground(colorSecondary)
	}
	sections = append(sections, style.Render(bigDigits(clock)))
	sections = append(sections, "")

	// Ring: fraction of the cycle still left.
	ratio := 0.0
	if d := snap.ModeDuration(); d > 0 {
		ratio = float64(snap.Remaining) / float64(d)
	}
	sections = append(sections, m.ring.ViewAs(ratio))
	sections = append(sections, "")

	state := strings.ToUpper(snap.State.String())
	switch snap.State {
	case timer.Running:
		state = successStyle.Render("● " + state)
	case timer.Paused:
		state = warningStyle.Render("⏸ " + state)
	default:
		state = mutedStyle.Render("○ " + state)
	}
	sections = append(sections, state+"  "+subtitleStyle.Render(hint(snap.Mode, snap.State)))
	sections = append(sections, "")

	auto := mutedStyle.Render("off")
	if snap.Config.AutoStartNext {
		auto = successStyle.Render("on")
	}
	sections = append(sections, fmt.Sprintf("%s %s   %s %s   %s %s",
		mutedStyle.Render("Cycles:"), highlightStyle.Render(fmt.Sprintf("%d", snap.CyclesCompleted)),
		mutedStyle.Render("Durations:"), highlightStyle.Render(fmt.Sprintf("%d/%d min", snap.Config.FocusSeconds/60, snap.Config.BreakSeconds/60)),
		mutedStyle.Render("Auto-start:"), auto,
	))

	sections = append(sections, "")
	sections = append(sections, m.renderGoal())

	content := lipgloss.JoinVertical(lipgloss.Center, sections...)
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	return activePanelStyle.Width(w).Align(lipgloss.Center).Render(content)
}

func (m timerModel) renderModeTab(label string, active bool) string {
	if active {
		return activeTabStyle.Render(label)
	}
	return inactiveTabStyle.Render(label)
}

func (m timerModel) renderGoal() string {
	if !m.hasGoal {
		return mutedStyle.Render("Daily goal: loading...")
	}
	p := m.progress
	title := titleStyle.Render("Daily goal ") + mutedStyle.Render(formatHours(int64(p.TargetSeconds)))
	if p.Complete() {
		title += "  " + successStyle.Render("✓ reached")
	}
	detail := fmt.Sprintf("%s spent · %s left",
		formatSeconds(int64(p.Spent)), formatSeconds(int64(p.RemainingSeconds)))
	return lipgloss.JoinVertical(lipgloss.Center,
		title,
		m.goalBar.ViewAs(p.Ratio),
		mutedStyle.Render(detail),
	)
}

// bigDigits spaces the clock out so it reads at a glance.
func bigDigits(s string) string {
	return strings.Join(strings.Split(s, ""), " ")
}

func statusCmd(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text} }
}
