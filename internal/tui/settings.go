package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/pomotrack/internal/goal"
	"github.com/sadopc/pomotrack/internal/timer"
)

const customPreset = "custom"

// preset is a named focus/break pair offered in the settings form.
type preset struct {
	label        string
	focusMinutes int
	breakMinutes int
}

var presets = []preset{
	{"Classic 25/5", 25, 5},
	{"Long 50/10", 50, 10},
	{"Deep 90/15", 90, 15},
}

func (p preset) key() string {
	return fmt.Sprintf("%d/%d", p.focusMinutes, p.breakMinutes)
}

var errMinimumMinute = errors.New("minimum is 1 minute")

type settingsModel struct {
	machine *timer.Machine
	goal    *goal.Tracker
	width   int
	height  int

	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	preset    *string
	focusMins *string
	breakMins *string
	autoStart *bool
	goalHours *string
}

func newSettingsModel(m *timer.Machine, g *goal.Tracker) settingsModel {
	p, fm, bm, gh := "", "", "", ""
	auto := false
	return settingsModel{
		machine:   m,
		goal:      g,
		preset:    &p,
		focusMins: &fm,
		breakMins: &bm,
		autoStart: &auto,
		goalHours: &gh,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, keys.Enter) {
		return s.showForm()
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	cfg := s.machine.Snapshot().Config
	*s.focusMins = strconv.Itoa(cfg.FocusSeconds / 60)
	*s.breakMins = strconv.Itoa(cfg.BreakSeconds / 60)
	*s.autoStart = cfg.AutoStartNext
	*s.goalHours = strconv.FormatFloat(float64(s.goal.Target())/3600, 'f', -1, 64)
	*s.preset = presetFor(cfg)

	options := make([]huh.Option[string], 0, len(presets)+1)
	for _, p := range presets {
		options = append(options, huh.NewOption(p.label, p.key()))
	}
	options = append(options, huh.NewOption("Custom", customPreset))

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Preset").Options(options...).Value(s.preset),
		).Title("Durations"),
		huh.NewGroup(
			huh.NewInput().Title("Focus (min)").Value(s.focusMins).Validate(validateMinutes),
			huh.NewInput().Title("Break (min)").Value(s.breakMins).Validate(validateMinutes),
		).Title("Custom durations").WithHideFunc(func() bool {
			return *s.preset != customPreset
		}),
		huh.NewGroup(
			huh.NewConfirm().Title("Start the next cycle automatically?").
				Affirmative("Yes").Negative("No").Value(s.autoStart),
			huh.NewInput().Title("Daily goal (hours)").Value(s.goalHours).Validate(validateGoalHours),
		).Title("General"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		s.form = nil
		return s, s.apply()
	}

	return s, cmd
}

// apply pushes the submitted values into the machine and the goal tracker.
// Changing durations stops a running cycle.
func (s settingsModel) apply() tea.Cmd {
	focus, brk, err := s.durations()
	if err != nil {
		return errorStatusCmd(err)
	}
	cfg := s.machine.Snapshot().Config
	if focus != cfg.FocusSeconds || brk != cfg.BreakSeconds {
		if err := s.machine.SetDurations(focus, brk); err != nil {
			return errorStatusCmd(err)
		}
	}
	if *s.autoStart != cfg.AutoStartNext {
		s.machine.SetAutoStart(*s.autoStart)
	}
	hours, _ := strconv.ParseFloat(strings.TrimSpace(*s.goalHours), 64)
	if err := s.goal.SetTarget(int(hours * 3600)); err != nil {
		return errorStatusCmd(err)
	}
	return statusCmd("Settings saved")
}

func (s settingsModel) durations() (int, int, error) {
	if *s.preset != customPreset {
		for _, p := range presets {
			if p.key() == *s.preset {
				return p.focusMinutes * 60, p.breakMinutes * 60, nil
			}
		}
	}
	focus, err := parseMinutes(*s.focusMins)
	if err != nil {
		return 0, 0, fmt.Errorf("focus: %w", err)
	}
	brk, err := parseMinutes(*s.breakMins)
	if err != nil {
		return 0, 0, fmt.Errorf("break: %w", err)
	}
	return focus * 60, brk * 60, nil
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	cfg := s.machine.Snapshot().Config
	auto := "off"
	if cfg.AutoStartNext {
		auto = "on"
	}
	items := [][2]string{
		{"Preset", presetLabel(presetFor(cfg))},
		{"Focus", fmt.Sprintf("%d min", cfg.FocusSeconds/60)},
		{"Break", fmt.Sprintf("%d min", cfg.BreakSeconds/60)},
		{"Auto-start", auto},
		{"Daily goal", fmt.Sprintf("%.1f hours", float64(s.goal.Target())/3600)},
	}

	rows := []string{title, ""}
	for _, it := range items {
		label := lipgloss.NewStyle().Width(16).Render(it[0])
		rows = append(rows, fmt.Sprintf("  %s %s", label, highlightStyle.Render(it[1])))
	}
	rows = append(rows, "", mutedStyle.Render("Press enter to edit settings"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func presetFor(cfg timer.Config) string {
	for _, p := range presets {
		if p.focusMinutes*60 == cfg.FocusSeconds && p.breakMinutes*60 == cfg.BreakSeconds {
			return p.key()
		}
	}
	return customPreset
}

func presetLabel(k string) string {
	for _, p := range presets {
		if p.key() == k {
			return p.label
		}
	}
	return "Custom"
}

func parseMinutes(s string) (int, error) {
	mins, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.New("enter a whole number of minutes")
	}
	if mins < 1 {
		return 0, errMinimumMinute
	}
	return mins, nil
}

func validateMinutes(s string) error {
	_, err := parseMinutes(s)
	return err
}

func validateGoalHours(s string) error {
	hours, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return errors.New("enter a number of hours")
	}
	if hours*3600 < goal.MinTargetSeconds {
		return errMinimumMinute
	}
	return nil
}

func errorStatusCmd(err error) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: "Error: " + err.Error(), isError: true} }
}
