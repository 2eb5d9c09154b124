package tui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/pomotrack/internal/export"
	"github.com/sadopc/pomotrack/internal/goal"
	"github.com/sadopc/pomotrack/internal/timer"
)

const defaultPollInterval = 5 * time.Second

// Options wires the TUI to its collaborators. Settings and Sessions are
// required.
type Options struct {
	Settings           timer.KV
	Sessions           timer.SessionStore
	Chime              timer.Chime
	Clock              timer.Clock
	Logger             *slog.Logger
	SampleInterval     time.Duration
	BackgroundInterval time.Duration
	PollInterval       time.Duration

	// Account is shown in the header, e.g. the signed-in email.
	Account   string
	ExportDir string
}

// loggedMsg reports that a finished cycle reached the session store.
type loggedMsg struct {
	kind timer.Kind
	err  error
}

// notifyingLogger forwards to the real store and reports each result to
// the program.
type notifyingLogger struct {
	next timer.SessionLogger
	ch   chan loggedMsg
}

func (n notifyingLogger) LogSession(ctx context.Context, kind timer.Kind, durationSeconds int) error {
	err := n.next.LogSession(ctx, kind, durationSeconds)
	select {
	case n.ch <- loggedMsg{kind: kind, err: err}:
	default:
	}
	return err
}

func waitForLogged(ch <-chan loggedMsg) tea.Cmd {
	return func() tea.Msg { return <-ch }
}

// App is the root Bubble Tea model.
type App struct {
	sched   *teaScheduler
	machine *timer.Machine
	goal    *goal.Tracker
	logged  chan loggedMsg
	lister  timer.SessionLister
	log     *slog.Logger

	account   string
	exportDir string

	width  int
	height int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	timer    timerModel
	history  historyModel
	settings settingsModel

	help        help.Model
	status      string
	statusError bool

	// Goal progress is held from the end of a focus cycle until a session
	// list fetched after that session was saved arrives. Deriving against
	// the older list would see the total drop and rebase the baseline.
	unloggedFocus int
	confirmSeq    int
}

func NewApp(opts Options) App {
	clock := opts.Clock
	if clock == nil {
		clock = timer.SystemClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}

	sched := newTeaScheduler()
	logged := make(chan loggedMsg, 8)
	machine := timer.New(timer.Options{
		Clock:              clock,
		Scheduler:          sched,
		Settings:           opts.Settings,
		Sessions:           notifyingLogger{next: opts.Sessions, ch: logged},
		Chime:              opts.Chime,
		Logger:             logger,
		SampleInterval:     opts.SampleInterval,
		BackgroundInterval: opts.BackgroundInterval,
	})
	tracker := goal.NewTracker(opts.Settings, clock, logger)

	h := help.New()
	h.ShowAll = false

	return App{
		sched:      sched,
		machine:    machine,
		goal:       tracker,
		logged:     logged,
		lister:     opts.Sessions,
		log:        logger,
		account:    opts.Account,
		exportDir:  opts.ExportDir,
		activeView: viewTimer,
		timer:      newTimerModel(machine, tracker),
		history:    newHistoryModel(opts.Sessions, clock, poll),
		settings:   newSettingsModel(machine, tracker),
		help:       h,
	}
}

// Close stops the countdown. Call it with the final model after the program
// exits.
func (a App) Close() {
	a.machine.Close()
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.history.refresh(),
		a.history.schedulePoll(),
		waitForLogged(a.logged),
	)
}

// Update routes msg, then brings the goal in line with the new state and
// hands any sampler ticks the machine scheduled back to the runtime.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	before := a.machine.Snapshot().CyclesCompleted
	a, cmd := a.handle(msg)
	snap := a.machine.Snapshot()
	if snap.CyclesCompleted > before {
		a.unloggedFocus += snap.CyclesCompleted - before
	}
	if a.goalSettled() {
		a.timer.setProgress(a.goal.Progress(a.history.sessions, snap))
	}
	return a, tea.Batch(cmd, a.sched.drain())
}

// goalSettled reports whether the loaded history covers every finished
// focus cycle.
func (a App) goalSettled() bool {
	return a.history.loaded && a.unloggedFocus == 0 && a.history.loadedSeq >= a.confirmSeq
}

func (a App) handle(msg tea.Msg) (App, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.timer.setSize(a.width, contentHeight)
		a.history.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case sampleMsg:
		a.sched.fire(msg.id)
		return a, nil

	case tea.FocusMsg:
		a.sched.setVisible(true)
		a.machine.Sync()
		return a, nil

	case tea.BlurMsg:
		a.sched.setVisible(false)
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// A form captures every key, including the global ones.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case a.activeView == viewTimer && key.Matches(msg, keys.GoalReset) && !a.goalSettled():
			// A reset against an incomplete list would undercount the baseline.
			a.status, a.statusError = "Session history is loading, try again in a moment", false
			return a, nil
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewTimer
			return a, nil
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewHistory
			return a, a.history.refresh()
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewSettings
			return a, nil
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			if a.activeView == viewHistory {
				return a, a.history.refresh()
			}
			return a, nil
		}

	case sessionsMsg:
		var cmd tea.Cmd
		a.history, cmd = a.history.update(msg)
		if msg.err != nil {
			a.log.Warn("fetch sessions", "error", msg.err)
		}
		return a, cmd

	case pollMsg:
		return a, tea.Batch(a.history.refresh(), a.history.schedulePoll())

	case loggedMsg:
		if msg.kind == timer.KindFocus && a.unloggedFocus > 0 {
			a.unloggedFocus--
		}
		cmds := []tea.Cmd{waitForLogged(a.logged)}
		if msg.err != nil {
			a.status, a.statusError = fmt.Sprintf("Could not save %s session: %v", kindLabel(msg.kind), msg.err), true
		} else {
			a.status, a.statusError = cycleFinishedText(msg.kind), false
			cmds = append(cmds, a.history.refresh())
			if msg.kind == timer.KindFocus {
				a.confirmSeq = a.history.lastRequest()
			}
		}
		return a, tea.Batch(cmds...)

	case statusMsg:
		a.status = msg.text
		a.statusError = msg.isError
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.statusError = false
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

func cycleFinishedText(kind timer.Kind) string {
	if kind == timer.KindBreak {
		return "Break over. Back to focus."
	}
	return "Focus complete. Time for a break."
}

func (a App) updateActiveView(msg tea.Msg) (App, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTimer:
		a.timer, cmd = a.timer.update(msg, a.history.sessions)
	case viewHistory:
		a.history, cmd = a.history.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	return a.activeView == viewSettings && a.settings.formActive
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewTimer:
		content = a.timer.view()
	case viewHistory:
		content = a.history.view()
	case viewSettings:
		content = a.settings.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("pomotrack")
	if a.account != "" {
		title += " " + mutedStyle.Render(a.account)
	}
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusError {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	// Countdown indicator when the timer view is not on screen.
	timerInfo := ""
	if snap := a.machine.Snapshot(); a.activeView != viewTimer && snap.State != timer.Idle {
		label := fmt.Sprintf(" %s %s", formatClock(snap.TimeLeft()), snap.Mode)
		if snap.State == timer.Paused {
			timerInfo = warningStyle.Render(" ⏸" + label)
		} else {
			timerInfo = successStyle.Render(" ●" + label)
		}
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Format")
	formats := []string{"CSV", "JSON"}
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range formats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (App, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < 1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	lister, dir := a.lister, a.exportDir
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		sessions, err := lister.ListSessions(ctx)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}

		if dir == "" {
			dir, _ = os.UserHomeDir()
		}
		dateStr := time.Now().Format("2006-01-02")

		var path string
		if format == 0 {
			path = filepath.Join(dir, fmt.Sprintf("pomotrack-export-%s.csv", dateStr))
			if err := export.ToCSV(sessions, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
		} else {
			path = filepath.Join(dir, fmt.Sprintf("pomotrack-export-%s.json", dateStr))
			if err := export.ToJSON(sessions, path); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
		}

		return exportDoneMsg{path: path}
	}
}
