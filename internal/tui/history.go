package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/pomotrack/internal/store"
	"github.com/sadopc/pomotrack/internal/timer"
)

const fetchTimeout = 10 * time.Second

// historyModel shows recent sessions and a 7-day focus chart. It also owns
// the session list the goal tracker derives from.
type historyModel struct {
	lister timer.SessionLister
	clock  timer.Clock
	poll   time.Duration
	width  int
	height int

	sessions  []timer.Session
	loaded    bool
	stale     bool
	err       error
	fetchedAt time.Time

	// Refreshes are numbered so callers can tell whether a list was fetched
	// after some write. The counter is shared across value copies.
	requests  *int
	loadedSeq int

	offset int // 7-day blocks back from today
	scroll int

	chart barchart.Model
}

func newHistoryModel(lister timer.SessionLister, clock timer.Clock, poll time.Duration) historyModel {
	return historyModel{
		lister:   lister,
		clock:    clock,
		poll:     poll,
		chart:    barchart.New(60, 12),
		requests: new(int),
	}
}

func (h *historyModel) setSize(w, hh int) {
	h.width = w
	h.height = hh
	h.buildChart()
}

// refresh fetches the session list in the background.
func (h historyModel) refresh() tea.Cmd {
	*h.requests++
	lister, clock, seq := h.lister, h.clock, *h.requests
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		sessions, err := lister.ListSessions(ctx)
		return sessionsMsg{sessions: sessions, err: err, at: clock.Now(), seq: seq}
	}
}

// lastRequest is the number of the most recent refresh.
func (h historyModel) lastRequest() int {
	return *h.requests
}

func (h historyModel) schedulePoll() tea.Cmd {
	return tea.Tick(h.poll, func(time.Time) tea.Msg { return pollMsg{} })
}

func (h historyModel) dateRange() (time.Time, time.Time) {
	now := h.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := today.AddDate(0, 0, 1-7*h.offset)
	return end.AddDate(0, 0, -7), end
}

func (h historyModel) update(msg tea.Msg) (historyModel, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionsMsg:
		if msg.err != nil {
			// Keep showing the last good list.
			h.stale = true
			h.err = msg.err
			return h, nil
		}
		h.sessions = msg.sessions
		h.loaded = true
		h.stale = false
		h.err = nil
		h.fetchedAt = msg.at
		if msg.seq > h.loadedSeq {
			h.loadedSeq = msg.seq
		}
		if h.scroll >= len(h.sessions) {
			h.scroll = 0
		}
		h.buildChart()
		return h, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			h.offset++
			h.buildChart()
		case key.Matches(msg, keys.Right):
			if h.offset > 0 {
				h.offset--
			}
			h.buildChart()
		case key.Matches(msg, keys.Up):
			if h.scroll > 0 {
				h.scroll--
			}
		case key.Matches(msg, keys.Down):
			if h.scroll < len(h.sessions)-1 {
				h.scroll++
			}
		case key.Matches(msg, keys.Refresh):
			return h, h.refresh()
		}
	}
	return h, nil
}

func (h *historyModel) buildChart() {
	chartWidth := h.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 10
	if h.height > 30 {
		chartHeight = 14
	}

	h.chart = barchart.New(chartWidth, chartHeight)

	from, to := h.dateRange()
	totals := make(map[string]int64)
	for _, d := range store.FocusByDay(h.sessions, from.Location()) {
		totals[d.Date] = d.TotalSeconds
	}

	var bars []barchart.BarData
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		secs := totals[d.Format("2006-01-02")]
		style := lipgloss.NewStyle().Foreground(colorPrimary)
		if secs == 0 {
			style = lipgloss.NewStyle().Foreground(colorSubtle)
		}
		bars = append(bars, barchart.BarData{
			Label: d.Format("Mon 02"),
			Values: []barchart.BarValue{{
				Name:  "focus",
				Value: float64(secs) / 3600.0,
				Style: style,
			}},
		})
	}

	h.chart.PushAll(bars)
	h.chart.Draw()
}

func (h historyModel) view() string {
	w := h.width - 4

	from, to := h.dateRange()
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s to %s", from.Format("Jan 02"), to.AddDate(0, 0, -1).Format("Jan 02, 2006")))
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Focus history"), "  ", dateLabel, "  ", h.renderFreshness(),
	)

	nav := mutedStyle.Render("  ←/→: navigate weeks  ↑/↓: scroll  ctrl+r: refresh")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", h.chart.View(), "", h.renderTotals(), "", h.renderSessions(w), "", nav,
		),
	)
}

func (h historyModel) renderFreshness() string {
	switch {
	case h.stale:
		return warningStyle.Render(fmt.Sprintf("⚠ stale: %v", h.err))
	case !h.loaded:
		return mutedStyle.Render("loading...")
	default:
		return mutedStyle.Render("updated " + h.fetchedAt.Format("15:04:05"))
	}
}

func (h historyModel) renderTotals() string {
	from, to := h.dateRange()
	var focus int64
	var count int
	for _, s := range h.sessions {
		if s.Kind != timer.KindFocus || s.CompletedAt.Before(from) || !s.CompletedAt.Before(to) {
			continue
		}
		focus += int64(s.DurationSeconds)
		count++
	}
	return fmt.Sprintf("  %s %s   %s %s",
		mutedStyle.Render("Focus:"), highlightStyle.Render(formatSeconds(focus)),
		mutedStyle.Render("Sessions:"), highlightStyle.Render(fmt.Sprintf("%d", count)),
	)
}

func (h historyModel) renderSessions(w int) string {
	if len(h.sessions) == 0 {
		return mutedStyle.Render("  No sessions yet")
	}

	visible := h.height - 24
	if visible < 3 {
		visible = 3
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-18s %-6s %10s", "Completed", "Type", "Duration")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 36))))

	end := min(h.scroll+visible, len(h.sessions))
	for _, s := range h.sessions[h.scroll:end] {
		dot := lipgloss.NewStyle().Foreground(colorPrimary).Render("●")
		if s.Kind == timer.KindBreak {
			dot = lipgloss.NewStyle().Foreground(colorSecondary).Render("●")
		}
		rows = append(rows, fmt.Sprintf("  %-18s %s %-4s %10s",
			s.CompletedAt.Local().Format("Jan 02 15:04"), dot, kindLabel(s.Kind), formatSeconds(int64(s.DurationSeconds)),
		))
	}
	if end < len(h.sessions) {
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("  … %d more", len(h.sessions)-end)))
	}
	return strings.Join(rows, "\n")
}
