package tui

import (
	"fmt"
	"time"

	"github.com/sadopc/pomotrack/internal/timer"
)

// viewState represents the currently active view.
type viewState int

const (
	viewTimer viewState = iota
	viewHistory
	viewSettings
)

var viewNames = []string{"Timer", "History", "Settings"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type sessionsMsg struct {
	sessions []timer.Session
	err      error
	at       time.Time
	seq      int // which refresh produced it
}

type pollMsg struct{}

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

// formatClock renders whole seconds as mm:ss, letting minutes grow past 59.
func formatClock(secs int) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatSeconds(secs int64) string {
	return formatDuration(time.Duration(secs) * time.Second)
}

func formatHours(secs int64) string {
	h := float64(secs) / 3600
	return fmt.Sprintf("%.1fh", h)
}

func kindLabel(k timer.Kind) string {
	if k == timer.KindBreak {
		return "Break"
	}
	return "Focus"
}
