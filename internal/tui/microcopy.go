package tui

import "github.com/sadopc/pomotrack/internal/timer"

var microcopy = map[timer.Mode]map[timer.RunState]string{
	timer.ModeFocus: {
		timer.Running: "Stay with it. You're doing great.",
		timer.Paused:  "Paused. Pick it back up when you're ready.",
		timer.Idle:    "Ready for some deep focus?",
	},
	timer.ModeBreak: {
		timer.Running: "Breathe. Stretch. Look away from the screen.",
		timer.Paused:  "No rush. The break waits for you.",
		timer.Idle:    "Time for a well-earned break.",
	},
}

// hint returns the line shown under the countdown for a mode and run state.
func hint(mode timer.Mode, state timer.RunState) string {
	return microcopy[mode][state]
}
