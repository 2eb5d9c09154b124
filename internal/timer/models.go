package timer

import (
	"encoding/json"
	"fmt"
	"time"
)

// Mode is the phase of a pomodoro cycle.
type Mode string

const (
	ModeFocus Mode = "focus"
	ModeBreak Mode = "break"
)

func (m Mode) Valid() bool {
	return m == ModeFocus || m == ModeBreak
}

// Kind maps a mode to the session kind recorded when it completes.
func (m Mode) Kind() Kind {
	if m == ModeBreak {
		return KindBreak
	}
	return KindFocus
}

// Other returns the mode that follows m.
func (m Mode) Other() Mode {
	if m == ModeFocus {
		return ModeBreak
	}
	return ModeFocus
}

// RunState is the run status of the active cycle.
type RunState int

const (
	Idle RunState = iota
	Running
	Paused
)

var runStateNames = map[RunState]string{
	Idle:    "idle",
	Running: "running",
	Paused:  "paused",
}

func (s RunState) String() string {
	if name, ok := runStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("RunState(%d)", int(s))
}

// Kind is the session type persisted by the session store.
type Kind string

const (
	KindFocus Kind = "FOCUS"
	KindBreak Kind = "BREAK"
)

func (k Kind) Valid() bool {
	return k == KindFocus || k == KindBreak
}

// Session is a finished cycle as returned by the session store.
type Session struct {
	ID              string    `json:"id"`
	Kind            Kind      `json:"type"`
	DurationSeconds int       `json:"duration"`
	CompletedAt     time.Time `json:"completedAt"`
}

// Snapshot is a read-only copy of the machine's observable state.
type Snapshot struct {
	Mode            Mode
	State           RunState
	Remaining       time.Duration
	Deadline        time.Time // zero unless State == Running
	Config          Config
	CyclesCompleted int
}

// TimeLeft is the remaining time rounded up to whole seconds.
func (s Snapshot) TimeLeft() int {
	return ceilSeconds(s.Remaining)
}

// RemainingMillis exposes the fine-grained remaining time.
func (s Snapshot) RemainingMillis() float64 {
	return float64(s.Remaining) / float64(time.Millisecond)
}

// ModeDuration is the configured full length of the current mode.
func (s Snapshot) ModeDuration() time.Duration {
	return s.Config.Duration(s.Mode)
}

// MarshalJSON is used by the headless runner's --json output.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Mode            Mode   `json:"mode"`
		State           string `json:"state"`
		TimeLeft        int    `json:"timeLeft"`
		CyclesCompleted int    `json:"cyclesCompleted"`
	}{s.Mode, s.State.String(), s.TimeLeft(), s.CyclesCompleted})
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	secs := d / time.Second
	if d%time.Second != 0 {
		secs++
	}
	return int(secs)
}
