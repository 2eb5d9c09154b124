// Package goal tracks today's focus time against a daily target.
package goal

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/sadopc/pomotrack/internal/timer"
)

const (
	DefaultTargetSeconds = 4 * 60 * 60
	MinTargetSeconds     = 60

	TargetKey   = "pomodoro:goal-target"
	BaselineKey = "pomodoro:goal-baseline"

	dayLayout = "2006-01-02"
)

var ErrTargetTooShort = errors.New("daily goal must be at least 1 minute")

// Progress is the derived view of today's goal.
type Progress struct {
	Day                   string
	TargetSeconds         int
	CompletedTodaySeconds int
	InProgressSeconds     float64
	RawTotal              float64
	BaselineSeconds       float64
	Spent                 float64
	RemainingSeconds      float64
	Ratio                 float64
}

// Complete reports whether the target has been reached.
func (p Progress) Complete() bool {
	return p.RemainingSeconds <= 0
}

type baselineRecord struct {
	Day     string  `json:"day"`
	Seconds float64 `json:"seconds"`
}

// Tracker owns the goal target and the baseline. Like the timer it is not
// safe for concurrent use.
type Tracker struct {
	kv    timer.KV
	clock timer.Clock
	log   *slog.Logger

	target   int
	baseline *baselineRecord
}

// NewTracker loads the target and baseline. Malformed values are cleared and
// treated as absent.
func NewTracker(kv timer.KV, clock timer.Clock, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	t := &Tracker{kv: kv, clock: clock, log: logger, target: DefaultTargetSeconds}
	if kv == nil {
		return t
	}

	if raw, ok := kv.Get(TargetKey); ok && raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < MinTargetSeconds {
			logger.Warn("discarding invalid goal target", "value", raw)
			t.clear(TargetKey)
		} else {
			t.target = n
		}
	}

	if raw, ok := kv.Get(BaselineKey); ok && raw != "" {
		var rec baselineRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.Day == "" || isBad(rec.Seconds) {
			logger.Warn("discarding malformed goal baseline", "value", raw)
			t.clear(BaselineKey)
		} else {
			t.baseline = &rec
		}
	}
	return t
}

func (t *Tracker) Target() int {
	return t.target
}

// SetTarget validates and persists a new daily target.
func (t *Tracker) SetTarget(seconds int) error {
	if seconds < MinTargetSeconds {
		return ErrTargetTooShort
	}
	t.target = seconds
	if t.kv != nil {
		if err := t.kv.Set(TargetKey, strconv.Itoa(seconds)); err != nil {
			return fmt.Errorf("save goal target: %w", err)
		}
	}
	return nil
}

// Baseline returns the stored baseline, if any.
func (t *Tracker) Baseline() (day string, seconds float64, ok bool) {
	if t.baseline == nil {
		return "", 0, false
	}
	return t.baseline.Day, t.baseline.Seconds, true
}

// Progress derives today's numbers from the session history and the live
// timer state. A missing, stale or impossible baseline is rebuilt from
// today's completed sessions before the derivation.
func (t *Tracker) Progress(sessions []timer.Session, snap timer.Snapshot) Progress {
	now := t.clock.Now()
	today := now.Format(dayLayout)
	completed := CompletedToday(sessions, now)
	raw := float64(completed) + InProgress(snap)

	if t.baseline == nil || t.baseline.Day != today || t.baseline.Seconds > raw {
		t.rebase(today, float64(completed))
	}
	return t.derive(today, completed, raw)
}

// ResetProgress moves the baseline up to everything counted so far, so
// progress restarts at zero without touching history.
func (t *Tracker) ResetProgress(sessions []timer.Session, snap timer.Snapshot) Progress {
	now := t.clock.Now()
	today := now.Format(dayLayout)
	completed := CompletedToday(sessions, now)
	raw := float64(completed) + InProgress(snap)
	t.rebase(today, raw)
	return t.derive(today, completed, raw)
}

func (t *Tracker) derive(today string, completed int, raw float64) Progress {
	spent := math.Max(0, raw-t.baseline.Seconds)
	target := float64(t.target)
	ratio := spent / math.Max(1, target)
	return Progress{
		Day:                   today,
		TargetSeconds:         t.target,
		CompletedTodaySeconds: completed,
		InProgressSeconds:     raw - float64(completed),
		RawTotal:              raw,
		BaselineSeconds:       t.baseline.Seconds,
		Spent:                 spent,
		RemainingSeconds:      math.Max(0, target-spent),
		Ratio:                 math.Min(1, math.Max(0, ratio)),
	}
}

func (t *Tracker) rebase(day string, seconds float64) {
	if t.baseline != nil && t.baseline.Day == day && t.baseline.Seconds == seconds {
		return
	}
	t.baseline = &baselineRecord{Day: day, Seconds: seconds}
	if t.kv == nil {
		return
	}
	data, err := json.Marshal(t.baseline)
	if err != nil {
		t.log.Warn("marshal goal baseline", "error", err)
		return
	}
	if err := t.kv.Set(BaselineKey, string(data)); err != nil {
		t.log.Warn("save goal baseline", "error", err)
	}
}

func (t *Tracker) clear(key string) {
	if err := t.kv.Delete(key); err != nil {
		t.log.Warn("clear goal key", "key", key, "error", err)
	}
}

// CompletedToday sums the FOCUS sessions completed on now's calendar date,
// in now's location.
func CompletedToday(sessions []timer.Session, now time.Time) int {
	today := now.Format(dayLayout)
	total := 0
	for _, s := range sessions {
		if s.Kind != timer.KindFocus {
			continue
		}
		if s.CompletedAt.In(now.Location()).Format(dayLayout) == today {
			total += s.DurationSeconds
		}
	}
	return total
}

// InProgress is the elapsed part of an active or paused focus cycle.
func InProgress(snap timer.Snapshot) float64 {
	if snap.Mode != timer.ModeFocus || snap.State == timer.Idle {
		return 0
	}
	elapsed := float64(snap.Config.FocusSeconds) - snap.Remaining.Seconds()
	return math.Max(0, elapsed)
}

func isBad(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0) || f < 0
}
