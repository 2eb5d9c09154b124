package timer

import (
	"context"
	"log/slog"
	"time"
)

// SessionLogger records finished cycles. Calls are made from a detached
// goroutine; a returned error is only logged.
type SessionLogger interface {
	LogSession(ctx context.Context, kind Kind, durationSeconds int) error
}

// SessionLister returns finished cycles, most recent first.
type SessionLister interface {
	ListSessions(ctx context.Context) ([]Session, error)
}

// SessionStore is the full boundary to the session store.
type SessionStore interface {
	SessionLogger
	SessionLister
}

// Chime plays the audible cue. Implementations must not block and must fail
// silently.
type Chime interface {
	Play()
}

const logSessionTimeout = 15 * time.Second

// Options wires a Machine to its host and collaborators. Clock and Scheduler
// are required; everything else may be nil.
type Options struct {
	Clock              Clock
	Scheduler          Scheduler
	Settings           KV
	Sessions           SessionLogger
	Chime              Chime
	Logger             *slog.Logger
	SampleInterval     time.Duration
	BackgroundInterval time.Duration
}

// Machine is the focus/break state machine. Like Engine it must only be used
// from the host event queue.
type Machine struct {
	engine   *Engine
	settings KV
	sessions SessionLogger
	chime    Chime
	log      *slog.Logger

	cfg    Config
	mode   Mode
	state  RunState
	cycles int

	listeners map[int]func(Snapshot)
	nextID    int
	closed    bool
}

// New loads persisted settings and returns an idle machine in the persisted
// mode with a full countdown.
func New(opts Options) *Machine {
	m := &Machine{
		settings:  opts.Settings,
		sessions:  opts.Sessions,
		chime:     opts.Chime,
		log:       orDiscard(opts.Logger),
		listeners: make(map[int]func(Snapshot)),
	}
	m.cfg, m.mode = LoadSettings(opts.Settings, m.log)
	m.engine = NewEngine(opts.Clock, opts.Scheduler,
		WithSampleInterval(opts.SampleInterval),
		WithBackgroundInterval(opts.BackgroundInterval),
		WithSecondObserver(func(int) { m.notify() }),
	)
	m.engine.SetRemaining(m.cfg.Duration(m.mode))
	return m
}

// Start enters running from idle or paused. The start cue plays only when
// starting fresh; resuming arms with the paused remainder.
func (m *Machine) Start() {
	if m.closed || m.state == Running || m.engine.Armed() {
		return
	}
	fresh := m.state == Idle
	m.state = Running
	if fresh {
		m.playChime()
	}
	m.engine.Arm(m.engine.Remaining(), m.cycleEnded)
	m.notify()
}

// startWithDuration arms a full cycle of d. It is a no-op while armed so an
// overlapping manual start cannot create a second sampler.
func (m *Machine) startWithDuration(d time.Duration) {
	if m.closed || m.engine.Armed() {
		return
	}
	m.engine.SetRemaining(d)
	m.state = Running
	m.engine.Arm(d, m.cycleEnded)
}

func (m *Machine) Pause() {
	if m.state != Running {
		return
	}
	m.engine.Disarm()
	m.state = Paused
	m.notify()
}

// Reset stops the cycle, restores the selected mode's full duration and
// clears the completed-cycle counter.
func (m *Machine) Reset() {
	m.engine.Disarm()
	m.state = Idle
	m.cycles = 0
	m.engine.SetRemaining(m.cfg.Duration(m.mode))
	m.notify()
}

// SelectMode stops the cycle and switches to mode.
func (m *Machine) SelectMode(mode Mode) {
	if !mode.Valid() {
		return
	}
	m.engine.Disarm()
	m.state = Idle
	m.mode = mode
	m.engine.SetRemaining(m.cfg.Duration(mode))
	m.persist()
	m.notify()
}

// SetDurations validates and applies new cycle lengths. Any active cycle is
// stopped so the countdown always matches its configured duration.
func (m *Machine) SetDurations(focusSeconds, breakSeconds int) error {
	next := m.cfg
	next.FocusSeconds = focusSeconds
	next.BreakSeconds = breakSeconds
	if err := next.Validate(); err != nil {
		return err
	}
	m.engine.Disarm()
	m.state = Idle
	m.cfg = next
	m.engine.SetRemaining(m.cfg.Duration(m.mode))
	m.persist()
	m.notify()
	return nil
}

// SetAutoStart changes whether the next cycle starts on its own.
func (m *Machine) SetAutoStart(enabled bool) {
	m.cfg.AutoStartNext = enabled
	m.persist()
	m.notify()
}

// Sync takes an immediate sample, e.g. before rendering after a stall.
func (m *Machine) Sync() {
	m.engine.Sample()
}

// cycleEnded runs once per zero crossing; the engine has already disarmed.
// The session log request and the mode flip are issued before the auto-start
// decision so a slow or failing store never holds back the next cycle.
func (m *Machine) cycleEnded() {
	finished := m.mode
	m.state = Idle
	if finished == ModeFocus {
		m.cycles++
	}
	m.logSession(finished.Kind(), m.cfg.Seconds(finished))
	m.playChime()
	m.mode = finished.Other()
	m.persist()

	next := m.cfg.Duration(m.mode)
	if m.cfg.AutoStartNext {
		m.startWithDuration(next)
	} else {
		m.engine.SetRemaining(next)
	}
	m.log.Info("cycle finished", "mode", finished, "next", m.mode, "autoStart", m.cfg.AutoStartNext, "cycles", m.cycles)
	m.notify()
}

func (m *Machine) logSession(kind Kind, seconds int) {
	if m.sessions == nil {
		return
	}
	sessions, log := m.sessions, m.log
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), logSessionTimeout)
		defer cancel()
		if err := sessions.LogSession(ctx, kind, seconds); err != nil {
			log.Error("log session", "kind", kind, "duration", seconds, "error", err)
		}
	}()
}

func (m *Machine) playChime() {
	if m.chime != nil {
		m.chime.Play()
	}
}

func (m *Machine) persist() {
	if err := SaveSettings(m.settings, m.cfg, m.mode); err != nil {
		m.log.Warn("persist settings", "error", err)
	}
}

// Snapshot returns the current observable state.
func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		Mode:            m.mode,
		State:           m.state,
		Remaining:       m.engine.Remaining(),
		Config:          m.cfg,
		CyclesCompleted: m.cycles,
	}
	if deadline, ok := m.engine.Deadline(); ok {
		s.Deadline = deadline
	}
	return s
}

// Armed reports whether a sampler is active.
func (m *Machine) Armed() bool {
	return m.engine.Armed()
}

// Subscribe registers fn to receive a snapshot after every state change and
// every whole-second change of the countdown.
func (m *Machine) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() { delete(m.listeners, id) }
}

func (m *Machine) notify() {
	if len(m.listeners) == 0 {
		return
	}
	snap := m.Snapshot()
	for _, fn := range m.listeners {
		fn(snap)
	}
}

// Close stops the countdown and releases scheduler subscriptions and
// listeners. The machine ignores Start afterwards.
func (m *Machine) Close() {
	m.closed = true
	m.engine.Close()
	m.state = Idle
	m.listeners = make(map[int]func(Snapshot))
}
