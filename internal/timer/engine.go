package timer

import "time"

// Engine turns a wall-clock deadline into a remaining-time signal. Remaining
// time is always computed from the deadline, never decremented per tick, so a
// delayed or throttled sampler only ever observes a larger elapsed delta.
//
// An Engine is not safe for concurrent use; every method and every scheduler
// callback must run on the same host event queue.
type Engine struct {
	clock Clock
	sched Scheduler

	interval           time.Duration
	backgroundInterval time.Duration
	visible            bool

	armed    bool
	deadline time.Time
	cancel   func()
	onZero   func()

	remaining  time.Duration
	lastSecond int
	onSecond   func(seconds int)

	unsubscribe func()
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithSampleInterval sets the foreground sampling interval.
func WithSampleInterval(d time.Duration) EngineOption {
	return func(e *Engine) { e.interval = ClampInterval(d, DefaultSampleInterval) }
}

// WithBackgroundInterval sets the sampling interval used while the host is
// in the background.
func WithBackgroundInterval(d time.Duration) EngineOption {
	return func(e *Engine) { e.backgroundInterval = ClampInterval(d, DefaultBackgroundInterval) }
}

// WithSecondObserver registers fn to be called whenever the whole-second
// value of the remaining time changes while armed.
func WithSecondObserver(fn func(seconds int)) EngineOption {
	return func(e *Engine) { e.onSecond = fn }
}

func NewEngine(clock Clock, sched Scheduler, opts ...EngineOption) *Engine {
	e := &Engine{
		clock:              clock,
		sched:              sched,
		interval:           DefaultSampleInterval,
		backgroundInterval: DefaultBackgroundInterval,
		visible:            true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.unsubscribe = sched.OnVisibilityChange(e.visibilityChanged)
	return e
}

// Arm sets the deadline d from now and starts the sampler. It reports false
// and changes nothing when the engine is already armed.
func (e *Engine) Arm(d time.Duration, onZero func()) bool {
	if e.armed {
		return false
	}
	if d < 0 {
		d = 0
	}
	e.armed = true
	e.deadline = e.clock.Now().Add(d)
	e.onZero = onZero
	e.remaining = d
	e.lastSecond = ceilSeconds(d)
	e.cancel = e.sched.ScheduleRepeating(e.currentInterval(), e.Sample)
	return true
}

// Disarm stops the sampler and clears the deadline. The remaining value is
// left as last sampled. Safe to call when not armed.
func (e *Engine) Disarm() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.armed = false
	e.deadline = time.Time{}
	e.onZero = nil
}

// Sample reconciles the remaining time against the clock. When the deadline
// has passed the engine disarms itself before invoking the zero-crossing
// callback, which therefore runs exactly once and may re-arm.
func (e *Engine) Sample() {
	if !e.armed {
		return
	}
	remaining := e.deadline.Sub(e.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	e.remaining = remaining

	if sec := ceilSeconds(remaining); sec != e.lastSecond {
		e.lastSecond = sec
		if e.onSecond != nil {
			e.onSecond(sec)
		}
	}

	if remaining > 0 {
		return
	}
	onZero := e.onZero
	e.Disarm()
	if onZero != nil {
		onZero()
	}
}

// SetRemaining snaps the remaining time. It has no effect while armed.
func (e *Engine) SetRemaining(d time.Duration) {
	if e.armed {
		return
	}
	if d < 0 {
		d = 0
	}
	e.remaining = d
	e.lastSecond = ceilSeconds(d)
}

func (e *Engine) Armed() bool {
	return e.armed
}

func (e *Engine) Remaining() time.Duration {
	return e.remaining
}

// Deadline returns the current deadline and whether one is set.
func (e *Engine) Deadline() (time.Time, bool) {
	return e.deadline, e.armed
}

// Visible reports whether the host was last seen in the foreground.
func (e *Engine) Visible() bool {
	return e.visible
}

// Close disarms and drops the visibility subscription.
func (e *Engine) Close() {
	e.Disarm()
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
}

func (e *Engine) currentInterval() time.Duration {
	if e.visible {
		return e.interval
	}
	return e.backgroundInterval
}

// visibilityChanged swaps the sampler to the interval matching the host's
// state. Returning to the foreground also resyncs immediately.
func (e *Engine) visibilityChanged(visible bool) {
	if e.visible == visible {
		return
	}
	e.visible = visible
	if !e.armed {
		return
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.cancel = e.sched.ScheduleRepeating(e.currentInterval(), e.Sample)
	if visible {
		e.Sample()
	}
}
