// Package timertest provides deterministic stand-ins for the timer's host
// capabilities: a manual clock, a manual scheduler, an in-memory key/value
// store and recording collaborators.
package timertest

import (
	"context"
	"sync"
	"time"

	"github.com/sadopc/pomotrack/internal/timer"
)

// Clock is a manually advanced clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *Clock) Add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type task struct {
	interval  time.Duration
	next      time.Time
	fn        func()
	cancelled bool
}

// Scheduler fires repeating tasks only when the test advances time.
type Scheduler struct {
	Clock *Clock

	tasks      []*task
	visibility map[int]func(bool)
	nextID     int
	scheduled  int
}

func NewScheduler(clock *Clock) *Scheduler {
	return &Scheduler{Clock: clock, visibility: make(map[int]func(bool))}
}

func (s *Scheduler) ScheduleRepeating(interval time.Duration, fn func()) func() {
	t := &task{interval: interval, next: s.Clock.Now().Add(interval), fn: fn}
	s.tasks = append(s.tasks, t)
	s.scheduled++
	return func() { t.cancelled = true }
}

func (s *Scheduler) OnVisibilityChange(fn func(bool)) func() {
	id := s.nextID
	s.nextID++
	s.visibility[id] = fn
	return func() { delete(s.visibility, id) }
}

// Active is the number of live repeating tasks.
func (s *Scheduler) Active() int {
	n := 0
	for _, t := range s.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Scheduled counts every ScheduleRepeating call so far.
func (s *Scheduler) Scheduled() int {
	return s.scheduled
}

// Intervals lists the intervals of live tasks.
func (s *Scheduler) Intervals() []time.Duration {
	var out []time.Duration
	for _, t := range s.tasks {
		if !t.cancelled {
			out = append(out, t.interval)
		}
	}
	return out
}

// Advance moves the clock forward by d, firing due tasks in time order.
func (s *Scheduler) Advance(d time.Duration) {
	end := s.Clock.Now().Add(d)
	for {
		t := s.earliest(end)
		if t == nil {
			break
		}
		s.Clock.Set(t.next)
		t.next = t.next.Add(t.interval)
		t.fn()
	}
	s.Clock.Set(end)
	s.prune()
}

// Stall moves the clock forward without firing anything, as when the host is
// suspended. Task due times are pushed past the stall.
func (s *Scheduler) Stall(d time.Duration) {
	s.Clock.Add(d)
	now := s.Clock.Now()
	for _, t := range s.tasks {
		if !t.cancelled && t.next.Before(now) {
			t.next = now.Add(t.interval)
		}
	}
}

// Tick fires every live task once at the current time, like a single late
// tick delivered after a stall.
func (s *Scheduler) Tick() {
	live := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	for _, t := range live {
		if !t.cancelled {
			t.fn()
		}
	}
	s.prune()
}

// SetVisible notifies visibility subscribers.
func (s *Scheduler) SetVisible(visible bool) {
	for _, fn := range s.visibility {
		fn(visible)
	}
}

// Subscribers is the number of visibility subscriptions.
func (s *Scheduler) Subscribers() int {
	return len(s.visibility)
}

func (s *Scheduler) earliest(limit time.Time) *task {
	var best *task
	for _, t := range s.tasks {
		if t.cancelled || t.next.After(limit) {
			continue
		}
		if best == nil || t.next.Before(best.next) {
			best = t
		}
	}
	return best
}

func (s *Scheduler) prune() {
	live := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	s.tasks = live
}

// KV is an in-memory timer.KV.
type KV struct {
	mu   sync.Mutex
	data map[string]string
	Sets int
}

func NewKV() *KV {
	return &KV{data: make(map[string]string)}
}

func (kv *KV) Get(key string) (string, bool) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.data[key]
	return v, ok
}

func (kv *KV) Set(key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.data[key] = value
	kv.Sets++
	return nil
}

func (kv *KV) Delete(key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.data, key)
	return nil
}

// Logged is one recorded LogSession call.
type Logged struct {
	Kind            timer.Kind
	DurationSeconds int
}

// Sessions records LogSession calls and serves a fixed list.
type Sessions struct {
	mu     sync.Mutex
	logged []Logged
	ch     chan Logged

	// Err is returned from LogSession and ListSessions when set.
	Err  error
	List []timer.Session
	// Block, when non-nil, makes LogSession wait until it is closed.
	Block chan struct{}
}

func NewSessions() *Sessions {
	return &Sessions{ch: make(chan Logged, 256)}
}

func (s *Sessions) LogSession(ctx context.Context, kind timer.Kind, seconds int) error {
	if s.Block != nil {
		select {
		case <-s.Block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	l := Logged{Kind: kind, DurationSeconds: seconds}
	s.mu.Lock()
	s.logged = append(s.logged, l)
	s.mu.Unlock()
	select {
	case s.ch <- l:
	default:
	}
	return s.Err
}

func (s *Sessions) ListSessions(context.Context) ([]timer.Session, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.List, nil
}

// Wait blocks until n LogSession calls have been recorded or timeout
// elapses, returning the calls seen in arrival order.
func (s *Sessions) Wait(n int, timeout time.Duration) []Logged {
	deadline := time.After(timeout)
	var got []Logged
	for len(got) < n {
		select {
		case l := <-s.ch:
			got = append(got, l)
		case <-deadline:
			return got
		}
	}
	return got
}

// Logged returns a copy of every recorded call.
func (s *Sessions) Logged() []Logged {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Logged(nil), s.logged...)
}

// Chime counts plays.
type Chime struct {
	Plays int
}

func (c *Chime) Play() {
	c.Plays++
}
