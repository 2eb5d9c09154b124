package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// sampleMsg fires one repetition of a scheduled callback.
type sampleMsg struct {
	id int
}

type repeating struct {
	interval time.Duration
	fn       func()
}

// teaScheduler runs timer callbacks inside Update, so they share the
// program's event queue with key presses. Commands it needs are collected
// in pending and handed back to the runtime by drain.
type teaScheduler struct {
	tasks    map[int]repeating
	watchers map[int]func(bool)
	nextID   int
	visible  bool
	pending  []tea.Cmd
}

func newTeaScheduler() *teaScheduler {
	return &teaScheduler{
		tasks:    make(map[int]repeating),
		watchers: make(map[int]func(bool)),
		visible:  true,
	}
}

func (s *teaScheduler) ScheduleRepeating(interval time.Duration, fn func()) (cancel func()) {
	s.nextID++
	id := s.nextID
	s.tasks[id] = repeating{interval: interval, fn: fn}
	s.pending = append(s.pending, tickAfter(id, interval))
	return func() { delete(s.tasks, id) }
}

func (s *teaScheduler) OnVisibilityChange(fn func(visible bool)) (unsubscribe func()) {
	s.nextID++
	id := s.nextID
	s.watchers[id] = fn
	return func() { delete(s.watchers, id) }
}

// fire runs the callback for id and queues its next repetition. Ticks for
// cancelled ids are dropped.
func (s *teaScheduler) fire(id int) {
	t, ok := s.tasks[id]
	if !ok {
		return
	}
	s.pending = append(s.pending, tickAfter(id, t.interval))
	t.fn()
}

func (s *teaScheduler) setVisible(visible bool) {
	if s.visible == visible {
		return
	}
	s.visible = visible
	for _, fn := range s.watchers {
		fn(visible)
	}
}

func (s *teaScheduler) active() int {
	return len(s.tasks)
}

func (s *teaScheduler) drain() tea.Cmd {
	if len(s.pending) == 0 {
		return nil
	}
	cmds := s.pending
	s.pending = nil
	return tea.Batch(cmds...)
}

func tickAfter(id int, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return sampleMsg{id: id}
	})
}
