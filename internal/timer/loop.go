package timer

import (
	"sync"
	"time"
)

// Loop is a single-goroutine event queue implementing Scheduler for hosts
// without their own event loop (the headless runner). Every callback it runs,
// and every func passed to Post, executes on the loop goroutine in order.
type Loop struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once

	// owned by the loop goroutine
	visibility map[int]func(bool)
	nextID     int
}

const loopQueueSize = 64

func NewLoop() *Loop {
	l := &Loop{
		queue:      make(chan func(), loopQueueSize),
		done:       make(chan struct{}),
		visibility: make(map[int]func(bool)),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	for {
		select {
		case fn := <-l.queue:
			fn()
		case <-l.done:
			return
		}
	}
}

// Post enqueues fn. It reports false once the loop is stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call runs fn on the loop and waits for it to return.
func (l *Loop) Call(fn func()) bool {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-l.done:
		return false
	}
}

// ScheduleRepeating must be called from the loop goroutine, as the timer
// always does. Ticks that arrive after cancel are dropped on the loop.
func (l *Loop) ScheduleRepeating(interval time.Duration, fn func()) (cancel func()) {
	ticker := time.NewTicker(interval)
	stop := make(chan struct{})
	cancelled := false

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				// Drop the tick rather than queueing behind a backlog; the
				// deadline makes the next one just as accurate.
				select {
				case l.queue <- func() {
					if !cancelled {
						fn()
					}
				}:
				default:
				}
			case <-stop:
				return
			case <-l.done:
				return
			}
		}
	}()

	return func() {
		if cancelled {
			return
		}
		cancelled = true
		close(stop)
	}
}

func (l *Loop) OnVisibilityChange(fn func(visible bool)) (unsubscribe func()) {
	id := l.nextID
	l.nextID++
	l.visibility[id] = fn
	return func() { delete(l.visibility, id) }
}

// SetVisible broadcasts a foreground/background change on the loop.
func (l *Loop) SetVisible(visible bool) {
	l.Post(func() {
		for _, fn := range l.visibility {
			fn(visible)
		}
	})
}

// Stop terminates the loop. Pending callbacks are discarded.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.done) })
}
