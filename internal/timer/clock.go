package timer

import "time"

// Clock abstracts wall-clock time so the engine can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// Scheduler is the narrow slice of a host event loop the timer depends on.
// Callbacks registered through it must be invoked on the host's serialized
// event queue, never concurrently with each other.
type Scheduler interface {
	// ScheduleRepeating invokes fn every interval until the returned cancel
	// func is called. Cancel is idempotent.
	ScheduleRepeating(interval time.Duration, fn func()) (cancel func())

	// OnVisibilityChange registers fn to be told when the host moves between
	// foreground (true) and background (false).
	OnVisibilityChange(fn func(visible bool)) (unsubscribe func())
}

// Sampling interval bounds.
const (
	DefaultSampleInterval     = 100 * time.Millisecond
	DefaultBackgroundInterval = time.Second
	MinSampleInterval         = 30 * time.Millisecond
	MaxSampleInterval         = time.Second
)

// ClampInterval keeps a sampling interval within the accepted range.
// Zero or negative values select the default.
func ClampInterval(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	if d < MinSampleInterval {
		return MinSampleInterval
	}
	if d > MaxSampleInterval {
		return MaxSampleInterval
	}
	return d
}
