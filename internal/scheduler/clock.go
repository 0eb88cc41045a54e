package scheduler

import "time"

// Clock abstracts wall time and timer creation so the debounce state
// machine is testable without real waits.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is the cancellable handle returned by Clock.AfterFunc
type Timer interface {
	Stop() bool
}

// SystemClock is the production Clock backed by the time package
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
