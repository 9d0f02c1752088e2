package guard

import "time"

// Guard decides whether a phase is still within its time bound. It is asked
// fresh on every poll tick and must not cache its answer.
type Guard interface {
	WithinBound(start time.Time, bound time.Duration) bool
}

// Func adapts a function to a Guard.
type Func func(start time.Time, bound time.Duration) bool

func (f Func) WithinBound(start time.Time, bound time.Duration) bool {
	return f(start, bound)
}

// Wall is the Guard backed by the wall clock.
var Wall Guard = Func(WithinBound)

// WithinBound is true while less than bound has elapsed since start.
func WithinBound(start time.Time, bound time.Duration) bool {
	return time.Since(start) < bound
}
