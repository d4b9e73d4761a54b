package engine

import "time"

// Clock is a monotonic millisecond time source (spec.md §2, "Clock").
//
// Go's time.Now() already carries a monotonic reading alongside the
// wall-clock one, and subtracting two time.Time values uses it
// automatically (see the time package docs on monotonic clocks), so
// there is no need to shell out to clock_gettime(CLOCK_MONOTONIC, ...)
// the way the original program does: time.Since(start) is already
// monotonic-safe.
type Clock struct {
	start time.Time
}

// NewClock starts a new monotonic epoch at the current instant.
func NewClock() *Clock {
	return &Clock{start: time.Now()}
}

// NowMillis returns milliseconds elapsed since the clock was created.
func (c *Clock) NowMillis() int64 {
	return time.Since(c.start).Milliseconds()
}
