package engine

import (
	"sync/atomic"
	"time"
)

// Clock counts committed batches. Every RenderImmediate or RenderDeferred
// pass that emits work takes the next generation.
type Clock struct {
	gen atomic.Uint64
}

// NewClockAt creates a clock positioned at start, so a restored session can
// continue its generation numbering.
func NewClockAt(start uint64) *Clock {
	c := &Clock{}
	c.gen.Store(start)
	return c
}

// Next advances the clock and returns the new generation.
func (c *Clock) Next() uint64 {
	return c.gen.Add(1)
}

// Current returns the last issued generation.
func (c *Clock) Current() uint64 {
	return c.gen.Load()
}

// TimeSource supplies wall time for time-slicing deferred work.
type TimeSource interface {
	Now() time.Time
}

type systemTime struct{}

func (systemTime) Now() time.Time { return time.Now() }

// SystemTime reads the real clock.
var SystemTime TimeSource = systemTime{}
