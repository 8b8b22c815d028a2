package testutil

import (
	"sync"
	"time"
)

// Epoch is the instant every FakeTime starts at.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// FakeTime is a manually driven time source for time-sliced rendering.
//
// Each call to Now returns the current instant and then advances it by the
// step, so a render loop that checks the time between scope diffs sees one
// step pass per check. A zero step only moves on Advance.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeTime struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
	hits int
}

// NewFakeTime creates a FakeTime at Epoch that advances step per Now call.
func NewFakeTime(step time.Duration) *FakeTime {
	return &FakeTime{now: Epoch, step: step}
}

// Now returns the current instant, then advances by the step.
func (c *FakeTime) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	c.hits++
	return t
}

// Advance moves the clock forward by d.
func (c *FakeTime) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Calls returns how many times Now was called.
func (c *FakeTime) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}

// Reset puts the clock back at Epoch.
//
// Used for test reuse.
func (c *FakeTime) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = Epoch
	c.hits = 0
}
