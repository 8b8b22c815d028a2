package engine

import "time"

// frameBudget tracks how long a deferred pass has been running.
//
// The budget is only consulted between scope diffs. A diff that starts
// always finishes, so a slow component can overrun the budget by one
// render.
type frameBudget struct {
	clock TimeSource
	start time.Time
	limit time.Duration
	diffs int
}

func newFrameBudget(clock TimeSource, limit time.Duration) *frameBudget {
	return &frameBudget{clock: clock, start: clock.Now(), limit: limit}
}

// spend records one finished scope diff.
func (b *frameBudget) spend() {
	b.diffs++
}

// exhausted reports whether the pass should yield. A zero limit never
// yields.
func (b *frameBudget) exhausted() bool {
	if b.limit <= 0 {
		return false
	}
	return b.clock.Now().Sub(b.start) >= b.limit
}

func (b *frameBudget) elapsed() time.Duration {
	return b.clock.Now().Sub(b.start)
}
