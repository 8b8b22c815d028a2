package testutil

import "fmt"

// SequenceIDs hands out predictable session IDs.
//
// Trace sessions normally get UUIDv7 IDs, which differ on every run. Store
// tests that assert on IDs open the store with a SequenceIDs instead:
//
//	session-0001, session-0002, ...
//
// Not safe for concurrent use.
type SequenceIDs struct {
	prefix string
	n      int
}

// NewSequenceIDs creates a generator. An empty prefix means "session".
func NewSequenceIDs(prefix string) *SequenceIDs {
	if prefix == "" {
		prefix = "session"
	}
	return &SequenceIDs{prefix: prefix}
}

// NewID returns the next ID.
func (g *SequenceIDs) NewID() string {
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
