package mutation

// Writer receives mutations in order. The engine is the only producer.
type Writer interface {
	WriteMutation(m Mutation)
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(m Mutation)

// WriteMutation calls f(m).
func (f WriterFunc) WriteMutation(m Mutation) { f(m) }

// Discard drops every mutation.
var Discard Writer = WriterFunc(func(Mutation) {})

// Log records mutations in memory.
type Log struct {
	Edits []Mutation
}

// WriteMutation appends m.
func (l *Log) WriteMutation(m Mutation) {
	l.Edits = append(l.Edits, m)
}

// Len returns the number of recorded mutations.
func (l *Log) Len() int { return len(l.Edits) }

// Reset forgets recorded mutations.
func (l *Log) Reset() { l.Edits = l.Edits[:0] }

// Take returns the recorded mutations and empties the log.
func (l *Log) Take() []Mutation {
	edits := l.Edits
	l.Edits = nil
	return edits
}

// Count returns how many recorded mutations have kind k.
func (l *Log) Count(k Kind) int {
	n := 0
	for _, m := range l.Edits {
		if m.Kind == k {
			n++
		}
	}
	return n
}

// Kinds tallies recorded mutations by kind.
func (l *Log) Kinds() map[Kind]int {
	out := make(map[Kind]int)
	for _, m := range l.Edits {
		out[m.Kind]++
	}
	return out
}

// Structural counts mutations that change tree shape.
func (l *Log) Structural() int {
	n := 0
	for _, m := range l.Edits {
		if m.Kind.Structural() {
			n++
		}
	}
	return n
}

// Tee fans each mutation out to several writers.
func Tee(ws ...Writer) Writer {
	return WriterFunc(func(m Mutation) {
		for _, w := range ws {
			w.WriteMutation(m)
		}
	})
}

// Batch is the mutations committed by one driver pass.
type Batch struct {
	Generation uint64     `json:"generation" msgpack:"generation"`
	Edits      []Mutation `json:"edits" msgpack:"edits"`
}
