package bump

// Buffer is anything a DoubleBuffer can cycle.
type Buffer interface {
	Reset()
}

// DoubleBuffer holds a committed buffer and a work-in-progress buffer.
// A parity bit selects which side plays which role.
type DoubleBuffer[B Buffer] struct {
	sides  [2]B
	parity uint8
	flips  uint64
}

// NewDoubleBuffer creates a double buffer over two independent buffers.
func NewDoubleBuffer[B Buffer](a, b B) *DoubleBuffer[B] {
	return &DoubleBuffer[B]{sides: [2]B{a, b}}
}

// WIP returns the side renders write into.
func (d *DoubleBuffer[B]) WIP() B { return d.sides[d.parity^1] }

// Committed returns the side holding the last diffed tree.
func (d *DoubleBuffer[B]) Committed() B { return d.sides[d.parity] }

// BeginRender resets the work-in-progress side so a new render can start.
// Everything allocated there two generations ago is released.
func (d *DoubleBuffer[B]) BeginRender() B {
	wip := d.WIP()
	wip.Reset()
	return wip
}

// Flip promotes the work-in-progress side to committed.
func (d *DoubleBuffer[B]) Flip() {
	d.parity ^= 1
	d.flips++
}

// Flips returns how many times the buffer has been flipped.
func (d *DoubleBuffer[B]) Flips() uint64 { return d.flips }

// Reset clears both sides.
func (d *DoubleBuffer[B]) Reset() {
	d.sides[0].Reset()
	d.sides[1].Reset()
}
