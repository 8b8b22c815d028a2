package bump

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDoubleBufferCycle(t *testing.T) {
	a, b := NewArena[string](0), NewArena[string](0)
	d := NewDoubleBuffer(a, b)

	wip := d.BeginRender()
	first := wip.Alloc("gen1")
	d.Flip()
	assert.Same(t, wip, d.Committed())

	// The committed tree stays readable while the next render is built.
	wip = d.BeginRender()
	second := wip.Alloc("gen2")
	assert.Equal(t, "gen1", *d.Committed().Get(first))
	assert.Equal(t, "gen2", *wip.Get(second))
	d.Flip()

	// The third render reuses the first arena and invalidates its handles.
	d.BeginRender()
	assert.Panics(t, func() { d.WIP().Get(first) })
	assert.Equal(t, "gen2", *d.Committed().Get(second))
	assert.Equal(t, uint64(2), d.Flips())
}

func TestDoubleBufferReset(t *testing.T) {
	a, b := NewArena[int](0), NewArena[int](0)
	d := NewDoubleBuffer(a, b)
	r := d.WIP().Alloc(1)
	d.Flip()

	d.Reset()
	assert.False(t, d.Committed().Owns(r))
}
