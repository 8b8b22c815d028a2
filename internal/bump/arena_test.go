package bump

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaAllocGet(t *testing.T) {
	a := NewArena[string](4)

	r1 := a.Alloc("one")
	r2 := a.Alloc("two")

	assert.True(t, r1.Valid())
	assert.Equal(t, "one", *a.Get(r1))
	assert.Equal(t, "two", *a.Get(r2))
	assert.Equal(t, 2, a.Len())

	*a.Get(r1) = "uno"
	assert.Equal(t, "uno", *a.Get(r1))
}

func TestArenaSlice(t *testing.T) {
	a := NewArena[int](0)
	a.Alloc(0)
	s := a.AllocSlice([]int{1, 2, 3})
	a.Alloc(4)

	got := a.Slice(s)
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, 3, s.Len())

	_ = append(got, 99)
	assert.Equal(t, 4, *a.Get(Ref{arena: a.id, gen: a.gen, index: 4}))

	assert.Nil(t, a.Slice(Span{}))
}

func TestArenaResetInvalidatesRefs(t *testing.T) {
	a := NewArena[int](0)
	r := a.Alloc(7)
	s := a.AllocSlice([]int{1})
	gen := a.Generation()

	a.Reset()

	assert.Equal(t, gen+1, a.Generation())
	assert.Equal(t, 0, a.Len())
	assert.False(t, a.Owns(r))

	require.PanicsWithError(t,
		(&StaleRefError{Arena: r.arena, Generation: gen, Current: gen + 1}).Error(),
		func() { a.Get(r) })
	assert.Panics(t, func() { a.Slice(s) })
}

func TestArenaRejectsForeignRefs(t *testing.T) {
	a := NewArena[int](0)
	b := NewArena[int](0)
	r := a.Alloc(1)

	defer func() {
		v := recover()
		require.NotNil(t, v)
		err, ok := v.(*StaleRefError)
		require.True(t, ok)
		assert.True(t, err.Foreign)
	}()
	b.Get(r)
}

func TestZeroRefInvalid(t *testing.T) {
	var r Ref
	assert.False(t, r.Valid())
	assert.Equal(t, "ref(nil)", r.String())

	a := NewArena[int](0)
	assert.Panics(t, func() { a.Get(r) })
}
