package tracer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recomputeSum folds the stack from scratch, the way the incremental
// checksum is defined: even depths add, odd depths subtract.
func recomputeSum(stack []uint32) int64 {
	var sum int64
	for depth, id := range stack {
		if depth%2 == 0 {
			sum += int64(id)
		} else {
			sum -= int64(id)
		}
	}
	return sum
}

func TestScopeStackPushPop(t *testing.T) {
	s := newScopeStack(false)

	assert.Equal(t, 0, s.depth())
	_, ok := s.top()
	assert.False(t, ok)

	s.push(10)
	s.push(20)
	s.push(30)
	assert.Equal(t, 3, s.depth())

	top, ok := s.top()
	require.True(t, ok)
	assert.Equal(t, uint32(30), top)

	id, ok := s.pop()
	require.True(t, ok)
	assert.Equal(t, uint32(30), id)

	id, ok = s.pop()
	require.True(t, ok)
	assert.Equal(t, uint32(20), id)

	id, ok = s.pop()
	require.True(t, ok)
	assert.Equal(t, uint32(10), id)

	_, ok = s.pop()
	assert.False(t, ok)
}

func TestScopeStackActiveCounts(t *testing.T) {
	s := newScopeStack(false)

	s.push(10)
	s.push(20)
	s.push(10) // recursive re-entry
	assert.True(t, s.active(10))
	assert.True(t, s.active(20))
	assert.False(t, s.active(99))

	s.pop()
	assert.True(t, s.active(10), "outer frame of 10 is still live")

	s.pop()
	assert.False(t, s.active(20))
	assert.True(t, s.active(10))

	s.pop()
	assert.False(t, s.active(10))
}

func TestScopeStackChecksumMatchesRecompute(t *testing.T) {
	s := newScopeStack(false)

	steps := []struct {
		push bool
		id   uint32
	}{
		{true, 10}, {true, 20}, {true, 30},
		{false, 0}, {true, 40}, {true, 20},
		{false, 0}, {false, 0}, {false, 0}, {false, 0},
		{true, 7},
	}
	for _, step := range steps {
		if step.push {
			s.push(step.id)
		} else {
			s.pop()
		}
		assert.Equal(t, recomputeSum(s.stack), s.sum)
	}
}

func TestScopeStackChecksumOrderSensitive(t *testing.T) {
	a := newScopeStack(false)
	a.push(10)
	a.push(20)

	b := newScopeStack(false)
	b.push(20)
	b.push(10)

	assert.NotEqual(t, a.context(), b.context(),
		"stack order must change the context")
}

func TestScopeStackContextChecksum(t *testing.T) {
	s := newScopeStack(false)
	s.push(10)
	s.push(20)
	s.push(30)

	ctx := s.context()
	assert.Equal(t, int64(10-20+30), ctx.sum)
	assert.Empty(t, ctx.stack)
}

func TestScopeStackContextExact(t *testing.T) {
	s := newScopeStack(true)
	s.push(10)
	s.push(20)
	s.push(30)

	ctx := s.context()
	assert.Equal(t, "10,20,30", ctx.stack)
	assert.Zero(t, ctx.sum)

	empty := newScopeStack(true)
	assert.Equal(t, "", empty.context().stack)
}

func TestScopeStackExactDistinguishesCollidingSums(t *testing.T) {
	// 5-3 and 7-5 both sum to 2.
	a := newScopeStack(true)
	a.push(5)
	a.push(3)

	b := newScopeStack(true)
	b.push(7)
	b.push(5)

	assert.NotEqual(t, a.context(), b.context())
}

func TestScopeStackReset(t *testing.T) {
	s := newScopeStack(false)
	s.push(10)
	s.push(20)
	s.reset()

	assert.Equal(t, 0, s.depth())
	assert.False(t, s.active(10))
	assert.Equal(t, int64(0), s.sum)
	assert.Equal(t, contextKey{}, s.context())
}
