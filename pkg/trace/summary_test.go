package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummaryAggregates(t *testing.T) {
	s := NewSummary()
	for _, ev := range sampleEvents() {
		s.Observe(ev)
	}

	assert.Equal(t, 6, s.Events)
	assert.Equal(t, 1, s.Allocations)
	assert.Equal(t, 1, s.Deallocations)
	assert.Equal(t, 1, s.Reads)
	assert.Equal(t, 1, s.Writes)
	assert.Equal(t, 2, s.Accesses())
	assert.Equal(t, 1, s.ScopeEntries)
	assert.Equal(t, 1, s.ScopeExits)
	assert.Equal(t, 1, s.Buffers)
	assert.Equal(t, uint64(40), s.AllocatedBytes)
	assert.Equal(t, uint64(0), s.LiveBytes)
	assert.Equal(t, uint64(40), s.PeakLiveBytes)
	assert.Equal(t, 1, s.MaxDepth)
	assert.Equal(t, 1, s.ScopeKinds[ScopeFunction])
	assert.Equal(t, 2, s.BufferAccess["arr"])
}

func TestSummaryPeakAndDepth(t *testing.T) {
	debug := DebugInfo{Funcname: "f", Filename: "a.c", Line: 1, Col: 1}
	s := NewSummary()
	for _, ev := range []Event{
		{Kind: KindScopeEntry, Debug: debug, ScopeID: 1, Scope: ScopeFunction},
		{Kind: KindScopeEntry, Debug: debug, ScopeID: 2, Scope: ScopeLoop},
		{Kind: KindAllocation, Debug: debug, BufferName: "a", BufferID: 1, Size: 100},
		{Kind: KindAllocation, Debug: debug, BufferName: "b", BufferID: 2, Size: 50},
		{Kind: KindDeallocation, Debug: debug, BufferName: "a", BufferID: 1},
		{Kind: KindScopeExit, Debug: debug, ScopeID: 2},
		{Kind: KindScopeExit, Debug: debug, ScopeID: 1},
		{Kind: KindAllocation, Debug: debug, BufferName: "c", BufferID: 3, Size: 25},
	} {
		s.Observe(ev)
	}

	assert.Equal(t, uint64(150), s.PeakLiveBytes)
	assert.Equal(t, uint64(75), s.LiveBytes)
	assert.Equal(t, 2, s.MaxDepth)
	assert.Equal(t, 3, s.Buffers)
	assert.Equal(t, uint64(175), s.AllocatedBytes)
}
