package trace

// Summary accumulates aggregate figures over an event stream. Feed
// events in append order with Observe; the exported fields are valid
// after every call.
type Summary struct {
	Events        int
	Allocations   int
	Deallocations int
	Reads         int
	Writes        int
	ScopeEntries  int
	ScopeExits    int

	// Buffers counts distinct allocated buffer ids; AllocatedBytes is
	// the sum of all allocation sizes.
	Buffers        int
	AllocatedBytes uint64

	// LiveBytes tracks bytes allocated but not yet freed;
	// PeakLiveBytes is its high-water mark.
	LiveBytes     uint64
	PeakLiveBytes uint64

	// MaxDepth is the deepest scope nesting seen.
	MaxDepth int

	// ScopeKinds counts scope entries per kind; BufferAccess counts
	// accesses per buffer name.
	ScopeKinds   map[ScopeKind]int
	BufferAccess map[string]int

	live  map[uint64]uint64
	depth int
}

func NewSummary() *Summary {
	return &Summary{
		ScopeKinds:   make(map[ScopeKind]int),
		BufferAccess: make(map[string]int),
		live:         make(map[uint64]uint64),
	}
}

// Observe folds one event into the summary.
func (s *Summary) Observe(ev Event) {
	s.Events++
	switch ev.Kind {
	case KindAllocation:
		s.Allocations++
		s.Buffers++
		s.AllocatedBytes += ev.Size
		s.live[ev.BufferID] = ev.Size
		s.LiveBytes += ev.Size
		if s.LiveBytes > s.PeakLiveBytes {
			s.PeakLiveBytes = s.LiveBytes
		}
	case KindDeallocation:
		s.Deallocations++
		if size, ok := s.live[ev.BufferID]; ok {
			s.LiveBytes -= size
			delete(s.live, ev.BufferID)
		}
	case KindAccess:
		if ev.Write {
			s.Writes++
		} else {
			s.Reads++
		}
		s.BufferAccess[ev.BufferName]++
	case KindScopeEntry:
		s.ScopeEntries++
		s.ScopeKinds[ev.Scope]++
		s.depth++
		if s.depth > s.MaxDepth {
			s.MaxDepth = s.depth
		}
	case KindScopeExit:
		s.ScopeExits++
		if s.depth > 0 {
			s.depth--
		}
	}
}

// Accesses returns the total number of access events.
func (s *Summary) Accesses() int { return s.Reads + s.Writes }
