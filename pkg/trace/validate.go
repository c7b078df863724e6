package trace

import "fmt"

// Finding describes one consistency problem discovered in a trace.
type Finding struct {
	// Index is the event's position in append order, or -1 for
	// problems only visible at end of trace.
	Index   int
	Message string
}

func (f Finding) String() string {
	if f.Index < 0 {
		return f.Message
	}
	return fmt.Sprintf("event %d: %s", f.Index, f.Message)
}

// Validator checks the semantic consistency of an event stream: scope
// entries and exits must nest, and buffer events must reference live
// allocations. A trace produced by the runtime passes cleanly; findings
// indicate truncation, hand editing, or a producer bug.
type Validator struct {
	index  int
	stack  []uint32
	active map[uint32]int
	live   map[uint64]string
}

func NewValidator() *Validator {
	return &Validator{
		active: make(map[uint32]int),
		live:   make(map[uint64]string),
	}
}

// Observe feeds the next event in append order and returns any findings
// for it.
func (v *Validator) Observe(ev Event) []Finding {
	var out []Finding
	report := func(format string, args ...any) {
		out = append(out, Finding{Index: v.index, Message: fmt.Sprintf(format, args...)})
	}

	if ev.Debug.Funcname == "" {
		report("empty funcname")
	}
	if ev.Debug.Filename == "" {
		report("empty filename")
	}

	switch ev.Kind {
	case KindAllocation:
		if ev.BufferName == "" {
			report("allocation with empty buffer name")
		}
		if _, ok := v.live[ev.BufferID]; ok {
			report("allocation reuses live buffer id %d", ev.BufferID)
		}
		v.live[ev.BufferID] = ev.BufferName

	case KindDeallocation:
		if _, ok := v.live[ev.BufferID]; !ok {
			report("deallocation of unknown buffer id %d", ev.BufferID)
		}
		delete(v.live, ev.BufferID)

	case KindAccess:
		if _, ok := v.live[ev.BufferID]; !ok {
			report("access to unknown buffer id %d", ev.BufferID)
		}

	case KindScopeEntry:
		v.stack = append(v.stack, ev.ScopeID)
		v.active[ev.ScopeID]++

	case KindScopeExit:
		if v.active[ev.ScopeID] == 0 {
			report("scope_exit for inactive scope %d", ev.ScopeID)
			break
		}
		// The runtime synthesizes intermediate exits, so a wellformed
		// trace always exits the innermost scope.
		if top := v.stack[len(v.stack)-1]; top != ev.ScopeID {
			report("scope_exit out of order: got %d, innermost is %d", ev.ScopeID, top)
			for len(v.stack) > 0 && v.stack[len(v.stack)-1] != ev.ScopeID {
				v.active[v.stack[len(v.stack)-1]]--
				v.stack = v.stack[:len(v.stack)-1]
			}
		}
		if len(v.stack) > 0 {
			v.active[v.stack[len(v.stack)-1]]--
			v.stack = v.stack[:len(v.stack)-1]
		}
	}

	v.index++
	return out
}

// Finish reports problems only visible once the stream ends: scopes
// never exited. Buffers still live at end of trace are normal (the
// traced program may exit without freeing).
func (v *Validator) Finish() []Finding {
	var out []Finding
	for i := len(v.stack) - 1; i >= 0; i-- {
		out = append(out, Finding{Index: -1, Message: fmt.Sprintf("unclosed scope %d", v.stack[i])})
	}
	return out
}
