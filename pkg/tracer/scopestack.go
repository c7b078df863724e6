package tracer

import (
	"strconv"
	"strings"
)

// contextKey identifies a dedup context. Exactly one field is set:
// sum for the checksum strategy, stack for the exact strategy.
type contextKey struct {
	sum   int64
	stack string
}

// scopeStack models the active static scopes: a LIFO stack of scope
// ids plus a presence count per id, since recursion re-enters the same
// static scope. A rolling checksum over the stack is maintained
// incrementally for the cheap dedup context.
//
// The checksum alternates by depth: ids at even depth are added, ids
// at odd depth subtracted. It is order sensitive and O(1) to update,
// but distinct stacks with equal alternating sums collide; the exact
// strategy trades O(depth) context construction for collision freedom.
type scopeStack struct {
	stack   []uint32
	present map[uint32]int
	sum     int64
	exact   bool
}

func newScopeStack(exact bool) *scopeStack {
	return &scopeStack{
		present: make(map[uint32]int),
		exact:   exact,
	}
}

// push makes id the innermost active scope.
func (s *scopeStack) push(id uint32) {
	if len(s.stack)%2 == 0 {
		s.sum += int64(id)
	} else {
		s.sum -= int64(id)
	}
	s.stack = append(s.stack, id)
	s.present[id]++
}

// pop removes and returns the innermost scope.
func (s *scopeStack) pop() (uint32, bool) {
	if len(s.stack) == 0 {
		return 0, false
	}
	id := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	if len(s.stack)%2 == 0 {
		s.sum -= int64(id)
	} else {
		s.sum += int64(id)
	}
	if n := s.present[id]; n <= 1 {
		delete(s.present, id)
	} else {
		s.present[id] = n - 1
	}
	return id, true
}

// top returns the innermost scope without removing it.
func (s *scopeStack) top() (uint32, bool) {
	if len(s.stack) == 0 {
		return 0, false
	}
	return s.stack[len(s.stack)-1], true
}

// active reports whether id is somewhere on the stack.
func (s *scopeStack) active(id uint32) bool {
	return s.present[id] > 0
}

// depth returns the current nesting depth.
func (s *scopeStack) depth() int { return len(s.stack) }

// context returns the dedup context for the current stack under the
// configured strategy.
func (s *scopeStack) context() contextKey {
	if s.exact {
		return contextKey{stack: s.join()}
	}
	return contextKey{sum: s.sum}
}

// join renders the stack outermost-first as "10,20,30".
func (s *scopeStack) join() string {
	var b strings.Builder
	for i, id := range s.stack {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	return b.String()
}

// reset clears the stack, presence counts and checksum.
func (s *scopeStack) reset() {
	s.stack = s.stack[:0]
	s.present = make(map[uint32]int)
	s.sum = 0
}
