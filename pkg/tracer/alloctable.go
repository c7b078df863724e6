package tracer

import "github.com/google/btree"

// allocation is one live buffer in the traced program. The id is
// assigned by the table and is unique within a trace session.
type allocation struct {
	base uintptr
	size uint64
	id   uint64
	name string
}

func lessAllocation(a, b allocation) bool { return a.base < b.base }

// allocTable maps live buffer base addresses to allocations. The tree
// is ordered by base address so attribution of interior pointers stays
// O(log n); the table is consulted on every traced load and store.
// Callers synchronize through the engine lock.
type allocTable struct {
	tree   *btree.BTreeG[allocation]
	nextID uint64
	bytes  uint64
}

func newAllocTable() *allocTable {
	return &allocTable{tree: btree.NewG(8, lessAllocation)}
}

// record inserts the allocation at base, replacing any stale entry for
// the same address, and returns the stored record.
func (t *allocTable) record(base uintptr, name string, size uint64) allocation {
	t.nextID++
	a := allocation{base: base, size: size, id: t.nextID, name: name}
	if prev, ok := t.tree.ReplaceOrInsert(a); ok {
		t.bytes -= prev.size
	}
	t.bytes += size
	return a
}

// forget removes the allocation whose base matches exactly. Unknown
// addresses are a no-op.
func (t *allocTable) forget(base uintptr) (allocation, bool) {
	a, ok := t.tree.Delete(allocation{base: base})
	if ok {
		t.bytes -= a.size
	}
	return a, ok
}

// attribute finds the allocation whose [base, base+size) range contains
// addr: an exact base match, or the greatest base below addr whose
// range still covers it.
func (t *allocTable) attribute(addr uintptr) (allocation, bool) {
	var found allocation
	var ok bool
	t.tree.DescendLessOrEqual(allocation{base: addr}, func(a allocation) bool {
		if addr-a.base < uintptr(a.size) {
			found, ok = a, true
		}
		// Ranges never overlap, so only the greatest base can match.
		return false
	})
	return found, ok
}

// len returns the number of live allocations.
func (t *allocTable) len() int { return t.tree.Len() }

// liveBytes returns the total size of live allocations.
func (t *allocTable) liveBytes() uint64 { return t.bytes }

// reset drops every entry and restarts session-scoped ids.
func (t *allocTable) reset() {
	t.tree.Clear(false)
	t.nextID = 0
	t.bytes = 0
}
