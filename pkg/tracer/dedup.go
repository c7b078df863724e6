package tracer

// dedupKey pairs an instrumentation call site with the scope context
// it fired in.
type dedupKey struct {
	call uint64
	ctx  contextKey
}

// dedupIndex remembers which (call site, context) pairs have already
// produced an event, capping the trace at one representative event per
// pair regardless of loop trip counts or recursion depth.
type dedupIndex struct {
	seen map[dedupKey]struct{}
}

func newDedupIndex() *dedupIndex {
	return &dedupIndex{seen: make(map[dedupKey]struct{})}
}

// alreadyRecorded reports whether the pair was seen before, marking it
// seen on first sight. First call for a pair returns false, every
// later call returns true.
func (d *dedupIndex) alreadyRecorded(callID uint64, ctx contextKey) bool {
	key := dedupKey{call: callID, ctx: ctx}
	if _, ok := d.seen[key]; ok {
		return true
	}
	d.seen[key] = struct{}{}
	return false
}

// len returns the number of distinct pairs seen.
func (d *dedupIndex) len() int { return len(d.seen) }

// reset forgets every pair.
func (d *dedupIndex) reset() {
	d.seen = make(map[dedupKey]struct{})
}
