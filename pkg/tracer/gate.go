package tracer

import (
	"sync/atomic"

	"github.com/yairfalse/kaiku/pkg/config"
)

// GateFunc decides whether the calling thread may mutate engine state.
// It runs before the engine lock is taken, so rejected instrumentation
// calls from worker threads never contend on it. Implementations must
// be safe for concurrent use.
type GateFunc func() bool

// AllowAll admits every calling thread.
func AllowAll() GateFunc {
	return func() bool { return true }
}

const noLeader = int64(-1)

// LeaderOnly admits only the first OS thread that calls into the
// engine. In fork-join parallel regions every worker executes the same
// instrumented code; electing one leader keeps the scope stack
// single-writer. The election lasts for the engine's lifetime.
//
// On platforms without thread ids all threads observe id 0 and the
// gate degrades to AllowAll.
func LeaderOnly() GateFunc {
	var leader atomic.Int64
	leader.Store(noLeader)
	return func() bool {
		tid := currentThreadID()
		if leader.CompareAndSwap(noLeader, tid) {
			return true
		}
		return leader.Load() == tid
	}
}

// gateFor maps a config gate policy to its GateFunc.
func gateFor(policy string) GateFunc {
	if policy == config.GateLeader {
		return LeaderOnly()
	}
	return AllowAll()
}
