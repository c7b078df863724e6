// Package tracer implements the trace-recording engine: the six
// instrumentation entry points, allocation attribution, scope-stack
// reconciliation, first-occurrence deduplication, and trace output.
package tracer

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/yairfalse/kaiku/pkg/config"
	"github.com/yairfalse/kaiku/pkg/trace"
)

// Engine records instrumentation events from a traced program. All
// mutating operations take one coarse lock for their full duration;
// the gate filters threads before the lock is touched. No operation
// ever returns an error to instrumented code: malformed input degrades
// to a dropped event and a diagnostic log line.
type Engine struct {
	*tracker

	cfg    *config.Config
	logger *zap.Logger
	gate   GateFunc

	mu      sync.Mutex
	session string
	stack   *scopeStack
	allocs  *allocTable
	dedup   *dedupIndex
	log     *eventLog
	closed  bool
}

// NewEngine builds an engine from cfg. A nil cfg means defaults; a nil
// logger means no logging.
func NewEngine(cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	} else {
		cfg.ApplyDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tracer config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("engine")

	e := &Engine{
		tracker: newTracker(logger),
		cfg:     cfg,
		logger:  logger,
		gate:    gateFor(cfg.Gate),
		session: uuid.NewString(),
		stack:   newScopeStack(cfg.ContextStrategy == config.ContextExact),
		allocs:  newAllocTable(),
		dedup:   newDedupIndex(),
		log:     newEventLog(cfg.MaxEvents),
	}

	logger.Info("Trace engine ready",
		zap.String("session", e.session),
		zap.String("output", cfg.OutputPath),
		zap.String("context_strategy", cfg.ContextStrategy),
		zap.String("gate", cfg.Gate))
	return e, nil
}

// WithGate replaces the thread admission predicate. Call before any
// instrumentation arrives; the gate runs unlocked.
func (e *Engine) WithGate(gate GateFunc) *Engine {
	if gate != nil {
		e.gate = gate
	}
	return e
}

// Session returns the current session id. It changes on Reset.
func (e *Engine) Session() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// append adds ev to the log, accounting for the cap and the progress
// interval.
func (e *Engine) append(ev trace.Event) {
	if !e.log.append(ev) {
		e.recordDrop(dropLogFull)
		if e.eventsDropped.Load()%int64(e.cfg.LogEvery) == 1 {
			e.logger.Warn("Event log full, dropping events",
				zap.Int("max_events", e.cfg.MaxEvents))
		}
		return
	}
	e.recordEvent()
	if n := e.log.size(); n%e.cfg.LogEvery == 0 {
		e.logger.Info("Recorded events", zap.Int("count", n))
	}
}

// InstrumentAlloc records a new live buffer and, once per call site
// and context, an allocation event. The table entry is created even
// when the event is deduplicated so later accesses attribute
// correctly.
func (e *Engine) InstrumentAlloc(callID uint64, name string, addr uintptr, size uint64, debug trace.DebugInfo) {
	if !e.gate() {
		e.rejectGate()
		return
	}
	debug = debug.Sanitize()
	if name == "" {
		name = trace.UnknownName
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	a := e.allocs.record(addr, name, size)
	e.observeLive(e.allocs.len(), e.allocs.liveBytes())

	if e.dedup.alreadyRecorded(callID, e.stack.context()) {
		e.recordDedup()
		return
	}
	e.append(trace.Event{
		Kind:       trace.KindAllocation,
		Debug:      debug,
		BufferName: a.name,
		BufferID:   a.id,
		Size:       a.size,
	})
}

// InstrumentDealloc removes the buffer based exactly at addr and, once
// per call site and context, records a deallocation event. An unknown
// address is a silent no-op.
func (e *Engine) InstrumentDealloc(callID uint64, addr uintptr, debug trace.DebugInfo) {
	if !e.gate() {
		e.rejectGate()
		return
	}
	debug = debug.Sanitize()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	a, ok := e.allocs.forget(addr)
	if !ok {
		e.recordUnknownDealloc()
		e.logger.Debug("Deallocation of unknown address",
			zap.Uint64("address", uint64(addr)),
			zap.Uint64("call_id", callID))
		return
	}
	e.observeLive(e.allocs.len(), e.allocs.liveBytes())

	if e.dedup.alreadyRecorded(callID, e.stack.context()) {
		e.recordDedup()
		return
	}
	e.append(trace.Event{
		Kind:       trace.KindDeallocation,
		Debug:      debug,
		BufferName: a.name,
		BufferID:   a.id,
	})
}

// InstrumentAccess attributes a load or store to the live buffer whose
// range contains addr and, once per call site and context, records an
// access event. Unattributed addresses (stack locals, globals, freed
// memory) produce nothing, and do not consume dedup state.
func (e *Engine) InstrumentAccess(callID uint64, addr uintptr, write bool, debug trace.DebugInfo) {
	if !e.gate() {
		e.rejectGate()
		return
	}
	debug = debug.Sanitize()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	a, ok := e.allocs.attribute(addr)
	if !ok {
		e.recordUnattributed()
		return
	}

	if e.dedup.alreadyRecorded(callID, e.stack.context()) {
		e.recordDedup()
		return
	}
	e.append(trace.Event{
		Kind:       trace.KindAccess,
		Debug:      debug,
		BufferName: a.name,
		BufferID:   a.id,
		Write:      write,
	})
}

// InstrumentRead records a load at addr.
func (e *Engine) InstrumentRead(callID uint64, addr uintptr, debug trace.DebugInfo) {
	e.InstrumentAccess(callID, addr, false, debug)
}

// InstrumentWrite records a store at addr.
func (e *Engine) InstrumentWrite(callID uint64, addr uintptr, debug trace.DebugInfo) {
	e.InstrumentAccess(callID, addr, true, debug)
}

// InstrumentScopeEntry pushes scopeID onto the scope stack and, once
// per call site and context, records an entry event. The push happens
// even when the event is deduplicated: the stack reflects real control
// flow regardless of trace suppression. The dedup context is the
// surrounding stack, before the push.
func (e *Engine) InstrumentScopeEntry(callID uint64, scopeID uint32, kind trace.ScopeKind, debug trace.DebugInfo) {
	if !e.gate() {
		e.rejectGate()
		return
	}
	debug = debug.Sanitize()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	dup := e.dedup.alreadyRecorded(callID, e.stack.context())
	e.stack.push(scopeID)
	e.logger.Debug("Entering scope",
		zap.Uint32("scope_id", scopeID),
		zap.Stringer("kind", kind),
		zap.Int("depth", e.stack.depth()))

	if dup {
		e.recordDedup()
		return
	}
	e.append(trace.Event{
		Kind:    trace.KindScopeEntry,
		Debug:   debug,
		ScopeID: scopeID,
		Scope:   kind,
	})
}

// InstrumentScopeExit closes scopeID. An exit for a scope that is not
// active is dropped. When the scope is active but not innermost, the
// stack has drifted (early return, exception unwind, longjmp, extra
// parallel-region exits): exits for the scopes above it are
// synthesized innermost-first, then the real exit is recorded. The
// synthesized and real exits are all suppressed together when the real
// exit's call site and context were already seen.
func (e *Engine) InstrumentScopeExit(callID uint64, scopeID uint32, debug trace.DebugInfo) {
	if !e.gate() {
		e.rejectGate()
		return
	}
	debug = debug.Sanitize()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	if !e.stack.active(scopeID) {
		e.recordUnmatchedExit()
		e.recordDrop(dropUnknownScopeExit)
		e.logger.Warn("Dropping exit for inactive scope",
			zap.Uint32("scope_id", scopeID),
			zap.Uint64("call_id", callID))
		return
	}

	// Context is fixed at call arrival, before repair pops.
	dup := e.dedup.alreadyRecorded(callID, e.stack.context())

	repairs := 0
	for {
		top, ok := e.stack.top()
		if !ok || top == scopeID {
			break
		}
		e.stack.pop()
		repairs++
		if !dup {
			e.append(trace.Event{
				Kind:    trace.KindScopeExit,
				Debug:   debug,
				ScopeID: top,
			})
		}
	}
	e.stack.pop()
	if repairs > 0 {
		e.recordRepairs(repairs)
		e.logger.Debug("Repaired scope stack drift",
			zap.Uint32("scope_id", scopeID),
			zap.Int("synthesized_exits", repairs))
	}

	if dup {
		e.recordDedup()
		return
	}
	e.append(trace.Event{
		Kind:    trace.KindScopeExit,
		Debug:   debug,
		ScopeID: scopeID,
	})
}

// Save writes the trace to path, or to the configured output path when
// path is empty. The write happens under the engine lock; save runs
// once at shutdown, so blocking instrumentation briefly is acceptable.
func (e *Engine) Save(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saveLocked(path)
}

func (e *Engine) saveLocked(path string) error {
	if path == "" {
		path = e.cfg.OutputPath
	}

	_, span := e.tracer.Start(context.Background(), "kaiku.save")
	defer span.End()
	span.SetAttributes(
		attribute.String("path", path),
		attribute.Int("events", e.log.size()),
	)

	fw, err := trace.Create(path)
	if err != nil {
		span.RecordError(err)
		e.logger.Error("Failed to create trace file", zap.String("path", path), zap.Error(err))
		return err
	}
	if err := e.log.each(fw.Write); err != nil {
		span.RecordError(err)
		fw.Close()
		e.logger.Error("Failed to write trace", zap.String("path", path), zap.Error(err))
		return err
	}
	if err := fw.Close(); err != nil {
		span.RecordError(err)
		e.logger.Error("Failed to finish trace file", zap.String("path", path), zap.Error(err))
		return err
	}

	e.logger.Info("Saved trace",
		zap.String("path", path),
		zap.Int("events", e.log.size()))
	return nil
}

// Reset discards all session state: events, allocations, scopes, and
// dedup history. A new session id is assigned.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.log.reset()
	e.allocs.reset()
	e.stack.reset()
	e.dedup.reset()
	e.tracker.reset()
	e.closed = false
	e.session = uuid.NewString()

	e.logger.Info("Trace engine reset", zap.String("session", e.session))
}

// Events returns a copy of the recorded events.
func (e *Engine) Events() []trace.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.log.snapshot()
}

// Stats snapshots the engine counters plus lock-held figures.
func (e *Engine) Stats() Stats {
	s := e.tracker.stats()
	e.mu.Lock()
	defer e.mu.Unlock()
	s.ScopeDepth = e.stack.depth()
	s.DedupContexts = e.dedup.len()
	s.LogSize = e.log.size()
	return s
}

// Healthy reports whether the engine is operating within its limits.
func (e *Engine) Healthy() bool {
	return e.healthy()
}

// Close saves the trace if the config asks for it and stops accepting
// events. Instrumentation arriving after Close is dropped silently.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	var err error
	if e.cfg.SaveOnExit {
		err = e.saveLocked("")
	}
	e.logger.Info("Trace engine closed",
		zap.String("session", e.session),
		zap.Int("events", e.log.size()))
	return err
}
