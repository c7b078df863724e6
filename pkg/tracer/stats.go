package tracer

import (
	"context"
	"sync/atomic"
	"time"

	"fortio.org/safecast"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Drop reasons reported on the events dropped counter.
const (
	dropLogFull          = "log_full"
	dropUnknownScopeExit = "unknown_scope_exit"
)

// Stats is a point-in-time snapshot of engine counters.
type Stats struct {
	EventsRecorded       int64
	EventsDeduplicated   int64
	EventsDropped        int64
	GateRejections       int64
	ScopeRepairs         int64
	UnknownDeallocations int64
	UnattributedAccesses int64
	UnmatchedExits       int64

	LiveBuffers int64
	LiveBytes   int64

	ScopeDepth    int
	DedupContexts int
	LogSize       int

	LastEventTime time.Time
}

// tracker owns the engine's counters. The atomic fields mirror engine
// state so snapshots and gauges never need the engine lock; OTel
// instruments publish the same figures.
type tracker struct {
	logger *zap.Logger
	tracer oteltrace.Tracer

	eventsRecorded       atomic.Int64
	eventsDeduplicated   atomic.Int64
	eventsDropped        atomic.Int64
	gateRejections       atomic.Int64
	scopeRepairs         atomic.Int64
	unknownDeallocations atomic.Int64
	unattributedAccesses atomic.Int64
	unmatchedExits       atomic.Int64
	liveBuffers          atomic.Int64
	liveBytes            atomic.Int64
	lastEventTime        atomic.Int64

	recordedMetric    metric.Int64Counter
	dedupMetric       metric.Int64Counter
	droppedMetric     metric.Int64Counter
	repairsMetric     metric.Int64Counter
	liveBuffersMetric metric.Int64Gauge
	liveBytesMetric   metric.Int64Gauge
}

func newTracker(logger *zap.Logger) *tracker {
	t := &tracker{
		logger: logger,
		tracer: otel.Tracer("kaiku-engine"),
	}

	meter := otel.Meter("kaiku-engine")

	var err error
	t.recordedMetric, err = meter.Int64Counter(
		"kaiku_events_recorded_total",
		metric.WithDescription("Total events recorded in the trace log"),
	)
	if err != nil {
		logger.Warn("Failed to create recorded events counter", zap.Error(err))
	}

	t.dedupMetric, err = meter.Int64Counter(
		"kaiku_events_deduplicated_total",
		metric.WithDescription("Total events suppressed by the dedup index"),
	)
	if err != nil {
		logger.Warn("Failed to create deduplicated events counter", zap.Error(err))
	}

	t.droppedMetric, err = meter.Int64Counter(
		"kaiku_events_dropped_total",
		metric.WithDescription("Total events dropped, by reason"),
	)
	if err != nil {
		logger.Warn("Failed to create dropped events counter", zap.Error(err))
	}

	t.repairsMetric, err = meter.Int64Counter(
		"kaiku_scope_repairs_total",
		metric.WithDescription("Total scope exits synthesized to repair stack drift"),
	)
	if err != nil {
		logger.Warn("Failed to create scope repairs counter", zap.Error(err))
	}

	t.liveBuffersMetric, err = meter.Int64Gauge(
		"kaiku_live_buffers",
		metric.WithDescription("Currently live traced allocations"),
	)
	if err != nil {
		logger.Warn("Failed to create live buffers gauge", zap.Error(err))
	}

	t.liveBytesMetric, err = meter.Int64Gauge(
		"kaiku_live_bytes",
		metric.WithDescription("Bytes in currently live traced allocations"),
	)
	if err != nil {
		logger.Warn("Failed to create live bytes gauge", zap.Error(err))
	}

	return t
}

func (t *tracker) recordEvent() {
	t.eventsRecorded.Add(1)
	t.lastEventTime.Store(time.Now().UnixNano())
	if t.recordedMetric != nil {
		t.recordedMetric.Add(context.Background(), 1)
	}
}

func (t *tracker) recordDedup() {
	t.eventsDeduplicated.Add(1)
	if t.dedupMetric != nil {
		t.dedupMetric.Add(context.Background(), 1)
	}
}

func (t *tracker) recordDrop(reason string) {
	t.eventsDropped.Add(1)
	if t.droppedMetric != nil {
		t.droppedMetric.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("reason", reason)))
	}
}

func (t *tracker) recordRepairs(n int) {
	if n == 0 {
		return
	}
	t.scopeRepairs.Add(int64(n))
	if t.repairsMetric != nil {
		t.repairsMetric.Add(context.Background(), int64(n))
	}
}

// rejectGate counts a thread turned away by the gate. This runs on the
// pre-lock path, so it touches nothing but the atomic.
func (t *tracker) rejectGate() {
	t.gateRejections.Add(1)
}

func (t *tracker) recordUnknownDealloc() {
	t.unknownDeallocations.Add(1)
}

func (t *tracker) recordUnattributed() {
	t.unattributedAccesses.Add(1)
}

func (t *tracker) recordUnmatchedExit() {
	t.unmatchedExits.Add(1)
}

// observeLive mirrors the allocation table's live figures.
func (t *tracker) observeLive(buffers int, bytes uint64) {
	t.liveBuffers.Store(int64(buffers))
	b, err := safecast.Conv[int64](bytes)
	if err != nil {
		// Beyond int64 the exact figure stops mattering.
		b = 1<<63 - 1
	}
	t.liveBytes.Store(b)
	if t.liveBuffersMetric != nil {
		t.liveBuffersMetric.Record(context.Background(), int64(buffers))
	}
	if t.liveBytesMetric != nil {
		t.liveBytesMetric.Record(context.Background(), b)
	}
}

// stats snapshots the atomic counters. Lock-held figures (stack depth,
// log size) are filled in by the engine.
func (t *tracker) stats() Stats {
	s := Stats{
		EventsRecorded:       t.eventsRecorded.Load(),
		EventsDeduplicated:   t.eventsDeduplicated.Load(),
		EventsDropped:        t.eventsDropped.Load(),
		GateRejections:       t.gateRejections.Load(),
		ScopeRepairs:         t.scopeRepairs.Load(),
		UnknownDeallocations: t.unknownDeallocations.Load(),
		UnattributedAccesses: t.unattributedAccesses.Load(),
		UnmatchedExits:       t.unmatchedExits.Load(),
		LiveBuffers:          t.liveBuffers.Load(),
		LiveBytes:            t.liveBytes.Load(),
	}
	if ns := t.lastEventTime.Load(); ns != 0 {
		s.LastEventTime = time.Unix(0, ns)
	}
	return s
}

// healthy reports whether the engine is keeping up: more than 10% of
// events dropped means the log cap is too tight for this workload.
func (t *tracker) healthy() bool {
	dropped := t.eventsDropped.Load()
	if dropped == 0 {
		return true
	}
	return dropped*10 < t.eventsRecorded.Load()+dropped
}

// reset zeroes the session counters. Gate rejections are process
// scoped and survive.
func (t *tracker) reset() {
	t.eventsRecorded.Store(0)
	t.eventsDeduplicated.Store(0)
	t.eventsDropped.Store(0)
	t.scopeRepairs.Store(0)
	t.unknownDeallocations.Store(0)
	t.unattributedAccesses.Store(0)
	t.unmatchedExits.Store(0)
	t.liveBuffers.Store(0)
	t.liveBytes.Store(0)
	t.lastEventTime.Store(0)
}
