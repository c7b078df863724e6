package tracer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/yairfalse/kaiku/pkg/trace"
)

// counterValue sums every data point of the named metric, folding the
// per-attribute series of the drop counter into one figure.
func counterValue(rm *metricdata.ResourceMetrics, name string) (int64, bool) {
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				var total int64
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
				return total, true
			case metricdata.Gauge[int64]:
				var last int64
				for _, dp := range data.DataPoints {
					last = dp.Value
				}
				return last, true
			}
		}
	}
	return 0, false
}

func TestEngineMetrics(t *testing.T) {
	prev := otel.GetMeterProvider()
	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	eng := newTestEngine(t)

	eng.InstrumentScopeEntry(1, 30, trace.ScopeFunction, debugAt(1))
	eng.InstrumentScopeEntry(2, 20, trace.ScopeLoop, debugAt(2))
	eng.InstrumentScopeEntry(3, 10, trace.ScopeConditional, debugAt(3))
	eng.InstrumentScopeExit(4, 20, debugAt(4)) // drift: synthesizes one exit
	eng.InstrumentAlloc(5, "buf", 0x1000, 16, debugAt(5))
	eng.InstrumentWrite(6, 0x1000, debugAt(6))
	eng.InstrumentWrite(6, 0x1000, debugAt(6)) // deduplicated
	eng.InstrumentScopeExit(7, 99, debugAt(7)) // dropped

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	expect := map[string]int64{
		"kaiku_events_recorded_total":     7,
		"kaiku_events_deduplicated_total": 1,
		"kaiku_events_dropped_total":      1,
		"kaiku_scope_repairs_total":       1,
		"kaiku_live_buffers":              1,
		"kaiku_live_bytes":                16,
	}
	for name, want := range expect {
		got, ok := counterValue(&rm, name)
		require.True(t, ok, "metric %s not exported", name)
		assert.Equal(t, want, got, "metric %s", name)
	}
}

func TestEngineMetricsSurviveNoProvider(t *testing.T) {
	// The global default provider is a no-op; instruments still get
	// created and recording must not panic.
	eng := newTestEngine(t)
	eng.InstrumentAlloc(1, "buf", 0x1000, 8, debugAt(1))
	eng.InstrumentWrite(2, 0x1000, debugAt(2))
	assert.Equal(t, int64(2), eng.Stats().EventsRecorded)
}
