package otel

import (
	"context"
	"sync"
	"testing"

	"github.com/MrEthical07/authclient"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu         sync.RWMutex
	snapshot   authclient.MetricsSnapshot
	dropped    uint64
	coalesced  uint64
	pending    int
	refreshing bool
}

func (f *fakeSource) MetricsSnapshot() authclient.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := authclient.MetricsSnapshot{
		Counters:   make(map[authclient.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[authclient.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	return out
}

func (f *fakeSource) NotificationsDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func (f *fakeSource) NotificationsCoalesced() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.coalesced
}

func (f *fakeSource) PendingRequests() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.pending
}

func (f *fakeSource) Refreshing() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.refreshing
}

func newReaderMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	return rm
}

// findPoint returns the value of the point of name whose attribute key equals value,
// or the first point when key is empty.
func findPoint(rm metricdata.ResourceMetrics, name string, key attribute.Key, value string) (int64, bool) {
	match := func(set attribute.Set) bool {
		if key == "" {
			return true
		}
		v, ok := set.Value(key)
		return ok && v.AsString() == value
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					if match(dp.Attributes) {
						return dp.Value, true
					}
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					if match(dp.Attributes) {
						return dp.Value, true
					}
				}
			}
		}
	}
	return 0, false
}

func TestExporterObservesCountersAndLatency(t *testing.T) {
	reader, provider := newReaderMeter()

	src := &fakeSource{
		snapshot: authclient.MetricsSnapshot{
			Counters: map[authclient.MetricID]uint64{
				authclient.MetricRefreshStarted: 3,
				authclient.MetricReplay:         7,
			},
			Histograms: map[authclient.MetricID][]uint64{
				authclient.MetricRequestLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
	}

	exp, err := NewExporterFromSource(provider.Meter("authclient-test"), src)
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	rm := collect(t, reader)
	if v, ok := findPoint(rm, "authclient_refresh_started_total", "", ""); !ok || v != 3 {
		t.Fatalf("expected refresh_started 3, got %d (found=%v)", v, ok)
	}
	if v, ok := findPoint(rm, "authclient_replay_total", "", ""); !ok || v != 7 {
		t.Fatalf("expected replay 7, got %d (found=%v)", v, ok)
	}
	if v, ok := findPoint(rm, "authclient_request_latency_seconds_bucket", "le", "0_05"); !ok || v != 4 {
		t.Fatalf("expected 4 samples <= 50ms, got %d (found=%v)", v, ok)
	}
	if v, ok := findPoint(rm, "authclient_request_latency_seconds_count", "", ""); !ok || v != 8 {
		t.Fatalf("expected 8 samples, got %d (found=%v)", v, ok)
	}
}

func TestExporterObservesRefreshQueueAndNotifications(t *testing.T) {
	reader, provider := newReaderMeter()

	src := &fakeSource{
		snapshot:   authclient.MetricsSnapshot{Counters: map[authclient.MetricID]uint64{}},
		dropped:    2,
		coalesced:  5,
		pending:    4,
		refreshing: true,
	}
	exp, err := NewExporterFromSource(provider.Meter("authclient-test"), src)
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	rm := collect(t, reader)
	if v, ok := findPoint(rm, PendingRequestsName, "", ""); !ok || v != 4 {
		t.Fatalf("expected 4 pending, got %d (found=%v)", v, ok)
	}
	if v, ok := findPoint(rm, RefreshInFlightName, "", ""); !ok || v != 1 {
		t.Fatalf("expected refresh in flight, got %d (found=%v)", v, ok)
	}
	if v, ok := findPoint(rm, NotificationsName, "outcome", "dropped"); !ok || v != 2 {
		t.Fatalf("expected 2 dropped, got %d (found=%v)", v, ok)
	}
	if v, ok := findPoint(rm, NotificationsName, "outcome", "coalesced"); !ok || v != 5 {
		t.Fatalf("expected 5 coalesced, got %d (found=%v)", v, ok)
	}

	src.mu.Lock()
	src.pending = 0
	src.refreshing = false
	src.mu.Unlock()

	rm = collect(t, reader)
	if v, _ := findPoint(rm, PendingRequestsName, "", ""); v != 0 {
		t.Fatalf("expected queue drained, got %d", v)
	}
	if v, _ := findPoint(rm, RefreshInFlightName, "", ""); v != 0 {
		t.Fatalf("expected idle, got %d", v)
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	_, provider := newReaderMeter()
	meter := provider.Meter("authclient-test")

	if _, err := NewExporterFromSource(meter, nil); err == nil {
		t.Fatal("expected error for nil source")
	}
	if _, err := NewExporterFromSource(nil, &fakeSource{}); err == nil {
		t.Fatal("expected error for nil meter")
	}
	if _, err := NewExporter(meter, nil); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newReaderMeter()

	src := &fakeSource{
		snapshot: authclient.MetricsSnapshot{
			Counters: map[authclient.MetricID]uint64{
				authclient.MetricReplay: 1,
			},
			Histograms: map[authclient.MetricID][]uint64{
				authclient.MetricRefreshLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewExporterFromSource(provider.Meter("authclient-test"), src)
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[authclient.MetricReplay] = v
			src.pending = int(v)
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
