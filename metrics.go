package authclient

import (
	"sync/atomic"
	"time"
)

// MetricID names a client counter or histogram.
type MetricID uint16

const (
	// MetricRequestSuccess counts calls that completed with a success classification.
	MetricRequestSuccess MetricID = iota
	// MetricAuthExpired counts 401 responses, including replays.
	MetricAuthExpired
	// MetricClientError counts 4xx responses other than 401.
	MetricClientError
	// MetricServerError counts 5xx responses.
	MetricServerError
	// MetricNetworkError counts transport failures.
	MetricNetworkError
	// MetricRequestCanceled counts calls abandoned by the caller's context.
	MetricRequestCanceled
	// MetricRefreshStarted counts refresh cycles, one per leader.
	MetricRefreshStarted
	// MetricRefreshJoined counts callers that joined an in-flight refresh.
	MetricRefreshJoined
	// MetricRefreshSuccess counts refresh cycles that produced a new session.
	MetricRefreshSuccess
	// MetricRefreshFailure counts refresh cycles that ended in teardown.
	MetricRefreshFailure
	// MetricReplay counts requests re-dispatched after a refresh.
	MetricReplay
	// MetricDoubleAuthFailure counts replays rejected again with 401.
	MetricDoubleAuthFailure
	// MetricSessionTeardown counts teardowns that actually cleared a session.
	MetricSessionTeardown
	// MetricQueueCanceled counts waiters removed from the queue by cancellation.
	MetricQueueCanceled
	// MetricRequestLatency is a histogram of single-attempt dispatch latency.
	MetricRequestLatency
	// MetricRefreshLatency is a histogram of refresh call latency.
	MetricRefreshLatency
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricRequestSuccess:    "request_success",
	MetricAuthExpired:       "auth_expired",
	MetricClientError:       "client_error",
	MetricServerError:       "server_error",
	MetricNetworkError:      "network_error",
	MetricRequestCanceled:   "request_canceled",
	MetricRefreshStarted:    "refresh_started",
	MetricRefreshJoined:     "refresh_joined",
	MetricRefreshSuccess:    "refresh_success",
	MetricRefreshFailure:    "refresh_failure",
	MetricReplay:            "replay",
	MetricDoubleAuthFailure: "double_auth_failure",
	MetricSessionTeardown:   "session_teardown",
	MetricQueueCanceled:     "queue_canceled",
	MetricRequestLatency:    "request_latency",
	MetricRefreshLatency:    "refresh_latency",
}

// String returns the snake_case metric name.
func (id MetricID) String() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// HistogramBounds are the inclusive upper bounds of every histogram bucket but the
// last, which is unbounded.
var HistogramBounds = [histBucketCount - 1]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free client counters. A nil or disabled *Metrics ignores writes.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of [Metrics].
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns counters configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only latency metrics have histograms.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || !isHistogram(id) {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when latency histograms are enabled, every
// histogram. A disabled instance returns empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 2),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if isHistogram(id) {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for _, id := range []MetricID{MetricRequestLatency, MetricRefreshLatency} {
			buckets := make([]uint64, histBucketCount)
			for i := 0; i < histBucketCount; i++ {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
		}
	}

	return s
}

func isHistogram(id MetricID) bool {
	return id == MetricRequestLatency || id == MetricRefreshLatency
}

func bucketIndex(d time.Duration) int {
	for i, bound := range HistogramBounds {
		if d <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
