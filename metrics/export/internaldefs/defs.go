package internaldefs

import (
	"github.com/MrEthical07/authclient"
)

// CounterDef maps a counter to its exported name.
type CounterDef struct {
	ID   authclient.MetricID
	Name string
	Help string
}

// HistogramDef maps a latency histogram to its exported name.
type HistogramDef struct {
	ID   authclient.MetricID
	Name string
	Help string
}

// DroppedNotificationsName is the counter for notifications dropped under backpressure.
const DroppedNotificationsName = "authclient_notifications_dropped_total"

// CounterDefs lists every exported counter.
var CounterDefs = []CounterDef{
	{ID: authclient.MetricRequestSuccess, Name: "authclient_request_success_total", Help: "Requests that completed successfully."},
	{ID: authclient.MetricAuthExpired, Name: "authclient_auth_expired_total", Help: "Responses rejected with 401, including replays."},
	{ID: authclient.MetricClientError, Name: "authclient_client_error_total", Help: "Responses with a 4xx status other than 401."},
	{ID: authclient.MetricServerError, Name: "authclient_server_error_total", Help: "Responses with a 5xx status."},
	{ID: authclient.MetricNetworkError, Name: "authclient_network_error_total", Help: "Requests that failed in transport."},
	{ID: authclient.MetricRequestCanceled, Name: "authclient_request_canceled_total", Help: "Requests abandoned by the caller's context."},
	{ID: authclient.MetricRefreshStarted, Name: "authclient_refresh_started_total", Help: "Refresh cycles started."},
	{ID: authclient.MetricRefreshJoined, Name: "authclient_refresh_joined_total", Help: "Requests that joined an in-flight refresh."},
	{ID: authclient.MetricRefreshSuccess, Name: "authclient_refresh_success_total", Help: "Refresh cycles that produced a new session."},
	{ID: authclient.MetricRefreshFailure, Name: "authclient_refresh_failure_total", Help: "Refresh cycles that ended the session."},
	{ID: authclient.MetricReplay, Name: "authclient_replay_total", Help: "Requests replayed after a refresh."},
	{ID: authclient.MetricDoubleAuthFailure, Name: "authclient_double_auth_failure_total", Help: "Replayed requests rejected again with 401."},
	{ID: authclient.MetricSessionTeardown, Name: "authclient_session_teardown_total", Help: "Sessions cleared by teardown or logout."},
	{ID: authclient.MetricQueueCanceled, Name: "authclient_queue_canceled_total", Help: "Waiters removed from the refresh queue by cancellation."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: authclient.MetricRequestLatency, Name: "authclient_request_latency_seconds", Help: "Single-attempt request latency."},
	{ID: authclient.MetricRefreshLatency, Name: "authclient_refresh_latency_seconds", Help: "Refresh call latency."},
}

// BucketCount is the number of histogram buckets, the last one unbounded.
const BucketCount = len(authclient.HistogramBounds) + 1

// HistogramUpperBounds are the finite bucket bounds in seconds.
var HistogramUpperBounds = func() []float64 {
	out := make([]float64, len(authclient.HistogramBounds))
	for i, d := range authclient.HistogramBounds {
		out[i] = d.Seconds()
	}
	return out
}()

// HistogramBoundSuffix names each bucket in instrument names.
var HistogramBoundSuffix = [BucketCount]string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to BucketCount entries.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to cumulative counts.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
