// Package prometheus exposes authclient metrics as a prometheus.Collector.
//
// The collector reads a MetricsSnapshot on every scrape; it holds no state of its
// own. Register it with any prometheus.Registerer, or use [Handler] for a
// self-contained /metrics endpoint.
package prometheus
