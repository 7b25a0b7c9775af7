// Package otel provides OpenTelemetry metric bindings for an authclient.Client.
//
// [NewExporter] registers one observable counter per client counter, a bucket
// counter (attribute le) and a count per latency histogram, gauges for the refresh
// queue ([PendingRequestsName], [RefreshInFlightName]) and a counter of undelivered
// notifications by outcome ([NotificationsName]). A single callback reads the client
// on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider; callers supply the Meter.
//   - Mutate client state.
package otel
