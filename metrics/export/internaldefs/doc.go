// Package internaldefs holds the metric names, help strings and histogram bucket
// layout shared by the Prometheus and OpenTelemetry exporters, so both expose the
// same series for the same authclient.MetricID.
package internaldefs
