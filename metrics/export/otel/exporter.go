package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authclient"
	"github.com/MrEthical07/authclient/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Instrument names that have no counterpart in the client's counter set.
const (
	PendingRequestsName = "authclient_refresh_pending_requests"
	RefreshInFlightName = "authclient_refresh_in_flight"
	NotificationsName   = "authclient_notifications_suppressed_total"
)

// Source is what the exporter reads on every collection. [*authclient.Client]
// implements it.
type Source interface {
	MetricsSnapshot() authclient.MetricsSnapshot
	NotificationsDropped() uint64
	NotificationsCoalesced() uint64
	PendingRequests() int
	Refreshing() bool
}

type latencyInstrument struct {
	id      authclient.MetricID
	buckets metric.Int64ObservableCounter
	count   metric.Int64ObservableCounter
}

// Exporter observes a client's counters, latency buckets, refresh queue and
// notification losses. The callback registration lives until Close.
type Exporter struct {
	source       Source
	registration metric.Registration

	counters map[authclient.MetricID]metric.Int64ObservableCounter
	latency  []latencyInstrument
	pending  metric.Int64ObservableGauge
	inFlight metric.Int64ObservableGauge
	notes    metric.Int64ObservableCounter

	bucketAttrs [internaldefs.BucketCount]metric.ObserveOption
}

var (
	droppedAttrs   = metric.WithAttributes(attribute.String("outcome", "dropped"))
	coalescedAttrs = metric.WithAttributes(attribute.String("outcome", "coalesced"))
)

// NewExporter binds client to meter.
func NewExporter(meter metric.Meter, client *authclient.Client) (*Exporter, error) {
	if client == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, client)
}

// NewExporterFromSource binds any [Source] to meter.
func NewExporterFromSource(meter metric.Meter, source Source) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{
		source:   source,
		counters: make(map[authclient.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
	}
	for i, suffix := range internaldefs.HistogramBoundSuffix {
		e.bucketAttrs[i] = metric.WithAttributes(attribute.String("le", suffix))
	}

	var observables []metric.Observable
	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", def.Name, err)
		}
		e.counters[def.ID] = ins
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets, err := meter.Int64ObservableCounter(def.Name+"_bucket",
			metric.WithDescription(def.Help+" Cumulative count per upper bound, attribute le."))
		if err != nil {
			return nil, fmt.Errorf("create latency buckets %s: %w", def.Name, err)
		}
		count, err := meter.Int64ObservableCounter(def.Name+"_count", metric.WithDescription(def.Help+" Sample count."))
		if err != nil {
			return nil, fmt.Errorf("create latency count %s: %w", def.Name, err)
		}
		e.latency = append(e.latency, latencyInstrument{id: def.ID, buckets: buckets, count: count})
		observables = append(observables, buckets, count)
	}

	var err error
	if e.pending, err = meter.Int64ObservableGauge(PendingRequestsName,
		metric.WithDescription("Requests parked until the in-flight refresh completes.")); err != nil {
		return nil, fmt.Errorf("create pending gauge: %w", err)
	}
	if e.inFlight, err = meter.Int64ObservableGauge(RefreshInFlightName,
		metric.WithDescription("1 while a refresh cycle is in flight.")); err != nil {
		return nil, fmt.Errorf("create in-flight gauge: %w", err)
	}
	if e.notes, err = meter.Int64ObservableCounter(NotificationsName,
		metric.WithDescription("Notifications not delivered, by outcome (dropped, coalesced).")); err != nil {
		return nil, fmt.Errorf("create notifications counter: %w", err)
	}
	observables = append(observables, e.pending, e.inFlight, e.notes)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for id, ins := range e.counters {
		o.ObserveInt64(ins, int64(snapshot.Counters[id]))
	}

	for _, l := range e.latency {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[l.id]))
		for i, v := range cumulative {
			o.ObserveInt64(l.buckets, int64(v), e.bucketAttrs[i])
		}
		o.ObserveInt64(l.count, int64(cumulative[len(cumulative)-1]))
	}

	o.ObserveInt64(e.pending, int64(e.source.PendingRequests()))
	inFlight := int64(0)
	if e.source.Refreshing() {
		inFlight = 1
	}
	o.ObserveInt64(e.inFlight, inFlight)

	o.ObserveInt64(e.notes, int64(e.source.NotificationsDropped()), droppedAttrs)
	o.ObserveInt64(e.notes, int64(e.source.NotificationsCoalesced()), coalescedAttrs)
	return nil
}

// Close unregisters the callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
