/*
Package rmetrics exposes the Prometheus metrics for event ingestion,
content pruning, the missing-parent backlog, and the followee head
checker's reconciliation cycles.
*/
package rmetrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventsInsertedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rostra_events_inserted_total",
			Help: "Total number of events successfully inserted, by kind",
		},
		[]string{"kind"},
	)

	EventsAlreadyPresentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rostra_events_already_present_total",
			Help: "Total number of insert attempts that found the event already stored",
		},
	)

	ContentPrunedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rostra_content_pruned_total",
			Help: "Total number of content blobs pruned for exceeding the size ceiling",
		},
	)

	ContentStoredBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rostra_content_stored_bytes_total",
			Help: "Total bytes of event content persisted",
		},
	)

	MissingParentsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rostra_missing_parents",
			Help: "Current number of tracked missing-parent records",
		},
	)

	HeadCheckCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rostra_head_check_cycles_total",
			Help: "Total number of followee head checker ticks",
		},
	)

	HeadCheckCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rostra_head_check_cycle_duration_seconds",
			Help:    "Duration of one followee head checker tick",
			Buckets: prometheus.DefBuckets,
		},
	)

	WalkQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rostra_head_check_walk_queue_depth",
			Help: "Current depth of the in-flight graph-walk priority queue",
		},
	)

	PeerRPCDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rostra_peer_rpc_duration_seconds",
			Help:    "Duration of remote peer RPC calls, by method",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	PeerRPCErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rostra_peer_rpc_errors_total",
			Help: "Total number of failed remote peer RPC calls, by method",
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(
		EventsInsertedTotal,
		EventsAlreadyPresentTotal,
		ContentPrunedTotal,
		ContentStoredBytesTotal,
		MissingParentsGauge,
		HeadCheckCyclesTotal,
		HeadCheckCycleDuration,
		WalkQueueDepth,
		PeerRPCDuration,
		PeerRPCErrorsTotal,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time to histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed time to a histogram vec.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}
