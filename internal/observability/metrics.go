// Package observability provides logging, Prometheus metrics and health probes.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every collector metric.
const DefaultNamespace = "terminal_collector"

// Endpoint failure kinds, used as the "op" label.
const (
	OpConnect   = "connect"
	OpAccount   = "account"
	OpDeals     = "deals"
	OpSnapshot  = "snapshot"
	OpPositions = "positions"
	OpPanic     = "panic"
)

// Metrics holds all Prometheus metrics for the collector.
type Metrics struct {
	// Loop metrics
	CyclesTotal         *prometheus.CounterVec
	CycleDuration       prometheus.Histogram
	LoopState           prometheus.Gauge
	LastSuccessfulCycle prometheus.Gauge
	EndpointsProcessed  prometheus.Counter
	EndpointFailures    *prometheus.CounterVec

	// Sync metrics
	DealsInserted        prometheus.Counter
	StrategiesRegistered prometheus.Counter
	SnapshotsRecorded    prometheus.Counter
	PositionsReplaced    prometheus.Counter
	MirrorErrors         prometheus.Counter

	// Bridge metrics
	BridgeCallLatency *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewMetrics creates a Metrics instance registered on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		CyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "cycles_total",
			Help:      "Total number of poll cycles by outcome",
		}, []string{"status"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "cycle_duration_seconds",
			Help:      "Poll cycle duration in seconds",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		LoopState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "state",
			Help:      "Loop state (0 = idle, 1 = running)",
		}),
		LastSuccessfulCycle: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of the last cycle without endpoint failures",
		}),
		EndpointsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "endpoints_processed_total",
			Help:      "Total number of endpoint visits",
		}),
		EndpointFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "endpoint_failures_total",
			Help:      "Total number of endpoint failures by operation",
		}, []string{"op"}),

		DealsInserted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "deals_inserted_total",
			Help:      "Total number of historical deals inserted",
		}),
		StrategiesRegistered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "strategies_registered_total",
			Help:      "Total number of strategies auto-registered",
		}),
		SnapshotsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "snapshots_recorded_total",
			Help:      "Total number of account snapshots recorded",
		}),
		PositionsReplaced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "positions_replaced_total",
			Help:      "Total number of open position rows written",
		}),
		MirrorErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "mirror_errors_total",
			Help:      "Total number of failed snapshot mirror writes",
		}),

		BridgeCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "call_latency_seconds",
			Help:      "Terminal bridge call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		registry: reg,
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordCycle records a finished cycle. A cycle with no endpoint failures is "ok".
func (m *Metrics) RecordCycle(failures int, seconds float64, finishedUnix int64) {
	status := "ok"
	if failures > 0 {
		status = "partial"
	}
	m.CyclesTotal.WithLabelValues(status).Inc()
	m.CycleDuration.Observe(seconds)
	if failures == 0 {
		m.LastSuccessfulCycle.Set(float64(finishedUnix))
	}
}

// RecordEndpointFailure increments the failure counter for an operation.
func (m *Metrics) RecordEndpointFailure(op string) {
	m.EndpointFailures.WithLabelValues(op).Inc()
}

// SetRunning updates the loop state gauge.
func (m *Metrics) SetRunning(running bool) {
	if running {
		m.LoopState.Set(1)
		return
	}
	m.LoopState.Set(0)
}

// ObserveBridgeCall records the latency of one bridge call.
func (m *Metrics) ObserveBridgeCall(method string, seconds float64) {
	m.BridgeCallLatency.WithLabelValues(method).Observe(seconds)
}
