// Package prom exports probe observability to Prometheus, registering
// gauges, counters, and histograms for the bus, bridge, and pipeline
// metric surface.
package prom

import (
	"net/http"
	"time"

	"github.com/debughub/probe/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry returns a fresh Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// Handler returns a Prometheus HTTP handler bound to the registry, for hosts
// that want to mount a scrape endpoint for the embedded probe.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// BusObserver exports event-bus metrics to Prometheus.
type BusObserver struct {
	length      prometheus.Gauge
	enqueued    prometheus.Counter
	droppedTotal *prometheus.CounterVec
}

// NewBusObserver registers event-bus metrics on the registry.
func NewBusObserver(reg *prometheus.Registry) *BusObserver {
	o := &BusObserver{
		length: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "debugprobe_bus_length",
			Help: "Current number of events buffered in the event bus.",
		}),
		enqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "debugprobe_bus_enqueued_total",
			Help: "Events successfully enqueued onto the bus.",
		}),
		droppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "debugprobe_bus_dropped_total",
			Help: "Events discarded by the bus drop policy.",
		}, []string{"reason"}),
	}
	reg.MustRegister(o.length, o.enqueued, o.droppedTotal)
	return o
}

func (o *BusObserver) Length(n int)   { o.length.Set(float64(n)) }
func (o *BusObserver) Enqueued(n int) { o.enqueued.Add(float64(n)) }
func (o *BusObserver) Dropped(reason observability.DropReason, n int) {
	o.droppedTotal.WithLabelValues(string(reason)).Add(float64(n))
}

// BridgeObserver exports bridge-client metrics to Prometheus.
type BridgeObserver struct {
	state       *prometheus.GaugeVec
	flushTotal  *prometheus.CounterVec
	reconnects  prometheus.Counter
	heartbeats  prometheus.Counter
}

// NewBridgeObserver registers bridge metrics on the registry.
func NewBridgeObserver(reg *prometheus.Registry) *BridgeObserver {
	o := &BridgeObserver{
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "debugprobe_bridge_state",
			Help: "1 if the bridge is currently in the named connection state.",
		}, []string{"state"}),
		flushTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "debugprobe_bridge_flush_total",
			Help: "Flush attempts by outcome.",
		}, []string{"result"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "debugprobe_bridge_reconnects_total",
			Help: "Reconnect attempts scheduled.",
		}),
		heartbeats: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "debugprobe_bridge_heartbeats_total",
			Help: "Heartbeats sent to the hub.",
		}),
	}
	reg.MustRegister(o.state, o.flushTotal, o.reconnects, o.heartbeats)
	return o
}

func (o *BridgeObserver) StateChange(s observability.ConnState) {
	for _, st := range []observability.ConnState{
		observability.ConnDisconnected, observability.ConnConnecting,
		observability.ConnConnected, observability.ConnRegistered,
	} {
		v := 0.0
		if st == s {
			v = 1
		}
		o.state.WithLabelValues(string(st)).Set(v)
	}
}

func (o *BridgeObserver) Flush(result observability.FlushResult, n int) {
	o.flushTotal.WithLabelValues(string(result)).Inc()
}

func (o *BridgeObserver) ReconnectScheduled(attempt int, after time.Duration) {
	o.reconnects.Inc()
}

func (o *BridgeObserver) HeartbeatSent() { o.heartbeats.Inc() }

// PipelineObserver exports interception-pipeline metrics to Prometheus.
type PipelineObserver struct {
	requests    *prometheus.CounterVec
	latency     prometheus.Histogram
	breakpoints *prometheus.CounterVec
	chaos       *prometheus.CounterVec
	mocks       *prometheus.CounterVec
}

// NewPipelineObserver registers pipeline metrics on the registry.
func NewPipelineObserver(reg *prometheus.Registry) *PipelineObserver {
	o := &PipelineObserver{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "debugprobe_pipeline_requests_total",
			Help: "Intercepted requests by final outcome.",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "debugprobe_pipeline_request_duration_seconds",
			Help:    "End-to-end duration of intercepted requests.",
			Buckets: prometheus.DefBuckets,
		}),
		breakpoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "debugprobe_pipeline_breakpoint_hits_total",
			Help: "Breakpoint hits by phase.",
		}, []string{"phase"}),
		chaos: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "debugprobe_pipeline_chaos_fired_total",
			Help: "Chaos rules fired by kind.",
		}, []string{"kind"}),
		mocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "debugprobe_pipeline_mock_matched_total",
			Help: "Mock rules matched by target.",
		}, []string{"target"}),
	}
	reg.MustRegister(o.requests, o.latency, o.breakpoints, o.chaos, o.mocks)
	return o
}

func (o *PipelineObserver) RequestCompleted(outcome string, d time.Duration) {
	o.requests.WithLabelValues(outcome).Inc()
	o.latency.Observe(d.Seconds())
}

func (o *PipelineObserver) BreakpointHit(phase string) { o.breakpoints.WithLabelValues(phase).Inc() }
func (o *PipelineObserver) ChaosFired(kind string)     { o.chaos.WithLabelValues(kind).Inc() }
func (o *PipelineObserver) MockMatched(target string)  { o.mocks.WithLabelValues(target).Inc() }
