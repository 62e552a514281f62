// Package metrics exposes Prometheus collectors for the runtime, modeled
// on oriys-nova's internal/metrics/prometheus.go collector set, trimmed
// to the counters/histograms this runtime's invocations actually produce:
// invocation counts by exit code, fuel consumption, and call latency.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector wraps the Prometheus collectors registered for one process.
type Collector struct {
	registry *prometheus.Registry

	invocationsTotal *prometheus.CounterVec
	exitCodesTotal   *prometheus.CounterVec
	fuelConsumed     prometheus.Histogram
	callDuration     prometheus.Histogram
}

var defaultFuelBuckets = prometheus.ExponentialBuckets(100, 4, 10)

// New constructs a Collector registered under namespace. Call
// Collector.Handler to serve it over HTTP, or use the returned
// Collector's Observe* methods directly from package engine/cmd.
func New(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		invocationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocations_total",
			Help:      "Total guest invocations, labeled by import surface.",
		}, []string{"surface"}),
		exitCodesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exit_codes_total",
			Help:      "Total invocations by resulting exit code.",
		}, []string{"exit_code"}),
		fuelConsumed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fuel_consumed",
			Help:      "Fuel consumed by metered invocations.",
			Buckets:   defaultFuelBuckets,
		}),
		callDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Wall-clock duration of Runtime.Call.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(c.invocationsTotal, c.exitCodesTotal, c.fuelConsumed, c.callDuration)
	return c
}

// ObserveInvocation records one completed invocation: which surface it
// ran under, its exit code, the fuel it consumed (if metered), and how
// long Call took.
func (c *Collector) ObserveInvocation(isShared bool, exitCode int32, consumedFuel uint32, metered bool, durationSeconds float64) {
	surface := "sovereign"
	if isShared {
		surface = "shared"
	}
	c.invocationsTotal.WithLabelValues(surface).Inc()
	c.exitCodesTotal.WithLabelValues(strconv.Itoa(int(exitCode))).Inc()
	if metered {
		c.fuelConsumed.Observe(float64(consumedFuel))
	}
	c.callDuration.Observe(durationSeconds)
}

// Handler returns the http.Handler serving this collector's registry in
// the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
