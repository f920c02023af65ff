// Package metrics exposes Prometheus collectors for the daemon.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/thermo-relay/internal/logic"
)

// Metrics holds the daemon's collectors in a private registry.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	cycles         *prometheus.CounterVec
	celsius        prometheus.Gauge
	fahrenheit     prometheus.Gauge
	relayCommands  *prometheus.CounterVec
	relayEnergized prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thermo_poll_cycles_total",
			Help: "Polling cycles by outcome.",
		}, []string{"sensor", "outcome"}),
		celsius: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermo_temperature_celsius",
			Help: "Last verified temperature in degrees Celsius.",
		}),
		fahrenheit: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermo_temperature_fahrenheit",
			Help: "Last verified temperature in degrees Fahrenheit.",
		}),
		relayCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thermo_relay_commands_total",
			Help: "Relay commands by requested state and result.",
		}, []string{"requested", "status"}),
		relayEnergized: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermo_relay_energized",
			Help: "1 when the relay is ON, 0 when OFF.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.cycles,
		m.celsius,
		m.fahrenheit,
		m.relayCommands,
		m.relayEnergized,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Cycle records the outcome of one polling cycle.
func (m *Metrics) Cycle(sensor string, outcome logic.Outcome, r logic.Reading) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(sensor, string(outcome)).Inc()
	if outcome == logic.OutcomeStored {
		m.celsius.Set(r.Celsius)
		m.fahrenheit.Set(r.Fahrenheit)
	}
}

// Relay records one relay command.
func (m *Metrics) Relay(requested bool, res logic.RelayResult) {
	if m == nil {
		return
	}
	status := "success"
	if !res.Succeeded {
		status = "error"
	}
	m.relayCommands.WithLabelValues(strconv.FormatBool(requested), status).Inc()
	if res.State == logic.RelayOn {
		m.relayEnergized.Set(1)
	} else {
		m.relayEnergized.Set(0)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler counts and times requests to next under the given route label.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		m.httpRequests.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, or nil for a nil *Metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
