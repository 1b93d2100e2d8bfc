// Package metrics exposes Prometheus collectors describing verification runs.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tracecheck/internal/models"
)

const namespace = "tracecheck"

// Metrics holds the collectors updated by the verifier.
type Metrics struct {
	registry *prometheus.Registry

	runs           *prometheus.CounterVec
	runDuration    prometheus.Histogram
	queryDuration  *prometheus.HistogramVec
	stimulusStatus *prometheus.CounterVec
	lastTraceCount prometheus.Gauge
	lastRunTime    prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Verification runs by outcome.",
		}, []string{"outcome"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a verification run, including the flush wait.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		}),
		queryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Latency of calls to the order service and the Jaeger query API.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		stimulusStatus: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stimulus_status_total",
			Help:      "HTTP status codes returned by the order endpoint.",
		}, []string{"code"}),
		lastTraceCount: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_trace_count",
			Help:      "Number of traces seen by the most recent query.",
		}),
		lastRunTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the most recent run finished.",
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveQuery records the latency of one call to endpoint.
func (m *Metrics) ObserveQuery(endpoint string, d time.Duration) {
	m.queryDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveStimulus counts the status code of an order request.
func (m *Metrics) ObserveStimulus(code int) {
	m.stimulusStatus.WithLabelValues(strconv.Itoa(code)).Inc()
}

// SetTraceCount records how many traces the latest query returned.
func (m *Metrics) SetTraceCount(n int) {
	m.lastTraceCount.Set(float64(n))
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(r *models.RunResult) {
	m.runs.WithLabelValues(string(r.Outcome)).Inc()
	m.runDuration.Observe(r.Duration.Seconds())
	m.lastRunTime.SetToCurrentTime()
}

// WriteTextfile writes the current values in the text exposition format, for
// pickup by the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
