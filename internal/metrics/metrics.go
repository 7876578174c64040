// Package metrics exposes Prometheus collectors for export runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains the export collectors. It satisfies export.Observer.
type Metrics struct {
	registry *prometheus.Registry

	exports  *prometheus.CounterVec
	rows     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec
}

// New registers the export collectors on a fresh registry, together with
// the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		exports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricewatch_exports_total",
				Help: "Total number of export runs by type, mode and outcome",
			},
			[]string{"type", "mode", "outcome"},
		),

		rows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricewatch_export_rows_total",
				Help: "Total number of data rows written by exports",
			},
			[]string{"type", "mode"},
		),

		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricewatch_export_duration_seconds",
				Help:    "Duration of export runs in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~82s
			},
			[]string{"type", "mode"},
		),

		inFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pricewatch_exports_in_flight",
				Help: "Current number of running exports",
			},
			[]string{"mode"},
		),
	}
}

// ExportStarted records a run entering an exporter.
func (m *Metrics) ExportStarted(mode string) {
	m.inFlight.WithLabelValues(mode).Inc()
}

// ExportFinished records the end of a run.
func (m *Metrics) ExportFinished(exportType, mode, outcome string, rows int64, elapsed time.Duration) {
	m.inFlight.WithLabelValues(mode).Dec()
	m.exports.WithLabelValues(exportType, mode, outcome).Inc()
	m.rows.WithLabelValues(exportType, mode).Add(float64(rows))
	m.duration.WithLabelValues(exportType, mode).Observe(elapsed.Seconds())
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
